package amplitude

import (
	"fmt"
	"math/cmplx"
	"sort"

	"github.com/hepamp/ampengine/internal/device"
	"github.com/hepamp/ampengine/internal/logger"
	"github.com/hepamp/ampengine/internal/normint"
)

// Manager owns a reaction's terms, their factors, the coherence matrix
// between terms, and the change-detection state needed to skip
// recomputation when nothing relevant to a buffer has changed. It is
// the Go analogue of AmplitudeManager: it schedules work and delegates
// the actual per-event math to a device.Executor.
type Manager struct {
	reaction   []string
	terms      map[string]*term
	termOrder  []string
	termIndex  map[string]int
	coherence  *CoherenceMatrix

	exec   device.Executor

	// LegacyLnLikScaling disables the 1/NTrue scaling viVjTable applies
	// to every V_i*conj(V_j) entry by default, matching the older,
	// unscaled convention some comparison fits still rely on. The
	// scaled (non-legacy) convention is the default, matching AmpTools's
	// own default build (USE_LEGACY_LN_LIK_SCALING undefined): it makes
	// the data term in the log-likelihood grow like N instead of
	// N*ln(N), consistent with the normalization-integral term, at the
	// cost of shifting the likelihood value at the minimum by an
	// additive constant relative to the legacy convention.
	LegacyLnLikScaling bool

	// ForceUserVarRecalculation disables the per-buffer user-variable
	// cache, recomputing every factor's user variables on every call.
	ForceUserVarRecalculation bool
}

// NewManager builds a Manager for the given ordered list of final-state
// particle type labels, using a host device.Executor by default.
func NewManager(reaction []string) *Manager {
	return &Manager{
		reaction:  append([]string(nil), reaction...),
		terms:     make(map[string]*term),
		termIndex: make(map[string]int),
		coherence: newCoherenceMatrix(0),
		exec:      device.NewHostExecutor(),
	}
}

// SetExecutor overrides the device back-end; intended for tests (a
// fake executor) or for swapping in a GPU build.
func (m *Manager) SetExecutor(e device.Executor) { m.exec = e }

// Reaction returns the configured final-state particle labels.
func (m *Manager) Reaction() []string { return append([]string(nil), m.reaction...) }

// TermNames returns term names in the order they were added.
func (m *Manager) TermNames() []string { return append([]string(nil), m.termOrder...) }

// AddTerm registers a new additive term within the given incoherent
// sum. Terms sharing a sum name are coherent with one another by
// default; terms in different sums never interfere.
func (m *Manager) AddTerm(name, sum string) error {
	if _, exists := m.terms[name]; exists {
		return fmt.Errorf("amplitude: term %q already exists", name)
	}
	t := newTerm(name, sum, m.reaction)
	idx := len(m.termOrder)
	m.terms[name] = t
	m.termOrder = append(m.termOrder, name)
	m.termIndex[name] = idx

	grown := newCoherenceMatrix(idx + 1)
	for i := 0; i <= idx; i++ {
		for j := 0; j <= idx; j++ {
			if i < idx && j < idx {
				grown.coherent[i][j] = m.coherence.coherent[i][j]
			}
		}
	}
	grown.coherent[idx][idx] = true
	for j := 0; j < idx; j++ {
		if m.terms[m.termOrder[j]].sum == sum {
			grown.SetCoherent(idx, j, true)
		}
	}
	m.coherence = grown
	return nil
}

func (m *Manager) mustTerm(name string) (*term, error) {
	t, ok := m.terms[name]
	if !ok {
		return nil, fmt.Errorf("amplitude: unknown term %q", name)
	}
	return t, nil
}

// AddTermFactor appends a cloned, argument-bound factor to a term's
// ordered factor product.
func (m *Manager) AddTermFactor(termName, factoryName string, args []string) error {
	t, err := m.mustTerm(termName)
	if err != nil {
		return err
	}
	fi, err := newFactorInstance(factoryName, args)
	if err != nil {
		return err
	}
	t.factors = append(t.factors, fi)
	return nil
}

// AddPermutation appends a user-supplied particle-index permutation to
// termName's symmetrization list, alongside the ones generated
// automatically from identical-particle symmetry. A permutation equal
// to one already present (generated or user-added) is a transient,
// non-fatal condition: it is reported and otherwise ignored, leaving
// the term's permutation list unchanged.
func (m *Manager) AddPermutation(termName string, perm []int) error {
	t, err := m.mustTerm(termName)
	if err != nil {
		return err
	}
	added, err := t.addPermutation(perm)
	if err != nil {
		return err
	}
	if !added {
		logger.Log.Named(termName).Warn("duplicate permutation ignored", "perm", perm)
	}
	return nil
}

// SetCoherent marks two terms as interfering (or not). Terms in
// different incoherent sums can never be set coherent: their
// intensities always add, never interfere.
func (m *Manager) SetCoherent(term1, term2 string, coherent bool) error {
	t1, err := m.mustTerm(term1)
	if err != nil {
		return err
	}
	t2, err := m.mustTerm(term2)
	if err != nil {
		return err
	}
	if coherent && t1.sum != t2.sum {
		return fmt.Errorf("amplitude: %q (sum %q) and %q (sum %q) belong to different sums and can never be coherent", term1, t1.sum, term2, t2.sum)
	}
	m.coherence.SetCoherent(m.termIndex[term1], m.termIndex[term2], coherent)
	return nil
}

// SetDefaultProductionFactor binds a term's V_i to a fixed complex
// value it owns outright (not derived from another term).
func (m *Manager) SetDefaultProductionFactor(termName string, v complex128) error {
	t, err := m.mustTerm(termName)
	if err != nil {
		return err
	}
	t.prod = ProductionFactor{value: v, scale: 1}
	return nil
}

// SetExternalProductionFactor binds termName's V_i to scale times
// *ptr, storage owned by the caller (typically a minimizer walking its
// own parameter vector). The manager never copies through ptr; every
// Value() call rereads it live. The binding stays in effect until
// ResetProductionFactor reverts the term to its owned default.
func (m *Manager) SetExternalProductionFactor(termName string, ptr *complex128, scale float64) error {
	t, err := m.mustTerm(termName)
	if err != nil {
		return err
	}
	if ptr == nil {
		return fmt.Errorf("amplitude: external production factor pointer must not be nil")
	}
	t.prod = ProductionFactor{extPtr: ptr, scale: scale}
	return nil
}

// BindProductionFactor binds termName's V_i to scale times another
// term's production factor, tracking that term's value live rather
// than copying it. Unlike SetExternalProductionFactor, the borrowed
// storage is itself owned by this Manager.
func (m *Manager) BindProductionFactor(termName, sourceTerm string, scale float64) error {
	t, err := m.mustTerm(termName)
	if err != nil {
		return err
	}
	src, err := m.mustTerm(sourceTerm)
	if err != nil {
		return err
	}
	t.prod = ProductionFactor{extPtr: &src.prod.value, scale: scale}
	return nil
}

// ResetProductionFactor reverts termName's production factor to an
// owned default of 1+0i, dropping any external or sibling-term
// binding. This is the "borrow revoked" state spec'd for minimizer-
// owned production factors.
func (m *Manager) ResetProductionFactor(termName string) error {
	t, err := m.mustTerm(termName)
	if err != nil {
		return err
	}
	fixed := t.prod.isFixed
	t.prod = defaultProductionFactor()
	t.prod.isFixed = fixed
	return nil
}

// FixProductionFactor marks a term's production factor as not free in
// the fit (its factors may still carry free parameters).
func (m *Manager) FixProductionFactor(termName string, fixed bool) error {
	t, err := m.mustTerm(termName)
	if err != nil {
		return err
	}
	t.prod.isFixed = fixed
	return nil
}

// SetParPtr binds name to a live, externally owned parameter value in
// every factor across every term that recognizes it.
func (m *Manager) SetParPtr(name string, ptr *float64) {
	for _, t := range m.terms {
		for _, fi := range t.factors {
			fi.SetParPtr(name, ptr)
		}
	}
}

// SetParValue sets a named parameter's fixed numeric value in every
// factor that recognizes it.
func (m *Manager) SetParValue(name string, val float64) {
	for _, t := range m.terms {
		for _, fi := range t.factors {
			fi.SetParValue(name, val)
		}
	}
}

// UpdatePar notifies every factor that parameter name changed,
// advancing that factor's change-detection iteration counter whenever
// the factor reports the parameter affects it.
func (m *Manager) UpdatePar(name string) {
	for _, t := range m.terms {
		for _, fi := range t.factors {
			fi.updatePar(name)
		}
	}
}

// HasTermWithFreeParam reports whether any term in sum carries a free
// fit parameter, either through an unfixed production factor or a
// factor that contains one.
func (m *Manager) HasTermWithFreeParam(sum string) bool {
	for _, name := range m.termOrder {
		t := m.terms[name]
		if t.sum != sum {
			continue
		}
		if !t.prod.isFixed {
			return true
		}
		if t.hasFreeParameters() {
			return true
		}
	}
	return false
}

// MaxFactorStoragePerEvent returns the largest per-event double count
// any single term needs to hold its factor-times-permutation block,
// the block CalcTerms hands to Executor.AssembleTerm.
func (m *Manager) MaxFactorStoragePerEvent() int {
	max := 0
	for _, name := range m.termOrder {
		if s := m.terms[name].factorStoragePerEvent(); s > max {
			max = s
		}
	}
	return max
}

// TermStoragePerEvent returns 2*len(termOrder): the per-event double
// count of the assembled-term slab across all terms.
func (m *Manager) TermStoragePerEvent() int { return 2 * len(m.termOrder) }

// UserVarsPerEvent returns the per-event double count needed to cache
// every factor instance's user variables across every term. Distinct
// terms using textually identical factors are not deduplicated; each
// keeps its own cache slot, trading some memory for a simpler buffer
// implementation.
func (m *Manager) UserVarsPerEvent() int {
	total := 0
	for _, name := range m.termOrder {
		total += m.terms[name].userVarsPerEvent()
	}
	return total
}

// UniqueNIElements returns the number of (i,j), i>=j pairs the
// normalization-integral matrix actually needs to compute, given the
// coherence matrix's gating.
func (m *Manager) UniqueNIElements() int {
	n := len(m.termOrder)
	count := 0
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			if m.coherence.Coherent(i, j) {
				count++
			}
		}
	}
	return count
}

func (m *Manager) coherentPairs() []device.IntegralPair {
	n := len(m.termOrder)
	pairs := make([]device.IntegralPair, 0, m.UniqueNIElements())
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			if m.coherence.Coherent(i, j) {
				pairs = append(pairs, device.IntegralPair{I: i, J: j})
			}
		}
	}
	return pairs
}

// CalcUserVars (re)computes every factor's per-event user variables
// for buf, skipping any factor whose cache is already valid unless
// ForceUserVarRecalculation is set.
func (m *Manager) CalcUserVars(buf *EventBuffer) {
	for _, name := range m.termOrder {
		t := m.terms[name]
		for _, fi := range t.factors {
			nv := fi.NumUserVars()
			if nv == 0 {
				continue
			}
			_, cached := buf.userVars[fi]
			upToDate := fi.AreUserVarsStatic() || buf.userVarIter[fi] == fi.iteration
			if cached && !m.ForceUserVarRecalculation && upToDate {
				continue
			}
			out := make([]float64, nv*t.numPermutations()*buf.NPadded)
			m.exec.ComputeUserVars(fi.CalcUserVars, buf.FourVectors, buf.NParticles, buf.NPadded, t.perms, out)
			buf.userVars[fi] = out
			buf.userVarIter[fi] = fi.iteration
		}
	}
}

// CalcTerms (re)computes the symmetrized, permutation-summed amplitude
// for every term into buf, skipping terms whose factors have not
// changed iteration since the last call on this buffer.
func (m *Manager) CalcTerms(buf *EventBuffer) {
	buf.ensureAssembled(len(m.termOrder))
	for idx, name := range m.termOrder {
		t := m.terms[name]
		nFactors := len(t.factors)
		nPerms := t.numPermutations()

		changed := false
		for _, fi := range t.factors {
			if buf.factorIter[fi] != fi.iteration {
				changed = true
				break
			}
		}
		block, haveBlock := buf.factorBlocks[t]
		if !changed && haveBlock {
			continue
		}
		if !haveBlock || len(block) != nFactors*nPerms*buf.NPadded {
			block = make([]complex128, nFactors*nPerms*buf.NPadded)
			buf.factorBlocks[t] = block
		}

		for f, fi := range t.factors {
			userVars := buf.userVars[fi]
			slice := block[f*nPerms*buf.NPadded : (f+1)*nPerms*buf.NPadded]
			m.exec.ComputeFactor(fi.CalcAmplitudeAll, buf.FourVectors, buf.NParticles, buf.NPadded, t.perms, userVars, slice)
			buf.factorIter[fi] = fi.iteration
		}

		m.exec.AssembleTerm(block, buf.NPadded, buf.NTrue, nFactors, nPerms, buf.termSlices[idx])
	}
	buf.intensityValid = false
}

// AssembledTerms returns the symmetrized per-event amplitude computed
// by the most recent CalcTerms call on buf, one slice per term in
// TermNames order. The returned slices alias buf's internal storage
// and are invalidated by the next CalcTerms call.
func (m *Manager) AssembledTerms(buf *EventBuffer) [][]complex128 {
	return buf.termSlices
}

// viVjTable precomputes V_i*conj(V_j) for every coherent (i,j), i>=j
// pair, doubling off-diagonal entries to account for the two mirrored
// terms of the cross product, and, unless LegacyLnLikScaling is set,
// dividing by nTrue first so the data term in the log-likelihood grows
// like N instead of N*ln(N) (matching AmpTools's default build).
func (m *Manager) viVjTable(nTrue int) []complex128 {
	n := len(m.termOrder)
	table := make([]complex128, n*(n+1)/2)
	for i := 0; i < n; i++ {
		vi := m.terms[m.termOrder[i]].prod.Value()
		for j := 0; j <= i; j++ {
			if !m.coherence.Coherent(i, j) {
				continue
			}
			vj := m.terms[m.termOrder[j]].prod.Value()
			vv := vi * cmplx.Conj(vj)
			if !m.LegacyLnLikScaling && nTrue > 0 {
				vv /= complex(float64(nTrue), 0)
			}
			if i != j {
				vv *= 2
			}
			table[i*(i+1)/2+j] = vv
		}
	}
	return table
}

// CalcIntensities fills buf.Intensity and buf.MaxIntensity from the
// assembled terms and the current production factors. CalcTerms must
// have been called on buf first.
func (m *Manager) CalcIntensities(buf *EventBuffer) {
	out, maxI := m.exec.ComputeIntensities(buf.termSlices, m.coherence.rows(), m.viVjTable(buf.NTrue), buf.Weights, buf.NTrue)
	buf.Intensity = out
	buf.MaxIntensity = maxI
	buf.intensityValid = true
}

// CalcSumLogIntensity returns sum_e w(e) * ln(I(e)/w(e)) over buf's
// true events. CalcIntensities must have been called first.
func (m *Manager) CalcSumLogIntensity(buf *EventBuffer) float64 {
	return m.exec.SumLogIntensity(buf.Intensity, buf.Weights, buf.NTrue)
}

// CalcSingleEventIntensity returns the intensity of one event, forcing
// a full recompute of buf first; provided for diagnostics, not for
// performance-sensitive per-event loops.
func (m *Manager) CalcSingleEventIntensity(buf *EventBuffer, event int) (float64, error) {
	if event < 0 || event >= buf.NTrue {
		return 0, fmt.Errorf("amplitude: event %d out of range [0,%d)", event, buf.NTrue)
	}
	buf.invalidate()
	m.CalcUserVars(buf)
	m.CalcTerms(buf)
	m.CalcIntensities(buf)
	return buf.Intensity[event], nil
}

// Evaluate runs the full per-buffer pipeline: user variables, term
// assembly, then intensities.
func (m *Manager) Evaluate(buf *EventBuffer) {
	m.CalcUserVars(buf)
	m.CalcTerms(buf)
	m.CalcIntensities(buf)
}

// CalcIntegrals fills buf.Integrals with the normalization-integral
// matrix over buf's true events, dividing by nGenerated (the number of
// events thrown before any acceptance cut) to give an efficiency-
// corrected integral. CalcTerms must have been called on buf first.
// buf is expected to be a Monte Carlo sample, not a data sample.
func (m *Manager) CalcIntegrals(buf *EventBuffer, nGenerated int) error {
	if nGenerated <= 0 {
		return fmt.Errorf("amplitude: nGenerated must be positive, got %d", nGenerated)
	}
	pairs := m.coherentPairs()
	results := m.exec.ComputeIntegralPairs(buf.termSlices, buf.Weights, buf.NTrue, pairs)
	n := len(m.termOrder)
	buf.Integrals = normint.NewMatrix(n)
	buf.NGenerated = nGenerated
	scale := complex(1/float64(nGenerated), 0)
	for k, pr := range pairs {
		buf.Integrals.Set(pr.I, pr.J, results[k]*scale)
	}
	return nil
}

// NormalizationTerm returns sum_{i>=j, coherent} Re(V_i V_j* *
// integrals[i,j]) using this manager's current production factors and
// coherence matrix. Unlike CalcIntegrals, integrals need not have come
// from a single buffer evaluated by this manager: a distributed
// coordinator can gather and combine integral matrices across shards
// and pass the combined result here. nTrue must be the same data-event
// count CalcIntensities used, so the normalization term is scaled
// consistently with the data term in the log-likelihood.
func (m *Manager) NormalizationTerm(integrals *normint.Matrix, nTrue int) float64 {
	vv := m.viVjTable(nTrue)
	n := len(m.termOrder)
	var total float64
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			if !m.coherence.Coherent(i, j) {
				continue
			}
			total += real(vv[i*(i+1)/2+j] * integrals.Get(i, j))
		}
	}
	return total
}

// sortedSumNames returns the distinct incoherent sum names across all
// terms, sorted lexically.
func (m *Manager) sortedSumNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, n := range m.termOrder {
		s := m.terms[n].sum
		if !seen[s] {
			seen[s] = true
			names = append(names, s)
		}
	}
	sort.Strings(names)
	return names
}
