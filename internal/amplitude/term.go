package amplitude

import "fmt"

// ProductionFactor is the complex coefficient V_i multiplying a term's
// assembled amplitude sum. It is always in exactly one of three states:
// owned (value holds the coefficient outright), bound (extPtr borrows
// storage the caller, typically a minimizer, owns and keeps updated),
// or fixed (isFixed, independent of ownership). Binding never copies;
// resetting drops the borrowed pointer and reverts to the owned default.
type ProductionFactor struct {
	value   complex128
	scale   float64
	parName string
	extPtr  *complex128
	isFixed bool
}

// Value returns the effective production factor, applying the scale.
func (p ProductionFactor) Value() complex128 {
	if p.extPtr != nil {
		return *p.extPtr * complex(p.scale, 0)
	}
	return p.value * complex(p.scale, 0)
}

func defaultProductionFactor() ProductionFactor {
	return ProductionFactor{value: complex(1, 0), scale: 1}
}

// CoherenceMatrix records, for every pair of terms sharing a sum, whether
// their cross term contributes to the intensity (true) or is treated as
// incoherent (diagonal only). It is symmetric; only i>=j need be set.
type CoherenceMatrix struct {
	n      int
	coherent [][]bool
}

func newCoherenceMatrix(n int) *CoherenceMatrix {
	rows := make([][]bool, n)
	for i := range rows {
		rows[i] = make([]bool, n)
	}
	return &CoherenceMatrix{n: n, coherent: rows}
}

// SetCoherent marks the (i,j) pair, and its symmetric counterpart, as
// contributing a cross term to the intensity sum.
func (c *CoherenceMatrix) SetCoherent(i, j int, coherent bool) {
	c.coherent[i][j] = coherent
	c.coherent[j][i] = coherent
}

// Coherent reports whether terms i and j cross-interfere.
func (c *CoherenceMatrix) Coherent(i, j int) bool {
	return c.coherent[i][j]
}

func (c *CoherenceMatrix) rows() [][]bool { return c.coherent }

// term is one additive piece of one amplitude sum: an ordered list of
// factor instances (multiplied together per permutation, then summed
// over permutations) scaled by a production factor.
type term struct {
	name        string
	sum         string
	reaction    []string
	perms       [][]int
	factors     []*factorInstance
	prod        ProductionFactor
	forceUserVarRecalc bool
}

func newTerm(name, sum string, reaction []string) *term {
	return &term{
		name:  name,
		sum:   sum,
		reaction: reaction,
		perms: symmetricCombos(reaction),
		prod:  defaultProductionFactor(),
	}
}

// numPermutations reports len(perms), i.e. the symmetrization degree.
func (t *term) numPermutations() int { return len(t.perms) }

// addPermutation appends perm to the term's permutation list, rejecting
// it by equality comparison against every permutation already present
// (the default symmetry-generated set as well as any earlier custom
// addition). Returns true if perm was appended, false if it was a
// duplicate and silently ignored.
func (t *term) addPermutation(perm []int) (bool, error) {
	if len(perm) != len(t.reaction) {
		return false, fmt.Errorf("amplitude: permutation length %d does not match reaction length %d", len(perm), len(t.reaction))
	}
	for _, existing := range t.perms {
		if equalPerm(existing, perm) {
			return false, nil
		}
	}
	t.perms = append(t.perms, append([]int(nil), perm...))
	return true, nil
}

func equalPerm(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// hasFreeParameters reports whether any of the term's bound factors
// carries a free fit parameter.
func (t *term) hasFreeParameters() bool {
	for _, f := range t.factors {
		if f.ContainsFreeParameters() {
			return true
		}
	}
	return false
}

// userVarsPerEvent returns the sum of NumUserVars()*numPermutations()
// across the term's factors: each factor's user vars occupy their own
// region, so the term needs the total of all factors' slots, not the
// max of one. Manager.UserVarsPerEvent adds this up across terms.
func (t *term) userVarsPerEvent() int {
	total := 0
	for _, f := range t.factors {
		total += f.NumUserVars() * t.numPermutations()
	}
	return total
}

// factorStoragePerEvent returns 2*sum(len(perms)) across factors, the
// per-event double count needed to hold every factor's complex value
// for every permutation (the quantity AmplitudeManager calls
// maxFactorStoragePerEvent when maximized across terms).
func (t *term) factorStoragePerEvent() int {
	return 2 * len(t.factors) * t.numPermutations()
}
