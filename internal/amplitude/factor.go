// Package amplitude implements the factorizable amplitude evaluation
// engine: pluggable per-event complex factors, identical-particle
// permutation symmetrization, and the production/coherence bookkeeping
// that turns a model description into per-event intensities.
package amplitude

import (
	"fmt"
	"strings"
	"sync"
)

// Factor computes one complex multiplicative contribution to a term,
// once per event per permutation. Implementations are registered with
// RegisterFactory under a unique name and cloned per use via NewFactor.
type Factor interface {
	Name() string

	// NumUserVars reports how many per-event, per-permutation doubles
	// CalcUserVars produces. Zero means the factor has none.
	NumUserVars() int

	// AreUserVarsStatic reports whether user variables, once computed
	// for a buffer, stay valid across parameter changes.
	AreUserVarsStatic() bool

	// NeedsUserVarsOnly reports whether CalcAmplitudeAll can be
	// evaluated from user variables alone, letting a manager discard
	// the four-vector block once they're cached.
	NeedsUserVarsOnly() bool

	// ContainsFreeParameters reports whether this instance's amplitude
	// value can change independently of the four-vectors and user
	// variables, i.e. whether it was bound to any free parameter.
	ContainsFreeParameters() bool

	// CalcUserVars populates out (length NumUserVars()*nEvents*len(perms),
	// permutation-major) from the four-vector block.
	CalcUserVars(fourVectors []float64, nParticles, nEvents int, perms [][]int, out []float64)

	// CalcAmplitudeAll populates out (length nEvents*len(perms)) with the
	// complex factor value for every event and permutation.
	CalcAmplitudeAll(fourVectors []float64, nParticles, nEvents int, perms [][]int, userVars []float64, out []complex128)

	// SetParPtr binds name to a live parameter value; returns false if
	// this factor does not recognize the parameter.
	SetParPtr(name string, ptr *float64) bool

	// SetParValue sets a named parameter to a fixed numeric value.
	SetParValue(name string, val float64)

	// UpdatePar reports whether the named parameter affects this
	// factor's amplitude value, and refreshes any cached derived state.
	UpdatePar(name string) bool

	// NewFactor clones the prototype, binding the given argument tuple.
	NewFactor(args []string) Factor
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factor)
)

// RegisterFactory adds a factor prototype to the process-wide registry
// under prototype.Name(). Intended to run from an init() in the
// package defining the factor; registering the same name twice
// overwrites the prototype.
func RegisterFactory(prototype Factor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[prototype.Name()] = prototype
}

func lookupFactory(name string) (Factor, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	p, ok := registry[name]
	return p, ok
}

// identifier builds the "name(arg,arg,...)" string a term factor is
// known by. Buffer caches are keyed by factor instance, not by this
// string, so textually identical uses in different terms still get
// separate cache slots.
func identifier(name string, args []string) string {
	return fmt.Sprintf("%s(%s)", name, strings.Join(args, ","))
}

// factorInstance wraps a cloned Factor with the monotone parameter
// iteration counter used for change detection: it only advances when
// UpdatePar reports the factor cares about the parameter that changed.
type factorInstance struct {
	Factor
	args      []string
	id        string
	iteration uint64
}

func newFactorInstance(factoryName string, args []string) (*factorInstance, error) {
	prototype, ok := lookupFactory(factoryName)
	if !ok {
		return nil, fmt.Errorf("amplitude: factor %q has not been registered", factoryName)
	}
	clone := prototype.NewFactor(args)
	return &factorInstance{
		Factor: clone,
		args:   append([]string(nil), args...),
		id:     identifier(clone.Name(), args),
	}, nil
}

func (fi *factorInstance) updatePar(name string) {
	if fi.Factor.UpdatePar(name) {
		fi.iteration++
	}
}
