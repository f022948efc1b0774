// Package demoreaction wires a small p,pi+,pi+ two-term reaction and a
// synthetic event generator shared by cmd/ampfit, cmd/ampleader, and
// cmd/ampfollower, standing in for whatever reaction-configuration
// loader and data reader a real deployment would supply (both out of
// scope for this engine).
package demoreaction

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"

	"github.com/hepamp/ampengine/internal/amplitude"
)

// breitWignerFactor is a minimal relativistic Breit-Wigner lineshape
// over the invariant mass of two named daughters, the kind of user-
// supplied resonance amplitude a real fit plugs in through
// amplitude.RegisterFactory. Args: mass0, width, daughter index 1,
// daughter index 2 (reaction-particle indices, before any permutation
// is applied).
type breitWignerFactor struct {
	mass0, width float64
	d1, d2       int
}

func (f *breitWignerFactor) Name() string                { return "BreitWigner" }
func (f *breitWignerFactor) NumUserVars() int             { return 0 }
func (f *breitWignerFactor) AreUserVarsStatic() bool      { return true }
func (f *breitWignerFactor) NeedsUserVarsOnly() bool      { return false }
func (f *breitWignerFactor) ContainsFreeParameters() bool { return false }

func (f *breitWignerFactor) CalcUserVars(fourVectors []float64, nParticles, nEvents int, perms [][]int, out []float64) {
}

func invariantMass(fourVectors []float64, nEvents, a, b, e int) float64 {
	idx := func(particle, comp int) float64 { return fourVectors[((particle*nEvents)+e)*4+comp] }
	E := idx(a, 0) + idx(b, 0)
	px := idx(a, 1) + idx(b, 1)
	py := idx(a, 2) + idx(b, 2)
	pz := idx(a, 3) + idx(b, 3)
	m2 := E*E - px*px - py*py - pz*pz
	if m2 < 0 {
		return 0
	}
	return math.Sqrt(m2)
}

func (f *breitWignerFactor) CalcAmplitudeAll(fourVectors []float64, nParticles, nEvents int, perms [][]int, userVars []float64, out []complex128) {
	for p, perm := range perms {
		a, b := perm[f.d1], perm[f.d2]
		base := p * nEvents
		for e := 0; e < nEvents; e++ {
			m := invariantMass(fourVectors, nEvents, a, b, e)
			denom := complex(f.mass0*f.mass0-m*m, -f.mass0*f.width)
			out[base+e] = complex(f.mass0*f.width, 0) / denom
		}
	}
}

func (f *breitWignerFactor) SetParPtr(name string, ptr *float64) bool { return false }
func (f *breitWignerFactor) SetParValue(name string, val float64)     {}
func (f *breitWignerFactor) UpdatePar(name string) bool               { return false }

func (f *breitWignerFactor) NewFactor(args []string) amplitude.Factor {
	if len(args) != 4 {
		panic(fmt.Sprintf("BreitWigner: expected 4 args (mass0, width, d1, d2), got %d", len(args)))
	}
	mass0, _ := strconv.ParseFloat(args[0], 64)
	width, _ := strconv.ParseFloat(args[1], 64)
	d1, _ := strconv.Atoi(args[2])
	d2, _ := strconv.Atoi(args[3])
	return &breitWignerFactor{mass0: mass0, width: width, d1: d1, d2: d2}
}

func init() {
	amplitude.RegisterFactory(&breitWignerFactor{mass0: 1, width: 0.1})
}

// BuildReaction wires a two-term p,pi+,pi+ reaction: an SWave and a
// PWave Breit-Wigner resonance over the two identical pions,
// interfering coherently in a single sum.
func BuildReaction() (*amplitude.Manager, error) {
	m := amplitude.NewManager([]string{"p", "pi+", "pi+"})
	if err := m.AddTerm("SWave", "main"); err != nil {
		return nil, err
	}
	if err := m.AddTermFactor("SWave", "BreitWigner", []string{"1.2", "0.15", "1", "2"}); err != nil {
		return nil, err
	}
	if err := m.AddTerm("PWave", "main"); err != nil {
		return nil, err
	}
	if err := m.AddTermFactor("PWave", "BreitWigner", []string{"1.5", "0.10", "1", "2"}); err != nil {
		return nil, err
	}
	if err := m.SetDefaultProductionFactor("SWave", complex(1, 0)); err != nil {
		return nil, err
	}
	if err := m.SetDefaultProductionFactor("PWave", complex(0.6, 0.3)); err != nil {
		return nil, err
	}
	return m, nil
}

// SyntheticBuffer fills a buffer of n p,pi+,pi+ events with randomized
// but kinematically plausible four-vectors, standing in for a real
// event-file reader.
func SyntheticBuffer(rng *rand.Rand, n int) *amplitude.EventBuffer {
	buf := amplitude.NewEventBuffer(3, n)
	for e := 0; e < n; e++ {
		mass := 1.0 + rng.Float64()
		p := math.Sqrt(math.Max(mass*mass/4-0.02, 0))
		buf.SetFourVector(0, e, 0.938, 0, 0, 0)
		buf.SetFourVector(1, e, mass/2, p, 0.01*rng.Float64(), 0)
		buf.SetFourVector(2, e, mass/2, -p, -0.01*rng.Float64(), 0)
	}
	return buf
}
