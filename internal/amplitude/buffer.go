package amplitude

import "github.com/hepamp/ampengine/internal/normint"

// EventBuffer is one arena of events — a data sample or a Monte Carlo
// sample used for normalization — stored as contiguous, particle-major
// four-vector blocks plus whatever scratch each evaluation pass needs.
// A buffer is owned by exactly one Manager at a time; nothing here is
// safe for concurrent use from multiple goroutines without external
// synchronization, matching how AmpVecs is used in the original.
type EventBuffer struct {
	NParticles int
	NTrue      int // events actually present
	NPadded    int // NTrue rounded up for vectorized kernels

	// FourVectors is laid out particle-major: component c of particle p
	// of event e lives at index ((p*NPadded)+e)*4+c, c in {E,px,py,pz}.
	FourVectors []float64
	Weights     []float64 // length NPadded; only [0,NTrue) meaningful

	userVars      map[*factorInstance][]float64
	userVarIter   map[*factorInstance]uint64
	factorBlocks  map[*term][]complex128
	factorIter    map[*factorInstance]uint64

	assembled   []complex128 // backing slab, term-major, NPadded per term
	termSlices  [][]complex128

	Intensity    []float64
	MaxIntensity float64

	// Integrals holds the normalization-integral matrix when this
	// buffer is used as a Monte Carlo sample; nil for data buffers.
	Integrals *normint.Matrix
	NGenerated int // events thrown before any acceptance cut, for efficiency-weighted integrals

	intensityValid bool
}

// NewEventBuffer allocates a buffer for nTrue events of an nParticles
// final state, padding up to a vector-friendly width.
func NewEventBuffer(nParticles, nTrue int) *EventBuffer {
	const pad = 8
	nPadded := ((nTrue + pad - 1) / pad) * pad
	if nPadded == 0 {
		nPadded = pad
	}
	b := &EventBuffer{
		NParticles:   nParticles,
		NTrue:        nTrue,
		NPadded:      nPadded,
		FourVectors:  make([]float64, nParticles*nPadded*4),
		Weights:      make([]float64, nPadded),
		userVars:     make(map[*factorInstance][]float64),
		userVarIter:  make(map[*factorInstance]uint64),
		factorBlocks: make(map[*term][]complex128),
		factorIter:   make(map[*factorInstance]uint64),
	}
	for i := range b.Weights {
		b.Weights[i] = 1
	}
	return b
}

// fourVectorIndex returns the flat index of component c of particle p
// of event e.
func (b *EventBuffer) fourVectorIndex(p, e, c int) int {
	return ((p*b.NPadded)+e)*4 + c
}

// SetFourVector writes the (E,px,py,pz) four-vector of particle p of
// event e.
func (b *EventBuffer) SetFourVector(p, e int, E, px, py, pz float64) {
	base := b.fourVectorIndex(p, e, 0)
	b.FourVectors[base] = E
	b.FourVectors[base+1] = px
	b.FourVectors[base+2] = py
	b.FourVectors[base+3] = pz
}

// FourVector returns the (E,px,py,pz) four-vector of particle p of
// event e.
func (b *EventBuffer) FourVector(p, e int) [4]float64 {
	base := b.fourVectorIndex(p, e, 0)
	return [4]float64{b.FourVectors[base], b.FourVectors[base+1], b.FourVectors[base+2], b.FourVectors[base+3]}
}

func (b *EventBuffer) invalidate() {
	b.userVars = make(map[*factorInstance][]float64)
	b.userVarIter = make(map[*factorInstance]uint64)
	b.factorBlocks = make(map[*term][]complex128)
	b.factorIter = make(map[*factorInstance]uint64)
	b.assembled = nil
	b.termSlices = nil
	b.intensityValid = false
}

func (b *EventBuffer) ensureAssembled(nTerms int) {
	if len(b.termSlices) == nTerms {
		return
	}
	b.assembled = make([]complex128, nTerms*b.NPadded)
	b.termSlices = make([][]complex128, nTerms)
	for i := 0; i < nTerms; i++ {
		b.termSlices[i] = b.assembled[i*b.NPadded : (i+1)*b.NPadded]
	}
}
