//go:build !gpu

package device

import (
	"math"
	"math/cmplx"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// HostExecutor runs every kernel on the CPU, chunking events across
// goroutines keyed on runtime.NumCPU(), the way the teacher's cpu.go
// splits LinearF32/RMSNorm/MatMul.
type HostExecutor struct {
	numWorkers int
}

// NewHostExecutor builds a HostExecutor sized to the host's CPU count.
func NewHostExecutor() *HostExecutor {
	n := runtime.NumCPU()
	if n < 1 {
		n = 1
	}
	return &HostExecutor{numWorkers: n}
}

func (h *HostExecutor) NumWorkers() int { return h.numWorkers }

// parallelChunks splits [0,n) into at most h.numWorkers contiguous
// chunks and runs fn on each concurrently, waiting for all to finish.
func (h *HostExecutor) parallelChunks(n int, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}
	workers := h.numWorkers
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}
	chunk := (n + workers - 1) / workers
	var g errgroup.Group
	for lo := 0; lo < n; lo += chunk {
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		lo, hi := lo, hi
		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}
	_ = g.Wait()
}

func (h *HostExecutor) ComputeUserVars(fn UserVarFunc, fourVectors []float64, nParticles, nEvents int, perms [][]int, out []float64) {
	fn(fourVectors, nParticles, nEvents, perms, out)
}

func (h *HostExecutor) ComputeFactor(fn FactorFunc, fourVectors []float64, nParticles, nEvents int, perms [][]int, userVars []float64, out []complex128) {
	fn(fourVectors, nParticles, nEvents, perms, userVars, out)
}

func (h *HostExecutor) AssembleTerm(factorBlock []complex128, nEvents, nTrueEvents, nFactors, nPerms int, out []complex128) {
	for i := range out {
		out[i] = 0
	}
	if nPerms == 0 || nFactors == 0 {
		return
	}
	symm := complex(1/math.Sqrt(float64(nPerms)), 0)
	h.parallelChunks(nTrueEvents, func(lo, hi int) {
		for e := lo; e < hi; e++ {
			var sum complex128
			for p := 0; p < nPerms; p++ {
				prod := complex(1, 0)
				base := p * nEvents
				for f := 0; f < nFactors; f++ {
					prod *= factorBlock[f*nPerms*nEvents+base+e]
				}
				sum += prod
			}
			out[e] = sum * symm
		}
	})
}

func (h *HostExecutor) ComputeIntensities(amps [][]complex128, coherence [][]bool, viVj []complex128, weights []float64, nTrueEvents int) ([]float64, float64) {
	out := make([]float64, len(weights))
	n := len(amps)
	var mu sync.Mutex
	maxIntensity := 0.0
	h.parallelChunks(nTrueEvents, func(lo, hi int) {
		localMax := 0.0
		for e := lo; e < hi; e++ {
			var intensity float64
			for i := 0; i < n; i++ {
				for j := 0; j <= i; j++ {
					if !coherence[i][j] {
						continue
					}
					aiaj := amps[i][e] * cmplx.Conj(amps[j][e])
					vv := viVj[i*(i+1)/2+j]
					intensity += real(vv * aiaj)
				}
			}
			intensity *= weights[e]
			out[e] = intensity
			if intensity > localMax {
				localMax = intensity
			}
		}
		mu.Lock()
		if localMax > maxIntensity {
			maxIntensity = localMax
		}
		mu.Unlock()
	})
	return out, maxIntensity
}

func (h *HostExecutor) SumLogIntensity(intensity, weights []float64, nTrueEvents int) float64 {
	// Each chunk stores its partial sum at its start index; the partials
	// are then added in event order, independent of goroutine timing.
	partials := make([]float64, nTrueEvents)
	h.parallelChunks(nTrueEvents, func(lo, hi int) {
		local := 0.0
		for e := lo; e < hi; e++ {
			local += weights[e] * math.Log(intensity[e]/weights[e])
		}
		partials[lo] = local
	})
	total := 0.0
	for _, p := range partials {
		total += p
	}
	return total
}

func (h *HostExecutor) ComputeIntegralPairs(amps [][]complex128, weights []float64, nTrueEvents int, pairs []IntegralPair) []complex128 {
	results := make([]complex128, len(pairs))
	h.parallelChunks(len(pairs), func(lo, hi int) {
		for k := lo; k < hi; k++ {
			pr := pairs[k]
			ampI, ampJ := amps[pr.I], amps[pr.J]
			var sum complex128
			for e := 0; e < nTrueEvents; e++ {
				sum += complex(weights[e], 0) * ampI[e] * cmplx.Conj(ampJ[e])
			}
			if pr.I == pr.J {
				sum = complex(real(sum), 0)
			}
			results[k] = sum
		}
	})
	return results
}
