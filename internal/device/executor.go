// Package device abstracts the back-end that actually walks events and
// permutations: "compute factor", "assemble terms", "sum log intensity",
// "compute integrals". There are two implementations, selected at build
// time the way the teacher repo splits cpu.go/cuda.go/metal.go by build
// tag: a host (sequential/goroutine-chunked) back-end in host.go, and a
// device back-end in gpu.go that specifies the host-side contract only.
package device

// UserVarFunc matches a Factor's CalcUserVars signature by value, not by
// interface, so this package never imports internal/amplitude — the
// dependency would otherwise cycle since amplitude.Manager holds an
// Executor.
type UserVarFunc func(fourVectors []float64, nParticles, nEvents int, perms [][]int, out []float64)

// FactorFunc matches a Factor's CalcAmplitudeAll signature.
type FactorFunc func(fourVectors []float64, nParticles, nEvents int, perms [][]int, userVars []float64, out []complex128)

// IntegralPair names one (i,j) entry of the normalization-integral
// matrix that needs (re)computation.
type IntegralPair struct {
	I, J int
}

// Executor is the uniform back-end contract. A host.go implementation
// runs these sequentially or goroutine-chunked; a gpu.go implementation
// (built under -tags gpu) would dispatch one kernel per factor/term and
// keep amplitudes resident on the device, per spec §5.
type Executor interface {
	// ComputeUserVars calls fn once over the whole buffer, writing
	// numUserVars*nEvents*len(perms) doubles into out.
	ComputeUserVars(fn UserVarFunc, fourVectors []float64, nParticles, nEvents int, perms [][]int, out []float64)

	// ComputeFactor calls fn once over the whole buffer, writing
	// 2*nEvents*len(perms) interleaved doubles into out.
	ComputeFactor(fn FactorFunc, fourVectors []float64, nParticles, nEvents int, perms [][]int, userVars []float64, out []complex128)

	// AssembleTerm symmetrizes factorBlock (layout [factor][perm][event])
	// into out (length nEvents), summing over permutations and the
	// product of factors, scaled by 1/sqrt(nPerms). Only the first
	// nTrueEvents entries of out are written; the rest are zeroed.
	AssembleTerm(factorBlock []complex128, nEvents, nTrueEvents, nFactors, nPerms int, out []complex128)

	// ComputeIntensities fills out[e] = w(e) * sum over coherent (i,j)
	// pairs of Re(viVj[i,j] * amps[i][e] * conj(amps[j][e])), and
	// returns the maximum intensity observed.
	ComputeIntensities(amps [][]complex128, coherence [][]bool, viVj []complex128, weights []float64, nTrueEvents int) (out []float64, maxIntensity float64)

	// SumLogIntensity returns sum_e w(e) * ln(intensity(e)/w(e)).
	SumLogIntensity(intensity, weights []float64, nTrueEvents int) float64

	// ComputeIntegralPairs returns, for each requested (i,j) pair,
	// sum_e w(e) * amps[i][e] * conj(amps[j][e]) over nTrueEvents.
	// Diagonal pairs (i==j) are returned with zero imaginary part.
	ComputeIntegralPairs(amps [][]complex128, weights []float64, nTrueEvents int, pairs []IntegralPair) []complex128

	// NumWorkers reports the degree of intra-buffer parallelism this
	// executor will use; exposed for diagnostics/metrics only.
	NumWorkers() int
}
