//go:build gpu

package device

// GPUExecutor specifies the host-side contract for a device back-end:
// call shape, buffer layout, and worker accounting match HostExecutor
// exactly so AmplitudeManager is indifferent to which one it holds.
// The kernel bodies themselves are out of scope here; each method
// documents what a real implementation would dispatch.
type GPUExecutor struct {
	streams int
}

// NewGPUExecutor reports the contract only; it does not probe for a
// device and always returns a usable (if unimplemented) Executor.
func NewGPUExecutor(streams int) *GPUExecutor {
	if streams < 1 {
		streams = 1
	}
	return &GPUExecutor{streams: streams}
}

func (g *GPUExecutor) NumWorkers() int { return g.streams }

func (g *GPUExecutor) ComputeUserVars(fn UserVarFunc, fourVectors []float64, nParticles, nEvents int, perms [][]int, out []float64) {
	panic("device: GPU user-var kernel not implemented; host-side contract only")
}

func (g *GPUExecutor) ComputeFactor(fn FactorFunc, fourVectors []float64, nParticles, nEvents int, perms [][]int, userVars []float64, out []complex128) {
	panic("device: GPU factor kernel not implemented; host-side contract only")
}

func (g *GPUExecutor) AssembleTerm(factorBlock []complex128, nEvents, nTrueEvents, nFactors, nPerms int, out []complex128) {
	panic("device: GPU term-assembly kernel not implemented; host-side contract only")
}

func (g *GPUExecutor) ComputeIntensities(amps [][]complex128, coherence [][]bool, viVj []complex128, weights []float64, nTrueEvents int) ([]float64, float64) {
	panic("device: GPU intensity kernel not implemented; host-side contract only")
}

func (g *GPUExecutor) SumLogIntensity(intensity, weights []float64, nTrueEvents int) float64 {
	panic("device: GPU reduction kernel not implemented; host-side contract only")
}

func (g *GPUExecutor) ComputeIntegralPairs(amps [][]complex128, weights []float64, nTrueEvents int, pairs []IntegralPair) []complex128 {
	panic("device: GPU integral kernel not implemented; host-side contract only")
}
