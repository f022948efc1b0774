package coordinator

import "strconv"

import "github.com/hepamp/ampengine/internal/amplitude"

// constantFactor always returns the same complex value, independent
// of the event or permutation. Args: "re", "im" (default 1,0).
type constantFactor struct {
	value complex128
}

func (c *constantFactor) Name() string                { return "Constant" }
func (c *constantFactor) NumUserVars() int             { return 0 }
func (c *constantFactor) AreUserVarsStatic() bool      { return true }
func (c *constantFactor) NeedsUserVarsOnly() bool      { return true }
func (c *constantFactor) ContainsFreeParameters() bool { return false }

func (c *constantFactor) CalcUserVars(fourVectors []float64, nParticles, nEvents int, perms [][]int, out []float64) {
}

func (c *constantFactor) CalcAmplitudeAll(fourVectors []float64, nParticles, nEvents int, perms [][]int, userVars []float64, out []complex128) {
	for i := range out {
		out[i] = c.value
	}
}

func (c *constantFactor) SetParPtr(name string, ptr *float64) bool { return false }
func (c *constantFactor) SetParValue(name string, val float64)     {}
func (c *constantFactor) UpdatePar(name string) bool                { return false }

func (c *constantFactor) NewFactor(args []string) amplitude.Factor {
	re, im := 1.0, 0.0
	if len(args) >= 1 {
		re, _ = strconv.ParseFloat(args[0], 64)
	}
	if len(args) >= 2 {
		im, _ = strconv.ParseFloat(args[1], 64)
	}
	return &constantFactor{value: complex(re, im)}
}

// scaledFactor multiplies a fixed base value by a named free
// parameter, used to exercise parameter binding and change detection.
type scaledFactor struct {
	base     complex128
	scale    float64
	scalePtr *float64
	bound    bool
}

func (f *scaledFactor) Name() string                { return "Scaled" }
func (f *scaledFactor) NumUserVars() int             { return 0 }
func (f *scaledFactor) AreUserVarsStatic() bool      { return true }
func (f *scaledFactor) NeedsUserVarsOnly() bool      { return true }
func (f *scaledFactor) ContainsFreeParameters() bool { return f.bound }

func (f *scaledFactor) CalcUserVars(fourVectors []float64, nParticles, nEvents int, perms [][]int, out []float64) {
}

func (f *scaledFactor) effectiveScale() float64 {
	if f.scalePtr != nil {
		return *f.scalePtr
	}
	return f.scale
}

func (f *scaledFactor) CalcAmplitudeAll(fourVectors []float64, nParticles, nEvents int, perms [][]int, userVars []float64, out []complex128) {
	v := f.base * complex(f.effectiveScale(), 0)
	for i := range out {
		out[i] = v
	}
}

func (f *scaledFactor) SetParPtr(name string, ptr *float64) bool {
	if name != "scale" {
		return false
	}
	f.scalePtr = ptr
	f.bound = true
	return true
}

func (f *scaledFactor) SetParValue(name string, val float64) {
	if name == "scale" {
		f.scale = val
	}
}

func (f *scaledFactor) UpdatePar(name string) bool { return name == "scale" }

func (f *scaledFactor) NewFactor(args []string) amplitude.Factor {
	re, im := 1.0, 0.0
	if len(args) >= 1 {
		re, _ = strconv.ParseFloat(args[0], 64)
	}
	if len(args) >= 2 {
		im, _ = strconv.ParseFloat(args[1], 64)
	}
	return &scaledFactor{base: complex(re, im), scale: 1}
}

func init() {
	amplitude.RegisterFactory(&constantFactor{value: complex(1, 0)})
	amplitude.RegisterFactory(&scaledFactor{scale: 1})
}
