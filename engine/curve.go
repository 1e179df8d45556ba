package engine

import "github.com/simukka/ucm-chill/common"

// Curve maps one parameter onto an output range. Results are clamped to the
// output range, so a curve never extrapolates.
type Curve struct {
	Param          Param
	InMin, InMax   float64
	OutMin, OutMax float64
	Exp            bool // Exponential interpolation (frequencies)
}

// Eval reads the parameter and maps it.
func (c Curve) Eval(p *Params) float64 {
	return c.At(p.Get(c.Param))
}

// At maps an explicit input value.
func (c Curve) At(x float64) float64 {
	if c.Exp {
		return common.Clamp(common.MapExp(x, c.InMin, c.InMax, c.OutMin, c.OutMax), c.OutMin, c.OutMax)
	}
	return common.MapClamped(x, c.InMin, c.InMax, c.OutMin, c.OutMax)
}
