package numdiff

import (
	"errors"
	"math"
)

var sqrtEps = math.Sqrt(math.Nextafter(1, 2) - 1)
var cubeEps = math.Pow(math.Nextafter(1, 2)-1, float64(1)/3)

type Method int

const (
	// Forward use the first order accuracy forward difference.
	Forward Method = iota
	// Central use the second order accuracy central difference.
	Central
)

// Gradient estimates the gradient of a scalar function by finite differences.
// Each estimate costs n evaluations with Forward and 2n with Central,
// plus the evaluation at x0.
//
// # Reference:
//
//   - https://en.wikipedia.org/wiki/Finite_difference
//   - https://github.com/scipy/scipy/blob/main/scipy/optimize/_numdiff.py
//
// # License
//
//   - https://github.com/scipy/scipy/blob/main/LICENSE.txt
type Gradient struct {
	N int
	// Function of which to estimate the gradient.
	Object func(x []float64) float64
	// Finite difference method to use.
	Method Method
	// Relative step size used to compute absolute step size.
	// The default absolute step size is computed as h = RelStep * sign(x0) * max(1, abs(x0)) with RelStep being selected automatically.
	// Otherwise, absolute step size is computed as h = RelStep * sign(x0) * abs(x0) when RelStep is provided.
	RelStep float64
	// Absolute step size to use.
	// The RelStep is used when AbsStep is not provide.
	// For Central method the sign of AbsStep is ignored.
	AbsStep float64
	gradCtx
}

type gradCtx struct {
	xs      []float64
	absStep []float64
}

// Check the parameters and initialize gradCtx.
func (gs *Gradient) Check() (err error) {
	switch {
	case gs.N <= 0:
		err = errors.New("negative dimensions")
	case gs.Method != Forward && gs.Method != Central:
		err = errors.New("unknown method")
	case gs.Object == nil:
		err = errors.New("object function is required")
	case gs.RelStep < 0 || math.IsNaN(gs.RelStep) || math.IsNaN(gs.AbsStep):
		err = errors.New("invalid step size")
	}
	if err != nil {
		return
	}
	if len(gs.absStep) != gs.N {
		gs.xs = make([]float64, gs.N)
		gs.absStep = make([]float64, gs.N)
	}
	return
}

// Diff returns f(x0) and writes the gradient estimate into g.
// The estimate is skipped when f(x0) is not finite.
func (gs *Gradient) Diff(x0, g []float64) (f0 float64, err error) {
	if err = gs.Check(); err != nil {
		return
	}
	if len(x0) != gs.N || len(g) != gs.N {
		return 0, errors.New("invalid x0 dimensions")
	}
	copy(gs.xs, x0)
	if f0 = gs.Object(gs.xs); math.IsNaN(f0) || math.IsInf(f0, 0) {
		return
	}
	gs.absoluteStep(x0)
	if gs.Method == Central {
		gs.approxCentral(g)
	} else {
		gs.approxForward(f0, g)
	}
	return
}

// Evaluation adapts the estimator to the objective-and-gradient form
// f = eval(x, g) where a nil g requests the value only.
// The returned function shares the scratch space of gs.
func (gs *Gradient) Evaluation() func(x, g []float64) float64 {
	return func(x, g []float64) float64 {
		if g == nil {
			return gs.Object(x)
		}
		f, err := gs.Diff(x, g)
		if err != nil {
			panic(err)
		}
		return f
	}
}

func (gs *Gradient) absoluteStep(x0 []float64) {
	h := gs.absStep
	if len(h) != len(x0) {
		panic("bound check error")
	}

	var eps float64
	switch gs.Method {
	case Forward:
		eps = sqrtEps
	case Central:
		eps = cubeEps
	default:
		panic("unknown method")
	}

	abs := gs.AbsStep
	rel := gs.RelStep
	if abs == 0 && rel == 0 {
		for i, v := range x0 {
			h[i] = math.Copysign(eps, v) * math.Max(1.0, math.Abs(v))
		}
	} else {
		for i, v := range x0 {
			s := abs
			if s == 0 {
				s = math.Copysign(rel, v) * math.Abs(v)
			}
			if d := (v + s) - v; d == 0 {
				s = math.Copysign(eps, v) * math.Max(1.0, math.Abs(v))
			}
			h[i] = s
		}
	}

	if gs.Method == Central {
		for i, v := range h {
			h[i] = math.Abs(v)
		}
	}
}

// approxForward uses gᵢ ≈ (f(x + hᵢeᵢ) - f(x)) / hᵢ
func (gs *Gradient) approxForward(f0 float64, g []float64) {
	xs, h := gs.xs, gs.absStep
	if len(h) != len(xs) || len(g) != len(xs) {
		panic("bound check error")
	}
	fun := gs.Object
	for i, s := range h {
		t := xs[i]
		xs[i] = t + s
		g[i] = (fun(xs) - f0) / ((t + s) - t)
		xs[i] = t
	}
}

// approxCentral uses gᵢ ≈ (f(x + hᵢeᵢ) - f(x - hᵢeᵢ)) / 2hᵢ
func (gs *Gradient) approxCentral(g []float64) {
	xs, h := gs.xs, gs.absStep
	if len(h) != len(xs) || len(g) != len(xs) {
		panic("bound check error")
	}
	fun := gs.Object
	for i, s := range h {
		t := xs[i]
		xs[i] = t - s
		f1 := fun(xs)
		xs[i] = t + s
		f2 := fun(xs)
		g[i] = (f2 - f1) / (2 * s)
		xs[i] = t
	}
}
