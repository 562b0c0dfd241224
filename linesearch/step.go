// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linesearch

import (
	"math"

	"github.com/curioloop/cgdescent/internal/vec"
)

// Step evaluates the objective restricted to the ray x + ɑd:
//
//	φ(ɑ) = f(x + ɑd)    φ′(ɑ) = ∇f(x + ɑd)ᵀd
//
// X and D are read only. Trial points are written to XTmp and every
// gradient evaluation overwrites G.
type Step struct {
	X, D []float64
	XTmp []float64
	G    []float64
	// Func returns f(x) and writes ∇f(x) into g unless g is nil.
	Func func(x, g []float64) float64
	// NumEval counts calls to Func.
	NumEval int

	gradAt float64 // step held by G, NaN when unknown
}

// Begin marks G as holding the gradient at ɑ = 0.
func (s *Step) Begin() {
	if len(s.X) != len(s.D) || len(s.X) != len(s.XTmp) || len(s.X) != len(s.G) {
		panic("bound check error")
	}
	s.gradAt = 0
}

// Eval returns φ(ɑ) without touching G.
func (s *Step) Eval(alpha float64) float64 {
	vec.Step(s.XTmp, s.X, alpha, s.D)
	s.NumEval++
	return s.Func(s.XTmp, nil)
}

// EvalGrad returns φ(ɑ) and φ′(ɑ). The slope is NaN when φ(ɑ) is not finite.
func (s *Step) EvalGrad(alpha float64) (phi, dphi float64) {
	vec.Step(s.XTmp, s.X, alpha, s.D)
	s.NumEval++
	s.gradAt = math.NaN()
	phi = s.Func(s.XTmp, s.G)
	dphi = math.NaN()
	if vec.Finite(phi) {
		dphi = vec.Dot(s.G, s.D)
		s.gradAt = alpha
	}
	return
}

// GradAt reports whether G currently holds the gradient at ɑ.
func (s *Step) GradAt(alpha float64) bool {
	return s.gradAt == alpha
}
