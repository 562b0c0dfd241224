// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linesearch

import (
	"fmt"
	"math"

	"github.com/curioloop/cgdescent/internal/vec"
)

// InitialStep picks the step of the first iteration (I0).
//
// A NaN alpha requests the automatic choice ψ₀‖x‖∞/‖g‖∞, or ψ₀|f|/‖g‖₂
// when x ≡ 0. Any other alpha is kept. The result never exceeds ɑmax.
func InitialStep(alpha float64, x, g []float64, f, psi0, alphamax float64) float64 {
	if math.IsNaN(alpha) {
		alpha = 1
		if gmax := vec.MaxAbs(g); gmax != 0 {
			if xmax := vec.MaxAbs(x); xmax != 0 {
				alpha = psi0 * xmax / gmax
			} else if f != 0 {
				alpha = psi0 * math.Abs(f) / vec.Norm(g)
			}
		}
	}
	return math.Min(alpha, alphamax)
}

// TryStep picks the step of a later iteration from the previous one (I1-I2).
//
// The value at t = ψ₁ɑ is interpolated by the quadratic
//
//	q(s) = φ(0) + φ′(0)s + as²    a = ((φ(t) - φ(0))/t - φ′(0))/t
//
// whose minimizer is returned when q is convex and φ(t) ≤ φ(0); only then may
// the search accept the step without bracketing. Otherwise the step is t when
// φ(t) > φ(0), or ψ₂ɑ. The trial log must hold only the start point.
func TryStep(step *Step, lsr *Trials, alpha float64, p *Params, alphamax float64, log Logger) (float64, bool, error) {
	log = orQuiet(log)
	phi0, dphi0 := lsr.Value[0], lsr.Slope[0]

	t := math.Min(p.Psi1*alpha, alphamax)
	phit := step.Eval(t)
	for iterfinite := 1; !vec.Finite(phit); iterfinite++ {
		if iterfinite >= p.IterFiniteMax {
			return 0, false, fmt.Errorf("%w: alphatest = %g", ErrNoFiniteTrial, t)
		}
		t *= p.Psi3
		phit = step.Eval(t)
		lsr.NumFailures++
	}

	a := ((phit-phi0)/t - dphi0) / t
	if log.Enabled(ShowAlphaGuess) {
		log.Printf("alpha guess: alphatest = %e, phitest = %e, phi0 = %e, a = %e\n", t, phit, phi0, a)
	}

	mayTerminate := false
	if vec.Finite(a) && a > 0 && phit <= phi0 {
		alpha = -dphi0 / 2 / a
		if alpha == 0 {
			return 0, false, ErrZeroQuadStep
		}
		if alpha <= alphamax {
			mayTerminate = true
		} else {
			alpha = alphamax
		}
	} else if phit > phi0 {
		alpha = t
	} else {
		alpha *= p.Psi2
	}
	alpha = math.Min(alpha, alphamax)

	if log.Enabled(ShowAlphaGuess) {
		log.Printf("alpha guess: alpha = %e, mayterminate = %v\n", alpha, mayTerminate)
	}
	return alpha, mayTerminate, nil
}
