// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linesearch

import (
	"fmt"
	"math"

	"github.com/curioloop/cgdescent/internal/vec"
)

// search holds the state shared by the phases of one line search.
type search struct {
	step *Step
	lsr  *Trials
	p    *Params
	log  Logger

	phi0, dphi0 float64
	philim      float64 // φ(0) + ε|φ(0)|
}

// Search finds a step satisfying the Wolfe or approximate Wolfe conditions
// along the direction held by step (Hager & Zhang, 2006).
//
// The trial log must hold only the start point (0, φ(0), φ′(0)) with φ′(0) < 0,
// and c must lie in (0, ɑmax]. When mayTerminate is set, c is accepted as soon
// as it satisfies the conditions. Every trial stays within (0, ɑmax].
//
// On return the gradient buffer of step holds ∇f at the returned step. A zero
// step is returned when no finite value could be found along the direction.
func Search(step *Step, lsr *Trials, c float64, mayTerminate bool, p *Params, alphamax float64, log Logger) (alpha, phi float64, err error) {

	if lsr.Len() != 1 || lsr.Alpha[0] != 0 {
		panic("trial log must hold only the start point")
	}

	ls := search{step: step, lsr: lsr, p: p, log: orQuiet(log)}
	ls.phi0, ls.dphi0 = lsr.Value[0], lsr.Slope[0]

	switch {
	case !vec.Finite(ls.phi0) || !vec.Finite(ls.dphi0):
		return 0, ls.phi0, fmt.Errorf("%w: phi0 = %g, dphi0 = %g", ErrNotDescent, ls.phi0, ls.dphi0)
	case ls.dphi0 >= 0:
		return 0, ls.phi0, fmt.Errorf("%w: dphi0 = %g", ErrNotDescent, ls.dphi0)
	case !(c > 0 && c <= alphamax) || math.IsInf(c, 0):
		return 0, ls.phi0, fmt.Errorf("%w: c = %g, alphamax = %g", ErrBadStep, c, alphamax)
	}

	ls.philim = ls.phi0 + p.Epsilon*math.Abs(ls.phi0)

	if ls.log.Enabled(ShowLineSearch) {
		ls.log.Printf("linesearch: c = %e, phi0 = %e, dphi0 = %e, mayterminate = %v\n", c, ls.phi0, ls.dphi0, mayTerminate)
	}

	// Evaluate at c, shrinking by ψ₃ until finite.
	phic, dphic := step.EvalGrad(c)
	for iterfinite := 1; !finite(phic, dphic) && iterfinite < p.IterFiniteMax; iterfinite++ {
		mayTerminate = false
		lsr.NumFailures++
		c *= p.Psi3
		phic, dphic = step.EvalGrad(c)
	}
	if !finite(phic, dphic) {
		lsr.NumFailures++
		if ls.log.Enabled(ShowLineSearch) {
			ls.log.Printf("linesearch: failed to achieve finite new evaluation point, using alpha = 0\n")
		}
		return ls.accept(0)
	}
	lsr.Push(c, phic, dphic)

	if mayTerminate && ls.wolfe(c, phic, dphic) {
		if ls.log.Enabled(ShowLineSearch) {
			ls.log.Printf("linesearch: accepted initial step %e\n", c)
		}
		return c, phic, nil
	}

	ia, ib, iter, done := ls.bracket(c, phic, dphic, alphamax)
	if done >= 0 {
		return ls.accept(done)
	}

	for ; iter < p.LineSearchMax; iter++ {
		a, b := lsr.Alpha[ia], lsr.Alpha[ib]
		if b-a <= vec.Ulp(b) {
			return ls.accept(ia)
		}

		wolfe, iA, iB, err := ls.secant2(ia, ib)
		switch {
		case err == errNonFinite:
			return ls.accept(iA)
		case err != nil:
			return 0, ls.phi0, err
		case wolfe:
			return ls.accept(iA)
		}

		A, B := lsr.Alpha[iA], lsr.Alpha[iB]
		if B-A < p.Gamma*(b-a) {
			if math.Nextafter(lsr.Value[ia], math.Inf(1)) >= lsr.Value[ib] &&
				math.Nextafter(lsr.Value[iA], math.Inf(1)) >= lsr.Value[iB] {
				if ls.log.Enabled(ShowLineSearch) {
					ls.log.Printf("linesearch: function is flat over [%e, %e]\n", A, B)
				}
				return ls.accept(iA)
			}
			ia, ib = iA, iB
			continue
		}

		// The secant step did not shrink the bracket enough.
		c = (A + B) / 2
		if ls.log.Enabled(ShowBisect) {
			ls.log.Printf("bisect: c = %e in [%e, %e]\n", c, A, B)
		}
		if c, phic, dphic, err = ls.evalToward(A, c); err != nil {
			return ls.accept(iA)
		}
		lsr.Push(c, phic, dphic)
		if ia, ib, err = ls.update(iA, iB, lsr.last()); err == errNonFinite {
			return ls.accept(ia)
		}
	}

	return 0, ls.phi0, fmt.Errorf("%w: %d trials", ErrLineSearchFailed, lsr.Len())
}

// bracket expands the step until [ɑ[ia], ɑ[ib]] brackets a point satisfying the
// Wolfe conditions (B0-B3). A non-negative done is the index to return at once.
func (ls *search) bracket(c, phic, dphic, alphamax float64) (ia, ib, iter, done int) {
	lsr, step, p := ls.lsr, ls.step, ls.p

	ia, ib, done = 0, 1, -1
	for iter = 1; iter < p.LineSearchMax; iter++ {
		last := lsr.last()
		if dphic >= 0 {
			// upslope: the latest acceptable value becomes the lower end.
			ib = last
			for i := ib - 1; i >= 0; i-- {
				if lsr.Value[i] <= ls.philim {
					ia = i
					break
				}
			}
			if ls.log.Enabled(ShowBracket) {
				ls.log.Printf("bracket: upslope [%e, %e]\n", lsr.Alpha[ia], lsr.Alpha[ib])
			}
			return ia, ib, iter + 1, -1
		}
		if lsr.Value[last] > ls.philim {
			// crested: descending slope above the threshold.
			if ls.log.Enabled(ShowBracket) {
				ls.log.Printf("bracket: crested [%e, %e]\n", lsr.Alpha[last-1], lsr.Alpha[last])
			}
			var err error
			if ia, ib, err = ls.bisect(last-1, last); err == errNonFinite {
				return ia, ib, iter + 1, ia
			}
			return ia, ib, iter + 1, -1
		}

		// still descending: expand.
		cold := c
		c = math.Min(c*p.Rho, alphamax)
		if c == cold {
			return ia, ib, iter, ls.edge(c)
		}
		if ls.log.Enabled(ShowBracket) {
			ls.log.Printf("bracket: expand %e -> %e\n", cold, c)
		}
		phic, dphic = step.EvalGrad(c)
		for iterfinite := 1; !finite(phic, dphic) && c > math.Nextafter(cold, math.Inf(1)) && iterfinite < p.IterFiniteMax; iterfinite++ {
			alphamax = c
			lsr.NumFailures++
			c = (cold + c) / 2
			phic, dphic = step.EvalGrad(c)
		}
		if !finite(phic, dphic) {
			lsr.NumFailures++
			return ia, ib, iter, ls.edge(c)
		}
		if dphic < 0 && c == alphamax {
			return ia, ib, iter, ls.edge(c)
		}
		lsr.Push(c, phic, dphic)
	}
	return ia, ib, iter, -1
}

// edge handles an expansion that reached the boundary c still descending or
// without a finite value. It walks back to the nearest trial before c and
// re-evaluates it. The boundary trial itself is used when only the start
// point precedes it.
func (ls *search) edge(c float64) int {
	lsr := ls.lsr
	i := lsr.last()
	for i > 0 && (lsr.Alpha[i] >= c || !finite(lsr.Value[i], lsr.Slope[i])) {
		i--
	}
	if i == 0 && lsr.Alpha[lsr.last()] == c {
		i = lsr.last()
	}
	if phi, dphi := ls.step.EvalGrad(lsr.Alpha[i]); finite(phi, dphi) {
		lsr.Value[i], lsr.Slope[i] = phi, dphi
	}
	if ls.log.Enabled(ShowBracket) {
		ls.log.Printf("bracket: edge of domain reached at %e, using alpha = %e\n", c, lsr.Alpha[i])
	}
	return i
}

// accept returns the trial at index i, re-evaluating it when the gradient
// buffer was overwritten by a later evaluation.
func (ls *search) accept(i int) (float64, float64, error) {
	alpha, phi := ls.lsr.Alpha[i], ls.lsr.Value[i]
	if !ls.step.GradAt(alpha) {
		phi, _ = ls.step.EvalGrad(alpha)
	}
	if ls.log.Enabled(ShowLineSearch) {
		ls.log.Printf("linesearch: alpha = %e, phi = %e, trials = %d\n", alpha, phi, ls.lsr.Len())
	}
	return alpha, phi, nil
}

// wolfe checks the standard Wolfe conditions
//
//	φ(c) - φ(0) ≤ δcφ′(0)    φ′(c) ≥ σφ′(0)
//
// or the approximate Wolfe conditions
//
//	(2δ - 1)φ′(0) ≥ φ′(c) ≥ σφ′(0)    φ(c) ≤ φ(0) + ε|φ(0)|
func (ls *search) wolfe(c, phic, dphic float64) bool {
	p := ls.p
	if p.Delta*ls.dphi0 >= (phic-ls.phi0)/c && dphic >= p.Sigma*ls.dphi0 {
		return true
	}
	return (2*p.Delta-1)*ls.dphi0 >= dphic && dphic >= p.Sigma*ls.dphi0 && phic <= ls.philim
}

func finite(phi, dphi float64) bool {
	return vec.Finite(phi) && vec.Finite(dphi)
}
