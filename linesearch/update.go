// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linesearch

import (
	"errors"
	"fmt"
	"math"

	"github.com/curioloop/cgdescent/internal/vec"
)

// errNonFinite stops a refinement that found no finite value between the lower
// end of the bracket and its trial point. The search then falls back to the lower end.
var errNonFinite = errors.New("linesearch: non-finite value inside bracket")

// secant returns the zero of the line through (a, φ′(a)) and (b, φ′(b)).
func secant(a, b, dphia, dphib float64) float64 {
	return (a*dphib - b*dphia) / (dphib - dphia)
}

// secant2 performs the double secant step S1-S4 on the bracket (ia, ib).
// When wolfe is set iA is the accepted trial.
func (ls *search) secant2(ia, ib int) (wolfe bool, iA, iB int, err error) {
	lsr := ls.lsr
	a, b := lsr.Alpha[ia], lsr.Alpha[ib]
	dphia, dphib := lsr.Slope[ia], lsr.Slope[ib]
	if !(dphia < 0 && dphib >= 0) {
		err = fmt.Errorf("%w: bracket slopes %g, %g", ErrNotDescent, dphia, dphib)
		return
	}

	c := secant(a, b, dphia, dphib)
	if !(c >= a && c <= b) {
		c = (a + b) / 2
	}
	if ls.log.Enabled(ShowSecant) {
		ls.log.Printf("secant2: a = %e, b = %e, c = %e\n", a, b, c)
	}
	c, phic, dphic, err := ls.evalToward(a, c)
	if err != nil {
		return false, ia, ib, err
	}
	lsr.Push(c, phic, dphic)
	ic := lsr.last()
	if ls.wolfe(c, phic, dphic) {
		if ls.log.Enabled(ShowSecant) {
			ls.log.Printf("secant2: first c satisfied Wolfe conditions\n")
		}
		return true, ic, ic, nil
	}

	if iA, iB, err = ls.update(ia, ib, ic); err != nil {
		return
	}
	A, B := lsr.Alpha[iA], lsr.Alpha[iB]

	// second secant on the side that moved.
	c = math.NaN()
	switch ic {
	case iB:
		c = secant(b, B, dphib, lsr.Slope[iB])
	case iA:
		c = secant(a, A, dphia, lsr.Slope[iA])
	}
	if !(A < c && c < B) {
		return
	}
	if ls.log.Enabled(ShowSecant) {
		ls.log.Printf("secant2: second c = %e in [%e, %e]\n", c, A, B)
	}
	if c, phic, dphic, err = ls.evalToward(A, c); err != nil {
		return false, iA, iB, err
	}
	lsr.Push(c, phic, dphic)
	ic = lsr.last()
	if ls.wolfe(c, phic, dphic) {
		if ls.log.Enabled(ShowSecant) {
			ls.log.Printf("secant2: second c satisfied Wolfe conditions\n")
		}
		return true, ic, ic, nil
	}
	iA, iB, err = ls.update(iA, iB, ic)
	return
}

// update narrows the bracket (ia, ib) with the trial ic (U0-U3).
// A trial outside the open bracket leaves it unchanged.
func (ls *search) update(ia, ib, ic int) (int, int, error) {
	lsr := ls.lsr
	a, b, c := lsr.Alpha[ia], lsr.Alpha[ib], lsr.Alpha[ic]
	if ls.log.Enabled(ShowUpdate) {
		ls.log.Printf("update: a = %e, b = %e, c = %e, phic = %e, dphic = %e\n", a, b, c, lsr.Value[ic], lsr.Slope[ic])
	}
	switch {
	case c <= a || c >= b:
		return ia, ib, nil
	case lsr.Slope[ic] >= 0:
		return ia, ic, nil
	case lsr.Value[ic] <= ls.philim:
		return ic, ib, nil
	default:
		return ls.bisect(ia, ic)
	}
}

// bisect halves a crested bracket (ia, ib) until its upper end slopes upward
// or its width falls below the spacing of floats at ɑ[ib] (U3).
func (ls *search) bisect(ia, ib int) (int, int, error) {
	lsr := ls.lsr
	a, b := lsr.Alpha[ia], lsr.Alpha[ib]
	for b-a > vec.Ulp(b) {
		d, phid, dphid, err := ls.evalToward(a, (a+b)/2)
		if ls.log.Enabled(ShowBisect) {
			ls.log.Printf("bisect: a = %e, b = %e, d = %e, phid = %e, dphid = %e\n", a, b, d, phid, dphid)
		}
		if err != nil {
			return ia, ib, err
		}
		lsr.Push(d, phid, dphid)
		id := lsr.last()
		if dphid >= 0 {
			return ia, id, nil
		}
		if phid <= ls.philim {
			a, ia = d, id
		} else {
			b, ib = d, id
		}
	}
	return ia, ib, nil
}

// evalToward evaluates φ at c inside a bracket with lower end a. A non-finite
// value is retried at the midpoint toward a, IterFiniteMax attempts in all.
func (ls *search) evalToward(a, c float64) (float64, float64, float64, error) {
	lsr, step := ls.lsr, ls.step
	phic, dphic := step.EvalGrad(c)
	for iter := 1; !finite(phic, dphic) && iter < ls.p.IterFiniteMax; iter++ {
		lsr.NumFailures++
		if c = (a + c) / 2; !(c > a) {
			return c, phic, dphic, errNonFinite
		}
		if ls.log.Enabled(ShowBisect) {
			ls.log.Printf("bisect: non-finite value, retrying at %e\n", c)
		}
		phic, dphic = step.EvalGrad(c)
	}
	if !finite(phic, dphic) {
		lsr.NumFailures++
		return c, phic, dphic, errNonFinite
	}
	return c, phic, dphic, nil
}
