// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vec holds the flat-buffer primitives shared by the line search and
// the conjugate gradient driver. Every binary operation requires operands of
// identical length; a mismatch is a programming error and panics.
package vec

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Dot returns aᵀb.
func Dot(a, b []float64) float64 {
	return floats.Dot(a, b)
}

// Negate sets d = -d.
func Negate(d []float64) {
	floats.Scale(-1, d)
}

// Combine sets d = βd - pg.
func Combine(d []float64, beta float64, pg []float64) {
	if len(d) != len(pg) {
		panic("bound check error")
	}
	floats.Scale(beta, d)
	floats.Sub(d, pg)
}

// Step sets dst = x + ɑd.
func Step(dst, x []float64, alpha float64, d []float64) {
	floats.AddScaledTo(dst, x, alpha, d)
}

// MaxAbs returns ‖ a ‖∞.
func MaxAbs(a []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	return floats.Norm(a, math.Inf(1))
}

// Norm returns ‖ a ‖₂.
func Norm(a []float64) float64 {
	return floats.Norm(a, 2)
}

// SumAbsProd returns ∑|gᵢdᵢ|.
func SumAbsProd(g, d []float64) (sum float64) {
	if len(g) != len(d) {
		panic("bound check error")
	}
	d = d[:len(g)]
	for i, v := range g {
		sum += math.Abs(v * d[i])
	}
	return
}

// AllFinite reports whether no element of a is NaN or ±Inf.
func AllFinite(a []float64) bool {
	for _, v := range a {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Finite reports whether v is neither NaN nor ±Inf.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Ulp returns the spacing between |x| and the next larger float64.
func Ulp(x float64) float64 {
	x = math.Abs(x)
	if math.IsInf(x, 0) || math.IsNaN(x) {
		return math.NaN()
	}
	return math.Nextafter(x, math.Inf(1)) - x
}
