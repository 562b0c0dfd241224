// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package problems provides smooth unconstrained test functions with known minima.
package problems

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Problem is a test function with its standard starting point.
type Problem struct {
	Name string
	N    int
	X0   []float64
	Eval func(x, g []float64) float64
	// AlphaMax bounds the step along d from x, nil when unconstrained.
	AlphaMax func(x, d []float64) float64
	// Min is the optimal value.
	Min float64
	// XMin is a minimizer, nil when not unique.
	XMin []float64
}

// Names lists the built-in problems.
func Names() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup builds the named problem of dimension n.
func Lookup(name string, n int) (Problem, error) {
	build, ok := builders[name]
	if !ok {
		return Problem{}, fmt.Errorf("unknown problem %q", name)
	}
	return build(n)
}

var builders = map[string]func(n int) (Problem, error){
	"rosenbrock": Rosenbrock,
	"quadratic": func(n int) (Problem, error) {
		if n <= 0 {
			return Problem{}, fmt.Errorf("quadratic needs n > 0, got %d", n)
		}
		a := mat.NewSymDense(n, nil)
		for i := 0; i < n; i++ {
			a.SetSym(i, i, float64(i+1))
			if i > 0 {
				a.SetSym(i, i-1, 0.5)
			}
		}
		return Quadratic(a, slices.Repeat([]float64{1}, n))
	},
	"powell":  Powell,
	"trid":    Trid,
	"barrier": Barrier,
}

// Rosenbrock is the extended Rosenbrock function
//
//	f(x) = ∑ 100(x₂ᵢ - x₂ᵢ₋₁²)² + (1 - x₂ᵢ₋₁)²
//
// with minimum 0 at x = 1, started from (-1.2, 1, ...).
func Rosenbrock(n int) (Problem, error) {
	if n <= 0 || n%2 != 0 {
		return Problem{}, fmt.Errorf("rosenbrock needs an even n > 0, got %d", n)
	}
	x0 := make([]float64, n)
	for i := 0; i < n; i += 2 {
		x0[i], x0[i+1] = -1.2, 1
	}
	return Problem{
		Name: "rosenbrock", N: n, X0: x0,
		Eval: func(x, g []float64) (f float64) {
			for i := 0; i < len(x); i += 2 {
				t1 := x[i+1] - x[i]*x[i]
				t2 := 1 - x[i]
				f += 100*t1*t1 + t2*t2
				if g != nil {
					g[i] = -400*x[i]*t1 - 2*t2
					g[i+1] = 200 * t1
				}
			}
			return
		},
		XMin: slices.Repeat([]float64{1}, n),
	}, nil
}

// Quadratic is f(x) = (x - c)ᵀA(x - c) for a symmetric positive definite A,
// started from the origin.
func Quadratic(a *mat.SymDense, c []float64) (Problem, error) {
	n := a.SymmetricDim()
	if len(c) != n {
		return Problem{}, fmt.Errorf("quadratic center has %d entries, want %d", len(c), n)
	}
	var chol mat.Cholesky
	if !chol.Factorize(a) {
		return Problem{}, fmt.Errorf("quadratic matrix is not positive definite")
	}
	r := mat.NewVecDense(n, nil)
	ar := mat.NewVecDense(n, nil)
	return Problem{
		Name: "quadratic", N: n, X0: make([]float64, n),
		Eval: func(x, g []float64) float64 {
			for i, xi := range x {
				r.SetVec(i, xi-c[i])
			}
			ar.MulVec(a, r)
			if g != nil {
				for i := range g {
					g[i] = 2 * ar.AtVec(i)
				}
			}
			return mat.Dot(r, ar)
		},
		XMin: slices.Clone(c),
	}, nil
}

// Powell is the extended Powell singular function
//
//	f(x) = ∑ (x₁ + 10x₂)² + 5(x₃ - x₄)² + (x₂ - 2x₃)⁴ + 10(x₁ - x₄)⁴
//
// over consecutive blocks of four, with minimum 0 at the origin.
func Powell(n int) (Problem, error) {
	if n <= 0 || n%4 != 0 {
		return Problem{}, fmt.Errorf("powell needs n > 0 divisible by 4, got %d", n)
	}
	x0 := make([]float64, n)
	for i := 0; i < n; i += 4 {
		x0[i], x0[i+1], x0[i+2], x0[i+3] = 3, -1, 0, 1
	}
	return Problem{
		Name: "powell", N: n, X0: x0,
		Eval: func(x, g []float64) (f float64) {
			for i := 0; i < len(x); i += 4 {
				t1 := x[i] + 10*x[i+1]
				t2 := x[i+2] - x[i+3]
				t3 := x[i+1] - 2*x[i+2]
				t4 := x[i] - x[i+3]
				f += t1*t1 + 5*t2*t2 + t3*t3*t3*t3 + 10*t4*t4*t4*t4
				if g != nil {
					g[i] = 2*t1 + 40*t4*t4*t4
					g[i+1] = 20*t1 + 4*t3*t3*t3
					g[i+2] = 10*t2 - 8*t3*t3*t3
					g[i+3] = -10*t2 - 40*t4*t4*t4
				}
			}
			return
		},
		XMin: make([]float64, n),
	}, nil
}

// Trid is f(x) = ∑(xᵢ - 1)² - ∑xᵢxᵢ₋₁ with minimum -n(n+4)(n-1)/6
// at xᵢ = i(n + 1 - i).
func Trid(n int) (Problem, error) {
	if n <= 1 {
		return Problem{}, fmt.Errorf("trid needs n > 1, got %d", n)
	}
	xmin := make([]float64, n)
	for i := range xmin {
		xmin[i] = float64((i + 1) * (n - i))
	}
	fn := float64(n)
	return Problem{
		Name: "trid", N: n, X0: make([]float64, n),
		Eval: func(x, g []float64) (f float64) {
			for i, xi := range x {
				f += (xi - 1) * (xi - 1)
				if i > 0 {
					f -= xi * x[i-1]
				}
				if g != nil {
					g[i] = 2 * (xi - 1)
					if i > 0 {
						g[i] -= x[i-1]
					}
					if i+1 < len(x) {
						g[i] -= x[i+1]
					}
				}
			}
			return
		},
		Min:  -fn * (fn + 4) * (fn - 1) / 6,
		XMin: xmin,
	}, nil
}

// Barrier is f(x) = ∑ xᵢ - log xᵢ over x > 0, with minimum n at x = 1.
// The step bound keeps every trial inside the domain.
func Barrier(n int) (Problem, error) {
	if n <= 0 {
		return Problem{}, fmt.Errorf("barrier needs n > 0, got %d", n)
	}
	x0 := make([]float64, n)
	for i := range x0 {
		x0[i] = 0.1 + 5*float64(i)/float64(n)
	}
	return Problem{
		Name: "barrier", N: n, X0: x0,
		Eval: func(x, g []float64) (f float64) {
			for i, xi := range x {
				if xi <= 0 {
					return math.Inf(1)
				}
				f += xi - math.Log(xi)
				if g != nil {
					g[i] = 1 - 1/xi
				}
			}
			return
		},
		AlphaMax: func(x, d []float64) float64 {
			alpha := math.Inf(1)
			for i, di := range d {
				if di < 0 {
					alpha = math.Min(alpha, -0.99*x[i]/di)
				}
			}
			return alpha
		},
		Min:  float64(n),
		XMin: slices.Repeat([]float64{1}, n),
	}, nil
}
