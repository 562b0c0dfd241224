// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cgdescent

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestPreconditioners(t *testing.T) {
	a := []float64{1, -2, 3}
	b := []float64{0.5, 4, -1}
	out := make([]float64, 3)

	var id Identity
	id.Forward(out, a)
	require.Equal(t, a, out)
	require.Equal(t, -10.5, id.ForwardDot(a, b))
	require.Equal(t, -10.5, id.InverseDot(a, b))

	diag := Diagonal{2, 4, 0.5}
	diag.Forward(out, a)
	require.Equal(t, []float64{2, -8, 1.5}, out)
	require.Equal(t, 1.0-32-1.5, diag.ForwardDot(a, b))
	require.Equal(t, 0.25-2-6, diag.InverseDot(a, b))
	require.Panics(t, func() { diag.Forward(make([]float64, 2), a[:2]) })

	p := mat.NewSymDense(3, []float64{
		4, 1, 0,
		1, 3, 1,
		0, 1, 2,
	})
	dense, err := NewDense(p)
	require.NoError(t, err)
	require.Equal(t, 3, dense.Dim())

	dense.Forward(out, a)
	require.Equal(t, []float64{2, -2, 4}, out)
	require.InDelta(t, vecDot(b, out), dense.ForwardDot(b, a), 1e-12)

	// aᵀP⁻¹(Pb) = aᵀb
	pb := make([]float64, 3)
	dense.Forward(pb, b)
	require.InDelta(t, -10.5, dense.InverseDot(a, pb), 1e-12)

	_, err = NewDense(mat.NewSymDense(2, []float64{1, 2, 2, 1}))
	require.True(t, errors.Is(err, ErrNotPosDef))
}

func TestDiagonalPreconditioning(t *testing.T) {
	const n = 6
	scale := []float64{1, 10, 100, 1e3, 1e4, 1e5}

	// f(x) = ∑ sᵢ(xᵢ - 1)²
	eval := func(x, g []float64) (f float64) {
		for i, xi := range x {
			f += scale[i] * (xi - 1) * (xi - 1)
			if g != nil {
				g[i] = 2 * scale[i] * (xi - 1)
			}
		}
		return
	}

	inv := make(Diagonal, n)
	for i, s := range scale {
		inv[i] = 1 / (2 * s)
	}

	prepared := 0
	r, err := fit(t, Problem{
		N: n, Eval: eval, Precond: inv,
		Prepare: func(p Preconditioner, x []float64) {
			prepared++
			require.Len(t, p.(Diagonal), n)
		},
	}, make([]float64, n))
	require.NoError(t, err)

	ones := []float64{1, 1, 1, 1, 1, 1}
	switch {
	case !r.OK:
		t.Fatal("TestDiagonalPreconditioning: Not Converge")
	case !almostEqual(r.X, ones, 1e-8):
		t.Fatal("TestDiagonalPreconditioning: Wrong Solution")
	case r.NumIter > 2:
		t.Fatal("TestDiagonalPreconditioning: Too Many Iterations")
	}
	require.Equal(t, r.NumIter, prepared)

	plain, err := fit(t, Problem{N: n, Eval: eval}, make([]float64, n))
	require.NoError(t, err)
	require.Greater(t, plain.NumIter, r.NumIter)
}

func TestDensePreconditioning(t *testing.T) {
	a := mat.NewSymDense(3, []float64{
		10, 2, 0,
		2, 5, 1,
		0, 1, 0.5,
	})
	c := []float64{1, -1, 2}

	// f(x) = ½(x - c)ᵀA(x - c), so P = A⁻¹ is exact.
	r := mat.NewVecDense(3, nil)
	ar := mat.NewVecDense(3, nil)
	eval := func(x, g []float64) float64 {
		for i := range x {
			r.SetVec(i, x[i]-c[i])
		}
		ar.MulVec(a, r)
		if g != nil {
			copy(g, ar.RawVector().Data)
		}
		return 0.5 * mat.Dot(r, ar)
	}

	var chol mat.Cholesky
	require.True(t, chol.Factorize(a))
	var inv mat.SymDense
	require.NoError(t, chol.InverseTo(&inv))
	dense, err := NewDense(&inv)
	require.NoError(t, err)

	res, err := fit(t, Problem{N: 3, Eval: eval, Precond: dense}, make([]float64, 3))
	require.NoError(t, err)
	require.True(t, res.OK)
	require.True(t, almostEqual(res.X, c, 1e-8))
	require.LessOrEqual(t, res.NumIter, 2)
}

func TestDenseSharedOptimizer(t *testing.T) {
	a := mat.NewSymDense(4, []float64{
		4, 1, 0, 0,
		1, 3, 1, 0,
		0, 1, 2, 0.5,
		0, 0, 0.5, 1,
	})
	c := []float64{1, 2, -1, 0.5}

	// the objective keeps no shared scratch so fits may run concurrently.
	eval := func(x, g []float64) float64 {
		r := mat.NewVecDense(4, nil)
		for i := range x {
			r.SetVec(i, x[i]-c[i])
		}
		var ar mat.VecDense
		ar.MulVec(a, r)
		if g != nil {
			copy(g, ar.RawVector().Data)
		}
		return 0.5 * mat.Dot(r, &ar)
	}

	dense, err := NewDense(mat.NewSymDense(4, []float64{
		0.3, 0, 0, 0,
		0, 0.4, 0, 0,
		0, 0, 0.5, 0,
		0, 0, 0, 1,
	}))
	require.NoError(t, err)
	o, err := (&Problem{N: 4, Eval: eval, Precond: dense}).New(&Logger{Level: LogNoop})
	require.NoError(t, err)

	const workers = 8
	results := make([]*Result, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = o.Fit(make([]float64, 4), o.Init())
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		require.True(t, results[i].OK)
		require.True(t, almostEqual(results[i].X, c, 1e-6))
		require.Equal(t, results[0].X, results[i].X)
		require.Equal(t, results[0].NumEval, results[i].NumEval)
	}
}

func vecDot(a, b []float64) (s float64) {
	for i := range a {
		s += a[i] * b[i]
	}
	return
}
