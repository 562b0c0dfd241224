// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrimitives(t *testing.T) {
	a := []float64{1, -2, 3}
	b := []float64{4, 5, -6}

	require.Equal(t, 4.0-10-18, Dot(a, b))
	require.Equal(t, 3.0, MaxAbs(a))
	require.Equal(t, 0.0, MaxAbs(nil))
	require.InDelta(t, math.Sqrt(14), Norm(a), 1e-15)
	require.Equal(t, 4.0+10+18, SumAbsProd(a, b))

	d := []float64{1, 2, 3}
	Negate(d)
	require.Equal(t, []float64{-1, -2, -3}, d)

	// d = βd - pg
	Combine(d, 2, []float64{1, 1, 1})
	require.Equal(t, []float64{-3, -5, -7}, d)

	x := make([]float64, 3)
	Step(x, a, 0.5, b)
	require.Equal(t, []float64{3, 0.5, 0}, x)
}

func TestLengthMismatch(t *testing.T) {
	require.Panics(t, func() { Dot([]float64{1}, []float64{1, 2}) })
	require.Panics(t, func() { Combine([]float64{1}, 1, []float64{1, 2}) })
	require.Panics(t, func() { SumAbsProd([]float64{1, 2}, []float64{1}) })
}

func TestFinite(t *testing.T) {
	require.True(t, AllFinite([]float64{0, 1, -1e300}))
	require.False(t, AllFinite([]float64{0, math.NaN()}))
	require.False(t, AllFinite([]float64{math.Inf(-1)}))
	require.True(t, Finite(0))
	require.False(t, Finite(math.Inf(1)))

	require.Equal(t, math.Nextafter(1, 2)-1, Ulp(1))
	require.Equal(t, Ulp(-4), Ulp(4))
	require.Greater(t, Ulp(0), 0.0)
	require.True(t, math.IsNaN(Ulp(math.Inf(1))))
}
