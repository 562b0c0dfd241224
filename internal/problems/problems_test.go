// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package problems

import (
	"math"
	"testing"

	"github.com/curioloop/cgdescent/numdiff"
	"github.com/stretchr/testify/require"
)

func TestGradients(t *testing.T) {
	for _, name := range Names() {
		p, err := Lookup(name, 8)
		require.NoError(t, err, name)
		require.Equal(t, 8, p.N)

		x := make([]float64, p.N)
		for i := range x {
			x[i] = p.X0[i] + 0.1*float64(i+1)
		}

		g := make([]float64, p.N)
		f := p.Eval(x, g)
		require.Equal(t, f, p.Eval(x, nil), name)

		gs := numdiff.Gradient{N: p.N, Method: numdiff.Central, Object: func(x []float64) float64 { return p.Eval(x, nil) }}
		want := make([]float64, p.N)
		_, err = gs.Diff(x, want)
		require.NoError(t, err)
		for i := range g {
			require.InDelta(t, want[i], g[i], 1e-5*math.Max(1, math.Abs(want[i])), "%s: g[%d]", name, i)
		}
	}
}

func TestMinimum(t *testing.T) {
	for _, name := range Names() {
		p, err := Lookup(name, 4)
		require.NoError(t, err, name)
		if p.XMin == nil {
			continue
		}
		g := make([]float64, p.N)
		require.InDelta(t, p.Min, p.Eval(p.XMin, g), 1e-12, name)
		for i := range g {
			require.InDelta(t, 0, g[i], 1e-12, "%s: g[%d]", name, i)
		}
	}
}

func TestLookup(t *testing.T) {
	require.Equal(t, []string{"barrier", "powell", "quadratic", "rosenbrock", "trid"}, Names())

	_, err := Lookup("himmelblau", 2)
	require.Error(t, err)
	_, err = Lookup("rosenbrock", 3)
	require.Error(t, err)
	_, err = Lookup("powell", 6)
	require.Error(t, err)
	_, err = Lookup("trid", 1)
	require.Error(t, err)
}

func TestBarrierBound(t *testing.T) {
	p, err := Barrier(3)
	require.NoError(t, err)
	x := []float64{0.5, 1, 2}
	d := []float64{-1, 1, -4}
	alpha := p.AlphaMax(x, d)
	require.InDelta(t, 0.99*0.5, alpha, 1e-15)
	require.True(t, math.IsInf(p.Eval([]float64{0, 1, 1}, nil), 1))
	require.True(t, math.IsInf(p.AlphaMax(x, []float64{1, 1, 1}), 1))
}
