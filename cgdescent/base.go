// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cgdescent

import (
	"github.com/curioloop/cgdescent/linesearch"
)

const zero = 0.0

// Default driver settings.
const (
	DefaultEta         = 0.4  // lower bound factor of βₖ
	DefaultTolerance   = 1e-8 // relative decrease tolerance
	DefaultMaxFailures = 100  // non-finite evaluations tolerated per run
)

type iterSpec struct {
	n       int
	epsilon float64
	eta     float64
	alpha0  float64
	stop    Termination
	eval    Evaluation
	bound   func(x, d []float64) float64
	precond Preconditioner
	prepare func(p Preconditioner, x []float64)
	report  func(f float64) float64
	search  linesearch.Params
	logger  Logger
	trace   traceMode
}

type iterLoc struct {
	f float64
	x []float64 // n
	g []float64 // n
}

type iterCtx struct {
	// iteration counter.
	iter int
	// total number of evaluations.
	totalEval int
	// evaluations spent by the latest line search.
	numBack int
	// previous function value.
	fOld float64
	// latest accepted step and its upper bound.
	alpha, alphaMax float64
	// directional derivative gᵀd at the current point.
	dphi0 float64
	// convergence flags.
	conv Converged

	gOld []float64 // n
	d    []float64 // n
	pg   []float64 // n
	y    []float64 // n
	xTmp []float64 // n

	lsr  linesearch.Trials
	step linesearch.Step

	values []float64
	trace  []State
}

func (c *iterCtx) init(n int) {
	c.gOld = make([]float64, n)
	c.d = make([]float64, n)
	c.pg = make([]float64, n)
	c.y = make([]float64, n)
	c.xTmp = make([]float64, n)
}

func (c *iterCtx) clear() {
	c.iter, c.totalEval, c.numBack = 0, 0, 0
	c.fOld, c.alpha, c.alphaMax, c.dphi0 = zero, zero, zero, zero
	c.conv = Converged{}
	c.lsr.Clear()
	c.lsr.NumFailures = 0
	c.values = nil
	c.trace = nil
}
