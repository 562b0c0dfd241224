// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linesearch

import (
	"errors"
	"math"
)

// Default line-search parameters (Hager & Zhang, 2006).
const (
	DefaultDelta   = 0.1  // sufficient decrease in the Wolfe conditions
	DefaultSigma   = 0.9  // curvature in the Wolfe conditions
	DefaultPsi0    = 0.01 // scale of the first trial step from |x|/|g|
	DefaultPsi1    = 0.2  // fraction of the previous step used as quadratic test point
	DefaultPsi2    = 2.0  // expansion of the previous step when the test point is uninformative
	DefaultPsi3    = 0.1  // shrink factor applied after a non-finite evaluation
	DefaultRho     = 5.0  // bracket expansion factor
	DefaultEpsilon = 1e-6 // relative slack of φ(0) accepted by the approximate Wolfe conditions
	DefaultGamma   = 0.66 // required width reduction of a secant² step

	DefaultLineSearchMax = 50
)

// DefaultIterFiniteMax is ⌈-log₂(𝚎𝚙𝚜𝚖𝚌𝚑)⌉, the number of ψ₃ shrinks
// needed to take any finite step below machine precision.
var DefaultIterFiniteMax = int(math.Ceil(-math.Log2(math.Nextafter(1, 2) - 1)))

// Params tunes the Hager-Zhang line search.
// Zero fields are replaced by their defaults.
type Params struct {
	Delta, Sigma float64
	Psi0, Psi1   float64
	Psi2, Psi3   float64
	Rho          float64
	Epsilon      float64
	Gamma        float64

	// LineSearchMax bounds the trials of the bracketing and secant phases.
	LineSearchMax int
	// IterFiniteMax bounds the consecutive ψ₃ shrinks after non-finite evaluations.
	IterFiniteMax int
}

// DefaultParams returns the parameters recommended by Hager & Zhang.
func DefaultParams() Params {
	return Params{
		Delta:         DefaultDelta,
		Sigma:         DefaultSigma,
		Psi0:          DefaultPsi0,
		Psi1:          DefaultPsi1,
		Psi2:          DefaultPsi2,
		Psi3:          DefaultPsi3,
		Rho:           DefaultRho,
		Epsilon:       DefaultEpsilon,
		Gamma:         DefaultGamma,
		LineSearchMax: DefaultLineSearchMax,
		IterFiniteMax: DefaultIterFiniteMax,
	}
}

// Fill replaces zero fields with defaults and validates the result.
func (p *Params) Fill() error {
	def := DefaultParams()
	fill := func(v *float64, d float64) {
		if *v == 0 {
			*v = d
		}
	}
	fill(&p.Delta, def.Delta)
	fill(&p.Sigma, def.Sigma)
	fill(&p.Psi0, def.Psi0)
	fill(&p.Psi1, def.Psi1)
	fill(&p.Psi2, def.Psi2)
	fill(&p.Psi3, def.Psi3)
	fill(&p.Rho, def.Rho)
	fill(&p.Epsilon, def.Epsilon)
	fill(&p.Gamma, def.Gamma)
	if p.LineSearchMax == 0 {
		p.LineSearchMax = def.LineSearchMax
	}
	if p.IterFiniteMax == 0 {
		p.IterFiniteMax = def.IterFiniteMax
	}
	return p.Check()
}

// Check validates the parameter ranges.
func (p *Params) Check() (err error) {
	switch {
	case !(p.Delta > 0 && p.Delta < 0.5):
		err = errors.New("delta must lie in (0, 0.5)")
	case !(p.Sigma >= p.Delta && p.Sigma < 1):
		err = errors.New("sigma must lie in [delta, 1)")
	case !(p.Psi0 > 0 && p.Psi0 < 1):
		err = errors.New("psi0 must lie in (0, 1)")
	case !(p.Psi1 > 0 && p.Psi1 < 1):
		err = errors.New("psi1 must lie in (0, 1)")
	case !(p.Psi2 > 1):
		err = errors.New("psi2 must greater than 1")
	case !(p.Psi3 > 0 && p.Psi3 < 1):
		err = errors.New("psi3 must lie in (0, 1)")
	case !(p.Rho > 1):
		err = errors.New("rho must greater than 1")
	case !(p.Epsilon >= 0):
		err = errors.New("epsilon must not less than 0")
	case !(p.Gamma > 0 && p.Gamma < 1):
		err = errors.New("gamma must lie in (0, 1)")
	case p.LineSearchMax <= 1:
		err = errors.New("line search max must greater than 1")
	case p.IterFiniteMax <= 0:
		err = errors.New("finite iteration max must greater than 0")
	}
	return
}
