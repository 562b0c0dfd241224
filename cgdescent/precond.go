// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cgdescent

import (
	"errors"

	"github.com/curioloop/cgdescent/internal/vec"
	"gonum.org/v1/gonum/mat"
)

// Preconditioner scales the search direction by a symmetric positive definite operator P.
//   - Forward   : out = Pa
//   - ForwardDot: aᵀPb
//   - InverseDot: aᵀP⁻¹b
type Preconditioner interface {
	Forward(out, a []float64)
	ForwardDot(a, b []float64) float64
	InverseDot(a, b []float64) float64
}

// Identity is the unpreconditioned case P = I.
type Identity struct{}

func (Identity) Forward(out, a []float64) {
	if len(out) != len(a) {
		panic("bound check error")
	}
	copy(out, a)
}

func (Identity) ForwardDot(a, b []float64) float64 { return vec.Dot(a, b) }
func (Identity) InverseDot(a, b []float64) float64 { return vec.Dot(a, b) }

// Diagonal is P = diag(p) with positive entries.
// The Prepare hook may rewrite the entries between iterations.
type Diagonal []float64

func (p Diagonal) Forward(out, a []float64) {
	if len(out) != len(a) || len(a) != len(p) {
		panic("bound check error")
	}
	for i, v := range a {
		out[i] = p[i] * v
	}
}

func (p Diagonal) ForwardDot(a, b []float64) (s float64) {
	if len(a) != len(b) || len(a) != len(p) {
		panic("bound check error")
	}
	for i, v := range a {
		s += p[i] * v * b[i]
	}
	return
}

func (p Diagonal) InverseDot(a, b []float64) (s float64) {
	if len(a) != len(b) || len(a) != len(p) {
		panic("bound check error")
	}
	for i, v := range a {
		s += v * b[i] / p[i]
	}
	return
}

func (p Diagonal) check() error {
	for _, v := range p {
		if !(v > 0) {
			return errors.New("diagonal preconditioner must be positive")
		}
	}
	return nil
}

// Dense is a full symmetric positive definite P.
// The inverse form is solved through the Cholesky factor of P.
// Concurrent fits may share a Dense as long as no Prepare hook calls Update.
type Dense struct {
	p    *mat.SymDense
	chol mat.Cholesky
}

// NewDense factorizes p. It fails when p is not positive definite.
func NewDense(p *mat.SymDense) (*Dense, error) {
	d := new(Dense)
	if err := d.Update(p); err != nil {
		return nil, err
	}
	return d, nil
}

// Update replaces P and refactorizes it. Prepare hooks call it to
// follow curvature estimates along the iterates.
func (d *Dense) Update(p *mat.SymDense) error {
	if ok := d.chol.Factorize(p); !ok {
		return ErrNotPosDef
	}
	d.p = p
	return nil
}

// Dim returns the order of P.
func (d *Dense) Dim() int { return d.p.SymmetricDim() }

func (d *Dense) Forward(out, a []float64) {
	if len(out) != len(a) || len(a) != d.Dim() {
		panic("bound check error")
	}
	o := mat.NewVecDense(len(out), out)
	o.MulVec(d.p, mat.NewVecDense(len(a), a))
}

func (d *Dense) ForwardDot(a, b []float64) float64 {
	if len(a) != len(b) || len(a) != d.Dim() {
		panic("bound check error")
	}
	return mat.Inner(mat.NewVecDense(len(a), a), d.p, mat.NewVecDense(len(b), b))
}

func (d *Dense) InverseDot(a, b []float64) float64 {
	if len(a) != len(b) || len(a) != d.Dim() {
		panic("bound check error")
	}
	z := mat.NewVecDense(len(b), nil)
	if err := d.chol.SolveVecTo(z, mat.NewVecDense(len(b), b)); err != nil {
		panic(err)
	}
	return vec.Dot(a, z.RawVector().Data)
}
