// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cgdescent

import (
	"fmt"
	"math"

	"github.com/curioloop/cgdescent/internal/vec"
)

// searchDirection updates dₖ with the Hager-Zhang (2012) formula:
//
//	yₖ = gₖ₊₁ - gₖ
//	βₖᴺ = (yₖᵀPgₖ₊₁ - (yₖᵀPyₖ)(dₖᵀgₖ₊₁)/(yₖᵀdₖ)) / (yₖᵀdₖ)
//	ηₖ = η(dₖᵀgₖ)/(dₖᵀP⁻¹dₖ)
//	dₖ₊₁ = -Pgₖ₊₁ + 𝚖𝚊𝚡(βₖᴺ, ηₖ)dₖ
//
// The first direction is -Pg₀. A direction with gᵀd ≥ 0 falls back to -g.
func (d *iterDriver) searchDirection() error {

	loc := d.location
	spec := &d.optimizer.iterSpec
	ctx := &d.workspace.iterCtx

	P := spec.precond
	if spec.prepare != nil {
		spec.prepare(P, loc.x)
	}

	g, dk, pg := loc.g, ctx.d, ctx.pg
	P.Forward(pg, g)

	if ctx.iter == 0 {
		copy(dk, pg)
		vec.Negate(dk)
	} else {
		dPd := P.InverseDot(dk, dk)
		etak := spec.eta * vec.Dot(dk, ctx.gOld) / dPd

		y := ctx.y
		if len(y) != len(g) || len(g) != len(ctx.gOld) {
			panic("bound check error")
		}
		for i, gi := range g {
			y[i] = gi - ctx.gOld[i]
		}
		yd := vec.Dot(y, dk)
		betak := (vec.Dot(y, pg) - P.ForwardDot(y, y)*vec.Dot(dk, g)/yd) / yd
		beta := math.Max(betak, etak)
		vec.Combine(dk, beta, pg)

		if log := spec.logger; log.enable(LogTrace) {
			log.log("beta = %12.5e    betak = %12.5e    etak = %12.5e\n", beta, betak, etak)
		}
	}

	ctx.dphi0 = vec.Dot(g, dk)
	if !(ctx.dphi0 < zero) {
		if log := spec.logger; log.enable(LogLast) {
			log.log("Ascent direction gᵀd = %e; restarting along -g\n", ctx.dphi0)
		}
		copy(dk, g)
		vec.Negate(dk)
		ctx.dphi0 = vec.Dot(g, dk)
		if !(ctx.dphi0 < zero) {
			return fmt.Errorf("%w: gᵀd = %g", ErrAscentDirection, ctx.dphi0)
		}
	}
	return nil
}
