// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cgdescent

import (
	"slices"

	"github.com/curioloop/cgdescent/internal/vec"
)

type traceMode int

const (
	traceOff traceMode = iota
	traceOn
	traceExtended
)

// Keys of State.Meta in extended traces.
const (
	MetaX        = "x"
	MetaG        = "g(x)"
	MetaStepSize = "Current step size"
)

// State is a snapshot of one iterate.
type State struct {
	Iter     int            // Iteration number, 0 for the initial point.
	Value    float64        // Reported function value.
	GradNorm float64        // ‖g‖∞
	Meta     map[string]any // Extended trace data.
}

// record appends the reported value of the current iterate and,
// if requested, its trace state.
func (d *iterDriver) record() {
	loc := d.location
	spec := &d.optimizer.iterSpec
	ctx := &d.workspace.iterCtx

	value := spec.report(loc.f)
	ctx.values = append(ctx.values, value)
	if spec.trace == traceOff {
		return
	}

	st := State{Iter: ctx.iter, Value: value, GradNorm: vec.MaxAbs(loc.g)}
	if spec.trace == traceExtended {
		st.Meta = map[string]any{
			MetaX:        slices.Clone(loc.x),
			MetaG:        slices.Clone(loc.g),
			MetaStepSize: ctx.alpha,
		}
	}
	ctx.trace = append(ctx.trace, st)
}
