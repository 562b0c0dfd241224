// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cgdescent

import "errors"

var (
	// ErrNonFiniteStart reports a non-finite value or gradient at the initial point.
	ErrNonFiniteStart = errors.New("cgdescent: non-finite objective at initial point")
	// ErrAscentDirection reports that even the steepest descent direction has g·d ≥ 0.
	ErrAscentDirection = errors.New("cgdescent: search direction is not a direction of descent")
	// ErrEvalPanic reports a panic raised by the objective.
	ErrEvalPanic = errors.New("cgdescent: objective panicked")
	// ErrNotPosDef reports a preconditioner matrix without a Cholesky factor.
	ErrNotPosDef = errors.New("cgdescent: preconditioner is not positive definite")
)
