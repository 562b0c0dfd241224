// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linesearch

import "errors"

var (
	// ErrNoFiniteTrial reports that shrinking the quadratic test step never produced a finite value.
	ErrNoFiniteTrial = errors.New("linesearch: failed to achieve finite test value")
	// ErrZeroQuadStep reports that the quadratic interpolation proposed a zero step.
	ErrZeroQuadStep = errors.New("linesearch: quadratic interpolation returned zero step")
	// ErrLineSearchFailed reports that the trial budget ran out before an acceptable step was found.
	ErrLineSearchFailed = errors.New("linesearch: failed to converge")
	// ErrNotDescent reports a bracket or start slope that is not a descent.
	ErrNotDescent = errors.New("linesearch: search direction is not a direction of descent")
	// ErrBadStep reports an initial step outside (0, ɑmax].
	ErrBadStep = errors.New("linesearch: initial step must lie in (0, alphamax]")
)
