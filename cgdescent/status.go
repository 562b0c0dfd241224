// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cgdescent

// Status is the final task of an optimization.
type Status int

const (
	iterLoop Status = 0
	iterConv Status = 1 << (4 + iota)
	iterStop
	iterHalt
)

const (
	// ConvFunction the step predicted decrease or |f| fell below tolerance.
	ConvFunction = iterConv | (1 + iota)
	// ConvGradient the gradient vanished.
	ConvGradient
	// ConvLocation an accepted step left x unchanged.
	ConvLocation
)

const (
	// OverIterLimit the number of iterations reached the limit.
	OverIterLimit = iterStop | (1 + iota)
	// OverEvalLimit the number of evaluations reached the limit.
	OverEvalLimit
	// OverFailLimit the number of non-finite evaluations reached the limit.
	OverFailLimit
	// StopEdgeOfDomain the step bound along the search direction is not positive.
	StopEdgeOfDomain
	// StopNoProgress the line search found no finite point along the direction.
	StopNoProgress
)

const (
	// HaltEvalPanic the objective panicked.
	HaltEvalPanic = iterHalt | (1 + iota)
	// StopAbnormal a numerical failure aborted the iteration.
	StopAbnormal
)

// Converged reports whether the status is one of the convergence tasks.
func (s Status) Converged() bool { return s&iterConv > 0 }

func (s Status) String() (msg string) {
	switch s {
	case iterLoop:
		msg = "RUNNING"
	case ConvFunction:
		msg = "CONVERGENCE: REL_REDUCTION_OF_F_<=_TOL"
	case ConvGradient:
		msg = "CONVERGENCE: GRADIENT_VANISHED"
	case ConvLocation:
		msg = "CONVERGENCE: STEP_DID_NOT_CHANGE_X"
	case OverIterLimit:
		msg = "STOP: TOTAL NO. of ITERATIONS REACHED LIMIT"
	case OverEvalLimit:
		msg = "STOP: TOTAL NO. of f AND g EVALUATIONS EXCEEDS LIMIT"
	case OverFailLimit:
		msg = "STOP: TOTAL NO. of NON-FINITE EVALUATIONS EXCEEDS LIMIT"
	case StopEdgeOfDomain:
		msg = "STOP: EDGE OF DOMAIN REACHED"
	case StopNoProgress:
		msg = "STOP: NO FINITE POINT ALONG SEARCH DIRECTION"
	case HaltEvalPanic:
		msg = "STOP: CALLBACK REQUESTED HALT"
	case StopAbnormal:
		msg = "ABNORMAL_TERMINATION_IN_LNSRCH"
	default:
		msg = "UNKNOWN TASK"
	}
	return
}
