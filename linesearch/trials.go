// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linesearch

// Trials records every (ɑ, φ(ɑ), φ′(ɑ)) evaluated along one search direction
// in evaluation order. Index 0 holds the start point (0, φ(0), φ′(0)).
// Brackets are pairs of indexes into this log.
type Trials struct {
	Alpha []float64
	Value []float64
	Slope []float64
	// NumFailures counts non-finite evaluations over the whole run.
	NumFailures int
}

// Push appends a trial.
func (t *Trials) Push(alpha, value, slope float64) {
	t.Alpha = append(t.Alpha, alpha)
	t.Value = append(t.Value, value)
	t.Slope = append(t.Slope, slope)
}

// Len returns the number of trials.
func (t *Trials) Len() int { return len(t.Alpha) }

// last returns the index of the latest trial.
func (t *Trials) last() int { return len(t.Alpha) - 1 }

// Clear empties the log and keeps NumFailures.
func (t *Trials) Clear() {
	t.Alpha = t.Alpha[:0]
	t.Value = t.Value[:0]
	t.Slope = t.Slope[:0]
}

// Reset clears the log and records the start point of a new direction.
func (t *Trials) Reset(phi0, dphi0 float64) {
	t.Clear()
	t.Push(0, phi0, dphi0)
}
