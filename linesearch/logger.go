// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linesearch

// Display selects diagnostic channels of the line search.
type Display uint

const (
	ShowIter Display = 1 << iota
	ShowLineSearch
	ShowBracket
	ShowSecant
	ShowUpdate
	ShowBisect
	ShowAlphaGuess

	ShowNone Display = 0
	ShowAll          = ShowIter | ShowLineSearch | ShowBracket | ShowSecant | ShowUpdate | ShowBisect | ShowAlphaGuess
)

// Logger receives line-search diagnostics. Enabled is consulted before
// any message is formatted.
type Logger interface {
	Enabled(ch Display) bool
	Printf(format string, a ...any)
}

type quiet struct{}

func (quiet) Enabled(Display) bool   { return false }
func (quiet) Printf(string, ...any) {}

func orQuiet(log Logger) Logger {
	if log == nil {
		return quiet{}
	}
	return log
}
