// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cgdescent

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"

	"github.com/curioloop/cgdescent/linesearch"
	"github.com/curioloop/cgdescent/numdiff"
)

// LogLevel controls the frequency and type of logger output
type LogLevel int

const (
	// LogNoop no output is generated (level < 0)
	LogNoop LogLevel = -1
	// LogLast print only one line at the last iteration
	LogLast LogLevel = 0
	// LogEval print also f and |g| every `level` iterations for any (0 < level < 99)
	LogEval LogLevel = 1
	// LogTrace print details of every iteration except n-vectors
	LogTrace LogLevel = 99
	// LogVerbose print details of every iteration including x and g (level > 100)
	LogVerbose LogLevel = 101
)

// Logger handles logging output for the optimizer.
// Note the writers must be thread-safe.
type Logger struct {
	Level   LogLevel
	Display linesearch.Display // Line-search diagnostic channels written to Msg.
	Msg     io.Writer          // Writer to output log messages.
	Out     io.Writer          // Writer for output data.
}

func (l *Logger) enable(level LogLevel) bool {
	return l.Level >= level
}

func (l *Logger) log(format string, a ...any) {
	if len(a) > 0 {
		_, _ = fmt.Fprintf(l.Msg, format, a...)
	} else {
		_, _ = fmt.Fprint(l.Msg, format)
	}
}

func (l *Logger) out(format string, a ...any) {
	if len(a) > 0 {
		_, _ = fmt.Fprintf(l.Out, format, a...)
	} else {
		_, _ = fmt.Fprint(l.Out, format)
	}
}

// Enabled reports whether the line-search channel is displayed.
func (l *Logger) Enabled(ch linesearch.Display) bool {
	return l.Level > LogNoop && l.Display&ch != 0
}

// Printf writes a line-search diagnostic.
func (l *Logger) Printf(format string, a ...any) {
	l.log(format, a...)
}

// Evaluation returns f(x) and writes ∇f(x) into g.
// A nil g requests the value only.
type Evaluation func(x []float64, g []float64) (f float64)

// Termination specifies the stopping criteria for the optimization algorithm.
type Termination struct {
	// The iteration stop when the number of iteration reaches limit (0 = unlimited).
	MaxIterations int
	// The iteration stop when the total number of function and gradient evaluation reaches limit (0 = unlimited).
	MaxEvaluations int
	// The iteration stop when the number of non-finite evaluation reaches limit (0 = DefaultMaxFailures).
	MaxFailures int
	// The iteration will stop when the accepted step satisfied:
	//   ɑₖ ∑|gₖ₊₁ᵢ dₖᵢ| ≤ 𝚝𝚘𝚕 × (|fₖ₊₁| + |fₖ|) / n
	// or the function value fell below the float spacing of the iterate:
	//   |fₖ₊₁| < 𝚎𝚙𝚜(𝚖𝚊𝚡(‖xₖ₊₁‖∞, ‖gₖ₊₁‖∞))
	Tolerance float64
}

// Problem specifies the problem for CG_DESCENT optimizer.
type Problem struct {
	N    int         // The problem dimension
	Eval Evaluation  // Objective function and gradient
	Stop Termination // Stop condition

	// Func is the objective used with finite difference gradients when Eval is nil.
	Func func(x []float64) float64
	// Diff selects the finite difference scheme for Func.
	Diff numdiff.Method

	// Eta bounds βₖ from below by η(dₖᵀgₖ)/(dₖᵀP⁻¹dₖ) (0 = DefaultEta).
	Eta float64
	// Alpha0 is the first trial step (0 = ψ₀‖x‖∞/‖g‖∞).
	Alpha0 float64
	// AlphaMax bounds the step along d from x (nil = unbounded).
	AlphaMax func(x, d []float64) float64

	Precond Preconditioner                      // Optional preconditioner (nil = Identity)
	Prepare func(p Preconditioner, x []float64) // Optional hook called with each iterate before the direction update
	Report  func(f float64) float64             // Optional transform of the values recorded in the result

	Search *linesearch.Params // Optional line-search config

	StoreTrace    bool // Record one State per iteration
	ExtendedTrace bool // Also record x, g and step size in State.Meta
}

// New creates a new CG_DESCENT optimizer for given problem.
func (p *Problem) New(logger *Logger) (optimizer *Optimizer, err error) {

	if logger == nil {
		logger = new(Logger)
		logger.Level = LogNoop
	}
	if logger.Msg == nil {
		logger.Msg = os.Stdout
	}
	if logger.Out == nil {
		logger.Out = os.Stderr
	}

	n, eval, stop := p.N, p.Eval, p.Stop
	eta, alpha0 := p.Eta, p.Alpha0

	stop.MaxIterations = max(stop.MaxIterations, 0)
	if stop.MaxIterations == 0 {
		stop.MaxIterations = math.MaxInt
	}
	stop.MaxEvaluations = max(stop.MaxEvaluations, 0)
	if stop.MaxEvaluations == 0 {
		stop.MaxEvaluations = math.MaxInt
	}
	if stop.MaxFailures == 0 {
		stop.MaxFailures = DefaultMaxFailures
	}
	if stop.Tolerance == 0 {
		stop.Tolerance = DefaultTolerance
	}
	if eta == 0 {
		eta = DefaultEta
	}
	if alpha0 == 0 {
		alpha0 = math.NaN()
	}

	search := linesearch.DefaultParams()
	if p.Search != nil {
		search = *p.Search
	}

	precond := p.Precond
	if precond == nil {
		precond = Identity{}
	}

	switch {
	case n <= 0:
		err = errors.New("problem dimension must greater than 0")
	case eval == nil && p.Func == nil:
		err = errors.New("evaluation target is required")
	case stop.MaxFailures < 0:
		err = errors.New("max failures must not less than 0")
	case !(stop.Tolerance > zero):
		err = errors.New("tolerance must greater than 0")
	case !(eta > zero) || math.IsInf(eta, 0):
		err = errors.New("eta must be positive and finite")
	case !math.IsNaN(alpha0) && !(alpha0 > zero && !math.IsInf(alpha0, 0)):
		err = errors.New("initial step must be positive and finite")
	}

	if err == nil {
		if e := search.Fill(); e != nil {
			err = fmt.Errorf("invalid line search config: %w", e)
		}
	}

	if err == nil {
		switch pc := precond.(type) {
		case Diagonal:
			if len(pc) != n {
				err = errors.New("diagonal preconditioner size must equal to n")
			} else {
				err = pc.check()
			}
		case *Dense:
			if pc == nil || pc.p == nil {
				err = errors.New("dense preconditioner is not factorized")
			} else if pc.Dim() != n {
				err = errors.New("dense preconditioner order must equal to n")
			}
		}
	}

	if err == nil && eval == nil {
		grad := &numdiff.Gradient{N: n, Object: p.Func, Method: p.Diff}
		if err = grad.Check(); err == nil {
			eval = grad.Evaluation()
		}
	}

	if err != nil {
		return
	}

	report := p.Report
	if report == nil {
		report = func(f float64) float64 { return f }
	}

	trace := traceOff
	if p.StoreTrace {
		trace = traceOn
		if p.ExtendedTrace {
			trace = traceExtended
		}
	}

	epsilon := math.Nextafter(1, 2) - 1
	optimizer = &Optimizer{
		iterSpec{
			n:       n,
			epsilon: epsilon,
			eta:     eta,
			alpha0:  alpha0,
			stop:    stop,
			eval:    eval,
			bound:   p.AlphaMax,
			precond: precond,
			prepare: p.Prepare,
			report:  report,
			search:  search,
			logger:  *logger,
			trace:   trace,
		},
	}
	return
}

// Optimizer implemented using the CG_DESCENT algorithm.
type Optimizer struct {
	iterSpec
}

// Workspace contains the state and context of the optimization process.
// Given problem dimension n, total work space is approximately float64[5×n]
// plus the trial log of one line search.
type Workspace struct {
	n int
	iterCtx
}

// Converged tells which convergence test was met.
type Converged struct {
	X bool // an accepted step left x unchanged
	F bool // relative decrease or |f| below tolerance
	G bool // vanishing gradient
}

// Result contains the final result of the optimization process.
type Result struct {
	OK        bool      // Whether the optimization was converged.
	F         float64   // Final function value.
	X, G      []float64 // Final solution and gradient.
	Values    []float64 // Reported function values, the initial one and one per iteration.
	Converged Converged // Convergence flags.
	Trace     []State   // Per-iteration states when StoreTrace is set.
	Summary             // Optimization summary.
}

// Summary contains a summary of the optimization process.
type Summary struct {
	Status      Status // Final task status after optimization.
	NumIter     int    // Number of iterations performed.
	NumEval     int    // Number of function and gradient evaluations performed.
	NumFailures int    // Number of non-finite evaluations met by the line search.
}

// Init allocate the workspace for CG_DESCENT optimizer.
// To avoid race conditions, separate workspaces need to be created for each goroutine.
// But multiple workspaces could share one optimizer.
func (o *Optimizer) Init() *Workspace {
	w := new(Workspace)
	w.n = o.n
	w.init(w.n)
	return w
}

// Fit runs the optimization process using the initial guess x and workspace w.
// A non-nil error reports a fatal condition; the result then holds the last accepted point.
func (o *Optimizer) Fit(x []float64, w *Workspace) (*Result, error) {

	if len(x) != o.n {
		panic("initial x dimension not match spec")
	}

	if w.n != o.n {
		panic("workspace dimension not match spec")
	}

	loc := iterLoc{
		x: slices.Repeat(x, 1),
		g: make([]float64, len(x)),
	}

	driver := iterDriver{
		optimizer: o,
		workspace: w,
		location:  &loc,
	}

	res, err := driver.mainLoop()
	return &Result{
		OK: res.Converged(),
		X:  loc.x, F: loc.f, G: loc.g,
		Values:    w.values,
		Converged: w.conv,
		Trace:     w.trace,
		Summary: Summary{
			Status:      res,
			NumIter:     w.iter,
			NumEval:     w.totalEval,
			NumFailures: w.lsr.NumFailures,
		},
	}, err
}
