// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cgdescent

import (
	"fmt"
	"math"
	"slices"

	"github.com/curioloop/cgdescent/internal/vec"
	"github.com/curioloop/cgdescent/linesearch"
)

// iterDriver is the main driver for iterations in an optimization process,
// responsible for managing the flow of the optimization.
type iterDriver struct {
	optimizer *Optimizer
	workspace *Workspace
	location  *iterLoc
	searching bool
}

// evalHalt carries a panic raised by the objective up to mainLoop.
type evalHalt struct{ r any }

// call evaluates the objective and counts the evaluation.
func (d *iterDriver) call(x, g []float64) (f float64) {
	defer func() {
		if r := recover(); r != nil {
			panic(evalHalt{r})
		}
	}()
	d.workspace.totalEval++
	f = d.optimizer.eval(x, g)
	return
}

// newIteration checks the iteration, evaluation and failure limits
// before a new iteration starts.
func (d *iterDriver) newIteration(iter Status) Status {
	o, w := d.optimizer, d.workspace
	if w.iter >= o.stop.MaxIterations {
		iter = OverIterLimit
	} else if w.totalEval >= o.stop.MaxEvaluations {
		iter = OverEvalLimit
	} else if w.lsr.NumFailures >= o.stop.MaxFailures {
		iter = OverFailLimit
	}
	return iter
}

// checkConvergence applies the termination tests to the accepted step:
//
//	ɑₖ ∑|gₖ₊₁ᵢ dₖᵢ| ≤ 𝚝𝚘𝚕 × (|fₖ₊₁| + |fₖ|) / n    or    |fₖ₊₁| < 𝚎𝚙𝚜(𝚖𝚊𝚡(‖xₖ₊₁‖∞, ‖gₖ₊₁‖∞))
//
// A vanishing gradient or an unchanged x also ends the iteration.
func (d *iterDriver) checkConvergence(iter Status, moved bool) Status {
	o, w, loc := d.optimizer, d.workspace, d.location

	gmax := vec.MaxAbs(loc.g)
	decrease := w.alpha * vec.SumAbsProd(loc.g, w.d)
	tol := o.stop.Tolerance * (math.Abs(loc.f) + math.Abs(w.fOld)) / float64(o.n)
	if decrease <= tol || math.Abs(loc.f) < vec.Ulp(math.Max(vec.MaxAbs(loc.x), gmax)) {
		w.conv.F = true
	}
	if gmax == zero {
		w.conv.G = true
	}
	if !moved {
		w.conv.X = true
	}

	switch {
	case w.conv.F:
		iter = ConvFunction
	case w.conv.G:
		iter = ConvGradient
	case w.conv.X:
		iter = ConvLocation
	}
	return iter
}

// mainLoop is the main execution loop of the iteration process, performing
// direction updates, line searches and convergence checks.
func (d *iterDriver) mainLoop() (task Status, err error) {

	loc := d.location
	spec := &d.optimizer.iterSpec
	ctx := &d.workspace.iterCtx

	log := spec.logger

	ctx.clear()
	ctx.step = linesearch.Step{
		X: loc.x, D: ctx.d,
		XTmp: ctx.xTmp, G: loc.g,
		Func: d.call,
	}

	defer func() {
		if r := recover(); r != nil {
			h, ok := r.(evalHalt)
			if !ok {
				panic(r)
			}
			if d.searching {
				copy(loc.g, ctx.gOld)
			}
			task, err = HaltEvalPanic, fmt.Errorf("%w: %v", ErrEvalPanic, h.r)
			d.printExit(task, err)
		}
	}()

	d.printInit()

	// Calculate f₀ and g₀
	loc.f = d.call(loc.x, loc.g)
	if !vec.Finite(loc.f) || !vec.AllFinite(loc.g) {
		task, err = StopAbnormal, ErrNonFiniteStart
		d.printExit(task, err)
		return
	}
	d.record()

	if vec.MaxAbs(loc.g) == zero {
		ctx.conv.G = true
		task = ConvGradient
	}
	if log.enable(LogEval) {
		log.log("At iterate %5d    f= %12.5e    |g|= %12.5e\n", ctx.iter, loc.f, vec.MaxAbs(loc.g))
		log.out(" %4d %5d     -          -          -      %10.3e %10.3e\n", ctx.iter, ctx.totalEval, vec.MaxAbs(loc.g), loc.f)
	}

	ctx.alpha = spec.alpha0
	for task == iterLoop {

		if task = d.newIteration(task); task != iterLoop {
			break
		}

		if log.enable(LogTrace) {
			log.log("\n\nITERATION %5d\n", ctx.iter+1)
		}

		if err = d.searchDirection(); err != nil {
			task = StopAbnormal
			break
		}
		if task = d.boundStep(task); task != iterLoop {
			break
		}
		if err = d.searchOptimalStep(); err != nil {
			task = StopAbnormal
			break
		}
		if ctx.alpha == zero {
			// Search restored the gradient at x.
			task = StopNoProgress
			break
		}

		moved := d.takeStep()
		task = d.checkConvergence(task, moved)

		d.printIter()
	}

	d.printExit(task, err)
	return
}

// boundStep evaluates the largest feasible step along d.
func (d *iterDriver) boundStep(task Status) Status {
	loc := d.location
	spec := &d.optimizer.iterSpec
	ctx := &d.workspace.iterCtx

	ctx.alphaMax = math.Inf(1)
	if spec.bound != nil {
		ctx.alphaMax = spec.bound(loc.x, ctx.d)
	}
	if !(ctx.alphaMax > zero) {
		if log := spec.logger; log.enable(LogLast) {
			log.log("Step bound along the search direction is %e;\n", ctx.alphaMax)
		}
		task = StopEdgeOfDomain
	}
	return task
}

// searchOptimalStep calculates the step length ɑₖ for the current iteration
// with the Hager-Zhang line search. On return g holds the gradient at xₖ + ɑₖdₖ.
func (d *iterDriver) searchOptimalStep() (err error) {

	loc := d.location
	spec := &d.optimizer.iterSpec
	ctx := &d.workspace.iterCtx

	log := &spec.logger

	// Save the gradient at xₖ for the direction update.
	copy(ctx.gOld, loc.g)
	ctx.lsr.Reset(loc.f, ctx.dphi0)
	ctx.step.Begin()
	ctx.step.NumEval = 0

	// A panicking objective leaves searching set so that mainLoop restores g.
	d.searching = true

	var c, phi float64
	mayTerminate := false
	if ctx.iter == 0 {
		c = linesearch.InitialStep(ctx.alpha, loc.x, loc.g, loc.f, spec.search.Psi0, ctx.alphaMax)
	} else {
		c, mayTerminate, err = linesearch.TryStep(&ctx.step, &ctx.lsr, ctx.alpha, &spec.search, ctx.alphaMax, log)
	}
	if err == nil {
		ctx.alpha, phi, err = linesearch.Search(&ctx.step, &ctx.lsr, c, mayTerminate, &spec.search, ctx.alphaMax, log)
	}

	d.searching = false
	ctx.numBack = ctx.step.NumEval

	if err != nil {
		copy(loc.g, ctx.gOld)
		if log.enable(LogLast) {
			log.log("Line search failed along direction with gᵀd = %e: %v\n", ctx.dphi0, err)
		}
		return
	}
	if ctx.alpha > zero {
		ctx.fOld, loc.f = loc.f, phi
	}
	return
}

// takeStep moves x to x + ɑd and reports whether any coordinate changed.
func (d *iterDriver) takeStep() (moved bool) {
	loc := d.location
	ctx := &d.workspace.iterCtx

	vec.Step(ctx.xTmp, loc.x, ctx.alpha, ctx.d)
	moved = !slices.Equal(ctx.xTmp, loc.x)
	copy(loc.x, ctx.xTmp)

	ctx.iter++
	d.record()
	return
}

// printInit logs the initialization details of the CG_DESCENT optimization process.
func (d *iterDriver) printInit() {

	loc := d.location
	spec := &d.optimizer.iterSpec

	log := spec.logger

	if log.enable(LogLast) {
		log.log("RUNNING THE CG_DESCENT CODE\n")
		log.log("           * * *\n")
		log.log("Machine precision = %10.3e\n", spec.epsilon)
		log.log("N = %d    eta = %g    tol = %g\n", spec.n, spec.eta, spec.stop.Tolerance)

		if log.enable(LogEval) {
			log.out("RUNNING THE CG_DESCENT CODE\n\n")
			log.out("Machine precision = %10.3e\n", spec.epsilon)
			log.out("N = %d\n", spec.n)
			log.out("\n   it    nf   nls       stepl       tstep       |g|          f\n")

			if log.enable(LogVerbose) {
				log.log("\nX0 = ")
				for i, x := range loc.x {
					log.log("%.2e ", x)
					if (i+1)%6 == 0 {
						log.log("\n     ")
					}
				}
				log.log("\n")
			}
		}
	}
}

// printIter logs the current iteration details, including the function value,
// gradient norm, and other iteration statistics.
func (d *iterDriver) printIter() {

	loc := d.location
	spec := &d.optimizer.iterSpec
	ctx := &d.workspace.iterCtx

	log := spec.logger

	gNorm := vec.MaxAbs(loc.g)
	stpNorm := ctx.alpha * vec.Norm(ctx.d)
	if log.enable(LogTrace) || log.Enabled(linesearch.ShowIter) {
		log.log("LINE SEARCH %d times; norm of step = %12.5e\n", ctx.numBack, stpNorm)
		log.log("At iterate %5d    f= %12.5e    |g|= %12.5e\n", ctx.iter, loc.f, gNorm)
		if log.enable(LogVerbose) {
			log.log("\n X = ")
			for i := 0; i < spec.n; i++ {
				log.log("%.2e ", loc.x[i])
				if (i+1)%6 == 0 {
					log.log("\n     ")
				}
			}

			log.log("\n G = ")
			for i := 0; i < spec.n; i++ {
				log.log("%.2e ", loc.g[i])
				if (i+1)%6 == 0 {
					log.log("\n     ")
				}
			}
			log.log("\n")
		}
	} else if log.enable(LogEval) {
		if ctx.iter%int(log.Level) == 0 {
			log.log("At iterate %5d    f= %12.5e    |g|= %12.5e\n", ctx.iter, loc.f, gNorm)
		}
	}

	if log.enable(LogEval) {
		log.out(" %4d %5d %5d %11.4e %11.4e %10.3e %10.3e\n",
			ctx.iter, ctx.totalEval, ctx.numBack, ctx.alpha, stpNorm, gNorm, loc.f)
	}
}

// printExit logs the final statistics and exit conditions of the optimization process.
func (d *iterDriver) printExit(task Status, err error) {

	loc := d.location
	spec := &d.optimizer.iterSpec
	ctx := &d.workspace.iterCtx

	log := spec.logger
	if !log.enable(LogLast) {
		return
	}

	log.log("\n           * * *\n")
	log.log("Tit   = total number of iterations\n")
	log.log("Tnf   = total number of function evaluations\n")
	log.log("Fail  = number of non-finite evaluations\n")
	log.log("G     = norm of the final gradient\n")
	log.log("F     = final function value\n")
	log.log("\n           * * *\n")
	log.log("\n   N      Tit      Tnf   Fail      G         F\n")
	log.log("%5d %6d %7d %6d %6.2e %9.5e\n",
		spec.n, ctx.iter, ctx.totalEval, ctx.lsr.NumFailures, vec.MaxAbs(loc.g), loc.f)

	if log.enable(LogVerbose) {
		log.log("\n X =")
		for i := 0; i < spec.n; i++ {
			log.log(" %.2e", loc.x[i])
			if (i+1)%6 == 0 {
				log.log("\n     ")
			}
		}
		log.log("\n")
	}

	if log.enable(LogEval) {
		log.log(" F = %.9e\n", loc.f)
	}

	log.log("\n%s\n", task)
	if err != nil {
		log.log("%v\n", err)
	}
}
