// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"math"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"

	"github.com/curioloop/cgdescent/cgdescent"
	"github.com/curioloop/cgdescent/internal/problems"
)

func newRunCmd(v *viper.Viper, configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Minimize a built-in problem",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v, *configPath)
			if err != nil {
				return err
			}
			logger, err := setupLogger(cfg.Output, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return run(cfg, logger, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.String("problem", "rosenbrock", "Problem name, see the list command")
	flags.Int("n", 2, "Problem dimension")
	flags.String("gradient", "analytic", "Gradient: analytic, forward or central")
	flags.Float64("tol", cgdescent.DefaultTolerance, "Convergence tolerance")
	flags.Int("max-iter", 0, "Iteration limit (0 = unlimited)")
	flags.Int("max-eval", 0, "Evaluation limit (0 = unlimited)")
	flags.String("format", "text", "Output format: text or yaml")
	flags.Bool("trace", false, "Include the per-iteration trace in the output")
	flags.String("verbosity", "noop", "Solver diagnostics: noop, last, eval, trace or verbose")
	flags.StringSlice("display", nil, "Line search channels: iter, linesearch, bracket, secant, update, bisect, alphaguess, all")

	for key, name := range map[string]string{
		"problem.name":           "problem",
		"problem.n":              "n",
		"problem.gradient":       "gradient",
		"solver.tolerance":       "tol",
		"solver.max_iterations":  "max-iter",
		"solver.max_evaluations": "max-eval",
		"output.format":          "format",
		"output.trace":           "trace",
		"output.verbosity":       "verbosity",
		"output.display":         "display",
	} {
		_ = v.BindPFlag(key, flags.Lookup(name))
	}
	return cmd
}

func run(cfg *Config, logger *logrus.Logger, out io.Writer) error {
	prob, err := problems.Lookup(cfg.Problem.Name, cfg.Problem.N)
	if err != nil {
		return err
	}
	method, numeric, err := cfg.gradient()
	if err != nil {
		return err
	}
	level, err := cfg.verbosity()
	if err != nil {
		return err
	}
	display, err := cfg.display()
	if err != nil {
		return err
	}
	params := cfg.params()

	msg := logger.WriterLevel(logrus.DebugLevel)
	defer msg.Close()
	table := logger.WriterLevel(logrus.InfoLevel)
	defer table.Close()

	p := cgdescent.Problem{
		N: prob.N,
		Stop: cgdescent.Termination{
			MaxIterations:  cfg.Solver.MaxIterations,
			MaxEvaluations: cfg.Solver.MaxEvaluations,
			MaxFailures:    cfg.Solver.MaxFailures,
			Tolerance:      cfg.Solver.Tolerance,
		},
		Eta:        cfg.Solver.Eta,
		Alpha0:     cfg.Solver.Alpha0,
		AlphaMax:   prob.AlphaMax,
		Search:     &params,
		StoreTrace: cfg.Output.Trace,
	}
	if numeric {
		eval := prob.Eval
		p.Func = func(x []float64) float64 { return eval(x, nil) }
		p.Diff = method
	} else {
		p.Eval = prob.Eval
	}

	opt, err := p.New(&cgdescent.Logger{Level: level, Display: display, Msg: msg, Out: table})
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{"problem": prob.Name, "n": prob.N}).Info("minimization started")
	res, fitErr := opt.Fit(prob.X0, opt.Init())

	entry := logger.WithFields(logrus.Fields{
		"status": res.Status.String(),
		"iter":   res.NumIter,
		"eval":   res.NumEval,
		"f":      res.F,
	})
	if fitErr != nil {
		entry.WithError(fitErr).Error("minimization stopped")
	} else {
		entry.Info("minimization finished")
	}

	if err = writeReport(out, cfg.Output.Format, newReport(prob, res)); err != nil {
		return err
	}
	return fitErr
}

type report struct {
	Problem     string     `yaml:"problem"`
	N           int        `yaml:"n"`
	Status      string     `yaml:"status"`
	OK          bool       `yaml:"ok"`
	F           float64    `yaml:"f"`
	Min         float64    `yaml:"min"`
	GradNorm    float64    `yaml:"grad_norm"`
	NumIter     int        `yaml:"num_iter"`
	NumEval     int        `yaml:"num_eval"`
	NumFailures int        `yaml:"num_failures"`
	Converged   converged  `yaml:"converged"`
	X           []float64  `yaml:"x,flow"`
	Trace       []traceRow `yaml:"trace,omitempty"`
}

type converged struct {
	F bool `yaml:"f"`
	G bool `yaml:"g"`
	X bool `yaml:"x"`
}

type traceRow struct {
	Iter     int     `yaml:"iter"`
	Value    float64 `yaml:"value"`
	GradNorm float64 `yaml:"grad_norm"`
}

func newReport(prob problems.Problem, res *cgdescent.Result) report {
	r := report{
		Problem:     prob.Name,
		N:           prob.N,
		Status:      res.Status.String(),
		OK:          res.OK,
		F:           res.F,
		Min:         prob.Min,
		GradNorm:    floats.Norm(res.G, math.Inf(1)),
		NumIter:     res.NumIter,
		NumEval:     res.NumEval,
		NumFailures: res.NumFailures,
		Converged:   converged{F: res.Converged.F, G: res.Converged.G, X: res.Converged.X},
		X:           res.X,
	}
	for _, st := range res.Trace {
		r.Trace = append(r.Trace, traceRow{Iter: st.Iter, Value: st.Value, GradNorm: st.GradNorm})
	}
	return r
}

func writeReport(w io.Writer, format string, r report) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	}

	_, err := fmt.Fprintf(w, "problem      %s (n = %d)\n"+
		"status       %s\n"+
		"f            %.10e (optimum %g)\n"+
		"|g|          %.3e\n"+
		"iterations   %d\n"+
		"evaluations  %d\n"+
		"failures     %d\n",
		r.Problem, r.N, r.Status, r.F, r.Min, r.GradNorm, r.NumIter, r.NumEval, r.NumFailures)
	if err != nil {
		return err
	}
	for _, row := range r.Trace {
		if _, err = fmt.Fprintf(w, "  %4d  %14.6e  %10.3e\n", row.Iter, row.Value, row.GradNorm); err != nil {
			return err
		}
	}
	return nil
}
