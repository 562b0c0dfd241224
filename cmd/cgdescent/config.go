// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/curioloop/cgdescent/cgdescent"
	"github.com/curioloop/cgdescent/linesearch"
	"github.com/curioloop/cgdescent/numdiff"
)

// Config is the runner configuration, read from YAML and overridden by flags.
type Config struct {
	Problem ProblemConfig `mapstructure:"problem" yaml:"problem"`
	Solver  SolverConfig  `mapstructure:"solver" yaml:"solver"`
	Search  SearchConfig  `mapstructure:"search" yaml:"search"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output"`
}

type ProblemConfig struct {
	Name string `mapstructure:"name" yaml:"name"`
	N    int    `mapstructure:"n" yaml:"n"`
	// Gradient is "analytic", "forward" or "central".
	Gradient string `mapstructure:"gradient" yaml:"gradient"`
}

type SolverConfig struct {
	Eta            float64 `mapstructure:"eta" yaml:"eta"`
	Alpha0         float64 `mapstructure:"alpha0" yaml:"alpha0"`
	Tolerance      float64 `mapstructure:"tolerance" yaml:"tolerance"`
	MaxIterations  int     `mapstructure:"max_iterations" yaml:"max_iterations"`
	MaxEvaluations int     `mapstructure:"max_evaluations" yaml:"max_evaluations"`
	MaxFailures    int     `mapstructure:"max_failures" yaml:"max_failures"`
}

type SearchConfig struct {
	Delta         float64 `mapstructure:"delta" yaml:"delta"`
	Sigma         float64 `mapstructure:"sigma" yaml:"sigma"`
	Psi0          float64 `mapstructure:"psi0" yaml:"psi0"`
	Psi1          float64 `mapstructure:"psi1" yaml:"psi1"`
	Psi2          float64 `mapstructure:"psi2" yaml:"psi2"`
	Psi3          float64 `mapstructure:"psi3" yaml:"psi3"`
	Rho           float64 `mapstructure:"rho" yaml:"rho"`
	Epsilon       float64 `mapstructure:"epsilon" yaml:"epsilon"`
	Gamma         float64 `mapstructure:"gamma" yaml:"gamma"`
	LineSearchMax int     `mapstructure:"line_search_max" yaml:"line_search_max"`
	IterFiniteMax int     `mapstructure:"iter_finite_max" yaml:"iter_finite_max"`
}

type OutputConfig struct {
	// Format is "text" or "yaml".
	Format string `mapstructure:"format" yaml:"format"`
	Trace  bool   `mapstructure:"trace" yaml:"trace"`
	// LogLevel is a logrus level name.
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	// Verbosity is one of "noop", "last", "eval", "trace", "verbose".
	Verbosity string   `mapstructure:"verbosity" yaml:"verbosity"`
	Display   []string `mapstructure:"display" yaml:"display"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("problem.name", "rosenbrock")
	v.SetDefault("problem.n", 2)
	v.SetDefault("problem.gradient", "analytic")

	v.SetDefault("solver.eta", cgdescent.DefaultEta)
	v.SetDefault("solver.alpha0", 0)
	v.SetDefault("solver.tolerance", cgdescent.DefaultTolerance)
	v.SetDefault("solver.max_iterations", 0) // 0 = unlimited
	v.SetDefault("solver.max_evaluations", 0)
	v.SetDefault("solver.max_failures", cgdescent.DefaultMaxFailures)

	v.SetDefault("search.delta", linesearch.DefaultDelta)
	v.SetDefault("search.sigma", linesearch.DefaultSigma)
	v.SetDefault("search.psi0", linesearch.DefaultPsi0)
	v.SetDefault("search.psi1", linesearch.DefaultPsi1)
	v.SetDefault("search.psi2", linesearch.DefaultPsi2)
	v.SetDefault("search.psi3", linesearch.DefaultPsi3)
	v.SetDefault("search.rho", linesearch.DefaultRho)
	v.SetDefault("search.epsilon", linesearch.DefaultEpsilon)
	v.SetDefault("search.gamma", linesearch.DefaultGamma)
	v.SetDefault("search.line_search_max", linesearch.DefaultLineSearchMax)
	v.SetDefault("search.iter_finite_max", linesearch.DefaultIterFiniteMax)

	v.SetDefault("output.format", "text")
	v.SetDefault("output.trace", false)
	v.SetDefault("output.log_level", "warn")
	v.SetDefault("output.verbosity", "noop")
	v.SetDefault("output.display", []string{})
}

func loadConfig(v *viper.Viper, path string) (*Config, error) {
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Problem.Name == "":
		return errors.New("problem name is empty")
	case c.Problem.N <= 0:
		return fmt.Errorf("problem dimension must be positive, got %d", c.Problem.N)
	case c.Solver.MaxIterations < 0 || c.Solver.MaxEvaluations < 0:
		return errors.New("iteration and evaluation limits must be non-negative")
	}
	if _, _, err := c.gradient(); err != nil {
		return err
	}
	if _, err := c.verbosity(); err != nil {
		return err
	}
	if _, err := c.display(); err != nil {
		return err
	}
	if _, err := logrus.ParseLevel(c.Output.LogLevel); err != nil {
		return err
	}
	switch c.Output.Format {
	case "text", "yaml":
	default:
		return fmt.Errorf("unknown output format %q", c.Output.Format)
	}
	p := c.params()
	return p.Fill()
}

// gradient reports the finite difference method, numeric is false for analytic gradients.
func (c *Config) gradient() (m numdiff.Method, numeric bool, err error) {
	switch strings.ToLower(c.Problem.Gradient) {
	case "", "analytic":
		return numdiff.Forward, false, nil
	case "forward":
		return numdiff.Forward, true, nil
	case "central":
		return numdiff.Central, true, nil
	}
	return numdiff.Forward, false, fmt.Errorf("unknown gradient method %q", c.Problem.Gradient)
}

var verbosityLevels = map[string]cgdescent.LogLevel{
	"noop":    cgdescent.LogNoop,
	"last":    cgdescent.LogLast,
	"eval":    cgdescent.LogEval,
	"trace":   cgdescent.LogTrace,
	"verbose": cgdescent.LogVerbose,
}

func (c *Config) verbosity() (cgdescent.LogLevel, error) {
	lv, ok := verbosityLevels[strings.ToLower(c.Output.Verbosity)]
	if !ok {
		return cgdescent.LogNoop, fmt.Errorf("unknown verbosity %q", c.Output.Verbosity)
	}
	return lv, nil
}

var displayChannels = map[string]linesearch.Display{
	"iter":       linesearch.ShowIter,
	"linesearch": linesearch.ShowLineSearch,
	"bracket":    linesearch.ShowBracket,
	"secant":     linesearch.ShowSecant,
	"update":     linesearch.ShowUpdate,
	"bisect":     linesearch.ShowBisect,
	"alphaguess": linesearch.ShowAlphaGuess,
	"all":        linesearch.ShowAll,
	"none":       linesearch.ShowNone,
}

func (c *Config) display() (linesearch.Display, error) {
	var d linesearch.Display
	for _, name := range c.Output.Display {
		ch, ok := displayChannels[strings.ToLower(name)]
		if !ok {
			return 0, fmt.Errorf("unknown display channel %q", name)
		}
		d |= ch
	}
	return d, nil
}

func (c *Config) params() linesearch.Params {
	s := c.Search
	return linesearch.Params{
		Delta:         s.Delta,
		Sigma:         s.Sigma,
		Psi0:          s.Psi0,
		Psi1:          s.Psi1,
		Psi2:          s.Psi2,
		Psi3:          s.Psi3,
		Rho:           s.Rho,
		Epsilon:       s.Epsilon,
		Gamma:         s.Gamma,
		LineSearchMax: s.LineSearchMax,
		IterFiniteMax: s.IterFiniteMax,
	}
}
