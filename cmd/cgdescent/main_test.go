// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/curioloop/cgdescent/cgdescent"
	"github.com/curioloop/cgdescent/linesearch"
	"github.com/curioloop/cgdescent/numdiff"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cgdescent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestList(t *testing.T) {
	out, err := execute(t, "list")
	require.NoError(t, err)
	require.Equal(t, []string{"barrier", "powell", "quadratic", "rosenbrock", "trid"},
		strings.Fields(out))
}

func TestDefaults(t *testing.T) {
	cfg, err := loadConfig(viper.New(), "")
	require.NoError(t, err)
	require.Equal(t, "rosenbrock", cfg.Problem.Name)
	require.Equal(t, 2, cfg.Problem.N)
	require.Equal(t, cgdescent.DefaultEta, cfg.Solver.Eta)
	require.Equal(t, cgdescent.DefaultTolerance, cfg.Solver.Tolerance)
	require.Equal(t, cgdescent.DefaultMaxFailures, cfg.Solver.MaxFailures)

	p := cfg.params()
	require.Equal(t, linesearch.DefaultParams(), p)

	method, numeric, err := cfg.gradient()
	require.NoError(t, err)
	require.False(t, numeric)
	require.Equal(t, numdiff.Forward, method)
}

func TestConfigFile(t *testing.T) {
	path := writeConfig(t, `
problem:
  name: trid
  n: 6
  gradient: central
solver:
  tolerance: 1e-10
search:
  sigma: 0.5
  line_search_max: 20
output:
  format: yaml
  verbosity: eval
  display: [bracket, secant]
`)
	cfg, err := loadConfig(viper.New(), path)
	require.NoError(t, err)
	require.Equal(t, "trid", cfg.Problem.Name)
	require.Equal(t, 6, cfg.Problem.N)
	require.Equal(t, 1e-10, cfg.Solver.Tolerance)
	require.Equal(t, 0.5, cfg.Search.Sigma)
	require.Equal(t, linesearch.DefaultDelta, cfg.Search.Delta)
	require.Equal(t, 20, cfg.Search.LineSearchMax)

	method, numeric, err := cfg.gradient()
	require.NoError(t, err)
	require.True(t, numeric)
	require.Equal(t, numdiff.Central, method)

	level, err := cfg.verbosity()
	require.NoError(t, err)
	require.Equal(t, cgdescent.LogEval, level)

	display, err := cfg.display()
	require.NoError(t, err)
	require.Equal(t, linesearch.ShowBracket|linesearch.ShowSecant, display)
}

func TestConfigErrors(t *testing.T) {
	for _, body := range []string{
		"problem: {n: 0}",
		"problem: {gradient: spline}",
		"output: {format: json}",
		"output: {verbosity: loud}",
		"output: {display: [everything]}",
		"output: {log_level: chatty}",
		"search: {sigma: 0.05}",
		"solver: {max_iterations: -1}",
	} {
		_, err := loadConfig(viper.New(), writeConfig(t, body))
		require.Error(t, err, body)
	}
	_, err := loadConfig(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestRunYAML(t *testing.T) {
	out, err := execute(t, "run", "--problem", "quadratic", "--n", "8", "--format", "yaml", "--trace")
	require.NoError(t, err)

	var r report
	require.NoError(t, yaml.Unmarshal([]byte(out), &r))
	require.Equal(t, "quadratic", r.Problem)
	require.Equal(t, 8, r.N)
	require.True(t, r.OK, r.Status)
	require.Len(t, r.X, 8)
	for _, xi := range r.X {
		require.InDelta(t, 1, xi, 1e-4)
	}
	require.InDelta(t, 0, r.F, 1e-8)
	require.Len(t, r.Trace, r.NumIter+1)
}

func TestRunText(t *testing.T) {
	path := writeConfig(t, "problem: {name: rosenbrock, n: 4}\nsolver: {max_iterations: 3}\n")
	out, err := execute(t, "--config", path, "run", "--verbosity", "trace", "--display", "all")
	require.NoError(t, err)
	require.Contains(t, out, "problem      rosenbrock (n = 4)")
	require.Contains(t, out, cgdescent.OverIterLimit.String())
	require.Contains(t, out, "iterations   3")
}

func TestRunFlagOverridesConfig(t *testing.T) {
	path := writeConfig(t, "problem: {name: powell, n: 4}\noutput: {format: text}\n")
	out, err := execute(t, "--config", path, "run", "--format", "yaml", "--gradient", "central", "--max-iter", "5")
	require.NoError(t, err)

	var r report
	require.NoError(t, yaml.Unmarshal([]byte(out), &r))
	require.Equal(t, "powell", r.Problem)
	require.LessOrEqual(t, r.NumIter, 5)
}

func TestExitCode(t *testing.T) {
	var stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"run", "--problem", "himmelblau"})
	require.Equal(t, 1, exitCode(cmd))
	require.Contains(t, stderr.String(), `unknown problem "himmelblau"`)

	stderr.Reset()
	cmd = newRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"list"})
	require.Equal(t, 0, exitCode(cmd))
	require.Empty(t, stderr.String())
}

func TestRunUnknownProblem(t *testing.T) {
	_, err := execute(t, "run", "--problem", "himmelblau")
	require.ErrorContains(t, err, "unknown problem")

	_, err = execute(t, "run", "--problem", "rosenbrock", "--n", "3")
	require.Error(t, err)
}
