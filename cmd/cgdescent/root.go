// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/curioloop/cgdescent/internal/problems"
)

func newRootCmd() *cobra.Command {
	v := viper.New()
	var configPath string

	root := &cobra.Command{
		Use:   "cgdescent",
		Short: "Nonlinear conjugate gradient minimizer",
		Long: `Minimize smooth unconstrained test functions with the Hager-Zhang
conjugate gradient method and its approximate Wolfe line search.
Options are read from a YAML file and overridden by flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file path (YAML)")
	root.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn, error")
	_ = v.BindPFlag("output.log_level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(newRunCmd(v, &configPath), newListCmd())
	return root
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the built-in problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range problems.Names() {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func setupLogger(cfg OutputConfig, w io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		DisableColors:   true,
	})
	logger.SetLevel(level)
	return logger, nil
}
