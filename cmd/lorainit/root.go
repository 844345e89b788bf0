// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/katalvlaran/lorainit/adapter"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	Config    string
	Weights   string
	Data      string
	Layers    []string
	BatchSize int
	Dev       bool
	LogLevel  string
}

// app carries what PersistentPreRunE prepared for a subcommand.
type app struct {
	flags globalFlags
	log   *zap.Logger
	file  *adapter.FileConfig
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "lorainit",
		Short: "Low-rank adapter initialization and calibration",
		Long: `lorainit initializes low-rank adapters for the matrices of a JSON weight file.

Gradient-based modes first average gradients of a linear reference model over
a calibration subset of the dataset (init.bsz * init.iters samples).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.Config, "config", "", "YAML run configuration (init and peft sections)")
	pf.StringVar(&a.flags.Weights, "weights", "", "JSON weight file")
	pf.StringVar(&a.flags.Data, "data", "", "JSON calibration dataset")
	pf.StringSliceVar(&a.flags.Layers, "layers", nil, "model layers in forward order (default: every parameter in name order)")
	pf.IntVar(&a.flags.BatchSize, "batch-size", 0, "calibration batch size (overrides init.bsz)")
	pf.BoolVar(&a.flags.Dev, "dev", false, "human-readable development logging")
	pf.StringVar(&a.flags.LogLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(newEstimateCmd(a), newSearchCmd(a), newInitCmd(a))

	return root
}

func (a *app) setup() error {
	log, err := newLogger(a.flags.Dev, a.flags.LogLevel)
	if err != nil {
		return err
	}
	a.log = log

	a.file = &adapter.FileConfig{}
	if a.flags.Config != "" {
		if a.file, err = adapter.LoadConfigFile(a.flags.Config); err != nil {
			return err
		}
	}

	return nil
}

func newLogger(dev bool, level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("--log-level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if dev {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)

	return zc.Build()
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
