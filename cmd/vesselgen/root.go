package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Karl-Philippe/Vascular-Tree-Model-Generator/pkg/config"
	"github.com/Karl-Philippe/Vascular-Tree-Model-Generator/pkg/logging"
	"github.com/Karl-Philippe/Vascular-Tree-Model-Generator/pkg/metrics"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	configPath  string
	logLevel    string
	logFormat   string
	metricsFile string

	logger   *zap.Logger
	recorder *metrics.Recorder
)

var errNoConfig = errors.New("no parameter file given (use -c)")

var rootCmd = &cobra.Command{
	Use:   "vesselgen",
	Short: "Generate hollow vascular tree models for 3D printing",
	Long: `vesselgen turns a declarative parameter file (YAML, JSON, or a .vtree
script) into a watertight branching vessel: a trunk, primary and secondary
branches, an optional end adapter, rounded junctions, and a hollow lumen.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.New(logging.Config{Level: logLevel, Format: logFormat})
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logger = l
		recorder = metrics.New()
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logger != nil {
			_ = logger.Sync()
		}
		if metricsFile == "" || recorder == nil {
			return nil
		}
		if err := recorder.WriteTextfile(metricsFile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "parameter file (.yaml, .yml, .json, .vtree)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile after the run")
}

// loadConfig reads --config, prints every finding to cmd's error stream,
// and returns the blocking errors.
func loadConfig(cmd *cobra.Command) (*config.TreeConfig, config.ValidationResult, error) {
	if configPath == "" {
		return nil, config.ValidationResult{}, errNoConfig
	}
	cfg, res, err := config.LoadFile(configPath)
	printFindings(cmd, res)
	if err != nil {
		return nil, res, err
	}
	return cfg, res, nil
}

func printFindings(cmd *cobra.Command, res config.ValidationResult) {
	w := cmd.ErrOrStderr()
	for _, e := range res.Errors {
		fmt.Fprintln(w, e.Error())
	}
	for _, e := range res.Warnings {
		fmt.Fprintln(w, e.Error())
	}
}

func currentLogger() *zap.Logger {
	return logging.OrNop(logger)
}
