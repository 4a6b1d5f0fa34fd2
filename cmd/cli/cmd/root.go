// Package cmd implements the circuit-mixer command line interface.
package cmd

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/circuit-mixer/pkg/pprof"
	"github.com/circuit-mixer/pkg/telemetry"
	"github.com/circuit-mixer/pkg/utils"
)

var (
	// Global flags
	verbose    bool
	configPath string
	logger     utils.Logger

	// Self-profiling flags
	pprofEnabled  bool
	pprofMode     string
	pprofDir      string
	pprofProfiles string
	pprofInterval string
	pprofAddr     string

	pprofCollector    *pprof.Collector
	telemetryShutdown telemetry.ShutdownFunc
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "circuit-mixer",
	Short: "Obfuscate reversible circuits by iterated local mixing",
	Long: `circuit-mixer rewrites a reversible Boolean circuit into a functionally
equivalent one whose gate-level structure is randomized: it repeatedly cuts
a small convex subcircuit out of the circuit's dependency graph and splices
in a random equivalent replacement.

Every action is also reachable by its numeric selector (1-6):

  1 run               start or continue an obfuscation job
  2 verify            probabilistically verify a persisted job
  3 convert-circuit   convert a binary circuit file to JSON
  4 convert-job       export a job's current circuit as JSON
  5 equiv             check equivalence of two JSON circuits
  6 eval              evaluate a JSON circuit on a 0/1 input vector`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logLevel := utils.LevelInfo
		if verbose {
			logLevel = utils.LevelDebug
		}
		logger = utils.NewDefaultLogger(logLevel, os.Stdout)

		shutdown, err := telemetry.Init(cmd.Context())
		if err != nil {
			logger.Warn("telemetry init failed: %v", err)
			shutdown = nil
		}
		telemetryShutdown = shutdown

		if pprofEnabled {
			cfg, err := buildPprofConfig()
			if err != nil {
				return err
			}
			collector, err := pprof.NewCollector(cfg)
			if err != nil {
				return err
			}
			if err := collector.Start(); err != nil {
				return err
			}
			pprofCollector = collector
			logger.Info("pprof collection started (mode: %s)", cfg.Mode)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if pprofCollector != nil {
			if err := pprofCollector.Stop(); err != nil {
				logger.Warn("failed to stop pprof collector: %v", err)
			} else {
				logger.Info("pprof data saved to: %s", pprofCollector.OutputDir())
			}
		}
		if telemetryShutdown != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := telemetryShutdown(ctx); err != nil {
				logger.Warn("telemetry shutdown failed: %v", err)
			}
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the CLI. Exit code 0 on success, 1 on any failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")

	rootCmd.PersistentFlags().BoolVar(&pprofEnabled, "pprof", false, "Enable self-profiling during the command")
	rootCmd.PersistentFlags().StringVar(&pprofMode, "pprof-mode", "file", "Pprof mode: file (periodic snapshots) or http (on-demand)")
	rootCmd.PersistentFlags().StringVar(&pprofDir, "pprof-dir", "./pprof", "Output directory for pprof snapshots")
	rootCmd.PersistentFlags().StringVar(&pprofProfiles, "pprof-profiles", "cpu,heap,goroutine", "Comma-separated profile types")
	rootCmd.PersistentFlags().StringVar(&pprofInterval, "pprof-interval", "30s", "Snapshot interval for file mode")
	rootCmd.PersistentFlags().StringVar(&pprofAddr, "pprof-addr", ":6060", "HTTP listen address for http mode")

	binName := BinName()
	rootCmd.Example = `  # Start a 64-wire obfuscation job with strategy 2
  ` + binName + ` run ./logs/mix.log ./jobs/exp1.bin ./jobs/exp1-original.bin 2

  # Resume the same job later
  ` + binName + ` run ./logs/mix.log ./jobs/exp1.bin

  # Verify the stored job on 100000 random inputs
  ` + binName + ` verify ./jobs/exp1.bin 100000

  # Export the mixed circuit and evaluate it
  ` + binName + ` convert-job ./jobs/exp1.bin ./mixed.json
  ` + binName + ` eval ./mixed.json 0,1,0,1,1,0,0,1`
}

// GetLogger returns the configured logger.
func GetLogger() utils.Logger {
	return logger
}

// BinName returns the base name of the current executable.
func BinName() string {
	return filepath.Base(os.Args[0])
}

// buildPprofConfig builds the self-profiling config from the global flags.
func buildPprofConfig() (*pprof.Config, error) {
	cfg := pprof.DefaultConfig()
	cfg.Enabled = true
	cfg.OutputDir = pprofDir

	switch pprofMode {
	case "file":
		cfg.Mode = pprof.ModeFile
	case "http":
		cfg.Mode = pprof.ModeHTTP
	default:
		return nil, errInvalidFlag("pprof-mode", pprofMode)
	}

	profiles, err := pprof.ParseProfileTypes(pprofProfiles)
	if err != nil {
		return nil, err
	}
	cfg.Profiles = profiles

	interval, err := time.ParseDuration(pprofInterval)
	if err != nil {
		return nil, errInvalidFlag("pprof-interval", pprofInterval)
	}
	cfg.Interval = interval
	cfg.Addr = pprofAddr

	return cfg, cfg.Validate()
}
