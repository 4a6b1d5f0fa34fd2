package cmd

import (
	mathrand "math/rand/v2"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/circuit-mixer/internal/mixer"
	"github.com/circuit-mixer/internal/repository"
	"github.com/circuit-mixer/internal/storage"
	"github.com/circuit-mixer/pkg/config"
	"github.com/circuit-mixer/pkg/errors"
	"github.com/circuit-mixer/pkg/model"
	"github.com/circuit-mixer/pkg/parallel"
	"github.com/circuit-mixer/pkg/utils"
)

// errInvalidFlag builds the standard invalid-argument error, naming the
// offending argument as required by the CLI contract.
func errInvalidFlag(name, value string) error {
	return errors.Newf(errors.CodeInvalidInput, "invalid value %q for %s", value, name)
}

var runCmd = &cobra.Command{
	Use:     "run <log-path> <job-path> [original-circuit-path [strategy]]",
	Aliases: []string{"1"},
	Short:   "Start or continue an obfuscation job",
	Long: `Start a new obfuscation job or continue a persisted one.

When the job file exists the run resumes from its stored progress and the
remaining arguments are ignored. Otherwise a fresh cipher-like circuit is
sampled, written to original-circuit-path, and a new job begins with the
given strategy (default 1).

The DEBUG environment variable (true/false) toggles the per-step
equivalence check; it defaults to on.`,
	Args: cobra.RangeArgs(2, 4),
	RunE: func(cmd *cobra.Command, args []string) error {
		logPath, jobPath := args[0], args[1]

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		fileLogger, err := utils.NewFileLogger(utils.ParseLogLevel(cfg.Log.Level), logPath)
		if err != nil {
			return errors.Wrap(errors.CodeIOError, "opening log file", err)
		}

		job, err := loadOrCreateJob(args, cfg, fileLogger)
		if err != nil {
			return err
		}

		pool := parallel.DefaultPoolConfig()
		if cfg.Mixing.Workers > 0 {
			pool = pool.WithWorkers(cfg.Mixing.Workers)
		}

		var repo repository.RunRepository
		if gormRepo, err := repository.NewFromConfig(&cfg.Database); err != nil {
			return err
		} else if gormRepo != nil {
			repo = gormRepo
		}

		var archive storage.Storage
		if cfg.Storage.Type != "" {
			archive, err = storage.New(&cfg.Storage)
			if err != nil {
				return err
			}
		}

		driver := mixer.NewDriver(job, jobPath, mixer.DriverOptions{
			Logger:  fileLogger,
			Pool:    pool,
			Repo:    repo,
			Archive: archive,
			Debug:   config.Debug(),
		})
		return driver.Run(cmd.Context())
	},
}

// loadOrCreateJob resumes the job at jobPath, or seeds a fresh one when no
// job file exists yet.
func loadOrCreateJob(args []string, cfg *config.Config, log utils.Logger) (*mixer.Job, error) {
	jobPath := args[1]

	job, err := mixer.Load(jobPath)
	if err == nil {
		log.Info("found obfuscation job at path, continuing the pending job: digest=%s", mixer.CircuitDigest(job.Current))
		return job, nil
	}
	if errors.GetErrorCode(err) != errors.CodeIOError {
		// The file exists but is unreadable as a job; surface that rather
		// than silently starting over.
		return nil, err
	}

	log.Info("starting new obfuscation job")
	if len(args) < 3 {
		return nil, errors.New(errors.CodeInvalidInput, "missing original-circuit-path for a new job")
	}
	circuitPath := args[2]

	jobConfig := mixer.JobConfigFrom(&cfg.Mixing)
	if len(args) >= 4 {
		strategy, err := strconv.Atoi(args[3])
		if err != nil || (strategy != 1 && strategy != 2) {
			return nil, errInvalidFlag("strategy", args[3])
		}
		jobConfig.Strategy = mixer.Strategy(strategy)
	}

	rng := utils.NewEntropyRand()
	original := sampleSeedCircuit(cfg, rng)
	if err := mixer.WriteCircuitFile(original, circuitPath); err != nil {
		return nil, err
	}
	log.Info("sampled original circuit: %d gates on %d wires, stored at %s",
		len(original.Gates), original.N, circuitPath)

	return &mixer.Job{
		Config:   jobConfig,
		Current:  original.Clone(),
		Original: original,
	}, nil
}

// sampleSeedCircuit draws the seed circuit for a fresh job: a cipher-like
// multi-stage circuit over the configured wire count.
func sampleSeedCircuit(cfg *config.Config, rng *mathrand.Rand) *model.Circuit {
	rounds := cfg.Mixing.SeedRounds
	if rounds < 1 {
		rounds = 1
	}
	return model.SampleCipherCircuit(cfg.Mixing.Wires, rounds, rng)
}

func init() {
	rootCmd.AddCommand(runCmd)
}
