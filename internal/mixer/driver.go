package mixer

import (
	"context"
	"fmt"
	mathrand "math/rand/v2"
	"path/filepath"
	"time"

	"github.com/circuit-mixer/internal/repository"
	"github.com/circuit-mixer/internal/storage"
	"github.com/circuit-mixer/pkg/errors"
	"github.com/circuit-mixer/pkg/model"
	"github.com/circuit-mixer/pkg/parallel"
	"github.com/circuit-mixer/pkg/utils"
)

// DriverOptions configure a mixing run. Repo and Archive are optional; nil
// disables history recording and checkpoint archival respectively.
type DriverOptions struct {
	Logger  utils.Logger
	Pool    parallel.PoolConfig
	Rng     *mathrand.Rand
	Repo    repository.RunRepository
	Archive storage.Storage
	// Debug enables the per-step equivalence check against the original
	// circuit (the DEBUG environment toggle).
	Debug bool
}

// Driver sequences mixing steps according to the job's strategy, retries
// budget-exhausted steps, and checkpoints the job file periodically.
type Driver struct {
	job     *Job
	jobPath string
	mixer   *Mixer
	log     utils.Logger
	pool    parallel.PoolConfig
	rng     *mathrand.Rand
	repo    repository.RunRepository
	archive storage.Storage
	debug   bool
	runID   int64
}

// NewDriver builds a driver for a loaded job.
func NewDriver(job *Job, jobPath string, opts DriverOptions) *Driver {
	logger := opts.Logger
	if logger == nil {
		logger = &utils.NullLogger{}
	}
	rng := opts.Rng
	if rng == nil {
		rng = utils.NewEntropyRand()
	}
	pool := opts.Pool
	if pool.MaxWorkers <= 0 {
		pool = parallel.DefaultPoolConfig()
	}
	return &Driver{
		job:     job,
		jobPath: jobPath,
		mixer:   New(job.Current, logger, pool),
		log:     logger,
		pool:    pool,
		rng:     rng,
		repo:    opts.Repo,
		archive: opts.Archive,
		debug:   opts.Debug,
	}
}

// Run executes the job to completion (or resumes a partially completed
// one). Fatal errors abort the run and are recorded in the history
// repository when one is configured.
func (d *Driver) Run(ctx context.Context) error {
	d.log.Info("starting run: strategy=%d wires=%d gates=%d current digest=%s original digest=%s",
		d.job.Config.Strategy, d.job.Config.Wires, d.mixer.GateCount(),
		CircuitDigest(d.job.Current), CircuitDigest(d.job.Original))

	if err := d.ensureRunRecord(ctx); err != nil {
		return err
	}

	var err error
	switch d.job.Config.Strategy {
	case Strategy1:
		err = d.runStrategy1(ctx)
	case Strategy2:
		err = d.runStrategy2(ctx)
	default:
		err = errors.Newf(errors.CodeInvalidInput, "unknown strategy %d", d.job.Config.Strategy)
	}

	if err != nil {
		d.finishRun(ctx, repository.RunStatusFailed, err.Error())
		return err
	}
	d.finishRun(ctx, repository.RunStatusCompleted, "")
	return nil
}

// runStrategy1 mixes for TotalSteps steps, drawing ellOut from {2, 3, 4}
// each step with ellIn fixed at 4.
func (d *Driver) runStrategy1(ctx context.Context) error {
	cfg := &d.job.Config
	for d.job.CurrTotalSteps < cfg.TotalSteps {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(errors.CodeIOError, "run cancelled", err)
		}
		ellOut := 2 + d.rng.IntN(3)
		advanced, err := d.attemptStep(ctx, "mixing", d.job.CurrTotalSteps, StepParams{
			EllOut:                ellOut,
			EllIn:                 4,
			ConvexIterations:      int(cfg.MaxConvexIterations),
			ReplacementIterations: int(cfg.MaxReplacementIterations),
		})
		if err != nil {
			return err
		}
		if !advanced {
			continue
		}
		d.job.CurrTotalSteps++
		if d.job.CurrTotalSteps%cfg.CheckpointSteps == 0 {
			if err := d.checkpoint(ctx, "mixing", d.job.CurrTotalSteps); err != nil {
				return err
			}
		}
	}
	return d.checkpoint(ctx, "mixing-final", d.job.CurrTotalSteps)
}

// runStrategy2 runs the inflationary stage (ellOut 2) to completion, then
// the kneading stage (ellOut 4). Each stage ends with a checkpoint whose
// equivalence check gates entry into the next.
func (d *Driver) runStrategy2(ctx context.Context) error {
	cfg := &d.job.Config

	for d.job.CurrInflationarySteps < cfg.InflationarySteps {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(errors.CodeIOError, "run cancelled", err)
		}
		advanced, err := d.attemptStep(ctx, "inflationary", d.job.CurrInflationarySteps, StepParams{
			EllOut:                2,
			EllIn:                 4,
			ConvexIterations:      int(cfg.MaxConvexIterations),
			ReplacementIterations: int(cfg.MaxReplacementIterations),
		})
		if err != nil {
			return err
		}
		if !advanced {
			continue
		}
		d.job.CurrInflationarySteps++
		if d.job.CurrInflationarySteps%cfg.CheckpointSteps == 0 {
			if err := d.checkpoint(ctx, "inflationary", d.job.CurrInflationarySteps); err != nil {
				return err
			}
		}
	}
	if err := d.checkpoint(ctx, "inflationary-final", d.job.CurrInflationarySteps); err != nil {
		return err
	}

	for d.job.CurrKneadingSteps < cfg.KneadingSteps {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(errors.CodeIOError, "run cancelled", err)
		}
		advanced, err := d.attemptStep(ctx, "kneading", d.job.CurrKneadingSteps, StepParams{
			EllOut:                4,
			EllIn:                 4,
			ConvexIterations:      int(cfg.MaxConvexIterations),
			ReplacementIterations: int(cfg.MaxReplacementIterations),
		})
		if err != nil {
			return err
		}
		if !advanced {
			continue
		}
		d.job.CurrKneadingSteps++
		if d.job.CurrKneadingSteps%cfg.CheckpointSteps == 0 {
			if err := d.checkpoint(ctx, "kneading", d.job.CurrKneadingSteps); err != nil {
				return err
			}
		}
	}
	return d.checkpoint(ctx, "kneading-final", d.job.CurrKneadingSteps)
}

// attemptStep runs one mixing step and classifies the outcome: advanced on
// success, not-advanced on budget exhaustion (the retry signal), error on
// anything fatal. Every attempt emits one TRACE line with outcome and
// elapsed time.
func (d *Driver) attemptStep(ctx context.Context, stage string, step int64, params StepParams) (bool, error) {
	start := time.Now()
	err := d.mixer.Step(ctx, params, d.rng)
	elapsed := time.Since(start).Round(time.Microsecond)

	switch {
	case err == nil:
		d.log.Trace("[%s] step %d: success (ell_out=%d ell_in=%d gates=%d) in %v",
			stage, step, params.EllOut, params.EllIn, d.mixer.GateCount(), elapsed)
	case errors.IsBudgetExhausted(err):
		d.log.Trace("[%s] step %d: retry (%v) in %v", stage, step, err, elapsed)
		return false, nil
	default:
		d.log.Error("[%s] step %d: fatal: %v", stage, step, err)
		return false, err
	}

	if d.debug {
		if err := d.verifyEquivalence(stage, step); err != nil {
			return false, err
		}
	}
	return true, nil
}

// verifyEquivalence materialises the current circuit and checks it against
// the original. A mismatch is a bug in splice or collision analysis and
// always fatal; the differing output wire indices go to the log.
func (d *Driver) verifyEquivalence(stage string, step int64) error {
	current, err := d.mixer.Circuit()
	if err != nil {
		return err
	}
	ok, diff := model.CheckEquivalence(d.job.Original, current, int(d.job.Config.EquivalenceSamples), d.rng)
	if !ok {
		d.log.Error("[%s] step %d: equivalence failed, differing output wires %v", stage, step, diff)
		return errors.Newf(errors.CodeEquivalenceFailure,
			"circuit diverged from original at %s step %d, wires %v", stage, step, diff)
	}
	return nil
}

// checkpoint materialises the circuit, verifies equivalence, persists the
// job atomically, and feeds the optional history and archive sinks.
func (d *Driver) checkpoint(ctx context.Context, stage string, step int64) error {
	current, err := d.mixer.Circuit()
	if err != nil {
		return err
	}
	d.job.Current = current

	ok, diff := model.CheckEquivalence(d.job.Original, current, int(d.job.Config.EquivalenceSamples), d.rng)
	if !ok {
		d.log.Error("[%s] checkpoint at step %d: equivalence failed, differing output wires %v", stage, step, diff)
		return errors.Newf(errors.CodeEquivalenceFailure,
			"checkpoint equivalence failed at %s step %d, wires %v", stage, step, diff)
	}

	if err := d.job.Store(d.jobPath); err != nil {
		return err
	}
	digest := CircuitDigest(current)
	d.log.Info("[%s] checkpoint at step %d: %d gates, digest=%s", stage, step, len(current.Gates), digest)

	archiveKey := ""
	if d.archive != nil {
		archiveKey = fmt.Sprintf("jobs/%s/%s-step-%d.bin", filepath.Base(d.jobPath), stage, step)
		if err := d.archive.UploadFile(ctx, archiveKey, d.jobPath); err != nil {
			// Archival is best-effort; the authoritative copy is on disk.
			d.log.Warn("checkpoint archive upload failed: %v", err)
			archiveKey = ""
		}
	}

	if d.repo != nil {
		if err := d.repo.UpdateProgress(ctx, d.runID, step, len(current.Gates), digest); err != nil {
			d.log.Warn("history update failed: %v", err)
		}
		if err := d.repo.RecordCheckpoint(ctx, &repository.MixCheckpoint{
			RunID:         d.runID,
			Step:          step,
			Stage:         stage,
			GateCount:     len(current.Gates),
			CircuitDigest: digest,
			EquivalenceOK: true,
			ArchiveKey:    archiveKey,
		}); err != nil {
			d.log.Warn("checkpoint record failed: %v", err)
		}
	}
	return nil
}

// ensureRunRecord creates the history row for this run when a repository is
// configured.
func (d *Driver) ensureRunRecord(ctx context.Context) error {
	if d.repo == nil {
		return nil
	}
	run := &repository.MixRun{
		JobPath:        d.jobPath,
		Strategy:       int(d.job.Config.Strategy),
		WireCount:      d.job.Config.Wires,
		Status:         repository.RunStatusActive,
		GateCount:      d.mixer.GateCount(),
		CircuitDigest:  CircuitDigest(d.job.Current),
		OriginalDigest: CircuitDigest(d.job.Original),
	}
	if err := d.repo.CreateRun(ctx, run); err != nil {
		return err
	}
	d.runID = run.ID
	return nil
}

// finishRun closes out the history row; best-effort.
func (d *Driver) finishRun(ctx context.Context, status repository.RunStatus, reason string) {
	if d.repo == nil {
		return
	}
	if err := d.repo.FinishRun(ctx, d.runID, status, reason); err != nil {
		d.log.Warn("finishing run record failed: %v", err)
	}
}
