package mixer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/circuit-mixer/internal/repository"
	"github.com/circuit-mixer/internal/storage"
	apperrors "github.com/circuit-mixer/pkg/errors"
	"github.com/circuit-mixer/pkg/model"
	"github.com/circuit-mixer/pkg/parallel"
	"github.com/circuit-mixer/pkg/utils"
)

func testPool() parallel.PoolConfig {
	return parallel.PoolConfig{MaxWorkers: 2}
}

func TestMixerSingleStep(t *testing.T) {
	rng := utils.NewSeededRand(utils.SeedFromUint64(1))
	original, _ := model.SampleCircuit(40, 6, rng)

	m := New(original, &utils.NullLogger{}, testPool())
	require.Equal(t, 40, m.GateCount())

	params := StepParams{EllOut: 3, EllIn: 4, ConvexIterations: 10000, ReplacementIterations: 1000000}
	for attempts := 0; attempts < 100; attempts++ {
		err := m.Step(context.Background(), params, rng)
		if err == nil {
			break
		}
		require.True(t, apperrors.IsBudgetExhausted(err), "step error must be retryable: %v", err)
	}

	mixed, err := m.Circuit()
	require.NoError(t, err)
	ok, diff := model.CheckEquivalence(original, mixed, 0, nil)
	assert.True(t, ok, "diff wires %v", diff)
}

func TestStrategy1EndToEnd(t *testing.T) {
	// 100 random gates on 6 wires, strategy 1, seeded RNG: the post-run
	// circuit must compute the same permutation.
	rng := utils.NewSeededRand(utils.SeedFromUint64(42))
	original, _ := model.SampleCircuit(100, 6, rng)

	job := &Job{
		Config: JobConfig{
			Wires:                    6,
			Strategy:                 Strategy1,
			TotalSteps:               25,
			MaxConvexIterations:      10000,
			MaxReplacementIterations: 1000000,
			CheckpointSteps:          10,
			EquivalenceSamples:       10000,
		},
		Current:  original.Clone(),
		Original: original,
	}

	jobPath := filepath.Join(t.TempDir(), "job.bin")
	driver := NewDriver(job, jobPath, DriverOptions{
		Pool:  testPool(),
		Rng:   utils.NewSeededRand(utils.SeedFromUint64(43)),
		Debug: true,
	})

	require.NoError(t, driver.Run(context.Background()))
	assert.Equal(t, int64(25), job.CurrTotalSteps)

	// The stored job reflects the finished run and stays equivalent.
	stored, err := Load(jobPath)
	require.NoError(t, err)
	ok, diff := model.CheckEquivalence(stored.Original, stored.Current, 0, nil)
	assert.True(t, ok, "diff wires %v", diff)
	assert.NotEqual(t, CircuitDigest(stored.Original), CircuitDigest(stored.Current),
		"mixing must actually change the gate-level structure")
}

func TestStrategy2EndToEnd(t *testing.T) {
	// Inflationary then kneading on 8 wires; equivalence must hold after
	// both stages.
	rng := utils.NewSeededRand(utils.SeedFromUint64(7))
	original, _ := model.SampleCircuit(60, 8, rng)

	job := &Job{
		Config: JobConfig{
			Wires:                    8,
			Strategy:                 Strategy2,
			InflationarySteps:        6,
			KneadingSteps:            6,
			MaxConvexIterations:      10000,
			MaxReplacementIterations: 2000000,
			CheckpointSteps:          3,
			EquivalenceSamples:       10000,
		},
		Current:  original.Clone(),
		Original: original,
	}

	jobPath := filepath.Join(t.TempDir(), "job.bin")
	driver := NewDriver(job, jobPath, DriverOptions{
		Pool: testPool(),
		Rng:  utils.NewSeededRand(utils.SeedFromUint64(8)),
	})

	require.NoError(t, driver.Run(context.Background()))
	assert.Equal(t, int64(6), job.CurrInflationarySteps)
	assert.Equal(t, int64(6), job.CurrKneadingSteps)

	ok, diff := model.CheckEquivalence(job.Original, job.Current, 0, nil)
	assert.True(t, ok, "diff wires %v", diff)
}

func TestDriverRecordsHistoryAndArchives(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	repo := repository.NewGormRunRepository(db)
	require.NoError(t, repo.Migrate())

	archiveDir := t.TempDir()
	archive, err := storage.NewLocalStorage(archiveDir)
	require.NoError(t, err)

	rng := utils.NewSeededRand(utils.SeedFromUint64(11))
	original, _ := model.SampleCircuit(50, 6, rng)

	job := &Job{
		Config: JobConfig{
			Wires:                    6,
			Strategy:                 Strategy1,
			TotalSteps:               6,
			MaxConvexIterations:      10000,
			MaxReplacementIterations: 1000000,
			CheckpointSteps:          3,
			EquivalenceSamples:       1000,
		},
		Current:  original.Clone(),
		Original: original,
	}

	jobPath := filepath.Join(t.TempDir(), "job.bin")
	driver := NewDriver(job, jobPath, DriverOptions{
		Pool:    testPool(),
		Rng:     utils.NewSeededRand(utils.SeedFromUint64(12)),
		Repo:    repo,
		Archive: archive,
	})
	require.NoError(t, driver.Run(context.Background()))

	ctx := context.Background()
	run, err := repo.GetRunByJobPath(ctx, jobPath)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, repository.RunStatusCompleted, run.Status)
	assert.Equal(t, int64(6), run.StepsDone)

	cps, err := repo.ListCheckpoints(ctx, run.ID)
	require.NoError(t, err)
	require.NotEmpty(t, cps)
	for _, cp := range cps {
		assert.True(t, cp.EquivalenceOK)
		if cp.ArchiveKey != "" {
			exists, err := archive.Exists(ctx, cp.ArchiveKey)
			require.NoError(t, err)
			assert.True(t, exists, "archived checkpoint %s missing", cp.ArchiveKey)
		}
	}
}

func TestDriverResumesProgress(t *testing.T) {
	rng := utils.NewSeededRand(utils.SeedFromUint64(21))
	original, _ := model.SampleCircuit(40, 6, rng)

	job := &Job{
		Config: JobConfig{
			Wires:                    6,
			Strategy:                 Strategy1,
			TotalSteps:               4,
			MaxConvexIterations:      10000,
			MaxReplacementIterations: 1000000,
			CheckpointSteps:          2,
			EquivalenceSamples:       1000,
		},
		CurrTotalSteps: 2, // resume midway
		Current:        original.Clone(),
		Original:       original,
	}

	jobPath := filepath.Join(t.TempDir(), "job.bin")
	driver := NewDriver(job, jobPath, DriverOptions{
		Pool: testPool(),
		Rng:  utils.NewSeededRand(utils.SeedFromUint64(22)),
	})
	require.NoError(t, driver.Run(context.Background()))
	assert.Equal(t, int64(4), job.CurrTotalSteps)
}
