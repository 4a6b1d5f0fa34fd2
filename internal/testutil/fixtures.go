// Package testutil provides shared fixtures and assertions for the mixing
// test suites.
package testutil

import (
	mathrand "math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/circuit-mixer/internal/mixer"
	"github.com/circuit-mixer/pkg/model"
	"github.com/circuit-mixer/pkg/utils"
)

// Rng returns a deterministic RNG for the given test seed.
func Rng(seed uint64) *mathrand.Rand {
	return utils.NewSeededRand(utils.SeedFromUint64(seed))
}

// RandomCircuit samples a valid random circuit and fails the test on an
// invalid draw.
func RandomCircuit(t *testing.T, gateCount, n int, seed uint64) *model.Circuit {
	t.Helper()
	c, _ := model.SampleCircuit(gateCount, n, Rng(seed))
	require.NoError(t, c.Validate())
	return c
}

// NewJob builds an in-memory job around a circuit with small budgets fit
// for tests.
func NewJob(t *testing.T, original *model.Circuit, strategy mixer.Strategy, steps int64) *mixer.Job {
	t.Helper()
	job := &mixer.Job{
		Config: mixer.JobConfig{
			Wires:                    original.N,
			Strategy:                 strategy,
			MaxConvexIterations:      10000,
			MaxReplacementIterations: 1000000,
			CheckpointSteps:          5,
			EquivalenceSamples:       1000,
		},
		Current:  original.Clone(),
		Original: original,
	}
	switch strategy {
	case mixer.Strategy1:
		job.Config.TotalSteps = steps
	case mixer.Strategy2:
		job.Config.InflationarySteps = steps
		job.Config.KneadingSteps = steps
	}
	return job
}
