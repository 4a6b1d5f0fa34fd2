package replace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circuit-mixer/internal/skeleton"
	"github.com/circuit-mixer/pkg/model"
	"github.com/circuit-mixer/pkg/parallel"
	"github.com/circuit-mixer/pkg/utils"
)

// denseSubcircuit builds a small connected subcircuit over [0, omega) to
// stand in for an extracted convex piece.
func denseSubcircuit(omega int) *model.Circuit {
	gates := []model.Gate{
		model.NewAndGate(0, 0, 1, 2, omega),
		model.NewAndGate(1, 1, 0, 3, omega),
	}
	return model.NewCircuit(gates, omega)
}

func TestFindReturnsEquivalentReplacement(t *testing.T) {
	cOut := denseSubcircuit(4)
	searcher := NewSearcher(parallel.PoolConfig{MaxWorkers: 4})
	rng := utils.NewSeededRand(utils.SeedFromUint64(7))

	cIn := searcher.Find(context.Background(), cOut, 4, 2_000_000, rng)
	require.NotNil(t, cIn, "a 4-gate replacement over 4 wires exists and the budget is ample")

	// (a) identical permutation on every input.
	ok, diff := model.CheckEquivalence(cOut, cIn, 0, nil)
	assert.True(t, ok, "diff wires %v", diff)

	// (b) a different gate sequence.
	assert.False(t, cIn.SameGates(cOut))

	// (c) weakly connected collision graph.
	assert.True(t, skeleton.WeaklyConnected(skeleton.CollisionSets(cIn.Gates)))

	// Shape: ellIn gates over the same dense range.
	assert.Len(t, cIn.Gates, 4)
	assert.Equal(t, cOut.N, cIn.N)
}

func TestFindRejectsNarrowSubcircuits(t *testing.T) {
	searcher := NewSearcher(parallel.PoolConfig{MaxWorkers: 2})
	rng := utils.NewSeededRand(utils.SeedFromUint64(9))

	cOut := denseSubcircuit(3)
	assert.Nil(t, searcher.Find(context.Background(), cOut, 4, 1000, rng),
		"fewer than %d active wires has no searchable replacement space", MinActiveWires)
}

func TestFindRespectsBudget(t *testing.T) {
	// With a budget of one iteration per worker the search essentially
	// always fails.
	cOut := denseSubcircuit(5)
	searcher := NewSearcher(parallel.PoolConfig{MaxWorkers: 2})
	rng := utils.NewSeededRand(utils.SeedFromUint64(13))

	misses := 0
	for trial := 0; trial < 10; trial++ {
		if searcher.Find(context.Background(), cOut, 4, 2, utils.ForkRand(rng)) == nil {
			misses++
		}
	}
	assert.Greater(t, misses, 7)
}

func TestFindRejectsSmallerEllIn(t *testing.T) {
	cOut := denseSubcircuit(4)
	searcher := NewSearcher(parallel.PoolConfig{MaxWorkers: 2})
	rng := utils.NewSeededRand(utils.SeedFromUint64(15))

	assert.Nil(t, searcher.Find(context.Background(), cOut, 1, 1000, rng),
		"ellIn below the subcircuit size is rejected up front")
}

func TestMatchesTableShortCircuits(t *testing.T) {
	omega := 4
	cOut := denseSubcircuit(omega)
	outputs, err := model.PermutationTable(cOut)
	require.NoError(t, err)

	rowOrder := make([]int, len(outputs))
	for i := range rowOrder {
		rowOrder[i] = i
	}

	assert.True(t, matchesTable(cOut.Clone(), outputs, rowOrder))

	different := model.NewCircuit([]model.Gate{
		model.NewAndGate(0, 3, 0, 1, omega),
	}, omega)
	assert.False(t, matchesTable(different, outputs, rowOrder))
}

func TestFindIsDeterministicPerSeedSingleWorker(t *testing.T) {
	cOut := denseSubcircuit(4)
	searcher := NewSearcher(parallel.PoolConfig{MaxWorkers: 1})

	a := searcher.Find(context.Background(), cOut, 4, 500_000, utils.NewSeededRand(utils.SeedFromUint64(99)))
	b := searcher.Find(context.Background(), cOut, 4, 500_000, utils.NewSeededRand(utils.SeedFromUint64(99)))
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.True(t, a.SameGates(b), "single-worker search is reproducible for a fixed seed")
}
