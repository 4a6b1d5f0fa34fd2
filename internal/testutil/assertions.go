package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circuit-mixer/internal/skeleton"
	"github.com/circuit-mixer/pkg/model"
)

// AssertEquivalent fails unless both circuits compute the same permutation.
// Exhaustive within the packed limit, sampled beyond it.
func AssertEquivalent(t *testing.T, want, got *model.Circuit, seed uint64) {
	t.Helper()
	ok, diff := model.CheckEquivalence(want, got, 10000, Rng(seed))
	assert.True(t, ok, "circuits differ on output wires %v", diff)
}

// AssertAcyclic fails unless the skeleton admits a topological order.
func AssertAcyclic(t *testing.T, g *skeleton.Graph) {
	t.Helper()
	_, err := skeleton.TopoSort(g)
	require.NoError(t, err)
}

// AssertCollisionComplete fails unless every colliding node pair of the
// skeleton has a direct edge.
func AssertCollisionComplete(t *testing.T, g *skeleton.Graph) {
	t.Helper()
	ids := g.IDs()
	for i, u := range ids {
		gu, ok := g.Gate(u)
		require.True(t, ok)
		for _, v := range ids[i+1:] {
			gv, _ := g.Gate(v)
			if gu.CollidesWith(gv) {
				assert.True(t, g.HasEdge(u, v) || g.HasEdge(v, u),
					"colliding gates %d and %d have no dependency edge", u, v)
			}
		}
	}
}
