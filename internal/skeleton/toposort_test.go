package skeleton

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circuit-mixer/pkg/errors"
	"github.com/circuit-mixer/pkg/model"
)

func TestTopoSortRespectsEdges(t *testing.T) {
	_, g := sampleGraph(t, 40, 6, 5)

	order, err := TopoSort(g)
	require.NoError(t, err)
	require.Len(t, order, g.NodeCount())

	pos := make(map[uint64]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	for _, u := range g.IDs() {
		g.Succs(u, func(v uint64) {
			assert.Less(t, pos[u], pos[v], "edge %d->%d out of order", u, v)
		})
	}
}

func TestTopoSortCircuitIsEquivalent(t *testing.T) {
	c, g := sampleGraph(t, 50, 8, 6)

	order, err := TopoSort(g)
	require.NoError(t, err)

	reordered := ToCircuit(g, order, c.N)
	ok, diff := model.CheckEquivalence(c, reordered, 0, nil)
	assert.True(t, ok, "any topological order is semantically equivalent, diff=%v", diff)
}

func TestTopoSortDetectsCycle(t *testing.T) {
	n := 6
	g := NewGraph()
	g.AddNode(model.NewAndGate(1, 0, 1, 2, n))
	g.AddNode(model.NewAndGate(2, 1, 0, 3, n))
	g.AddEdge(1, 2)
	g.AddEdge(2, 1)

	_, err := TopoSort(g)
	require.Error(t, err)
	assert.Equal(t, errors.CodeCycleDetected, errors.GetErrorCode(err))
}
