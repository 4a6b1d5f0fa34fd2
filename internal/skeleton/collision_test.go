package skeleton

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/circuit-mixer/pkg/model"
	"github.com/circuit-mixer/pkg/utils"
)

func TestCollisionSetsPairwise(t *testing.T) {
	n := 5
	gates := []model.Gate{
		model.NewAndGate(0, 0, 1, 3, n),
		model.NewAndGate(1, 3, 2, 4, n), // collides with 0 (target 3 is 0's control)
		model.NewAndGate(2, 1, 2, 4, n), // collides with 0 (target 1 is 0's control)
	}

	sets := CollisionSets(gates)
	assert.Equal(t, []int{1, 2}, sets[0])
	assert.Empty(t, sets[1])
	assert.Empty(t, sets[2])
}

func TestCollisionSetsKeepTransitiveEdges(t *testing.T) {
	n := 4
	// 0 -> 1 -> 2 chain where 0 also collides with 2 directly; the direct
	// edge must survive even though the chain already implies the ordering.
	gates := []model.Gate{
		model.NewAndGate(0, 0, 1, 2, n),
		model.NewAndGate(1, 1, 0, 3, n),
		model.NewAndGate(2, 2, 1, 3, n),
	}
	sets := CollisionSets(gates)
	assert.Equal(t, []int{1, 2}, sets[0])
	assert.Equal(t, []int{2}, sets[1])
}

func TestWeaklyConnectedMatchesComponentCount(t *testing.T) {
	// Property from the seed suite: on random 5-gate circuits the predicate
	// must agree with an undirected component count of 1.
	rng := utils.NewSeededRand(utils.SeedFromUint64(99))
	for trial := 0; trial < 500; trial++ {
		c, _ := model.SampleCircuit(5, 5, rng)
		sets := CollisionSets(c.Gates)

		assert.Equal(t, componentCount(sets) == 1, WeaklyConnected(sets), "trial %d", trial)
	}
}

func TestWeaklyConnectedEdgeCases(t *testing.T) {
	assert.True(t, WeaklyConnected(nil), "empty circuit is trivially connected")
	assert.True(t, WeaklyConnected([][]int{nil}), "single gate")
	assert.False(t, WeaklyConnected([][]int{nil, nil}), "two isolated gates")
}

// componentCount is an independent union-find reference implementation.
func componentCount(sets [][]int) int {
	m := len(sets)
	parent := make([]int, m)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	for i, set := range sets {
		for _, j := range set {
			ri, rj := find(i), find(j)
			if ri != rj {
				parent[ri] = rj
			}
		}
	}
	count := 0
	for i := range parent {
		if find(i) == i {
			count++
		}
	}
	return count
}
