package skeleton

import (
	"github.com/circuit-mixer/pkg/collections"
	"github.com/circuit-mixer/pkg/model"
)

// CollisionSets computes C[i] = { j > i : gate i collides with gate j } for
// a gate sequence, position-indexed. O(m^2 * k) pairwise scan.
//
// The sets are deliberately NOT reduced by transitivity: the skeleton graph
// must carry every direct-collision edge or the splice boundary pass loses
// the ability to identify first colliding descendants.
func CollisionSets(gates []model.Gate) [][]int {
	sets := make([][]int, len(gates))
	for i := range gates {
		var set []int
		for j := i + 1; j < len(gates); j++ {
			if gates[i].CollidesWith(gates[j]) {
				set = append(set, j)
			}
		}
		sets[i] = set
	}
	return sets
}

// WeaklyConnected reports whether the collision sets of a gate sequence form
// a single component when edge directions are ignored. A replacement whose
// collision graph splits into components could be decomposed by an adversary
// into independent subcircuits, so the replacement search rejects those.
func WeaklyConnected(sets [][]int) bool {
	m := len(sets)
	if m == 0 {
		return true
	}

	// Undirected adjacency over gate positions.
	adj := make([][]int, m)
	for i, set := range sets {
		for _, j := range set {
			adj[i] = append(adj[i], j)
			adj[j] = append(adj[j], i)
		}
	}

	visited := collections.NewBitset(m)
	stack := []int{0}
	visited.Set(0)
	count := 1
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range adj[cur] {
			if !visited.Test(next) {
				visited.Set(next)
				count++
				stack = append(stack, next)
			}
		}
	}
	return count == m
}
