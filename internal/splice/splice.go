// Package splice performs the graph surgery of a mixing step: remove the
// convex subcircuit C_out from the skeleton, insert the replacement C_in,
// and re-derive every dependency edge so that the skeleton again carries an
// edge for each colliding ordered pair of gates.
package splice

import (
	"context"
	"fmt"

	"github.com/circuit-mixer/internal/skeleton"
	"github.com/circuit-mixer/pkg/model"
	"github.com/circuit-mixer/pkg/parallel"
)

// RemapToDense rewrites the gates of a convex subcircuit onto the dense wire
// range [0, omega) where omega is the number of active wires. Gate ids are
// re-assigned by position, which is what the replacement search compares
// against. Returns the dense circuit and the dense-index -> original-wire
// table needed to map a replacement back.
func RemapToDense(gates []model.Gate, n int) (*model.Circuit, []model.Wire) {
	sub := model.NewCircuit(gates, n)
	active := sub.ActiveWires()

	origToDense := make(map[model.Wire]model.Wire, len(active))
	for dense, orig := range active {
		origToDense[orig] = model.Wire(dense)
	}

	omega := len(active)
	denseGates := make([]model.Gate, 0, len(gates))
	for pos, g := range gates {
		dense := model.NewAndGate(uint64(pos), origToDense[g.Target],
			origToDense[g.Controls[0]], origToDense[g.Controls[1]], omega)
		dense.Op = g.Op
		if g.Op == model.OpAnd3 {
			dense.Controls[2] = origToDense[g.Controls[2]]
		}
		denseGates = append(denseGates, dense)
	}
	return model.NewCircuit(denseGates, omega), active
}

// RemapToOriginal maps a replacement circuit from the dense range back onto
// the original wires, assigning each gate a fresh id from nextID.
func RemapToOriginal(cIn *model.Circuit, denseToOrig []model.Wire, n int, nextID func() uint64) []model.Gate {
	gates := make([]model.Gate, 0, len(cIn.Gates))
	for _, g := range cIn.Gates {
		mapped := model.NewAndGate(nextID(), denseToOrig[g.Target],
			denseToOrig[g.Controls[0]], denseToOrig[g.Controls[1]], n)
		mapped.Op = g.Op
		if g.Op == model.OpAnd3 {
			mapped.Controls[2] = denseToOrig[g.Controls[2]]
		}
		gates = append(gates, mapped)
	}
	return gates
}

// boundaryEdge is an edge between an existing node and a replacement gate,
// identified by the gate's position in the replacement sequence.
type boundaryEdge struct {
	node uint64
	pos  int
}

// Apply splices the replacement gates in place of the convex set:
//
//  1. insert one node per replacement gate plus all internal collision edges;
//  2. partition the remaining graph into ancestors (transitive predecessors
//     of the set's immediate predecessors), descendants (transitive
//     successors of its immediate successors) and outsiders (everything
//     else), and re-edge each against the replacement by collision —
//     ancestors and outsiders as predecessors, descendants as successors;
//  3. remove the convex set's nodes.
//
// The ancestor and descendant closures are walked concurrently; each
// partition's collision scan is fanned out over the worker pool, and the
// scans touch disjoint edge sets. The graph is never transitively reduced; every direct
// collision ends up with an edge, which step 2 relies on: colliding pairs
// that both survive the splice already have their edge from before.
//
// Panics if the ancestor and descendant sets intersect — that means the
// removed set was not convex, which is an invariant violation, never an
// input condition.
func Apply(g *skeleton.Graph, convexSet []uint64, replacement []model.Gate, config parallel.PoolConfig) []uint64 {
	inSet := make(map[uint64]bool, len(convexSet))
	for _, id := range convexSet {
		inSet[id] = true
	}

	// Immediate neighbourhood of the convex set.
	immPreds := make(map[uint64]bool)
	immSuccs := make(map[uint64]bool)
	for _, id := range convexSet {
		g.Preds(id, func(p uint64) {
			if !inSet[p] {
				immPreds[p] = true
			}
		})
		g.Succs(id, func(s uint64) {
			if !inSet[s] {
				immSuccs[s] = true
			}
		})
	}

	// The two transitive closures are independent; walk them concurrently.
	var ancestors, descendants map[uint64]bool
	done := make(chan struct{})
	go func() {
		ancestors = transitiveClosure(g, immPreds, false)
		close(done)
	}()
	descendants = transitiveClosure(g, immSuccs, true)
	<-done

	for _, id := range convexSet {
		delete(ancestors, id)
		delete(descendants, id)
	}
	for id := range ancestors {
		if descendants[id] {
			panic(fmt.Sprintf("splice: node %d is both ancestor and descendant; removed set was not convex", id))
		}
	}

	outsiders := make(map[uint64]bool)
	for _, id := range g.IDs() {
		if !inSet[id] && !ancestors[id] && !descendants[id] {
			outsiders[id] = true
		}
	}

	// Insert the replacement nodes and their internal collision edges.
	newIDs := make([]uint64, len(replacement))
	for i, gate := range replacement {
		g.AddNode(gate)
		newIDs[i] = gate.ID
	}
	for i, set := range skeleton.CollisionSets(replacement) {
		for _, j := range set {
			g.AddEdge(newIDs[i], newIDs[j])
		}
	}

	// Boundary re-edge: collision scans run in parallel per partition, then
	// the edges are applied on the single writer goroutine.
	incoming := collisionScan(g, keys(ancestors), replacement, config)
	incoming = append(incoming, collisionScan(g, keys(outsiders), replacement, config)...)
	outgoing := collisionScan(g, keys(descendants), replacement, config)

	for _, e := range incoming {
		g.AddEdge(e.node, newIDs[e.pos])
	}
	for _, e := range outgoing {
		g.AddEdge(newIDs[e.pos], e.node)
	}

	// Drop the convex set last; its edges go with it.
	for _, id := range convexSet {
		g.RemoveNode(id)
	}

	return newIDs
}

// transitiveClosure walks from the roots along predecessor edges (forward
// false) or successor edges (forward true), returning every reached node,
// roots included.
func transitiveClosure(g *skeleton.Graph, roots map[uint64]bool, forward bool) map[uint64]bool {
	closed := make(map[uint64]bool, len(roots))
	stack := make([]uint64, 0, len(roots))
	for id := range roots {
		closed[id] = true
		stack = append(stack, id)
	}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visit := func(next uint64) {
			if !closed[next] {
				closed[next] = true
				stack = append(stack, next)
			}
		}
		if forward {
			g.Succs(cur, visit)
		} else {
			g.Preds(cur, visit)
		}
	}
	return closed
}

// collisionScan finds every (node, replacement gate) colliding pair over the
// given nodes, fanned out over the worker pool.
func collisionScan(g *skeleton.Graph, nodes []uint64, replacement []model.Gate, config parallel.PoolConfig) []boundaryEdge {
	if len(nodes) == 0 {
		return nil
	}

	processor := parallel.NewChunkProcessor[uint64, []boundaryEdge](config)
	return processor.ProcessChunks(
		context.Background(),
		nodes,
		func(_ context.Context, chunk []uint64, _ int) []boundaryEdge {
			var edges []boundaryEdge
			for _, id := range chunk {
				gate, ok := g.Gate(id)
				if !ok {
					continue
				}
				for pos, rep := range replacement {
					if gate.CollidesWith(rep) {
						edges = append(edges, boundaryEdge{node: id, pos: pos})
					}
				}
			}
			return edges
		},
		func(results [][]boundaryEdge) []boundaryEdge {
			var merged []boundaryEdge
			for _, r := range results {
				merged = append(merged, r...)
			}
			return merged
		},
	)
}

// OrderedSubset filters a topological order down to the given members,
// preserving order. This is how the convex set becomes the gate sequence
// C_out: any topological restriction of a convex set is a valid subcircuit.
func OrderedSubset(order []uint64, members []uint64) []uint64 {
	inSet := make(map[uint64]bool, len(members))
	for _, id := range members {
		inSet[id] = true
	}
	out := make([]uint64, 0, len(members))
	for _, id := range order {
		if inSet[id] {
			out = append(out, id)
		}
	}
	return out
}

func keys(set map[uint64]bool) []uint64 {
	out := make([]uint64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
