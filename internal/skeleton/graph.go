// Package skeleton maintains the dependency DAG of a circuit: one node per
// gate, one edge per direct wire collision between gates in circuit order.
// Any topological order of the skeleton is a semantically equivalent gate
// sequence, which is what lets the mixer cut convex pieces out and splice
// replacements in.
package skeleton

import (
	"fmt"
	"sort"

	"github.com/circuit-mixer/pkg/model"
)

// nodeEntry holds a gate and its adjacency. Edges point from earlier to
// later gates; the graph is never transitively reduced, because splice
// correctness depends on every direct-collision edge being present.
type nodeEntry struct {
	gate  model.Gate
	succs map[uint64]struct{}
	preds map[uint64]struct{}
}

// Graph is the skeleton DAG. Nodes are addressed by gate id; ids are stable
// across splices and never reused after removal. Only splice operations
// mutate the graph.
type Graph struct {
	nodes map[uint64]*nodeEntry
	edges int
}

// NewGraph creates an empty skeleton graph.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[uint64]*nodeEntry)}
}

// Build constructs the skeleton of a circuit from its collision sets.
func Build(c *model.Circuit) *Graph {
	g := NewGraph()
	for _, gate := range c.Gates {
		g.AddNode(gate)
	}
	sets := CollisionSets(c.Gates)
	for i, set := range sets {
		for _, j := range set {
			g.AddEdge(c.Gates[i].ID, c.Gates[j].ID)
		}
	}
	return g
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	return g.edges
}

// Has reports whether the gate id is present.
func (g *Graph) Has(id uint64) bool {
	_, ok := g.nodes[id]
	return ok
}

// Gate returns the gate stored at the node.
func (g *Graph) Gate(id uint64) (model.Gate, bool) {
	entry, ok := g.nodes[id]
	if !ok {
		return model.Gate{}, false
	}
	return entry.gate, true
}

// AddNode inserts a gate as a fresh node. Panics if the id already exists:
// ids are unique for the life of the process.
func (g *Graph) AddNode(gate model.Gate) {
	if _, ok := g.nodes[gate.ID]; ok {
		panic(fmt.Sprintf("skeleton: duplicate node id %d", gate.ID))
	}
	g.nodes[gate.ID] = &nodeEntry{
		gate:  gate,
		succs: make(map[uint64]struct{}),
		preds: make(map[uint64]struct{}),
	}
}

// AddEdge inserts the edge u -> v. Missing endpoints panic: the splice code
// only wires nodes it just looked up.
func (g *Graph) AddEdge(u, v uint64) {
	nu, ok := g.nodes[u]
	if !ok {
		panic(fmt.Sprintf("skeleton: edge source %d not present", u))
	}
	nv, ok := g.nodes[v]
	if !ok {
		panic(fmt.Sprintf("skeleton: edge target %d not present", v))
	}
	if _, dup := nu.succs[v]; dup {
		return
	}
	nu.succs[v] = struct{}{}
	nv.preds[u] = struct{}{}
	g.edges++
}

// HasEdge reports whether the edge u -> v exists.
func (g *Graph) HasEdge(u, v uint64) bool {
	nu, ok := g.nodes[u]
	if !ok {
		return false
	}
	_, ok = nu.succs[v]
	return ok
}

// RemoveNode deletes the node and all its incident edges. The id is retired
// permanently.
func (g *Graph) RemoveNode(id uint64) {
	entry, ok := g.nodes[id]
	if !ok {
		return
	}
	for s := range entry.succs {
		delete(g.nodes[s].preds, id)
		g.edges--
	}
	for p := range entry.preds {
		delete(g.nodes[p].succs, id)
		g.edges--
	}
	delete(g.nodes, id)
}

// Succs calls fn for each successor of id.
func (g *Graph) Succs(id uint64, fn func(succ uint64)) {
	if entry, ok := g.nodes[id]; ok {
		for s := range entry.succs {
			fn(s)
		}
	}
}

// Preds calls fn for each predecessor of id.
func (g *Graph) Preds(id uint64, fn func(pred uint64)) {
	if entry, ok := g.nodes[id]; ok {
		for p := range entry.preds {
			fn(p)
		}
	}
}

// IDs returns all node ids in ascending order. Sorting keeps downstream
// randomized searches reproducible for a fixed seed.
func (g *Graph) IDs() []uint64 {
	ids := make([]uint64, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Snapshot is a dense, read-only view of the graph used by the level oracle
// and the convex search. Node order is ascending gate id.
type Snapshot struct {
	IDs   []uint64
	Index map[uint64]int32
	Gates []model.Gate
	Succs [][]int32
	Preds [][]int32
}

// Snapshot materialises the current graph into index space.
func (g *Graph) Snapshot() *Snapshot {
	ids := g.IDs()
	index := make(map[uint64]int32, len(ids))
	for i, id := range ids {
		index[id] = int32(i)
	}

	snap := &Snapshot{
		IDs:   ids,
		Index: index,
		Gates: make([]model.Gate, len(ids)),
		Succs: make([][]int32, len(ids)),
		Preds: make([][]int32, len(ids)),
	}
	for i, id := range ids {
		entry := g.nodes[id]
		snap.Gates[i] = entry.gate
		succs := make([]int32, 0, len(entry.succs))
		for s := range entry.succs {
			succs = append(succs, index[s])
		}
		sort.Slice(succs, func(a, b int) bool { return succs[a] < succs[b] })
		snap.Succs[i] = succs

		preds := make([]int32, 0, len(entry.preds))
		for p := range entry.preds {
			preds = append(preds, index[p])
		}
		sort.Slice(preds, func(a, b int) bool { return preds[a] < preds[b] })
		snap.Preds[i] = preds
	}
	return snap
}
