package skeleton

import (
	"container/heap"

	"github.com/circuit-mixer/pkg/errors"
	"github.com/circuit-mixer/pkg/model"
)

// idHeap is a min-heap of gate ids; TopoSort pops the smallest ready id so
// the produced order is deterministic for a given graph.
type idHeap []uint64

func (h idHeap) Len() int            { return len(h) }
func (h idHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h idHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *idHeap) Push(x interface{}) { *h = append(*h, x.(uint64)) }
func (h *idHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// TopoSort returns a topological order of the gate ids, or ErrCycleDetected
// if the graph is not a DAG. A cycle after a splice is always a bug and is
// treated as fatal by the driver.
func TopoSort(g *Graph) ([]uint64, error) {
	indeg := make(map[uint64]int, g.NodeCount())
	ready := &idHeap{}
	for _, id := range g.IDs() {
		d := len(g.nodes[id].preds)
		indeg[id] = d
		if d == 0 {
			*ready = append(*ready, id)
		}
	}
	heap.Init(ready)

	order := make([]uint64, 0, g.NodeCount())
	for ready.Len() > 0 {
		id := heap.Pop(ready).(uint64)
		order = append(order, id)
		for s := range g.nodes[id].succs {
			indeg[s]--
			if indeg[s] == 0 {
				heap.Push(ready, s)
			}
		}
	}

	if len(order) != g.NodeCount() {
		return nil, errors.Newf(errors.CodeCycleDetected,
			"topological sort visited %d of %d nodes", len(order), g.NodeCount())
	}
	return order, nil
}

// ToCircuit materialises the circuit corresponding to a topological order.
func ToCircuit(g *Graph, order []uint64, n int) *model.Circuit {
	gates := make([]model.Gate, 0, len(order))
	for _, id := range order {
		gate, ok := g.Gate(id)
		if !ok {
			panic("skeleton: topological order references a removed node")
		}
		gates = append(gates, gate)
	}
	return model.NewCircuit(gates, n)
}
