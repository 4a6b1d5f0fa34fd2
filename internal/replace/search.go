// Package replace searches for a random circuit that computes the same
// permutation as an extracted subcircuit. The replacement must differ from
// the original as a gate sequence and its collision graph must be weakly
// connected, so the spliced-in piece cannot be peeled apart into independent
// subcircuits by inspection.
package replace

import (
	"context"
	mathrand "math/rand/v2"

	"github.com/circuit-mixer/internal/skeleton"
	"github.com/circuit-mixer/pkg/collections"
	"github.com/circuit-mixer/pkg/model"
	"github.com/circuit-mixer/pkg/parallel"
	"github.com/circuit-mixer/pkg/utils"
)

// rowOrderPool recycles the per-worker shuffled row-order scratch; a fresh
// search runs every mixing step.
var rowOrderPool = collections.NewSlicePool[int](4096)

// MinActiveWires is the smallest wire count a subcircuit can have and still
// admit a non-trivial equivalent replacement. The driver rejects convex sets
// whose active wire span is below this.
const MinActiveWires = 4

// Searcher runs the randomized replacement search.
type Searcher struct {
	config parallel.PoolConfig
}

// NewSearcher creates a searcher with the given worker pool configuration.
func NewSearcher(config parallel.PoolConfig) *Searcher {
	return &Searcher{config: config}
}

// Find samples random circuits of ellIn gates over cOut's dense wire range
// until one matches cOut's full truth table, differs from cOut as a gate
// sequence, and has a weakly connected collision graph. The iteration budget
// is split evenly across workers, each drawing from an independently forked
// RNG; the first success wins. Returns nil when the whole budget is spent —
// the driver treats that as a retry, not an error.
//
// cOut must be rewritten over wires [0, omega) with omega in
// (MinActiveWires-1, MaxPackedWires].
func (s *Searcher) Find(ctx context.Context, cOut *model.Circuit, ellIn, maxIterations int, rng *mathrand.Rand) *model.Circuit {
	omega := cOut.N
	if omega < MinActiveWires || omega > model.MaxPackedWires || ellIn < len(cOut.Gates) {
		return nil
	}

	// Full truth table of the subcircuit: outputs[i] is the packed image of
	// input i. Feasible because omega stays small regardless of the outer
	// circuit's width.
	outputs, err := model.PermutationTable(cOut)
	if err != nil {
		return nil
	}
	rows := len(outputs)

	numWorkers := s.config.MaxWorkers
	if numWorkers <= 0 {
		numWorkers = parallel.DefaultPoolConfig().MaxWorkers
	}
	perWorker := maxIterations / numWorkers
	if perWorker == 0 {
		perWorker = 1
	}

	// Fork the worker RNG streams up front; forking inside the race would
	// make the streams depend on scheduling.
	workerRngs := make([]*mathrand.Rand, numWorkers)
	for w := range workerRngs {
		workerRngs[w] = utils.ForkRand(rng)
	}

	result, found := parallel.Race(ctx, s.config.WithWorkers(numWorkers), func(raceCtx context.Context, workerID int) (*model.Circuit, bool) {
		workerRng := workerRngs[workerID]

		// Each worker probes the table in its own shuffled row order, so a
		// mismatch is detected on a random row and the expected number of
		// rows evaluated per candidate stays constant.
		scratch := rowOrderPool.Get()
		defer rowOrderPool.Put(scratch)
		rowOrder := *scratch
		for i := 0; i < rows; i++ {
			rowOrder = append(rowOrder, i)
		}
		*scratch = rowOrder
		workerRng.Shuffle(rows, func(i, j int) {
			rowOrder[i], rowOrder[j] = rowOrder[j], rowOrder[i]
		})

		seen := make(map[string]int)

		for iter := 0; iter < perWorker; iter++ {
			if iter%1024 == 0 {
				select {
				case <-raceCtx.Done():
					return nil, false
				default:
				}
			}

			candidate, trace := model.SampleCircuit(ellIn, omega, workerRng)
			if _, dup := seen[trace]; dup {
				seen[trace]++
				continue
			}
			seen[trace] = 1

			if !matchesTable(candidate, outputs, rowOrder) {
				continue
			}
			if candidate.SameGates(cOut) {
				continue
			}
			if !skeleton.WeaklyConnected(skeleton.CollisionSets(candidate.Gates)) {
				continue
			}
			return candidate, true
		}
		return nil, false
	})

	if !found {
		return nil
	}
	return result
}

// matchesTable evaluates the candidate against the truth table in the given
// row order, short-circuiting on the first mismatch.
func matchesTable(candidate *model.Circuit, outputs []uint64, rowOrder []int) bool {
	for _, row := range rowOrder {
		if candidate.RunPacked(uint64(row)) != outputs[row] {
			return false
		}
	}
	return true
}
