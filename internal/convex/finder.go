// Package convex finds random convex induced subgraphs of the skeleton: sets
// S where every DAG path between two members of S stays inside S. Convexity
// is what makes it legal to cut the subcircuit out and replace it with any
// functionally equivalent one.
package convex

import (
	"context"
	mathrand "math/rand/v2"
	"sync"

	"github.com/circuit-mixer/internal/skeleton"
	"github.com/circuit-mixer/pkg/collections"
	"github.com/circuit-mixer/pkg/parallel"
	"github.com/circuit-mixer/pkg/utils"
)

// Result is a found convex set: the seed node the growth started from and
// the member node indices into the snapshot.
type Result struct {
	Seed  int32
	Nodes []int32
}

// Finder runs the randomized convex-set search over a snapshot and its level
// oracle. The snapshot and levels are read-only for the finder's lifetime.
type Finder struct {
	snap   *skeleton.Snapshot
	levels []int32
	config parallel.PoolConfig
}

// NewFinder creates a finder over a snapshot with precomputed levels.
func NewFinder(snap *skeleton.Snapshot, levels []int32, config parallel.PoolConfig) *Finder {
	return &Finder{snap: snap, levels: levels, config: config}
}

// Find searches for a convex set of exactly ellOut nodes within
// maxIterations seed attempts, racing one worker per pool slot. Workers
// share the seed pool; the first to succeed clears it and the rest drain
// out. Returns nil when the budget is exhausted — a retry signal for the
// driver, not an error.
func (f *Finder) Find(ctx context.Context, ellOut, maxIterations int, rng *mathrand.Rand) *Result {
	if len(f.snap.IDs) < ellOut || ellOut <= 0 {
		return nil
	}

	pool := newSeedPool(len(f.snap.IDs), maxIterations, rng)

	result, found := parallel.Race(ctx, f.config, func(raceCtx context.Context, workerID int) (*Result, bool) {
		workerRng := pool.forkRng(workerID)
		grower := newGrower(f.snap, f.levels, ellOut)
		for {
			select {
			case <-raceCtx.Done():
				return nil, false
			default:
			}
			seed, ok := pool.next(workerRng)
			if !ok {
				return nil, false
			}
			if nodes := grower.grow(seed); nodes != nil {
				pool.clear()
				return &Result{Seed: seed, Nodes: nodes}, true
			}
		}
	})
	if !found {
		return nil
	}
	return result
}

// grower holds the per-worker scratch state for convex growth. Reused across
// seed attempts so the bitsets and DFS buffers are not reallocated per seed.
type grower struct {
	snap   *skeleton.Snapshot
	levels []int32
	ellOut int

	inSet    *collections.VersionedBitset // membership of S
	members  []int32
	explored *collections.VersionedBitset // candidates already rejected

	// DFS scratch.
	withPath     *collections.VersionedBitset // nodes on some S -> candidate path
	visited      *collections.VersionedBitset
	path         []int32
	pathNodes    []int32 // members of withPath, for transfer into S
	overflowed   bool
	candLevel    int32
	candidateIdx int32
}

func newGrower(snap *skeleton.Snapshot, levels []int32, ellOut int) *grower {
	n := len(snap.IDs)
	return &grower{
		snap:     snap,
		levels:   levels,
		ellOut:   ellOut,
		inSet:    collections.NewVersionedBitset(n),
		explored: collections.NewVersionedBitset(n),
		withPath: collections.NewVersionedBitset(n),
		visited:  collections.NewVersionedBitset(n),
	}
}

// grow attempts to build a convex set of size ellOut starting from seed.
// Returns the member indices on success, nil when the growth dead-ends.
func (gr *grower) grow(seed int32) []int32 {
	gr.inSet.Reset()
	gr.explored.Reset()
	gr.inSet.Set(int(seed))
	gr.members = append(gr.members[:0], seed)

	var candidates []int32
	for _, s := range gr.snap.Succs[seed] {
		candidates = append(candidates, s)
	}

	for len(gr.members) < gr.ellOut {
		if len(candidates) == 0 {
			return nil
		}
		candidate := candidates[len(candidates)-1]
		candidates = candidates[:len(candidates)-1]
		if gr.inSet.Test(int(candidate)) || gr.explored.Test(int(candidate)) {
			continue
		}

		newNodes := gr.closure(candidate)
		if newNodes == nil {
			// Closure would overflow ellOut; remember the dead end.
			gr.explored.Set(int(candidate))
			continue
		}

		for _, v := range newNodes {
			gr.inSet.Set(int(v))
			gr.members = append(gr.members, v)
		}
		if len(gr.members) < gr.ellOut {
			// The freshly absorbed nodes expose new frontier edges.
			for _, v := range newNodes {
				for _, s := range gr.snap.Succs[v] {
					if !gr.inSet.Test(int(s)) && !gr.explored.Test(int(s)) {
						candidates = append(candidates, s)
					}
				}
			}
		}
	}

	out := make([]int32, len(gr.members))
	copy(out, gr.members)
	return out
}

// closure collects every node outside S that lies on some path from an
// S-member to the candidate (the candidate included). Returns nil when the
// closure would push |S| past ellOut.
//
// Two prunes keep this cheap: the DFS aborts as soon as the collected set
// can no longer fit, and it never descends into nodes whose level is >= the
// candidate's, since level increases strictly along every path.
func (gr *grower) closure(candidate int32) []int32 {
	gr.withPath.Reset()
	gr.visited.Reset()
	gr.path = gr.path[:0]
	gr.pathNodes = gr.pathNodes[:0]
	gr.overflowed = false
	gr.candLevel = gr.levels[candidate]
	gr.candidateIdx = candidate

	gr.withPath.Set(int(candidate))
	if !gr.inSet.Test(int(candidate)) {
		gr.pathNodes = append(gr.pathNodes, candidate)
	}

	for _, source := range gr.members {
		gr.dfs(source)
		if gr.overflowed {
			return nil
		}
	}

	if len(gr.pathNodes)+len(gr.members) > gr.ellOut {
		return nil
	}
	out := make([]int32, len(gr.pathNodes))
	copy(out, gr.pathNodes)
	return out
}

// dfs walks outgoing edges, recording every node whose path reaches the
// candidate (or another already-recorded node).
func (gr *grower) dfs(node int32) {
	if gr.overflowed {
		return
	}
	if gr.withPath.Test(int(node)) {
		// The whole current path reaches the candidate.
		for _, p := range gr.path {
			if !gr.withPath.Test(int(p)) {
				gr.withPath.Set(int(p))
				if !gr.inSet.Test(int(p)) {
					gr.pathNodes = append(gr.pathNodes, p)
					if len(gr.pathNodes)+len(gr.members) > gr.ellOut {
						gr.overflowed = true
						return
					}
				}
			}
		}
		return
	}
	if gr.visited.Test(int(node)) {
		return
	}
	// A node at or above the candidate's level cannot sit on a path that
	// still has to descend to the candidate.
	if node != gr.candidateIdx && gr.levels[node] >= gr.candLevel {
		gr.visited.Set(int(node))
		return
	}

	gr.path = append(gr.path, node)
	for _, s := range gr.snap.Succs[node] {
		gr.dfs(s)
		if gr.overflowed {
			return
		}
	}
	gr.path = gr.path[:len(gr.path)-1]
	gr.visited.Set(int(node))
}

// IsConvex verifies that every path between two members of the set stays in
// the set. Quadratic in the worst case; used by tests and debug checks.
func IsConvex(snap *skeleton.Snapshot, nodes []int32) bool {
	inSet := make(map[int32]bool, len(nodes))
	for _, v := range nodes {
		inSet[v] = true
	}

	// From each member, walk forward; any path that leaves the set and
	// re-enters it witnesses a convexity violation.
	for _, start := range nodes {
		type frame struct {
			node    int32
			outside bool
		}
		stack := []frame{{start, false}}
		visited := make(map[frame]bool)
		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if visited[f] {
				continue
			}
			visited[f] = true
			for _, s := range snap.Succs[f.node] {
				if inSet[s] {
					if f.outside {
						return false
					}
					stack = append(stack, frame{s, false})
				} else {
					stack = append(stack, frame{s, true})
				}
			}
		}
	}
	return true
}

// seedPool is the shared, mutex-guarded stack of seed nodes. It holds a
// shuffled permutation of all nodes and refills (reshuffled) while the
// attempt budget lasts. A winning worker clears it so the others observe an
// empty pool and exit.
type seedPool struct {
	mu        sync.Mutex
	seeds     []int32
	nodeCount int
	budget    int
	cleared   bool
	parentRng *mathrand.Rand
}

func newSeedPool(nodeCount, budget int, rng *mathrand.Rand) *seedPool {
	p := &seedPool{
		nodeCount: nodeCount,
		budget:    budget,
		parentRng: rng,
	}
	p.refill(rng)
	return p
}

// forkRng derives the worker's private RNG stream from the pool's parent.
// Serialized under the pool lock so concurrent workers fork distinct,
// deterministic streams.
func (p *seedPool) forkRng(workerID int) *mathrand.Rand {
	p.mu.Lock()
	defer p.mu.Unlock()
	return utils.ForkRand(p.parentRng)
}

func (p *seedPool) refill(rng *mathrand.Rand) {
	p.seeds = p.seeds[:0]
	for i := 0; i < p.nodeCount; i++ {
		p.seeds = append(p.seeds, int32(i))
	}
	rng.Shuffle(len(p.seeds), func(i, j int) {
		p.seeds[i], p.seeds[j] = p.seeds[j], p.seeds[i]
	})
}

// next pops a seed, charging one unit of budget. Returns false when the
// pool was cleared or the budget ran out.
func (p *seedPool) next(rng *mathrand.Rand) (int32, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cleared || p.budget <= 0 {
		return 0, false
	}
	if len(p.seeds) == 0 {
		p.refill(rng)
	}
	seed := p.seeds[len(p.seeds)-1]
	p.seeds = p.seeds[:len(p.seeds)-1]
	p.budget--
	return seed, true
}

// clear empties the pool so other workers stop drawing seeds.
func (p *seedPool) clear() {
	p.mu.Lock()
	p.cleared = true
	p.seeds = nil
	p.mu.Unlock()
}
