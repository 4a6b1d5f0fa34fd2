package skeleton

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/circuit-mixer/pkg/parallel"
)

// Levels computes level[v] = length of the longest predecessor chain ending
// at v (0 for sources) over a snapshot, using a parallel Kahn wavefront.
//
// Workers share a stack of ready nodes. Each worker pops a node, bumps every
// successor's tentative level with an atomic max, and atomically decrements
// the successor's in-degree; whoever takes it to zero pushes the successor.
// A level cell receives its plain final read only after the atomic
// decrement that zeroed its in-degree, so each cell is published exactly
// once and readers synchronize through the decrement.
//
// The result is read-only for the duration of the convex search that
// follows; the oracle is recomputed from a fresh snapshot before the next
// search.
func Levels(snap *Snapshot, config parallel.PoolConfig) []int32 {
	n := len(snap.IDs)
	levels := make([]int32, n)
	if n == 0 {
		return levels
	}

	indeg := make([]int32, n)
	var initial []int32
	for v := range snap.Preds {
		indeg[v] = int32(len(snap.Preds[v]))
		if indeg[v] == 0 {
			initial = append(initial, int32(v))
		}
	}

	numWorkers := config.MaxWorkers
	if numWorkers <= 0 {
		numWorkers = parallel.DefaultPoolConfig().MaxWorkers
	}

	var (
		mu        sync.Mutex
		stack     = initial
		remaining = int64(n)
	)

	worker := func() {
		for {
			if atomic.LoadInt64(&remaining) == 0 {
				return
			}
			mu.Lock()
			if len(stack) == 0 {
				mu.Unlock()
				if atomic.LoadInt64(&remaining) == 0 {
					return
				}
				// Other workers still hold nodes whose successors may land
				// on the stack; yield and re-check.
				runtime.Gosched()
				continue
			}
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			mu.Unlock()

			curr := atomic.LoadInt32(&levels[v])
			for _, s := range snap.Succs[v] {
				atomicMaxInt32(&levels[s], curr+1)
				if atomic.AddInt32(&indeg[s], -1) == 0 {
					mu.Lock()
					stack = append(stack, s)
					mu.Unlock()
				}
			}
			atomic.AddInt64(&remaining, -1)
		}
	}

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker()
		}()
	}
	wg.Wait()

	return levels
}

// atomicMaxInt32 raises *addr to at least val. Writes are monotone
// non-decreasing, which is the invariant the oracle's correctness rests on.
func atomicMaxInt32(addr *int32, val int32) {
	for {
		old := atomic.LoadInt32(addr)
		if old >= val {
			return
		}
		if atomic.CompareAndSwapInt32(addr, old, val) {
			return
		}
	}
}
