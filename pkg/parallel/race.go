package parallel

import (
	"context"
	"sync"
)

// Race runs the search function on every worker concurrently and returns the
// first non-nil result. The randomized convex and replacement searches use
// this: each worker draws from its own forked RNG, and the first worker to
// find a valid result wins while the rest observe the cancelled context and
// exit.
//
// search receives the worker id so callers can fork per-worker RNG streams
// deterministically. A nil return from every worker yields (zero, false).
func Race[R any](
	ctx context.Context,
	config PoolConfig,
	search func(ctx context.Context, workerID int) (R, bool),
) (R, bool) {
	numWorkers := config.MaxWorkers
	if numWorkers <= 0 {
		numWorkers = DefaultPoolConfig().MaxWorkers
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu     sync.Mutex
		winner R
		found  bool
		wg     sync.WaitGroup
	)

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			result, ok := search(raceCtx, workerID)
			if !ok {
				return
			}
			mu.Lock()
			if !found {
				found = true
				winner = result
				cancel()
			}
			mu.Unlock()
		}(w)
	}

	wg.Wait()
	return winner, found
}
