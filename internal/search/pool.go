package search

import (
	"context"
	"sync"
)

// forEachBounded calls fn for every index in [0, n) with at most workers calls
// in flight. A worker slot is taken before its goroutine starts, so no more than
// workers goroutines exist at a time. Dispatch stops once ctx is done; calls
// already started run to completion. Returns ctx.Err().
func forEachBounded(ctx context.Context, n, workers int, fn func(i int)) error {
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

dispatch:
	for i := range n {
		select {
		case <-ctx.Done():
			break dispatch
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			fn(i)
		}()
	}
	wg.Wait()

	return ctx.Err()
}
