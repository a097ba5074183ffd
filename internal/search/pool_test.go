package search

import (
	"context"
	"runtime"
	"sync/atomic"
	"testing"
)

func TestForEachBounded_VisitsEveryIndex(t *testing.T) {
	const n = 50
	var seen [n]atomic.Int32

	if err := forEachBounded(context.Background(), n, 4, func(i int) { seen[i].Add(1) }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range seen {
		if got := seen[i].Load(); got != 1 {
			t.Errorf("index %d visited %d times", i, got)
		}
	}
}

func TestForEachBounded_LimitsGoroutines(t *testing.T) {
	const n, workers = 500, 3

	release := make(chan struct{})
	started := make(chan struct{}, n)
	var inFlight, peak atomic.Int32

	base := runtime.NumGoroutine()
	done := make(chan error, 1)
	go func() {
		done <- forEachBounded(context.Background(), n, workers, func(int) {
			cur := inFlight.Add(1)
			for {
				old := peak.Load()
				if cur <= old || peak.CompareAndSwap(old, cur) {
					break
				}
			}
			started <- struct{}{}
			<-release
			inFlight.Add(-1)
		})
	}()

	for range workers {
		<-started
	}
	// Every slot is taken, so the dispatcher is parked on the semaphore.
	if extra := runtime.NumGoroutine() - base; extra > workers+5 {
		t.Errorf("expected about %d extra goroutines while saturated, got %d", workers+1, extra)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := peak.Load(); got > workers {
		t.Errorf("expected at most %d calls in flight, got %d", workers, got)
	}
}

func TestForEachBounded_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	err := forEachBounded(ctx, 1000, 2, func(int) { calls.Add(1) })
	if err == nil {
		t.Error("expected cancellation error")
	}
	if calls.Load() == 1000 {
		t.Error("expected dispatch to stop after cancellation")
	}
}
