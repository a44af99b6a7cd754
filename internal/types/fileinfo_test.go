package types

import (
	"sync"
	"sync/atomic"
	"testing"
)

// =============================================================================
// Semaphore Tests
// =============================================================================

// TestSemaphoreLimitsConcurrency tests that at most n goroutines hold the
// semaphore at once.
func TestSemaphoreLimitsConcurrency(t *testing.T) {
	const limit = 3
	const goroutines = 20

	sem := NewSemaphore(limit)

	var current, peak atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem.Acquire()
			defer sem.Release()

			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			current.Add(-1)
		}()
	}
	wg.Wait()

	if peak.Load() > limit {
		t.Errorf("peak concurrency = %d, want <= %d", peak.Load(), limit)
	}
}

// TestSemaphoreReleaseUnblocks tests that Release unblocks a waiting Acquire.
func TestSemaphoreReleaseUnblocks(t *testing.T) {
	sem := NewSemaphore(1)
	sem.Acquire()

	done := make(chan struct{})
	go func() {
		sem.Acquire()
		close(done)
	}()

	sem.Release()
	<-done // Hangs here if Release did not unblock
	sem.Release()
}
