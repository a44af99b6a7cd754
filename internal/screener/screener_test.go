package screener

import (
	"sync"
	"sync/atomic"
	"testing"
)

// =============================================================================
// Observe Tests
// =============================================================================

// TestObserveFirstIsUnique tests that the first file of a size skips hashing.
func TestObserveFirstIsUnique(t *testing.T) {
	s := New()
	if col := s.Observe(100, "/a"); col != nil {
		t.Errorf("first Observe() = collision with %q, want nil", col.First())
	}
}

// TestObserveCollisionReturnsFirst tests that later files of a size see the
// original path.
func TestObserveCollisionReturnsFirst(t *testing.T) {
	s := New()
	s.Observe(100, "/a")

	col := s.Observe(100, "/b")
	if col == nil {
		t.Fatal("second Observe() = nil, want collision")
	}
	if col.First() != "/a" {
		t.Errorf("First() = %q, want /a", col.First())
	}

	// The first entry is returned, never displaced.
	col = s.Observe(100, "/c")
	if col == nil || col.First() != "/a" {
		t.Errorf("third Observe() First() = %v, want /a", col)
	}
}

// TestObserveSizesIndependent tests that different sizes do not collide.
func TestObserveSizesIndependent(t *testing.T) {
	s := New()
	s.Observe(100, "/a")
	if col := s.Observe(200, "/b"); col != nil {
		t.Errorf("Observe() with new size = collision with %q, want nil", col.First())
	}
	if s.Sizes() != 2 {
		t.Errorf("Sizes() = %d, want 2", s.Sizes())
	}
}

// TestObserveAtomicCheckThenSet tests that exactly one of many racing workers
// becomes the first for a novel size.
func TestObserveAtomicCheckThenSet(t *testing.T) {
	const workers = 32
	s := New()

	var uniques atomic.Int64
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if s.Observe(4096, "/racer") == nil {
				uniques.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if uniques.Load() != 1 {
		t.Errorf("%d workers saw the size as new, want exactly 1", uniques.Load())
	}
}

// =============================================================================
// First-File Latch Tests
// =============================================================================

// TestResolveFirstOnceRunsOnce tests the latch fires once per size bucket.
func TestResolveFirstOnceRunsOnce(t *testing.T) {
	s := New()
	s.Observe(100, "/a")

	var calls atomic.Int64
	for i := 0; i < 5; i++ {
		col := s.Observe(100, "/later")
		col.ResolveFirstOnce(func(path string) {
			if path != "/a" {
				t.Errorf("latch received %q, want /a", path)
			}
			calls.Add(1)
		})
	}
	if calls.Load() != 1 {
		t.Errorf("latch ran %d times, want 1", calls.Load())
	}
}

// TestResolveFirstOnceBlocksRivals tests that concurrent callers only return
// after the single resolution has completed.
func TestResolveFirstOnceBlocksRivals(t *testing.T) {
	const workers = 16
	s := New()
	s.Observe(100, "/a")

	var resolved atomic.Bool
	var sawUnresolved atomic.Int64
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			col := s.Observe(100, "/rival")
			col.ResolveFirstOnce(func(string) {
				resolved.Store(true)
			})
			// Every caller must observe the resolution as done.
			if !resolved.Load() {
				sawUnresolved.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if sawUnresolved.Load() != 0 {
		t.Errorf("%d callers returned before the first file was resolved", sawUnresolved.Load())
	}
}
