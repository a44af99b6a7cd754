// Package screener pre-filters files by size before fingerprinting.
//
// Equal content implies equal size, so a file whose size is unique in the
// current run cannot have a duplicate and is never fingerprinted. The screen
// records the first path seen for each size; when a second file of that size
// arrives, both the original and the newcomer must be fingerprinted and
// compared. Later files of the same size only fingerprint themselves.
//
// Each size bucket carries a latch that resolves the bucket's first file
// exactly once, before any same-size rival proceeds. This pins the
// first-seen file's index registration ahead of every later file of that
// size, which keeps the canonical choice deterministic under concurrency.
//
// The screen is per-run state: create one per invocation, discard when done.
package screener

import "sync"

// SizeScreen maps file size to the first path observed with that size.
// Safe for concurrent use by many workers.
type SizeScreen struct {
	mu      sync.Mutex
	buckets map[int64]*bucket
}

// bucket holds one size class. once latches the resolution of first.
type bucket struct {
	first string
	once  sync.Once
}

// New creates an empty size screen.
func New() *SizeScreen {
	return &SizeScreen{buckets: make(map[int64]*bucket)}
}

// Observe registers path under size.
//
// Returns nil when the size is new in this run: the file is provisionally
// unique and fingerprinting is skipped entirely. Otherwise returns the
// collision carrying the first-seen path.
//
// The check-then-set is atomic, so two workers racing on a novel size cannot
// both conclude they are first.
func (s *SizeScreen) Observe(size int64, path string) *Collision {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[size]
	if !ok {
		s.buckets[size] = &bucket{first: path}
		return nil
	}
	return &Collision{first: b.first, once: &b.once}
}

// Sizes returns the number of distinct sizes observed so far.
func (s *SizeScreen) Sizes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// Collision reports that a file shares its size with an earlier one.
type Collision struct {
	first string
	once  *sync.Once
}

// First returns the first-seen path for the size bucket.
func (c *Collision) First() string { return c.first }

// ResolveFirstOnce calls fn with the first-seen path, exactly once per size
// bucket across all workers. Concurrent callers block until that single call
// returns, so the bucket's original file is fully resolved before any rival
// of the same size moves on.
func (c *Collision) ResolveFirstOnce(fn func(path string)) {
	c.once.Do(func() { fn(c.first) })
}
