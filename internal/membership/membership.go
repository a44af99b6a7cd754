// Package membership provides a probabilistic set of known fingerprints.
//
// The filter short-circuits index lookups: an "absent" answer is
// authoritative (the fingerprint is guaranteed not registered), a "present"
// answer is advisory and must be confirmed against the index. To keep
// "absent" trustworthy within a run, every registration must be added here
// as well.
package membership

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

const (
	// falsePositiveRate is the target rate at the estimated capacity.
	// A heuristic, not a correctness requirement: false positives only cost
	// an extra index lookup.
	falsePositiveRate = 0.001

	// minCapacity keeps the filter usefully sized for tiny runs.
	minCapacity = 1000
)

// Filter wraps a bloom filter with a lock for concurrent workers.
type Filter struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// New creates a filter sized for the estimated number of fingerprints.
func New(capacity int) *Filter {
	if capacity < minCapacity {
		capacity = minCapacity
	}
	return &Filter{filter: bloom.NewWithEstimates(uint(capacity), falsePositiveRate)}
}

// Add records a fingerprint.
func (f *Filter) Add(fingerprint string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter.AddString(fingerprint)
}

// MayContain reports whether the fingerprint might be known.
// False means definitely not known.
func (f *Filter) MayContain(fingerprint string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.filter.TestString(fingerprint)
}
