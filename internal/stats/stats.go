// Package stats tracks run counters for the deduplication pipeline.
//
// All counters are atomic so workers update them without a shared lock; a
// Snapshot is read once at the end of the run for reporting. Individual
// mid-run reads (the progress bar description) may see counters at slightly
// different instants, which is fine for display.
package stats

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// Run accumulates counters for one engine invocation.
type Run struct {
	totalFiles        atomic.Int64 // Files submitted to workers (after exclusion)
	filesHashed       atomic.Int64 // Files actually fingerprinted
	duplicatesFound   atomic.Int64 // Duplicate detections (counted even in dry-run)
	duplicatesRemoved atomic.Int64 // Files deleted by the delete strategy
	hardLinksCreated  atomic.Int64 // Successful hardlink replacements
	spaceSaved        atomic.Int64 // Bytes reclaimed by hardlinking
	startTime         time.Time
}

// NewRun creates a Run with the clock started.
func NewRun() *Run { return &Run{startTime: time.Now()} }

// AddFile counts one processed file.
func (r *Run) AddFile() { r.totalFiles.Add(1) }

// AddHashed counts one fingerprint computation.
func (r *Run) AddHashed() { r.filesHashed.Add(1) }

// AddDuplicate counts one duplicate detection.
func (r *Run) AddDuplicate() { r.duplicatesFound.Add(1) }

// AddRemoved counts one deleted duplicate.
func (r *Run) AddRemoved() { r.duplicatesRemoved.Add(1) }

// AddHardLink counts one hardlink replacement and the bytes it reclaimed.
func (r *Run) AddHardLink(saved int64) {
	r.hardLinksCreated.Add(1)
	r.spaceSaved.Add(saved)
}

func (r *Run) String() string {
	return fmt.Sprintf("Processed %d files (hashed %d), found %d duplicates, saved %s in %.1fs",
		r.totalFiles.Load(), r.filesHashed.Load(), r.duplicatesFound.Load(),
		humanize.IBytes(uint64(r.spaceSaved.Load())),
		time.Since(r.startTime).Seconds())
}

// Snapshot is a consistent-enough copy of the counters, taken after all
// workers have finished.
type Snapshot struct {
	TotalFiles        int64
	FilesHashed       int64
	DuplicatesFound   int64
	DuplicatesRemoved int64
	HardLinksCreated  int64
	SpaceSaved        int64
}

// Snapshot returns the current counter values.
func (r *Run) Snapshot() Snapshot {
	return Snapshot{
		TotalFiles:        r.totalFiles.Load(),
		FilesHashed:       r.filesHashed.Load(),
		DuplicatesFound:   r.duplicatesFound.Load(),
		DuplicatesRemoved: r.duplicatesRemoved.Load(),
		HardLinksCreated:  r.hardLinksCreated.Load(),
		SpaceSaved:        r.spaceSaved.Load(),
	}
}
