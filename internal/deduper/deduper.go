// Package deduper detects duplicate files and replaces them.
//
// # Overview
//
// The deduper is the engine stage of the pipeline. It consumes the scanner's
// enumeration and drives every file through exclusion, the size screen,
// fingerprinting, index resolution, and finally a replacement strategy.
//
// # Processing Pipeline
//
//	Input: []*types.FileInfo (enumerated files)
//	    │
//	    ├──► jobCh ──► N workers, each per file:
//	    │        │
//	    │        ├──► exclusion match → drop (uncounted)
//	    │        │
//	    │        ├──► size screen: first file of its size → done, never hashed
//	    │        │
//	    │        ├──► size collision → resolve the bucket's first file once,
//	    │        │    then resolve this file
//	    │        │
//	    │        └──► resolve: fingerprint → membership gate → index lookup
//	    │                 ├──► hit:  duplicate → replacement strategy
//	    │                 └──► miss: register (first writer wins)
//	    │
//	    └──► Output: stats.Snapshot
//
// # Concurrency Model
//
//	┌─────────────────┬────────────────────────────────────────────────┐
//	│ Primitive       │ Purpose                                        │
//	├─────────────────┼────────────────────────────────────────────────┤
//	│ jobCh           │ Buffered channel feeding the worker pool       │
//	│ workerWg        │ Signals worker pool completion                 │
//	│ size screen     │ Mutex-guarded size buckets (check-then-set)    │
//	│ index           │ Mutex-guarded fingerprint registry             │
//	│ stats           │ Atomic counters                                │
//	└─────────────────┴────────────────────────────────────────────────┘
//
// Workers never hold a lock across file I/O: fingerprinting runs lock-free,
// and the size screen and index are only touched between reads. Canonical
// selection does not depend on submission order. The index inserts
// first-writer-wins, and the size screen's latch resolves a bucket's first
// file before any same-size rival, so the earliest enumerated copy of a
// given size becomes canonical no matter which worker finishes hashing
// first. Workers in different size buckets never wait on each other.
//
// # Failure Isolation
//
// Per-file failures (unreadable file, failed replacement) are reported on
// the error channel and the run continues. A file that cannot be hashed is
// never registered, so a later run can still claim its fingerprint.
package deduper

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/relinkhq/relink/internal/exclude"
	"github.com/relinkhq/relink/internal/fingerprint"
	"github.com/relinkhq/relink/internal/index"
	"github.com/relinkhq/relink/internal/membership"
	"github.com/relinkhq/relink/internal/progress"
	"github.com/relinkhq/relink/internal/screener"
	"github.com/relinkhq/relink/internal/stats"
	"github.com/relinkhq/relink/internal/types"
)

// Config carries everything a dedupe run needs. All fields except Filter,
// Excludes and ErrCh are required.
type Config struct {
	Files      []*types.FileInfo   // Enumerated candidates, in scan order
	Strategy   Strategy            // What to do with confirmed duplicates
	Workers    int                 // Worker pool size (min 1)
	BufferSize int                 // Read chunk size for fingerprinting (0 = default)
	NewHash    fingerprint.Factory // Constructs one hasher per file

	Index    *index.Index       // Persistent fingerprint registry
	Filter   *membership.Filter // Optional membership pre-check (nil = disabled)
	Excludes *exclude.Set       // Optional path exclusion globs (nil = none)

	DryRun       bool       // Detect and report, never modify
	ShowProgress bool       // Whether to display progress bar
	ErrCh        chan error // Non-fatal errors (unreadable files, failed replacements)
}

// Deduper drives candidate files through duplicate detection and replacement.
//
// The deduper is designed for single-use: create with New(), call Run() once.
type Deduper struct {
	// Config (immutable, set by New)
	cfg Config

	// Runtime (initialized in Run)
	screen   *screener.SizeScreen // Size buckets shared by all workers
	stats    *stats.Run           // Run counters, surfaced in the final snapshot
	bar      *progress.Bar        // Progress display (no-op if disabled)
	jobCh    chan *types.FileInfo // Jobs to process
	workerWg sync.WaitGroup       // Tracks worker goroutines
}

// New creates a Deduper over an enumerated set of candidate files.
func New(cfg Config) *Deduper {
	return &Deduper{cfg: cfg}
}

// Run processes every candidate and returns the run's counters.
//
// The total is known up front, so the bar is determinate: one tick per
// candidate, including excluded and unique-size files.
func (d *Deduper) Run() stats.Snapshot {
	workers := d.cfg.Workers
	if workers < 1 {
		workers = 1
	}

	d.screen = screener.New()
	d.stats = stats.NewRun()
	d.bar = progress.New(d.cfg.ShowProgress, int64(len(d.cfg.Files)))
	d.bar.Describe(d.stats) // Render progress bar immediately
	d.jobCh = make(chan *types.FileInfo, 1000)

	for i := 0; i < workers; i++ {
		d.workerWg.Add(1)
		go func() {
			defer d.workerWg.Done()
			for f := range d.jobCh {
				d.processFile(f)
				d.bar.Add(1)
				d.bar.Describe(d.stats)
			}
		}()
	}

	for _, f := range d.cfg.Files {
		d.jobCh <- f
	}
	close(d.jobCh)
	d.workerWg.Wait()

	d.bar.Finish(d.stats)
	return d.stats.Snapshot()
}

// processFile runs one candidate through the screening tiers.
func (d *Deduper) processFile(f *types.FileInfo) {
	if d.cfg.Excludes != nil && d.cfg.Excludes.Match(f.Path) {
		log.Debug().Str("path", escapePath(f.Path)).Msg("excluded")
		return
	}
	d.stats.AddFile()

	col := d.screen.Observe(f.Size, f.Path)
	if col == nil {
		// First file of this size. Nothing to compare against, and if a
		// same-size rival shows up later the collision latch will pull
		// this file back in.
		return
	}
	col.ResolveFirstOnce(d.resolve)
	d.resolve(f.Path)
}

// resolve fingerprints one file and settles it against the index: register
// as canonical or hand off as a duplicate.
func (d *Deduper) resolve(path string) {
	fp, err := fingerprint.File(d.cfg.NewHash, path, d.cfg.BufferSize)
	if err != nil {
		// Not registered: a fingerprint we never computed must not
		// claim a canonical slot.
		d.sendError(fmt.Errorf("fingerprint %s: %w", escapePath(path), err))
		return
	}
	d.stats.AddHashed()

	// A negative membership answer is authoritative, so the index lookup
	// can be skipped outright. A positive answer proves nothing.
	if d.cfg.Filter == nil || d.cfg.Filter.MayContain(fp) {
		if canonical, found := d.cfg.Index.Lookup(fp); found {
			d.handleDuplicate(canonical, path)
			return
		}
	}

	canonical, registered, err := d.cfg.Index.Register(fp, path)
	if err != nil {
		// Flush failures leave the registration pending in memory; it
		// will be retried on a later flush or on close.
		d.sendError(err)
	}
	if registered {
		if d.cfg.Filter != nil {
			d.cfg.Filter.Add(fp)
		}
		return
	}
	// Lost the insert race: another worker registered this fingerprint
	// between our lookup and the insert. The winner is canonical.
	d.handleDuplicate(canonical, path)
}

// handleDuplicate counts a confirmed duplicate and applies the strategy.
func (d *Deduper) handleDuplicate(canonical, dup string) {
	if canonical == dup {
		// The canonical copy itself, enumerated again through an
		// overlapping root.
		return
	}
	d.stats.AddDuplicate()

	if d.cfg.DryRun {
		log.Info().
			Str("duplicate", escapePath(dup)).
			Str("canonical", escapePath(canonical)).
			Str("strategy", string(d.cfg.Strategy)).
			Msg("dry run: duplicate left in place")
		return
	}

	res := d.applyStrategy(canonical, dup)
	if res.Err != nil {
		d.sendError(res.Err)
		return
	}

	switch res.Action {
	case ActionLinked:
		d.stats.AddHardLink(res.SpaceSaved)
	case ActionDeleted:
		d.stats.AddRemoved()
	case ActionRenamed, ActionAlreadyLinked:
		// Nothing was reclaimed
	}
	log.Debug().Msg(res.String())
}

// applyStrategy dispatches the configured replacement strategy.
func (d *Deduper) applyStrategy(canonical, dup string) *Result {
	switch d.cfg.Strategy {
	case StrategyHardlink:
		return replaceWithHardlink(canonical, dup)
	case StrategyDelete:
		return deleteDuplicate(canonical, dup)
	case StrategyRename:
		return renameDuplicate(canonical, dup)
	}
	return &Result{
		Canonical: canonical,
		Duplicate: dup,
		Action:    ActionSkipped,
		Err:       fmt.Errorf("unknown strategy %q", d.cfg.Strategy),
	}
}

func (d *Deduper) sendError(err error) {
	if d.cfg.ErrCh != nil {
		d.cfg.ErrCh <- err
	}
}
