// Package scanner enumerates candidate files for deduplication.
//
// A scan fans out one walker goroutine per discovered directory, gated by a
// counting semaphore so only a bounded number of directory reads run at once,
// and fans results into a single collector:
//
//	Run()
//	    │
//	    ├──► collector goroutine ◄── fileCh ◄── walkers
//	    │
//	    ├──► walk(root) for each root path
//	    │        └──► scanDir: classify entries, emit regular files,
//	    │             then walk(subdir) for every subdirectory found
//	    │
//	    └──► walkerWg.Wait, close(fileCh), wait for the collector
//
// # Synchronization Primitives
//
//	┌────────────┬───────────────────────────────────────────────┐
//	│ Primitive  │ Role                                          │
//	├────────────┼───────────────────────────────────────────────┤
//	│ walkerSem  │ Bounds concurrent directory reads             │
//	│ walkerWg   │ Lets Run wait for every spawned walker        │
//	│ fileCh     │ Fan-in from walkers to the collector          │
//	│ done       │ Signals the collector has drained fileCh      │
//	│ stats      │ Atomic counters shared by all walkers         │
//	└────────────┴───────────────────────────────────────────────┘
//
// The walk stays pure metadata I/O. Only regular files are enumerated;
// symlinks are never followed. The minimum-size cutoff is applied here
// because it needs nothing but the directory entry, while exclusion patterns
// and every duplicate decision belong to the engine workers downstream.
package scanner

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/relinkhq/relink/internal/progress"
	"github.com/relinkhq/relink/internal/types"
)

const (
	// readBatch bounds memory while listing very large directories.
	readBatch = 1000

	// fileChBuffer smooths walker and collector rate differences.
	fileChBuffer = 1000
)

// Scanner enumerates regular files using parallel directory traversal.
//
// The scanner is designed for single-use: create with New(), call Run() once.
type Scanner struct {
	// Config (immutable, set by New)
	paths        []string   // Root paths to scan
	minSize      int64      // Minimum file size filter (bytes)
	workers      int        // Max concurrent directory reads
	showProgress bool       // Whether to display progress bar
	errCh        chan error // Non-fatal errors (permission denied, etc.)

	// Runtime (initialized in Run)
	walkerWg  sync.WaitGroup       // Tracks in-flight walker goroutines
	walkerSem types.Semaphore      // Limits concurrent directory reads
	fileCh    chan *types.FileInfo // Fan-in channel: walkers to collector
	stats     *stats               // Atomic counters for progress tracking
	bar       *progress.Bar        // Progress display (thread-safe)
}

// New creates a Scanner for enumerating files.
func New(paths []string, minSize int64, workers int, showProgress bool, errCh chan error) *Scanner {
	return &Scanner{
		paths:        paths,
		minSize:      minSize,
		workers:      workers,
		showProgress: showProgress,
		errCh:        errCh,
	}
}

// stats tracks scanning progress. The counters are atomic so walkers update
// them without contention; a read may catch counters at slightly different
// instants, which is fine for display.
type stats struct {
	scannedFiles atomic.Int64 // Regular files discovered, before the cutoff
	keptFiles    atomic.Int64 // Files passing the minimum-size cutoff
	scannedBytes atomic.Int64 // Bytes across all discovered files
	keptBytes    atomic.Int64 // Bytes of kept files only
	startTime    time.Time
}

func (s *stats) String() string {
	return fmt.Sprintf("Scanned %d (%s), kept %d files (%s) in %.1fs",
		s.scannedFiles.Load(), humanize.IBytes(uint64(s.scannedBytes.Load())),
		s.keptFiles.Load(), humanize.IBytes(uint64(s.keptBytes.Load())),
		time.Since(s.startTime).Seconds())
}

// Run walks every root and returns the enumeration. Unreadable roots and
// directories are reported on the error channel and skipped; the rest of the
// walk is unaffected.
func (s *Scanner) Run() []*types.FileInfo {
	s.walkerSem = types.NewSemaphore(s.workers)
	s.bar = progress.New(s.showProgress, -1)
	s.stats = &stats{startTime: time.Now()}
	s.bar.Describe(s.stats) // Render progress bar immediately
	s.fileCh = make(chan *types.FileInfo, fileChBuffer)

	// Single collector owns the result slice; closing fileCh after the
	// walkers finish ends it.
	var files []*types.FileInfo
	done := make(chan struct{})
	go func() {
		defer close(done)
		for f := range s.fileCh {
			files = append(files, f)
		}
	}()

	for _, p := range s.paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			s.sendError(err)
			continue
		}
		s.walk(abs)
	}

	s.walkerWg.Wait()
	close(s.fileCh)
	<-done

	s.bar.Finish(s.stats)
	return files
}

// walk processes one directory on its own goroutine and recursively spawns
// walkers for its subdirectories. The WaitGroup is incremented before the
// goroutine starts so Run's Wait can never observe a transient zero; the
// semaphore is acquired inside the goroutine, so pending walkers queue up
// without consuming a read slot.
func (s *Scanner) walk(dir string) {
	s.walkerWg.Add(1)
	go func() {
		defer s.walkerWg.Done()

		s.walkerSem.Acquire()
		defer s.walkerSem.Release()

		subdirs, err := s.scanDir(dir)
		if err != nil {
			s.sendError(err)
			return
		}
		s.bar.Describe(s.stats)

		for _, sub := range subdirs {
			s.walk(sub)
		}
	}()
}

// scanDir reads one directory in batches, emits its regular files, and
// returns the subdirectories for the caller to fan out. The only directory
// I/O in the package happens here, under the walker semaphore.
func (s *Scanner) scanDir(dir string) (subdirs []string, err error) {
	d, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	defer func() { _ = d.Close() }()

	for {
		batch, err := d.ReadDir(readBatch)
		for _, ent := range batch {
			path := filepath.Join(dir, ent.Name())
			switch {
			case ent.IsDir():
				subdirs = append(subdirs, path)
			case !ent.Type().IsRegular():
				// Symlinks, devices, sockets and pipes are never followed
			default:
				info, statErr := ent.Info()
				if statErr != nil {
					// Vanished or became unreadable between ReadDir and stat
					s.sendError(fmt.Errorf("stat %s: %w", path, statErr))
					continue
				}
				s.emit(newFileInfo(path, info))
			}
		}
		if err == io.EOF {
			return subdirs, nil
		}
		if err != nil {
			return subdirs, err
		}
	}
}

// emit counts a discovered file and forwards it to the collector when it
// clears the minimum-size cutoff.
func (s *Scanner) emit(f *types.FileInfo) {
	s.stats.scannedFiles.Add(1)
	s.stats.scannedBytes.Add(f.Size)
	if f.Size < s.minSize {
		return
	}
	s.fileCh <- f // May block briefly when the collector lags
	s.stats.keptFiles.Add(1)
	s.stats.keptBytes.Add(f.Size)
}

// newFileInfo captures the inode identity the hardlink strategy needs.
func newFileInfo(path string, info os.FileInfo) *types.FileInfo {
	stat := info.Sys().(*syscall.Stat_t)
	return &types.FileInfo{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Dev:     uint64(stat.Dev), //nolint:unconvert // platform-dependent type
		Ino:     stat.Ino,
		Nlink:   uint32(stat.Nlink),
	}
}

func (s *Scanner) sendError(err error) {
	if s.errCh != nil {
		s.errCh <- err
	}
}
