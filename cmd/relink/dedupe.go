package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/relinkhq/relink/internal/deduper"
	"github.com/relinkhq/relink/internal/exclude"
	"github.com/relinkhq/relink/internal/fingerprint"
	"github.com/relinkhq/relink/internal/index"
	"github.com/relinkhq/relink/internal/membership"
	"github.com/relinkhq/relink/internal/scanner"
)

// dedupeOptions holds CLI flags for the dedupe command.
type dedupeOptions struct {
	hashFile      string
	algorithm     string
	strategy      string
	bufferSizeStr string
	minSizeStr    string
	excludes      []string
	workers       int
	syncInterval  int
	useBloom      bool
	noProgress    bool
	verbose       bool
	dryRun        bool
}

// newDedupeCmd creates the dedupe subcommand.
func newDedupeCmd() *cobra.Command {
	opts := &dedupeOptions{
		hashFile:      ".hashes.db",
		algorithm:     fingerprint.Default,
		strategy:      string(deduper.StrategyHardlink),
		bufferSizeStr: "64KiB",
		minSizeStr:    "0",
		workers:       4,
		syncInterval:  100,
	}

	cmd := &cobra.Command{
		Use:   "dedupe [paths...]",
		Short: "Find duplicate files and replace them",
		Long: `Scans directories for files with identical content and replaces each
duplicate according to the chosen strategy:

  hardlink  replace the duplicate with a hardlink to the first-seen copy
  delete    remove the duplicate
  rename    append ` + deduper.RenameSuffix + ` to the duplicate's name

Fingerprints are remembered in an index file across runs, so content seen
in an earlier invocation is recognized as duplicate in later ones even
when the original no longer sits in a scanned directory.

Use --dry-run to preview without making changes.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runDedupe(args, opts)
		},
	}

	// Bind flags to options
	cmd.Flags().StringVar(&opts.hashFile, "hash-file", opts.hashFile, "Path to the persistent fingerprint index")
	cmd.Flags().StringVarP(&opts.algorithm, "hash-algorithm", "a", opts.algorithm,
		"Fingerprint algorithm ("+strings.Join(fingerprint.Names(), ", ")+")")
	cmd.Flags().StringVarP(&opts.strategy, "strategy", "s", opts.strategy,
		"Duplicate replacement strategy ("+strings.Join(deduper.Strategies(), ", ")+")")
	cmd.Flags().StringVar(&opts.bufferSizeStr, "buffer-size", opts.bufferSizeStr, "Read chunk size for fingerprinting (e.g., 64KiB, 1MiB)")
	cmd.Flags().StringVarP(&opts.minSizeStr, "min-size", "m", opts.minSizeStr, "Minimum file size (e.g., 100, 1K, 10M, 1G)")
	cmd.Flags().StringSliceVarP(&opts.excludes, "exclude", "e", nil, "Glob patterns to exclude (matched against full paths)")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", opts.workers, "Number of parallel workers")
	cmd.Flags().IntVar(&opts.syncInterval, "sync-interval", opts.syncInterval, "Flush the index after this many new fingerprints")
	cmd.Flags().BoolVar(&opts.useBloom, "bloom-filter", false, "Pre-check fingerprints with an in-memory bloom filter")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "Disable progress output")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Show individual file operations")
	cmd.Flags().BoolVarP(&opts.dryRun, "dry-run", "n", false, "Preview changes without executing")

	return cmd
}

// drainErrors consumes non-fatal pipeline errors and logs them.
func drainErrors(errs <-chan error) {
	for err := range errs {
		log.Error().Err(err).Send()
	}
}

// runDedupe executes the dedupe pipeline: scan, then detect and replace.
func runDedupe(paths []string, opts *dedupeOptions) error {
	if opts.verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	minSize, err := parseSize(opts.minSizeStr)
	if err != nil {
		return fmt.Errorf("invalid --min-size: %w", err)
	}
	bufferSize, err := parseSize(opts.bufferSizeStr)
	if err != nil {
		return fmt.Errorf("invalid --buffer-size: %w", err)
	}
	if opts.workers < 1 {
		return fmt.Errorf("invalid --workers: must be at least 1")
	}
	if opts.syncInterval < 1 {
		return fmt.Errorf("invalid --sync-interval: must be at least 1")
	}

	newHash, err := fingerprint.New(opts.algorithm)
	if err != nil {
		return fmt.Errorf("invalid --hash-algorithm: %w", err)
	}
	strategy, err := deduper.ParseStrategy(opts.strategy)
	if err != nil {
		return fmt.Errorf("invalid --strategy: %w", err)
	}
	excludes, err := exclude.Compile(withTempPattern(opts.excludes))
	if err != nil {
		return fmt.Errorf("invalid --exclude: %w", err)
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("scan root %s: %w", path, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("scan root %s: not a directory", path)
		}
	}

	idx, err := index.Open(opts.hashFile, opts.syncInterval)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer func() {
		if err := idx.Close(); err != nil {
			log.Error().Err(err).Msg("closing index")
		}
	}()

	showProgress := !opts.noProgress

	// Shared error channel for non-fatal errors
	errs := make(chan error, 100)
	go drainErrors(errs)
	defer close(errs)

	// Phase 1: Enumerate candidate files
	files := scanner.New(paths, minSize, opts.workers, showProgress, errs).Run()
	if len(files) == 0 {
		log.Info().Msg("no files to process")
		return nil
	}

	// Phase 2 (optional): Seed the membership filter with known
	// fingerprints, sized for everything it could see this run
	var filter *membership.Filter
	if opts.useBloom {
		filter = membership.New(len(files) + idx.Count())
		if err := idx.ForEach(func(fp, _ string) error {
			filter.Add(fp)
			return nil
		}); err != nil {
			return fmt.Errorf("seed bloom filter: %w", err)
		}
	}

	// Phase 3: Detect duplicates and apply the strategy
	snap := deduper.New(deduper.Config{
		Files:        files,
		Strategy:     strategy,
		Workers:      opts.workers,
		BufferSize:   int(bufferSize),
		NewHash:      newHash,
		Index:        idx,
		Filter:       filter,
		Excludes:     excludes,
		DryRun:       opts.dryRun,
		ShowProgress: showProgress,
		ErrCh:        errs,
	}).Run()

	log.Info().
		Int64("processed", snap.TotalFiles).
		Int64("hashed", snap.FilesHashed).
		Int64("duplicates", snap.DuplicatesFound).
		Int64("removed", snap.DuplicatesRemoved).
		Int64("hardlinks", snap.HardLinksCreated).
		Str("space_saved", humanize.IBytes(uint64(snap.SpaceSaved))).
		Msg("deduplication complete")

	return nil
}
