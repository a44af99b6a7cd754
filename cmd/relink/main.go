package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/relinkhq/relink/internal/progress"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Route log lines through the line clearer so they don't collide with
	// the progress bar.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: progress.NewLineClearer(os.Stderr)})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	root := &cobra.Command{
		Use:     "relink",
		Short:   "Find duplicate files and reclaim their space",
		Version: version + " (" + commit + ")",
	}

	root.AddCommand(newDedupeCmd())

	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}
