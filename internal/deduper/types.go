package deduper

import (
	"fmt"
	"strings"
)

const (
	// TempSuffix is appended to a duplicate's path while it is parked
	// during hardlink replacement. Files carrying this suffix are excluded
	// from scanning by default so a crashed run's leftovers are never
	// treated as new content.
	TempSuffix = ".relink.tmp"

	// RenameSuffix is appended to a duplicate's path by the rename
	// strategy instead of removing the file.
	RenameSuffix = ".duplicate"
)

// Strategy selects what happens to a confirmed duplicate.
type Strategy string

const (
	StrategyHardlink Strategy = "hardlink" // Replace duplicate with a hardlink to the canonical copy
	StrategyDelete   Strategy = "delete"   // Remove the duplicate outright
	StrategyRename   Strategy = "rename"   // Mark the duplicate by appending RenameSuffix
)

// Strategies lists the accepted strategy names for CLI help and validation.
func Strategies() []string {
	return []string{string(StrategyHardlink), string(StrategyDelete), string(StrategyRename)}
}

// ParseStrategy validates a strategy name from user input.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyHardlink, StrategyDelete, StrategyRename:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown strategy %q (supported: %v)", s, Strategies())
}

// ActionType describes what a replacement operation did to a duplicate.
type ActionType int

const (
	ActionLinked        ActionType = iota // Duplicate replaced with a hardlink
	ActionAlreadyLinked                   // Duplicate already shares the canonical's inode
	ActionDeleted                         // Duplicate removed
	ActionRenamed                         // Duplicate renamed aside
	ActionSkipped                         // Nothing done due to error
)

// Result describes the outcome of replacing a single duplicate.
type Result struct {
	Canonical  string     // Path kept
	Duplicate  string     // Path acted upon
	Action     ActionType // What happened to the duplicate
	SpaceSaved int64      // Bytes reclaimed (0 unless a hardlink was created)
	Err        error      // Non-nil if skipped
}

// String formats the replacement result for display.
func (r *Result) String() string {
	switch r.Action {
	case ActionLinked:
		return fmt.Sprintf("replaced %s with hardlink to %s", escapePath(r.Duplicate), escapePath(r.Canonical))
	case ActionAlreadyLinked:
		return fmt.Sprintf("%s already hardlinked to %s", escapePath(r.Duplicate), escapePath(r.Canonical))
	case ActionDeleted:
		return fmt.Sprintf("deleted duplicate %s of %s", escapePath(r.Duplicate), escapePath(r.Canonical))
	case ActionRenamed:
		return fmt.Sprintf("renamed duplicate %s to %s", escapePath(r.Duplicate), escapePath(r.Duplicate+RenameSuffix))
	case ActionSkipped:
		return fmt.Sprintf("skipped %s: %v", escapePath(r.Duplicate), r.Err)
	default:
		return fmt.Sprintf("unknown action for %s", escapePath(r.Duplicate))
	}
}

// escapePath escapes special characters in paths for safe terminal output.
func escapePath(path string) string {
	r := strings.NewReplacer(
		"\t", "\\t",
		"\n", "\\n",
		"\r", "\\r",
	)
	return r.Replace(path)
}
