package main

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/relinkhq/relink/internal/deduper"
)

// parseSize parses a human-readable size string into bytes.
// Supports formats: "100", "1K", "1MB", "1GiB", etc.
func parseSize(s string) (int64, error) {
	bytes, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	// ParseBytes reports no error when the value overflows; the wrapped
	// result always lands beyond int64 range, so catch it here.
	if bytes > math.MaxInt64 {
		return 0, fmt.Errorf("size %q is too large", s)
	}
	return int64(bytes), nil
}

// withTempPattern ensures the replacement dance's parked files are always
// excluded from scanning, so a crashed run's leftovers are never hashed.
func withTempPattern(patterns []string) []string {
	tempPattern := "*" + deduper.TempSuffix
	for _, p := range patterns {
		if p == tempPattern {
			return patterns
		}
	}
	return append(patterns, tempPattern)
}
