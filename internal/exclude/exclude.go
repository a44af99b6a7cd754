// Package exclude filters file paths using shell-style glob patterns.
//
// Patterns are matched against the full path string, not just the basename,
// and must cover the whole path: "*.bak" matches "/data/old/a.bak" because
// "*" crosses directory separators. This mirrors classic fnmatch semantics
// rather than per-segment matching, so a single pattern can exclude files at
// any depth.
package exclude

import (
	"fmt"
	"regexp"
	"strings"
)

// Set holds a compiled list of exclusion patterns.
// Compile once at startup; Match is safe for concurrent use.
type Set struct {
	patterns []*regexp.Regexp
}

// Compile validates and compiles glob patterns into a Set.
// Returns an error naming the offending pattern if one cannot be compiled.
func Compile(patterns []string) (*Set, error) {
	s := &Set{}
	for _, p := range patterns {
		re, err := regexp.Compile(globToRegex(p))
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		s.patterns = append(s.patterns, re)
	}
	return s, nil
}

// Match reports whether path matches any pattern in the set.
func (s *Set) Match(path string) bool {
	if len(s.patterns) == 0 {
		return false
	}
	for _, re := range s.patterns {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// Len returns the number of compiled patterns.
func (s *Set) Len() int { return len(s.patterns) }

// globToRegex converts a glob pattern to an anchored regex string.
//
// Translation rules (fnmatch-style, whole-string match):
//   - "*" matches any run of characters, including "/"
//   - "?" matches any single character, including "/"
//   - "[seq]" is a character class, "[!seq]" its negation
//   - everything else matches literally
func globToRegex(pattern string) string {
	var b strings.Builder
	b.WriteString("^")
	i := 0
	for i < len(pattern) {
		c := pattern[i]
		switch c {
		case '*':
			b.WriteString(".*")
			i++
		case '?':
			b.WriteString(".")
			i++
		case '[':
			// Character class: find the closing bracket, allowing "]" as the
			// first member and "!" as negation.
			j := i + 1
			if j < len(pattern) && pattern[j] == '!' {
				j++
			}
			if j < len(pattern) && pattern[j] == ']' {
				j++
			}
			for j < len(pattern) && pattern[j] != ']' {
				j++
			}
			if j < len(pattern) {
				cls := pattern[i+1 : j]
				if strings.HasPrefix(cls, "!") {
					cls = "^" + cls[1:]
				}
				b.WriteString("[" + cls + "]")
				i = j + 1
			} else {
				// Unterminated class matches a literal bracket.
				b.WriteString(regexp.QuoteMeta(string(c)))
				i++
			}
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
			i++
		}
	}
	b.WriteString("$")
	return b.String()
}
