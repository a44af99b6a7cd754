//go:build unix

package testfs

import (
	"path/filepath"
	"testing"
)

// -----------------------------------------------------------------------------
// Harness - fixture lifecycle around one test
// -----------------------------------------------------------------------------

// Harness owns a sown fixture tree rooted in t.TempDir(). See the package
// documentation for the fixture vocabulary.
type Harness struct {
	t     *testing.T
	root  string
	given Tree // Tree the fixture was sown from
}

// New sows given under a fresh temporary root. Cleanup rides on t.TempDir().
func New(t *testing.T, given Tree) *Harness {
	t.Helper()

	root := t.TempDir()
	if err := SowTree(root, given); err != nil {
		t.Fatalf("sow fixture: %v", err)
	}
	return &Harness{t: t, root: root, given: given}
}

// Root returns the temporary root the fixture lives under.
func (h *Harness) Root() string { return h.root }

// Path resolves a fixture-relative path against the root.
func (h *Harness) Path(rel string) string { return filepath.Join(h.root, rel) }

// AssertUnchanged checks the tree still matches what was sown. Handy after
// dry runs, where detection must leave no trace on disk.
func (h *Harness) AssertUnchanged() {
	h.t.Helper()
	h.Assert(h.given)
}

// Assert reaps every directory named by expected and checks it. Reap
// failures abort the test; mismatches report and continue.
func (h *Harness) Assert(expected Tree) {
	h.t.Helper()

	for _, dir := range expected.Dirs {
		actual, err := ReapPaths(h.root, []string{dir.Path})
		if err != nil {
			h.t.Fatalf("reap %s: %v", dir.Path, err)
		}
		if len(actual.Dirs) == 0 {
			h.t.Fatalf("reap returned nothing for %s", dir.Path)
		}
		AssertDir(h.t, dir, actual.Dirs[0])
	}
}
