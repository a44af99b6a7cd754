package testfs

import "testing"

// -----------------------------------------------------------------------------
// Assertions - compare an expected Dir against reaped state
// -----------------------------------------------------------------------------

// AssertDir checks one expected directory against its captured state:
// every listed file exists, paths of one entry share an inode, separate
// entries keep separate inodes, symlinks carry the stated target, and
// Absent paths are gone.
func AssertDir(t *testing.T, expected Dir, actual ReapDir) {
	t.Helper()
	assertFiles(t, expected.Files, actual.Files)
	assertSymlinks(t, expected.Symlinks, actual.Symlinks)
	assertAbsent(t, expected.Absent, actual)
}

func assertFiles(t *testing.T, expected []File, actual []ReapFile) {
	t.Helper()

	inodeOf := make(map[string]uint64)
	for _, rf := range actual {
		for _, p := range rf.Path {
			inodeOf[p] = rf.Inode
		}
	}

	// owner tracks which entry claimed an inode first, so a later entry
	// landing on the same inode is flagged.
	owner := make(map[uint64][]string)

	for _, ef := range expected {
		if len(ef.Path) == 0 {
			continue
		}
		anchor, ok := inodeOf[ef.Path[0]]
		if !ok {
			t.Errorf("missing file: %s", ef.Path[0])
			continue
		}
		for _, p := range ef.Path[1:] {
			ino, ok := inodeOf[p]
			switch {
			case !ok:
				t.Errorf("missing file: %s", p)
			case ino != anchor:
				t.Errorf("%s and %s should be hardlinked, got inodes %d and %d",
					ef.Path[0], p, anchor, ino)
			}
		}
		if prev, claimed := owner[anchor]; claimed {
			t.Errorf("%v and %v should not share inode %d", prev, ef.Path, anchor)
			continue
		}
		owner[anchor] = ef.Path
	}
}

func assertSymlinks(t *testing.T, expected []Symlink, actual []ReapSymlink) {
	t.Helper()

	targetOf := make(map[string]string)
	for _, rs := range actual {
		targetOf[rs.Path] = rs.Target
	}

	for _, es := range expected {
		target, ok := targetOf[es.Path]
		if !ok {
			t.Errorf("missing symlink: %s", es.Path)
			continue
		}
		if target != es.Target {
			t.Errorf("symlink %s: expected target %q, got %q", es.Path, es.Target, target)
		}
	}
}

func assertAbsent(t *testing.T, absent []string, actual ReapDir) {
	t.Helper()

	survivors := make(map[string]bool)
	for _, rf := range actual.Files {
		for _, p := range rf.Path {
			survivors[p] = true
		}
	}
	for _, rs := range actual.Symlinks {
		survivors[rs.Path] = true
	}

	for _, p := range absent {
		if survivors[p] {
			t.Errorf("%s should be gone", p)
		}
	}
}
