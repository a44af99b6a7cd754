//go:build unix

package testfs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// =============================================================================
// Sow Tests
// =============================================================================

// TestSowWritesPatternContent tests content generation chunk by chunk.
func TestSowWritesPatternContent(t *testing.T) {
	tests := []struct {
		name   string
		chunks []Chunk
		want   string
	}{
		{
			name:   "single chunk",
			chunks: []Chunk{{Pattern: 'x', Size: "64"}},
			want:   strings.Repeat("x", 64),
		},
		{
			name: "chunk sequence",
			chunks: []Chunk{
				{Pattern: 'x', Size: "64"},
				{Pattern: 'y', Size: "32"},
				{Pattern: 'z', Size: "16"},
			},
			want: strings.Repeat("x", 64) + strings.Repeat("y", 32) + strings.Repeat("z", 16),
		},
		{
			name:   "no chunks",
			chunks: nil,
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			tree := Tree{Dirs: []Dir{{
				Path:  "library",
				Files: []File{{Path: []string{"sample.bin"}, Chunks: tt.chunks}},
			}}}
			if err := SowTree(root, tree); err != nil {
				t.Fatalf("sow: %v", err)
			}

			got, err := os.ReadFile(filepath.Join(root, "library", "sample.bin"))
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != tt.want {
				t.Errorf("expected content %q, got %q", tt.want, got)
			}
		})
	}
}

// TestSowLinksEntryPaths tests that every path of one File entry lands on
// the same inode, including paths in subdirectories.
func TestSowLinksEntryPaths(t *testing.T) {
	root := t.TempDir()
	tree := Tree{Dirs: []Dir{{
		Path: "library",
		Files: []File{{
			Path:   []string{"master.bin", "copy.bin", "nested/copy2.bin"},
			Chunks: []Chunk{{Pattern: 'p', Size: "256"}},
		}},
	}}}
	if err := SowTree(root, tree); err != nil {
		t.Fatalf("sow: %v", err)
	}

	master, err := os.Stat(filepath.Join(root, "library", "master.bin"))
	if err != nil {
		t.Fatal(err)
	}
	for _, rel := range []string{"copy.bin", "nested/copy2.bin"} {
		info, err := os.Stat(filepath.Join(root, "library", rel))
		if err != nil {
			t.Fatal(err)
		}
		if !os.SameFile(master, info) {
			t.Errorf("%s should be a hardlink of master.bin", rel)
		}
	}
}

// TestSowPlacesSymlinks tests symlink creation, including a relative
// target crossing a directory level.
func TestSowPlacesSymlinks(t *testing.T) {
	root := t.TempDir()
	tree := Tree{Dirs: []Dir{{
		Path: "library",
		Files: []File{
			{Path: []string{"anchor.bin"}, Chunks: []Chunk{{Pattern: 'q', Size: "64"}}},
		},
		Symlinks: []Symlink{
			{Path: "straight.lnk", Target: "anchor.bin"},
			{Path: "nested/up.lnk", Target: "../anchor.bin"},
		},
	}}}
	if err := SowTree(root, tree); err != nil {
		t.Fatalf("sow: %v", err)
	}

	for _, tt := range []struct{ rel, target string }{
		{"straight.lnk", "anchor.bin"},
		{"nested/up.lnk", "../anchor.bin"},
	} {
		got, err := os.Readlink(filepath.Join(root, "library", tt.rel))
		if err != nil {
			t.Fatalf("readlink %s: %v", tt.rel, err)
		}
		if got != tt.target {
			t.Errorf("symlink %s: expected target %q, got %q", tt.rel, tt.target, got)
		}
	}
}

// TestSowRejectsBadChunkSize tests that an unparseable size surfaces as a
// sow error rather than a silent empty file.
func TestSowRejectsBadChunkSize(t *testing.T) {
	root := t.TempDir()
	tree := Tree{Dirs: []Dir{{
		Path:  "library",
		Files: []File{{Path: []string{"broken.bin"}, Chunks: []Chunk{{Pattern: 'x', Size: "a few"}}}},
	}}}
	if err := SowTree(root, tree); err == nil {
		t.Error("expected an error for an unparseable chunk size")
	}
}

// =============================================================================
// Assert Tests
// =============================================================================

// TestAssertAcceptsSownState tests the round trip: a freshly sown tree
// must satisfy its own description.
func TestAssertAcceptsSownState(t *testing.T) {
	h := New(t, Tree{Dirs: []Dir{{
		Path: "library",
		Files: []File{
			{Path: []string{"alpha.bin", "alpha-link.bin"}, Chunks: []Chunk{{Pattern: 'x', Size: "128"}}},
			{Path: []string{"beta.bin"}, Chunks: []Chunk{{Pattern: 'y', Size: "128"}}},
		},
		Symlinks: []Symlink{{Path: "alias.lnk", Target: "alpha.bin"}},
	}}})

	h.AssertUnchanged()
}

// TestAssertFlagsMismatches drives Assert against states it must reject,
// capturing failures on a throwaway T.
func TestAssertFlagsMismatches(t *testing.T) {
	given := Tree{Dirs: []Dir{{
		Path: "library",
		Files: []File{
			{Path: []string{"alpha.bin"}, Chunks: []Chunk{{Pattern: 'x', Size: "128"}}},
			{Path: []string{"beta.bin"}, Chunks: []Chunk{{Pattern: 'x', Size: "128"}}},
		},
	}}}

	tests := []struct {
		name     string
		expect   Tree
		wantFail bool
	}{
		{
			name: "distinct files expected hardlinked",
			expect: Tree{Dirs: []Dir{{
				Path:  "library",
				Files: []File{{Path: []string{"alpha.bin", "beta.bin"}}},
			}}},
			wantFail: true,
		},
		{
			name: "file that was never sown",
			expect: Tree{Dirs: []Dir{{
				Path:  "library",
				Files: []File{{Path: []string{"gamma.bin"}}},
			}}},
			wantFail: true,
		},
		{
			name: "survivor reported absent",
			expect: Tree{Dirs: []Dir{{
				Path:   "library",
				Absent: []string{"alpha.bin"},
			}}},
			wantFail: true,
		},
		{
			name: "genuinely absent path",
			expect: Tree{Dirs: []Dir{{
				Path:   "library",
				Absent: []string{"gamma.bin"},
			}}},
			wantFail: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			if err := SowTree(root, given); err != nil {
				t.Fatalf("sow: %v", err)
			}

			probe := &testing.T{}
			h := &Harness{t: probe, root: root, given: given}
			h.Assert(tt.expect)

			if probe.Failed() != tt.wantFail {
				t.Errorf("expected failed=%v, got %v", tt.wantFail, probe.Failed())
			}
		})
	}
}

// TestAssertSeparateEntriesMustNotShareInode tests that two expected
// entries landing on one inode are rejected.
func TestAssertSeparateEntriesMustNotShareInode(t *testing.T) {
	root := t.TempDir()
	given := Tree{Dirs: []Dir{{
		Path: "library",
		Files: []File{
			{Path: []string{"alpha.bin", "twin.bin"}, Chunks: []Chunk{{Pattern: 'x', Size: "128"}}},
		},
	}}}
	if err := SowTree(root, given); err != nil {
		t.Fatalf("sow: %v", err)
	}

	probe := &testing.T{}
	h := &Harness{t: probe, root: root, given: given}
	h.Assert(Tree{Dirs: []Dir{{
		Path: "library",
		Files: []File{
			{Path: []string{"alpha.bin"}},
			{Path: []string{"twin.bin"}},
		},
	}}})

	if !probe.Failed() {
		t.Error("expected entries sharing an inode to be flagged")
	}
}

// =============================================================================
// Harness Tests
// =============================================================================

func TestNewSowsFixture(t *testing.T) {
	h := New(t, Tree{Dirs: []Dir{{
		Path: "mirror",
		Files: []File{
			{Path: []string{"one.bin", "two.bin"}, Chunks: []Chunk{{Pattern: 'x', Size: "1KiB"}}},
		},
	}}})

	if h.Path("mirror") != filepath.Join(h.Root(), "mirror") {
		t.Errorf("Path should resolve against the root, got %s", h.Path("mirror"))
	}

	one, err := os.Stat(h.Path("mirror/one.bin"))
	if err != nil {
		t.Fatal(err)
	}
	two, err := os.Stat(h.Path("mirror/two.bin"))
	if err != nil {
		t.Fatal(err)
	}
	if !os.SameFile(one, two) {
		t.Error("sown entry paths should share an inode")
	}
}

// =============================================================================
// Type Tests
// =============================================================================

func TestFileTotalSize(t *testing.T) {
	tests := []struct {
		name   string
		chunks []Chunk
		want   int64
	}{
		{"no chunks", nil, 0},
		{"bare byte count", []Chunk{{Pattern: 'x', Size: "512"}}, 512},
		{"mixed units", []Chunk{{Pattern: 'x', Size: "1KiB"}, {Pattern: 'y', Size: "4KiB"}}, 5120},
		{"unparseable size counts zero", []Chunk{{Pattern: 'x', Size: "several"}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := File{Chunks: tt.chunks}
			if got := f.TotalSize(); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}
