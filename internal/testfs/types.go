// Package testfs sows filesystem fixtures and asserts on what a run left
// behind.
//
// One Tree value plays both roles. Sown, it materializes directories,
// pattern-filled files, hardlinks and symlinks; asserted, the same shape
// states what the filesystem must look like afterwards:
//
//	given := testfs.Tree{Dirs: []Dir{{
//	    Path: "library",
//	    Files: []File{
//	        {Path: []string{"alpha.bin"}, Chunks: []Chunk{{Pattern: 'x', Size: "2KiB"}}},
//	        {Path: []string{"beta.bin"}, Chunks: []Chunk{{Pattern: 'x', Size: "2KiB"}}},
//	    },
//	}}}
//	h := testfs.New(t, given)
//	// ... run the pipeline over h.Path("library") ...
//	h.Assert(testfs.Tree{Dirs: []Dir{{
//	    Path:  "library",
//	    Files: []File{{Path: []string{"alpha.bin", "beta.bin"}}},
//	}}})
//
// Which fields matter depends on the role. Chunks drive content generation
// and are ignored by assertions. A File naming several paths means "link
// these together" when sowing and "these must share an inode" when
// asserting. Dir.Absent is assertion-only and lists paths that must be
// gone. Parent directories appear on demand, so nested fixture paths need
// no explicit setup.
package testfs

import "github.com/dustin/go-humanize"

// -----------------------------------------------------------------------------
// Fixture Vocabulary
// -----------------------------------------------------------------------------

// Tree is a declarative filesystem state, usable as fixture and as
// expectation.
type Tree struct {
	Dirs []Dir
}

// Dir is one directory under the harness root. Tests typically hand its
// path to the scanner as a scan root.
type Dir struct {
	// Path of the directory, relative to the harness root.
	Path string

	// Files holds the regular files, each entry possibly naming several
	// hardlinked paths.
	Files []File

	// Symlinks to place inside the directory.
	Symlinks []Symlink

	// Absent names paths, relative to this directory, that must exist
	// neither as file nor as symlink. Only assertions look at it.
	Absent []string
}

// File is one inode worth of regular file.
//
// Sowing writes Path[0] from Chunks and hardlinks every further path to
// it. Asserting requires all listed paths to resolve to one shared inode,
// and entries of the same Dir to occupy distinct inodes.
type File struct {
	// Path lists the file and any hardlinks, relative to the Dir.
	Path []string

	// Chunks describe the content. Two files with equal chunk lists are
	// byte-identical, which makes duplicate fixtures cheap to declare.
	Chunks []Chunk
}

// Chunk is a run of repeated bytes.
type Chunk struct {
	// Pattern byte the run repeats.
	Pattern rune

	// Size of the run, parsed by go-humanize ("512", "2KiB", "1MiB").
	Size string
}

// TotalSize sums the chunk sizes in bytes. Unparseable sizes count as zero.
func (f *File) TotalSize() int64 {
	var total int64
	for _, c := range f.Chunks {
		n, _ := humanize.ParseBytes(c.Size)
		total += int64(n)
	}
	return total
}

// Symlink places a symbolic link when sowing; asserting requires the link
// to exist with exactly this target.
type Symlink struct {
	// Path of the link, relative to the Dir.
	Path string

	// Target string stored in the link, verbatim.
	Target string
}

// -----------------------------------------------------------------------------
// Captured State
// -----------------------------------------------------------------------------

// ReapResult is the on-disk state captured for a set of directories.
type ReapResult struct {
	Dirs []ReapDir
}

// ReapDir is the captured state of one directory tree.
type ReapDir struct {
	Name     string        // Logical path, as requested
	Files    []ReapFile    // One entry per inode
	Symlinks []ReapSymlink // Links with their stored targets
}

// ReapFile is one inode and every path that resolves to it.
type ReapFile struct {
	Path  []string
	Inode uint64
	Nlink uint64
	Size  int64
}

// ReapSymlink is a captured symbolic link.
type ReapSymlink struct {
	Path   string
	Target string
}
