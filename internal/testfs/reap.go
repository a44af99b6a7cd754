//go:build unix

package testfs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
)

// -----------------------------------------------------------------------------
// Reaping - capture on-disk state
// -----------------------------------------------------------------------------

// ReapPaths captures the state of the named directories, each relative to
// root. Hardlinked paths collapse into one ReapFile per inode.
func ReapPaths(root string, dirs []string) (*ReapResult, error) {
	var result ReapResult
	for _, dir := range dirs {
		rd, err := reapDir(filepath.Join(root, dir), dir)
		if err != nil {
			return nil, fmt.Errorf("reap %s: %w", dir, err)
		}
		result.Dirs = append(result.Dirs, rd)
	}
	return &result, nil
}

// reaper accumulates one directory's state while walking it.
type reaper struct {
	base  string
	dir   ReapDir
	byIno map[uint64]*ReapFile
}

func reapDir(dirPath, name string) (ReapDir, error) {
	r := &reaper{
		base:  dirPath,
		dir:   ReapDir{Name: name},
		byIno: make(map[uint64]*ReapFile),
	}

	err := filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == dirPath {
			return nil
		}
		return r.visit(path, d)
	})
	if err != nil {
		return r.dir, err
	}

	for _, rf := range r.byIno {
		r.dir.Files = append(r.dir.Files, *rf)
	}
	return r.dir, nil
}

// visit classifies one walked entry. Directories contribute nothing
// themselves, symlinks record their stored target, and regular files group
// by inode.
func (r *reaper) visit(path string, d fs.DirEntry) error {
	rel, _ := filepath.Rel(r.base, path)

	switch {
	case d.Type()&fs.ModeSymlink != 0:
		target, err := os.Readlink(path)
		if err != nil {
			return fmt.Errorf("readlink %s: %w", path, err)
		}
		r.dir.Symlinks = append(r.dir.Symlinks, ReapSymlink{Path: rel, Target: target})

	case d.IsDir():

	default:
		info, err := d.Info()
		if err != nil {
			return err
		}
		stat, ok := info.Sys().(*syscall.Stat_t)
		if !ok {
			return fmt.Errorf("no stat for %s", path)
		}
		if rf, seen := r.byIno[stat.Ino]; seen {
			rf.Path = append(rf.Path, rel)
		} else {
			r.byIno[stat.Ino] = &ReapFile{
				Path:  []string{rel},
				Inode: stat.Ino,
				Nlink: uint64(stat.Nlink), //nolint:unconvert // platform-dependent type
				Size:  info.Size(),
			}
		}
	}
	return nil
}
