//go:build unix

package deduper

import (
	"fmt"
	"os"
	"syscall"
)

// osLink performs the hardlink step of the replacement dance. Kept as a
// variable so tests can make it fail after the rename step and verify the
// parked original survives.
var osLink = os.Link

// inodeInfo identifies where a path's bytes live.
type inodeInfo struct {
	Dev  uint64
	Ino  uint64
	Size int64
}

func statInode(path string) (inodeInfo, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return inodeInfo{}, err
	}
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return inodeInfo{}, fmt.Errorf("lstat %s: no stat_t", path)
	}
	//nolint:unconvert // Dev is int32 on some platforms (e.g. darwin), uint64 on linux
	return inodeInfo{Dev: uint64(stat.Dev), Ino: stat.Ino, Size: info.Size()}, nil
}

// replaceWithHardlink swaps a duplicate for a hardlink to the canonical copy.
//
// The dance keeps the duplicate's bytes recoverable at every step:
//
//	1. stat both paths; same dev+ino means already deduplicated (no-op)
//	2. rename the duplicate to a temporary sibling (duplicate + TempSuffix)
//	3. link the canonical at the duplicate's original path
//	4. remove the temporary sibling
//
// If step 3 fails the temporary sibling is kept, never deleted: the
// duplicate's bytes survive under the temporary name and the error names
// both paths so the operator can recover by hand.
func replaceWithHardlink(canonical, dup string) *Result {
	res := &Result{Canonical: canonical, Duplicate: dup, Action: ActionSkipped}

	canonInfo, err := statInode(canonical)
	if err != nil {
		res.Err = fmt.Errorf("stat canonical: %w", err)
		return res
	}
	dupInfo, err := statInode(dup)
	if err != nil {
		res.Err = fmt.Errorf("stat duplicate: %w", err)
		return res
	}

	if canonInfo.Dev == dupInfo.Dev && canonInfo.Ino == dupInfo.Ino {
		res.Action = ActionAlreadyLinked
		return res
	}

	// Equal fingerprints imply equal sizes. A mismatch here means one of
	// the files changed after it was hashed, so neither is touched.
	if canonInfo.Size != dupInfo.Size {
		res.Err = fmt.Errorf("size mismatch: canonical %d bytes, duplicate %d bytes", canonInfo.Size, dupInfo.Size)
		return res
	}

	tmp := dup + TempSuffix
	if err := os.Rename(dup, tmp); err != nil {
		res.Err = fmt.Errorf("park duplicate: %w", err)
		return res
	}

	if err := osLink(canonical, dup); err != nil {
		// The duplicate's bytes now live only at tmp. It stays.
		res.Err = fmt.Errorf("link %s: original kept at %s: %w", escapePath(canonical), escapePath(tmp), err)
		return res
	}

	if err := os.Remove(tmp); err != nil {
		// The link is in place; only the parked copy lingers.
		res.Err = fmt.Errorf("remove parked duplicate %s: %w", escapePath(tmp), err)
		return res
	}

	res.Action = ActionLinked
	res.SpaceSaved = dupInfo.Size
	return res
}

// deleteDuplicate removes the duplicate outright. The content remains
// reachable through the canonical copy.
func deleteDuplicate(canonical, dup string) *Result {
	res := &Result{Canonical: canonical, Duplicate: dup, Action: ActionSkipped}
	if err := os.Remove(dup); err != nil {
		res.Err = fmt.Errorf("remove duplicate: %w", err)
		return res
	}
	res.Action = ActionDeleted
	return res
}

// renameDuplicate marks the duplicate by renaming it aside. An existing
// file under the marker name is replaced, matching rename semantics.
func renameDuplicate(canonical, dup string) *Result {
	res := &Result{Canonical: canonical, Duplicate: dup, Action: ActionSkipped}
	if err := os.Rename(dup, dup+RenameSuffix); err != nil {
		res.Err = fmt.Errorf("rename duplicate: %w", err)
		return res
	}
	res.Action = ActionRenamed
	return res
}
