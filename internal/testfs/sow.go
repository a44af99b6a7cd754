package testfs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
)

// -----------------------------------------------------------------------------
// Sowing - materialize a Tree on disk
// -----------------------------------------------------------------------------

// SowTree materializes spec under root.
func SowTree(root string, spec Tree) error {
	for _, dir := range spec.Dirs {
		if err := sowDir(root, dir); err != nil {
			return fmt.Errorf("sow %s: %w", dir.Path, err)
		}
	}
	return nil
}

func sowDir(root string, dir Dir) error {
	base := filepath.Join(root, dir.Path)
	if err := os.MkdirAll(base, 0o755); err != nil {
		return err
	}

	for _, f := range dir.Files {
		if err := sowFile(base, f); err != nil {
			return err
		}
	}

	for _, sym := range dir.Symlinks {
		link := filepath.Join(base, sym.Path)
		if err := ensureParent(link); err != nil {
			return err
		}
		if err := os.Symlink(sym.Target, link); err != nil {
			return fmt.Errorf("symlink %s: %w", link, err)
		}
	}
	return nil
}

// sowFile writes the entry's first path from its chunks and hardlinks the
// remaining paths to it.
func sowFile(base string, f File) error {
	if len(f.Path) == 0 {
		return nil
	}

	first := filepath.Join(base, f.Path[0])
	if err := writeContent(first, f.Chunks); err != nil {
		return fmt.Errorf("write %s: %w", first, err)
	}

	for _, p := range f.Path[1:] {
		link := filepath.Join(base, p)
		if err := ensureParent(link); err != nil {
			return err
		}
		if err := os.Link(first, link); err != nil {
			return fmt.Errorf("link %s: %w", link, err)
		}
	}
	return nil
}

// writeContent streams the chunk sequence into a freshly created file.
func writeContent(path string, chunks []Chunk) (err error) {
	if err := ensureParent(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	for _, c := range chunks {
		n, err := humanize.ParseBytes(c.Size)
		if err != nil {
			return fmt.Errorf("chunk size %q: %w", c.Size, err)
		}
		if _, err := io.CopyN(f, patternReader{byte(c.Pattern)}, int64(n)); err != nil {
			return err
		}
	}
	return nil
}

// patternReader yields an endless run of one byte; io.CopyN trims it to
// the chunk size.
type patternReader struct{ b byte }

func (r patternReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.b
	}
	return len(p), nil
}

// ensureParent gives nested fixture paths mkdir -p semantics.
func ensureParent(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
