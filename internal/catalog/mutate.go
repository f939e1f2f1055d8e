package catalog

import (
	"os"
	"path/filepath"

	"llamad/internal/common/fsutil"
	"llamad/internal/registry"
	"llamad/pkg/types"
)

// DestPath returns the path a pulled artifact for name should live at.
// Flat layout: <root>/<normalized name>.gguf.
func (c *Catalog) DestPath(name string) string {
	return filepath.Join(c.root, registry.Normalize(name)+".gguf")
}

// Delete removes the artifact backing name: the file for gguf models,
// the whole directory for snapshots. When a gguf file sits alone inside
// a per-model subdirectory, the now-empty directory is removed as well.
func (c *Catalog) Delete(name string) error {
	rec, err := c.Find(name)
	if err != nil {
		return err
	}
	c.log.Info().Str("model", rec.Name).Str("path", rec.Path).Msg("deleting model")
	if rec.Format == types.FormatHFSnapshot {
		if err := os.RemoveAll(rec.Path); err != nil {
			return ioError{op: "delete", path: rec.Path, err: err}
		}
		return nil
	}
	if err := os.Remove(rec.Path); err != nil {
		return ioError{op: "delete", path: rec.Path, err: err}
	}
	// Drop the parent directory when it held only this artifact.
	parent := filepath.Dir(rec.Path)
	if parent != c.root {
		if entries, err := os.ReadDir(parent); err == nil && len(entries) == 0 {
			_ = os.Remove(parent)
		}
	}
	return nil
}

// Copy duplicates source under destination's normalized name. The copy
// is all-or-nothing: a partially written destination is removed before
// the error propagates.
func (c *Catalog) Copy(source, destination string) error {
	rec, err := c.Find(source)
	if err != nil {
		return err
	}
	c.log.Info().Str("source", rec.Name).Str("destination", destination).Msg("copying model")
	if rec.Format == types.FormatHFSnapshot {
		dst := filepath.Join(c.root, registry.Normalize(destination))
		if fsutil.PathExists(dst) {
			if err := os.RemoveAll(dst); err != nil {
				return ioError{op: "copy", path: dst, err: err}
			}
		}
		if err := fsutil.CopyDir(rec.Path, dst); err != nil {
			return ioError{op: "copy", path: dst, err: err}
		}
		return nil
	}
	dst := c.DestPath(destination)
	if err := fsutil.CopyFile(rec.Path, dst); err != nil {
		return ioError{op: "copy", path: dst, err: err}
	}
	return nil
}
