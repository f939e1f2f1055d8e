// Package catalog derives the set of locally stored model artifacts from
// the filesystem. There is no in-memory index: every call re-reads the
// model root, so listings can never go stale relative to disk.
package catalog

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"llamad/internal/common/fsutil"
	"llamad/internal/registry"
	"llamad/pkg/types"
)

// Catalog scans a model root directory and resolves logical names
// against the artifact registry.
type Catalog struct {
	root string
	reg  *registry.Registry
	log  zerolog.Logger
}

// New creates a catalog rooted at dir, creating the directory when
// missing. A '~' prefix is expanded.
func New(dir string, reg *registry.Registry, log zerolog.Logger) (*Catalog, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create model root: %w", err)
	}
	return &Catalog{root: abs, reg: reg, log: log}, nil
}

// Root returns the absolute model root directory.
func (c *Catalog) Root() string { return c.root }

// List walks the model root and returns one record per artifact.
// Recognized layouts: flat *.gguf files (possibly inside a per-model
// subdirectory) and snapshot directories holding *.bin/*.safetensors
// weights. Names are unique; the first artifact found under a name wins.
func (c *Catalog) List() ([]types.LocalModel, error) {
	seen := make(map[string]bool)
	var out []types.LocalModel

	err := filepath.WalkDir(c.root, func(p string, d fs.DirEntry, werr error) error {
		if werr != nil {
			return werr
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(p), ".gguf") {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		name := c.nameForStem(strings.TrimSuffix(filepath.Base(p), filepath.Ext(p)))
		if seen[name] {
			return nil
		}
		seen[name] = true
		rec := types.LocalModel{
			Name:       name,
			SizeBytes:  fi.Size(),
			Path:       p,
			ModifiedAt: fi.ModTime(),
			Format:     types.FormatGGUF,
		}
		if q := quantFromStem(filepath.Base(p)); q != "" {
			rec.Extra = map[string]string{"quantization": q}
		}
		out = append(out, rec)
		return nil
	})
	if err != nil {
		return nil, ioError{op: "list", path: c.root, err: err}
	}

	entries, err := os.ReadDir(c.root)
	if err != nil {
		return nil, ioError{op: "list", path: c.root, err: err}
	}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		dir := filepath.Join(c.root, e.Name())
		if !hasWeightFiles(dir) {
			continue
		}
		name := c.nameForStem(e.Name())
		if seen[name] {
			continue
		}
		seen[name] = true
		size, err := fsutil.DirSize(dir)
		if err != nil {
			return nil, ioError{op: "list", path: dir, err: err}
		}
		fi, err := e.Info()
		if err != nil {
			return nil, ioError{op: "list", path: dir, err: err}
		}
		out = append(out, types.LocalModel{
			Name:       name,
			SizeBytes:  size,
			Path:       dir,
			ModifiedAt: fi.ModTime(),
			Format:     types.FormatHFSnapshot,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Find returns the record for one logical name.
func (c *Catalog) Find(name string) (types.LocalModel, error) {
	models, err := c.List()
	if err != nil {
		return types.LocalModel{}, err
	}
	norm := registry.Normalize(name)
	for _, m := range models {
		if m.Name == name || registry.Normalize(m.Name) == norm {
			return m, nil
		}
	}
	return types.LocalModel{}, notFoundError{name: name}
}

// nameForStem resolves a file stem back to a logical name, falling back
// to the raw stem when the registry has no match.
func (c *Catalog) nameForStem(stem string) string {
	if c.reg != nil {
		if name, ok := c.reg.ReverseResolve(stem); ok {
			return name
		}
	}
	return stem
}

// hasWeightFiles reports whether dir directly contains snapshot weights.
func hasWeightFiles(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".bin", ".safetensors":
			return true
		}
	}
	return false
}

// quantFromStem extracts a quantization token like Q4_K_M or q8_0 from
// a gguf file name.
func quantFromStem(stem string) string {
	for _, part := range strings.FieldsFunc(stem, func(r rune) bool { return r == '.' || r == '-' }) {
		u := strings.ToUpper(part)
		if len(u) >= 2 && u[0] == 'Q' && u[1] >= '0' && u[1] <= '9' {
			return u
		}
	}
	return ""
}
