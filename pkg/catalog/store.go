package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/scanio-ignore/pkg/shared/files"
)

// FragmentExt is the suffix of worker fragment files. It keeps the catalog and other
// markdown files sharing a folder with fragments out of a merge.
const FragmentExt = ".fragment.md"

// Load reads the catalog at path. A missing file yields an empty catalog.
func Load(path string, ws *Workspace, logger hclog.Logger) (Catalog, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return Catalog{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog %q: %w", path, err)
	}
	defer f.Close()

	return Decode(f, ws, DecodeOptions{CatalogPath: path, Logger: logger})
}

// Dump writes c to path. The file is replaced atomically and left untouched on any error.
func Dump(c Catalog, path string) error {
	data, err := Encode(c)
	if err != nil {
		return err
	}
	if err := files.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("failed to write catalog %q: %w", path, err)
	}
	return nil
}

// IsDirty reports whether next differs from prev in its keys or in any entry.
func IsDirty(prev, next Catalog) bool {
	if len(prev) != len(next) {
		return true
	}
	for k, e := range next {
		old, ok := prev[k]
		if !ok || !old.Equal(e) {
			return true
		}
	}
	return false
}

// WriteFragment dumps a worker's partial catalog into dir under a unique name.
func WriteFragment(c Catalog, dir string) (string, error) {
	path := filepath.Join(dir, uuid.NewString()+FragmentExt)
	if err := Dump(c, path); err != nil {
		return "", err
	}
	return path, nil
}

// LoadDir loads every fragment in dir and returns their union.
// Fragments are read in name order.
func LoadDir(dir string, ws *Workspace, logger hclog.Logger) (Catalog, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*"+FragmentExt))
	if err != nil {
		return nil, fmt.Errorf("failed to list fragments in %q: %w", dir, err)
	}
	sort.Strings(paths)

	fragments := make([]Catalog, 0, len(paths))
	for _, p := range paths {
		c, err := Load(p, ws, logger)
		if err != nil {
			return nil, err
		}
		logger.Debug("loaded catalog fragment", "path", p, "entries", len(c))
		fragments = append(fragments, c)
	}
	return Merge(fragments...), nil
}
