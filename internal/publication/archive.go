package publication

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Archive moves paths into dir and returns the new locations.
// Paths that no longer exist are skipped.
func Archive(paths []string, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}

	var moved []string
	for _, p := range paths {
		dst := filepath.Join(dir, filepath.Base(p))
		if err := os.Rename(p, dst); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return moved, fmt.Errorf("archive %s: %w", filepath.Base(p), err)
		}
		moved = append(moved, dst)
	}
	return moved, nil
}
