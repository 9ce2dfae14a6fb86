package plugins

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DirFunc is called for every plugin directory found by EnumerateDirectories.
type DirFunc func(name, path string) error

// EnumerateDirectories calls fn for each immediate subdirectory of root, in
// the order the filesystem returns them. Regular files are skipped. The first
// error returned by fn stops the enumeration and is returned unchanged.
// A root that does not exist is treated as empty.
func EnumerateDirectories(root string, fn DirFunc) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read plugin directory %s: %w", root, err)
	}

	for _, entry := range entries {
		path := filepath.Join(root, entry.Name())

		isDir := entry.IsDir()
		if !isDir && entry.Type()&fs.ModeSymlink != 0 {
			// Follow links so a linked plugin directory is still discovered
			if info, err := os.Stat(path); err == nil {
				isDir = info.IsDir()
			}
		}
		if !isDir {
			continue
		}

		if err := fn(entry.Name(), path); err != nil {
			return err
		}
	}

	return nil
}
