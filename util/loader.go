// Package util - Dataset file helpers.
package util

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/mapo80/signature-detection/images"
)

// ListImageFiles returns the files of dir whose extension matches ext,
// case-insensitively, sorted by file name. Subdirectories are ignored.
//
// Arguments:
// - dir: Directory path containing image files.
// - ext: The extension including the dot, e.g. ".jpg".
//
// Returns:
// - []string: Full paths of the matching files.
// - error: The wrapped os error if dir cannot be read.
func ListImageFiles(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", dir)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !images.HasExtension(entry.Name(), ext) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}

	sort.Slice(paths, func(i, j int) bool {
		return filepath.Base(paths[i]) < filepath.Base(paths[j])
	})

	return paths, nil
}

// ListFilesWithSuffix walks dir, optionally recursing, and returns every
// regular file whose name ends with suffix, in lexical order.
func ListFilesWithSuffix(dir, suffix string, recursive bool) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if images.HasExtension(path, suffix) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walk %s", dir)
	}
	return paths, nil
}
