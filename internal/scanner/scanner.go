// Package scanner discovers candidate files: either a recursive scan of
// the root by extension, or a fixed list of explicit paths resolved
// against it.
package scanner

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// Walk collects files under root whose extension matches, skipping
// hidden and excluded directories. Results are sorted so runs are
// deterministic.
func Walk(root string, extensions, exclude []string) ([]string, error) {
	extSet := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		extSet[e] = true
	}
	skip := skipSet(exclude)

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skip[d.Name()] {
				return filepath.SkipDir
			}
			if path != root && hidden(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if extSet[filepath.Ext(d.Name())] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// Dirs lists the directories a scan of root descends into, the root
// itself included. Used to seed a filesystem watch.
func Dirs(root string, exclude []string) ([]string, error) {
	skip := skipSet(exclude)

	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (skip[d.Name()] || hidden(d.Name())) {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(dirs)
	return dirs, nil
}

// Resolve joins explicit paths against root. Existence is not checked
// here; a path that turns out to be absent surfaces as its own outcome
// when processed.
func Resolve(root string, paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if filepath.IsAbs(p) {
			out = append(out, filepath.Clean(p))
			continue
		}
		out = append(out, filepath.Join(root, p))
	}
	return out
}

func skipSet(exclude []string) map[string]bool {
	m := make(map[string]bool, len(exclude))
	for _, d := range exclude {
		m[d] = true
	}
	return m
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
