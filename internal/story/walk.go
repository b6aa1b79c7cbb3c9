package story

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// skipDirs are directory names never descended into during discovery.
var skipDirs = []string{".git", "node_modules", ".longform"}

// FindChapterFiles walks the content directory and returns chapter
// markdown paths (relative, slash-separated) that match the include
// patterns and none of the exclude patterns, sorted by name so numeric
// prefixes define reading order.
func FindChapterFiles(dir string, include, exclude []string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			for _, skip := range skipDirs {
				if strings.EqualFold(d.Name(), skip) {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if !strings.HasSuffix(path, ".md") {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !matchesInclude(rel, include) || matchesAny(rel, exclude) {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("content directory %s does not exist", dir)
		}
		return nil, fmt.Errorf("walking content dir: %w", err)
	}

	sort.Strings(paths)
	return paths, nil
}

// matchesInclude treats an empty pattern list as match-everything.
func matchesInclude(relPath string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	return matchesAny(relPath, patterns)
}

// matchesAny checks if relPath matches any of the given glob patterns.
// It uses doublestar for ** support and falls back to filepath.Match.
func matchesAny(relPath string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		if ok, err := doublestar.Match(pattern, relPath); err == nil && ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, relPath); ok {
			return true
		}
		// A bare directory prefix excludes its whole subtree.
		if strings.HasPrefix(relPath, strings.TrimSuffix(pattern, "/**")+"/") {
			return true
		}
	}
	return false
}
