package engine

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// skipDirNames are directory names pruned from the walk regardless of depth:
// version control, dependency caches, and build output.
var skipDirNames = map[string]struct{}{
	".git":         {},
	".svn":         {},
	".hg":          {},
	"node_modules": {},
	"vendor":       {},
	"target":       {},
	"dist":         {},
	"build":        {},
	"out":          {},
	"bin":          {},
	"obj":          {},
	"__pycache__":  {},
	"venv":         {},
	".venv":        {},
	"coverage":     {},
}

// builtinExcludes are glob patterns applied to every walk in addition to
// caller-supplied patterns: lockfiles, minified assets, OS metadata, env files.
var builtinExcludes = []string{
	"**/*.lock",
	"**/package-lock.json",
	"**/yarn.lock",
	"**/pnpm-lock.yaml",
	"**/*.min.js",
	"**/*.min.css",
	"**/*.min.js.map",
	"**/.DS_Store",
	"**/Thumbs.db",
	"**/.env",
	"**/.env.*",
}

// Entry is one eligible file discovered by the walk.
type Entry struct {
	AbsPath string
	RelPath string // Relative to the walk root, forward slashes
}

// Walker enumerates eligible files under a root directory, applying the union
// of built-in and caller-supplied exclude patterns with `**` glob semantics.
type Walker struct {
	root     string
	patterns []string
}

// NewWalker creates a walker for root. Caller patterns are validated eagerly so
// a bad glob fails the run before any filesystem work.
func NewWalker(root string, excludePatterns []string) (*Walker, error) {
	patterns := make([]string, 0, len(builtinExcludes)+len(excludePatterns))
	patterns = append(patterns, builtinExcludes...)
	patterns = append(patterns, excludePatterns...)

	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
	}

	return &Walker{root: root, patterns: patterns}, nil
}

// Walk enumerates all eligible files under the root. The result is sorted by
// relative path so processing order is stable within a run.
func (w *Walker) Walk() ([]Entry, error) {
	info, err := os.Stat(w.root)
	if err != nil {
		return nil, fmt.Errorf("enumerate %s: %w", w.root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("enumerate %s: not a directory", w.root)
	}

	var entries []Entry
	err = filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		name := d.Name()

		if d.IsDir() {
			if strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if _, skip := skipDirNames[name]; skip {
				return filepath.SkipDir
			}
			if w.excludedDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		// Hidden files are excluded from the walk by default
		if strings.HasPrefix(name, ".") {
			return nil
		}
		if w.excluded(rel, name) {
			return nil
		}
		if !IsTextFile(name) {
			return nil
		}

		entries = append(entries, Entry{AbsPath: path, RelPath: rel})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate %s: %w", w.root, err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].RelPath < entries[j].RelPath })
	return entries, nil
}

// excluded reports whether a file's relative path matches any exclude pattern.
// Patterns without a path separator are also matched against the base name so
// "*.log" behaves the way callers expect.
func (w *Walker) excluded(rel, name string) bool {
	for _, p := range w.patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
		if !strings.Contains(p, "/") {
			if ok, _ := doublestar.Match(p, name); ok {
				return true
			}
		}
	}
	return false
}

// excludedDir reports whether a directory can be pruned: either its path
// matches a pattern outright, or a pattern of the form "dir/**" names it.
func (w *Walker) excludedDir(rel string) bool {
	for _, p := range w.patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
		if trimmed, found := strings.CutSuffix(p, "/**"); found {
			if ok, _ := doublestar.Match(trimmed, rel); ok {
				return true
			}
		}
	}
	return false
}
