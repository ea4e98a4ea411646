package engine

import (
	"path/filepath"
	"strings"
)

// textExtensions is the set of extensions eligible for indexing: source,
// config, documentation, and plain-text formats.
var textExtensions = map[string]struct{}{
	".go": {}, ".py": {}, ".js": {}, ".ts": {}, ".jsx": {}, ".tsx": {},
	".java": {}, ".c": {}, ".h": {}, ".cpp": {}, ".hpp": {}, ".cc": {},
	".cs": {}, ".rb": {}, ".rs": {}, ".php": {}, ".swift": {}, ".kt": {},
	".scala": {}, ".clj": {}, ".ex": {}, ".exs": {}, ".erl": {}, ".hs": {},
	".lua": {}, ".pl": {}, ".r": {}, ".sh": {}, ".bash": {}, ".zsh": {},
	".ps1": {}, ".bat": {}, ".sql": {}, ".proto": {}, ".graphql": {},
	".html": {}, ".htm": {}, ".css": {}, ".scss": {}, ".less": {},
	".vue": {}, ".svelte": {},
	".json": {}, ".yaml": {}, ".yml": {}, ".toml": {}, ".ini": {},
	".cfg": {}, ".conf": {}, ".properties": {}, ".xml": {}, ".gradle": {},
	".tf": {}, ".tfvars": {}, ".cmake": {}, ".mk": {}, ".dockerfile": {},
	".md": {}, ".markdown": {}, ".rst": {}, ".adoc": {}, ".txt": {},
	".csv": {}, ".tsv": {},
}

// IsTextFile reports whether a file name is eligible for indexing: its
// extension is in the known text set, or it has no extension at all (README,
// Makefile, Dockerfile and friends). Binary and unlisted extensions are
// silently skipped by the walker.
func IsTextFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return true
	}
	_, ok := textExtensions[ext]
	return ok
}

// FileType returns the classification tag stored in chunk metadata: the
// extension without the leading dot, or "text" for extensionless files.
func FileType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return "text"
	}
	return strings.TrimPrefix(ext, ".")
}
