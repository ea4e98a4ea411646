package types

import (
	"errors"
	"time"
)

// ChunkDocument is the atomic unit of the vector store: one bounded slice of a
// source file's text together with its embedding and file-level metadata.
type ChunkDocument struct {
	// Identification
	ID        string
	ProjectID string
	FilePath  string // Relative to the indexed root

	// Position within the file's ordered chunk sequence
	ChunkIndex  int
	TotalChunks int

	// Content is prefixed with the file/line-range header; the header is part
	// of the text sent for vectorization, not just a display label
	Content   string
	Embedding []float32

	Metadata  ChunkMetadata
	CreatedAt time.Time
}

// ChunkMetadata carries the per-file change-detection fingerprint plus the
// chunk's line range.
type ChunkMetadata struct {
	FileSize     int64
	FileType     string
	LastModified time.Time
	ContentHash  string
	StartLine    int
	EndLine      int
}

// Validate performs basic consistency checks on a chunk document.
func (c *ChunkDocument) Validate() error {
	if c.ProjectID == "" {
		return ErrMissingProjectID
	}
	if c.FilePath == "" {
		return ErrMissingFilePath
	}
	if c.Content == "" {
		return ErrEmptyContent
	}
	if c.ChunkIndex < 0 || c.ChunkIndex >= c.TotalChunks {
		return errors.New("chunk index out of range")
	}
	if c.Metadata.StartLine <= 0 || c.Metadata.EndLine < c.Metadata.StartLine {
		return errors.New("invalid line range")
	}
	return nil
}

// FileChunk is a chunk as produced by the chunking engine, before it is
// embedded and assembled into a ChunkDocument.
type FileChunk struct {
	Content   string
	StartLine int // 1-based
	EndLine   int // 1-based, inclusive
}

// FileMeta is the per-file fingerprint kept in the document store and compared
// against the filesystem on delta runs.
type FileMeta struct {
	FileSize     int64
	LastModified time.Time
	ContentHash  string
}

// DeltaStats summarizes the per-file decisions of one delta indexing run.
type DeltaStats struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Deleted int `json:"deleted"`
	Total   int `json:"total"`
}
