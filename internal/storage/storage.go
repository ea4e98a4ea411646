package storage

import (
	"context"
	"errors"
	"time"

	"github.com/reposcope/reposcope/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
)

// Store defines the document-store operations the indexing pipeline consumes:
// bulk insert, delete-by-file, per-file metadata aggregation, project metadata
// upsert, and linear similarity search.
type Store interface {
	// Chunk operations
	BulkInsert(ctx context.Context, chunks []*types.ChunkDocument) error
	DeleteChunks(ctx context.Context, projectID, filePath string) (int, error)

	// FileMetadataSnapshot returns the per-file change-detection fingerprints
	// for a project, keyed by relative path, aggregated across chunks.
	FileMetadataSnapshot(ctx context.Context, projectID string) (map[string]types.FileMeta, error)

	// Project metadata operations
	UpsertProject(ctx context.Context, projectID, directoryPath string, excludePatterns []string) error
	GetProject(ctx context.Context, projectID string) (*ProjectMetadata, error)
	ListProjects(ctx context.Context) ([]ProjectInfo, error)
	ProjectStats(ctx context.Context, projectID string) (*ProjectStats, error)
	DeleteProject(ctx context.Context, projectID string) (int, error)

	// Search ranks chunks by cosine similarity to the query vector,
	// descending. An empty projectID searches across all projects.
	Search(ctx context.Context, queryVector []float32, topK int, projectID string) ([]types.SearchResult, error)

	Close() error
}

// ProjectMetadata is the per-project record persisted across indexing runs.
type ProjectMetadata struct {
	ProjectID       string
	DirectoryPath   string
	ExcludePatterns []string
	CreatedAt       time.Time
	LastIndexed     time.Time
	UpdatedAt       time.Time
}

// ProjectInfo is one row of the project listing.
type ProjectInfo struct {
	ProjectID       string    `json:"projectId"`
	DocumentCount   int       `json:"documentCount"`
	LastModified    time.Time `json:"lastModified"`
	DirectoryPath   string    `json:"directoryPath"`
	ExcludePatterns []string  `json:"excludePatterns"`
}

// FileStat is the per-file chunk count within a project.
type FileStat struct {
	FilePath string `json:"filePath"`
	Chunks   int    `json:"chunks"`
}

// ProjectStats aggregates a project's indexed contents.
type ProjectStats struct {
	TotalDocuments int        `json:"totalDocuments"`
	TotalFiles     int        `json:"totalFiles"`
	Files          []FileStat `json:"files"`
}
