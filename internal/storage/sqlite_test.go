package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reposcope/reposcope/pkg/types"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testChunk(projectID, filePath string, idx, total int, embedding []float32) *types.ChunkDocument {
	return &types.ChunkDocument{
		ProjectID:   projectID,
		FilePath:    filePath,
		ChunkIndex:  idx,
		TotalChunks: total,
		Content:     "File: " + filePath + " (lines 1-10)\n\npackage main",
		Embedding:   embedding,
		Metadata: types.ChunkMetadata{
			FileSize:     120,
			FileType:     "go",
			LastModified: time.Now().Truncate(time.Second),
			ContentHash:  "abc123",
			StartLine:    1,
			EndLine:      10,
		},
	}
}

func TestBulkInsertAssignsIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	chunks := []*types.ChunkDocument{
		testChunk("proj", "main.go", 0, 2, []float32{1, 0}),
		testChunk("proj", "main.go", 1, 2, []float32{0, 1}),
	}
	require.NoError(t, store.BulkInsert(ctx, chunks))

	assert.NotEmpty(t, chunks[0].ID)
	assert.NotEmpty(t, chunks[1].ID)
	assert.NotEqual(t, chunks[0].ID, chunks[1].ID)
	assert.False(t, chunks[0].CreatedAt.IsZero())
}

func TestBulkInsertEmptyBatch(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.BulkInsert(context.Background(), nil))
}

func TestBulkInsertRejectsInvalidChunk(t *testing.T) {
	store := newTestStore(t)

	bad := testChunk("proj", "main.go", 0, 1, []float32{1})
	bad.Content = ""
	err := store.BulkInsert(context.Background(), []*types.ChunkDocument{bad})
	assert.ErrorIs(t, err, types.ErrEmptyContent)
}

func TestBulkInsertDuplicateChunkFails(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.BulkInsert(ctx, []*types.ChunkDocument{
		testChunk("proj", "main.go", 0, 1, []float32{1}),
	}))
	err := store.BulkInsert(ctx, []*types.ChunkDocument{
		testChunk("proj", "main.go", 0, 1, []float32{1}),
	})
	assert.Error(t, err)
}

func TestDeleteChunks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.BulkInsert(ctx, []*types.ChunkDocument{
		testChunk("proj", "a.go", 0, 2, []float32{1}),
		testChunk("proj", "a.go", 1, 2, []float32{1}),
		testChunk("proj", "b.go", 0, 1, []float32{1}),
	}))

	n, err := store.DeleteChunks(ctx, "proj", "a.go")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	snapshot, err := store.FileMetadataSnapshot(ctx, "proj")
	require.NoError(t, err)
	assert.NotContains(t, snapshot, "a.go")
	assert.Contains(t, snapshot, "b.go")
}

func TestDeleteChunksMissingFile(t *testing.T) {
	store := newTestStore(t)

	n, err := store.DeleteChunks(context.Background(), "proj", "nope.go")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestFileMetadataSnapshot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	modified := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c1 := testChunk("proj", "a.go", 0, 2, []float32{1})
	c1.Metadata.LastModified = modified
	c2 := testChunk("proj", "a.go", 1, 2, []float32{1})
	c2.Metadata.LastModified = modified
	other := testChunk("other", "a.go", 0, 1, []float32{1})
	require.NoError(t, store.BulkInsert(ctx, []*types.ChunkDocument{c1, c2, other}))

	snapshot, err := store.FileMetadataSnapshot(ctx, "proj")
	require.NoError(t, err)
	require.Len(t, snapshot, 1)

	meta := snapshot["a.go"]
	assert.Equal(t, int64(120), meta.FileSize)
	assert.Equal(t, "abc123", meta.ContentHash)
	assert.True(t, meta.LastModified.Equal(modified))
}

func TestUpsertAndGetProject(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertProject(ctx, "proj", "/src/proj", []string{"**/*.md"}))

	meta, err := store.GetProject(ctx, "proj")
	require.NoError(t, err)
	assert.Equal(t, "proj", meta.ProjectID)
	assert.Equal(t, "/src/proj", meta.DirectoryPath)
	assert.Equal(t, []string{"**/*.md"}, meta.ExcludePatterns)
	assert.False(t, meta.CreatedAt.IsZero())
}

func TestUpsertProjectUpdatesInPlace(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertProject(ctx, "proj", "/src/old", nil))
	require.NoError(t, store.UpsertProject(ctx, "proj", "/src/new", []string{"*.txt"}))

	meta, err := store.GetProject(ctx, "proj")
	require.NoError(t, err)
	assert.Equal(t, "/src/new", meta.DirectoryPath)
	assert.Equal(t, []string{"*.txt"}, meta.ExcludePatterns)

	projects, err := store.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 1)
}

func TestGetProjectNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetProject(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListProjectsWithCounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertProject(ctx, "alpha", "/src/alpha", nil))
	require.NoError(t, store.UpsertProject(ctx, "beta", "/src/beta", nil))
	require.NoError(t, store.BulkInsert(ctx, []*types.ChunkDocument{
		testChunk("alpha", "a.go", 0, 2, []float32{1}),
		testChunk("alpha", "a.go", 1, 2, []float32{1}),
	}))

	projects, err := store.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "alpha", projects[0].ProjectID)
	assert.Equal(t, 2, projects[0].DocumentCount)
	assert.Equal(t, "beta", projects[1].ProjectID)
	assert.Equal(t, 0, projects[1].DocumentCount)
}

func TestProjectStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.BulkInsert(ctx, []*types.ChunkDocument{
		testChunk("proj", "a.go", 0, 2, []float32{1}),
		testChunk("proj", "a.go", 1, 2, []float32{1}),
		testChunk("proj", "b.go", 0, 1, []float32{1}),
	}))

	stats, err := store.ProjectStats(ctx, "proj")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalDocuments)
	assert.Equal(t, 2, stats.TotalFiles)
	require.Len(t, stats.Files, 2)
	assert.Equal(t, "a.go", stats.Files[0].FilePath)
	assert.Equal(t, 2, stats.Files[0].Chunks)
}

func TestDeleteProject(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertProject(ctx, "proj", "/src/proj", nil))
	require.NoError(t, store.BulkInsert(ctx, []*types.ChunkDocument{
		testChunk("proj", "a.go", 0, 1, []float32{1}),
		testChunk("proj", "b.go", 0, 1, []float32{1}),
	}))

	n, err := store.DeleteProject(ctx, "proj")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = store.GetProject(ctx, "proj")
	assert.ErrorIs(t, err, ErrNotFound)

	projects, err := store.ListProjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestSearchRanksByCosineSimilarity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	exact := testChunk("proj", "exact.go", 0, 1, []float32{1, 0, 0})
	near := testChunk("proj", "near.go", 0, 1, []float32{0.9, 0.1, 0})
	far := testChunk("proj", "far.go", 0, 1, []float32{0, 0, 1})
	require.NoError(t, store.BulkInsert(ctx, []*types.ChunkDocument{far, near, exact}))

	results, err := store.Search(ctx, []float32{1, 0, 0}, 2, "proj")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "exact.go", results[0].FilePath)
	assert.Equal(t, "near.go", results[1].FilePath)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestSearchFiltersByProject(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.BulkInsert(ctx, []*types.ChunkDocument{
		testChunk("alpha", "a.go", 0, 1, []float32{1, 0}),
		testChunk("beta", "b.go", 0, 1, []float32{1, 0}),
	}))

	results, err := store.Search(ctx, []float32{1, 0}, 10, "alpha")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "alpha", results[0].ProjectID)

	all, err := store.Search(ctx, []float32{1, 0}, 10, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSearchTopKZero(t *testing.T) {
	store := newTestStore(t)

	results, err := store.Search(context.Background(), []float32{1}, 0, "")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "persist.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.UpsertProject(ctx, "proj", "/src/proj", nil))
	require.NoError(t, store.BulkInsert(ctx, []*types.ChunkDocument{
		testChunk("proj", "a.go", 0, 1, []float32{1}),
	}))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	snapshot, err := reopened.FileMetadataSnapshot(ctx, "proj")
	require.NoError(t, err)
	assert.Contains(t, snapshot, "a.go")
}
