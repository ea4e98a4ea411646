package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reposcope/reposcope/internal/config"
	"github.com/reposcope/reposcope/internal/embedder"
	"github.com/reposcope/reposcope/internal/indexer"
	"github.com/reposcope/reposcope/internal/jobs"
	"github.com/reposcope/reposcope/internal/logging"
	"github.com/reposcope/reposcope/internal/searcher"
	"github.com/reposcope/reposcope/internal/storage"
)

func newTestMCPServer(t *testing.T) *Server {
	t.Helper()

	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "mcp.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	emb, err := embedder.NewFallbackProvider(16, nil)
	require.NoError(t, err)

	logger := logging.NewNop()
	orch := indexer.New(store, emb, config.IndexingConfig{
		ChunkSizeChars:   2000,
		MaxFileSizeBytes: 1 << 20,
		EmbedConcurrency: 2,
	}, logger)
	mgr := jobs.NewManager(24*time.Hour, logger)

	return NewServer(orch, mgr, searcher.New(emb, store, logger), store, logger)
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func resultJSON(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func awaitJob(t *testing.T, srv *Server, jobID string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		result, err := srv.handleGetJobStatus(context.Background(), callRequest(map[string]interface{}{
			"job_id": jobID,
		}))
		require.NoError(t, err)
		job := resultJSON(t, result)
		switch job["status"] {
		case string(jobs.StatusCompleted):
			return job
		case string(jobs.StatusFailed):
			t.Fatalf("job failed: %v", job["error"])
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job did not complete in time")
	return nil
}

func writeRepoFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestIndexRepositoryTool(t *testing.T) {
	srv := newTestMCPServer(t)
	root := t.TempDir()
	writeRepoFile(t, root, "main.go", "package main\n")

	result, err := srv.handleIndexRepository(context.Background(), callRequest(map[string]interface{}{
		"project_id": "proj",
		"directory":  root,
	}))
	require.NoError(t, err)

	launch := resultJSON(t, result)
	jobID, ok := launch["job_id"].(string)
	require.True(t, ok)

	job := awaitJob(t, srv, jobID)
	stats := job["stats"].(map[string]any)
	assert.Equal(t, float64(1), stats["filesTotal"])
	assert.Equal(t, float64(1), stats["chunksIndexed"])
}

func TestIndexRepositoryValidation(t *testing.T) {
	srv := newTestMCPServer(t)

	tests := []struct {
		name string
		args map[string]interface{}
		code int
	}{
		{"missing project_id", map[string]interface{}{"directory": "/tmp"}, ErrorCodeInvalidParams},
		{"missing directory", map[string]interface{}{"project_id": "p"}, ErrorCodeInvalidParams},
		{"relative directory", map[string]interface{}{"project_id": "p", "directory": "rel/path"}, ErrorCodeInvalidParams},
		{"missing directory on disk", map[string]interface{}{"project_id": "p", "directory": "/definitely/not/here"}, ErrorCodeInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := srv.handleIndexRepository(context.Background(), callRequest(tt.args))
			require.Error(t, err)
			var mcpErr *MCPError
			require.ErrorAs(t, err, &mcpErr)
			assert.Equal(t, tt.code, mcpErr.Code)
		})
	}
}

func TestUpdateRepositoryUsesStoredMetadata(t *testing.T) {
	srv := newTestMCPServer(t)
	root := t.TempDir()
	writeRepoFile(t, root, "a.go", "package a\n")

	result, err := srv.handleIndexRepository(context.Background(), callRequest(map[string]interface{}{
		"project_id": "proj",
		"directory":  root,
	}))
	require.NoError(t, err)
	awaitJob(t, srv, resultJSON(t, result)["job_id"].(string))

	result, err = srv.handleUpdateRepository(context.Background(), callRequest(map[string]interface{}{
		"project_id": "proj",
	}))
	require.NoError(t, err)
	job := awaitJob(t, srv, resultJSON(t, result)["job_id"].(string))

	stats := job["stats"].(map[string]any)
	delta := stats["deltaStats"].(map[string]any)
	assert.Equal(t, float64(1), delta["skipped"])
}

func TestUpdateRepositoryUnknownProject(t *testing.T) {
	srv := newTestMCPServer(t)

	_, err := srv.handleUpdateRepository(context.Background(), callRequest(map[string]interface{}{
		"project_id": "ghost",
	}))
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeProjectNotFound, mcpErr.Code)
}

func TestGetJobStatusUnknownJob(t *testing.T) {
	srv := newTestMCPServer(t)

	_, err := srv.handleGetJobStatus(context.Background(), callRequest(map[string]interface{}{
		"job_id": "nope",
	}))
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeJobNotFound, mcpErr.Code)
}

func TestSearchCodeTool(t *testing.T) {
	srv := newTestMCPServer(t)
	root := t.TempDir()
	writeRepoFile(t, root, "a.go", "package a\n")
	writeRepoFile(t, root, "b.go", "package b\n")

	result, err := srv.handleIndexRepository(context.Background(), callRequest(map[string]interface{}{
		"project_id": "proj",
		"directory":  root,
	}))
	require.NoError(t, err)
	awaitJob(t, srv, resultJSON(t, result)["job_id"].(string))

	result, err = srv.handleSearchCode(context.Background(), callRequest(map[string]interface{}{
		"query":      "package",
		"project_id": "proj",
		"top_k":      float64(1),
	}))
	require.NoError(t, err)
	assert.Equal(t, float64(1), resultJSON(t, result)["count"])
}

func TestSearchCodeValidation(t *testing.T) {
	srv := newTestMCPServer(t)

	_, err := srv.handleSearchCode(context.Background(), callRequest(map[string]interface{}{}))
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeEmptyQuery, mcpErr.Code)

	_, err = srv.handleSearchCode(context.Background(), callRequest(map[string]interface{}{
		"query": "x",
		"top_k": float64(500),
	}))
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestListJobsAndProjectsTools(t *testing.T) {
	srv := newTestMCPServer(t)
	root := t.TempDir()
	writeRepoFile(t, root, "a.go", "package a\n")

	result, err := srv.handleIndexRepository(context.Background(), callRequest(map[string]interface{}{
		"project_id": "proj",
		"directory":  root,
	}))
	require.NoError(t, err)
	awaitJob(t, srv, resultJSON(t, result)["job_id"].(string))

	result, err = srv.handleListJobs(context.Background(), callRequest(map[string]interface{}{}))
	require.NoError(t, err)
	assert.Equal(t, float64(1), resultJSON(t, result)["count"])

	result, err = srv.handleListJobs(context.Background(), callRequest(map[string]interface{}{
		"active_only": true,
	}))
	require.NoError(t, err)
	assert.Equal(t, float64(0), resultJSON(t, result)["count"])

	result, err = srv.handleListProjects(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.Equal(t, float64(1), resultJSON(t, result)["count"])
}

func TestProjectStatsAndDeleteTools(t *testing.T) {
	srv := newTestMCPServer(t)
	root := t.TempDir()
	writeRepoFile(t, root, "a.go", "package a\n")

	result, err := srv.handleIndexRepository(context.Background(), callRequest(map[string]interface{}{
		"project_id": "proj",
		"directory":  root,
	}))
	require.NoError(t, err)
	awaitJob(t, srv, resultJSON(t, result)["job_id"].(string))

	result, err = srv.handleGetProjectStats(context.Background(), callRequest(map[string]interface{}{
		"project_id": "proj",
	}))
	require.NoError(t, err)
	assert.Equal(t, float64(1), resultJSON(t, result)["totalFiles"])

	result, err = srv.handleDeleteProject(context.Background(), callRequest(map[string]interface{}{
		"project_id": "proj",
	}))
	require.NoError(t, err)
	assert.Equal(t, true, resultJSON(t, result)["deleted"])

	_, err = srv.handleGetProjectStats(context.Background(), callRequest(map[string]interface{}{
		"project_id": "proj",
	}))
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeProjectNotFound, mcpErr.Code)
}
