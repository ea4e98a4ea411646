package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

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

func newTestServer(t *testing.T) *Server {
	t.Helper()

	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "api.db"))
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
	search := searcher.New(emb, store, logger)

	return NewServer(orch, mgr, search, store, logger)
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data is not an object: %s", rec.Body.String())
	return data
}

func waitForCompletion(t *testing.T, srv *Server, jobID string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec := doJSON(t, srv, http.MethodGet, "/api/jobs/"+jobID, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		job := decodeData(t, rec)
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

func writeSource(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeData(t, rec)["status"])
}

func TestIndexProjectLifecycle(t *testing.T) {
	srv := newTestServer(t)
	root := t.TempDir()
	writeSource(t, root, "main.go", "package main\n\nfunc main() {}\n")
	writeSource(t, root, "util.go", "package main\n")

	rec := doJSON(t, srv, http.MethodPost, "/api/projects/myproj/index", IndexRequest{Directory: root})
	require.Equal(t, http.StatusAccepted, rec.Code)
	jobID, ok := decodeData(t, rec)["jobId"].(string)
	require.True(t, ok)

	job := waitForCompletion(t, srv, jobID)
	assert.Equal(t, float64(100), job["progress"])
	stats, ok := job["stats"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(2), stats["filesTotal"])
	assert.Equal(t, float64(2), stats["chunksIndexed"])

	// Project listing and stats reflect the indexed content
	rec = doJSON(t, srv, http.MethodGet, "/api/projects", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listResp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listResp))
	projects, ok := listResp.Data.([]any)
	require.True(t, ok)
	require.Len(t, projects, 1)

	rec = doJSON(t, srv, http.MethodGet, "/api/projects/myproj/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decodeData(t, rec)["totalFiles"])
}

func TestIndexRequiresDirectory(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/projects/p/index", IndexRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateUsesStoredProjectMetadata(t *testing.T) {
	srv := newTestServer(t)
	root := t.TempDir()
	writeSource(t, root, "a.go", "package a\n")

	rec := doJSON(t, srv, http.MethodPost, "/api/projects/p/index", IndexRequest{Directory: root})
	require.Equal(t, http.StatusAccepted, rec.Code)
	waitForCompletion(t, srv, decodeData(t, rec)["jobId"].(string))

	// Update with an empty body reuses the stored directory
	rec = doJSON(t, srv, http.MethodPost, "/api/projects/p/update", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	job := waitForCompletion(t, srv, decodeData(t, rec)["jobId"].(string))

	stats := job["stats"].(map[string]any)
	delta := stats["deltaStats"].(map[string]any)
	assert.Equal(t, float64(1), delta["skipped"])
}

func TestUpdateUnknownProject(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/projects/ghost/update", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetJobNotFound(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/jobs/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListAndActiveJobs(t *testing.T) {
	srv := newTestServer(t)
	root := t.TempDir()
	writeSource(t, root, "a.go", "package a\n")

	rec := doJSON(t, srv, http.MethodPost, "/api/projects/p/index", IndexRequest{Directory: root})
	require.Equal(t, http.StatusAccepted, rec.Code)
	waitForCompletion(t, srv, decodeData(t, rec)["jobId"].(string))

	rec = doJSON(t, srv, http.MethodGet, "/api/jobs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	all, ok := resp.Data.([]any)
	require.True(t, ok)
	assert.Len(t, all, 1)

	rec = doJSON(t, srv, http.MethodGet, "/api/jobs/active", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSearchEndpoint(t *testing.T) {
	srv := newTestServer(t)
	root := t.TempDir()
	for i := 0; i < 4; i++ {
		writeSource(t, root, fmt.Sprintf("f%d.go", i), fmt.Sprintf("package p%d\n", i))
	}

	rec := doJSON(t, srv, http.MethodPost, "/api/projects/p/index", IndexRequest{Directory: root})
	require.Equal(t, http.StatusAccepted, rec.Code)
	waitForCompletion(t, srv, decodeData(t, rec)["jobId"].(string))

	rec = doJSON(t, srv, http.MethodPost, "/api/search", SearchRequest{
		Query: "package", TopK: 2, ProjectID: "p",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	assert.Equal(t, float64(2), data["count"])

	rec = doJSON(t, srv, http.MethodPost, "/api/search", SearchRequest{Query: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteProjectEndpoint(t *testing.T) {
	srv := newTestServer(t)
	root := t.TempDir()
	writeSource(t, root, "a.go", "package a\n")

	rec := doJSON(t, srv, http.MethodPost, "/api/projects/p/index", IndexRequest{Directory: root})
	require.Equal(t, http.StatusAccepted, rec.Code)
	waitForCompletion(t, srv, decodeData(t, rec)["jobId"].(string))

	rec = doJSON(t, srv, http.MethodDelete, "/api/projects/p", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeData(t, rec)["deletedCount"])

	rec = doJSON(t, srv, http.MethodDelete, "/api/projects/p", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/projects/p/stats", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
