package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reposcope/reposcope/internal/indexer"
	"github.com/reposcope/reposcope/internal/jobs"
	"github.com/reposcope/reposcope/internal/searcher"
	"github.com/reposcope/reposcope/internal/storage"
	"github.com/reposcope/reposcope/pkg/types"
)

// IndexRequest is the body of an index or update request. Directory is
// required for a full index; an update falls back to the project's stored
// directory and exclude patterns when omitted.
type IndexRequest struct {
	Directory       string   `json:"directory"`
	ExcludePatterns []string `json:"excludePatterns"`
}

// SearchRequest is the body of a search request.
type SearchRequest struct {
	Query     string `json:"query"`
	TopK      int    `json:"topK"`
	ProjectID string `json:"projectId"`
}

func (s *Server) handleIndexProject(c *gin.Context) {
	projectID := c.Param("id")

	var req IndexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Directory == "" {
		respondError(c, http.StatusBadRequest, "directory is required")
		return
	}

	s.startJob(c, jobs.TypeIndex, projectID, indexer.RunRequest{
		RootDir:         req.Directory,
		ProjectID:       projectID,
		ExcludePatterns: req.ExcludePatterns,
	}, req)
}

func (s *Server) handleUpdateProject(c *gin.Context) {
	projectID := c.Param("id")

	var req IndexRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	runReq := indexer.RunRequest{
		RootDir:         req.Directory,
		ProjectID:       projectID,
		ExcludePatterns: req.ExcludePatterns,
		DeltaOnly:       true,
	}
	if runReq.RootDir == "" {
		meta, err := s.store.GetProject(c.Request.Context(), projectID)
		if errors.Is(err, storage.ErrNotFound) {
			respondError(c, http.StatusNotFound, "project not found and no directory given")
			return
		}
		if err != nil {
			respondError(c, http.StatusInternalServerError, err.Error())
			return
		}
		runReq.RootDir = meta.DirectoryPath
		runReq.ExcludePatterns = meta.ExcludePatterns
	}

	s.startJob(c, jobs.TypeUpdate, projectID, runReq, req)
}

// startJob launches the orchestrator run as a background job. The job outlives
// the HTTP request, so it runs under its own context rather than the
// request's.
func (s *Server) startJob(c *gin.Context, jobType jobs.Type, projectID string, runReq indexer.RunRequest, params any) {
	job, err := s.jobs.Start(context.Background(), jobType, projectID, params, func(ctx context.Context, progress jobs.ProgressFunc) (*jobs.Stats, error) {
		result, err := s.orch.Run(ctx, runReq, indexer.ProgressFunc(progress))
		if err != nil {
			return nil, err
		}
		return &jobs.Stats{
			FilesTotal:     result.FilesTotal,
			FilesProcessed: result.FilesProcessed,
			ChunksIndexed:  result.ChunksIndexed,
			DeltaStats:     result.Delta,
		}, nil
	})
	if errors.Is(err, jobs.ErrProjectBusy) {
		respondError(c, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	respondAccepted(c, gin.H{"jobId": job.ID, "status": job.Status})
}

func (s *Server) handleGetJob(c *gin.Context) {
	job, err := s.jobs.Get(c.Param("id"))
	if errors.Is(err, jobs.ErrJobNotFound) {
		respondError(c, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	respondOK(c, job)
}

func (s *Server) handleListJobs(c *gin.Context) {
	respondOK(c, s.jobs.All())
}

func (s *Server) handleActiveJobs(c *gin.Context) {
	respondOK(c, s.jobs.Active())
}

func (s *Server) handleListProjects(c *gin.Context) {
	projects, err := s.store.ListProjects(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	if projects == nil {
		projects = []storage.ProjectInfo{}
	}
	respondOK(c, projects)
}

func (s *Server) handleProjectStats(c *gin.Context) {
	projectID := c.Param("id")

	if _, err := s.store.GetProject(c.Request.Context(), projectID); errors.Is(err, storage.ErrNotFound) {
		respondError(c, http.StatusNotFound, "project not found")
		return
	} else if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	stats, err := s.store.ProjectStats(c.Request.Context(), projectID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	respondOK(c, stats)
}

func (s *Server) handleDeleteProject(c *gin.Context) {
	projectID := c.Param("id")

	if _, err := s.store.GetProject(c.Request.Context(), projectID); errors.Is(err, storage.ErrNotFound) {
		respondError(c, http.StatusNotFound, "project not found")
		return
	} else if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	deleted, err := s.store.DeleteProject(c.Request.Context(), projectID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Infow("project deleted", "project", projectID, "chunks", deleted)
	respondOK(c, gin.H{"deletedCount": deleted})
}

func (s *Server) handleSearch(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	results, err := s.searcher.Search(c.Request.Context(), req.Query, req.TopK, req.ProjectID)
	if errors.Is(err, searcher.ErrEmptyQuery) {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	if results == nil {
		results = []types.SearchResult{}
	}
	respondOK(c, gin.H{"results": results, "count": len(results)})
}
