// Package api exposes the indexing pipeline over HTTP: project indexing and
// delta updates as asynchronous jobs, job status polling, project management,
// and semantic search.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/reposcope/reposcope/internal/indexer"
	"github.com/reposcope/reposcope/internal/jobs"
	"github.com/reposcope/reposcope/internal/searcher"
	"github.com/reposcope/reposcope/internal/storage"
)

// Server wires the HTTP routes to the core components.
type Server struct {
	router   *gin.Engine
	orch     *indexer.Orchestrator
	jobs     *jobs.Manager
	searcher *searcher.Searcher
	store    storage.Store
	logger   *zap.SugaredLogger
}

// NewServer builds the HTTP server with all routes registered.
func NewServer(orch *indexer.Orchestrator, mgr *jobs.Manager, s *searcher.Searcher, store storage.Store, logger *zap.SugaredLogger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	srv := &Server{
		router:   router,
		orch:     orch,
		jobs:     mgr,
		searcher: s,
		store:    store,
		logger:   logger,
	}
	srv.registerRoutes()
	return srv
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	{
		api.POST("/projects/:id/index", s.handleIndexProject)
		api.POST("/projects/:id/update", s.handleUpdateProject)
		api.GET("/projects", s.handleListProjects)
		api.GET("/projects/:id/stats", s.handleProjectStats)
		api.DELETE("/projects/:id", s.handleDeleteProject)

		api.GET("/jobs", s.handleListJobs)
		api.GET("/jobs/active", s.handleActiveJobs)
		api.GET("/jobs/:id", s.handleGetJob)

		api.POST("/search", s.handleSearch)
	}
}

// Handler returns the underlying HTTP handler for serving or testing.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	respondOK(c, gin.H{"status": "ok"})
}
