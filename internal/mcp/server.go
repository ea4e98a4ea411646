package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/reposcope/reposcope/internal/indexer"
	"github.com/reposcope/reposcope/internal/jobs"
	"github.com/reposcope/reposcope/internal/searcher"
	"github.com/reposcope/reposcope/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "reposcope"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	orch     *indexer.Orchestrator
	jobs     *jobs.Manager
	searcher *searcher.Searcher
	store    storage.Store
	logger   *zap.SugaredLogger
}

// NewServer creates a new MCP server over the shared core components.
func NewServer(orch *indexer.Orchestrator, mgr *jobs.Manager, s *searcher.Searcher, store storage.Store, logger *zap.SugaredLogger) *Server {
	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	srv := &Server{
		mcp:      mcpServer,
		orch:     orch,
		jobs:     mgr,
		searcher: s,
		store:    store,
		logger:   logger,
	}
	srv.registerTools()
	return srv
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(indexRepositoryTool(), s.handleIndexRepository)
	s.mcp.AddTool(updateRepositoryTool(), s.handleUpdateRepository)
	s.mcp.AddTool(getJobStatusTool(), s.handleGetJobStatus)
	s.mcp.AddTool(listJobsTool(), s.handleListJobs)
	s.mcp.AddTool(searchCodeTool(), s.handleSearchCode)
	s.mcp.AddTool(listProjectsTool(), s.handleListProjects)
	s.mcp.AddTool(getProjectStatsTool(), s.handleGetProjectStats)
	s.mcp.AddTool(deleteProjectTool(), s.handleDeleteProject)
}
