package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/reposcope/reposcope/internal/indexer"
	"github.com/reposcope/reposcope/internal/jobs"
	"github.com/reposcope/reposcope/internal/searcher"
	"github.com/reposcope/reposcope/internal/storage"
)

// MCP error codes
const (
	ErrorCodeInvalidParams   = -32602 // Invalid method parameters
	ErrorCodeInternalError   = -32603 // Internal JSON-RPC error
	ErrorCodeProjectNotFound = -32001 // Project has not been indexed
	ErrorCodeProjectBusy     = -32002 // Another job for this project is already running
	ErrorCodeJobNotFound     = -32003 // Unknown job identifier
	ErrorCodeEmptyQuery      = -32004 // Query parameter is empty
)

// handleIndexRepository handles the index_repository tool invocation
func (s *Server) handleIndexRepository(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	projectID, ok := args["project_id"].(string)
	if !ok || projectID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "project_id parameter is required", map[string]interface{}{
			"param":  "project_id",
			"reason": "missing or empty",
		})
	}

	directory, ok := args["directory"].(string)
	if !ok || directory == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "directory parameter is required", map[string]interface{}{
			"param":  "directory",
			"reason": "missing or empty",
		})
	}
	if err := validateDirectory(directory); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid directory", map[string]interface{}{
			"param":  "directory",
			"reason": err.Error(),
		})
	}

	excludePatterns := getStringSlice(args, "exclude_patterns")

	return s.launchJob(jobs.TypeIndex, projectID, args, indexer.RunRequest{
		RootDir:         directory,
		ProjectID:       projectID,
		ExcludePatterns: excludePatterns,
	})
}

// handleUpdateRepository handles the update_repository tool invocation
func (s *Server) handleUpdateRepository(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	projectID, ok := args["project_id"].(string)
	if !ok || projectID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "project_id parameter is required", map[string]interface{}{
			"param":  "project_id",
			"reason": "missing or empty",
		})
	}

	directory := getStringDefault(args, "directory", "")
	excludePatterns := getStringSlice(args, "exclude_patterns")
	if directory == "" {
		meta, err := s.store.GetProject(ctx, projectID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, newMCPError(ErrorCodeProjectNotFound, "project not indexed and no directory given", map[string]interface{}{
				"project_id": projectID,
			})
		}
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "failed to load project", map[string]interface{}{
				"error": err.Error(),
			})
		}
		directory = meta.DirectoryPath
		if excludePatterns == nil {
			excludePatterns = meta.ExcludePatterns
		}
	}

	return s.launchJob(jobs.TypeUpdate, projectID, args, indexer.RunRequest{
		RootDir:         directory,
		ProjectID:       projectID,
		ExcludePatterns: excludePatterns,
		DeltaOnly:       true,
	})
}

// launchJob starts an orchestrator run as a background job and returns the
// job handle for polling. The job outlives the tool call, so it runs under
// its own context.
func (s *Server) launchJob(jobType jobs.Type, projectID string, params any, runReq indexer.RunRequest) (*mcp.CallToolResult, error) {
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
		return nil, newMCPError(ErrorCodeProjectBusy, "another job for this project is already running", map[string]interface{}{
			"project_id": projectID,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to start job", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"job_id": job.ID,
		"type":   job.Type,
		"status": job.Status,
	})), nil
}

// handleGetJobStatus handles the get_job_status tool invocation
func (s *Server) handleGetJobStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	jobID, ok := args["job_id"].(string)
	if !ok || jobID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "job_id parameter is required", map[string]interface{}{
			"param":  "job_id",
			"reason": "missing or empty",
		})
	}

	job, err := s.jobs.Get(jobID)
	if errors.Is(err, jobs.ErrJobNotFound) {
		return nil, newMCPError(ErrorCodeJobNotFound, "job not found", map[string]interface{}{
			"job_id": jobID,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to load job", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return jsonToolResult(job)
}

// handleListJobs handles the list_jobs tool invocation
func (s *Server) handleListJobs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	activeOnly := getBoolDefault(args, "active_only", false)

	var list []*jobs.Job
	if activeOnly {
		list = s.jobs.Active()
	} else {
		list = s.jobs.All()
	}

	return jsonToolResult(map[string]interface{}{
		"jobs":  list,
		"count": len(list),
	})
}

// handleSearchCode handles the search_code tool invocation
func (s *Server) handleSearchCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	topK := getIntDefault(args, "top_k", searcher.DefaultTopK)
	if topK < 1 || topK > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "top_k must be between 1 and 100", map[string]interface{}{
			"param": "top_k",
			"value": topK,
		})
	}
	projectID := getStringDefault(args, "project_id", "")

	results, err := s.searcher.Search(ctx, query, topK, projectID)
	if errors.Is(err, searcher.ErrEmptyQuery) {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query cannot be blank", nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return jsonToolResult(map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}

// handleListProjects handles the list_projects tool invocation
func (s *Server) handleListProjects(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list projects", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return jsonToolResult(map[string]interface{}{
		"projects": projects,
		"count":    len(projects),
	})
}

// handleGetProjectStats handles the get_project_stats tool invocation
func (s *Server) handleGetProjectStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, mcpErr := requireProjectID(request)
	if mcpErr != nil {
		return nil, mcpErr
	}

	if _, err := s.store.GetProject(ctx, projectID); errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodeProjectNotFound, "project not indexed", map[string]interface{}{
			"project_id": projectID,
		})
	} else if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to load project", map[string]interface{}{
			"error": err.Error(),
		})
	}

	stats, err := s.store.ProjectStats(ctx, projectID)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to load project stats", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return jsonToolResult(stats)
}

// handleDeleteProject handles the delete_project tool invocation
func (s *Server) handleDeleteProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, mcpErr := requireProjectID(request)
	if mcpErr != nil {
		return nil, mcpErr
	}

	if _, err := s.store.GetProject(ctx, projectID); errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodeProjectNotFound, "project not indexed", map[string]interface{}{
			"project_id": projectID,
		})
	} else if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to load project", map[string]interface{}{
			"error": err.Error(),
		})
	}

	deleted, err := s.store.DeleteProject(ctx, projectID)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to delete project", map[string]interface{}{
			"error": err.Error(),
		})
	}
	s.logger.Infow("project deleted", "project", projectID, "chunks", deleted)

	return jsonToolResult(map[string]interface{}{
		"deleted":       true,
		"deleted_count": deleted,
	})
}

// requireProjectID extracts the mandatory project_id argument.
func requireProjectID(request mcp.CallToolRequest) (string, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return "", newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	projectID, ok := args["project_id"].(string)
	if !ok || projectID == "" {
		return "", newMCPError(ErrorCodeInvalidParams, "project_id parameter is required", map[string]interface{}{
			"param":  "project_id",
			"reason": "missing or empty",
		})
	}
	return projectID, nil
}

// newMCPError creates an MCP protocol error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validateDirectory checks that the path is an absolute, readable directory.
func validateDirectory(path string) error {
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}
	return nil
}

// formatJSON renders a tool response as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// jsonToolResult marshals any value as an indented JSON tool result.
func jsonToolResult(data interface{}) (*mcp.CallToolResult, error) {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to encode response", nil)
	}
	return mcp.NewToolResultText(string(bytes)), nil
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a string array parameter; nil when absent.
func getStringSlice(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Validation helpers

var (
	ErrPathNotAbsolute = errors.New("directory must be absolute")
	ErrPathNotFound    = errors.New("directory does not exist")
	ErrPathNotReadable = errors.New("directory is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
