package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// indexRepositoryTool returns the tool definition for index_repository
func indexRepositoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_repository",
		Description: "Index a source repository into the vector store for semantic search. Runs as a background job; poll get_job_status for progress.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id": map[string]interface{}{
					"type":        "string",
					"description": "Logical project identifier the indexed chunks are stored under",
				},
				"directory": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the repository root to index",
				},
				"exclude_patterns": map[string]interface{}{
					"type":        "array",
					"description": "Glob patterns for paths to exclude (e.g. '**/testdata/**')",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
			},
			Required: []string{"project_id", "directory"},
		},
	}
}

// updateRepositoryTool returns the tool definition for update_repository
func updateRepositoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "update_repository",
		Description: "Delta-update an indexed repository: re-embed only changed files and purge chunks of deleted files. Runs as a background job.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id": map[string]interface{}{
					"type":        "string",
					"description": "Project identifier of a previously indexed repository",
				},
				"directory": map[string]interface{}{
					"type":        "string",
					"description": "Repository root; defaults to the directory stored at index time",
				},
				"exclude_patterns": map[string]interface{}{
					"type":        "array",
					"description": "Glob patterns for paths to exclude; defaults to the stored patterns",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
			},
			Required: []string{"project_id"},
		},
	}
}

// getJobStatusTool returns the tool definition for get_job_status
func getJobStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_job_status",
		Description: "Get the status, progress, logs, and stats of an indexing job",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"job_id": map[string]interface{}{
					"type":        "string",
					"description": "Job identifier returned by index_repository or update_repository",
				},
			},
			Required: []string{"job_id"},
		},
	}
}

// listJobsTool returns the tool definition for list_jobs
func listJobsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_jobs",
		Description: "List indexing jobs, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"active_only": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, list only pending and running jobs",
					"default":     false,
				},
			},
		},
	}
}

// searchCodeTool returns the tool definition for search_code
func searchCodeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_code",
		Description: "Semantic search over indexed repositories, ranked by similarity",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language or code query",
				},
				"project_id": map[string]interface{}{
					"type":        "string",
					"description": "Restrict results to one project; omit to search all projects",
				},
				"top_k": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
			},
			Required: []string{"query"},
		},
	}
}

// listProjectsTool returns the tool definition for list_projects
func listProjectsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_projects",
		Description: "List indexed projects with their document counts",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// getProjectStatsTool returns the tool definition for get_project_stats
func getProjectStatsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_project_stats",
		Description: "Get per-file chunk counts and totals for an indexed project",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id": map[string]interface{}{
					"type":        "string",
					"description": "Project identifier",
				},
			},
			Required: []string{"project_id"},
		},
	}
}

// deleteProjectTool returns the tool definition for delete_project
func deleteProjectTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_project",
		Description: "Delete an indexed project and all of its chunks",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id": map[string]interface{}{
					"type":        "string",
					"description": "Project identifier",
				},
			},
			Required: []string{"project_id"},
		},
	}
}
