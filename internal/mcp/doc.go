// Package mcp implements the Model Context Protocol (MCP) server for
// reposcope.
//
// The MCP server exposes the indexing pipeline to AI coding assistants as
// tools over JSON-RPC 2.0 on stdio:
//   - index_repository: index a repository into the vector store
//   - update_repository: delta-update a previously indexed repository
//   - get_job_status: poll an indexing job's status, progress, and logs
//   - list_jobs: list jobs, optionally only active ones
//   - search_code: semantic search over indexed chunks
//   - list_projects: list indexed projects
//   - get_project_stats: per-file chunk counts for a project
//   - delete_project: remove a project and its chunks
//
// Indexing tools return immediately with a job handle; clients poll
// get_job_status until the job reaches a terminal state.
//
// # Error Handling
//
// Tools return standard JSON-RPC error responses:
//
//	{
//	  "error": {
//	    "code": -32602,
//	    "message": "Invalid params",
//	    "data": {
//	      "param": "directory",
//	      "reason": "directory does not exist"
//	    }
//	  }
//	}
//
// Error codes:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (database, filesystem, etc.)
//   - -32001: Project not found / not indexed
//   - -32002: Another job for the project is already running
//   - -32003: Unknown job identifier
//   - -32004: Empty query
//
// Logging goes to stderr; stdout is reserved for the MCP protocol.
package mcp
