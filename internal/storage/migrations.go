package storage

import (
	"context"
	"database/sql"
	"fmt"
)

const (
	// CurrentSchemaVersion tracks the database schema version
	CurrentSchemaVersion = "1"
)

const schemaV1 = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Project metadata: one record per logical namespace
CREATE TABLE IF NOT EXISTS projects (
    project_id TEXT PRIMARY KEY,
    directory_path TEXT NOT NULL,
    exclude_patterns TEXT NOT NULL DEFAULT '[]',
    created_at TIMESTAMP NOT NULL,
    last_indexed TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

-- Chunk documents: the atomic unit of the vector store
CREATE TABLE IF NOT EXISTS chunks (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    file_path TEXT NOT NULL,
    chunk_index INTEGER NOT NULL,
    total_chunks INTEGER NOT NULL,
    content TEXT NOT NULL,
    embedding BLOB NOT NULL,
    file_size INTEGER NOT NULL,
    file_type TEXT,
    last_modified TIMESTAMP NOT NULL,
    content_hash TEXT NOT NULL,
    start_line INTEGER NOT NULL,
    end_line INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL,
    UNIQUE(project_id, file_path, chunk_index)
);

CREATE INDEX IF NOT EXISTS idx_chunks_project ON chunks(project_id);
CREATE INDEX IF NOT EXISTS idx_chunks_project_file ON chunks(project_id, file_path);
`

// ApplyMigrations brings the database up to the current schema. The schema is
// applied idempotently; version rows record what has been applied.
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("apply schema v%s: %w", CurrentSchemaVersion, err)
	}

	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, CurrentSchemaVersion)
	if err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return nil
}
