package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/reposcope/reposcope/pkg/types"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings.
func openDatabase(dbPath string) (*sql.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// NewSQLiteStore creates a SQLite-backed store and applies migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// BulkInsert persists a batch of chunk documents in one transaction. Chunk IDs
// and creation timestamps are assigned here if unset.
func (s *SQLiteStore) BulkInsert(ctx context.Context, chunks []*types.ChunkDocument) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (
			id, project_id, file_path, chunk_index, total_chunks,
			content, embedding, file_size, file_type, last_modified,
			content_hash, start_line, end_line, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now()
	for _, c := range chunks {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid chunk %s/%s[%d]: %w", c.ProjectID, c.FilePath, c.ChunkIndex, err)
		}

		_, err := stmt.ExecContext(ctx,
			c.ID, c.ProjectID, c.FilePath, c.ChunkIndex, c.TotalChunks,
			c.Content, serializeVector(c.Embedding), c.Metadata.FileSize,
			c.Metadata.FileType, c.Metadata.LastModified, c.Metadata.ContentHash,
			c.Metadata.StartLine, c.Metadata.EndLine, c.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert chunk %s/%s[%d]: %w", c.ProjectID, c.FilePath, c.ChunkIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk insert: %w", err)
	}
	return nil
}

// DeleteChunks removes all chunks for one file within a project and returns
// the number removed.
func (s *SQLiteStore) DeleteChunks(ctx context.Context, projectID, filePath string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM chunks WHERE project_id = ? AND file_path = ?`, projectID, filePath)
	if err != nil {
		return 0, fmt.Errorf("delete chunks for %s/%s: %w", projectID, filePath, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// FileMetadataSnapshot returns the stored change-detection fingerprint per
// file. All chunks of a file carry the same fingerprint, so the first chunk
// stands in for the whole file.
func (s *SQLiteStore) FileMetadataSnapshot(ctx context.Context, projectID string) (map[string]types.FileMeta, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT file_path, file_size, last_modified, content_hash
		FROM chunks
		WHERE project_id = ? AND chunk_index = 0
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query file metadata snapshot: %w", err)
	}
	defer func() { _ = rows.Close() }()

	snapshot := make(map[string]types.FileMeta)
	for rows.Next() {
		var path string
		var meta types.FileMeta
		if err := rows.Scan(&path, &meta.FileSize, &meta.LastModified, &meta.ContentHash); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		snapshot[path] = meta
	}
	return snapshot, rows.Err()
}

// UpsertProject creates or refreshes the project metadata record. On update,
// created_at is preserved and last_indexed/updated_at are refreshed.
func (s *SQLiteStore) UpsertProject(ctx context.Context, projectID, directoryPath string, excludePatterns []string) error {
	patterns, err := json.Marshal(excludePatterns)
	if err != nil {
		return fmt.Errorf("marshal exclude patterns: %w", err)
	}
	if excludePatterns == nil {
		patterns = []byte("[]")
	}

	now := time.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projects (project_id, directory_path, exclude_patterns, created_at, last_indexed, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			directory_path = excluded.directory_path,
			exclude_patterns = excluded.exclude_patterns,
			last_indexed = excluded.last_indexed,
			updated_at = excluded.updated_at
	`, projectID, directoryPath, string(patterns), now, now, now)
	if err != nil {
		return fmt.Errorf("upsert project %s: %w", projectID, err)
	}
	return nil
}

// GetProject returns a project's metadata, or ErrNotFound.
func (s *SQLiteStore) GetProject(ctx context.Context, projectID string) (*ProjectMetadata, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT project_id, directory_path, exclude_patterns, created_at, last_indexed, updated_at
		FROM projects WHERE project_id = ?
	`, projectID)

	var meta ProjectMetadata
	var patterns string
	err := row.Scan(&meta.ProjectID, &meta.DirectoryPath, &patterns,
		&meta.CreatedAt, &meta.LastIndexed, &meta.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project %s: %w", projectID, err)
	}

	if err := json.Unmarshal([]byte(patterns), &meta.ExcludePatterns); err != nil {
		return nil, fmt.Errorf("decode exclude patterns for %s: %w", projectID, err)
	}
	return &meta, nil
}

// ListProjects lists all projects with their document counts.
func (s *SQLiteStore) ListProjects(ctx context.Context) ([]ProjectInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.project_id, p.directory_path, p.exclude_patterns, p.last_indexed,
		       COUNT(c.id)
		FROM projects p
		LEFT JOIN chunks c ON c.project_id = p.project_id
		GROUP BY p.project_id
		ORDER BY p.project_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var projects []ProjectInfo
	for rows.Next() {
		var info ProjectInfo
		var patterns string
		if err := rows.Scan(&info.ProjectID, &info.DirectoryPath, &patterns,
			&info.LastModified, &info.DocumentCount); err != nil {
			return nil, fmt.Errorf("scan project row: %w", err)
		}
		if err := json.Unmarshal([]byte(patterns), &info.ExcludePatterns); err != nil {
			return nil, fmt.Errorf("decode exclude patterns for %s: %w", info.ProjectID, err)
		}
		projects = append(projects, info)
	}
	return projects, rows.Err()
}

// ProjectStats returns per-file chunk counts and totals for a project.
func (s *SQLiteStore) ProjectStats(ctx context.Context, projectID string) (*ProjectStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT file_path, COUNT(*)
		FROM chunks
		WHERE project_id = ?
		GROUP BY file_path
		ORDER BY file_path
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query project stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stats := &ProjectStats{}
	for rows.Next() {
		var fs FileStat
		if err := rows.Scan(&fs.FilePath, &fs.Chunks); err != nil {
			return nil, fmt.Errorf("scan stats row: %w", err)
		}
		stats.Files = append(stats.Files, fs)
		stats.TotalDocuments += fs.Chunks
	}
	stats.TotalFiles = len(stats.Files)
	return stats, rows.Err()
}

// DeleteProject removes a project's chunks and its metadata record, returning
// the number of chunks deleted.
func (s *SQLiteStore) DeleteProject(ctx context.Context, projectID string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE project_id = ?`, projectID)
	if err != nil {
		return 0, fmt.Errorf("delete chunks for project %s: %w", projectID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE project_id = ?`, projectID); err != nil {
		return 0, fmt.Errorf("delete project %s: %w", projectID, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit project delete: %w", err)
	}
	return int(n), nil
}

// Search performs a linear scan over stored embeddings, ranking by cosine
// similarity in descending order. Ties keep store iteration order.
func (s *SQLiteStore) Search(ctx context.Context, queryVector []float32, topK int, projectID string) ([]types.SearchResult, error) {
	if topK <= 0 {
		return []types.SearchResult{}, nil
	}

	query := `
		SELECT id, project_id, file_path, start_line, end_line, content, embedding
		FROM chunks
	`
	var args []interface{}
	if projectID != "" {
		query += ` WHERE project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []types.SearchResult
	for rows.Next() {
		var r types.SearchResult
		var blob []byte
		if err := rows.Scan(&r.ChunkID, &r.ProjectID, &r.FilePath,
			&r.StartLine, &r.EndLine, &r.Content, &blob); err != nil {
			return nil, fmt.Errorf("scan chunk row: %w", err)
		}

		vec, err := deserializeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("decode embedding for chunk %s: %w", r.ChunkID, err)
		}
		r.Score = cosineSimilarity(queryVector, vec)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Stable sort preserves store iteration order for equal scores
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}
