package indexer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/reposcope/reposcope/internal/config"
	"github.com/reposcope/reposcope/internal/embedder"
	"github.com/reposcope/reposcope/internal/engine"
	"github.com/reposcope/reposcope/internal/storage"
	"github.com/reposcope/reposcope/pkg/types"
)

// ProgressFunc receives milestone updates during a run. Percentages are
// checkpoints a polling client can rely on, monotonically non-decreasing
// within a successful run.
type ProgressFunc func(percent int, message string)

// RunRequest describes one indexing run.
type RunRequest struct {
	RootDir         string
	ProjectID       string
	ExcludePatterns []string
	DeltaOnly       bool
}

// RunResult aggregates what a run accomplished.
type RunResult struct {
	FilesTotal     int
	FilesProcessed int
	ChunksIndexed  int
	Delta          *types.DeltaStats
}

// Orchestrator drives the full indexing pipeline: enumerate files, detect
// changes, chunk, embed, and reconcile the document store.
type Orchestrator struct {
	store  storage.Store
	emb    embedder.Embedder
	cfg    config.IndexingConfig
	logger *zap.SugaredLogger
}

// New creates an orchestrator over the given store and embedding provider.
func New(store storage.Store, emb embedder.Embedder, cfg config.IndexingConfig, logger *zap.SugaredLogger) *Orchestrator {
	return &Orchestrator{store: store, emb: emb, cfg: cfg, logger: logger}
}

// Run executes one indexing run. In delta mode, only files whose fingerprint
// changed since the prior run are re-chunked and re-embedded, and files gone
// from disk have their chunks purged. A nil progress sink is allowed.
func (o *Orchestrator) Run(ctx context.Context, req RunRequest, progress ProgressFunc) (*RunResult, error) {
	if progress == nil {
		progress = func(int, string) {}
	}

	progress(0, "enumerating files")
	walker, err := engine.NewWalker(req.RootDir, req.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("invalid exclude patterns: %w", err)
	}
	entries, err := walker.Walk()
	if err != nil {
		return nil, fmt.Errorf("enumerate %s: %w", req.RootDir, err)
	}
	progress(10, fmt.Sprintf("found %d eligible files", len(entries)))

	var prior map[string]types.FileMeta
	embedStart := 15
	if req.DeltaOnly {
		prior, err = o.store.FileMetadataSnapshot(ctx, req.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("load file metadata snapshot: %w", err)
		}
		progress(20, fmt.Sprintf("loaded prior snapshot of %d files", len(prior)))
		embedStart = 20
	}
	embedSpan := 85 - embedStart

	result := &RunResult{FilesTotal: len(entries)}
	delta := &types.DeltaStats{Total: len(entries)}
	visited := make(map[string]bool, len(entries))
	var pending []*types.ChunkDocument

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		content, meta, err := engine.ReadFile(entry.AbsPath, o.cfg.MaxFileSizeBytes)
		if err != nil {
			if errors.Is(err, engine.ErrFileTooLarge) {
				o.logger.Warnw("skipping oversized file", "file", entry.RelPath)
			} else {
				o.logger.Warnw("failed to read file", "file", entry.RelPath, "error", err)
			}
			// The file is still on disk, so deletion reconciliation must not
			// purge its chunks. It also leaves delta accounting entirely.
			visited[entry.RelPath] = true
			delta.Total--
			continue
		}

		decision := engine.DecisionAdded
		if req.DeltaOnly {
			var priorMeta *types.FileMeta
			if m, ok := prior[entry.RelPath]; ok {
				priorMeta = &m
			}
			decision = engine.Decide(priorMeta, meta)
		}
		visited[entry.RelPath] = true

		switch decision {
		case engine.DecisionUnchanged:
			delta.Skipped++
		case engine.DecisionAdded:
			delta.Added++
		case engine.DecisionUpdated:
			delta.Updated++
		}
		if decision == engine.DecisionUnchanged {
			continue
		}

		docs, err := o.embedFile(ctx, req.ProjectID, entry.RelPath, content, meta)
		if err != nil {
			return nil, err
		}

		// Purge before reinsert so a re-indexed file never holds stale chunks
		if !req.DeltaOnly || decision == engine.DecisionUpdated {
			if _, err := o.store.DeleteChunks(ctx, req.ProjectID, entry.RelPath); err != nil {
				return nil, fmt.Errorf("purge stale chunks for %s: %w", entry.RelPath, err)
			}
		}

		pending = append(pending, docs...)
		result.FilesProcessed++
		result.ChunksIndexed += len(docs)

		percent := embedStart + (i+1)*embedSpan/len(entries)
		if (i+1)%10 == 0 || i+1 == len(entries) {
			progress(percent, fmt.Sprintf("processed %d/%d files", i+1, len(entries)))
		} else {
			progress(percent, "")
		}
	}

	if req.DeltaOnly {
		progress(85, "reconciling deleted files")
		for path := range prior {
			if visited[path] {
				continue
			}
			n, err := o.store.DeleteChunks(ctx, req.ProjectID, path)
			if err != nil {
				return nil, fmt.Errorf("purge chunks for removed file %s: %w", path, err)
			}
			if n > 0 {
				delta.Deleted++
				o.logger.Infow("purged chunks for removed file",
					"project", req.ProjectID, "file", path, "chunks", n)
			}
		}
		progress(90, fmt.Sprintf("removed %d deleted files", delta.Deleted))
	} else {
		progress(90, "")
	}

	if len(pending) > 0 {
		if err := o.store.BulkInsert(ctx, pending); err != nil {
			return nil, fmt.Errorf("bulk insert %d chunks: %w", len(pending), err)
		}
	}
	progress(95, fmt.Sprintf("persisted %d chunks", len(pending)))

	if err := o.store.UpsertProject(ctx, req.ProjectID, req.RootDir, req.ExcludePatterns); err != nil {
		return nil, fmt.Errorf("upsert project metadata: %w", err)
	}

	if req.DeltaOnly {
		result.Delta = delta
	}
	progress(100, "indexing complete")

	o.logger.Infow("indexing run finished",
		"project", req.ProjectID, "deltaOnly", req.DeltaOnly,
		"filesTotal", result.FilesTotal, "filesProcessed", result.FilesProcessed,
		"chunksIndexed", result.ChunksIndexed)
	return result, nil
}

// embedFile chunks one file and embeds its chunks, bounded by the configured
// concurrency. Chunk order within the returned slice is by ascending start
// line regardless of embedding completion order.
func (o *Orchestrator) embedFile(ctx context.Context, projectID, relPath, content string, meta types.FileMeta) ([]*types.ChunkDocument, error) {
	chunkSize := o.cfg.ChunkSizeChars
	if chunkSize <= 0 {
		chunkSize = engine.DefaultChunkSize
	}
	chunks := engine.ChunkFile(relPath, content, chunkSize)

	docs := make([]*types.ChunkDocument, len(chunks))
	for i, c := range chunks {
		docs[i] = &types.ChunkDocument{
			ProjectID:   projectID,
			FilePath:    relPath,
			ChunkIndex:  i,
			TotalChunks: len(chunks),
			Content:     c.Content,
			Metadata: types.ChunkMetadata{
				FileSize:     meta.FileSize,
				FileType:     engine.FileType(relPath),
				LastModified: meta.LastModified,
				ContentHash:  meta.ContentHash,
				StartLine:    c.StartLine,
				EndLine:      c.EndLine,
			},
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	limit := o.cfg.EmbedConcurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)
	for _, doc := range docs {
		doc := doc
		g.Go(func() error {
			vec, err := o.emb.Embed(gctx, doc.Content)
			if err != nil {
				return fmt.Errorf("embed %s chunk %d: %w", doc.FilePath, doc.ChunkIndex, err)
			}
			doc.Embedding = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}
