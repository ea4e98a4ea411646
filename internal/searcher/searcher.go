// Package searcher answers semantic queries by embedding the query text and
// ranking stored chunks by cosine similarity.
package searcher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/reposcope/reposcope/internal/embedder"
	"github.com/reposcope/reposcope/internal/storage"
	"github.com/reposcope/reposcope/pkg/types"
)

// DefaultTopK is the result count used when the caller doesn't specify one.
const DefaultTopK = 10

// ErrEmptyQuery is returned for blank query text.
var ErrEmptyQuery = errors.New("query text is empty")

// Searcher embeds queries and delegates ranking to the document store.
type Searcher struct {
	emb    embedder.Embedder
	store  storage.Store
	logger *zap.SugaredLogger
}

// New creates a searcher over the given embedding provider and store.
func New(emb embedder.Embedder, store storage.Store, logger *zap.SugaredLogger) *Searcher {
	return &Searcher{emb: emb, store: store, logger: logger}
}

// Search embeds query text and returns the topK most similar chunks,
// descending by score. An empty projectID searches all projects; topK <= 0
// falls back to DefaultTopK.
func (s *Searcher) Search(ctx context.Context, query string, topK int, projectID string) ([]types.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	vec, err := s.emb.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := s.store.Search(ctx, vec, topK, projectID)
	if err != nil {
		return nil, fmt.Errorf("search store: %w", err)
	}

	s.logger.Debugw("search completed",
		"project", projectID, "topK", topK, "results", len(results))
	return results, nil
}
