package embedder

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/reposcope/reposcope/internal/config"
)

// New creates an embedder from configuration. An HTTP provider that cannot be
// constructed (missing endpoint) is a hard error; callers that want the
// degraded-but-functional startup behavior should fall back to
// NewFallbackProvider themselves, as cmd/reposcope does.
func New(cfg config.EmbeddingConfig, logger *zap.SugaredLogger) (Embedder, error) {
	cache := NewCache(10000)

	switch strings.ToLower(cfg.Provider) {
	case ProviderHTTP:
		return NewHTTPProvider(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Dimension, cache, logger)
	case ProviderFallback, "":
		return NewFallbackProvider(cfg.Dimension, cache)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}
