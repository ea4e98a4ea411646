package embedder

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Provider names
const (
	ProviderHTTP     = "http"
	ProviderFallback = "fallback"
)

// HTTPProvider implements Embedder against an OpenAI-compatible
// /v1/embeddings endpoint. When the endpoint fails after retries, the provider
// degrades to the deterministic fallback vector instead of failing the embed
// call, so an embedding-service outage leaves the system degraded rather than
// down.
type HTTPProvider struct {
	endpoint   string
	apiKey     string
	model      string
	dimension  int
	httpClient *http.Client
	cache      *Cache
	logger     *zap.SugaredLogger
}

// NewHTTPProvider creates an embedder for an OpenAI-compatible API.
func NewHTTPProvider(baseURL, apiKey, model string, dimension int, cache *Cache, logger *zap.SugaredLogger) (*HTTPProvider, error) {
	if baseURL == "" {
		return nil, ErrMissingEndpoint
	}
	if dimension <= 0 {
		return nil, ErrInvalidDimension
	}

	return &HTTPProvider{
		endpoint:  embeddingURL(baseURL),
		apiKey:    apiKey,
		model:     model,
		dimension: dimension,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache:  cache,
		logger: logger,
	}, nil
}

// embeddingURL appends /v1/embeddings to a base URL unless the caller already
// supplied the full path.
func embeddingURL(baseURL string) string {
	base := strings.TrimSuffix(baseURL, "/")
	if strings.Contains(base, "/v1/embeddings") {
		return base
	}
	if strings.HasSuffix(base, "/v1") {
		return base + "/embeddings"
	}
	return base + "/v1/embeddings"
}

func (p *HTTPProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	hash := ComputeHash(text)
	if p.cache != nil {
		if vec, ok := p.cache.Get(hash); ok {
			return vec, nil
		}
	}

	config := DefaultRetryConfig()
	vec, err := retryWithBackoff(ctx, config, func() ([]float32, error) {
		return p.callAPI(ctx, text)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Degraded mode: deterministic vector derived from the text's hash
		p.logger.Warnw("embedding API failed, using deterministic fallback",
			"error", err, "retries", config.MaxRetries)
		vec = FallbackVector(text, p.dimension)
	}

	if p.cache != nil {
		p.cache.Set(hash, vec)
	}
	return vec, nil
}

func (p *HTTPProvider) callAPI(ctx context.Context, text string) ([]float32, error) {
	reqBody := map[string]interface{}{
		"input": []string{text},
		"model": p.model,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(apiResp.Data) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", ErrProviderFailed)
	}

	return apiResp.Data[0].Embedding, nil
}

func (p *HTTPProvider) Dimension() int {
	return p.dimension
}

func (p *HTTPProvider) Provider() string {
	return ProviderHTTP
}

func (p *HTTPProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// FallbackProvider produces deterministic pseudo-random vectors derived from
// the input text's hash. It is the offline provider of last resort: no network,
// stable output for identical input, so re-indexing identical content yields
// identical vectors.
type FallbackProvider struct {
	dimension int
	cache     *Cache
}

// NewFallbackProvider creates the deterministic offline embedder.
func NewFallbackProvider(dimension int, cache *Cache) (*FallbackProvider, error) {
	if dimension <= 0 {
		return nil, ErrInvalidDimension
	}
	return &FallbackProvider{dimension: dimension, cache: cache}, nil
}

func (p *FallbackProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hash := ComputeHash(text)
	if p.cache != nil {
		if vec, ok := p.cache.Get(hash); ok {
			return vec, nil
		}
	}

	vec := FallbackVector(text, p.dimension)
	if p.cache != nil {
		p.cache.Set(hash, vec)
	}
	return vec, nil
}

func (p *FallbackProvider) Dimension() int {
	return p.dimension
}

func (p *FallbackProvider) Provider() string {
	return ProviderFallback
}

func (p *FallbackProvider) Close() error {
	return nil
}

// FallbackVector builds a deterministic unit-length vector of the given
// dimension, seeded from the sha256 digest of the text.
func FallbackVector(text string, dimension int) []float32 {
	sum := sha256.Sum256([]byte(text))
	seed := int64(binary.BigEndian.Uint64(sum[:8]))

	rng := rand.New(rand.NewSource(seed))
	vec := make([]float32, dimension)
	for i := range vec {
		vec[i] = rng.Float32()*2 - 1
	}
	return NormalizeVector(vec)
}

// NormalizeVector normalizes a vector to unit length for cosine similarity.
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val * val)
	}
	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}
	return result
}
