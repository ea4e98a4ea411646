package integration

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"sync/atomic"

	"github.com/reposcope/reposcope/internal/embedder"
)

// MockEmbedder provides a fake embedding provider for testing. It generates
// deterministic vectors from the text hash and counts how many embeddings it
// was asked for, so tests can assert that delta runs skip unchanged content.
type MockEmbedder struct {
	dimension int
	calls     atomic.Int64
}

// NewMockEmbedder creates a new mock embedder
func NewMockEmbedder(dimension int) *MockEmbedder {
	return &MockEmbedder{dimension: dimension}
}

// Embed generates a deterministic fake embedding
func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, embedder.ErrEmptyText
	}
	m.calls.Add(1)

	hash := sha256.Sum256([]byte(text))
	vector := make([]float32, m.dimension)
	for i := 0; i < m.dimension; i++ {
		idx := (i * 4) % 32
		val := binary.BigEndian.Uint32(hash[idx : idx+4])
		vector[i] = (float32(val)/float32(1<<31))*2 - 1
	}
	return embedder.NormalizeVector(vector), nil
}

// Dimension returns the configured vector length
func (m *MockEmbedder) Dimension() int {
	return m.dimension
}

// Provider returns the provider name
func (m *MockEmbedder) Provider() string {
	return "mock"
}

// Close is a no-op
func (m *MockEmbedder) Close() error {
	return nil
}

// Calls returns how many embeddings were generated
func (m *MockEmbedder) Calls() int {
	return int(m.calls.Load())
}
