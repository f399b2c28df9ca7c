package analysis

import (
	"context"
	"errors"
	"math"
	"sync"
)

// ErrEmbeddingUnavailable is returned when no embedding backend is
// configured. Callers treat it as a capability degradation, the same way the
// sentiment analyzer degrades.
var ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

// Embedder is the capability contract for an external embedding model.
type Embedder interface {
	// Embed returns the embedding vector for text.
	Embed(ctx context.Context, text string) ([]float64, error)

	// ModelName identifies the underlying model.
	ModelName() string
}

// EmbeddingService wraps an Embedder with a process-wide cache keyed by exact
// text. The cache grows without bound; callers needing a memory ceiling must
// call Clear explicitly.
type EmbeddingService struct {
	embedder Embedder

	mu    sync.RWMutex
	cache map[string][]float64
}

// NewEmbeddingService constructs a service around e. A nil embedder yields a
// service whose Embed always returns ErrEmbeddingUnavailable.
func NewEmbeddingService(e Embedder) *EmbeddingService {
	return &EmbeddingService{
		embedder: e,
		cache:    make(map[string][]float64),
	}
}

// Available reports whether an embedding backend is configured.
func (s *EmbeddingService) Available() bool { return s.embedder != nil }

// Embed returns the embedding for text, serving repeated inputs from the
// cache. Only successful results are cached.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float64, error) {
	if s.embedder == nil {
		return nil, ErrEmbeddingUnavailable
	}

	s.mu.RLock()
	vec, ok := s.cache[text]
	s.mu.RUnlock()
	if ok {
		return vec, nil
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[text] = vec
	s.mu.Unlock()
	return vec, nil
}

// Similarity returns the cosine similarity between the embeddings of a and b.
func (s *EmbeddingService) Similarity(ctx context.Context, a, b string) (float64, error) {
	va, err := s.Embed(ctx, a)
	if err != nil {
		return 0, err
	}
	vb, err := s.Embed(ctx, b)
	if err != nil {
		return 0, err
	}
	return CosineSimilarity(va, vb), nil
}

// CacheSize returns the number of cached embeddings.
func (s *EmbeddingService) CacheSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

// Clear drops all cached embeddings.
func (s *EmbeddingService) Clear() {
	s.mu.Lock()
	s.cache = make(map[string][]float64)
	s.mu.Unlock()
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Mismatched lengths or zero vectors yield 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
