// Package failover decorates an embedding service with a fallback so the
// ingestion and retrieval pipelines never stall on embedding errors.
package failover

import (
	"context"

	"github.com/passage-dev/passage/internal/core/ports/driven"
	"github.com/passage-dev/passage/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// EmbeddingService tries the primary and falls back to the secondary.
// The secondary is expected to be infallible (the hash adapter), so the
// decorated service never returns an error.
type EmbeddingService struct {
	primary   driven.EmbeddingService
	secondary driven.EmbeddingService
}

// NewEmbeddingService creates a failover chain. Both services must report
// the same Dimensions or search results will be meaningless.
func NewEmbeddingService(primary, secondary driven.EmbeddingService) *EmbeddingService {
	return &EmbeddingService{primary: primary, secondary: secondary}
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := s.primary.Embed(ctx, text)
	if err != nil {
		logger.Warn("embedding failover: %v", err)
		return s.secondary.Embed(ctx, text)
	}
	return vec, nil
}

// EmbedImage generates a vector embedding for raw image bytes.
func (s *EmbeddingService) EmbedImage(ctx context.Context, data []byte) ([]float32, error) {
	vec, err := s.primary.EmbedImage(ctx, data)
	if err != nil {
		logger.Warn("image embedding failover: %v", err)
		return s.secondary.EmbedImage(ctx, data)
	}
	return vec, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.primary.Dimensions()
}
