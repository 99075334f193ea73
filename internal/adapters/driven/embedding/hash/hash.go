// Package hash provides a deterministic embedding service derived from
// content hashes. The vectors carry no semantics; the adapter exists so
// the pipeline keeps moving when no real embedding backend is reachable,
// and identical content still maps to identical vectors.
package hash

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"

	"github.com/passage-dev/passage/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// EmbeddingService derives unit vectors from sha256 digests.
type EmbeddingService struct {
	dimensions int
}

// NewEmbeddingService creates a hash embedding service with the given
// vector size.
func NewEmbeddingService(dimensions int) *EmbeddingService {
	return &EmbeddingService{dimensions: dimensions}
}

// Embed returns a deterministic vector for the text. Never fails.
func (s *EmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	return s.vector([]byte(text)), nil
}

// EmbedImage returns a deterministic vector for the image bytes.
func (s *EmbeddingService) EmbedImage(_ context.Context, data []byte) ([]float32, error) {
	return s.vector(data), nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// vector expands the digest into dimensions values in [-1, 1] and
// normalises to unit length, matching what cosine search expects.
func (s *EmbeddingService) vector(data []byte) []float32 {
	digest := sha256.Sum256(data)

	out := make([]float32, s.dimensions)
	var norm float64
	seed := digest
	for i := 0; i < s.dimensions; i += len(seed) / 4 {
		for j := 0; j+4 <= len(seed) && i+j/4 < s.dimensions; j += 4 {
			bits := binary.BigEndian.Uint32(seed[j : j+4])
			v := float64(bits)/float64(math.MaxUint32)*2 - 1
			out[i+j/4] = float32(v)
			norm += v * v
		}
		seed = sha256.Sum256(seed[:])
	}

	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range out {
			out[i] *= scale
		}
	}
	return out
}
