package driven

import "context"

// EmbeddingService generates vector embeddings from text and images.
//
// Implementations may fail (network errors, model unavailable); the
// never-fail contract the pipeline relies on is provided by the failover
// decorator in the embedding adapter package, which substitutes a
// deterministic hash-derived vector of the same dimensionality.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedImage generates a vector embedding for raw image bytes.
	EmbedImage(ctx context.Context, data []byte) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}
