package driven

import (
	"context"

	"github.com/passage-dev/passage/internal/core/domain"
)

// VectorField selects which named vector a search runs against.
type VectorField string

// Vector fields.
const (
	FieldText  VectorField = "text"
	FieldImage VectorField = "image"
)

// VectorStore is the minimal contract for the external vector database.
// It must support keying by the paragraph's stable Key so that
// re-ingestion is an idempotent upsert, never a duplicate.
type VectorStore interface {
	// EnsureCollection creates the collection if it does not exist.
	EnsureCollection(ctx context.Context, dimensions int) error

	// Upsert writes paragraphs keyed by Paragraph.Key.
	Upsert(ctx context.Context, paragraphs []domain.Paragraph) error

	// Search returns the closest paragraphs to the query vector.
	Search(ctx context.Context, vector []float32, limit int, field VectorField) ([]Hit, error)

	// DeleteDocument removes all paragraphs for the given document URI.
	DeleteDocument(ctx context.Context, documentURI string) error
}

// Hit is a vector search result.
type Hit struct {
	// Paragraph is the stored record, hydrated from the payload.
	Paragraph domain.Paragraph

	// Score is the similarity score (cosine, 0-1).
	Score float64
}
