package driven

import (
	"context"

	"github.com/passage-dev/passage/internal/core/domain"
)

// ParagraphStore is the local sidecar store for paragraph records.
// It exists so ingestion can skip re-embedding unchanged content and so
// results can be inspected without the vector store.
type ParagraphStore interface {
	// Upsert writes a paragraph keyed by Paragraph.Key.
	Upsert(ctx context.Context, p domain.Paragraph) error

	// Get returns the paragraph with the given key.
	// Returns domain.ErrNotFound when absent.
	Get(ctx context.Context, key string) (domain.Paragraph, error)

	// Has reports whether a paragraph with the given key exists.
	Has(ctx context.Context, key string) (bool, error)

	// DeleteDocument removes all paragraphs for the given document URI.
	DeleteDocument(ctx context.Context, documentURI string) error

	// Close releases resources.
	Close() error
}
