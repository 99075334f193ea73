package driving

import (
	"context"

	"github.com/passage-dev/passage/internal/core/domain"
)

// RetrievalService answers a query with ranked passages.
type RetrievalService interface {
	// Retrieve expands the query, fans out vector searches, merges,
	// deduplicates, reranks and returns at most top results.
	// "No results" is a valid outcome: an empty slice, not an error.
	Retrieve(ctx context.Context, query string, top int) ([]domain.ScoredCandidate, error)
}
