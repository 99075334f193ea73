package driven

import (
	"context"

	"github.com/passage-dev/passage/internal/core/domain"
)

// Reranker scores and reorders retrieved candidates.
//
// Individual rerankers may fail; the fallback decorator in the reranker
// package guarantees the pipeline-facing contract: reranking never fails,
// degrading to the heuristic scorer and finally to the original order.
type Reranker interface {
	// Rerank returns the candidates scored and sorted by descending
	// total. Input order is preserved for ties (stable sort), which
	// keeps results reproducible.
	Rerank(ctx context.Context, query string, candidates []domain.SearchCandidate) ([]domain.ScoredCandidate, error)
}

// CrossEncoderScorer scores (query, passage) pairs jointly with a model.
type CrossEncoderScorer interface {
	// Ready reports whether a model is loaded. When false, callers skip
	// straight to the fallback instead of attempting and failing per call.
	Ready(ctx context.Context) bool

	// Score returns one relevance score per text, batched.
	Score(ctx context.Context, query string, texts []string) ([]float64, error)
}
