package reranker

import (
	"context"
	"fmt"

	"github.com/passage-dev/passage/internal/core/domain"
	"github.com/passage-dev/passage/internal/core/ports/driven"
	"github.com/passage-dev/passage/internal/logger"
)

// Ensure Fallback implements the interface.
var _ driven.Reranker = (*Fallback)(nil)

// Fallback composes two rerankers: try the primary, on failure try the
// secondary, and if both fail return the candidates in their original
// order. It is explicit composition rather than exception-driven control
// flow; its only job is the try/catch/identity chain, so its Rerank never
// returns an error.
type Fallback struct {
	primary   driven.Reranker
	secondary driven.Reranker
}

// NewFallback creates the fallback chain. Either argument may be nil, in
// which case that tier is skipped.
func NewFallback(primary, secondary driven.Reranker) *Fallback {
	return &Fallback{primary: primary, secondary: secondary}
}

// Rerank delegates down the chain. Inputs of length <= 1 are returned
// unchanged without invoking any scorer.
func (f *Fallback) Rerank(ctx context.Context, query string, candidates []domain.SearchCandidate) ([]domain.ScoredCandidate, error) {
	if len(candidates) <= 1 {
		return Identity(candidates), nil
	}

	if f.primary != nil {
		if out, err := attempt(ctx, f.primary, query, candidates); err == nil {
			return out, nil
		} else {
			logger.Warn("primary reranker failed: %v", err)
		}
	}

	if f.secondary != nil {
		if out, err := attempt(ctx, f.secondary, query, candidates); err == nil {
			return out, nil
		} else {
			logger.Warn("secondary reranker failed: %v", err)
		}
	}

	return Identity(candidates), nil
}

// attempt isolates a reranker call, converting panics into errors so a
// misbehaving scorer cannot take down the retrieval request.
func attempt(ctx context.Context, r driven.Reranker, query string, candidates []domain.SearchCandidate) (out []domain.ScoredCandidate, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &panicError{value: rec}
		}
	}()
	return r.Rerank(ctx, query, candidates)
}

type panicError struct{ value any }

func (e *panicError) Error() string {
	return fmt.Sprintf("reranker panic: %v", e.value)
}

// Identity wraps candidates in scored form preserving their order, with
// the retrieval score carried through as the total.
func Identity(candidates []domain.SearchCandidate) []domain.ScoredCandidate {
	scored := make([]domain.ScoredCandidate, len(candidates))
	for i, c := range candidates {
		scored[i] = domain.ScoredCandidate{SearchCandidate: c, Total: c.RawScore}
	}
	return scored
}
