package reranker

import (
	"context"
	"fmt"
	"sort"

	"github.com/passage-dev/passage/internal/core/domain"
	"github.com/passage-dev/passage/internal/core/ports/driven"
)

// Ensure Model implements the interface.
var _ driven.Reranker = (*Model)(nil)

// Model reranks candidates with a cross-encoder scorer, which judges each
// (query, passage) pair jointly instead of comparing embeddings.
type Model struct {
	scorer driven.CrossEncoderScorer
}

// NewModel creates a model-backed reranker.
func NewModel(scorer driven.CrossEncoderScorer) *Model {
	return &Model{scorer: scorer}
}

// Rerank scores every candidate with the cross-encoder and sorts by
// descending score. It fails when the scorer reports itself not ready,
// letting the fallback chain skip straight to the heuristic instead of
// failing per call.
func (m *Model) Rerank(ctx context.Context, query string, candidates []domain.SearchCandidate) ([]domain.ScoredCandidate, error) {
	if m.scorer == nil || !m.scorer.Ready(ctx) {
		return nil, domain.ErrNotReady
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}

	scores, err := m.scorer.Score(ctx, query, texts)
	if err != nil {
		return nil, fmt.Errorf("cross-encoder score: %w", err)
	}
	if len(scores) != len(candidates) {
		return nil, fmt.Errorf("cross-encoder returned %d scores for %d candidates", len(scores), len(candidates))
	}

	scored := make([]domain.ScoredCandidate, len(candidates))
	for i, c := range candidates {
		scored[i] = domain.ScoredCandidate{
			SearchCandidate: c,
			Relevance:       scores[i],
			Total:           scores[i],
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Total > scored[j].Total
	})
	return scored, nil
}
