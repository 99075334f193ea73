package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passage-dev/passage/internal/adapters/driven/embedding/hash"
	"github.com/passage-dev/passage/internal/core/domain"
	"github.com/passage-dev/passage/internal/core/ports/driven"
	"github.com/passage-dev/passage/internal/reranker"
	"github.com/passage-dev/passage/internal/rewriter"
)

// fakeVectors serves canned hits and counts searches.
type fakeVectors struct {
	hits    []driven.Hit
	err     error
	queries atomic.Int32
}

func (f *fakeVectors) EnsureCollection(context.Context, int) error { return nil }
func (f *fakeVectors) Upsert(context.Context, []domain.Paragraph) error {
	return nil
}
func (f *fakeVectors) DeleteDocument(context.Context, string) error { return nil }

func (f *fakeVectors) Search(_ context.Context, _ []float32, limit int, _ driven.VectorField) ([]driven.Hit, error) {
	f.queries.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	hits := f.hits
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// routedVectors serves one hit set for a designated query vector and a
// different set for every other sub-query, so tests can tell apart hits
// contributed by the original query and by its rewrites.
type routedVectors struct {
	matchVec    []float32
	matchHits   []driven.Hit
	defaultHits []driven.Hit
	queries     atomic.Int32
}

func (f *routedVectors) EnsureCollection(context.Context, int) error { return nil }
func (f *routedVectors) Upsert(context.Context, []domain.Paragraph) error {
	return nil
}
func (f *routedVectors) DeleteDocument(context.Context, string) error { return nil }

func (f *routedVectors) Search(_ context.Context, vec []float32, _ int, _ driven.VectorField) ([]driven.Hit, error) {
	f.queries.Add(1)
	if equalVecs(vec, f.matchVec) {
		return f.matchHits, nil
	}
	return f.defaultHits, nil
}

func equalVecs(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// passthroughReranker copies raw scores without reordering, so tests can
// observe exactly what the retrieval stages produced.
type passthroughReranker struct{}

func (passthroughReranker) Rerank(_ context.Context, _ string, cands []domain.SearchCandidate) ([]domain.ScoredCandidate, error) {
	out := make([]domain.ScoredCandidate, len(cands))
	for i, c := range cands {
		out[i] = domain.ScoredCandidate{SearchCandidate: c, Total: c.RawScore}
	}
	return out, nil
}

func hit(key, text string, score float64) driven.Hit {
	return driven.Hit{
		Paragraph: domain.Paragraph{
			Key:         key,
			DocumentURI: "file:///docs/report.txt",
			Text:        text,
		},
		Score: score,
	}
}

func newRetrieve(vectors driven.VectorStore, rr driven.Reranker, cfg RetrieveConfig) *Retrieve {
	return NewRetrieve(rewriter.New(), hash.NewEmbeddingService(8), vectors, rr, cfg)
}

func TestRetrieve_EmptyQueryRejected(t *testing.T) {
	s := newRetrieve(&fakeVectors{}, passthroughReranker{}, RetrieveConfig{})
	_, err := s.Retrieve(context.Background(), "   ", 5)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRetrieve_FansOutOverRewrites(t *testing.T) {
	vectors := &fakeVectors{hits: []driven.Hit{hit("a", "股票价格上涨", 0.9)}}
	s := newRetrieve(vectors, passthroughReranker{}, RetrieveConfig{})

	out, err := s.Retrieve(context.Background(), "股票 价格", 5)
	require.NoError(t, err)
	require.Len(t, out, 1, "identical hits from every sub-query collapse to one")
	// Original query plus generated rewrites all searched.
	assert.Greater(t, vectors.queries.Load(), int32(1))
}

func TestRetrieve_DedupKeepsOriginalQueryHit(t *testing.T) {
	embedder := hash.NewEmbeddingService(8)
	originalVec, err := embedder.Embed(context.Background(), "股票 价格")
	require.NoError(t, err)

	// Every sub-query returns the same passage, but the rewrites report
	// a higher score for it than the original query does.
	vectors := &routedVectors{
		matchVec:    originalVec,
		matchHits:   []driven.Hit{hit("a", "股票价格上涨", 0.4)},
		defaultHits: []driven.Hit{hit("a", "股票价格上涨", 0.9)},
	}
	s := NewRetrieve(rewriter.New(), embedder, vectors, passthroughReranker{}, RetrieveConfig{})

	out, err := s.Retrieve(context.Background(), "股票 价格", 5)
	require.NoError(t, err)
	require.Greater(t, vectors.queries.Load(), int32(1), "rewrites must have searched too")
	require.Len(t, out, 1)
	assert.InDelta(t, 0.4, out[0].Total, 1e-9, "first occurrence wins, so the original query's score survives")
}

func TestRetrieve_AllSubQueriesFailYieldsEmpty(t *testing.T) {
	vectors := &fakeVectors{err: errors.New("store down")}
	s := newRetrieve(vectors, passthroughReranker{}, RetrieveConfig{})

	out, err := s.Retrieve(context.Background(), "anything", 5)
	require.NoError(t, err, "degraded retrieval is not an error")
	assert.Empty(t, out)
}

func TestRetrieve_TruncatesToTop(t *testing.T) {
	vectors := &fakeVectors{hits: []driven.Hit{
		hit("a", "first passage", 0.9),
		hit("b", "second passage", 0.8),
		hit("c", "third passage", 0.7),
		hit("d", "fourth passage", 0.6),
	}}
	s := newRetrieve(vectors, passthroughReranker{}, RetrieveConfig{})

	out, err := s.Retrieve(context.Background(), "passage", 2)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestRetrieve_FusionBlendsImageScore(t *testing.T) {
	embedder := hash.NewEmbeddingService(8)
	queryVec, err := embedder.Embed(context.Background(), "chart")
	require.NoError(t, err)

	withImage := hit("img", "captioned chart", 0.5)
	withImage.Paragraph.ImageEmbedding = queryVec
	textOnly := hit("txt", "plain passage", 0.5)

	vectors := &fakeVectors{hits: []driven.Hit{withImage, textOnly}}
	s := NewRetrieve(rewriter.New(), embedder, vectors, passthroughReranker{}, RetrieveConfig{FuseImages: true})

	out, err := s.Retrieve(context.Background(), "chart", 5)
	require.NoError(t, err)
	require.Len(t, out, 2)

	scores := map[string]float64{}
	for _, c := range out {
		scores[c.SourceID] = c.Total
	}
	// Identical image and query vectors give cosine 1.
	assert.InDelta(t, 0.7*0.5+0.3*1.0, scores["img"], 1e-9)
	assert.InDelta(t, 0.5, scores["txt"], 1e-9, "image term omitted, not zero-filled")
}

func TestRetrieve_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	vectors := &fakeVectors{hits: []driven.Hit{hit("a", "text", 0.9)}}
	s := newRetrieve(vectors, passthroughReranker{}, RetrieveConfig{})

	_, err := s.Retrieve(ctx, "query", 5)
	assert.Error(t, err)
}

func TestRetrieve_FullChainWithFallback(t *testing.T) {
	vectors := &fakeVectors{hits: []driven.Hit{
		hit("a", "quarterly earnings beat the forecast with strong revenue growth", 0.9),
		hit("b", "unrelated gardening tips for the mild spring weather season", 0.4),
	}}
	chain := reranker.NewFallback(reranker.NewModel(notReadyScorer{}), reranker.NewHeuristic())
	s := newRetrieve(vectors, chain, RetrieveConfig{})

	out, err := s.Retrieve(context.Background(), "earnings revenue forecast", 5)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].SourceID)
}

// notReadyScorer simulates an absent cross-encoder model.
type notReadyScorer struct{}

func (notReadyScorer) Ready(context.Context) bool { return false }
func (notReadyScorer) Score(context.Context, string, []string) ([]float64, error) {
	return nil, errors.New("not loaded")
}
