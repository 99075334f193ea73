package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/passage-dev/passage/internal/core/domain"
	"github.com/passage-dev/passage/internal/core/ports/driven"
	"github.com/passage-dev/passage/internal/core/ports/driving"
	"github.com/passage-dev/passage/internal/logger"
	"github.com/passage-dev/passage/internal/rewriter"
)

// Ensure Retrieve implements the interface.
var _ driving.RetrievalService = (*Retrieve)(nil)

// Retrieval defaults.
const (
	DefaultTop         = 10
	DefaultMaxRewrites = 3

	// perQueryFloor is the minimum fan-out limit per sub-query, so small
	// top values still gather enough candidates to rank.
	perQueryFloor = 3

	// Late fusion weights for candidates that carry an image embedding.
	fusionTextWeight  = 0.7
	fusionImageWeight = 0.3
)

// RetrieveConfig holds configuration for the retrieval service.
type RetrieveConfig struct {
	// MaxRewrites bounds query expansion (default: 3).
	MaxRewrites int

	// FuseImages enables late fusion of image similarity into the
	// retrieval score.
	FuseImages bool
}

// Retrieve runs the retrieval pipeline: rewrite, fan out, merge, dedup,
// fuse, rerank, truncate.
type Retrieve struct {
	rewriter    *rewriter.Rewriter
	embedder    driven.EmbeddingService
	vectors     driven.VectorStore
	reranker    driven.Reranker
	maxRewrites int
	fuseImages  bool
}

// NewRetrieve creates the retrieval service.
func NewRetrieve(
	rw *rewriter.Rewriter,
	embedder driven.EmbeddingService,
	vectors driven.VectorStore,
	rr driven.Reranker,
	cfg RetrieveConfig,
) *Retrieve {
	if cfg.MaxRewrites <= 0 {
		cfg.MaxRewrites = DefaultMaxRewrites
	}
	return &Retrieve{
		rewriter:    rw,
		embedder:    embedder,
		vectors:     vectors,
		reranker:    rr,
		maxRewrites: cfg.MaxRewrites,
		fuseImages:  cfg.FuseImages,
	}
}

// Retrieve answers a query with at most top ranked passages. Sub-query
// failures are isolated: as long as the pipeline itself runs, an empty
// result is a valid answer, never an error.
func (s *Retrieve) Retrieve(ctx context.Context, query string, top int) ([]domain.ScoredCandidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty query: %w", domain.ErrInvalidInput)
	}
	if top <= 0 {
		top = DefaultTop
	}

	// REWRITE: the original query always runs first.
	queries := append([]string{query}, s.rewriter.Rewrite(query, s.maxRewrites)...)
	logger.Debug("retrieval fan-out over %d queries", len(queries))

	// FAN_OUT: all sub-queries search concurrently; a failed sub-query
	// contributes nothing. Merge order must match queries order, so each
	// goroutine writes its own slot.
	perQuery := top / 2
	if perQuery < perQueryFloor {
		perQuery = perQueryFloor
	}

	results := make([][]driven.Hit, len(queries))
	var wg sync.WaitGroup
	for i, q := range queries {
		i, q := i, q
		wg.Add(1)
		go func() {
			defer wg.Done()
			hits, err := s.search(ctx, q, perQuery)
			if err != nil {
				logger.Warn("sub-query %q: %v", q, err)
				return
			}
			results[i] = hits
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// MERGE + DEDUP: first occurrence wins, so hits for the original
	// query shadow duplicates from rewrites.
	var candidates []domain.SearchCandidate
	seen := map[string]struct{}{}
	for _, hits := range results {
		for _, hit := range hits {
			c := toCandidate(hit)
			if _, dup := seen[c.DedupKey()]; dup {
				continue
			}
			seen[c.DedupKey()] = struct{}{}
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return []domain.ScoredCandidate{}, nil
	}

	// FUSE: blend image similarity into the retrieval score. Candidates
	// without an image embedding keep their text score untouched.
	if s.fuseImages {
		if queryVec, err := s.embedder.Embed(ctx, query); err != nil {
			logger.Warn("fusion embedding: %v", err)
		} else {
			fuse(candidates, queryVec)
		}
	}

	// RERANK + TRUNCATE. The reranker contract guarantees this step
	// cannot fail once the fallback chain is wired in.
	scored, err := s.reranker.Rerank(ctx, query, candidates)
	if err != nil {
		return nil, fmt.Errorf("reranking: %w", err)
	}
	if len(scored) > top {
		scored = scored[:top]
	}
	return scored, nil
}

func (s *Retrieve) search(ctx context.Context, query string, limit int) ([]driven.Hit, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}
	hits, err := s.vectors.Search(ctx, vec, limit, driven.FieldText)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}
	return hits, nil
}

func toCandidate(hit driven.Hit) domain.SearchCandidate {
	return domain.SearchCandidate{
		Text:           hit.Paragraph.Text,
		SourceID:       hit.Paragraph.Key,
		Link:           hit.Paragraph.DocumentURI,
		RawScore:       hit.Score,
		ImageEmbedding: hit.Paragraph.ImageEmbedding,
	}
}

// fuse replaces each candidate's raw score with a weighted blend of text
// and image similarity. The image term is omitted, not zero-filled, when
// the candidate has no image embedding; punishing text-only content for
// lacking pictures would skew ranking.
func fuse(candidates []domain.SearchCandidate, queryVec []float32) {
	for i, c := range candidates {
		if len(c.ImageEmbedding) == 0 {
			continue
		}
		imgScore := cosine32(queryVec, c.ImageEmbedding)
		candidates[i].RawScore = fusionTextWeight*c.RawScore + fusionImageWeight*imgScore
	}
}

func cosine32(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
