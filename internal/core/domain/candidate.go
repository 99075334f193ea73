package domain

// SearchCandidate is a transient retrieval hit produced per sub-query.
// Candidates are merged across sub-queries, deduplicated and reranked;
// they are never persisted.
type SearchCandidate struct {
	// Text is the candidate content.
	Text string

	// SourceID names the originating document or source.
	SourceID string

	// Link is the candidate's URI, if any.
	Link string

	// RawScore is the retrieval score (cosine similarity, possibly
	// fused with an image score). Zero when the backend supplied none.
	RawScore float64

	// ImageEmbedding is attached when the underlying paragraph carries
	// one, enabling late fusion. Nil for text-only candidates.
	ImageEmbedding []float32
}

// DedupKey returns the composite identity used when merging sub-query
// results. The first occurrence per key wins, so merge order matters.
func (c SearchCandidate) DedupKey() string {
	return c.Link + "\x00" + c.SourceID + "\x00" + c.Text
}

// ScoredCandidate is a reranked candidate with its scoring breakdown.
//
// Total is mutated exactly once by diversity de-biasing after the initial
// weighted computation; the final sort key is the post-de-biasing Total.
type ScoredCandidate struct {
	SearchCandidate

	// Relevance is the query-match signal (weight 0.55).
	Relevance float64

	// Freshness is the recency signal (weight 0.25).
	Freshness float64

	// Length is the content-length signal (weight 0.20).
	Length float64

	// Total is the weighted composite, after diversity de-biasing.
	Total float64
}
