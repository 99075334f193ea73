// Package memory provides an in-memory vector store used in tests and
// for single-shot runs where standing up Qdrant is not worth it.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/passage-dev/passage/internal/core/domain"
	"github.com/passage-dev/passage/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Store keeps paragraphs in a map and searches by brute-force cosine
// similarity.
type Store struct {
	mu   sync.RWMutex
	data map[string]domain.Paragraph
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{data: map[string]domain.Paragraph{}}
}

// EnsureCollection is a no-op for the in-memory store.
func (s *Store) EnsureCollection(context.Context, int) error {
	return nil
}

// Upsert writes paragraphs keyed by Paragraph.Key.
func (s *Store) Upsert(_ context.Context, paragraphs []domain.Paragraph) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range paragraphs {
		s.data[p.Key] = p
	}
	return nil
}

// Search returns the closest paragraphs to the query vector. Paragraphs
// without a vector in the requested field are skipped.
func (s *Store) Search(_ context.Context, vector []float32, limit int, field driven.VectorField) ([]driven.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []driven.Hit
	for _, p := range s.data {
		target := p.TextEmbedding
		if field == driven.FieldImage {
			target = p.ImageEmbedding
		}
		if len(target) == 0 || len(target) != len(vector) {
			continue
		}
		hits = append(hits, driven.Hit{Paragraph: p, Score: cosine(vector, target)})
	}

	// Map iteration order is random, so equal scores break ties on the
	// paragraph key to keep results deterministic.
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Paragraph.Key < hits[j].Paragraph.Key
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// DeleteDocument removes all paragraphs for the given document URI.
func (s *Store) DeleteDocument(_ context.Context, documentURI string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, p := range s.data {
		if p.DocumentURI == documentURI {
			delete(s.data, key)
		}
	}
	return nil
}

// Len returns the number of stored paragraphs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func cosine(a, b []float32) float64 {
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
