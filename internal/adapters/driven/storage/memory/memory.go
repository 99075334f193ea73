// Package memory provides an in-memory paragraph store for tests and
// ephemeral runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/passage-dev/passage/internal/core/domain"
	"github.com/passage-dev/passage/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.ParagraphStore = (*Store)(nil)

// Store keeps paragraphs in a map.
type Store struct {
	mu   sync.RWMutex
	data map[string]domain.Paragraph
}

// NewStore creates an empty in-memory paragraph store.
func NewStore() *Store {
	return &Store{data: map[string]domain.Paragraph{}}
}

// Upsert writes a paragraph keyed by Paragraph.Key.
func (s *Store) Upsert(_ context.Context, p domain.Paragraph) error {
	if p.Key == "" {
		return fmt.Errorf("paragraph key is empty: %w", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[p.Key] = p
	return nil
}

// Get returns the paragraph with the given key.
func (s *Store) Get(_ context.Context, key string) (domain.Paragraph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.data[key]
	if !ok {
		return domain.Paragraph{}, fmt.Errorf("paragraph %s: %w", key, domain.ErrNotFound)
	}
	return p, nil
}

// Has reports whether a paragraph with the given key exists.
func (s *Store) Has(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[key]
	return ok, nil
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

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// Len returns the number of stored paragraphs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
