// Package structurer turns source files into ordered typed blocks. Each
// supported format has its own reader; the registry picks the first
// reader whose CanRead accepts the path.
package structurer

import (
	"context"
	"fmt"

	"github.com/passage-dev/passage/internal/core/domain"
	"github.com/passage-dev/passage/internal/core/ports/driven"
)

// Registry is an ordered collection of readers. Order matters: the first
// CanRead match wins, so more specific readers must be registered before
// generic ones.
type Registry struct {
	readers []driven.Reader
}

// NewRegistry returns a registry over the given readers, tried in order.
func NewRegistry(readers ...driven.Reader) *Registry {
	return &Registry{readers: readers}
}

// Register appends a reader to the end of the selection order.
func (r *Registry) Register(reader driven.Reader) {
	r.readers = append(r.readers, reader)
}

// For returns the first reader that accepts the path.
func (r *Registry) For(path string) (driven.Reader, error) {
	for _, reader := range r.readers {
		if reader.CanRead(path) {
			return reader, nil
		}
	}
	return nil, fmt.Errorf("no reader for %q: %w", path, domain.ErrUnsupportedType)
}

// Read structures the file at path using the first matching reader.
func (r *Registry) Read(ctx context.Context, path string) ([]domain.Block, domain.SourceType, error) {
	reader, err := r.For(path)
	if err != nil {
		return nil, "", err
	}
	blocks, err := reader.Read(ctx, path)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", reader.Name(), err)
	}
	return blocks, reader.SourceType(), nil
}
