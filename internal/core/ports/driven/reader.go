package driven

import (
	"context"

	"github.com/passage-dev/passage/internal/core/domain"
)

// Reader converts a raw file into an ordered sequence of typed blocks.
// Each reader handles specific file formats; readers are registered in an
// ordered list and selected by the first CanRead match.
//
// Read performs a single pass: block order is final when it returns, and
// document-wide statistics (e.g. font sizes for heading detection) are
// accumulated internally before blocks are finalised.
type Reader interface {
	// Name returns the reader name for logging.
	Name() string

	// SourceType returns the format this reader produces.
	SourceType() domain.SourceType

	// CanRead reports whether this reader handles the given path.
	CanRead(path string) bool

	// Read structures the file into blocks in document order.
	// Per-element extraction failures are logged and skipped; Read only
	// fails when the whole file is unreadable.
	Read(ctx context.Context, path string) ([]domain.Block, error)
}
