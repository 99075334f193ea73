package structurer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/passage-dev/passage/internal/core/domain"
	"github.com/passage-dev/passage/internal/core/ports/driven"
)

// PlainTextReader handles .txt files. Blank lines delimit blocks; no
// further structure is inferred.
type PlainTextReader struct{}

var _ driven.Reader = (*PlainTextReader)(nil)

// NewPlainTextReader returns a reader for plain text files.
func NewPlainTextReader() *PlainTextReader {
	return &PlainTextReader{}
}

// Name returns the reader name.
func (r *PlainTextReader) Name() string { return "plaintext" }

// SourceType returns the produced format.
func (r *PlainTextReader) SourceType() domain.SourceType { return domain.SourceText }

// CanRead reports whether the path looks like a plain text file.
func (r *PlainTextReader) CanRead(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".txt")
}

// Read splits the file into text blocks at blank lines.
func (r *PlainTextReader) Read(_ context.Context, path string) ([]domain.Block, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var blocks []domain.Block
	for _, chunk := range splitParagraphs(string(data)) {
		blocks = append(blocks, domain.TextBlock{
			Position: len(blocks),
			Content:  chunk,
		})
	}
	return blocks, nil
}

// splitParagraphs breaks text at runs of blank lines, trimming each
// resulting paragraph and dropping empty ones.
func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, part := range strings.Split(text, "\n\n") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
