// Package mapper converts structured blocks into persistable paragraph
// records with stable content-derived keys.
package mapper

import (
	"fmt"
	"strings"

	"github.com/passage-dev/passage/internal/chunker"
	"github.com/passage-dev/passage/internal/core/domain"
)

// sectionMaxLevel is the deepest heading level that updates the current
// section. Deeper headings are indexed but do not change sectioning.
const sectionMaxLevel = 3

// ImageMeta carries caption and location for an image block, resolved by
// the caller (the ingest service owns captioning and image persistence).
type ImageMeta struct {
	// Caption is the resolved description for the image.
	Caption string

	// URI is the stored image location.
	URI string
}

// Mapper maps blocks to paragraphs. It is stateless; document-order
// state (running order, current section) is threaded explicitly through
// Map's arguments and results.
type Mapper struct {
	chunker *chunker.Chunker
}

// New creates a mapper that chunks text blocks with the given chunker.
func New(c *chunker.Chunker) *Mapper {
	return &Mapper{chunker: c}
}

// Map converts one block into paragraph records.
//
// It returns the produced paragraphs, the next running order, and the
// updated current section. Heading blocks at level <= 3 replace the
// section for all subsequent blocks. Table and image blocks always yield
// exactly one paragraph; text blocks yield one per chunk.
//
// Identical (block, documentURI, order) input always produces identical
// keys, which is what makes re-ingestion an idempotent upsert.
func (m *Mapper) Map(
	block domain.Block,
	documentURI string,
	order int,
	section string,
	sourceType domain.SourceType,
	imageMeta *ImageMeta,
) (paragraphs []domain.Paragraph, nextOrder int, updatedSection string) {
	updatedSection = section

	switch b := block.(type) {
	case domain.TextBlock:
		for _, chunk := range m.chunker.Chunk(b.Content) {
			paragraphs = append(paragraphs, m.paragraph(documentURI, order, section, sourceType, chunk, domain.BlockText))
			order++
		}

	case domain.HeadingBlock:
		text := strings.TrimSpace(b.Content)
		if text != "" {
			if b.Level <= sectionMaxLevel {
				updatedSection = text
			}
			paragraphs = append(paragraphs, m.paragraph(documentURI, order, section, sourceType, text, domain.BlockHeading))
			order++
		}

	case domain.ListBlock:
		text := b.Text()
		if text != "" {
			paragraphs = append(paragraphs, m.paragraph(documentURI, order, section, sourceType, text, domain.BlockList))
			order++
		}

	case domain.TableBlock:
		text := b.Markdown()
		if b.Caption != "" {
			text = b.Caption + "\n" + text
		}
		p := m.paragraph(documentURI, order, section, sourceType, text, domain.BlockTable)
		paragraphs = append(paragraphs, p)
		order++

	case domain.ImageBlock:
		text := b.AltText
		var uri string
		if imageMeta != nil {
			if imageMeta.Caption != "" {
				text = imageMeta.Caption
			}
			uri = imageMeta.URI
		}
		if text == "" {
			text = "image"
		}
		p := m.paragraph(documentURI, order, section, sourceType, text, domain.BlockImage)
		p.ImageURI = uri
		paragraphs = append(paragraphs, p)
		order++
	}

	return paragraphs, order, updatedSection
}

func (m *Mapper) paragraph(
	documentURI string,
	order int,
	section string,
	sourceType domain.SourceType,
	text string,
	kind domain.BlockKind,
) domain.Paragraph {
	hash := domain.HashContent(text)
	return domain.Paragraph{
		Key:         domain.ParagraphKey(documentURI, order, hash),
		DocumentURI: documentURI,
		ParagraphID: fmt.Sprintf("p%04d", order),
		Text:        text,
		Order:       order,
		Section:     section,
		SourceType:  sourceType,
		ContentHash: hash,
		BlockKind:   kind,
	}
}
