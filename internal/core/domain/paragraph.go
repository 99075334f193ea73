package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// SourceType identifies the format a paragraph was extracted from.
type SourceType string

// Source types.
const (
	SourcePDF      SourceType = "pdf"
	SourceDocx     SourceType = "docx"
	SourceMarkdown SourceType = "markdown"
	SourceWeb      SourceType = "web"
	SourceText     SourceType = "text"
)

// Paragraph is the persisted unit of retrieval.
//
// Paragraphs are created during ingestion and never mutated afterwards,
// except for embedding backfill. Re-ingesting a document under the same
// URI supersedes its paragraphs via upsert semantics on Key.
//
// TextEmbedding is always present once ingestion completes. ImageEmbedding
// is present only for image-kind paragraphs; a zero vector is an explicit
// "no image" sentinel, so callers must branch on BlockKind rather than on
// vector contents.
type Paragraph struct {
	// Key is the stable identifier derived from document identity,
	// position and content hash. Identical input always yields the same
	// key, making re-ingestion an idempotent upsert.
	Key string

	// DocumentURI is the source document location.
	DocumentURI string

	// ParagraphID is a human-readable identifier within the document.
	ParagraphID string

	// Text is the searchable content.
	Text string

	// Order is the monotonic position within the document.
	Order int

	// Section is the nearest enclosing heading at levels 1-3, if any.
	Section string

	// SourceType records the originating format.
	SourceType SourceType

	// ContentHash is a hash of Text, used for change detection.
	ContentHash string

	// BlockKind records which block variant produced this paragraph.
	BlockKind BlockKind

	// TextEmbedding is the vector representation of Text.
	TextEmbedding []float32

	// ImageEmbedding is the vector representation of the image, for
	// image-kind paragraphs only.
	ImageEmbedding []float32

	// ImageURI is the resolved image location, for image-kind paragraphs.
	ImageURI string
}

// HashContent returns the stable content hash used in paragraph keys.
func HashContent(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:16]
}

// ParagraphKey derives the stable key for a paragraph from document
// identity, position and content hash.
func ParagraphKey(documentURI string, order int, contentHash string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s#%d#%s", documentURI, order, contentHash)))
	return hex.EncodeToString(sum[:])[:32]
}
