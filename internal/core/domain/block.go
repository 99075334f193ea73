package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// BlockKind identifies the variant of a Block.
type BlockKind string

// Block kinds.
const (
	BlockText    BlockKind = "text"
	BlockHeading BlockKind = "heading"
	BlockList    BlockKind = "list"
	BlockTable   BlockKind = "table"
	BlockImage   BlockKind = "image"
)

// Block is a typed unit of document structure produced by a reader.
// The variant set is sealed: only the types in this package implement it.
//
// Every block carries a monotonic position within the source document.
// Position is the only ordering invariant; blocks from the same document
// must be processed in non-decreasing position order.
type Block interface {
	// Kind returns the block variant.
	Kind() BlockKind

	// Order returns the monotonic position within the source document.
	Order() int

	sealed()
}

// TextBlock is a run of plain prose.
type TextBlock struct {
	// Position is the monotonic document-order index.
	Position int

	// Content is the cleaned text content.
	Content string
}

// Kind returns the block variant.
func (b TextBlock) Kind() BlockKind { return BlockText }

// Order returns the document-order position.
func (b TextBlock) Order() int { return b.Position }

func (TextBlock) sealed() {}

// HeadingBlock is a section heading.
type HeadingBlock struct {
	// Position is the monotonic document-order index.
	Position int

	// Content is the heading text.
	Content string

	// Level is the heading depth (1 = document title).
	Level int
}

// Kind returns the block variant.
func (b HeadingBlock) Kind() BlockKind { return BlockHeading }

// Order returns the document-order position.
func (b HeadingBlock) Order() int { return b.Position }

func (HeadingBlock) sealed() {}

// ListBlock is an ordered or unordered list.
type ListBlock struct {
	// Position is the monotonic document-order index.
	Position int

	// Items are the list entries in source order.
	Items []string

	// Ordered is true for numbered lists.
	Ordered bool

	// Start is the number of the first item in an ordered list. Zero
	// renders as 1, so lists that begin at the top need not set it. A
	// list resuming after interrupting content carries the continued
	// number here.
	Start int
}

// Kind returns the block variant.
func (b ListBlock) Kind() BlockKind { return BlockList }

// Order returns the document-order position.
func (b ListBlock) Order() int { return b.Position }

func (ListBlock) sealed() {}

// Text renders the list items as lines, numbering ordered lists from
// Start.
func (b ListBlock) Text() string {
	start := b.Start
	if start < 1 {
		start = 1
	}
	var sb strings.Builder
	for i, item := range b.Items {
		if i > 0 {
			sb.WriteByte('\n')
		}
		if b.Ordered {
			sb.WriteString(strconv.Itoa(start + i))
			sb.WriteString(". ")
		} else {
			sb.WriteString("- ")
		}
		sb.WriteString(item)
	}
	return sb.String()
}

// TableBlock is a reconstructed table.
//
// Rows always form a rectangle: every row has the same number of cells.
// Caption is a display and searchability aid derived heuristically from the
// first row; it may be wrong for headerless tables.
type TableBlock struct {
	// Position is the monotonic document-order index.
	Position int

	// Rows holds the cell text, row-major.
	Rows [][]string

	// Caption summarises the table, typically the header cells joined
	// with " | ". May be empty.
	Caption string
}

// Kind returns the block variant.
func (b TableBlock) Kind() BlockKind { return BlockTable }

// Order returns the document-order position.
func (b TableBlock) Order() int { return b.Position }

func (TableBlock) sealed() {}

// Markdown renders the table as a GitHub-style markdown table.
func (b TableBlock) Markdown() string {
	if len(b.Rows) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, row := range b.Rows {
		sb.WriteString("| ")
		sb.WriteString(strings.Join(row, " | "))
		sb.WriteString(" |\n")
		if i == 0 {
			sb.WriteString("|")
			sb.WriteString(strings.Repeat(" --- |", len(row)))
			sb.WriteByte('\n')
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// ContentHash returns a stable hash of the cell contents.
func (b TableBlock) ContentHash() string {
	h := sha256.New()
	for _, row := range b.Rows {
		for _, cell := range row {
			h.Write([]byte(cell))
			h.Write([]byte{0})
		}
		h.Write([]byte{1})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// ImageBlock is an embedded image.
type ImageBlock struct {
	// Position is the monotonic document-order index.
	Position int

	// Data is the raw image bytes. May be empty when the image could
	// not be resolved.
	Data []byte

	// AltText is the author-supplied description, if any.
	AltText string

	// ResolvedPath is the on-disk location of the image, if resolved.
	ResolvedPath string
}

// Kind returns the block variant.
func (b ImageBlock) Kind() BlockKind { return BlockImage }

// Order returns the document-order position.
func (b ImageBlock) Order() int { return b.Position }

func (ImageBlock) sealed() {}
