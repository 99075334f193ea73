package structurer

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/passage-dev/passage/internal/core/domain"
	"github.com/passage-dev/passage/internal/core/ports/driven"
	"github.com/passage-dev/passage/internal/logger"
)

// MarkdownReader handles .md files via goldmark with table support.
// Images referenced by relative path are resolved against the file's
// directory and loaded so they can be captioned and embedded downstream.
type MarkdownReader struct {
	md goldmark.Markdown
}

var _ driven.Reader = (*MarkdownReader)(nil)

// NewMarkdownReader returns a reader for markdown files.
func NewMarkdownReader() *MarkdownReader {
	return &MarkdownReader{
		md: goldmark.New(goldmark.WithExtensions(extension.Table)),
	}
}

// Name returns the reader name.
func (r *MarkdownReader) Name() string { return "markdown" }

// SourceType returns the produced format.
func (r *MarkdownReader) SourceType() domain.SourceType { return domain.SourceMarkdown }

// CanRead reports whether the path looks like a markdown file.
func (r *MarkdownReader) CanRead(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".md" || ext == ".markdown"
}

// Read parses the markdown AST and flattens its top-level nodes into
// blocks. Inline images are lifted out of their paragraphs into separate
// image blocks so the surrounding prose stays clean.
func (r *MarkdownReader) Read(_ context.Context, path string) ([]domain.Block, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	doc := r.md.Parser().Parse(text.NewReader(source))
	w := &mdWalker{source: source, dir: filepath.Dir(path)}
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		w.walk(node)
	}
	return w.blocks, nil
}

// mdWalker accumulates blocks while descending the AST.
type mdWalker struct {
	source []byte
	dir    string
	blocks []domain.Block
}

func (w *mdWalker) add(b domain.Block) {
	w.blocks = append(w.blocks, b)
}

func (w *mdWalker) walk(node ast.Node) {
	switch n := node.(type) {
	case *ast.Heading:
		w.add(domain.HeadingBlock{
			Position: len(w.blocks),
			Content:  strings.TrimSpace(w.nodeText(n)),
			Level:    n.Level,
		})
	case *ast.Paragraph, *ast.TextBlock:
		w.emitImages(node)
		if txt := strings.TrimSpace(w.nodeText(node)); txt != "" {
			w.add(domain.TextBlock{Position: len(w.blocks), Content: txt})
		}
	case *ast.List:
		block := domain.ListBlock{
			Position: len(w.blocks),
			Items:    w.listItems(n),
			Ordered:  n.IsOrdered(),
		}
		if block.Ordered {
			block.Start = n.Start
		}
		w.add(block)
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		if txt := strings.TrimSpace(w.linesText(node)); txt != "" {
			w.add(domain.TextBlock{Position: len(w.blocks), Content: txt})
		}
	case *ast.Blockquote:
		for child := n.FirstChild(); child != nil; child = child.NextSibling() {
			w.walk(child)
		}
	case *east.Table:
		w.emitTable(n)
	case *ast.ThematicBreak, *ast.HTMLBlock:
		// No retrievable content.
	default:
		if txt := strings.TrimSpace(w.nodeText(node)); txt != "" {
			w.add(domain.TextBlock{Position: len(w.blocks), Content: txt})
		}
	}
}

// nodeText renders the inline text of a node, skipping image subtrees
// (those become blocks of their own).
func (w *mdWalker) nodeText(node ast.Node) string {
	var sb strings.Builder
	var visit func(ast.Node)
	visit = func(n ast.Node) {
		switch t := n.(type) {
		case *ast.Image:
			return
		case *ast.Text:
			sb.Write(t.Segment.Value(w.source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte('\n')
			}
			return
		case *ast.String:
			sb.Write(t.Value)
			return
		case *ast.AutoLink:
			sb.Write(t.URL(w.source))
			return
		}
		for child := n.FirstChild(); child != nil; child = child.NextSibling() {
			visit(child)
		}
	}
	visit(node)
	return sb.String()
}

// linesText renders a node's raw line segments, used for code blocks.
func (w *mdWalker) linesText(node ast.Node) string {
	var sb strings.Builder
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(w.source))
	}
	return sb.String()
}

// emitImages lifts every image inside the node into an image block.
func (w *mdWalker) emitImages(node ast.Node) {
	var visit func(ast.Node)
	visit = func(n ast.Node) {
		if img, ok := n.(*ast.Image); ok {
			w.emitImage(img)
			return
		}
		for child := n.FirstChild(); child != nil; child = child.NextSibling() {
			visit(child)
		}
	}
	visit(node)
}

func (w *mdWalker) emitImage(img *ast.Image) {
	block := domain.ImageBlock{
		Position: len(w.blocks),
		AltText:  strings.TrimSpace(w.nodeText(img)),
	}
	dest := string(img.Destination)
	if local := w.resolveImagePath(dest); local != "" {
		data, err := os.ReadFile(local)
		if err != nil {
			logger.Warn("markdown: unresolvable image %s: %v", dest, err)
		} else {
			block.Data = data
			block.ResolvedPath = local
		}
	}
	w.add(block)
}

// resolveImagePath maps a relative image reference to a path under the
// document's directory. Remote and absolute references are left alone.
func (w *mdWalker) resolveImagePath(dest string) string {
	if dest == "" {
		return ""
	}
	if u, err := url.Parse(dest); err == nil && u.Scheme != "" {
		return ""
	}
	if filepath.IsAbs(dest) {
		return dest
	}
	return filepath.Join(w.dir, filepath.FromSlash(dest))
}

func (w *mdWalker) listItems(list *ast.List) []string {
	var items []string
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		txt := strings.TrimSpace(w.nodeText(item))
		txt = strings.Join(strings.Fields(txt), " ")
		if txt != "" {
			items = append(items, txt)
		}
	}
	return items
}

func (w *mdWalker) emitTable(table *east.Table) {
	var rows [][]string
	headerCols := 0
	for row := table.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, strings.TrimSpace(w.nodeText(cell)))
		}
		if _, ok := row.(*east.TableHeader); ok {
			headerCols = len(cells)
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return
	}
	// Markdown guarantees rectangular tables; pad defensively anyway.
	cols := headerCols
	for _, row := range rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	for i, row := range rows {
		for len(row) < cols {
			row = append(row, "")
		}
		rows[i] = row
	}
	w.add(domain.TableBlock{
		Position: len(w.blocks),
		Rows:     rows,
		Caption:  tableCaption(rows[0]),
	})
}

// tableCaption joins short header cells for searchability, mirroring the
// layout package's heuristic for PDFs.
func tableCaption(header []string) string {
	var cells []string
	for _, c := range header {
		if c == "" {
			continue
		}
		if len([]rune(c)) > 30 {
			return ""
		}
		cells = append(cells, c)
	}
	if len(cells) < 2 || len(cells) > 8 {
		return ""
	}
	return strings.Join(cells, " | ")
}
