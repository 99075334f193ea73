package structurer

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/passage-dev/passage/internal/core/domain"
	"github.com/passage-dev/passage/internal/core/ports/driven"
	"github.com/passage-dev/passage/internal/logger"
	"github.com/passage-dev/passage/internal/structurer/layout"
)

// PDFReader handles .pdf files. PDF carries no structural markup, only
// positioned glyphs, so headings and tables are reconstructed with the
// layout heuristics. Font statistics are computed from the opening pages
// before any line is classified.
type PDFReader struct {
	// statsPages is how many leading pages feed the font statistics.
	statsPages int
}

var _ driven.Reader = (*PDFReader)(nil)

// NewPDFReader returns a reader for PDF files.
func NewPDFReader() *PDFReader {
	return &PDFReader{statsPages: 3}
}

// Name returns the reader name.
func (r *PDFReader) Name() string { return "pdf" }

// SourceType returns the produced format.
func (r *PDFReader) SourceType() domain.SourceType { return domain.SourcePDF }

// CanRead reports whether the path looks like a PDF.
func (r *PDFReader) CanRead(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// Read extracts positioned text page by page, derives document-wide font
// statistics from the opening pages, then classifies lines into blocks.
// A page whose content stream cannot be decoded is logged and skipped.
func (r *PDFReader) Read(ctx context.Context, path string) ([]domain.Block, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var pages [][]layout.Line
	for n := 1; n <= reader.NumPage(); n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lines, err := extractPage(reader, n)
		if err != nil {
			logger.Warn("pdf: skipping page: %v", err)
			continue
		}
		pages = append(pages, lines)
	}

	var sample []layout.Line
	for i, lines := range pages {
		if i >= r.statsPages {
			break
		}
		sample = append(sample, lines...)
	}
	stats := layout.ComputeStats(sample)

	var blocks []domain.Block
	for _, lines := range pages {
		blocks = appendPageBlocks(blocks, lines, stats)
	}
	return blocks, nil
}

// extractPage pulls the positioned words of one page. The underlying
// library panics on some malformed content streams, so the whole page is
// recover-protected and degrades to a skip.
func extractPage(reader *pdf.Reader, n int) (lines []layout.Line, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("page %d: %v", n, rec)
		}
	}()

	page := reader.Page(n)
	if page.V.IsNull() {
		return nil, nil
	}
	words := wordsFromTexts(page.Content().Text)
	return layout.LinesFromWords(words), nil
}

// glyphMergeFactor times the font size is the largest horizontal gap
// still treated as intra-word glyph spacing.
const glyphMergeFactor = 0.25

// wordsFromTexts merges the extractor's glyph chunks into words. Chunks
// on the same row are joined when they nearly touch; anything further
// apart starts a new word.
func wordsFromTexts(texts []pdf.Text) []layout.Word {
	rows := map[float64][]pdf.Text{}
	for _, t := range texts {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		rows[math.Round(t.Y)] = append(rows[math.Round(t.Y)], t)
	}

	var words []layout.Word
	for _, row := range rows {
		sort.Slice(row, func(i, j int) bool { return row[i].X < row[j].X })

		var cur *layout.Word
		var curEnd float64
		for _, t := range row {
			size := t.FontSize
			if size <= 0 {
				size = 10
			}
			if cur != nil && t.X-curEnd <= glyphMergeFactor*size {
				cur.Text += t.S
			} else {
				if cur != nil {
					words = append(words, *cur)
				}
				cur = &layout.Word{Text: t.S, X: t.X, Y: t.Y, Size: size}
			}
			curEnd = t.X + t.W
		}
		if cur != nil {
			words = append(words, *cur)
		}
	}
	return words
}

// appendPageBlocks classifies one page of lines. Table detection runs
// first so numbered data rows are not misread as decimal headings; the
// remaining lines become headings or accumulate into text blocks.
func appendPageBlocks(blocks []domain.Block, lines []layout.Line, stats layout.DocumentStats) []domain.Block {
	cells := make([][]string, len(lines))
	for i, line := range lines {
		cells[i] = layout.LineCells(line)
	}
	tables := layout.DetectTables(cells, layout.DefaultTableOptions())

	tableAt := map[int]layout.Table{}
	consumed := map[int]bool{}
	for _, t := range tables {
		tableAt[t.Start] = t
		for i := t.Start; i <= t.End; i++ {
			consumed[i] = true
		}
	}

	var para []string
	flush := func() {
		if len(para) == 0 {
			return
		}
		blocks = append(blocks, domain.TextBlock{
			Position: len(blocks),
			Content:  strings.Join(para, "\n"),
		})
		para = nil
	}

	for i, line := range lines {
		if t, ok := tableAt[i]; ok {
			flush()
			blocks = append(blocks, domain.TableBlock{
				Position: len(blocks),
				Rows:     t.Rows,
				Caption:  t.Caption,
			})
			continue
		}
		if consumed[i] {
			continue
		}
		if level, ok := layout.HeadingLevel(line, stats); ok {
			flush()
			blocks = append(blocks, domain.HeadingBlock{
				Position: len(blocks),
				Content:  strings.TrimSpace(line.Text()),
				Level:    level,
			})
			continue
		}
		if text := strings.TrimSpace(line.Text()); text != "" {
			para = append(para, text)
		}
	}
	flush()
	return blocks
}
