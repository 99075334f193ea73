package structurer

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/passage-dev/passage/internal/core/domain"
	"github.com/passage-dev/passage/internal/core/ports/driven"
	"github.com/passage-dev/passage/internal/logger"
)

// DocxReader handles .docx files. A docx is a zip of XML parts; the body
// of word/document.xml carries paragraphs and tables in document order,
// with images and list metadata referenced indirectly through the
// relationship and numbering parts.
type DocxReader struct{}

var _ driven.Reader = (*DocxReader)(nil)

// NewDocxReader returns a reader for Word documents.
func NewDocxReader() *DocxReader {
	return &DocxReader{}
}

// Name returns the reader name.
func (r *DocxReader) Name() string { return "docx" }

// SourceType returns the produced format.
func (r *DocxReader) SourceType() domain.SourceType { return domain.SourceDocx }

// CanRead reports whether the path looks like a Word document.
func (r *DocxReader) CanRead(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".docx")
}

// Read walks the document body in order, classifying each element.
// Failures inside a single element are logged and skipped; only an
// unreadable archive fails the whole document.
func (r *DocxReader) Read(_ context.Context, p string) ([]domain.Block, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", p, err)
	}
	defer zr.Close()

	parts := map[string]*zip.File{}
	for _, f := range zr.File {
		parts[f.Name] = f
	}
	docPart, ok := parts["word/document.xml"]
	if !ok {
		return nil, fmt.Errorf("%s: missing word/document.xml", p)
	}

	rels := parseRels(parts["word/_rels/document.xml.rels"])
	numbering := parseNumbering(parts["word/numbering.xml"])

	rc, err := docPart.Open()
	if err != nil {
		return nil, fmt.Errorf("opening document part: %w", err)
	}
	defer rc.Close()

	elems, err := parseBody(xml.NewDecoder(rc))
	if err != nil {
		return nil, fmt.Errorf("parsing document body: %w", err)
	}

	media := func(relID string) []byte {
		target, ok := rels[relID]
		if !ok {
			return nil
		}
		f, ok := parts[path.Clean(path.Join("word", target))]
		if !ok {
			return nil
		}
		mrc, err := f.Open()
		if err != nil {
			logger.Warn("docx: opening media %s: %v", target, err)
			return nil
		}
		defer mrc.Close()
		data, err := io.ReadAll(mrc)
		if err != nil {
			logger.Warn("docx: reading media %s: %v", target, err)
			return nil
		}
		return data
	}

	return assemble(elems, numbering, media), nil
}

// docxElem is one body element, a paragraph or a table.
type docxElem struct {
	para  *docxPara
	table [][]string
}

// docxPara carries a paragraph's text plus the metadata needed to
// classify it.
type docxPara struct {
	text   string
	style  string
	numID  string
	ilvl   string
	images []string
}

var headingStylePattern = regexp.MustCompile(`(?i)^heading\s*([1-9])$`)

// headingLevel maps a paragraph style to a heading level, 0 for body
// styles.
func (p *docxPara) headingLevel() int {
	if strings.EqualFold(p.style, "Title") {
		return 1
	}
	m := headingStylePattern.FindStringSubmatch(p.style)
	if m == nil {
		return 0
	}
	level, _ := strconv.Atoi(m[1])
	if level > 3 {
		level = 3
	}
	return level
}

// parseBody walks the token stream and collects paragraphs and tables in
// order. Table-internal paragraphs are consumed by the table parser and
// never surface here.
func parseBody(dec *xml.Decoder) ([]docxElem, error) {
	var elems []docxElem
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return elems, nil
		}
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "p":
			para, err := parsePara(dec)
			if err != nil {
				logger.Warn("docx: skipping malformed paragraph: %v", err)
				continue
			}
			elems = append(elems, docxElem{para: para})
		case "tbl":
			rows, err := parseTable(dec)
			if err != nil {
				logger.Warn("docx: skipping malformed table: %v", err)
				continue
			}
			if len(rows) > 0 {
				elems = append(elems, docxElem{table: rows})
			}
		}
	}
}

// parsePara consumes one w:p subtree. The decoder is positioned just
// after the opening tag.
func parsePara(dec *xml.Decoder) (*docxPara, error) {
	p := &docxPara{}
	var sb strings.Builder
	inText := false
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "pStyle":
				p.style = attrVal(t, "val")
			case "numId":
				p.numID = attrVal(t, "val")
			case "ilvl":
				p.ilvl = attrVal(t, "val")
			case "blip":
				if id := attrVal(t, "embed"); id != "" {
					p.images = append(p.images, id)
				}
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			depth--
			if t.Name.Local == "t" {
				inText = false
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	p.text = strings.TrimSpace(sb.String())
	return p, nil
}

// parseTable consumes one w:tbl subtree into a cell grid. Nested tables
// are flattened into their containing cell.
func parseTable(dec *xml.Decoder) ([][]string, error) {
	var rows [][]string
	var row []string
	var cell strings.Builder
	inText := false
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "tr":
				row = nil
			case "tc":
				cell.Reset()
			case "t":
				inText = true
			}
		case xml.EndElement:
			depth--
			switch t.Name.Local {
			case "t":
				inText = false
			case "tc":
				row = append(row, strings.TrimSpace(cell.String()))
			case "tr":
				if len(row) > 0 {
					rows = append(rows, row)
				}
			}
		case xml.CharData:
			if inText {
				cell.Write(t)
			}
		}
	}

	cols := 0
	for _, r := range rows {
		if len(r) > cols {
			cols = len(r)
		}
	}
	for i, r := range rows {
		for len(r) < cols {
			r = append(r, "")
		}
		rows[i] = r
	}
	return rows, nil
}

func attrVal(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// docxNumbering maps a numbering id to its level-zero format, which is
// all that is needed to tell bullets from ordered lists.
type docxNumbering map[string]string

// isOrdered reports whether the numbering id renders as a numbered list.
// Unknown ids default to unordered.
func (n docxNumbering) isOrdered(numID string) bool {
	format, ok := n[numID]
	return ok && format != "bullet" && format != "none"
}

func parseRels(part *zip.File) map[string]string {
	rels := map[string]string{}
	if part == nil {
		return rels
	}
	rc, err := part.Open()
	if err != nil {
		logger.Warn("docx: opening relationships: %v", err)
		return rels
	}
	defer rc.Close()

	var doc struct {
		Rels []struct {
			ID     string `xml:"Id,attr"`
			Target string `xml:"Target,attr"`
		} `xml:"Relationship"`
	}
	if err := xml.NewDecoder(rc).Decode(&doc); err != nil {
		logger.Warn("docx: parsing relationships: %v", err)
		return rels
	}
	for _, r := range doc.Rels {
		rels[r.ID] = r.Target
	}
	return rels
}

func parseNumbering(part *zip.File) docxNumbering {
	numbering := docxNumbering{}
	if part == nil {
		return numbering
	}
	rc, err := part.Open()
	if err != nil {
		logger.Warn("docx: opening numbering: %v", err)
		return numbering
	}
	defer rc.Close()

	var doc struct {
		AbstractNums []struct {
			ID     string `xml:"abstractNumId,attr"`
			Levels []struct {
				Ilvl   string `xml:"ilvl,attr"`
				NumFmt struct {
					Val string `xml:"val,attr"`
				} `xml:"numFmt"`
			} `xml:"lvl"`
		} `xml:"abstractNum"`
		Nums []struct {
			ID         string `xml:"numId,attr"`
			AbstractID struct {
				Val string `xml:"val,attr"`
			} `xml:"abstractNumId"`
		} `xml:"num"`
	}
	if err := xml.NewDecoder(rc).Decode(&doc); err != nil {
		logger.Warn("docx: parsing numbering: %v", err)
		return numbering
	}

	abstractFmt := map[string]string{}
	for _, a := range doc.AbstractNums {
		for _, lvl := range a.Levels {
			if lvl.Ilvl == "0" {
				abstractFmt[a.ID] = lvl.NumFmt.Val
			}
		}
	}
	for _, n := range doc.Nums {
		if f, ok := abstractFmt[n.AbstractID.Val]; ok {
			numbering[n.ID] = f
		}
	}
	return numbering
}

// assemble classifies body elements into blocks, grouping consecutive
// paragraphs that share a numbering id into a single list.
func assemble(elems []docxElem, numbering docxNumbering, media func(string) []byte) []domain.Block {
	var blocks []domain.Block

	var listID, listLevel string
	var listStart int
	var listItems []string
	// Word numbers a list across interruptions, so each (numId, ilvl)
	// pair keeps a running item count and a resumed list continues from
	// it rather than restarting at 1.
	counters := map[string]int{}
	flushList := func() {
		if len(listItems) == 0 {
			return
		}
		blocks = append(blocks, domain.ListBlock{
			Position: len(blocks),
			Items:    listItems,
			Ordered:  numbering.isOrdered(listID),
			Start:    listStart,
		})
		listID, listLevel, listItems = "", "", nil
	}

	emitImages := func(p *docxPara) {
		for _, relID := range p.images {
			data := media(relID)
			if data == nil {
				logger.Warn("docx: image %s has no media part", relID)
				continue
			}
			blocks = append(blocks, domain.ImageBlock{
				Position: len(blocks),
				Data:     data,
			})
		}
	}

	for _, elem := range elems {
		if elem.table != nil {
			flushList()
			blocks = append(blocks, domain.TableBlock{
				Position: len(blocks),
				Rows:     elem.table,
				Caption:  tableCaption(elem.table[0]),
			})
			continue
		}

		p := elem.para
		if p.numID != "" && p.text != "" {
			if len(listItems) > 0 && (listID != p.numID || listLevel != p.ilvl) {
				flushList()
			}
			key := p.numID + "\x00" + p.ilvl
			if len(listItems) == 0 {
				listID, listLevel = p.numID, p.ilvl
				listStart = counters[key] + 1
			}
			counters[key]++
			listItems = append(listItems, p.text)
			emitImages(p)
			continue
		}
		flushList()

		if level := p.headingLevel(); level > 0 && p.text != "" {
			blocks = append(blocks, domain.HeadingBlock{
				Position: len(blocks),
				Content:  p.text,
				Level:    level,
			})
		} else if p.text != "" {
			blocks = append(blocks, domain.TextBlock{
				Position: len(blocks),
				Content:  p.text,
			})
		}
		emitImages(p)
	}
	flushList()
	return blocks
}
