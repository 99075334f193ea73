package structurer

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passage-dev/passage/internal/core/domain"
)

// stubReader matches everything; used to verify selection order.
type stubReader struct{ name string }

func (r stubReader) Name() string                  { return r.name }
func (r stubReader) SourceType() domain.SourceType { return domain.SourceText }
func (r stubReader) CanRead(string) bool           { return true }
func (r stubReader) Read(context.Context, string) ([]domain.Block, error) {
	return nil, nil
}

func TestRegistry_FirstMatchWins(t *testing.T) {
	reg := NewRegistry(stubReader{name: "first"}, stubReader{name: "second"})
	reader, err := reg.For("anything.bin")
	require.NoError(t, err)
	assert.Equal(t, "first", reader.Name())
}

func TestRegistry_SelectsByExtension(t *testing.T) {
	reg := NewRegistry(NewMarkdownReader(), NewPlainTextReader())

	reader, err := reg.For("notes.md")
	require.NoError(t, err)
	assert.Equal(t, "markdown", reader.Name())

	reader, err = reg.For("NOTES.TXT")
	require.NoError(t, err)
	assert.Equal(t, "plaintext", reader.Name())
}

func TestRegistry_UnsupportedType(t *testing.T) {
	reg := NewRegistry(NewPlainTextReader())
	_, err := reg.For("archive.tar.gz")
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestPlainTextReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	content := "First paragraph\nstill first.\n\nSecond paragraph.\n\n\n\nThird.\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	blocks, err := NewPlainTextReader().Read(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, blocks, 3)

	first, ok := blocks[0].(domain.TextBlock)
	require.True(t, ok)
	assert.Equal(t, "First paragraph\nstill first.", first.Content)
	assert.Equal(t, 0, first.Order())
	assert.Equal(t, 2, blocks[2].Order())
}

func TestMarkdownReader(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "chart.png")
	require.NoError(t, os.WriteFile(imgPath, []byte("fake-png-bytes"), 0o644))

	md := `# Annual Report

Revenue grew in **all** segments.

![quarterly chart](chart.png)

## Results

- alpha
- beta

1. first
2. second

| Name | Price |
| --- | --- |
| AAA | 10.5 |

` + "```\ncode sample\n```\n"
	path := filepath.Join(dir, "report.md")
	require.NoError(t, os.WriteFile(path, []byte(md), 0o644))

	blocks, err := NewMarkdownReader().Read(context.Background(), path)
	require.NoError(t, err)

	var kinds []domain.BlockKind
	for _, b := range blocks {
		kinds = append(kinds, b.Kind())
	}
	assert.Equal(t, []domain.BlockKind{
		domain.BlockHeading,
		domain.BlockText,
		domain.BlockImage,
		domain.BlockHeading,
		domain.BlockList,
		domain.BlockList,
		domain.BlockTable,
		domain.BlockText,
	}, kinds)

	h1 := blocks[0].(domain.HeadingBlock)
	assert.Equal(t, "Annual Report", h1.Content)
	assert.Equal(t, 1, h1.Level)

	txt := blocks[1].(domain.TextBlock)
	assert.Equal(t, "Revenue grew in all segments.", txt.Content)

	img := blocks[2].(domain.ImageBlock)
	assert.Equal(t, "quarterly chart", img.AltText)
	assert.Equal(t, imgPath, img.ResolvedPath)
	assert.Equal(t, []byte("fake-png-bytes"), img.Data)

	bullets := blocks[4].(domain.ListBlock)
	assert.False(t, bullets.Ordered)
	assert.Equal(t, []string{"alpha", "beta"}, bullets.Items)

	numbered := blocks[5].(domain.ListBlock)
	assert.True(t, numbered.Ordered)
	assert.Equal(t, []string{"first", "second"}, numbered.Items)

	tbl := blocks[6].(domain.TableBlock)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, []string{"Name", "Price"}, tbl.Rows[0])
	assert.Equal(t, []string{"AAA", "10.5"}, tbl.Rows[1])
	assert.Equal(t, "Name | Price", tbl.Caption)

	code := blocks[7].(domain.TextBlock)
	assert.Equal(t, "code sample", code.Content)
}

func TestMarkdownReader_MissingImageStillEmitsBlock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.md")
	require.NoError(t, os.WriteFile(path, []byte("![gone](missing.png)\n"), 0o644))

	blocks, err := NewMarkdownReader().Read(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	img := blocks[0].(domain.ImageBlock)
	assert.Equal(t, "gone", img.AltText)
	assert.Empty(t, img.Data)
	assert.Empty(t, img.ResolvedPath)
}

const docxDocumentXML = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"
            xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"
            xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<w:body>
<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Annual Report</w:t></w:r></w:p>
<w:p><w:r><w:t>Revenue grew </w:t></w:r><w:r><w:t>across all segments.</w:t></w:r></w:p>
<w:p><w:pPr><w:numPr><w:ilvl w:val="0"/><w:numId w:val="1"/></w:numPr></w:pPr><w:r><w:t>first item</w:t></w:r></w:p>
<w:p><w:pPr><w:numPr><w:ilvl w:val="0"/><w:numId w:val="1"/></w:numPr></w:pPr><w:r><w:t>second item</w:t></w:r></w:p>
<w:tbl>
<w:tr><w:tc><w:p><w:r><w:t>Name</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Price</w:t></w:r></w:p></w:tc></w:tr>
<w:tr><w:tc><w:p><w:r><w:t>AAA</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>10.5</w:t></w:r></w:p></w:tc></w:tr>
</w:tbl>
<w:p><w:r><w:drawing><a:blip r:embed="rId5"/></w:drawing></w:r></w:p>
</w:body>
</w:document>`

const docxRelsXML = `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId5" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/image1.png"/>
</Relationships>`

const docxNumberingXML = `<?xml version="1.0" encoding="UTF-8"?>
<w:numbering xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:abstractNum w:abstractNumId="0"><w:lvl w:ilvl="0"><w:numFmt w:val="decimal"/></w:lvl></w:abstractNum>
<w:num w:numId="1"><w:abstractNumId w:val="0"/></w:num>
</w:numbering>`

func writeDocx(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	parts := map[string]string{
		"word/document.xml":            docxDocumentXML,
		"word/_rels/document.xml.rels": docxRelsXML,
		"word/numbering.xml":           docxNumberingXML,
		"word/media/image1.png":        "fake-png-bytes",
	}
	for name, content := range parts {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}

func TestDocxReader(t *testing.T) {
	blocks, err := NewDocxReader().Read(context.Background(), writeDocx(t))
	require.NoError(t, err)

	var kinds []domain.BlockKind
	for _, b := range blocks {
		kinds = append(kinds, b.Kind())
	}
	assert.Equal(t, []domain.BlockKind{
		domain.BlockHeading,
		domain.BlockText,
		domain.BlockList,
		domain.BlockTable,
		domain.BlockImage,
	}, kinds)

	h := blocks[0].(domain.HeadingBlock)
	assert.Equal(t, "Annual Report", h.Content)
	assert.Equal(t, 1, h.Level)

	txt := blocks[1].(domain.TextBlock)
	assert.Equal(t, "Revenue grew across all segments.", txt.Content)

	list := blocks[2].(domain.ListBlock)
	assert.True(t, list.Ordered)
	assert.Equal(t, []string{"first item", "second item"}, list.Items)

	tbl := blocks[3].(domain.TableBlock)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, []string{"Name", "Price"}, tbl.Rows[0])
	assert.Equal(t, "Name | Price", tbl.Caption)

	img := blocks[4].(domain.ImageBlock)
	assert.Equal(t, []byte("fake-png-bytes"), img.Data)
}

func TestAssemble_ResumedOrderedListContinuesNumbering(t *testing.T) {
	elems := []docxElem{
		{para: &docxPara{text: "first item", numID: "5", ilvl: "0"}},
		{para: &docxPara{text: "See the note below."}},
		{para: &docxPara{text: "second item", numID: "5", ilvl: "0"}},
	}
	numbering := docxNumbering{"5": "decimal"}

	blocks := assemble(elems, numbering, func(string) []byte { return nil })
	require.Len(t, blocks, 3)

	first, ok := blocks[0].(domain.ListBlock)
	require.True(t, ok)
	assert.Equal(t, "1. first item", first.Text())

	resumed, ok := blocks[2].(domain.ListBlock)
	require.True(t, ok)
	assert.True(t, resumed.Ordered)
	assert.Equal(t, 2, resumed.Start)
	assert.Equal(t, "2. second item", resumed.Text())
}

func TestAssemble_DistinctNumberingIDsRestartAtOne(t *testing.T) {
	elems := []docxElem{
		{para: &docxPara{text: "alpha", numID: "5", ilvl: "0"}},
		{para: &docxPara{text: "other", numID: "7", ilvl: "0"}},
	}
	numbering := docxNumbering{"5": "decimal", "7": "decimal"}

	blocks := assemble(elems, numbering, func(string) []byte { return nil })
	require.Len(t, blocks, 2)
	assert.Equal(t, "1. alpha", blocks[0].(domain.ListBlock).Text())
	assert.Equal(t, "1. other", blocks[1].(domain.ListBlock).Text())
}

func TestDocxReader_MissingDocumentPart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = NewDocxReader().Read(context.Background(), path)
	assert.Error(t, err)
}

func TestPDFReader_CanRead(t *testing.T) {
	r := NewPDFReader()
	assert.True(t, r.CanRead("paper.pdf"))
	assert.True(t, r.CanRead("PAPER.PDF"))
	assert.False(t, r.CanRead("paper.txt"))
}
