package mapper

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passage-dev/passage/internal/chunker"
	"github.com/passage-dev/passage/internal/core/domain"
)

func newMapper(t *testing.T) *Mapper {
	t.Helper()
	c, err := chunker.New(chunker.WithMaxTokens(50), chunker.WithOverlapTokens(5))
	require.NoError(t, err)
	return New(c)
}

func TestMap_KeysAreIdempotent(t *testing.T) {
	m := newMapper(t)
	block := domain.TextBlock{Position: 0, Content: "Quarterly revenue grew by twelve percent."}

	first, _, _ := m.Map(block, "file:///report.md", 7, "Results", domain.SourceMarkdown, nil)
	second, _, _ := m.Map(block, "file:///report.md", 7, "Results", domain.SourceMarkdown, nil)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Key, second[i].Key)
	}
}

func TestMap_KeyChangesWithIdentity(t *testing.T) {
	m := newMapper(t)
	block := domain.TextBlock{Content: "Same content."}

	a, _, _ := m.Map(block, "file:///a.md", 0, "", domain.SourceMarkdown, nil)
	b, _, _ := m.Map(block, "file:///b.md", 0, "", domain.SourceMarkdown, nil)
	c, _, _ := m.Map(block, "file:///a.md", 1, "", domain.SourceMarkdown, nil)

	require.Len(t, a, 1)
	assert.NotEqual(t, a[0].Key, b[0].Key, "different document must change the key")
	assert.NotEqual(t, a[0].Key, c[0].Key, "different order must change the key")
}

func TestMap_HeadingUpdatesSection(t *testing.T) {
	m := newMapper(t)

	paras, next, section := m.Map(
		domain.HeadingBlock{Content: "Risk Factors", Level: 2},
		"doc", 0, "Introduction", domain.SourceDocx, nil)

	require.Len(t, paras, 1)
	assert.Equal(t, 1, next)
	assert.Equal(t, "Risk Factors", section)
	// The heading paragraph itself still belongs to the previous section.
	assert.Equal(t, "Introduction", paras[0].Section)
	assert.Equal(t, domain.BlockHeading, paras[0].BlockKind)
}

func TestMap_DeepHeadingKeepsSection(t *testing.T) {
	m := newMapper(t)
	_, _, section := m.Map(
		domain.HeadingBlock{Content: "Minor note", Level: 4},
		"doc", 0, "Results", domain.SourceDocx, nil)
	assert.Equal(t, "Results", section)
}

func TestMap_TableYieldsOneParagraph(t *testing.T) {
	m := newMapper(t)
	table := domain.TableBlock{
		Rows:    [][]string{{"Name", "Price"}, {"AAA", "10.5"}},
		Caption: "Name | Price",
	}
	paras, next, _ := m.Map(table, "doc", 3, "Quotes", domain.SourcePDF, nil)

	require.Len(t, paras, 1)
	assert.Equal(t, 4, next)
	assert.Equal(t, domain.BlockTable, paras[0].BlockKind)
	assert.True(t, strings.HasPrefix(paras[0].Text, "Name | Price\n"))
	assert.Contains(t, paras[0].Text, "| AAA | 10.5 |")
}

func TestMap_ImageUsesCaptionAndURI(t *testing.T) {
	m := newMapper(t)
	img := domain.ImageBlock{AltText: "chart", Data: []byte{1, 2, 3}}

	paras, _, _ := m.Map(img, "doc", 0, "", domain.SourcePDF, &ImageMeta{
		Caption: "Revenue trend chart",
		URI:     "images/abc.png",
	})

	require.Len(t, paras, 1)
	assert.Equal(t, "Revenue trend chart", paras[0].Text)
	assert.Equal(t, "images/abc.png", paras[0].ImageURI)
	assert.Equal(t, domain.BlockImage, paras[0].BlockKind)
}

func TestMap_TextBlockExpandsToChunks(t *testing.T) {
	m := newMapper(t)
	long := strings.Repeat("A fairly ordinary sentence about markets. ", 40)

	paras, next, _ := m.Map(domain.TextBlock{Content: long}, "doc", 10, "S", domain.SourceText, nil)

	require.Greater(t, len(paras), 1)
	assert.Equal(t, 10+len(paras), next)
	for i, p := range paras {
		assert.Equal(t, 10+i, p.Order)
		assert.Equal(t, "S", p.Section)
		assert.Equal(t, domain.BlockText, p.BlockKind)
	}
}
