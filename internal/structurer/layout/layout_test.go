package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinesFromWords_GroupsAndOrders(t *testing.T) {
	words := []Word{
		{Text: "world", X: 60, Y: 700, Size: 11},
		{Text: "Hello", X: 20, Y: 700.2, Size: 11},
		{Text: "below", X: 20, Y: 680, Size: 11},
	}
	lines := LinesFromWords(words)
	require.Len(t, lines, 2)
	assert.Equal(t, "Hello world", lines[0].Text())
	assert.Equal(t, "below", lines[1].Text())
	assert.Equal(t, 11.0, lines[0].FontSize)
}

func TestLinesFromWords_WideGapFlag(t *testing.T) {
	// "Name" ends around x=42; the next word starts far enough away that
	// the distance exceeds gapFactor times the font size.
	words := []Word{
		{Text: "Name", X: 20, Y: 500, Size: 11},
		{Text: "Price", X: 120, Y: 500, Size: 11},
		{Text: "tag", X: 152, Y: 500, Size: 11},
	}
	lines := LinesFromWords(words)
	require.Len(t, lines, 1)
	require.Len(t, lines[0].Gaps, 2)
	assert.True(t, lines[0].Gaps[0], "distant word starts a new cell")
	assert.False(t, lines[0].Gaps[1], "adjacent word continues the cell")
}

func TestLinesFromWords_SkipsBlankWords(t *testing.T) {
	lines := LinesFromWords([]Word{
		{Text: "  ", X: 10, Y: 100, Size: 10},
		{Text: "kept", X: 30, Y: 100, Size: 10},
	})
	require.Len(t, lines, 1)
	assert.Equal(t, "kept", lines[0].Text())
}

func TestComputeStats(t *testing.T) {
	stats := ComputeStats([]Line{
		{FontSize: 10}, {FontSize: 10}, {FontSize: 16},
	})
	assert.InDelta(t, 12.0, stats.AvgFontSize, 1e-9)
	assert.Equal(t, 1.15, stats.HeadingRatio)
}

func TestHeadingLevel_NumberingBeatsFontSize(t *testing.T) {
	stats := DocumentStats{AvgFontSize: 12, HeadingRatio: 1.15}

	tests := []struct {
		name  string
		line  Line
		level int
		ok    bool
	}{
		{"chapter cn", Line{Words: []string{"第一章", "引言"}, FontSize: 12}, 1, true},
		{"chapter en", Line{Words: []string{"Chapter", "3", "Results"}, FontSize: 12}, 1, true},
		{"decimal one level", Line{Words: []string{"1.", "Overview"}, FontSize: 12}, 1, true},
		{"decimal two levels", Line{Words: []string{"2.3", "Method"}, FontSize: 12}, 2, true},
		{"decimal capped", Line{Words: []string{"1.2.3.4", "Deep"}, FontSize: 12}, 3, true},
		{"cjk enum", Line{Words: []string{"（一）背景"}, FontSize: 12}, 3, true},
		{"numbered despite small font", Line{Words: []string{"1.2", "Scope"}, FontSize: 9}, 2, true},
		{"body text", Line{Words: []string{"Plain", "sentence", "here."}, FontSize: 12}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, ok := HeadingLevel(tt.line, stats)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.level, level)
		})
	}
}

func TestHeadingLevel_FontRatio(t *testing.T) {
	stats := DocumentStats{AvgFontSize: 10, HeadingRatio: 1.15}

	level, ok := HeadingLevel(Line{Words: []string{"Big", "Title"}, FontSize: 17}, stats)
	require.True(t, ok)
	assert.Equal(t, 1, level)

	level, ok = HeadingLevel(Line{Words: []string{"Section", "Title"}, FontSize: 13.5}, stats)
	require.True(t, ok)
	assert.Equal(t, 2, level)

	level, ok = HeadingLevel(Line{Words: []string{"Minor", "Title"}, FontSize: 11.6}, stats)
	require.True(t, ok)
	assert.Equal(t, 3, level)

	// Long lines never promote on font size alone.
	long := Line{Words: []string{"This", "is", "a", "very", "long", "large", "print", "paragraph", "that", "keeps", "going", "and", "going"}, FontSize: 17}
	_, ok = HeadingLevel(long, stats)
	assert.False(t, ok)
}

func TestCells(t *testing.T) {
	assert.Equal(t, []string{"Name", "Price", "Change"}, Cells("Name   Price   Change"))
	assert.Equal(t, []string{"a", "b"}, Cells("a\tb"))
	assert.Empty(t, Cells("   "))
	assert.Equal(t, []string{"one cell only"}, Cells("one cell only"))
}

func TestLineCells(t *testing.T) {
	line := Line{
		Words: []string{"AAA", "Corp", "10.5", "+2%"},
		Gaps:  []bool{false, true, true},
	}
	assert.Equal(t, []string{"AAA Corp", "10.5", "+2%"}, LineCells(line))
	assert.Nil(t, LineCells(Line{}))
}

func TestDetectTables_PriceTable(t *testing.T) {
	rows := [][]string{
		Cells("The closing figures for the day are listed in the table below."),
		Cells("Name   Price   Change"),
		Cells("AAA   10.5   +2%"),
		Cells("BBB   20.1   -1%"),
		Cells("All figures are quoted in local currency and rounded."),
	}

	tables := DetectTables(rows, DefaultTableOptions())
	require.Len(t, tables, 1)

	tbl := tables[0]
	assert.Equal(t, 1, tbl.Start)
	assert.Equal(t, 3, tbl.End)
	require.Len(t, tbl.Rows, 3)
	assert.Equal(t, []string{"Name", "Price", "Change"}, tbl.Rows[0])
	assert.Equal(t, []string{"AAA", "10.5", "+2%"}, tbl.Rows[1])
	assert.Equal(t, []string{"BBB", "20.1", "-1%"}, tbl.Rows[2])
	assert.Equal(t, "Name | Price | Change", tbl.Caption)
}

func TestDetectTables_SingleRowIgnored(t *testing.T) {
	rows := [][]string{
		Cells("Some prose paragraph without any tabular structure at all."),
		Cells("AAA   10.5   +2%"),
		Cells("More prose that follows the lone candidate row directly."),
	}
	assert.Empty(t, DetectTables(rows, DefaultTableOptions()))
}

func TestDetectTables_ToleratesOneContinuationRow(t *testing.T) {
	rows := [][]string{
		Cells("Name   Price   Change"),
		Cells("AAA   10.5   +2%"),
		Cells("continued"),
		Cells("BBB   20.1   -1%"),
	}
	tables := DetectTables(rows, DefaultTableOptions())
	require.Len(t, tables, 1)
	assert.Equal(t, 0, tables[0].Start)
	assert.Equal(t, 3, tables[0].End)
}

func TestDetectTables_ProseRejected(t *testing.T) {
	long := "This sentence is far too long to plausibly be a table cell because it rambles on well past the average cell length threshold that gates candidates"
	rows := [][]string{
		{long, long},
		{long, long},
	}
	assert.Empty(t, DetectTables(rows, DefaultTableOptions()))
}

func TestNormalise_CollapsesAndPads(t *testing.T) {
	rows := [][]string{
		{"Name", "Price", "Change"},
		{"AAA", "Corp", "10.5", "+2%"},
		{"BBB", "20.1"},
		{"CCC", "30.0", "-3%"},
	}
	grid := normalise(rows)
	for _, row := range grid {
		assert.Len(t, row, 3)
	}
	// The over-wide row merges its shortest adjacent pair.
	assert.Equal(t, []string{"AAA Corp", "10.5", "+2%"}, grid[1])
	// The narrow row is right-padded.
	assert.Equal(t, []string{"BBB", "20.1", ""}, grid[2])
}

func TestCaption_RejectsNonHeaderRows(t *testing.T) {
	opts := DefaultTableOptions()
	assert.Equal(t, "", caption(nil, opts))
	assert.Equal(t, "", caption([][]string{{"only"}}, opts))

	long := make([]string, 1)
	long[0] = "an implausibly verbose header cell that overruns the limit"
	assert.Equal(t, "", caption([][]string{append(long, "x")}, opts))
}
