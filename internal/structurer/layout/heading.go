package layout

import (
	"regexp"
	"strings"
)

// Numbering patterns that identify a heading regardless of font size.
// When both signals are present, numbering wins: font metrics lie more
// often than section numbers do.
var (
	chapterPattern = regexp.MustCompile(`^(第[一二三四五六七八九十百0-9]+[章节篇部]|Chapter\s+\d+)`)
	decimalPattern = regexp.MustCompile(`^\d+(\.\d+)*[.\s)）]`)
	cjkEnumPattern = regexp.MustCompile(`^[(（][一二三四五六七八九十0-9]+[)）]`)
)

// DocumentStats holds document-wide font statistics, computed in a first
// pass over the opening pages before any block is classified. It is
// immutable: classification is a pure function of (line, stats).
type DocumentStats struct {
	// AvgFontSize is the mean body font size.
	AvgFontSize float64

	// HeadingRatio is the size multiple over the average that marks a
	// heading. Tunable; documents vary too much for a fixed point size.
	HeadingRatio float64
}

// ComputeStats derives font statistics from the sampled lines, typically
// the first few pages of the document.
func ComputeStats(lines []Line) DocumentStats {
	stats := DocumentStats{HeadingRatio: 1.15}
	var sum float64
	var n int
	for _, line := range lines {
		if line.FontSize > 0 {
			sum += line.FontSize
			n++
		}
	}
	if n > 0 {
		stats.AvgFontSize = sum / float64(n)
	}
	return stats
}

// HeadingLevel classifies a line as a heading. Numbering patterns take
// priority over font size; font size alone only promotes short lines so
// large-print paragraphs do not become headings.
func HeadingLevel(line Line, stats DocumentStats) (int, bool) {
	text := line.Text()
	if text == "" {
		return 0, false
	}

	switch {
	case chapterPattern.MatchString(text):
		return 1, true
	case decimalPattern.MatchString(text):
		// "1" -> level 1, "1.2" -> 2, "1.2.3" -> 3.
		prefix := text
		if i := strings.IndexAny(prefix, " )）"); i >= 0 {
			prefix = prefix[:i]
		}
		prefix = strings.TrimRight(prefix, ".")
		level := strings.Count(prefix, ".") + 1
		if level > 3 {
			level = 3
		}
		return level, true
	case cjkEnumPattern.MatchString(text):
		return 3, true
	}

	if stats.AvgFontSize <= 0 || line.FontSize <= 0 || len(text) > 60 {
		return 0, false
	}
	ratio := line.FontSize / stats.AvgFontSize
	switch {
	case ratio >= 1.6:
		return 1, true
	case ratio >= 1.3:
		return 2, true
	case ratio >= stats.HeadingRatio:
		return 3, true
	}
	return 0, false
}
