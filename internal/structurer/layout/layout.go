// Package layout reconstructs document structure from position-only
// text, as extracted from PDF pages. There is no ground truth for what
// "looks like a table" or "looks like a heading" in a layout-only
// format; everything here is a tunable best-effort heuristic.
package layout

import (
	"math"
	"sort"
	"strings"
)

// Word is a positioned token extracted from a page.
type Word struct {
	// Text is the token content.
	Text string

	// X and Y are page coordinates. Y grows upward in PDF space.
	X, Y float64

	// Size is the font size.
	Size float64
}

// Line is a row of words sharing a vertical position.
type Line struct {
	// Words are the tokens, left to right.
	Words []string

	// FontSize is the dominant font size on the line.
	FontSize float64

	// Y is the rounded vertical position.
	Y float64

	// Gaps marks, for each word after the first, whether a wide gap
	// separates it from the previous word. Wide gaps become cell
	// boundaries during table detection.
	Gaps []bool
}

// Text renders the line with single spaces between words.
func (l Line) Text() string {
	return strings.Join(l.Words, " ")
}

// gapFactor times the font size is the horizontal distance treated as a
// cell boundary rather than word spacing.
const gapFactor = 1.8

// LinesFromWords groups words into lines by rounded vertical position,
// ordering lines top-to-bottom and words left-to-right.
func LinesFromWords(words []Word) []Line {
	if len(words) == 0 {
		return nil
	}

	byRow := map[float64][]Word{}
	for _, w := range words {
		if strings.TrimSpace(w.Text) == "" {
			continue
		}
		y := math.Round(w.Y)
		byRow[y] = append(byRow[y], w)
	}

	ys := make([]float64, 0, len(byRow))
	for y := range byRow {
		ys = append(ys, y)
	}
	// PDF Y grows upward; top of page first.
	sort.Sort(sort.Reverse(sort.Float64Slice(ys)))

	lines := make([]Line, 0, len(ys))
	for _, y := range ys {
		row := byRow[y]
		sort.Slice(row, func(i, j int) bool { return row[i].X < row[j].X })

		line := Line{Y: y}
		var sizes []float64
		var prevEnd float64
		for i, w := range row {
			line.Words = append(line.Words, w.Text)
			sizes = append(sizes, w.Size)
			if i > 0 {
				size := w.Size
				if size <= 0 {
					size = 10
				}
				line.Gaps = append(line.Gaps, w.X-prevEnd > gapFactor*size)
			}
			// Approximate glyph advance from the font size; the
			// extractor does not report word widths.
			prevEnd = w.X + float64(len(w.Text))*w.Size*0.5
		}
		line.FontSize = dominantSize(sizes)
		lines = append(lines, line)
	}
	return lines
}

func dominantSize(sizes []float64) float64 {
	if len(sizes) == 0 {
		return 0
	}
	counts := map[float64]int{}
	for _, s := range sizes {
		counts[math.Round(s*2)/2]++
	}
	best, bestN := 0.0, 0
	for s, n := range counts {
		if n > bestN || (n == bestN && s > best) {
			best, bestN = s, n
		}
	}
	return best
}
