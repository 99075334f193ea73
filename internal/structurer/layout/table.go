package layout

import (
	"regexp"
	"strings"
	"unicode"
)

// TableOptions tunes the candidate-row gating and run grouping. The
// defaults are empirically chosen, not principled; callers running on
// unusual corpora should expect to adjust them.
type TableOptions struct {
	// MinCells is the minimum cell count for a candidate row.
	MinCells int

	// MaxAvgCellLen rejects rows whose average cell length suggests
	// prose rather than tabular data.
	MaxAvgCellLen int

	// DigitlessMinCells is the cell count at which a row qualifies even
	// without containing a digit.
	DigitlessMinCells int

	// MinRun is the minimum consecutive candidate rows forming a table.
	MinRun int

	// MaxCaptionCells and MaxCaptionCellLen gate the first-row caption
	// heuristic.
	MaxCaptionCells   int
	MaxCaptionCellLen int
}

// DefaultTableOptions returns the tuned defaults.
func DefaultTableOptions() TableOptions {
	return TableOptions{
		MinCells:          2,
		MaxAvgCellLen:     60,
		DigitlessMinCells: 3,
		MinRun:            2,
		MaxCaptionCells:   8,
		MaxCaptionCellLen: 30,
	}
}

// Table is a reconstructed table region within a line sequence.
type Table struct {
	// Start and End are the inclusive line index range consumed.
	Start, End int

	// Rows is the rectangular cell grid.
	Rows [][]string

	// Caption summarises the table when the first row looks like a
	// header; empty otherwise.
	Caption string
}

var cellBoundary = regexp.MustCompile(`\t| {2,}`)

// Cells splits a rendered line into cells at tab or multi-space
// boundaries.
func Cells(line string) []string {
	parts := cellBoundary.Split(strings.TrimSpace(line), -1)
	cells := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			cells = append(cells, p)
		}
	}
	return cells
}

// LineCells splits a positioned line into cells at its wide gaps.
func LineCells(line Line) []string {
	if len(line.Words) == 0 {
		return nil
	}
	var cells []string
	cur := line.Words[0]
	for i := 1; i < len(line.Words); i++ {
		if i-1 < len(line.Gaps) && line.Gaps[i-1] {
			cells = append(cells, cur)
			cur = line.Words[i]
		} else {
			cur += " " + line.Words[i]
		}
	}
	return append(cells, cur)
}

// isCandidate applies the row gate: enough cells, cell lengths typical
// of data not prose, and either a digit somewhere or enough columns.
func isCandidate(cells []string, opts TableOptions) bool {
	if len(cells) < opts.MinCells {
		return false
	}
	total := 0
	digit := false
	for _, c := range cells {
		total += len([]rune(c))
		if !digit && strings.ContainsFunc(c, unicode.IsDigit) {
			digit = true
		}
	}
	if total/len(cells) > opts.MaxAvgCellLen {
		return false
	}
	return digit || len(cells) >= opts.DigitlessMinCells
}

// DetectTables finds table regions in rows of pre-split cells, one entry
// per source line. A run of MinRun or more candidate rows forms a table;
// a single non-candidate row inside a run is tolerated as a continuation
// row and absorbed into the table.
func DetectTables(rows [][]string, opts TableOptions) []Table {
	var tables []Table

	i := 0
	for i < len(rows) {
		if !isCandidate(rows[i], opts) {
			i++
			continue
		}

		start := i
		end := i
		skipped := -1
		for j := i + 1; j < len(rows); j++ {
			if isCandidate(rows[j], opts) {
				end = j
				continue
			}
			if skipped < 0 && len(rows[j]) > 0 && j+1 < len(rows) && isCandidate(rows[j+1], opts) {
				// One continuation row is tolerated.
				skipped = j
				continue
			}
			break
		}

		if end-start+1 >= opts.MinRun {
			var raw [][]string
			for k := start; k <= end; k++ {
				if len(rows[k]) > 0 {
					raw = append(raw, rows[k])
				}
			}
			grid := normalise(raw)
			tables = append(tables, Table{
				Start:   start,
				End:     end,
				Rows:    grid,
				Caption: caption(grid, opts),
			})
		}
		i = end + 1
	}
	return tables
}

// normalise makes the grid rectangular. The column count is the
// statistical mode across rows; over-wide rows are collapsed by
// repeatedly merging the adjacent cell pair with the smallest combined
// length, and narrow rows are right-padded with empty cells.
func normalise(rows [][]string) [][]string {
	cols := modeColumnCount(rows)
	out := make([][]string, len(rows))
	for i, row := range rows {
		r := append([]string(nil), row...)
		for len(r) > cols {
			r = mergeShortestAdjacent(r)
		}
		for len(r) < cols {
			r = append(r, "")
		}
		out[i] = r
	}
	return out
}

func modeColumnCount(rows [][]string) int {
	counts := map[int]int{}
	for _, row := range rows {
		counts[len(row)]++
	}
	best, bestN := 0, 0
	for c, n := range counts {
		if n > bestN || (n == bestN && c > best) {
			best, bestN = c, n
		}
	}
	return best
}

func mergeShortestAdjacent(row []string) []string {
	bestIdx := 0
	bestLen := -1
	for i := 0; i+1 < len(row); i++ {
		combined := len([]rune(row[i])) + len([]rune(row[i+1]))
		if bestLen < 0 || combined < bestLen {
			bestIdx, bestLen = i, combined
		}
	}
	merged := row[bestIdx] + " " + row[bestIdx+1]
	out := make([]string, 0, len(row)-1)
	out = append(out, row[:bestIdx]...)
	out = append(out, merged)
	out = append(out, row[bestIdx+2:]...)
	return out
}

// caption joins the first row's cells when it plausibly is a header:
// between MinCells and MaxCaptionCells short non-empty cells. This is a
// searchability aid and may be wrong for headerless tables.
func caption(rows [][]string, opts TableOptions) string {
	if len(rows) == 0 {
		return ""
	}
	var nonEmpty []string
	for _, c := range rows[0] {
		if c == "" {
			continue
		}
		if len([]rune(c)) > opts.MaxCaptionCellLen {
			return ""
		}
		nonEmpty = append(nonEmpty, c)
	}
	if len(nonEmpty) < 2 || len(nonEmpty) > opts.MaxCaptionCells {
		return ""
	}
	return strings.Join(nonEmpty, " | ")
}
