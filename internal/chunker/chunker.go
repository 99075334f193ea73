// Package chunker splits cleaned text into token-budgeted, overlapping
// paragraphs along semantic boundaries.
package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/passage-dev/passage/internal/core/domain"
)

// Default budgets, in approximate tokens.
const (
	DefaultMaxTokens     = 400
	DefaultOverlapTokens = 40
	DefaultMaxLineTokens = 80
)

// separators is the split priority list for the line phase. Earlier
// entries are semantically stronger boundaries. When none occurs in an
// over-long segment, the segment is cut at its midpoint.
var separators = []string{
	"\n",
	"。", "！", "？", ".", "!", "?",
	"；", ";", "：", ":",
	"，", ",", "、",
	" ",
}

// ApproxTokens approximates the token count of s as len(s)/4, rounded up.
// This deliberately avoids a tokenizer dependency; every budget constant
// in this package and its callers is calibrated against this
// approximation and would need re-tuning if a real tokenizer replaced it.
func ApproxTokens(s string) int {
	return (len(s) + 3) / 4
}

// Chunker splits text into paragraphs within a token budget.
type Chunker struct {
	maxTokens     int
	overlapTokens int
	maxLineTokens int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithMaxTokens sets the per-paragraph token budget.
func WithMaxTokens(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithOverlapTokens sets the overlap budget between adjacent paragraphs.
func WithOverlapTokens(n int) Option {
	return func(c *Chunker) {
		if n >= 0 {
			c.overlapTokens = n
		}
	}
}

// WithMaxLineTokens sets the per-line budget for the line phase.
func WithMaxLineTokens(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.maxLineTokens = n
		}
	}
}

// New creates a chunker.
//
// The overlap budget must be smaller than the paragraph budget; violating
// that is a programming error and fails fast rather than truncating
// silently.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		maxTokens:     DefaultMaxTokens,
		overlapTokens: DefaultOverlapTokens,
		maxLineTokens: DefaultMaxLineTokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlapTokens >= c.maxTokens {
		return nil, fmt.Errorf("%w: overlap tokens (%d) must be less than max tokens (%d)",
			domain.ErrInvalidInput, c.overlapTokens, c.maxTokens)
	}
	return c, nil
}

// MaxTokens returns the per-paragraph budget.
func (c *Chunker) MaxTokens() int { return c.maxTokens }

// Chunk splits text into paragraphs. Every returned chunk satisfies
// ApproxTokens(chunk) <= the configured max; each non-final chunk carries
// an overlap suffix drawn from the start of the following chunk, within
// the overlap budget.
func (c *Chunker) Chunk(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	// Reserve room for the overlap suffix and one joiner so the final
	// paragraphs stay within maxTokens after overlap is appended.
	contentBudget := c.maxTokens
	if c.overlapTokens > 0 {
		contentBudget = c.maxTokens - c.overlapTokens - 1
	}

	lineBudget := c.maxLineTokens
	if lineBudget > contentBudget {
		lineBudget = contentBudget
	}

	lines := splitSegment(text, lineBudget, 0)
	paragraphs := c.accumulate(lines, contentBudget)
	return c.addOverlap(paragraphs)
}

// accumulate greedily packs lines into paragraphs within the budget,
// merging an undersized final paragraph into its predecessor when the
// combined size still fits.
func (c *Chunker) accumulate(lines []string, budget int) []string {
	var paragraphs []string
	var cur []string
	curTokens := 0

	flush := func() {
		if len(cur) > 0 {
			paragraphs = append(paragraphs, strings.Join(cur, "\n"))
			cur = nil
			curTokens = 0
		}
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cost := ApproxTokens(line)
		if len(cur) > 0 {
			cost++ // joiner
		}
		if len(cur) > 0 && curTokens+cost > budget {
			flush()
			cost = ApproxTokens(line)
		}
		cur = append(cur, line)
		curTokens += cost
	}
	flush()

	// Merge a small tail into the previous paragraph.
	if n := len(paragraphs); n >= 2 {
		last := paragraphs[n-1]
		prev := paragraphs[n-2]
		if ApproxTokens(last) < c.maxTokens/4 &&
			ApproxTokens(prev)+ApproxTokens(last)+1 <= budget {
			paragraphs[n-2] = prev + "\n" + last
			paragraphs = paragraphs[:n-1]
		}
	}

	return paragraphs
}

// addOverlap appends to each non-final paragraph a prefix of the next
// paragraph, re-split to the overlap budget. Overlap content always
// originates from the following unit.
func (c *Chunker) addOverlap(paragraphs []string) []string {
	if c.overlapTokens <= 0 || len(paragraphs) < 2 {
		return paragraphs
	}
	out := make([]string, len(paragraphs))
	copy(out, paragraphs)
	for i := 0; i < len(paragraphs)-1; i++ {
		pieces := splitSegment(paragraphs[i+1], c.overlapTokens, 0)
		if len(pieces) == 0 {
			continue
		}
		prefix := strings.TrimSpace(pieces[0])
		if prefix == "" {
			continue
		}
		out[i] = out[i] + "\n" + prefix
	}
	return out
}

// splitSegment recursively splits seg until every piece fits the budget.
// At each separator level the occurrence closest to the segment midpoint
// is chosen, preferring balanced splits over greedy left-to-right ones.
// The separator stays attached to the left half.
func splitSegment(seg string, budget int, sepIdx int) []string {
	if budget < 1 {
		budget = 1
	}
	if ApproxTokens(seg) <= budget {
		return []string{seg}
	}

	for ; sepIdx < len(separators); sepIdx++ {
		cut, ok := nearestMidpointCut(seg, separators[sepIdx])
		if !ok {
			continue
		}
		left := splitSegment(seg[:cut], budget, sepIdx)
		right := splitSegment(seg[cut:], budget, sepIdx)
		return append(left, right...)
	}

	// No separator present: split anywhere, at a rune-safe midpoint.
	cut := len(seg) / 2
	for cut > 0 && !utf8.RuneStart(seg[cut]) {
		cut--
	}
	if cut == 0 {
		return []string{seg}
	}
	left := splitSegment(seg[:cut], budget, len(separators))
	right := splitSegment(seg[cut:], budget, len(separators))
	return append(left, right...)
}

// nearestMidpointCut finds the end offset of the sep occurrence closest
// to the midpoint of seg, binary-searching the occurrence list. Returns
// false when sep does not occur at a position that splits seg in two.
func nearestMidpointCut(seg, sep string) (int, bool) {
	var offsets []int
	for i := 0; ; {
		j := strings.Index(seg[i:], sep)
		if j < 0 {
			break
		}
		end := i + j + len(sep)
		if end < len(seg) { // a trailing separator splits nothing
			offsets = append(offsets, end)
		}
		i += j + len(sep)
	}
	if len(offsets) == 0 {
		return 0, false
	}

	mid := len(seg) / 2
	// offsets is sorted; find the insertion point for mid and compare
	// its neighbours.
	lo, hi := 0, len(offsets)
	for lo < hi {
		m := (lo + hi) / 2
		if offsets[m] < mid {
			lo = m + 1
		} else {
			hi = m
		}
	}
	best := -1
	for _, idx := range []int{lo - 1, lo} {
		if idx < 0 || idx >= len(offsets) {
			continue
		}
		if best < 0 || abs(offsets[idx]-mid) < abs(offsets[best]-mid) {
			best = idx
		}
	}
	return offsets[best], true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
