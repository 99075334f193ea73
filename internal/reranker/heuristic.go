// Package reranker scores and reorders retrieved candidates. The
// model-backed scorer is preferred; a multi-signal heuristic is always
// available as the ultimate fallback, so reranking is a quality
// optimisation and never a correctness requirement.
package reranker

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/passage-dev/passage/internal/core/domain"
	"github.com/passage-dev/passage/internal/core/ports/driven"
)

// Ensure Heuristic implements the interface.
var _ driven.Reranker = (*Heuristic)(nil)

// Signal weights for the composite score.
const (
	weightRelevance = 0.55
	weightFreshness = 0.25
	weightLength    = 0.20
)

// Diversity de-bias parameters: candidates whose token set overlaps a
// higher-ranked candidate beyond the threshold are multiplied by the
// penalty, compounding across multiple near-duplicates.
const (
	diversityThreshold = 0.7
	diversityPenalty   = 0.8
)

// domainKeywordBonus boosts financial vocabulary when matching query
// tokens against candidate text.
var domainKeywordBonus = map[string]float64{
	"股票": 2.0, "股价": 2.0, "市盈率": 2.0, "财报": 2.0, "营收": 2.0,
	"利润": 2.0, "涨幅": 1.5, "跌幅": 1.5, "成交量": 1.5, "估值": 1.5,
	"revenue": 2.0, "earnings": 2.0, "profit": 2.0, "dividend": 2.0,
	"valuation": 1.5, "eps": 2.0, "ebitda": 2.0, "margin": 1.5,
	"guidance": 1.5, "forecast": 1.5,
}

// stopWords excluded from non-CJK token matching.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "was": {}, "with": {},
	"that": {}, "this": {}, "from": {}, "have": {}, "has": {}, "not": {},
	"its": {}, "their": {}, "about": {},
}

// Heuristic is the always-available multi-signal reranker.
type Heuristic struct {
	// now is injectable for freshness tests.
	now func() time.Time
}

// NewHeuristic creates the heuristic reranker.
func NewHeuristic() *Heuristic {
	return &Heuristic{now: time.Now}
}

// Rerank scores every candidate on relevance, freshness and length,
// applies diversity de-biasing, and sorts by descending total. The sort
// is stable: ties keep their merge order, which keeps output reproducible.
// It never fails.
func (h *Heuristic) Rerank(_ context.Context, query string, candidates []domain.SearchCandidate) ([]domain.ScoredCandidate, error) {
	scored := make([]domain.ScoredCandidate, len(candidates))
	queryTokens := Tokenize(query)

	for i, c := range candidates {
		s := domain.ScoredCandidate{SearchCandidate: c}
		s.Relevance = relevance(query, queryTokens, c.Text)
		s.Freshness = h.freshness(c.Link, c.Text)
		s.Length = lengthScore(c.Text)
		s.Total = weightRelevance*s.Relevance + weightFreshness*s.Freshness + weightLength*s.Length
		scored[i] = s
	}

	applyDiversityPenalty(scored)

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Total > scored[j].Total
	})
	return scored, nil
}

// applyDiversityPenalty walks candidates in their original relative order
// and compares each against every earlier candidate; near-duplicate
// content is demoted rather than removed.
func applyDiversityPenalty(scored []domain.ScoredCandidate) {
	sets := make([]map[string]struct{}, len(scored))
	for i, s := range scored {
		sets[i] = tokenSet(Tokenize(s.Text))
	}
	for i := 1; i < len(scored); i++ {
		for j := 0; j < i; j++ {
			if jaccard(sets[i], sets[j]) > diversityThreshold {
				scored[i].Total *= diversityPenalty
			}
		}
	}
}

// relevance combines match fraction, bonus-weighted match mass, a base
// floor and an exact-substring bonus, clamped to 1.0.
func relevance(query string, queryTokens []string, text string) float64 {
	if len(queryTokens) == 0 {
		return 0.5
	}

	freq := map[string]int{}
	for _, tok := range Tokenize(text) {
		freq[tok]++
	}

	var matched int
	var weightedSum, querySum float64
	seen := map[string]struct{}{}
	for _, tok := range queryTokens {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}

		bonus := domainKeywordBonus[tok]
		if bonus == 0 {
			bonus = 1.0
		}
		querySum += bonus
		if n := freq[tok]; n > 0 {
			matched++
			if n > 3 {
				n = 3
			}
			weightedSum += bonus * float64(n)
		}
	}

	score := 0.6*(float64(matched)/float64(len(seen))) + 0.3*(weightedSum/querySum) + 0.1
	if containsFold(text, query) {
		score += 0.2
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// lengthScore is a band function peaking for mid-sized passages.
func lengthScore(text string) float64 {
	n := len([]rune(text))
	switch {
	case n < 50:
		return 0.3
	case n < 200:
		return 0.7
	case n <= 1000:
		return 1.0
	case n <= 2000:
		return 0.8
	case n <= 4000:
		return 0.5
	default:
		return 0.2
	}
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(strings.TrimSpace(needle)))
}

// Tokenize splits text into match tokens. CJK runs produce all character
// n-grams of length 2-3 (CJK has no whitespace word boundaries); other
// scripts produce lowercased alphanumeric words of length > 1 that are
// not stop words.
func Tokenize(text string) []string {
	var tokens []string
	var word []rune
	var cjk []rune

	flushWord := func() {
		if len(word) > 1 {
			tok := strings.ToLower(string(word))
			if _, stop := stopWords[tok]; !stop {
				tokens = append(tokens, tok)
			}
		}
		word = word[:0]
	}
	flushCJK := func() {
		tokens = append(tokens, cjkNGrams(cjk)...)
		cjk = cjk[:0]
	}

	for _, r := range text {
		switch {
		case isCJK(r):
			flushWord()
			cjk = append(cjk, r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			flushCJK()
			word = append(word, r)
		default:
			flushWord()
			flushCJK()
		}
	}
	flushWord()
	flushCJK()
	return tokens
}

// isCJK reports whether the rune is in a CJK script: Han, the Japanese
// kana, or Hangul. All of them match by character n-grams, not words.
func isCJK(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}

// cjkNGrams returns every substring of length 2-3 from a CJK run. A
// single isolated character is kept as-is so short queries still match.
func cjkNGrams(run []rune) []string {
	if len(run) == 0 {
		return nil
	}
	if len(run) == 1 {
		return []string{string(run)}
	}
	var grams []string
	for n := 2; n <= 3; n++ {
		for i := 0; i+n <= len(run); i++ {
			grams = append(grams, string(run[i:i+n]))
		}
	}
	return grams
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
