// Package rewriter expands a user query into a bounded set of alternative
// phrasings to increase retrieval recall. It is purely rule-based: no
// model calls, so rewriting works offline and adds no latency budget.
package rewriter

import (
	"strings"
	"unicode"
)

// synonymEntry substitutes a query term. The table is an ordered slice,
// not a map, so rewrite generation order is deterministic.
type synonymEntry struct {
	term string
	subs []string
}

// Financial vocabulary is bilingual because source documents mix English
// and Chinese.
var synonyms = []synonymEntry{
	{"股票", []string{"证券", "个股"}},
	{"价格", []string{"股价", "估值"}},
	{"收益", []string{"回报", "利润"}},
	{"风险", []string{"波动", "不确定性"}},
	{"市场", []string{"行情", "大盘"}},
	{"财报", []string{"财务报告", "业绩报告"}},
	{"stock", []string{"equity", "share"}},
	{"price", []string{"valuation", "quote"}},
	{"earnings", []string{"profit", "income"}},
	{"revenue", []string{"sales", "turnover"}},
	{"risk", []string{"volatility", "exposure"}},
	{"market", []string{"exchange", "trading"}},
	{"forecast", []string{"outlook", "projection"}},
	{"dividend", []string{"payout", "distribution"}},
	{"report", []string{"filing", "statement"}},
	{"growth", []string{"expansion", "increase"}},
	{"analysis", []string{"assessment", "review"}},
	{"valuation", []string{"pricing", "worth"}},
}

// Qualifier suffixes appended to the query, tried dimension first, then
// time frame, then information type.
var (
	dimensionQualifiers = []string{"基本面分析", "技术面分析", "fundamentals", "trend analysis"}
	timeQualifiers      = []string{"最新", "近一年", "latest", "recent"}
	typeQualifiers      = []string{"研报", "新闻", "research report", "news"}
)

// stopWords are dropped from keyword extraction and compaction.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "of": {}, "in": {}, "on": {}, "for": {},
	"to": {}, "and": {}, "or": {}, "is": {}, "are": {}, "was": {}, "what": {},
	"how": {}, "why": {}, "with": {}, "about": {}, "please": {},
	"的": {}, "了": {}, "吗": {}, "呢": {}, "请问": {}, "关于": {}, "什么": {},
	"如何": {}, "怎么": {}, "是否": {},
}

// Rewriter expands queries by rule.
type Rewriter struct{}

// New creates a query rewriter.
func New() *Rewriter {
	return &Rewriter{}
}

// Rewrite returns up to maxCandidates distinct, non-empty alternative
// phrasings of query. Rules run in priority order (synonym substitution,
// qualifier expansion, keyword pairing, stop-word compaction) and
// collection short-circuits as soon as the bound is reached. Candidates
// are deduplicated case-insensitively in first-seen order, and never
// equal the original query.
func (r *Rewriter) Rewrite(query string, maxCandidates int) []string {
	query = strings.TrimSpace(query)
	if query == "" || maxCandidates <= 0 {
		return nil
	}

	collector := newCollector(query, maxCandidates)

	r.addSynonymVariants(collector, query)
	r.addQualifierVariants(collector, query)
	r.addKeywordPairs(collector, query)
	r.addCompacted(collector, query)

	return collector.out
}

func (r *Rewriter) addSynonymVariants(c *collector, query string) {
	lower := strings.ToLower(query)
	for _, entry := range synonyms {
		if c.full() {
			return
		}
		idx := strings.Index(lower, entry.term)
		if idx < 0 {
			continue
		}
		for _, sub := range entry.subs {
			// Replace on the original string at the located offset so
			// case outside the term is preserved.
			c.add(query[:idx] + sub + query[idx+len(entry.term):])
			if c.full() {
				return
			}
		}
	}
}

func (r *Rewriter) addQualifierVariants(c *collector, query string) {
	groups := [][]string{dimensionQualifiers, timeQualifiers, typeQualifiers}
	for _, group := range groups {
		for _, q := range group {
			if c.full() {
				return
			}
			if strings.Contains(query, q) {
				continue
			}
			c.add(query + " " + q)
		}
	}
}

func (r *Rewriter) addKeywordPairs(c *collector, query string) {
	words := Keywords(query)
	for i := 0; i+1 < len(words); i++ {
		if c.full() {
			return
		}
		c.add(words[i] + " " + words[i+1])
	}
}

func (r *Rewriter) addCompacted(c *collector, query string) {
	if c.full() {
		return
	}
	words := Keywords(query)
	if len(words) == 0 {
		return
	}
	c.add(strings.Join(words, " "))
}

// Keywords splits the query into significant terms: whitespace-separated
// words minus stop words, plus contiguous CJK runs as single terms.
func Keywords(query string) []string {
	var words []string
	var cur strings.Builder
	curCJK := false

	flush := func() {
		if cur.Len() == 0 {
			return
		}
		w := cur.String()
		cur.Reset()
		if _, stop := stopWords[strings.ToLower(w)]; stop {
			return
		}
		if len([]rune(w)) < 2 && !curCJK {
			return
		}
		words = append(words, w)
	}

	for _, r := range query {
		switch {
		case unicode.IsSpace(r) || unicode.IsPunct(r):
			flush()
		case unicode.Is(unicode.Han, r):
			if !curCJK {
				flush()
			}
			curCJK = true
			cur.WriteRune(r)
		default:
			if curCJK {
				flush()
			}
			curCJK = false
			cur.WriteRune(r)
		}
	}
	flush()
	return words
}

// collector accumulates candidates with case-insensitive dedup, skipping
// the original query.
type collector struct {
	original string
	max      int
	seen     map[string]struct{}
	out      []string
}

func newCollector(original string, max int) *collector {
	return &collector{
		original: strings.ToLower(original),
		max:      max,
		seen:     map[string]struct{}{strings.ToLower(original): {}},
	}
}

func (c *collector) add(candidate string) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" || c.full() {
		return
	}
	key := strings.ToLower(candidate)
	if _, dup := c.seen[key]; dup {
		return
	}
	c.seen[key] = struct{}{}
	c.out = append(c.out, candidate)
}

func (c *collector) full() bool {
	return len(c.out) >= c.max
}
