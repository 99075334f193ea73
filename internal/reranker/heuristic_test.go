package reranker

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passage-dev/passage/internal/core/domain"
)

func fixedNow() time.Time {
	return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
}

func newHeuristic() *Heuristic {
	h := NewHeuristic()
	h.now = fixedNow
	return h
}

func TestHeuristic_NeverFails(t *testing.T) {
	h := newHeuristic()
	ctx := context.Background()

	t.Run("empty input", func(t *testing.T) {
		out, err := h.Rerank(ctx, "query", nil)
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("single candidate", func(t *testing.T) {
		out, err := h.Rerank(ctx, "query", []domain.SearchCandidate{{Text: "only one"}})
		require.NoError(t, err)
		require.Len(t, out, 1)
	})

	t.Run("candidates missing optional fields", func(t *testing.T) {
		out, err := h.Rerank(ctx, "", []domain.SearchCandidate{
			{}, {Text: ""}, {Link: "no-text"},
		})
		require.NoError(t, err)
		assert.Len(t, out, 3)
	})
}

func TestHeuristic_RelevantCandidateWins(t *testing.T) {
	h := newHeuristic()
	text := strings.Repeat("Quarterly earnings beat the forecast with strong revenue. ", 6)
	filler := strings.Repeat("The weather was mild and nothing notable happened today here. ", 6)

	out, err := h.Rerank(context.Background(), "earnings revenue forecast", []domain.SearchCandidate{
		{Text: filler, SourceID: "filler"},
		{Text: text, SourceID: "relevant"},
	})
	require.NoError(t, err)
	assert.Equal(t, "relevant", out[0].SourceID)
	assert.Greater(t, out[0].Relevance, out[1].Relevance)
}

func TestHeuristic_CJKQueryMatches(t *testing.T) {
	h := newHeuristic()
	out, err := h.Rerank(context.Background(), "股票价格", []domain.SearchCandidate{
		{Text: "昨日股票价格小幅上涨，成交量放大。", SourceID: "zh"},
		{Text: "Completely unrelated English filler text about gardens.", SourceID: "en"},
	})
	require.NoError(t, err)
	assert.Equal(t, "zh", out[0].SourceID)
}

func TestHeuristic_DiversityPenalty(t *testing.T) {
	h := newHeuristic()
	dup := "Quarterly revenue grew twelve percent on strong demand for cloud services."
	out, err := h.Rerank(context.Background(), "quarterly revenue growth", []domain.SearchCandidate{
		{Text: dup, SourceID: "first"},
		{Text: dup, SourceID: "second"},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	// Identical text scores identically before de-bias; the penalty must
	// demote the later duplicate.
	assert.Equal(t, "first", out[0].SourceID)
	assert.InDelta(t, out[0].Total*diversityPenalty, out[1].Total, 1e-9)
}

func TestFreshness_LinkDates(t *testing.T) {
	h := newHeuristic()
	tests := []struct {
		link string
		want float64
	}{
		{"https://news.example.com/2026/05/30/markets", 1.0},
		{"https://news.example.com/2025-11-02-report", 0.9},
		{"https://example.com/archive/20240115.html", 0.7},
		{"https://example.com/2023/filing", 0.5},
		{"https://example.com/2021/old", 0.3},
		{"https://example.com/2019/ancient", 0.1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, h.freshness(tt.link, ""), "link %s", tt.link)
	}
}

func TestFreshness_RelativeKeywords(t *testing.T) {
	h := newHeuristic()
	assert.Equal(t, 1.0, h.freshness("", "股价今天大涨"))
	assert.Equal(t, 0.3, h.freshness("", "compared to last year"))
	assert.Equal(t, 0.5, h.freshness("", "no temporal signal at all"))
}

func TestLengthScore_Bands(t *testing.T) {
	assert.Equal(t, 0.3, lengthScore(strings.Repeat("a", 10)))
	assert.Equal(t, 0.7, lengthScore(strings.Repeat("a", 100)))
	assert.Equal(t, 1.0, lengthScore(strings.Repeat("a", 500)))
	assert.Equal(t, 0.8, lengthScore(strings.Repeat("a", 1500)))
	assert.Equal(t, 0.2, lengthScore(strings.Repeat("a", 9000)))
}

func TestTokenize(t *testing.T) {
	t.Run("cjk ngrams", func(t *testing.T) {
		toks := Tokenize("股票价")
		assert.ElementsMatch(t, []string{"股票", "票价", "股票价"}, toks)
	})

	t.Run("stop words and short tokens dropped", func(t *testing.T) {
		toks := Tokenize("the price of X")
		assert.Equal(t, []string{"price", "of"}, toks)
	})

	t.Run("mixed scripts", func(t *testing.T) {
		toks := Tokenize("AAPL股价")
		assert.Contains(t, toks, "aapl")
		assert.Contains(t, toks, "股价")
	})

	t.Run("kana ngrams", func(t *testing.T) {
		toks := Tokenize("さくら")
		assert.ElementsMatch(t, []string{"さく", "くら", "さくら"}, toks)
	})

	t.Run("hangul ngrams", func(t *testing.T) {
		toks := Tokenize("주식시")
		assert.ElementsMatch(t, []string{"주식", "식시", "주식시"}, toks)
	})
}
