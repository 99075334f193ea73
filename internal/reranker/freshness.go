package reranker

import (
	"regexp"
	"strconv"
	"strings"
)

// Date patterns tried against candidate links, most specific first.
var linkDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(20\d{2})[-_/.](\d{1,2})[-_/.](\d{1,2})`),
	regexp.MustCompile(`(20\d{2})(0[1-9]|1[0-2])([0-3]\d)`),
	regexp.MustCompile(`(20\d{2})年(\d{1,2})月`),
	regexp.MustCompile(`[/_-](20\d{2})[/_-]`),
	regexp.MustCompile(`(20\d{2})`),
}

// relativeTimeScore maps relative-time keywords found in candidate text
// to a freshness band. Ordered: the first match wins.
var relativeTimeScores = []struct {
	keyword string
	score   float64
}{
	{"today", 1.0}, {"今天", 1.0}, {"今日", 1.0},
	{"yesterday", 0.95}, {"昨天", 0.95},
	{"this week", 0.9}, {"本周", 0.9}, {"最新", 0.9}, {"latest", 0.9},
	{"this month", 0.85}, {"本月", 0.85},
	{"this year", 0.8}, {"今年", 0.8},
	{"last month", 0.7}, {"上个月", 0.7},
	{"last year", 0.3}, {"去年", 0.3},
	{"years ago", 0.2}, {"年前", 0.2},
}

// freshness estimates recency. A date in the link is the strongest
// signal; relative-time keywords in the text are the fallback; absent
// both, the score is a neutral 0.5.
func (h *Heuristic) freshness(link, text string) float64 {
	if year, ok := extractYear(link); ok {
		return h.yearScore(year)
	}
	lower := strings.ToLower(text)
	for _, kw := range relativeTimeScores {
		if strings.Contains(lower, kw.keyword) {
			return kw.score
		}
	}
	return 0.5
}

// yearScore maps the age of a dated link to a recency band.
func (h *Heuristic) yearScore(year int) float64 {
	age := h.now().Year() - year
	switch {
	case age <= 0:
		return 1.0
	case age == 1:
		return 0.9
	case age == 2:
		return 0.7
	case age == 3:
		return 0.5
	case age <= 5:
		return 0.3
	default:
		return 0.1
	}
}

func extractYear(link string) (int, bool) {
	if link == "" {
		return 0, false
	}
	for _, re := range linkDatePatterns {
		m := re.FindStringSubmatch(link)
		if m == nil {
			continue
		}
		year, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		return year, true
	}
	return 0, false
}
