// Package textutil provides small, pure text and statistics helpers used
// across the service layer: input sanitization, truncation, naive token
// estimation, keyword extraction, and descriptive statistics. The functions
// are independent of domain or business logic and safe for concurrent use.
package textutil

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// DefaultMaxLength is the sanitization length cap applied when callers pass
// a non-positive maximum.
const DefaultMaxLength = 2000

// Sanitize normalizes raw user input: trims surrounding whitespace, strips
// NUL and other non-printable control characters (keeping newlines and tabs),
// and caps the result to maxLen runes. A non-positive maxLen falls back to
// DefaultMaxLength.
func Sanitize(text string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r == '\n' || r == '\t' {
			b.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	out := strings.TrimSpace(b.String())

	if utf8.RuneCountInString(out) > maxLen {
		out = string([]rune(out)[:maxLen])
	}
	return out
}

// Truncate shortens text to at most maxLen runes, appending suffix when a cut
// was made. Text already within the limit is returned unchanged.
func Truncate(text string, maxLen int, suffix string) string {
	if text == "" || maxLen <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	cut := maxLen - utf8.RuneCountInString(suffix)
	if cut < 0 {
		cut = 0
	}
	return string(runes[:cut]) + suffix
}

// EstimateTokens returns a rough token count for text, using the ~4 chars per
// token heuristic. The result is never less than 1.
func EstimateTokens(text string) int {
	n := len(text) / 4
	if n < 1 {
		return 1
	}
	return n
}

// keywordStopwords is the set of common words excluded from ExtractKeywords.
var keywordStopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"from": {}, "is": {}, "are": {}, "was": {}, "were": {}, "be": {},
	"have": {}, "has": {}, "had": {}, "do": {}, "does": {}, "did": {},
	"will": {}, "would": {}, "could": {}, "should": {}, "may": {},
	"might": {}, "can": {}, "this": {}, "that": {}, "these": {}, "those": {},
	"i": {}, "you": {}, "he": {}, "she": {}, "it": {}, "we": {}, "they": {},
	"what": {}, "which": {}, "who": {}, "when": {}, "where": {},
}

// ExtractKeywords pulls candidate keywords from text: lower-cased words of at
// least minLen runes that are not stopwords, with leading/trailing punctuation
// stripped. The result is deduplicated and sorted for deterministic output.
func ExtractKeywords(text string, minLen int) []string {
	if minLen <= 0 {
		minLen = 3
	}
	seen := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'()[]")
		if utf8.RuneCountInString(word) < minLen {
			continue
		}
		if _, stop := keywordStopwords[word]; stop {
			continue
		}
		seen[word] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for w := range seen {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// Mean returns the arithmetic mean of values, or 0.0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Median returns the median of values, or 0.0 for an empty slice.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0.0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// StdDev returns the population standard deviation of values. Fewer than two
// values yield 0.0.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0.0
	}
	avg := Mean(values)
	variance := 0.0
	for _, v := range values {
		variance += (v - avg) * (v - avg)
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

// Percentile returns the p-th percentile of values using nearest-rank on the
// sorted slice. Out-of-range p or an empty slice yields 0.0.
func Percentile(values []float64, p int) float64 {
	if len(values) == 0 || p < 0 || p > 100 {
		return 0.0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	idx := (p * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// NewShareToken returns a fresh 32-character hexadecimal token for public
// conversation links.
func NewShareToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
