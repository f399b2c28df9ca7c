package analysis

import (
	"sort"
	"strings"
)

// DefaultTopK is the number of topics (primary + secondary) returned when the
// caller does not specify one.
const DefaultTopK = 3

// fallbackConfidence is the confidence assigned when no category keyword
// appears in the input.
const fallbackConfidence = 0.3

// TopicResult is the outcome of extracting topics from one text.
type TopicResult struct {
	PrimaryTopic    string   `json:"primary_topic"`
	SecondaryTopics []string `json:"secondary_topics"`
	Keywords        []string `json:"keywords"`
	Category        string   `json:"category"`
	Confidence      float64  `json:"confidence"`
}

// topicEntry pairs a category with its keyword set. The table is held as an
// ordered slice so that score ties resolve by insertion order, keeping the
// classifier fully deterministic.
type topicEntry struct {
	category string
	keywords []string
}

// TopicExtractor classifies text into coarse categories by counting keyword
// occurrences against a fixed category table. Unlike the sentiment model it
// has no external dependency and is always available.
type TopicExtractor struct {
	table []topicEntry
}

// NewTopicExtractor returns an extractor with the built-in category table.
func NewTopicExtractor() *TopicExtractor {
	return &TopicExtractor{
		table: []topicEntry{
			{"technical", []string{"code", "programming", "development", "debugging", "error", "bug", "api", "database"}},
			{"general", []string{"hello", "hi", "how", "what", "why", "when", "where"}},
			{"business", []string{"project", "deadline", "meeting", "budget", "plan", "strategy", "goal"}},
			{"science", []string{"research", "study", "experiment", "data", "analysis", "result", "theory"}},
		},
	}
}

// Categories returns the category names in table order.
func (e *TopicExtractor) Categories() []string {
	out := make([]string, len(e.table))
	for i, entry := range e.table {
		out[i] = entry.category
	}
	return out
}

// Extract scores every category by the number of its keywords appearing as
// substrings of the lower-cased text.
//
// When no category scores above zero the result is the "general" fallback
// with confidence 0.3 and empty keyword/secondary lists. Otherwise categories
// sort by score descending (ties by table order); the top becomes the
// primary, the next topK-1 the secondaries, confidence = min(topScore/10, 1),
// and keywords are the primary category's keywords literally present in the
// text. topK values below 1 fall back to DefaultTopK.
func (e *TopicExtractor) Extract(text string, topK int) TopicResult {
	if topK < 1 {
		topK = DefaultTopK
	}
	lower := strings.ToLower(text)

	type scored struct {
		order int
		entry topicEntry
		score int
	}
	var hits []scored
	for i, entry := range e.table {
		score := 0
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{order: i, entry: entry, score: score})
		}
	}

	if len(hits) == 0 {
		return TopicResult{
			PrimaryTopic:    "general",
			SecondaryTopics: []string{},
			Keywords:        []string{},
			Category:        "General",
			Confidence:      fallbackConfidence,
		}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].score != hits[b].score {
			return hits[a].score > hits[b].score
		}
		return hits[a].order < hits[b].order
	})

	primary := hits[0].entry
	secondary := make([]string, 0, topK-1)
	for _, h := range hits[1:] {
		if len(secondary) >= topK-1 {
			break
		}
		secondary = append(secondary, h.entry.category)
	}

	keywords := make([]string, 0, len(primary.keywords))
	for _, kw := range primary.keywords {
		if strings.Contains(lower, kw) {
			keywords = append(keywords, kw)
		}
	}

	conf := float64(hits[0].score) / 10
	if conf > 1.0 {
		conf = 1.0
	}

	return TopicResult{
		PrimaryTopic:    primary.category,
		SecondaryTopics: secondary,
		Keywords:        keywords,
		Category:        titleCase(primary.category),
		Confidence:      conf,
	}
}

// titleCase upper-cases the first rune only ("technical" -> "Technical").
func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
