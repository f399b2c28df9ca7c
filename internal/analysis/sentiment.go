// Package analysis provides the text analytics used by the conversation
// pipeline: capability-typed sentiment analysis, keyword-frequency topic
// extraction, and an optional embedding service with a process-wide cache.
//
// Design notes (mirroring the rest of the application):
//   - No logging in the library; callers decide how/what to log.
//   - All analyzers are safe for concurrent use.
//   - External models are capability-typed: they may report themselves
//     unavailable, which is a degradation the caller absorbs, not an error.
package analysis

import (
	"context"
	"strings"
)

// Raw classifier labels produced by binary sentiment models.
const (
	ClassPositive = "POSITIVE"
	ClassNegative = "NEGATIVE"
)

// confidenceThreshold is the policy constant above which a classification is
// considered confident.
const confidenceThreshold = 0.8

// maxClassifyRunes bounds the text passed to the underlying classifier.
const maxClassifyRunes = 512

// Classifier is the capability contract for an external binary sentiment
// model: it labels text POSITIVE or NEGATIVE with a confidence in [0,1].
// Implementations may be remote models or local heuristics; a failing or
// missing classifier is handled by SentimentAnalyzer as unavailability.
type Classifier interface {
	// Classify returns the raw class label and its confidence for text.
	Classify(ctx context.Context, text string) (label string, confidence float64, err error)

	// ModelName identifies the underlying model for analytics records.
	ModelName() string
}

// SentimentResult is the outcome of analyzing one text.
//
// Score is a signed value in [-1, 1]: positive classifications map to
// +confidence, negative to -confidence, anything else to 0. Available is
// false when the underlying model could not run; in that case Label is
// "neutral" and Score is 0; callers must treat this as a capability
// degradation, not a failure.
type SentimentResult struct {
	Label     string  `json:"label"`
	Score     float64 `json:"score"`
	Confident bool    `json:"confident"`
	Available bool    `json:"available"`
}

// SentimentAnalyzer wraps a binary Classifier and maps its raw output onto
// the signed sentiment scale used across the application.
type SentimentAnalyzer struct {
	classifier Classifier
}

// NewSentimentAnalyzer constructs an analyzer around c. A nil classifier is
// allowed and yields a permanently unavailable analyzer, which is useful both
// for deployments without a model and for exercising degraded code paths in
// tests.
func NewSentimentAnalyzer(c Classifier) *SentimentAnalyzer {
	return &SentimentAnalyzer{classifier: c}
}

// Available reports whether an underlying classifier is configured.
func (a *SentimentAnalyzer) Available() bool { return a.classifier != nil }

// ModelName returns the classifier's model identifier, or "" when the
// analyzer is unavailable.
func (a *SentimentAnalyzer) ModelName() string {
	if a.classifier == nil {
		return ""
	}
	return a.classifier.ModelName()
}

// Analyze classifies text and maps the result onto [-1, 1].
//
// Unavailability (nil or erroring classifier) returns neutral defaults with
// Available=false and a nil error: the analyzer never fails the caller.
func (a *SentimentAnalyzer) Analyze(ctx context.Context, text string) SentimentResult {
	unavailable := SentimentResult{Label: "neutral", Score: 0.0, Available: false}
	if a.classifier == nil {
		return unavailable
	}

	if runes := []rune(text); len(runes) > maxClassifyRunes {
		text = string(runes[:maxClassifyRunes])
	}

	raw, conf, err := a.classifier.Classify(ctx, text)
	if err != nil {
		return unavailable
	}

	res := SentimentResult{Available: true, Confident: conf > confidenceThreshold}
	switch strings.ToUpper(raw) {
	case ClassPositive:
		res.Label = "positive"
		res.Score = conf
	case ClassNegative:
		res.Label = "negative"
		res.Score = -conf
	default:
		res.Label = "neutral"
		res.Score = 0.0
	}
	return res
}

// AnalyzeBatch applies Analyze independently to each text. There is no
// cross-text state; a failure on one text does not affect the others.
func (a *SentimentAnalyzer) AnalyzeBatch(ctx context.Context, texts []string) []SentimentResult {
	out := make([]SentimentResult, len(texts))
	for i, t := range texts {
		out[i] = a.Analyze(ctx, t)
	}
	return out
}

// LexiconClassifier is a small self-contained Classifier backed by word
// lists. It stands in for the external transformer model in deployments that
// run without one, and keeps the sentiment capability exercisable end-to-end.
type LexiconClassifier struct {
	positive map[string]struct{}
	negative map[string]struct{}
}

// NewLexiconClassifier returns a classifier with a compact built-in lexicon.
func NewLexiconClassifier() *LexiconClassifier {
	mk := func(words ...string) map[string]struct{} {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			m[w] = struct{}{}
		}
		return m
	}
	return &LexiconClassifier{
		positive: mk("good", "great", "excellent", "love", "awesome", "happy",
			"thanks", "thank", "perfect", "amazing", "wonderful", "helpful",
			"nice", "best", "fantastic", "glad"),
		negative: mk("bad", "terrible", "awful", "hate", "broken", "wrong",
			"error", "fail", "failed", "useless", "worst", "horrible",
			"angry", "annoying", "sad", "frustrated"),
	}
}

// ModelName identifies the lexicon classifier in analytics records.
func (c *LexiconClassifier) ModelName() string { return "lexicon-v1" }

// Classify counts positive versus negative lexicon hits. Confidence grows
// with the margin between the two counts and is capped at 0.95; a tie (or no
// hits at all) yields an empty label with zero confidence, which the analyzer
// maps to neutral.
func (c *LexiconClassifier) Classify(_ context.Context, text string) (string, float64, error) {
	pos, neg := 0, 0
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'()[]")
		if _, ok := c.positive[word]; ok {
			pos++
		}
		if _, ok := c.negative[word]; ok {
			neg++
		}
	}
	if pos == neg {
		return "", 0.0, nil
	}

	margin := pos - neg
	if margin < 0 {
		margin = -margin
	}
	conf := 0.5 + float64(margin)*0.15
	if conf > 0.95 {
		conf = 0.95
	}
	if pos > neg {
		return ClassPositive, conf, nil
	}
	return ClassNegative, conf, nil
}
