// Package services – AnalyticsService
//
// This file implements AnalyticsService, which derives read-only insights
// from a conversation's stored transcript and analysis history: sentiment
// distribution, topic timeline, response latency statistics, and a short
// extractive summary built from the longest messages.
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nkaralis/go-chat-portal/internal/domain"
	"github.com/nkaralis/go-chat-portal/internal/repo"
	"github.com/nkaralis/go-chat-portal/internal/textutil"
)

// summaryMaxChars caps the extractive summary length.
const summaryMaxChars = 500

// summaryMaxMessages is how many of the longest messages feed the summary.
const summaryMaxMessages = 3

// ResponseTimeStats summarizes AI response latency for a conversation.
// All values are in milliseconds; Samples is the number of AI messages
// that recorded a latency.
type ResponseTimeStats struct {
	Samples int     `json:"samples"`
	Mean    float64 `json:"mean_ms"`
	Median  float64 `json:"median_ms"`
	P95     float64 `json:"p95_ms"`
}

// TopicSnapshot is one entry of a conversation's topic timeline.
type TopicSnapshot struct {
	PrimaryTopic string  `json:"primary_topic"`
	Category     string  `json:"category"`
	Confidence   float64 `json:"confidence"`
	AnalyzedAt   string  `json:"analyzed_at"`
}

// ConversationInsights is the full analytics view of a single conversation.
//
// AverageSentiment follows the aggregate rule: the mean of sentiment scores
// over analyzed user messages only. SentimentDistribution buckets every
// analyzed user message by its stored label.
type ConversationInsights struct {
	ConversationID        string            `json:"conversation_id"`
	TotalMessages         int               `json:"total_messages"`
	UserMessages          int               `json:"user_messages"`
	AIMessages            int               `json:"ai_messages"`
	AverageSentiment      float64           `json:"average_sentiment"`
	SentimentTrend        string            `json:"sentiment_trend"`
	SentimentDistribution map[string]int    `json:"sentiment_distribution"`
	PrimaryTopic          string            `json:"primary_topic"`
	TopicTimeline         []TopicSnapshot   `json:"topic_timeline"`
	ResponseTimes         ResponseTimeStats `json:"response_times"`
	Summary               string            `json:"summary"`
	KeyInsights           []string          `json:"key_insights"`
}

// AnalyticsService computes ConversationInsights on demand. It never writes;
// everything it reports is derived from messages and analysis records
// already persisted by TurnPipeline.
type AnalyticsService struct {
	DB *gorm.DB
}

// NewAnalyticsService wires an AnalyticsService over db.
func NewAnalyticsService(db *gorm.DB) *AnalyticsService {
	return &AnalyticsService{DB: db}
}

// Insights builds the analytics view for one conversation owned by userID.
// Returns ErrConversationNotFound when the conversation does not exist,
// was deleted, or belongs to someone else.
func (s *AnalyticsService) Insights(ctx context.Context, userID, conversationID string) (*ConversationInsights, error) {
	tr := otel.Tracer("services/AnalyticsService")
	ctx, span := tr.Start(ctx, "Insights",
		trace.WithAttributes(attribute.String("conversation.id", conversationID)),
	)
	defer span.End()

	conv, err := repo.GetConversation(ctx, s.DB, conversationID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}

	msgs, err := repo.ListMessages(ctx, s.DB, conversationID, 0)
	if err != nil {
		return nil, err
	}

	topics, err := repo.ListTopicRecords(ctx, s.DB, conversationID)
	if err != nil {
		return nil, err
	}

	ins := &ConversationInsights{
		ConversationID:        conv.ID,
		TotalMessages:         len(msgs),
		SentimentDistribution: map[string]int{},
		TopicTimeline:         make([]TopicSnapshot, 0, len(topics)),
		PrimaryTopic:          conv.Topic,
	}

	var (
		scores    []float64
		latencies []float64
	)
	for i := range msgs {
		m := &msgs[i]
		switch {
		case m.IsUserMessage():
			ins.UserMessages++
		case m.IsAIMessage():
			ins.AIMessages++
		}
		if m.IsUserMessage() && m.Analyzed() {
			scores = append(scores, m.SentimentScore)
			ins.SentimentDistribution[*m.SentimentLabel]++
		}
		if m.IsAIMessage() && m.ResponseTimeMs != nil {
			latencies = append(latencies, float64(*m.ResponseTimeMs))
		}
	}

	ins.AverageSentiment = textutil.Mean(scores)
	ins.SentimentTrend = sentimentTrend(ins.AverageSentiment, len(scores))
	ins.ResponseTimes = ResponseTimeStats{
		Samples: len(latencies),
		Mean:    textutil.Mean(latencies),
		Median:  textutil.Median(latencies),
		P95:     textutil.Percentile(latencies, 95),
	}

	for _, t := range topics {
		ins.TopicTimeline = append(ins.TopicTimeline, TopicSnapshot{
			PrimaryTopic: t.PrimaryTopic,
			Category:     t.Category,
			Confidence:   t.Confidence,
			AnalyzedAt:   t.AnalyzedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	if ins.PrimaryTopic == "" && len(topics) > 0 {
		ins.PrimaryTopic = topics[len(topics)-1].PrimaryTopic
	}

	ins.Summary = ExtractiveSummary(msgs, summaryMaxMessages)
	ins.KeyInsights = keyInsights(ins)

	span.SetAttributes(
		attribute.Int("messages.total", ins.TotalMessages),
		attribute.Float64("sentiment.average", ins.AverageSentiment),
	)
	return ins, nil
}

// ExtractiveSummary joins the content of the maxMessages longest messages,
// longest first, capped at summaryMaxChars runes. Deleted messages never
// reach this function; pipeline order is preserved among equal lengths.
func ExtractiveSummary(msgs []domain.Message, maxMessages int) string {
	if len(msgs) == 0 {
		return "No messages to summarize"
	}
	if maxMessages <= 0 {
		maxMessages = summaryMaxMessages
	}

	ranked := make([]*domain.Message, len(msgs))
	for i := range msgs {
		ranked[i] = &msgs[i]
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return len(ranked[i].Content) > len(ranked[j].Content)
	})
	if len(ranked) > maxMessages {
		ranked = ranked[:maxMessages]
	}

	parts := make([]string, 0, len(ranked))
	for _, m := range ranked {
		if c := strings.TrimSpace(m.Content); c != "" {
			parts = append(parts, c)
		}
	}
	summary := strings.Join(parts, " ")
	if r := []rune(summary); len(r) > summaryMaxChars {
		summary = string(r[:summaryMaxChars])
	}
	return summary
}

// sentimentTrend labels an average sentiment for display. Zero analyzed
// messages means no trend at all.
func sentimentTrend(avg float64, analyzed int) string {
	switch {
	case analyzed == 0:
		return "unknown"
	case avg > 0.1:
		return "positive"
	case avg < -0.1:
		return "negative"
	default:
		return "neutral"
	}
}

// keyInsights renders a few human-readable lines out of the computed numbers.
func keyInsights(ins *ConversationInsights) []string {
	out := []string{
		fmt.Sprintf("Conversation has %d messages (%d from the user, %d from the AI)",
			ins.TotalMessages, ins.UserMessages, ins.AIMessages),
	}
	if ins.SentimentTrend != "unknown" {
		out = append(out, fmt.Sprintf("Overall sentiment is %s (%.2f average)",
			ins.SentimentTrend, ins.AverageSentiment))
	}
	if ins.PrimaryTopic != "" {
		out = append(out, fmt.Sprintf("Dominant topic: %s", ins.PrimaryTopic))
	}
	if ins.ResponseTimes.Samples > 0 {
		out = append(out, fmt.Sprintf("Median AI response time: %.0fms over %d replies",
			ins.ResponseTimes.Median, ins.ResponseTimes.Samples))
	}
	return out
}
