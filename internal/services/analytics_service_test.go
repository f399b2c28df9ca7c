package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nkaralis/go-chat-portal/internal/domain"
	"github.com/nkaralis/go-chat-portal/internal/repo"
)

func TestAnalyticsService_Insights(t *testing.T) {
	db := newServiceDB(t)
	svc := NewAnalyticsService(db)
	ctx := context.Background()

	c := seedConversation(t, db, "u1", "insights")

	u1 := seedMessage(t, db, c.ID, domain.SenderUser, "short")
	if err := repo.UpdateMessageFields(ctx, db, u1.ID, map[string]any{
		"sentiment_score": 0.9, "sentiment_label": "positive",
	}); err != nil {
		t.Fatalf("set sentiment: %v", err)
	}
	u2 := seedMessage(t, db, c.ID, domain.SenderUser, "a somewhat longer user message")
	if err := repo.UpdateMessageFields(ctx, db, u2.ID, map[string]any{
		"sentiment_score": -0.5, "sentiment_label": "negative",
	}); err != nil {
		t.Fatalf("set sentiment: %v", err)
	}
	ai := seedMessage(t, db, c.ID, domain.SenderAI, "the longest reply of this whole conversation by far")
	if err := repo.UpdateMessageFields(ctx, db, ai.ID, map[string]any{
		"response_time_ms": 120,
	}); err != nil {
		t.Fatalf("set latency: %v", err)
	}

	if err := repo.InsertTopicRecord(ctx, db, &domain.TopicRecord{
		ConversationID: c.ID,
		PrimaryTopic:   "technical",
		Category:       "Technical",
		Confidence:     0.4,
		ModelUsed:      "keyword-frequency",
	}); err != nil {
		t.Fatalf("insert topic: %v", err)
	}

	ins, err := svc.Insights(ctx, "u1", c.ID)
	if err != nil {
		t.Fatalf("Insights: %v", err)
	}

	if ins.TotalMessages != 3 || ins.UserMessages != 2 || ins.AIMessages != 1 {
		t.Fatalf("counts = %d/%d/%d", ins.TotalMessages, ins.UserMessages, ins.AIMessages)
	}

	// Average over the two analyzed user messages only.
	if got := ins.AverageSentiment; got < 0.19 || got > 0.21 {
		t.Fatalf("average sentiment = %v, want 0.2", got)
	}
	if ins.SentimentTrend != "positive" {
		t.Fatalf("trend = %q", ins.SentimentTrend)
	}
	if ins.SentimentDistribution["positive"] != 1 || ins.SentimentDistribution["negative"] != 1 {
		t.Fatalf("distribution = %v", ins.SentimentDistribution)
	}

	if ins.ResponseTimes.Samples != 1 || ins.ResponseTimes.Median != 120 {
		t.Fatalf("response times = %+v", ins.ResponseTimes)
	}

	if len(ins.TopicTimeline) != 1 || ins.TopicTimeline[0].PrimaryTopic != "technical" {
		t.Fatalf("topic timeline = %+v", ins.TopicTimeline)
	}
	if ins.PrimaryTopic != "technical" {
		t.Fatalf("primary topic = %q", ins.PrimaryTopic)
	}

	// Summary leads with the longest message.
	if !strings.HasPrefix(ins.Summary, "the longest reply") {
		t.Fatalf("summary = %q", ins.Summary)
	}
	if len(ins.KeyInsights) == 0 {
		t.Fatal("expected key insights")
	}
}

func TestAnalyticsService_Insights_EmptyAndMissing(t *testing.T) {
	db := newServiceDB(t)
	svc := NewAnalyticsService(db)
	ctx := context.Background()

	c := seedConversation(t, db, "u1", "empty")

	ins, err := svc.Insights(ctx, "u1", c.ID)
	if err != nil {
		t.Fatalf("Insights: %v", err)
	}
	if ins.TotalMessages != 0 || ins.SentimentTrend != "unknown" {
		t.Fatalf("empty insights = %+v", ins)
	}
	if ins.Summary != "No messages to summarize" {
		t.Fatalf("summary = %q", ins.Summary)
	}

	if _, err := svc.Insights(ctx, "intruder", c.ID); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("foreign err = %v, want ErrConversationNotFound", err)
	}
	if _, err := svc.Insights(ctx, "u1", "missing"); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("missing err = %v, want ErrConversationNotFound", err)
	}
}

func TestExtractiveSummary(t *testing.T) {
	msgs := []domain.Message{
		{Content: "bb bb"},
		{Content: "cccccc cccccc"},
		{Content: "a"},
		{Content: "dddd"},
	}

	got := ExtractiveSummary(msgs, 2)
	if got != "cccccc cccccc bb bb" {
		t.Fatalf("summary = %q", got)
	}

	// Caps at 500 runes.
	long := []domain.Message{{Content: strings.Repeat("x", 600)}}
	if got := ExtractiveSummary(long, 3); len([]rune(got)) != 500 {
		t.Fatalf("capped length = %d", len([]rune(got)))
	}
}
