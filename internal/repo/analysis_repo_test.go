package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nkaralis/go-chat-portal/internal/domain"
)

func TestSentimentRecords_AppendOnlyHistory(t *testing.T) {
	db := newRepoDB(t, allModels()...)
	ctx := context.Background()

	conv, _ := CreateConversation(ctx, db, "u1", "t")
	m := &domain.Message{ConversationID: conv.ID, Sender: domain.SenderUser, Content: "x", Status: domain.StatusSent}
	if err := InsertMessage(ctx, db, m); err != nil {
		t.Fatalf("insert message: %v", err)
	}

	base := time.Now().UTC().Add(-time.Hour)
	for i, label := range []string{domain.SentimentNeutral, domain.SentimentPositive} {
		r := &domain.SentimentRecord{
			MessageID:      m.ID,
			ConversationID: conv.ID,
			Label:          label,
			Confidence:     0.5 + float64(i)*0.4,
			ModelUsed:      "lexicon-v1",
			AnalyzedAt:     base.Add(time.Duration(i) * time.Minute),
		}
		if err := InsertSentimentRecord(ctx, db, r); err != nil {
			t.Fatalf("insert sentiment record: %v", err)
		}
		if r.ID == "" {
			t.Fatalf("record ID not assigned")
		}
	}

	hist, err := ListSentimentRecords(ctx, db, conv.ID)
	if err != nil {
		t.Fatalf("ListSentimentRecords: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("len = %d; want 2 (re-analysis must append, not replace)", len(hist))
	}
	if hist[0].Label != domain.SentimentNeutral || hist[1].Label != domain.SentimentPositive {
		t.Fatalf("history order unexpected: %+v", hist)
	}
	if hist[0].IsConfident() || !hist[1].IsConfident() {
		t.Fatalf("IsConfident mismatch: %v %v", hist[0].Confidence, hist[1].Confidence)
	}
}

func TestTopicRecords_LatestAndHistory(t *testing.T) {
	db := newRepoDB(t, allModels()...)
	ctx := context.Background()
	conv, _ := CreateConversation(ctx, db, "u1", "t")

	if _, err := LatestTopicRecord(ctx, db, conv.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound with no records, got %v", err)
	}

	base := time.Now().UTC().Add(-time.Hour)
	for i, topic := range []string{"general", "technical"} {
		r := &domain.TopicRecord{
			ConversationID: conv.ID,
			PrimaryTopic:   topic,
			Category:       "General",
			Confidence:     0.3,
			AnalyzedAt:     base.Add(time.Duration(i) * time.Minute),
		}
		if err := InsertTopicRecord(ctx, db, r); err != nil {
			t.Fatalf("insert topic record: %v", err)
		}
	}

	latest, err := LatestTopicRecord(ctx, db, conv.ID)
	if err != nil || latest.PrimaryTopic != "technical" {
		t.Fatalf("LatestTopicRecord = %+v, %v; want technical", latest, err)
	}

	hist, err := ListTopicRecords(ctx, db, conv.ID)
	if err != nil || len(hist) != 2 || hist[0].PrimaryTopic != "general" {
		t.Fatalf("ListTopicRecords = %+v, %v; want [general technical]", hist, err)
	}
}
