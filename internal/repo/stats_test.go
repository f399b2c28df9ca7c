package repo

import (
	"context"
	"math"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/nkaralis/go-chat-portal/internal/domain"
)

func insertMsg(t *testing.T, db *gorm.DB, convID, sender string, score float64, at time.Time) *domain.Message {
	t.Helper()
	m := &domain.Message{
		ConversationID: convID,
		Sender:         sender,
		Content:        "x",
		Status:         domain.StatusSent,
		SentimentScore: score,
		CreatedAt:      at,
	}
	if err := InsertMessage(context.Background(), db, m); err != nil {
		t.Fatalf("insert message: %v", err)
	}
	return m
}

func TestComputeMessageAggregates_Empty(t *testing.T) {
	db := newRepoDB(t, allModels()...)
	ctx := context.Background()
	conv, _ := CreateConversation(ctx, db, "u1", "t")

	agg, err := ComputeMessageAggregates(ctx, db, conv.ID)
	if err != nil {
		t.Fatalf("ComputeMessageAggregates: %v", err)
	}
	if agg.MessageCount != 0 || agg.AverageSentiment != 0 || agg.LastMessageAt != nil {
		t.Fatalf("empty conversation aggregates unexpected: %+v", agg)
	}
}

func TestComputeMessageAggregates_Rules(t *testing.T) {
	db := newRepoDB(t, allModels()...)
	ctx := context.Background()
	conv, _ := CreateConversation(ctx, db, "u1", "t")

	base := time.Now().UTC().Truncate(time.Second).Add(-time.Hour)

	// Analyzed user messages: 0.8 and -0.2 -> mean 0.3.
	insertMsg(t, db, conv.ID, domain.SenderUser, 0.8, base)
	insertMsg(t, db, conv.ID, domain.SenderUser, -0.2, base.Add(time.Minute))
	// Unanalyzed user message (zero sentinel) is excluded from the average.
	insertMsg(t, db, conv.ID, domain.SenderUser, 0, base.Add(2*time.Minute))
	// AI message with a score never contributes to the average.
	insertMsg(t, db, conv.ID, domain.SenderAI, 0.9, base.Add(3*time.Minute))

	agg, err := ComputeMessageAggregates(ctx, db, conv.ID)
	if err != nil {
		t.Fatalf("ComputeMessageAggregates: %v", err)
	}
	if agg.MessageCount != 4 {
		t.Fatalf("MessageCount = %d; want 4", agg.MessageCount)
	}
	if math.Abs(agg.AverageSentiment-0.3) > 1e-9 {
		t.Fatalf("AverageSentiment = %v; want 0.3", agg.AverageSentiment)
	}
	if agg.LastMessageAt == nil || !agg.LastMessageAt.Equal(base.Add(3*time.Minute)) {
		t.Fatalf("LastMessageAt = %v; want %v", agg.LastMessageAt, base.Add(3*time.Minute))
	}

	// Idempotent: running again changes nothing. Compare field by field
	// since LastMessageAt is a pointer.
	again, err := ComputeMessageAggregates(ctx, db, conv.ID)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if again.MessageCount != agg.MessageCount || again.AverageSentiment != agg.AverageSentiment {
		t.Fatalf("second run differs: %+v vs %+v", again, agg)
	}
	if again.LastMessageAt == nil || !again.LastMessageAt.Equal(*agg.LastMessageAt) {
		t.Fatalf("second run LastMessageAt = %v; want %v", again.LastMessageAt, agg.LastMessageAt)
	}
}

func TestComputeMessageAggregates_OnlyUnanalyzed(t *testing.T) {
	db := newRepoDB(t, allModels()...)
	ctx := context.Background()
	conv, _ := CreateConversation(ctx, db, "u1", "t")

	at := time.Now().UTC().Truncate(time.Second)
	insertMsg(t, db, conv.ID, domain.SenderUser, 0, at)

	agg, err := ComputeMessageAggregates(ctx, db, conv.ID)
	if err != nil {
		t.Fatalf("ComputeMessageAggregates: %v", err)
	}
	if agg.MessageCount != 1 || agg.AverageSentiment != 0 {
		t.Fatalf("aggregates unexpected: %+v", agg)
	}
	if agg.LastMessageAt == nil {
		t.Fatalf("LastMessageAt must be set when messages exist")
	}
}

func TestConversationsStats(t *testing.T) {
	db := newRepoDB(t, allModels()...)
	ctx := context.Background()

	count, maxAt, err := ConversationsStats(ctx, db, "u1")
	if err != nil || count != 0 || maxAt != nil {
		t.Fatalf("empty stats = %d, %v, %v", count, maxAt, err)
	}

	a, _ := CreateConversation(ctx, db, "u1", "a")
	b, _ := CreateConversation(ctx, db, "u1", "b")
	_ = a

	if err := MarkConversationDeleted(ctx, db, b.ID, "u1"); err != nil {
		t.Fatalf("delete b: %v", err)
	}

	count, maxAt, err = ConversationsStats(ctx, db, "u1")
	if err != nil || count != 1 || maxAt == nil {
		t.Fatalf("stats after delete = %d, %v, %v; want count 1", count, maxAt, err)
	}
}

func TestMessagesStats(t *testing.T) {
	db := newRepoDB(t, allModels()...)
	ctx := context.Background()
	conv, _ := CreateConversation(ctx, db, "u1", "t")

	count, maxAt, err := MessagesStats(ctx, db, conv.ID)
	if err != nil || count != 0 || maxAt != nil {
		t.Fatalf("empty stats = %d, %v, %v", count, maxAt, err)
	}

	insertMsg(t, db, conv.ID, domain.SenderUser, 0, time.Now().UTC())
	count, maxAt, err = MessagesStats(ctx, db, conv.ID)
	if err != nil || count != 1 || maxAt == nil {
		t.Fatalf("stats = %d, %v, %v; want count 1", count, maxAt, err)
	}
}
