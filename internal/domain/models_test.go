package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		Conversation{}.TableName():    "conversations",
		Message{}.TableName():         "messages",
		SentimentRecord{}.TableName(): "sentiment_records",
		TopicRecord{}.TableName():     "topic_records",
		Idempotency{}.TableName():     "idempotency",
	}
	for got, want := range cases {
		if got != want {
			t.Errorf("TableName = %q; want %q", got, want)
		}
	}
}

func TestConversation_SentimentLabel(t *testing.T) {
	cases := []struct {
		avg  float64
		want string
	}{
		{0.31, SentimentPositive},
		{0.9, SentimentPositive},
		{0.3, SentimentNeutral},
		{0.0, SentimentNeutral},
		{-0.3, SentimentNeutral},
		{-0.31, SentimentNegative},
		{-1.0, SentimentNegative},
	}
	for _, tc := range cases {
		c := &Conversation{AverageSentiment: tc.avg}
		if got := c.SentimentLabel(); got != tc.want {
			t.Errorf("SentimentLabel(avg=%v) = %q; want %q", tc.avg, got, tc.want)
		}
	}
}

func TestConversation_IsRecent(t *testing.T) {
	now := time.Now().UTC()
	c := &Conversation{UpdatedAt: now.Add(-23 * time.Hour)}
	if !c.IsRecent(now) {
		t.Fatalf("expected conversation updated 23h ago to be recent")
	}
	c.UpdatedAt = now.Add(-25 * time.Hour)
	if c.IsRecent(now) {
		t.Fatalf("expected conversation updated 25h ago to not be recent")
	}
}

func TestMessage_SenderHelpers(t *testing.T) {
	m := &Message{Sender: SenderUser}
	if !m.IsUserMessage() || m.IsAIMessage() {
		t.Fatalf("sender=user misclassified")
	}
	m.Sender = SenderAI
	if m.IsUserMessage() || !m.IsAIMessage() {
		t.Fatalf("sender=ai misclassified")
	}
	m.Sender = SenderSystem
	if m.IsUserMessage() || m.IsAIMessage() {
		t.Fatalf("sender=system misclassified")
	}
}

func TestMessage_Analyzed(t *testing.T) {
	m := &Message{}
	if m.Analyzed() {
		t.Fatalf("message without sentiment label must not be analyzed")
	}
	lbl := SentimentNeutral
	m.SentimentLabel = &lbl
	if !m.Analyzed() {
		t.Fatalf("message with sentiment label must be analyzed")
	}
}

func TestSentimentRecord_IsConfident(t *testing.T) {
	r := &SentimentRecord{Confidence: 0.8}
	if r.IsConfident() {
		t.Fatalf("confidence 0.8 must not be confident (strict >)")
	}
	r.Confidence = 0.81
	if !r.IsConfident() {
		t.Fatalf("confidence 0.81 must be confident")
	}
}

func TestMigration_CascadeDelete(t *testing.T) {
	db := newTestDB(t)
	db.Exec("PRAGMA foreign_keys=ON;")

	if err := db.AutoMigrate(&Conversation{}, &Message{}, &SentimentRecord{}, &TopicRecord{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	conv := &Conversation{ID: "c1", UserID: "u1", Title: DefaultConversationTitle, Status: ConversationActive}
	if err := db.Create(conv).Error; err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	msg := &Message{ID: "m1", ConversationID: "c1", Sender: SenderUser, Content: "hello", Status: StatusSent}
	if err := db.Create(msg).Error; err != nil {
		t.Fatalf("create message: %v", err)
	}

	// Hard-delete the conversation; the FK constraint must cascade.
	if err := db.Unscoped().Delete(&Conversation{}, "id = ?", "c1").Error; err != nil {
		t.Fatalf("delete conversation: %v", err)
	}
	var count int64
	if err := db.Model(&Message{}).Where("conversation_id = ?", "c1").Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected cascade delete of messages, still have %d", count)
	}
}

func TestMigration_ShareTokenUnique(t *testing.T) {
	db := newTestDB(t)
	if err := db.AutoMigrate(&Conversation{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	tok := "0123456789abcdef0123456789abcdef"
	c1 := &Conversation{ID: "c1", Title: "a", Status: ConversationActive, IsPublic: true, ShareToken: &tok}
	if err := db.Create(c1).Error; err != nil {
		t.Fatalf("create c1: %v", err)
	}
	dup := tok
	c2 := &Conversation{ID: "c2", Title: "b", Status: ConversationActive, IsPublic: true, ShareToken: &dup}
	if err := db.Create(c2).Error; err == nil {
		t.Fatalf("expected UNIQUE violation on duplicate share token")
	}
}
