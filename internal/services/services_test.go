package services

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nkaralis/go-chat-portal/internal/domain"
	"github.com/nkaralis/go-chat-portal/internal/llm"
	"github.com/nkaralis/go-chat-portal/internal/repo"
)

// newServiceDB opens a file-backed SQLite DB in a temp dir with the full
// schema migrated.
func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("svc_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	// Concurrent turn tests need writers to wait instead of failing fast.
	if err := db.Exec("PRAGMA busy_timeout = 5000").Error; err != nil {
		t.Fatalf("busy_timeout: %v", err)
	}

	if err := db.AutoMigrate(
		&domain.Conversation{},
		&domain.Message{},
		&domain.SentimentRecord{},
		&domain.TopicRecord{},
		&domain.Idempotency{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// seedConversation creates a conversation owned by userID.
func seedConversation(t *testing.T, db *gorm.DB, userID, title string) *domain.Conversation {
	t.Helper()
	c, err := repo.CreateConversation(context.Background(), db, userID, title)
	if err != nil {
		t.Fatalf("seed conversation: %v", err)
	}
	return c
}

// seedMessage inserts a message directly, bypassing the pipeline.
func seedMessage(t *testing.T, db *gorm.DB, convID, sender, content string) *domain.Message {
	t.Helper()
	m := &domain.Message{
		ConversationID: convID,
		Sender:         sender,
		Content:        content,
		Status:         domain.StatusSent,
	}
	if err := repo.InsertMessage(context.Background(), db, m); err != nil {
		t.Fatalf("seed message: %v", err)
	}
	return m
}

// fakeLLM is an llm.Client double. Each call appends the request it saw;
// responses and errors are served in order, repeating the last entry.
type fakeLLM struct {
	requests  []*llm.CompletionRequest
	responses []*llm.CompletionResponse
	errs      []error
}

func (f *fakeLLM) Complete(_ context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.requests = append(f.requests, req)
	i := len(f.requests) - 1
	pick := func(n int) int {
		if i < n {
			return i
		}
		return n - 1
	}
	var err error
	if len(f.errs) > 0 {
		err = f.errs[pick(len(f.errs))]
	}
	if err != nil {
		return nil, err
	}
	if len(f.responses) == 0 {
		return &llm.CompletionResponse{Content: "ok"}, nil
	}
	return f.responses[pick(len(f.responses))], nil
}

func (f *fakeLLM) Name() string { return "fake" }

func strptr(s string) *string { return &s }
