// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Conversation model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a conversation is not found, functions return
//     gorm.ErrRecordNotFound (also exported here as ErrNotFound).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Conversations with status "deleted" are excluded by every lookup; deletion
// is terminal and enforced here so the service layer never has to re-check.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nkaralis/go-chat-portal/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ConversationFilter narrows ListConversationsPage results. Zero values mean
// "no constraint". Pinned is tri-state: nil matches everything, otherwise
// only conversations whose is_pinned equals the pointed-to value.
type ConversationFilter struct {
	Status string // active|archived
	Pinned *bool
	Topic  string
}

// CreateConversation inserts a new Conversation row owned by userID. An empty
// title falls back to the placeholder title. The ID is a randomly generated
// UUID and CreatedAt is set to UTC.
func CreateConversation(ctx context.Context, db *gorm.DB, userID, title string) (*domain.Conversation, error) {
	if title == "" {
		title = domain.DefaultConversationTitle
	}
	now := time.Now().UTC()
	c := &domain.Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Status:    domain.ConversationActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetConversation fetches a single conversation by its ID and owner (userID).
// Deleted conversations are treated as missing. If the record does not exist,
// it returns ErrNotFound.
func GetConversation(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Conversation, error) {
	var c domain.Conversation
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND status <> ?", id, userID, domain.ConversationDeleted).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetConversationByShareToken fetches a public conversation by its share
// token, regardless of owner. Non-public or deleted conversations are treated
// as missing.
func GetConversationByShareToken(ctx context.Context, db *gorm.DB, token string) (*domain.Conversation, error) {
	var c domain.Conversation
	err := db.WithContext(ctx).
		Where("share_token = ? AND is_public = ? AND status <> ?", token, true, domain.ConversationDeleted).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CountConversations returns the number of non-deleted conversations owned by
// userID that match the filter.
func CountConversations(ctx context.Context, db *gorm.DB, userID string, f ConversationFilter) (int64, error) {
	var total int64
	err := conversationQuery(db.WithContext(ctx), userID, f).Count(&total).Error
	return total, err
}

// ListConversationsPage returns a paginated slice of conversations for
// userID, pinned first, then most recently updated. Use CountConversations to
// obtain the total for pagination metadata.
//
// The caller is responsible for computing offset and limit (e.g., (page-1)*pageSize).
func ListConversationsPage(ctx context.Context, db *gorm.DB, userID string, f ConversationFilter, offset, limit int) ([]domain.Conversation, error) {
	var out []domain.Conversation
	err := conversationQuery(db.WithContext(ctx), userID, f).
		Order("is_pinned DESC, updated_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

func conversationQuery(db *gorm.DB, userID string, f ConversationFilter) *gorm.DB {
	q := db.Model(&domain.Conversation{}).
		Where("user_id = ? AND status <> ?", userID, domain.ConversationDeleted)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Pinned != nil {
		q = q.Where("is_pinned = ?", *f.Pinned)
	}
	if f.Topic != "" {
		q = q.Where("topic = ?", f.Topic)
	}
	return q
}

// UpdateConversationFields applies the given column updates to a conversation
// identified by id and owned by userID. Deleted conversations cannot be
// updated. If no rows are affected, it returns ErrNotFound.
func UpdateConversationFields(ctx context.Context, db *gorm.DB, id, userID string, fields map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ? AND user_id = ? AND status <> ?", id, userID, domain.ConversationDeleted).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkConversationDeleted sets the terminal "deleted" status on a
// conversation. The row is kept (messages and analytics stay queryable for
// retention jobs) but every lookup in this package stops returning it.
func MarkConversationDeleted(ctx context.Context, db *gorm.DB, id, userID string) error {
	return UpdateConversationFields(ctx, db, id, userID, map[string]any{
		"status":      domain.ConversationDeleted,
		"is_public":   false,
		"is_pinned":   false,
		"is_archived": false,
	})
}
