// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides aggregate queries: the per-conversation
// statistics the aggregation service folds back onto the Conversation row,
// and lightweight metadata queries used for conditional responses (ETag
// generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/nkaralis/go-chat-portal/internal/domain"
)

// MessageAggregates holds the derived values recomputed from a conversation's
// message set after every turn.
type MessageAggregates struct {
	MessageCount     int64
	AverageSentiment float64
	LastMessageAt    *time.Time
}

// ComputeMessageAggregates derives the aggregate contract for a conversation
// from its non-deleted messages:
//
//   - MessageCount counts every sender.
//   - AverageSentiment averages sentiment_score over user messages whose
//     score is non-zero (zero is the unanalyzed sentinel); 0 when none exist.
//   - LastMessageAt is the greatest created_at, nil when there are no rows.
//
// The computation is read-only and idempotent; callers persist the result via
// UpdateConversationFields inside whatever transaction suits them.
func ComputeMessageAggregates(ctx context.Context, db *gorm.DB, conversationID string) (MessageAggregates, error) {
	var agg MessageAggregates

	q := db.WithContext(ctx).Model(&domain.Message{}).Where("conversation_id = ?", conversationID)

	if err := q.Session(&gorm.Session{}).Count(&agg.MessageCount).Error; err != nil {
		return agg, err
	}
	if agg.MessageCount == 0 {
		return agg, nil
	}

	var avg struct {
		Avg *float64
	}
	err := db.WithContext(ctx).Model(&domain.Message{}).
		Select("AVG(sentiment_score) AS avg").
		Where("conversation_id = ? AND sender = ? AND sentiment_score <> 0", conversationID, domain.SenderUser).
		Scan(&avg).Error
	if err != nil {
		return agg, err
	}
	if avg.Avg != nil {
		agg.AverageSentiment = *avg.Avg
	}

	// Get latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	err = db.WithContext(ctx).Model(&domain.Message{}).
		Select("created_at").
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Limit(1).
		Scan(&row).Error
	if err != nil {
		return agg, err
	}
	agg.LastMessageAt = &row.CreatedAt
	return agg, nil
}

// ConversationsStats returns aggregate metadata for a user's conversations:
// the total number of non-deleted rows and the maximum UpdatedAt timestamp
// among those rows. When the user has no conversations, the returned count is
// 0 and maxUpdatedAt is nil.
func ConversationsStats(ctx context.Context, db *gorm.DB, userID string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Conversation{}).
		Where("user_id = ? AND status <> ?", userID, domain.ConversationDeleted)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// MessagesStats returns aggregate metadata for messages within a given
// conversation: the total number of rows and the maximum UpdatedAt timestamp
// among those rows. When the conversation has no messages, the returned count
// is 0 and maxUpdatedAt is nil.
func MessagesStats(ctx context.Context, db *gorm.DB, conversationID string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Message{}).Where("conversation_id = ?", conversationID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
