// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the append-only
// analysis records (sentiment and topic).
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nkaralis/go-chat-portal/internal/domain"
)

// InsertSentimentRecord persists r, assigning an ID and UTC AnalyzedAt when
// unset. Records are append-only; there is deliberately no update function.
func InsertSentimentRecord(ctx context.Context, db *gorm.DB, r *domain.SentimentRecord) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.AnalyzedAt.IsZero() {
		r.AnalyzedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(r).Error
}

// ListSentimentRecords returns the sentiment history of a conversation in
// analysis order (oldest first).
func ListSentimentRecords(ctx context.Context, db *gorm.DB, conversationID string) ([]domain.SentimentRecord, error) {
	var out []domain.SentimentRecord
	err := db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("analyzed_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// InsertTopicRecord persists r, assigning an ID and UTC AnalyzedAt when unset.
func InsertTopicRecord(ctx context.Context, db *gorm.DB, r *domain.TopicRecord) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.AnalyzedAt.IsZero() {
		r.AnalyzedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(r).Error
}

// LatestTopicRecord returns the most recent topic extraction for a
// conversation, or ErrNotFound when none exists yet.
func LatestTopicRecord(ctx context.Context, db *gorm.DB, conversationID string) (*domain.TopicRecord, error) {
	var r domain.TopicRecord
	err := db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("analyzed_at DESC, id DESC").
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListTopicRecords returns the topic history of a conversation in analysis
// order (oldest first).
func ListTopicRecords(ctx context.Context, db *gorm.DB, conversationID string) ([]domain.TopicRecord, error) {
	var out []domain.TopicRecord
	err := db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("analyzed_at ASC, id ASC").
		Find(&out).Error
	return out, err
}
