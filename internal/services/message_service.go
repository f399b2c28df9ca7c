// Package services – MessageService
//
// This file implements MessageService, which owns read access to a
// conversation's messages and the soft deletion of individual messages.
// Submission of new turns lives in TurnPipeline; this service only exposes
// the stored transcript.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nkaralis/go-chat-portal/internal/domain"
	"github.com/nkaralis/go-chat-portal/internal/repo"
)

// MessageService coordinates message reads and deletions, enforcing
// conversation ownership on every call.
type MessageService struct {
	DB         *gorm.DB
	Aggregates *AggregationService
}

// ListPage returns paginated messages for a conversation in stable
// (CreatedAt, ID) order, after verifying the conversation belongs to userID.
func (s *MessageService) ListPage(ctx context.Context, userID, conversationID string, page, pageSize int) ([]domain.Message, int64, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	if _, err := repo.GetConversation(ctx, s.DB, conversationID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrConversationNotFound
		}
		return nil, 0, err
	}

	total, err := repo.CountMessages(ctx, s.DB, conversationID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Message{}, 0, nil
	}

	items, err := repo.ListMessagesPage(ctx, s.DB, conversationID, offset, pageSize)
	return items, total, err
}

// Delete soft-deletes a message in a conversation owned by userID and
// recomputes the conversation aggregates, since the message count (and
// possibly the sentiment average) changed.
func (s *MessageService) Delete(ctx context.Context, userID, messageID string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		msg, err := repo.GetMessage(ctx, tx, messageID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMessageNotFound
			}
			return err
		}
		if _, err := repo.GetConversation(ctx, tx, msg.ConversationID, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMessageNotFound
			}
			return err
		}
		if err := repo.DeleteMessage(ctx, tx, messageID); err != nil {
			return err
		}
		return s.Aggregates.Recompute(ctx, tx, msg.ConversationID)
	})
}
