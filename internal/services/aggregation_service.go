// Package services – AggregationService
//
// This file implements the aggregate recomputation that keeps the derived
// fields on a Conversation row (message_count, average_sentiment,
// last_message_at) consistent with its message set. Recomputation is a full
// derivation from current messages rather than an incremental adjustment, so
// it is idempotent and self-healing: running it twice in a row changes
// nothing, and a missed run is fully repaired by the next one.
package services

import (
	"context"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nkaralis/go-chat-portal/internal/domain"
	"github.com/nkaralis/go-chat-portal/internal/repo"
)

// AggregationService recomputes conversation aggregates from messages.
type AggregationService struct {
	DB *gorm.DB
}

// Recompute derives the aggregate contract from the conversation's current
// messages and folds it onto the conversation row. It accepts an explicit db
// handle so callers can run it inside the same transaction that mutated the
// messages; pass s.DB for a standalone run.
//
// The conversation's UpdatedAt advances as a side effect of the update, which
// moves it to the top of recency-ordered listings after every turn.
func (s *AggregationService) Recompute(ctx context.Context, db *gorm.DB, conversationID string) error {
	tr := otel.Tracer("services/AggregationService")
	ctx, span := tr.Start(ctx, "Recompute",
		trace.WithAttributes(attribute.String("conversation.id", conversationID)),
	)
	defer span.End()

	if db == nil {
		db = s.DB
	}

	agg, err := repo.ComputeMessageAggregates(ctx, db, conversationID)
	if err != nil {
		return err
	}

	return db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ?", conversationID).
		Updates(map[string]any{
			"message_count":     agg.MessageCount,
			"average_sentiment": agg.AverageSentiment,
			"last_message_at":   agg.LastMessageAt,
		}).Error
}
