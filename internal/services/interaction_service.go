// Package services – InteractionService
//
// This file implements the InteractionService, which governs how users react
// to messages: liking or disliking AI replies, attaching an emoji reaction,
// and pinning. It enforces business rules (message existence, conversation
// ownership, AI-only restriction for like/dislike, like/dislike exclusivity)
// and persists changes atomically. Service-level errors
// (ErrMessageNotFound, ErrForbiddenInteraction) are returned for predictable
// cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/nkaralis/go-chat-portal/internal/domain"
	"github.com/nkaralis/go-chat-portal/internal/repo"
)

// InteractionService implements the use-cases around message interactions.
// It validates the operation (ownership, sender restrictions) and persists
// the change using the provided GORM handle. Each call opens its own
// transaction so the checks and the update are atomic.
type InteractionService struct {
	// DB is the database handle used for all interaction operations.
	DB *gorm.DB
}

// SetLiked records or clears a like on an AI message.
//
// Semantics and validation:
//   - messageID must exist; otherwise ErrMessageNotFound.
//   - The message must belong to a conversation owned by userID; otherwise
//     ErrForbiddenInteraction.
//   - Likes apply only to AI messages; user and system messages are rejected
//     with ErrForbiddenInteraction.
//   - Liking clears any existing dislike: the two flags are exclusive.
func (s *InteractionService) SetLiked(ctx context.Context, userID, messageID string, liked bool) (*domain.Message, error) {
	fields := map[string]any{"is_liked": liked}
	if liked {
		fields["is_disliked"] = false
	}
	return s.updateAIMessage(ctx, userID, messageID, fields)
}

// SetDisliked records or clears a dislike on an AI message. Disliking clears
// any existing like; the rules otherwise match SetLiked.
func (s *InteractionService) SetDisliked(ctx context.Context, userID, messageID string, disliked bool) (*domain.Message, error) {
	fields := map[string]any{"is_disliked": disliked}
	if disliked {
		fields["is_liked"] = false
	}
	return s.updateAIMessage(ctx, userID, messageID, fields)
}

// SetReaction attaches an emoji reaction to any message in a conversation the
// user owns, or clears it when reaction is blank. Unlike likes, reactions are
// not restricted to AI messages.
func (s *InteractionService) SetReaction(ctx context.Context, userID, messageID, reaction string) (*domain.Message, error) {
	reaction = strings.TrimSpace(reaction)
	var value any
	if reaction != "" {
		value = reaction
	}
	return s.updateOwnedMessage(ctx, userID, messageID, map[string]any{"reaction": value}, false)
}

// SetPinned pins or unpins a message within a conversation the user owns.
func (s *InteractionService) SetPinned(ctx context.Context, userID, messageID string, pinned bool) (*domain.Message, error) {
	return s.updateOwnedMessage(ctx, userID, messageID, map[string]any{"is_pinned": pinned}, false)
}

// updateAIMessage applies fields to a message after the ownership check,
// additionally requiring the message to be AI-authored.
func (s *InteractionService) updateAIMessage(ctx context.Context, userID, messageID string, fields map[string]any) (*domain.Message, error) {
	return s.updateOwnedMessage(ctx, userID, messageID, fields, true)
}

func (s *InteractionService) updateOwnedMessage(ctx context.Context, userID, messageID string, fields map[string]any, aiOnly bool) (*domain.Message, error) {
	var out *domain.Message
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		msg, err := repo.GetMessage(ctx, tx, messageID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMessageNotFound
			}
			return err
		}

		// The conversation must exist, be non-deleted, and belong to this user.
		if _, err := repo.GetConversation(ctx, tx, msg.ConversationID, userID); err != nil {
			return ErrForbiddenInteraction
		}

		if aiOnly && !msg.IsAIMessage() {
			return ErrForbiddenInteraction
		}

		if err := repo.UpdateMessageFields(ctx, tx, messageID, fields); err != nil {
			return err
		}
		msg, err = repo.GetMessage(ctx, tx, messageID)
		if err != nil {
			return err
		}
		out = msg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
