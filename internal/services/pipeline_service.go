// Package services – TurnPipeline
//
// This file implements the conversation turn pipeline: validating and
// sanitizing the user's text, persisting the user message with its sentiment,
// orchestrating the AI reply, persisting the outcome, and recomputing the
// conversation aggregates. Turns on the same conversation are serialized by a
// per-conversation lock; turns on different conversations proceed in
// parallel. The lock is held only around the persistence steps, never across
// the inference call.
//
// Once the user message has been persisted the turn runs to completion even
// if the caller's context is cancelled: a stored user message without a
// matching AI message would violate the turn contract, so the remaining steps
// use a cancellation-free context.
package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"unicode/utf8"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nkaralis/go-chat-portal/internal/analysis"
	"github.com/nkaralis/go-chat-portal/internal/domain"
	"github.com/nkaralis/go-chat-portal/internal/repo"
	"github.com/nkaralis/go-chat-portal/internal/textutil"
)

// TurnResult is the outcome of one submitted turn: the persisted user
// message, the persisted AI message (delivered or failed), and the
// conversation with freshly recomputed aggregates.
type TurnResult struct {
	UserMessage  *domain.Message      `json:"user_message"`
	AIMessage    *domain.Message      `json:"ai_message"`
	Conversation *domain.Conversation `json:"conversation"`
}

// TurnPipeline coordinates the full lifecycle of a conversation turn.
type TurnPipeline struct {
	DB            *gorm.DB
	Conversations *ConversationService
	Orchestrator  *ResponseOrchestrator
	Sentiment     *analysis.SentimentAnalyzer
	Topics        *analysis.TopicExtractor
	Aggregates    *AggregationService

	// MaxMessageRunes rejects oversized turns before any persistence.
	MaxMessageRunes int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// lockFor returns the mutex serializing turns for one conversation.
func (p *TurnPipeline) lockFor(conversationID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.locks == nil {
		p.locks = make(map[string]*sync.Mutex)
	}
	l, ok := p.locks[conversationID]
	if !ok {
		l = &sync.Mutex{}
		p.locks[conversationID] = l
	}
	return l
}

// SubmitTurn runs the full pipeline for one user utterance and returns the
// persisted turn. Validation failures (empty or oversized text, missing
// conversation) surface as service errors before anything is written; from
// the user-message insert onward the turn always completes and always ends
// with an AI message, failed or not.
func (p *TurnPipeline) SubmitTurn(ctx context.Context, userID, conversationID, text string) (*TurnResult, error) {
	tr := otel.Tracer("services/TurnPipeline")
	ctx, span := tr.Start(ctx, "SubmitTurn",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if p.MaxMessageRunes > 0 && utf8.RuneCountInString(text) > p.MaxMessageRunes {
		return nil, ErrMessageTooLong
	}
	text = textutil.Sanitize(text, p.MaxMessageRunes)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	conv, err := p.Conversations.Get(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	sentiment := p.Sentiment.Analyze(ctx, text)

	// Persist the user message, its sentiment, and the auto-title under the
	// conversation lock.
	lock := p.lockFor(conversationID)
	lock.Lock()
	var (
		userMsg *domain.Message
		history []domain.Message
	)
	err = p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Context window is the state before this turn's user message.
		var herr error
		history, herr = repo.LastMessages(ctx, tx, conversationID, p.Orchestrator.ContextWindow)
		if herr != nil {
			return herr
		}

		userMsg = &domain.Message{
			ConversationID: conversationID,
			Sender:         domain.SenderUser,
			Content:        text,
			Status:         domain.StatusSent,
		}
		if sentiment.Available {
			userMsg.SentimentScore = sentiment.Score
			label := sentiment.Label
			userMsg.SentimentLabel = &label
		}
		if err := repo.InsertMessage(ctx, tx, userMsg); err != nil {
			return err
		}

		if sentiment.Available {
			if err := repo.InsertSentimentRecord(ctx, tx, p.sentimentRecord(userMsg, sentiment, text)); err != nil {
				return err
			}
		}

		if p.Conversations.ShouldAutoTitle(conv.Title) {
			if gen := p.Conversations.TitleFromPrompt(text); gen != "" {
				if uerr := tx.Model(&domain.Conversation{}).Where("id = ?", conversationID).
					Update("title", gen).Error; uerr == nil {
					conv.Title = gen
				}
			}
		}

		return p.Aggregates.Recompute(ctx, tx, conversationID)
	})
	lock.Unlock()
	if err != nil {
		return nil, err
	}

	// The user message is durable; the rest of the turn must not be aborted
	// by the caller hanging up.
	ctx = context.WithoutCancel(ctx)

	reply := p.Orchestrator.GenerateReply(ctx, history, text)

	lock.Lock()
	var aiMsg *domain.Message
	err = p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		aiMsg = &domain.Message{
			ConversationID: conversationID,
			Sender:         domain.SenderAI,
			Content:        reply.Content,
			Status:         reply.Status,
			ErrorMessage:   reply.ErrorMessage,
			ModelUsed:      reply.ModelUsed,
			ResponseTimeMs: reply.ResponseTimeMs,
			TokenCount:     reply.TokenCount,
		}
		if err := repo.InsertMessage(ctx, tx, aiMsg); err != nil {
			return err
		}

		if err := p.recordTopics(ctx, tx, conv, text, reply); err != nil {
			return err
		}

		return p.Aggregates.Recompute(ctx, tx, conversationID)
	})
	lock.Unlock()
	if err != nil {
		return nil, err
	}

	conv, err = p.Conversations.Get(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	return &TurnResult{UserMessage: userMsg, AIMessage: aiMsg, Conversation: conv}, nil
}

// sentimentRecord expands a SentimentResult into the append-only analytics
// row stored next to the message.
func (p *TurnPipeline) sentimentRecord(m *domain.Message, res analysis.SentimentResult, text string) *domain.SentimentRecord {
	rec := &domain.SentimentRecord{
		MessageID:      m.ID,
		ConversationID: m.ConversationID,
		Label:          res.Label,
		Confidence:     abs(res.Score),
		ModelUsed:      p.Sentiment.ModelName(),
	}
	switch res.Label {
	case domain.SentimentPositive:
		rec.PositiveScore = res.Score
		rec.NeutralScore = 1 - res.Score
	case domain.SentimentNegative:
		rec.NegativeScore = -res.Score
		rec.NeutralScore = 1 + res.Score
	default:
		rec.NeutralScore = 1
	}
	if kws := textutil.ExtractKeywords(text, 4); len(kws) > 0 {
		if b, err := json.Marshal(kws); err == nil {
			rec.KeyPhrases = string(b)
		}
	}
	return rec
}

// recordTopics extracts topics from the turn's text, stores an append-only
// topic row, and updates the conversation's current topic. Failed replies
// contribute only the user's text so fallback phrasing never skews topics.
func (p *TurnPipeline) recordTopics(ctx context.Context, tx *gorm.DB, conv *domain.Conversation, userText string, reply Reply) error {
	corpus := userText
	if !reply.Failed() {
		corpus += "\n" + reply.Content
	}

	res := p.Topics.Extract(corpus, analysis.DefaultTopK)

	rec := &domain.TopicRecord{
		ConversationID: conv.ID,
		PrimaryTopic:   res.PrimaryTopic,
		Category:       res.Category,
		Confidence:     res.Confidence,
		ModelUsed:      "keyword-frequency",
	}
	if b, err := json.Marshal(res.SecondaryTopics); err == nil {
		rec.SecondaryTopics = string(b)
	}
	if b, err := json.Marshal(res.Keywords); err == nil {
		rec.Keywords = string(b)
	}
	if err := repo.InsertTopicRecord(ctx, tx, rec); err != nil {
		return err
	}

	return tx.Model(&domain.Conversation{}).
		Where("id = ?", conv.ID).
		Update("topic", res.PrimaryTopic).Error
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
