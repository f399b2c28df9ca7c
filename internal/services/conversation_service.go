// Package services – ConversationService
//
// This file implements the ConversationService, which manages the lifecycle
// of conversations: creation, listing with pagination and filters, metadata
// updates, archiving, pinning, the terminal delete, and public sharing via
// stable share tokens. Title handling is intentionally minimal here because
// automatic title generation is performed by the turn pipeline on the first
// user message; the helpers for it live in this file so titling rules stay in
// one place.
//
// Service-level errors (e.g., ErrConversationNotFound) are returned for
// predictable cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nkaralis/go-chat-portal/internal/domain"
	"github.com/nkaralis/go-chat-portal/internal/repo"
	"github.com/nkaralis/go-chat-portal/internal/textutil"
)

// ConversationPatch carries optional metadata updates. Nil fields are left
// untouched.
type ConversationPatch struct {
	Title   *string
	Summary *string
	Topic   *string
	Tags    *string
}

// ConversationService provides conversation-level operations and enforces
// ownership constraints and title rules.
type ConversationService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// TitleMaxLen caps stored titles by rune length.
	TitleMaxLen int
	// TitleLocale controls casing during auto-titling.
	TitleLocale language.Tag
}

// NewConversationService constructs a ConversationService with sane defaults
// for title handling.
func NewConversationService(db *gorm.DB) *ConversationService {
	return &ConversationService{
		DB:          db,
		TitleMaxLen: 60,
		TitleLocale: language.Und,
	}
}

// Create inserts a new conversation owned by userID with the provided title.
// Titles are normalized, trimmed, clipped, and the placeholder fallback is
// applied when blank.
func (s *ConversationService) Create(ctx context.Context, userID, title string) (*domain.Conversation, error) {
	title = normalizeTitle(title)
	if title == "" {
		title = domain.DefaultConversationTitle
	}
	return repo.CreateConversation(ctx, s.DB, userID, s.clip(title))
}

// Get fetches a conversation by ID, enforcing ownership. Deleted
// conversations behave as missing.
func (s *ConversationService) Get(ctx context.Context, userID, id string) (*domain.Conversation, error) {
	c, err := repo.GetConversation(ctx, s.DB, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return c, nil
}

// ListPage returns a page of conversations for a user, pinned first then most
// recently updated. It applies defaults for invalid page/pageSize and returns
// the total count for pagination metadata.
func (s *ConversationService) ListPage(ctx context.Context, userID string, f repo.ConversationFilter, page, pageSize int) ([]domain.Conversation, int64, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("user.id", userID),
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

	total, err := repo.CountConversations(ctx, s.DB, userID, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Conversation{}, 0, nil
	}

	items, err := repo.ListConversationsPage(ctx, s.DB, userID, f, offset, pageSize)
	return items, total, err
}

// UpdateMetadata applies the non-nil fields of patch to a conversation.
// Blank titles fall back to the placeholder.
func (s *ConversationService) UpdateMetadata(ctx context.Context, userID, id string, patch ConversationPatch) (*domain.Conversation, error) {
	fields := map[string]any{}
	if patch.Title != nil {
		t := normalizeTitle(*patch.Title)
		if t == "" {
			t = domain.DefaultConversationTitle
		}
		fields["title"] = s.clip(t)
	}
	if patch.Summary != nil {
		fields["summary"] = strings.TrimSpace(*patch.Summary)
	}
	if patch.Topic != nil {
		fields["topic"] = strings.TrimSpace(*patch.Topic)
	}
	if patch.Tags != nil {
		fields["tags"] = strings.TrimSpace(*patch.Tags)
	}
	if len(fields) > 0 {
		if err := repo.UpdateConversationFields(ctx, s.DB, id, userID, fields); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrConversationNotFound
			}
			return nil, err
		}
	}
	return s.Get(ctx, userID, id)
}

// SetArchived moves a conversation between the active and archived states.
// Both directions are allowed; only delete is terminal.
func (s *ConversationService) SetArchived(ctx context.Context, userID, id string, archived bool) (*domain.Conversation, error) {
	status := domain.ConversationActive
	if archived {
		status = domain.ConversationArchived
	}
	err := repo.UpdateConversationFields(ctx, s.DB, id, userID, map[string]any{
		"status":      status,
		"is_archived": archived,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return s.Get(ctx, userID, id)
}

// SetPinned toggles the pinned flag. Pinned conversations sort first in
// listings.
func (s *ConversationService) SetPinned(ctx context.Context, userID, id string, pinned bool) (*domain.Conversation, error) {
	err := repo.UpdateConversationFields(ctx, s.DB, id, userID, map[string]any{"is_pinned": pinned})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return s.Get(ctx, userID, id)
}

// Delete marks a conversation deleted. The transition is terminal: the
// conversation stops appearing in any lookup and cannot be restored.
func (s *ConversationService) Delete(ctx context.Context, userID, id string) error {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(
			attribute.String("conversation.id", id),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	if err := repo.MarkConversationDeleted(ctx, s.DB, id, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrConversationNotFound
		}
		return err
	}
	return nil
}

// SetPublic toggles public sharing. The share token is generated exactly once
// on the first transition to public and stays stable across later toggles, so
// previously distributed links resume working when sharing is re-enabled.
func (s *ConversationService) SetPublic(ctx context.Context, userID, id string, public bool) (*domain.Conversation, error) {
	var out *domain.Conversation
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := repo.GetConversation(ctx, tx, id, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrConversationNotFound
			}
			return err
		}

		fields := map[string]any{"is_public": public}
		if public && c.ShareToken == nil {
			token := textutil.NewShareToken()
			fields["share_token"] = token
			c.ShareToken = &token
		}
		if err := repo.UpdateConversationFields(ctx, tx, id, userID, fields); err != nil {
			return err
		}
		c.IsPublic = public
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RegenerateShareToken replaces the share token with a fresh one,
// invalidating previously distributed links. The conversation must already
// be public.
func (s *ConversationService) RegenerateShareToken(ctx context.Context, userID, id string) (*domain.Conversation, error) {
	c, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !c.IsPublic {
		return nil, ErrConversationNotPublic
	}
	token := textutil.NewShareToken()
	if err := repo.UpdateConversationFields(ctx, s.DB, id, userID, map[string]any{"share_token": token}); err != nil {
		return nil, err
	}
	c.ShareToken = &token
	return c, nil
}

// GetShared resolves a public conversation by share token, along with its
// messages in stable order. No ownership check applies; the token is the
// capability. Unknown and revoked tokens are indistinguishable: both report
// not-found so token validity is never revealed.
func (s *ConversationService) GetShared(ctx context.Context, token string) (*domain.Conversation, []domain.Message, error) {
	c, err := repo.GetConversationByShareToken(ctx, s.DB, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrConversationNotFound
		}
		return nil, nil, err
	}
	msgs, err := repo.ListMessages(ctx, s.DB, c.ID, 0)
	if err != nil {
		return nil, nil, err
	}
	return c, msgs, nil
}

// ShouldAutoTitle reports whether the current title is a placeholder eligible
// for auto-generation from the first user prompt.
func (s *ConversationService) ShouldAutoTitle(current string) bool {
	t := strings.TrimSpace(strings.ToLower(current))
	return t == "" || t == strings.ToLower(domain.DefaultConversationTitle)
}

// TitleFromPrompt derives a concise title from the prompt: the first eight
// non-stopword tokens, title-cased in the configured locale.
func (s *ConversationService) TitleFromPrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ""
	}
	toks := titleWordRE.FindAllString(strings.ToLower(prompt), -1)
	if len(toks) == 0 {
		return ""
	}

	titleCaser := cases.Title(s.titleLocaleOrDefault())
	out := make([]string, 0, 8)

	for _, w := range toks {
		if _, skip := titleStopWords[w]; skip {
			continue
		}
		out = append(out, titleCaser.String(w))
		if len(out) >= 8 {
			break
		}
	}
	if len(out) == 0 {
		return ""
	}
	return s.clip(strings.Join(out, " "))
}

// clip truncates a title to the configured maximum rune length.
func (s *ConversationService) clip(title string) string {
	if s.TitleMaxLen > 0 && utf8.RuneCountInString(title) > s.TitleMaxLen {
		return string([]rune(title)[:s.TitleMaxLen])
	}
	return title
}

// titleLocaleOrDefault returns the configured locale for casing or English if unset.
func (s *ConversationService) titleLocaleOrDefault() language.Tag {
	if s.TitleLocale == language.Und {
		return language.English
	}
	return s.TitleLocale
}

// normalizeTitle trims whitespace and collapses multiple spaces to one.
func normalizeTitle(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)

// Extract Unicode letters with optional trailing numbers (e.g., "sprint3").
var titleWordRE = regexp.MustCompile(`[\p{L}]+[\p{N}]*`)

// Minimal English stop-words set for compact titles.
var titleStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "to": {}, "in": {},
	"is": {}, "are": {}, "for": {}, "on": {}, "with": {}, "by": {}, "from": {},
	"at": {}, "as": {}, "that": {}, "this": {}, "it": {}, "be": {}, "was": {}, "were": {},
}
