// Message HTTP handlers.
//
// This file exposes REST endpoints for conversation messages:
//   - POST   /conversations/{id}/messages  (submit a turn: user message + AI reply)
//   - GET    /conversations/{id}/messages  (list paginated messages)
//   - DELETE /messages/{id}                (soft-delete one message)
//
// Handlers are transport-thin:
//   - validate & normalize inputs (including newline and length constraints)
//   - delegate to the turn pipeline and message service
//   - implement conditional responses (ETag) and idempotency semantics
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// turn exists for (user, conversation, key), the handler returns the recorded
// AI message and sets `Idempotency-Replayed: true` without running a new turn.
package handlers

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nkaralis/go-chat-portal/internal/domain"
	"github.com/nkaralis/go-chat-portal/internal/http/middleware"
	"github.com/nkaralis/go-chat-portal/internal/repo"
	"github.com/nkaralis/go-chat-portal/internal/services"
)

//
// DTOs
//

// SubmitTurnRequest is the JSON payload for submitting a user turn.
//
// Content is normalized by the handler (line endings and excessive blank
// lines) before being passed to the pipeline. The pipeline enforces the
// configured maximum rune count a second time.
type SubmitTurnRequest struct {
	// Content is the user utterance. It must be non-empty.
	Content string `json:"content" binding:"required,min=1" example:"How do I roll back a failed deployment?"`
}

// SubmitTurnResponse is the JSON envelope for a completed turn. On an
// idempotent replay only the AI message and conversation are populated.
type SubmitTurnResponse struct {
	UserMessage  *domain.Message      `json:"user_message,omitempty"`
	AIMessage    *domain.Message      `json:"ai_message"`
	Conversation *domain.Conversation `json:"conversation,omitempty"`
}

// ListMessagesResponse contains a page of messages and pagination metadata.
type ListMessagesResponse struct {
	Messages   []domain.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

//
// Helpers
//

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeContent normalizes user text for consistent downstream behavior:
//   - converts CRLF/CR to LF,
//   - collapses runs of 3+ LFs to exactly two (paragraph separation),
//   - trims surrounding whitespace.
func sanitizeContent(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// maxTurnRunes reads the pipeline's configured turn-length limit, with a
// conservative fallback when the pipeline is not wired.
func (h *Handlers) maxTurnRunes() int {
	const fallback = 2000
	if h.pipeline != nil && h.pipeline.MaxMessageRunes > 0 {
		return h.pipeline.MaxMessageRunes
	}
	return fallback
}

//
// Handlers
//

// SubmitTurn godoc
// @ID          submitTurn
// @Summary     Send a message and get an AI reply
// @Description Appends a user message to the conversation, runs sentiment and topic
// @Description analysis, generates an AI reply, and refreshes the conversation
// @Description aggregates. Supports idempotency via the Idempotency-Key header
// @Description (same key → same recorded result).
// @Tags        Messages
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"  example(user123)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       id               path    string  true  "Conversation ID (UUID)" format(uuid)
// @Param       body             body    handlers.SubmitTurnRequest  true  "User message payload"
//
// @Success     200  {object}  handlers.SubmitTurnResponse  "Completed turn"
// @Failure     400  {object}  handlers.ErrorResponse       "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse       "Conversation not found"
// @Failure     500  {object}  handlers.ErrorResponse       "Internal error"
// @Router      /conversations/{id}/messages [post]
func (h *Handlers) SubmitTurn(c *gin.Context) {
	ctx := c.Request.Context()

	conversationID, valid := pathUUID(c)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversation id must be a UUID")
		return
	}

	var req SubmitTurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}

	// Sanitize + early size cap to fail fast at the edge.
	content := sanitizeContent(req.Content)
	maxRunes := h.maxTurnRunes()
	if utf8.RuneCountInString(content) > maxRunes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("content too long: max %d runes", maxRunes))
		return
	}
	if content == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}

	currentUser := userID(c)

	// Idempotency (replay path) reads the key validated upstream.
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" {
		if rec, err := repo.GetIdempotency(ctx, h.db, currentUser, conversationID, idemKey, time.Now().UTC()); err == nil && rec != nil {
			if prev, err2 := repo.GetMessage(ctx, h.db, rec.MessageID); err2 == nil {
				conv, _ := h.convSvc.Get(ctx, currentUser, conversationID)
				c.Header("Idempotency-Replayed", "true")
				ok(c, http.StatusOK, SubmitTurnResponse{AIMessage: prev, Conversation: conv})
				return
			}
		}
	}

	res, err := h.pipeline.SubmitTurn(ctx, currentUser, conversationID, content)
	if err != nil {
		switch err {
		case services.ErrConversationNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
		case services.ErrMessageTooLong:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("content too long: max %d runes", maxRunes))
		case services.ErrEmptyMessage:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeTurnFailed, err.Error())
		}
		return
	}

	// Idempotency (store path) is best effort.
	if idemKey != "" && res.AIMessage != nil {
		_, _ = repo.CreateIdempotency(ctx, h.db, currentUser, conversationID, idemKey, res.AIMessage.ID, http.StatusOK, h.idempotencyTTL)
	}

	ok(c, http.StatusOK, SubmitTurnResponse{
		UserMessage:  res.UserMessage,
		AIMessage:    res.AIMessage,
		Conversation: res.Conversation,
	})
}

// ListMessages godoc
// @ID          listMessages
// @Summary     List messages in a conversation
// @Description Returns a paginated list of messages in stable chronological order.
// @Description Supports weak ETag via If-None-Match and may return 304.
// @Tags        Messages
// @Produce     json
//
// @Param       X-User-ID      header  string  false "User ID (demo header)"       example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       id             path    string  true  "Conversation ID (UUID)"      format(uuid)
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListMessagesResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Conversation not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /conversations/{id}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()

	conversationID, valid := pathUUID(c)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversation id must be a UUID")
		return
	}

	// ETag pre-check (best effort).
	if count, maxTS, err := repo.MessagesStats(ctx, h.db, conversationID); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.Unix()
		}
		etag := fmt.Sprintf(`W/"messages:%s:%d:%d"`, conversationID, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	page, pageSize := clampPagination(c)

	items, total, err := h.msgSvc.ListPage(ctx, userID(c), conversationID, page, pageSize)
	if err != nil {
		switch err {
		case services.ErrConversationNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		}
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListMessagesResponse{
		Messages: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// DeleteMessage godoc
// @ID          deleteMessage
// @Summary     Delete a message
// @Description Soft-deletes one message and refreshes the conversation aggregates.
// @Tags        Messages
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Message ID (UUID)"      format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Message not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /messages/{id} [delete]
func (h *Handlers) DeleteMessage(c *gin.Context) {
	messageID := c.Param("id")
	if _, err := uuid.Parse(messageID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message id must be a UUID")
		return
	}

	if err := h.msgSvc.Delete(c.Request.Context(), userID(c), messageID); err != nil {
		switch err {
		case services.ErrMessageNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "message not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	noContent(c)
}
