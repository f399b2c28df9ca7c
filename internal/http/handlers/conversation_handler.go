// Conversation HTTP handlers.
//
// This file exposes REST endpoints for conversation resources:
//   - POST   /conversations                        (create)
//   - GET    /conversations                        (list, paginated, ETag support)
//   - GET    /conversations/{id}                   (fetch one)
//   - PATCH  /conversations/{id}                   (update title/summary/topic/tags)
//   - POST   /conversations/{id}/pin               (pin / unpin)
//   - POST   /conversations/{id}/archive           (archive / restore)
//   - POST   /conversations/{id}/share             (publish / unpublish)
//   - POST   /conversations/{id}/share/regenerate  (rotate share token)
//   - DELETE /conversations/{id}                   (soft delete)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nkaralis/go-chat-portal/internal/analysis"
	"github.com/nkaralis/go-chat-portal/internal/domain"
	"github.com/nkaralis/go-chat-portal/internal/repo"
	"github.com/nkaralis/go-chat-portal/internal/services"
	"github.com/nkaralis/go-chat-portal/internal/utils"
)

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for conversations, messages, turns,
// interactions, exports, insights, sharing, and search.
type Handlers struct {
	db *gorm.DB

	convSvc      *services.ConversationService
	msgSvc       *services.MessageService
	pipeline     *services.TurnPipeline
	interactSvc  *services.InteractionService
	exportSvc    *services.ExportService
	analyticsSvc *services.AnalyticsService
	searchSvc    *services.SearchService

	// idempotencyTTL bounds how long a recorded Idempotency-Key stays valid.
	idempotencyTTL time.Duration
}

// New constructs a Handlers instance bound to db. The turn pipeline is
// injected because it carries the LLM orchestrator and analysis stack; the
// remaining services only need the database handle. embeddings may be nil,
// which keeps search purely lexical.
func New(db *gorm.DB, pipeline *services.TurnPipeline, embeddings *analysis.EmbeddingService, idempotencyTTL time.Duration) *Handlers {
	searchSvc := services.NewSearchService(db)
	searchSvc.Embeddings = embeddings

	return &Handlers{
		db:             db,
		convSvc:        services.NewConversationService(db),
		msgSvc:         &services.MessageService{DB: db, Aggregates: &services.AggregationService{DB: db}},
		pipeline:       pipeline,
		interactSvc:    &services.InteractionService{DB: db},
		exportSvc:      services.NewExportService(db),
		analyticsSvc:   services.NewAnalyticsService(db),
		searchSvc:      searchSvc,
		idempotencyTTL: idempotencyTTL,
	}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

//
// DTOs
//

// CreateConversationRequest is the JSON payload for creating a conversation.
type CreateConversationRequest struct {
	// Title optionally sets the conversation title; a default is used when empty.
	Title string `json:"title" example:"Kubernetes upgrade plan"`
}

// UpdateConversationRequest is the JSON payload for PATCHing conversation
// metadata. All fields are optional; absent fields are left unchanged.
type UpdateConversationRequest struct {
	Title   *string `json:"title,omitempty" example:"Renamed conversation"`
	Summary *string `json:"summary,omitempty" example:"Planning the Q3 cluster upgrade"`
	Topic   *string `json:"topic,omitempty" example:"technical"`
	Tags    *string `json:"tags,omitempty" example:"infra,k8s"`
}

// FlagRequest toggles a boolean resource state (pin, archive, share).
type FlagRequest struct {
	Enabled bool `json:"enabled" example:"true"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListConversationsResponse wraps a page of conversations plus pagination.
type ListConversationsResponse struct {
	Conversations []domain.Conversation `json:"conversations"`
	Pagination    Pagination            `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.ClampInt(utils.AtoiDefault(c.Query("page"), defaultPage), 1, 1<<30)
	pageSize = utils.ClampInt(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}

// conversationFilter reads optional list filters from the query string.
// status accepts "active"/"archived"; pinned accepts "true"/"false".
func conversationFilter(c *gin.Context) (repo.ConversationFilter, error) {
	var f repo.ConversationFilter
	switch status := c.Query("status"); status {
	case "", domain.ConversationActive, domain.ConversationArchived:
		f.Status = status
	default:
		return f, fmt.Errorf("status must be %q or %q", domain.ConversationActive, domain.ConversationArchived)
	}
	if raw := c.Query("pinned"); raw != "" {
		pinned, err := strconv.ParseBool(raw)
		if err != nil {
			return f, errors.New("pinned must be true or false")
		}
		f.Pinned = &pinned
	}
	return f, nil
}

// pathUUID validates the :id path parameter as a UUID.
func pathUUID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

// failConversation maps conversation service errors onto the error envelope.
func failConversation(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrConversationNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
	case errors.Is(err, services.ErrConversationNotPublic):
		fail(c, http.StatusConflict, ErrCodeConflict, "conversation is not shared")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

//
// Handlers
//

// CreateConversation godoc
// @ID          createConversation
// @Summary     Create a new conversation
// @Description Creates a conversation for the current user and returns the resource.
// @Tags        Conversations
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       body       body    handlers.CreateConversationRequest  true  "Create conversation payload"
//
// @Success     201  {object}  domain.Conversation
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /conversations [post]
func (h *Handlers) CreateConversation(c *gin.Context) {
	var req CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	conv, err := h.convSvc.Create(c.Request.Context(), userID(c), strings.TrimSpace(req.Title))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	ok(c, http.StatusCreated, conv)
}

// ListConversations godoc
// @ID          listConversations
// @Summary     List conversations (paginated)
// @Description Returns a page of the user's conversations, newest activity first.
// @Description Supports weak ETag via If-None-Match and may return 304.
// @Tags        Conversations
// @Produce     json
//
// @Param       X-User-ID      header  string  false "User ID (demo header)"       example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       status         query   string  false "Filter by status"            Enums(active, archived)
// @Param       pinned         query   bool    false "Filter by pinned flag"
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListConversationsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /conversations [get]
func (h *Handlers) ListConversations(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	filter, err := conversationFilter(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if count, maxTS, err := repo.ConversationsStats(ctx, h.db, uid); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.Unix()
		}
		etag := fmt.Sprintf(`W/"conversations:%s:%d:%d"`, uid, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, total, err := h.convSvc.ListPage(ctx, uid, filter, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListConversationsResponse{
		Conversations: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetConversation godoc
// @ID          getConversation
// @Summary     Fetch a conversation
// @Description Returns one conversation owned by the current user.
// @Tags        Conversations
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Conversation ID (UUID)" format(uuid)
//
// @Success     200  {object} domain.Conversation
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Conversation not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /conversations/{id} [get]
func (h *Handlers) GetConversation(c *gin.Context) {
	id, valid := pathUUID(c)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversation id must be a UUID")
		return
	}

	conv, err := h.convSvc.Get(c.Request.Context(), userID(c), id)
	if err != nil {
		failConversation(c, err)
		return
	}
	ok(c, http.StatusOK, conv)
}

// UpdateConversation godoc
// @ID          updateConversation
// @Summary     Update conversation metadata
// @Description Patches title, summary, topic, or tags. Absent fields are unchanged.
// @Tags        Conversations
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Conversation ID (UUID)" format(uuid)
// @Param       body       body    handlers.UpdateConversationRequest  true  "Fields to update"
//
// @Success     200  {object} domain.Conversation
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Conversation not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /conversations/{id} [patch]
func (h *Handlers) UpdateConversation(c *gin.Context) {
	id, valid := pathUUID(c)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversation id must be a UUID")
		return
	}

	var req UpdateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if req.Title == nil && req.Summary == nil && req.Topic == nil && req.Tags == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "at least one field required")
		return
	}

	conv, err := h.convSvc.UpdateMetadata(c.Request.Context(), userID(c), id, services.ConversationPatch{
		Title:   req.Title,
		Summary: req.Summary,
		Topic:   req.Topic,
		Tags:    req.Tags,
	})
	if err != nil {
		failConversation(c, err)
		return
	}
	ok(c, http.StatusOK, conv)
}

// PinConversation godoc
// @ID          pinConversation
// @Summary     Pin or unpin a conversation
// @Tags        Conversations
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Conversation ID (UUID)" format(uuid)
// @Param       body       body    handlers.FlagRequest  true  "Pinned state"
//
// @Success     200  {object} domain.Conversation
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Conversation not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /conversations/{id}/pin [post]
func (h *Handlers) PinConversation(c *gin.Context) {
	h.setConversationFlag(c, h.convSvc.SetPinned)
}

// ArchiveConversation godoc
// @ID          archiveConversation
// @Summary     Archive or restore a conversation
// @Description Archiving is reversible; restored conversations become active again.
// @Tags        Conversations
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Conversation ID (UUID)" format(uuid)
// @Param       body       body    handlers.FlagRequest  true  "Archived state"
//
// @Success     200  {object} domain.Conversation
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Conversation not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /conversations/{id}/archive [post]
func (h *Handlers) ArchiveConversation(c *gin.Context) {
	h.setConversationFlag(c, h.convSvc.SetArchived)
}

// ShareConversation godoc
// @ID          shareConversation
// @Summary     Publish or unpublish a conversation
// @Description Publishing mints a share token on first use; unpublishing keeps the
// @Description token but disables the public endpoint.
// @Tags        Sharing
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Conversation ID (UUID)" format(uuid)
// @Param       body       body    handlers.FlagRequest  true  "Public state"
//
// @Success     200  {object} domain.Conversation
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Conversation not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /conversations/{id}/share [post]
func (h *Handlers) ShareConversation(c *gin.Context) {
	h.setConversationFlag(c, h.convSvc.SetPublic)
}

// setConversationFlag is the shared body for pin/archive/share toggles.
func (h *Handlers) setConversationFlag(c *gin.Context, set func(ctx context.Context, userID, id string, v bool) (*domain.Conversation, error)) {
	id, valid := pathUUID(c)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversation id must be a UUID")
		return
	}

	var req FlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	conv, err := set(c.Request.Context(), userID(c), id, req.Enabled)
	if err != nil {
		failConversation(c, err)
		return
	}
	ok(c, http.StatusOK, conv)
}

// RegenerateShareToken godoc
// @ID          regenerateShareToken
// @Summary     Rotate the share token
// @Description Replaces the share token of a published conversation. The previous
// @Description token stops resolving immediately.
// @Tags        Sharing
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Conversation ID (UUID)" format(uuid)
//
// @Success     200  {object} domain.Conversation
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Conversation not found"
// @Failure     409  {object} handlers.ErrorResponse "Conversation is not shared"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /conversations/{id}/share/regenerate [post]
func (h *Handlers) RegenerateShareToken(c *gin.Context) {
	id, valid := pathUUID(c)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversation id must be a UUID")
		return
	}

	conv, err := h.convSvc.RegenerateShareToken(c.Request.Context(), userID(c), id)
	if err != nil {
		failConversation(c, err)
		return
	}
	ok(c, http.StatusOK, conv)
}

// DeleteConversation godoc
// @ID          deleteConversation
// @Summary     Delete a conversation
// @Description Soft-deletes the conversation. Deletion is terminal; deleted
// @Description conversations disappear from every other endpoint.
// @Tags        Conversations
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Conversation ID (UUID)" format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Conversation not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /conversations/{id} [delete]
func (h *Handlers) DeleteConversation(c *gin.Context) {
	id, valid := pathUUID(c)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversation id must be a UUID")
		return
	}

	if err := h.convSvc.Delete(c.Request.Context(), userID(c), id); err != nil {
		failConversation(c, err)
		return
	}
	noContent(c)
}
