// Search HTTP handler.
//
// Exposes GET /search?q=...&conversation_id=..., a token-overlap ranking over
// the current user's message history. Results never include other users'
// messages or messages in deleted conversations.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nkaralis/go-chat-portal/internal/services"
)

// SearchResponse wraps ranked search hits for a query.
type SearchResponse struct {
	Query   string               `json:"query"`
	Results []services.SearchHit `json:"results"`
}

// SearchMessages godoc
// @ID          searchMessages
// @Summary     Search message history
// @Description Ranks the user's messages against a free-text query by token overlap
// @Description and returns the best matches. Optionally scoped to one conversation.
// @Tags        Search
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"        example(user123)
// @Param       q                query   string  true  "Free-text query"              example(deployment rollback)
// @Param       conversation_id  query   string  false "Restrict to one conversation" format(uuid)
//
// @Success     200  {object} handlers.SearchResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /search [get]
func (h *Handlers) SearchMessages(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "q required")
		return
	}

	conversationID := c.Query("conversation_id")
	if conversationID != "" {
		if _, err := uuid.Parse(conversationID); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversation_id must be a UUID")
			return
		}
	}

	hits, err := h.searchSvc.Search(c.Request.Context(), userID(c), conversationID, query)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, SearchResponse{Query: query, Results: hits})
}
