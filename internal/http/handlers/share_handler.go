// Public share HTTP handler.
//
// Exposes GET /share/{token}, the only unauthenticated read path. It resolves
// a share token minted by the conversation owner and returns a read-only view
// of the conversation and its messages.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nkaralis/go-chat-portal/internal/domain"
)

// SharedConversationResponse is the read-only public view of a shared
// conversation.
type SharedConversationResponse struct {
	Conversation *domain.Conversation `json:"conversation"`
	Messages     []domain.Message     `json:"messages"`
}

// GetSharedConversation godoc
// @ID          getSharedConversation
// @Summary     View a shared conversation
// @Description Resolves a share token and returns the conversation with all of its
// @Description messages. Tokens for unpublished or deleted conversations resolve
// @Description to 404 so token validity is never revealed.
// @Tags        Sharing
// @Produce     json
//
// @Param       token  path  string  true  "Share token"  example(0f7ac7b82b5e4a349d58643a2a4c7a18)
//
// @Success     200  {object} handlers.SharedConversationResponse
// @Failure     404  {object} handlers.ErrorResponse "Unknown token"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /share/{token} [get]
func (h *Handlers) GetSharedConversation(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
		return
	}

	conv, msgs, err := h.convSvc.GetShared(c.Request.Context(), token)
	if err != nil {
		failConversation(c, err)
		return
	}
	ok(c, http.StatusOK, SharedConversationResponse{Conversation: conv, Messages: msgs})
}
