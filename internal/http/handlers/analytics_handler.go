// Analytics HTTP handler.
//
// Exposes GET /conversations/{id}/insights, a read-only rollup of sentiment,
// topics, response times, and an extractive summary for one conversation.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetInsights godoc
// @ID          getInsights
// @Summary     Conversation insights
// @Description Returns sentiment distribution and trend, topic timeline, response
// @Description time statistics, an extractive summary, and key insight lines for
// @Description a conversation owned by the current user.
// @Tags        Analytics
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Conversation ID (UUID)" format(uuid)
//
// @Success     200  {object} services.ConversationInsights
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Conversation not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /conversations/{id}/insights [get]
func (h *Handlers) GetInsights(c *gin.Context) {
	id, valid := pathUUID(c)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversation id must be a UUID")
		return
	}

	ins, err := h.analyticsSvc.Insights(c.Request.Context(), userID(c), id)
	if err != nil {
		failConversation(c, err)
		return
	}
	ok(c, http.StatusOK, ins)
}
