// Message interaction HTTP handlers.
//
// This file exposes REST endpoints for marking messages:
//   - POST /messages/{id}/like      (like / clear like, AI messages only)
//   - POST /messages/{id}/dislike   (dislike / clear dislike, AI messages only)
//   - POST /messages/{id}/reaction  (set or clear an emoji reaction, AI messages only)
//   - POST /messages/{id}/pin       (pin / unpin, any sender)
//
// Like and dislike are mutually exclusive: setting one clears the other.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nkaralis/go-chat-portal/internal/domain"
	"github.com/nkaralis/go-chat-portal/internal/services"
)

// ReactionRequest sets or clears an emoji reaction on a message. An empty
// or whitespace-only value clears the reaction.
type ReactionRequest struct {
	Reaction string `json:"reaction" example:"🎉"`
}

// failInteraction maps interaction service errors onto the error envelope.
func failInteraction(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrMessageNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "message not found")
	case errors.Is(err, services.ErrForbiddenInteraction):
		fail(c, http.StatusForbidden, ErrCodeForbidden, "cannot interact with this message")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

// setMessageFlag is the shared body for the boolean interaction toggles.
func (h *Handlers) setMessageFlag(c *gin.Context, set func(ctx context.Context, userID, messageID string, v bool) (*domain.Message, error)) {
	messageID := c.Param("id")
	if _, err := uuid.Parse(messageID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message id must be a UUID")
		return
	}

	var req FlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	m, err := set(c.Request.Context(), userID(c), messageID, req.Enabled)
	if err != nil {
		failInteraction(c, err)
		return
	}
	ok(c, http.StatusOK, m)
}

// LikeMessage godoc
// @ID          likeMessage
// @Summary     Like an AI message
// @Description Sets or clears the like flag. Liking clears any dislike.
// @Tags        Interactions
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Message ID (UUID)"      format(uuid)
// @Param       body       body    handlers.FlagRequest  true  "Liked state"
//
// @Success     200  {object} domain.Message
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Not an AI message"
// @Failure     404  {object} handlers.ErrorResponse "Message not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /messages/{id}/like [post]
func (h *Handlers) LikeMessage(c *gin.Context) {
	h.setMessageFlag(c, h.interactSvc.SetLiked)
}

// DislikeMessage godoc
// @ID          dislikeMessage
// @Summary     Dislike an AI message
// @Description Sets or clears the dislike flag. Disliking clears any like.
// @Tags        Interactions
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Message ID (UUID)"      format(uuid)
// @Param       body       body    handlers.FlagRequest  true  "Disliked state"
//
// @Success     200  {object} domain.Message
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Not an AI message"
// @Failure     404  {object} handlers.ErrorResponse "Message not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /messages/{id}/dislike [post]
func (h *Handlers) DislikeMessage(c *gin.Context) {
	h.setMessageFlag(c, h.interactSvc.SetDisliked)
}

// ReactToMessage godoc
// @ID          reactToMessage
// @Summary     React to an AI message
// @Description Sets an emoji reaction; an empty value clears it.
// @Tags        Interactions
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Message ID (UUID)"      format(uuid)
// @Param       body       body    handlers.ReactionRequest  true  "Reaction payload"
//
// @Success     200  {object} domain.Message
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Not an AI message"
// @Failure     404  {object} handlers.ErrorResponse "Message not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /messages/{id}/reaction [post]
func (h *Handlers) ReactToMessage(c *gin.Context) {
	messageID := c.Param("id")
	if _, err := uuid.Parse(messageID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message id must be a UUID")
		return
	}

	var req ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	m, err := h.interactSvc.SetReaction(c.Request.Context(), userID(c), messageID, req.Reaction)
	if err != nil {
		failInteraction(c, err)
		return
	}
	ok(c, http.StatusOK, m)
}

// PinMessage godoc
// @ID          pinMessage
// @Summary     Pin a message
// @Description Sets or clears the pin flag. Works for any sender.
// @Tags        Interactions
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Message ID (UUID)"      format(uuid)
// @Param       body       body    handlers.FlagRequest  true  "Pinned state"
//
// @Success     200  {object} domain.Message
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Message not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /messages/{id}/pin [post]
func (h *Handlers) PinMessage(c *gin.Context) {
	h.setMessageFlag(c, h.interactSvc.SetPinned)
}
