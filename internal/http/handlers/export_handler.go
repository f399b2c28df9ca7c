// Export HTTP handler.
//
// Exposes GET /conversations/{id}/export?format={json|markdown|csv}, which
// renders the full transcript as a downloadable document.
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nkaralis/go-chat-portal/internal/export"
	"github.com/nkaralis/go-chat-portal/internal/services"
)

// ExportConversation godoc
// @ID          exportConversation
// @Summary     Export a conversation
// @Description Renders the conversation and all of its messages in the requested
// @Description format and returns it as a file download.
// @Tags        Export
// @Produce     json
// @Produce     text/markdown
// @Produce     text/csv
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Conversation ID (UUID)" format(uuid)
// @Param       format     query   string  false "Export format"          Enums(json, markdown, csv) default(json)
//
// @Success     200  {string} string "Rendered document"
// @Header      200  {string} Content-Disposition "attachment; filename=..."
// @Failure     400  {object} handlers.ErrorResponse "Unsupported format"
// @Failure     404  {object} handlers.ErrorResponse "Conversation not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /conversations/{id}/export [get]
func (h *Handlers) ExportConversation(c *gin.Context) {
	id, valid := pathUUID(c)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversation id must be a UUID")
		return
	}

	format := export.Format(c.DefaultQuery("format", string(export.FormatJSON)))

	res, err := h.exportSvc.Export(c.Request.Context(), userID(c), id, format)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidExportFormat):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "format must be one of json, markdown, csv")
		case errors.Is(err, services.ErrConversationNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeExportFailed, err.Error())
		}
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	c.Data(http.StatusOK, res.ContentType, []byte(res.Body))
}
