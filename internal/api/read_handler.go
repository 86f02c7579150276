package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/chebupelek/hitscord-sub000/internal/auth"
	"github.com/chebupelek/hitscord-sub000/internal/service"
)

// ReadHandler handles read acknowledgement endpoints.
type ReadHandler struct {
	service *service.ReadService
}

// NewReadHandler creates a ReadHandler.
func NewReadHandler(svc *service.ReadService) *ReadHandler {
	return &ReadHandler{service: svc}
}

type ackRequest struct {
	MessageID int64 `json:"message_id,string"`
}

// Ack handles POST /api/v1/channels/:id/ack.
func (h *ReadHandler) Ack(c echo.Context) error {
	channelID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid channel id")
	}

	var req ackRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	userID := auth.GetUserID(c)
	if err := h.service.Ack(c.Request().Context(), userID, channelID, req.MessageID); err != nil {
		return mapServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListCursors handles GET /api/v1/users/@me/read-states.
func (h *ReadHandler) ListCursors(c echo.Context) error {
	userID := auth.GetUserID(c)
	cursors, err := h.service.Cursors(c.Request().Context(), userID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, cursors)
}
