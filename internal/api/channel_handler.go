package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/chebupelek/hitscord-sub000/internal/auth"
	"github.com/chebupelek/hitscord-sub000/internal/models"
	"github.com/chebupelek/hitscord-sub000/internal/permissions"
	"github.com/chebupelek/hitscord-sub000/internal/service"
)

// ChannelHandler handles channel lifecycle and capability-edge endpoints.
type ChannelHandler struct {
	service *service.ChannelService
}

// NewChannelHandler creates a ChannelHandler.
func NewChannelHandler(svc *service.ChannelService) *ChannelHandler {
	return &ChannelHandler{service: svc}
}

type createChannelRequest struct {
	Name     string  `json:"name"`
	Kind     int     `json:"kind"`
	ParentID *int64  `json:"parent_id,string"`
	RoleIDs  []int64 `json:"role_ids"`
}

// CreateChannel handles POST /api/v1/servers/:id/channels.
func (h *ChannelHandler) CreateChannel(c echo.Context) error {
	serverID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid server id")
	}

	var req createChannelRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	actorID := auth.GetUserID(c)
	channel, err := h.service.CreateChannel(c.Request().Context(), serverID, actorID, req.Name, models.ChannelKind(req.Kind), req.ParentID, req.RoleIDs)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, channel)
}

// DeleteChannel handles DELETE /api/v1/servers/:id/channels/:channel_id.
func (h *ChannelHandler) DeleteChannel(c echo.Context) error {
	serverID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid server id")
	}
	channelID, err := strconv.ParseInt(c.Param("channel_id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid channel id")
	}

	actorID := auth.GetUserID(c)
	if err := h.service.DeleteChannel(c.Request().Context(), serverID, actorID, channelID); err != nil {
		return mapServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type channelPermissionRequest struct {
	RoleID     int64 `json:"role_id,string"`
	Capability int   `json:"capability"`
	Grant      bool  `json:"grant"`
}

// SetChannelPermission handles PUT /api/v1/servers/:id/channels/:channel_id/permissions.
func (h *ChannelHandler) SetChannelPermission(c echo.Context) error {
	serverID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid server id")
	}
	channelID, err := strconv.ParseInt(c.Param("channel_id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid channel id")
	}

	var req channelPermissionRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	actorID := auth.GetUserID(c)
	err = h.service.SetChannelPermission(c.Request().Context(), serverID, actorID, channelID, req.RoleID, permissions.Capability(req.Capability), req.Grant)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// MuteChannel handles PUT /api/v1/servers/:id/channels/:channel_id/mute.
func (h *ChannelHandler) MuteChannel(c echo.Context) error {
	serverID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid server id")
	}
	channelID, err := strconv.ParseInt(c.Param("channel_id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid channel id")
	}

	userID := auth.GetUserID(c)
	if err := h.service.MuteChannel(c.Request().Context(), serverID, userID, channelID); err != nil {
		return mapServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// UnmuteChannel handles DELETE /api/v1/servers/:id/channels/:channel_id/mute.
func (h *ChannelHandler) UnmuteChannel(c echo.Context) error {
	serverID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid server id")
	}
	channelID, err := strconv.ParseInt(c.Param("channel_id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid channel id")
	}

	userID := auth.GetUserID(c)
	if err := h.service.UnmuteChannel(c.Request().Context(), serverID, userID, channelID); err != nil {
		return mapServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
