package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/chebupelek/hitscord-sub000/internal/auth"
	"github.com/chebupelek/hitscord-sub000/internal/service"
)

// RoleHandler handles role CRUD and grant/revoke endpoints.
type RoleHandler struct {
	service *service.RoleService
}

// NewRoleHandler creates a RoleHandler.
func NewRoleHandler(svc *service.RoleService) *RoleHandler {
	return &RoleHandler{service: svc}
}

type createRoleRequest struct {
	Name        string `json:"name"`
	Tag         string `json:"tag"`
	Color       int    `json:"color"`
	Permissions int64  `json:"permissions,string"`
}

// CreateRole handles POST /api/v1/servers/:id/roles.
func (h *RoleHandler) CreateRole(c echo.Context) error {
	serverID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid server id")
	}

	var req createRoleRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	actorID := auth.GetUserID(c)
	role, err := h.service.CreateRole(c.Request().Context(), serverID, actorID, req.Name, req.Tag, req.Color, req.Permissions)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, role)
}

type updateRoleRequest struct {
	Name        *string `json:"name"`
	Tag         *string `json:"tag"`
	Color       *int    `json:"color"`
	Permissions *int64  `json:"permissions,string"`
}

// UpdateRole handles PATCH /api/v1/servers/:id/roles/:role_id.
func (h *RoleHandler) UpdateRole(c echo.Context) error {
	serverID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid server id")
	}
	roleID, err := strconv.ParseInt(c.Param("role_id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid role id")
	}

	var req updateRoleRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	actorID := auth.GetUserID(c)
	role, err := h.service.UpdateRole(c.Request().Context(), serverID, actorID, roleID, req.Name, req.Tag, req.Color, req.Permissions)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, role)
}

// DeleteRole handles DELETE /api/v1/servers/:id/roles/:role_id.
func (h *RoleHandler) DeleteRole(c echo.Context) error {
	serverID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid server id")
	}
	roleID, err := strconv.ParseInt(c.Param("role_id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid role id")
	}

	actorID := auth.GetUserID(c)
	if err := h.service.DeleteRole(c.Request().Context(), serverID, actorID, roleID); err != nil {
		return mapServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GrantRole handles PUT /api/v1/servers/:id/members/:user_id/roles/:role_id.
func (h *RoleHandler) GrantRole(c echo.Context) error {
	serverID, targetID, roleID, ok := memberRoleParams(c)
	if !ok {
		return nil
	}

	actorID := auth.GetUserID(c)
	if err := h.service.GrantRole(c.Request().Context(), serverID, actorID, targetID, roleID); err != nil {
		return mapServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// RevokeRole handles DELETE /api/v1/servers/:id/members/:user_id/roles/:role_id.
func (h *RoleHandler) RevokeRole(c echo.Context) error {
	serverID, targetID, roleID, ok := memberRoleParams(c)
	if !ok {
		return nil
	}

	actorID := auth.GetUserID(c)
	if err := h.service.RevokeRole(c.Request().Context(), serverID, actorID, targetID, roleID); err != nil {
		return mapServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ResetRoles handles POST /api/v1/servers/:id/members/:user_id/roles/reset.
func (h *RoleHandler) ResetRoles(c echo.Context) error {
	serverID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid server id")
	}
	targetID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid user id")
	}

	actorID := auth.GetUserID(c)
	if err := h.service.ResetToFallback(c.Request().Context(), serverID, actorID, targetID); err != nil {
		return mapServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// memberRoleParams parses the :id/:user_id/:role_id triple. On a parse error
// it writes the 400 response itself and reports !ok.
func memberRoleParams(c echo.Context) (serverID, userID, roleID int64, ok bool) {
	var err error
	if serverID, err = strconv.ParseInt(c.Param("id"), 10, 64); err != nil {
		errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid server id")
		return 0, 0, 0, false
	}
	if userID, err = strconv.ParseInt(c.Param("user_id"), 10, 64); err != nil {
		errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid user id")
		return 0, 0, 0, false
	}
	if roleID, err = strconv.ParseInt(c.Param("role_id"), 10, 64); err != nil {
		errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid role id")
		return 0, 0, 0, false
	}
	return serverID, userID, roleID, true
}
