package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/chebupelek/hitscord-sub000/internal/service"
)

// PresetHandler exposes the admin-console endpoints for system roles and
// preset mappings.
type PresetHandler struct {
	service *service.PresetService
}

// NewPresetHandler creates a PresetHandler.
func NewPresetHandler(svc *service.PresetService) *PresetHandler {
	return &PresetHandler{service: svc}
}

type createSystemRoleRequest struct {
	Name string `json:"name"`
}

// CreateSystemRole handles POST /api/v1/admin/system-roles.
func (h *PresetHandler) CreateSystemRole(c echo.Context) error {
	var req createSystemRoleRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}

	role, err := h.service.CreateSystemRole(c.Request().Context(), req.Name)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, role)
}

// ApplyPreset handles PUT /api/v1/admin/system-roles/:id/presets/:role_id.
func (h *PresetHandler) ApplyPreset(c echo.Context) error {
	systemRoleID, serverRoleID, ok := presetParams(c)
	if !ok {
		return nil
	}

	if err := h.service.ApplyPreset(c.Request().Context(), systemRoleID, serverRoleID); err != nil {
		return mapServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// RemovePreset handles DELETE /api/v1/admin/system-roles/:id/presets/:role_id.
func (h *PresetHandler) RemovePreset(c echo.Context) error {
	systemRoleID, serverRoleID, ok := presetParams(c)
	if !ok {
		return nil
	}

	if err := h.service.RemovePreset(c.Request().Context(), systemRoleID, serverRoleID); err != nil {
		return mapServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GrantSystemRole handles PUT /api/v1/admin/users/:user_id/system-roles/:id.
func (h *PresetHandler) GrantSystemRole(c echo.Context) error {
	userID, systemRoleID, ok := userSystemRoleParams(c)
	if !ok {
		return nil
	}

	if err := h.service.GrantSystemRole(c.Request().Context(), userID, systemRoleID); err != nil {
		return mapServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// RevokeSystemRole handles DELETE /api/v1/admin/users/:user_id/system-roles/:id.
func (h *PresetHandler) RevokeSystemRole(c echo.Context) error {
	userID, systemRoleID, ok := userSystemRoleParams(c)
	if !ok {
		return nil
	}

	if err := h.service.RevokeSystemRole(c.Request().Context(), userID, systemRoleID); err != nil {
		return mapServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func presetParams(c echo.Context) (systemRoleID, serverRoleID int64, ok bool) {
	var err error
	if systemRoleID, err = strconv.ParseInt(c.Param("id"), 10, 64); err != nil {
		errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid system role id")
		return 0, 0, false
	}
	if serverRoleID, err = strconv.ParseInt(c.Param("role_id"), 10, 64); err != nil {
		errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid role id")
		return 0, 0, false
	}
	return systemRoleID, serverRoleID, true
}

func userSystemRoleParams(c echo.Context) (userID, systemRoleID int64, ok bool) {
	var err error
	if userID, err = strconv.ParseInt(c.Param("user_id"), 10, 64); err != nil {
		errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid user id")
		return 0, 0, false
	}
	if systemRoleID, err = strconv.ParseInt(c.Param("id"), 10, 64); err != nil {
		errorJSON(c, http.StatusBadRequest, "INVALID_ID", "invalid system role id")
		return 0, 0, false
	}
	return userID, systemRoleID, true
}
