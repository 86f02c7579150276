package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/chebupelek/hitscord-sub000/internal/auth"
	"github.com/chebupelek/hitscord-sub000/internal/gateway"
	"github.com/chebupelek/hitscord-sub000/internal/redis"
)

// Dependencies holds all handler instances and middleware for route wiring.
type Dependencies struct {
	Servers  *ServerHandler
	Channels *ChannelHandler
	Roles    *RoleHandler
	Bans     *BanHandler
	Presets  *PresetHandler
	Read     *ReadHandler
	Gateway  *gateway.Manager

	TokenService *auth.TokenService
	Redis        *redis.Client
}

// SetupRouter registers all API routes on the Echo instance.
func SetupRouter(e *echo.Echo, deps *Dependencies) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	// WebSocket gateway
	e.GET("/gateway", deps.Gateway.HandleWebSocket)

	v1 := e.Group("/api/v1")

	// All routes require JWT auth + general rate limit.
	authMw := deps.TokenService.Middleware()
	protected := v1.Group("", authMw,
		RateLimitMiddleware(deps.Redis, 50, time.Minute),
	)

	// Servers
	protected.POST("/servers", deps.Servers.CreateServer)
	protected.GET("/servers/:id", deps.Servers.GetServer)
	protected.PATCH("/servers/:id", deps.Servers.UpdateServer)
	protected.DELETE("/servers/:id", deps.Servers.DeleteServer)
	protected.GET("/users/@me/servers", deps.Servers.ListMyServers)
	protected.PUT("/servers/:id/members/@me", deps.Servers.Join)
	protected.DELETE("/servers/:id/members/@me", deps.Servers.Leave)

	// Channels and capability edges
	protected.POST("/servers/:id/channels", deps.Channels.CreateChannel)
	protected.DELETE("/servers/:id/channels/:channel_id", deps.Channels.DeleteChannel)
	protected.PUT("/servers/:id/channels/:channel_id/permissions", deps.Channels.SetChannelPermission)
	protected.PUT("/servers/:id/channels/:channel_id/mute", deps.Channels.MuteChannel)
	protected.DELETE("/servers/:id/channels/:channel_id/mute", deps.Channels.UnmuteChannel)

	// Roles
	protected.POST("/servers/:id/roles", deps.Roles.CreateRole)
	protected.PATCH("/servers/:id/roles/:role_id", deps.Roles.UpdateRole)
	protected.DELETE("/servers/:id/roles/:role_id", deps.Roles.DeleteRole)
	protected.PUT("/servers/:id/members/:user_id/roles/:role_id", deps.Roles.GrantRole)
	protected.DELETE("/servers/:id/members/:user_id/roles/:role_id", deps.Roles.RevokeRole)
	protected.POST("/servers/:id/members/:user_id/roles/reset", deps.Roles.ResetRoles)

	// Bans
	protected.PUT("/servers/:id/bans/:user_id", deps.Bans.Ban)
	protected.DELETE("/servers/:id/bans/:user_id", deps.Bans.Unban)

	// Read state
	protected.POST("/channels/:id/ack", deps.Read.Ack)
	protected.GET("/users/@me/read-states", deps.Read.ListCursors)

	// Admin console: system roles and presets. Deployed behind the org's
	// reverse proxy; operator authorization happens there.
	admin := protected.Group("/admin",
		RateLimitMiddleware(deps.Redis, 20, time.Minute),
	)
	admin.POST("/system-roles", deps.Presets.CreateSystemRole)
	admin.PUT("/system-roles/:id/presets/:role_id", deps.Presets.ApplyPreset)
	admin.DELETE("/system-roles/:id/presets/:role_id", deps.Presets.RemovePreset)
	admin.PUT("/users/:user_id/system-roles/:id", deps.Presets.GrantSystemRole)
	admin.DELETE("/users/:user_id/system-roles/:id", deps.Presets.RevokeSystemRole)
}
