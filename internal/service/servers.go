package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/chebupelek/hitscord-sub000/internal/database"
	"github.com/chebupelek/hitscord-sub000/internal/gateway"
	"github.com/chebupelek/hitscord-sub000/internal/models"
	"github.com/chebupelek/hitscord-sub000/internal/permissions"
	"github.com/chebupelek/hitscord-sub000/internal/snowflake"
)

// ServerService handles server lifecycle and membership join/leave.
type ServerService struct {
	store     *database.Store
	snowflake *snowflake.Generator
	gateway   gateway.Dispatcher
	storage   ObjectCleaner
	cursors   *CursorMaintainer
}

// NewServerService creates a ServerService.
func NewServerService(store *database.Store, sf *snowflake.Generator, gw gateway.Dispatcher, storage ObjectCleaner) *ServerService {
	return &ServerService{
		store:     store,
		snowflake: sf,
		gateway:   gw,
		storage:   storage,
		cursors:   &CursorMaintainer{},
	}
}

// CreateServer creates a server with its two mandatory roles (Creator and the
// Uncertain fallback), a default Admin role, default channels, and the
// creator's membership holding the Creator role.
func (s *ServerService) CreateServer(ctx context.Context, actorID int64, name string) (*models.Server, error) {
	if name == "" || len(name) > 100 {
		return nil, BadRequest("INVALID_NAME", "name must be 1-100 characters")
	}

	server := &models.Server{
		ID:        s.snowflake.Generate().Int64(),
		Name:      name,
		CreatedAt: time.Now(),
	}

	var events []pendingEvent
	err := s.store.InTx(ctx, func(r *database.Repositories) error {
		events = events[:0]

		user, err := r.Users.GetByID(ctx, actorID)
		if err != nil {
			return err
		}
		if user == nil {
			return NotFound("NOT_FOUND", "user not found")
		}

		if err := r.Servers.Create(ctx, server); err != nil {
			return err
		}

		creator := &models.Role{
			ID:          s.snowflake.Generate().Int64(),
			ServerID:    server.ID,
			Name:        "Creator",
			Tag:         "creator",
			Kind:        models.RoleKindCreator,
			Permissions: int64(permissions.FlagAll),
		}
		admin := &models.Role{
			ID:          s.snowflake.Generate().Int64(),
			ServerID:    server.ID,
			Name:        "Admin",
			Tag:         "admin",
			Kind:        models.RoleKindAdmin,
			Permissions: int64(permissions.DefaultAdminFlags),
		}
		uncertain := &models.Role{
			ID:       s.snowflake.Generate().Int64(),
			ServerID: server.ID,
			Name:     "Uncertain",
			Tag:      "uncertain",
			Kind:     models.RoleKindUncertain,
		}
		for _, role := range []*models.Role{creator, admin, uncertain} {
			if err := r.Roles.Create(ctx, role); err != nil {
				return err
			}
		}

		general := &models.Channel{
			ID:       s.snowflake.Generate().Int64(),
			ServerID: server.ID,
			Name:     "general",
			Kind:     models.ChannelKindText,
		}
		voice := &models.Channel{
			ID:       s.snowflake.Generate().Int64(),
			ServerID: server.ID,
			Name:     "voice",
			Kind:     models.ChannelKindVoice,
			Position: 1,
		}
		for _, ch := range []*models.Channel{general, voice} {
			if err := r.Channels.Create(ctx, ch); err != nil {
				return err
			}
		}

		// Every role starts able to see and write in general and join voice.
		for _, role := range []*models.Role{creator, admin, uncertain} {
			for _, cap := range []permissions.Capability{permissions.CapSee, permissions.CapWrite} {
				if _, err := r.Grants.Insert(ctx, &models.ChannelGrant{
					ChannelID: general.ID, RoleID: role.ID, Capability: int(cap),
				}); err != nil {
					return err
				}
			}
			for _, cap := range []permissions.Capability{permissions.CapSee, permissions.CapJoin} {
				if _, err := r.Grants.Insert(ctx, &models.ChannelGrant{
					ChannelID: voice.ID, RoleID: role.ID, Capability: int(cap),
				}); err != nil {
					return err
				}
			}
		}

		m := &models.Membership{ServerID: server.ID, UserID: actorID, JoinedAt: time.Now()}
		if err := r.Memberships.Create(ctx, m); err != nil {
			return err
		}
		if err := r.Memberships.AddRole(ctx, server.ID, actorID, creator.ID); err != nil {
			return err
		}

		idx, err := loadIndex(ctx, r, server.ID)
		if err != nil {
			return err
		}
		delta, err := s.cursors.Reconcile(ctx, r, actorID, nil, idx.VisibleTo([]int64{creator.ID}))
		if err != nil {
			return err
		}

		events = append(events, pendingEvent{
			userIDs: []int64{actorID},
			name:    gateway.EventServerCreate,
			data:    map[string]any{"server": server},
		})
		events = append(events, cursorEvents(actorID, delta)...)
		return nil
	})
	if err != nil {
		return nil, wrapTxErr("create server", err)
	}

	s.gateway.SubscribeToServer(actorID, server.ID)
	dispatchAll(s.gateway, events)
	return server, nil
}

// UpdateServer changes the server name or icon.
func (s *ServerService) UpdateServer(ctx context.Context, serverID, actorID int64, name *string, iconHash *string) (*models.Server, error) {
	var server *models.Server
	err := s.store.InTx(ctx, func(r *database.Repositories) error {
		var err error
		server, err = r.Servers.GetByID(ctx, serverID)
		if err != nil {
			return err
		}
		if server == nil {
			return NotFound("NOT_FOUND", "server not found")
		}

		roles, err := actorRoles(ctx, r, serverID, actorID)
		if err != nil {
			return err
		}
		if err := requireFlag(roles, permissions.FlagChangeServerSettings); err != nil {
			return err
		}

		if name != nil {
			if *name == "" || len(*name) > 100 {
				return BadRequest("INVALID_NAME", "name must be 1-100 characters")
			}
			server.Name = *name
		}
		if iconHash != nil {
			server.IconHash = iconHash
		}
		return r.Servers.Update(ctx, server)
	})
	if err != nil {
		return nil, wrapTxErr("update server", err)
	}

	s.gateway.DispatchToServer(serverID, gateway.EventServerUpdate, map[string]any{"server": server})
	return server, nil
}

// DeleteServer removes the server and everything under it. Cursor rows go
// with their channels through the schema's cascading deletes; attachments are
// cleaned up best-effort after commit.
func (s *ServerService) DeleteServer(ctx context.Context, serverID, actorID int64) error {
	var memberIDs []int64
	var channelIDs []int64
	err := s.store.InTx(ctx, func(r *database.Repositories) error {
		server, err := r.Servers.GetByID(ctx, serverID)
		if err != nil {
			return err
		}
		if server == nil {
			return NotFound("NOT_FOUND", "server not found")
		}

		roles, err := actorRoles(ctx, r, serverID, actorID)
		if err != nil {
			return err
		}
		if err := requireFlag(roles, permissions.FlagDeleteServer); err != nil {
			return err
		}

		memberIDs, err = r.Memberships.UserIDs(ctx, serverID)
		if err != nil {
			return err
		}
		channels, err := r.Channels.GetByServerID(ctx, serverID)
		if err != nil {
			return err
		}
		for _, ch := range channels {
			channelIDs = append(channelIDs, ch.ID)
		}

		return r.Servers.Delete(ctx, serverID)
	})
	if err != nil {
		return wrapTxErr("delete server", err)
	}

	s.gateway.DispatchToUsers(memberIDs, gateway.EventServerDelete, map[string]any{"server_id": serverID})
	for _, userID := range memberIDs {
		s.gateway.UnsubscribeFromServer(userID, serverID)
	}

	if s.storage != nil {
		go func() {
			cctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()
			for _, id := range channelIDs {
				if err := s.storage.RemoveChannelObjects(cctx, id); err != nil {
					slog.Error("server object cleanup failed", "channelID", id, "error", err)
				}
			}
		}()
	}
	return nil
}

// Join subscribes a user to a server. The new membership starts with the
// Uncertain fallback role and gains cursors for every channel that role makes
// visible, seeded at the channels' current maximum message IDs.
func (s *ServerService) Join(ctx context.Context, serverID, userID int64) error {
	var events []pendingEvent
	err := s.store.InTx(ctx, func(r *database.Repositories) error {
		events = events[:0]

		server, err := r.Servers.GetByID(ctx, serverID)
		if err != nil {
			return err
		}
		if server == nil {
			return NotFound("NOT_FOUND", "server not found")
		}

		existing, err := r.Memberships.GetByServerAndUser(ctx, serverID, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.IsBanned {
				return Forbidden("MEMBER_BANNED", "you are banned from this server")
			}
			return Conflict("ALREADY_MEMBER", "you are already a member of this server")
		}

		uncertain, err := r.Roles.GetByKind(ctx, serverID, models.RoleKindUncertain)
		if err != nil {
			return err
		}
		if uncertain == nil {
			return Internal("INTERNAL", "server has no fallback role")
		}

		m := &models.Membership{ServerID: serverID, UserID: userID, JoinedAt: time.Now()}
		if err := r.Memberships.Create(ctx, m); err != nil {
			return err
		}
		if err := r.Memberships.AddRole(ctx, serverID, userID, uncertain.ID); err != nil {
			return err
		}

		idx, err := loadIndex(ctx, r, serverID)
		if err != nil {
			return err
		}
		delta, err := s.cursors.Reconcile(ctx, r, userID, nil, idx.VisibleTo([]int64{uncertain.ID}))
		if err != nil {
			return err
		}

		events = append(events, pendingEvent{
			serverID: serverID,
			name:     gateway.EventServerMemberAdd,
			data:     map[string]any{"server_id": serverID, "user_id": userID},
		})
		events = append(events, cursorEvents(userID, delta)...)
		return nil
	})
	if err != nil {
		return wrapTxErr("join server", err)
	}

	s.gateway.SubscribeToServer(userID, serverID)
	dispatchAll(s.gateway, events)
	return nil
}

// Leave removes the user's membership and every cursor it carried. The
// Creator cannot leave; they delete the server instead.
func (s *ServerService) Leave(ctx context.Context, serverID, userID int64) error {
	var events []pendingEvent
	err := s.store.InTx(ctx, func(r *database.Repositories) error {
		events = events[:0]

		m, err := r.Memberships.GetForUpdate(ctx, serverID, userID)
		if err != nil {
			return err
		}
		if m == nil {
			return NotFound("NOT_FOUND", "member not found")
		}

		roles, err := r.Roles.GetByMembership(ctx, serverID, userID)
		if err != nil {
			return err
		}
		for _, role := range roles {
			if role.Kind == models.RoleKindCreator {
				return Forbidden("CREATOR_CANNOT_LEAVE", "the creator cannot leave their own server")
			}
		}

		if err := s.cursors.PurgeMembership(ctx, r, userID, serverID); err != nil {
			return err
		}
		if err := r.Memberships.Delete(ctx, serverID, userID); err != nil {
			return err
		}

		events = append(events, pendingEvent{
			serverID: serverID,
			name:     gateway.EventServerMemberRemove,
			data:     map[string]any{"server_id": serverID, "user_id": userID},
		})
		return nil
	})
	if err != nil {
		return wrapTxErr("leave server", err)
	}

	s.gateway.UnsubscribeFromServer(userID, serverID)
	dispatchAll(s.gateway, events)
	return nil
}

// ListServers returns the servers the user is an active member of.
func (s *ServerService) ListServers(ctx context.Context, userID int64) ([]models.Server, error) {
	servers, err := s.store.Servers.GetByUserID(ctx, userID)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if servers == nil {
		servers = []models.Server{}
	}
	return servers, nil
}

// GetServer returns one server.
func (s *ServerService) GetServer(ctx context.Context, serverID int64) (*models.Server, error) {
	server, err := s.store.Servers.GetByID(ctx, serverID)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if server == nil {
		return nil, NotFound("NOT_FOUND", "server not found")
	}
	return server, nil
}
