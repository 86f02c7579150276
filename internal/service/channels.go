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

// ObjectCleaner removes stored attachments during channel teardown. Cleanup
// is best-effort: failures are logged, never surfaced, and never roll back
// the committed mutation.
type ObjectCleaner interface {
	RemoveChannelObjects(ctx context.Context, channelID int64) error
}

// ChannelService handles channel lifecycle and capability-edge mutations.
type ChannelService struct {
	store     *database.Store
	snowflake *snowflake.Generator
	gateway   gateway.Dispatcher
	storage   ObjectCleaner
	cursors   *CursorMaintainer
}

// NewChannelService creates a ChannelService. storage may be nil when no
// object store is configured.
func NewChannelService(store *database.Store, sf *snowflake.Generator, gw gateway.Dispatcher, storage ObjectCleaner) *ChannelService {
	return &ChannelService{
		store:     store,
		snowflake: sf,
		gateway:   gw,
		storage:   storage,
		cursors:   &CursorMaintainer{},
	}
}

// CreateChannel creates a channel and grants its visibility capability to the
// given roles. Every active membership holding one of those roles gains a
// read cursor; a fresh channel has no messages, so cursors seed at zero.
func (s *ChannelService) CreateChannel(ctx context.Context, serverID, actorID int64, name string, kind models.ChannelKind, parentID *int64, roleIDs []int64) (*models.Channel, error) {
	if name == "" || len(name) > 100 {
		return nil, BadRequest("INVALID_NAME", "name must be 1-100 characters")
	}

	channel := &models.Channel{
		ID:       s.snowflake.Generate().Int64(),
		ServerID: serverID,
		Name:     name,
		Kind:     kind,
		ParentID: parentID,
	}

	var events []pendingEvent
	err := s.store.InTx(ctx, func(r *database.Repositories) error {
		events = events[:0]

		roles, err := actorRoles(ctx, r, serverID, actorID)
		if err != nil {
			return err
		}
		if err := requireFlag(roles, permissions.FlagWorkChannels); err != nil {
			return err
		}

		if kind == models.ChannelKindSub {
			if parentID == nil {
				return BadRequest("MISSING_PARENT", "sub channels require a parent channel")
			}
			parent, err := r.Channels.GetByID(ctx, *parentID)
			if err != nil {
				return err
			}
			if parent == nil || parent.ServerID != serverID || parent.Deleted() {
				return NotFound("NOT_FOUND", "parent channel not found")
			}
			if parent.Kind != models.ChannelKindText {
				return BadRequest("INVALID_PARENT", "sub channels attach to text channels")
			}
		} else if parentID != nil {
			return BadRequest("INVALID_PARENT", "only sub channels carry a parent")
		}

		if err := r.Channels.Create(ctx, channel); err != nil {
			return err
		}

		visCap := permissions.VisibilityCap(kind)
		for _, roleID := range roleIDs {
			role, err := r.Roles.GetByID(ctx, roleID)
			if err != nil {
				return err
			}
			if role == nil || role.ServerID != serverID {
				return NotFound("NOT_FOUND", "granted role not found")
			}
			if _, err := r.Grants.Insert(ctx, &models.ChannelGrant{
				ChannelID:  channel.ID,
				RoleID:     roleID,
				Capability: int(visCap),
			}); err != nil {
				return err
			}
		}

		if kind.MessageBearing() && len(roleIDs) > 0 {
			idx, err := loadIndex(ctx, r, serverID)
			if err != nil {
				return err
			}
			beforeIdx := idx.Clone()
			beforeIdx.RemoveChannel(channel.ID)

			memberships, err := r.Memberships.GetByServerID(ctx, serverID)
			if err != nil {
				return err
			}
			for i := range memberships {
				m := &memberships[i]
				if m.IsBanned {
					continue
				}
				before := beforeIdx.VisibleTo(m.Roles)
				after := idx.VisibleTo(m.Roles)
				delta, err := s.cursors.Reconcile(ctx, r, m.UserID, before, after)
				if err != nil {
					return err
				}
				events = append(events, cursorEvents(m.UserID, delta)...)
			}
		}

		events = append(events, pendingEvent{
			serverID: serverID,
			name:     gateway.EventChannelCreate,
			data:     map[string]any{"server_id": serverID, "channel": channel},
		})
		return nil
	})
	if err != nil {
		return nil, wrapTxErr("create channel", err)
	}

	dispatchAll(s.gateway, events)
	return channel, nil
}

// DeleteChannel tears a channel down. Message-bearing channels are
// soft-deleted and kept for the retention window; others are removed
// outright. Sub channels of a deleted text channel go with it. All read
// cursors on the affected channels are purged, and stored attachments are
// cleaned up best-effort after commit.
func (s *ChannelService) DeleteChannel(ctx context.Context, serverID, actorID, channelID int64) error {
	var events []pendingEvent
	var removed []int64
	err := s.store.InTx(ctx, func(r *database.Repositories) error {
		events = events[:0]
		removed = removed[:0]

		roles, err := actorRoles(ctx, r, serverID, actorID)
		if err != nil {
			return err
		}
		if err := requireFlag(roles, permissions.FlagWorkChannels); err != nil {
			return err
		}

		channel, err := r.Channels.GetByID(ctx, channelID)
		if err != nil {
			return err
		}
		if channel == nil || channel.ServerID != serverID {
			return NotFound("NOT_FOUND", "channel not found")
		}
		if channel.Deleted() {
			return Gone("CHANNEL_DELETED", "channel is already deleted")
		}

		idx, err := loadIndex(ctx, r, serverID)
		if err != nil {
			return err
		}

		removed = append(removed, channelID)
		if channel.Kind == models.ChannelKindText {
			removed = append(removed, idx.SubChannels(channelID)...)
		}

		now := time.Now()
		for _, id := range removed {
			ch, err := r.Channels.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if ch == nil || ch.Deleted() {
				continue
			}
			if ch.Kind.MessageBearing() {
				if err := r.Channels.SoftDelete(ctx, id, now); err != nil {
					return err
				}
			} else {
				if err := r.Channels.Delete(ctx, id); err != nil {
					return err
				}
			}
			if err := r.Grants.DeleteByChannel(ctx, id); err != nil {
				return err
			}
		}

		if err := s.cursors.PurgeChannels(ctx, r, removed); err != nil {
			return err
		}

		for _, id := range removed {
			events = append(events, pendingEvent{
				serverID: serverID,
				name:     gateway.EventChannelDelete,
				data:     map[string]any{"server_id": serverID, "channel_id": id},
			})
		}
		return nil
	})
	if err != nil {
		return wrapTxErr("delete channel", err)
	}

	dispatchAll(s.gateway, events)

	if s.storage != nil {
		go func() {
			cctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			for _, id := range removed {
				if err := s.storage.RemoveChannelObjects(cctx, id); err != nil {
					slog.Error("channel object cleanup failed", "channelID", id, "error", err)
				}
			}
		}()
	}
	return nil
}

// SetChannelPermission grants or revokes a capability edge between a role and
// a channel. Grants pull in every capability the granted one implies; revokes
// cascade downward, including CanUse on sub channels when visibility or write
// access to the parent text channel is withdrawn. Cursors of every holder of
// the role are reconciled against the new graph.
func (s *ChannelService) SetChannelPermission(ctx context.Context, serverID, actorID, channelID, roleID int64, capability permissions.Capability, grant bool) error {
	var events []pendingEvent
	err := s.store.InTx(ctx, func(r *database.Repositories) error {
		events = events[:0]

		roles, err := actorRoles(ctx, r, serverID, actorID)
		if err != nil {
			return err
		}
		if err := requireFlag(roles, permissions.FlagWorkChannels); err != nil {
			return err
		}

		channel, err := r.Channels.GetByID(ctx, channelID)
		if err != nil {
			return err
		}
		if channel == nil || channel.ServerID != serverID {
			return NotFound("NOT_FOUND", "channel not found")
		}
		if channel.Deleted() {
			return Gone("CHANNEL_DELETED", "channel is deleted")
		}

		role, err := r.Roles.GetByID(ctx, roleID)
		if err != nil {
			return err
		}
		if role == nil || role.ServerID != serverID {
			return NotFound("NOT_FOUND", "role not found")
		}
		if role.Kind == models.RoleKindCreator || role.Kind == models.RoleKindAdmin {
			return Forbidden("PROTECTED_ROLE", "creator and admin role edges cannot be changed")
		}

		if !capability.ValidFor(channel.Kind) {
			return BadRequest("INVALID_CAPABILITY", "capability does not apply to this channel kind")
		}

		idx, err := loadIndex(ctx, r, serverID)
		if err != nil {
			return err
		}
		afterIdx := idx.Clone()

		if grant {
			if idx.HasEdge(channelID, roleID, capability) {
				return Conflict("EDGE_EXISTS", "the role already holds this capability")
			}
			for _, c := range capability.GrantClosure() {
				if _, err := r.Grants.Insert(ctx, &models.ChannelGrant{
					ChannelID:  channelID,
					RoleID:     roleID,
					Capability: int(c),
				}); err != nil {
					return err
				}
				afterIdx.Grant(channelID, roleID, c)
			}
		} else {
			if !idx.HasEdge(channelID, roleID, capability) {
				return Conflict("EDGE_MISSING", "the role does not hold this capability")
			}
			for _, c := range capability.RevokeCascade() {
				if _, err := r.Grants.Delete(ctx, channelID, roleID, int(c)); err != nil {
					return err
				}
				afterIdx.Revoke(channelID, roleID, c)
			}
			if capability.CascadesToSubChannels() && channel.Kind == models.ChannelKindText {
				for _, subID := range idx.SubChannels(channelID) {
					if _, err := r.Grants.Delete(ctx, subID, roleID, int(permissions.CapUse)); err != nil {
						return err
					}
					afterIdx.Revoke(subID, roleID, permissions.CapUse)
				}
			}
		}

		holders, err := r.Roles.HoldersOf(ctx, roleID)
		if err != nil {
			return err
		}
		for _, userID := range holders {
			m, err := r.Memberships.GetForUpdate(ctx, serverID, userID)
			if err != nil {
				return err
			}
			if m == nil || m.IsBanned {
				continue
			}
			before := idx.VisibleTo(m.Roles)
			after := afterIdx.VisibleTo(m.Roles)
			delta, err := s.cursors.Reconcile(ctx, r, userID, before, after)
			if err != nil {
				return err
			}
			events = append(events, cursorEvents(userID, delta)...)
		}

		events = append(events, pendingEvent{
			serverID: serverID,
			name:     gateway.EventChannelPermissionUpdate,
			data: map[string]any{
				"server_id":  serverID,
				"channel_id": channelID,
				"role_id":    roleID,
				"capability": capability.String(),
				"granted":    grant,
			},
		})
		return nil
	})
	if err != nil {
		return wrapTxErr("set channel permission", err)
	}

	dispatchAll(s.gateway, events)
	return nil
}

// MuteChannel records a notification mute for the member on the channel.
// Mutes are a per-membership preference and do not touch cursors.
func (s *ChannelService) MuteChannel(ctx context.Context, serverID, userID, channelID int64) error {
	channel, err := s.store.Channels.GetByID(ctx, channelID)
	if err != nil {
		return Internal("INTERNAL", "internal server error")
	}
	if channel == nil || channel.ServerID != serverID || channel.Deleted() {
		return NotFound("NOT_FOUND", "channel not found")
	}
	if _, err := activeMembership(ctx, s.store.Repositories, serverID, userID); err != nil {
		return wrapTxErr("mute channel", err)
	}
	if err := s.store.Memberships.MuteChannel(ctx, serverID, userID, channelID); err != nil {
		return Internal("INTERNAL", "internal server error")
	}
	return nil
}

// UnmuteChannel removes a notification mute.
func (s *ChannelService) UnmuteChannel(ctx context.Context, serverID, userID, channelID int64) error {
	if _, err := activeMembership(ctx, s.store.Repositories, serverID, userID); err != nil {
		return wrapTxErr("unmute channel", err)
	}
	if err := s.store.Memberships.UnmuteChannel(ctx, serverID, userID, channelID); err != nil {
		return Internal("INTERNAL", "internal server error")
	}
	return nil
}

// PurgeDeletedChannels hard-deletes channels whose soft-delete timestamp is
// older than the retention window. Run periodically from main.
func (s *ChannelService) PurgeDeletedChannels(ctx context.Context, retention time.Duration) (int64, error) {
	purged, err := s.store.Channels.PurgeDeletedBefore(ctx, time.Now().Add(-retention))
	if err != nil {
		return 0, Internal("INTERNAL", "internal server error")
	}
	return purged, nil
}
