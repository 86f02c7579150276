package service

import (
	"context"
	"time"

	"github.com/chebupelek/hitscord-sub000/internal/database"
	"github.com/chebupelek/hitscord-sub000/internal/gateway"
	"github.com/chebupelek/hitscord-sub000/internal/permissions"
)

// BanService suspends and restores memberships. A ban keeps the membership row
// and its role set but drops every read cursor; unbanning re-seeds cursors
// from the retained roles as if the channels were newly visible.
type BanService struct {
	store   *database.Store
	gateway gateway.Dispatcher
	cursors *CursorMaintainer
}

// NewBanService creates a BanService.
func NewBanService(store *database.Store, gw gateway.Dispatcher) *BanService {
	return &BanService{store: store, gateway: gw, cursors: &CursorMaintainer{}}
}

// Ban suspends a member. The actor needs the ban permission and must outrank
// the target's highest role. The target's roles stay on the membership so an
// unban restores the same visibility.
func (s *BanService) Ban(ctx context.Context, serverID, actorID, targetID int64, reason *string) error {
	if actorID == targetID {
		return BadRequest("SELF_BAN", "you cannot ban yourself")
	}

	var events []pendingEvent
	err := s.store.InTx(ctx, func(r *database.Repositories) error {
		events = events[:0]

		roles, err := actorRoles(ctx, r, serverID, actorID)
		if err != nil {
			return err
		}
		if err := requireFlag(roles, permissions.FlagDeleteUsers); err != nil {
			return err
		}

		target, err := r.Memberships.GetForUpdate(ctx, serverID, targetID)
		if err != nil {
			return err
		}
		if target == nil {
			return NotFound("NOT_FOUND", "member not found")
		}
		if target.IsBanned {
			return Conflict("ALREADY_BANNED", "member is already banned")
		}

		targetRoles, err := r.Roles.GetByMembership(ctx, serverID, targetID)
		if err != nil {
			return err
		}
		if err := requireOutranks(roles, permissions.HighestKind(targetRoles)); err != nil {
			return err
		}

		now := time.Now()
		if err := r.Memberships.SetBan(ctx, serverID, targetID, true, reason, &now); err != nil {
			return err
		}
		if err := s.cursors.PurgeMembership(ctx, r, targetID, serverID); err != nil {
			return err
		}

		events = append(events, pendingEvent{
			serverID: serverID,
			name:     gateway.EventServerBanAdd,
			data:     map[string]any{"server_id": serverID, "user_id": targetID},
		})
		return nil
	})
	if err != nil {
		return wrapTxErr("ban member", err)
	}

	s.gateway.UnsubscribeFromServer(targetID, serverID)
	dispatchAll(s.gateway, events)
	return nil
}

// Unban restores a suspended membership. The roles kept through the ban drive
// the cursor re-seed: every channel they make visible gets a cursor at the
// channel's current maximum message ID.
func (s *BanService) Unban(ctx context.Context, serverID, actorID, targetID int64) error {
	var events []pendingEvent
	err := s.store.InTx(ctx, func(r *database.Repositories) error {
		events = events[:0]

		roles, err := actorRoles(ctx, r, serverID, actorID)
		if err != nil {
			return err
		}
		if err := requireFlag(roles, permissions.FlagDeleteUsers); err != nil {
			return err
		}

		target, err := r.Memberships.GetForUpdate(ctx, serverID, targetID)
		if err != nil {
			return err
		}
		if target == nil {
			return NotFound("NOT_FOUND", "member not found")
		}
		if !target.IsBanned {
			return Conflict("NOT_BANNED", "member is not banned")
		}

		if err := r.Memberships.SetBan(ctx, serverID, targetID, false, nil, nil); err != nil {
			return err
		}

		idx, err := loadIndex(ctx, r, serverID)
		if err != nil {
			return err
		}
		delta, err := s.cursors.Reconcile(ctx, r, targetID, nil, idx.VisibleTo(target.Roles))
		if err != nil {
			return err
		}

		events = append(events, pendingEvent{
			serverID: serverID,
			name:     gateway.EventServerBanRemove,
			data:     map[string]any{"server_id": serverID, "user_id": targetID},
		})
		events = append(events, cursorEvents(targetID, delta)...)
		return nil
	})
	if err != nil {
		return wrapTxErr("unban member", err)
	}

	s.gateway.SubscribeToServer(targetID, serverID)
	dispatchAll(s.gateway, events)
	return nil
}
