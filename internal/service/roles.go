package service

import (
	"context"

	"github.com/chebupelek/hitscord-sub000/internal/database"
	"github.com/chebupelek/hitscord-sub000/internal/gateway"
	"github.com/chebupelek/hitscord-sub000/internal/models"
	"github.com/chebupelek/hitscord-sub000/internal/permissions"
	"github.com/chebupelek/hitscord-sub000/internal/snowflake"
	"github.com/chebupelek/hitscord-sub000/internal/visibility"
)

// RoleService handles role lifecycle and role assignment. Every mutation runs
// inside one serializable transaction; cursor reconciliation is atomic with
// the role-set change it reacts to, and gateway events fire only after commit.
type RoleService struct {
	store     *database.Store
	snowflake *snowflake.Generator
	gateway   gateway.Dispatcher
	cursors   *CursorMaintainer
}

// NewRoleService creates a RoleService.
func NewRoleService(store *database.Store, sf *snowflake.Generator, gw gateway.Dispatcher) *RoleService {
	return &RoleService{
		store:     store,
		snowflake: sf,
		gateway:   gw,
		cursors:   &CursorMaintainer{},
	}
}

// CreateRole creates a Custom role. The actor needs the create-roles flag and
// a role kind above Custom.
func (s *RoleService) CreateRole(ctx context.Context, serverID, actorID int64, name, tag string, color int, flags int64) (*models.Role, error) {
	if name == "" || len(name) > 100 {
		return nil, BadRequest("INVALID_NAME", "name must be 1-100 characters")
	}

	role := &models.Role{
		ID:          s.snowflake.Generate().Int64(),
		ServerID:    serverID,
		Name:        name,
		Tag:         tag,
		Color:       color,
		Kind:        models.RoleKindCustom,
		Permissions: flags,
	}

	var events []pendingEvent
	err := s.store.InTx(ctx, func(r *database.Repositories) error {
		events = events[:0]

		roles, err := actorRoles(ctx, r, serverID, actorID)
		if err != nil {
			return err
		}
		if err := requireFlag(roles, permissions.FlagCreateRoles); err != nil {
			return err
		}
		if err := requireOutranks(roles, models.RoleKindCustom); err != nil {
			return err
		}

		if err := r.Roles.Create(ctx, role); err != nil {
			return err
		}

		events = append(events, pendingEvent{
			serverID: serverID,
			name:     gateway.EventServerRoleCreate,
			data:     map[string]any{"server_id": serverID, "role": role},
		})
		return nil
	})
	if err != nil {
		return nil, wrapTxErr("create role", err)
	}

	dispatchAll(s.gateway, events)
	return role, nil
}

// UpdateRole updates a role's name, tag, color, or permission flags. The role
// kind is immutable. The actor must outrank the role's kind, which leaves the
// Creator role untouchable.
func (s *RoleService) UpdateRole(ctx context.Context, serverID, actorID, roleID int64, name, tag *string, color *int, flags *int64) (*models.Role, error) {
	var role *models.Role
	var events []pendingEvent
	err := s.store.InTx(ctx, func(r *database.Repositories) error {
		events = events[:0]

		var err error
		role, err = r.Roles.GetByID(ctx, roleID)
		if err != nil {
			return err
		}
		if role == nil || role.ServerID != serverID {
			return NotFound("NOT_FOUND", "role not found")
		}

		roles, err := actorRoles(ctx, r, serverID, actorID)
		if err != nil {
			return err
		}
		if err := requireFlag(roles, permissions.FlagCreateRoles); err != nil {
			return err
		}
		if err := requireOutranks(roles, role.Kind); err != nil {
			return err
		}

		if name != nil {
			if *name == "" || len(*name) > 100 {
				return BadRequest("INVALID_NAME", "name must be 1-100 characters")
			}
			role.Name = *name
		}
		if tag != nil {
			role.Tag = *tag
		}
		if color != nil {
			role.Color = *color
		}
		if flags != nil {
			role.Permissions = *flags
		}

		if err := r.Roles.Update(ctx, role); err != nil {
			return err
		}

		events = append(events, pendingEvent{
			serverID: serverID,
			name:     gateway.EventServerRoleUpdate,
			data:     map[string]any{"server_id": serverID, "role": role},
		})
		return nil
	})
	if err != nil {
		return nil, wrapTxErr("update role", err)
	}

	dispatchAll(s.gateway, events)
	return role, nil
}

// RenameRole changes only the role's name.
func (s *RoleService) RenameRole(ctx context.Context, serverID, actorID, roleID int64, name string) (*models.Role, error) {
	return s.UpdateRole(ctx, serverID, actorID, roleID, &name, nil, nil, nil)
}

// GrantRole adds a role to a membership's role set and seeds read cursors for
// every channel the role newly makes visible. Granting the Uncertain fallback
// resets the membership to exactly that role.
func (s *RoleService) GrantRole(ctx context.Context, serverID, actorID, targetID, roleID int64) error {
	var events []pendingEvent
	err := s.store.InTx(ctx, func(r *database.Repositories) error {
		events = events[:0]

		role, err := r.Roles.GetByID(ctx, roleID)
		if err != nil {
			return err
		}
		if role == nil || role.ServerID != serverID {
			return NotFound("NOT_FOUND", "role not found")
		}
		if role.Kind == models.RoleKindCreator {
			return Forbidden("PROTECTED_ROLE", "the creator role cannot be granted")
		}

		aRoles, err := actorRoles(ctx, r, serverID, actorID)
		if err != nil {
			return err
		}
		if err := requireFlag(aRoles, permissions.FlagChangeRole); err != nil {
			return err
		}

		m, err := r.Memberships.GetForUpdate(ctx, serverID, targetID)
		if err != nil {
			return err
		}
		if m == nil {
			return NotFound("NOT_FOUND", "member not found")
		}
		if m.IsBanned {
			return Forbidden("MEMBER_BANNED", "member is banned from this server")
		}
		if m.HasRole(roleID) {
			return Conflict("ALREADY_GRANTED", "member already holds this role")
		}

		// Hierarchy: the actor must outrank both the granted role and the
		// target's lowest held role.
		tRoles, err := r.Roles.GetByMembership(ctx, serverID, targetID)
		if err != nil {
			return err
		}
		if err := requireOutranks(aRoles, role.Kind); err != nil {
			return err
		}
		if len(tRoles) > 0 {
			if err := requireOutranks(aRoles, permissions.LowestKind(tRoles)); err != nil {
				return err
			}
		}

		if role.Kind == models.RoleKindUncertain {
			return s.resetMembership(ctx, r, serverID, m, role.ID, &events)
		}

		idx, err := loadIndex(ctx, r, serverID)
		if err != nil {
			return err
		}
		before := idx.VisibleTo(m.Roles)

		if err := r.Memberships.AddRole(ctx, serverID, targetID, roleID); err != nil {
			return err
		}
		after := idx.VisibleTo(append(m.Roles, roleID))

		delta, err := s.cursors.Reconcile(ctx, r, targetID, before, after)
		if err != nil {
			return err
		}

		events = append(events, pendingEvent{
			serverID: serverID,
			name:     gateway.EventRoleGrant,
			data:     map[string]any{"server_id": serverID, "user_id": targetID, "role_id": roleID},
		})
		events = append(events, cursorEvents(targetID, delta)...)
		return nil
	})
	if err != nil {
		return wrapTxErr("grant role", err)
	}

	dispatchAll(s.gateway, events)
	return nil
}

// RevokeRole removes a role from a membership. If the role is the member's
// last one, the Uncertain fallback is granted in the same transaction before
// the removal, and the cursor delta is computed against the compensated role
// set. Members may revoke their own roles; revoking another member's roles
// needs the change-role flag and hierarchy standing.
func (s *RoleService) RevokeRole(ctx context.Context, serverID, actorID, targetID, roleID int64) error {
	var events []pendingEvent
	err := s.store.InTx(ctx, func(r *database.Repositories) error {
		events = events[:0]

		role, err := r.Roles.GetByID(ctx, roleID)
		if err != nil {
			return err
		}
		if role == nil || role.ServerID != serverID {
			return NotFound("NOT_FOUND", "role not found")
		}
		if role.Kind == models.RoleKindCreator {
			return Forbidden("PROTECTED_ROLE", "the creator role cannot be revoked")
		}

		if actorID != targetID {
			aRoles, err := actorRoles(ctx, r, serverID, actorID)
			if err != nil {
				return err
			}
			if err := requireFlag(aRoles, permissions.FlagChangeRole); err != nil {
				return err
			}
			if err := requireOutranks(aRoles, role.Kind); err != nil {
				return err
			}
		}

		m, err := r.Memberships.GetForUpdate(ctx, serverID, targetID)
		if err != nil {
			return err
		}
		if m == nil {
			return NotFound("NOT_FOUND", "member not found")
		}
		if !m.HasRole(roleID) {
			return Conflict("NOT_GRANTED", "member does not hold this role")
		}

		uncertain, err := r.Roles.GetByKind(ctx, serverID, models.RoleKindUncertain)
		if err != nil {
			return err
		}
		if uncertain == nil {
			return Internal("INTERNAL", "server has no fallback role")
		}

		compensated, afterRoles, err := removeWithFallback(ctx, r, serverID, m, roleID, uncertain.ID)
		if err != nil {
			return err
		}

		if !m.IsBanned {
			idx, err := loadIndex(ctx, r, serverID)
			if err != nil {
				return err
			}
			before := idx.VisibleTo(m.Roles)
			after := idx.VisibleTo(afterRoles)

			delta, err := s.cursors.Reconcile(ctx, r, targetID, before, after)
			if err != nil {
				return err
			}
			events = append(events, cursorEvents(targetID, delta)...)
		}

		events = append(events, pendingEvent{
			serverID: serverID,
			name:     gateway.EventRoleRevoke,
			data:     map[string]any{"server_id": serverID, "user_id": targetID, "role_id": roleID},
		})
		if compensated {
			events = append(events, pendingEvent{
				serverID: serverID,
				name:     gateway.EventRoleGrant,
				data:     map[string]any{"server_id": serverID, "user_id": targetID, "role_id": uncertain.ID},
			})
		}
		return nil
	})
	if err != nil {
		return wrapTxErr("revoke role", err)
	}

	dispatchAll(s.gateway, events)
	return nil
}

// DeleteRole deletes a Custom role. Every membership holding it is migrated
// first: the role is removed with the Uncertain fallback where needed and the
// cursor delta applied per holder, so no membership is ever observed with
// zero roles and no cursor outlives its visibility.
func (s *RoleService) DeleteRole(ctx context.Context, serverID, actorID, roleID int64) error {
	var events []pendingEvent
	err := s.store.InTx(ctx, func(r *database.Repositories) error {
		events = events[:0]

		role, err := r.Roles.GetByID(ctx, roleID)
		if err != nil {
			return err
		}
		if role == nil || role.ServerID != serverID {
			return NotFound("NOT_FOUND", "role not found")
		}
		if role.Kind != models.RoleKindCustom {
			return Forbidden("PROTECTED_ROLE", "only custom roles can be deleted")
		}

		aRoles, err := actorRoles(ctx, r, serverID, actorID)
		if err != nil {
			return err
		}
		if err := requireFlag(aRoles, permissions.FlagCreateRoles); err != nil {
			return err
		}
		if err := requireOutranks(aRoles, role.Kind); err != nil {
			return err
		}

		uncertain, err := r.Roles.GetByKind(ctx, serverID, models.RoleKindUncertain)
		if err != nil {
			return err
		}
		if uncertain == nil {
			return Internal("INTERNAL", "server has no fallback role")
		}

		idx, err := loadIndex(ctx, r, serverID)
		if err != nil {
			return err
		}
		afterIdx := idx.Clone()
		afterIdx.RemoveRole(roleID)

		holders, err := r.Roles.HoldersOf(ctx, roleID)
		if err != nil {
			return err
		}
		for _, userID := range holders {
			m, err := r.Memberships.GetForUpdate(ctx, serverID, userID)
			if err != nil {
				return err
			}
			if m == nil {
				continue
			}

			_, afterRoles, err := removeWithFallback(ctx, r, serverID, m, roleID, uncertain.ID)
			if err != nil {
				return err
			}

			if m.IsBanned {
				continue
			}
			before := idx.VisibleTo(m.Roles)
			after := afterIdx.VisibleTo(afterRoles)
			delta, err := s.cursors.Reconcile(ctx, r, userID, before, after)
			if err != nil {
				return err
			}
			events = append(events, cursorEvents(userID, delta)...)
		}

		if err := r.Grants.DeleteByRole(ctx, roleID); err != nil {
			return err
		}
		if err := r.Roles.Delete(ctx, roleID); err != nil {
			return err
		}

		events = append(events, pendingEvent{
			serverID: serverID,
			name:     gateway.EventServerRoleDelete,
			data:     map[string]any{"server_id": serverID, "role_id": roleID},
		})
		return nil
	})
	if err != nil {
		return wrapTxErr("delete role", err)
	}

	dispatchAll(s.gateway, events)
	return nil
}

// ResetToFallback replaces the target membership's entire role set with the
// Uncertain fallback and reconciles cursors in the same transaction. The
// admin bulk-reset path.
func (s *RoleService) ResetToFallback(ctx context.Context, serverID, actorID, targetID int64) error {
	var events []pendingEvent
	err := s.store.InTx(ctx, func(r *database.Repositories) error {
		events = events[:0]

		aRoles, err := actorRoles(ctx, r, serverID, actorID)
		if err != nil {
			return err
		}
		if err := requireFlag(aRoles, permissions.FlagChangeRole); err != nil {
			return err
		}

		m, err := r.Memberships.GetForUpdate(ctx, serverID, targetID)
		if err != nil {
			return err
		}
		if m == nil {
			return NotFound("NOT_FOUND", "member not found")
		}
		if m.IsBanned {
			return Forbidden("MEMBER_BANNED", "member is banned from this server")
		}

		tRoles, err := r.Roles.GetByMembership(ctx, serverID, targetID)
		if err != nil {
			return err
		}
		if len(tRoles) > 0 {
			if err := requireOutranks(aRoles, permissions.HighestKind(tRoles)); err != nil {
				return err
			}
		}

		uncertain, err := r.Roles.GetByKind(ctx, serverID, models.RoleKindUncertain)
		if err != nil {
			return err
		}
		if uncertain == nil {
			return Internal("INTERNAL", "server has no fallback role")
		}

		return s.resetMembership(ctx, r, serverID, m, uncertain.ID, &events)
	})
	if err != nil {
		return wrapTxErr("reset roles", err)
	}

	dispatchAll(s.gateway, events)
	return nil
}

// resetMembership replaces the role set with exactly the Uncertain fallback
// and reconciles cursors against the new set.
func (s *RoleService) resetMembership(ctx context.Context, r *database.Repositories, serverID int64, m *models.Membership, uncertainID int64, events *[]pendingEvent) error {
	idx, err := loadIndex(ctx, r, serverID)
	if err != nil {
		return err
	}
	before := idx.VisibleTo(m.Roles)

	if err := r.Memberships.SetRoles(ctx, serverID, m.UserID, []int64{uncertainID}); err != nil {
		return err
	}
	after := idx.VisibleTo([]int64{uncertainID})

	delta, err := s.cursors.Reconcile(ctx, r, m.UserID, before, after)
	if err != nil {
		return err
	}

	*events = append(*events, pendingEvent{
		serverID: serverID,
		name:     gateway.EventRoleGrant,
		data:     map[string]any{"server_id": serverID, "user_id": m.UserID, "role_id": uncertainID, "reset": true},
	})
	*events = append(*events, cursorEvents(m.UserID, delta)...)
	return nil
}

// removeWithFallback removes roleID from the membership, granting the
// Uncertain fallback first when the removal would empty the role set. The
// compensating grant happens before the removal so there is no zero-role
// window even transiently. A sole Uncertain role cannot be removed.
func removeWithFallback(ctx context.Context, r *database.Repositories, serverID int64, m *models.Membership, roleID, uncertainID int64) (compensated bool, afterRoles []int64, err error) {
	sole := len(m.Roles) == 1 && m.Roles[0] == roleID
	if sole && roleID == uncertainID {
		return false, nil, InvariantViolation("LAST_ROLE", "cannot remove the member's last role")
	}

	if sole {
		if err := r.Memberships.AddRole(ctx, serverID, m.UserID, uncertainID); err != nil {
			return false, nil, err
		}
		compensated = true
	}
	if err := r.Memberships.RemoveRole(ctx, serverID, m.UserID, roleID); err != nil {
		return false, nil, err
	}

	for _, id := range m.Roles {
		if id != roleID {
			afterRoles = append(afterRoles, id)
		}
	}
	if compensated {
		afterRoles = append(afterRoles, uncertainID)
	}
	return compensated, afterRoles, nil
}

// grantToMembership is the preset fan-out path: it adds a role to an active
// membership with cursor seeding but without actor checks, which the preset
// caller has already done at the system level. A membership already holding
// the role is skipped, not an error.
func grantToMembership(ctx context.Context, r *database.Repositories, cm *CursorMaintainer, idx *visibility.Index, serverID int64, m *models.Membership, roleID int64, events *[]pendingEvent) error {
	if m.HasRole(roleID) || m.IsBanned {
		return nil
	}

	before := idx.VisibleTo(m.Roles)
	if err := r.Memberships.AddRole(ctx, serverID, m.UserID, roleID); err != nil {
		return err
	}
	after := idx.VisibleTo(append(m.Roles, roleID))

	delta, err := cm.Reconcile(ctx, r, m.UserID, before, after)
	if err != nil {
		return err
	}

	*events = append(*events, pendingEvent{
		serverID: serverID,
		name:     gateway.EventRoleGrant,
		data:     map[string]any{"server_id": serverID, "user_id": m.UserID, "role_id": roleID},
	})
	*events = append(*events, cursorEvents(m.UserID, delta)...)
	return nil
}

// revokeFromMembership is the preset fan-out counterpart of grantToMembership.
// A membership not holding the role is skipped.
func revokeFromMembership(ctx context.Context, r *database.Repositories, cm *CursorMaintainer, idx *visibility.Index, serverID int64, m *models.Membership, roleID, uncertainID int64, events *[]pendingEvent) error {
	if !m.HasRole(roleID) {
		return nil
	}

	compensated, afterRoles, err := removeWithFallback(ctx, r, serverID, m, roleID, uncertainID)
	if err != nil {
		return err
	}

	if !m.IsBanned {
		before := idx.VisibleTo(m.Roles)
		after := idx.VisibleTo(afterRoles)
		delta, err := cm.Reconcile(ctx, r, m.UserID, before, after)
		if err != nil {
			return err
		}
		*events = append(*events, cursorEvents(m.UserID, delta)...)
	}

	*events = append(*events, pendingEvent{
		serverID: serverID,
		name:     gateway.EventRoleRevoke,
		data:     map[string]any{"server_id": serverID, "user_id": m.UserID, "role_id": roleID},
	})
	if compensated {
		*events = append(*events, pendingEvent{
			serverID: serverID,
			name:     gateway.EventRoleGrant,
			data:     map[string]any{"server_id": serverID, "user_id": m.UserID, "role_id": uncertainID},
		})
	}
	return nil
}
