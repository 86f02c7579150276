package service

import (
	"context"

	"github.com/chebupelek/hitscord-sub000/internal/database"
	"github.com/chebupelek/hitscord-sub000/internal/gateway"
	"github.com/chebupelek/hitscord-sub000/internal/models"
	"github.com/chebupelek/hitscord-sub000/internal/snowflake"
	"github.com/chebupelek/hitscord-sub000/internal/visibility"
)

// PresetService links org-wide system roles to server roles. Granting or
// revoking a system role, or adding or removing a preset mapping, fans out
// through the regular role grant/revoke machinery so cursor maintenance is
// identical to a direct role mutation.
//
// Authorization for these operations lives at the API layer (admin console);
// the service assumes the caller is allowed to manage system roles.
type PresetService struct {
	store     *database.Store
	snowflake *snowflake.Generator
	gateway   gateway.Dispatcher
	cursors   *CursorMaintainer
}

// NewPresetService creates a PresetService.
func NewPresetService(store *database.Store, sf *snowflake.Generator, gw gateway.Dispatcher) *PresetService {
	return &PresetService{store: store, snowflake: sf, gateway: gw, cursors: &CursorMaintainer{}}
}

// CreateSystemRole registers a new org-wide role.
func (s *PresetService) CreateSystemRole(ctx context.Context, name string) (*models.SystemRole, error) {
	if name == "" || len(name) > 100 {
		return nil, BadRequest("INVALID_NAME", "name must be 1-100 characters")
	}
	role := &models.SystemRole{ID: s.snowflake.Generate().Int64(), Name: name}
	if err := s.store.Presets.CreateSystemRole(ctx, role); err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	return role, nil
}

// serverContext caches the per-server state a fan-out needs: the visibility
// index and the Uncertain fallback role ID.
type serverContext struct {
	idx         *visibility.Index
	uncertainID int64
}

func loadServerContext(ctx context.Context, r *database.Repositories, cache map[int64]*serverContext, serverID int64) (*serverContext, error) {
	if sc, ok := cache[serverID]; ok {
		return sc, nil
	}
	idx, err := loadIndex(ctx, r, serverID)
	if err != nil {
		return nil, err
	}
	uncertain, err := r.Roles.GetByKind(ctx, serverID, models.RoleKindUncertain)
	if err != nil {
		return nil, err
	}
	if uncertain == nil {
		return nil, Internal("INTERNAL", "server has no fallback role")
	}
	sc := &serverContext{idx: idx, uncertainID: uncertain.ID}
	cache[serverID] = sc
	return sc, nil
}

// ApplyPreset maps a system role onto a server role and grants the server
// role to every current holder of the system role who is a member of that
// server.
func (s *PresetService) ApplyPreset(ctx context.Context, systemRoleID, serverRoleID int64) error {
	var events []pendingEvent
	err := s.store.InTx(ctx, func(r *database.Repositories) error {
		events = events[:0]

		sysRole, err := r.Presets.GetSystemRole(ctx, systemRoleID)
		if err != nil {
			return err
		}
		if sysRole == nil {
			return NotFound("NOT_FOUND", "system role not found")
		}
		role, err := r.Roles.GetByID(ctx, serverRoleID)
		if err != nil {
			return err
		}
		if role == nil {
			return NotFound("NOT_FOUND", "role not found")
		}
		if role.Kind == models.RoleKindCreator {
			return Forbidden("PROTECTED_ROLE", "the creator role cannot be mapped by a preset")
		}

		ok, err := r.Presets.CreatePreset(ctx, &models.Preset{SystemRoleID: systemRoleID, ServerRoleID: serverRoleID})
		if err != nil {
			return err
		}
		if !ok {
			return Conflict("DUPLICATE_PRESET", "preset already exists")
		}

		idx, err := loadIndex(ctx, r, role.ServerID)
		if err != nil {
			return err
		}

		holders, err := r.Presets.UsersWithSystemRole(ctx, systemRoleID)
		if err != nil {
			return err
		}
		for _, userID := range holders {
			m, err := r.Memberships.GetForUpdate(ctx, role.ServerID, userID)
			if err != nil {
				return err
			}
			if m == nil {
				continue
			}
			if err := grantToMembership(ctx, r, s.cursors, idx, role.ServerID, m, serverRoleID, &events); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return wrapTxErr("apply preset", err)
	}

	dispatchAll(s.gateway, events)
	return nil
}

// RemovePreset deletes a preset mapping and revokes the server role from every
// holder of the system role, with the usual Uncertain compensation when the
// role was a member's last one.
func (s *PresetService) RemovePreset(ctx context.Context, systemRoleID, serverRoleID int64) error {
	var events []pendingEvent
	err := s.store.InTx(ctx, func(r *database.Repositories) error {
		events = events[:0]

		role, err := r.Roles.GetByID(ctx, serverRoleID)
		if err != nil {
			return err
		}
		if role == nil {
			return NotFound("NOT_FOUND", "role not found")
		}

		ok, err := r.Presets.DeletePreset(ctx, systemRoleID, serverRoleID)
		if err != nil {
			return err
		}
		if !ok {
			return NotFound("NOT_FOUND", "preset not found")
		}

		cache := make(map[int64]*serverContext)
		sc, err := loadServerContext(ctx, r, cache, role.ServerID)
		if err != nil {
			return err
		}

		holders, err := r.Presets.UsersWithSystemRole(ctx, systemRoleID)
		if err != nil {
			return err
		}
		for _, userID := range holders {
			m, err := r.Memberships.GetForUpdate(ctx, role.ServerID, userID)
			if err != nil {
				return err
			}
			if m == nil {
				continue
			}
			if err := revokeFromMembership(ctx, r, s.cursors, sc.idx, role.ServerID, m, serverRoleID, sc.uncertainID, &events); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return wrapTxErr("remove preset", err)
	}

	dispatchAll(s.gateway, events)
	return nil
}

// GrantSystemRole assigns a system role to a user and grants every preset-linked
// server role on servers where the user is a member.
func (s *PresetService) GrantSystemRole(ctx context.Context, userID, systemRoleID int64) error {
	var events []pendingEvent
	err := s.store.InTx(ctx, func(r *database.Repositories) error {
		events = events[:0]

		sysRole, err := r.Presets.GetSystemRole(ctx, systemRoleID)
		if err != nil {
			return err
		}
		if sysRole == nil {
			return NotFound("NOT_FOUND", "system role not found")
		}
		user, err := r.Users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return NotFound("NOT_FOUND", "user not found")
		}

		ok, err := r.Presets.AssignSystemRole(ctx, userID, systemRoleID)
		if err != nil {
			return err
		}
		if !ok {
			return Conflict("ALREADY_GRANTED", "user already holds this system role")
		}

		presets, err := r.Presets.PresetsBySystemRole(ctx, systemRoleID)
		if err != nil {
			return err
		}
		cache := make(map[int64]*serverContext)
		for _, p := range presets {
			role, err := r.Roles.GetByID(ctx, p.ServerRoleID)
			if err != nil {
				return err
			}
			if role == nil {
				continue
			}
			m, err := r.Memberships.GetForUpdate(ctx, role.ServerID, userID)
			if err != nil {
				return err
			}
			if m == nil {
				continue
			}
			sc, err := loadServerContext(ctx, r, cache, role.ServerID)
			if err != nil {
				return err
			}
			if err := grantToMembership(ctx, r, s.cursors, sc.idx, role.ServerID, m, p.ServerRoleID, &events); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return wrapTxErr("grant system role", err)
	}

	dispatchAll(s.gateway, events)
	return nil
}

// RevokeSystemRole unassigns a system role and revokes every preset-linked
// server role. A server role the user still holds through another held system
// role's preset is kept.
func (s *PresetService) RevokeSystemRole(ctx context.Context, userID, systemRoleID int64) error {
	var events []pendingEvent
	err := s.store.InTx(ctx, func(r *database.Repositories) error {
		events = events[:0]

		ok, err := r.Presets.UnassignSystemRole(ctx, userID, systemRoleID)
		if err != nil {
			return err
		}
		if !ok {
			return NotFound("NOT_FOUND", "user does not hold this system role")
		}

		remaining, err := r.Presets.SystemRolesOfUser(ctx, userID)
		if err != nil {
			return err
		}

		presets, err := r.Presets.PresetsBySystemRole(ctx, systemRoleID)
		if err != nil {
			return err
		}
		cache := make(map[int64]*serverContext)
		for _, p := range presets {
			held, err := heldThroughOther(ctx, r, p.ServerRoleID, remaining)
			if err != nil {
				return err
			}
			if held {
				continue
			}

			role, err := r.Roles.GetByID(ctx, p.ServerRoleID)
			if err != nil {
				return err
			}
			if role == nil {
				continue
			}
			m, err := r.Memberships.GetForUpdate(ctx, role.ServerID, userID)
			if err != nil {
				return err
			}
			if m == nil {
				continue
			}
			sc, err := loadServerContext(ctx, r, cache, role.ServerID)
			if err != nil {
				return err
			}
			if err := revokeFromMembership(ctx, r, s.cursors, sc.idx, role.ServerID, m, p.ServerRoleID, sc.uncertainID, &events); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return wrapTxErr("revoke system role", err)
	}

	dispatchAll(s.gateway, events)
	return nil
}

// heldThroughOther reports whether any of the user's remaining system roles
// also maps to the server role through a preset.
func heldThroughOther(ctx context.Context, r *database.Repositories, serverRoleID int64, remaining []int64) (bool, error) {
	if len(remaining) == 0 {
		return false, nil
	}
	links, err := r.Presets.PresetsByServerRole(ctx, serverRoleID)
	if err != nil {
		return false, err
	}
	for _, link := range links {
		for _, sysID := range remaining {
			if link.SystemRoleID == sysID {
				return true, nil
			}
		}
	}
	return false, nil
}
