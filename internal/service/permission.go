package service

import (
	"context"

	"github.com/chebupelek/hitscord-sub000/internal/database"
	"github.com/chebupelek/hitscord-sub000/internal/models"
	"github.com/chebupelek/hitscord-sub000/internal/permissions"
)

// Permission checks shared by every mutation path. They take the calling
// transaction's repositories so the checks see the same snapshot the mutation
// acts on.

// activeMembership loads a membership and rejects absent or banned members.
func activeMembership(ctx context.Context, r *database.Repositories, serverID, userID int64) (*models.Membership, error) {
	m, err := r.Memberships.GetByServerAndUser(ctx, serverID, userID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, NotFound("NOT_FOUND", "member not found")
	}
	if m.IsBanned {
		return nil, Forbidden("MEMBER_BANNED", "member is banned from this server")
	}
	return m, nil
}

// actorRoles verifies the actor is an active member and returns their roles.
func actorRoles(ctx context.Context, r *database.Repositories, serverID, actorID int64) ([]models.Role, error) {
	m, err := r.Memberships.GetByServerAndUser(ctx, serverID, actorID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, Forbidden("FORBIDDEN", "you are not a member of this server")
	}
	if m.IsBanned {
		return nil, Forbidden("FORBIDDEN", "you are banned from this server")
	}
	return r.Roles.GetByMembership(ctx, serverID, actorID)
}

// requireFlag checks the union of the actor's role flags for flag.
func requireFlag(roles []models.Role, flag permissions.Flag) error {
	var held permissions.Flag
	for _, role := range roles {
		held = held.Add(permissions.Flag(role.Permissions))
	}
	if !held.Has(flag) {
		return Forbidden("MISSING_PERMISSIONS", "you do not have permission to perform this action")
	}
	return nil
}

// requireOutranks checks that the actor's highest role kind sits strictly
// above target. Equal rank confers no authority.
func requireOutranks(roles []models.Role, target models.RoleKind) error {
	if !permissions.Outranks(permissions.HighestKind(roles), target) {
		return RoleHierarchyError("your role does not outrank the target")
	}
	return nil
}
