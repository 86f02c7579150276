package permissions

import "github.com/chebupelek/hitscord-sub000/internal/models"

// Rank maps a role kind to its position in the hierarchy total order:
// Uncertain < Custom < Admin < Creator. The numeric values of RoleKind are the
// order, but callers go through Rank so the ordering stays explicit.
func Rank(kind models.RoleKind) int {
	return int(kind)
}

// Outranks reports whether kind a sits strictly above kind b. Equal rank
// confers no authority: an Admin cannot act on another Admin's roles.
func Outranks(a, b models.RoleKind) bool {
	return Rank(a) > Rank(b)
}

// HighestKind returns the highest-ranked kind among the given roles, or
// RoleKindUncertain for an empty set.
func HighestKind(roles []models.Role) models.RoleKind {
	highest := models.RoleKindUncertain
	for _, r := range roles {
		if Rank(r.Kind) > Rank(highest) {
			highest = r.Kind
		}
	}
	return highest
}

// LowestKind returns the lowest-ranked kind among the given roles, or
// RoleKindCreator for an empty set.
func LowestKind(roles []models.Role) models.RoleKind {
	lowest := models.RoleKindCreator
	for _, r := range roles {
		if Rank(r.Kind) < Rank(lowest) {
			lowest = r.Kind
		}
	}
	return lowest
}
