package models

// RoleKind orders roles into an explicit hierarchy. Higher values outrank lower
// ones; equal kinds confer no authority over each other.
type RoleKind int

const (
	RoleKindUncertain RoleKind = 0
	RoleKindCustom    RoleKind = 1
	RoleKindAdmin     RoleKind = 2
	RoleKindCreator   RoleKind = 3
)

type Role struct {
	ID          int64    `json:"id,string"`
	ServerID    int64    `json:"server_id,string"`
	Name        string   `json:"name"`
	Tag         string   `json:"tag"`
	Color       int      `json:"color"`
	Kind        RoleKind `json:"kind"`
	Permissions int64    `json:"permissions,string"`
}

// Protected reports whether the role is one of the two mandatory roles created
// with the server. Protected roles cannot be deleted.
func (r *Role) Protected() bool {
	return r.Kind == RoleKindCreator || r.Kind == RoleKindUncertain
}
