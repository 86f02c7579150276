package models

import "time"

// Membership is a user's subscription to a server, carrying the set of roles
// currently assigned to it. The role set is never empty between operations.
type Membership struct {
	ServerID    int64      `json:"server_id,string"`
	UserID      int64      `json:"user_id,string"`
	DisplayName *string    `json:"display_name,omitempty"`
	JoinedAt    time.Time  `json:"joined_at"`
	IsBanned    bool       `json:"is_banned"`
	BanReason   *string    `json:"ban_reason,omitempty"`
	BannedAt    *time.Time `json:"banned_at,omitempty"`
	Roles       []int64    `json:"roles"`
}

func (m *Membership) HasRole(roleID int64) bool {
	for _, id := range m.Roles {
		if id == roleID {
			return true
		}
	}
	return false
}
