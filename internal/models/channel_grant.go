package models

// ChannelGrant is a capability edge from a role to a channel.
type ChannelGrant struct {
	ChannelID  int64 `json:"channel_id,string"`
	RoleID     int64 `json:"role_id,string"`
	Capability int   `json:"capability"`
}
