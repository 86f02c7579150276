package gateway

import (
	"encoding/json"

	"github.com/chebupelek/hitscord-sub000/internal/models"
)

// Op codes for gateway payloads.
const (
	OpDispatch       = 0
	OpHeartbeat      = 1
	OpIdentify       = 2
	OpPresenceUpdate = 3
	OpResume         = 6
	OpReconnect      = 7
	OpHello          = 10
	OpHeartbeatAck   = 11
)

// Event names for DISPATCH payloads.
const (
	EventReady                   = "READY"
	EventServerCreate            = "SERVER_CREATE"
	EventServerUpdate            = "SERVER_UPDATE"
	EventServerDelete            = "SERVER_DELETE"
	EventChannelCreate           = "CHANNEL_CREATE"
	EventChannelUpdate           = "CHANNEL_UPDATE"
	EventChannelDelete           = "CHANNEL_DELETE"
	EventChannelPermissionUpdate = "CHANNEL_PERMISSION_UPDATE"
	EventServerMemberAdd         = "SERVER_MEMBER_ADD"
	EventServerMemberRemove      = "SERVER_MEMBER_REMOVE"
	EventServerRoleCreate        = "SERVER_ROLE_CREATE"
	EventServerRoleUpdate        = "SERVER_ROLE_UPDATE"
	EventServerRoleDelete        = "SERVER_ROLE_DELETE"
	EventRoleGrant               = "ROLE_GRANT"
	EventRoleRevoke              = "ROLE_REVOKE"
	EventServerBanAdd            = "SERVER_BAN_ADD"
	EventServerBanRemove         = "SERVER_BAN_REMOVE"
	EventReadCursorUpdate        = "READ_CURSOR_UPDATE"
	EventPresenceUpdate          = "PRESENCE_UPDATE"
)

// Payload is the envelope for all gateway messages.
type Payload struct {
	Op       int             `json:"op"`
	Data     json.RawMessage `json:"d,omitempty"`
	Sequence *int64          `json:"s,omitempty"`
	Event    *string         `json:"t,omitempty"`
}

// IdentifyData is sent by the client in an Op 2 IDENTIFY.
type IdentifyData struct {
	Token string `json:"token"`
}

// ResumeData is sent by the client in an Op 6 RESUME.
type ResumeData struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Sequence  int64  `json:"seq"`
}

// HelloData is sent by the server after WebSocket connect.
type HelloData struct {
	HeartbeatInterval int `json:"heartbeat_interval"`
}

// ReadyData is sent by the server after successful IDENTIFY. Cursors carries
// the user's full read-cursor set so clients start from a consistent unread
// picture without a second round trip.
type ReadyData struct {
	SessionID string              `json:"session_id"`
	UserID    int64               `json:"user_id,string"`
	Servers   []int64             `json:"servers"`
	Cursors   []models.ReadCursor `json:"cursors"`
}

// Event is a dispatch event ready to broadcast.
type Event struct {
	Name string
	Data any
}

// ReadCursorUpdateData is the payload for READ_CURSOR_UPDATE events. Deleted
// marks cursor removal; clients drop the channel from their unread tracking.
type ReadCursorUpdateData struct {
	ChannelID     int64 `json:"channel_id,string"`
	LastMessageID int64 `json:"last_message_id,string"`
	Deleted       bool  `json:"deleted,omitempty"`
}

// PresenceUpdateData is the payload for PRESENCE_UPDATE events.
type PresenceUpdateData struct {
	UserID int64  `json:"user_id,string"`
	Status string `json:"status"`
}

// ClientPresenceUpdate is sent by the client in an Op 3 PRESENCE_UPDATE.
type ClientPresenceUpdate struct {
	Status string `json:"status"`
}
