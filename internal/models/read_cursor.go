package models

import "time"

// ReadCursor records the last message a user has acknowledged reading in a
// channel. A cursor row exists exactly when the channel is message-bearing and
// visible to the user through some currently assigned role of a non-banned
// membership.
type ReadCursor struct {
	UserID        int64     `json:"user_id,string"`
	ChannelID     int64     `json:"channel_id,string"`
	LastMessageID int64     `json:"last_message_id,string"`
	UpdatedAt     time.Time `json:"updated_at"`
}
