package models

import "time"

type ChannelKind int

const (
	ChannelKindText         ChannelKind = 0
	ChannelKindVoice        ChannelKind = 1
	ChannelKindNotification ChannelKind = 2
	ChannelKindSub          ChannelKind = 3
	ChannelKindPair         ChannelKind = 4
)

// MessageBearing reports whether channels of this kind carry a message stream
// and therefore participate in read-cursor maintenance.
func (k ChannelKind) MessageBearing() bool {
	switch k {
	case ChannelKindText, ChannelKindNotification, ChannelKindSub:
		return true
	}
	return false
}

type Channel struct {
	ID       int64       `json:"id,string"`
	ServerID int64       `json:"server_id,string"`
	Name     string      `json:"name"`
	Kind     ChannelKind `json:"kind"`
	Position int         `json:"position"`
	// ParentID is set for Sub channels and points at their Text channel.
	ParentID *int64 `json:"parent_id,string,omitempty"`
	// DeletedAt marks a soft-deleted message-bearing channel. Soft-deleted
	// channels are excluded from visibility immediately but kept for the
	// retention window.
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

func (c *Channel) Deleted() bool { return c.DeletedAt != nil }
