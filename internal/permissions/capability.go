package permissions

import "github.com/chebupelek/hitscord-sub000/internal/models"

// Capability is one channel-scoped permission a role can be granted on a
// channel. Capabilities form a partial order: WriteSub ⊃ Write ⊃ See, and
// Notify/Join each ⊃ See. Use stands alone and applies to Sub channels only.
type Capability int

const (
	CapSee      Capability = 0
	CapWrite    Capability = 1
	CapWriteSub Capability = 2
	CapUse      Capability = 3
	CapJoin     Capability = 4
	CapNotify   Capability = 5
)

var capNames = map[Capability]string{
	CapSee:      "CAN_SEE",
	CapWrite:    "CAN_WRITE",
	CapWriteSub: "CAN_WRITE_SUB",
	CapUse:      "CAN_USE",
	CapJoin:     "CAN_JOIN",
	CapNotify:   "NOTIFICATED",
}

func (c Capability) String() string {
	if name, ok := capNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}

// ForKind returns the capabilities that are valid on a channel of the given kind.
func ForKind(kind models.ChannelKind) []Capability {
	switch kind {
	case models.ChannelKindText, models.ChannelKindNotification:
		return []Capability{CapSee, CapWrite, CapWriteSub, CapNotify}
	case models.ChannelKindVoice, models.ChannelKindPair:
		return []Capability{CapSee, CapJoin}
	case models.ChannelKindSub:
		return []Capability{CapUse}
	}
	return nil
}

// ValidFor reports whether the capability applies to channels of the given kind.
func (c Capability) ValidFor(kind models.ChannelKind) bool {
	for _, v := range ForKind(kind) {
		if v == c {
			return true
		}
	}
	return false
}

// VisibilityCap returns the capability that makes a channel of the given kind
// visible: CanUse for Sub channels, CanSee for everything else.
func VisibilityCap(kind models.ChannelKind) Capability {
	if kind == models.ChannelKindSub {
		return CapUse
	}
	return CapSee
}

// GrantClosure returns c together with every capability it implies, weakest
// last. Granting CanWriteSub therefore also grants CanWrite and CanSee.
func (c Capability) GrantClosure() []Capability {
	switch c {
	case CapWrite:
		return []Capability{CapWrite, CapSee}
	case CapWriteSub:
		return []Capability{CapWriteSub, CapWrite, CapSee}
	case CapNotify:
		return []Capability{CapNotify, CapSee}
	case CapJoin:
		return []Capability{CapJoin, CapSee}
	}
	return []Capability{c}
}

// RevokeCascade returns every capability revoked on the same channel when c is
// revoked. Revoking CanSee strips everything above it; revoking CanWrite strips
// CanWriteSub but leaves CanSee.
func (c Capability) RevokeCascade() []Capability {
	switch c {
	case CapSee:
		return []Capability{CapSee, CapWrite, CapWriteSub, CapNotify, CapJoin}
	case CapWrite:
		return []Capability{CapWrite, CapWriteSub}
	}
	return []Capability{c}
}

// CascadesToSubChannels reports whether revoking c on a Text channel also
// revokes CanUse on that channel's Sub channels.
func (c Capability) CascadesToSubChannels() bool {
	return c == CapSee || c == CapWrite
}
