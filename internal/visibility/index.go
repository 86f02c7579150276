package visibility

import (
	"github.com/chebupelek/hitscord-sub000/internal/models"
	"github.com/chebupelek/hitscord-sub000/internal/permissions"
)

// Index is the capability graph of a single server, indexed both ways:
// role → channels and channel → roles, per capability. All visibility set
// algebra runs against an Index loaded once per mutation rather than against
// live relational joins. There is exactly one source of truth (the relational
// grant rows); the Index is a per-transaction view of them.
type Index struct {
	channels     map[int64]models.Channel
	roleChannels map[permissions.Capability]map[int64]map[int64]struct{}
	channelRoles map[permissions.Capability]map[int64]map[int64]struct{}
}

// NewIndex builds an Index from a server's channels and grant rows.
// Soft-deleted channels, and edges pointing at them, are excluded.
func NewIndex(channels []models.Channel, grants []models.ChannelGrant) *Index {
	ix := &Index{
		channels:     make(map[int64]models.Channel, len(channels)),
		roleChannels: make(map[permissions.Capability]map[int64]map[int64]struct{}),
		channelRoles: make(map[permissions.Capability]map[int64]map[int64]struct{}),
	}
	for _, ch := range channels {
		if ch.Deleted() {
			continue
		}
		ix.channels[ch.ID] = ch
	}
	for _, g := range grants {
		ix.Grant(g.ChannelID, g.RoleID, permissions.Capability(g.Capability))
	}
	return ix
}

// Channel returns the live channel with the given ID.
func (ix *Index) Channel(id int64) (models.Channel, bool) {
	ch, ok := ix.channels[id]
	return ch, ok
}

// AddChannel inserts a live channel into the index.
func (ix *Index) AddChannel(ch models.Channel) {
	if !ch.Deleted() {
		ix.channels[ch.ID] = ch
	}
}

// RemoveChannel drops a channel and all of its edges from the index.
func (ix *Index) RemoveChannel(id int64) {
	delete(ix.channels, id)
	for cap, byChannel := range ix.channelRoles {
		for roleID := range byChannel[id] {
			delete(ix.roleChannels[cap][roleID], id)
		}
		delete(byChannel, id)
	}
}

// SubChannels returns the IDs of live Sub channels whose parent is channelID.
func (ix *Index) SubChannels(channelID int64) []int64 {
	var subs []int64
	for id, ch := range ix.channels {
		if ch.Kind == models.ChannelKindSub && ch.ParentID != nil && *ch.ParentID == channelID {
			subs = append(subs, id)
		}
	}
	return subs
}

// Grant adds a capability edge. Edges to unknown (deleted) channels are dropped.
func (ix *Index) Grant(channelID, roleID int64, cap permissions.Capability) {
	if _, ok := ix.channels[channelID]; !ok {
		return
	}
	if ix.roleChannels[cap] == nil {
		ix.roleChannels[cap] = make(map[int64]map[int64]struct{})
	}
	if ix.roleChannels[cap][roleID] == nil {
		ix.roleChannels[cap][roleID] = make(map[int64]struct{})
	}
	ix.roleChannels[cap][roleID][channelID] = struct{}{}

	if ix.channelRoles[cap] == nil {
		ix.channelRoles[cap] = make(map[int64]map[int64]struct{})
	}
	if ix.channelRoles[cap][channelID] == nil {
		ix.channelRoles[cap][channelID] = make(map[int64]struct{})
	}
	ix.channelRoles[cap][channelID][roleID] = struct{}{}
}

// Revoke removes a capability edge.
func (ix *Index) Revoke(channelID, roleID int64, cap permissions.Capability) {
	if byRole, ok := ix.roleChannels[cap]; ok {
		delete(byRole[roleID], channelID)
	}
	if byChannel, ok := ix.channelRoles[cap]; ok {
		delete(byChannel[channelID], roleID)
	}
}

// HasEdge reports whether the exact capability edge exists.
func (ix *Index) HasEdge(channelID, roleID int64, cap permissions.Capability) bool {
	byChannel, ok := ix.channelRoles[cap]
	if !ok {
		return false
	}
	_, ok = byChannel[channelID][roleID]
	return ok
}

// RolesWith returns the IDs of roles holding the capability on the channel.
func (ix *Index) RolesWith(channelID int64, cap permissions.Capability) map[int64]struct{} {
	out := make(map[int64]struct{})
	for roleID := range ix.channelRoles[cap][channelID] {
		out[roleID] = struct{}{}
	}
	return out
}

// RemoveRole drops every edge of the role from the index.
func (ix *Index) RemoveRole(roleID int64) {
	for cap, byRole := range ix.roleChannels {
		for channelID := range byRole[roleID] {
			delete(ix.channelRoles[cap][channelID], roleID)
		}
		delete(byRole, roleID)
	}
}

// VisibleTo returns the set of message-bearing channels visible through the
// union of the given roles: CanSee edges for Text/Notification channels,
// CanUse edges for Sub channels.
func (ix *Index) VisibleTo(roleIDs []int64) map[int64]struct{} {
	visible := make(map[int64]struct{})
	for _, roleID := range roleIDs {
		for _, cap := range []permissions.Capability{permissions.CapSee, permissions.CapUse} {
			for channelID := range ix.roleChannels[cap][roleID] {
				ch := ix.channels[channelID]
				if !ch.Kind.MessageBearing() {
					continue
				}
				if permissions.VisibilityCap(ch.Kind) != cap {
					continue
				}
				visible[channelID] = struct{}{}
			}
		}
	}
	return visible
}

// Clone returns a deep copy of the index. Mutation paths clone the loaded
// index, apply their edits to the copy, and diff the two per membership.
func (ix *Index) Clone() *Index {
	cp := &Index{
		channels:     make(map[int64]models.Channel, len(ix.channels)),
		roleChannels: make(map[permissions.Capability]map[int64]map[int64]struct{}, len(ix.roleChannels)),
		channelRoles: make(map[permissions.Capability]map[int64]map[int64]struct{}, len(ix.channelRoles)),
	}
	for id, ch := range ix.channels {
		cp.channels[id] = ch
	}
	for cap, byRole := range ix.roleChannels {
		cp.roleChannels[cap] = make(map[int64]map[int64]struct{}, len(byRole))
		for roleID, set := range byRole {
			s := make(map[int64]struct{}, len(set))
			for id := range set {
				s[id] = struct{}{}
			}
			cp.roleChannels[cap][roleID] = s
		}
	}
	for cap, byChannel := range ix.channelRoles {
		cp.channelRoles[cap] = make(map[int64]map[int64]struct{}, len(byChannel))
		for channelID, set := range byChannel {
			s := make(map[int64]struct{}, len(set))
			for id := range set {
				s[id] = struct{}{}
			}
			cp.channelRoles[cap][channelID] = s
		}
	}
	return cp
}
