package permissions

import "strings"

// Flag is a bitfield of server-level permissions carried by a role.
type Flag int64

const (
	FlagChangeRole           Flag = 1 << 0 // grant/revoke roles on memberships
	FlagCreateRoles          Flag = 1 << 1 // create/edit/delete custom roles
	FlagWorkChannels         Flag = 1 << 2 // create/delete channels, edit capability edges
	FlagDeleteUsers          Flag = 1 << 3 // ban/unban members
	FlagChangeServerSettings Flag = 1 << 4
	FlagInviteUsers          Flag = 1 << 5
	FlagMuteMembers          Flag = 1 << 6
	FlagDeleteServer         Flag = 1 << 7

	FlagAll = FlagChangeRole | FlagCreateRoles | FlagWorkChannels | FlagDeleteUsers |
		FlagChangeServerSettings | FlagInviteUsers | FlagMuteMembers | FlagDeleteServer
)

// DefaultAdminFlags is the flag set given to Admin roles on creation: everything
// except deleting the server itself.
var DefaultAdminFlags = FlagAll &^ FlagDeleteServer

// Has returns true if f contains all bits in flag.
func (f Flag) Has(flag Flag) bool { return f&flag == flag }

// Add returns f with the bits from flag set.
func (f Flag) Add(flag Flag) Flag { return f | flag }

// Remove returns f with the bits from flag cleared.
func (f Flag) Remove(flag Flag) Flag { return f &^ flag }

var flagNames = map[Flag]string{
	FlagChangeRole:           "CHANGE_ROLE",
	FlagCreateRoles:          "CREATE_ROLES",
	FlagWorkChannels:         "WORK_CHANNELS",
	FlagDeleteUsers:          "DELETE_USERS",
	FlagChangeServerSettings: "CHANGE_SERVER_SETTINGS",
	FlagInviteUsers:          "INVITE_USERS",
	FlagMuteMembers:          "MUTE_MEMBERS",
	FlagDeleteServer:         "DELETE_SERVER",
}

// String returns a human-readable representation of the flag set, listing all
// set flag names separated by " | ".
func (f Flag) String() string {
	if f == 0 {
		return "NONE"
	}

	var names []string
	for bit := FlagChangeRole; bit <= FlagDeleteServer; bit <<= 1 {
		if f.Has(bit) {
			names = append(names, flagNames[bit])
		}
	}

	if len(names) == 0 {
		return "UNKNOWN"
	}
	return strings.Join(names, " | ")
}
