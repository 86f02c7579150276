package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/chebupelek/hitscord-sub000/internal/models"
)

// DBTX is the query surface shared by *pgxpool.Pool and pgx.Tx. Repositories
// are built over it so the same code runs inside and outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

type ServerRepository interface {
	Create(ctx context.Context, server *models.Server) error
	GetByID(ctx context.Context, id int64) (*models.Server, error)
	Update(ctx context.Context, server *models.Server) error
	Delete(ctx context.Context, id int64) error
	GetByUserID(ctx context.Context, userID int64) ([]models.Server, error)
}

type ChannelRepository interface {
	Create(ctx context.Context, channel *models.Channel) error
	GetByID(ctx context.Context, id int64) (*models.Channel, error)
	// GetByServerID returns every channel of the server, soft-deleted rows
	// included; visibility computations filter them out.
	GetByServerID(ctx context.Context, serverID int64) ([]models.Channel, error)
	Update(ctx context.Context, channel *models.Channel) error
	SoftDelete(ctx context.Context, id int64, at time.Time) error
	Delete(ctx context.Context, id int64) error
	// PurgeDeletedBefore hard-deletes channels soft-deleted before the cutoff
	// and returns how many rows were removed.
	PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type RoleRepository interface {
	Create(ctx context.Context, role *models.Role) error
	GetByID(ctx context.Context, id int64) (*models.Role, error)
	GetByServerID(ctx context.Context, serverID int64) ([]models.Role, error)
	// GetByKind returns the server's single role of the given kind; used to
	// resolve the Creator and Uncertain roles.
	GetByKind(ctx context.Context, serverID int64, kind models.RoleKind) (*models.Role, error)
	GetByMembership(ctx context.Context, serverID, userID int64) ([]models.Role, error)
	// HoldersOf returns the user IDs of every membership holding the role.
	HoldersOf(ctx context.Context, roleID int64) ([]int64, error)
	Update(ctx context.Context, role *models.Role) error
	Delete(ctx context.Context, id int64) error
}

type MembershipRepository interface {
	Create(ctx context.Context, m *models.Membership) error
	GetByServerAndUser(ctx context.Context, serverID, userID int64) (*models.Membership, error)
	// GetForUpdate loads the membership with a row-level lock so the role set
	// read inside a transaction cannot race a concurrent mutation.
	GetForUpdate(ctx context.Context, serverID, userID int64) (*models.Membership, error)
	GetByServerID(ctx context.Context, serverID int64) ([]models.Membership, error)
	// UserIDs returns every member's user ID; the default alert audience.
	UserIDs(ctx context.Context, serverID int64) ([]int64, error)
	Update(ctx context.Context, m *models.Membership) error
	Delete(ctx context.Context, serverID, userID int64) error
	AddRole(ctx context.Context, serverID, userID, roleID int64) error
	RemoveRole(ctx context.Context, serverID, userID, roleID int64) error
	// SetRoles replaces the membership's role set in place.
	SetRoles(ctx context.Context, serverID, userID int64, roleIDs []int64) error
	SetBan(ctx context.Context, serverID, userID int64, banned bool, reason *string, at *time.Time) error
	MuteChannel(ctx context.Context, serverID, userID, channelID int64) error
	UnmuteChannel(ctx context.Context, serverID, userID, channelID int64) error
	MutedChannels(ctx context.Context, serverID, userID int64) ([]int64, error)
}

type GrantRepository interface {
	// Insert adds a capability edge; returns false when the edge already exists.
	Insert(ctx context.Context, g *models.ChannelGrant) (bool, error)
	// Delete removes a capability edge; returns false when it was absent.
	Delete(ctx context.Context, channelID, roleID int64, capability int) (bool, error)
	GetByServerID(ctx context.Context, serverID int64) ([]models.ChannelGrant, error)
	GetByChannel(ctx context.Context, channelID int64) ([]models.ChannelGrant, error)
	DeleteByChannel(ctx context.Context, channelID int64) error
	DeleteByRole(ctx context.Context, roleID int64) error
}

type CursorRepository interface {
	// Insert seeds a cursor; the insert is skipped (false) when a cursor
	// already exists, making re-grants idempotent.
	Insert(ctx context.Context, userID, channelID, lastMessageID int64) (bool, error)
	// DeleteBatch removes the cursors for one user over many channels in a
	// single statement.
	DeleteBatch(ctx context.Context, userID int64, channelIDs []int64) error
	// Advance moves an existing cursor forward monotonically; it never
	// creates a row. Returns false when no cursor exists.
	Advance(ctx context.Context, userID, channelID, messageID int64) (bool, error)
	GetByUser(ctx context.Context, userID int64) ([]models.ReadCursor, error)
	GetByUserAndChannel(ctx context.Context, userID, channelID int64) (*models.ReadCursor, error)
	DeleteByChannel(ctx context.Context, channelID int64) error
	// DeleteByUserAndServer removes every cursor the user holds on the
	// server's channels (ban, leave, server deletion).
	DeleteByUserAndServer(ctx context.Context, userID, serverID int64) error
}

type PresetRepository interface {
	CreateSystemRole(ctx context.Context, role *models.SystemRole) error
	GetSystemRole(ctx context.Context, id int64) (*models.SystemRole, error)
	AssignSystemRole(ctx context.Context, userID, systemRoleID int64) (bool, error)
	UnassignSystemRole(ctx context.Context, userID, systemRoleID int64) (bool, error)
	UserHasSystemRole(ctx context.Context, userID, systemRoleID int64) (bool, error)
	UsersWithSystemRole(ctx context.Context, systemRoleID int64) ([]int64, error)
	SystemRolesOfUser(ctx context.Context, userID int64) ([]int64, error)
	CreatePreset(ctx context.Context, p *models.Preset) (bool, error)
	DeletePreset(ctx context.Context, systemRoleID, serverRoleID int64) (bool, error)
	PresetsBySystemRole(ctx context.Context, systemRoleID int64) ([]models.Preset, error)
	PresetsByServerRole(ctx context.Context, serverRoleID int64) ([]models.Preset, error)
}

type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	// MaxIDByChannel returns the channel's highest message ID, 0 when empty;
	// the seed value for new read cursors.
	MaxIDByChannel(ctx context.Context, channelID int64) (int64, error)
}

// Repositories groups one instance of every repository over a shared DBTX.
type Repositories struct {
	Users       UserRepository
	Servers     ServerRepository
	Channels    ChannelRepository
	Roles       RoleRepository
	Memberships MembershipRepository
	Grants      GrantRepository
	Cursors     CursorRepository
	Presets     PresetRepository
	Messages    MessageRepository
}

func NewRepositories(db DBTX) *Repositories {
	return &Repositories{
		Users:       NewUserRepository(db),
		Servers:     NewServerRepository(db),
		Channels:    NewChannelRepository(db),
		Roles:       NewRoleRepository(db),
		Memberships: NewMembershipRepository(db),
		Grants:      NewGrantRepository(db),
		Cursors:     NewCursorRepository(db),
		Presets:     NewPresetRepository(db),
		Messages:    NewMessageRepository(db),
	}
}
