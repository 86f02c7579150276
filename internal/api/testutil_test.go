package api

import (
	"context"
	"io"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/chebupelek/hitscord-sub000/internal/database"
	"github.com/chebupelek/hitscord-sub000/internal/models"
	"github.com/chebupelek/hitscord-sub000/internal/snowflake"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func newTestContext(method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

func setAuthUser(c echo.Context, userID int64) {
	c.Set("user_id", userID)
}

func testSnowflake() *snowflake.Generator {
	sf, _ := snowflake.NewGenerator(1)
	return sf
}

// testStore assembles a fake-backed store; unset mocks fall back to zero-value
// behavior (not found, empty lists, successful writes).
func testStore(repos database.Repositories) *database.Store {
	if repos.Users == nil {
		repos.Users = &mockUserRepo{}
	}
	if repos.Servers == nil {
		repos.Servers = &mockServerRepo{}
	}
	if repos.Channels == nil {
		repos.Channels = &mockChannelRepo{}
	}
	if repos.Roles == nil {
		repos.Roles = &mockRoleRepo{}
	}
	if repos.Memberships == nil {
		repos.Memberships = &mockMembershipRepo{}
	}
	if repos.Grants == nil {
		repos.Grants = &mockGrantRepo{}
	}
	if repos.Cursors == nil {
		repos.Cursors = &mockCursorRepo{}
	}
	if repos.Presets == nil {
		repos.Presets = &mockPresetRepo{}
	}
	if repos.Messages == nil {
		repos.Messages = &mockMessageRepo{}
	}
	return database.NewStoreWithRepositories(&repos)
}

// ---------------------------------------------------------------------------
// Mock gateway dispatcher
// ---------------------------------------------------------------------------

type dispatchedEvent struct {
	ServerID int64
	UserID   int64
	UserIDs  []int64
	Event    string
	Data     any
}

type mockGateway struct {
	mu     sync.Mutex
	events []dispatchedEvent
}

func (m *mockGateway) DispatchToServer(serverID int64, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, dispatchedEvent{ServerID: serverID, Event: event, Data: data})
}

func (m *mockGateway) DispatchToUser(userID int64, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, dispatchedEvent{UserID: userID, Event: event, Data: data})
}

func (m *mockGateway) DispatchToUsers(userIDs []int64, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, dispatchedEvent{UserIDs: userIDs, Event: event, Data: data})
}

func (m *mockGateway) SubscribeToServer(userID, serverID int64)     {}
func (m *mockGateway) UnsubscribeFromServer(userID, serverID int64) {}

func (m *mockGateway) eventsNamed(name string) []dispatchedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []dispatchedEvent
	for _, ev := range m.events {
		if ev.Event == name {
			out = append(out, ev)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Function-field repository mocks. Unset functions return zero values.
// ---------------------------------------------------------------------------

type mockUserRepo struct {
	GetByIDFn func(ctx context.Context, id int64) (*models.User, error)
}

func (m *mockUserRepo) Create(ctx context.Context, u *models.User) error { return nil }
func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return nil, nil
}

type mockServerRepo struct {
	GetByIDFn     func(ctx context.Context, id int64) (*models.Server, error)
	GetByUserIDFn func(ctx context.Context, userID int64) ([]models.Server, error)
	DeleteFn      func(ctx context.Context, id int64) error
}

func (m *mockServerRepo) Create(ctx context.Context, s *models.Server) error { return nil }
func (m *mockServerRepo) GetByID(ctx context.Context, id int64) (*models.Server, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockServerRepo) Update(ctx context.Context, s *models.Server) error { return nil }
func (m *mockServerRepo) Delete(ctx context.Context, id int64) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return nil
}
func (m *mockServerRepo) GetByUserID(ctx context.Context, userID int64) ([]models.Server, error) {
	if m.GetByUserIDFn != nil {
		return m.GetByUserIDFn(ctx, userID)
	}
	return nil, nil
}

type mockChannelRepo struct {
	GetByIDFn       func(ctx context.Context, id int64) (*models.Channel, error)
	GetByServerIDFn func(ctx context.Context, serverID int64) ([]models.Channel, error)
	SoftDeleteFn    func(ctx context.Context, id int64, at time.Time) error
}

func (m *mockChannelRepo) Create(ctx context.Context, ch *models.Channel) error { return nil }
func (m *mockChannelRepo) GetByID(ctx context.Context, id int64) (*models.Channel, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockChannelRepo) GetByServerID(ctx context.Context, serverID int64) ([]models.Channel, error) {
	if m.GetByServerIDFn != nil {
		return m.GetByServerIDFn(ctx, serverID)
	}
	return nil, nil
}
func (m *mockChannelRepo) Update(ctx context.Context, ch *models.Channel) error { return nil }
func (m *mockChannelRepo) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	if m.SoftDeleteFn != nil {
		return m.SoftDeleteFn(ctx, id, at)
	}
	return nil
}
func (m *mockChannelRepo) Delete(ctx context.Context, id int64) error { return nil }
func (m *mockChannelRepo) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type mockRoleRepo struct {
	GetByIDFn         func(ctx context.Context, id int64) (*models.Role, error)
	GetByKindFn       func(ctx context.Context, serverID int64, kind models.RoleKind) (*models.Role, error)
	GetByMembershipFn func(ctx context.Context, serverID, userID int64) ([]models.Role, error)
	HoldersOfFn       func(ctx context.Context, roleID int64) ([]int64, error)
	CreateFn          func(ctx context.Context, role *models.Role) error
	DeleteFn          func(ctx context.Context, id int64) error
}

func (m *mockRoleRepo) Create(ctx context.Context, role *models.Role) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, role)
	}
	return nil
}
func (m *mockRoleRepo) GetByID(ctx context.Context, id int64) (*models.Role, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockRoleRepo) GetByServerID(ctx context.Context, serverID int64) ([]models.Role, error) {
	return nil, nil
}
func (m *mockRoleRepo) GetByKind(ctx context.Context, serverID int64, kind models.RoleKind) (*models.Role, error) {
	if m.GetByKindFn != nil {
		return m.GetByKindFn(ctx, serverID, kind)
	}
	return nil, nil
}
func (m *mockRoleRepo) GetByMembership(ctx context.Context, serverID, userID int64) ([]models.Role, error) {
	if m.GetByMembershipFn != nil {
		return m.GetByMembershipFn(ctx, serverID, userID)
	}
	return nil, nil
}
func (m *mockRoleRepo) HoldersOf(ctx context.Context, roleID int64) ([]int64, error) {
	if m.HoldersOfFn != nil {
		return m.HoldersOfFn(ctx, roleID)
	}
	return nil, nil
}
func (m *mockRoleRepo) Update(ctx context.Context, role *models.Role) error { return nil }
func (m *mockRoleRepo) Delete(ctx context.Context, id int64) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return nil
}

type mockMembershipRepo struct {
	GetByServerAndUserFn func(ctx context.Context, serverID, userID int64) (*models.Membership, error)
	GetForUpdateFn       func(ctx context.Context, serverID, userID int64) (*models.Membership, error)
	GetByServerIDFn      func(ctx context.Context, serverID int64) ([]models.Membership, error)
	UserIDsFn            func(ctx context.Context, serverID int64) ([]int64, error)
	AddRoleFn            func(ctx context.Context, serverID, userID, roleID int64) error
	RemoveRoleFn         func(ctx context.Context, serverID, userID, roleID int64) error
	SetRolesFn           func(ctx context.Context, serverID, userID int64, roleIDs []int64) error
	SetBanFn             func(ctx context.Context, serverID, userID int64, banned bool, reason *string, at *time.Time) error
	DeleteFn             func(ctx context.Context, serverID, userID int64) error
}

func (m *mockMembershipRepo) Create(ctx context.Context, mem *models.Membership) error { return nil }
func (m *mockMembershipRepo) GetByServerAndUser(ctx context.Context, serverID, userID int64) (*models.Membership, error) {
	if m.GetByServerAndUserFn != nil {
		return m.GetByServerAndUserFn(ctx, serverID, userID)
	}
	return nil, nil
}
func (m *mockMembershipRepo) GetForUpdate(ctx context.Context, serverID, userID int64) (*models.Membership, error) {
	if m.GetForUpdateFn != nil {
		return m.GetForUpdateFn(ctx, serverID, userID)
	}
	return nil, nil
}
func (m *mockMembershipRepo) GetByServerID(ctx context.Context, serverID int64) ([]models.Membership, error) {
	if m.GetByServerIDFn != nil {
		return m.GetByServerIDFn(ctx, serverID)
	}
	return nil, nil
}
func (m *mockMembershipRepo) UserIDs(ctx context.Context, serverID int64) ([]int64, error) {
	if m.UserIDsFn != nil {
		return m.UserIDsFn(ctx, serverID)
	}
	return nil, nil
}
func (m *mockMembershipRepo) Update(ctx context.Context, mem *models.Membership) error { return nil }
func (m *mockMembershipRepo) Delete(ctx context.Context, serverID, userID int64) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, serverID, userID)
	}
	return nil
}
func (m *mockMembershipRepo) AddRole(ctx context.Context, serverID, userID, roleID int64) error {
	if m.AddRoleFn != nil {
		return m.AddRoleFn(ctx, serverID, userID, roleID)
	}
	return nil
}
func (m *mockMembershipRepo) RemoveRole(ctx context.Context, serverID, userID, roleID int64) error {
	if m.RemoveRoleFn != nil {
		return m.RemoveRoleFn(ctx, serverID, userID, roleID)
	}
	return nil
}
func (m *mockMembershipRepo) SetRoles(ctx context.Context, serverID, userID int64, roleIDs []int64) error {
	if m.SetRolesFn != nil {
		return m.SetRolesFn(ctx, serverID, userID, roleIDs)
	}
	return nil
}
func (m *mockMembershipRepo) SetBan(ctx context.Context, serverID, userID int64, banned bool, reason *string, at *time.Time) error {
	if m.SetBanFn != nil {
		return m.SetBanFn(ctx, serverID, userID, banned, reason, at)
	}
	return nil
}
func (m *mockMembershipRepo) MuteChannel(ctx context.Context, serverID, userID, channelID int64) error {
	return nil
}
func (m *mockMembershipRepo) UnmuteChannel(ctx context.Context, serverID, userID, channelID int64) error {
	return nil
}
func (m *mockMembershipRepo) MutedChannels(ctx context.Context, serverID, userID int64) ([]int64, error) {
	return nil, nil
}

type mockGrantRepo struct {
	InsertFn        func(ctx context.Context, g *models.ChannelGrant) (bool, error)
	DeleteFn        func(ctx context.Context, channelID, roleID int64, capability int) (bool, error)
	GetByServerIDFn func(ctx context.Context, serverID int64) ([]models.ChannelGrant, error)
}

func (m *mockGrantRepo) Insert(ctx context.Context, g *models.ChannelGrant) (bool, error) {
	if m.InsertFn != nil {
		return m.InsertFn(ctx, g)
	}
	return true, nil
}
func (m *mockGrantRepo) Delete(ctx context.Context, channelID, roleID int64, capability int) (bool, error) {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, channelID, roleID, capability)
	}
	return true, nil
}
func (m *mockGrantRepo) GetByServerID(ctx context.Context, serverID int64) ([]models.ChannelGrant, error) {
	if m.GetByServerIDFn != nil {
		return m.GetByServerIDFn(ctx, serverID)
	}
	return nil, nil
}
func (m *mockGrantRepo) GetByChannel(ctx context.Context, channelID int64) ([]models.ChannelGrant, error) {
	return nil, nil
}
func (m *mockGrantRepo) DeleteByChannel(ctx context.Context, channelID int64) error { return nil }
func (m *mockGrantRepo) DeleteByRole(ctx context.Context, roleID int64) error       { return nil }

type mockCursorRepo struct {
	InsertFn      func(ctx context.Context, userID, channelID, lastMessageID int64) (bool, error)
	AdvanceFn     func(ctx context.Context, userID, channelID, messageID int64) (bool, error)
	GetByUserFn   func(ctx context.Context, userID int64) ([]models.ReadCursor, error)
	DeleteBatchFn func(ctx context.Context, userID int64, channelIDs []int64) error
}

func (m *mockCursorRepo) Insert(ctx context.Context, userID, channelID, lastMessageID int64) (bool, error) {
	if m.InsertFn != nil {
		return m.InsertFn(ctx, userID, channelID, lastMessageID)
	}
	return true, nil
}
func (m *mockCursorRepo) DeleteBatch(ctx context.Context, userID int64, channelIDs []int64) error {
	if m.DeleteBatchFn != nil {
		return m.DeleteBatchFn(ctx, userID, channelIDs)
	}
	return nil
}
func (m *mockCursorRepo) Advance(ctx context.Context, userID, channelID, messageID int64) (bool, error) {
	if m.AdvanceFn != nil {
		return m.AdvanceFn(ctx, userID, channelID, messageID)
	}
	return false, nil
}
func (m *mockCursorRepo) GetByUser(ctx context.Context, userID int64) ([]models.ReadCursor, error) {
	if m.GetByUserFn != nil {
		return m.GetByUserFn(ctx, userID)
	}
	return nil, nil
}
func (m *mockCursorRepo) GetByUserAndChannel(ctx context.Context, userID, channelID int64) (*models.ReadCursor, error) {
	return nil, nil
}
func (m *mockCursorRepo) DeleteByChannel(ctx context.Context, channelID int64) error { return nil }
func (m *mockCursorRepo) DeleteByUserAndServer(ctx context.Context, userID, serverID int64) error {
	return nil
}

type mockPresetRepo struct {
	GetSystemRoleFn       func(ctx context.Context, id int64) (*models.SystemRole, error)
	CreatePresetFn        func(ctx context.Context, p *models.Preset) (bool, error)
	DeletePresetFn        func(ctx context.Context, systemRoleID, serverRoleID int64) (bool, error)
	AssignSystemRoleFn    func(ctx context.Context, userID, systemRoleID int64) (bool, error)
	UnassignSystemRoleFn  func(ctx context.Context, userID, systemRoleID int64) (bool, error)
	UsersWithSystemRoleFn func(ctx context.Context, systemRoleID int64) ([]int64, error)
}

func (m *mockPresetRepo) CreateSystemRole(ctx context.Context, role *models.SystemRole) error {
	return nil
}
func (m *mockPresetRepo) GetSystemRole(ctx context.Context, id int64) (*models.SystemRole, error) {
	if m.GetSystemRoleFn != nil {
		return m.GetSystemRoleFn(ctx, id)
	}
	return nil, nil
}
func (m *mockPresetRepo) AssignSystemRole(ctx context.Context, userID, systemRoleID int64) (bool, error) {
	if m.AssignSystemRoleFn != nil {
		return m.AssignSystemRoleFn(ctx, userID, systemRoleID)
	}
	return true, nil
}
func (m *mockPresetRepo) UnassignSystemRole(ctx context.Context, userID, systemRoleID int64) (bool, error) {
	if m.UnassignSystemRoleFn != nil {
		return m.UnassignSystemRoleFn(ctx, userID, systemRoleID)
	}
	return true, nil
}
func (m *mockPresetRepo) UserHasSystemRole(ctx context.Context, userID, systemRoleID int64) (bool, error) {
	return false, nil
}
func (m *mockPresetRepo) UsersWithSystemRole(ctx context.Context, systemRoleID int64) ([]int64, error) {
	if m.UsersWithSystemRoleFn != nil {
		return m.UsersWithSystemRoleFn(ctx, systemRoleID)
	}
	return nil, nil
}
func (m *mockPresetRepo) SystemRolesOfUser(ctx context.Context, userID int64) ([]int64, error) {
	return nil, nil
}
func (m *mockPresetRepo) CreatePreset(ctx context.Context, p *models.Preset) (bool, error) {
	if m.CreatePresetFn != nil {
		return m.CreatePresetFn(ctx, p)
	}
	return true, nil
}
func (m *mockPresetRepo) DeletePreset(ctx context.Context, systemRoleID, serverRoleID int64) (bool, error) {
	if m.DeletePresetFn != nil {
		return m.DeletePresetFn(ctx, systemRoleID, serverRoleID)
	}
	return true, nil
}
func (m *mockPresetRepo) PresetsBySystemRole(ctx context.Context, systemRoleID int64) ([]models.Preset, error) {
	return nil, nil
}
func (m *mockPresetRepo) PresetsByServerRole(ctx context.Context, serverRoleID int64) ([]models.Preset, error) {
	return nil, nil
}

type mockMessageRepo struct {
	MaxIDByChannelFn func(ctx context.Context, channelID int64) (int64, error)
}

func (m *mockMessageRepo) Create(ctx context.Context, msg *models.Message) error { return nil }
func (m *mockMessageRepo) MaxIDByChannel(ctx context.Context, channelID int64) (int64, error) {
	if m.MaxIDByChannelFn != nil {
		return m.MaxIDByChannelFn(ctx, channelID)
	}
	return 0, nil
}
