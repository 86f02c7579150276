package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/chebupelek/hitscord-sub000/internal/database"
	"github.com/chebupelek/hitscord-sub000/internal/models"
	"github.com/chebupelek/hitscord-sub000/internal/permissions"
	"github.com/chebupelek/hitscord-sub000/internal/snowflake"
)

func testSnowflake() *snowflake.Generator {
	sf, _ := snowflake.NewGenerator(1)
	return sf
}

type dispatchedEvent struct {
	ServerID int64
	UserID   int64
	UserIDs  []int64
	Event    string
	Data     any
}

type mockGateway struct {
	mu           sync.Mutex
	events       []dispatchedEvent
	subscribed   map[[2]int64]bool // [userID, serverID]
	unsubscribed map[[2]int64]bool
}

func newMockGateway() *mockGateway {
	return &mockGateway{
		subscribed:   make(map[[2]int64]bool),
		unsubscribed: make(map[[2]int64]bool),
	}
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

func (m *mockGateway) SubscribeToServer(userID, serverID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribed[[2]int64{userID, serverID}] = true
}

func (m *mockGateway) UnsubscribeFromServer(userID, serverID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unsubscribed[[2]int64{userID, serverID}] = true
}

func (m *mockGateway) eventsNamed(name string) []dispatchedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []dispatchedEvent
	for _, e := range m.events {
		if e.Event == name {
			out = append(out, e)
		}
	}
	return out
}

// memDB is shared in-memory state behind the fake repositories. Scenario
// tests mutate cursors through services and assert directly on these maps.
type memDB struct {
	users       map[int64]*models.User
	servers     map[int64]*models.Server
	channels    map[int64]*models.Channel
	roles       map[int64]*models.Role
	memberRoles map[[2]int64][]int64 // [serverID, userID] -> role IDs
	memberships map[[2]int64]*models.Membership
	grants      map[[3]int64]bool               // [channelID, roleID, capability]
	cursors     map[[2]int64]*models.ReadCursor // [userID, channelID]
	muted       map[[2]int64]map[int64]bool
	maxMsgID    map[int64]int64

	systemRoles  map[int64]*models.SystemRole
	sysRoleUsers map[[2]int64]bool // [userID, systemRoleID]
	presets      map[[2]int64]bool // [systemRoleID, serverRoleID]
}

func newMemDB() *memDB {
	return &memDB{
		users:        make(map[int64]*models.User),
		servers:      make(map[int64]*models.Server),
		channels:     make(map[int64]*models.Channel),
		roles:        make(map[int64]*models.Role),
		memberRoles:  make(map[[2]int64][]int64),
		memberships:  make(map[[2]int64]*models.Membership),
		grants:       make(map[[3]int64]bool),
		cursors:      make(map[[2]int64]*models.ReadCursor),
		muted:        make(map[[2]int64]map[int64]bool),
		maxMsgID:     make(map[int64]int64),
		systemRoles:  make(map[int64]*models.SystemRole),
		sysRoleUsers: make(map[[2]int64]bool),
		presets:      make(map[[2]int64]bool),
	}
}

func (db *memDB) repositories() *database.Repositories {
	return &database.Repositories{
		Users:       &fakeUserRepo{db},
		Servers:     &fakeServerRepo{db},
		Channels:    &fakeChannelRepo{db},
		Roles:       &fakeRoleRepo{db},
		Memberships: &fakeMembershipRepo{db},
		Grants:      &fakeGrantRepo{db},
		Cursors:     &fakeCursorRepo{db},
		Presets:     &fakePresetRepo{db},
		Messages:    &fakeMessageRepo{db},
	}
}

func (db *memDB) membershipCopy(serverID, userID int64) *models.Membership {
	m, ok := db.memberships[[2]int64{serverID, userID}]
	if !ok {
		return nil
	}
	cp := *m
	cp.Roles = append([]int64(nil), db.memberRoles[[2]int64{serverID, userID}]...)
	return &cp
}

type fakeUserRepo struct{ db *memDB }

func (r *fakeUserRepo) Create(ctx context.Context, u *models.User) error {
	r.db.users[u.ID] = u
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.db.users[id], nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range r.db.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

type fakeServerRepo struct{ db *memDB }

func (r *fakeServerRepo) Create(ctx context.Context, s *models.Server) error {
	r.db.servers[s.ID] = s
	return nil
}

func (r *fakeServerRepo) GetByID(ctx context.Context, id int64) (*models.Server, error) {
	return r.db.servers[id], nil
}

func (r *fakeServerRepo) Update(ctx context.Context, s *models.Server) error {
	r.db.servers[s.ID] = s
	return nil
}

// Delete mirrors the schema's cascading foreign keys.
func (r *fakeServerRepo) Delete(ctx context.Context, id int64) error {
	delete(r.db.servers, id)
	for chID, ch := range r.db.channels {
		if ch.ServerID != id {
			continue
		}
		delete(r.db.channels, chID)
		for key := range r.db.grants {
			if key[0] == chID {
				delete(r.db.grants, key)
			}
		}
		for key := range r.db.cursors {
			if key[1] == chID {
				delete(r.db.cursors, key)
			}
		}
	}
	for roleID, role := range r.db.roles {
		if role.ServerID == id {
			delete(r.db.roles, roleID)
		}
	}
	for key := range r.db.memberships {
		if key[0] == id {
			delete(r.db.memberships, key)
			delete(r.db.memberRoles, key)
		}
	}
	return nil
}

func (r *fakeServerRepo) GetByUserID(ctx context.Context, userID int64) ([]models.Server, error) {
	var out []models.Server
	for key, m := range r.db.memberships {
		if key[1] == userID && !m.IsBanned {
			if s, ok := r.db.servers[key[0]]; ok {
				out = append(out, *s)
			}
		}
	}
	return out, nil
}

type fakeChannelRepo struct{ db *memDB }

func (r *fakeChannelRepo) Create(ctx context.Context, c *models.Channel) error {
	cp := *c
	r.db.channels[c.ID] = &cp
	return nil
}

func (r *fakeChannelRepo) GetByID(ctx context.Context, id int64) (*models.Channel, error) {
	ch, ok := r.db.channels[id]
	if !ok {
		return nil, nil
	}
	cp := *ch
	return &cp, nil
}

func (r *fakeChannelRepo) GetByServerID(ctx context.Context, serverID int64) ([]models.Channel, error) {
	var out []models.Channel
	for _, ch := range r.db.channels {
		if ch.ServerID == serverID {
			out = append(out, *ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeChannelRepo) Update(ctx context.Context, c *models.Channel) error {
	cp := *c
	r.db.channels[c.ID] = &cp
	return nil
}

func (r *fakeChannelRepo) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	if ch, ok := r.db.channels[id]; ok && ch.DeletedAt == nil {
		ch.DeletedAt = &at
	}
	return nil
}

func (r *fakeChannelRepo) Delete(ctx context.Context, id int64) error {
	delete(r.db.channels, id)
	return nil
}

func (r *fakeChannelRepo) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for id, ch := range r.db.channels {
		if ch.DeletedAt != nil && ch.DeletedAt.Before(cutoff) {
			delete(r.db.channels, id)
			n++
		}
	}
	return n, nil
}

type fakeRoleRepo struct{ db *memDB }

func (r *fakeRoleRepo) Create(ctx context.Context, role *models.Role) error {
	cp := *role
	r.db.roles[role.ID] = &cp
	return nil
}

func (r *fakeRoleRepo) GetByID(ctx context.Context, id int64) (*models.Role, error) {
	role, ok := r.db.roles[id]
	if !ok {
		return nil, nil
	}
	cp := *role
	return &cp, nil
}

func (r *fakeRoleRepo) GetByServerID(ctx context.Context, serverID int64) ([]models.Role, error) {
	var out []models.Role
	for _, role := range r.db.roles {
		if role.ServerID == serverID {
			out = append(out, *role)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRoleRepo) GetByKind(ctx context.Context, serverID int64, kind models.RoleKind) (*models.Role, error) {
	for _, role := range r.db.roles {
		if role.ServerID == serverID && role.Kind == kind {
			cp := *role
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeRoleRepo) GetByMembership(ctx context.Context, serverID, userID int64) ([]models.Role, error) {
	var out []models.Role
	for _, id := range r.db.memberRoles[[2]int64{serverID, userID}] {
		if role, ok := r.db.roles[id]; ok {
			out = append(out, *role)
		}
	}
	return out, nil
}

func (r *fakeRoleRepo) HoldersOf(ctx context.Context, roleID int64) ([]int64, error) {
	var out []int64
	for key, ids := range r.db.memberRoles {
		for _, id := range ids {
			if id == roleID {
				out = append(out, key[1])
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (r *fakeRoleRepo) Update(ctx context.Context, role *models.Role) error {
	cp := *role
	r.db.roles[role.ID] = &cp
	return nil
}

func (r *fakeRoleRepo) Delete(ctx context.Context, id int64) error {
	delete(r.db.roles, id)
	for key, ids := range r.db.memberRoles {
		kept := ids[:0]
		for _, rid := range ids {
			if rid != id {
				kept = append(kept, rid)
			}
		}
		r.db.memberRoles[key] = kept
	}
	return nil
}

type fakeMembershipRepo struct{ db *memDB }

func (r *fakeMembershipRepo) Create(ctx context.Context, m *models.Membership) error {
	cp := *m
	key := [2]int64{m.ServerID, m.UserID}
	r.db.memberships[key] = &cp
	r.db.memberRoles[key] = append([]int64(nil), m.Roles...)
	return nil
}

func (r *fakeMembershipRepo) GetByServerAndUser(ctx context.Context, serverID, userID int64) (*models.Membership, error) {
	return r.db.membershipCopy(serverID, userID), nil
}

func (r *fakeMembershipRepo) GetForUpdate(ctx context.Context, serverID, userID int64) (*models.Membership, error) {
	return r.db.membershipCopy(serverID, userID), nil
}

func (r *fakeMembershipRepo) GetByServerID(ctx context.Context, serverID int64) ([]models.Membership, error) {
	var out []models.Membership
	for key := range r.db.memberships {
		if key[0] == serverID {
			out = append(out, *r.db.membershipCopy(serverID, key[1]))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (r *fakeMembershipRepo) UserIDs(ctx context.Context, serverID int64) ([]int64, error) {
	var out []int64
	for key := range r.db.memberships {
		if key[0] == serverID {
			out = append(out, key[1])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (r *fakeMembershipRepo) Update(ctx context.Context, m *models.Membership) error {
	cp := *m
	r.db.memberships[[2]int64{m.ServerID, m.UserID}] = &cp
	return nil
}

func (r *fakeMembershipRepo) Delete(ctx context.Context, serverID, userID int64) error {
	key := [2]int64{serverID, userID}
	delete(r.db.memberships, key)
	delete(r.db.memberRoles, key)
	return nil
}

func (r *fakeMembershipRepo) AddRole(ctx context.Context, serverID, userID, roleID int64) error {
	key := [2]int64{serverID, userID}
	for _, id := range r.db.memberRoles[key] {
		if id == roleID {
			return nil
		}
	}
	r.db.memberRoles[key] = append(r.db.memberRoles[key], roleID)
	return nil
}

func (r *fakeMembershipRepo) RemoveRole(ctx context.Context, serverID, userID, roleID int64) error {
	key := [2]int64{serverID, userID}
	ids := r.db.memberRoles[key]
	kept := ids[:0]
	for _, id := range ids {
		if id != roleID {
			kept = append(kept, id)
		}
	}
	r.db.memberRoles[key] = kept
	return nil
}

func (r *fakeMembershipRepo) SetRoles(ctx context.Context, serverID, userID int64, roleIDs []int64) error {
	r.db.memberRoles[[2]int64{serverID, userID}] = append([]int64(nil), roleIDs...)
	return nil
}

func (r *fakeMembershipRepo) SetBan(ctx context.Context, serverID, userID int64, banned bool, reason *string, at *time.Time) error {
	m, ok := r.db.memberships[[2]int64{serverID, userID}]
	if !ok {
		return nil
	}
	m.IsBanned = banned
	m.BanReason = reason
	m.BannedAt = at
	return nil
}

func (r *fakeMembershipRepo) MuteChannel(ctx context.Context, serverID, userID, channelID int64) error {
	key := [2]int64{serverID, userID}
	if r.db.muted[key] == nil {
		r.db.muted[key] = make(map[int64]bool)
	}
	r.db.muted[key][channelID] = true
	return nil
}

func (r *fakeMembershipRepo) UnmuteChannel(ctx context.Context, serverID, userID, channelID int64) error {
	delete(r.db.muted[[2]int64{serverID, userID}], channelID)
	return nil
}

func (r *fakeMembershipRepo) MutedChannels(ctx context.Context, serverID, userID int64) ([]int64, error) {
	var out []int64
	for id := range r.db.muted[[2]int64{serverID, userID}] {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

type fakeGrantRepo struct{ db *memDB }

func (r *fakeGrantRepo) Insert(ctx context.Context, g *models.ChannelGrant) (bool, error) {
	key := [3]int64{g.ChannelID, g.RoleID, int64(g.Capability)}
	if r.db.grants[key] {
		return false, nil
	}
	r.db.grants[key] = true
	return true, nil
}

func (r *fakeGrantRepo) Delete(ctx context.Context, channelID, roleID int64, capability int) (bool, error) {
	key := [3]int64{channelID, roleID, int64(capability)}
	if !r.db.grants[key] {
		return false, nil
	}
	delete(r.db.grants, key)
	return true, nil
}

func (r *fakeGrantRepo) GetByServerID(ctx context.Context, serverID int64) ([]models.ChannelGrant, error) {
	var out []models.ChannelGrant
	for key := range r.db.grants {
		ch, ok := r.db.channels[key[0]]
		if !ok || ch.ServerID != serverID {
			continue
		}
		out = append(out, models.ChannelGrant{ChannelID: key[0], RoleID: key[1], Capability: int(key[2])})
	}
	return out, nil
}

func (r *fakeGrantRepo) GetByChannel(ctx context.Context, channelID int64) ([]models.ChannelGrant, error) {
	var out []models.ChannelGrant
	for key := range r.db.grants {
		if key[0] == channelID {
			out = append(out, models.ChannelGrant{ChannelID: key[0], RoleID: key[1], Capability: int(key[2])})
		}
	}
	return out, nil
}

func (r *fakeGrantRepo) DeleteByChannel(ctx context.Context, channelID int64) error {
	for key := range r.db.grants {
		if key[0] == channelID {
			delete(r.db.grants, key)
		}
	}
	return nil
}

func (r *fakeGrantRepo) DeleteByRole(ctx context.Context, roleID int64) error {
	for key := range r.db.grants {
		if key[1] == roleID {
			delete(r.db.grants, key)
		}
	}
	return nil
}

type fakeCursorRepo struct{ db *memDB }

func (r *fakeCursorRepo) Insert(ctx context.Context, userID, channelID, lastMessageID int64) (bool, error) {
	key := [2]int64{userID, channelID}
	if _, ok := r.db.cursors[key]; ok {
		return false, nil
	}
	r.db.cursors[key] = &models.ReadCursor{
		UserID:        userID,
		ChannelID:     channelID,
		LastMessageID: lastMessageID,
		UpdatedAt:     time.Now(),
	}
	return true, nil
}

func (r *fakeCursorRepo) DeleteBatch(ctx context.Context, userID int64, channelIDs []int64) error {
	for _, chID := range channelIDs {
		delete(r.db.cursors, [2]int64{userID, chID})
	}
	return nil
}

func (r *fakeCursorRepo) Advance(ctx context.Context, userID, channelID, messageID int64) (bool, error) {
	cur, ok := r.db.cursors[[2]int64{userID, channelID}]
	if !ok {
		return false, nil
	}
	if messageID > cur.LastMessageID {
		cur.LastMessageID = messageID
		cur.UpdatedAt = time.Now()
	}
	return true, nil
}

func (r *fakeCursorRepo) GetByUser(ctx context.Context, userID int64) ([]models.ReadCursor, error) {
	var out []models.ReadCursor
	for key, cur := range r.db.cursors {
		if key[0] == userID {
			out = append(out, *cur)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChannelID < out[j].ChannelID })
	return out, nil
}

func (r *fakeCursorRepo) GetByUserAndChannel(ctx context.Context, userID, channelID int64) (*models.ReadCursor, error) {
	cur, ok := r.db.cursors[[2]int64{userID, channelID}]
	if !ok {
		return nil, nil
	}
	cp := *cur
	return &cp, nil
}

func (r *fakeCursorRepo) DeleteByChannel(ctx context.Context, channelID int64) error {
	for key := range r.db.cursors {
		if key[1] == channelID {
			delete(r.db.cursors, key)
		}
	}
	return nil
}

func (r *fakeCursorRepo) DeleteByUserAndServer(ctx context.Context, userID, serverID int64) error {
	for key := range r.db.cursors {
		if key[0] != userID {
			continue
		}
		if ch, ok := r.db.channels[key[1]]; ok && ch.ServerID == serverID {
			delete(r.db.cursors, key)
		}
	}
	return nil
}

type fakePresetRepo struct{ db *memDB }

func (r *fakePresetRepo) CreateSystemRole(ctx context.Context, role *models.SystemRole) error {
	r.db.systemRoles[role.ID] = role
	return nil
}

func (r *fakePresetRepo) GetSystemRole(ctx context.Context, id int64) (*models.SystemRole, error) {
	return r.db.systemRoles[id], nil
}

func (r *fakePresetRepo) AssignSystemRole(ctx context.Context, userID, systemRoleID int64) (bool, error) {
	key := [2]int64{userID, systemRoleID}
	if r.db.sysRoleUsers[key] {
		return false, nil
	}
	r.db.sysRoleUsers[key] = true
	return true, nil
}

func (r *fakePresetRepo) UnassignSystemRole(ctx context.Context, userID, systemRoleID int64) (bool, error) {
	key := [2]int64{userID, systemRoleID}
	if !r.db.sysRoleUsers[key] {
		return false, nil
	}
	delete(r.db.sysRoleUsers, key)
	return true, nil
}

func (r *fakePresetRepo) UserHasSystemRole(ctx context.Context, userID, systemRoleID int64) (bool, error) {
	return r.db.sysRoleUsers[[2]int64{userID, systemRoleID}], nil
}

func (r *fakePresetRepo) UsersWithSystemRole(ctx context.Context, systemRoleID int64) ([]int64, error) {
	var out []int64
	for key := range r.db.sysRoleUsers {
		if key[1] == systemRoleID {
			out = append(out, key[0])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (r *fakePresetRepo) SystemRolesOfUser(ctx context.Context, userID int64) ([]int64, error) {
	var out []int64
	for key := range r.db.sysRoleUsers {
		if key[0] == userID {
			out = append(out, key[1])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (r *fakePresetRepo) CreatePreset(ctx context.Context, p *models.Preset) (bool, error) {
	key := [2]int64{p.SystemRoleID, p.ServerRoleID}
	if r.db.presets[key] {
		return false, nil
	}
	r.db.presets[key] = true
	return true, nil
}

func (r *fakePresetRepo) DeletePreset(ctx context.Context, systemRoleID, serverRoleID int64) (bool, error) {
	key := [2]int64{systemRoleID, serverRoleID}
	if !r.db.presets[key] {
		return false, nil
	}
	delete(r.db.presets, key)
	return true, nil
}

func (r *fakePresetRepo) PresetsBySystemRole(ctx context.Context, systemRoleID int64) ([]models.Preset, error) {
	var out []models.Preset
	for key := range r.db.presets {
		if key[0] == systemRoleID {
			out = append(out, models.Preset{SystemRoleID: key[0], ServerRoleID: key[1]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ServerRoleID < out[j].ServerRoleID })
	return out, nil
}

func (r *fakePresetRepo) PresetsByServerRole(ctx context.Context, serverRoleID int64) ([]models.Preset, error) {
	var out []models.Preset
	for key := range r.db.presets {
		if key[1] == serverRoleID {
			out = append(out, models.Preset{SystemRoleID: key[0], ServerRoleID: key[1]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SystemRoleID < out[j].SystemRoleID })
	return out, nil
}

type fakeMessageRepo struct{ db *memDB }

func (r *fakeMessageRepo) Create(ctx context.Context, msg *models.Message) error {
	if msg.ID > r.db.maxMsgID[msg.ChannelID] {
		r.db.maxMsgID[msg.ChannelID] = msg.ID
	}
	return nil
}

func (r *fakeMessageRepo) MaxIDByChannel(ctx context.Context, channelID int64) (int64, error) {
	return r.db.maxMsgID[channelID], nil
}

type fakeCleaner struct {
	mu      sync.Mutex
	removed []int64
}

func (f *fakeCleaner) RemoveChannelObjects(ctx context.Context, channelID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, channelID)
	return nil
}

// fixture wires a fake-backed store with a recording gateway and seeds the
// usual three-role server layout.
type fixture struct {
	t     *testing.T
	db    *memDB
	store *database.Store
	gw    *mockGateway
	ctx   context.Context

	nextID int64
}

func newFixture(t *testing.T) *fixture {
	db := newMemDB()
	return &fixture{
		t:      t,
		db:     db,
		store:  database.NewStoreWithRepositories(db.repositories()),
		gw:     newMockGateway(),
		ctx:    context.Background(),
		nextID: 1000,
	}
}

func (f *fixture) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fixture) addUser() int64 {
	id := f.id()
	f.db.users[id] = &models.User{ID: id, Username: "user", CreatedAt: time.Now()}
	return id
}

// serverFixture carries the IDs of a seeded server and its mandatory roles.
type serverFixture struct {
	ID          int64
	CreatorRole int64
	AdminRole   int64
	Uncertain   int64
	OwnerID     int64
}

// addServer seeds a server with Creator, Admin and Uncertain roles and an
// owner membership holding the Creator role. No channels, no cursors.
func (f *fixture) addServer() serverFixture {
	ownerID := f.addUser()
	sv := serverFixture{ID: f.id(), OwnerID: ownerID}
	f.db.servers[sv.ID] = &models.Server{ID: sv.ID, Name: "test", CreatedAt: time.Now()}

	sv.CreatorRole = f.addRole(sv.ID, models.RoleKindCreator, int64(permissions.FlagAll))
	sv.AdminRole = f.addRole(sv.ID, models.RoleKindAdmin, int64(permissions.DefaultAdminFlags))
	sv.Uncertain = f.addRole(sv.ID, models.RoleKindUncertain, 0)

	f.addMember(sv.ID, ownerID, sv.CreatorRole)
	return sv
}

func (f *fixture) addRole(serverID int64, kind models.RoleKind, flags int64) int64 {
	id := f.id()
	f.db.roles[id] = &models.Role{ID: id, ServerID: serverID, Name: "role", Tag: "role", Kind: kind, Permissions: flags}
	return id
}

func (f *fixture) addChannel(serverID int64, kind models.ChannelKind) int64 {
	id := f.id()
	f.db.channels[id] = &models.Channel{ID: id, ServerID: serverID, Name: "channel", Kind: kind}
	return id
}

func (f *fixture) addSubChannel(serverID, parentID int64) int64 {
	id := f.id()
	f.db.channels[id] = &models.Channel{ID: id, ServerID: serverID, Name: "sub", Kind: models.ChannelKindSub, ParentID: &parentID}
	return id
}

func (f *fixture) addMember(serverID, userID int64, roleIDs ...int64) {
	key := [2]int64{serverID, userID}
	f.db.memberships[key] = &models.Membership{ServerID: serverID, UserID: userID, JoinedAt: time.Now()}
	f.db.memberRoles[key] = append([]int64(nil), roleIDs...)
}

func (f *fixture) grant(channelID, roleID int64, capability int) {
	f.db.grants[[3]int64{channelID, roleID, int64(capability)}] = true
}

func (f *fixture) hasCursor(userID, channelID int64) bool {
	_, ok := f.db.cursors[[2]int64{userID, channelID}]
	return ok
}

func (f *fixture) cursorAt(userID, channelID int64) int64 {
	f.t.Helper()
	cur, ok := f.db.cursors[[2]int64{userID, channelID}]
	if !ok {
		f.t.Fatalf("expected cursor for user %d channel %d", userID, channelID)
	}
	return cur.LastMessageID
}

func (f *fixture) memberRoleSet(serverID, userID int64) []int64 {
	out := append([]int64(nil), f.db.memberRoles[[2]int64{serverID, userID}]...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
