package database

import (
	"context"
	"os"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chebupelek/hitscord-sub000/internal/models"
)

// testPool returns a pgxpool.Pool connected to the test database.
// It skips the test if DATABASE_URL is not set.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connecting to test database: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	return pool
}

// testIDCounter provides unique IDs across all tests in the package.
// Starts well above zero to avoid conflicts with any existing data.
var testIDCounter int64 = 500000

func nextID() int64 {
	return atomic.AddInt64(&testIDCounter, 1)
}

// seedServer creates a user, a server and a membership for integration tests.
func seedServer(t *testing.T, pool *pgxpool.Pool) (userID, serverID int64) {
	t.Helper()
	ctx := context.Background()
	r := NewRepositories(pool)

	userID = nextID()
	serverID = nextID()
	now := time.Now()

	if err := r.Users.Create(ctx, &models.User{ID: userID, Username: testUsername(userID), CreatedAt: now}); err != nil {
		t.Fatalf("creating user: %v", err)
	}
	if err := r.Servers.Create(ctx, &models.Server{ID: serverID, Name: "test server", CreatedAt: now}); err != nil {
		t.Fatalf("creating server: %v", err)
	}
	if err := r.Memberships.Create(ctx, &models.Membership{ServerID: serverID, UserID: userID, JoinedAt: now}); err != nil {
		t.Fatalf("creating membership: %v", err)
	}
	return userID, serverID
}

// seedChannel creates a channel on the server. The caller picks the kind.
func seedChannel(t *testing.T, pool *pgxpool.Pool, serverID int64, kind models.ChannelKind) int64 {
	t.Helper()
	r := NewRepositories(pool)
	id := nextID()
	ch := &models.Channel{ID: id, ServerID: serverID, Name: "chan-" + strconv.FormatInt(id, 10), Kind: kind}
	if err := r.Channels.Create(context.Background(), ch); err != nil {
		t.Fatalf("creating channel: %v", err)
	}
	return id
}

// seedRole creates a Custom role on the server. Kind is fixed because the
// schema allows only one Creator and one Uncertain role per server.
func seedRole(t *testing.T, pool *pgxpool.Pool, serverID int64) int64 {
	t.Helper()
	r := NewRepositories(pool)
	id := nextID()
	role := &models.Role{
		ID:       id,
		ServerID: serverID,
		Name:     "role-" + strconv.FormatInt(id, 10),
		Tag:      "tag",
		Kind:     models.RoleKindCustom,
	}
	if err := r.Roles.Create(context.Background(), role); err != nil {
		t.Fatalf("creating role: %v", err)
	}
	return id
}

func testUsername(id int64) string {
	return "user_" + time.Now().Format("150405") + "_" + strconv.FormatInt(id, 10)
}
