package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chebupelek/hitscord-sub000/internal/permissions"
	"github.com/chebupelek/hitscord-sub000/internal/snowflake"
)

// Set via -ldflags at build time.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "migrate":
		if hasFlag("--help", os.Args[2:]) {
			fmt.Println("Usage: hitscord-cli migrate")
			fmt.Println()
			fmt.Println("Run database migrations from the migrations/ directory.")
			fmt.Println()
			fmt.Println("Environment:")
			fmt.Println("  DATABASE_URL  PostgreSQL connection string (required)")
			return
		}
		os.Exit(runMigrate())
	case "seed":
		if hasFlag("--help", os.Args[2:]) {
			fmt.Println("Usage: hitscord-cli seed")
			fmt.Println()
			fmt.Println("Seed the database with demo data: 2 users, a server with its")
			fmt.Println("mandatory roles, channels, and messages.")
			fmt.Println()
			fmt.Println("Environment:")
			fmt.Println("  DATABASE_URL  PostgreSQL connection string (required)")
			return
		}
		os.Exit(runSeed())
	case "health":
		if hasFlag("--help", os.Args[2:]) {
			fmt.Println("Usage: hitscord-cli health")
			fmt.Println()
			fmt.Println("Check if the Hitscord server is running.")
			fmt.Println()
			fmt.Println("Environment:")
			fmt.Println("  SERVER_URL  Server base URL (default: http://localhost:8080)")
			return
		}
		os.Exit(runHealth())
	case "version":
		fmt.Printf("hitscord-cli %s\n", version)
	case "--help", "-h", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: hitscord-cli <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  migrate  Run database migrations")
	fmt.Println("  seed     Seed demo data (users, server, channels, messages)")
	fmt.Println("  health   Check if the server is running")
	fmt.Println("  version  Print version info")
	fmt.Println()
	fmt.Println("Run 'hitscord-cli <command> --help' for details on a command.")
}

func hasFlag(flag string, args []string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		fmt.Fprintf(os.Stderr, "error: %s environment variable is required\n", key)
		os.Exit(1)
	}
	return v
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// --- migrate ---

func runMigrate() int {
	dbURL := requireEnv("DATABASE_URL")

	fmt.Println("connecting to database...")
	m, err := migrate.New("file://migrations", dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: migration init failed: %v\n", err)
		return 1
	}
	defer m.Close()

	fmt.Println("running migrations...")
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		fmt.Fprintf(os.Stderr, "error: migration failed: %v\n", err)
		return 1
	}

	v, dirty, _ := m.Version()
	if err == migrate.ErrNoChange {
		fmt.Printf("no new migrations (current version: %d)\n", v)
	} else {
		fmt.Printf("migrations applied (version: %d, dirty: %v)\n", v, dirty)
	}
	return 0
}

// --- seed ---

func runSeed() int {
	dbURL := requireEnv("DATABASE_URL")
	ctx := context.Background()

	fmt.Println("connecting to database...")
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: database connection failed: %v\n", err)
		return 1
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: database ping failed: %v\n", err)
		return 1
	}

	sf, err := snowflake.NewGenerator(0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: snowflake init failed: %v\n", err)
		return 1
	}

	// Generate IDs.
	aliceID := sf.Generate().Int64()
	bobID := sf.Generate().Int64()
	serverID := sf.Generate().Int64()
	generalChanID := sf.Generate().Int64()
	voiceChanID := sf.Generate().Int64()
	creatorRoleID := sf.Generate().Int64()
	adminRoleID := sf.Generate().Int64()
	uncertainRoleID := sf.Generate().Int64()
	msg1ID := sf.Generate().Int64()
	msg2ID := sf.Generate().Int64()

	now := time.Now()

	tx, err := pool.Begin(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: starting transaction: %v\n", err)
		return 1
	}
	defer tx.Rollback(ctx)

	// Users.
	fmt.Println("creating users...")
	_, err = tx.Exec(ctx,
		`INSERT INTO users (id, username, display_name, created_at) VALUES ($1,$2,$3,$4), ($5,$6,$7,$8)
		 ON CONFLICT (id) DO NOTHING`,
		aliceID, "alice", "Alice", now,
		bobID, "bob", "Bob", now,
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: creating users: %v\n", err)
		return 1
	}

	// Server.
	fmt.Println("creating server...")
	_, err = tx.Exec(ctx,
		`INSERT INTO servers (id, name, created_at) VALUES ($1,$2,$3)
		 ON CONFLICT (id) DO NOTHING`,
		serverID, "Demo Server", now,
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: creating server: %v\n", err)
		return 1
	}

	// Mandatory roles: Creator, Admin, and the Uncertain fallback.
	fmt.Println("creating roles...")
	_, err = tx.Exec(ctx,
		`INSERT INTO roles (id, server_id, name, tag, kind, permissions)
		 VALUES ($1,$2,'Creator','creator',3,$3), ($4,$5,'Admin','admin',2,$6), ($7,$8,'Uncertain','uncertain',0,0)
		 ON CONFLICT (id) DO NOTHING`,
		creatorRoleID, serverID, int64(permissions.FlagAll),
		adminRoleID, serverID, int64(permissions.DefaultAdminFlags),
		uncertainRoleID, serverID,
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: creating roles: %v\n", err)
		return 1
	}

	// Channels.
	fmt.Println("creating channels...")
	_, err = tx.Exec(ctx,
		`INSERT INTO channels (id, server_id, name, kind, position) VALUES ($1,$2,'general',0,0), ($3,$4,'voice',1,1)
		 ON CONFLICT (id) DO NOTHING`,
		generalChanID, serverID,
		voiceChanID, serverID,
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: creating channels: %v\n", err)
		return 1
	}

	// Capability edges: every role sees and writes in general, sees and joins voice.
	fmt.Println("creating channel grants...")
	for _, roleID := range []int64{creatorRoleID, adminRoleID, uncertainRoleID} {
		_, err = tx.Exec(ctx,
			`INSERT INTO channel_grants (channel_id, role_id, capability)
			 VALUES ($1,$2,$3), ($1,$2,$4), ($5,$2,$3), ($5,$2,$6)
			 ON CONFLICT DO NOTHING`,
			generalChanID, roleID, int(permissions.CapSee), int(permissions.CapWrite),
			voiceChanID, int(permissions.CapJoin),
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: creating grants: %v\n", err)
			return 1
		}
	}

	// Memberships: alice owns the server, bob holds the fallback role.
	fmt.Println("creating memberships...")
	_, err = tx.Exec(ctx,
		`INSERT INTO memberships (server_id, user_id, joined_at) VALUES ($1,$2,$3), ($4,$5,$6)
		 ON CONFLICT (server_id, user_id) DO NOTHING`,
		serverID, aliceID, now,
		serverID, bobID, now,
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: creating memberships: %v\n", err)
		return 1
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO membership_roles (server_id, user_id, role_id) VALUES ($1,$2,$3), ($4,$5,$6)
		 ON CONFLICT (server_id, user_id, role_id) DO NOTHING`,
		serverID, aliceID, creatorRoleID,
		serverID, bobID, uncertainRoleID,
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: creating membership roles: %v\n", err)
		return 1
	}

	// Messages.
	fmt.Println("creating messages...")
	_, err = tx.Exec(ctx,
		`INSERT INTO messages (id, channel_id, author_id, content, created_at) VALUES ($1,$2,$3,$4,$5), ($6,$7,$8,$9,$10)
		 ON CONFLICT (id) DO NOTHING`,
		msg1ID, generalChanID, aliceID, "Welcome to the Demo Server!", now,
		msg2ID, generalChanID, bobID, "Hey Alice, glad to be here!", now,
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: creating messages: %v\n", err)
		return 1
	}

	// Read cursors: both members can see general, so both carry a cursor.
	fmt.Println("creating read cursors...")
	_, err = tx.Exec(ctx,
		`INSERT INTO read_cursors (user_id, channel_id, last_message_id) VALUES ($1,$2,$3), ($4,$5,$6)
		 ON CONFLICT (user_id, channel_id) DO NOTHING`,
		aliceID, generalChanID, msg2ID,
		bobID, generalChanID, int64(0),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: creating read cursors: %v\n", err)
		return 1
	}

	if err := tx.Commit(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: committing transaction: %v\n", err)
		return 1
	}

	fmt.Println()
	fmt.Println("seed complete:")
	fmt.Printf("  users:    alice (creator), bob (uncertain)\n")
	fmt.Printf("  server:   Demo Server\n")
	fmt.Printf("  channels: #general (text), voice\n")
	fmt.Printf("  messages: 2 messages in #general\n")
	return 0
}

// --- health ---

func runHealth() int {
	serverURL := envOr("SERVER_URL", "http://localhost:8080")
	url := serverURL + "/health"

	fmt.Printf("checking %s ...\n", url)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	fmt.Printf("status: %d\n", resp.StatusCode)
	if len(body) > 0 {
		fmt.Printf("body:   %s\n", string(body))
	}

	if resp.StatusCode == http.StatusOK {
		fmt.Println("server is healthy")
		return 0
	}
	fmt.Fprintln(os.Stderr, "server returned non-200 status")
	return 1
}
