package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewClientFromAddr(mr.Addr())
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestPresenceRoundTrip(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()

	status, err := c.GetPresence(ctx, 42)
	if err != nil {
		t.Fatalf("GetPresence: %v", err)
	}
	if status != "" {
		t.Errorf("status = %q before SetPresence, want empty", status)
	}

	if err := c.SetPresence(ctx, 42, "online"); err != nil {
		t.Fatalf("SetPresence: %v", err)
	}
	status, err = c.GetPresence(ctx, 42)
	if err != nil {
		t.Fatalf("GetPresence: %v", err)
	}
	if status != "online" {
		t.Errorf("status = %q, want online", status)
	}

	if err := c.DeletePresence(ctx, 42); err != nil {
		t.Fatalf("DeletePresence: %v", err)
	}
	status, _ = c.GetPresence(ctx, 42)
	if status != "" {
		t.Errorf("status = %q after delete, want empty", status)
	}
}

func TestCheckRateLimit(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, count, _, err := c.CheckRateLimit(ctx, "rl:test", 3, time.Minute)
		if err != nil {
			t.Fatalf("CheckRateLimit %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("request %d rate limited below the limit", i)
		}
		if count != int64(i+1) {
			t.Errorf("count = %d, want %d", count, i+1)
		}
	}

	ok, _, ttlMs, err := c.CheckRateLimit(ctx, "rl:test", 3, time.Minute)
	if err != nil {
		t.Fatalf("CheckRateLimit: %v", err)
	}
	if ok {
		t.Fatal("request over the limit was allowed")
	}
	if ttlMs <= 0 {
		t.Errorf("ttl = %d, want positive", ttlMs)
	}

	// Independent keys have independent windows.
	ok, _, _, err = c.CheckRateLimit(ctx, "rl:other", 3, time.Minute)
	if err != nil {
		t.Fatalf("CheckRateLimit other: %v", err)
	}
	if !ok {
		t.Fatal("fresh key was rate limited")
	}
}
