package service

import (
	"context"

	"github.com/chebupelek/hitscord-sub000/internal/database"
	"github.com/chebupelek/hitscord-sub000/internal/visibility"
)

// CursorMaintainer is the single component that creates and deletes read
// cursors. Every mutation path computes a visible-channel set before and
// after its change and hands both to Reconcile; no other code touches cursor
// existence; message acks only advance existing rows.
type CursorMaintainer struct{}

// CursorDelta reports what one Reconcile call changed. Created maps the
// channel ID to the message ID the cursor was seeded with; CreatedOrder
// preserves the deterministic ordering of the underlying diff.
type CursorDelta struct {
	Created      map[int64]int64
	CreatedOrder []int64
	Deleted      []int64
}

// Reconcile enforces the cursor invariant for one membership, given the set of
// message-bearing channels visible before and after a mutation. New cursors
// are seeded at the channel's current maximum message ID so the user is not
// flooded with history predating their access; a fresh channel seeds at zero.
// Cursor inserts are idempotent, so re-running a delta is harmless.
func (cm *CursorMaintainer) Reconcile(ctx context.Context, r *database.Repositories, userID int64, before, after map[int64]struct{}) (CursorDelta, error) {
	toCreate, toDelete := visibility.Diff(before, after)

	delta := CursorDelta{Created: make(map[int64]int64, len(toCreate))}
	for _, channelID := range toCreate {
		maxID, err := r.Messages.MaxIDByChannel(ctx, channelID)
		if err != nil {
			return CursorDelta{}, err
		}
		created, err := r.Cursors.Insert(ctx, userID, channelID, maxID)
		if err != nil {
			return CursorDelta{}, err
		}
		if created {
			delta.Created[channelID] = maxID
			delta.CreatedOrder = append(delta.CreatedOrder, channelID)
		}
	}

	if len(toDelete) > 0 {
		if err := r.Cursors.DeleteBatch(ctx, userID, toDelete); err != nil {
			return CursorDelta{}, err
		}
		delta.Deleted = toDelete
	}

	return delta, nil
}

// PurgeChannels removes every user's cursor on the given channels. Used for
// channel and server teardown, where the per-membership set difference
// degenerates to "everyone loses the channel".
func (cm *CursorMaintainer) PurgeChannels(ctx context.Context, r *database.Repositories, channelIDs []int64) error {
	for _, channelID := range channelIDs {
		if err := r.Cursors.DeleteByChannel(ctx, channelID); err != nil {
			return err
		}
	}
	return nil
}

// PurgeMembership removes every cursor a user holds on a server's channels.
// Used on ban, leave, and membership teardown.
func (cm *CursorMaintainer) PurgeMembership(ctx context.Context, r *database.Repositories, userID, serverID int64) error {
	return r.Cursors.DeleteByUserAndServer(ctx, userID, serverID)
}

// loadIndex builds the server's capability graph from the current
// transaction's snapshot of channels and grant rows.
func loadIndex(ctx context.Context, r *database.Repositories, serverID int64) (*visibility.Index, error) {
	channels, err := r.Channels.GetByServerID(ctx, serverID)
	if err != nil {
		return nil, err
	}
	grants, err := r.Grants.GetByServerID(ctx, serverID)
	if err != nil {
		return nil, err
	}
	return visibility.NewIndex(channels, grants), nil
}
