package service

import (
	"context"

	"github.com/chebupelek/hitscord-sub000/internal/database"
	"github.com/chebupelek/hitscord-sub000/internal/gateway"
	"github.com/chebupelek/hitscord-sub000/internal/models"
)

// ReadService handles read acknowledgements. Acks only advance existing
// cursors; cursor creation and deletion belong exclusively to the visibility
// reconciliation paths.
type ReadService struct {
	store   *database.Store
	gateway gateway.Dispatcher
}

// NewReadService creates a ReadService.
func NewReadService(store *database.Store, gw gateway.Dispatcher) *ReadService {
	return &ReadService{store: store, gateway: gw}
}

// Ack records that the user has read up to messageID in the channel. Moves
// the cursor forward only; an ack behind the current position is a no-op.
func (s *ReadService) Ack(ctx context.Context, userID, channelID, messageID int64) error {
	if messageID < 0 {
		return BadRequest("INVALID_MESSAGE_ID", "message id must be non-negative")
	}

	ch, err := s.store.Channels.GetByID(ctx, channelID)
	if err != nil {
		return Internal("INTERNAL", "internal server error")
	}
	if ch == nil || ch.Deleted() {
		return NotFound("NOT_FOUND", "channel not found")
	}
	if !ch.Kind.MessageBearing() {
		return BadRequest("NOT_MESSAGE_BEARING", "channel does not carry messages")
	}

	advanced, err := s.store.Cursors.Advance(ctx, userID, channelID, messageID)
	if err != nil {
		return Internal("INTERNAL", "internal server error")
	}
	if !advanced {
		// No cursor means the channel is not visible to the user.
		return NotFound("NO_CURSOR", "no read cursor for this channel")
	}

	s.gateway.DispatchToUser(userID, gateway.EventReadCursorUpdate, gateway.ReadCursorUpdateData{
		ChannelID:     channelID,
		LastMessageID: messageID,
	})
	return nil
}

// Cursors returns every read cursor the user currently holds.
func (s *ReadService) Cursors(ctx context.Context, userID int64) ([]models.ReadCursor, error) {
	cursors, err := s.store.Cursors.GetByUser(ctx, userID)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if cursors == nil {
		cursors = []models.ReadCursor{}
	}
	return cursors, nil
}
