package service

import "github.com/chebupelek/hitscord-sub000/internal/gateway"

// pendingEvent is a gateway event collected during a transaction and fired
// only after the transaction commits. A rolled-back mutation never leaks a
// push.
type pendingEvent struct {
	serverID int64
	userIDs  []int64 // non-nil for user-targeted events
	name     string
	data     any
}

// dispatchAll fires pending events in order, fire-and-forget.
func dispatchAll(gw gateway.Dispatcher, events []pendingEvent) {
	if gw == nil {
		return
	}
	for _, ev := range events {
		if ev.userIDs != nil {
			gw.DispatchToUsers(ev.userIDs, ev.name, ev.data)
		} else {
			gw.DispatchToServer(ev.serverID, ev.name, ev.data)
		}
	}
}

// cursorEvents converts a reconciliation delta into READ_CURSOR_UPDATE events
// targeted at the affected user.
func cursorEvents(userID int64, delta CursorDelta) []pendingEvent {
	events := make([]pendingEvent, 0, len(delta.Created)+len(delta.Deleted))
	for _, channelID := range delta.CreatedOrder {
		events = append(events, pendingEvent{
			userIDs: []int64{userID},
			name:    gateway.EventReadCursorUpdate,
			data: gateway.ReadCursorUpdateData{
				ChannelID:     channelID,
				LastMessageID: delta.Created[channelID],
			},
		})
	}
	for _, channelID := range delta.Deleted {
		events = append(events, pendingEvent{
			userIDs: []int64{userID},
			name:    gateway.EventReadCursorUpdate,
			data: gateway.ReadCursorUpdateData{
				ChannelID: channelID,
				Deleted:   true,
			},
		})
	}
	return events
}
