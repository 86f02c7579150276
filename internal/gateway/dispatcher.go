package gateway

// Dispatcher is the interface services use to push events to connected
// WebSocket clients. The concrete Manager implements it. Dispatch happens
// after the originating transaction commits and is fire-and-forget.
type Dispatcher interface {
	DispatchToServer(serverID int64, event string, data any)
	DispatchToUser(userID int64, event string, data any)
	// DispatchToUsers targets the subset of members a per-user event applies
	// to, such as the holders of a mutated role.
	DispatchToUsers(userIDs []int64, event string, data any)
	SubscribeToServer(userID, serverID int64)
	UnsubscribeFromServer(userID, serverID int64)
}
