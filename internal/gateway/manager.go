package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chebupelek/hitscord-sub000/internal/auth"
	"github.com/chebupelek/hitscord-sub000/internal/database"
	"github.com/chebupelek/hitscord-sub000/internal/models"
	"github.com/chebupelek/hitscord-sub000/internal/redis"
)

const replayBufferSize = 100

// Manager owns all active WebSocket connections and routes dispatch events
// to server subscribers.
type Manager struct {
	mu            sync.RWMutex
	connections   map[int64]*Connection    // userID → connection
	subscriptions map[int64]map[int64]bool // serverID → set of userIDs
	sessions      map[string]*Connection   // sessionID → connection

	// Ring buffer per server for session resume replay.
	replayMu     sync.RWMutex
	replayBuffer map[int64]*ringBuffer

	tokens  *auth.TokenService
	servers database.ServerRepository
	cursors database.CursorRepository
	redis   *redis.Client
}

// NewManager creates a gateway Manager.
func NewManager(
	tokens *auth.TokenService,
	servers database.ServerRepository,
	cursors database.CursorRepository,
	redisClient *redis.Client,
) *Manager {
	return &Manager{
		connections:   make(map[int64]*Connection),
		subscriptions: make(map[int64]map[int64]bool),
		sessions:      make(map[string]*Connection),
		replayBuffer:  make(map[int64]*ringBuffer),
		tokens:        tokens,
		servers:       servers,
		cursors:       cursors,
		redis:         redisClient,
	}
}

// register adds a connection, displacing any existing one for the same user.
func (m *Manager) register(c *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.connections[c.UserID]; ok {
		old.SendPayload(Payload{Op: OpReconnect})
		old.Close()
		delete(m.sessions, old.SessionID)
	}

	m.connections[c.UserID] = c
	m.sessions[c.SessionID] = c
}

// unregister removes a connection and its server subscriptions.
func (m *Manager) unregister(c *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.connections[c.UserID]; ok && existing == c {
		delete(m.connections, c.UserID)

		for serverID, members := range m.subscriptions {
			delete(members, c.UserID)
			if len(members) == 0 {
				delete(m.subscriptions, serverID)
			}
		}

		go m.clearPresenceWithGrace(c.UserID)
	}

	delete(m.sessions, c.SessionID)
}

// clearPresenceWithGrace waits before setting offline, allowing reconnection.
func (m *Manager) clearPresenceWithGrace(userID int64) {
	time.Sleep(10 * time.Second)

	m.mu.RLock()
	_, stillConnected := m.connections[userID]
	m.mu.RUnlock()

	if stillConnected {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.redis.SetPresence(ctx, userID, "offline"); err != nil {
		slog.Error("failed to clear presence", "userID", userID, "error", err)
	}

	m.broadcastPresence(userID, "offline")
}

func (m *Manager) subscribe(userID, serverID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.subscriptions[serverID] == nil {
		m.subscriptions[serverID] = make(map[int64]bool)
	}
	m.subscriptions[serverID][userID] = true
}

// SubscribeToServer adds a user to a server's event subscription.
func (m *Manager) SubscribeToServer(userID, serverID int64) {
	m.subscribe(userID, serverID)
}

// UnsubscribeFromServer removes a user from a server's event subscription.
func (m *Manager) UnsubscribeFromServer(userID, serverID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if members, ok := m.subscriptions[serverID]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(m.subscriptions, serverID)
		}
	}
}

// DispatchToUser sends a dispatch event to a specific connected user.
func (m *Manager) DispatchToUser(userID int64, event string, data any) {
	m.mu.RLock()
	c, ok := m.connections[userID]
	m.mu.RUnlock()

	if ok {
		c.SendEvent(event, data)
	}
}

// DispatchToUsers sends a dispatch event to each of the given users that is
// currently connected. Per-user events are not stored for replay.
func (m *Manager) DispatchToUsers(userIDs []int64, event string, data any) {
	m.mu.RLock()
	conns := make([]*Connection, 0, len(userIDs))
	for _, userID := range userIDs {
		if c, ok := m.connections[userID]; ok {
			conns = append(conns, c)
		}
	}
	m.mu.RUnlock()

	for _, c := range conns {
		c.SendEvent(event, data)
	}
}

// DispatchToServer sends a dispatch event to all users subscribed to a server
// and records it in the server's replay buffer.
func (m *Manager) DispatchToServer(serverID int64, event string, data any) {
	m.sendToServer(serverID, Event{Name: event, Data: data})
}

func (m *Manager) sendToServer(serverID int64, event Event) {
	m.mu.RLock()
	members := m.subscriptions[serverID]
	conns := make([]*Connection, 0, len(members))
	for userID := range members {
		if c, ok := m.connections[userID]; ok {
			conns = append(conns, c)
		}
	}
	m.mu.RUnlock()

	for _, c := range conns {
		c.SendEvent(event.Name, event.Data)
	}

	m.storeReplayEvent(serverID, event)
}

// handleIdentify processes an IDENTIFY payload from a client.
func (m *Manager) handleIdentify(c *Connection, data json.RawMessage) {
	var identify IdentifyData
	if err := json.Unmarshal(data, &identify); err != nil {
		slog.Error("invalid identify data", "error", err)
		c.Close()
		return
	}

	claims, err := m.tokens.ValidateAccessToken(identify.Token)
	if err != nil {
		slog.Warn("invalid token in identify", "error", err)
		c.Close()
		return
	}

	c.UserID = claims.UserID
	c.SessionID = uuid.NewString()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	servers, err := m.servers.GetByUserID(ctx, c.UserID)
	if err != nil {
		slog.Error("failed to get servers for user", "userID", c.UserID, "error", err)
		c.Close()
		return
	}

	m.register(c)

	serverIDs := make([]int64, len(servers))
	for i, s := range servers {
		serverIDs[i] = s.ID
		m.subscribe(c.UserID, s.ID)
	}

	if err := m.redis.SetPresence(ctx, c.UserID, "online"); err != nil {
		slog.Error("failed to set presence", "userID", c.UserID, "error", err)
	}

	var cursors []models.ReadCursor
	if m.cursors != nil {
		cs, err := m.cursors.GetByUser(ctx, c.UserID)
		if err != nil {
			slog.Error("failed to get read cursors", "userID", c.UserID, "error", err)
		} else {
			cursors = cs
		}
	}

	c.SendEvent(EventReady, ReadyData{
		SessionID: c.SessionID,
		UserID:    c.UserID,
		Servers:   serverIDs,
		Cursors:   cursors,
	})

	m.broadcastPresence(c.UserID, "online")
}

// handleResume processes a RESUME payload to replay missed events.
func (m *Manager) handleResume(c *Connection, data json.RawMessage) {
	var resume ResumeData
	if err := json.Unmarshal(data, &resume); err != nil {
		slog.Error("invalid resume data", "error", err)
		c.SendPayload(Payload{Op: OpReconnect})
		c.Close()
		return
	}

	claims, err := m.tokens.ValidateAccessToken(resume.Token)
	if err != nil {
		slog.Warn("invalid token in resume", "error", err)
		c.Close()
		return
	}

	c.UserID = claims.UserID
	c.SessionID = resume.SessionID

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	servers, err := m.servers.GetByUserID(ctx, c.UserID)
	if err != nil {
		slog.Error("failed to get servers on resume", "userID", c.UserID, "error", err)
		c.SendPayload(Payload{Op: OpReconnect})
		c.Close()
		return
	}

	m.register(c)

	for _, s := range servers {
		m.subscribe(c.UserID, s.ID)

		m.replayMu.RLock()
		rb, ok := m.replayBuffer[s.ID]
		m.replayMu.RUnlock()

		if ok {
			for _, ev := range rb.since(resume.Sequence) {
				c.SendEvent(ev.Name, ev.Data)
			}
		}
	}
}

// handlePresenceUpdate processes a client presence update.
func (m *Manager) handlePresenceUpdate(c *Connection, data json.RawMessage) {
	var update ClientPresenceUpdate
	if err := json.Unmarshal(data, &update); err != nil {
		return
	}

	switch update.Status {
	case "online", "idle", "dnd", "invisible":
	default:
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status := update.Status
	if status == "invisible" {
		status = "offline"
	}
	if err := m.redis.SetPresence(ctx, c.UserID, status); err != nil {
		slog.Error("failed to update presence", "userID", c.UserID, "error", err)
		return
	}

	m.broadcastPresence(c.UserID, status)
}

// broadcastPresence sends a PRESENCE_UPDATE event to all servers the user is in.
func (m *Manager) broadcastPresence(userID int64, status string) {
	event := Event{
		Name: EventPresenceUpdate,
		Data: PresenceUpdateData{UserID: userID, Status: status},
	}

	m.mu.RLock()
	var serverIDs []int64
	for serverID, members := range m.subscriptions {
		if members[userID] {
			serverIDs = append(serverIDs, serverID)
		}
	}
	m.mu.RUnlock()

	for _, serverID := range serverIDs {
		m.sendToServer(serverID, event)
	}
}

// storeReplayEvent adds an event to the server's replay ring buffer.
func (m *Manager) storeReplayEvent(serverID int64, event Event) {
	m.replayMu.Lock()
	defer m.replayMu.Unlock()

	rb, ok := m.replayBuffer[serverID]
	if !ok {
		rb = newRingBuffer(replayBufferSize)
		m.replayBuffer[serverID] = rb
	}
	rb.add(event)
}

// sequencedEvent pairs an event with its sequence number for replay.
type sequencedEvent struct {
	Sequence int64
	Event
}

// ringBuffer is a fixed-size circular buffer for replay events.
type ringBuffer struct {
	events []sequencedEvent
	size   int
	pos    int
	seq    int64
	full   bool
}

func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{
		events: make([]sequencedEvent, size),
		size:   size,
	}
}

func (rb *ringBuffer) add(event Event) {
	rb.seq++
	rb.events[rb.pos] = sequencedEvent{Sequence: rb.seq, Event: event}
	rb.pos = (rb.pos + 1) % rb.size
	if rb.pos == 0 {
		rb.full = true
	}
}

// since returns all buffered events with sequence > afterSeq, oldest first.
func (rb *ringBuffer) since(afterSeq int64) []Event {
	var result []Event
	count := rb.size
	if !rb.full {
		count = rb.pos
	}

	start := 0
	if rb.full {
		start = rb.pos
	}

	for i := 0; i < count; i++ {
		idx := (start + i) % rb.size
		if rb.events[idx].Sequence > afterSeq {
			result = append(result, rb.events[idx].Event)
		}
	}
	return result
}
