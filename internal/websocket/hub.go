package websocket

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Hub owns every live connection and the per-room connection sets. The
// room sets only gate broadcast targets and scheduler lifecycle; durable
// presence lives in the participants table, not here. State is process
// local: one instance per process, created at boot.
type Hub struct {
	// All connections, joined or not
	clients map[uuid.UUID]*Client

	// Connections per room code
	rooms map[string]map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc

	log *logrus.Entry
}

func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[uuid.UUID]*Client),
		rooms:      make(map[string]map[uuid.UUID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		log:        logrus.WithField("component", "hub"),
	}
}

// Run processes connection lifecycle events until Stop is called. It must
// run in its own goroutine before the first connection is accepted.
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)
		}
	}
}

// Stop ends the Run loop and closes every remaining connection.
func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		close(client.Send)
		client.Close()
	}
	h.clients = make(map[uuid.UUID]*Client)
	h.rooms = make(map[string]map[uuid.UUID]*Client)
}

// Register hands a new connection to the Run loop.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

// Unregister removes a connection; used by the read pump on teardown.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client

	h.log.WithField("connection_id", client.ID).Info("Client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}

	// Normally the gateway has already detached the connection from its
	// room; anything left here means that cleanup was skipped.
	if code := client.RoomCode(); code != "" {
		if room, ok := h.rooms[code]; ok {
			if _, still := room[client.ID]; still {
				h.log.WithFields(logrus.Fields{
					"connection_id": client.ID,
					"room_code":     code,
				}).Warn("Client was still attached to a room at unregister")
				h.removeFromRoomLocked(code, client)
			}
		}
	}

	delete(h.clients, client.ID)
	close(client.Send)

	h.log.WithField("connection_id", client.ID).Info("Client unregistered")
}

// AddToRoom attaches a connection to a room's broadcast set, creating the
// set on first use.
func (h *Hub) AddToRoom(roomCode string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[roomCode]; !ok {
		h.rooms[roomCode] = make(map[uuid.UUID]*Client)
	}
	h.rooms[roomCode][client.ID] = client

	h.log.WithFields(logrus.Fields{
		"connection_id": client.ID,
		"room_code":     roomCode,
		"room_size":     len(h.rooms[roomCode]),
	}).Debug("Client attached to room")
}

// RemoveFromRoom detaches a connection from a room's broadcast set. It
// reports true when the set became empty and was dropped, so the caller
// can stop the room's scheduler instead of leaking its timer.
func (h *Hub) RemoveFromRoom(roomCode string, client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.removeFromRoomLocked(roomCode, client)
}

func (h *Hub) removeFromRoomLocked(roomCode string, client *Client) bool {
	room, ok := h.rooms[roomCode]
	if !ok {
		return false
	}

	delete(room, client.ID)
	if len(room) > 0 {
		return false
	}

	delete(h.rooms, roomCode)
	h.log.WithField("room_code", roomCode).Info("Room has no connections left")
	return true
}

// RoomSize returns the number of connections currently attached to a room.
func (h *Hub) RoomSize(roomCode string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomCode])
}

// SendToRoom queues a frame on every connection attached to a room. Slow
// consumers are skipped rather than allowed to stall the broadcast.
func (h *Hub) SendToRoom(roomCode string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.rooms[roomCode] {
		select {
		case client.Send <- message:
		default:
			h.log.WithFields(logrus.Fields{
				"connection_id": client.ID,
				"room_code":     roomCode,
			}).Warn("Client send queue full, frame dropped")
		}
	}
}

// DisconnectRoom force-closes every connection of a room and drops the
// room's broadcast set. Connections are marked terminal first so their
// read pumps skip the per-participant leave cleanup.
func (h *Hub) DisconnectRoom(roomCode string) {
	h.mu.Lock()
	room, ok := h.rooms[roomCode]
	if ok {
		delete(h.rooms, roomCode)
	}
	h.mu.Unlock()

	if !ok {
		return
	}

	for _, client := range room {
		client.SetLeft()
		client.Close()
	}

	h.log.WithFields(logrus.Fields{
		"room_code":   roomCode,
		"connections": len(room),
	}).Info("Room connections force-closed")
}
