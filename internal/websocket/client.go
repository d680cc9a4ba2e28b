package websocket

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// Write timeout
	writeWait = 10 * time.Second

	// Pong wait from the client
	pongWait = 60 * time.Second

	// Ping interval, must be below pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound frame size
	maxMessageSize = 64 * 1024 // 64KB
)

// ConnState is the lifecycle of one connection. A connection accepts a
// join only while unjoined; leave and disconnect are both terminal.
type ConnState int

const (
	StateUnjoined ConnState = iota
	StateJoined
	StateLeft
)

// ClientMessageHandler routes decoded frames and connection teardown.
// The realtime gateway is the only implementation outside tests.
type ClientMessageHandler interface {
	HandleMessage(client *Client, env *Envelope) error
	HandleDisconnect(client *Client)
}

// Client is one live connection. The room fields are set exactly once on
// a successful join and read by the gateway on every later command.
type Client struct {
	ID   uuid.UUID
	Conn *websocket.Conn
	Send chan []byte
	Hub  *Hub

	mu            sync.RWMutex
	state         ConnState
	roomCode      string
	roomID        uuid.UUID
	participantID uuid.UUID
	displayName   string
	isAdmin       bool
}

func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		ID:   uuid.New(),
		Conn: conn,
		Send: make(chan []byte, 256),
		Hub:  hub,
	}
}

// State returns the connection lifecycle state.
func (c *Client) State() ConnState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// SetJoined transitions the connection to JOINED and binds it to a room
// and its participant row.
func (c *Client) SetJoined(roomCode string, roomID, participantID uuid.UUID, displayName string, isAdmin bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateJoined
	c.roomCode = roomCode
	c.roomID = roomID
	c.participantID = participantID
	c.displayName = displayName
	c.isAdmin = isAdmin
}

// SetLeft transitions to the terminal state. Room fields are kept for
// logging.
func (c *Client) SetLeft() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateLeft
}

func (c *Client) RoomCode() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomCode
}

func (c *Client) RoomID() uuid.UUID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomID
}

func (c *Client) ParticipantID() uuid.UUID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.participantID
}

func (c *Client) DisplayName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.displayName
}

func (c *Client) IsAdmin() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isAdmin
}

// Close shuts the underlying connection, which ends both pumps.
func (c *Client) Close() {
	if c.Conn != nil {
		c.Conn.Close()
	}
}

// ReadPump reads frames from the connection and hands them to the
// handler. On exit the handler's disconnect cleanup runs before the
// client is unregistered from the hub.
func (c *Client) ReadPump(handler ClientMessageHandler) {
	defer func() {
		if handler != nil {
			handler.HandleDisconnect(c)
		}
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.ctx.Done():
		}
		c.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var env Envelope
		err := c.Conn.ReadJSON(&env)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("connection_id", c.ID).WithError(err).Warn("WebSocket read error")
			}
			break
		}

		if handler == nil {
			continue
		}

		if err := handler.HandleMessage(c, &env); err != nil {
			logrus.WithFields(logrus.Fields{
				"connection_id": c.ID,
				"type":          env.Type,
			}).WithError(err).Error("Command handling failed")
			c.SendError("Une erreur interne est survenue")
		}
	}
}

// WritePump flushes the send queue to the connection and keeps it alive
// with protocol-level pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			// Flush whatever queued up behind this frame
			n := len(c.Send)
			for i := 0; i < n; i++ {
				if err := c.Conn.WriteMessage(websocket.TextMessage, <-c.Send); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendMessage queues one typed frame for this connection without
// blocking; a full queue drops the frame and reports it.
func (c *Client) SendMessage(msgType MessageType, payload interface{}) error {
	data, err := NewEnvelope(msgType, payload)
	if err != nil {
		return err
	}

	select {
	case c.Send <- data:
		return nil
	default:
		return ErrClientQueueFull
	}
}

// SendError emits a system:error frame to this connection only.
func (c *Client) SendError(message string) {
	c.SendMessage(TypeError, map[string]string{
		"message": message,
	})
}
