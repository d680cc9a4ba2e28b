package websocket

import (
	"encoding/json"
	"time"
)

// MessageType names a frame on the realtime channel.
type MessageType string

// Inbound commands (client → server).
const (
	TypeRoomJoin    MessageType = "room:join"
	TypeRoomLeave   MessageType = "room:leave"
	TypeChatMessage MessageType = "chat:message"
	TypeEventCreate MessageType = "event:create"
	TypeEventAck    MessageType = "event:ack"
)

// Outbound frames (server → client). chat:message is reused in both
// directions; the payload shape differs.
const (
	TypeAnnouncement      MessageType = "system:announcement"
	TypeError             MessageType = "system:error"
	TypeEventCreated      MessageType = "event:created"
	TypeParticipantUpdate MessageType = "participant:update"
	TypeRoomContextUpdate MessageType = "room:context:update"
)

// Envelope is the JSON frame exchanged on the wire.
type Envelope struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEnvelope marshals a typed payload into a ready-to-send frame.
func NewEnvelope(msgType MessageType, payload interface{}) ([]byte, error) {
	env := Envelope{
		Type:      msgType,
		Timestamp: time.Now(),
	}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Payload = data
	}

	return json.Marshal(env)
}
