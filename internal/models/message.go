package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MessageType distinguishes chat traffic from event descriptions and
// system notices in the room timeline.
type MessageType string

const (
	MessageChat   MessageType = "CHAT"
	MessageEvent  MessageType = "EVENT"
	MessageSystem MessageType = "SYSTEM"
)

// SystemAuthor is the label rendered for messages without a human author.
const SystemAuthor = "Système"

// Message is one unit of room traffic. Messages are append-only and never
// mutated after creation.
type Message struct {
	ID      uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	RoomID  uuid.UUID `gorm:"not null;index:idx_messages_room_created"`
	Author  *string
	Type    MessageType `gorm:"not null;default:'CHAT'"`
	Content string      `gorm:"not null"`

	// Metadata carries structured context for EVENT messages
	// (severity, source, event id).
	Metadata datatypes.JSONMap `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"index:idx_messages_room_created"`
}

// AuthorName returns the display name to render, falling back to the
// system label when no author is set.
func (m *Message) AuthorName() string {
	if m.Author == nil || *m.Author == "" {
		return SystemAuthor
	}
	return *m.Author
}
