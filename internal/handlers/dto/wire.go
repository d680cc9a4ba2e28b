package dto

import (
	"time"

	"github.com/google/uuid"
)

// Inbound payloads, carried in the realtime envelope. Validation tags are
// checked by the gateway before any state is touched.

type JoinPayload struct {
	RoomCode    string `json:"roomCode" validate:"required"`
	DisplayName string `json:"displayName" validate:"required,max=50"`
	IsAdmin     bool   `json:"isAdmin"`
}

type LeavePayload struct {
	RoomCode string `json:"roomCode"`
}

type ChatPayload struct {
	RoomCode string `json:"roomCode"`
	Content  string `json:"content" validate:"max=4000"`
}

type EventCreatePayload struct {
	RoomCode    string `json:"roomCode"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Severity    string `json:"severity" validate:"required"`
}

type EventAckPayload struct {
	EventID uuid.UUID `json:"eventId" validate:"required"`
}

// Outbound payloads.

// ErrorPayload goes only to the originating connection, never to the
// room, so clients can render it as an inline error rather than a toast.
type ErrorPayload struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type AnnouncementPayload struct {
	Message string `json:"message"`
}

type ChatMessagePayload struct {
	ID        uuid.UUID `json:"id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type EventCreatedPayload struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
	Source      string    `json:"source"`
	TriggeredAt time.Time `json:"triggeredAt"`
}

type ParticipantInfo struct {
	ID          uuid.UUID  `json:"id"`
	DisplayName string     `json:"displayName"`
	Role        string     `json:"role"`
	IsAdmin     bool       `json:"isAdmin"`
	IsConnected bool       `json:"isConnected"`
	JoinedAt    time.Time  `json:"joinedAt"`
	LeftAt      *time.Time `json:"leftAt,omitempty"`
}

type ParticipantListPayload struct {
	Participants []ParticipantInfo `json:"participants"`
}

type CrisisContext struct {
	CrisisType string     `json:"crisisType,omitempty"`
	IncidentAt *time.Time `json:"incidentAt,omitempty"`
	Location   string     `json:"location,omitempty"`
	Latitude   *float64   `json:"latitude,omitempty"`
	Longitude  *float64   `json:"longitude,omitempty"`
	Notes      string     `json:"notes,omitempty"`
}

type RoomContextPayload struct {
	Code          string        `json:"code"`
	Title         string        `json:"title"`
	CrisisContext CrisisContext `json:"crisisContext"`
}
