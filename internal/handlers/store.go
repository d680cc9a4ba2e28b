package handlers

import (
	"time"

	"github.com/google/uuid"

	"simucrise/internal/models"
)

// Store is the persistence surface the handlers depend on, implemented by
// database.Database. Tests substitute an in-memory fake.
type Store interface {
	CreateRoom(room *models.Room) error
	GetRoomByCode(code string) (*models.Room, error)
	ListActiveRooms() ([]models.Room, error)
	UpdateRoom(room *models.Room) error
	CloseRoom(code string, at time.Time) (*models.Room, error)

	CreateParticipant(p *models.Participant) error
	UpdateParticipant(p *models.Participant) error
	FindParticipant(roomID uuid.UUID, displayName string) (*models.Participant, error)
	ListRoomParticipants(roomID uuid.UUID) ([]models.Participant, error)
	DisconnectParticipant(id uuid.UUID, at time.Time) error

	SaveMessage(message *models.Message) error
	ListRoomMessages(roomID uuid.UUID, limit int, before *time.Time) ([]models.Message, error)

	CreateEventWithMessage(event *models.CrisisEvent, message *models.Message) error
	ListRoomEvents(roomID uuid.UUID, severity *models.Severity, acked *bool) ([]models.CrisisEvent, error)
	AcknowledgeEvent(eventID uuid.UUID, at time.Time) error
}

// RealtimeNotifier is what the HTTP room handlers need from the realtime
// layer; the gateway implements it. It is optional on the closure path so
// a room can still be deactivated when the realtime side is unavailable.
type RealtimeNotifier interface {
	RoomContextUpdated(room *models.Room)
	RoomClosed(roomCode string)
}
