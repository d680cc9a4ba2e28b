package models

import (
	"time"

	"github.com/google/uuid"
)

// Room is a single crisis-simulation session, identified by a short
// shareable code. Rooms are deactivated on close, never hard-deleted.
type Room struct {
	ID       uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Code     string    `gorm:"uniqueIndex;not null"`
	Title    string
	IsActive bool `gorm:"not null;default:true"`

	// Crisis context, edited by the formateur from the room settings panel.
	CrisisType string
	IncidentAt *time.Time
	Location   string
	Latitude   *float64
	Longitude  *float64
	Notes      string

	CreatedAt time.Time
	UpdatedAt time.Time

	// Associations
	Participants []Participant `gorm:"constraint:OnDelete:CASCADE"`
	Messages     []Message     `gorm:"constraint:OnDelete:CASCADE"`
	Events       []CrisisEvent `gorm:"constraint:OnDelete:CASCADE"`
}
