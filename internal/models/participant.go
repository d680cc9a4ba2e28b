package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of participant roles. It is resolved once when a
// join command crosses the wire boundary and never re-parsed afterwards.
type Role string

const (
	RoleFormateur   Role = "formateur"
	RoleParticipant Role = "participant"
)

// RoleForAdmin derives the role from the admin flag carried by a join.
func RoleForAdmin(isAdmin bool) Role {
	if isAdmin {
		return RoleFormateur
	}
	return RoleParticipant
}

// IsAdmin reports whether the role carries facilitator privileges.
func (r Role) IsAdmin() bool {
	return r == RoleFormateur
}

// Participant is a named occupant of a room. Uniqueness is enforced by
// (room, display name): rejoining under the same name updates the existing
// row instead of creating a duplicate.
type Participant struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	RoomID      uuid.UUID `gorm:"not null;uniqueIndex:idx_participants_room_name"`
	DisplayName string    `gorm:"not null;uniqueIndex:idx_participants_room_name"`
	Role        Role      `gorm:"not null;default:'participant'"`
	IsConnected bool      `gorm:"not null;default:false"`
	JoinedAt    time.Time
	LeftAt      *time.Time
}
