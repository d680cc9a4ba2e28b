package database

import (
	"time"

	"github.com/google/uuid"

	"simucrise/internal/models"
)

func (d *Database) CreateParticipant(p *models.Participant) error {
	return d.db.Create(p).Error
}

func (d *Database) UpdateParticipant(p *models.Participant) error {
	return d.db.Save(p).Error
}

// FindParticipant resolves the row owning a (room, display name) pair.
func (d *Database) FindParticipant(roomID uuid.UUID, displayName string) (*models.Participant, error) {
	var p models.Participant
	err := d.db.
		Where("room_id = ? AND display_name = ?", roomID, displayName).
		First(&p).Error
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &p, nil
}

func (d *Database) ListRoomParticipants(roomID uuid.UUID) ([]models.Participant, error) {
	var participants []models.Participant
	err := d.db.
		Where("room_id = ?", roomID).
		Order("joined_at ASC").
		Find(&participants).Error
	if err != nil {
		return nil, err
	}
	return participants, nil
}

// DisconnectParticipant flips the presence flag and stamps the departure.
// The row itself is never deleted outside a room cascade.
func (d *Database) DisconnectParticipant(id uuid.UUID, at time.Time) error {
	return d.db.Model(&models.Participant{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_connected": false,
			"left_at":      at,
		}).Error
}
