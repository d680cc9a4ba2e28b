package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"simucrise/internal/models"
)

// CreateEventWithMessage persists a crisis event and its companion
// timeline message atomically, so a failed write leaves neither behind.
func (d *Database) CreateEventWithMessage(event *models.CrisisEvent, message *models.Message) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(event).Error; err != nil {
			return err
		}

		if message.Metadata == nil {
			message.Metadata = map[string]interface{}{}
		}
		message.Metadata["eventId"] = event.ID.String()

		return tx.Create(message).Error
	})
}

// ListRoomEvents returns a room's events in trigger order, optionally
// filtered by severity and acknowledgment state.
func (d *Database) ListRoomEvents(roomID uuid.UUID, severity *models.Severity, acked *bool) ([]models.CrisisEvent, error) {
	var events []models.CrisisEvent

	query := d.db.Where("room_id = ?", roomID)
	if severity != nil {
		query = query.Where("severity = ?", *severity)
	}
	if acked != nil {
		if *acked {
			query = query.Where("ack_at IS NOT NULL")
		} else {
			query = query.Where("ack_at IS NULL")
		}
	}

	err := query.Order("triggered_at ASC").Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// AcknowledgeEvent stamps ack_at on every event matching the id.
// Re-acknowledging overwrites the timestamp; a miss is not an error.
func (d *Database) AcknowledgeEvent(eventID uuid.UUID, at time.Time) error {
	return d.db.Model(&models.CrisisEvent{}).
		Where("id = ?", eventID).
		Update("ack_at", at).Error
}
