package database

import (
	"time"

	"github.com/google/uuid"

	"simucrise/internal/models"
)

func (d *Database) SaveMessage(message *models.Message) error {
	return d.db.Create(message).Error
}

// ListRoomMessages returns a room's messages in chronological order.
// A non-nil before bounds the page; limit caps its size.
func (d *Database) ListRoomMessages(roomID uuid.UUID, limit int, before *time.Time) ([]models.Message, error) {
	var messages []models.Message

	query := d.db.Where("room_id = ?", roomID)
	if before != nil {
		query = query.Where("created_at < ?", *before)
	}

	err := query.
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	// Newest page fetched descending, handed out oldest first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}
