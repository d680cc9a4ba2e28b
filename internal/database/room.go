package database

import (
	"time"

	"gorm.io/gorm"

	"simucrise/internal/models"
)

func (d *Database) CreateRoom(room *models.Room) error {
	return d.db.Create(room).Error
}

// GetRoomByCode looks up a room by its canonical code, active or not.
func (d *Database) GetRoomByCode(code string) (*models.Room, error) {
	var room models.Room
	if err := d.db.First(&room, "code = ?", code).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &room, nil
}

func (d *Database) ListActiveRooms() ([]models.Room, error) {
	var rooms []models.Room
	err := d.db.
		Where("is_active = ?", true).
		Order("created_at DESC").
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

func (d *Database) UpdateRoom(room *models.Room) error {
	return d.db.Save(room).Error
}

// CloseRoom deactivates a room and marks its connected participants
// disconnected in one transaction. The room row is kept for later review.
func (d *Database) CloseRoom(code string, at time.Time) (*models.Room, error) {
	var room models.Room

	err := d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&room, "code = ?", code).Error; err != nil {
			return wrapNotFound(err)
		}

		room.IsActive = false
		if err := tx.Save(&room).Error; err != nil {
			return err
		}

		return tx.Model(&models.Participant{}).
			Where("room_id = ? AND is_connected = ?", room.ID, true).
			Updates(map[string]interface{}{
				"is_connected": false,
				"left_at":      at,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	return &room, nil
}
