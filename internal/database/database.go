package database

import (
	"errors"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"simucrise/internal/models"
)

// Database is the persistence adapter over Postgres. It owns all durable
// entity state; everything the realtime layer holds is a disposable view.
type Database struct {
	db *gorm.DB
}

// Connect opens the Postgres connection and migrates the four entities.
func (d *Database) Connect(dsn string) error {
	if dsn == "" {
		return errors.New("database DSN is not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return err
	}

	err = db.AutoMigrate(
		&models.Room{},
		&models.Participant{},
		&models.Message{},
		&models.CrisisEvent{},
	)
	if err != nil {
		return err
	}

	d.db = db

	return nil
}
