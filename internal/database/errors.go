package database

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
)

// wrapNotFound maps gorm's sentinel onto the package one so callers never
// import gorm to branch on lookups.
func wrapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
