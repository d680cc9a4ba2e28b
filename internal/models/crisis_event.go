package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Severity is the ordered incident intensity scale.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityModerate Severity = "MODERATE"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Severities lists the closed enumeration in ascending order.
func Severities() []Severity {
	return []Severity{SeverityLow, SeverityModerate, SeverityHigh, SeverityCritical}
}

// AutoSeverities is the pool eligible for scheduler-generated events.
// CRITICAL is reserved for manual injection by the formateur.
func AutoSeverities() []Severity {
	return []Severity{SeverityLow, SeverityModerate, SeverityHigh}
}

// ParseSeverity resolves a wire value to the closed enumeration,
// case-insensitively. Unknown values are rejected before any write.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(strings.ToUpper(strings.TrimSpace(s))) {
	case SeverityLow:
		return SeverityLow, nil
	case SeverityModerate:
		return SeverityModerate, nil
	case SeverityHigh:
		return SeverityHigh, nil
	case SeverityCritical:
		return SeverityCritical, nil
	default:
		return "", fmt.Errorf("unknown severity %q", s)
	}
}

// Rank returns the position of the severity on the ordered scale,
// starting at 0 for LOW. Unknown values rank below LOW.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityModerate:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return -1
	}
}

// Source records the provenance of a crisis event.
type Source string

const (
	SourceManual    Source = "MANUAL"
	SourceScheduler Source = "SCHEDULER"
)

// CrisisEvent is a discrete incident injected into a room, either manually
// by the formateur or by the per-room scheduler. AckAt is the only field
// mutated after creation.
type CrisisEvent struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	RoomID      uuid.UUID `gorm:"not null;index"`
	Title       string    `gorm:"not null"`
	Description string
	Severity    Severity `gorm:"not null;index"`
	Source      Source   `gorm:"not null;default:'MANUAL'"`

	ScheduledFor *time.Time
	TriggeredAt  time.Time
	AckAt        *time.Time `gorm:"index"`

	Payload datatypes.JSONMap `gorm:"type:jsonb"`
}
