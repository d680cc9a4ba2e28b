package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateRoomRequest struct {
	Code  string `json:"code" binding:"omitempty,min=4,max=12"`
	Title string `json:"title" binding:"omitempty,max=200"`
}

// UpdateRoomRequest patches room metadata. Pointer fields distinguish
// "not sent" from "set to zero value".
type UpdateRoomRequest struct {
	Title      *string    `json:"title" binding:"omitempty,max=200"`
	CrisisType *string    `json:"crisisType" binding:"omitempty,max=100"`
	IncidentAt *time.Time `json:"incidentAt"`
	Location   *string    `json:"location" binding:"omitempty,max=200"`
	Latitude   *float64   `json:"latitude" binding:"omitempty,gte=-90,lte=90"`
	Longitude  *float64   `json:"longitude" binding:"omitempty,gte=-180,lte=180"`
	Notes      *string    `json:"notes" binding:"omitempty,max=4000"`
}

type RoomResponse struct {
	ID            uuid.UUID     `json:"id"`
	Code          string        `json:"code"`
	Title         string        `json:"title"`
	IsActive      bool          `json:"isActive"`
	CrisisContext CrisisContext `json:"crisisContext"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// RoomSnapshotResponse is the initial state a client loads once per page
// view; everything after it arrives over the realtime channel.
type RoomSnapshotResponse struct {
	Room         RoomResponse      `json:"room"`
	Participants []ParticipantInfo `json:"participants"`
	OnlineCount  int               `json:"onlineCount"`
}

type MessageResponse struct {
	ID        uuid.UUID              `json:"id"`
	Author    string                 `json:"author"`
	Type      string                 `json:"type"`
	Content   string                 `json:"content"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
}

type EventResponse struct {
	ID           uuid.UUID              `json:"id"`
	Title        string                 `json:"title"`
	Description  string                 `json:"description"`
	Severity     string                 `json:"severity"`
	Source       string                 `json:"source"`
	ScheduledFor *time.Time             `json:"scheduledFor,omitempty"`
	TriggeredAt  time.Time              `json:"triggeredAt"`
	AckAt        *time.Time             `json:"ackAt,omitempty"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
}
