// Package cache keeps hot room metadata in Redis so snapshot reads skip
// Postgres when the entry is warm. Postgres stays the source of truth.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"simucrise/internal/models"
)

// RoomMeta is the cached projection of a room, keyed by code.
type RoomMeta struct {
	ID         uuid.UUID  `json:"id"`
	Code       string     `json:"code"`
	Title      string     `json:"title"`
	IsActive   bool       `json:"isActive"`
	CrisisType string     `json:"crisisType,omitempty"`
	IncidentAt *time.Time `json:"incidentAt,omitempty"`
	Location   string     `json:"location,omitempty"`
	Latitude   *float64   `json:"latitude,omitempty"`
	Longitude  *float64   `json:"longitude,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// MetaFromRoom projects a persisted room into its cache entry.
func MetaFromRoom(room *models.Room) *RoomMeta {
	return &RoomMeta{
		ID:         room.ID,
		Code:       room.Code,
		Title:      room.Title,
		IsActive:   room.IsActive,
		CrisisType: room.CrisisType,
		IncidentAt: room.IncidentAt,
		Location:   room.Location,
		Latitude:   room.Latitude,
		Longitude:  room.Longitude,
		Notes:      room.Notes,
		CreatedAt:  room.CreatedAt,
		UpdatedAt:  room.UpdatedAt,
	}
}

// RoomCache handles Redis operations for room metadata.
type RoomCache interface {
	Set(ctx context.Context, meta *RoomMeta) error
	// Get returns (nil, nil) on a cold key.
	Get(ctx context.Context, code string) (*RoomMeta, error)
	Delete(ctx context.Context, code string) error
}

type roomCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRoomCache creates a room cache. Entries expire after 24h so stale
// rooms age out without an explicit sweep.
func NewRoomCache(client *redis.Client) RoomCache {
	return &roomCache{
		client: client,
		ttl:    24 * time.Hour,
	}
}

func (c *roomCache) key(code string) string {
	return fmt.Sprintf("room:%s", code)
}

func (c *roomCache) Set(ctx context.Context, meta *RoomMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(meta.Code), data, c.ttl).Err()
}

func (c *roomCache) Get(ctx context.Context, code string) (*RoomMeta, error) {
	data, err := c.client.Get(ctx, c.key(code)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var meta RoomMeta
	if err := json.Unmarshal([]byte(data), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (c *roomCache) Delete(ctx context.Context, code string) error {
	return c.client.Del(ctx, c.key(code)).Err()
}
