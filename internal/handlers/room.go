package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"simucrise/internal/cache"
	"simucrise/internal/database"
	"simucrise/internal/handlers/dto"
	"simucrise/internal/models"
	"simucrise/internal/roomcode"
	ws "simucrise/internal/websocket"
)

const codeAttempts = 5

// RoomHandler serves the administrative HTTP surface: room creation,
// metadata edits and closure. The realtime notifier is optional so a
// room can still be closed when the gateway is unavailable.
type RoomHandler struct {
	store    Store
	hub      *ws.Hub
	cache    cache.RoomCache
	notifier RealtimeNotifier

	log *logrus.Entry
}

func NewRoomHandler(store Store, hub *ws.Hub, roomCache cache.RoomCache, notifier RealtimeNotifier) *RoomHandler {
	return &RoomHandler{
		store:    store,
		hub:      hub,
		cache:    roomCache,
		notifier: notifier,
		log:      logrus.WithField("component", "room_handler"),
	}
}

// CreateRoom opens a new room, generating a shareable code unless the
// caller picked one.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req dto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	code := roomcode.Normalize(req.Code)
	if code != "" {
		if err := roomcode.Validate(code); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room code"})
			return
		}

		_, err := h.store.GetRoomByCode(code)
		if err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "room code already in use"})
			return
		}
		if !errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create room"})
			return
		}
	} else {
		generated, err := h.freeCode()
		if err != nil {
			h.log.WithError(err).Error("Could not generate a room code")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create room"})
			return
		}
		code = generated
	}

	room := &models.Room{
		Code:     code,
		Title:    req.Title,
		IsActive: true,
	}

	if err := h.store.CreateRoom(room); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create room"})
		return
	}

	cacheRoomMeta(h.cache, h.log, room)

	h.log.WithField("room_code", room.Code).Info("Room created")

	c.JSON(http.StatusCreated, roomResponse(room))
}

// ListRooms returns the active rooms, newest first.
func (h *RoomHandler) ListRooms(c *gin.Context) {
	rooms, err := h.store.ListActiveRooms()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list rooms"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rooms": lo.Map(rooms, func(room models.Room, _ int) dto.RoomResponse {
			return roomResponse(&room)
		}),
	})
}

// GetRoom returns the initial snapshot a client loads once per page view.
// Room metadata is served from Redis when warm.
func (h *RoomHandler) GetRoom(c *gin.Context) {
	code := roomcode.Normalize(c.Param("code"))

	var roomResp dto.RoomResponse
	var roomID uuid.UUID

	if meta := h.cachedMeta(c.Request.Context(), code); meta != nil {
		roomResp = roomResponseFromMeta(meta)
		roomID = meta.ID
	} else {
		room, err := h.store.GetRoomByCode(code)
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get room"})
			return
		}

		cacheRoomMeta(h.cache, h.log, room)
		roomResp = roomResponse(room)
		roomID = room.ID
	}

	participants, err := h.store.ListRoomParticipants(roomID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get participants"})
		return
	}

	c.JSON(http.StatusOK, dto.RoomSnapshotResponse{
		Room: roomResp,
		Participants: lo.Map(participants, func(p models.Participant, _ int) dto.ParticipantInfo {
			return participantInfo(p)
		}),
		OnlineCount: h.hub.RoomSize(code),
	})
}

// UpdateRoom patches the room title and crisis context, then pushes the
// new context to every connected client.
func (h *RoomHandler) UpdateRoom(c *gin.Context) {
	code := roomcode.Normalize(c.Param("code"))

	room, err := h.store.GetRoomByCode(code)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get room"})
		return
	}

	var req dto.UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Title != nil {
		room.Title = *req.Title
	}
	if req.CrisisType != nil {
		room.CrisisType = *req.CrisisType
	}
	if req.IncidentAt != nil {
		room.IncidentAt = req.IncidentAt
	}
	if req.Location != nil {
		room.Location = *req.Location
	}
	if req.Latitude != nil {
		room.Latitude = req.Latitude
	}
	if req.Longitude != nil {
		room.Longitude = req.Longitude
	}
	if req.Notes != nil {
		room.Notes = *req.Notes
	}

	if err := h.store.UpdateRoom(room); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update room"})
		return
	}

	cacheRoomMeta(h.cache, h.log, room)

	if h.notifier != nil {
		h.notifier.RoomContextUpdated(room)
	}

	c.JSON(http.StatusOK, roomResponse(room))
}

// CloseRoom deactivates a room and disconnects everyone in it. The
// deactivation commits even when the realtime side cannot be reached.
func (h *RoomHandler) CloseRoom(c *gin.Context) {
	code := roomcode.Normalize(c.Param("code"))

	room, err := h.store.CloseRoom(code, time.Now())
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to close room"})
		return
	}

	invalidateRoomMeta(h.cache, h.log, code)

	if h.notifier != nil {
		h.notifier.RoomClosed(code)
	} else {
		h.log.WithField("room_code", code).Warn("No realtime notifier, live connections not dropped")
	}

	c.JSON(http.StatusOK, roomResponse(room))
}

// GetRoomMessages returns the room timeline in chronological order, with
// limit/before pagination for scrollback.
func (h *RoomHandler) GetRoomMessages(c *gin.Context) {
	code := roomcode.Normalize(c.Param("code"))

	room, err := h.store.GetRoomByCode(code)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get room"})
		return
	}

	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	var before *time.Time
	if b := c.Query("before"); b != "" {
		if t, err := time.Parse(time.RFC3339, b); err == nil {
			before = &t
		}
	}

	messages, err := h.store.ListRoomMessages(room.ID, limit, before)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": lo.Map(messages, func(m models.Message, _ int) dto.MessageResponse {
			return messageResponse(&m)
		}),
		"hasMore": len(messages) == limit,
	})
}

// GetRoomEvents lists the room's crisis events, optionally filtered by
// severity and acknowledgment state for the review dashboards.
func (h *RoomHandler) GetRoomEvents(c *gin.Context) {
	code := roomcode.Normalize(c.Param("code"))

	room, err := h.store.GetRoomByCode(code)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get room"})
		return
	}

	var severity *models.Severity
	if s := c.Query("severity"); s != "" {
		parsed, err := models.ParseSeverity(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid severity"})
			return
		}
		severity = &parsed
	}

	var acked *bool
	if a := c.Query("acked"); a != "" {
		parsed, err := strconv.ParseBool(a)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid acked filter"})
			return
		}
		acked = &parsed
	}

	events, err := h.store.ListRoomEvents(room.ID, severity, acked)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": lo.Map(events, func(e models.CrisisEvent, _ int) dto.EventResponse {
			return eventResponse(&e)
		}),
	})
}

func (h *RoomHandler) freeCode() (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code, err := roomcode.Generate()
		if err != nil {
			return "", err
		}

		_, err = h.store.GetRoomByCode(code)
		if errors.Is(err, database.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", errors.New("no free room code after several attempts")
}

func (h *RoomHandler) cachedMeta(ctx context.Context, code string) *cache.RoomMeta {
	if h.cache == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()

	meta, err := h.cache.Get(ctx, code)
	if err != nil {
		h.log.WithError(err).WithField("room_code", code).Warn("Room cache read failed")
		return nil
	}
	return meta
}

// cacheRoomMeta refreshes the Redis projection after a room mutation.
// Best effort: a cache failure never fails the request.
func cacheRoomMeta(rc cache.RoomCache, log *logrus.Entry, room *models.Room) {
	if rc == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
	defer cancel()

	if err := rc.Set(ctx, cache.MetaFromRoom(room)); err != nil {
		log.WithError(err).WithField("room_code", room.Code).Warn("Could not cache room metadata")
	}
}

// invalidateRoomMeta drops the Redis projection when a room closes. The
// next snapshot read rebuilds it from Postgres. Best effort as well.
func invalidateRoomMeta(rc cache.RoomCache, log *logrus.Entry, code string) {
	if rc == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
	defer cancel()

	if err := rc.Delete(ctx, code); err != nil {
		log.WithError(err).WithField("room_code", code).Warn("Could not invalidate room metadata")
	}
}

func roomResponse(room *models.Room) dto.RoomResponse {
	return dto.RoomResponse{
		ID:            room.ID,
		Code:          room.Code,
		Title:         room.Title,
		IsActive:      room.IsActive,
		CrisisContext: crisisContext(room),
		CreatedAt:     room.CreatedAt,
		UpdatedAt:     room.UpdatedAt,
	}
}

func roomResponseFromMeta(meta *cache.RoomMeta) dto.RoomResponse {
	return dto.RoomResponse{
		ID:       meta.ID,
		Code:     meta.Code,
		Title:    meta.Title,
		IsActive: meta.IsActive,
		CrisisContext: dto.CrisisContext{
			CrisisType: meta.CrisisType,
			IncidentAt: meta.IncidentAt,
			Location:   meta.Location,
			Latitude:   meta.Latitude,
			Longitude:  meta.Longitude,
			Notes:      meta.Notes,
		},
		CreatedAt: meta.CreatedAt,
		UpdatedAt: meta.UpdatedAt,
	}
}

func messageResponse(m *models.Message) dto.MessageResponse {
	return dto.MessageResponse{
		ID:        m.ID,
		Author:    m.AuthorName(),
		Type:      string(m.Type),
		Content:   m.Content,
		Metadata:  m.Metadata,
		CreatedAt: m.CreatedAt,
	}
}

func eventResponse(e *models.CrisisEvent) dto.EventResponse {
	return dto.EventResponse{
		ID:           e.ID,
		Title:        e.Title,
		Description:  e.Description,
		Severity:     string(e.Severity),
		Source:       string(e.Source),
		ScheduledFor: e.ScheduledFor,
		TriggeredAt:  e.TriggeredAt,
		AckAt:        e.AckAt,
		Payload:      e.Payload,
	}
}
