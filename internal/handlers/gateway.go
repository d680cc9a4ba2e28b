package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"simucrise/internal/cache"
	"simucrise/internal/database"
	"simucrise/internal/handlers/dto"
	"simucrise/internal/models"
	"simucrise/internal/roomcode"
	"simucrise/internal/scheduler"
	ws "simucrise/internal/websocket"
)

const cacheTimeout = 2 * time.Second

// Gateway routes realtime commands between connections, persistence, the
// hub and the scheduler. One instance per process; every per-room side
// effect (scheduler start/stop, broadcast) goes through it.
type Gateway struct {
	store     Store
	hub       *ws.Hub
	scheduler *scheduler.Scheduler
	cache     cache.RoomCache

	validate *validator.Validate
	log      *logrus.Entry
}

func NewGateway(store Store, hub *ws.Hub, sched *scheduler.Scheduler, roomCache cache.RoomCache) *Gateway {
	return &Gateway{
		store:     store,
		hub:       hub,
		scheduler: sched,
		cache:     roomCache,
		validate:  validator.New(),
		log:       logrus.WithField("component", "gateway"),
	}
}

// HandleMessage dispatches one inbound frame for one connection. Expected
// failures (not found, unauthorized, validation) are answered on the
// originating connection and do not propagate; a returned error means an
// internal failure.
func (g *Gateway) HandleMessage(client *ws.Client, env *ws.Envelope) error {
	switch env.Type {
	case ws.TypeRoomJoin:
		return g.handleJoin(client, env)

	case ws.TypeRoomLeave:
		return g.handleLeave(client)

	case ws.TypeChatMessage:
		return g.handleChat(client, env)

	case ws.TypeEventCreate:
		return g.handleEventCreate(client, env)

	case ws.TypeEventAck:
		return g.handleEventAck(client, env)

	default:
		g.log.WithFields(logrus.Fields{
			"connection_id": client.ID,
			"type":          env.Type,
		}).Debug("Unknown message type")
		return nil
	}
}

// HandleDisconnect runs the same cleanup as an explicit leave. Safe to
// call for connections that never joined or already left.
func (g *Gateway) HandleDisconnect(client *ws.Client) {
	g.detach(client)
}

func (g *Gateway) handleJoin(client *ws.Client, env *ws.Envelope) error {
	if client.State() != ws.StateUnjoined {
		g.sendError(client, "Vous avez déjà rejoint une salle", "")
		return nil
	}

	var payload dto.JoinPayload
	if !g.bindPayload(client, env, &payload) {
		return nil
	}

	code := roomcode.Normalize(payload.RoomCode)
	if err := roomcode.Validate(code); err != nil {
		g.sendError(client, "Code de salle invalide", "roomCode")
		return nil
	}

	displayName := strings.TrimSpace(payload.DisplayName)
	if displayName == "" {
		g.sendError(client, "Le nom affiché est obligatoire", "displayName")
		return nil
	}

	room, err := g.store.GetRoomByCode(code)
	switch {
	case errors.Is(err, database.ErrNotFound):
		// Only a formateur opens a room; participants need an existing one.
		if !payload.IsAdmin {
			g.sendError(client, "Salle introuvable", "roomCode")
			return nil
		}
		room = &models.Room{Code: code, IsActive: true}
		if err := g.store.CreateRoom(room); err != nil {
			return fmt.Errorf("create room %s: %w", code, err)
		}
		cacheRoomMeta(g.cache, g.log, room)

	case err != nil:
		return fmt.Errorf("find room %s: %w", code, err)

	case !room.IsActive:
		// A closed room behaves like a missing one for participants; a
		// formateur joining it starts a fresh session under the same code.
		if !payload.IsAdmin {
			g.sendError(client, "Salle introuvable", "roomCode")
			return nil
		}
		room.IsActive = true
		if err := g.store.UpdateRoom(room); err != nil {
			return fmt.Errorf("reactivate room %s: %w", code, err)
		}
		cacheRoomMeta(g.cache, g.log, room)
	}

	participant, err := g.store.FindParticipant(room.ID, displayName)
	switch {
	case errors.Is(err, database.ErrNotFound):
		participant = &models.Participant{
			RoomID:      room.ID,
			DisplayName: displayName,
			Role:        models.RoleForAdmin(payload.IsAdmin),
			IsConnected: true,
			JoinedAt:    time.Now(),
		}
		if err := g.store.CreateParticipant(participant); err != nil {
			return fmt.Errorf("create participant %q: %w", displayName, err)
		}

	case err != nil:
		return fmt.Errorf("find participant %q: %w", displayName, err)

	default:
		participant.IsConnected = true
		participant.LeftAt = nil
		if payload.IsAdmin {
			// Escalate only. A formateur rejoining through a participant
			// link keeps the stored role.
			participant.Role = models.RoleFormateur
		}
		if err := g.store.UpdateParticipant(participant); err != nil {
			return fmt.Errorf("update participant %q: %w", displayName, err)
		}
	}

	// Connection privilege follows the stored role, not the join flag, so
	// an escalated formateur keeps admin commands on any later connection.
	isAdmin := participant.Role.IsAdmin()

	client.SetJoined(room.Code, room.ID, participant.ID, displayName, isAdmin)
	g.hub.AddToRoom(room.Code, client)

	if isAdmin {
		g.scheduler.Start(room.Code)
	}

	g.broadcastParticipants(room.Code, room.ID)
	g.announce(room.Code, fmt.Sprintf("%s a rejoint la salle", displayName))

	g.log.WithFields(logrus.Fields{
		"connection_id": client.ID,
		"room_code":     room.Code,
		"display_name":  displayName,
		"role":          participant.Role,
	}).Info("Participant joined room")

	return nil
}

func (g *Gateway) handleLeave(client *ws.Client) error {
	// The connection already knows its room; the payload adds nothing.
	g.detach(client)
	return nil
}

// detach is the single cleanup path for explicit leaves, socket drops and
// anything in between.
func (g *Gateway) detach(client *ws.Client) {
	if client.State() != ws.StateJoined {
		return
	}

	roomCode := client.RoomCode()
	roomID := client.RoomID()
	participantID := client.ParticipantID()
	displayName := client.DisplayName()
	client.SetLeft()

	empty := g.hub.RemoveFromRoom(roomCode, client)

	if err := g.store.DisconnectParticipant(participantID, time.Now()); err != nil {
		g.log.WithError(err).WithFields(logrus.Fields{
			"room_code":    roomCode,
			"display_name": displayName,
		}).Error("Could not mark participant disconnected")
	}

	if empty {
		g.scheduler.Stop(roomCode)
	} else {
		g.broadcastParticipants(roomCode, roomID)
		g.announce(roomCode, fmt.Sprintf("%s a quitté la salle", displayName))
	}

	g.log.WithFields(logrus.Fields{
		"connection_id": client.ID,
		"room_code":     roomCode,
		"display_name":  displayName,
	}).Info("Participant left room")
}

func (g *Gateway) handleChat(client *ws.Client, env *ws.Envelope) error {
	if client.State() != ws.StateJoined {
		g.sendError(client, "Vous devez d'abord rejoindre une salle", "")
		return nil
	}

	var payload dto.ChatPayload
	if !g.bindPayload(client, env, &payload) {
		return nil
	}

	// Blank chat is a no-op, not an error.
	content := strings.TrimSpace(payload.Content)
	if content == "" {
		return nil
	}

	message := &models.Message{
		RoomID:    client.RoomID(),
		Author:    lo.ToPtr(client.DisplayName()),
		Type:      models.MessageChat,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := g.store.SaveMessage(message); err != nil {
		return fmt.Errorf("save chat message: %w", err)
	}

	g.broadcast(client.RoomCode(), ws.TypeChatMessage, dto.ChatMessagePayload{
		ID:        message.ID,
		Author:    message.AuthorName(),
		Content:   message.Content,
		CreatedAt: message.CreatedAt,
	})

	return nil
}

func (g *Gateway) handleEventCreate(client *ws.Client, env *ws.Envelope) error {
	if client.State() != ws.StateJoined {
		g.sendError(client, "Vous devez d'abord rejoindre une salle", "")
		return nil
	}
	if !client.IsAdmin() {
		g.sendError(client, "Seul le formateur peut déclencher un événement", "")
		return nil
	}

	var payload dto.EventCreatePayload
	if !g.bindPayload(client, env, &payload) {
		return nil
	}

	severity, err := models.ParseSeverity(payload.Severity)
	if err != nil {
		g.sendError(client, "Sévérité invalide", "severity")
		return nil
	}

	event := &models.CrisisEvent{
		RoomID:      client.RoomID(),
		Title:       strings.TrimSpace(payload.Title),
		Description: strings.TrimSpace(payload.Description),
		Severity:    severity,
		Source:      models.SourceManual,
		TriggeredAt: time.Now(),
	}

	return g.persistAndBroadcastEvent(client.RoomCode(), event)
}

func (g *Gateway) handleEventAck(client *ws.Client, env *ws.Envelope) error {
	if client.State() != ws.StateJoined {
		g.sendError(client, "Vous devez d'abord rejoindre une salle", "")
		return nil
	}

	var payload dto.EventAckPayload
	if !g.bindPayload(client, env, &payload) {
		return nil
	}

	// Re-acking overwrites the timestamp; not an error. The ack is not
	// broadcast to the room, it only lands in the stored timeline.
	if err := g.store.AcknowledgeEvent(payload.EventID, time.Now()); err != nil {
		return fmt.Errorf("acknowledge event %s: %w", payload.EventID, err)
	}

	return nil
}

// HandleScheduledEvent consumes one scheduler emission. Scheduled events
// are best-effort ambiance: if the room vanished or was closed since
// emission, the event is dropped without retry.
func (g *Gateway) HandleScheduledEvent(ev scheduler.Event) {
	room, err := g.store.GetRoomByCode(ev.RoomCode)
	if errors.Is(err, database.ErrNotFound) {
		g.log.WithField("room_code", ev.RoomCode).Debug("Dropping scheduled event for unknown room")
		return
	}
	if err != nil {
		g.log.WithError(err).WithField("room_code", ev.RoomCode).Error("Could not resolve room for scheduled event")
		return
	}
	if !room.IsActive {
		g.log.WithField("room_code", ev.RoomCode).Debug("Dropping scheduled event for closed room")
		return
	}

	event := &models.CrisisEvent{
		RoomID:      room.ID,
		Title:       ev.Title,
		Description: ev.Description,
		Severity:    ev.Severity,
		Source:      models.SourceScheduler,
		TriggeredAt: ev.EmittedAt,
		Payload:     datatypes.JSONMap{"category": ev.Category},
	}

	if err := g.persistAndBroadcastEvent(ev.RoomCode, event); err != nil {
		g.log.WithError(err).WithField("room_code", ev.RoomCode).Error("Could not persist scheduled event")
	}
}

// RoomContextUpdated pushes edited room metadata to every connection of
// the room.
func (g *Gateway) RoomContextUpdated(room *models.Room) {
	g.broadcast(room.Code, ws.TypeRoomContextUpdate, dto.RoomContextPayload{
		Code:          room.Code,
		Title:         room.Title,
		CrisisContext: crisisContext(room),
	})
}

// RoomClosed runs the realtime half of a room closure: the scheduler is
// stopped for good, the room is told, then every connection is dropped.
func (g *Gateway) RoomClosed(roomCode string) {
	g.scheduler.Stop(roomCode)
	g.announce(roomCode, "La salle a été fermée par le formateur")
	g.hub.DisconnectRoom(roomCode)

	g.log.WithField("room_code", roomCode).Info("Room closed")
}

func (g *Gateway) persistAndBroadcastEvent(roomCode string, event *models.CrisisEvent) error {
	content := event.Title
	if event.Description != "" {
		content = fmt.Sprintf("%s : %s", event.Title, event.Description)
	}

	message := &models.Message{
		RoomID:  event.RoomID,
		Type:    models.MessageEvent,
		Content: content,
		Metadata: datatypes.JSONMap{
			"severity": string(event.Severity),
			"source":   string(event.Source),
		},
		CreatedAt: event.TriggeredAt,
	}

	if err := g.store.CreateEventWithMessage(event, message); err != nil {
		return fmt.Errorf("persist crisis event: %w", err)
	}

	g.broadcast(roomCode, ws.TypeEventCreated, dto.EventCreatedPayload{
		ID:          event.ID,
		Title:       event.Title,
		Description: event.Description,
		Severity:    string(event.Severity),
		Source:      string(event.Source),
		TriggeredAt: event.TriggeredAt,
	})
	g.announce(roomCode, fmt.Sprintf("Nouvel événement : %s", event.Title))

	g.log.WithFields(logrus.Fields{
		"room_code": roomCode,
		"severity":  event.Severity,
		"source":    event.Source,
	}).Info("Crisis event injected")

	return nil
}

func (g *Gateway) broadcastParticipants(roomCode string, roomID uuid.UUID) {
	participants, err := g.store.ListRoomParticipants(roomID)
	if err != nil {
		g.log.WithError(err).WithField("room_code", roomCode).Error("Could not load participants for broadcast")
		return
	}

	g.broadcast(roomCode, ws.TypeParticipantUpdate, dto.ParticipantListPayload{
		Participants: lo.Map(participants, func(p models.Participant, _ int) dto.ParticipantInfo {
			return participantInfo(p)
		}),
	})
}

func (g *Gateway) broadcast(roomCode string, msgType ws.MessageType, payload interface{}) {
	frame, err := ws.NewEnvelope(msgType, payload)
	if err != nil {
		g.log.WithError(err).WithField("type", msgType).Error("Could not encode frame")
		return
	}
	g.hub.SendToRoom(roomCode, frame)
}

func (g *Gateway) announce(roomCode, message string) {
	g.broadcast(roomCode, ws.TypeAnnouncement, dto.AnnouncementPayload{Message: message})
}

// sendError delivers an expected failure to the originating connection
// only. Queue overflow here just means the client is about to be dropped.
func (g *Gateway) sendError(client *ws.Client, message, field string) {
	err := client.SendMessage(ws.TypeError, dto.ErrorPayload{Message: message, Field: field})
	if err != nil {
		g.log.WithError(err).WithField("connection_id", client.ID).Debug("Could not deliver error frame")
	}
}

// bindPayload decodes and validates an inbound payload, answering the
// client on failure. Returns false when the command must not proceed.
func (g *Gateway) bindPayload(client *ws.Client, env *ws.Envelope, out interface{}) bool {
	if len(env.Payload) == 0 {
		g.sendError(client, "Format de message invalide", "")
		return false
	}
	if err := json.Unmarshal(env.Payload, out); err != nil {
		g.sendError(client, "Format de message invalide", "")
		return false
	}
	if err := g.validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			g.sendError(client, "Champ invalide", verrs[0].Field())
			return false
		}
		g.sendError(client, "Données invalides", "")
		return false
	}
	return true
}

func participantInfo(p models.Participant) dto.ParticipantInfo {
	return dto.ParticipantInfo{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		Role:        string(p.Role),
		IsAdmin:     p.Role.IsAdmin(),
		IsConnected: p.IsConnected,
		JoinedAt:    p.JoinedAt,
		LeftAt:      p.LeftAt,
	}
}

func crisisContext(room *models.Room) dto.CrisisContext {
	return dto.CrisisContext{
		CrisisType: room.CrisisType,
		IncidentAt: room.IncidentAt,
		Location:   room.Location,
		Latitude:   room.Latitude,
		Longitude:  room.Longitude,
		Notes:      room.Notes,
	}
}
