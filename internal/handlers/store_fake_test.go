package handlers

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"simucrise/internal/cache"
	"simucrise/internal/database"
	"simucrise/internal/models"
	ws "simucrise/internal/websocket"
)

// fakeStore is an in-memory Store with the same contract as the Postgres
// adapter, including ErrNotFound on misses and id assignment on create.
type fakeStore struct {
	mu           sync.Mutex
	rooms        map[string]models.Room
	participants map[uuid.UUID]models.Participant
	messages     []models.Message
	events       []models.CrisisEvent

	disconnects int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rooms:        make(map[string]models.Room),
		participants: make(map[uuid.UUID]models.Participant),
	}
}

func (f *fakeStore) CreateRoom(room *models.Room) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if room.ID == uuid.Nil {
		room.ID = uuid.New()
	}
	now := time.Now()
	room.CreatedAt = now
	room.UpdatedAt = now
	f.rooms[room.Code] = *room
	return nil
}

func (f *fakeStore) GetRoomByCode(code string) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	room, ok := f.rooms[code]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &room, nil
}

func (f *fakeStore) ListActiveRooms() ([]models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.Room
	for _, room := range f.rooms {
		if room.IsActive {
			out = append(out, room)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) UpdateRoom(room *models.Room) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.rooms[room.Code]; !ok {
		return database.ErrNotFound
	}
	room.UpdatedAt = time.Now()
	f.rooms[room.Code] = *room
	return nil
}

func (f *fakeStore) CloseRoom(code string, at time.Time) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	room, ok := f.rooms[code]
	if !ok {
		return nil, database.ErrNotFound
	}

	room.IsActive = false
	room.UpdatedAt = at
	f.rooms[code] = room

	for id, p := range f.participants {
		if p.RoomID == room.ID && p.IsConnected {
			p.IsConnected = false
			leftAt := at
			p.LeftAt = &leftAt
			f.participants[id] = p
		}
	}
	return &room, nil
}

func (f *fakeStore) CreateParticipant(p *models.Participant) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	f.participants[p.ID] = *p
	return nil
}

func (f *fakeStore) UpdateParticipant(p *models.Participant) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.participants[p.ID] = *p
	return nil
}

func (f *fakeStore) FindParticipant(roomID uuid.UUID, displayName string) (*models.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, p := range f.participants {
		if p.RoomID == roomID && p.DisplayName == displayName {
			p := p
			return &p, nil
		}
	}
	return nil, database.ErrNotFound
}

func (f *fakeStore) ListRoomParticipants(roomID uuid.UUID) ([]models.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.Participant
	for _, p := range f.participants {
		if p.RoomID == roomID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].DisplayName < out[j].DisplayName
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out, nil
}

func (f *fakeStore) DisconnectParticipant(id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.participants[id]
	if !ok {
		return nil
	}
	p.IsConnected = false
	leftAt := at
	p.LeftAt = &leftAt
	f.participants[id] = p
	f.disconnects++
	return nil
}

func (f *fakeStore) SaveMessage(message *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	f.messages = append(f.messages, *message)
	return nil
}

func (f *fakeStore) ListRoomMessages(roomID uuid.UUID, limit int, before *time.Time) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var all []models.Message
	for _, m := range f.messages {
		if m.RoomID != roomID {
			continue
		}
		if before != nil && !m.CreatedAt.Before(*before) {
			continue
		}
		all = append(all, m)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (f *fakeStore) CreateEventWithMessage(event *models.CrisisEvent, message *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	if message.Metadata == nil {
		message.Metadata = map[string]interface{}{}
	}
	message.Metadata["eventId"] = event.ID.String()

	f.events = append(f.events, *event)
	f.messages = append(f.messages, *message)
	return nil
}

func (f *fakeStore) ListRoomEvents(roomID uuid.UUID, severity *models.Severity, acked *bool) ([]models.CrisisEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.CrisisEvent
	for _, e := range f.events {
		if e.RoomID != roomID {
			continue
		}
		if severity != nil && e.Severity != *severity {
			continue
		}
		if acked != nil && *acked != (e.AckAt != nil) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TriggeredAt.Before(out[j].TriggeredAt) })
	return out, nil
}

func (f *fakeStore) AcknowledgeEvent(eventID uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.events {
		if f.events[i].ID == eventID {
			ackAt := at
			f.events[i].AckAt = &ackAt
		}
	}
	return nil
}

// Test-side accessors.

func (f *fakeStore) roomCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rooms)
}

func (f *fakeStore) roomByCode(t *testing.T, code string) models.Room {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[code]
	require.True(t, ok, "room %s not stored", code)
	return room
}

func (f *fakeStore) participantByName(t *testing.T, roomID uuid.UUID, name string) models.Participant {
	t.Helper()
	p, err := f.FindParticipant(roomID, name)
	require.NoError(t, err)
	return *p
}

func (f *fakeStore) messageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func (f *fakeStore) lastMessage(t *testing.T) models.Message {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.messages)
	return f.messages[len(f.messages)-1]
}

func (f *fakeStore) eventCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func (f *fakeStore) lastEvent(t *testing.T) models.CrisisEvent {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.events)
	return f.events[len(f.events)-1]
}

func (f *fakeStore) eventByID(t *testing.T, id uuid.UUID) models.CrisisEvent {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.ID == id {
			return e
		}
	}
	require.FailNow(t, "event not stored", "id %s", id)
	return models.CrisisEvent{}
}

func (f *fakeStore) disconnectCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnects
}

// fakeNotifier records realtime notifications from the HTTP handlers.
type fakeNotifier struct {
	mu             sync.Mutex
	contextUpdates []string
	closed         []string
}

func (f *fakeNotifier) RoomContextUpdated(room *models.Room) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contextUpdates = append(f.contextUpdates, room.Code)
}

func (f *fakeNotifier) RoomClosed(roomCode string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, roomCode)
}

func (f *fakeNotifier) contextUpdateCodes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.contextUpdates...)
}

func (f *fakeNotifier) closedCodes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.closed...)
}

// fakeCache is an in-memory stand-in for the Redis room cache.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]cache.RoomMeta
	deletes []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]cache.RoomMeta)}
}

func (f *fakeCache) Set(_ context.Context, meta *cache.RoomMeta) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[meta.Code] = *meta
	return nil
}

func (f *fakeCache) Get(_ context.Context, code string) (*cache.RoomMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	meta, ok := f.entries[code]
	if !ok {
		return nil, nil
	}
	return &meta, nil
}

func (f *fakeCache) Delete(_ context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, code)
	f.deletes = append(f.deletes, code)
	return nil
}

func (f *fakeCache) entry(code string) *cache.RoomMeta {
	f.mu.Lock()
	defer f.mu.Unlock()

	meta, ok := f.entries[code]
	if !ok {
		return nil
	}
	return &meta
}

func (f *fakeCache) deletedCodes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deletes...)
}

// Frame helpers.

func envelope(t *testing.T, msgType ws.MessageType, payload interface{}) *ws.Envelope {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return &ws.Envelope{Type: msgType, Payload: data, Timestamp: time.Now()}
}

func drainFrames(t *testing.T, c *ws.Client) []ws.Envelope {
	t.Helper()

	var frames []ws.Envelope
	for {
		select {
		case data := <-c.Send:
			var env ws.Envelope
			require.NoError(t, json.Unmarshal(data, &env))
			frames = append(frames, env)
		default:
			return frames
		}
	}
}

func framesOfType(frames []ws.Envelope, msgType ws.MessageType) []ws.Envelope {
	var out []ws.Envelope
	for _, f := range frames {
		if f.Type == msgType {
			out = append(out, f)
		}
	}
	return out
}
