// Package scheduler drives the automatic injection of crisis events.
// Each room with a formateur present gets an independent timer chain that
// fires on a randomized cadence; the scheduler only emits event
// descriptions, it never persists or broadcasts anything itself.
package scheduler

import (
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"simucrise/internal/models"
)

// Event is one synthetic incident description, handed to subscribers as
// emitted. Events are best-effort: nothing is replayed after a crash.
type Event struct {
	RoomCode    string
	Title       string
	Description string
	Severity    models.Severity
	Category    string
	EmittedAt   time.Time
}

// Handler consumes emitted events. Fan-out is synchronous and in emission
// order; the realtime gateway is the single consumer in practice.
type Handler func(Event)

// Scheduler keys one pending timer per room code. All state is process
// local; a multi-instance deployment would need to move it to a shared
// coordination layer.
type Scheduler struct {
	mu       sync.Mutex
	timers   map[string]pendingTick
	gen      uint64
	handlers []Handler

	minDelay time.Duration
	maxDelay time.Duration

	log *logrus.Entry
}

// pendingTick is one armed timer plus the generation that armed it. A
// tick goroutine already launched by its timer can lose the lock race
// against Stop; comparing generations lets it detect that its chain was
// stopped, even when a later Start has re-armed the same room.
type pendingTick struct {
	timer *time.Timer
	gen   uint64
}

// New creates a scheduler emitting with a uniformly random delay drawn
// from [minDelay, maxDelay] between events of one room.
func New(minDelay, maxDelay time.Duration) *Scheduler {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Scheduler{
		timers:   make(map[string]pendingTick),
		minDelay: minDelay,
		maxDelay: maxDelay,
		log:      logrus.WithField("component", "scheduler"),
	}
}

// Subscribe registers a handler for every future emission. Handlers run
// synchronously on the timer goroutine, so they must not block for long.
func (s *Scheduler) Subscribe(fn Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, fn)
}

// Start begins the timer chain for a room. Calling it for a room that is
// already ticking is a no-op.
func (s *Scheduler) Start(roomCode string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.timers[roomCode]; ok {
		return
	}

	s.scheduleLocked(roomCode)
	s.log.WithField("room_code", roomCode).Info("Scheduler started for room")
}

// Stop cancels the pending timer for a room. Stopping a room with no
// timer is a no-op.
func (s *Scheduler) Stop(roomCode string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.timers[roomCode]; ok {
		p.timer.Stop()
		delete(s.timers, roomCode)
		s.log.WithField("room_code", roomCode).Info("Scheduler stopped for room")
	}
}

// StopAll cancels every pending timer. Used at process shutdown.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for code, p := range s.timers {
		p.timer.Stop()
		delete(s.timers, code)
	}
}

// Running reports whether a room currently has a pending timer.
func (s *Scheduler) Running(roomCode string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[roomCode]
	return ok
}

// scheduleLocked arms the next tick for a room under a fresh
// generation. Caller holds s.mu.
func (s *Scheduler) scheduleLocked(roomCode string) {
	s.gen++
	gen := s.gen
	delay := s.randomDelay()
	s.timers[roomCode] = pendingTick{
		gen: gen,
		timer: time.AfterFunc(delay, func() {
			s.tick(roomCode, gen)
		}),
	}
	s.log.WithFields(logrus.Fields{
		"room_code": roomCode,
		"delay":     delay,
	}).Debug("Next crisis event scheduled")
}

// tick fires once, reschedules, then fans the event out. A Stop racing
// the timer wins: a tick whose generation no longer matches the stored
// entry belongs to a stopped chain and must die, even if the room has
// since been re-armed by a fresh Start.
func (s *Scheduler) tick(roomCode string, gen uint64) {
	s.mu.Lock()
	if p, ok := s.timers[roomCode]; !ok || p.gen != gen {
		s.mu.Unlock()
		return
	}

	event := randomEvent(roomCode)
	s.scheduleLocked(roomCode)
	handlers := s.handlers
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"room_code": roomCode,
		"severity":  event.Severity,
		"title":     event.Title,
	}).Debug("Crisis event emitted")

	for _, fn := range handlers {
		fn(event)
	}
}

func (s *Scheduler) randomDelay() time.Duration {
	span := int64(s.maxDelay - s.minDelay)
	if span <= 0 {
		return s.minDelay
	}
	return s.minDelay + time.Duration(rand.Int63n(span+1))
}

// randomEvent draws an incident from the template pool. The severity pool
// deliberately excludes CRITICAL, which stays a manual-only tier.
func randomEvent(roomCode string) Event {
	tpl := templates[rand.Intn(len(templates))]
	pool := models.AutoSeverities()

	return Event{
		RoomCode:    roomCode,
		Title:       tpl.title,
		Description: tpl.description,
		Severity:    pool[rand.Intn(len(pool))],
		Category:    tpl.category,
		EmittedAt:   time.Now(),
	}
}
