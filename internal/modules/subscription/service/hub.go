package service

import (
	"context"
	"sync"

	"anoa.com/mentorconnect/pkg/logger"
	"anoa.com/mentorconnect/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultWindow = 50

type HubOptions struct {
	// Window caps the ordered notifications view.
	Window int
}

type entry struct {
	session *Session
	refs    int
	ready   chan struct{}
	err     error
}

// Hub shares one Session per user between all of that user's clients. The
// session starts with the first Acquire and stops with the last Release.
type Hub struct {
	conns  ConnectionSource
	notifs NotificationSource
	feeds  FeedSource
	window int
	log    *zap.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*entry
}

func NewHub(conns ConnectionSource, notifs NotificationSource, feeds FeedSource, log *zap.Logger, opts HubOptions) *Hub {
	window := opts.Window
	if window <= 0 {
		window = DefaultWindow
	}
	return &Hub{
		conns:    conns,
		notifs:   notifs,
		feeds:    feeds,
		window:   window,
		log:      logger.OrNop(log).With(zap.String("module", "subscription")),
		sessions: make(map[uuid.UUID]*entry),
	}
}

// Acquire returns the user's running session, starting it if needed. Every
// successful Acquire must be paired with a Release.
func (h *Hub) Acquire(ctx context.Context, userID uuid.UUID) (*Session, error) {
	h.mu.Lock()
	if e, ok := h.sessions[userID]; ok {
		e.refs++
		h.mu.Unlock()

		<-e.ready
		if e.err != nil {
			h.Release(userID)
			return nil, e.err
		}
		return e.session, nil
	}

	e := &entry{refs: 1, ready: make(chan struct{})}
	h.sessions[userID] = e
	h.mu.Unlock()

	s := newSession(userID, h.conns, h.notifs, h.feeds, h.window, h.log)
	e.err = s.Start(ctx)
	if e.err == nil {
		e.session = s
		metrics.LiveSessions.Inc()
		h.log.Info("live session started", zap.String("user_id", userID.String()))
	}
	close(e.ready)

	if e.err != nil {
		h.Release(userID)
		return nil, e.err
	}
	return s, nil
}

func (h *Hub) Release(userID uuid.UUID) {
	h.mu.Lock()
	e, ok := h.sessions[userID]
	if !ok {
		h.mu.Unlock()
		return
	}
	e.refs--
	if e.refs > 0 {
		h.mu.Unlock()
		return
	}
	delete(h.sessions, userID)
	h.mu.Unlock()

	h.stop(userID, e)
}

// Active reports the number of running sessions.
func (h *Hub) Active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Shutdown closes every session regardless of outstanding references.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	entries := h.sessions
	h.sessions = make(map[uuid.UUID]*entry)
	h.mu.Unlock()

	for userID, e := range entries {
		<-e.ready
		h.stop(userID, e)
	}
}

func (h *Hub) stop(userID uuid.UUID, e *entry) {
	if e.session == nil {
		return
	}
	if err := e.session.Close(); err != nil {
		h.log.Warn("failed to close live session", zap.String("user_id", userID.String()), zap.Error(err))
	}
	metrics.LiveSessions.Dec()
	h.log.Info("live session stopped", zap.String("user_id", userID.String()))
}
