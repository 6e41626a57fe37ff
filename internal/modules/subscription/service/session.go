package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"anoa.com/mentorconnect/internal/entity"
	"anoa.com/mentorconnect/internal/modules/connection/dto"
	"anoa.com/mentorconnect/internal/realtime"
	"anoa.com/mentorconnect/pkg/apperror"
	"anoa.com/mentorconnect/pkg/logger"
	"anoa.com/mentorconnect/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	viewIncoming      = "incoming_requests"
	viewOutgoing      = "outgoing_requests"
	viewConnections   = "connections"
	viewNotifications = "notifications"
)

// ConnectionSource is the read side of the connection service.
type ConnectionSource interface {
	ListIncoming(ctx context.Context, userID uuid.UUID) ([]entity.ConnectionRequest, error)
	ListOutgoing(ctx context.Context, userID uuid.UUID) ([]entity.ConnectionRequest, error)
	ListConnections(ctx context.Context, userID uuid.UUID) ([]dto.Connection, error)
}

type NotificationSource interface {
	ListRecent(ctx context.Context, userID uuid.UUID, window int) ([]entity.Notification, error)
	ListAllSorted(ctx context.Context, userID uuid.UUID) ([]entity.Notification, error)
}

type FeedSource interface {
	Subscribe(ctx context.Context, userID uuid.UUID) (realtime.Feed, error)
}

// View is one live list. Data is replaced as a whole on every refresh.
type View[T any] struct {
	Data    []T    `json:"data"`
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

type Snapshot struct {
	IncomingRequests View[entity.ConnectionRequest] `json:"incoming_requests"`
	OutgoingRequests View[entity.ConnectionRequest] `json:"outgoing_requests"`
	Connections      View[dto.Connection]           `json:"connections"`
	Notifications    View[entity.Notification]      `json:"notifications"`
	UpdatedAt        time.Time                      `json:"updated_at"`
}

// Session keeps the four live views of one signed-in user in sync with the
// change feed. It never returns query errors to callers; they are recorded
// on the affected view.
type Session struct {
	userID uuid.UUID
	conns  ConnectionSource
	notifs NotificationSource
	feeds  FeedSource
	window int
	now    func() time.Time
	log    *zap.Logger

	// unordered is set once the ordered notification query has been
	// rejected; the session never goes back.
	unordered atomic.Bool

	mu       sync.RWMutex
	snap     Snapshot
	watchers map[int]chan Snapshot
	nextID   int
	closed   bool

	feed      realtime.Feed
	cancel    context.CancelFunc
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

func newSession(userID uuid.UUID, conns ConnectionSource, notifs NotificationSource, feeds FeedSource, window int, log *zap.Logger) *Session {
	s := &Session{
		userID:   userID,
		conns:    conns,
		notifs:   notifs,
		feeds:    feeds,
		window:   window,
		now:      func() time.Time { return time.Now().UTC() },
		log:      logger.OrNop(log).With(zap.String("user_id", userID.String())),
		watchers: make(map[int]chan Snapshot),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	s.snap.IncomingRequests.Loading = true
	s.snap.OutgoingRequests.Loading = true
	s.snap.Connections.Loading = true
	s.snap.Notifications.Loading = true
	return s
}

// Start subscribes to the user's change feed and then loads every view, so
// no change committed after Start returns can be missed.
// The session outlives the caller's request, so cancellation of ctx is
// ignored from here on.
func (s *Session) Start(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	feed, err := s.feeds.Subscribe(ctx, s.userID)
	if err != nil {
		return fmt.Errorf("start live session: %w", err)
	}
	s.feed = feed

	s.refresh(ctx, true, true)

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.run(runCtx)
	return nil
}

func (s *Session) UserID() uuid.UUID { return s.userID }

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Updates delivers the current snapshot followed by every later one until
// ctx is done or the session closes. A slow reader only sees the latest
// snapshot.
func (s *Session) Updates(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch
	}
	id := s.nextID
	s.nextID++
	s.watchers[id] = ch
	ch <- s.snap
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-s.stopped:
			return
		}
		s.mu.Lock()
		if w, ok := s.watchers[id]; ok {
			delete(s.watchers, id)
			close(w)
		}
		s.mu.Unlock()
	}()
	return ch
}

// Close stops the event loop, releases the feed and closes every Updates
// channel. It is safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		if s.feed != nil {
			err = s.feed.Close()
			<-s.done
		}

		s.mu.Lock()
		s.closed = true
		for id, w := range s.watchers {
			delete(s.watchers, id)
			close(w)
		}
		s.mu.Unlock()
		close(s.stopped)
	})
	return err
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	events := s.feed.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Topic {
			case realtime.TopicRequests:
				s.refresh(ctx, true, false)
			case realtime.TopicNotifications:
				s.refresh(ctx, false, true)
			default:
				s.log.Debug("ignoring event", zap.String("topic", string(ev.Topic)))
			}
		}
	}
}

// refresh re-derives the selected views in full and swaps them in together.
func (s *Session) refresh(ctx context.Context, requests, notifications bool) {
	var (
		incoming, outgoing View[entity.ConnectionRequest]
		connections        View[dto.Connection]
		notifs             View[entity.Notification]
	)

	var g errgroup.Group
	if requests {
		g.Go(func() error {
			incoming = derive(s.conns.ListIncoming(ctx, s.userID))
			return nil
		})
		g.Go(func() error {
			outgoing = derive(s.conns.ListOutgoing(ctx, s.userID))
			return nil
		})
		g.Go(func() error {
			connections = derive(s.conns.ListConnections(ctx, s.userID))
			return nil
		})
	}
	if notifications {
		g.Go(func() error {
			notifs = derive(s.loadNotifications(ctx))
			return nil
		})
	}
	_ = g.Wait()

	s.mu.Lock()
	if requests {
		s.snap.IncomingRequests = incoming
		s.snap.OutgoingRequests = outgoing
		s.snap.Connections = connections
		s.observe(viewIncoming, incoming.Error)
		s.observe(viewOutgoing, outgoing.Error)
		s.observe(viewConnections, connections.Error)
	}
	if notifications {
		s.snap.Notifications = notifs
		s.observe(viewNotifications, notifs.Error)
	}
	s.snap.UpdatedAt = s.now()
	snap := s.snap
	if !s.closed {
		for _, w := range s.watchers {
			// keep only the newest snapshot for slow readers
			select {
			case <-w:
			default:
			}
			w <- snap
		}
	}
	s.mu.Unlock()
}

func (s *Session) observe(view, errMsg string) {
	metrics.LiveSnapshots.WithLabelValues(view).Inc()
	if errMsg != "" {
		s.log.Warn("live view refresh failed", zap.String("view", view), zap.String("error", errMsg))
	}
}

func (s *Session) loadNotifications(ctx context.Context) ([]entity.Notification, error) {
	if !s.unordered.Load() {
		list, err := s.notifs.ListRecent(ctx, s.userID, s.window)
		if !errors.Is(err, apperror.ErrIndexUnavailable) {
			return list, err
		}
		if s.unordered.CompareAndSwap(false, true) {
			metrics.NotificationQueryFallbacks.Inc()
			s.log.Warn("ordered notification query unavailable, switching to unordered query", zap.Error(err))
		}
	}
	return s.notifs.ListAllSorted(ctx, s.userID)
}

func derive[T any](data []T, err error) View[T] {
	if err != nil {
		return View[T]{Error: err.Error()}
	}
	if data == nil {
		data = []T{}
	}
	return View[T]{Data: data}
}
