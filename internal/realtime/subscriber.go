package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"anoa.com/mentorconnect/pkg/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Feed delivers a single user's events until Close is called.
type Feed interface {
	Events() <-chan Event
	Close() error
}

type Subscriber struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewSubscriber(rdb *redis.Client, log *zap.Logger) *Subscriber {
	return &Subscriber{rdb: rdb, log: logger.OrNop(log)}
}

// Subscribe listens on both of the user's channels. The subscription is
// confirmed before returning so no event published afterwards is missed.
// Without redis the feed is silent.
func (s *Subscriber) Subscribe(ctx context.Context, userID uuid.UUID) (Feed, error) {
	if s == nil || s.rdb == nil {
		return newSilentFeed(), nil
	}

	pubsub := s.rdb.Subscribe(ctx, RequestsChannel(userID), NotificationsChannel(userID))
	// Wait for confirmation that subscription is created
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to user channels: %w", err)
	}

	f := &redisFeed{
		pubsub: pubsub,
		events: make(chan Event, 16),
		done:   make(chan struct{}),
		log:    s.log.With(zap.String("user_id", userID.String())),
	}
	go f.run()
	return f, nil
}

type redisFeed struct {
	pubsub *redis.PubSub
	events chan Event
	done   chan struct{}
	once   sync.Once
	log    *zap.Logger
}

func (f *redisFeed) Events() <-chan Event { return f.events }

func (f *redisFeed) run() {
	defer close(f.events)
	ch := f.pubsub.Channel()
	for {
		select {
		case <-f.done:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				f.log.Warn("dropping malformed event", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			select {
			case f.events <- ev:
			case <-f.done:
				return
			}
		}
	}
}

func (f *redisFeed) Close() error {
	var err error
	f.once.Do(func() {
		close(f.done)
		err = f.pubsub.Close()
	})
	return err
}

type silentFeed struct {
	events chan Event
	once   sync.Once
}

func newSilentFeed() *silentFeed {
	return &silentFeed{events: make(chan Event)}
}

func (f *silentFeed) Events() <-chan Event { return f.events }

func (f *silentFeed) Close() error {
	f.once.Do(func() { close(f.events) })
	return nil
}
