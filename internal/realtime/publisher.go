package realtime

import (
	"context"
	"encoding/json"
	"time"

	"anoa.com/mentorconnect/internal/entity"
	"anoa.com/mentorconnect/pkg/logger"
	"anoa.com/mentorconnect/pkg/metrics"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Publisher pushes change events to redis. Publishing is best effort: the
// database is the source of truth and failures are only logged.
type Publisher struct {
	rdb *redis.Client
	log *zap.Logger
	now func() time.Time
}

func NewPublisher(rdb *redis.Client, log *zap.Logger) *Publisher {
	return &Publisher{
		rdb: rdb,
		log: logger.OrNop(log).With(zap.String("component", "realtime_publisher")),
		now: time.Now,
	}
}

// PublishRequest notifies both participants of a request change.
func (p *Publisher) PublishRequest(ctx context.Context, kind Kind, req *entity.ConnectionRequest) {
	if p == nil || p.rdb == nil || req == nil {
		return
	}
	for _, userID := range []uuid.UUID{req.FromID, req.ToID} {
		p.publish(ctx, RequestsChannel(userID), Event{
			Topic:   TopicRequests,
			Kind:    kind,
			UserID:  userID,
			Request: req,
			At:      p.now().UTC(),
		})
	}
}

func (p *Publisher) PublishNotification(ctx context.Context, kind Kind, n *entity.Notification) {
	if p == nil || p.rdb == nil || n == nil {
		return
	}
	p.publish(ctx, NotificationsChannel(n.UserID), Event{
		Topic:        TopicNotifications,
		Kind:         kind,
		UserID:       n.UserID,
		Notification: n,
		At:           p.now().UTC(),
	})
}

// PublishNotificationsChanged is used for bulk updates that do not carry a
// single record, such as mark-all-read.
func (p *Publisher) PublishNotificationsChanged(ctx context.Context, userID uuid.UUID) {
	if p == nil || p.rdb == nil {
		return
	}
	p.publish(ctx, NotificationsChannel(userID), Event{
		Topic:  TopicNotifications,
		Kind:   KindUpdated,
		UserID: userID,
		At:     p.now().UTC(),
	})
}

func (p *Publisher) publish(ctx context.Context, channel string, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		p.log.Error("failed to encode event", zap.String("channel", channel), zap.Error(err))
		return
	}
	if err := p.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		metrics.PublishFailures.WithLabelValues(string(ev.Topic)).Inc()
		p.log.Warn("failed to publish event",
			zap.String("channel", channel),
			zap.String("kind", string(ev.Kind)),
			zap.Error(err),
		)
	}
}
