package realtime

import (
	"fmt"
	"time"

	"anoa.com/mentorconnect/internal/entity"
	"github.com/google/uuid"
)

type Kind string

const (
	KindCreated Kind = "created"
	KindUpdated Kind = "updated"
	KindDeleted Kind = "deleted"
)

type Topic string

const (
	TopicRequests      Topic = "requests"
	TopicNotifications Topic = "notifications"
)

// Event is the payload pushed on a user's channels. Exactly one of Request
// or Notification is set, matching Topic.
type Event struct {
	Topic        Topic                     `json:"topic"`
	Kind         Kind                      `json:"kind"`
	UserID       uuid.UUID                 `json:"user_id"`
	Request      *entity.ConnectionRequest `json:"request,omitempty"`
	Notification *entity.Notification      `json:"notification,omitempty"`
	At           time.Time                 `json:"at"`
}

func RequestsChannel(userID uuid.UUID) string {
	return fmt.Sprintf("user_requests:%s", userID.String())
}

func NotificationsChannel(userID uuid.UUID) string {
	return fmt.Sprintf("user_notifications:%s", userID.String())
}
