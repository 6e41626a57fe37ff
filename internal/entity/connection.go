package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusAccepted RequestStatus = "accepted"
	StatusRejected RequestStatus = "rejected"
)

func (s RequestStatus) IsTerminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

// ConnectionRequest is a directed request between two users. PairKey is the
// same for both directions, and its unique index keeps at most one record per pair.
type ConnectionRequest struct {
	ID                uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	PairKey           string        `gorm:"size:80;uniqueIndex:idx_connection_requests_pair;not null" json:"-"`
	FromID            uuid.UUID     `gorm:"type:uuid;not null;index:idx_connection_requests_from_status,priority:1" json:"from_id"`
	ToID              uuid.UUID     `gorm:"type:uuid;not null;index:idx_connection_requests_to_status,priority:1" json:"to_id"`
	FromRole          string        `gorm:"size:20" json:"from_role"`
	ToRole            string        `gorm:"size:20" json:"to_role"`
	Status            RequestStatus `gorm:"size:20;not null;index:idx_connection_requests_from_status,priority:2;index:idx_connection_requests_to_status,priority:2" json:"status"`
	Message           string        `gorm:"type:text" json:"message,omitempty"`
	Timestamp         time.Time     `gorm:"column:sent_at;not null" json:"timestamp"`
	ResponseTimestamp *time.Time    `gorm:"column:responded_at" json:"response_timestamp,omitempty"`
}

func (ConnectionRequest) TableName() string {
	return "connection_requests"
}

func (r *ConnectionRequest) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID, err = uuid.NewV7()
	}
	if r.PairKey == "" {
		r.PairKey = PairKey(r.FromID, r.ToID)
	}
	return
}

// PairKey is min(a,b) + "_" + max(a,b) over the string forms of the ids.
func PairKey(a, b uuid.UUID) string {
	as, bs := a.String(), b.String()
	if as > bs {
		as, bs = bs, as
	}
	return as + "_" + bs
}

// Counterpart returns the participant that is not userID.
func (r *ConnectionRequest) Counterpart(userID uuid.UUID) uuid.UUID {
	if r.FromID == userID {
		return r.ToID
	}
	return r.FromID
}

func (r *ConnectionRequest) Involves(userID uuid.UUID) bool {
	return r.FromID == userID || r.ToID == userID
}
