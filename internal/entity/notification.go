package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	NotificationTypeConnection         = "connection"
	NotificationTypeConnectionAccepted = "connection_accepted"
	NotificationTypeProject            = "project"
	NotificationTypeVerification       = "verification"
)

// Notification text and actor fields are frozen at creation time.
type Notification struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID  `gorm:"type:uuid;not null;index:idx_notifications_user_created,priority:1" json:"user_id"`
	ActorID       *uuid.UUID `gorm:"type:uuid" json:"actor_id,omitempty"`
	ActorName     string     `gorm:"size:100" json:"actor_name,omitempty"`
	ActorImageURL *string    `gorm:"type:text" json:"actor_image_url,omitempty"`
	Type          string     `gorm:"size:50;not null" json:"type"`
	Title         string     `gorm:"size:200;not null" json:"title"`
	Description   string     `gorm:"type:text" json:"description"`
	IsRead        bool       `gorm:"not null;index" json:"is_read"`
	CreatedAt     time.Time  `gorm:"not null;index:idx_notifications_user_created,priority:2" json:"created_at"`
	ReadAt        *time.Time `json:"read_at,omitempty"`

	RequestID *uuid.UUID `gorm:"type:uuid;index" json:"request_id,omitempty"`
	ProjectID *uuid.UUID `gorm:"type:uuid" json:"project_id,omitempty"`
	MemberID  *uuid.UUID `gorm:"type:uuid" json:"member_id,omitempty"`
}

func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID, err = uuid.NewV7()
	}
	return
}
