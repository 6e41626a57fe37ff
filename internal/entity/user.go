package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleLearner   = "learner"
	RoleMentor    = "mentor"
	RoleRecruiter = "recruiter"
)

// NormalizeRole folds case and surrounding space so role comparisons agree
// across the button label and notification text.
func NormalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

// User is owned by the identity provider; this service only reads it.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username  string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Role      string    `gorm:"size:20;not null" json:"role"`
	AvatarURL *string   `gorm:"type:text" json:"avatar_url,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	Profile   *Profile  `gorm:"constraint:OnDelete:CASCADE" json:"profile,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID, err = uuid.NewV7()
	}
	return
}

type Profile struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	FullName  string    `gorm:"size:100;not null" json:"full_name"`
	Headline  *string   `gorm:"size:200" json:"headline,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// ProfileSummary is the display snapshot attached to notifications and
// connection views.
type ProfileSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Role  string    `json:"role"`
	Image *string   `json:"image,omitempty"`
}

// Summary prefers the profile's full name and falls back to the username.
func (u *User) Summary() ProfileSummary {
	name := u.Username
	if u.Profile != nil && u.Profile.FullName != "" {
		name = u.Profile.FullName
	}
	return ProfileSummary{
		ID:    u.ID,
		Name:  name,
		Role:  u.Role,
		Image: u.AvatarURL,
	}
}
