package dto

import (
	"anoa.com/mentorconnect/internal/entity"
	"github.com/google/uuid"
)

type SendRequestInput struct {
	ToUserID uuid.UUID `json:"to_user_id" binding:"required"`
	ToRole   string    `json:"to_role" binding:"omitempty,oneof=learner mentor recruiter"`
	Message  string    `json:"message" binding:"max=500"`
}

type ButtonTextQuery struct {
	FromRole string `form:"from_role"`
	ToRole   string `form:"to_role"`
}

// Relationship is the record between the caller and another user, seen from
// the caller's side.
type Relationship struct {
	entity.ConnectionRequest
	IsIncoming bool `json:"is_incoming"`
}

// Connection is an accepted request enriched with the other party's profile.
// Counterpart is nil when the profile could not be loaded.
type Connection struct {
	entity.ConnectionRequest
	Counterpart *entity.ProfileSummary `json:"counterpart"`
}
