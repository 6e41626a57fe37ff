package dto

import (
	"anoa.com/mentorconnect/internal/entity"
	commonDto "anoa.com/mentorconnect/pkg/dto"
	"github.com/google/uuid"
)

const DefaultPageSize = 20

type ListNotificationsQuery struct {
	commonDto.PaginationQuery
}

// Normalize fills defaults and returns the row offset.
func (q *ListNotificationsQuery) Normalize() int {
	return q.PaginationQuery.Normalize(DefaultPageSize)
}

type RespondRequestInput struct {
	RequestID uuid.UUID `json:"request_id" binding:"required"`
}

type NotificationListResponse struct {
	Data        []entity.Notification    `json:"data"`
	UnreadCount int64                    `json:"unread_count"`
	Meta        commonDto.PaginationMeta `json:"meta"`
}
