package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"anoa.com/mentorconnect/internal/entity"
	"anoa.com/mentorconnect/pkg/apperror"
	"anoa.com/mentorconnect/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	Create(ctx context.Context, notification *entity.Notification) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Notification, error)
	GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Notification, error)
	ListRecent(ctx context.Context, userID uuid.UUID, window int) ([]entity.Notification, error)
	ListAll(ctx context.Context, userID uuid.UUID) ([]entity.Notification, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID, at time.Time) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
	Prune(ctx context.Context, readBefore, createdBefore time.Time) (int64, error)
}

type notificationRepository struct {
	db             *gorm.DB
	tx             *database.Transactor
	orderedTimeout time.Duration
}

// NewNotificationRepository builds the repository. orderedTimeout bounds the
// ordered recent-notifications query on postgres; 0 leaves it unbounded.
func NewNotificationRepository(db *gorm.DB, orderedTimeout time.Duration) NotificationRepository {
	return &notificationRepository{
		db:             db,
		tx:             database.NewTransactor(db),
		orderedTimeout: orderedTimeout,
	}
}

func (r *notificationRepository) Create(ctx context.Context, notification *entity.Notification) error {
	return database.Conn(ctx, r.db).Create(notification).Error
}

func (r *notificationRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Notification, error) {
	var n entity.Notification
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotificationNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Notification, error) {
	var notifications []entity.Notification
	err := database.Conn(ctx, r.db).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Order("id desc").
		Limit(limit).
		Offset(offset).
		Find(&notifications).Error
	return notifications, err
}

// ListRecent is the ordered, windowed query behind the live notifications
// view. When the store cancels it (statement timeout, typically a missing
// user_id/created_at index on a large table) it fails with
// apperror.ErrIndexUnavailable so callers can degrade to ListAll.
func (r *notificationRepository) ListRecent(ctx context.Context, userID uuid.UUID, window int) ([]entity.Notification, error) {
	var notifications []entity.Notification
	err := r.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		conn := database.Conn(ctx, r.db)
		if r.orderedTimeout > 0 && conn.Dialector.Name() == "postgres" {
			stmt := fmt.Sprintf("SET LOCAL statement_timeout = %d", r.orderedTimeout.Milliseconds())
			if err := conn.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return conn.
			Where("user_id = ?", userID).
			Order("created_at desc").
			Limit(window).
			Find(&notifications).Error
	})
	if err != nil {
		if database.IsStatementTimeout(err) {
			return nil, fmt.Errorf("%w: %v", apperror.ErrIndexUnavailable, err)
		}
		return nil, err
	}
	return notifications, nil
}

// ListAll returns every notification of the user in store order.
func (r *notificationRepository) ListAll(ctx context.Context, userID uuid.UUID) ([]entity.Notification, error) {
	var notifications []entity.Notification
	err := database.Conn(ctx, r.db).Where("user_id = ?", userID).Find(&notifications).Error
	return notifications, err
}

// MarkAsRead is idempotent and keeps the first read_at.
func (r *notificationRepository) MarkAsRead(ctx context.Context, id, userID uuid.UUID, at time.Time) error {
	res := database.Conn(ctx, r.db).
		Model(&entity.Notification{}).
		Where("id = ? AND user_id = ? AND is_read = ?", id, userID, false).
		Updates(map[string]any{"is_read": true, "read_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := database.Conn(ctx, r.db).
		Model(&entity.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperror.ErrNotificationNotFound
	}
	return nil
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	res := database.Conn(ctx, r.db).
		Model(&entity.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{"is_read": true, "read_at": at})
	return res.RowsAffected, res.Error
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := database.Conn(ctx, r.db).
		Model(&entity.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// Delete removes a notification owned by userID.
func (r *notificationRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	res := database.Conn(ctx, r.db).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&entity.Notification{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.ErrNotificationNotFound
	}
	return nil
}

// Prune deletes read notifications read before readBefore and any notification
// created before createdBefore. A zero time disables that rule.
func (r *notificationRepository) Prune(ctx context.Context, readBefore, createdBefore time.Time) (int64, error) {
	var total int64
	if !readBefore.IsZero() {
		res := database.Conn(ctx, r.db).
			Where("is_read = ? AND read_at < ?", true, readBefore).
			Delete(&entity.Notification{})
		if res.Error != nil {
			return total, res.Error
		}
		total += res.RowsAffected
	}
	if !createdBefore.IsZero() {
		res := database.Conn(ctx, r.db).
			Where("created_at < ?", createdBefore).
			Delete(&entity.Notification{})
		if res.Error != nil {
			return total, res.Error
		}
		total += res.RowsAffected
	}
	return total, nil
}
