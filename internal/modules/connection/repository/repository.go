package repository

import (
	"context"
	"errors"
	"time"

	"anoa.com/mentorconnect/internal/entity"
	"anoa.com/mentorconnect/pkg/apperror"
	"anoa.com/mentorconnect/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListFilter selects requests by participant and status. Zero fields do not filter.
type ListFilter struct {
	FromID   uuid.UUID
	ToID     uuid.UUID
	Statuses []entity.RequestStatus
}

type ConnectionRepository interface {
	Create(ctx context.Context, req *entity.ConnectionRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.ConnectionRequest, error)
	FindByPair(ctx context.Context, a, b uuid.UUID) (*entity.ConnectionRequest, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Respond(ctx context.Context, id, actorID uuid.UUID, status entity.RequestStatus, at time.Time) (*entity.ConnectionRequest, error)
	CancelPending(ctx context.Context, id, actorID uuid.UUID) (*entity.ConnectionRequest, error)
	List(ctx context.Context, filter ListFilter) ([]entity.ConnectionRequest, error)
}

type connectionRepository struct {
	db *gorm.DB
}

func NewConnectionRepository(db *gorm.DB) ConnectionRepository {
	return &connectionRepository{db: db}
}

// Create inserts a request. A second record for the same pair is rejected by
// the unique pair index and reported as apperror.ErrDuplicateRequest.
func (r *connectionRepository) Create(ctx context.Context, req *entity.ConnectionRequest) error {
	req.PairKey = entity.PairKey(req.FromID, req.ToID)
	if err := database.Conn(ctx, r.db).Create(req).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return apperror.ErrDuplicateRequest
		}
		return err
	}
	return nil
}

func (r *connectionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.ConnectionRequest, error) {
	var req entity.ConnectionRequest
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&req).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

// FindByPair looks the pair up in either direction.
func (r *connectionRepository) FindByPair(ctx context.Context, a, b uuid.UUID) (*entity.ConnectionRequest, error) {
	var req entity.ConnectionRequest
	if err := database.Conn(ctx, r.db).Where("pair_key = ?", entity.PairKey(a, b)).First(&req).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (r *connectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return database.Conn(ctx, r.db).Delete(&entity.ConnectionRequest{}, "id = ?", id).Error
}

// Respond moves a pending request addressed to actorID into status. The
// status guard in the UPDATE makes the transition a compare-and-swap, so two
// concurrent responders cannot both win.
func (r *connectionRepository) Respond(ctx context.Context, id, actorID uuid.UUID, status entity.RequestStatus, at time.Time) (*entity.ConnectionRequest, error) {
	if status != entity.StatusAccepted && status != entity.StatusRejected {
		return nil, apperror.ErrInvalidTransition
	}

	res := database.Conn(ctx, r.db).
		Model(&entity.ConnectionRequest{}).
		Where("id = ? AND to_id = ? AND status = ?", id, actorID, entity.StatusPending).
		Updates(map[string]any{
			"status":       status,
			"responded_at": at,
		})
	if res.Error != nil {
		return nil, res.Error
	}

	req, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		if req.ToID != actorID {
			return nil, apperror.ErrForbidden
		}
		return nil, apperror.ErrInvalidTransition
	}
	return req, nil
}

// CancelPending deletes a request that actorID sent and that is still pending.
func (r *connectionRepository) CancelPending(ctx context.Context, id, actorID uuid.UUID) (*entity.ConnectionRequest, error) {
	req, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.FromID != actorID {
		return nil, apperror.ErrForbidden
	}
	if req.Status != entity.StatusPending {
		return nil, apperror.ErrInvalidTransition
	}

	res := database.Conn(ctx, r.db).
		Where("id = ? AND from_id = ? AND status = ?", id, actorID, entity.StatusPending).
		Delete(&entity.ConnectionRequest{})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// resolved or removed between the read and the delete
		return nil, apperror.ErrInvalidTransition
	}
	return req, nil
}

func (r *connectionRepository) List(ctx context.Context, filter ListFilter) ([]entity.ConnectionRequest, error) {
	q := database.Conn(ctx, r.db).Model(&entity.ConnectionRequest{})
	if filter.FromID != uuid.Nil {
		q = q.Where("from_id = ?", filter.FromID)
	}
	if filter.ToID != uuid.Nil {
		q = q.Where("to_id = ?", filter.ToID)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}

	var out []entity.ConnectionRequest
	if err := q.Order("sent_at desc").Order("id desc").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
