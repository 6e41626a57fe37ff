package repository

import (
	"context"
	"errors"

	"anoa.com/mentorconnect/internal/entity"
	"anoa.com/mentorconnect/pkg/apperror"
	"anoa.com/mentorconnect/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository reads the profile store. Create exists for seeding and tests;
// profiles are otherwise written outside this service.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User, profile *entity.Profile) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User, profile *entity.Profile) error {
	return database.Conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}

		if profile != nil {
			profile.UserID = user.ID
			if err := tx.Create(profile).Error; err != nil {
				return err
			}
			user.Profile = profile
		}

		return nil
	})
}

// FindByID returns apperror.ErrUserNotFound when the user does not exist.
func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var user entity.User
	if err := database.Conn(ctx, r.db).
		Preload("Profile").
		Where("id = ?", id).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, err
	}

	return &user, nil
}

// FindByIDs loads users in one query. Missing ids are absent from the map.
func (r *userRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entity.User, error) {
	out := make(map[uuid.UUID]*entity.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var users []*entity.User
	if err := database.Conn(ctx, r.db).
		Preload("Profile").
		Where("id IN ?", ids).
		Find(&users).Error; err != nil {
		return nil, err
	}

	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var user entity.User
	if err := database.Conn(ctx, r.db).
		Preload("Profile").
		Where("email = ?", email).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, err
	}

	return &user, nil
}
