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

type ProjectRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Project, error)
	AddMember(ctx context.Context, member *entity.ProjectMember) error
	ListMembers(ctx context.Context, projectID uuid.UUID) ([]entity.ProjectMember, error)
}

type projectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Project, error) {
	var project entity.Project
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrProjectNotFound
		}
		return nil, err
	}
	return &project, nil
}

// AddMember fails with apperror.ErrAlreadyMember when the membership exists.
func (r *projectRepository) AddMember(ctx context.Context, member *entity.ProjectMember) error {
	if err := database.Conn(ctx, r.db).Create(member).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return apperror.ErrAlreadyMember
		}
		return err
	}
	return nil
}

func (r *projectRepository) ListMembers(ctx context.Context, projectID uuid.UUID) ([]entity.ProjectMember, error) {
	var members []entity.ProjectMember
	err := database.Conn(ctx, r.db).
		Where("project_id = ?", projectID).
		Order("joined_at asc").
		Find(&members).Error
	return members, err
}
