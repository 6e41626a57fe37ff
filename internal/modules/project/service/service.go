package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"anoa.com/mentorconnect/internal/entity"
	projectRepo "anoa.com/mentorconnect/internal/modules/project/repository"
	"anoa.com/mentorconnect/pkg/apperror"
	"anoa.com/mentorconnect/pkg/database"
	"anoa.com/mentorconnect/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type JoinNotifier interface {
	CreateProjectJoinNotification(ctx context.Context, projectID, ownerID, joiningUserID uuid.UUID) (*entity.Notification, error)
}

type ProjectService interface {
	Join(ctx context.Context, projectID, userID uuid.UUID) (*entity.ProjectMember, error)
	ListMembers(ctx context.Context, projectID uuid.UUID) ([]entity.ProjectMember, error)
}

type projectService struct {
	repo     projectRepo.ProjectRepository
	notifier JoinNotifier
	tx       *database.Transactor
	now      func() time.Time
	log      *zap.Logger
}

func NewProjectService(repo projectRepo.ProjectRepository, notifier JoinNotifier, tx *database.Transactor, log *zap.Logger) ProjectService {
	return &projectService{
		repo:     repo,
		notifier: notifier,
		tx:       tx,
		now:      func() time.Time { return time.Now().UTC() },
		log:      logger.OrNop(log).With(zap.String("module", "project")),
	}
}

// Join adds userID to the project and notifies the owner. Both writes commit
// together or not at all.
func (s *projectService) Join(ctx context.Context, projectID, userID uuid.UUID) (*entity.ProjectMember, error) {
	var member *entity.ProjectMember
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		project, err := s.repo.FindByID(ctx, projectID)
		if err != nil {
			return err
		}
		if project.OwnerID == userID {
			return apperror.New(http.StatusBadRequest, "project owner cannot join their own project", apperror.ErrInvalidInput)
		}

		m := &entity.ProjectMember{ProjectID: project.ID, UserID: userID, JoinedAt: s.now()}
		if err := s.repo.AddMember(ctx, m); err != nil {
			return err
		}
		if _, err := s.notifier.CreateProjectJoinNotification(ctx, project.ID, project.OwnerID, userID); err != nil {
			return fmt.Errorf("create project join notification: %w", err)
		}
		member = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user joined project",
		zap.String("project_id", projectID.String()),
		zap.String("user_id", userID.String()),
	)
	return member, nil
}

func (s *projectService) ListMembers(ctx context.Context, projectID uuid.UUID) ([]entity.ProjectMember, error) {
	if _, err := s.repo.FindByID(ctx, projectID); err != nil {
		return nil, err
	}
	return s.repo.ListMembers(ctx, projectID)
}
