package bootstrap

import (
	"context"
	"errors"

	"anoa.com/mentorconnect/internal/entity"
	userRepo "anoa.com/mentorconnect/internal/modules/user/repository"
	"anoa.com/mentorconnect/pkg/apperror"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(entity.Models()...)
}

type seedUser struct {
	username string
	email    string
	role     string
	fullName string
}

var developmentUsers = []seedUser{
	{"mentor", "mentor@example.com", entity.RoleMentor, "Demo Mentor"},
	{"learner", "learner@example.com", entity.RoleLearner, "Demo Learner"},
	{"recruiter", "recruiter@example.com", entity.RoleRecruiter, "Demo Recruiter"},
}

// SeedDevelopment creates demo users and a project owned by the mentor.
// Users that already exist are skipped.
func SeedDevelopment(ctx context.Context, db *gorm.DB, log *zap.Logger) error {
	repo := userRepo.NewUserRepository(db)

	var mentor *entity.User
	for _, su := range developmentUsers {
		existing, err := repo.FindByEmail(ctx, su.email)
		if err == nil {
			log.Debug("seed user already exists, skipping", zap.String("email", su.email))
			if su.role == entity.RoleMentor {
				mentor = existing
			}
			continue
		}
		if !errors.Is(err, apperror.ErrUserNotFound) {
			return err
		}

		user := &entity.User{Username: su.username, Email: su.email, Role: su.role}
		if err := repo.Create(ctx, user, &entity.Profile{FullName: su.fullName}); err != nil {
			return err
		}
		log.Info("seeded user", zap.String("email", su.email), zap.String("id", user.ID.String()))
		if su.role == entity.RoleMentor {
			mentor = user
		}
	}

	if mentor == nil {
		return nil
	}

	var count int64
	if err := db.WithContext(ctx).Model(&entity.Project{}).Where("owner_id = ?", mentor.ID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	project := &entity.Project{OwnerID: mentor.ID, Title: "Open Source Mentoring Circle"}
	if err := db.WithContext(ctx).Create(project).Error; err != nil {
		return err
	}
	log.Info("seeded project", zap.String("id", project.ID.String()))
	return nil
}
