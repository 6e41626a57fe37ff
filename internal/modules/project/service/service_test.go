package service

import (
	"context"
	"errors"
	"testing"

	"anoa.com/mentorconnect/internal/entity"
	connRepo "anoa.com/mentorconnect/internal/modules/connection/repository"
	notifRepo "anoa.com/mentorconnect/internal/modules/notification/repository"
	notifService "anoa.com/mentorconnect/internal/modules/notification/service"
	projectRepo "anoa.com/mentorconnect/internal/modules/project/repository"
	userRepo "anoa.com/mentorconnect/internal/modules/user/repository"
	"anoa.com/mentorconnect/internal/realtime"
	"anoa.com/mentorconnect/internal/testutil"
	"anoa.com/mentorconnect/pkg/apperror"
	"anoa.com/mentorconnect/pkg/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type brokenNotifier struct{}

func (brokenNotifier) CreateProjectJoinNotification(context.Context, uuid.UUID, uuid.UUID, uuid.UUID) (*entity.Notification, error) {
	return nil, errors.New("notification store down")
}

func setup(t *testing.T, notifier JoinNotifier) (*gorm.DB, ProjectService, notifService.NotificationService) {
	t.Helper()
	db := testutil.NewDB(t)
	log := zaptest.NewLogger(t)
	tx := database.NewTransactor(db)
	projects := projectRepo.NewProjectRepository(db)

	notifications := notifService.NewNotificationService(
		notifRepo.NewNotificationRepository(db, 0),
		connRepo.NewConnectionRepository(db),
		userRepo.NewUserRepository(db),
		projects,
		realtime.NewPublisher(nil, log),
		tx,
		log,
		notifService.Options{},
	)
	if notifier == nil {
		notifier = notifications
	}
	return db, NewProjectService(projects, notifier, tx, log), notifications
}

func TestJoin_NotifiesOwner(t *testing.T) {
	db, svc, notifications := setup(t, nil)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "olga", entity.RoleMentor)
	member := testutil.CreateUser(t, db, "mia", entity.RoleLearner)
	project := testutil.CreateProject(t, db, owner.ID, "Compiler club")

	joined, err := svc.Join(ctx, project.ID, member.ID)
	require.NoError(t, err)
	assert.Equal(t, member.ID, joined.UserID)

	list, err := notifications.ListAllSorted(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, entity.NotificationTypeProject, list[0].Type)
	require.NotNil(t, list[0].MemberID)
	assert.Equal(t, member.ID, *list[0].MemberID)

	_, err = svc.Join(ctx, project.ID, member.ID)
	assert.ErrorIs(t, err, apperror.ErrAlreadyMember)

	members, err := svc.ListMembers(ctx, project.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestJoin_Rejections(t *testing.T) {
	db, svc, _ := setup(t, nil)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "olga", entity.RoleMentor)
	project := testutil.CreateProject(t, db, owner.ID, "Compiler club")

	_, err := svc.Join(ctx, project.ID, owner.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = svc.Join(ctx, uuid.New(), owner.ID)
	assert.ErrorIs(t, err, apperror.ErrProjectNotFound)

	_, err = svc.ListMembers(ctx, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrProjectNotFound)
}

func TestJoin_RollsBackWhenNotificationFails(t *testing.T) {
	db, svc, _ := setup(t, brokenNotifier{})
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "olga", entity.RoleMentor)
	member := testutil.CreateUser(t, db, "mia", entity.RoleLearner)
	project := testutil.CreateProject(t, db, owner.ID, "Compiler club")

	_, err := svc.Join(ctx, project.ID, member.ID)
	require.Error(t, err)

	members, err := svc.ListMembers(ctx, project.ID)
	require.NoError(t, err)
	assert.Empty(t, members)
}
