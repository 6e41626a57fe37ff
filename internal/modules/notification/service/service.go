package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"anoa.com/mentorconnect/internal/entity"
	connRepo "anoa.com/mentorconnect/internal/modules/connection/repository"
	notifRepo "anoa.com/mentorconnect/internal/modules/notification/repository"
	projectRepo "anoa.com/mentorconnect/internal/modules/project/repository"
	userRepo "anoa.com/mentorconnect/internal/modules/user/repository"
	"anoa.com/mentorconnect/internal/realtime"
	"anoa.com/mentorconnect/pkg/apperror"
	"anoa.com/mentorconnect/pkg/database"
	"anoa.com/mentorconnect/pkg/logger"
	"anoa.com/mentorconnect/pkg/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("mentorconnect/notification")

type NotificationService interface {
	CreateNotification(ctx context.Context, notification *entity.Notification) error
	CreateConnectionRequestNotification(ctx context.Context, requestID, toUserID, fromUserID uuid.UUID, fromRole, toRole string) (*entity.Notification, error)
	CreateConnectionAcceptedNotification(ctx context.Context, requestID, toUserID, accepterID uuid.UUID) (*entity.Notification, error)
	CreateProjectJoinNotification(ctx context.Context, projectID, ownerID, joiningUserID uuid.UUID) (*entity.Notification, error)

	GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Notification, error)
	ListRecent(ctx context.Context, userID uuid.UUID, window int) ([]entity.Notification, error)
	ListAllSorted(ctx context.Context, userID uuid.UUID) ([]entity.Notification, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkAsRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	DeleteNotification(ctx context.Context, userID, id uuid.UUID) error

	AcceptConnectionRequest(ctx context.Context, actorID, notificationID, requestID uuid.UUID) (*entity.ConnectionRequest, error)
	DeclineConnectionRequest(ctx context.Context, actorID, notificationID, requestID uuid.UUID) (*entity.ConnectionRequest, error)

	PruneNotifications(ctx context.Context) (int64, error)
}

// Publisher pushes notification and request changes to live sessions.
type Publisher interface {
	PublishNotification(ctx context.Context, kind realtime.Kind, n *entity.Notification)
	PublishNotificationsChanged(ctx context.Context, userID uuid.UUID)
	PublishRequest(ctx context.Context, kind realtime.Kind, req *entity.ConnectionRequest)
}

type Retention struct {
	ReadTTL time.Duration
	MaxAge  time.Duration
}

type Options struct {
	Retention Retention
	Now       func() time.Time
}

type notificationService struct {
	repo      notifRepo.NotificationRepository
	requests  connRepo.ConnectionRepository
	users     userRepo.UserRepository
	projects  projectRepo.ProjectRepository
	publisher Publisher
	tx        *database.Transactor
	retention Retention
	now       func() time.Time
	log       *zap.Logger
}

func NewNotificationService(
	repo notifRepo.NotificationRepository,
	requests connRepo.ConnectionRepository,
	users userRepo.UserRepository,
	projects projectRepo.ProjectRepository,
	publisher Publisher,
	tx *database.Transactor,
	log *zap.Logger,
	opts Options,
) NotificationService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &notificationService{
		repo:      repo,
		requests:  requests,
		users:     users,
		projects:  projects,
		publisher: publisher,
		tx:        tx,
		retention: opts.Retention,
		now:       func() time.Time { return now().UTC() },
		log:       logger.OrNop(log).With(zap.String("module", "notification")),
	}
}

// CreateNotification persists n unread and publishes it once the surrounding
// transaction, if any, has committed.
func (s *notificationService) CreateNotification(ctx context.Context, notification *entity.Notification) error {
	if notification.UserID == uuid.Nil {
		return apperror.New(http.StatusBadRequest, "notification recipient is required", apperror.ErrInvalidInput)
	}
	notification.IsRead = false
	notification.ReadAt = nil
	notification.CreatedAt = s.now()

	// 1. Save to DB
	if err := s.repo.Create(ctx, notification); err != nil {
		return err
	}
	metrics.NotificationsCreated.WithLabelValues(notification.Type).Inc()

	// 2. Publish to Redis after commit
	database.AfterCommit(ctx, func() {
		s.publisher.PublishNotification(context.WithoutCancel(ctx), realtime.KindCreated, notification)
	})
	return nil
}

func (s *notificationService) CreateConnectionRequestNotification(ctx context.Context, requestID, toUserID, fromUserID uuid.UUID, fromRole, toRole string) (*entity.Notification, error) {
	sender, err := s.users.FindByID(ctx, fromUserID)
	if err != nil {
		if errors.Is(err, apperror.ErrUserNotFound) {
			return nil, apperror.ErrSenderNotFound
		}
		return nil, err
	}

	summary := sender.Summary()
	title, description := connectionRequestText(summary.Name, fromRole, toRole)
	n := &entity.Notification{
		UserID:        toUserID,
		ActorID:       &sender.ID,
		ActorName:     summary.Name,
		ActorImageURL: summary.Image,
		Type:          entity.NotificationTypeConnection,
		Title:         title,
		Description:   description,
		RequestID:     &requestID,
	}
	if err := s.CreateNotification(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *notificationService) CreateConnectionAcceptedNotification(ctx context.Context, requestID, toUserID, accepterID uuid.UUID) (*entity.Notification, error) {
	accepter, err := s.users.FindByID(ctx, accepterID)
	if err != nil {
		return nil, err
	}

	summary := accepter.Summary()
	title, description := connectionAcceptedText(summary.Name)
	n := &entity.Notification{
		UserID:        toUserID,
		ActorID:       &accepter.ID,
		ActorName:     summary.Name,
		ActorImageURL: summary.Image,
		Type:          entity.NotificationTypeConnectionAccepted,
		Title:         title,
		Description:   description,
		RequestID:     &requestID,
	}
	if err := s.CreateNotification(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *notificationService) CreateProjectJoinNotification(ctx context.Context, projectID, ownerID, joiningUserID uuid.UUID) (*entity.Notification, error) {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	member, err := s.users.FindByID(ctx, joiningUserID)
	if err != nil {
		return nil, err
	}

	summary := member.Summary()
	title, description := projectJoinText(summary.Name, project.Title)
	n := &entity.Notification{
		UserID:        ownerID,
		ActorID:       &member.ID,
		ActorName:     summary.Name,
		ActorImageURL: summary.Image,
		Type:          entity.NotificationTypeProject,
		Title:         title,
		Description:   description,
		ProjectID:     &project.ID,
		MemberID:      &member.ID,
	}
	if err := s.CreateNotification(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *notificationService) GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Notification, error) {
	return s.repo.GetByUserID(ctx, userID, limit, offset)
}

func (s *notificationService) ListRecent(ctx context.Context, userID uuid.UUID, window int) ([]entity.Notification, error) {
	return s.repo.ListRecent(ctx, userID, window)
}

// ListAllSorted is the degraded form of ListRecent: every notification of the
// user, sorted newest first in memory.
func (s *notificationService) ListAllSorted(ctx context.Context, userID uuid.UUID) ([]entity.Notification, error) {
	notifications, err := s.repo.ListAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
	return notifications, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkAsRead is idempotent; a second call keeps the original read time.
func (s *notificationService) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.repo.MarkAsRead(ctx, id, userID, s.now()); err != nil {
		return err
	}
	s.publishUpdated(ctx, id)
	return nil
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	n, err := s.repo.MarkAllAsRead(ctx, userID, s.now())
	if err != nil {
		return err
	}
	if n > 0 {
		database.AfterCommit(ctx, func() {
			s.publisher.PublishNotificationsChanged(context.WithoutCancel(ctx), userID)
		})
	}
	return nil
}

func (s *notificationService) DeleteNotification(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return err
	}
	database.AfterCommit(ctx, func() {
		s.publisher.PublishNotification(context.WithoutCancel(ctx), realtime.KindDeleted, &entity.Notification{ID: id, UserID: userID})
	})
	return nil
}

func (s *notificationService) AcceptConnectionRequest(ctx context.Context, actorID, notificationID, requestID uuid.UUID) (*entity.ConnectionRequest, error) {
	return s.respondFromNotification(ctx, actorID, notificationID, requestID, entity.StatusAccepted)
}

func (s *notificationService) DeclineConnectionRequest(ctx context.Context, actorID, notificationID, requestID uuid.UUID) (*entity.ConnectionRequest, error) {
	return s.respondFromNotification(ctx, actorID, notificationID, requestID, entity.StatusRejected)
}

// respondFromNotification resolves the request and marks the notification
// read in one transaction, so an actioned notification is never left unread.
func (s *notificationService) respondFromNotification(ctx context.Context, actorID, notificationID, requestID uuid.UUID, status entity.RequestStatus) (*entity.ConnectionRequest, error) {
	ctx, span := tracer.Start(ctx, "notification.RespondFromNotification")
	defer span.End()

	var resolved *entity.ConnectionRequest
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		n, err := s.repo.FindByID(ctx, notificationID)
		if err != nil {
			return err
		}
		if n.UserID != actorID {
			return apperror.ErrNotificationNotFound
		}
		if n.RequestID == nil || *n.RequestID != requestID {
			return apperror.New(http.StatusBadRequest, "notification does not reference this request", apperror.ErrInvalidInput)
		}

		req, err := s.requests.Respond(ctx, requestID, actorID, status, s.now())
		if err != nil {
			return err
		}
		if status == entity.StatusAccepted {
			if _, err := s.CreateConnectionAcceptedNotification(ctx, req.ID, req.FromID, actorID); err != nil {
				return fmt.Errorf("create accepted notification: %w", err)
			}
		}
		if err := s.repo.MarkAsRead(ctx, notificationID, actorID, s.now()); err != nil {
			return err
		}

		database.AfterCommit(ctx, func() {
			s.publisher.PublishRequest(context.WithoutCancel(ctx), realtime.KindUpdated, req)
		})
		s.publishUpdated(ctx, notificationID)
		resolved = req
		return nil
	})
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, apperror.ErrInvalidTransition) {
			metrics.ConnectionTransitions.WithLabelValues("invalid").Inc()
		}
		return nil, err
	}

	metrics.ConnectionTransitions.WithLabelValues(string(status)).Inc()
	return resolved, nil
}

// PruneNotifications applies the retention policy. It returns the number of
// notifications removed.
func (s *notificationService) PruneNotifications(ctx context.Context) (int64, error) {
	now := s.now()
	var readBefore, createdBefore time.Time
	if s.retention.ReadTTL > 0 {
		readBefore = now.Add(-s.retention.ReadTTL)
	}
	if s.retention.MaxAge > 0 {
		createdBefore = now.Add(-s.retention.MaxAge)
	}
	if readBefore.IsZero() && createdBefore.IsZero() {
		return 0, nil
	}

	removed, err := s.repo.Prune(ctx, readBefore, createdBefore)
	if err != nil {
		return removed, fmt.Errorf("prune notifications: %w", err)
	}
	metrics.NotificationsPruned.Add(float64(removed))
	s.log.Info("notifications pruned", zap.Int64("removed", removed))
	return removed, nil
}

func (s *notificationService) publishUpdated(ctx context.Context, id uuid.UUID) {
	database.AfterCommit(ctx, func() {
		n, err := s.repo.FindByID(context.WithoutCancel(ctx), id)
		if err != nil {
			s.log.Warn("failed to load notification for publish", zap.String("notification_id", id.String()), zap.Error(err))
			return
		}
		s.publisher.PublishNotification(context.WithoutCancel(ctx), realtime.KindUpdated, n)
	})
}
