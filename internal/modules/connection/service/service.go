package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"anoa.com/mentorconnect/internal/entity"
	"anoa.com/mentorconnect/internal/modules/connection/dto"
	connRepo "anoa.com/mentorconnect/internal/modules/connection/repository"
	userRepo "anoa.com/mentorconnect/internal/modules/user/repository"
	"anoa.com/mentorconnect/internal/realtime"
	"anoa.com/mentorconnect/pkg/apperror"
	"anoa.com/mentorconnect/pkg/database"
	"anoa.com/mentorconnect/pkg/logger"
	"anoa.com/mentorconnect/pkg/metrics"
	"anoa.com/mentorconnect/pkg/ratelimiter"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	maxMessageLength = 500
	sendAction       = "send_connection_request"
)

var tracer = otel.Tracer("mentorconnect/connection")

// Notifier creates the notifications that accompany request transitions. It
// must join the transaction carried by ctx.
type Notifier interface {
	CreateConnectionRequestNotification(ctx context.Context, requestID, toUserID, fromUserID uuid.UUID, fromRole, toRole string) (*entity.Notification, error)
	CreateConnectionAcceptedNotification(ctx context.Context, requestID, toUserID, accepterID uuid.UUID) (*entity.Notification, error)
}

type RequestPublisher interface {
	PublishRequest(ctx context.Context, kind realtime.Kind, req *entity.ConnectionRequest)
}

type ConnectionService interface {
	SendRequest(ctx context.Context, fromID uuid.UUID, input dto.SendRequestInput) (*entity.ConnectionRequest, error)
	AcceptRequest(ctx context.Context, actorID, requestID uuid.UUID) (*entity.ConnectionRequest, error)
	RejectRequest(ctx context.Context, actorID, requestID uuid.UUID) (*entity.ConnectionRequest, error)
	CancelRequest(ctx context.Context, actorID, requestID uuid.UUID) error
	GetConnectionStatus(ctx context.Context, currentUserID, otherUserID uuid.UUID) (*dto.Relationship, error)
	ListIncoming(ctx context.Context, userID uuid.UUID) ([]entity.ConnectionRequest, error)
	ListOutgoing(ctx context.Context, userID uuid.UUID) ([]entity.ConnectionRequest, error)
	ListConnections(ctx context.Context, userID uuid.UUID) ([]dto.Connection, error)
	GetRequestButtonText(fromRole, toRole string) string
}

type Options struct {
	SendCooldown time.Duration
	Now          func() time.Time
}

type connectionService struct {
	repo      connRepo.ConnectionRepository
	users     userRepo.UserRepository
	notifier  Notifier
	publisher RequestPublisher
	tx        *database.Transactor
	limiter   *ratelimiter.Limiter
	sanitizer *bluemonday.Policy
	cooldown  time.Duration
	now       func() time.Time
	log       *zap.Logger
}

func NewConnectionService(
	repo connRepo.ConnectionRepository,
	users userRepo.UserRepository,
	notifier Notifier,
	publisher RequestPublisher,
	tx *database.Transactor,
	limiter *ratelimiter.Limiter,
	log *zap.Logger,
	opts Options,
) ConnectionService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &connectionService{
		repo:      repo,
		users:     users,
		notifier:  notifier,
		publisher: publisher,
		tx:        tx,
		limiter:   limiter,
		sanitizer: bluemonday.StrictPolicy(),
		cooldown:  opts.SendCooldown,
		now:       func() time.Time { return now().UTC() },
		log:       logger.OrNop(log).With(zap.String("module", "connection")),
	}
}

// SendRequest creates a pending request from fromID and the matching
// notification for the recipient in one transaction. A rejected record for
// the same pair is replaced; a pending or accepted one fails with
// apperror.ErrDuplicateRequest.
func (s *connectionService) SendRequest(ctx context.Context, fromID uuid.UUID, input dto.SendRequestInput) (*entity.ConnectionRequest, error) {
	ctx, span := tracer.Start(ctx, "connection.SendRequest", trace.WithAttributes(
		attribute.String("from_id", fromID.String()),
		attribute.String("to_id", input.ToUserID.String()),
	))
	defer span.End()

	if input.ToUserID == uuid.Nil || input.ToUserID == fromID {
		return nil, apperror.New(http.StatusBadRequest, "cannot send a connection request to yourself", apperror.ErrInvalidInput)
	}

	// StrictPolicy escapes what it keeps; messages are stored as plain text.
	message := strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(input.Message)))
	if utf8.RuneCountInString(message) > maxMessageLength {
		return nil, apperror.New(http.StatusBadRequest, fmt.Sprintf("message must be at most %d characters", maxMessageLength), apperror.ErrInvalidInput)
	}

	sender, err := s.users.FindByID(ctx, fromID)
	if err != nil {
		if errors.Is(err, apperror.ErrUserNotFound) {
			return nil, apperror.ErrSenderNotFound
		}
		return nil, err
	}
	recipient, err := s.users.FindByID(ctx, input.ToUserID)
	if err != nil {
		return nil, err
	}

	allowed, err := s.limiter.Allow(ctx, fromID, sendAction, s.cooldown)
	if err != nil {
		return nil, err
	}
	if !allowed {
		metrics.ConnectionRequests.WithLabelValues("rate_limited").Inc()
		return nil, apperror.ErrRateLimitExceeded
	}

	toRole := input.ToRole
	if toRole == "" {
		toRole = recipient.Role
	}

	req := &entity.ConnectionRequest{
		FromID:    fromID,
		ToID:      recipient.ID,
		FromRole:  sender.Role,
		ToRole:    toRole,
		Status:    entity.StatusPending,
		Message:   message,
		Timestamp: s.now(),
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.FindByPair(ctx, fromID, recipient.ID)
		switch {
		case err == nil:
			if existing.Status != entity.StatusRejected {
				return apperror.ErrDuplicateRequest
			}
			if err := s.repo.Delete(ctx, existing.ID); err != nil {
				return fmt.Errorf("remove rejected request: %w", err)
			}
		case !errors.Is(err, apperror.ErrRequestNotFound):
			return err
		}

		if err := s.repo.Create(ctx, req); err != nil {
			return err
		}
		if _, err := s.notifier.CreateConnectionRequestNotification(ctx, req.ID, req.ToID, req.FromID, req.FromRole, req.ToRole); err != nil {
			return fmt.Errorf("create request notification: %w", err)
		}

		database.AfterCommit(ctx, func() {
			s.publisher.PublishRequest(context.WithoutCancel(ctx), realtime.KindCreated, req)
		})
		return nil
	})
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, apperror.ErrDuplicateRequest) {
			metrics.ConnectionRequests.WithLabelValues("duplicate").Inc()
		} else {
			metrics.ConnectionRequests.WithLabelValues("error").Inc()
		}
		if clearErr := s.limiter.Clear(context.WithoutCancel(ctx), fromID, sendAction); clearErr != nil {
			s.log.Warn("failed to clear send cooldown", zap.String("user_id", fromID.String()), zap.Error(clearErr))
		}
		return nil, err
	}

	metrics.ConnectionRequests.WithLabelValues("created").Inc()
	s.log.Info("connection request sent",
		zap.String("request_id", req.ID.String()),
		zap.String("from_id", req.FromID.String()),
		zap.String("to_id", req.ToID.String()),
	)
	return req, nil
}

// AcceptRequest resolves a pending request addressed to actorID and tells the
// sender through a connection_accepted notification.
func (s *connectionService) AcceptRequest(ctx context.Context, actorID, requestID uuid.UUID) (*entity.ConnectionRequest, error) {
	ctx, span := tracer.Start(ctx, "connection.AcceptRequest")
	defer span.End()

	var accepted *entity.ConnectionRequest
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		req, err := s.repo.Respond(ctx, requestID, actorID, entity.StatusAccepted, s.now())
		if err != nil {
			return err
		}
		if _, err := s.notifier.CreateConnectionAcceptedNotification(ctx, req.ID, req.FromID, actorID); err != nil {
			return fmt.Errorf("create accepted notification: %w", err)
		}
		database.AfterCommit(ctx, func() {
			s.publisher.PublishRequest(context.WithoutCancel(ctx), realtime.KindUpdated, req)
		})
		accepted = req
		return nil
	})
	if err != nil {
		span.RecordError(err)
		s.recordTransitionError(err)
		return nil, err
	}

	metrics.ConnectionTransitions.WithLabelValues(string(entity.StatusAccepted)).Inc()
	return accepted, nil
}

func (s *connectionService) RejectRequest(ctx context.Context, actorID, requestID uuid.UUID) (*entity.ConnectionRequest, error) {
	ctx, span := tracer.Start(ctx, "connection.RejectRequest")
	defer span.End()

	req, err := s.repo.Respond(ctx, requestID, actorID, entity.StatusRejected, s.now())
	if err != nil {
		span.RecordError(err)
		s.recordTransitionError(err)
		return nil, err
	}
	database.AfterCommit(ctx, func() {
		s.publisher.PublishRequest(context.WithoutCancel(ctx), realtime.KindUpdated, req)
	})

	metrics.ConnectionTransitions.WithLabelValues(string(entity.StatusRejected)).Inc()
	return req, nil
}

// CancelRequest withdraws a pending request. Only the sender may cancel.
func (s *connectionService) CancelRequest(ctx context.Context, actorID, requestID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "connection.CancelRequest")
	defer span.End()

	req, err := s.repo.CancelPending(ctx, requestID, actorID)
	if err != nil {
		span.RecordError(err)
		s.recordTransitionError(err)
		return err
	}
	database.AfterCommit(ctx, func() {
		s.publisher.PublishRequest(context.WithoutCancel(ctx), realtime.KindDeleted, req)
	})

	metrics.ConnectionTransitions.WithLabelValues("cancelled").Inc()
	return nil
}

// GetConnectionStatus returns nil without error when the two users have no record.
func (s *connectionService) GetConnectionStatus(ctx context.Context, currentUserID, otherUserID uuid.UUID) (*dto.Relationship, error) {
	req, err := s.repo.FindByPair(ctx, currentUserID, otherUserID)
	if err != nil {
		if errors.Is(err, apperror.ErrRequestNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &dto.Relationship{
		ConnectionRequest: *req,
		IsIncoming:        req.ToID == currentUserID,
	}, nil
}

func (s *connectionService) ListIncoming(ctx context.Context, userID uuid.UUID) ([]entity.ConnectionRequest, error) {
	return s.repo.List(ctx, connRepo.ListFilter{ToID: userID})
}

func (s *connectionService) ListOutgoing(ctx context.Context, userID uuid.UUID) ([]entity.ConnectionRequest, error) {
	return s.repo.List(ctx, connRepo.ListFilter{FromID: userID})
}

// ListConnections unions accepted requests in both directions, deduplicates
// them by id and attaches the other party's profile. Profiles are fetched on
// every call; a failed lookup leaves Counterpart nil rather than failing the list.
func (s *connectionService) ListConnections(ctx context.Context, userID uuid.UUID) ([]dto.Connection, error) {
	ctx, span := tracer.Start(ctx, "connection.ListConnections")
	defer span.End()

	accepted := []entity.RequestStatus{entity.StatusAccepted}
	var sent, received []entity.ConnectionRequest

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sent, err = s.repo.List(gctx, connRepo.ListFilter{FromID: userID, Statuses: accepted})
		return err
	})
	g.Go(func() error {
		var err error
		received, err = s.repo.List(gctx, connRepo.ListFilter{ToID: userID, Statuses: accepted})
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{}, len(sent)+len(received))
	merged := make([]entity.ConnectionRequest, 0, len(sent)+len(received))
	for _, list := range [][]entity.ConnectionRequest{sent, received} {
		for _, r := range list {
			if _, ok := seen[r.ID]; ok {
				continue
			}
			seen[r.ID] = struct{}{}
			merged = append(merged, r)
		}
	}

	ids := make([]uuid.UUID, 0, len(merged))
	for i := range merged {
		ids = append(ids, merged[i].Counterpart(userID))
	}
	profiles, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		s.log.Warn("failed to enrich connections", zap.String("user_id", userID.String()), zap.Error(err))
		profiles = nil
	}

	out := make([]dto.Connection, 0, len(merged))
	for _, r := range merged {
		c := dto.Connection{ConnectionRequest: r}
		if u, ok := profiles[r.Counterpart(userID)]; ok {
			summary := u.Summary()
			c.Counterpart = &summary
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *connectionService) GetRequestButtonText(fromRole, toRole string) string {
	return ButtonText(fromRole, toRole)
}

func (s *connectionService) recordTransitionError(err error) {
	if errors.Is(err, apperror.ErrInvalidTransition) {
		metrics.ConnectionTransitions.WithLabelValues("invalid").Inc()
	}
}
