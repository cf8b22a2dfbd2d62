package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/shelter-adoption-api/internal/dto"
	"github.com/noah-isme/shelter-adoption-api/internal/models"
	"github.com/noah-isme/shelter-adoption-api/pkg/jobs"
	appErrors "github.com/noah-isme/shelter-adoption-api/pkg/errors"
)

const (
	notificationJobType   = "notification"
	activeCoordinatorsKey = "coordinators:active"
)

type notificationStore interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByPerson(ctx context.Context, personID string, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, personID string) error
}

type notificationPublisher interface {
	Publish(ctx context.Context, channel string, payload interface{}) error
}

type roleDirectory interface {
	ListActiveIDsByRole(ctx context.Context, role models.UserRole) ([]string, error)
}

type notificationDispatcher interface {
	TryEnqueue(job jobs.Job) error
}

// NotificationConfig tunes delivery.
type NotificationConfig struct {
	ChannelPrefix  string
	Publish        bool
	CoordinatorTTL time.Duration
}

// NotificationService persists and publishes workflow notifications off the request path.
type NotificationService struct {
	repo      notificationStore
	users     roleDirectory
	cache     *CacheService
	publisher notificationPublisher
	queue     notificationDispatcher
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       NotificationConfig
}

// NewNotificationService constructs the sink. Without a bound queue, pushes are delivered inline.
func NewNotificationService(repo notificationStore, users roleDirectory, cache *CacheService, publisher notificationPublisher, metrics *MetricsService, logger *zap.Logger, cfg NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ChannelPrefix == "" {
		cfg.ChannelPrefix = "notifications"
	}
	return &NotificationService{
		repo:      repo,
		users:     users,
		cache:     cache,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
	}
}

// Bind routes future pushes through the dispatcher.
func (s *NotificationService) Bind(queue notificationDispatcher) {
	s.queue = queue
}

// Push queues a notification for personID. Failures are logged, never returned.
func (s *NotificationService) Push(ctx context.Context, personID string, kind models.NotificationType, title, message string) {
	if personID == "" {
		return
	}
	notification := models.Notification{
		ID:        uuid.NewString(),
		PersonID:  personID,
		Type:      kind,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}

	if s.queue == nil {
		if err := s.deliver(context.WithoutCancel(ctx), notification); err != nil {
			s.GiveUp(jobs.Job{ID: notification.ID, Type: notificationJobType, Payload: notification}, err)
		}
		return
	}
	if err := s.queue.TryEnqueue(jobs.Job{ID: notification.ID, Type: notificationJobType, Payload: notification}); err != nil {
		s.metrics.Notification("dropped")
		s.logger.Warn("notification dropped",
			zap.String("person_id", personID),
			zap.String("type", string(kind)),
			zap.Error(err))
	}
}

// NotifyCoordinators pushes the message to every active coordinator.
func (s *NotificationService) NotifyCoordinators(ctx context.Context, kind models.NotificationType, title, message string) {
	coordinators, err := s.ActiveCoordinators(ctx)
	if err != nil {
		s.logger.Warn("resolve coordinators for notification", zap.String("type", string(kind)), zap.Error(err))
		return
	}
	for _, id := range coordinators {
		s.Push(ctx, id, kind, title, message)
	}
}

// ActiveCoordinators returns active coordinator ids, served from cache when possible.
func (s *NotificationService) ActiveCoordinators(ctx context.Context) ([]string, error) {
	return Remember(ctx, s.cache, activeCoordinatorsKey, s.cfg.CoordinatorTTL, func(ctx context.Context) ([]string, error) {
		return s.users.ListActiveIDsByRole(ctx, models.RoleCoordinator)
	})
}

// Deliver is the queue handler: it stores the notification then publishes it.
func (s *NotificationService) Deliver(ctx context.Context, job jobs.Job) error {
	notification, ok := job.Payload.(models.Notification)
	if !ok {
		return fmt.Errorf("unexpected notification payload %T", job.Payload)
	}
	return s.deliver(ctx, notification)
}

func (s *NotificationService) deliver(ctx context.Context, notification models.Notification) error {
	if err := s.repo.Create(ctx, &notification); err != nil {
		return err
	}
	s.metrics.Notification("delivered")
	if s.publisher == nil || !s.cfg.Publish {
		return nil
	}
	channel := s.cfg.ChannelPrefix + ":" + notification.PersonID
	if err := s.publisher.Publish(ctx, channel, notification); err != nil {
		s.logger.Warn("publish notification", zap.String("channel", channel), zap.Error(err))
	}
	return nil
}

// GiveUp records a notification that could not be stored.
func (s *NotificationService) GiveUp(job jobs.Job, err error) {
	s.metrics.Notification("failed")
	s.logger.Error("notification delivery failed",
		zap.String("job_id", job.ID),
		zap.Int("attempt", job.Attempt),
		zap.Error(err))
}

// List returns the caller's inbox.
func (s *NotificationService) List(ctx context.Context, personID string, query dto.NotificationQuery) ([]models.Notification, error) {
	items, err := s.repo.ListByPerson(ctx, personID, query.UnreadOnly, query.Limit)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list notifications")
	}
	return items, nil
}

// MarkRead flags one of the caller's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, id, personID string) error {
	if err := s.repo.MarkRead(ctx, id, personID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Internal(err, "failed to update notification")
	}
	return nil
}
