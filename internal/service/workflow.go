package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/shelter-adoption-api/internal/models"
	"github.com/noah-isme/shelter-adoption-api/internal/repository"
	appErrors "github.com/noah-isme/shelter-adoption-api/pkg/errors"
)

// Notifier is the fire-and-forget sink the workflow pushes messages into.
// Implementations must not block the caller on delivery.
type Notifier interface {
	Push(ctx context.Context, personID string, kind models.NotificationType, title, message string)
	NotifyCoordinators(ctx context.Context, kind models.NotificationType, title, message string)
}

type noopNotifier struct{}

func (noopNotifier) Push(context.Context, string, models.NotificationType, string, string) {}
func (noopNotifier) NotifyCoordinators(context.Context, models.NotificationType, string, string) {
}

// workflow carries the collaborators shared by the adoption services.
type workflow struct {
	logger    *zap.Logger
	validator *validator.Validate
	metrics   *MetricsService
	notifier  Notifier
	now       func() time.Time
}

// Option configures a workflow service.
type Option func(*workflow)

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *workflow) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithValidator shares a validator instance.
func WithValidator(v *validator.Validate) Option {
	return func(w *workflow) {
		if v != nil {
			w.validator = v
		}
	}
}

// WithMetrics enables workflow counters.
func WithMetrics(metrics *MetricsService) Option {
	return func(w *workflow) {
		w.metrics = metrics
	}
}

// WithNotifier routes workflow notifications.
func WithNotifier(notifier Notifier) Option {
	return func(w *workflow) {
		if notifier != nil {
			w.notifier = notifier
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(w *workflow) {
		if now != nil {
			w.now = now
		}
	}
}

func newWorkflow(opts []Option) workflow {
	w := workflow{
		logger:    zap.NewNop(),
		validator: validator.New(),
		notifier:  noopNotifier{},
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(&w)
	}
	return w
}

func (w *workflow) validate(payload interface{}, message string) error {
	if err := w.validator.Struct(payload); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	}
	return nil
}

var notFoundMessages = []struct {
	target  error
	message string
}{
	{repository.ErrApplicationNotFound, "application not found"},
	{repository.ErrSlotNotFound, "interview slot not found"},
	{repository.ErrInterviewNotFound, "interview not found"},
	{repository.ErrAnimalNotFound, "animal not found"},
	{repository.ErrReportNotFound, "post-adoption report not found"},
	{repository.ErrAgreementNotFound, "agreement not found"},
}

var conflictErrors = []error{
	repository.ErrActiveApplicationExists,
	repository.ErrApplicationDecided,
	repository.ErrApplicationNotApproved,
	repository.ErrSlotUnavailable,
	repository.ErrSlotExpired,
	repository.ErrSlotNotBound,
	repository.ErrSlotBooked,
	repository.ErrLiveInterviewExists,
	repository.ErrInvalidTransition,
	repository.ErrAnimalUnavailable,
	repository.ErrAgreementExists,
	repository.ErrInterviewsChanged,
}

// translate maps repository failures onto the API error taxonomy.
func translate(err error, fallback string) error {
	if err == nil {
		return nil
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	for _, nf := range notFoundMessages {
		if errors.Is(err, nf.target) {
			return appErrors.Clone(appErrors.ErrNotFound, nf.message)
		}
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.ErrNotFound
	}
	for _, conflict := range conflictErrors {
		if errors.Is(err, conflict) {
			return appErrors.Clone(appErrors.ErrConflict, conflict.Error())
		}
	}
	return appErrors.Internal(err, fallback)
}

// actorRef returns the caller id, or empty when claims are absent.
func actorRef(claims *models.JWTClaims) string {
	if claims == nil {
		return ""
	}
	return claims.UserID
}
