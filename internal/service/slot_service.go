package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/shelter-adoption-api/internal/dto"
	"github.com/noah-isme/shelter-adoption-api/internal/models"
	"github.com/noah-isme/shelter-adoption-api/internal/repository"
	appErrors "github.com/noah-isme/shelter-adoption-api/pkg/errors"
)

type slotStore interface {
	Create(ctx context.Context, slot *models.InterviewSlot) error
	GetByID(ctx context.Context, id string) (*models.InterviewSlot, error)
	List(ctx context.Context, filter models.SlotFilter) ([]models.InterviewSlot, error)
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
	Book(ctx context.Context, slotID, applicationID string, now time.Time) (*models.Interview, error)
	CancelBooking(ctx context.Context, slotID, applicationID string, at time.Time) (*models.InterviewSlot, error)
	Cancel(ctx context.Context, slotID string) (*models.InterviewSlot, error)
}

// SlotService manages the interview slot ledger.
type SlotService struct {
	workflow
	repo         slotStore
	applications applicationReader
}

// NewSlotService constructs the service.
func NewSlotService(repo slotStore, applications applicationReader, opts ...Option) *SlotService {
	return &SlotService{workflow: newWorkflow(opts), repo: repo, applications: applications}
}

// Create offers a new slot. Volunteers may only offer their own time.
func (s *SlotService) Create(ctx context.Context, claims *models.JWTClaims, req dto.CreateSlotRequest) (*models.InterviewSlot, error) {
	if err := s.validate(req, "invalid slot payload"); err != nil {
		return nil, err
	}
	interviewerID := req.InterviewerID
	if interviewerID == "" {
		interviewerID = actorRef(claims)
	}
	if claims != nil && claims.Role == models.RoleVolunteer && interviewerID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "volunteers may only offer their own interview slots")
	}

	slot := &models.InterviewSlot{
		InterviewerID: interviewerID,
		ScheduledAt:   req.ScheduledAt.UTC(),
		Status:        req.Status,
		CreatedAt:     s.now(),
	}
	if err := s.repo.Create(ctx, slot); err != nil {
		return nil, appErrors.Internal(err, "failed to create interview slot")
	}
	return slot, nil
}

// ExpireStale flips past available slots to expired.
func (s *SlotService) ExpireStale(ctx context.Context) (int64, error) {
	expired, err := s.repo.ExpireStale(ctx, s.now())
	if err != nil {
		return 0, appErrors.Internal(err, "failed to expire stale slots")
	}
	if expired > 0 {
		s.logger.Info("expired stale interview slots", zap.Int64("count", expired))
	}
	return expired, nil
}

// ListAvailable returns bookable slots, expiring stale ones first.
func (s *SlotService) ListAvailable(ctx context.Context, query dto.SlotQuery) ([]models.InterviewSlot, error) {
	if _, err := s.ExpireStale(ctx); err != nil {
		s.logger.Warn("slot expiry before listing failed", zap.Error(err))
	}
	from := query.From
	if now := s.now(); from.Before(now) {
		from = now
	}
	slots, err := s.repo.List(ctx, models.SlotFilter{
		InterviewerID: query.InterviewerID,
		Status:        models.SlotStatusAvailable,
		From:          from,
		Limit:         query.Limit,
	})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list interview slots")
	}
	return slots, nil
}

// Book binds the slot to the application. Exactly one of any number of
// concurrent callers for the same slot succeeds.
func (s *SlotService) Book(ctx context.Context, claims *models.JWTClaims, slotID string, req dto.BookSlotRequest) (*models.Interview, error) {
	if err := s.validate(req, "invalid booking payload"); err != nil {
		return nil, err
	}
	app, err := s.applications.GetByID(ctx, req.ApplicationID)
	if err != nil {
		return nil, translate(err, "failed to load application")
	}
	if !claims.IsStaff() && app.CandidateID != actorRef(claims) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "application belongs to another candidate")
	}

	if _, err := s.ExpireStale(ctx); err != nil {
		s.logger.Warn("slot expiry before booking failed", zap.Error(err))
	}

	interview, err := s.repo.Book(ctx, slotID, app.ID, s.now())
	if err != nil {
		s.metrics.SlotBooking(bookingFailure(err))
		return nil, translate(err, "failed to book interview slot")
	}
	s.metrics.SlotBooking("booked")

	when := interview.ScheduledAt.Format("2006-01-02 15:04 MST")
	s.notifier.Push(ctx, app.CandidateID, models.NotificationInterviewScheduled,
		"Interview booked", fmt.Sprintf("Your adoption interview is booked for %s", when))
	s.notifier.Push(ctx, interview.InterviewerID, models.NotificationInterviewScheduled,
		"Interview booked", fmt.Sprintf("A candidate booked your interview slot on %s", when))
	return interview, nil
}

// CancelBooking releases a booked slot. Only the owning candidate or an administrator may cancel.
func (s *SlotService) CancelBooking(ctx context.Context, claims *models.JWTClaims, slotID string, req dto.CancelBookingRequest) (*models.InterviewSlot, error) {
	if err := s.validate(req, "invalid cancellation payload"); err != nil {
		return nil, err
	}
	app, err := s.applications.GetByID(ctx, req.ApplicationID)
	if err != nil {
		return nil, translate(err, "failed to load application")
	}
	if !claims.IsAdmin() && app.CandidateID != actorRef(claims) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the candidate or an administrator may cancel this booking")
	}

	slot, err := s.repo.CancelBooking(ctx, slotID, app.ID, s.now())
	if err != nil {
		return nil, translate(err, "failed to cancel booking")
	}
	s.notifier.Push(ctx, slot.InterviewerID, models.NotificationInterviewUpdated,
		"Interview cancelled",
		fmt.Sprintf("The interview on %s was cancelled", slot.ScheduledAt.Format("2006-01-02 15:04 MST")))
	return slot, nil
}

// Cancel withdraws an unbooked slot.
func (s *SlotService) Cancel(ctx context.Context, slotID string) (*models.InterviewSlot, error) {
	slot, err := s.repo.Cancel(ctx, slotID)
	if err != nil {
		return nil, translate(err, "failed to cancel interview slot")
	}
	return slot, nil
}

func bookingFailure(err error) string {
	switch {
	case errors.Is(err, repository.ErrSlotUnavailable):
		return "unavailable"
	case errors.Is(err, repository.ErrSlotExpired):
		return "expired"
	case errors.Is(err, repository.ErrApplicationDecided):
		return "application_closed"
	case errors.Is(err, repository.ErrLiveInterviewExists):
		return "already_booked"
	case errors.Is(err, repository.ErrSlotNotFound), errors.Is(err, repository.ErrApplicationNotFound):
		return "not_found"
	}
	return "error"
}
