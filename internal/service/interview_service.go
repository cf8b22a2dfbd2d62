package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/shelter-adoption-api/internal/dto"
	"github.com/noah-isme/shelter-adoption-api/internal/models"
	"github.com/noah-isme/shelter-adoption-api/internal/repository"
	appErrors "github.com/noah-isme/shelter-adoption-api/pkg/errors"
)

type interviewStore interface {
	GetByID(ctx context.Context, id string) (*models.Interview, error)
	ListLive(ctx context.Context, applicationID string) ([]models.Interview, error)
	ListByApplication(ctx context.Context, applicationID string) ([]models.Interview, error)
	Confirm(ctx context.Context, id string, at time.Time) (*models.Interview, error)
	Update(ctx context.Context, params repository.UpdateParams) (*models.InterviewOutcome, error)
	Reschedule(ctx context.Context, params repository.RescheduleParams) (*repository.Rescheduled, error)
}

// InterviewService drives the interview state machine.
type InterviewService struct {
	workflow
	repo         interviewStore
	applications applicationReader
}

// NewInterviewService constructs the service.
func NewInterviewService(repo interviewStore, applications applicationReader, opts ...Option) *InterviewService {
	return &InterviewService{workflow: newWorkflow(opts), repo: repo, applications: applications}
}

// Confirm lets the owning candidate accept a scheduled interview.
func (s *InterviewService) Confirm(ctx context.Context, candidateID, interviewID string) (*models.Interview, error) {
	interview, err := s.repo.GetByID(ctx, interviewID)
	if err != nil {
		return nil, translate(err, "failed to load interview")
	}
	app, err := s.applications.GetByID(ctx, interview.ApplicationID)
	if err != nil {
		return nil, translate(err, "failed to load application")
	}
	if app.CandidateID != candidateID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the candidate may confirm this interview")
	}
	if interview.Status != models.InterviewStatusScheduled {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("interview is %s, not scheduled", interview.Status))
	}

	confirmed, err := s.repo.Confirm(ctx, interviewID, s.now())
	if err != nil {
		return nil, translate(err, "failed to confirm interview")
	}
	s.notifier.Push(ctx, confirmed.InterviewerID, models.NotificationInterviewConfirmed,
		"Interview confirmed",
		fmt.Sprintf("The candidate confirmed the interview on %s", confirmed.ScheduledAt.Format("2006-01-02 15:04 MST")))
	return confirmed, nil
}

// Update changes interview status and notes. Completion without an
// auto-approve application id rejects the application.
func (s *InterviewService) Update(ctx context.Context, claims *models.JWTClaims, interviewID string, req dto.UpdateInterviewRequest) (*models.InterviewOutcome, error) {
	if err := s.validate(req, "invalid interview update payload"); err != nil {
		return nil, err
	}
	interview, err := s.repo.GetByID(ctx, interviewID)
	if err != nil {
		return nil, translate(err, "failed to load interview")
	}
	if !claims.IsAdmin() && interview.InterviewerID != actorRef(claims) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the assigned interviewer or an administrator may update this interview")
	}
	autoApprove := req.AutoApproveApplicationID != nil && *req.AutoApproveApplicationID != ""
	if autoApprove && *req.AutoApproveApplicationID != interview.ApplicationID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "auto_approve_application_id does not match the interview's application")
	}

	outcome, err := s.repo.Update(ctx, repository.UpdateParams{
		InterviewID: interviewID,
		Status:      req.Status,
		Notes:       req.Notes,
		ProcessedBy: actorRef(claims),
		AutoApprove: autoApprove,
		At:          s.now(),
	})
	if err != nil {
		return nil, translate(err, "failed to update interview")
	}

	app := outcome.Application
	switch {
	case outcome.ApplicationChanged && app.Status.Decided():
		s.metrics.ApplicationDecided(app.Status)
		s.notifier.Push(ctx, app.CandidateID, models.NotificationApplicationStatus,
			"Application update", fmt.Sprintf("Your application is now %s", app.Status))
	case req.Status == models.InterviewStatusCancelled:
		s.notifier.Push(ctx, app.CandidateID, models.NotificationInterviewUpdated,
			"Interview cancelled", "Your adoption interview was cancelled")
	default:
		s.notifier.Push(ctx, app.CandidateID, models.NotificationInterviewUpdated,
			"Interview update", fmt.Sprintf("Your interview is now %s", outcome.Interview.Status))
	}
	s.logger.Info("interview updated",
		zap.String("interview_id", interviewID),
		zap.String("status", string(outcome.Interview.Status)),
		zap.Bool("application_changed", outcome.ApplicationChanged))
	return outcome, nil
}

// Reschedule cancels every live interview of the application and books the new
// slot in one step. The caller needs standing on each interview it cancels.
func (s *InterviewService) Reschedule(ctx context.Context, claims *models.JWTClaims, applicationID string, req dto.RescheduleInterviewRequest) (*models.Interview, error) {
	if err := s.validate(req, "invalid reschedule payload"); err != nil {
		return nil, err
	}
	app, err := s.applications.GetByID(ctx, applicationID)
	if err != nil {
		return nil, translate(err, "failed to load application")
	}
	live, err := s.repo.ListLive(ctx, applicationID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load interviews")
	}

	actor := actorRef(claims)
	isCandidate := app.CandidateID == actor
	if len(live) == 0 && !isCandidate && !claims.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the candidate or an administrator may book for this application")
	}
	expected := make([]string, 0, len(live))
	for _, interview := range live {
		if !isCandidate && !claims.IsAdmin() && interview.InterviewerID != actor {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "not permitted to cancel interview "+interview.ID)
		}
		expected = append(expected, interview.ID)
	}

	result, err := s.repo.Reschedule(ctx, repository.RescheduleParams{
		ApplicationID: applicationID,
		SlotID:        req.SlotID,
		ExpectedLive:  expected,
		ProcessedBy:   actor,
		At:            s.now(),
	})
	if err != nil {
		s.metrics.SlotBooking(bookingFailure(err))
		return nil, translate(err, "failed to reschedule interview")
	}
	s.metrics.SlotBooking("booked")

	for _, cancelled := range result.Cancelled {
		s.notifier.Push(ctx, cancelled.InterviewerID, models.NotificationInterviewUpdated,
			"Interview cancelled",
			fmt.Sprintf("The interview on %s was rescheduled", cancelled.ScheduledAt.Format("2006-01-02 15:04 MST")))
	}
	when := result.Interview.ScheduledAt.Format("2006-01-02 15:04 MST")
	s.notifier.Push(ctx, result.Application.CandidateID, models.NotificationInterviewScheduled,
		"Interview rescheduled", fmt.Sprintf("Your adoption interview is now on %s", when))
	s.notifier.Push(ctx, result.Interview.InterviewerID, models.NotificationInterviewScheduled,
		"Interview booked", fmt.Sprintf("A candidate booked your interview slot on %s", when))
	return result.Interview, nil
}

// ListByApplication returns the interview history visible to the caller.
func (s *InterviewService) ListByApplication(ctx context.Context, claims *models.JWTClaims, applicationID string) ([]models.Interview, error) {
	app, err := s.applications.GetByID(ctx, applicationID)
	if err != nil {
		return nil, translate(err, "failed to load application")
	}
	if !claims.IsStaff() && app.CandidateID != actorRef(claims) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "application belongs to another candidate")
	}
	interviews, err := s.repo.ListByApplication(ctx, applicationID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list interviews")
	}
	return interviews, nil
}
