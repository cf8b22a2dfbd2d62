package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/shelter-adoption-api/internal/dto"
	"github.com/noah-isme/shelter-adoption-api/internal/models"
	"github.com/noah-isme/shelter-adoption-api/internal/repository"
	appErrors "github.com/noah-isme/shelter-adoption-api/pkg/errors"
)

type applicationStore interface {
	Create(ctx context.Context, app *models.AdoptionApplication) error
	GetByID(ctx context.Context, id string) (*models.AdoptionApplication, error)
	ListByCandidate(ctx context.Context, candidateID string) ([]models.AdoptionApplication, error)
	Decide(ctx context.Context, params repository.DecideParams) (*repository.Decision, error)
}

type applicationReader interface {
	GetByID(ctx context.Context, id string) (*models.AdoptionApplication, error)
}

type animalDirectory interface {
	GetByID(ctx context.Context, id string) (*models.Animal, error)
	ListMedicalRecords(ctx context.Context, animalID string) ([]models.MedicalRecord, error)
}

type interviewScheduler interface {
	Schedule(ctx context.Context, params repository.ScheduleParams) (*repository.Scheduled, error)
}

// ApplicationService drives the adoption application state machine.
type ApplicationService struct {
	workflow
	repo       applicationStore
	animals    animalDirectory
	interviews interviewScheduler
}

// NewApplicationService constructs the service.
func NewApplicationService(repo applicationStore, animals animalDirectory, interviews interviewScheduler, opts ...Option) *ApplicationService {
	return &ApplicationService{workflow: newWorkflow(opts), repo: repo, animals: animals, interviews: interviews}
}

// Submit files a new application for the candidate.
func (s *ApplicationService) Submit(ctx context.Context, candidateID string, req dto.SubmitApplicationRequest) (*models.AdoptionApplication, error) {
	if err := s.validate(req, "invalid application payload"); err != nil {
		return nil, err
	}
	animal, err := s.animals.GetByID(ctx, req.AnimalID)
	if err != nil {
		return nil, translate(err, "failed to load animal")
	}

	app := &models.AdoptionApplication{
		AnimalID:    animal.ID,
		CandidateID: candidateID,
		Reason:      strings.TrimSpace(req.Reason),
		Experience:  strings.TrimSpace(req.Experience),
		Housing:     strings.TrimSpace(req.Housing),
		Status:      models.ApplicationStatusSubmitted,
		CreatedAt:   s.now(),
	}
	if err := s.repo.Create(ctx, app); err != nil {
		return nil, translate(err, "failed to submit application")
	}

	s.metrics.ApplicationSubmitted()
	s.notifier.NotifyCoordinators(ctx, models.NotificationApplicationSubmitted,
		"New adoption application",
		fmt.Sprintf("A new application was submitted for %s", animal.Name))
	s.logger.Info("application submitted",
		zap.String("application_id", app.ID),
		zap.String("animal_id", app.AnimalID),
		zap.String("candidate_id", candidateID))
	return app, nil
}

// Get returns an application visible to the caller.
func (s *ApplicationService) Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.AdoptionApplication, error) {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to load application")
	}
	if !claims.IsStaff() && app.CandidateID != actorRef(claims) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "application belongs to another candidate")
	}
	return app, nil
}

// ListMine returns the candidate's applications.
func (s *ApplicationService) ListMine(ctx context.Context, candidateID string) ([]models.AdoptionApplication, error) {
	apps, err := s.repo.ListByCandidate(ctx, candidateID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list applications")
	}
	return apps, nil
}

// Decide records a coordinator decision. Re-deciding a closed application is
// allowed and logged.
func (s *ApplicationService) Decide(ctx context.Context, actorID, id string, req dto.DecideApplicationRequest) (*models.AdoptionApplication, error) {
	if err := s.validate(req, "invalid decision payload"); err != nil {
		return nil, err
	}
	comment := strings.TrimSpace(req.Comment)
	if comment == "" {
		comment = models.DefaultDecisionComment
	}

	decision, err := s.repo.Decide(ctx, repository.DecideParams{
		ApplicationID: id,
		Status:        req.Status,
		Comment:       comment,
		ProcessedBy:   actorID,
		At:            s.now(),
	})
	if err != nil {
		return nil, translate(err, "failed to decide application")
	}
	app := decision.Application
	if decision.PreviousStatus.Decided() && decision.PreviousStatus != app.Status {
		s.logger.Warn("decided application changed",
			zap.String("application_id", app.ID),
			zap.String("from", string(decision.PreviousStatus)),
			zap.String("to", string(app.Status)))
	}

	s.metrics.ApplicationDecided(app.Status)
	s.notifier.Push(ctx, app.CandidateID, models.NotificationApplicationStatus,
		"Application update",
		fmt.Sprintf("Your application is now %s", app.Status))
	return app, nil
}

// ScheduleInterview books an interview at an explicit time without a slot.
func (s *ApplicationService) ScheduleInterview(ctx context.Context, actorID, applicationID string, req dto.ScheduleInterviewRequest) (*models.Interview, error) {
	if err := s.validate(req, "invalid interview payload"); err != nil {
		return nil, err
	}
	now := s.now()
	if !req.ScheduledAt.After(now) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "scheduled_at must be in the future")
	}

	scheduled, err := s.interviews.Schedule(ctx, repository.ScheduleParams{
		ApplicationID: applicationID,
		InterviewerID: req.InterviewerID,
		ScheduledAt:   req.ScheduledAt,
		ProcessedBy:   actorID,
		At:            now,
	})
	if err != nil {
		return nil, translate(err, "failed to schedule interview")
	}

	when := scheduled.Interview.ScheduledAt.Format("2006-01-02 15:04 MST")
	s.notifier.Push(ctx, scheduled.Application.CandidateID, models.NotificationInterviewScheduled,
		"Interview scheduled", fmt.Sprintf("Your adoption interview is scheduled for %s", when))
	s.notifier.Push(ctx, scheduled.Interview.InterviewerID, models.NotificationInterviewScheduled,
		"Interview assigned", fmt.Sprintf("You have an adoption interview on %s", when))
	return scheduled.Interview, nil
}
