package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/shelter-adoption-api/internal/models"
)

// InterviewRepository persists interviews and the transitions that touch them.
type InterviewRepository struct {
	db *sqlx.DB
}

// NewInterviewRepository constructs the repository.
func NewInterviewRepository(db *sqlx.DB) *InterviewRepository {
	return &InterviewRepository{db: db}
}

// GetByID fetches an interview by identifier.
func (r *InterviewRepository) GetByID(ctx context.Context, id string) (*models.Interview, error) {
	query := `SELECT ` + interviewColumns + ` FROM interviews WHERE id = $1`
	var interview models.Interview
	if err := r.db.GetContext(ctx, &interview, query, id); err != nil {
		return nil, notFound(err, ErrInterviewNotFound)
	}
	return &interview, nil
}

// ListLive returns the scheduled or confirmed interviews of an application.
func (r *InterviewRepository) ListLive(ctx context.Context, applicationID string) ([]models.Interview, error) {
	query := `SELECT ` + interviewColumns + ` FROM interviews
	WHERE application_id = $1 AND status IN ` + liveInterviewStatuses + ` ORDER BY scheduled_at ASC`
	var interviews []models.Interview
	if err := r.db.SelectContext(ctx, &interviews, query, applicationID); err != nil {
		return nil, fmt.Errorf("list live interviews: %w", err)
	}
	return interviews, nil
}

// ListByApplication returns every interview of an application.
func (r *InterviewRepository) ListByApplication(ctx context.Context, applicationID string) ([]models.Interview, error) {
	query := `SELECT ` + interviewColumns + ` FROM interviews WHERE application_id = $1 ORDER BY scheduled_at ASC`
	var interviews []models.Interview
	if err := r.db.SelectContext(ctx, &interviews, query, applicationID); err != nil {
		return nil, fmt.Errorf("list application interviews: %w", err)
	}
	return interviews, nil
}

// ScheduleParams groups the inputs of a direct interview scheduling.
type ScheduleParams struct {
	ApplicationID string
	InterviewerID string
	ScheduledAt   time.Time
	ProcessedBy   string
	At            time.Time
}

// Scheduled reports the new interview together with the owning application.
type Scheduled struct {
	Interview   *models.Interview
	Application *models.AdoptionApplication
}

// Schedule creates an interview without a slot and moves a submitted
// application under review.
func (r *InterviewRepository) Schedule(ctx context.Context, params ScheduleParams) (result *Scheduled, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin schedule transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	app, err := lockApplication(ctx, tx, params.ApplicationID)
	if err != nil {
		return nil, err
	}
	if app.Status.Decided() {
		return nil, ErrApplicationDecided
	}

	interview := &models.Interview{
		ApplicationID: app.ID,
		InterviewerID: params.InterviewerID,
		ScheduledAt:   params.ScheduledAt,
		Status:        models.InterviewStatusScheduled,
		CreatedAt:     params.At,
		UpdatedAt:     params.At,
	}
	if params.ProcessedBy != "" {
		processedBy := params.ProcessedBy
		interview.ProcessedBy = &processedBy
	}
	if err = insertInterview(ctx, tx, interview); err != nil {
		return nil, err
	}
	if app.Status == models.ApplicationStatusSubmitted {
		if err = setApplicationStatus(ctx, tx, app, applicationChange{Status: models.ApplicationStatusUnderReview, At: params.At}); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit schedule: %w", err)
	}
	return &Scheduled{Interview: interview, Application: app}, nil
}

// Confirm moves a scheduled interview to confirmed.
func (r *InterviewRepository) Confirm(ctx context.Context, id string, at time.Time) (*models.Interview, error) {
	query := `UPDATE interviews SET status = $2, updated_at = $3
	WHERE id = $1 AND status = $4
	RETURNING ` + interviewColumns
	var interview models.Interview
	err := r.db.GetContext(ctx, &interview, query, id, models.InterviewStatusConfirmed, at, models.InterviewStatusScheduled)
	if err == nil {
		return &interview, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("confirm interview: %w", err)
	}
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrInvalidTransition
}

// UpdateParams groups the inputs of an interviewer update.
type UpdateParams struct {
	InterviewID string
	Status      models.InterviewStatus
	Notes       *string
	ProcessedBy string
	AutoApprove bool
	At          time.Time
}

// Update applies an interview status change and its application side effect:
// completion approves (with AutoApprove) or rejects the application, cancellation
// frees the slot and returns an undecided application to review.
func (r *InterviewRepository) Update(ctx context.Context, params UpdateParams) (outcome *models.InterviewOutcome, err error) {
	current, err := r.GetByID(ctx, params.InterviewID)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin interview update transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	app, err := lockApplication(ctx, tx, current.ApplicationID)
	if err != nil {
		return nil, err
	}
	interview, err := lockInterview(ctx, tx, params.InterviewID)
	if err != nil {
		return nil, err
	}
	if !interview.Status.CanTransitionTo(params.Status) {
		return nil, ErrInvalidTransition
	}

	var processedBy *string
	if params.ProcessedBy != "" {
		actor := params.ProcessedBy
		processedBy = &actor
	}
	const updateQuery = `UPDATE interviews
	SET status = $2,
	    coordinator_notes = COALESCE($3, coordinator_notes),
	    processed_by = COALESCE($4, processed_by),
	    updated_at = $5
	WHERE id = $1`
	if _, err = tx.ExecContext(ctx, updateQuery, interview.ID, params.Status, params.Notes, processedBy, params.At); err != nil {
		return nil, fmt.Errorf("update interview: %w", err)
	}
	interview.Status = params.Status
	if params.Notes != nil {
		interview.CoordinatorNotes = params.Notes
	}
	if processedBy != nil {
		interview.ProcessedBy = processedBy
	}
	interview.UpdatedAt = params.At

	outcome = &models.InterviewOutcome{Interview: interview, Application: app}
	switch params.Status {
	case models.InterviewStatusCompleted:
		var next models.ApplicationStatus
		if params.AutoApprove {
			if app.Status.Pending() {
				next = models.ApplicationStatusApproved
			}
		} else {
			next = models.ApplicationStatusRejected
		}
		if next != "" && next != app.Status {
			if err = setApplicationStatus(ctx, tx, app, applicationChange{Status: next, ProcessedBy: processedBy, At: params.At}); err != nil {
				return nil, err
			}
			outcome.ApplicationChanged = true
		}
	case models.InterviewStatusCancelled:
		if interview.SlotID != nil {
			if err = releaseSlot(ctx, tx, *interview.SlotID, app.ID); err != nil {
				return nil, err
			}
		}
		if app.Status == models.ApplicationStatusSubmitted {
			if err = setApplicationStatus(ctx, tx, app, applicationChange{Status: models.ApplicationStatusUnderReview, At: params.At}); err != nil {
				return nil, err
			}
			outcome.ApplicationChanged = true
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit interview update: %w", err)
	}
	return outcome, nil
}

// RescheduleParams groups the inputs of a reschedule.
type RescheduleParams struct {
	ApplicationID string
	SlotID        string
	// ExpectedLive lists the live interview ids the caller authorised.
	ExpectedLive []string
	ProcessedBy  string
	At           time.Time
}

// Rescheduled reports the cancelled interviews and the new booking.
type Rescheduled struct {
	Cancelled   []models.Interview
	Interview   *models.Interview
	Application *models.AdoptionApplication
}

// Reschedule cancels the application's live interviews, frees their slots and
// books the new slot in a single transaction. Nothing is written when any step fails.
func (r *InterviewRepository) Reschedule(ctx context.Context, params RescheduleParams) (result *Rescheduled, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin reschedule transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	app, err := lockApplication(ctx, tx, params.ApplicationID)
	if err != nil {
		return nil, err
	}

	liveQuery := `SELECT ` + interviewColumns + ` FROM interviews
	WHERE application_id = $1 AND status IN ` + liveInterviewStatuses + ` ORDER BY id FOR UPDATE`
	var live []models.Interview
	if err = tx.SelectContext(ctx, &live, liveQuery, app.ID); err != nil {
		return nil, fmt.Errorf("lock live interviews: %w", err)
	}
	if !sameInterviewSet(live, params.ExpectedLive) {
		return nil, ErrInterviewsChanged
	}

	var processedBy *string
	if params.ProcessedBy != "" {
		actor := params.ProcessedBy
		processedBy = &actor
	}
	const cancelQuery = `UPDATE interviews SET status = $2, processed_by = COALESCE($3, processed_by), updated_at = $4 WHERE id = $1`
	for i := range live {
		if _, err = tx.ExecContext(ctx, cancelQuery, live[i].ID, models.InterviewStatusCancelled, processedBy, params.At); err != nil {
			return nil, fmt.Errorf("cancel interview %s: %w", live[i].ID, err)
		}
		if live[i].SlotID != nil {
			if err = releaseSlot(ctx, tx, *live[i].SlotID, app.ID); err != nil {
				return nil, err
			}
		}
		live[i].Status = models.InterviewStatusCancelled
		live[i].UpdatedAt = params.At
	}

	interview, err := bookSlot(ctx, tx, app, params.SlotID, params.At)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reschedule: %w", err)
	}
	return &Rescheduled{Cancelled: live, Interview: interview, Application: app}, nil
}

func sameInterviewSet(live []models.Interview, expected []string) bool {
	if len(live) != len(expected) {
		return false
	}
	ids := make([]string, len(live))
	for i, interview := range live {
		ids[i] = interview.ID
	}
	want := append([]string(nil), expected...)
	sort.Strings(ids)
	sort.Strings(want)
	for i := range ids {
		if ids[i] != want[i] {
			return false
		}
	}
	return true
}
