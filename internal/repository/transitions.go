package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/shelter-adoption-api/internal/models"
)

// Row helpers shared by the transactional transitions. Lock order is always
// application -> interviews -> slots so concurrent transitions cannot deadlock.

const applicationColumns = `id, animal_id, candidate_id, reason, experience, housing, status,
       decision_comment, processed_by, finalized_at, created_at, updated_at`

const slotColumns = `id, interviewer_id, scheduled_at, status, application_id, created_at`

const interviewColumns = `id, application_id, slot_id, interviewer_id, scheduled_at, status,
       coordinator_notes, processed_by, created_at, updated_at`

const reportColumns = `id, agreement_id, due_date, submitted_date, report_text, volunteer_feedback,
       status, last_reminded_at, created_at`

var liveInterviewStatuses = fmt.Sprintf("('%s', '%s')", models.InterviewStatusScheduled, models.InterviewStatusConfirmed)

func lockApplication(ctx context.Context, tx *sqlx.Tx, id string) (*models.AdoptionApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM adoption_applications WHERE id = $1 FOR UPDATE`
	var app models.AdoptionApplication
	if err := tx.GetContext(ctx, &app, query, id); err != nil {
		return nil, notFound(err, ErrApplicationNotFound)
	}
	return &app, nil
}

func lockSlot(ctx context.Context, tx *sqlx.Tx, id string) (*models.InterviewSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM interview_slots WHERE id = $1 FOR UPDATE`
	var slot models.InterviewSlot
	if err := tx.GetContext(ctx, &slot, query, id); err != nil {
		return nil, notFound(err, ErrSlotNotFound)
	}
	return &slot, nil
}

func lockInterview(ctx context.Context, tx *sqlx.Tx, id string) (*models.Interview, error) {
	query := `SELECT ` + interviewColumns + ` FROM interviews WHERE id = $1 FOR UPDATE`
	var interview models.Interview
	if err := tx.GetContext(ctx, &interview, query, id); err != nil {
		return nil, notFound(err, ErrInterviewNotFound)
	}
	return &interview, nil
}

// applicationChange describes one status write on an application row.
type applicationChange struct {
	Status      models.ApplicationStatus
	Comment     *string
	ProcessedBy *string
	At          time.Time
}

// setApplicationStatus writes the new status and applies the animal side effect:
// approval reserves the animal, rejection releases a reserved animal.
func setApplicationStatus(ctx context.Context, tx *sqlx.Tx, app *models.AdoptionApplication, change applicationChange) error {
	const query = `UPDATE adoption_applications
	SET status = $2,
	    decision_comment = COALESCE($3, decision_comment),
	    processed_by = COALESCE($4, processed_by),
	    updated_at = $5
	WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, app.ID, change.Status, change.Comment, change.ProcessedBy, change.At); err != nil {
		if isUniqueViolation(err) {
			return ErrActiveApplicationExists
		}
		return fmt.Errorf("update application status: %w", err)
	}

	switch change.Status {
	case models.ApplicationStatusApproved:
		const reserve = `UPDATE animals SET status = $2, updated_at = $3 WHERE id = $1 AND status <> $4`
		if _, err := tx.ExecContext(ctx, reserve, app.AnimalID, models.AnimalStatusReserved, change.At, models.AnimalStatusAdopted); err != nil {
			return fmt.Errorf("reserve animal: %w", err)
		}
	case models.ApplicationStatusRejected:
		const release = `UPDATE animals SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`
		if _, err := tx.ExecContext(ctx, release, app.AnimalID, models.AnimalStatusAvailable, change.At, models.AnimalStatusReserved); err != nil {
			return fmt.Errorf("release animal: %w", err)
		}
	}

	app.Status = change.Status
	if change.Comment != nil {
		app.DecisionComment = change.Comment
	}
	if change.ProcessedBy != nil {
		app.ProcessedBy = change.ProcessedBy
	}
	app.UpdatedAt = change.At
	return nil
}

func insertInterview(ctx context.Context, tx *sqlx.Tx, interview *models.Interview) error {
	if interview.ID == "" {
		interview.ID = uuid.NewString()
	}
	if interview.Status == "" {
		interview.Status = models.InterviewStatusScheduled
	}
	const query = `INSERT INTO interviews
	(id, application_id, slot_id, interviewer_id, scheduled_at, status, coordinator_notes, processed_by, created_at, updated_at)
	VALUES (:id, :application_id, :slot_id, :interviewer_id, :scheduled_at, :status, :coordinator_notes, :processed_by, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, interview); err != nil {
		return fmt.Errorf("insert interview: %w", err)
	}
	return nil
}

func releaseSlot(ctx context.Context, tx *sqlx.Tx, slotID, applicationID string) error {
	const query = `UPDATE interview_slots SET status = $3, application_id = NULL
	WHERE id = $1 AND application_id = $2 AND status = $4`
	if _, err := tx.ExecContext(ctx, query, slotID, applicationID, models.SlotStatusAvailable, models.SlotStatusBooked); err != nil {
		return fmt.Errorf("release slot: %w", err)
	}
	return nil
}

func countLiveInterviews(ctx context.Context, tx *sqlx.Tx, applicationID string) (int, error) {
	query := `SELECT COUNT(*) FROM interviews WHERE application_id = $1 AND status IN ` + liveInterviewStatuses
	var count int
	if err := tx.GetContext(ctx, &count, query, applicationID); err != nil {
		return 0, fmt.Errorf("count live interviews: %w", err)
	}
	return count, nil
}

// bookSlot performs the booking on an application already locked by the caller.
// ErrSlotExpired is returned for an expired slot, after flipping the row when it
// was still available; callers decide whether to commit that write.
func bookSlot(ctx context.Context, tx *sqlx.Tx, app *models.AdoptionApplication, slotID string, now time.Time) (*models.Interview, error) {
	slot, err := lockSlot(ctx, tx, slotID)
	if err != nil {
		return nil, err
	}
	if slot.Status == models.SlotStatusExpired {
		return nil, ErrSlotExpired
	}
	if slot.Status != models.SlotStatusAvailable {
		return nil, ErrSlotUnavailable
	}
	if !slot.ScheduledAt.After(now) {
		const expire = `UPDATE interview_slots SET status = $2 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, expire, slot.ID, models.SlotStatusExpired); err != nil {
			return nil, fmt.Errorf("expire slot: %w", err)
		}
		return nil, ErrSlotExpired
	}
	if app.Status.Decided() {
		return nil, ErrApplicationDecided
	}
	live, err := countLiveInterviews(ctx, tx, app.ID)
	if err != nil {
		return nil, err
	}
	if live > 0 {
		return nil, ErrLiveInterviewExists
	}

	const book = `UPDATE interview_slots SET status = $2, application_id = $3 WHERE id = $1 AND status = $4`
	result, err := tx.ExecContext(ctx, book, slot.ID, models.SlotStatusBooked, app.ID, models.SlotStatusAvailable)
	if err != nil {
		return nil, fmt.Errorf("book slot: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("check slot booking rows: %w", err)
	}
	if rows == 0 {
		return nil, ErrSlotUnavailable
	}

	slotRef := slot.ID
	interview := &models.Interview{
		ApplicationID: app.ID,
		SlotID:        &slotRef,
		InterviewerID: slot.InterviewerID,
		ScheduledAt:   slot.ScheduledAt,
		Status:        models.InterviewStatusScheduled,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := insertInterview(ctx, tx, interview); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotUnavailable
		}
		return nil, err
	}

	if app.Status == models.ApplicationStatusSubmitted {
		if err := setApplicationStatus(ctx, tx, app, applicationChange{Status: models.ApplicationStatusUnderReview, At: now}); err != nil {
			return nil, err
		}
	}
	return interview, nil
}
