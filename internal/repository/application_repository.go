package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/shelter-adoption-api/internal/models"
)

// ApplicationRepository persists adoption applications.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs the repository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Create inserts a submitted application unless the candidate already holds an
// active one for the same animal. An advisory lock on the pair serialises
// concurrent submissions; the partial unique index is the last line.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.AdoptionApplication) (err error) {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	if app.Status == "" {
		app.Status = models.ApplicationStatusSubmitted
	}
	now := time.Now().UTC()
	if app.CreatedAt.IsZero() {
		app.CreatedAt = now
	}
	app.UpdatedAt = app.CreatedAt

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin application transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, app.CandidateID+":"+app.AnimalID); err != nil {
		return fmt.Errorf("lock candidate animal pair: %w", err)
	}

	const existsQuery = `SELECT EXISTS (
	SELECT 1 FROM adoption_applications
	WHERE candidate_id = $1 AND animal_id = $2
	  AND (status IN ('submitted', 'under_review') OR (status = 'approved' AND finalized_at IS NULL))
)`
	var exists bool
	if err = tx.GetContext(ctx, &exists, existsQuery, app.CandidateID, app.AnimalID); err != nil {
		return fmt.Errorf("check active application: %w", err)
	}
	if exists {
		return ErrActiveApplicationExists
	}

	const insertQuery = `INSERT INTO adoption_applications
	(id, animal_id, candidate_id, reason, experience, housing, status, created_at, updated_at)
	VALUES (:id, :animal_id, :candidate_id, :reason, :experience, :housing, :status, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, app); err != nil {
		if isUniqueViolation(err) {
			return ErrActiveApplicationExists
		}
		return fmt.Errorf("insert application: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit application: %w", err)
	}
	return nil
}

// GetByID fetches an application by identifier.
func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*models.AdoptionApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM adoption_applications WHERE id = $1`
	var app models.AdoptionApplication
	if err := r.db.GetContext(ctx, &app, query, id); err != nil {
		return nil, notFound(err, ErrApplicationNotFound)
	}
	return &app, nil
}

// ListByCandidate returns a candidate's applications, newest first.
func (r *ApplicationRepository) ListByCandidate(ctx context.Context, candidateID string) ([]models.AdoptionApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM adoption_applications WHERE candidate_id = $1 ORDER BY created_at DESC`
	var apps []models.AdoptionApplication
	if err := r.db.SelectContext(ctx, &apps, query, candidateID); err != nil {
		return nil, fmt.Errorf("list candidate applications: %w", err)
	}
	return apps, nil
}

// DecideParams groups the inputs of a coordinator decision.
type DecideParams struct {
	ApplicationID string
	Status        models.ApplicationStatus
	Comment       string
	ProcessedBy   string
	At            time.Time
}

// Decision reports the stored application and the status it held before.
type Decision struct {
	Application    *models.AdoptionApplication
	PreviousStatus models.ApplicationStatus
}

// Decide sets the application status with its animal side effect in one transaction.
func (r *ApplicationRepository) Decide(ctx context.Context, params DecideParams) (result *Decision, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin decision transaction: %w", err)
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
	previous := app.Status

	comment := params.Comment
	processedBy := params.ProcessedBy
	change := applicationChange{Status: params.Status, Comment: &comment, At: params.At}
	if processedBy != "" {
		change.ProcessedBy = &processedBy
	}
	if err = setApplicationStatus(ctx, tx, app, change); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit decision: %w", err)
	}
	return &Decision{Application: app, PreviousStatus: previous}, nil
}
