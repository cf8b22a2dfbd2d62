package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/shelter-adoption-api/internal/models"
)

// AgreementRepository persists adoption agreements.
type AgreementRepository struct {
	db *sqlx.DB
}

// NewAgreementRepository constructs the repository.
func NewAgreementRepository(db *sqlx.DB) *AgreementRepository {
	return &AgreementRepository{db: db}
}

const agreementColumns = `id, application_id, signed_date, post_adoption_plan, created_at`

// GetByID fetches an agreement by identifier.
func (r *AgreementRepository) GetByID(ctx context.Context, id string) (*models.Agreement, error) {
	query := `SELECT ` + agreementColumns + ` FROM agreements WHERE id = $1`
	var agreement models.Agreement
	if err := r.db.GetContext(ctx, &agreement, query, id); err != nil {
		return nil, notFound(err, ErrAgreementNotFound)
	}
	return &agreement, nil
}

// GetByApplication fetches the agreement created for an application.
func (r *AgreementRepository) GetByApplication(ctx context.Context, applicationID string) (*models.Agreement, error) {
	query := `SELECT ` + agreementColumns + ` FROM agreements WHERE application_id = $1`
	var agreement models.Agreement
	if err := r.db.GetContext(ctx, &agreement, query, applicationID); err != nil {
		return nil, notFound(err, ErrAgreementNotFound)
	}
	return &agreement, nil
}

// FinalizeParams groups the inputs of an adoption completion.
type FinalizeParams struct {
	ApplicationID    string
	SignedDate       time.Time
	PostAdoptionPlan string
	FirstReportDue   time.Time
	At               time.Time
}

// Finalized reports the created agreement and its first pending report.
type Finalized struct {
	Agreement   *models.Agreement
	FirstReport *models.PostAdoptionReport
	Application *models.AdoptionApplication
}

// Finalize creates the agreement, marks the animal adopted, closes the
// application and schedules the first report. Either all of it lands or none.
func (r *AgreementRepository) Finalize(ctx context.Context, params FinalizeParams) (result *Finalized, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin agreement transaction: %w", err)
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
	if app.Status != models.ApplicationStatusApproved {
		return nil, ErrApplicationNotApproved
	}

	var exists bool
	if err = tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM agreements WHERE application_id = $1)`, app.ID); err != nil {
		return nil, fmt.Errorf("check existing agreement: %w", err)
	}
	if exists {
		return nil, ErrAgreementExists
	}

	const adoptQuery = `UPDATE animals SET status = $2, updated_at = $3
	WHERE id = $1 AND status NOT IN ($4, $5, $2)`
	res, err := tx.ExecContext(ctx, adoptQuery, app.AnimalID, models.AnimalStatusAdopted, params.At,
		models.AnimalStatusQuarantine, models.AnimalStatusNotAvailable)
	if err != nil {
		return nil, fmt.Errorf("mark animal adopted: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("check animal update rows: %w", err)
	}
	if rows == 0 {
		return nil, ErrAnimalUnavailable
	}

	agreement := &models.Agreement{
		ID:               uuid.NewString(),
		ApplicationID:    app.ID,
		SignedDate:       params.SignedDate,
		PostAdoptionPlan: params.PostAdoptionPlan,
		CreatedAt:        params.At,
	}
	const insertAgreement = `INSERT INTO agreements (id, application_id, signed_date, post_adoption_plan, created_at)
	VALUES (:id, :application_id, :signed_date, :post_adoption_plan, :created_at)`
	if _, err = tx.NamedExecContext(ctx, insertAgreement, agreement); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAgreementExists
		}
		return nil, fmt.Errorf("insert agreement: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `UPDATE adoption_applications SET finalized_at = $2, updated_at = $2 WHERE id = $1`, app.ID, params.At); err != nil {
		return nil, fmt.Errorf("finalize application: %w", err)
	}
	finalizedAt := params.At
	app.FinalizedAt = &finalizedAt
	app.UpdatedAt = params.At

	report, err := insertPendingReport(ctx, tx, agreement.ID, params.FirstReportDue, params.At)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit agreement: %w", err)
	}
	return &Finalized{Agreement: agreement, FirstReport: report, Application: app}, nil
}
