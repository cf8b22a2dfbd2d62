package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/shelter-adoption-api/internal/models"
)

// PostAdoptionReportRepository persists the follow-up report cadence.
type PostAdoptionReportRepository struct {
	db *sqlx.DB
}

// NewPostAdoptionReportRepository constructs the repository.
func NewPostAdoptionReportRepository(db *sqlx.DB) *PostAdoptionReportRepository {
	return &PostAdoptionReportRepository{db: db}
}

// insertPendingReport adds a pending report unless the agreement already has one.
// It returns nil when the partial unique index suppressed the insert.
func insertPendingReport(ctx context.Context, tx *sqlx.Tx, agreementID string, due, at time.Time) (*models.PostAdoptionReport, error) {
	report := &models.PostAdoptionReport{
		ID:          uuid.NewString(),
		AgreementID: agreementID,
		DueDate:     due,
		Status:      models.ReportStatusPending,
		CreatedAt:   at,
	}
	const query = `INSERT INTO post_adoption_reports (id, agreement_id, due_date, status, created_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (agreement_id) WHERE status = 'pending' DO NOTHING`
	res, err := tx.ExecContext(ctx, query, report.ID, report.AgreementID, report.DueDate, report.Status, report.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert pending report: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("check pending report rows: %w", err)
	}
	if rows == 0 {
		return nil, nil
	}
	return report, nil
}

// GetByID fetches a report by identifier.
func (r *PostAdoptionReportRepository) GetByID(ctx context.Context, id string) (*models.PostAdoptionReport, error) {
	query := `SELECT ` + reportColumns + ` FROM post_adoption_reports WHERE id = $1`
	var report models.PostAdoptionReport
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		return nil, notFound(err, ErrReportNotFound)
	}
	return &report, nil
}

// GetCandidateID resolves the candidate who owes a report through its agreement.
func (r *PostAdoptionReportRepository) GetCandidateID(ctx context.Context, reportID string) (string, error) {
	const query = `SELECT a.candidate_id
	FROM post_adoption_reports p
	JOIN agreements g ON g.id = p.agreement_id
	JOIN adoption_applications a ON a.id = g.application_id
	WHERE p.id = $1`
	var candidateID string
	if err := r.db.GetContext(ctx, &candidateID, query, reportID); err != nil {
		return "", notFound(err, ErrReportNotFound)
	}
	return candidateID, nil
}

// ListByAgreement returns an agreement's reports ordered by due date.
func (r *PostAdoptionReportRepository) ListByAgreement(ctx context.Context, agreementID string) ([]models.PostAdoptionReport, error) {
	query := `SELECT ` + reportColumns + ` FROM post_adoption_reports WHERE agreement_id = $1 ORDER BY due_date ASC`
	var reports []models.PostAdoptionReport
	if err := r.db.SelectContext(ctx, &reports, query, agreementID); err != nil {
		return nil, fmt.Errorf("list agreement reports: %w", err)
	}
	return reports, nil
}

// SubmitParams groups the inputs of a report submission.
type SubmitParams struct {
	ReportID      string
	ReportText    string
	SubmittedDate time.Time
	Status        models.ReportStatus
	NextDue       time.Time
	At            time.Time
}

// Submitted reports the stored report and the follow-up it created, if any.
type Submitted struct {
	Report *models.PostAdoptionReport
	Next   *models.PostAdoptionReport
}

// Submit stores the report content and schedules the next pending report in
// the same transaction.
func (r *PostAdoptionReportRepository) Submit(ctx context.Context, params SubmitParams) (result *Submitted, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin report transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	lockQuery := `SELECT ` + reportColumns + ` FROM post_adoption_reports WHERE id = $1 FOR UPDATE`
	var report models.PostAdoptionReport
	if err = tx.GetContext(ctx, &report, lockQuery, params.ReportID); err != nil {
		err = notFound(err, ErrReportNotFound)
		return nil, err
	}

	const updateQuery = `UPDATE post_adoption_reports SET report_text = $2, submitted_date = $3, status = $4 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, updateQuery, report.ID, params.ReportText, params.SubmittedDate, params.Status); err != nil {
		return nil, fmt.Errorf("update report: %w", err)
	}
	text := params.ReportText
	submitted := params.SubmittedDate
	report.ReportText = &text
	report.SubmittedDate = &submitted
	report.Status = params.Status

	next, err := insertPendingReport(ctx, tx, report.AgreementID, params.NextDue, params.At)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit report: %w", err)
	}
	return &Submitted{Report: &report, Next: next}, nil
}

// ScheduleNext inserts a pending report for the agreement unless one exists.
func (r *PostAdoptionReportRepository) ScheduleNext(ctx context.Context, agreementID string, due, at time.Time) (report *models.PostAdoptionReport, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin schedule report transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	report, err = insertPendingReport(ctx, tx, agreementID, due, at)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit schedule report: %w", err)
	}
	return report, nil
}

// ListOverdue returns pending reports past due that were not reminded since remindedBefore.
func (r *PostAdoptionReportRepository) ListOverdue(ctx context.Context, now, remindedBefore time.Time, limit int) ([]models.OverdueReport, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `SELECT p.id, p.agreement_id, p.due_date, p.submitted_date, p.report_text, p.volunteer_feedback,
       p.status, p.last_reminded_at, p.created_at, a.candidate_id
	FROM post_adoption_reports p
	JOIN agreements g ON g.id = p.agreement_id
	JOIN adoption_applications a ON a.id = g.application_id
	WHERE p.status = $1 AND p.due_date < $2
	  AND (p.last_reminded_at IS NULL OR p.last_reminded_at < $3)
	ORDER BY p.due_date ASC
	LIMIT $4`
	var reports []models.OverdueReport
	if err := r.db.SelectContext(ctx, &reports, query, models.ReportStatusPending, now, remindedBefore, limit); err != nil {
		return nil, fmt.Errorf("list overdue reports: %w", err)
	}
	return reports, nil
}

// MarkReminded stamps the reminder time on a report.
func (r *PostAdoptionReportRepository) MarkReminded(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE post_adoption_reports SET last_reminded_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("mark report reminded: %w", err)
	}
	return nil
}
