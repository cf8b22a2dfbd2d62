package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/shelter-adoption-api/internal/models"
)

// SlotRepository persists the interview slot ledger.
type SlotRepository struct {
	db *sqlx.DB
}

// NewSlotRepository constructs the repository.
func NewSlotRepository(db *sqlx.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

// Create inserts a slot.
func (r *SlotRepository) Create(ctx context.Context, slot *models.InterviewSlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	if slot.Status == "" {
		slot.Status = models.SlotStatusAvailable
	}
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO interview_slots (id, interviewer_id, scheduled_at, status, application_id, created_at)
	VALUES (:id, :interviewer_id, :scheduled_at, :status, :application_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("create interview slot: %w", err)
	}
	return nil
}

// GetByID fetches a slot by identifier.
func (r *SlotRepository) GetByID(ctx context.Context, id string) (*models.InterviewSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM interview_slots WHERE id = $1`
	var slot models.InterviewSlot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, notFound(err, ErrSlotNotFound)
	}
	return &slot, nil
}

// List returns slots matching the filter ordered by start time.
func (r *SlotRepository) List(ctx context.Context, filter models.SlotFilter) ([]models.InterviewSlot, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 3)
	builder.WriteString(`SELECT ` + slotColumns + ` FROM interview_slots`)

	conditions := make([]string, 0, 3)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.InterviewerID != "" {
		args = append(args, filter.InterviewerID)
		conditions = append(conditions, fmt.Sprintf("interviewer_id = $%d", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		conditions = append(conditions, fmt.Sprintf("scheduled_at >= $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY scheduled_at ASC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d", limit))

	var slots []models.InterviewSlot
	if err := r.db.SelectContext(ctx, &slots, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list interview slots: %w", err)
	}
	return slots, nil
}

// ExpireStale flips every available slot whose start time has passed to expired.
func (r *SlotRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	const query = `UPDATE interview_slots SET status = $1 WHERE status = $2 AND scheduled_at <= $3`
	result, err := r.db.ExecContext(ctx, query, models.SlotStatusExpired, models.SlotStatusAvailable, now)
	if err != nil {
		return 0, fmt.Errorf("expire stale slots: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check expired slot rows: %w", err)
	}
	return rows, nil
}

// Book binds an available slot to the application and creates its interview.
// A slot found in the past is expired and that write is committed before
// ErrSlotExpired is returned.
func (r *SlotRepository) Book(ctx context.Context, slotID, applicationID string, now time.Time) (interview *models.Interview, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin booking transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	app, err := lockApplication(ctx, tx, applicationID)
	if err != nil {
		return nil, err
	}

	interview, err = bookSlot(ctx, tx, app, slotID, now)
	if errors.Is(err, ErrSlotExpired) {
		if commitErr := tx.Commit(); commitErr != nil {
			return nil, fmt.Errorf("commit slot expiry: %w", commitErr)
		}
		committed = true
		return nil, ErrSlotExpired
	}
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit booking: %w", err)
	}
	committed = true
	return interview, nil
}

// CancelBooking returns a booked slot to the pool and cancels the live
// interviews it carried for the application.
func (r *SlotRepository) CancelBooking(ctx context.Context, slotID, applicationID string, at time.Time) (slot *models.InterviewSlot, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin cancel booking transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = lockApplication(ctx, tx, applicationID); err != nil {
		return nil, err
	}
	slot, err = lockSlot(ctx, tx, slotID)
	if err != nil {
		return nil, err
	}
	if slot.Status != models.SlotStatusBooked || slot.ApplicationID == nil || *slot.ApplicationID != applicationID {
		return nil, ErrSlotNotBound
	}

	cancelInterviews := `UPDATE interviews SET status = $3, updated_at = $4
	WHERE slot_id = $1 AND application_id = $2 AND status IN ` + liveInterviewStatuses
	if _, err = tx.ExecContext(ctx, cancelInterviews, slotID, applicationID, models.InterviewStatusCancelled, at); err != nil {
		return nil, fmt.Errorf("cancel slot interviews: %w", err)
	}
	if err = releaseSlot(ctx, tx, slotID, applicationID); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit cancel booking: %w", err)
	}
	slot.Status = models.SlotStatusAvailable
	slot.ApplicationID = nil
	return slot, nil
}

// Cancel withdraws an unbooked slot from the ledger.
func (r *SlotRepository) Cancel(ctx context.Context, slotID string) (slot *models.InterviewSlot, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin cancel slot transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	slot, err = lockSlot(ctx, tx, slotID)
	if err != nil {
		return nil, err
	}
	if slot.Status == models.SlotStatusBooked {
		return nil, ErrSlotBooked
	}

	const query = `UPDATE interview_slots SET status = $2 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, query, slotID, models.SlotStatusCancelled); err != nil {
		return nil, fmt.Errorf("cancel interview slot: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit cancel slot: %w", err)
	}
	slot.Status = models.SlotStatusCancelled
	return slot, nil
}
