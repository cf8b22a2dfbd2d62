package repository

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shelter-adoption-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = sqlxDB.Close()
	}
	return sqlxDB, mock, cleanup
}

var applicationRowColumns = []string{"id", "animal_id", "candidate_id", "reason", "experience", "housing", "status",
	"decision_comment", "processed_by", "finalized_at", "created_at", "updated_at"}

func applicationRows(id string, status models.ApplicationStatus) *sqlmock.Rows {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(applicationRowColumns).
		AddRow(id, "animal-1", "cand-1", "Loves dogs", "", "", string(status), nil, nil, nil, now, now)
}

var slotRowColumns = []string{"id", "interviewer_id", "scheduled_at", "status", "application_id", "created_at"}

func slotRows(id string, status models.SlotStatus, at time.Time, applicationID interface{}) *sqlmock.Rows {
	return sqlmock.NewRows(slotRowColumns).
		AddRow(id, "int-1", at, string(status), applicationID, at.Add(-48*time.Hour))
}

var interviewRowColumns = []string{"id", "application_id", "slot_id", "interviewer_id", "scheduled_at", "status",
	"coordinator_notes", "processed_by", "created_at", "updated_at"}

func interviewRows(id string, slotID interface{}, status models.InterviewStatus) *sqlmock.Rows {
	at := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(interviewRowColumns).
		AddRow(id, "app-1", slotID, "int-1", at, string(status), nil, nil, at, at)
}

var reportRowColumns = []string{"id", "agreement_id", "due_date", "submitted_date", "report_text", "volunteer_feedback",
	"status", "last_reminded_at", "created_at"}
