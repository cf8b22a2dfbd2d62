package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shelter-adoption-api/internal/models"
)

var interviewNow = time.Date(2026, 3, 6, 15, 0, 0, 0, time.UTC)

func expectInterviewLookup(mock sqlmock.Sqlmock, slotID interface{}, status models.InterviewStatus) {
	mock.ExpectQuery(regexp.QuoteMeta("FROM interviews WHERE id = $1")).
		WithArgs("iv-1").
		WillReturnRows(interviewRows("iv-1", slotID, status))
}

func expectLockedInterview(mock sqlmock.Sqlmock, slotID interface{}, status models.InterviewStatus) {
	mock.ExpectQuery(regexp.QuoteMeta("FROM interviews WHERE id = $1 FOR UPDATE")).
		WithArgs("iv-1").
		WillReturnRows(interviewRows("iv-1", slotID, status))
}

func TestInterviewRepositoryScheduleMovesApplicationUnderReview(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInterviewRepository(db)

	mock.ExpectBegin()
	expectLockedApplication(mock, models.ApplicationStatusSubmitted)
	mock.ExpectExec("INSERT INTO interviews").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE adoption_applications").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := repo.Schedule(context.Background(), ScheduleParams{
		ApplicationID: "app-1",
		InterviewerID: "int-1",
		ScheduledAt:   interviewNow.Add(48 * time.Hour),
		ProcessedBy:   "coord-1",
		At:            interviewNow,
	})
	require.NoError(t, err)
	assert.Nil(t, result.Interview.SlotID)
	assert.Equal(t, models.ApplicationStatusUnderReview, result.Application.Status)
}

func TestInterviewRepositoryScheduleRejectsDecided(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInterviewRepository(db)

	mock.ExpectBegin()
	expectLockedApplication(mock, models.ApplicationStatusApproved)
	mock.ExpectRollback()

	_, err := repo.Schedule(context.Background(), ScheduleParams{ApplicationID: "app-1", At: interviewNow})
	assert.ErrorIs(t, err, ErrApplicationDecided)
}

func TestInterviewRepositoryConfirmRequiresScheduled(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInterviewRepository(db)

	mock.ExpectQuery("UPDATE interviews SET status").
		WithArgs("iv-1", models.InterviewStatusConfirmed, interviewNow, models.InterviewStatusScheduled).
		WillReturnError(sql.ErrNoRows)
	expectInterviewLookup(mock, nil, models.InterviewStatusCompleted)

	_, err := repo.Confirm(context.Background(), "iv-1", interviewNow)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestInterviewRepositoryConfirm(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInterviewRepository(db)

	mock.ExpectQuery("UPDATE interviews SET status").
		WillReturnRows(interviewRows("iv-1", nil, models.InterviewStatusConfirmed))

	interview, err := repo.Confirm(context.Background(), "iv-1", interviewNow)
	require.NoError(t, err)
	assert.Equal(t, models.InterviewStatusConfirmed, interview.Status)
}

func TestInterviewRepositoryUpdateCompletedAutoApprove(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInterviewRepository(db)
	notes := "Lovely home"

	expectInterviewLookup(mock, nil, models.InterviewStatusConfirmed)
	mock.ExpectBegin()
	expectLockedApplication(mock, models.ApplicationStatusUnderReview)
	expectLockedInterview(mock, nil, models.InterviewStatusConfirmed)
	mock.ExpectExec("UPDATE interviews").
		WithArgs("iv-1", models.InterviewStatusCompleted, notes, "int-1", interviewNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE adoption_applications").
		WithArgs("app-1", models.ApplicationStatusApproved, nil, "int-1", interviewNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE animals").
		WithArgs("animal-1", models.AnimalStatusReserved, interviewNow, models.AnimalStatusAdopted).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	outcome, err := repo.Update(context.Background(), UpdateParams{
		InterviewID: "iv-1",
		Status:      models.InterviewStatusCompleted,
		Notes:       &notes,
		ProcessedBy: "int-1",
		AutoApprove: true,
		At:          interviewNow,
	})
	require.NoError(t, err)
	assert.True(t, outcome.ApplicationChanged)
	assert.Equal(t, models.ApplicationStatusApproved, outcome.Application.Status)
	assert.Equal(t, models.InterviewStatusCompleted, outcome.Interview.Status)
	require.NotNil(t, outcome.Interview.CoordinatorNotes)
	assert.Equal(t, notes, *outcome.Interview.CoordinatorNotes)
}

func TestInterviewRepositoryUpdateCompletedWithoutApprovalRejects(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInterviewRepository(db)

	expectInterviewLookup(mock, nil, models.InterviewStatusScheduled)
	mock.ExpectBegin()
	expectLockedApplication(mock, models.ApplicationStatusUnderReview)
	expectLockedInterview(mock, nil, models.InterviewStatusScheduled)
	mock.ExpectExec("UPDATE interviews").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE adoption_applications").
		WithArgs("app-1", models.ApplicationStatusRejected, nil, "int-1", interviewNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE animals").
		WithArgs("animal-1", models.AnimalStatusAvailable, interviewNow, models.AnimalStatusReserved).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	outcome, err := repo.Update(context.Background(), UpdateParams{
		InterviewID: "iv-1",
		Status:      models.InterviewStatusCompleted,
		ProcessedBy: "int-1",
		At:          interviewNow,
	})
	require.NoError(t, err)
	assert.True(t, outcome.ApplicationChanged)
	assert.Equal(t, models.ApplicationStatusRejected, outcome.Application.Status)
}

func TestInterviewRepositoryUpdateAutoApproveLeavesDecidedApplication(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInterviewRepository(db)

	expectInterviewLookup(mock, nil, models.InterviewStatusConfirmed)
	mock.ExpectBegin()
	expectLockedApplication(mock, models.ApplicationStatusRejected)
	expectLockedInterview(mock, nil, models.InterviewStatusConfirmed)
	mock.ExpectExec("UPDATE interviews").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	outcome, err := repo.Update(context.Background(), UpdateParams{
		InterviewID: "iv-1",
		Status:      models.InterviewStatusCompleted,
		AutoApprove: true,
		At:          interviewNow,
	})
	require.NoError(t, err)
	assert.False(t, outcome.ApplicationChanged)
	assert.Equal(t, models.ApplicationStatusRejected, outcome.Application.Status)
}

func TestInterviewRepositoryUpdateCancelledFreesSlot(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInterviewRepository(db)

	expectInterviewLookup(mock, "slot-1", models.InterviewStatusScheduled)
	mock.ExpectBegin()
	expectLockedApplication(mock, models.ApplicationStatusUnderReview)
	expectLockedInterview(mock, "slot-1", models.InterviewStatusScheduled)
	mock.ExpectExec("UPDATE interviews").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE interview_slots SET status = $3, application_id = NULL")).
		WithArgs("slot-1", "app-1", models.SlotStatusAvailable, models.SlotStatusBooked).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	outcome, err := repo.Update(context.Background(), UpdateParams{
		InterviewID: "iv-1",
		Status:      models.InterviewStatusCancelled,
		At:          interviewNow,
	})
	require.NoError(t, err)
	assert.False(t, outcome.ApplicationChanged)
	assert.Equal(t, models.InterviewStatusCancelled, outcome.Interview.Status)
}

func TestInterviewRepositoryUpdateRejectsTerminalInterview(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInterviewRepository(db)

	expectInterviewLookup(mock, nil, models.InterviewStatusCancelled)
	mock.ExpectBegin()
	expectLockedApplication(mock, models.ApplicationStatusUnderReview)
	expectLockedInterview(mock, nil, models.InterviewStatusCancelled)
	mock.ExpectRollback()

	_, err := repo.Update(context.Background(), UpdateParams{
		InterviewID: "iv-1",
		Status:      models.InterviewStatusConfirmed,
		At:          interviewNow,
	})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestInterviewRepositoryReschedule(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInterviewRepository(db)

	mock.ExpectBegin()
	expectLockedApplication(mock, models.ApplicationStatusUnderReview)
	mock.ExpectQuery("ORDER BY id FOR UPDATE").
		WithArgs("app-1").
		WillReturnRows(interviewRows("iv-1", "slot-old", models.InterviewStatusScheduled))
	mock.ExpectExec("UPDATE interviews SET status").
		WithArgs("iv-1", models.InterviewStatusCancelled, "cand-1", interviewNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE interview_slots SET status = $3, application_id = NULL")).
		WithArgs("slot-old", "app-1", models.SlotStatusAvailable, models.SlotStatusBooked).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectLockedSlot(mock, models.SlotStatusAvailable, interviewNow.Add(72*time.Hour), nil)
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE interview_slots SET status = $2, application_id = $3")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO interviews").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	result, err := repo.Reschedule(context.Background(), RescheduleParams{
		ApplicationID: "app-1",
		SlotID:        "slot-1",
		ExpectedLive:  []string{"iv-1"},
		ProcessedBy:   "cand-1",
		At:            interviewNow,
	})
	require.NoError(t, err)
	require.Len(t, result.Cancelled, 1)
	assert.Equal(t, models.InterviewStatusCancelled, result.Cancelled[0].Status)
	require.NotNil(t, result.Interview.SlotID)
	assert.Equal(t, "slot-1", *result.Interview.SlotID)
}

func TestInterviewRepositoryRescheduleRollsBackWhenSlotTaken(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInterviewRepository(db)

	mock.ExpectBegin()
	expectLockedApplication(mock, models.ApplicationStatusUnderReview)
	mock.ExpectQuery("ORDER BY id FOR UPDATE").
		WillReturnRows(interviewRows("iv-1", nil, models.InterviewStatusScheduled))
	mock.ExpectExec("UPDATE interviews SET status").WillReturnResult(sqlmock.NewResult(0, 1))
	expectLockedSlot(mock, models.SlotStatusBooked, interviewNow.Add(time.Hour), "app-7")
	mock.ExpectRollback()

	_, err := repo.Reschedule(context.Background(), RescheduleParams{
		ApplicationID: "app-1",
		SlotID:        "slot-1",
		ExpectedLive:  []string{"iv-1"},
		At:            interviewNow,
	})
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestInterviewRepositoryRescheduleDetectsChangedInterviews(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInterviewRepository(db)

	rows := sqlmock.NewRows(interviewRowColumns).
		AddRow("iv-1", "app-1", nil, "int-1", interviewNow, "scheduled", nil, nil, interviewNow, interviewNow).
		AddRow("iv-2", "app-1", nil, "int-2", interviewNow, "confirmed", nil, nil, interviewNow, interviewNow)

	mock.ExpectBegin()
	expectLockedApplication(mock, models.ApplicationStatusUnderReview)
	mock.ExpectQuery("ORDER BY id FOR UPDATE").WillReturnRows(rows)
	mock.ExpectRollback()

	_, err := repo.Reschedule(context.Background(), RescheduleParams{
		ApplicationID: "app-1",
		SlotID:        "slot-1",
		ExpectedLive:  []string{"iv-1"},
		At:            interviewNow,
	})
	assert.ErrorIs(t, err, ErrInterviewsChanged)
}

func TestSameInterviewSetIgnoresOrder(t *testing.T) {
	live := []models.Interview{{ID: "b"}, {ID: "a"}}
	assert.True(t, sameInterviewSet(live, []string{"a", "b"}))
	assert.False(t, sameInterviewSet(live, []string{"a", "c"}))
	assert.False(t, sameInterviewSet(live, []string{"a"}))
	assert.True(t, sameInterviewSet(nil, nil))
}
