package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shelter-adoption-api/internal/models"
)

var agreementNow = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func finalizeParams() FinalizeParams {
	return FinalizeParams{
		ApplicationID:    "app-1",
		SignedDate:       agreementNow,
		PostAdoptionPlan: "Monthly check-in",
		FirstReportDue:   agreementNow.AddDate(0, 0, 37),
		At:               agreementNow,
	}
}

func TestAgreementRepositoryFinalize(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAgreementRepository(db)
	params := finalizeParams()

	mock.ExpectBegin()
	expectLockedApplication(mock, models.ApplicationStatusApproved)
	mock.ExpectQuery("SELECT EXISTS").WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("UPDATE animals SET status").
		WithArgs("animal-1", models.AnimalStatusAdopted, agreementNow, models.AnimalStatusQuarantine, models.AnimalStatusNotAvailable).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO agreements").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE adoption_applications SET finalized_at = $2")).
		WithArgs("app-1", agreementNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO post_adoption_reports").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), params.FirstReportDue, models.ReportStatusPending, agreementNow).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	result, err := repo.Finalize(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, "app-1", result.Agreement.ApplicationID)
	require.NotNil(t, result.FirstReport)
	assert.Equal(t, result.Agreement.ID, result.FirstReport.AgreementID)
	assert.Equal(t, models.ReportStatusPending, result.FirstReport.Status)
	require.NotNil(t, result.Application.FinalizedAt)
}

func TestAgreementRepositoryFinalizeRequiresApproval(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAgreementRepository(db)

	mock.ExpectBegin()
	expectLockedApplication(mock, models.ApplicationStatusUnderReview)
	mock.ExpectRollback()

	_, err := repo.Finalize(context.Background(), finalizeParams())
	assert.ErrorIs(t, err, ErrApplicationNotApproved)
}

func TestAgreementRepositoryFinalizeRejectsDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAgreementRepository(db)

	mock.ExpectBegin()
	expectLockedApplication(mock, models.ApplicationStatusApproved)
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err := repo.Finalize(context.Background(), finalizeParams())
	assert.ErrorIs(t, err, ErrAgreementExists)
}

func TestAgreementRepositoryFinalizeRejectsUnavailableAnimal(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAgreementRepository(db)

	mock.ExpectBegin()
	expectLockedApplication(mock, models.ApplicationStatusApproved)
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(regexp.QuoteMeta("status NOT IN ($4, $5, $2)")).
		WithArgs("animal-1", models.AnimalStatusAdopted, agreementNow, models.AnimalStatusQuarantine, models.AnimalStatusNotAvailable).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.Finalize(context.Background(), finalizeParams())
	assert.ErrorIs(t, err, ErrAnimalUnavailable)
}
