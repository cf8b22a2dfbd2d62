//go:build integration

package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/shelter-adoption-api/db/migrations"
	"github.com/noah-isme/shelter-adoption-api/internal/models"
	"github.com/noah-isme/shelter-adoption-api/pkg/database"
)

// startPostgres reuses INTEGRATION_PG_DSN when set, otherwise boots a container.
func startPostgres(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()

	dsn := os.Getenv("INTEGRATION_PG_DSN")
	if dsn == "" {
		container, err := postgres.Run(ctx,
			"postgres:16",
			postgres.WithDatabase("shelter"),
			postgres.WithUsername("shelter"),
			postgres.WithPassword("shelter"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
			),
		)
		require.NoError(t, err)
		t.Cleanup(func() { _ = container.Terminate(context.Background()) })

		dsn, err = container.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)
	}

	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(ctx, db, migrations.FS))
	return db
}

func seedWorkflow(t *testing.T, db *sqlx.DB, candidates int) (animalID, interviewerID string, candidateIDs []string) {
	t.Helper()
	suffix := fmt.Sprintf("%d", time.Now().UnixNano())
	animalID = "animal-" + suffix
	_, err := db.Exec(`INSERT INTO animals (id, name, species) VALUES ($1, 'Rex', 'dog')`, animalID)
	require.NoError(t, err)
	interviewerID = "int-" + suffix
	_, err = db.Exec(`INSERT INTO users (id, email, full_name, role) VALUES ($1, $2, 'Ivy', 'VOLUNTEER')`,
		interviewerID, interviewerID+"@shelter.test")
	require.NoError(t, err)
	for i := 0; i < candidates; i++ {
		id := fmt.Sprintf("cand-%s-%d", suffix, i)
		_, err = db.Exec(`INSERT INTO users (id, email, full_name, role) VALUES ($1, $2, 'Candidate', 'CANDIDATE')`, id, id+"@shelter.test")
		require.NoError(t, err)
		candidateIDs = append(candidateIDs, id)
	}
	return animalID, interviewerID, candidateIDs
}

func TestIntegrationConcurrentBookingSingleWinner(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()
	const contenders = 8

	animalID, interviewerID, candidates := seedWorkflow(t, db, contenders)
	apps := NewApplicationRepository(db)
	slots := NewSlotRepository(db)

	applicationIDs := make([]string, contenders)
	for i, candidateID := range candidates {
		app := &models.AdoptionApplication{AnimalID: animalID, CandidateID: candidateID, Reason: "Loves dogs"}
		require.NoError(t, apps.Create(ctx, app))
		applicationIDs[i] = app.ID
	}

	slot := &models.InterviewSlot{InterviewerID: interviewerID, ScheduledAt: time.Now().Add(72 * time.Hour)}
	require.NoError(t, slots.Create(ctx, slot))

	var wins, losses int32
	var g errgroup.Group
	for _, applicationID := range applicationIDs {
		applicationID := applicationID
		g.Go(func() error {
			_, err := slots.Book(ctx, slot.ID, applicationID, time.Now())
			switch {
			case err == nil:
				atomic.AddInt32(&wins, 1)
				return nil
			case errors.Is(err, ErrSlotUnavailable):
				atomic.AddInt32(&losses, 1)
				return nil
			default:
				return err
			}
		})
	}
	require.NoError(t, g.Wait())
	assert.EqualValues(t, 1, wins)
	assert.EqualValues(t, contenders-1, losses)

	var live int
	require.NoError(t, db.Get(&live, `SELECT COUNT(*) FROM interviews WHERE slot_id = $1 AND status IN ('scheduled', 'confirmed')`, slot.ID))
	assert.Equal(t, 1, live)
}

func TestIntegrationConcurrentSubmitSingleActiveApplication(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()
	animalID, _, candidates := seedWorkflow(t, db, 1)
	apps := NewApplicationRepository(db)

	var created, rejected int32
	var g errgroup.Group
	for i := 0; i < 6; i++ {
		g.Go(func() error {
			err := apps.Create(ctx, &models.AdoptionApplication{AnimalID: animalID, CandidateID: candidates[0], Reason: "Again"})
			switch {
			case err == nil:
				atomic.AddInt32(&created, 1)
				return nil
			case errors.Is(err, ErrActiveApplicationExists):
				atomic.AddInt32(&rejected, 1)
				return nil
			default:
				return err
			}
		})
	}
	require.NoError(t, g.Wait())
	assert.EqualValues(t, 1, created)
	assert.EqualValues(t, 5, rejected)
}

func TestIntegrationResubmitAfterRejectionAndFinalization(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()
	animalID, _, candidates := seedWorkflow(t, db, 1)
	apps := NewApplicationRepository(db)
	agreements := NewAgreementRepository(db)
	candidateID := candidates[0]
	now := time.Now().UTC()

	first := &models.AdoptionApplication{AnimalID: animalID, CandidateID: candidateID, Reason: "First try"}
	require.NoError(t, apps.Create(ctx, first))
	err := apps.Create(ctx, &models.AdoptionApplication{AnimalID: animalID, CandidateID: candidateID, Reason: "Duplicate"})
	require.ErrorIs(t, err, ErrActiveApplicationExists)

	_, err = apps.Decide(ctx, DecideParams{ApplicationID: first.ID, Status: models.ApplicationStatusRejected, Comment: "Not yet", At: now})
	require.NoError(t, err)

	second := &models.AdoptionApplication{AnimalID: animalID, CandidateID: candidateID, Reason: "Second try"}
	require.NoError(t, apps.Create(ctx, second), "a rejected application no longer counts as active")

	_, err = apps.Decide(ctx, DecideParams{ApplicationID: second.ID, Status: models.ApplicationStatusApproved, Comment: "Welcome", At: now})
	require.NoError(t, err)
	err = apps.Create(ctx, &models.AdoptionApplication{AnimalID: animalID, CandidateID: candidateID, Reason: "While approved"})
	require.ErrorIs(t, err, ErrActiveApplicationExists)

	_, err = agreements.Finalize(ctx, FinalizeParams{
		ApplicationID:  second.ID,
		SignedDate:     now,
		FirstReportDue: now.AddDate(0, 0, 30),
		At:             now,
	})
	require.NoError(t, err)

	third := &models.AdoptionApplication{AnimalID: animalID, CandidateID: candidateID, Reason: "Another pet later"}
	require.NoError(t, apps.Create(ctx, third), "a finalized approval no longer counts as active")

	_, err = apps.Decide(ctx, DecideParams{ApplicationID: first.ID, Status: models.ApplicationStatusApproved, Comment: "Reconsidered", At: now})
	assert.ErrorIs(t, err, ErrActiveApplicationExists)

	var status string
	require.NoError(t, db.Get(&status, `SELECT status FROM adoption_applications WHERE id = $1`, first.ID))
	assert.Equal(t, string(models.ApplicationStatusRejected), status)
}
