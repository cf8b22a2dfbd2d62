package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/shelter-adoption-api/internal/dto"
	"github.com/noah-isme/shelter-adoption-api/internal/models"
	"github.com/noah-isme/shelter-adoption-api/internal/repository"
	appErrors "github.com/noah-isme/shelter-adoption-api/pkg/errors"
)

// slotLedgerStub serialises bookings the way the row lock does.
type slotLedgerStub struct {
	mu         sync.Mutex
	slots      map[string]*models.InterviewSlot
	interviews []models.Interview
	created    *models.InterviewSlot
	expireRuns int32
}

func newSlotLedgerStub(slots ...*models.InterviewSlot) *slotLedgerStub {
	stub := &slotLedgerStub{slots: map[string]*models.InterviewSlot{}}
	for _, slot := range slots {
		stub.slots[slot.ID] = slot
	}
	return stub
}

func (s *slotLedgerStub) Create(ctx context.Context, slot *models.InterviewSlot) error {
	if slot.Status == "" {
		slot.Status = models.SlotStatusAvailable
	}
	slot.ID = "slot-new"
	s.created = slot
	return nil
}

func (s *slotLedgerStub) GetByID(ctx context.Context, id string) (*models.InterviewSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[id]
	if !ok {
		return nil, repository.ErrSlotNotFound
	}
	copied := *slot
	return &copied, nil
}

func (s *slotLedgerStub) List(ctx context.Context, filter models.SlotFilter) ([]models.InterviewSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.InterviewSlot
	for _, slot := range s.slots {
		if slot.Status == filter.Status && !slot.ScheduledAt.Before(filter.From) {
			out = append(out, *slot)
		}
	}
	return out, nil
}

func (s *slotLedgerStub) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	atomic.AddInt32(&s.expireRuns, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, slot := range s.slots {
		if slot.Status == models.SlotStatusAvailable && !slot.ScheduledAt.After(now) {
			slot.Status = models.SlotStatusExpired
			n++
		}
	}
	return n, nil
}

func (s *slotLedgerStub) Book(ctx context.Context, slotID, applicationID string, now time.Time) (*models.Interview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[slotID]
	if !ok {
		return nil, repository.ErrSlotNotFound
	}
	if slot.Status == models.SlotStatusExpired {
		return nil, repository.ErrSlotExpired
	}
	if slot.Status != models.SlotStatusAvailable {
		return nil, repository.ErrSlotUnavailable
	}
	if !slot.ScheduledAt.After(now) {
		slot.Status = models.SlotStatusExpired
		return nil, repository.ErrSlotExpired
	}
	slot.Status = models.SlotStatusBooked
	appID := applicationID
	slot.ApplicationID = &appID
	id := slotID
	interview := models.Interview{
		ID:            fmt.Sprintf("int-%d", len(s.interviews)+1),
		ApplicationID: applicationID,
		SlotID:        &id,
		InterviewerID: slot.InterviewerID,
		ScheduledAt:   slot.ScheduledAt,
		Status:        models.InterviewStatusScheduled,
	}
	s.interviews = append(s.interviews, interview)
	return &interview, nil
}

func (s *slotLedgerStub) CancelBooking(ctx context.Context, slotID, applicationID string, at time.Time) (*models.InterviewSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[slotID]
	if !ok {
		return nil, repository.ErrSlotNotFound
	}
	if slot.Status != models.SlotStatusBooked || slot.ApplicationID == nil || *slot.ApplicationID != applicationID {
		return nil, repository.ErrSlotNotBound
	}
	slot.Status = models.SlotStatusAvailable
	slot.ApplicationID = nil
	copied := *slot
	return &copied, nil
}

func (s *slotLedgerStub) Cancel(ctx context.Context, slotID string) (*models.InterviewSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[slotID]
	if !ok {
		return nil, repository.ErrSlotNotFound
	}
	if slot.Status == models.SlotStatusBooked {
		return nil, repository.ErrSlotBooked
	}
	slot.Status = models.SlotStatusCancelled
	copied := *slot
	return &copied, nil
}

func futureSlot(id string, in time.Duration) *models.InterviewSlot {
	return &models.InterviewSlot{ID: id, InterviewerID: "int-1", ScheduledAt: fixedNow.Add(in), Status: models.SlotStatusAvailable}
}

func TestSlotCreateDefaultsInterviewerToCaller(t *testing.T) {
	repo := newSlotLedgerStub()
	svc := NewSlotService(repo, newApplicationRepoStub(), WithClock(fixedClock))

	slot, err := svc.Create(context.Background(), staffClaims("vol-1", models.RoleVolunteer), dto.CreateSlotRequest{ScheduledAt: fixedNow.Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, "vol-1", slot.InterviewerID)
	assert.Equal(t, models.SlotStatusAvailable, slot.Status)

	_, err = svc.Create(context.Background(), staffClaims("vol-1", models.RoleVolunteer), dto.CreateSlotRequest{
		InterviewerID: "vol-2",
		ScheduledAt:   fixedNow.Add(time.Hour),
	})
	requireAppError(t, err, appErrors.ErrForbidden)
}

func TestSlotListAvailableExpiresStaleFirst(t *testing.T) {
	repo := newSlotLedgerStub(futureSlot("slot-past", -time.Hour), futureSlot("slot-future", time.Hour))
	svc := NewSlotService(repo, newApplicationRepoStub(), WithClock(fixedClock))

	slots, err := svc.ListAvailable(context.Background(), dto.SlotQuery{})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "slot-future", slots[0].ID)
	assert.Equal(t, models.SlotStatusExpired, repo.slots["slot-past"].Status)
}

func TestSlotBookCreatesInterviewAndNotifies(t *testing.T) {
	repo := newSlotLedgerStub(futureSlot("slot-1", 24*time.Hour))
	apps := newApplicationRepoStub(&models.AdoptionApplication{ID: "app-1", CandidateID: "cand-1", Status: models.ApplicationStatusSubmitted})
	notifier := &recordingNotifier{}
	svc := NewSlotService(repo, apps, WithClock(fixedClock), WithNotifier(notifier))

	interview, err := svc.Book(context.Background(), candidateClaims("cand-1"), "slot-1", dto.BookSlotRequest{ApplicationID: "app-1"})
	require.NoError(t, err)
	assert.Equal(t, "int-1", interview.InterviewerID)
	assert.Equal(t, models.InterviewStatusScheduled, interview.Status)
	assert.Equal(t, models.SlotStatusBooked, repo.slots["slot-1"].Status)
	assert.ElementsMatch(t, []string{"cand-1", "int-1"}, notifier.recipients())

	_, err = svc.Book(context.Background(), candidateClaims("cand-1"), "slot-1", dto.BookSlotRequest{ApplicationID: "app-1"})
	requireAppError(t, err, appErrors.ErrConflict)
}

func TestSlotBookRejectsOtherCandidatesApplication(t *testing.T) {
	repo := newSlotLedgerStub(futureSlot("slot-1", time.Hour))
	apps := newApplicationRepoStub(&models.AdoptionApplication{ID: "app-1", CandidateID: "cand-1"})
	svc := NewSlotService(repo, apps, WithClock(fixedClock))

	_, err := svc.Book(context.Background(), candidateClaims("cand-2"), "slot-1", dto.BookSlotRequest{ApplicationID: "app-1"})
	requireAppError(t, err, appErrors.ErrForbidden)
	assert.Equal(t, models.SlotStatusAvailable, repo.slots["slot-1"].Status)
}

func TestSlotBookPastSlotIsExpired(t *testing.T) {
	repo := newSlotLedgerStub(futureSlot("slot-1", -time.Minute))
	apps := newApplicationRepoStub(&models.AdoptionApplication{ID: "app-1", CandidateID: "cand-1"})
	metrics := NewMetricsService()
	svc := NewSlotService(repo, apps, WithClock(fixedClock), WithMetrics(metrics))

	_, err := svc.Book(context.Background(), candidateClaims("cand-1"), "slot-1", dto.BookSlotRequest{ApplicationID: "app-1"})
	requireAppError(t, err, appErrors.ErrConflict)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, repository.ErrSlotExpired.Error(), appErr.Message)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.slotBookings.WithLabelValues("expired")))
	assert.Equal(t, models.SlotStatusExpired, repo.slots["slot-1"].Status)
}

func TestSlotBookConcurrentCallersSingleWinner(t *testing.T) {
	const callers = 16
	repo := newSlotLedgerStub(futureSlot("slot-1", time.Hour))
	apps := newApplicationRepoStub()
	for i := 0; i < callers; i++ {
		id := fmt.Sprintf("app-%d", i)
		apps.apps[id] = &models.AdoptionApplication{ID: id, CandidateID: fmt.Sprintf("cand-%d", i)}
	}
	svc := NewSlotService(repo, apps, WithClock(fixedClock))

	var wins, conflicts int32
	var g errgroup.Group
	for i := 0; i < callers; i++ {
		i := i
		g.Go(func() error {
			_, err := svc.Book(context.Background(), candidateClaims(fmt.Sprintf("cand-%d", i)), "slot-1",
				dto.BookSlotRequest{ApplicationID: fmt.Sprintf("app-%d", i)})
			switch {
			case err == nil:
				atomic.AddInt32(&wins, 1)
			case errors.Is(err, appErrors.ErrConflict):
				atomic.AddInt32(&conflicts, 1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), wins)
	assert.Equal(t, int32(callers-1), conflicts)
	assert.Len(t, repo.interviews, 1)
}

func TestSlotCancelBookingPermissions(t *testing.T) {
	slot := futureSlot("slot-1", time.Hour)
	slot.Status = models.SlotStatusBooked
	appID := "app-1"
	slot.ApplicationID = &appID
	repo := newSlotLedgerStub(slot)
	apps := newApplicationRepoStub(&models.AdoptionApplication{ID: "app-1", CandidateID: "cand-1"})
	notifier := &recordingNotifier{}
	svc := NewSlotService(repo, apps, WithClock(fixedClock), WithNotifier(notifier))

	_, err := svc.CancelBooking(context.Background(), staffClaims("coord-1", models.RoleCoordinator), "slot-1", dto.CancelBookingRequest{ApplicationID: "app-1"})
	requireAppError(t, err, appErrors.ErrForbidden)

	released, err := svc.CancelBooking(context.Background(), candidateClaims("cand-1"), "slot-1", dto.CancelBookingRequest{ApplicationID: "app-1"})
	require.NoError(t, err)
	assert.Equal(t, models.SlotStatusAvailable, released.Status)
	assert.Equal(t, []string{"int-1"}, notifier.recipients())
}

func TestSlotCancelBookedSlotConflicts(t *testing.T) {
	slot := futureSlot("slot-1", time.Hour)
	slot.Status = models.SlotStatusBooked
	svc := NewSlotService(newSlotLedgerStub(slot), newApplicationRepoStub(), WithClock(fixedClock))

	_, err := svc.Cancel(context.Background(), "slot-1")
	requireAppError(t, err, appErrors.ErrConflict)

	_, err = svc.Cancel(context.Background(), "missing")
	requireAppError(t, err, appErrors.ErrNotFound)
}
