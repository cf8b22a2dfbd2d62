package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shelter-adoption-api/internal/dto"
	"github.com/noah-isme/shelter-adoption-api/internal/models"
	appErrors "github.com/noah-isme/shelter-adoption-api/pkg/errors"
	"github.com/noah-isme/shelter-adoption-api/pkg/jobs"
)

type notificationRepoStub struct {
	mu      sync.Mutex
	stored  []models.Notification
	err     error
	readErr error
}

func (s *notificationRepoStub) Create(ctx context.Context, notification *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.stored = append(s.stored, *notification)
	return nil
}

func (s *notificationRepoStub) ListByPerson(ctx context.Context, personID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, n := range s.stored {
		if n.PersonID == personID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *notificationRepoStub) MarkRead(ctx context.Context, id, personID string) error {
	return s.readErr
}

func (s *notificationRepoStub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stored)
}

type roleDirectoryStub struct {
	ids   []string
	calls int
}

func (s *roleDirectoryStub) ListActiveIDsByRole(ctx context.Context, role models.UserRole) ([]string, error) {
	s.calls++
	return s.ids, nil
}

type publisherStub struct {
	mu       sync.Mutex
	channels []string
}

func (p *publisherStub) Publish(ctx context.Context, channel string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels = append(p.channels, channel)
	return nil
}

type memoryCacheRepo struct {
	items map[string][]byte
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	return nil
}

func (m *memoryCacheRepo) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.items, key)
	}
	return nil
}

func TestNotificationPushDeliversInlineAndPublishes(t *testing.T) {
	repo := &notificationRepoStub{}
	publisher := &publisherStub{}
	svc := NewNotificationService(repo, &roleDirectoryStub{}, nil, publisher, nil, nil, NotificationConfig{Publish: true})

	svc.Push(context.Background(), "cand-1", models.NotificationApplicationStatus, "Update", "approved")
	svc.Push(context.Background(), "", models.NotificationApplicationStatus, "Update", "ignored")

	require.Equal(t, 1, repo.count())
	assert.NotEmpty(t, repo.stored[0].ID)
	assert.Equal(t, []string{"notifications:cand-1"}, publisher.channels)
}

func TestNotificationFailureDoesNotPropagate(t *testing.T) {
	repo := &notificationRepoStub{err: errors.New("insert failed")}
	svc := NewNotificationService(repo, &roleDirectoryStub{}, nil, nil, nil, nil, NotificationConfig{})

	assert.NotPanics(t, func() {
		svc.Push(context.Background(), "cand-1", models.NotificationReportReminder, "Reminder", "overdue")
	})
}

func TestNotifyCoordinatorsUsesCache(t *testing.T) {
	repo := &notificationRepoStub{}
	users := &roleDirectoryStub{ids: []string{"coord-1", "coord-2"}}
	cache := NewCacheService(&memoryCacheRepo{items: map[string][]byte{}}, nil, time.Minute, nil, true)
	svc := NewNotificationService(repo, users, cache, nil, nil, nil, NotificationConfig{})

	svc.NotifyCoordinators(context.Background(), models.NotificationApplicationSubmitted, "New", "application")
	svc.NotifyCoordinators(context.Background(), models.NotificationReportSubmitted, "New", "report")

	assert.Equal(t, 1, users.calls)
	assert.Equal(t, 4, repo.count())
}

func TestNotificationQueueDelivery(t *testing.T) {
	repo := &notificationRepoStub{}
	svc := NewNotificationService(repo, &roleDirectoryStub{}, nil, nil, nil, nil, NotificationConfig{})
	queue := jobs.NewQueue("notifications", svc.Deliver, jobs.QueueConfig{Workers: 2, RetryDelay: time.Millisecond, OnGiveUp: svc.GiveUp})
	queue.Start(context.Background())
	svc.Bind(queue)

	for i := 0; i < 5; i++ {
		svc.Push(context.Background(), "cand-1", models.NotificationInterviewScheduled, "Booked", "slot")
	}
	require.Eventually(t, func() bool { return repo.count() == 5 }, time.Second, 5*time.Millisecond)
	queue.Stop()
}

func TestNotificationInbox(t *testing.T) {
	repo := &notificationRepoStub{}
	svc := NewNotificationService(repo, &roleDirectoryStub{}, nil, nil, nil, nil, NotificationConfig{})
	svc.Push(context.Background(), "cand-1", models.NotificationApplicationStatus, "Update", "approved")

	items, err := svc.List(context.Background(), "cand-1", dto.NotificationQuery{})
	require.NoError(t, err)
	assert.Len(t, items, 1)

	repo.readErr = sql.ErrNoRows
	err = svc.MarkRead(context.Background(), "n-1", "cand-1")
	requireAppError(t, err, appErrors.ErrNotFound)
}
