package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shelter-adoption-api/internal/dto"
	"github.com/noah-isme/shelter-adoption-api/internal/middleware"
	"github.com/noah-isme/shelter-adoption-api/internal/models"
	appErrors "github.com/noah-isme/shelter-adoption-api/pkg/errors"
	"github.com/noah-isme/shelter-adoption-api/pkg/response"
)

type slotServiceMock struct {
	query   dto.SlotQuery
	bookErr error
}

func (m *slotServiceMock) Create(ctx context.Context, claims *models.JWTClaims, req dto.CreateSlotRequest) (*models.InterviewSlot, error) {
	return &models.InterviewSlot{ID: "slot-1", InterviewerID: claims.UserID, ScheduledAt: req.ScheduledAt, Status: models.SlotStatusAvailable}, nil
}

func (m *slotServiceMock) ListAvailable(ctx context.Context, query dto.SlotQuery) ([]models.InterviewSlot, error) {
	m.query = query
	return []models.InterviewSlot{}, nil
}

func (m *slotServiceMock) Book(ctx context.Context, claims *models.JWTClaims, slotID string, req dto.BookSlotRequest) (*models.Interview, error) {
	if m.bookErr != nil {
		return nil, m.bookErr
	}
	return &models.Interview{ID: "int-1", ApplicationID: req.ApplicationID, Status: models.InterviewStatusScheduled}, nil
}

func (m *slotServiceMock) CancelBooking(ctx context.Context, claims *models.JWTClaims, slotID string, req dto.CancelBookingRequest) (*models.InterviewSlot, error) {
	return &models.InterviewSlot{ID: slotID, Status: models.SlotStatusAvailable}, nil
}

func (m *slotServiceMock) Cancel(ctx context.Context, slotID string) (*models.InterviewSlot, error) {
	return &models.InterviewSlot{ID: slotID, Status: models.SlotStatusCancelled}, nil
}

func TestSlotHandlerBook(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewSlotHandler(&slotServiceMock{})

	payload, _ := json.Marshal(dto.BookSlotRequest{ApplicationID: "app-1"})
	c, w := newGinContext(http.MethodPost, "/slots/slot-1/book", payload)
	c.Params = gin.Params{{Key: "id", Value: "slot-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "cand-1", Role: models.RoleCandidate})

	handler.Book(c)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestSlotHandlerBookConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewSlotHandler(&slotServiceMock{bookErr: appErrors.Clone(appErrors.ErrConflict, "interview slot is not available")})

	payload, _ := json.Marshal(dto.BookSlotRequest{ApplicationID: "app-2"})
	c, w := newGinContext(http.MethodPost, "/slots/slot-1/book", payload)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "cand-2", Role: models.RoleCandidate})

	handler.Book(c)
	require.Equal(t, http.StatusConflict, w.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "CONFLICT", envelope.Error.Code)
}

func TestSlotHandlerBookRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewSlotHandler(&slotServiceMock{})

	c, w := newGinContext(http.MethodPost, "/slots/slot-1/book", []byte(`{"application_id":"app-1"}`))
	handler.Book(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSlotHandlerListParsesQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &slotServiceMock{}
	handler := NewSlotHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/slots?interviewer_id=int-1&from=2026-04-01T10:00:00Z&limit=5", nil)
	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "int-1", mockSvc.query.InterviewerID)
	assert.Equal(t, 5, mockSvc.query.Limit)
	assert.True(t, mockSvc.query.From.Equal(time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)))

	c, w = newGinContext(http.MethodGet, "/slots?from=tomorrow", nil)
	handler.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
