package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shelter-adoption-api/internal/dto"
	"github.com/noah-isme/shelter-adoption-api/internal/middleware"
	"github.com/noah-isme/shelter-adoption-api/internal/models"
	appErrors "github.com/noah-isme/shelter-adoption-api/pkg/errors"
)

type interviewServiceMock struct {
	claims    *models.JWTClaims
	updateReq dto.UpdateInterviewRequest
	err       error
}

func (m *interviewServiceMock) Confirm(ctx context.Context, candidateID, interviewID string) (*models.Interview, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.Interview{ID: interviewID, Status: models.InterviewStatusConfirmed}, nil
}

func (m *interviewServiceMock) Update(ctx context.Context, claims *models.JWTClaims, interviewID string, req dto.UpdateInterviewRequest) (*models.InterviewOutcome, error) {
	m.claims = claims
	m.updateReq = req
	return &models.InterviewOutcome{Interview: &models.Interview{ID: interviewID, Status: req.Status}}, nil
}

func (m *interviewServiceMock) Reschedule(ctx context.Context, claims *models.JWTClaims, applicationID string, req dto.RescheduleInterviewRequest) (*models.Interview, error) {
	return &models.Interview{ID: "int-next", ApplicationID: applicationID}, nil
}

func (m *interviewServiceMock) ListByApplication(ctx context.Context, claims *models.JWTClaims, applicationID string) ([]models.Interview, error) {
	m.claims = claims
	return []models.Interview{{ID: "int-1", ApplicationID: applicationID}}, nil
}

func TestInterviewHandlerConfirmConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewInterviewHandler(&interviewServiceMock{err: appErrors.Clone(appErrors.ErrConflict, "interview is not awaiting confirmation")})

	c, w := newGinContext(http.MethodPost, "/interviews/int-1/confirm", nil)
	c.Params = gin.Params{{Key: "id", Value: "int-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "cand-1", Role: models.RoleCandidate})

	handler.Confirm(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestInterviewHandlerUpdatePassesAutoApprove(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &interviewServiceMock{}
	handler := NewInterviewHandler(mockSvc)

	appID := "app-1"
	payload, _ := json.Marshal(dto.UpdateInterviewRequest{Status: models.InterviewStatusCompleted, AutoApproveApplicationID: &appID})
	c, w := newGinContext(http.MethodPatch, "/interviews/int-1", payload)
	c.Params = gin.Params{{Key: "id", Value: "int-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "vol-1", Role: models.RoleVolunteer})

	handler.Update(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mockSvc.updateReq.AutoApproveApplicationID)
	assert.Equal(t, "app-1", *mockSvc.updateReq.AutoApproveApplicationID)
	assert.Equal(t, "vol-1", mockSvc.claims.UserID)
}

func TestInterviewHandlerReschedule(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewInterviewHandler(&interviewServiceMock{})

	payload, _ := json.Marshal(dto.RescheduleInterviewRequest{SlotID: "slot-2"})
	c, w := newGinContext(http.MethodPost, "/applications/app-1/reschedule", payload)
	c.Params = gin.Params{{Key: "id", Value: "app-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "cand-1", Role: models.RoleCandidate})

	handler.Reschedule(c)
	assert.Equal(t, http.StatusCreated, w.Code)
}
