package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/shelter-adoption-api/internal/dto"
	"github.com/noah-isme/shelter-adoption-api/internal/models"
	"github.com/noah-isme/shelter-adoption-api/pkg/response"
)

type interviewService interface {
	Confirm(ctx context.Context, candidateID, interviewID string) (*models.Interview, error)
	Update(ctx context.Context, claims *models.JWTClaims, interviewID string, req dto.UpdateInterviewRequest) (*models.InterviewOutcome, error)
	Reschedule(ctx context.Context, claims *models.JWTClaims, applicationID string, req dto.RescheduleInterviewRequest) (*models.Interview, error)
	ListByApplication(ctx context.Context, claims *models.JWTClaims, applicationID string) ([]models.Interview, error)
}

// InterviewHandler exposes interview transitions.
type InterviewHandler struct {
	service interviewService
}

// NewInterviewHandler builds a new handler.
func NewInterviewHandler(service interviewService) *InterviewHandler {
	return &InterviewHandler{service: service}
}

// Confirm godoc
// @Summary Confirm a scheduled interview
// @Tags Interviews
// @Produce json
// @Param id path string true "Interview ID"
// @Success 200 {object} response.Envelope
// @Router /interviews/{id}/confirm [post]
func (h *InterviewHandler) Confirm(c *gin.Context) {
	claims, err := requireClaims(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	interview, err := h.service.Confirm(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, interview, nil)
}

// Update godoc
// @Summary Update interview status or notes
// @Tags Interviews
// @Accept json
// @Produce json
// @Param id path string true "Interview ID"
// @Param payload body dto.UpdateInterviewRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Router /interviews/{id} [patch]
func (h *InterviewHandler) Update(c *gin.Context) {
	claims, err := requireClaims(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateInterviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid interview update payload"))
		return
	}
	outcome, err := h.service.Update(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome, nil)
}

// Reschedule godoc
// @Summary Move an application's interview to another slot
// @Tags Interviews
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body dto.RescheduleInterviewRequest true "Reschedule payload"
// @Success 201 {object} response.Envelope
// @Router /applications/{id}/reschedule [post]
func (h *InterviewHandler) Reschedule(c *gin.Context) {
	claims, err := requireClaims(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.RescheduleInterviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid reschedule payload"))
		return
	}
	interview, err := h.service.Reschedule(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, interview)
}

// ListByApplication godoc
// @Summary List an application's interviews
// @Tags Interviews
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/interviews [get]
func (h *InterviewHandler) ListByApplication(c *gin.Context) {
	interviews, err := h.service.ListByApplication(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, interviews, nil)
}
