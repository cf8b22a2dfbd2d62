package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/shelter-adoption-api/internal/dto"
	"github.com/noah-isme/shelter-adoption-api/internal/models"
	"github.com/noah-isme/shelter-adoption-api/pkg/response"
)

type agreementService interface {
	CompleteAdoption(ctx context.Context, actorID, applicationID string, req dto.CompleteAdoptionRequest) (*dto.AgreementResult, error)
	Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.Agreement, error)
	RenderDocument(ctx context.Context, claims *models.JWTClaims, id string) ([]byte, string, error)
}

// AgreementHandler exposes adoption finalization endpoints.
type AgreementHandler struct {
	service agreementService
}

// NewAgreementHandler builds a new handler.
func NewAgreementHandler(service agreementService) *AgreementHandler {
	return &AgreementHandler{service: service}
}

// Complete godoc
// @Summary Finalize an approved application into an agreement
// @Tags Agreements
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body dto.CompleteAdoptionRequest true "Agreement payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /applications/{id}/agreement [post]
func (h *AgreementHandler) Complete(c *gin.Context) {
	claims, err := requireClaims(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CompleteAdoptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid agreement payload"))
		return
	}
	result, err := h.service.CompleteAdoption(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Get godoc
// @Summary Get an agreement
// @Tags Agreements
// @Produce json
// @Param id path string true "Agreement ID"
// @Success 200 {object} response.Envelope
// @Router /agreements/{id} [get]
func (h *AgreementHandler) Get(c *gin.Context) {
	agreement, err := h.service.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, agreement, nil)
}

// Document godoc
// @Summary Download the signed agreement
// @Tags Agreements
// @Produce application/pdf
// @Param id path string true "Agreement ID"
// @Success 200 {file} binary
// @Router /agreements/{id}/document [get]
func (h *AgreementHandler) Document(c *gin.Context) {
	body, filename, err := h.service.RenderDocument(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, "application/pdf", filename, body)
}
