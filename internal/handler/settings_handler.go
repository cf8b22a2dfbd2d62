package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/shelter-adoption-api/internal/dto"
	"github.com/noah-isme/shelter-adoption-api/internal/models"
	"github.com/noah-isme/shelter-adoption-api/pkg/response"
)

type settingsService interface {
	ReportCadence(ctx context.Context) models.ReportCadence
	UpdateReportCadence(ctx context.Context, req dto.UpdateReportCadenceRequest) (*models.ReportCadence, error)
}

// SettingsHandler exposes administrator overrides.
type SettingsHandler struct {
	service settingsService
}

// NewSettingsHandler builds a new handler.
func NewSettingsHandler(service settingsService) *SettingsHandler {
	return &SettingsHandler{service: service}
}

// GetReportCadence godoc
// @Summary Effective post-adoption report cadence
// @Tags Settings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /settings/report-cadence [get]
func (h *SettingsHandler) GetReportCadence(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.ReportCadence(c.Request.Context()), nil)
}

// UpdateReportCadence godoc
// @Summary Override the post-adoption report cadence
// @Tags Settings
// @Accept json
// @Produce json
// @Param payload body dto.UpdateReportCadenceRequest true "Cadence payload"
// @Success 200 {object} response.Envelope
// @Router /settings/report-cadence [put]
func (h *SettingsHandler) UpdateReportCadence(c *gin.Context) {
	var req dto.UpdateReportCadenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid report cadence payload"))
		return
	}
	cadence, err := h.service.UpdateReportCadence(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cadence, nil)
}
