package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/shelter-adoption-api/internal/dto"
	"github.com/noah-isme/shelter-adoption-api/pkg/response"
)

type reportService interface {
	Submit(ctx context.Context, candidateID, reportID string, req dto.SubmitReportRequest) (*dto.ReportSubmission, error)
	ExportCSV(ctx context.Context, agreementID string) ([]byte, string, error)
}

// ReportHandler exposes post-adoption report endpoints.
type ReportHandler struct {
	service reportService
}

// NewReportHandler builds a new handler.
func NewReportHandler(service reportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// Submit godoc
// @Summary Submit a post-adoption report
// @Tags Reports
// @Accept json
// @Produce json
// @Param id path string true "Report ID"
// @Param payload body dto.SubmitReportRequest true "Report payload"
// @Success 200 {object} response.Envelope
// @Router /reports/{id}/submit [post]
func (h *ReportHandler) Submit(c *gin.Context) {
	claims, err := requireClaims(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.SubmitReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid report payload"))
		return
	}
	result, err := h.service.Submit(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ExportCSV godoc
// @Summary Export an agreement's reports as CSV
// @Tags Reports
// @Produce text/csv
// @Param id path string true "Agreement ID"
// @Success 200 {file} binary
// @Router /agreements/{id}/reports.csv [get]
func (h *ReportHandler) ExportCSV(c *gin.Context) {
	body, filename, err := h.service.ExportCSV(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, "text/csv", filename, body)
}
