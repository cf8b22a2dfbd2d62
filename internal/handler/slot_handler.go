package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/shelter-adoption-api/internal/dto"
	"github.com/noah-isme/shelter-adoption-api/internal/models"
	"github.com/noah-isme/shelter-adoption-api/pkg/response"
)

type slotService interface {
	Create(ctx context.Context, claims *models.JWTClaims, req dto.CreateSlotRequest) (*models.InterviewSlot, error)
	ListAvailable(ctx context.Context, query dto.SlotQuery) ([]models.InterviewSlot, error)
	Book(ctx context.Context, claims *models.JWTClaims, slotID string, req dto.BookSlotRequest) (*models.Interview, error)
	CancelBooking(ctx context.Context, claims *models.JWTClaims, slotID string, req dto.CancelBookingRequest) (*models.InterviewSlot, error)
	Cancel(ctx context.Context, slotID string) (*models.InterviewSlot, error)
}

// SlotHandler exposes the interview slot ledger.
type SlotHandler struct {
	service slotService
}

// NewSlotHandler builds a new handler.
func NewSlotHandler(service slotService) *SlotHandler {
	return &SlotHandler{service: service}
}

// Create godoc
// @Summary Offer an interview slot
// @Tags Slots
// @Accept json
// @Produce json
// @Param payload body dto.CreateSlotRequest true "Slot payload"
// @Success 201 {object} response.Envelope
// @Router /slots [post]
func (h *SlotHandler) Create(c *gin.Context) {
	claims, err := requireClaims(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid slot payload"))
		return
	}
	slot, err := h.service.Create(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// List godoc
// @Summary List available interview slots
// @Tags Slots
// @Produce json
// @Param interviewer_id query string false "Interviewer"
// @Param from query string false "RFC3339 lower bound"
// @Param limit query int false "Maximum rows"
// @Success 200 {object} response.Envelope
// @Router /slots [get]
func (h *SlotHandler) List(c *gin.Context) {
	from, err := queryTime(c, "from")
	if err != nil {
		response.Error(c, err)
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		response.Error(c, err)
		return
	}
	slots, err := h.service.ListAvailable(c.Request.Context(), dto.SlotQuery{
		InterviewerID: c.Query("interviewer_id"),
		From:          from,
		Limit:         limit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// Book godoc
// @Summary Book a slot for an application
// @Tags Slots
// @Accept json
// @Produce json
// @Param id path string true "Slot ID"
// @Param payload body dto.BookSlotRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /slots/{id}/book [post]
func (h *SlotHandler) Book(c *gin.Context) {
	claims, err := requireClaims(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.BookSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid booking payload"))
		return
	}
	interview, err := h.service.Book(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, interview)
}

// CancelBooking godoc
// @Summary Release a booked slot
// @Tags Slots
// @Accept json
// @Produce json
// @Param id path string true "Slot ID"
// @Param payload body dto.CancelBookingRequest true "Cancellation payload"
// @Success 200 {object} response.Envelope
// @Router /slots/{id}/cancel-booking [post]
func (h *SlotHandler) CancelBooking(c *gin.Context) {
	claims, err := requireClaims(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid cancellation payload"))
		return
	}
	slot, err := h.service.CancelBooking(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// Cancel godoc
// @Summary Withdraw an unbooked slot
// @Tags Slots
// @Produce json
// @Param id path string true "Slot ID"
// @Success 200 {object} response.Envelope
// @Router /slots/{id} [delete]
func (h *SlotHandler) Cancel(c *gin.Context) {
	slot, err := h.service.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}
