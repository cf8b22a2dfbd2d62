package dto

import (
	"time"

	"github.com/noah-isme/shelter-adoption-api/internal/models"
)

// SubmitApplicationRequest is the candidate's adoption application payload.
type SubmitApplicationRequest struct {
	AnimalID   string `json:"animal_id" validate:"required"`
	Reason     string `json:"reason" validate:"required,max=4000"`
	Experience string `json:"experience" validate:"max=4000"`
	Housing    string `json:"housing" validate:"max=4000"`
}

// DecideApplicationRequest records a coordinator decision.
type DecideApplicationRequest struct {
	Status  models.ApplicationStatus `json:"status" validate:"required,oneof=submitted under_review approved rejected"`
	Comment string                   `json:"comment" validate:"max=2000"`
}

// ScheduleInterviewRequest schedules an interview outside the slot ledger.
type ScheduleInterviewRequest struct {
	InterviewerID string    `json:"interviewer_id" validate:"required"`
	ScheduledAt   time.Time `json:"scheduled_at" validate:"required"`
}

// CreateSlotRequest offers a bookable interview time.
type CreateSlotRequest struct {
	InterviewerID string            `json:"interviewer_id"`
	ScheduledAt   time.Time         `json:"scheduled_at" validate:"required"`
	Status        models.SlotStatus `json:"status" validate:"omitempty,oneof=available booked expired cancelled"`
}

// BookSlotRequest binds a slot to an application.
type BookSlotRequest struct {
	ApplicationID string `json:"application_id" validate:"required"`
}

// CancelBookingRequest releases a booked slot.
type CancelBookingRequest struct {
	ApplicationID string `json:"application_id" validate:"required"`
}

// SlotQuery mirrors supported slot listing filters.
type SlotQuery struct {
	InterviewerID string
	From          time.Time
	Limit         int
}

// UpdateInterviewRequest changes interview status and notes.
type UpdateInterviewRequest struct {
	Status                   models.InterviewStatus `json:"status" validate:"required,oneof=scheduled confirmed completed cancelled"`
	Notes                    *string                `json:"notes" validate:"omitempty,max=4000"`
	AutoApproveApplicationID *string                `json:"auto_approve_application_id"`
}

// RescheduleInterviewRequest moves an application's interview to another slot.
type RescheduleInterviewRequest struct {
	SlotID string `json:"slot_id" validate:"required"`
}

// CompleteAdoptionRequest finalizes an approved application into an agreement.
type CompleteAdoptionRequest struct {
	SignedDate       time.Time `json:"signed_date" validate:"required"`
	PostAdoptionPlan string    `json:"post_adoption_plan" validate:"max=8000"`
}

// SubmitReportRequest is the candidate's post-adoption report.
type SubmitReportRequest struct {
	ReportText    string              `json:"report_text" validate:"required,max=8000"`
	SubmittedDate *time.Time          `json:"submitted_date"`
	Status        models.ReportStatus `json:"status" validate:"omitempty,oneof=pending submitted"`
}

// ReminderSweepResult summarises one run of the pending-report sweep.
type ReminderSweepResult struct {
	Scanned  int       `json:"scanned"`
	Reminded int       `json:"reminded"`
	RanAt    time.Time `json:"ran_at"`
}

// AgreementResult bundles the agreement with its first scheduled report.
type AgreementResult struct {
	Agreement   *models.Agreement          `json:"agreement"`
	FirstReport *models.PostAdoptionReport `json:"first_report"`
}

// ReportSubmission bundles a submitted report with the next report it spawned, if any.
type ReportSubmission struct {
	Report *models.PostAdoptionReport `json:"report"`
	Next   *models.PostAdoptionReport `json:"next,omitempty"`
}

// UpdateReportCadenceRequest overrides the configured report cadence.
type UpdateReportCadenceRequest struct {
	OffsetDays int `json:"offset_days" validate:"gte=0,lte=365"`
	FillDays   int `json:"fill_days" validate:"gte=0,lte=90"`
}

// NotificationQuery filters the caller's inbox.
type NotificationQuery struct {
	UnreadOnly bool
	Limit      int
}
