package models

import "time"

// SlotStatus tracks the booking lifecycle of an interview slot.
type SlotStatus string

const (
	SlotStatusAvailable SlotStatus = "available"
	SlotStatusBooked    SlotStatus = "booked"
	SlotStatusExpired   SlotStatus = "expired"
	SlotStatusCancelled SlotStatus = "cancelled"
)

// InterviewSlot is a bookable interview time offered by an interviewer.
type InterviewSlot struct {
	ID            string     `db:"id" json:"id"`
	InterviewerID string     `db:"interviewer_id" json:"interviewer_id"`
	ScheduledAt   time.Time  `db:"scheduled_at" json:"scheduled_at"`
	Status        SlotStatus `db:"status" json:"status"`
	ApplicationID *string    `db:"application_id" json:"application_id,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// SlotFilter constrains slot listing queries.
type SlotFilter struct {
	InterviewerID string
	Status        SlotStatus
	From          time.Time
	Limit         int
}

// InterviewStatus captures the interview lifecycle.
type InterviewStatus string

const (
	InterviewStatusScheduled InterviewStatus = "scheduled"
	InterviewStatusConfirmed InterviewStatus = "confirmed"
	InterviewStatusCompleted InterviewStatus = "completed"
	InterviewStatusCancelled InterviewStatus = "cancelled"
)

// Live is true for interviews that still hold a place in the calendar.
func (s InterviewStatus) Live() bool {
	return s == InterviewStatusScheduled || s == InterviewStatusConfirmed
}

// CanTransitionTo reports whether an update may move an interview from s to next.
// Keeping the same status is allowed on live interviews so notes can be edited.
func (s InterviewStatus) CanTransitionTo(next InterviewStatus) bool {
	if !s.Live() {
		return false
	}
	switch next {
	case InterviewStatusScheduled:
		return s == InterviewStatusScheduled
	case InterviewStatusConfirmed, InterviewStatusCompleted, InterviewStatusCancelled:
		return true
	}
	return false
}

// Interview is a meeting between a candidate and an interviewer for one application.
type Interview struct {
	ID               string          `db:"id" json:"id"`
	ApplicationID    string          `db:"application_id" json:"application_id"`
	SlotID           *string         `db:"slot_id" json:"slot_id,omitempty"`
	InterviewerID    string          `db:"interviewer_id" json:"interviewer_id"`
	ScheduledAt      time.Time       `db:"scheduled_at" json:"scheduled_at"`
	Status           InterviewStatus `db:"status" json:"status"`
	CoordinatorNotes *string         `db:"coordinator_notes" json:"coordinator_notes,omitempty"`
	ProcessedBy      *string         `db:"processed_by" json:"processed_by,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// InterviewOutcome is the result of an interview update including any application side effect.
type InterviewOutcome struct {
	Interview          *Interview           `json:"interview"`
	Application        *AdoptionApplication `json:"application"`
	ApplicationChanged bool                 `json:"application_changed"`
}
