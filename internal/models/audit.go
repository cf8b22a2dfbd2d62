package models

import "time"

// Audit actions recorded for workflow mutations.
const (
	AuditActionDecide          = "APPLICATION_DECIDE"
	AuditActionSchedule        = "INTERVIEW_SCHEDULE"
	AuditActionInterviewUpdate = "INTERVIEW_UPDATE"
	AuditActionSlotCancel      = "SLOT_CANCEL"
	AuditActionComplete        = "ADOPTION_COMPLETE"
	AuditActionCadenceUpdate   = "REPORT_CADENCE_UPDATE"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	Details    []byte    `db:"details" json:"details,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
