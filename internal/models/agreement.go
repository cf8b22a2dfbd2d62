package models

import "time"

// Agreement is the finalized adoption contract, one per approved application.
type Agreement struct {
	ID               string    `db:"id" json:"id"`
	ApplicationID    string    `db:"application_id" json:"application_id"`
	SignedDate       time.Time `db:"signed_date" json:"signed_date"`
	PostAdoptionPlan string    `db:"post_adoption_plan" json:"post_adoption_plan"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// ReportStatus tracks a post-adoption report.
type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "pending"
	ReportStatusSubmitted ReportStatus = "submitted"
)

// PostAdoptionReport is one entry in an agreement's follow-up cadence.
type PostAdoptionReport struct {
	ID                string       `db:"id" json:"id"`
	AgreementID       string       `db:"agreement_id" json:"agreement_id"`
	DueDate           time.Time    `db:"due_date" json:"due_date"`
	SubmittedDate     *time.Time   `db:"submitted_date" json:"submitted_date,omitempty"`
	ReportText        *string      `db:"report_text" json:"report_text,omitempty"`
	VolunteerFeedback *string      `db:"volunteer_feedback" json:"volunteer_feedback,omitempty"`
	Status            ReportStatus `db:"status" json:"status"`
	LastRemindedAt    *time.Time   `db:"last_reminded_at" json:"last_reminded_at,omitempty"`
	CreatedAt         time.Time    `db:"created_at" json:"created_at"`
}

// OverdueReport pairs a pending report with the candidate who owes it.
type OverdueReport struct {
	PostAdoptionReport
	CandidateID string `db:"candidate_id" json:"candidate_id"`
}
