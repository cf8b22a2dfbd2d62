package models

import "time"

// ApplicationStatus captures workflow states for adoption applications.
type ApplicationStatus string

const (
	ApplicationStatusSubmitted   ApplicationStatus = "submitted"
	ApplicationStatusUnderReview ApplicationStatus = "under_review"
	ApplicationStatusApproved    ApplicationStatus = "approved"
	ApplicationStatusRejected    ApplicationStatus = "rejected"
)

// Valid reports whether s is a known application status.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationStatusSubmitted, ApplicationStatusUnderReview, ApplicationStatusApproved, ApplicationStatusRejected:
		return true
	}
	return false
}

// Decided is true for approved and rejected applications; no interview may be scheduled for them.
func (s ApplicationStatus) Decided() bool {
	return s == ApplicationStatusApproved || s == ApplicationStatusRejected
}

// Pending is true while the application still awaits a decision.
func (s ApplicationStatus) Pending() bool {
	return s == ApplicationStatusSubmitted || s == ApplicationStatusUnderReview
}

// DefaultDecisionComment replaces a blank decision comment.
const DefaultDecisionComment = "No comment provided"

// AdoptionApplication is a candidate's request to adopt a specific animal.
type AdoptionApplication struct {
	ID              string            `db:"id" json:"id"`
	AnimalID        string            `db:"animal_id" json:"animal_id"`
	CandidateID     string            `db:"candidate_id" json:"candidate_id"`
	Reason          string            `db:"reason" json:"reason"`
	Experience      string            `db:"experience" json:"experience"`
	Housing         string            `db:"housing" json:"housing"`
	Status          ApplicationStatus `db:"status" json:"status"`
	DecisionComment *string           `db:"decision_comment" json:"decision_comment,omitempty"`
	ProcessedBy     *string           `db:"processed_by" json:"processed_by,omitempty"`
	FinalizedAt     *time.Time        `db:"finalized_at" json:"finalized_at,omitempty"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
}
