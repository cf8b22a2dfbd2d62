package models

import "time"

// NotificationType classifies pushes sent by the adoption workflow.
type NotificationType string

const (
	NotificationApplicationSubmitted NotificationType = "application_submitted"
	NotificationApplicationStatus    NotificationType = "application_status"
	NotificationInterviewScheduled   NotificationType = "interview_scheduled"
	NotificationInterviewConfirmed   NotificationType = "interview_confirmed"
	NotificationInterviewUpdated     NotificationType = "interview_updated"
	NotificationAgreementCreated     NotificationType = "agreement_created"
	NotificationReportSubmitted      NotificationType = "report_submitted"
	NotificationReportReminder       NotificationType = "report_reminder"
)

// Notification is a message addressed to one person.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	PersonID  string           `db:"person_id" json:"person_id"`
	Type      NotificationType `db:"type" json:"type"`
	Title     string           `db:"title" json:"title"`
	Message   string           `db:"message" json:"message"`
	Read      bool             `db:"read" json:"read"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}
