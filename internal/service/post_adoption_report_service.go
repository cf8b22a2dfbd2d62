package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/shelter-adoption-api/internal/dto"
	"github.com/noah-isme/shelter-adoption-api/internal/models"
	"github.com/noah-isme/shelter-adoption-api/internal/repository"
	appErrors "github.com/noah-isme/shelter-adoption-api/pkg/errors"
	"github.com/noah-isme/shelter-adoption-api/pkg/export"
)

type reportStore interface {
	GetByID(ctx context.Context, id string) (*models.PostAdoptionReport, error)
	GetCandidateID(ctx context.Context, reportID string) (string, error)
	ListByAgreement(ctx context.Context, agreementID string) ([]models.PostAdoptionReport, error)
	Submit(ctx context.Context, params repository.SubmitParams) (*repository.Submitted, error)
	ScheduleNext(ctx context.Context, agreementID string, due, at time.Time) (*models.PostAdoptionReport, error)
	ListOverdue(ctx context.Context, now, remindedBefore time.Time, limit int) ([]models.OverdueReport, error)
	MarkReminded(ctx context.Context, id string, at time.Time) error
}

type agreementReader interface {
	GetByID(ctx context.Context, id string) (*models.Agreement, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ReminderConfig tunes the pending-report sweep.
type ReminderConfig struct {
	Interval time.Duration
	Batch    int
}

// PostAdoptionReportService runs the post-adoption report cadence.
type PostAdoptionReportService struct {
	workflow
	repo       reportStore
	agreements agreementReader
	cadence    cadenceSource
	csv        csvRenderer
	reminders  ReminderConfig
}

// NewPostAdoptionReportService constructs the service.
func NewPostAdoptionReportService(repo reportStore, agreements agreementReader, cadence cadenceSource, reminders ReminderConfig, opts ...Option) *PostAdoptionReportService {
	if reminders.Interval <= 0 {
		reminders.Interval = 24 * time.Hour
	}
	if reminders.Batch <= 0 {
		reminders.Batch = 100
	}
	return &PostAdoptionReportService{
		workflow:   newWorkflow(opts),
		repo:       repo,
		agreements: agreements,
		cadence:    cadence,
		csv:        export.NewCSVExporter(),
		reminders:  reminders,
	}
}

// Submit records the candidate's report and schedules the next one unless a
// pending report already exists for the agreement.
func (s *PostAdoptionReportService) Submit(ctx context.Context, candidateID, reportID string, req dto.SubmitReportRequest) (*dto.ReportSubmission, error) {
	if err := s.validate(req, "invalid report payload"); err != nil {
		return nil, err
	}
	owner, err := s.repo.GetCandidateID(ctx, reportID)
	if err != nil {
		return nil, translate(err, "failed to load report")
	}
	if owner != candidateID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report belongs to another candidate")
	}
	report, err := s.repo.GetByID(ctx, reportID)
	if err != nil {
		return nil, translate(err, "failed to load report")
	}

	now := s.now()
	submitted := now
	if req.SubmittedDate != nil {
		submitted = req.SubmittedDate.UTC()
	}
	status := req.Status
	if status == "" {
		status = models.ReportStatusSubmitted
	}

	result, err := s.repo.Submit(ctx, repository.SubmitParams{
		ReportID:      reportID,
		ReportText:    strings.TrimSpace(req.ReportText),
		SubmittedDate: submitted,
		Status:        status,
		NextDue:       NextReportDue(s.cadence.ReportCadence(ctx), nextDueBasis(report.DueDate, submitted, now)),
		At:            now,
	})
	if err != nil {
		return nil, translate(err, "failed to submit report")
	}

	s.metrics.ReportSubmitted()
	s.notifier.NotifyCoordinators(ctx, models.NotificationReportSubmitted,
		"Post-adoption report submitted",
		fmt.Sprintf("A report for agreement %s was submitted", result.Report.AgreementID))
	return &dto.ReportSubmission{Report: result.Report, Next: result.Next}, nil
}

// ScheduleNext inserts the follow-up of a submitted report. It returns nil
// when a pending report already exists for the agreement.
func (s *PostAdoptionReportService) ScheduleNext(ctx context.Context, submitted *models.PostAdoptionReport) (*models.PostAdoptionReport, error) {
	if submitted == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "report is required")
	}
	now := s.now()
	var submittedAt time.Time
	if submitted.SubmittedDate != nil {
		submittedAt = *submitted.SubmittedDate
	}
	due := NextReportDue(s.cadence.ReportCadence(ctx), nextDueBasis(submitted.DueDate, submittedAt, now))
	next, err := s.repo.ScheduleNext(ctx, submitted.AgreementID, due, now)
	if err != nil {
		return nil, translate(err, "failed to schedule next report")
	}
	return next, nil
}

// ProcessPendingReports reminds candidates about overdue pending reports.
// Per-report failures are logged and skipped.
func (s *PostAdoptionReportService) ProcessPendingReports(ctx context.Context, now time.Time) (*dto.ReminderSweepResult, error) {
	overdue, err := s.repo.ListOverdue(ctx, now, now.Add(-s.reminders.Interval), s.reminders.Batch)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to scan pending reports")
	}

	result := &dto.ReminderSweepResult{Scanned: len(overdue), RanAt: now}
	for _, report := range overdue {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := s.repo.MarkReminded(ctx, report.ID, now); err != nil {
			s.logger.Warn("mark report reminded", zap.String("report_id", report.ID), zap.Error(err))
			continue
		}
		s.notifier.Push(ctx, report.CandidateID, models.NotificationReportReminder,
			"Post-adoption report overdue",
			fmt.Sprintf("Your post-adoption report was due on %s", report.DueDate.Format("2006-01-02")))
		result.Reminded++
	}
	s.metrics.RemindersSent(result.Reminded)
	if result.Scanned > 0 {
		s.logger.Info("post-adoption reminder sweep",
			zap.Int("scanned", result.Scanned),
			zap.Int("reminded", result.Reminded))
	}
	return result, nil
}

// ExportCSV renders every report of an agreement.
func (s *PostAdoptionReportService) ExportCSV(ctx context.Context, agreementID string) ([]byte, string, error) {
	if _, err := s.agreements.GetByID(ctx, agreementID); err != nil {
		return nil, "", translate(err, "failed to load agreement")
	}
	reports, err := s.repo.ListByAgreement(ctx, agreementID)
	if err != nil {
		return nil, "", appErrors.Internal(err, "failed to list reports")
	}

	data := export.Dataset{Headers: []string{"id", "due_date", "status", "submitted_date", "report_text", "volunteer_feedback"}}
	for _, report := range reports {
		row := map[string]string{
			"id":       report.ID,
			"due_date": report.DueDate.Format("2006-01-02"),
			"status":   string(report.Status),
		}
		if report.SubmittedDate != nil {
			row["submitted_date"] = report.SubmittedDate.Format("2006-01-02")
		}
		if report.ReportText != nil {
			row["report_text"] = *report.ReportText
		}
		if report.VolunteerFeedback != nil {
			row["volunteer_feedback"] = *report.VolunteerFeedback
		}
		data.Rows = append(data.Rows, row)
	}
	body, err := s.csv.Render(data)
	if err != nil {
		return nil, "", appErrors.Internal(err, "failed to render reports")
	}
	return body, fmt.Sprintf("agreement-%s-reports.csv", agreementID), nil
}

// nextDueBasis picks the due date, falling back to the submission date, then now.
func nextDueBasis(due, submitted, now time.Time) time.Time {
	switch {
	case !due.IsZero():
		return due
	case !submitted.IsZero():
		return submitted
	}
	return now
}
