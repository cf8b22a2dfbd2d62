package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/shelter-adoption-api/internal/dto"
	"github.com/noah-isme/shelter-adoption-api/internal/models"
	"github.com/noah-isme/shelter-adoption-api/internal/repository"
	appErrors "github.com/noah-isme/shelter-adoption-api/pkg/errors"
	"github.com/noah-isme/shelter-adoption-api/pkg/export"
)

type agreementStore interface {
	GetByID(ctx context.Context, id string) (*models.Agreement, error)
	Finalize(ctx context.Context, params repository.FinalizeParams) (*repository.Finalized, error)
}

type reportLister interface {
	ListByAgreement(ctx context.Context, agreementID string) ([]models.PostAdoptionReport, error)
}

type cadenceSource interface {
	ReportCadence(ctx context.Context) models.ReportCadence
}

type pdfRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

// AgreementService finalizes approved applications into agreements.
type AgreementService struct {
	workflow
	repo         agreementStore
	applications applicationReader
	animals      animalDirectory
	reports      reportLister
	cadence      cadenceSource
	pdf          pdfRenderer
}

// NewAgreementService constructs the service.
func NewAgreementService(repo agreementStore, applications applicationReader, animals animalDirectory, reports reportLister, cadence cadenceSource, opts ...Option) *AgreementService {
	return &AgreementService{
		workflow:     newWorkflow(opts),
		repo:         repo,
		applications: applications,
		animals:      animals,
		reports:      reports,
		cadence:      cadence,
		pdf:          export.NewPDFExporter(),
	}
}

// CompleteAdoption creates the agreement once the animal is medically ready,
// marks the animal adopted and schedules the first post-adoption report.
func (s *AgreementService) CompleteAdoption(ctx context.Context, actorID, applicationID string, req dto.CompleteAdoptionRequest) (*dto.AgreementResult, error) {
	if err := s.validate(req, "invalid agreement payload"); err != nil {
		return nil, err
	}
	app, err := s.applications.GetByID(ctx, applicationID)
	if err != nil {
		return nil, translate(err, "failed to load application")
	}
	if err := s.checkReadiness(ctx, app.AnimalID); err != nil {
		return nil, err
	}

	signed := req.SignedDate.UTC()
	finalized, err := s.repo.Finalize(ctx, repository.FinalizeParams{
		ApplicationID:    app.ID,
		SignedDate:       signed,
		PostAdoptionPlan: strings.TrimSpace(req.PostAdoptionPlan),
		FirstReportDue:   NextReportDue(s.cadence.ReportCadence(ctx), signed),
		At:               s.now(),
	})
	if err != nil {
		return nil, translate(err, "failed to complete adoption")
	}

	s.metrics.AgreementCreated()
	s.notifier.Push(ctx, finalized.Application.CandidateID, models.NotificationAgreementCreated,
		"Adoption completed",
		fmt.Sprintf("Your adoption agreement was signed on %s", signed.Format("2006-01-02")))
	s.logger.Info("adoption completed",
		zap.String("application_id", app.ID),
		zap.String("agreement_id", finalized.Agreement.ID),
		zap.String("actor_id", actorID))
	return &dto.AgreementResult{Agreement: finalized.Agreement, FirstReport: finalized.FirstReport}, nil
}

// checkReadiness enforces the medical gate on the animal.
func (s *AgreementService) checkReadiness(ctx context.Context, animalID string) error {
	animal, err := s.animals.GetByID(ctx, animalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrConflict, "animal record is missing")
		}
		return appErrors.Internal(err, "failed to load animal")
	}
	switch animal.Status {
	case models.AnimalStatusQuarantine, models.AnimalStatusNotAvailable:
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("animal is %s", animal.Status))
	}

	records, err := s.animals.ListMedicalRecords(ctx, animal.ID)
	if err != nil {
		return appErrors.Internal(err, "failed to load medical records")
	}
	if len(records) == 0 {
		return appErrors.Clone(appErrors.ErrConflict, "animal has no medical history on file")
	}
	if animal.FullyCertified() {
		return nil
	}
	now := s.now()
	for _, record := range records {
		if record.Overdue(now) {
			return appErrors.Clone(appErrors.ErrConflict,
				fmt.Sprintf("medical procedure %q is overdue", record.Procedure))
		}
	}
	return nil
}

// Get returns an agreement visible to the caller.
func (s *AgreementService) Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.Agreement, error) {
	agreement, app, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !claims.IsStaff() && app.CandidateID != actorRef(claims) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "agreement belongs to another candidate")
	}
	return agreement, nil
}

// RenderDocument produces the signed agreement as a PDF.
func (s *AgreementService) RenderDocument(ctx context.Context, claims *models.JWTClaims, id string) ([]byte, string, error) {
	agreement, app, err := s.load(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if !claims.IsStaff() && app.CandidateID != actorRef(claims) {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "agreement belongs to another candidate")
	}
	animalName := app.AnimalID
	if animal, err := s.animals.GetByID(ctx, app.AnimalID); err == nil {
		animalName = fmt.Sprintf("%s (%s)", animal.Name, animal.Species)
	}
	reports, err := s.reports.ListByAgreement(ctx, agreement.ID)
	if err != nil {
		return nil, "", appErrors.Internal(err, "failed to load reports")
	}

	table := export.Dataset{Headers: []string{"Due", "Status", "Submitted"}}
	for _, report := range reports {
		submitted := "-"
		if report.SubmittedDate != nil {
			submitted = report.SubmittedDate.Format("2006-01-02")
		}
		table.Rows = append(table.Rows, map[string]string{
			"Due":       report.DueDate.Format("2006-01-02"),
			"Status":    string(report.Status),
			"Submitted": submitted,
		})
	}
	doc := export.Document{
		Title: "Adoption Agreement",
		Sections: []export.Section{
			{
				Heading: "Agreement",
				Fields: []export.Field{
					{Label: "Agreement", Value: agreement.ID},
					{Label: "Application", Value: app.ID},
					{Label: "Candidate", Value: app.CandidateID},
					{Label: "Animal", Value: animalName},
					{Label: "Signed", Value: agreement.SignedDate.Format("2006-01-02")},
				},
			},
			{Heading: "Post-adoption plan", Body: agreement.PostAdoptionPlan},
		},
		Table:  &table,
		Footer: "Post-adoption reports are due on the dates listed above.",
	}
	body, err := s.pdf.Render(doc)
	if err != nil {
		return nil, "", appErrors.Internal(err, "failed to render agreement")
	}
	return body, fmt.Sprintf("agreement-%s.pdf", agreement.ID), nil
}

func (s *AgreementService) load(ctx context.Context, id string) (*models.Agreement, *models.AdoptionApplication, error) {
	agreement, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, translate(err, "failed to load agreement")
	}
	app, err := s.applications.GetByID(ctx, agreement.ApplicationID)
	if err != nil {
		return nil, nil, translate(err, "failed to load application")
	}
	return agreement, app, nil
}
