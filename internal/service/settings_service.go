package service

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/shelter-adoption-api/internal/dto"
	"github.com/noah-isme/shelter-adoption-api/internal/models"
	appErrors "github.com/noah-isme/shelter-adoption-api/pkg/errors"
)

type settingsStore interface {
	ListByKeys(ctx context.Context, keys []string) ([]models.Setting, error)
	BulkUpsert(ctx context.Context, settings []models.Setting) error
}

// SettingsService resolves the report cadence from system_settings with config fallbacks.
type SettingsService struct {
	workflow
	repo     settingsStore
	defaults models.ReportCadence
}

// NewSettingsService constructs the service with the configured cadence defaults.
func NewSettingsService(repo settingsStore, defaults models.ReportCadence, opts ...Option) *SettingsService {
	return &SettingsService{workflow: newWorkflow(opts), repo: repo, defaults: defaults}
}

// ReportCadence returns the effective cadence. Storage failures and malformed
// overrides fall back to the configured defaults.
func (s *SettingsService) ReportCadence(ctx context.Context) models.ReportCadence {
	cadence := s.defaults
	if s.repo == nil {
		return cadence
	}
	settings, err := s.repo.ListByKeys(ctx, []string{models.SettingReportOffsetDays, models.SettingReportFillDays})
	if err != nil {
		s.logger.Warn("load report cadence settings", zap.Error(err))
		return cadence
	}
	for _, setting := range settings {
		value, err := strconv.Atoi(setting.Value)
		if err != nil || value < 0 {
			s.logger.Warn("ignoring invalid cadence setting", zap.String("key", setting.Key), zap.String("value", setting.Value))
			continue
		}
		switch setting.Key {
		case models.SettingReportOffsetDays:
			cadence.OffsetDays = value
		case models.SettingReportFillDays:
			cadence.FillDays = value
		}
	}
	return cadence
}

// UpdateReportCadence stores administrator overrides.
func (s *SettingsService) UpdateReportCadence(ctx context.Context, req dto.UpdateReportCadenceRequest) (*models.ReportCadence, error) {
	if err := s.validate(req, "invalid report cadence payload"); err != nil {
		return nil, err
	}
	settings := []models.Setting{
		{Key: models.SettingReportOffsetDays, Value: strconv.Itoa(req.OffsetDays)},
		{Key: models.SettingReportFillDays, Value: strconv.Itoa(req.FillDays)},
	}
	if err := s.repo.BulkUpsert(ctx, settings); err != nil {
		return nil, appErrors.Internal(err, "failed to update report cadence")
	}
	cadence := models.ReportCadence{OffsetDays: req.OffsetDays, FillDays: req.FillDays}
	return &cadence, nil
}

// NextReportDue returns basis + offset + fill days; fill days count as at least one.
func NextReportDue(cadence models.ReportCadence, basis time.Time) time.Time {
	fill := cadence.FillDays
	if fill < 1 {
		fill = 1
	}
	offset := cadence.OffsetDays
	if offset < 0 {
		offset = 0
	}
	return basis.AddDate(0, 0, offset+fill)
}
