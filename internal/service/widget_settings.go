package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/echo-labs/support-platform/internal/model"
	"github.com/echo-labs/support-platform/internal/store"
	"github.com/echo-labs/support-platform/pkg/logger"
)

// WidgetSettingsService manages per-organization widget configuration.
type WidgetSettingsService struct {
	settings store.WidgetSettingsStore
	logger   *logger.Logger
}

// NewWidgetSettingsService creates a new widget settings service.
func NewWidgetSettingsService(settings store.WidgetSettingsStore, log *logger.Logger) *WidgetSettingsService {
	return &WidgetSettingsService{settings: settings, logger: log}
}

// Upsert replaces the organization's widget settings.
func (s *WidgetSettingsService) Upsert(ctx context.Context, organizationID string, settings *model.WidgetSettings) (*model.WidgetSettings, error) {
	settings.OrganizationID = organizationID

	if err := s.settings.Upsert(ctx, settings); err != nil {
		return nil, err
	}

	s.logger.Info("widget settings updated", zap.String("organization_id", organizationID))
	return settings, nil
}

// Get returns the organization's widget settings, or nil when unset.
func (s *WidgetSettingsService) Get(ctx context.Context, organizationID string) (*model.WidgetSettings, error) {
	return s.settings.Get(ctx, organizationID)
}
