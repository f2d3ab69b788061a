package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/echo-labs/support-platform/internal/apperr"
	"github.com/echo-labs/support-platform/internal/model"
	natsclient "github.com/echo-labs/support-platform/internal/nats"
	"github.com/echo-labs/support-platform/internal/secrets"
	"github.com/echo-labs/support-platform/internal/store"
	"github.com/echo-labs/support-platform/pkg/logger"
)

// TaskEnqueuer publishes background tasks. *nats.TaskQueue satisfies it.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, taskType string, payload any) (string, error)
}

// SecretUpsertPayload is the task payload for storing plugin credentials.
type SecretUpsertPayload struct {
	OrganizationID string            `json:"organization_id"`
	Service        string            `json:"service"`
	Value          map[string]string `json:"value"`
}

// PluginService manages third-party integrations: the credential secrets
// and the (organization, service) -> secret linkage.
type PluginService struct {
	plugins store.PluginStore
	secrets secrets.Store
	tasks   TaskEnqueuer
	logger  *logger.Logger
}

// NewPluginService creates a new plugin service.
func NewPluginService(plugins store.PluginStore, secretStore secrets.Store, tasks TaskEnqueuer, log *logger.Logger) *PluginService {
	return &PluginService{
		plugins: plugins,
		secrets: secretStore,
		tasks:   tasks,
		logger:  log,
	}
}

// UpsertSecret schedules credential storage for an integration. The secret
// write and the plugin linkage happen in a background task; calling this
// repeatedly updates the same secret.
func (s *PluginService) UpsertSecret(ctx context.Context, organizationID string, service model.PluginService, value map[string]string) error {
	if !service.Valid() {
		return apperr.BadRequest("unsupported service")
	}
	if len(value) == 0 {
		return apperr.BadRequest("secret value is required")
	}

	taskID, err := s.tasks.Enqueue(ctx, natsclient.TaskTypeSecretUpsert, SecretUpsertPayload{
		OrganizationID: organizationID,
		Service:        string(service),
		Value:          value,
	})
	if err != nil {
		return fmt.Errorf("failed to schedule secret upsert: %w", err)
	}

	s.logger.Info("secret upsert scheduled",
		zap.String("organization_id", organizationID),
		zap.String("service", string(service)),
		zap.String("task_id", taskID),
	)
	return nil
}

// HandleSecretUpsert is the background worker for TaskTypeSecretUpsert:
// it writes the secret, then syncs the plugin linkage so the database and
// the secret store stay consistent.
func (s *PluginService) HandleSecretUpsert(ctx context.Context, task *natsclient.Task) error {
	var payload SecretUpsertPayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		return fmt.Errorf("malformed secret upsert payload: %w", err)
	}

	name := secrets.SecretName(payload.OrganizationID, payload.Service)
	if err := s.secrets.UpsertSecret(ctx, name, payload.Value); err != nil {
		return fmt.Errorf("failed to store secret %s: %w", name, err)
	}

	if err := s.plugins.Upsert(ctx, &model.Plugin{
		OrganizationID: payload.OrganizationID,
		Service:        model.PluginService(payload.Service),
		SecretName:     name,
	}); err != nil {
		return fmt.Errorf("failed to sync plugin record: %w", err)
	}

	s.logger.Info("plugin secret stored",
		zap.String("organization_id", payload.OrganizationID),
		zap.String("service", payload.Service),
	)
	return nil
}

// GetOne returns the plugin for the pair, or nil when not connected.
func (s *PluginService) GetOne(ctx context.Context, organizationID string, service model.PluginService) (*model.Plugin, error) {
	if !service.Valid() {
		return nil, apperr.BadRequest("unsupported service")
	}
	return s.plugins.Get(ctx, organizationID, service)
}

// Remove deletes the plugin linkage. The external secret is left in place;
// its lifecycle is managed independently.
func (s *PluginService) Remove(ctx context.Context, organizationID string, service model.PluginService) error {
	if !service.Valid() {
		return apperr.BadRequest("unsupported service")
	}

	deleted, err := s.plugins.Delete(ctx, organizationID, service)
	if err != nil {
		return err
	}
	if !deleted {
		return apperr.NotFound("Plugin not found")
	}

	s.logger.Info("plugin removed",
		zap.String("organization_id", organizationID),
		zap.String("service", string(service)),
	)
	return nil
}

// GetCredentials resolves the stored credentials for a connected plugin.
func (s *PluginService) GetCredentials(ctx context.Context, organizationID string, service model.PluginService) (map[string]string, error) {
	plugin, err := s.GetOne(ctx, organizationID, service)
	if err != nil {
		return nil, err
	}
	if plugin == nil {
		return nil, apperr.NotFound("Plugin not found")
	}

	value, err := s.secrets.GetSecret(ctx, plugin.SecretName)
	if err != nil {
		if errors.Is(err, secrets.ErrNotFound) {
			return nil, apperr.NotFound("Credentials not found")
		}
		return nil, err
	}
	return value, nil
}
