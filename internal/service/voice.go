package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/echo-labs/support-platform/internal/apperr"
	"github.com/echo-labs/support-platform/internal/model"
	"github.com/echo-labs/support-platform/pkg/logger"
)

// vapiBaseURL is the Vapi server API. Credentials are per-tenant, pulled
// from the plugin's secret, never from the platform environment.
const vapiBaseURL = "https://api.vapi.ai"

// VoiceService surfaces the customer's Vapi account (assistants, phone
// numbers) to the dashboard using the credentials stored by the plugin.
type VoiceService struct {
	plugins *PluginService
	http    *http.Client
	baseURL string
	logger  *logger.Logger
}

// NewVoiceService creates a new voice service.
func NewVoiceService(plugins *PluginService, log *logger.Logger) *VoiceService {
	return &VoiceService{
		plugins: plugins,
		http:    &http.Client{Timeout: 15 * time.Second},
		baseURL: vapiBaseURL,
		logger:  log,
	}
}

// GetAssistants lists the assistants in the organization's Vapi account.
func (s *VoiceService) GetAssistants(ctx context.Context, organizationID string) ([]model.VapiAssistant, error) {
	key, err := s.privateKey(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	var assistants []model.VapiAssistant
	if err := s.get(ctx, "/assistant", key, &assistants); err != nil {
		return nil, err
	}
	return assistants, nil
}

// GetPhoneNumbers lists the phone numbers in the organization's Vapi
// account.
func (s *VoiceService) GetPhoneNumbers(ctx context.Context, organizationID string) ([]model.VapiPhoneNumber, error) {
	key, err := s.privateKey(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	var numbers []model.VapiPhoneNumber
	if err := s.get(ctx, "/phone-number", key, &numbers); err != nil {
		return nil, err
	}
	return numbers, nil
}

// privateKey resolves the tenant's private API key from the plugin secret.
func (s *VoiceService) privateKey(ctx context.Context, organizationID string) (string, error) {
	creds, err := s.plugins.GetCredentials(ctx, organizationID, model.PluginServiceVapi)
	if err != nil {
		return "", err
	}

	if creds["publicApiKey"] == "" || creds["privateApiKey"] == "" {
		return "", apperr.NotFound("Credentials incomplete. Please reconnect your Vapi account.")
	}
	return creds["privateApiKey"], nil
}

func (s *VoiceService) get(ctx context.Context, path, key string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("vapi request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read vapi response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return apperr.Unauthorized("Vapi rejected the stored credentials")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("vapi returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode vapi response: %w", err)
	}
	return nil
}
