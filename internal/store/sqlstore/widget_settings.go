package sqlstore

import (
	"context"
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/echo-labs/support-platform/internal/model"
)

const tableWidgetSettings = "widget_settings"

// WidgetSettingsStore persists per-organization widget configuration.
type WidgetSettingsStore struct {
	provider *Provider
}

// NewWidgetSettingsStore creates a widget settings store.
func NewWidgetSettingsStore(provider *Provider) *WidgetSettingsStore {
	return &WidgetSettingsStore{provider: provider}
}

type widgetSettingsRow struct {
	OrganizationID     string    `db:"organization_id"`
	GreetMessage       string    `db:"greet_message"`
	DefaultSuggestions []byte    `db:"default_suggestions"`
	VapiSettings       []byte    `db:"vapi_settings"`
	UpdatedAt          time.Time `db:"updated_at"`
}

// Upsert inserts or updates the organization's widget settings.
func (s *WidgetSettingsStore) Upsert(ctx context.Context, settings *model.WidgetSettings) error {
	suggestions, err := json.Marshal(settings.DefaultSuggestions)
	if err != nil {
		return err
	}
	vapi, err := json.Marshal(settings.VapiSettings)
	if err != nil {
		return err
	}

	query, args, err := sq.Insert(tableWidgetSettings).
		Columns("organization_id", "greet_message", "default_suggestions", "vapi_settings", "updated_at").
		Values(settings.OrganizationID, settings.GreetMessage, suggestions, vapi, time.Now().UTC()).
		Suffix("ON CONFLICT (organization_id) DO UPDATE SET greet_message = EXCLUDED.greet_message, default_suggestions = EXCLUDED.default_suggestions, vapi_settings = EXCLUDED.vapi_settings, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return errSQLBuild(err)
	}

	_, err = s.provider.db.ExecContext(ctx, query, args...)
	return err
}

// Get fetches the organization's widget settings, (nil, nil) when absent.
func (s *WidgetSettingsStore) Get(ctx context.Context, organizationID string) (*model.WidgetSettings, error) {
	query, args, err := sq.Select("organization_id", "greet_message", "default_suggestions", "vapi_settings", "updated_at").
		From(tableWidgetSettings).
		Where(sq.Eq{"organization_id": organizationID}).
		ToSql()
	if err != nil {
		return nil, errSQLBuild(err)
	}

	var row widgetSettingsRow
	if err = s.provider.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}

	settings := &model.WidgetSettings{
		OrganizationID: row.OrganizationID,
		GreetMessage:   row.GreetMessage,
		UpdatedAt:      row.UpdatedAt,
	}
	if len(row.DefaultSuggestions) > 0 {
		if err := json.Unmarshal(row.DefaultSuggestions, &settings.DefaultSuggestions); err != nil {
			return nil, err
		}
	}
	if len(row.VapiSettings) > 0 {
		if err := json.Unmarshal(row.VapiSettings, &settings.VapiSettings); err != nil {
			return nil, err
		}
	}
	return settings, nil
}
