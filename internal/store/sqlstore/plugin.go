package sqlstore

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/echo-labs/support-platform/internal/model"
)

const tablePlugins = "plugins"

var pluginColumns = []string{"id", "organization_id", "service", "secret_name", "created_at", "updated_at"}

// PluginStore persists integration linkage records.
type PluginStore struct {
	provider *Provider
}

// NewPluginStore creates a plugin store.
func NewPluginStore(provider *Provider) *PluginStore {
	return &PluginStore{provider: provider}
}

// Upsert inserts or updates the plugin keyed by (organization_id, service).
func (s *PluginStore) Upsert(ctx context.Context, plugin *model.Plugin) error {
	now := time.Now().UTC()
	if plugin.ID == "" {
		plugin.ID = uuid.Must(uuid.NewV7()).String()
	}

	query, args, err := sq.Insert(tablePlugins).
		Columns(pluginColumns...).
		Values(plugin.ID, plugin.OrganizationID, plugin.Service, plugin.SecretName, now, now).
		Suffix("ON CONFLICT (organization_id, service) DO UPDATE SET secret_name = EXCLUDED.secret_name, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return errSQLBuild(err)
	}

	_, err = s.provider.db.ExecContext(ctx, query, args...)
	return err
}

// Get fetches the plugin for (organization, service), (nil, nil) when absent.
func (s *PluginStore) Get(ctx context.Context, organizationID string, service model.PluginService) (*model.Plugin, error) {
	query, args, err := sq.Select(pluginColumns...).
		From(tablePlugins).
		Where(sq.Eq{"organization_id": organizationID, "service": service}).
		ToSql()
	if err != nil {
		return nil, errSQLBuild(err)
	}

	var plugin model.Plugin
	if err = s.provider.db.GetContext(ctx, &plugin, query, args...); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &plugin, nil
}

// Delete removes the linkage record only; the external secret is untouched.
func (s *PluginStore) Delete(ctx context.Context, organizationID string, service model.PluginService) (bool, error) {
	query, args, err := sq.Delete(tablePlugins).
		Where(sq.Eq{"organization_id": organizationID, "service": service}).
		ToSql()
	if err != nil {
		return false, errSQLBuild(err)
	}

	res, err := s.provider.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
