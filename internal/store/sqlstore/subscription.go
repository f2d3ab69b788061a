package sqlstore

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/echo-labs/support-platform/internal/model"
)

const tableSubscriptions = "subscriptions"

// SubscriptionStore persists per-organization billing state.
type SubscriptionStore struct {
	provider *Provider
}

// NewSubscriptionStore creates a subscription store.
func NewSubscriptionStore(provider *Provider) *SubscriptionStore {
	return &SubscriptionStore{provider: provider}
}

// Upsert inserts or updates the organization's subscription status.
func (s *SubscriptionStore) Upsert(ctx context.Context, organizationID, status string) error {
	query, args, err := sq.Insert(tableSubscriptions).
		Columns("organization_id", "status", "updated_at").
		Values(organizationID, status, time.Now().UTC()).
		Suffix("ON CONFLICT (organization_id) DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return errSQLBuild(err)
	}

	_, err = s.provider.db.ExecContext(ctx, query, args...)
	return err
}

// Get fetches the organization's subscription, (nil, nil) when absent.
func (s *SubscriptionStore) Get(ctx context.Context, organizationID string) (*model.Subscription, error) {
	query, args, err := sq.Select("organization_id", "status", "updated_at").
		From(tableSubscriptions).
		Where(sq.Eq{"organization_id": organizationID}).
		ToSql()
	if err != nil {
		return nil, errSQLBuild(err)
	}

	var sub model.Subscription
	if err = s.provider.db.GetContext(ctx, &sub, query, args...); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}
