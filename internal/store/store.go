// Package store defines the persistence interfaces consumed by the service
// layer. The sqlstore subpackage provides the Postgres implementation.
package store

import (
	"context"
	"time"

	"github.com/echo-labs/support-platform/internal/model"
)

// ContactSessionStore persists anonymous widget visitor sessions.
// Sessions are never deleted; expiry is checked at read time.
type ContactSessionStore interface {
	Create(ctx context.Context, session *model.ContactSession) error
	// Get returns (nil, nil) when the session does not exist.
	Get(ctx context.Context, id string) (*model.ContactSession, error)
	UpdateExpiresAt(ctx context.Context, id string, expiresAt time.Time) error
}

// ConversationStore persists conversation rows. Message content lives in the
// thread log, not here.
type ConversationStore interface {
	Create(ctx context.Context, conv *model.Conversation) error
	// Get returns (nil, nil) when the conversation does not exist.
	Get(ctx context.Context, id string) (*model.Conversation, error)
	// GetByThreadID returns (nil, nil) when no conversation owns the thread.
	GetByThreadID(ctx context.Context, threadID string) (*model.Conversation, error)
	UpdateStatus(ctx context.Context, id string, status model.ConversationStatus) error
	ListByOrganization(ctx context.Context, organizationID string, status *model.ConversationStatus, limit, offset int) ([]model.Conversation, int, error)
}

// KnowledgeStore is the namespace-partitioned, content-addressed document
// index. Every operation is scoped to a single namespace.
type KnowledgeStore interface {
	// Add inserts the entry unless an entry with the same
	// (namespace, contentHash) already exists; the check is atomic with the
	// insert. When a duplicate exists, the existing entry id is returned
	// with Created=false and no state is mutated.
	Add(ctx context.Context, entry *model.KnowledgeEntry, embedding []float32) (model.AddEntryResult, error)
	// Get returns (nil, nil) when the entry does not exist.
	Get(ctx context.Context, entryID string) (*model.KnowledgeEntry, error)
	Delete(ctx context.Context, entryID string) error
	// List returns up to pageSize entries of the namespace with Seq greater
	// than afterSeq, in ascending Seq order.
	List(ctx context.Context, namespace string, afterSeq int64, pageSize int) ([]model.KnowledgeEntry, error)
	// NamespaceExists reports whether the namespace has ever received an add.
	NamespaceExists(ctx context.Context, namespace string) (bool, error)
	// Search returns the top-K entries of the namespace ranked by cosine
	// similarity to the query embedding.
	Search(ctx context.Context, namespace string, embedding []float32, limit int) ([]model.SearchMatch, error)
}

// PluginStore persists (organization, service) -> secret name linkages,
// unique on the composite key.
type PluginStore interface {
	Upsert(ctx context.Context, plugin *model.Plugin) error
	// Get returns (nil, nil) when no plugin exists for the pair.
	Get(ctx context.Context, organizationID string, service model.PluginService) (*model.Plugin, error)
	// Delete reports whether a row was removed.
	Delete(ctx context.Context, organizationID string, service model.PluginService) (bool, error)
}

// SubscriptionStore persists per-organization billing state.
type SubscriptionStore interface {
	Upsert(ctx context.Context, organizationID, status string) error
	// Get returns (nil, nil) when the organization has no subscription row.
	Get(ctx context.Context, organizationID string) (*model.Subscription, error)
}

// WidgetSettingsStore persists the per-organization widget configuration.
type WidgetSettingsStore interface {
	Upsert(ctx context.Context, settings *model.WidgetSettings) error
	// Get returns (nil, nil) when the organization has no settings row.
	Get(ctx context.Context, organizationID string) (*model.WidgetSettings, error)
}
