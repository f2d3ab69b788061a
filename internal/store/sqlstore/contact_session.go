package sqlstore

import (
	"context"
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/echo-labs/support-platform/internal/model"
)

const tableContactSessions = "contact_sessions"

// ContactSessionStore persists widget visitor sessions.
type ContactSessionStore struct {
	provider *Provider
}

// NewContactSessionStore creates a contact session store.
func NewContactSessionStore(provider *Provider) *ContactSessionStore {
	return &ContactSessionStore{provider: provider}
}

type contactSessionRow struct {
	ID             string    `db:"id"`
	Name           string    `db:"name"`
	Email          string    `db:"email"`
	OrganizationID string    `db:"organization_id"`
	ExpiresAt      time.Time `db:"expires_at"`
	Metadata       []byte    `db:"metadata"`
	CreatedAt      time.Time `db:"created_at"`
}

func (r *contactSessionRow) toModel() (*model.ContactSession, error) {
	session := &model.ContactSession{
		ID:             r.ID,
		Name:           r.Name,
		Email:          r.Email,
		OrganizationID: r.OrganizationID,
		ExpiresAt:      r.ExpiresAt,
		CreatedAt:      r.CreatedAt,
	}
	if len(r.Metadata) > 0 {
		var meta model.SessionMetadata
		if err := json.Unmarshal(r.Metadata, &meta); err != nil {
			return nil, err
		}
		session.Metadata = &meta
	}
	return session, nil
}

// Create inserts a new session row.
func (s *ContactSessionStore) Create(ctx context.Context, session *model.ContactSession) error {
	var metadata []byte
	if session.Metadata != nil {
		var err error
		metadata, err = json.Marshal(session.Metadata)
		if err != nil {
			return err
		}
	}

	query, args, err := sq.Insert(tableContactSessions).
		Columns("id", "name", "email", "organization_id", "expires_at", "metadata", "created_at").
		Values(session.ID, session.Name, session.Email, session.OrganizationID, session.ExpiresAt, metadata, session.CreatedAt).
		ToSql()
	if err != nil {
		return errSQLBuild(err)
	}

	_, err = s.provider.db.ExecContext(ctx, query, args...)
	return err
}

// Get fetches a session by id, returning (nil, nil) when absent.
func (s *ContactSessionStore) Get(ctx context.Context, id string) (*model.ContactSession, error) {
	query, args, err := sq.Select("id", "name", "email", "organization_id", "expires_at", "metadata", "created_at").
		From(tableContactSessions).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, errSQLBuild(err)
	}

	var row contactSessionRow
	if err = s.provider.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return row.toModel()
}

// UpdateExpiresAt extends a session's lifetime.
func (s *ContactSessionStore) UpdateExpiresAt(ctx context.Context, id string, expiresAt time.Time) error {
	query, args, err := sq.Update(tableContactSessions).
		Set("expires_at", expiresAt).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return errSQLBuild(err)
	}

	_, err = s.provider.db.ExecContext(ctx, query, args...)
	return err
}
