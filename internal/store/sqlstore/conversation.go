package sqlstore

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/echo-labs/support-platform/internal/model"
)

const tableConversations = "conversations"

var conversationColumns = []string{"id", "thread_id", "organization_id", "contact_session_id", "status", "created_at", "updated_at"}

// ConversationStore persists conversation rows.
type ConversationStore struct {
	provider *Provider
}

// NewConversationStore creates a conversation store.
func NewConversationStore(provider *Provider) *ConversationStore {
	return &ConversationStore{provider: provider}
}

// Create inserts a new conversation.
func (s *ConversationStore) Create(ctx context.Context, conv *model.Conversation) error {
	query, args, err := sq.Insert(tableConversations).
		Columns(conversationColumns...).
		Values(conv.ID, conv.ThreadID, conv.OrganizationID, conv.ContactSessionID, conv.Status, conv.CreatedAt, conv.UpdatedAt).
		ToSql()
	if err != nil {
		return errSQLBuild(err)
	}

	_, err = s.provider.db.ExecContext(ctx, query, args...)
	return err
}

// Get fetches a conversation by id, returning (nil, nil) when absent.
func (s *ConversationStore) Get(ctx context.Context, id string) (*model.Conversation, error) {
	return s.getOne(ctx, sq.Eq{"id": id})
}

// GetByThreadID fetches the conversation owning a thread, (nil, nil) when absent.
func (s *ConversationStore) GetByThreadID(ctx context.Context, threadID string) (*model.Conversation, error) {
	return s.getOne(ctx, sq.Eq{"thread_id": threadID})
}

func (s *ConversationStore) getOne(ctx context.Context, pred sq.Eq) (*model.Conversation, error) {
	query, args, err := sq.Select(conversationColumns...).
		From(tableConversations).
		Where(pred).
		ToSql()
	if err != nil {
		return nil, errSQLBuild(err)
	}

	var conv model.Conversation
	if err = s.provider.db.GetContext(ctx, &conv, query, args...); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &conv, nil
}

// UpdateStatus sets a conversation's status.
func (s *ConversationStore) UpdateStatus(ctx context.Context, id string, status model.ConversationStatus) error {
	query, args, err := sq.Update(tableConversations).
		Set("status", status).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return errSQLBuild(err)
	}

	_, err = s.provider.db.ExecContext(ctx, query, args...)
	return err
}

// ListByOrganization pages an organization's conversations, newest first,
// optionally filtered by status. It also returns the unfiltered-by-page total.
func (s *ConversationStore) ListByOrganization(ctx context.Context, organizationID string, status *model.ConversationStatus, limit, offset int) ([]model.Conversation, int, error) {
	pred := sq.Eq{"organization_id": organizationID}
	if status != nil {
		pred["status"] = *status
	}

	query, args, err := sq.Select(conversationColumns...).
		From(tableConversations).
		Where(pred).
		OrderBy("updated_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, errSQLBuild(err)
	}

	var convs []model.Conversation
	if err = s.provider.db.SelectContext(ctx, &convs, query, args...); err != nil {
		return nil, 0, err
	}

	countQuery, countArgs, err := sq.Select("COUNT(*)").From(tableConversations).Where(pred).ToSql()
	if err != nil {
		return nil, 0, errSQLBuild(err)
	}

	var total int
	if err = s.provider.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, err
	}

	return convs, total, nil
}
