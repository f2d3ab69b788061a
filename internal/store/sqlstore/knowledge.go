package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pgvector/pgvector-go"

	"github.com/echo-labs/support-platform/internal/model"
)

const tableKnowledgeEntries = "knowledge_entries"

var knowledgeColumns = []string{"id", "namespace", "key", "title", "content", "content_hash", "status", "storage_id", "uploaded_by", "filename", "category", "seq", "created_at"}

// KnowledgeStore persists the namespace-partitioned document index.
// Embeddings are stored alongside entries in a pgvector column.
type KnowledgeStore struct {
	provider *Provider
}

// NewKnowledgeStore creates a knowledge store.
func NewKnowledgeStore(provider *Provider) *KnowledgeStore {
	return &KnowledgeStore{provider: provider}
}

type knowledgeRow struct {
	ID          string         `db:"id"`
	Namespace   string         `db:"namespace"`
	Key         string         `db:"key"`
	Title       string         `db:"title"`
	Content     string         `db:"content"`
	ContentHash string         `db:"content_hash"`
	Status      string         `db:"status"`
	StorageID   string         `db:"storage_id"`
	UploadedBy  string         `db:"uploaded_by"`
	Filename    string         `db:"filename"`
	Category    sql.NullString `db:"category"`
	Seq         int64          `db:"seq"`
	CreatedAt   time.Time      `db:"created_at"`
}

func (r *knowledgeRow) toModel() model.KnowledgeEntry {
	entry := model.KnowledgeEntry{
		ID:          r.ID,
		Namespace:   r.Namespace,
		Key:         r.Key,
		Title:       r.Title,
		Text:        r.Content,
		ContentHash: r.ContentHash,
		Status:      model.EntryStatus(r.Status),
		Metadata: model.EntryMetadata{
			StorageID:  r.StorageID,
			UploadedBy: r.UploadedBy,
			Filename:   r.Filename,
		},
		Seq:       r.Seq,
		CreatedAt: r.CreatedAt,
	}
	if r.Category.Valid {
		category := r.Category.String
		entry.Metadata.Category = &category
	}
	return entry
}

// Add inserts an entry unless the (namespace, content_hash) pair already
// exists. The uniqueness check rides on the table's unique index, so two
// concurrent adds of identical content cannot both create.
func (s *KnowledgeStore) Add(ctx context.Context, entry *model.KnowledgeEntry, embedding []float32) (model.AddEntryResult, error) {
	var embeddingValue interface{}
	if len(embedding) > 0 {
		embeddingValue = pgvector.NewVector(embedding)
	}

	query, args, err := sq.Insert(tableKnowledgeEntries).
		Columns("id", "namespace", "key", "title", "content", "content_hash", "status", "storage_id", "uploaded_by", "filename", "category", "embedding", "created_at").
		Values(entry.ID, entry.Namespace, entry.Key, entry.Title, entry.Text, entry.ContentHash, entry.Status, entry.Metadata.StorageID, entry.Metadata.UploadedBy, entry.Metadata.Filename, entry.Metadata.Category, embeddingValue, entry.CreatedAt).
		Suffix("ON CONFLICT (namespace, content_hash) DO NOTHING RETURNING id").
		ToSql()
	if err != nil {
		return model.AddEntryResult{}, errSQLBuild(err)
	}

	var id string
	err = s.provider.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if err == nil {
		return model.AddEntryResult{EntryID: id, Created: true}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.AddEntryResult{}, err
	}

	// Conflict: resolve the existing entry's id.
	existingQuery, existingArgs, err := sq.Select("id").
		From(tableKnowledgeEntries).
		Where(sq.Eq{"namespace": entry.Namespace, "content_hash": entry.ContentHash}).
		ToSql()
	if err != nil {
		return model.AddEntryResult{}, errSQLBuild(err)
	}

	if err = s.provider.db.GetContext(ctx, &id, existingQuery, existingArgs...); err != nil {
		return model.AddEntryResult{}, err
	}
	return model.AddEntryResult{EntryID: id, Created: false}, nil
}

// Get fetches an entry by id, returning (nil, nil) when absent.
func (s *KnowledgeStore) Get(ctx context.Context, entryID string) (*model.KnowledgeEntry, error) {
	query, args, err := sq.Select(knowledgeColumns...).
		From(tableKnowledgeEntries).
		Where(sq.Eq{"id": entryID}).
		ToSql()
	if err != nil {
		return nil, errSQLBuild(err)
	}

	var row knowledgeRow
	if err = s.provider.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	entry := row.toModel()
	return &entry, nil
}

// Delete removes an entry. The row delete is the authoritative removal;
// callers handle blob cleanup separately.
func (s *KnowledgeStore) Delete(ctx context.Context, entryID string) error {
	query, args, err := sq.Delete(tableKnowledgeEntries).
		Where(sq.Eq{"id": entryID}).
		ToSql()
	if err != nil {
		return errSQLBuild(err)
	}

	_, err = s.provider.db.ExecContext(ctx, query, args...)
	return err
}

// List pages a namespace in insertion order (ascending seq).
func (s *KnowledgeStore) List(ctx context.Context, namespace string, afterSeq int64, pageSize int) ([]model.KnowledgeEntry, error) {
	query, args, err := sq.Select(knowledgeColumns...).
		From(tableKnowledgeEntries).
		Where(sq.And{sq.Eq{"namespace": namespace}, sq.Gt{"seq": afterSeq}}).
		OrderBy("seq ASC").
		Limit(uint64(pageSize)).
		ToSql()
	if err != nil {
		return nil, errSQLBuild(err)
	}

	var rows []knowledgeRow
	if err = s.provider.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	entries := make([]model.KnowledgeEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].toModel()
	}
	return entries, nil
}

// NamespaceExists reports whether the namespace has any entries.
func (s *KnowledgeStore) NamespaceExists(ctx context.Context, namespace string) (bool, error) {
	query, args, err := sq.Select("1").
		From(tableKnowledgeEntries).
		Where(sq.Eq{"namespace": namespace}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, errSQLBuild(err)
	}

	var one int
	if err = s.provider.db.GetContext(ctx, &one, query, args...); err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Search ranks the namespace's ready entries by cosine similarity to the
// query embedding. The namespace predicate is part of the query itself, so
// results can never cross the isolation boundary.
func (s *KnowledgeStore) Search(ctx context.Context, namespace string, embedding []float32, limit int) ([]model.SearchMatch, error) {
	vec := pgvector.NewVector(embedding)

	builder := sq.Select(knowledgeColumns...).
		Column(sq.Expr("1 - (embedding <=> ?) AS score", vec)).
		From(tableKnowledgeEntries).
		Where(sq.Eq{"namespace": namespace, "status": model.EntryStatusReady}).
		Where("embedding IS NOT NULL").
		OrderByClause("embedding <=> ?", vec).
		Limit(uint64(limit))

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, errSQLBuild(err)
	}

	type matchRow struct {
		knowledgeRow
		Score float64 `db:"score"`
	}

	var rows []matchRow
	if err = s.provider.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	matches := make([]model.SearchMatch, len(rows))
	for i := range rows {
		matches[i] = model.SearchMatch{Entry: rows[i].knowledgeRow.toModel(), Score: rows[i].Score}
	}
	return matches, nil
}
