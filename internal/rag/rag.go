// Package rag implements the retrieval pipeline over the knowledge store:
// embedding content on the way in, similarity search on the way out.
package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/echo-labs/support-platform/internal/llm"
	"github.com/echo-labs/support-platform/internal/model"
	"github.com/echo-labs/support-platform/internal/store"
	"github.com/echo-labs/support-platform/pkg/logger"
	"github.com/echo-labs/support-platform/pkg/metrics"
)

// DefaultSearchLimit caps similarity search results when no limit is given.
const DefaultSearchLimit = 5

// Service ties the knowledge store to an embedding model.
type Service struct {
	knowledge store.KnowledgeStore
	embedder  llm.Embedder
	logger    *logger.Logger
}

// NewService creates a RAG service.
func NewService(knowledge store.KnowledgeStore, embedder llm.Embedder, logger *logger.Logger) *Service {
	return &Service{
		knowledge: knowledge,
		embedder:  embedder,
		logger:    logger,
	}
}

// AddParams describes one entry to index.
type AddParams struct {
	Namespace   string
	Key         string
	Title       string
	Text        string
	ContentHash string
	Metadata    model.EntryMetadata
}

// HashBytes returns the content hash used for deduplication.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Add embeds and stores an entry. Entries are deduplicated per namespace by
// content hash: adding identical content again returns the existing entry ID
// with Created=false and writes nothing.
func (s *Service) Add(ctx context.Context, p AddParams) (model.AddEntryResult, error) {
	if p.Namespace == "" {
		return model.AddEntryResult{}, fmt.Errorf("namespace is required")
	}
	if p.ContentHash == "" {
		p.ContentHash = HashBytes([]byte(p.Text))
	}

	embedding, err := s.embedder.Embed(ctx, p.Text)
	if err != nil {
		return model.AddEntryResult{}, fmt.Errorf("failed to embed content: %w", err)
	}

	entry := &model.KnowledgeEntry{
		ID:          uuid.Must(uuid.NewV7()).String(),
		Namespace:   p.Namespace,
		Key:         p.Key,
		Title:       p.Title,
		Text:        p.Text,
		ContentHash: p.ContentHash,
		Status:      model.EntryStatusReady,
		Metadata:    p.Metadata,
	}

	result, err := s.knowledge.Add(ctx, entry, embedding)
	if err != nil {
		return model.AddEntryResult{}, fmt.Errorf("failed to store entry: %w", err)
	}

	outcome := "created"
	if !result.Created {
		outcome = "deduplicated"
	}
	metrics.KnowledgeEntriesTotal.WithLabelValues(p.Namespace, outcome).Inc()

	s.logger.Info("knowledge entry added",
		zap.String("namespace", p.Namespace),
		zap.String("entry_id", result.EntryID),
		zap.Bool("created", result.Created),
	)
	return result, nil
}

// SearchResult holds the matched entries plus their concatenated text.
type SearchResult struct {
	Entries []model.SearchMatch
	Text    string
}

// Search embeds the query and returns the closest ready entries in the
// namespace. A missing or empty namespace yields an empty result, not an
// error.
func (s *Service) Search(ctx context.Context, namespace, query string, limit int) (*SearchResult, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches, err := s.knowledge.Search(ctx, namespace, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	texts := lo.Map(matches, func(m model.SearchMatch, _ int) string {
		return m.Entry.Text
	})

	return &SearchResult{
		Entries: matches,
		Text:    strings.Join(texts, "\n\n"),
	}, nil
}

// HasNamespace reports whether any entries exist in the namespace.
func (s *Service) HasNamespace(ctx context.Context, namespace string) (bool, error) {
	return s.knowledge.NamespaceExists(ctx, namespace)
}

// ComposeContext renders a search result into the context block handed to
// the answering model.
func ComposeContext(res *SearchResult) string {
	titles := lo.FilterMap(res.Entries, func(m model.SearchMatch, _ int) (string, bool) {
		return m.Entry.Title, m.Entry.Title != ""
	})
	return fmt.Sprintf("Found results in %s. Here is the context:\n\n%s", strings.Join(titles, ", "), res.Text)
}
