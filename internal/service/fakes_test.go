package service

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/echo-labs/support-platform/internal/model"
	"github.com/echo-labs/support-platform/internal/storage"
)

// In-memory store fakes shared by the service tests.

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*model.ContactSession
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[string]*model.ContactSession{}}
}

func (f *fakeSessionStore) Create(_ context.Context, session *model.ContactSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *session
	f.sessions[session.ID] = &cp
	return nil
}

func (f *fakeSessionStore) Get(_ context.Context, id string) (*model.ContactSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessionStore) UpdateExpiresAt(_ context.Context, id string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok {
		s.ExpiresAt = expiresAt
	}
	return nil
}

type fakeConversationStore struct {
	mu            sync.Mutex
	conversations map[string]*model.Conversation
}

func newFakeConversationStore() *fakeConversationStore {
	return &fakeConversationStore{conversations: map[string]*model.Conversation{}}
}

func (f *fakeConversationStore) Create(_ context.Context, conv *model.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *conv
	f.conversations[conv.ID] = &cp
	return nil
}

func (f *fakeConversationStore) Get(_ context.Context, id string) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.conversations[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (f *fakeConversationStore) GetByThreadID(_ context.Context, threadID string) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.conversations {
		if c.ThreadID == threadID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeConversationStore) UpdateStatus(_ context.Context, id string, status model.ConversationStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.conversations[id]; ok {
		c.Status = status
		c.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (f *fakeConversationStore) ListByOrganization(_ context.Context, organizationID string, status *model.ConversationStatus, limit, offset int) ([]model.Conversation, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []model.Conversation
	for _, c := range f.conversations {
		if c.OrganizationID != organizationID {
			continue
		}
		if status != nil && c.Status != *status {
			continue
		}
		all = append(all, *c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UpdatedAt.After(all[j].UpdatedAt) })
	total := len(all)
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

type fakeSubscriptionStore struct {
	mu   sync.Mutex
	subs map[string]*model.Subscription
}

func newFakeSubscriptionStore() *fakeSubscriptionStore {
	return &fakeSubscriptionStore{subs: map[string]*model.Subscription{}}
}

func (f *fakeSubscriptionStore) Upsert(_ context.Context, organizationID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[organizationID] = &model.Subscription{
		OrganizationID: organizationID,
		Status:         status,
		UpdatedAt:      time.Now().UTC(),
	}
	return nil
}

func (f *fakeSubscriptionStore) Get(_ context.Context, organizationID string) (*model.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subs[organizationID]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

type fakeWidgetSettingsStore struct {
	mu       sync.Mutex
	settings map[string]*model.WidgetSettings
}

func newFakeWidgetSettingsStore() *fakeWidgetSettingsStore {
	return &fakeWidgetSettingsStore{settings: map[string]*model.WidgetSettings{}}
}

func (f *fakeWidgetSettingsStore) Upsert(_ context.Context, settings *model.WidgetSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *settings
	f.settings[settings.OrganizationID] = &cp
	return nil
}

func (f *fakeWidgetSettingsStore) Get(_ context.Context, organizationID string) (*model.WidgetSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.settings[organizationID]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

type fakePluginStore struct {
	mu      sync.Mutex
	plugins map[string]*model.Plugin
}

func newFakePluginStore() *fakePluginStore {
	return &fakePluginStore{plugins: map[string]*model.Plugin{}}
}

func pluginKey(organizationID string, service model.PluginService) string {
	return organizationID + "/" + string(service)
}

func (f *fakePluginStore) Upsert(_ context.Context, plugin *model.Plugin) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *plugin
	f.plugins[pluginKey(plugin.OrganizationID, plugin.Service)] = &cp
	return nil
}

func (f *fakePluginStore) Get(_ context.Context, organizationID string, service model.PluginService) (*model.Plugin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.plugins[pluginKey(organizationID, service)]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakePluginStore) Delete(_ context.Context, organizationID string, service model.PluginService) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pluginKey(organizationID, service)
	if _, ok := f.plugins[key]; !ok {
		return false, nil
	}
	delete(f.plugins, key)
	return true, nil
}

type fakeKnowledgeStore struct {
	mu      sync.Mutex
	entries map[string]*model.KnowledgeEntry
	nextSeq int64
}

func newFakeKnowledgeStore() *fakeKnowledgeStore {
	return &fakeKnowledgeStore{entries: map[string]*model.KnowledgeEntry{}}
}

func (f *fakeKnowledgeStore) Add(_ context.Context, entry *model.KnowledgeEntry, _ []float32) (model.AddEntryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.Namespace == entry.Namespace && e.ContentHash == entry.ContentHash {
			return model.AddEntryResult{EntryID: e.ID, Created: false}, nil
		}
	}
	f.nextSeq++
	cp := *entry
	cp.Seq = f.nextSeq
	f.entries[entry.ID] = &cp
	return model.AddEntryResult{EntryID: entry.ID, Created: true}, nil
}

func (f *fakeKnowledgeStore) Get(_ context.Context, entryID string) (*model.KnowledgeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[entryID]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (f *fakeKnowledgeStore) Delete(_ context.Context, entryID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, entryID)
	return nil
}

func (f *fakeKnowledgeStore) List(_ context.Context, namespace string, afterSeq int64, pageSize int) ([]model.KnowledgeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.KnowledgeEntry
	for _, e := range f.entries {
		if e.Namespace == namespace && e.Seq > afterSeq {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	if len(out) > pageSize {
		out = out[:pageSize]
	}
	return out, nil
}

func (f *fakeKnowledgeStore) NamespaceExists(_ context.Context, namespace string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.Namespace == namespace {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeKnowledgeStore) Search(_ context.Context, namespace string, _ []float32, limit int) ([]model.SearchMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.SearchMatch
	for _, e := range f.entries {
		if e.Namespace == namespace {
			out = append(out, model.SearchMatch{Entry: *e, Score: 0.9})
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// fakeThreadLog is an in-memory stand-in for the JetStream thread log.
type fakeThreadLog struct {
	mu       sync.Mutex
	messages []model.Message
	seq      uint64
	err      error
}

func (f *fakeThreadLog) PublishMessage(_ context.Context, msg *model.Message) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.seq++
	cp := *msg
	cp.Sequence = f.seq
	f.messages = append(f.messages, cp)
	return f.seq, nil
}

func (f *fakeThreadLog) GetMessages(_ context.Context, organizationID, threadID string, afterSequence uint64, limit int) ([]model.Message, uint64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Message
	var lastSeq uint64
	for _, m := range f.messages {
		if m.OrganizationID != organizationID || m.ThreadID != threadID {
			continue
		}
		if m.Sequence <= afterSequence {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, m)
		lastSeq = m.Sequence
	}
	return out, lastSeq, len(out) == limit, nil
}

func (f *fakeThreadLog) forThread(threadID string) []model.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Message
	for _, m := range f.messages {
		if m.ThreadID == threadID {
			out = append(out, m)
		}
	}
	return out
}

// fakeBlobStore is an in-memory blob store tracking deletions.
type fakeBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	nextID  int
	deleted []string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeBlobStore) Store(_ context.Context, organizationID, filename, contentType string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := organizationID + "/" + filename + "-" + strconv.Itoa(f.nextID)
	f.objects[id] = data
	f.types[id] = contentType
	return id, nil
}

func (f *fakeBlobStore) GetURL(_ context.Context, storageID string) (*string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[storageID]; !ok {
		return nil, nil
	}
	url := "https://blobs.test/" + storageID
	return &url, nil
}

func (f *fakeBlobStore) Delete(_ context.Context, storageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, storageID)
	f.deleted = append(f.deleted, storageID)
	return nil
}

func (f *fakeBlobStore) GetMetadata(_ context.Context, storageID string) (*storage.ObjectMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[storageID]
	if !ok {
		return nil, nil
	}
	return &storage.ObjectMetadata{Size: int64(len(data)), ContentType: f.types[storageID]}, nil
}
