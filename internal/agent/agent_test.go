package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echo-labs/support-platform/internal/apperr"
	"github.com/echo-labs/support-platform/internal/llm"
	"github.com/echo-labs/support-platform/internal/model"
	"github.com/echo-labs/support-platform/internal/rag"
	"github.com/echo-labs/support-platform/pkg/logger"
)

type scriptedLLM struct {
	responses []*llm.CompletionResponse
	err       error
	requests  []*llm.CompletionRequest
}

func (s *scriptedLLM) Complete(_ context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.responses) == 0 {
		return &llm.CompletionResponse{Content: "default answer", Model: "test-model"}, nil
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func (s *scriptedLLM) Name() string { return "scripted" }

type memThreadLog struct {
	messages []*model.Message
	seq      uint64
	err      error
}

func (m *memThreadLog) PublishMessage(_ context.Context, msg *model.Message) (uint64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.seq++
	m.messages = append(m.messages, msg)
	return m.seq, nil
}

type memStatusStore struct {
	statuses map[string]model.ConversationStatus
	err      error
}

func (m *memStatusStore) UpdateStatus(_ context.Context, id string, status model.ConversationStatus) error {
	if m.err != nil {
		return m.err
	}
	if m.statuses == nil {
		m.statuses = map[string]model.ConversationStatus{}
	}
	m.statuses[id] = status
	return nil
}

type memKnowledge struct {
	entries []model.KnowledgeEntry
}

func (m *memKnowledge) Add(_ context.Context, entry *model.KnowledgeEntry, _ []float32) (model.AddEntryResult, error) {
	m.entries = append(m.entries, *entry)
	return model.AddEntryResult{EntryID: entry.ID, Created: true}, nil
}

func (m *memKnowledge) Get(_ context.Context, _ string) (*model.KnowledgeEntry, error) { return nil, nil }
func (m *memKnowledge) Delete(_ context.Context, _ string) error                       { return nil }

func (m *memKnowledge) List(_ context.Context, _ string, _ int64, _ int) ([]model.KnowledgeEntry, error) {
	return nil, nil
}

func (m *memKnowledge) NamespaceExists(_ context.Context, namespace string) (bool, error) {
	for _, e := range m.entries {
		if e.Namespace == namespace {
			return true, nil
		}
	}
	return false, nil
}

func (m *memKnowledge) Search(_ context.Context, namespace string, _ []float32, limit int) ([]model.SearchMatch, error) {
	var out []model.SearchMatch
	for _, e := range m.entries {
		if e.Namespace == namespace {
			out = append(out, model.SearchMatch{Entry: e, Score: 0.9})
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type constEmbedder struct{}

func (constEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func testConversation() *model.Conversation {
	return &model.Conversation{
		ID:             "conv_1",
		ThreadID:       "thread_1",
		OrganizationID: "org_1",
		Status:         model.StatusUnresolved,
	}
}

func newAgent(client llm.Client, kb *memKnowledge) (*Agent, *memThreadLog, *memStatusStore) {
	threads := &memThreadLog{}
	statuses := &memStatusStore{}
	ragSvc := rag.NewService(kb, constEmbedder{}, logger.NewNop())
	return New(client, "test-model", ragSvc, statuses, threads, logger.NewNop()), threads, statuses
}

func TestRunPlainReply(t *testing.T) {
	client := &scriptedLLM{responses: []*llm.CompletionResponse{
		{Content: "Happy to help!", Model: "test-model", TokensIn: 12, TokensOut: 4},
	}}
	ag, threads, _ := newAgent(client, &memKnowledge{})

	reply, err := ag.Run(context.Background(), testConversation(), nil, "hello")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAssistant, reply.Role)
	assert.Equal(t, "Happy to help!", reply.Content)
	assert.EqualValues(t, 1, reply.Sequence)
	require.Len(t, threads.messages, 1)

	// The user prompt reaches the model with the support system prompt.
	require.Len(t, client.requests, 1)
	assert.Equal(t, supportPrompt, client.requests[0].System)
	last := client.requests[0].Messages[len(client.requests[0].Messages)-1]
	assert.Equal(t, "hello", last.Content)
}

func TestRunIncludesHistory(t *testing.T) {
	client := &scriptedLLM{}
	ag, _, _ := newAgent(client, &memKnowledge{})

	history := []model.Message{
		{Role: model.RoleUser, Content: "earlier question"},
		{Role: model.RoleAssistant, Content: "earlier answer"},
		{Role: model.RoleSystem, Content: "greeting"},
	}
	_, err := ag.Run(context.Background(), testConversation(), history, "followup")
	require.NoError(t, err)

	msgs := client.requests[0].Messages
	require.Len(t, msgs, 3, "system-role history is not replayed to the model")
	assert.Equal(t, "earlier question", msgs[0].Content)
	assert.Equal(t, "earlier answer", msgs[1].Content)
	assert.Equal(t, "followup", msgs[2].Content)
}

func TestRunEscalateTool(t *testing.T) {
	client := &scriptedLLM{responses: []*llm.CompletionResponse{
		{
			Model:     "test-model",
			ToolCalls: []llm.ToolCall{{ID: "call_1", Name: toolEscalate, Arguments: "{}"}},
		},
		{Content: "I've connected you with a human operator.", Model: "test-model"},
	}}
	ag, threads, statuses := newAgent(client, &memKnowledge{})

	reply, err := ag.Run(context.Background(), testConversation(), nil, "I want a human")
	require.NoError(t, err)
	assert.Equal(t, model.StatusEscalated, statuses.statuses["conv_1"])
	assert.Equal(t, "I've connected you with a human operator.", reply.Content)
	require.Len(t, threads.messages, 1)

	// Tool result is replayed to the model on the second turn.
	second := client.requests[1].Messages
	toolMsg := second[len(second)-1]
	assert.Equal(t, "tool", toolMsg.Role)
	assert.Equal(t, "call_1", toolMsg.ToolCallID)
	assert.Equal(t, msgEscalated, toolMsg.Content)
}

func TestRunResolveTool(t *testing.T) {
	client := &scriptedLLM{responses: []*llm.CompletionResponse{
		{
			Model:     "test-model",
			ToolCalls: []llm.ToolCall{{ID: "call_1", Name: toolResolve, Arguments: "{}"}},
		},
		{Content: "Glad I could help!", Model: "test-model"},
	}}
	ag, _, statuses := newAgent(client, &memKnowledge{})

	_, err := ag.Run(context.Background(), testConversation(), nil, "that fixed it, thanks")
	require.NoError(t, err)
	assert.Equal(t, model.StatusResolved, statuses.statuses["conv_1"])
}

func TestRunEscalateFailureSoftFails(t *testing.T) {
	client := &scriptedLLM{responses: []*llm.CompletionResponse{
		{
			Model:     "test-model",
			ToolCalls: []llm.ToolCall{{ID: "call_1", Name: toolEscalate, Arguments: "{}"}},
		},
		{Content: "Sorry, please try again later.", Model: "test-model"},
	}}
	ag, _, statuses := newAgent(client, &memKnowledge{})
	statuses.err = errors.New("db down")

	reply, err := ag.Run(context.Background(), testConversation(), nil, "human please")
	require.NoError(t, err, "tool failures never fail the run")
	assert.Equal(t, "Sorry, please try again later.", reply.Content)

	second := client.requests[1].Messages
	assert.Equal(t, msgEscalateFailed, second[len(second)-1].Content)
}

func TestRunSearchTool(t *testing.T) {
	kb := &memKnowledge{entries: []model.KnowledgeEntry{
		{Namespace: "org_1", Title: "pricing.md", Text: "The Pro plan costs $49."},
		{Namespace: "org_2", Title: "secret.md", Text: "other tenant data"},
	}}
	client := &scriptedLLM{responses: []*llm.CompletionResponse{
		{
			Model:     "test-model",
			ToolCalls: []llm.ToolCall{{ID: "call_1", Name: toolSearch, Arguments: `{"query": "pro plan price"}`}},
		},
		{Content: "The Pro plan costs $49.", Model: "test-model"},
		{Content: "Anything else I can help with?", Model: "test-model"},
	}}
	ag, threads, _ := newAgent(client, kb)

	reply, err := ag.Run(context.Background(), testConversation(), nil, "how much is pro?")
	require.NoError(t, err)
	assert.Equal(t, "Anything else I can help with?", reply.Content)

	// The search answer is its own assistant message, then the final reply.
	require.Len(t, threads.messages, 2)
	assert.Equal(t, "The Pro plan costs $49.", threads.messages[0].Content)
	assert.Equal(t, model.RoleAssistant, threads.messages[0].Role)

	// The interpreter call only sees results from the conversation's org.
	interp := client.requests[1]
	assert.Equal(t, searchInterpreterPrompt, interp.System)
	assert.Contains(t, interp.Messages[0].Content, "pricing.md")
	assert.NotContains(t, interp.Messages[0].Content, "other tenant data")
}

func TestRunInvalidSearchArguments(t *testing.T) {
	client := &scriptedLLM{responses: []*llm.CompletionResponse{
		{
			Model:     "test-model",
			ToolCalls: []llm.ToolCall{{ID: "call_1", Name: toolSearch, Arguments: "not json"}},
		},
		{Content: "done", Model: "test-model"},
	}}
	ag, _, _ := newAgent(client, &memKnowledge{})

	_, err := ag.Run(context.Background(), testConversation(), nil, "hi")
	require.NoError(t, err)

	second := client.requests[1].Messages
	assert.Equal(t, "Invalid search arguments", second[len(second)-1].Content)
}

func TestRunLLMFailure(t *testing.T) {
	client := &scriptedLLM{err: errors.New("provider down")}
	ag, _, _ := newAgent(client, &memKnowledge{})

	_, err := ag.Run(context.Background(), testConversation(), nil, "hi")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeAgentError, apperr.CodeOf(err))
}

func TestRunToolIterationLimit(t *testing.T) {
	// Model keeps calling tools and never answers.
	var responses []*llm.CompletionResponse
	for i := 0; i < maxToolIterations; i++ {
		responses = append(responses, &llm.CompletionResponse{
			Model:     "test-model",
			ToolCalls: []llm.ToolCall{{ID: "call", Name: toolEscalate, Arguments: "{}"}},
		})
	}
	client := &scriptedLLM{responses: responses}
	ag, _, _ := newAgent(client, &memKnowledge{})

	_, err := ag.Run(context.Background(), testConversation(), nil, "hi")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeAgentError, apperr.CodeOf(err))
}
