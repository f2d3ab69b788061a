// Package agent runs the AI support agent: a tool loop over the LLM with
// knowledge-base search and conversation status controls.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/echo-labs/support-platform/internal/apperr"
	"github.com/echo-labs/support-platform/internal/llm"
	"github.com/echo-labs/support-platform/internal/model"
	"github.com/echo-labs/support-platform/internal/rag"
	"github.com/echo-labs/support-platform/pkg/logger"
	"github.com/echo-labs/support-platform/pkg/metrics"
)

// maxToolIterations caps the tool loop per run.
const maxToolIterations = 5

// ThreadAppender appends assistant messages to the thread log.
// *nats.ThreadLog satisfies it.
type ThreadAppender interface {
	PublishMessage(ctx context.Context, msg *model.Message) (uint64, error)
}

// ConversationUpdater changes conversation status. The conversation store
// satisfies it.
type ConversationUpdater interface {
	UpdateStatus(ctx context.Context, id string, status model.ConversationStatus) error
}

// Agent is the AI support agent.
type Agent struct {
	llm           llm.Client
	chatModel     string
	rag           *rag.Service
	conversations ConversationUpdater
	threads       ThreadAppender
	logger        *logger.Logger
}

// New creates an agent.
func New(client llm.Client, chatModel string, ragSvc *rag.Service, conversations ConversationUpdater, threads ThreadAppender, log *logger.Logger) *Agent {
	return &Agent{
		llm:           client,
		chatModel:     chatModel,
		rag:           ragSvc,
		conversations: conversations,
		threads:       threads,
		logger:        log,
	}
}

// runState tracks side effects of a single run.
type runState struct {
	escalated bool
	resolved  bool
}

// Run executes one agent turn for the user prompt: the model sees the
// thread history, may call tools, and produces a reply. The reply is
// appended to the thread log and returned. Tool side effects (status
// changes, search answers) happen before Run returns.
func (a *Agent) Run(ctx context.Context, conv *model.Conversation, history []model.Message, prompt string) (*model.Message, error) {
	log := a.logger.WithOrg(conv.OrganizationID).WithThread(conv.ThreadID)

	msgs := make([]llm.ChatMessage, 0, len(history)+1)
	for _, m := range history {
		if m.Role != model.RoleUser && m.Role != model.RoleAssistant {
			continue
		}
		msgs = append(msgs, llm.ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	msgs = append(msgs, llm.ChatMessage{Role: "user", Content: prompt})

	state := &runState{}

	for i := 0; i < maxToolIterations; i++ {
		start := time.Now()
		resp, err := a.llm.Complete(ctx, &llm.CompletionRequest{
			Model:    a.chatModel,
			System:   supportPrompt,
			Messages: msgs,
			Tools:    toolDefinitions,
		})
		if err != nil {
			metrics.RecordLLMCall(a.chatModel, "error", time.Since(start).Seconds(), 0, 0)
			metrics.AgentRunsTotal.WithLabelValues(conv.OrganizationID, "error").Inc()
			return nil, apperr.Wrap(apperr.CodeAgentError, "agent completion failed", err)
		}
		metrics.RecordLLMCall(resp.Model, "success", time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)

		if len(resp.ToolCalls) == 0 {
			reply, err := a.publishReply(ctx, conv, resp)
			if err != nil {
				metrics.AgentRunsTotal.WithLabelValues(conv.OrganizationID, "error").Inc()
				return nil, err
			}
			metrics.AgentRunsTotal.WithLabelValues(conv.OrganizationID, state.outcome()).Inc()
			log.Info("agent run completed",
				zap.Int("iterations", i+1),
				zap.String("outcome", state.outcome()),
			)
			return reply, nil
		}

		msgs = append(msgs, llm.ChatMessage{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			metrics.AgentToolCallsTotal.WithLabelValues(call.Name).Inc()
			result := a.runTool(ctx, conv, call, state, log)
			msgs = append(msgs, llm.ChatMessage{
				Role:       "tool",
				Content:    result,
				ToolCallID: call.ID,
			})
		}
	}

	metrics.AgentRunsTotal.WithLabelValues(conv.OrganizationID, "error").Inc()
	return nil, apperr.New(apperr.CodeAgentError, "agent exceeded tool iteration limit")
}

func (s *runState) outcome() string {
	switch {
	case s.escalated:
		return "escalated"
	case s.resolved:
		return "resolved"
	default:
		return "answered"
	}
}

func (a *Agent) publishReply(ctx context.Context, conv *model.Conversation, resp *llm.CompletionResponse) (*model.Message, error) {
	msg := &model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ThreadID:       conv.ThreadID,
		OrganizationID: conv.OrganizationID,
		Role:           model.RoleAssistant,
		Content:        resp.Content,
		Model:          &resp.Model,
		TokensIn:       &resp.TokensIn,
		TokensOut:      &resp.TokensOut,
		CreatedAt:      time.Now().UTC(),
	}
	seq, err := a.threads.PublishMessage(ctx, msg)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeAgentError, "failed to save agent reply", err)
	}
	msg.Sequence = seq
	metrics.MessagesTotal.WithLabelValues(conv.OrganizationID, string(model.RoleAssistant)).Inc()
	return msg, nil
}

// runTool executes one tool call. Tools never return errors to the caller;
// failures become readable strings handed back to the model.
func (a *Agent) runTool(ctx context.Context, conv *model.Conversation, call llm.ToolCall, state *runState, log *logger.Logger) string {
	switch call.Name {
	case toolSearch:
		var args searchArgs
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil || args.Query == "" {
			return "Invalid search arguments"
		}
		return a.runSearch(ctx, conv, args.Query, log)

	case toolEscalate:
		if err := a.conversations.UpdateStatus(ctx, conv.ID, model.StatusEscalated); err != nil {
			log.Error("escalation failed", zap.Error(err))
			return msgEscalateFailed
		}
		state.escalated = true
		return msgEscalated

	case toolResolve:
		if err := a.conversations.UpdateStatus(ctx, conv.ID, model.StatusResolved); err != nil {
			log.Error("resolution failed", zap.Error(err))
			return msgResolveFailed
		}
		state.resolved = true
		return msgResolved

	default:
		return fmt.Sprintf("Unknown tool: %s", call.Name)
	}
}

// runSearch answers the query from the organization's knowledge base and
// appends the answer to the thread as its own assistant message.
func (a *Agent) runSearch(ctx context.Context, conv *model.Conversation, query string, log *logger.Logger) string {
	if conv.ThreadID == "" {
		return msgMissingThread
	}
	if conv.OrganizationID == "" {
		return msgConversationGone
	}

	result, err := a.rag.Search(ctx, conv.OrganizationID, query, rag.DefaultSearchLimit)
	if err != nil {
		log.Error("knowledge search failed", zap.Error(err))
		return msgSearchUnavailable
	}

	contextText := rag.ComposeContext(result)

	start := time.Now()
	resp, err := a.llm.Complete(ctx, &llm.CompletionRequest{
		Model:  a.chatModel,
		System: searchInterpreterPrompt,
		Messages: []llm.ChatMessage{
			{
				Role:    "user",
				Content: fmt.Sprintf("User asked: %q\n\nSearch results: %s", query, contextText),
			},
		},
	})
	if err != nil {
		metrics.RecordLLMCall(a.chatModel, "error", time.Since(start).Seconds(), 0, 0)
		log.Error("search interpretation failed", zap.Error(err))
		return msgSearchUnavailable
	}
	metrics.RecordLLMCall(resp.Model, "success", time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)

	msg := &model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ThreadID:       conv.ThreadID,
		OrganizationID: conv.OrganizationID,
		Role:           model.RoleAssistant,
		Content:        resp.Content,
		Model:          &resp.Model,
		TokensIn:       &resp.TokensIn,
		TokensOut:      &resp.TokensOut,
		CreatedAt:      time.Now().UTC(),
	}
	if _, err := a.threads.PublishMessage(ctx, msg); err != nil {
		log.Error("failed to save search answer", zap.Error(err))
	} else {
		metrics.MessagesTotal.WithLabelValues(conv.OrganizationID, string(model.RoleAssistant)).Inc()
	}

	return resp.Content
}
