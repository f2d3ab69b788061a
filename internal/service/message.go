package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/echo-labs/support-platform/internal/apperr"
	"github.com/echo-labs/support-platform/internal/model"
	"github.com/echo-labs/support-platform/internal/store"
	"github.com/echo-labs/support-platform/pkg/logger"
	"github.com/echo-labs/support-platform/pkg/metrics"
)

// historyLimit caps the thread history replayed to the agent.
const historyLimit = 50

// AgentRunner runs one AI agent turn. *agent.Agent satisfies it.
type AgentRunner interface {
	Run(ctx context.Context, conv *model.Conversation, history []model.Message, prompt string) (*model.Message, error)
}

// MessageService routes widget messages into threads and decides when the
// AI agent responds.
type MessageService struct {
	conversations store.ConversationStore
	subscriptions store.SubscriptionStore
	sessions      *SessionService
	threads       ThreadPublisher
	agent         AgentRunner
	logger        *logger.Logger
}

// NewMessageService creates a new message service.
func NewMessageService(
	conversations store.ConversationStore,
	subscriptions store.SubscriptionStore,
	sessions *SessionService,
	threads ThreadPublisher,
	agentRunner AgentRunner,
	log *logger.Logger,
) *MessageService {
	return &MessageService{
		conversations: conversations,
		subscriptions: subscriptions,
		sessions:      sessions,
		threads:       threads,
		agent:         agentRunner,
		logger:        log,
	}
}

// Post appends a user message to a conversation thread. When the
// conversation is unresolved and the organization's subscription is active,
// the AI agent generates a reply; otherwise the message is saved without a
// response. The returned message is the agent's reply, nil when no agent
// ran.
//
// An escalated conversation still accepts user messages, they just wait for
// a human. A resolved conversation accepts nothing.
func (s *MessageService) Post(ctx context.Context, req *model.PostMessageRequest) (*model.Message, error) {
	if req.Prompt == "" {
		return nil, apperr.BadRequest("prompt is required")
	}

	session, err := s.sessions.GetValid(ctx, req.ContactSessionID)
	if err != nil {
		return nil, err
	}

	conv, err := s.conversations.GetByThreadID(ctx, req.ThreadID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, apperr.NotFound("Conversation not found")
	}
	if conv.ContactSessionID != session.ID {
		return nil, apperr.Unauthorized("Incorrect session")
	}
	if conv.Status == model.StatusResolved {
		return nil, apperr.BadRequest("Conversation is resolved")
	}

	if err := s.sessions.MaybeRefresh(ctx, session); err != nil {
		s.logger.Warn("session refresh failed", zap.Error(err))
	}

	sub, err := s.subscriptions.Get(ctx, conv.OrganizationID)
	if err != nil {
		return nil, err
	}
	shouldTriggerAgent := conv.Status == model.StatusUnresolved &&
		sub != nil && sub.Status == model.SubscriptionStatusActive

	// History is captured before the prompt lands so the agent sees the
	// prompt exactly once.
	var history []model.Message
	if shouldTriggerAgent {
		history, _, _, err = s.threads.GetMessages(ctx, conv.OrganizationID, conv.ThreadID, 0, historyLimit)
		if err != nil {
			return nil, err
		}
	}

	userMsg := &model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ThreadID:       conv.ThreadID,
		OrganizationID: conv.OrganizationID,
		Role:           model.RoleUser,
		Content:        req.Prompt,
		CreatedAt:      time.Now().UTC(),
	}
	if _, err := s.threads.PublishMessage(ctx, userMsg); err != nil {
		return nil, err
	}
	metrics.MessagesTotal.WithLabelValues(conv.OrganizationID, string(model.RoleUser)).Inc()

	if !shouldTriggerAgent {
		return nil, nil
	}

	reply, err := s.agent.Run(ctx, conv, history, req.Prompt)
	if err != nil {
		// The user message is already in the thread; the failure only
		// concerns the reply.
		return nil, err
	}
	return reply, nil
}

// List returns a page of thread messages for the owning widget session.
func (s *MessageService) List(ctx context.Context, threadID, contactSessionID string, afterSequence uint64, limit int) (*model.ListMessagesResponse, error) {
	session, err := s.sessions.GetValid(ctx, contactSessionID)
	if err != nil {
		return nil, err
	}

	conv, err := s.conversations.GetByThreadID(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, apperr.NotFound("Conversation not found")
	}
	if conv.ContactSessionID != session.ID {
		return nil, apperr.Unauthorized("Incorrect session")
	}

	return s.listMessages(ctx, conv, afterSequence, limit)
}

// ListForOperator returns a page of thread messages for the dashboard.
func (s *MessageService) ListForOperator(ctx context.Context, organizationID, threadID string, afterSequence uint64, limit int) (*model.ListMessagesResponse, error) {
	conv, err := s.conversations.GetByThreadID(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if conv == nil || conv.OrganizationID != organizationID {
		return nil, apperr.NotFound("Conversation not found")
	}

	return s.listMessages(ctx, conv, afterSequence, limit)
}

func (s *MessageService) listMessages(ctx context.Context, conv *model.Conversation, afterSequence uint64, limit int) (*model.ListMessagesResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	messages, lastSeq, hasMore, err := s.threads.GetMessages(ctx, conv.OrganizationID, conv.ThreadID, afterSequence, limit)
	if err != nil {
		return nil, err
	}

	return &model.ListMessagesResponse{
		Messages:     messages,
		HasMore:      hasMore,
		LastSequence: lastSeq,
	}, nil
}
