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

// DefaultGreetMessage opens new conversations when the organization has not
// configured one.
const DefaultGreetMessage = "Hi! How can I help you today?"

// ThreadPublisher appends messages to the thread log. *nats.ThreadLog
// satisfies it.
type ThreadPublisher interface {
	PublishMessage(ctx context.Context, msg *model.Message) (uint64, error)
	GetMessages(ctx context.Context, organizationID, threadID string, afterSequence uint64, limit int) ([]model.Message, uint64, bool, error)
}

// ConversationService handles conversation lifecycle for both the widget
// and the operator dashboard.
type ConversationService struct {
	conversations  store.ConversationStore
	widgetSettings store.WidgetSettingsStore
	sessions       *SessionService
	threads        ThreadPublisher
	logger         *logger.Logger
}

// NewConversationService creates a new conversation service.
func NewConversationService(
	conversations store.ConversationStore,
	widgetSettings store.WidgetSettingsStore,
	sessions *SessionService,
	threads ThreadPublisher,
	log *logger.Logger,
) *ConversationService {
	return &ConversationService{
		conversations:  conversations,
		widgetSettings: widgetSettings,
		sessions:       sessions,
		threads:        threads,
		logger:         log,
	}
}

// Create starts a conversation for a contact session. A fresh thread is
// opened and seeded with the organization's greeting.
func (s *ConversationService) Create(ctx context.Context, req *model.CreateConversationRequest) (*model.Conversation, error) {
	session, err := s.sessions.GetValid(ctx, req.ContactSessionID)
	if err != nil {
		return nil, err
	}
	if req.OrganizationID != "" && req.OrganizationID != session.OrganizationID {
		return nil, apperr.Unauthorized("Invalid session")
	}

	greeting := DefaultGreetMessage
	settings, err := s.widgetSettings.Get(ctx, session.OrganizationID)
	if err != nil {
		return nil, err
	}
	if settings != nil && settings.GreetMessage != "" {
		greeting = settings.GreetMessage
	}

	now := time.Now().UTC()
	conv := &model.Conversation{
		ID:               uuid.Must(uuid.NewV7()).String(),
		ThreadID:         uuid.Must(uuid.NewV7()).String(),
		OrganizationID:   session.OrganizationID,
		ContactSessionID: session.ID,
		Status:           model.StatusUnresolved,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	greetMsg := &model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ThreadID:       conv.ThreadID,
		OrganizationID: conv.OrganizationID,
		Role:           model.RoleAssistant,
		Content:        greeting,
		CreatedAt:      now,
	}
	if _, err := s.threads.PublishMessage(ctx, greetMsg); err != nil {
		return nil, err
	}

	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, err
	}

	metrics.ConversationsTotal.WithLabelValues(conv.OrganizationID).Inc()
	metrics.MessagesTotal.WithLabelValues(conv.OrganizationID, string(model.RoleAssistant)).Inc()
	s.logger.Info("conversation created",
		zap.String("conversation_id", conv.ID),
		zap.String("thread_id", conv.ThreadID),
		zap.String("organization_id", conv.OrganizationID),
	)
	return conv, nil
}

// GetOne returns the widget-facing view of a conversation. The caller's
// session must own the conversation.
func (s *ConversationService) GetOne(ctx context.Context, conversationID, contactSessionID string) (*model.ConversationSummary, error) {
	session, err := s.sessions.GetValid(ctx, contactSessionID)
	if err != nil {
		return nil, err
	}

	conv, err := s.conversations.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, apperr.NotFound("Conversation not found")
	}
	if conv.ContactSessionID != session.ID {
		return nil, apperr.Unauthorized("Incorrect session")
	}

	return &model.ConversationSummary{
		ID:       conv.ID,
		Status:   conv.Status,
		ThreadID: conv.ThreadID,
	}, nil
}

// List returns an organization's conversations for the operator dashboard,
// newest activity first, optionally filtered by status.
func (s *ConversationService) List(ctx context.Context, organizationID string, status *model.ConversationStatus, limit, offset int) (*model.ListConversationsResponse, error) {
	if status != nil && !status.Valid() {
		return nil, apperr.BadRequest("invalid status filter")
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	conversations, total, err := s.conversations.ListByOrganization(ctx, organizationID, status, limit, offset)
	if err != nil {
		return nil, err
	}

	return &model.ListConversationsResponse{
		Conversations: conversations,
		Total:         total,
		HasMore:       offset+len(conversations) < total,
	}, nil
}

// GetContact returns the contact session behind a conversation for the
// dashboard. Expired sessions are still returned; the operator is reading
// contact details, not authenticating.
func (s *ConversationService) GetContact(ctx context.Context, organizationID, conversationID string) (*model.ContactSession, error) {
	conv, err := s.conversations.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, apperr.NotFound("Conversation not found")
	}
	if conv.OrganizationID != organizationID {
		return nil, apperr.Unauthorized("Invalid organization ID")
	}

	contact, err := s.sessions.Get(ctx, conv.ContactSessionID)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, apperr.NotFound("Contact session not found")
	}
	return contact, nil
}

// UpdateStatus changes a conversation's status on behalf of an operator.
// The conversation must belong to the operator's organization.
func (s *ConversationService) UpdateStatus(ctx context.Context, organizationID, conversationID string, status model.ConversationStatus) (*model.Conversation, error) {
	if !status.Valid() {
		return nil, apperr.BadRequest("invalid status")
	}

	conv, err := s.conversations.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil || conv.OrganizationID != organizationID {
		return nil, apperr.NotFound("Conversation not found")
	}

	// Resolved is terminal: no transition out, including reopening.
	if conv.Status == model.StatusResolved && status != model.StatusResolved {
		return nil, apperr.BadRequest("Conversation is resolved")
	}

	if err := s.conversations.UpdateStatus(ctx, conversationID, status); err != nil {
		return nil, err
	}
	conv.Status = status

	s.logger.Info("conversation status updated",
		zap.String("conversation_id", conversationID),
		zap.String("status", string(status)),
	)
	return conv, nil
}
