package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/echo-labs/support-platform/internal/middleware"
	"github.com/echo-labs/support-platform/internal/model"
	"github.com/echo-labs/support-platform/internal/service"
	"github.com/echo-labs/support-platform/pkg/logger"
)

// ConversationsHandler handles the operator dashboard conversation
// endpoints.
type ConversationsHandler struct {
	conversations *service.ConversationService
	messages      *service.MessageService
	logger        *logger.Logger
}

// NewConversationsHandler creates a new conversations handler.
func NewConversationsHandler(
	conversations *service.ConversationService,
	messages *service.MessageService,
	log *logger.Logger,
) *ConversationsHandler {
	return &ConversationsHandler{
		conversations: conversations,
		messages:      messages,
		logger:        log,
	}
}

// List handles GET /api/v1/conversations
func (h *ConversationsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	organizationID := middleware.GetOrganizationID(ctx)

	var status *model.ConversationStatus
	if s := r.URL.Query().Get("status"); s != "" {
		cs := model.ConversationStatus(s)
		status = &cs
	}

	resp, err := h.conversations.List(ctx, organizationID, status,
		queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus handles PATCH /api/v1/conversations/{id}/status
func (h *ConversationsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	organizationID := middleware.GetOrganizationID(ctx)
	conversationID := chi.URLParam(r, "id")

	var req model.UpdateConversationStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conv, err := h.conversations.UpdateStatus(ctx, organizationID, conversationID, req.Status)
	if err != nil {
		h.logger.Error("failed to update conversation status",
			zap.String("conversation_id", conversationID), zap.Error(err))
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// Contact handles GET /api/v1/conversations/{id}/contact
func (h *ConversationsHandler) Contact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	organizationID := middleware.GetOrganizationID(ctx)
	conversationID := chi.URLParam(r, "id")

	contact, err := h.conversations.GetContact(ctx, organizationID, conversationID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, contact)
}

// Messages handles GET /api/v1/threads/{threadID}/messages
func (h *ConversationsHandler) Messages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	organizationID := middleware.GetOrganizationID(ctx)
	threadID := chi.URLParam(r, "threadID")

	resp, err := h.messages.ListForOperator(ctx, organizationID, threadID,
		queryUint64(r, "after"), queryInt(r, "limit", 50))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
