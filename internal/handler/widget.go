// Package handler provides HTTP handlers for the API.
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

// sessionHeader carries the contact session ID on widget GET requests.
const sessionHeader = "X-Contact-Session"

// WidgetHandler handles the embeddable widget surface. Widget requests are
// authorized by the contact session they carry, not by JWT.
type WidgetHandler struct {
	sessions      *service.SessionService
	conversations *service.ConversationService
	messages      *service.MessageService
	logger        *logger.Logger
}

// NewWidgetHandler creates a new widget handler.
func NewWidgetHandler(
	sessions *service.SessionService,
	conversations *service.ConversationService,
	messages *service.MessageService,
	log *logger.Logger,
) *WidgetHandler {
	return &WidgetHandler{
		sessions:      sessions,
		conversations: conversations,
		messages:      messages,
		logger:        log,
	}
}

// CreateSession handles POST /api/v1/widget/sessions
func (h *WidgetHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req model.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateContactName(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateEmail(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateOrganizationID(req.OrganizationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.sessions.Create(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to create session", zap.Error(err))
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

// ValidateSession handles POST /api/v1/widget/sessions/validate
func (h *WidgetHandler) ValidateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	result, err := h.sessions.Validate(r.Context(), req.SessionID)
	if err != nil {
		h.logger.Error("failed to validate session", zap.Error(err))
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// CreateConversation handles POST /api/v1/widget/conversations
func (h *WidgetHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	var req model.CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conv, err := h.conversations.Create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, conv)
}

// GetConversation handles GET /api/v1/widget/conversations/{id}
func (h *WidgetHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	sessionID := r.Header.Get(sessionHeader)
	if sessionID == "" {
		writeError(w, http.StatusUnauthorized, "missing contact session")
		return
	}

	summary, err := h.conversations.GetOne(r.Context(), conversationID, sessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// PostMessage handles POST /api/v1/widget/messages
func (h *WidgetHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req model.PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidatePrompt(req.Prompt); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reply, err := h.messages.Post(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// reply is nil when the agent did not run; the user message is still
	// appended.
	if reply == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	writeJSON(w, http.StatusCreated, reply)
}

// ListMessages handles GET /api/v1/widget/messages
func (h *WidgetHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	threadID := r.URL.Query().Get("thread_id")
	if threadID == "" {
		writeError(w, http.StatusBadRequest, "thread_id is required")
		return
	}
	sessionID := r.Header.Get(sessionHeader)
	if sessionID == "" {
		writeError(w, http.StatusUnauthorized, "missing contact session")
		return
	}

	resp, err := h.messages.List(r.Context(), threadID, sessionID,
		queryUint64(r, "after"), queryInt(r, "limit", 50))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
