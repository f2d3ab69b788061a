package handler

import (
	"net/http"

	"github.com/echo-labs/support-platform/internal/middleware"
	"github.com/echo-labs/support-platform/internal/service"
	"github.com/echo-labs/support-platform/pkg/logger"
)

// VoiceHandler handles the dashboard Vapi account endpoints.
type VoiceHandler struct {
	service *service.VoiceService
	logger  *logger.Logger
}

// NewVoiceHandler creates a new voice handler.
func NewVoiceHandler(svc *service.VoiceService, log *logger.Logger) *VoiceHandler {
	return &VoiceHandler{
		service: svc,
		logger:  log,
	}
}

// Assistants handles GET /api/v1/voice/assistants
func (h *VoiceHandler) Assistants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	organizationID := middleware.GetOrganizationID(ctx)

	assistants, err := h.service.GetAssistants(ctx, organizationID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, assistants)
}

// PhoneNumbers handles GET /api/v1/voice/phone-numbers
func (h *VoiceHandler) PhoneNumbers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	organizationID := middleware.GetOrganizationID(ctx)

	numbers, err := h.service.GetPhoneNumbers(ctx, organizationID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, numbers)
}
