package handler

import (
	"encoding/json"
	"net/http"

	"github.com/echo-labs/support-platform/internal/middleware"
	"github.com/echo-labs/support-platform/internal/model"
	"github.com/echo-labs/support-platform/internal/service"
	"github.com/echo-labs/support-platform/pkg/logger"
)

// WidgetSettingsHandler handles the dashboard widget configuration
// endpoints.
type WidgetSettingsHandler struct {
	service *service.WidgetSettingsService
	logger  *logger.Logger
}

// NewWidgetSettingsHandler creates a new widget settings handler.
func NewWidgetSettingsHandler(svc *service.WidgetSettingsService, log *logger.Logger) *WidgetSettingsHandler {
	return &WidgetSettingsHandler{
		service: svc,
		logger:  log,
	}
}

// Get handles GET /api/v1/widget-settings
func (h *WidgetSettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	organizationID := middleware.GetOrganizationID(ctx)

	settings, err := h.service.Get(ctx, organizationID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if settings == nil {
		settings = &model.WidgetSettings{OrganizationID: organizationID}
	}

	writeJSON(w, http.StatusOK, settings)
}

// Upsert handles PUT /api/v1/widget-settings
func (h *WidgetSettingsHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	organizationID := middleware.GetOrganizationID(ctx)

	var settings model.WidgetSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.service.Upsert(ctx, organizationID, &settings)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}
