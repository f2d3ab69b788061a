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

// PluginsHandler handles the dashboard integration endpoints.
type PluginsHandler struct {
	service *service.PluginService
	logger  *logger.Logger
}

// NewPluginsHandler creates a new plugins handler.
func NewPluginsHandler(svc *service.PluginService, log *logger.Logger) *PluginsHandler {
	return &PluginsHandler{
		service: svc,
		logger:  log,
	}
}

// Get handles GET /api/v1/plugins/{service}
func (h *PluginsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	organizationID := middleware.GetOrganizationID(ctx)
	svc := model.PluginService(chi.URLParam(r, "service"))

	plugin, err := h.service.GetOne(ctx, organizationID, svc)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"connected": plugin != nil,
		"plugin":    plugin,
	})
}

// UpsertSecret handles POST /api/v1/plugins/{service}/secret
func (h *PluginsHandler) UpsertSecret(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	organizationID := middleware.GetOrganizationID(ctx)
	svc := model.PluginService(chi.URLParam(r, "service"))

	var req struct {
		Value map[string]string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.UpsertSecret(ctx, organizationID, svc, req.Value); err != nil {
		h.logger.Error("failed to upsert plugin secret",
			zap.String("organization_id", organizationID),
			zap.String("service", string(svc)), zap.Error(err))
		writeServiceError(w, err)
		return
	}

	// The secret write is asynchronous.
	w.WriteHeader(http.StatusAccepted)
}

// Delete handles DELETE /api/v1/plugins/{service}
func (h *PluginsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	organizationID := middleware.GetOrganizationID(ctx)
	svc := model.PluginService(chi.URLParam(r, "service"))

	if err := h.service.Remove(ctx, organizationID, svc); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
