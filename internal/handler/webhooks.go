package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/echo-labs/support-platform/internal/service"
	"github.com/echo-labs/support-platform/pkg/logger"
)

// signatureHeader carries the hex HMAC-SHA256 of the webhook body.
const signatureHeader = "X-Billing-Signature"

// WebhooksHandler handles inbound webhook events.
type WebhooksHandler struct {
	subscriptions *service.SubscriptionService
	secret        string
	logger        *logger.Logger
}

// NewWebhooksHandler creates a new webhooks handler.
func NewWebhooksHandler(subscriptions *service.SubscriptionService, secret string, log *logger.Logger) *WebhooksHandler {
	return &WebhooksHandler{
		subscriptions: subscriptions,
		secret:        secret,
		logger:        log,
	}
}

// billingEvent is the billing provider's subscription event payload.
type billingEvent struct {
	OrganizationID string `json:"organization_id"`
	Status         string `json:"status"`
}

// Billing handles POST /webhooks/billing
func (h *WebhooksHandler) Billing(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if !h.verifySignature(body, r.Header.Get(signatureHeader)) {
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var event billingEvent
	if err := json.Unmarshal(body, &event); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	if err := h.subscriptions.Upsert(r.Context(), event.OrganizationID, event.Status); err != nil {
		h.logger.Error("failed to upsert subscription",
			zap.String("organization_id", event.OrganizationID), zap.Error(err))
		writeServiceError(w, err)
		return
	}

	h.logger.Info("subscription updated",
		zap.String("organization_id", event.OrganizationID),
		zap.String("status", event.Status),
	)
	w.WriteHeader(http.StatusOK)
}

func (h *WebhooksHandler) verifySignature(body []byte, signature string) bool {
	if h.secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
