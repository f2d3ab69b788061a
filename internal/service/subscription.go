package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/echo-labs/support-platform/internal/apperr"
	"github.com/echo-labs/support-platform/internal/model"
	"github.com/echo-labs/support-platform/internal/store"
	"github.com/echo-labs/support-platform/pkg/logger"
)

// SubscriptionService mirrors billing state pushed by webhook events.
type SubscriptionService struct {
	subscriptions store.SubscriptionStore
	logger        *logger.Logger
}

// NewSubscriptionService creates a new subscription service.
func NewSubscriptionService(subscriptions store.SubscriptionStore, log *logger.Logger) *SubscriptionService {
	return &SubscriptionService{subscriptions: subscriptions, logger: log}
}

// Upsert records the organization's billing status.
func (s *SubscriptionService) Upsert(ctx context.Context, organizationID, status string) error {
	if organizationID == "" || status == "" {
		return apperr.BadRequest("organization_id and status are required")
	}

	if err := s.subscriptions.Upsert(ctx, organizationID, status); err != nil {
		return err
	}

	s.logger.Info("subscription updated",
		zap.String("organization_id", organizationID),
		zap.String("status", status),
	)
	return nil
}

// Get returns the organization's subscription, or nil when none exists.
func (s *SubscriptionService) Get(ctx context.Context, organizationID string) (*model.Subscription, error) {
	return s.subscriptions.Get(ctx, organizationID)
}

// IsActive reports whether the organization can run the AI agent.
func (s *SubscriptionService) IsActive(ctx context.Context, organizationID string) (bool, error) {
	sub, err := s.subscriptions.Get(ctx, organizationID)
	if err != nil {
		return false, err
	}
	return sub != nil && sub.Status == model.SubscriptionStatusActive, nil
}
