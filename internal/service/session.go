// Package service provides business logic for the support platform.
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
)

// SessionService manages contact sessions for anonymous widget visitors.
type SessionService struct {
	sessions store.ContactSessionStore
	logger   *logger.Logger

	duration         time.Duration
	refreshThreshold time.Duration

	now func() time.Time
}

// NewSessionService creates a new session service.
func NewSessionService(sessions store.ContactSessionStore, duration, refreshThreshold time.Duration, log *logger.Logger) *SessionService {
	return &SessionService{
		sessions:         sessions,
		logger:           log,
		duration:         duration,
		refreshThreshold: refreshThreshold,
		now:              time.Now,
	}
}

// Get returns a session by ID without checking expiry, or nil when it does
// not exist. Operator views read contact details through this.
func (s *SessionService) Get(ctx context.Context, sessionID string) (*model.ContactSession, error) {
	return s.sessions.Get(ctx, sessionID)
}

// Create opens a new contact session for a widget visitor.
func (s *SessionService) Create(ctx context.Context, req *model.CreateSessionRequest) (*model.ContactSession, error) {
	if req.Name == "" || req.Email == "" || req.OrganizationID == "" {
		return nil, apperr.BadRequest("name, email and organization_id are required")
	}

	now := s.now().UTC()
	session := &model.ContactSession{
		ID:             uuid.Must(uuid.NewV7()).String(),
		Name:           req.Name,
		Email:          req.Email,
		OrganizationID: req.OrganizationID,
		ExpiresAt:      now.Add(s.duration),
		Metadata:       req.Metadata,
		CreatedAt:      now,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("contact session created",
		zap.String("session_id", session.ID),
		zap.String("organization_id", session.OrganizationID),
	)
	return session, nil
}

// Validate reports whether a session exists and is unexpired. It never
// mutates session state.
func (s *SessionService) Validate(ctx context.Context, sessionID string) (*model.ValidateSessionResult, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return &model.ValidateSessionResult{Valid: false, Reason: "Contact session not found"}, nil
	}
	if session.Expired(s.now()) {
		return &model.ValidateSessionResult{Valid: false, Reason: "Contact session expired"}, nil
	}
	return &model.ValidateSessionResult{Valid: true}, nil
}

// GetValid returns the session when it exists and is unexpired, and an
// UNAUTHORIZED error otherwise.
func (s *SessionService) GetValid(ctx context.Context, sessionID string) (*model.ContactSession, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.Expired(s.now()) {
		return nil, apperr.Unauthorized("Invalid session")
	}
	return session, nil
}

// MaybeRefresh extends the session's expiry when it is inside the refresh
// threshold. Sessions outside the threshold are left untouched.
func (s *SessionService) MaybeRefresh(ctx context.Context, session *model.ContactSession) error {
	now := s.now().UTC()
	if session.ExpiresAt.Sub(now) >= s.refreshThreshold {
		return nil
	}

	newExpiry := now.Add(s.duration)
	if err := s.sessions.UpdateExpiresAt(ctx, session.ID, newExpiry); err != nil {
		return err
	}
	session.ExpiresAt = newExpiry

	s.logger.Debug("contact session refreshed", zap.String("session_id", session.ID))
	return nil
}
