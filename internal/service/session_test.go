package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echo-labs/support-platform/internal/apperr"
	"github.com/echo-labs/support-platform/internal/model"
	"github.com/echo-labs/support-platform/pkg/logger"
)

func newSessionService(store *fakeSessionStore) *SessionService {
	return NewSessionService(store, 24*time.Hour, 4*time.Hour, logger.NewNop())
}

func TestSessionCreate(t *testing.T) {
	store := newFakeSessionStore()
	svc := newSessionService(store)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	session, err := svc.Create(context.Background(), &model.CreateSessionRequest{
		Name:           "Ada",
		Email:          "ada@example.com",
		OrganizationID: "org_1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, now.Add(24*time.Hour), session.ExpiresAt)
}

func TestSessionCreateValidation(t *testing.T) {
	svc := newSessionService(newFakeSessionStore())

	_, err := svc.Create(context.Background(), &model.CreateSessionRequest{Name: "Ada"})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeBadRequest, apperr.CodeOf(err))
}

func TestSessionValidate(t *testing.T) {
	store := newFakeSessionStore()
	svc := newSessionService(store)
	ctx := context.Background()

	session, err := svc.Create(ctx, &model.CreateSessionRequest{
		Name: "Ada", Email: "ada@example.com", OrganizationID: "org_1",
	})
	require.NoError(t, err)

	res, err := svc.Validate(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, res.Valid)

	// Exactly at expiry the session is no longer valid.
	svc.now = func() time.Time { return session.ExpiresAt }
	res, err = svc.Validate(ctx, session.ID)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "Contact session expired", res.Reason)

	res, err = svc.Validate(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "Contact session not found", res.Reason)
}

func TestSessionValidateDoesNotRefresh(t *testing.T) {
	store := newFakeSessionStore()
	svc := newSessionService(store)
	ctx := context.Background()

	session, err := svc.Create(ctx, &model.CreateSessionRequest{
		Name: "Ada", Email: "ada@example.com", OrganizationID: "org_1",
	})
	require.NoError(t, err)

	// Deep into the refresh window: validation still must not mutate.
	svc.now = func() time.Time { return session.ExpiresAt.Add(-time.Minute) }
	_, err = svc.Validate(ctx, session.ID)
	require.NoError(t, err)

	stored, _ := store.Get(ctx, session.ID)
	assert.Equal(t, session.ExpiresAt, stored.ExpiresAt)
}

func TestSessionGetValid(t *testing.T) {
	store := newFakeSessionStore()
	svc := newSessionService(store)
	ctx := context.Background()

	session, err := svc.Create(ctx, &model.CreateSessionRequest{
		Name: "Ada", Email: "ada@example.com", OrganizationID: "org_1",
	})
	require.NoError(t, err)

	got, err := svc.GetValid(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)

	svc.now = func() time.Time { return session.ExpiresAt.Add(time.Second) }
	_, err = svc.GetValid(ctx, session.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnauthorized, apperr.CodeOf(err))

	_, err = svc.GetValid(ctx, "missing")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnauthorized, apperr.CodeOf(err))
}

func TestSessionMaybeRefresh(t *testing.T) {
	store := newFakeSessionStore()
	svc := newSessionService(store)
	ctx := context.Background()

	session, err := svc.Create(ctx, &model.CreateSessionRequest{
		Name: "Ada", Email: "ada@example.com", OrganizationID: "org_1",
	})
	require.NoError(t, err)
	originalExpiry := session.ExpiresAt

	// Outside the threshold: untouched.
	svc.now = func() time.Time { return originalExpiry.Add(-5 * time.Hour) }
	require.NoError(t, svc.MaybeRefresh(ctx, session))
	assert.Equal(t, originalExpiry, session.ExpiresAt)

	// Inside the threshold: extended by the full duration.
	refreshAt := originalExpiry.Add(-3 * time.Hour)
	svc.now = func() time.Time { return refreshAt }
	require.NoError(t, svc.MaybeRefresh(ctx, session))
	assert.Equal(t, refreshAt.Add(24*time.Hour), session.ExpiresAt)

	stored, _ := store.Get(ctx, session.ID)
	assert.Equal(t, session.ExpiresAt, stored.ExpiresAt)
}
