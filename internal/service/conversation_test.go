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

type convFixture struct {
	svc      *ConversationService
	sessions *SessionService
	convs    *fakeConversationStore
	settings *fakeWidgetSettingsStore
	threads  *fakeThreadLog
}

func newConvFixture(t *testing.T) *convFixture {
	t.Helper()
	sessionStore := newFakeSessionStore()
	sessions := NewSessionService(sessionStore, 24*time.Hour, 4*time.Hour, logger.NewNop())
	convs := newFakeConversationStore()
	settings := newFakeWidgetSettingsStore()
	threads := &fakeThreadLog{}
	return &convFixture{
		svc:      NewConversationService(convs, settings, sessions, threads, logger.NewNop()),
		sessions: sessions,
		convs:    convs,
		settings: settings,
		threads:  threads,
	}
}

func (f *convFixture) newSession(t *testing.T, org string) *model.ContactSession {
	t.Helper()
	session, err := f.sessions.Create(context.Background(), &model.CreateSessionRequest{
		Name: "Ada", Email: "ada@example.com", OrganizationID: org,
	})
	require.NoError(t, err)
	return session
}

func TestConversationCreateSeedsDefaultGreeting(t *testing.T) {
	f := newConvFixture(t)
	session := f.newSession(t, "org_1")

	conv, err := f.svc.Create(context.Background(), &model.CreateConversationRequest{
		ContactSessionID: session.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusUnresolved, conv.Status)
	assert.Equal(t, "org_1", conv.OrganizationID)
	assert.NotEmpty(t, conv.ThreadID)

	msgs := f.threads.forThread(conv.ThreadID)
	require.Len(t, msgs, 1)
	assert.Equal(t, model.RoleAssistant, msgs[0].Role)
	assert.Equal(t, DefaultGreetMessage, msgs[0].Content)
}

func TestConversationCreateUsesConfiguredGreeting(t *testing.T) {
	f := newConvFixture(t)
	session := f.newSession(t, "org_1")
	require.NoError(t, f.settings.Upsert(context.Background(), &model.WidgetSettings{
		OrganizationID: "org_1",
		GreetMessage:   "Welcome to Acme support!",
	}))

	conv, err := f.svc.Create(context.Background(), &model.CreateConversationRequest{
		ContactSessionID: session.ID,
	})
	require.NoError(t, err)

	msgs := f.threads.forThread(conv.ThreadID)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Welcome to Acme support!", msgs[0].Content)
}

func TestConversationCreateRejectsInvalidSession(t *testing.T) {
	f := newConvFixture(t)

	_, err := f.svc.Create(context.Background(), &model.CreateConversationRequest{
		ContactSessionID: "missing",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnauthorized, apperr.CodeOf(err))
}

func TestConversationGetOneOwnership(t *testing.T) {
	f := newConvFixture(t)
	owner := f.newSession(t, "org_1")
	intruder := f.newSession(t, "org_1")
	ctx := context.Background()

	conv, err := f.svc.Create(ctx, &model.CreateConversationRequest{ContactSessionID: owner.ID})
	require.NoError(t, err)

	summary, err := f.svc.GetOne(ctx, conv.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ThreadID, summary.ThreadID)

	_, err = f.svc.GetOne(ctx, conv.ID, intruder.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnauthorized, apperr.CodeOf(err))

	_, err = f.svc.GetOne(ctx, "missing", owner.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestConversationUpdateStatus(t *testing.T) {
	f := newConvFixture(t)
	session := f.newSession(t, "org_1")
	ctx := context.Background()

	conv, err := f.svc.Create(ctx, &model.CreateConversationRequest{ContactSessionID: session.ID})
	require.NoError(t, err)

	updated, err := f.svc.UpdateStatus(ctx, "org_1", conv.ID, model.StatusEscalated)
	require.NoError(t, err)
	assert.Equal(t, model.StatusEscalated, updated.Status)

	// Wrong organization looks like a missing conversation.
	_, err = f.svc.UpdateStatus(ctx, "org_2", conv.ID, model.StatusResolved)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	_, err = f.svc.UpdateStatus(ctx, "org_1", conv.ID, model.ConversationStatus("bogus"))
	require.Error(t, err)
	assert.Equal(t, apperr.CodeBadRequest, apperr.CodeOf(err))
}

func TestConversationGetContact(t *testing.T) {
	f := newConvFixture(t)
	session := f.newSession(t, "org_1")
	ctx := context.Background()

	conv, err := f.svc.Create(ctx, &model.CreateConversationRequest{ContactSessionID: session.ID})
	require.NoError(t, err)

	contact, err := f.svc.GetContact(ctx, "org_1", conv.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, contact.ID)
	assert.Equal(t, "Ada", contact.Name)
	assert.Equal(t, "ada@example.com", contact.Email)

	_, err = f.svc.GetContact(ctx, "org_2", conv.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnauthorized, apperr.CodeOf(err))

	_, err = f.svc.GetContact(ctx, "org_1", "missing-conversation")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	// An expired session is still readable by the operator.
	f.sessions.now = func() time.Time { return session.ExpiresAt.Add(time.Hour) }
	contact, err = f.svc.GetContact(ctx, "org_1", conv.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, contact.ID)
}

func TestConversationResolvedIsTerminal(t *testing.T) {
	f := newConvFixture(t)
	session := f.newSession(t, "org_1")
	ctx := context.Background()

	conv, err := f.svc.Create(ctx, &model.CreateConversationRequest{ContactSessionID: session.ID})
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, "org_1", conv.ID, model.StatusResolved)
	require.NoError(t, err)

	for _, status := range []model.ConversationStatus{model.StatusUnresolved, model.StatusEscalated} {
		_, err = f.svc.UpdateStatus(ctx, "org_1", conv.ID, status)
		require.Error(t, err)
		assert.Equal(t, apperr.CodeBadRequest, apperr.CodeOf(err))
	}

	stored, err := f.convs.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusResolved, stored.Status)

	// Re-resolving is a no-op, not an error.
	_, err = f.svc.UpdateStatus(ctx, "org_1", conv.ID, model.StatusResolved)
	require.NoError(t, err)
}

func TestConversationList(t *testing.T) {
	f := newConvFixture(t)
	session := f.newSession(t, "org_1")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.Create(ctx, &model.CreateConversationRequest{ContactSessionID: session.ID})
		require.NoError(t, err)
	}

	resp, err := f.svc.List(ctx, "org_1", nil, 2, 0)
	require.NoError(t, err)
	assert.Len(t, resp.Conversations, 2)
	assert.Equal(t, 3, resp.Total)
	assert.True(t, resp.HasMore)

	escalated := model.StatusEscalated
	resp, err = f.svc.List(ctx, "org_1", &escalated, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, resp.Conversations)

	// Other organizations see nothing.
	resp, err = f.svc.List(ctx, "org_2", nil, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, resp.Total)
}
