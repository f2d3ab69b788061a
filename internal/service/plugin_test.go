package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echo-labs/support-platform/internal/apperr"
	"github.com/echo-labs/support-platform/internal/model"
	natsclient "github.com/echo-labs/support-platform/internal/nats"
	"github.com/echo-labs/support-platform/internal/secrets"
	"github.com/echo-labs/support-platform/pkg/logger"
)

type fakeSecretsStore struct {
	values map[string]map[string]string
	err    error
}

func newFakeSecretsStore() *fakeSecretsStore {
	return &fakeSecretsStore{values: map[string]map[string]string{}}
}

func (f *fakeSecretsStore) GetSecret(_ context.Context, name string) (map[string]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	value, ok := f.values[name]
	if !ok {
		return nil, secrets.ErrNotFound
	}
	return value, nil
}

func (f *fakeSecretsStore) UpsertSecret(_ context.Context, name string, value map[string]string) error {
	if f.err != nil {
		return f.err
	}
	f.values[name] = value
	return nil
}

type fakeTaskEnqueuer struct {
	tasks []natsclient.Task
	err   error
}

func (f *fakeTaskEnqueuer) Enqueue(_ context.Context, taskType string, payload any) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	task := natsclient.Task{ID: "task-1", Type: taskType, Payload: raw}
	f.tasks = append(f.tasks, task)
	return task.ID, nil
}

type pluginFixture struct {
	svc     *PluginService
	plugins *fakePluginStore
	secrets *fakeSecretsStore
	tasks   *fakeTaskEnqueuer
}

func newPluginFixture(t *testing.T) *pluginFixture {
	t.Helper()
	plugins := newFakePluginStore()
	secretStore := newFakeSecretsStore()
	tasks := &fakeTaskEnqueuer{}
	return &pluginFixture{
		svc:     NewPluginService(plugins, secretStore, tasks, logger.NewNop()),
		plugins: plugins,
		secrets: secretStore,
		tasks:   tasks,
	}
}

func TestUpsertSecretEnqueuesTask(t *testing.T) {
	f := newPluginFixture(t)

	err := f.svc.UpsertSecret(context.Background(), "org_1", model.PluginServiceVapi, map[string]string{
		"publicApiKey":  "pk",
		"privateApiKey": "sk",
	})
	require.NoError(t, err)

	require.Len(t, f.tasks.tasks, 1)
	task := f.tasks.tasks[0]
	assert.Equal(t, natsclient.TaskTypeSecretUpsert, task.Type)

	var payload SecretUpsertPayload
	require.NoError(t, json.Unmarshal(task.Payload, &payload))
	assert.Equal(t, "org_1", payload.OrganizationID)
	assert.Equal(t, "vapi", payload.Service)
	assert.Equal(t, "sk", payload.Value["privateApiKey"])

	// Nothing is written until the worker runs.
	assert.Empty(t, f.secrets.values)
	plugin, err := f.plugins.Get(context.Background(), "org_1", model.PluginServiceVapi)
	require.NoError(t, err)
	assert.Nil(t, plugin)
}

func TestUpsertSecretValidation(t *testing.T) {
	f := newPluginFixture(t)

	err := f.svc.UpsertSecret(context.Background(), "org_1", "slack", map[string]string{"token": "x"})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeBadRequest, apperr.CodeOf(err))

	err = f.svc.UpsertSecret(context.Background(), "org_1", model.PluginServiceVapi, nil)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeBadRequest, apperr.CodeOf(err))

	assert.Empty(t, f.tasks.tasks)
}

func TestHandleSecretUpsert(t *testing.T) {
	f := newPluginFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.UpsertSecret(ctx, "org_1", model.PluginServiceVapi, map[string]string{
		"publicApiKey": "pk", "privateApiKey": "sk",
	}))
	require.NoError(t, f.svc.HandleSecretUpsert(ctx, &f.tasks.tasks[0]))

	name := secrets.SecretName("org_1", "vapi")
	assert.Equal(t, "tenant/org_1/vapi", name)
	assert.Equal(t, "sk", f.secrets.values[name]["privateApiKey"])

	plugin, err := f.svc.GetOne(ctx, "org_1", model.PluginServiceVapi)
	require.NoError(t, err)
	require.NotNil(t, plugin)
	assert.Equal(t, name, plugin.SecretName)
}

func TestHandleSecretUpsertMalformedPayload(t *testing.T) {
	f := newPluginFixture(t)

	err := f.svc.HandleSecretUpsert(context.Background(), &natsclient.Task{
		Type:    natsclient.TaskTypeSecretUpsert,
		Payload: json.RawMessage(`not json`),
	})
	require.Error(t, err)
}

func TestHandleSecretUpsertSecretFailureSkipsPluginRow(t *testing.T) {
	f := newPluginFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.UpsertSecret(ctx, "org_1", model.PluginServiceVapi, map[string]string{"k": "v"}))
	f.secrets.err = errors.New("secret manager down")

	err := f.svc.HandleSecretUpsert(ctx, &f.tasks.tasks[0])
	require.Error(t, err)

	plugin, getErr := f.plugins.Get(ctx, "org_1", model.PluginServiceVapi)
	require.NoError(t, getErr)
	assert.Nil(t, plugin, "plugin row must not exist without its secret")
}

func TestGetOneNotConnected(t *testing.T) {
	f := newPluginFixture(t)

	plugin, err := f.svc.GetOne(context.Background(), "org_1", model.PluginServiceVapi)
	require.NoError(t, err)
	assert.Nil(t, plugin)
}

func TestRemovePlugin(t *testing.T) {
	f := newPluginFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.UpsertSecret(ctx, "org_1", model.PluginServiceVapi, map[string]string{"k": "v"}))
	require.NoError(t, f.svc.HandleSecretUpsert(ctx, &f.tasks.tasks[0]))

	require.NoError(t, f.svc.Remove(ctx, "org_1", model.PluginServiceVapi))

	plugin, err := f.svc.GetOne(ctx, "org_1", model.PluginServiceVapi)
	require.NoError(t, err)
	assert.Nil(t, plugin)

	// The secret itself is left behind.
	name := secrets.SecretName("org_1", "vapi")
	assert.Contains(t, f.secrets.values, name)

	err = f.svc.Remove(ctx, "org_1", model.PluginServiceVapi)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestGetCredentials(t *testing.T) {
	f := newPluginFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetCredentials(ctx, "org_1", model.PluginServiceVapi)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	require.NoError(t, f.svc.UpsertSecret(ctx, "org_1", model.PluginServiceVapi, map[string]string{"privateApiKey": "sk"}))
	require.NoError(t, f.svc.HandleSecretUpsert(ctx, &f.tasks.tasks[0]))

	value, err := f.svc.GetCredentials(ctx, "org_1", model.PluginServiceVapi)
	require.NoError(t, err)
	assert.Equal(t, "sk", value["privateApiKey"])

	// A plugin row pointing at a missing secret reports missing credentials.
	delete(f.secrets.values, secrets.SecretName("org_1", "vapi"))
	_, err = f.svc.GetCredentials(ctx, "org_1", model.PluginServiceVapi)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}
