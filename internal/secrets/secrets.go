// Package secrets wraps AWS Secrets Manager for per-tenant integration
// credentials.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
)

// ErrNotFound is returned when a named secret does not exist.
var ErrNotFound = errors.New("secret not found")

// Store is the secret storage contract. The platform only reads and writes
// whole secrets; lifecycle (rotation, deletion) is managed outside.
type Store interface {
	// GetSecret fetches and decodes the JSON secret value.
	GetSecret(ctx context.Context, name string) (map[string]string, error)
	// UpsertSecret creates the secret or, when it already exists, writes a
	// new version with the given value.
	UpsertSecret(ctx context.Context, name string, value map[string]string) error
}

// SecretName builds the per-tenant secret path for a service integration.
func SecretName(organizationID, service string) string {
	return fmt.Sprintf("tenant/%s/%s", organizationID, service)
}

// Manager implements Store on AWS Secrets Manager.
type Manager struct {
	cli *secretsmanager.Client
}

// Config holds AWS connection settings.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// NewManager builds a Secrets Manager client. With no static credentials the
// SDK default provider chain applies.
func NewManager(ctx context.Context, cfg Config) (*Manager, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.StaticCredentialsProvider{
			Value: aws.Credentials{AccessKeyID: cfg.AccessKeyID, SecretAccessKey: cfg.SecretAccessKey},
		}))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return &Manager{cli: secretsmanager.NewFromConfig(awsCfg)}, nil
}

// GetSecret fetches the secret and parses its JSON string value.
func (m *Manager) GetSecret(ctx context.Context, name string) (map[string]string, error) {
	out, err := m.cli.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get secret %q: %w", name, err)
	}
	if out.SecretString == nil {
		return nil, fmt.Errorf("secret %q has no string value", name)
	}

	var value map[string]string
	if err := json.Unmarshal([]byte(*out.SecretString), &value); err != nil {
		return nil, fmt.Errorf("secret %q is not a JSON object: %w", name, err)
	}
	return value, nil
}

// UpsertSecret tries CreateSecret first and falls back to PutSecretValue
// when the secret already exists, so concurrent creates never surface
// "already exists" to callers.
func (m *Manager) UpsertSecret(ctx context.Context, name string, value map[string]string) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}

	_, err = m.cli.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(name),
		SecretString: aws.String(string(payload)),
	})
	if err == nil {
		return nil
	}

	var exists *types.ResourceExistsException
	if !errors.As(err, &exists) {
		return fmt.Errorf("failed to create secret %q: %w", name, err)
	}

	_, err = m.cli.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(name),
		SecretString: aws.String(string(payload)),
	})
	if err != nil {
		return fmt.Errorf("failed to update secret %q: %w", name, err)
	}
	return nil
}
