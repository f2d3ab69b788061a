package model

import (
	"time"
)

// PluginService identifies a third-party integration.
type PluginService string

const (
	// PluginServiceVapi is the voice/phone provider integration.
	PluginServiceVapi PluginService = "vapi"
)

// Valid reports whether s is a supported integration.
func (s PluginService) Valid() bool {
	return s == PluginServiceVapi
}

// Plugin links (organization, service) to a secret-store entry holding the
// integration credentials. One plugin per organization per service.
// Deleting a plugin removes only the pointer, never the external secret.
type Plugin struct {
	ID             string        `json:"id" db:"id"`
	OrganizationID string        `json:"organization_id" db:"organization_id"`
	Service        PluginService `json:"service" db:"service"`
	SecretName     string        `json:"secret_name" db:"secret_name"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
}

// Subscription is an organization's billing state, one row per organization,
// upserted from billing webhook events.
type Subscription struct {
	OrganizationID string    `json:"organization_id" db:"organization_id"`
	Status         string    `json:"status" db:"status"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// SubscriptionStatusActive is the only status that permits agent runs.
const SubscriptionStatusActive = "active"
