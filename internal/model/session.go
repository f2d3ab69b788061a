package model

import (
	"time"
)

// SessionMetadata carries optional environment hints captured by the widget.
// All fields are optional and privacy-conscious.
type SessionMetadata struct {
	UserAgent        string `json:"user_agent,omitempty"`
	Platform         string `json:"platform,omitempty"`
	Language         string `json:"language,omitempty"`
	Languages        string `json:"languages,omitempty"`
	Vendor           string `json:"vendor,omitempty"`
	ScreenResolution string `json:"screen_resolution,omitempty"`
	ViewportSize     string `json:"viewport_size,omitempty"`
	Timezone         string `json:"timezone,omitempty"`
	TimezoneOffset   *int   `json:"timezone_offset,omitempty"`
	CookieEnabled    *bool  `json:"cookie_enabled,omitempty"`
	Referrer         string `json:"referrer,omitempty"`
	CurrentURL       string `json:"current_url,omitempty"`
}

// ContactSession is a short-lived identity for an anonymous widget visitor.
// A session is valid iff now < ExpiresAt; expiry is checked lazily at read
// time, sessions are never deleted.
type ContactSession struct {
	ID             string           `json:"id" db:"id"`
	Name           string           `json:"name" db:"name"`
	Email          string           `json:"email" db:"email"`
	OrganizationID string           `json:"organization_id" db:"organization_id"`
	ExpiresAt      time.Time        `json:"expires_at" db:"expires_at"`
	Metadata       *SessionMetadata `json:"metadata,omitempty"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
}

// Expired reports whether the session is expired at the given instant.
func (s *ContactSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// CreateSessionRequest is the widget request to open a contact session.
type CreateSessionRequest struct {
	Name           string           `json:"name"`
	Email          string           `json:"email"`
	OrganizationID string           `json:"organization_id"`
	Metadata       *SessionMetadata `json:"metadata,omitempty"`
}

// ValidateSessionResult reports session validity without mutating state.
type ValidateSessionResult struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}
