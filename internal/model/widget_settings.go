package model

import (
	"time"
)

// DefaultSuggestions are the canned prompts shown in the widget.
type DefaultSuggestions struct {
	Suggestion1 string `json:"suggestion_1,omitempty"`
	Suggestion2 string `json:"suggestion_2,omitempty"`
	Suggestion3 string `json:"suggestion_3,omitempty"`
}

// VapiSettings selects the voice assistant and phone number for the widget.
type VapiSettings struct {
	AssistantID string `json:"assistant_id,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// WidgetSettings is the per-organization widget configuration, one row per
// organization, maintained by keyed upsert.
type WidgetSettings struct {
	OrganizationID     string             `json:"organization_id" db:"organization_id"`
	GreetMessage       string             `json:"greet_message" db:"greet_message"`
	DefaultSuggestions DefaultSuggestions `json:"default_suggestions"`
	VapiSettings       VapiSettings       `json:"vapi_settings"`
	UpdatedAt          time.Time          `json:"updated_at" db:"updated_at"`
}
