package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message represents one message in a conversation thread. Messages are
// append-only; the thread log is the source of truth.
type Message struct {
	ID             string `json:"id"`
	ThreadID       string `json:"thread_id"`
	OrganizationID string `json:"organization_id"`

	Role    Role   `json:"role"`
	Content string `json:"content"`

	// LLM metadata, set on agent-generated messages only.
	Model     *string `json:"model,omitempty"`
	TokensIn  *int    `json:"tokens_in,omitempty"`
	TokensOut *int    `json:"tokens_out,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	// Stream sequence, populated on read.
	Sequence uint64 `json:"sequence,omitempty"`
}

// PostMessageRequest is the widget request to post a message to a thread.
type PostMessageRequest struct {
	Prompt           string `json:"prompt"`
	ThreadID         string `json:"thread_id"`
	ContactSessionID string `json:"contact_session_id"`
}

// ListMessagesResponse is the paginated thread listing.
type ListMessagesResponse struct {
	Messages     []Message `json:"messages"`
	HasMore      bool      `json:"has_more"`
	LastSequence uint64    `json:"last_sequence"`
}
