// Package model defines data structures for the support platform.
package model

import (
	"time"
)

// ConversationStatus is the lifecycle state of a support conversation.
type ConversationStatus string

const (
	StatusUnresolved ConversationStatus = "unresolved"
	StatusEscalated  ConversationStatus = "escalated"
	StatusResolved   ConversationStatus = "resolved"
)

// Valid reports whether s is a known status.
func (s ConversationStatus) Valid() bool {
	switch s {
	case StatusUnresolved, StatusEscalated, StatusResolved:
		return true
	}
	return false
}

// Conversation represents one support thread owned by a contact session.
type Conversation struct {
	ID               string             `json:"id" db:"id"`
	ThreadID         string             `json:"thread_id" db:"thread_id"`
	OrganizationID   string             `json:"organization_id" db:"organization_id"`
	ContactSessionID string             `json:"contact_session_id" db:"contact_session_id"`
	Status           ConversationStatus `json:"status" db:"status"`
	CreatedAt        time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at" db:"updated_at"`
}

// CreateConversationRequest is the widget request to start a conversation.
type CreateConversationRequest struct {
	ContactSessionID string `json:"contact_session_id"`
	OrganizationID   string `json:"organization_id"`
}

// ConversationSummary is the widget-facing view of a conversation.
type ConversationSummary struct {
	ID       string             `json:"id"`
	Status   ConversationStatus `json:"status"`
	ThreadID string             `json:"thread_id"`
}

// ListConversationsResponse is the dashboard listing response.
type ListConversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
	Total         int            `json:"total"`
	HasMore       bool           `json:"has_more"`
}

// UpdateConversationStatusRequest is the operator status-change request.
type UpdateConversationStatusRequest struct {
	Status ConversationStatus `json:"status"`
}
