package agent

import (
	"encoding/json"

	"github.com/echo-labs/support-platform/internal/llm"
)

const (
	toolSearch   = "search"
	toolEscalate = "escalateConversation"
	toolResolve  = "resolveConversation"
)

// Soft-failure strings returned to the model instead of errors. Tools run
// inside model turns, so failures must stay readable.
const (
	msgMissingThread     = "Missing thread ID"
	msgConversationGone  = "Conversation not found"
	msgSearchUnavailable = "Search is currently unavailable"
	msgEscalateFailed    = "Failed to escalate conversation"
	msgResolveFailed     = "Failed to resolve conversation"
	msgEscalated         = "Conversation escalated to a human operator."
	msgResolved          = "Conversation marked as resolved."
)

var toolDefinitions = []llm.ToolDefinition{
	{
		Name:        toolSearch,
		Description: "Search the knowledge base for relevant information to help answer user questions",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {
					"type": "string",
					"description": "The search query to find the relevant information"
				}
			},
			"required": ["query"]
		}`),
	},
	{
		Name:        toolEscalate,
		Description: "Escalate the conversation to a human operator when the user asks for a human or the agent cannot help",
		Parameters:  json.RawMessage(`{"type": "object", "properties": {}}`),
	},
	{
		Name:        toolResolve,
		Description: "Mark the conversation as resolved once the user's issue is fully addressed",
		Parameters:  json.RawMessage(`{"type": "object", "properties": {}}`),
	},
}

type searchArgs struct {
	Query string `json:"query"`
}
