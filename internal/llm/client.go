package llm

import (
	"context"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Normalized finish reasons.
const (
	FinishStop      = "stop"
	FinishToolCalls = "tool_calls"
)

var ErrMissingAPIKey = errors.New("missing API key")

type Message struct {
	Role       string     `json:"role"` // system, user, assistant, tool
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // for tool result messages
}

type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // raw JSON as emitted by the model
}

type Response struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
}

type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// Client is a hosted model backend. Messages may start with one or more
// system messages; adapters shape them the way their API expects.
type Client interface {
	Chat(ctx context.Context, messages []Message, tools []Tool) (*Response, error)
	// Stream calls onFragment for every text fragment in arrival order and
	// returns when the backend closes the stream.
	Stream(ctx context.Context, messages []Message, onFragment func(string) error) error
}

// splitSystem separates leading system messages from the rest of the conversation.
func splitSystem(messages []Message) (string, []Message) {
	var system string
	var rest []Message
	for _, m := range messages {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
