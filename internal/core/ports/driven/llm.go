package driven

import "context"

// LLMService provides chat-completion access to an external language model.
// The model is treated as an opaque text-in/text-out function: no structured
// output is guaranteed, and callers that expect JSON must decode defensively
// with an explicit fallback path.
type LLMService interface {
	// Chat sends a conversation and returns the model's reply text.
	Chat(ctx context.Context, messages []ChatMessage) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of RoleSystem, RoleUser or RoleAssistant.
	Role string

	// Content is the message text.
	Content string
}
