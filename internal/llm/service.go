package llm

import "context"

// Message is a single chat turn
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Options tunes a single chat completion call
type Options struct {
	Temperature float64
	MaxTokens   int
	ForceJSON   bool
}

// Service defines the chat completion contract used by generation,
// validation, and the answer service
type Service interface {
	// Chat sends the conversation and returns the raw assistant content
	Chat(ctx context.Context, messages []Message, opts Options) (string, error)

	// Configured reports whether credentials are present
	Configured() bool
}
