package llms

import "context"

// Message roles accepted on the chat wire format.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in a chat completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response is the completed generation with token accounting.
type Response struct {
	Content      string
	Model        string
	InputTokens  int
	OutputTokens int
	FinishReason string
}

// Provider generates chat completions.
type Provider interface {
	// Generate produces a completion for the given conversation.
	Generate(ctx context.Context, messages []Message) (*Response, error)

	// ModelName returns the configured model identifier.
	ModelName() string

	// Close releases any resources held by the provider.
	Close() error
}
