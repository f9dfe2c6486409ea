package adapter

import "context"

// Message is one chat turn handed to the language model.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// CompletionOptions tune a single generation call.
type CompletionOptions struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// TutorModel is the port for the LLM collaborator. Complete issues exactly
// one exchange and returns the raw model text; output parsing tolerance
// lives above this boundary.
type TutorModel interface {
	Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error)
	Name() string
}
