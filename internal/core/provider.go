package core

import "context"

// ChatRequest is one provider-neutral completion request.
type ChatRequest struct {
	Model    string
	System   string
	Messages []Message
	Tools    []ToolDefinition
	// JSON asks the provider for a single JSON object reply where supported.
	JSON bool
}

// Provider is a chat-completion backend. Implementations wrap one SDK each
// and return the normalised Response shape; they do not retry.
type Provider interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (*Response, error)
}
