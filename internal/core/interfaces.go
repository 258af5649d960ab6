package core

import (
	"context"
)

// LLMClient is the capability tools use to ask the model a one-shot question.
// The LLM adapter implements it; tools never import the adapter directly.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Embedder turns text into a vector. Name identifies the strategy and is
// recorded with the collection so a later model change can be detected.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Name() string
	Dimensions() int
}

// Match is one similarity-search hit paired with its adjacent turn.
type Match struct {
	Entry    Entry   `json:"entry"`
	Adjacent *Entry  `json:"adjacent,omitempty"`
	Score    float64 `json:"score"`
}

// ConversationLog is the part of the conversation store exposed to tools.
type ConversationLog interface {
	Append(ctx context.Context, e Entry) (string, error)
	Recent(ctx context.Context, n int) ([]Entry, error)
	SimilaritySearch(ctx context.Context, query string, k int) ([]Match, error)
}
