package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/webwright/webwright/internal/core"
	"github.com/webwright/webwright/internal/registry"
)

func init() {
	registry.RegisterEmbedder("genai", func(opts registry.Options) (core.Embedder, error) {
		return NewGenAIEngine(opts.APIKey, opts.Model)
	})
}

// GenAIEngine generates embeddings using Google's Gemini API.
type GenAIEngine struct {
	client *genai.Client
	model  string
}

// NewGenAIEngine creates a new GenAI embedding engine.
func NewGenAIEngine(apiKey, model string) (*GenAIEngine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-embedding-001"
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GenAIEngine{client: client, model: model}, nil
}

// Embed generates an embedding for a single text.
func (e *GenAIEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	dims := int32(genaiDimensions)
	result, err := e.client.Models.EmbedContent(ctx,
		e.model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		&genai.EmbedContentConfig{TaskType: "SEMANTIC_SIMILARITY", OutputDimensionality: &dims},
	)
	if err != nil {
		return nil, fmt.Errorf("GenAI embed failed: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return result.Embeddings[0].Values, nil
}

const genaiDimensions = 768

// Dimensions is the requested output size; gemini-embedding-001 truncates to it.
func (e *GenAIEngine) Dimensions() int { return genaiDimensions }

func (e *GenAIEngine) Name() string { return "genai:" + e.model }
