package embedding

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/webwright/webwright/internal/core"
	"github.com/webwright/webwright/internal/registry"
)

func init() {
	registry.RegisterEmbedder("openai", func(opts registry.Options) (core.Embedder, error) {
		return NewOpenAIEngine(opts.APIKey, opts.Model, opts.BaseURL)
	})
}

// OpenAIEngine generates embeddings through the OpenAI embeddings endpoint.
type OpenAIEngine struct {
	client openai.Client
	model  string
	dims   int
}

// NewOpenAIEngine creates an OpenAI embedding engine.
func NewOpenAIEngine(apiKey, model, baseURL string) (*OpenAIEngine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIEngine{client: openai.NewClient(opts...), model: model, dims: 1536}, nil
}

// Embed generates an embedding for a single text.
func (e *OpenAIEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embed failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	vec64 := resp.Data[0].Embedding
	vec := make([]float32, len(vec64))
	for i, v := range vec64 {
		vec[i] = float32(v)
	}
	e.dims = len(vec)
	return vec, nil
}

func (e *OpenAIEngine) Dimensions() int { return e.dims }
func (e *OpenAIEngine) Name() string    { return "openai:" + e.model }
