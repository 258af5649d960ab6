package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	"github.com/webwright/webwright/internal/core"
	"github.com/webwright/webwright/internal/registry"
)

func init() {
	registry.RegisterEmbedder("ollama", func(opts registry.Options) (core.Embedder, error) {
		return NewOllamaEngine(opts.BaseURL, opts.Model)
	})
}

// OllamaEngine generates embeddings using a local Ollama server.
type OllamaEngine struct {
	client *api.Client
	model  string
	dims   int
}

// NewOllamaEngine creates a new Ollama embedding engine. An empty endpoint
// uses OLLAMA_HOST from the environment.
func NewOllamaEngine(endpoint, model string) (*OllamaEngine, error) {
	if model == "" {
		model = "embeddinggemma"
	}
	var client *api.Client
	if endpoint != "" {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama endpoint: %w", err)
		}
		client = api.NewClient(u, http.DefaultClient)
	} else {
		var err error
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, err
		}
	}
	return &OllamaEngine{client: client, model: model, dims: 768}, nil
}

// Embed generates an embedding for a single text.
func (e *OllamaEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embed(ctx, &api.EmbedRequest{Model: e.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("ollama embed failed: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	e.dims = len(resp.Embeddings[0])
	return resp.Embeddings[0], nil
}

func (e *OllamaEngine) Dimensions() int { return e.dims }
func (e *OllamaEngine) Name() string    { return "ollama:" + e.model }
