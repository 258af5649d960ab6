// Package embedding provides vector embedding strategies for the
// conversation log. Strategies register themselves by name; the collection
// records which one produced its vectors.
package embedding

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/webwright/webwright/internal/core"
	"github.com/webwright/webwright/internal/registry"
)

// DefaultProvider is the local strategy used when nothing else is configured.
const DefaultProvider = "hash"

// Config holds embedding engine configuration.
type Config struct {
	// Provider: "hash", "ollama", "genai" or "openai"
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// NewEngine creates an embedding engine based on configuration.
func NewEngine(cfg Config, logger *zap.Logger) (core.Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Provider == "" {
		cfg.Provider = DefaultProvider
	}
	f, ok := registry.GetEmbedderFactory(cfg.Provider)
	if !ok {
		return nil, fmt.Errorf("unsupported embedding provider: %s (available: %v)", cfg.Provider, registry.EmbedderNames())
	}
	engine, err := f(registry.Options{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("creating %s embedder: %w", cfg.Provider, err)
	}
	logger.Info("embedding engine created",
		zap.String("name", engine.Name()),
		zap.Int("dimensions", engine.Dimensions()))
	return engine, nil
}
