package registry

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/webwright/webwright/internal/core"
)

// Options carries what a factory needs to build a provider or embedder.
type Options struct {
	APIKey  string
	Model   string
	BaseURL string // optional endpoint override (OpenAI-compatible servers, Ollama host)
	Logger  *zap.Logger
}

// Factory types for components
type ProviderFactory func(opts Options) (core.Provider, error)
type EmbedderFactory func(opts Options) (core.Embedder, error)

var (
	mu        sync.RWMutex
	Providers = make(map[string]ProviderFactory)
	Embedders = make(map[string]EmbedderFactory)
)

func RegisterProvider(name string, f ProviderFactory) {
	mu.Lock()
	defer mu.Unlock()
	Providers[name] = f
}

func RegisterEmbedder(name string, f EmbedderFactory) {
	mu.Lock()
	defer mu.Unlock()
	Embedders[name] = f
}

// Getters with Safe Read
func GetProviderFactory(name string) (ProviderFactory, bool) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := Providers[name]
	return f, ok
}

func GetEmbedderFactory(name string) (EmbedderFactory, bool) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := Embedders[name]
	return f, ok
}

// ProviderNames lists registered provider factories, sorted.
func ProviderNames() []string {
	mu.RLock()
	defer mu.RUnlock()
	return sortedKeys(Providers)
}

// EmbedderNames lists registered embedder factories, sorted.
func EmbedderNames() []string {
	mu.RLock()
	defer mu.RUnlock()
	return sortedKeys(Embedders)
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
