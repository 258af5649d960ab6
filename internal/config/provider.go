package config

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"
)

// ProviderOrder is the fallback order when several providers are usable and
// none is preferred.
var ProviderOrder = []string{"openai", "anthropic", "gemini", "ollama"}

var providerKeys = map[string]struct{ key, model string }{
	"openai":    {KeyOpenAI, KeyOpenAIModel},
	"anthropic": {KeyAnthropic, KeyAnthropicModel},
	"gemini":    {KeyGemini, KeyGeminiModel},
	"ollama":    {"", KeyOllamaModel},
}

// Selection is the provider a session talks to.
type Selection struct {
	Provider string
	APIKey   string
	Model    string // empty means the provider default
	BaseURL  string
}

// APIKey returns the validated key for provider. A key that is unset or
// NONE yields "" without error. Validation results are memoised until
// ClearCache or Reload.
func (s *Store) APIKey(ctx context.Context, provider string) (string, error) {
	names, ok := providerKeys[provider]
	if !ok {
		return "", &Error{Key: provider, Err: errors.New("unknown provider")}
	}
	if names.key == "" {
		return "", nil
	}
	key := s.Value(names.key)
	if key == "" {
		return "", nil
	}
	if err := s.check(ctx, provider, key); err != nil {
		return "", &Error{Key: names.key, Err: err}
	}
	return key, nil
}

func (s *Store) check(ctx context.Context, provider, key string) error {
	if s.validate == nil {
		return nil
	}
	memo := provider + "\x00" + key
	s.mu.RLock()
	err, seen := s.validated[memo]
	s.mu.RUnlock()
	if seen {
		return err
	}
	err = s.validate(ctx, provider, key)
	if ctx.Err() != nil {
		// a cancelled probe says nothing about the key
		return err
	}
	s.mu.Lock()
	s.validated[memo] = err
	s.mu.Unlock()
	if err != nil {
		s.logger.Warn("api key rejected", zap.String("provider", provider), zap.Error(err))
	} else {
		s.logger.Debug("api key verified", zap.String("provider", provider))
	}
	return err
}

// Model returns the configured model for provider, or "".
func (s *Store) Model(provider string) string {
	names, ok := providerKeys[provider]
	if !ok {
		return ""
	}
	return s.Value(names.model)
}

// Usable lists the providers that can be used right now, in ProviderOrder.
// Ollama needs no key and is usable once OLLAMA_MODEL or OLLAMA_HOST is set.
func (s *Store) Usable(ctx context.Context) []string {
	var out []string
	for _, p := range ProviderOrder {
		if p == "ollama" {
			if s.Value(KeyOllamaModel) != "" || s.Value(KeyOllamaHost) != "" {
				out = append(out, p)
			}
			continue
		}
		key, err := s.APIKey(ctx, p)
		if err == nil && key != "" {
			out = append(out, p)
		}
	}
	return out
}

// DetermineProvider picks the provider for a session: the only usable one,
// else PREFERRED_API when usable, else the first usable in ProviderOrder.
// The choice is written back as PREFERRED_API.
func (s *Store) DetermineProvider(ctx context.Context) (Selection, error) {
	usable := s.Usable(ctx)
	if len(usable) == 0 {
		if err := ctx.Err(); err != nil {
			return Selection{}, err
		}
		return Selection{}, fmt.Errorf("%w: set an API key in %s", ErrNoProvider, s.path)
	}
	choice := usable[0]
	if preferred := s.Value(KeyPreferred); len(usable) > 1 && slices.Contains(usable, preferred) {
		choice = preferred
	}
	if s.Get(KeyPreferred) != choice {
		if err := s.Set(KeyPreferred, choice); err != nil {
			return Selection{}, err
		}
	}
	sel := Selection{Provider: choice, Model: s.Model(choice)}
	if choice == "ollama" {
		sel.BaseURL = s.Value(KeyOllamaHost)
	} else {
		// already validated by Usable
		sel.APIKey, _ = s.APIKey(ctx, choice)
	}
	s.logger.Info("model provider selected",
		zap.String("provider", sel.Provider), zap.String("model", sel.Model), zap.Strings("usable", usable))
	return sel, nil
}
