// Package llm is the provider-neutral model adapter. It translates
// conversation entries and the tool catalogue into one provider call,
// retries transient failures and normalises the reply.
package llm

import (
	"context"
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/webwright/webwright/internal/core"
	"github.com/webwright/webwright/internal/registry"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// ErrProviderUnavailable is returned together with a failure record when
	// every attempt failed.
	ErrProviderUnavailable = errors.New("model provider unavailable")
	// ErrProviderRejected marks a request the provider refused outright
	// (bad key, unknown model, schema rejected). It is not retried.
	ErrProviderRejected = errors.New("model provider rejected the request")
)

// DefaultModels holds the model used when none is configured.
var DefaultModels = map[string]string{
	"openai":    "gpt-4o",
	"anthropic": "claude-3-5-sonnet-20240620",
	"gemini":    "gemini-2.0-flash",
	"ollama":    "llama3.1",
}

// DefaultSystemPrompt frames the model as a tool-selecting agent.
const DefaultSystemPrompt = `You are Webwright, a friendly and helpful assistant working in the user's terminal.
You can call the functions you are given to read and write files, inspect git, search the conversation history and more.

Remember to:
1. Use the "search" function to find earlier context that is relevant to the request.
2. Break complex requests into steps and call the functions that carry them out.
3. Ask for confirmation before significant changes such as rewriting files.
4. Report what was actually done rather than restating your intentions.
5. Answer in plain text when no function applies.`

// NewProvider builds the named provider through its registered factory.
func NewProvider(name string, opts registry.Options) (core.Provider, error) {
	f, ok := registry.GetProviderFactory(name)
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (available: %v)", name, registry.ProviderNames())
	}
	if opts.Model == "" {
		opts.Model = DefaultModels[name]
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return f(opts)
}

// Probe sends one short request to check that a key and model work. It does
// not retry.
func Probe(ctx context.Context, name string, opts registry.Options) error {
	p, err := NewProvider(name, opts)
	if err != nil {
		return err
	}
	text := "Reply with the single word OK."
	_, err = p.Chat(ctx, core.ChatRequest{
		Model:    opts.Model,
		Messages: []core.Message{{Role: core.RoleUser, Content: text}},
	})
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
