package pipeline

import (
	"fmt"
	"slices"
	"strings"

	"github.com/webwright/webwright/internal/llm"
)

// Kind is what a node produces.
type Kind string

const (
	KindText Kind = "text"
	KindJSON Kind = "json"
)

// ParseKind accepts text and json in any case.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindText, KindJSON:
		return k, nil
	case "":
		return KindText, nil
	}
	return "", fmt.Errorf("unknown node kind %q", s)
}

// Models is the allow-list a backend accepts per kind.
type Models struct {
	Text    []string
	JSON    []string
	Default string
}

// Allowed reports whether model may serve a node of kind k.
func (m Models) Allowed(k Kind, model string) bool {
	if k == KindJSON {
		return slices.Contains(m.JSON, model)
	}
	return slices.Contains(m.Text, model)
}

var knownModels = map[string]Models{
	"openai": {
		Text: []string{"gpt-4o", "gpt-4o-mini", "gpt-4.1", "gpt-4.1-mini"},
		JSON: []string{"gpt-4o", "gpt-4o-mini", "gpt-4.1", "gpt-4.1-mini"},
	},
	"anthropic": {
		Text: []string{"claude-3-5-sonnet-20240620", "claude-3-5-haiku-20241022", "claude-sonnet-4-20250514"},
		JSON: []string{"claude-3-5-sonnet-20240620", "claude-sonnet-4-20250514"},
	},
	"gemini": {
		Text: []string{"gemini-2.0-flash", "gemini-2.5-flash", "gemini-2.5-pro"},
		JSON: []string{"gemini-2.0-flash", "gemini-2.5-flash", "gemini-2.5-pro"},
	},
	"ollama": {
		Text: []string{"llama3.1", "llama3.2", "mistral", "qwen2.5"},
		JSON: []string{"llama3.1", "qwen2.5"},
	},
}

// ModelsFor returns the allow-list for a provider. The provider's default
// chat model is always allowed for both kinds.
func ModelsFor(provider string) Models {
	m := knownModels[provider]
	out := Models{
		Text:    slices.Clone(m.Text),
		JSON:    slices.Clone(m.JSON),
		Default: llm.DefaultModels[provider],
	}
	if out.Default != "" {
		if !slices.Contains(out.Text, out.Default) {
			out.Text = append(out.Text, out.Default)
		}
		if !slices.Contains(out.JSON, out.Default) {
			out.JSON = append(out.JSON, out.Default)
		}
	}
	return out
}
