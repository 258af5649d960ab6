package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/webwright/webwright/internal/core"
	"github.com/webwright/webwright/internal/registry"
)

func init() {
	registry.RegisterProvider("ollama", func(opts registry.Options) (core.Provider, error) {
		return NewOllama(opts)
	})
}

// Ollama talks to a local or remote Ollama server. No key is needed.
type Ollama struct {
	client *api.Client
	model  string
	logger *zap.Logger
}

// NewOllama builds the provider; BaseURL overrides OLLAMA_HOST.
func NewOllama(opts registry.Options) (*Ollama, error) {
	var client *api.Client
	if opts.BaseURL != "" {
		u, err := url.Parse(opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("ollama: invalid base URL: %w", err)
		}
		client = api.NewClient(u, http.DefaultClient)
	} else {
		var err error
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("ollama: %w", err)
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ollama{client: client, model: opts.Model, logger: logger}, nil
}

func (p *Ollama) Name() string { return "ollama" }

func (p *Ollama) Chat(ctx context.Context, req core.ChatRequest) (*core.Response, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}
	msgs, err := ollamaMessages(req.System, req.Messages)
	if err != nil {
		return nil, err
	}
	stream := false
	chatReq := &api.ChatRequest{
		Model:    model,
		Messages: msgs,
		Stream:   &stream,
	}
	if len(req.Tools) > 0 {
		tools, err := ollamaTools(req.Tools)
		if err != nil {
			return nil, err
		}
		chatReq.Tools = tools
	} else if req.JSON {
		chatReq.Format = []byte(`"json"`)
	}

	var final api.ChatResponse
	err = p.client.Chat(ctx, chatReq, func(r api.ChatResponse) error {
		final.Message.Content += r.Message.Content
		final.Message.ToolCalls = append(final.Message.ToolCalls, r.Message.ToolCalls...)
		return nil
	})
	if err != nil {
		var status api.StatusError
		if errors.As(err, &status) {
			return nil, &APIError{Provider: p.Name(), StatusCode: status.StatusCode, Err: err}
		}
		return nil, fmt.Errorf("ollama: %w", err)
	}

	resp := &core.Response{Content: textPtr(final.Message.Content)}
	for _, tc := range final.Message.ToolCalls {
		raw, err := json.Marshal(tc.Function.Arguments)
		if err != nil {
			p.logger.Warn("dropping tool call with unencodable arguments", zap.String("tool", tc.Function.Name), zap.Error(err))
			continue
		}
		if call, ok := decodeCall(p.logger, tc.ID, tc.Function.Name, string(raw)); ok {
			resp.ToolCalls = append(resp.ToolCalls, call)
		}
	}
	return resp, nil
}

func ollamaMessages(system string, msgs []core.Message) ([]api.Message, error) {
	out := make([]api.Message, 0, len(msgs)+1)
	if system != "" {
		out = append(out, api.Message{Role: core.RoleSystem, Content: system})
	}
	for _, m := range msgs {
		msg := api.Message{Role: m.Role, Content: m.Content}
		if m.Role == core.RoleTool {
			msg.ToolCallID = m.ToolCallID
			msg.ToolName = m.ToolName
		}
		for _, tc := range m.ToolCalls {
			// ToolCallFunctionArguments is an ordered map; go through JSON.
			var args api.ToolCallFunctionArguments
			if err := json.Unmarshal([]byte(argumentsJSON(tc.Parameters)), &args); err != nil {
				return nil, fmt.Errorf("ollama: encode arguments of %s: %w", tc.Name, err)
			}
			msg.ToolCalls = append(msg.ToolCalls, api.ToolCall{
				ID:       tc.ID,
				Function: api.ToolCallFunction{Name: tc.Name, Arguments: args},
			})
		}
		out = append(out, msg)
	}
	return out, nil
}

func ollamaTools(defs []core.ToolDefinition) ([]api.Tool, error) {
	wire := make([]map[string]any, 0, len(defs))
	for _, def := range defs {
		wire = append(wire, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        def.Name,
				"description": def.Description,
				"parameters":  schemaMap(def),
			},
		})
	}
	raw, err := json.Marshal(wire)
	if err != nil {
		return nil, err
	}
	var tools []api.Tool
	if err := json.Unmarshal(raw, &tools); err != nil {
		return nil, fmt.Errorf("ollama: convert tools: %w", err)
	}
	return tools, nil
}
