package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/webwright/webwright/internal/core"
	"github.com/webwright/webwright/internal/registry"
)

func init() {
	registry.RegisterProvider("anthropic", func(opts registry.Options) (core.Provider, error) {
		return NewAnthropic(opts)
	})
}

const anthropicMaxTokens = 4096

const jsonInstruction = "Reply with a single JSON object and nothing else."

// Anthropic talks to the Messages API.
type Anthropic struct {
	client anthropic.Client
	model  string
	logger *zap.Logger
}

// NewAnthropic builds the provider.
func NewAnthropic(opts registry.Options) (*Anthropic, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("anthropic: api key required")
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey), option.WithMaxRetries(0)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Anthropic{client: anthropic.NewClient(reqOpts...), model: opts.Model, logger: logger}, nil
}

func (p *Anthropic) Name() string { return "anthropic" }

func (p *Anthropic) Chat(ctx context.Context, req core.ChatRequest) (*core.Response, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: anthropicMaxTokens,
		Messages:  anthropicMessages(req.Messages),
	}
	system := req.System
	if req.JSON {
		system = strings.TrimSpace(system + "\n\n" + jsonInstruction)
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	for _, def := range req.Tools {
		tool, err := anthropicTool(def)
		if err != nil {
			return nil, err
		}
		params.Tools = append(params.Tools, tool)
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, &APIError{Provider: p.Name(), StatusCode: apiErr.StatusCode, Err: err}
		}
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	var text strings.Builder
	resp := &core.Response{}
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			if call, ok := decodeCall(p.logger, block.ID, block.Name, string(block.Input)); ok {
				resp.ToolCalls = append(resp.ToolCalls, call)
			}
		}
	}
	resp.Content = textPtr(text.String())
	return resp, nil
}

// anthropicMessages converts messages, merging consecutive turns of the same
// role and opening with a user turn as the API requires.
func anthropicMessages(msgs []core.Message) []anthropic.MessageParam {
	var out []anthropic.MessageParam
	add := func(role anthropic.MessageParamRole, blocks ...anthropic.ContentBlockParamUnion) {
		if len(blocks) == 0 {
			return
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, blocks...)
			return
		}
		out = append(out, anthropic.MessageParam{Role: role, Content: blocks})
	}

	for _, m := range msgs {
		switch m.Role {
		case core.RoleUser, core.RoleSystem:
			if strings.TrimSpace(m.Content) != "" {
				add(anthropic.MessageParamRoleUser, anthropic.NewTextBlock(m.Content))
			}
		case core.RoleTool:
			add(anthropic.MessageParamRoleUser, anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false))
		case core.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if strings.TrimSpace(m.Content) != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				params := tc.Parameters
				if params == nil {
					params = map[string]any{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, params, tc.Name))
			}
			add(anthropic.MessageParamRoleAssistant, blocks...)
		}
	}

	if len(out) == 0 || out[0].Role != anthropic.MessageParamRoleUser {
		out = append([]anthropic.MessageParam{{
			Role:    anthropic.MessageParamRoleUser,
			Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock("(continuing the conversation)")},
		}}, out...)
	}
	return out
}

func anthropicTool(def core.ToolDefinition) (anthropic.ToolUnionParam, error) {
	raw, err := json.Marshal(schemaMap(def))
	if err != nil {
		return anthropic.ToolUnionParam{}, fmt.Errorf("tool %s schema: %w", def.Name, err)
	}
	var schema anthropic.ToolInputSchemaParam
	if err := json.Unmarshal(raw, &schema); err != nil {
		return anthropic.ToolUnionParam{}, fmt.Errorf("tool %s schema: %w", def.Name, err)
	}
	tool := anthropic.ToolParam{Name: def.Name, InputSchema: schema}
	if def.Description != "" {
		tool.Description = anthropic.String(def.Description)
	}
	return anthropic.ToolUnionParam{OfTool: &tool}, nil
}
