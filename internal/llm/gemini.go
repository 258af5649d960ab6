package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/webwright/webwright/internal/core"
	"github.com/webwright/webwright/internal/registry"
)

func init() {
	registry.RegisterProvider("gemini", func(opts registry.Options) (core.Provider, error) {
		return NewGemini(context.Background(), opts)
	})
}

// Gemini talks to the Gemini API through the genai SDK.
type Gemini struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewGemini builds the provider.
func NewGemini(ctx context.Context, opts registry.Options) (*Gemini, error) {
	if opts.APIKey == "" {
		return nil, errors.New("gemini: api key required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gemini{client: client, model: opts.Model, logger: logger}, nil
}

func (p *Gemini) Name() string { return "gemini" }

func (p *Gemini) Chat(ctx context.Context, req core.ChatRequest) (*core.Response, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}
	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, def := range req.Tools {
			schema, err := geminiSchema(def)
			if err != nil {
				return nil, err
			}
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  schema,
			})
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	} else if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, geminiContents(req.Messages), cfg)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, &APIError{Provider: p.Name(), StatusCode: apiErr.Code, Err: err}
		}
		return nil, fmt.Errorf("gemini: %w", err)
	}

	out := &core.Response{}
	var text strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" && !part.Thought {
				text.WriteString(part.Text)
			}
			if fc := part.FunctionCall; fc != nil {
				raw, err := json.Marshal(fc.Args)
				if err != nil {
					p.logger.Warn("dropping tool call with unencodable arguments", zap.String("tool", fc.Name), zap.Error(err))
					continue
				}
				if call, ok := decodeCall(p.logger, fc.ID, fc.Name, string(raw)); ok {
					out.ToolCalls = append(out.ToolCalls, call)
				}
			}
		}
	}
	out.Content = textPtr(text.String())
	return out, nil
}

func geminiContents(msgs []core.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case core.RoleUser, core.RoleSystem:
			if m.Content != "" {
				out = append(out, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: m.Content}}})
			}
		case core.RoleTool:
			var response map[string]any
			if err := json.Unmarshal([]byte(m.Content), &response); err != nil || response == nil {
				response = map[string]any{"result": m.Content}
			}
			out = append(out, &genai.Content{Role: "user", Parts: []*genai.Part{{
				FunctionResponse: &genai.FunctionResponse{ID: m.ToolCallID, Name: m.ToolName, Response: response},
			}}})
		case core.RoleAssistant:
			var parts []*genai.Part
			if m.Content != "" {
				parts = append(parts, &genai.Part{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{ID: tc.ID, Name: tc.Name, Args: tc.Parameters}})
			}
			if len(parts) > 0 {
				out = append(out, &genai.Content{Role: "model", Parts: parts})
			}
		}
	}
	return out
}

// geminiSchema converts a JSON schema to genai's typed schema. Type names
// are upper-cased and properties without a type default to STRING.
func geminiSchema(def core.ToolDefinition) (*genai.Schema, error) {
	m := schemaMap(def)
	normaliseSchemaTypes(m)
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("tool %s schema: %w", def.Name, err)
	}
	var schema genai.Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("tool %s schema: %w", def.Name, err)
	}
	return &schema, nil
}

func normaliseSchemaTypes(m map[string]any) {
	delete(m, "default")
	if t, ok := m["type"].(string); ok && t != "" {
		m["type"] = strings.ToUpper(t)
	} else {
		m["type"] = "STRING"
	}
	if props, ok := m["properties"].(map[string]any); ok {
		for _, v := range props {
			if pm, ok := v.(map[string]any); ok {
				normaliseSchemaTypes(pm)
			}
		}
	}
	if items, ok := m["items"].(map[string]any); ok {
		normaliseSchemaTypes(items)
	}
}
