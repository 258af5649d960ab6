package llm

import (
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/webwright/webwright/internal/core"
)

// decodeCall turns a raw function call into a ToolCall. Arguments that do
// not decode to a JSON object are logged and the call is dropped.
func decodeCall(logger *zap.Logger, id, name, raw string) (core.ToolCall, bool) {
	if name == "" {
		logger.Warn("dropping tool call without a name", zap.String("id", id))
		return core.ToolCall{}, false
	}
	params := map[string]any{}
	if strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &params); err != nil || params == nil {
			logger.Warn("dropping tool call with undecodable arguments",
				zap.String("tool", name),
				zap.String("arguments", raw),
				zap.Error(err))
			return core.ToolCall{}, false
		}
	}
	if id == "" {
		id = "call_" + uuid.NewString()
	}
	return core.ToolCall{ID: id, Name: name, Parameters: params}, true
}

// argumentsJSON encodes call parameters for providers that carry them as text.
func argumentsJSON(params map[string]any) string {
	if params == nil {
		return "{}"
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

// schemaMap renders a tool's parameter schema as a plain map.
func schemaMap(def core.ToolDefinition) map[string]any {
	out := map[string]any{"type": "object", "properties": map[string]any{}}
	if def.Parameters == nil {
		return out
	}
	raw, err := json.Marshal(def.Parameters)
	if err != nil {
		return out
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return out
	}
	if _, ok := m["properties"]; !ok {
		m["properties"] = map[string]any{}
	}
	return m
}

func textPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
