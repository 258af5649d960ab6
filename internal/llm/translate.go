package llm

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/webwright/webwright/internal/core"
)

// Translate converts log entries into provider-neutral messages.
//
// A tool_call directly followed by its tool_result becomes an assistant turn
// carrying the call and a tool turn carrying the result, linked by a
// synthesised id. A call without a result and a result without a call are
// rendered as plain text so every provider accepts the sequence.
func Translate(entries []core.Entry) []core.Message {
	out := make([]core.Message, 0, len(entries))
	for i := 0; i < len(entries); i++ {
		e := entries[i]
		switch e.Type {
		case core.EntryUserQuery:
			out = append(out, core.Message{Role: core.RoleUser, Content: render(e.Content)})

		case core.EntryLLMResponse:
			out = append(out, core.Message{Role: core.RoleAssistant, Content: responseText(e.Content)})

		case core.EntryToolCall:
			tool, params := callParts(e.Content)
			if i+1 < len(entries) && entries[i+1].Type == core.EntryToolResult {
				resTool, response := resultParts(entries[i+1].Content)
				if resTool == "" || resTool == tool {
					id := "call_" + uuid.NewString()
					out = append(out,
						core.Message{Role: core.RoleAssistant, ToolCalls: []core.ToolCall{{ID: id, Name: tool, Parameters: params}}},
						core.Message{Role: core.RoleTool, Content: response, ToolCallID: id, ToolName: tool},
					)
					i++
					continue
				}
			}
			raw, _ := json.Marshal(params)
			out = append(out, core.Message{Role: core.RoleAssistant, Content: fmt.Sprintf("I called the %s tool with %s.", tool, raw)})

		case core.EntryToolResult:
			tool, response := resultParts(e.Content)
			out = append(out, core.Message{Role: core.RoleUser, Content: fmt.Sprintf("The %s tool returned: %s", tool, response)})
		}
	}
	return out
}

// render returns string content verbatim and JSON for anything else.
func render(content any) string {
	if s, ok := content.(string); ok {
		return s
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return fmt.Sprint(content)
	}
	return string(raw)
}

// responseText summarises an llm_response. Responses that recorded a list
// of calls are rendered as one line per call.
func responseText(content any) string {
	list, ok := content.([]any)
	if !ok {
		return render(content)
	}
	var b strings.Builder
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if text, ok := m["text"].(string); ok {
			b.WriteString(text)
			b.WriteString("\n")
			continue
		}
		name, _ := m["name"].(string)
		if name == "" {
			continue
		}
		params, _ := json.Marshal(m["parameters"])
		fmt.Fprintf(&b, "I requested the %s tool with %s.\n", name, params)
	}
	if b.Len() == 0 {
		return render(content)
	}
	return strings.TrimRight(b.String(), "\n")
}

func callParts(content any) (string, map[string]any) {
	m, _ := content.(map[string]any)
	tool, _ := m["tool"].(string)
	params, _ := m["parameters"].(map[string]any)
	if params == nil {
		params = map[string]any{}
	}
	return tool, params
}

func resultParts(content any) (string, string) {
	m, ok := content.(map[string]any)
	if !ok {
		return "", render(content)
	}
	tool, _ := m["tool"].(string)
	return tool, render(m["response"])
}
