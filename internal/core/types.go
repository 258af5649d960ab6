package core

import (
	"time"

	"github.com/google/jsonschema-go/jsonschema"
)

// EntryType classifies a conversation log entry.
type EntryType string

const (
	EntryUserQuery   EntryType = "user_query"
	EntryLLMResponse EntryType = "llm_response"
	EntryToolCall    EntryType = "tool_call"
	EntryToolResult  EntryType = "tool_result"
)

// Valid reports whether t is one of the known entry types.
func (t EntryType) Valid() bool {
	switch t {
	case EntryUserQuery, EntryLLMResponse, EntryToolCall, EntryToolResult:
		return true
	}
	return false
}

// IsAssistant is true for entries authored by the model.
func (t EntryType) IsAssistant() bool { return t == EntryLLMResponse }

// TimestampLayout is fixed width so that lexical order equals chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// FormatTimestamp renders t in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp accepts TimestampLayout and plain RFC 3339.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(TimestampLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// Entry is one immutable record in the conversation log.
// Content is a string for textual entries and a JSON-shaped value
// (map[string]any or []any) for structured ones.
type Entry struct {
	ID        string    `json:"id,omitempty"`
	Timestamp string    `json:"timestamp"`
	Type      EntryType `json:"type"`
	Content   any       `json:"content"`
}

// Text returns the content when it is a plain string.
func (e Entry) Text() (string, bool) {
	s, ok := e.Content.(string)
	return s, ok
}

// ToolCallContent builds the structured content of a tool_call entry.
func ToolCallContent(tool string, parameters map[string]any) map[string]any {
	if parameters == nil {
		parameters = map[string]any{}
	}
	return map[string]any{"tool": tool, "parameters": parameters}
}

// ToolResultContent builds the structured content of a tool_result entry.
func ToolResultContent(tool string, response any) map[string]any {
	return map[string]any{"tool": tool, "response": response}
}

// Message roles understood by every provider adapter.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is a provider-neutral chat turn.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"` // for role=tool
}

// ToolCall is a single tool invocation requested by the model.
// Parameters is the decoded argument object.
type ToolCall struct {
	ID         string         `json:"id,omitempty"`
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters"`
}

// ToolDefinition is one catalogue entry published to the model.
type ToolDefinition struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  *jsonschema.Schema `json:"parameters"`
}

// Response is the normalised result of one model call.
// Content is nil when the model produced no text. Error is set on a failure record.
type Response struct {
	Content   *string    `json:"content"`
	Timestamp string     `json:"timestamp"`
	ToolCalls []ToolCall `json:"tool_calls"`
	Error     string     `json:"error,omitempty"`
}

// Text returns the content or "".
func (r *Response) Text() string {
	if r == nil || r.Content == nil {
		return ""
	}
	return *r.Content
}

// StringPtr is a small helper for optional text.
func StringPtr(s string) *string { return &s }
