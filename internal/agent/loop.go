package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/webwright/webwright/internal/core"
	"github.com/webwright/webwright/internal/llm"
	"github.com/webwright/webwright/internal/tools"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Defaults for a Loop whose fields are left zero.
const (
	DefaultMaxPostToolPasses = 1
	DefaultRecentN           = 10
	DefaultTopK              = 5
)

// Window is the part of the conversation log the loop writes to and reads its
// context window from. *memory.Log implements it.
type Window interface {
	Append(ctx context.Context, e core.Entry) (string, error)
	BuildContext(ctx context.Context, recentN int, query string, topK int) ([]core.Entry, error)
}

// Decider picks the next step for a conversation. *llm.Adapter implements it.
type Decider interface {
	Decide(ctx context.Context, entries []core.Entry, catalogue []core.ToolDefinition) (*core.Response, error)
}

// TurnError ends a turn whose model call failed. Message is safe to show to
// the user; the entries appended before the failure stay in the log.
type TurnError struct {
	Message string
	Err     error
}

func (e *TurnError) Error() string { return e.Message + ": " + e.Err.Error() }
func (e *TurnError) Unwrap() error { return e.Err }

// Loop drives one user turn: query -> model -> tools -> model -> answer.
type Loop struct {
	Log        Window
	Decider    Decider
	Tools      *tools.Registry
	Invocation tools.InvocationContext
	Logger     *zap.Logger

	// MaxPostToolPasses bounds the model calls made after tools ran.
	MaxPostToolPasses int
	RecentN           int
	TopK              int
	// MaxOutputRunes caps each recorded tool result; 0 uses tools.DefaultMaxOutputRunes.
	MaxOutputRunes int
}

func (l *Loop) logger() *zap.Logger {
	if l.Logger == nil {
		return zap.NewNop()
	}
	return l.Logger
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// RunTurn records query, lets the model answer or call tools, and returns the
// text to show the user. Cancelling ctx stops the turn at the next suspension
// point; entries already appended are kept.
func (l *Loop) RunTurn(ctx context.Context, query string) (string, error) {
	log := l.logger()
	maxPasses := orDefault(l.MaxPostToolPasses, DefaultMaxPostToolPasses)

	if _, err := l.Log.Append(ctx, core.Entry{Type: core.EntryUserQuery, Content: query}); err != nil {
		return "", fmt.Errorf("recording query: %w", err)
	}
	window, err := l.Log.BuildContext(ctx, orDefault(l.RecentN, DefaultRecentN), query, orDefault(l.TopK, DefaultTopK))
	if err != nil {
		return "", fmt.Errorf("building context: %w", err)
	}

	var catalogue []core.ToolDefinition
	if l.Tools != nil {
		catalogue = l.Tools.Catalogue()
	}

	for pass := 0; ; pass++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		resp, err := l.Decider.Decide(ctx, window, catalogue)
		if err != nil {
			return "", l.decideFailed(ctx, resp, err)
		}
		log.Info("model replied",
			zap.Int("pass", pass),
			zap.Int("content_len", len(resp.Text())),
			zap.Int("tool_calls", len(resp.ToolCalls)))

		if len(resp.ToolCalls) == 0 {
			return l.finish(ctx, resp.Text())
		}
		if pass >= maxPasses {
			log.Warn("post-tool pass limit reached; pending tool calls not executed",
				zap.Int("limit", maxPasses), zap.Strings("tools", callNames(resp.ToolCalls)))
			text := resp.Text()
			if strings.TrimSpace(text) == "" {
				text = fmt.Sprintf("I stopped before running %s because this turn reached its tool limit. Ask me to continue if you want me to go on.",
					strings.Join(callNames(resp.ToolCalls), ", "))
			}
			return l.finish(ctx, text)
		}

		if text := resp.Text(); strings.TrimSpace(text) != "" {
			e := core.Entry{Type: core.EntryLLMResponse, Content: text}
			if err := l.record(ctx, &e); err != nil {
				return "", err
			}
			window = append(window, e)
		}
		log.Info("executing tool calls", zap.Strings("tools", callNames(resp.ToolCalls)))
		for _, call := range resp.ToolCalls {
			entries, err := l.runTool(ctx, call)
			window = append(window, entries...)
			if err != nil {
				return "", err
			}
		}
	}
}

// runTool invokes one call and records the tool_call and tool_result pair.
// Tool failures become failure results; only store and context errors are returned.
func (l *Loop) runTool(ctx context.Context, call core.ToolCall) ([]core.Entry, error) {
	var recorded []core.Entry
	callEntry := core.Entry{Type: core.EntryToolCall, Content: core.ToolCallContent(call.Name, call.Parameters)}
	if err := l.record(ctx, &callEntry); err != nil {
		return recorded, err
	}
	recorded = append(recorded, callEntry)

	response := l.invoke(ctx, call)
	if err := ctx.Err(); err != nil {
		return recorded, err
	}
	resultEntry := core.Entry{Type: core.EntryToolResult, Content: core.ToolResultContent(call.Name, response)}
	if err := l.record(ctx, &resultEntry); err != nil {
		return recorded, err
	}
	return append(recorded, resultEntry), nil
}

// invoke returns the tool's output, decoded when it is JSON, or a failure object.
func (l *Loop) invoke(ctx context.Context, call core.ToolCall) any {
	var out string
	var err error
	if l.Tools == nil {
		err = fmt.Errorf("%w: %s", tools.ErrToolNotFound, call.Name)
	} else {
		out, err = l.Tools.Invoke(ctx, call.Name, call.Parameters, l.Invocation)
	}
	if err != nil {
		l.logger().Warn("tool call failed", zap.String("tool", call.Name), zap.Error(err))
		out = tools.ErrorResult(err)
	}
	out = tools.TruncateOutput(out, orDefault(l.MaxOutputRunes, tools.DefaultMaxOutputRunes))

	var structured any
	if json.Unmarshal([]byte(out), &structured) == nil {
		if _, isObj := structured.(map[string]any); isObj {
			return structured
		}
		if _, isList := structured.([]any); isList {
			return structured
		}
	}
	return out
}

func (l *Loop) record(ctx context.Context, e *core.Entry) error {
	id, err := l.Log.Append(ctx, *e)
	if err != nil {
		return fmt.Errorf("recording %s: %w", e.Type, err)
	}
	e.ID = id
	if e.Timestamp == "" {
		e.Timestamp = id
	}
	return nil
}

func (l *Loop) finish(ctx context.Context, text string) (string, error) {
	e := core.Entry{Type: core.EntryLLMResponse, Content: text}
	if err := l.record(ctx, &e); err != nil {
		return "", err
	}
	return text, nil
}

func (l *Loop) decideFailed(ctx context.Context, resp *core.Response, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	detail := err.Error()
	if resp != nil && resp.Error != "" {
		detail = resp.Error
	}
	l.logger().Error("turn aborted by model failure", zap.String("detail", detail), zap.Error(err))

	msg := "Something went wrong talking to the model. Your message was saved; please try again."
	switch {
	case errors.Is(err, llm.ErrProviderUnavailable):
		msg = "The model provider is not responding right now. Your message was saved; please try again in a moment."
	case errors.Is(err, llm.ErrProviderRejected):
		msg = "The model provider rejected the request (" + detail + "). Check your API key and model settings."
	}
	return &TurnError{Message: msg, Err: err}
}

func callNames(calls []core.ToolCall) []string {
	names := make([]string, 0, len(calls))
	for _, c := range calls {
		names = append(names, c.Name)
	}
	return names
}
