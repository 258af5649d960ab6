package tools

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/webwright/webwright/internal/core"
	"github.com/webwright/webwright/internal/health"
)

// Settings is read access to configuration values.
type Settings interface {
	Get(key string) string
}

// SystemLogReader reads persisted warn and error records.
type SystemLogReader interface {
	GetLogs(level, component string, limit int) ([]health.LogEntry, error)
}

// InvocationContext carries the runtime collaborators a tool may consume.
// A handler only sees the fields its descriptor declares; Logger, WorkDir
// and DiffDir are always passed.
type InvocationContext struct {
	Log        core.ConversationLog
	LLM        core.LLMClient
	Settings   Settings
	Health     *health.Registry
	SystemLogs SystemLogReader

	Logger  *zap.Logger
	WorkDir string
	DiffDir string
}

// restrict returns a copy holding only the declared fields, or an error
// naming the first declared field that is not set.
func (ic InvocationContext) restrict(tool string, fields []ContextField) (InvocationContext, error) {
	out := InvocationContext{Logger: ic.Logger, WorkDir: ic.WorkDir, DiffDir: ic.DiffDir}
	if out.Logger == nil {
		out.Logger = zap.NewNop()
	}
	for _, f := range fields {
		var ok bool
		switch f {
		case ContextLog:
			out.Log, ok = ic.Log, ic.Log != nil
		case ContextLLM:
			out.LLM, ok = ic.LLM, ic.LLM != nil
		case ContextSettings:
			out.Settings, ok = ic.Settings, ic.Settings != nil
		case ContextHealth:
			out.Health, ok = ic.Health, ic.Health != nil
		case ContextSystemLogs:
			out.SystemLogs, ok = ic.SystemLogs, ic.SystemLogs != nil
		}
		if !ok {
			return out, fmt.Errorf("%w: %s needs %q", ErrContextUnavailable, tool, f)
		}
	}
	return out, nil
}
