package builtin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/webwright/webwright/internal/health"
	"github.com/webwright/webwright/internal/tools"
)

func getAPIModelConfig() *tools.Descriptor {
	return tools.New("get_api_model_config").
		Doc(`Retrieves the current API configuration: the preferred provider, whether
its key is set and the model in use. Asked which model you are, or about
your identity? Use this function.
:param config_type: only "get_config" is supported here; other changes are made with "webwright config set"`).
		Optional("config_type", tools.TypeString, "", "get_config").
		Uses(tools.ContextSettings).
		Handle(func(ctx context.Context, ic tools.InvocationContext, args tools.Args) (any, error) {
			if ct := args.String("config_type"); ct != "get_config" {
				return map[string]any{
					"success": false,
					"message": fmt.Sprintf("config_type %q changes configuration; run `webwright config set` instead", ct),
				}, nil
			}
			preferred := ic.Settings.Get("PREFERRED_API")
			result := map[string]any{
				"success":       true,
				"message":       "Current configuration retrieved. Your model and provider are provided below.",
				"preferred_api": preferred,
				"api_key_set":   false,
				"model":         nil,
			}
			if preferred != "" {
				p := strings.ToUpper(preferred)
				key := ic.Settings.Get(p + "_API_KEY")
				result["api_key_set"] = key != "" && key != "NONE"
				if model := ic.Settings.Get(p + "_MODEL"); model != "" && model != "NONE" {
					result["model"] = model
				}
			}
			return result, nil
		}).
		MustBuild()
}

// SystemStatus contains the state reported by system_status.
type SystemStatus struct {
	Timestamp  time.Time                         `json:"timestamp"`
	Overall    string                            `json:"overall"`
	Components map[string]health.ComponentHealth `json:"components"`
}

func systemStatus() *tools.Descriptor {
	return tools.New("system_status").
		Doc("Reports the health of webwright's own components: conversation store, embedder and model provider.").
		Uses(tools.ContextHealth).
		Handle(func(ctx context.Context, ic tools.InvocationContext, args tools.Args) (any, error) {
			report := ic.Health.Check()
			return SystemStatus{
				Timestamp:  report.Timestamp,
				Overall:    ic.Health.GetStatus(),
				Components: report.Components,
			}, nil
		}).
		MustBuild()
}

// ReadLogsResult is the result of the read_logs tool.
type ReadLogsResult struct {
	Logs  []health.LogEntry `json:"logs"`
	Count int               `json:"count"`
}

func readLogs() *tools.Descriptor {
	return tools.New("read_logs").
		Doc(`Retrieves recent warning and error logs of webwright itself, newest first.
:param level: "warn" or "error"; empty for both
:param component: e.g. llm, tools, memory, agent
:param limit: max entries to return (at most 200)`).
		Optional("level", tools.TypeString, "", "").
		Optional("component", tools.TypeString, "", "").
		Optional("limit", tools.TypeInteger, "", 50).
		Uses(tools.ContextSystemLogs).
		Handle(func(ctx context.Context, ic tools.InvocationContext, args tools.Args) (any, error) {
			limit := int(args.Int("limit"))
			if limit <= 0 {
				limit = 50
			}
			if limit > 200 {
				limit = 200
			}
			logs, err := ic.SystemLogs.GetLogs(args.String("level"), args.String("component"), limit)
			if err != nil {
				return nil, err
			}
			return ReadLogsResult{Logs: logs, Count: len(logs)}, nil
		}).
		MustBuild()
}
