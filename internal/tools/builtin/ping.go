package builtin

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/webwright/webwright/internal/tools"
)

func pingCommand(host string, count int64) []string {
	if runtime.GOOS == "windows" {
		return []string{"ping", "-n", strconv.FormatInt(count, 10), host}
	}
	return []string{"ping", "-c", strconv.FormatInt(count, 10), host}
}

func ping() *tools.Descriptor {
	return tools.New("ping").
		Doc(`Pings a host and returns the result, to check connectivity and response time.
:param host: hostname or IP address to ping
:param count: number of echo requests to send`).
		Optional("host", tools.TypeString, "", "google.com").
		Optional("count", tools.TypeInteger, "", 4).
		Handle(func(ctx context.Context, ic tools.InvocationContext, args tools.Args) (any, error) {
			host := args.String("host")
			if strings.HasPrefix(host, "-") {
				return nil, tools.Fail("invalid host", fmt.Errorf("host %q", host))
			}
			ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			argv := pingCommand(host, args.Int("count"))
			out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
			if ctx.Err() != nil {
				return map[string]any{"success": false, "message": fmt.Sprintf("Ping to %s timed out after 30 seconds", host)}, nil
			}
			if err != nil {
				return map[string]any{"success": false, "message": "Failed to ping " + host, "output": string(out)}, nil
			}
			return map[string]any{
				"success": true,
				"message": "Successfully pinged " + host,
				"output":  string(out),
				"summary": lastLine(string(out)),
			}, nil
		}).
		MustBuild()
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			return lines[i]
		}
	}
	return ""
}
