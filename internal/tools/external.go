package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultExternalTimeout bounds one run of an external tool binary.
const DefaultExternalTimeout = 5 * time.Minute

// RunExternal runs argv in dir with argsJSON on stdin; returns stdout, stderr and exit code.
func RunExternal(ctx context.Context, argv []string, dir, argsJSON string, env map[string]string, timeout time.Duration) (stdout, stderr string, exitCode int, err error) {
	if len(argv) == 0 {
		return "", "", -1, errors.New("empty command")
	}
	if timeout <= 0 {
		timeout = DefaultExternalTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Stdin = strings.NewReader(argsJSON)

	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	runErr := cmd.Run()
	stdout = outBuf.String()
	stderr = errBuf.String()
	if runErr != nil {
		var exit *exec.ExitError
		if errors.As(runErr, &exit) {
			exitCode = exit.ExitCode()
		} else {
			return stdout, stderr, -1, runErr
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return stdout, stderr, exitCode, ctxErr
	}
	return stdout, stderr, exitCode, nil
}

// ValidOutput is true if stdout is a JSON document. Non-zero exits are
// accepted when they report through JSON (e.g. {"error": "..."}).
func ValidOutput(stdout string) bool {
	trimmed := bytes.TrimSpace([]byte(stdout))
	if len(trimmed) == 0 {
		return false
	}
	var v interface{}
	return json.Unmarshal(trimmed, &v) == nil
}

// externalHandler adapts a binary to the Handler signature. The decoded
// JSON output is the tool result.
func externalHandler(name string, argv []string, dir string, env map[string]string, timeout time.Duration) Handler {
	return func(ctx context.Context, ic InvocationContext, args Args) (any, error) {
		in, err := json.Marshal(args)
		if err != nil {
			return nil, err
		}
		stdout, stderr, code, err := RunExternal(ctx, argv, dir, string(in), env, timeout)
		if err != nil {
			return nil, Fail("external tool did not complete", err)
		}
		if !ValidOutput(stdout) {
			msg := strings.TrimSpace(stderr)
			if msg == "" {
				msg = "no JSON output"
			}
			return nil, Fail(fmt.Sprintf("exit code %d", code), errors.New(msg))
		}
		var out any
		if err := json.Unmarshal([]byte(stdout), &out); err != nil {
			return nil, err
		}
		ic.Logger.Debug("external tool finished", zap.String("tool", name), zap.Int("exit_code", code))
		return out, nil
	}
}
