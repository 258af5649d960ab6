package builtin

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/webwright/webwright/internal/tools"
)

func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(errb.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", tools.Fail(fmt.Sprintf("git %s failed", args[0]), fmt.Errorf("%s", msg))
	}
	return out.String(), nil
}

func gitStatus() *tools.Descriptor {
	return tools.New("git_status").
		Doc("Retrieves the status of the git repository in the working directory, with its remote URL.").
		Handle(func(ctx context.Context, ic tools.InvocationContext, args tools.Args) (any, error) {
			status, err := runGit(ctx, ic.WorkDir, "status")
			if err != nil {
				return nil, err
			}
			result := map[string]any{"success": true, "git_status": status}
			remote, err := runGit(ctx, ic.WorkDir, "remote", "get-url", "origin")
			if err != nil {
				remote = "No remote URL"
			}
			remote = strings.TrimSpace(remote)
			result["remote_url"] = remote
			if org, repo := RepoDetails(remote); repo != "" {
				result["repository_name"] = repo
				result["github_repo_url"] = "https://github.com/" + org + "/" + repo
			}
			return result, nil
		}).
		MustBuild()
}

func gitDiff() *tools.Descriptor {
	return tools.New("git_diff").
		Doc(`Runs git diff in the working directory and returns the output.
:param staged: show staged changes instead of unstaged ones`).
		Optional("staged", tools.TypeBoolean, "", false).
		Handle(func(ctx context.Context, ic tools.InvocationContext, args tools.Args) (any, error) {
			gitArgs := []string{"diff"}
			if args.Bool("staged") {
				gitArgs = append(gitArgs, "--cached")
			}
			diff, err := runGit(ctx, ic.WorkDir, gitArgs...)
			if err != nil {
				return nil, err
			}
			return map[string]any{"success": true, "diff": diff}, nil
		}).
		MustBuild()
}

// RepoDetails extracts owner and repository from a GitHub remote URL.
func RepoDetails(remote string) (org, repo string) {
	var rest string
	switch {
	case strings.HasPrefix(remote, "https://github.com/"):
		rest = strings.TrimPrefix(remote, "https://github.com/")
	case strings.HasPrefix(remote, "git@github.com:"):
		rest = strings.TrimPrefix(remote, "git@github.com:")
	default:
		return "", ""
	}
	rest = strings.TrimSuffix(strings.TrimSpace(rest), ".git")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], parts[1]
}
