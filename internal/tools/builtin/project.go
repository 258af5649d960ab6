package builtin

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/webwright/webwright/internal/tools"
)

var (
	ignoredDirs = []string{"__pycache__", ".git", ".vscode", ".idea", "node_modules", "venv", ".env", "vendor"}
	ignoredExts = []string{".pyc", ".pyo", ".pyd", ".DS_Store"}
)

// ProjectFiles lists the files under dir relative to it, sorted, skipping
// dot files and the usual build and editor directories.
func ProjectFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != dir && (strings.HasPrefix(name, ".") || slices.Contains(ignoredDirs, name)) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || slices.ContainsFunc(ignoredExts, func(ext string) bool { return strings.HasSuffix(name, ext) }) {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	sort.Strings(files)
	return files, err
}

func getProjectFiles() *tools.Descriptor {
	return tools.New("get_project_files").
		Doc(`Lists the files of a project directory, ignoring dot files, .git, node_modules and similar.
:param project_directory: directory to list, relative to the working directory`).
		Optional("project_directory", tools.TypeString, "", ".").
		Handle(func(ctx context.Context, ic tools.InvocationContext, args tools.Args) (any, error) {
			dir, err := resolve(ic.WorkDir, args.String("project_directory"))
			if err != nil {
				return nil, err
			}
			info, err := os.Stat(dir)
			if err != nil || !info.IsDir() {
				return map[string]any{"success": false, "error": "Invalid project directory", "reason": "The directory '" + dir + "' does not exist."}, nil
			}
			files, err := ProjectFiles(dir)
			if err != nil {
				return nil, tools.Fail("listing failed", err)
			}
			return map[string]any{
				"success":           true,
				"directory_listing": "Directory listing:\n" + strings.Join(files, "\n"),
				"files":             files,
			}, nil
		}).
		MustBuild()
}

const runTimeout = 5 * time.Minute

func pythonInterpreter() string {
	if runtime.GOOS == "windows" {
		return "python"
	}
	return "python3"
}

// runScript runs argv in dir and reports stdout, stderr and the exit code.
// A non-zero exit is not an error.
func runScript(ctx context.Context, dir string, argv ...string) (stdout, stderr string, code int, err error) {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = os.Environ()
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	runErr := cmd.Run()
	if exit, ok := runErr.(*exec.ExitError); ok {
		return outBuf.String(), errBuf.String(), exit.ExitCode(), nil
	}
	if runErr != nil {
		return "", "", -1, runErr
	}
	return outBuf.String(), errBuf.String(), 0, nil
}

func runPythonFile() *tools.Descriptor {
	return tools.New("run_python_file").
		Doc(`Runs a Python file with the local interpreter and returns its output.
:param file_path: path of the script, relative to the working directory`).
		Param("file_path", tools.TypeString, "").
		Handle(func(ctx context.Context, ic tools.InvocationContext, args tools.Args) (any, error) {
			path, err := resolve(ic.WorkDir, args.String("file_path"))
			if err != nil {
				return nil, err
			}
			if _, err := os.Stat(path); err != nil {
				return nil, tools.Fail("file not found", err)
			}
			dir := ic.WorkDir
			if dir == "" {
				dir = filepath.Dir(path)
			}
			stdout, stderr, code, err := runScript(ctx, dir, pythonInterpreter(), path)
			if err != nil {
				return nil, tools.Fail("could not start the interpreter", err)
			}
			return map[string]any{
				"success":   code == 0,
				"stdout":    stdout,
				"stderr":    stderr,
				"exit_code": code,
			}, nil
		}).
		MustBuild()
}
