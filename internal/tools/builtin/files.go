package builtin

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/webwright/webwright/internal/tools"
)

const lineNumberHeader = "# Format: =|00001|<tab>original line\n"

func catFile() *tools.Descriptor {
	return tools.New("cat_file").
		Doc(`Reads a file and returns its contents with line numbers.
:param file_path: path of the file, relative to the working directory
:param line_numbers: prefix each line with its number`).
		Param("file_path", tools.TypeString, "").
		Optional("line_numbers", tools.TypeBoolean, "", true).
		Handle(func(ctx context.Context, ic tools.InvocationContext, args tools.Args) (any, error) {
			path, err := resolve(ic.WorkDir, args.String("file_path"))
			if err != nil {
				return nil, err
			}
			data, err := os.ReadFile(path)
			if errors.Is(err, fs.ErrNotExist) {
				return nil, tools.Fail("file not found", fmt.Errorf("the file %q does not exist", args.String("file_path")))
			}
			if err != nil {
				return nil, tools.Fail("file reading failed", err)
			}
			contents := string(data)
			if args.Bool("line_numbers") {
				contents = numberLines(contents)
			}
			return map[string]any{"success": true, "contents": contents}, nil
		}).
		MustBuild()
}

func numberLines(s string) string {
	var b strings.Builder
	b.WriteString(lineNumberHeader)
	lines := strings.SplitAfter(s, "\n")
	for i, line := range lines {
		if line == "" && i == len(lines)-1 {
			break
		}
		fmt.Fprintf(&b, "=|%05d|\t%s", i+1, line)
	}
	return b.String()
}

func writeFile() *tools.Descriptor {
	return tools.New("write_file").
		Doc(`Writes content to a file, replacing what was there, and saves a unified
diff of the change so it can be reverted.
:param file_path: path of the file, relative to the working directory
:param content: the complete new file content`).
		Param("file_path", tools.TypeString, "").
		Param("content", tools.TypeString, "").
		Handle(func(ctx context.Context, ic tools.InvocationContext, args tools.Args) (any, error) {
			rel := args.String("file_path")
			path, err := resolve(ic.WorkDir, rel)
			if err != nil {
				return nil, err
			}
			before, err := os.ReadFile(path)
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return nil, tools.Fail("file reading failed", err)
			}
			after := args.String("content")

			result := map[string]any{"success": true, "file_path": rel}
			if ic.DiffDir != "" {
				diffPath, err := SaveDiff(ic.DiffDir, rel, string(before), after)
				if err != nil {
					ic.Logger.Warn("saving diff failed", zap.String("file", rel), zap.Error(err))
				} else if diffPath != "" {
					result["diff_path"] = diffPath
				}
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, tools.Fail("file writing failed", err)
			}
			if err := os.WriteFile(path, []byte(after), 0o644); err != nil {
				return nil, tools.Fail("file writing failed", err)
			}
			result["bytes_written"] = len(after)
			return result, nil
		}).
		MustBuild()
}

func reverseCodeDiff() *tools.Descriptor {
	return tools.New("reverse_code_diff_on_file").
		Doc(`Reverts the last saved edit of a file. The diff is found by hashing the
file's current content, applied in reverse, and the reversal is saved as a new diff.
:param file_path: path of the file, relative to the working directory`).
		Param("file_path", tools.TypeString, "").
		Handle(func(ctx context.Context, ic tools.InvocationContext, args tools.Args) (any, error) {
			rel := args.String("file_path")
			path, err := resolve(ic.WorkDir, rel)
			if err != nil {
				return nil, err
			}
			if ic.DiffDir == "" {
				return map[string]any{"success": false, "error": "no diff directory configured"}, nil
			}
			current, err := os.ReadFile(path)
			if err != nil {
				return nil, tools.Fail("file reading failed", err)
			}
			diffPath, err := FindDiff(ic.DiffDir, rel, string(current))
			if err != nil {
				return nil, tools.Fail("diff lookup failed", err)
			}
			if diffPath == "" {
				return map[string]any{"success": false, "error": "No matching diff file for " + rel + " found."}, nil
			}
			diff, err := os.ReadFile(diffPath)
			if err != nil {
				return nil, tools.Fail("diff reading failed", err)
			}
			restored, err := ReverseDiff(string(diff), string(current))
			if err != nil {
				return nil, tools.Fail("diff does not apply", err)
			}
			if err := os.WriteFile(path, []byte(restored), 0o644); err != nil {
				return nil, tools.Fail("file writing failed", err)
			}

			result := map[string]any{"success": true, "file_path": rel, "reversed_diff": diffPath}
			newDiff, err := SaveDiff(ic.DiffDir, rel, string(current), restored)
			if err != nil {
				ic.Logger.Warn("saving diff failed", zap.String("file", rel), zap.Error(err))
			} else if newDiff != "" {
				result["diff_path"] = newDiff
			}
			ic.Logger.Info("edit reverted", zap.String("file", rel), zap.String("diff", diffPath))
			return result, nil
		}).
		MustBuild()
}
