// Package builtin provides the tools compiled into webwright.
package builtin

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/webwright/webwright/internal/tools"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// All returns fresh descriptors for every builtin tool.
func All() []*tools.Descriptor {
	return []*tools.Descriptor{
		catFile(),
		writeFile(),
		reverseCodeDiff(),
		getProjectFiles(),
		runPythonFile(),
		search(),
		chat(),
		askLLM(),
		gitStatus(),
		gitDiff(),
		ping(),
		getAPIModelConfig(),
		systemStatus(),
		readLogs(),
	}
}

var errOutsideWorkDir = errors.New("path is outside the working directory")

// resolve joins path onto workDir and refuses paths that escape it.
func resolve(workDir, path string) (string, error) {
	if workDir == "" {
		workDir = "."
	}
	p := path
	if !filepath.IsAbs(p) {
		p = filepath.Join(workDir, filepath.Clean(path))
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	base, err := filepath.Abs(workDir)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", tools.Fail("permission denied", errOutsideWorkDir)
	}
	return abs, nil
}
