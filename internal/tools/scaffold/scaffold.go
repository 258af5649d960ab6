// Package scaffold creates the skeleton of an external tool: a Go program
// speaking the stdin/stdout JSON contract and the tool.yaml that registers it.
package scaffold

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"text/template"

	"github.com/webwright/webwright/internal/tools"
)

//go:embed templates/*.tmpl
var templates embed.FS

var validName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ErrExists is returned when the tool directory already holds a program.
var ErrExists = errors.New("tool already exists")

// New writes <dir>/<name>/main.go and its manifest. Existing files are never
// overwritten. The manifest runs the program with `go run .`.
func New(dir, name, description string) (string, error) {
	if !validName.MatchString(name) {
		return "", fmt.Errorf("%w: name %q must be lower_snake_case", tools.ErrInvalidDescriptor, name)
	}
	toolDir := filepath.Join(dir, name)
	mainPath := filepath.Join(toolDir, "main.go")
	if _, err := os.Stat(mainPath); err == nil {
		return "", fmt.Errorf("%w: %s", ErrExists, mainPath)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	if err := os.MkdirAll(toolDir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", toolDir, err)
	}
	for file, tmplName := range map[string]string{"main.go": "main.go.tmpl", "go.mod": "go.mod.tmpl"} {
		if err := render(filepath.Join(toolDir, file), tmplName, name); err != nil {
			return "", err
		}
	}

	if description == "" {
		description = "Describe what " + name + " does."
	}
	return tools.WriteManifest(dir, tools.Manifest{
		Name:        name,
		Description: description,
		Command:     []string{"go", "run", "."},
		Params: []tools.ManifestParam{
			{Name: "input", Type: "string", Description: "the text to process"},
		},
		Timeout: "2m",
	})
}

func render(path, tmplName, name string) error {
	tmpl, err := template.ParseFS(templates, "templates/"+tmplName)
	if err != nil {
		return fmt.Errorf("parse template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ Name string }{name}); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
