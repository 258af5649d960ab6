package tools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ManifestName is the file describing an external tool in its directory.
const ManifestName = "tool.yaml"

// Manifest describes an external binary tool.
type Manifest struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Command     []string          `yaml:"command"`
	Params      []ManifestParam   `yaml:"params"`
	Env         map[string]string `yaml:"env,omitempty"`
	Timeout     string            `yaml:"timeout,omitempty"`
	// Dir is the working directory of the command, relative to the
	// manifest. Empty means the manifest's own directory.
	Dir string `yaml:"dir,omitempty"`
}

// ManifestParam is one declared parameter of an external tool.
type ManifestParam struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Description string `yaml:"description,omitempty"`
	Default     any    `yaml:"default,omitempty"`
}

// LoaderOptions configures Load.
type LoaderOptions struct {
	// Builtins are registered first, in order.
	Builtins []*Descriptor
	// Dir holds one sub-directory per external tool. Empty skips discovery.
	Dir string
	// Exclude lists tool directory names to skip.
	Exclude []string
	Logger  *zap.Logger
}

// Load builds a registry from the builtins and the plug-in directory.
// A manifest that fails to load is logged and skipped.
func Load(ctx context.Context, opts LoaderOptions) (*Registry, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := NewRegistry(logger)
	for _, d := range opts.Builtins {
		if err := reg.Register(d); err != nil {
			return nil, err
		}
	}
	if opts.Dir == "" {
		return reg, nil
	}

	skip := make(map[string]bool, len(opts.Exclude))
	for _, n := range opts.Exclude {
		skip[n] = true
	}
	entries, err := os.ReadDir(opts.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug("plug-in directory missing", zap.String("dir", opts.Dir))
		return reg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading plug-in directory: %w", err)
	}
	for _, e := range entries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !e.IsDir() || skip[e.Name()] {
			continue
		}
		path := filepath.Join(opts.Dir, e.Name(), ManifestName)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		d, err := LoadManifest(path)
		if err != nil {
			logger.Warn("skipping tool manifest", zap.String("path", path), zap.Error(err))
			continue
		}
		if err := reg.Register(d); err != nil {
			logger.Warn("skipping tool manifest", zap.String("path", path), zap.Error(err))
			continue
		}
		logger.Debug("external tool loaded", zap.String("tool", d.Name), zap.String("path", path))
	}
	return reg, nil
}

// LoadManifest reads one manifest and builds its descriptor. Relative
// command paths resolve against the manifest's directory.
func LoadManifest(path string) (*Descriptor, error) {
	m, err := ReadManifest(path)
	if err != nil {
		return nil, err
	}
	return m.Descriptor(filepath.Dir(path), path)
}

// ReadManifest parses a manifest file without building the tool.
func ReadManifest(path string) (Manifest, error) {
	var m Manifest
	raw, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return m, fmt.Errorf("parsing %s: %w", path, err)
	}
	return m, nil
}

// Descriptor converts the manifest to a tool descriptor running in dir.
func (m Manifest) Descriptor(dir, source string) (*Descriptor, error) {
	if len(m.Command) == 0 {
		return nil, fmt.Errorf("%w %s: no command", ErrInvalidDescriptor, m.Name)
	}
	if m.Dir != "" {
		if filepath.IsAbs(m.Dir) {
			dir = m.Dir
		} else {
			dir = filepath.Join(dir, m.Dir)
		}
	}
	var timeout time.Duration
	if m.Timeout != "" {
		t, err := time.ParseDuration(m.Timeout)
		if err != nil {
			return nil, fmt.Errorf("%w %s: timeout: %v", ErrInvalidDescriptor, m.Name, err)
		}
		timeout = t
	}
	argv := append([]string(nil), m.Command...)
	if !filepath.IsAbs(argv[0]) && filepath.Base(argv[0]) != argv[0] {
		argv[0] = filepath.Join(dir, filepath.Clean(argv[0]))
	}

	b := New(m.Name).Doc(m.Description).Source(source)
	for _, p := range m.Params {
		t, err := ParseSemanticType(p.Type)
		if err != nil {
			return nil, fmt.Errorf("%s: parameter %q: %w", m.Name, p.Name, err)
		}
		if p.Default != nil {
			b.Optional(p.Name, t, p.Description, p.Default)
		} else {
			b.Param(p.Name, t, p.Description)
		}
	}
	return b.Handle(externalHandler(m.Name, argv, dir, m.Env, timeout)).Build()
}

// WriteManifest saves m as <dir>/<m.Name>/tool.yaml and returns the path.
func WriteManifest(dir string, m Manifest) (string, error) {
	if _, err := m.Descriptor(dir, ""); err != nil {
		return "", err
	}
	toolDir := filepath.Join(dir, m.Name)
	if err := os.MkdirAll(toolDir, 0o755); err != nil {
		return "", err
	}
	raw, err := yaml.Marshal(m)
	if err != nil {
		return "", err
	}
	path := filepath.Join(toolDir, ManifestName)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
