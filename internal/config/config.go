// Package config is the webwright settings store: an INI file under the
// state directory with environment overrides for the API keys.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/ini.v1"
)

// Section is the INI section every key lives in.
const Section = "config"

// FileName is the settings file inside the state directory.
const FileName = "webwright_config"

// None disables a key.
const None = "NONE"

// Keys understood by the store.
const (
	KeyOpenAI          = "OPENAI_API_KEY"
	KeyAnthropic       = "ANTHROPIC_API_KEY"
	KeyGemini          = "GEMINI_API_KEY"
	KeySubstrate       = "SUBSTRATE_API_KEY"
	KeyGitHub          = "GITHUB_API_KEY"
	KeyPreferred       = "PREFERRED_API"
	KeyOpenAIModel     = "OPENAI_MODEL"
	KeyAnthropicModel  = "ANTHROPIC_MODEL"
	KeyGeminiModel     = "GEMINI_MODEL"
	KeyOllamaModel     = "OLLAMA_MODEL"
	KeyOllamaHost      = "OLLAMA_HOST"
	KeySSHKey          = "SSH_KEY"
	KeyUsername        = "USERNAME"
	KeyEmbedder        = "EMBEDDER"
	KeyPipelineAPI     = "PIPELINE_API"
	KeyMaxOutputRunes  = "MAX_TOOL_OUTPUT_RUNES"
	KeyAllowedTools    = "ALLOWED_TOOLS"
	EnvHome            = "WEBWRIGHT_HOME"
	envGitHubToken     = "GITHUB_TOKEN"
	defaultHomeDirName = ".webwright"
)

// envOverrides lists keys whose environment variable wins over the file.
var envOverrides = map[string]string{
	KeyOpenAI:    KeyOpenAI,
	KeyAnthropic: KeyAnthropic,
	KeyGemini:    KeyGemini,
	KeySubstrate: KeySubstrate,
}

// ErrNoProvider means no model provider has a usable key.
var ErrNoProvider = errors.New("no usable model provider configured")

// Error is a configuration failure tied to a key.
type Error struct {
	Key string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("config %s: %v", e.Key, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// Validator checks that an API key works for a provider.
type Validator func(ctx context.Context, provider, key string) error

// Store holds the parsed settings file.
type Store struct {
	home     string
	path     string
	validate Validator
	logger   *zap.Logger

	mu        sync.RWMutex
	file      *ini.File
	validated map[string]error // provider+"\x00"+key -> outcome
}

// DefaultHome returns $WEBWRIGHT_HOME or ~/.webwright.
func DefaultHome() string {
	if h := os.Getenv(EnvHome); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultHomeDirName
	}
	return filepath.Join(home, defaultHomeDirName)
}

// Open loads home/webwright_config, creating home when needed. A missing
// file is an empty configuration. validate may be nil, in which case any
// non-empty key is accepted.
func Open(home string, validate Validator, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if home == "" {
		home = DefaultHome()
	}
	if err := os.MkdirAll(home, 0o755); err != nil {
		return nil, &Error{Key: "home", Err: err}
	}
	path := filepath.Join(home, FileName)
	f, err := ini.LooseLoad(path)
	if err != nil {
		return nil, &Error{Key: FileName, Err: err}
	}
	return &Store{
		home:      home,
		path:      path,
		validate:  validate,
		logger:    logger,
		file:      f,
		validated: make(map[string]error),
	}, nil
}

// Home is the state directory.
func (s *Store) Home() string { return s.home }

// Path is the settings file.
func (s *Store) Path() string { return s.path }

// Get returns the effective value of key. API key environment variables win
// over the file; GITHUB_TOKEN is only consulted when the file has no GitHub key.
func (s *Store) Get(key string) string {
	if env, ok := envOverrides[key]; ok {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	s.mu.RLock()
	v := s.file.Section(Section).Key(key).String()
	s.mu.RUnlock()
	if v == "" && key == KeyGitHub {
		v = os.Getenv(envGitHubToken)
	}
	return v
}

// Value is Get with NONE mapped to the empty string.
func (s *Store) Value(key string) string {
	v := strings.TrimSpace(s.Get(key))
	if v == None {
		return ""
	}
	return v
}

// Set stores key and writes the file.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.file.Section(Section).Key(key).SetValue(value)
	return s.save()
}

// Keys lists the keys present in the file, in file order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.file.Section(Section).KeyStrings()
}

func (s *Store) save() error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return &Error{Key: FileName, Err: err}
	}
	if _, err := s.file.WriteTo(f); err != nil {
		f.Close()
		return &Error{Key: FileName, Err: err}
	}
	return f.Close()
}

// Reload re-reads the file and drops validation results.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.file.Reload(); err != nil {
		return &Error{Key: FileName, Err: err}
	}
	s.validated = make(map[string]error)
	return nil
}

// ClearCache forgets which keys were validated.
func (s *Store) ClearCache() {
	s.mu.Lock()
	s.validated = make(map[string]error)
	s.mu.Unlock()
}

// Username returns the configured user name, generating and persisting one
// on first use.
func (s *Store) Username() (string, error) {
	if u := s.Value(KeyUsername); u != "" {
		return u, nil
	}
	u := "user-" + strings.SplitN(uuid.NewString(), "-", 2)[0]
	if err := s.Set(KeyUsername, u); err != nil {
		return "", err
	}
	s.logger.Info("generated username", zap.String("username", u))
	return u, nil
}

// MaxOutputRunes returns MAX_TOOL_OUTPUT_RUNES, or def when unset or invalid.
func (s *Store) MaxOutputRunes(def int) int {
	v := s.Value(KeyMaxOutputRunes)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		s.logger.Warn("ignoring invalid setting", zap.String("key", KeyMaxOutputRunes), zap.String("value", v))
		return def
	}
	return n
}

// AllowedTools returns the comma separated ALLOWED_TOOLS list, or nil when
// every tool is allowed.
func (s *Store) AllowedTools() []string {
	return SplitList(s.Value(KeyAllowedTools))
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(v string) []string {
	var out []string
	for _, f := range strings.Split(v, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
