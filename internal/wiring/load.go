// Package wiring assembles the webwright runtime from the settings store:
// database, logger, embedder, conversation log, model adapter and tools.
package wiring

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/webwright/webwright/internal/config"
	"github.com/webwright/webwright/internal/core"
	"github.com/webwright/webwright/internal/embedding"
	"github.com/webwright/webwright/internal/health"
	"github.com/webwright/webwright/internal/llm"
	"github.com/webwright/webwright/internal/logging"
	"github.com/webwright/webwright/internal/memory"
	"github.com/webwright/webwright/internal/registry"
	"github.com/webwright/webwright/internal/store"
	"github.com/webwright/webwright/internal/tools"
	"github.com/webwright/webwright/internal/tools/builtin"
)

// Directory layout under the state home.
const (
	CollectionDir = "chromadb"
	DBFile        = "webwright.db"
	LogsDir       = "logs"
	DiffsDir      = "diffs"
	ToolsDir      = "tools"
)

// Options configures Open.
type Options struct {
	Home    string // empty means config.DefaultHome()
	WorkDir string // empty means the process working directory
	Verbose bool
	// Validate checks API keys; nil accepts any non-empty key.
	Validate config.Validator
	// AllowedTools limits the registry; empty falls back to ALLOWED_TOOLS.
	AllowedTools []string
}

// Runtime holds the long-lived collaborators every command shares.
type Runtime struct {
	Home    string
	WorkDir string

	DB         *store.DB
	SystemLogs *store.LogStore
	Logger     *zap.Logger
	Config     *config.Store
	Health     *health.Registry

	// AllowedTools, when non-empty, is the only set of tools exposed.
	AllowedTools []string

	closeLog func() error
}

// Open prepares the state directory, database, logger and settings.
func Open(ctx context.Context, opts Options) (*Runtime, error) {
	home := opts.Home
	if home == "" {
		home = config.DefaultHome()
	}
	workDir := opts.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		workDir = wd
	}

	db, err := store.Open(ctx, filepath.Join(home, CollectionDir, DBFile))
	if err != nil {
		return nil, fmt.Errorf("%w: opening collection: %v", memory.ErrStore, err)
	}
	sysLogs := store.NewLogStore(db)
	if err := sysLogs.Cleanup(); err != nil {
		db.Close()
		return nil, err
	}

	logger, closeLog, err := logging.New(logging.Options{
		Dir:     filepath.Join(home, LogsDir),
		Verbose: opts.Verbose,
		Sink:    sysLogs,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	cfg, err := config.Open(home, opts.Validate, logger.Named("config"))
	if err != nil {
		closeLog()
		db.Close()
		return nil, err
	}

	reg := health.NewRegistry()
	reg.Register("database", db)

	allowed := opts.AllowedTools
	if len(allowed) == 0 {
		allowed = cfg.AllowedTools()
	}

	return &Runtime{
		Home:       home,
		WorkDir:    workDir,
		DB:         db,
		SystemLogs: sysLogs,
		Logger:     logger,
		Config:     cfg,
		Health:     reg,
		closeLog:   closeLog,

		AllowedTools: allowed,
	}, nil
}

// Close releases the database and flushes the logger.
func (rt *Runtime) Close() error {
	return errors.Join(rt.DB.Close(), rt.closeLog())
}

// Memory opens the conversation log with the EMBEDDER strategy, falling
// back to the local hash embedder when the configured one cannot start.
func (rt *Runtime) Memory(ctx context.Context) (*memory.Log, error) {
	emb := LoadEmbedder(rt.embedderConfig(), rt.Logger.Named("embedding"))
	log, err := memory.Open(ctx, rt.DB, emb, rt.Logger.Named("memory"))
	if err != nil {
		return nil, err
	}
	rt.Health.Register("memory", log)
	return log, nil
}

func (rt *Runtime) embedderConfig() embedding.Config {
	cfg := embedding.Config{Provider: rt.Config.Value(config.KeyEmbedder)}
	switch cfg.Provider {
	case "openai":
		cfg.APIKey = rt.Config.Value(config.KeyOpenAI)
	case "genai":
		cfg.APIKey = rt.Config.Value(config.KeyGemini)
	case "ollama":
		cfg.BaseURL = rt.Config.Value(config.KeyOllamaHost)
	}
	return cfg
}

// Model returns an adapter for a provider chosen with
// Config.DetermineProvider. An empty selection model is replaced by the
// provider default.
func (rt *Runtime) Model(sel config.Selection, system string) (*llm.Adapter, error) {
	logger := rt.Logger.Named("llm")
	if sel.Model == "" {
		sel.Model = llm.DefaultModels[sel.Provider]
	}
	p, err := llm.NewProvider(sel.Provider, registry.Options{
		APIKey:  sel.APIKey,
		Model:   sel.Model,
		BaseURL: sel.BaseURL,
		Logger:  logger,
	})
	if err != nil {
		return nil, &config.Error{Key: config.KeyPreferred, Err: err}
	}
	adapter := llm.NewAdapter(p, llm.Config{Model: sel.Model, System: system}, logger)
	rt.Health.Register("llm", adapter)
	return adapter, nil
}

// Tools builds the registry from the builtins and <home>/tools, limited to
// AllowedTools when that is set.
func (rt *Runtime) Tools(ctx context.Context) (*tools.Registry, error) {
	logger := rt.Logger.Named("tools")
	reg, err := tools.Load(ctx, tools.LoaderOptions{
		Builtins: builtin.All(),
		Dir:      filepath.Join(rt.Home, ToolsDir),
		Logger:   logger,
	})
	if err != nil || len(rt.AllowedTools) == 0 {
		return reg, err
	}
	for _, name := range rt.AllowedTools {
		if _, ok := reg.Get(name); !ok {
			logger.Warn("allowed tool is not registered", zap.String("tool", name))
		}
	}
	return reg.Restrict(rt.AllowedTools), nil
}

// Invocation returns the context handed to tools. log and client may be nil
// for commands that run without them.
func (rt *Runtime) Invocation(log core.ConversationLog, client core.LLMClient) tools.InvocationContext {
	return tools.InvocationContext{
		Log:        log,
		LLM:        client,
		Settings:   rt.Config,
		Health:     rt.Health,
		SystemLogs: rt.SystemLogs,
		Logger:     rt.Logger.Named("tools"),
		WorkDir:    rt.WorkDir,
		DiffDir:    filepath.Join(rt.Home, DiffsDir),
	}
}

// LoadEmbedder builds the configured embedder. Any failure, including a
// panicking factory, falls back to the hash embedder.
func LoadEmbedder(cfg embedding.Config, logger *zap.Logger) core.Embedder {
	emb, err := safeInitEmbedder(cfg, logger)
	if err != nil {
		logger.Warn("embedder unavailable, using hash",
			zap.String("provider", cfg.Provider), zap.Error(err))
		emb, _ = embedding.NewEngine(embedding.Config{Provider: embedding.DefaultProvider}, logger)
	}
	return emb
}

func safeInitEmbedder(cfg embedding.Config, logger *zap.Logger) (e core.Embedder, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = initPanic{r}
		}
	}()
	return embedding.NewEngine(cfg, logger)
}

type initPanic struct {
	Reason any
}

func (e initPanic) Error() string {
	return fmt.Sprintf("panic during initialization: %v", e.Reason)
}
