package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/webwright/webwright/internal/core"
	"github.com/webwright/webwright/internal/health"
)

// Config tunes an Adapter.
type Config struct {
	Model  string
	System string // defaults to DefaultSystemPrompt
	Retry  RetryPolicy
}

// Adapter hides provider differences behind Decide and Complete.
type Adapter struct {
	provider core.Provider
	cfg      Config
	logger   *zap.Logger
	tracker  health.Tracker
	now      func() time.Time
}

// NewAdapter wraps provider. A zero Retry policy means DefaultRetry.
func NewAdapter(provider core.Provider, cfg Config, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.System == "" {
		cfg.System = DefaultSystemPrompt
	}
	if cfg.Retry == (RetryPolicy{}) {
		cfg.Retry = DefaultRetry
	}
	return &Adapter{
		provider: provider,
		cfg:      cfg,
		logger:   logger.With(zap.String("provider", provider.Name())),
		now:      time.Now,
	}
}

// Provider returns the name of the wrapped provider.
func (a *Adapter) Provider() string { return a.provider.Name() }

// Decide asks the model what to do next given the conversation slice and
// the tool catalogue. When every attempt fails it returns a failure record
// (Response.Error set) together with an error wrapping ErrProviderUnavailable
// or ErrProviderRejected.
func (a *Adapter) Decide(ctx context.Context, entries []core.Entry, catalogue []core.ToolDefinition) (*core.Response, error) {
	req := core.ChatRequest{
		Model:    a.cfg.Model,
		System:   a.cfg.System,
		Messages: Translate(entries),
		Tools:    catalogue,
	}
	a.logger.Debug("deciding",
		zap.Int("entries", len(entries)),
		zap.Int("messages", len(req.Messages)),
		zap.Int("tools", len(catalogue)))
	return a.chat(ctx, req)
}

// Complete answers a single self-contained prompt without tools.
func (a *Adapter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := a.chat(ctx, core.ChatRequest{
		Model:    a.cfg.Model,
		Messages: []core.Message{{Role: core.RoleUser, Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// CompleteJSON asks for a single JSON object reply.
func (a *Adapter) CompleteJSON(ctx context.Context, model, prompt string) (string, error) {
	if model == "" {
		model = a.cfg.Model
	}
	resp, err := a.chat(ctx, core.ChatRequest{
		Model:    model,
		Messages: []core.Message{{Role: core.RoleUser, Content: prompt}},
		JSON:     true,
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// CompleteWith is Complete with an explicit model.
func (a *Adapter) CompleteWith(ctx context.Context, model, prompt string) (string, error) {
	if model == "" {
		model = a.cfg.Model
	}
	resp, err := a.chat(ctx, core.ChatRequest{
		Model:    model,
		Messages: []core.Message{{Role: core.RoleUser, Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func (a *Adapter) chat(ctx context.Context, req core.ChatRequest) (*core.Response, error) {
	start := a.now()
	resp, err := retry(ctx, a.cfg.Retry, a.logger, func(ctx context.Context) (*core.Response, error) {
		return a.provider.Chat(ctx, req)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.tracker.RecordError(err)
		a.logger.Error("provider call failed", zap.Duration("elapsed", a.now().Sub(start)), zap.Error(err))
		failure := &core.Response{Timestamp: core.FormatTimestamp(a.now()), Error: err.Error()}
		if errors.Is(err, ErrProviderRejected) {
			return failure, err
		}
		return failure, fmt.Errorf("%w: %s: %w", ErrProviderUnavailable, a.provider.Name(), err)
	}
	a.tracker.RecordSuccess()
	if resp == nil {
		resp = &core.Response{}
	}
	if resp.Timestamp == "" {
		resp.Timestamp = core.FormatTimestamp(a.now())
	}
	a.logger.Debug("provider replied",
		zap.Duration("elapsed", a.now().Sub(start)),
		zap.Bool("text", resp.Content != nil),
		zap.Int("tool_calls", len(resp.ToolCalls)))
	return resp, nil
}

// HealthCheck reports the outcome of recent provider calls.
func (a *Adapter) HealthCheck() health.ComponentHealth {
	return a.tracker.Check("llm")
}
