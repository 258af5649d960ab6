package llm

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/webwright/webwright/internal/core"
	"github.com/webwright/webwright/internal/health"
	"github.com/webwright/webwright/internal/registry"
)

func testLogger(t *testing.T) *zap.Logger { return zaptest.NewLogger(t) }

var fastRetry = RetryPolicy{Initial: time.Millisecond, Max: 2 * time.Millisecond, Attempts: 3, AttemptTimeout: time.Second}

// scriptedProvider replays errs in order, then answers with resp.
type scriptedProvider struct {
	mu    sync.Mutex
	errs  []error
	resp  *core.Response
	calls int
	last  core.ChatRequest
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Chat(ctx context.Context, req core.ChatRequest) (*core.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.last = req
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		return nil, err
	}
	return p.resp, nil
}

func TestDecide_RetriesTransientErrors(t *testing.T) {
	p := &scriptedProvider{
		errs: []error{
			&APIError{Provider: "scripted", StatusCode: http.StatusTooManyRequests, Err: errors.New("slow down")},
			&APIError{Provider: "scripted", StatusCode: http.StatusBadGateway, Err: errors.New("bad gateway")},
		},
		resp: &core.Response{Content: core.StringPtr("hello")},
	}
	a := NewAdapter(p, Config{Model: "m1", Retry: fastRetry}, testLogger(t))

	resp, err := a.Decide(context.Background(), []core.Entry{{Type: core.EntryUserQuery, Content: "hi"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Text())
	assert.NotEmpty(t, resp.Timestamp)
	assert.Equal(t, 3, p.calls)
	assert.Equal(t, "m1", p.last.Model)
	assert.Equal(t, DefaultSystemPrompt, p.last.System)
	assert.Equal(t, health.StatusOK, a.HealthCheck().Status)
}

func TestDecide_ExhaustionReturnsFailureRecord(t *testing.T) {
	down := &APIError{Provider: "scripted", StatusCode: http.StatusServiceUnavailable, Err: errors.New("down")}
	p := &scriptedProvider{errs: []error{down, down, down, down}}
	a := NewAdapter(p, Config{Retry: fastRetry}, testLogger(t))

	resp, err := a.Decide(context.Background(), nil, nil)
	require.ErrorIs(t, err, ErrProviderUnavailable)
	require.NotNil(t, resp)
	assert.Nil(t, resp.Content)
	assert.Empty(t, resp.ToolCalls)
	assert.Contains(t, resp.Error, "down")
	assert.Equal(t, 3, p.calls)
	assert.Equal(t, health.StatusError, a.HealthCheck().Status)
}

func TestDecide_PermanentErrorIsNotRetried(t *testing.T) {
	p := &scriptedProvider{errs: []error{
		&APIError{Provider: "scripted", StatusCode: http.StatusUnauthorized, Err: errors.New("bad key")},
	}}
	a := NewAdapter(p, Config{Retry: fastRetry}, testLogger(t))

	resp, err := a.Decide(context.Background(), nil, nil)
	require.ErrorIs(t, err, ErrProviderRejected)
	assert.NotErrorIs(t, err, ErrProviderUnavailable)
	assert.Equal(t, 1, p.calls)
	assert.Contains(t, resp.Error, "bad key")
}

func TestDecide_CancelledContext(t *testing.T) {
	p := &scriptedProvider{errs: []error{context.Canceled}}
	a := NewAdapter(p, Config{Retry: fastRetry}, testLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := a.Decide(ctx, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, resp)
}

func TestDecide_PassesCatalogueAndTranslatedMessages(t *testing.T) {
	p := &scriptedProvider{resp: &core.Response{ToolCalls: []core.ToolCall{{ID: "c1", Name: "ping", Parameters: map[string]any{}}}}}
	a := NewAdapter(p, Config{System: "be brief", Retry: fastRetry}, testLogger(t))
	catalogue := []core.ToolDefinition{{Name: "ping", Description: "Ping a host."}}

	resp, err := a.Decide(context.Background(), []core.Entry{
		{Type: core.EntryUserQuery, Content: "ping it"},
	}, catalogue)
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "be brief", p.last.System)
	assert.Equal(t, catalogue, p.last.Tools)
	assert.Equal(t, []core.Message{{Role: core.RoleUser, Content: "ping it"}}, p.last.Messages)
}

func TestComplete(t *testing.T) {
	p := &scriptedProvider{resp: &core.Response{Content: core.StringPtr(`{"a":1}`)}}
	a := NewAdapter(p, Config{Model: "default", Retry: fastRetry}, testLogger(t))

	var client core.LLMClient = a
	out, err := client.Complete(context.Background(), "say hi")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, out)
	assert.Empty(t, p.last.Tools)

	_, err = a.CompleteJSON(context.Background(), "json-model", "give json")
	require.NoError(t, err)
	assert.True(t, p.last.JSON)
	assert.Equal(t, "json-model", p.last.Model)
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{context.DeadlineExceeded, true},
		{&APIError{StatusCode: 429, Err: errors.New("x")}, true},
		{&APIError{StatusCode: 500, Err: errors.New("x")}, true},
		{&APIError{StatusCode: 400, Err: errors.New("x")}, false},
		{&APIError{StatusCode: 404, Err: errors.New("x")}, false},
		{errors.New("dial tcp: connection refused"), true},
		{errors.New("invalid schema"), false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, IsTransient(c.err), "%v", c.err)
	}
}

func TestNewProvider_Unknown(t *testing.T) {
	_, err := NewProvider("nope", registry.Options{})
	assert.Error(t, err)
	_, err = NewProvider("openai", registry.Options{})
	assert.Error(t, err, "missing key")
	p, err := NewProvider("ollama", registry.Options{})
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())
}
