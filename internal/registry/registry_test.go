package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webwright/webwright/internal/core"
)

type stubProvider struct{ model string }

func (s stubProvider) Name() string { return "stub" }
func (s stubProvider) Chat(ctx context.Context, req core.ChatRequest) (*core.Response, error) {
	return &core.Response{Content: core.StringPtr(s.model)}, nil
}

func TestRegisterProvider(t *testing.T) {
	RegisterProvider("stub-test", func(opts Options) (core.Provider, error) {
		return stubProvider{model: opts.Model}, nil
	})

	f, ok := GetProviderFactory("stub-test")
	require.True(t, ok)
	p, err := f(Options{Model: "m1"})
	require.NoError(t, err)
	resp, err := p.Chat(context.Background(), core.ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "m1", resp.Text())
	assert.Contains(t, ProviderNames(), "stub-test")

	_, ok = GetProviderFactory("missing")
	assert.False(t, ok)
}
