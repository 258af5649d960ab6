package tui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webwright/webwright/internal/config"
)

func plainChat(in string) (*Chat, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &Chat{In: strings.NewReader(in), Out: out, Username: "ada", Styles: DefaultStyles()}, out
}

func TestChat_Run(t *testing.T) {
	c, out := plainChat("hello\n\nfail\nexit\nnever\n")
	var seen []string
	err := c.Run(context.Background(), func(_ context.Context, line string) (string, error) {
		seen = append(seen, line)
		if line == "fail" {
			return "", errors.New("model unavailable")
		}
		return "hi **there**", nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"hello", "fail"}, seen)
	assert.Contains(t, out.String(), "hi **there**")
	assert.Contains(t, out.String(), "error: model unavailable")
	assert.Contains(t, out.String(), "ada>")
}

func TestChat_RenderAndEOF(t *testing.T) {
	c, out := plainChat("q")
	c.Render = strings.ToUpper
	require.NoError(t, c.Run(context.Background(), func(context.Context, string) (string, error) {
		return "answer", nil
	}))
	assert.Contains(t, out.String(), "ANSWER")
}

func TestOnboard(t *testing.T) {
	for _, env := range []string{config.KeyOpenAI, config.KeyAnthropic, config.KeyGemini} {
		t.Setenv(env, "")
	}
	cfg, err := config.Open(t.TempDir(), nil, nil)
	require.NoError(t, err)
	require.NoError(t, cfg.Set(config.KeyGemini, "already"))

	out := &bytes.Buffer{}
	require.NoError(t, Onboard(strings.NewReader("sk-test\n\n"), out, cfg))
	assert.Equal(t, "sk-test", cfg.Get(config.KeyOpenAI))
	assert.Equal(t, config.None, cfg.Get(config.KeyAnthropic))
	assert.Equal(t, "already", cfg.Get(config.KeyGemini))
	assert.NotContains(t, out.String(), "Gemini")

	out.Reset()
	require.NoError(t, Onboard(strings.NewReader(""), out, cfg))
	assert.Empty(t, out.String(), "nothing left to ask")
}
