package wiring

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/webwright/webwright/internal/config"
	"github.com/webwright/webwright/internal/core"
	"github.com/webwright/webwright/internal/embedding"
	"github.com/webwright/webwright/internal/tools"
)

func openRuntime(t *testing.T) *Runtime {
	t.Helper()
	for _, env := range []string{config.KeyOpenAI, config.KeyAnthropic, config.KeyGemini, config.KeySubstrate} {
		t.Setenv(env, "")
	}
	rt, err := Open(context.Background(), Options{Home: t.TempDir(), WorkDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { rt.Close() })
	return rt
}

func TestOpen_LaysOutHome(t *testing.T) {
	rt := openRuntime(t)
	for _, p := range []string{
		filepath.Join(rt.Home, CollectionDir, DBFile),
		filepath.Join(rt.Home, LogsDir, "webwright.log"),
	} {
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}
	assert.Equal(t, "ok", rt.Health.Check().Components["database"].Status)
}

func TestRuntime_MemoryAndTools(t *testing.T) {
	rt := openRuntime(t)
	ctx := context.Background()

	log, err := rt.Memory(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hash", log.Embedder().Name())
	_, err = log.Append(ctx, core.Entry{Type: core.EntryUserQuery, Content: "hello"})
	require.NoError(t, err)

	reg, err := rt.Tools(ctx)
	require.NoError(t, err)
	assert.Contains(t, reg.Names(), "cat_file")
	assert.Contains(t, reg.Names(), "system_status")

	out, err := reg.Invoke(ctx, "system_status", nil, rt.Invocation(log, nil))
	require.NoError(t, err)
	assert.Contains(t, out, "memory")
}

func TestRuntime_ToolsHonourAllowList(t *testing.T) {
	rt := openRuntime(t)
	ctx := context.Background()
	require.NoError(t, rt.Config.Set(config.KeyAllowedTools, "cat_file, git_status, nonexistent"))

	again, err := Open(ctx, Options{Home: rt.Home, WorkDir: rt.WorkDir})
	require.NoError(t, err)
	defer again.Close()

	reg, err := again.Tools(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cat_file", "git_status"}, reg.Names())
	var names []string
	for _, def := range reg.Catalogue() {
		names = append(names, def.Name)
	}
	assert.NotContains(t, names, "write_file")

	_, err = reg.Invoke(ctx, "write_file", map[string]any{"file_path": "x", "content": "y"}, again.Invocation(nil, nil))
	assert.ErrorIs(t, err, tools.ErrToolNotFound)

	flagged, err := Open(ctx, Options{Home: rt.Home, WorkDir: rt.WorkDir, AllowedTools: []string{"ping"}})
	require.NoError(t, err)
	defer flagged.Close()
	reg, err = flagged.Tools(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ping"}, reg.Names())
}

func TestRuntime_ModelOllama(t *testing.T) {
	rt := openRuntime(t)
	_, err := rt.Config.DetermineProvider(context.Background())
	assert.ErrorIs(t, err, config.ErrNoProvider)

	require.NoError(t, rt.Config.Set(config.KeyOllamaHost, "http://127.0.0.1:11434"))
	sel, err := rt.Config.DetermineProvider(context.Background())
	require.NoError(t, err)

	adapter, err := rt.Model(sel, "system")
	require.NoError(t, err)
	assert.Equal(t, "ollama", adapter.Provider())
	assert.Contains(t, rt.Health.Names(), "llm")

	_, err = rt.Model(config.Selection{Provider: "nonexistent"}, "system")
	var cfgErr *config.Error
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLoadEmbedder_FallsBackToHash(t *testing.T) {
	logger := zaptest.NewLogger(t)
	emb := LoadEmbedder(embedding.Config{Provider: "nonexistent"}, logger)
	assert.Equal(t, "hash", emb.Name())

	emb = LoadEmbedder(embedding.Config{Provider: "openai"}, logger)
	assert.Equal(t, "hash", emb.Name(), "openai without a key cannot start")
}
