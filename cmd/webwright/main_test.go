package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webwright/webwright/internal/core"
	"github.com/webwright/webwright/internal/wiring"
)

// execute runs the root command against a temporary home.
func execute(t *testing.T, home string, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(append([]string{"--home", home}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_ConfigRoundTrip(t *testing.T) {
	home := t.TempDir()
	_, err := execute(t, home, "config", "set", "ollama_model", "mistral")
	require.NoError(t, err)

	out, err := execute(t, home, "config", "get", "OLLAMA_MODEL")
	require.NoError(t, err)
	assert.Equal(t, "OLLAMA_MODEL = mistral\n", out)
}

func TestCLI_ToolsNewAndList(t *testing.T) {
	home := t.TempDir()
	out, err := execute(t, home, "tools", "new", "greet", "-d", "Greets someone.")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(home, "tools", "greet", "tool.yaml"))

	out, err = execute(t, home, "tools", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "greet")
	assert.Contains(t, out, "cat_file")

	_, err = execute(t, home, "tools", "new", "greet")
	assert.Error(t, err, "existing tools are not overwritten")
}

func TestCLI_ToolsRegister(t *testing.T) {
	home := t.TempDir()
	src := t.TempDir()
	manifest := "name: shout\ndescription: Upper-cases text.\ncommand: [\"./shout.sh\"]\nparams:\n  - name: text\n    type: string\n"
	require.NoError(t, os.WriteFile(filepath.Join(src, "tool.yaml"), []byte(manifest), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "shout.sh"), []byte("#!/bin/sh\ntr a-z A-Z\n"), 0o755))

	_, err := execute(t, home, "tools", "register", src)
	require.NoError(t, err)
	raw, err := os.ReadFile(filepath.Join(home, "tools", "shout", "tool.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "dir: "+src)

	out, err := execute(t, home, "tools", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "shout")
}

func TestCLI_PipelineWithoutProvider(t *testing.T) {
	for _, env := range []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY"} {
		t.Setenv(env, "")
	}
	home := t.TempDir()
	file := filepath.Join(t.TempDir(), "p.yaml")
	require.NoError(t, os.WriteFile(file, []byte("nodes:\n  - name: a\n    template: hi\n"), 0o644))

	_, err := execute(t, home, "pipeline", "run", file)
	assert.Error(t, err)
}

func TestCLI_LogRecentAndRange(t *testing.T) {
	for _, env := range []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY"} {
		t.Setenv(env, "")
	}
	home := t.TempDir()
	ctx := context.Background()
	rt, err := wiring.Open(ctx, wiring.Options{Home: home, WorkDir: t.TempDir()})
	require.NoError(t, err)
	log, err := rt.Memory(ctx)
	require.NoError(t, err)
	for _, e := range []core.Entry{
		{Timestamp: "2024-01-01T09:00:00Z", Type: core.EntryUserQuery, Content: "morning"},
		{Timestamp: "2024-01-01T18:30:00Z", Type: core.EntryLLMResponse, Content: "evening"},
		{Timestamp: "2024-01-02T08:00:00Z", Type: core.EntryUserQuery, Content: "next day"},
	} {
		_, err := log.Append(ctx, e)
		require.NoError(t, err)
	}
	require.NoError(t, rt.Close())

	out, err := execute(t, home, "log", "recent")
	require.NoError(t, err)
	assert.Contains(t, out, "2024-01-01T09:00:00.000000Z [user_query] morning")
	assert.Contains(t, out, "showing 3 of 3 entries (embedder ")

	out, err = execute(t, home, "log", "range", "2024-01-01", "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01T09:00:00.000000Z [user_query] morning\n"+
		"2024-01-01T18:30:00.000000Z [llm_response] evening\n", out)
}
