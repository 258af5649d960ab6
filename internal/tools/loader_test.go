package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_BuiltinsAndManifests(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "mirror", ManifestName), `
name: mirror
description: Returns its arguments.
command: ["sh", "-c", "cat"]
params:
  - name: message
    type: string
    description: what to mirror
  - name: times
    type: integer
    default: 2
`)
	writeFile(t, filepath.Join(dir, "broken", ManifestName), `
name: broken
command: ["sh"]
params:
  - name: x
    type: decimal
`)
	writeFile(t, filepath.Join(dir, "skipped", ManifestName), `
name: skipped
command: ["true"]
`)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "no_manifest"), 0o755))

	reg, err := Load(context.Background(), LoaderOptions{
		Builtins: []*Descriptor{echoTool()},
		Dir:      dir,
		Exclude:  []string{"skipped"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"echo", "mirror"}, reg.Names())

	d, ok := reg.Get("mirror")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "mirror", ManifestName), d.Source)
	assert.Equal(t, []string{"message"}, d.Schema().Required)

	out, err := reg.Invoke(context.Background(), "mirror", map[string]any{"message": "hi"}, InvocationContext{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"hi","times":2}`, out)
}

func TestLoad_MissingDirIsEmpty(t *testing.T) {
	reg, err := Load(context.Background(), LoaderOptions{Dir: filepath.Join(t.TempDir(), "absent")})
	require.NoError(t, err)
	assert.Zero(t, reg.Len())
}

func TestExternal_FailureWithoutJSON(t *testing.T) {
	m := Manifest{Name: "fails", Command: []string{"sh", "-c", "echo oops >&2; exit 3"}}
	d, err := m.Descriptor(t.TempDir(), "test")
	require.NoError(t, err)

	reg := NewRegistry(nil)
	reg.MustRegister(d)
	_, err = reg.Invoke(context.Background(), "fails", nil, InvocationContext{})
	require.ErrorIs(t, err, ErrToolExecution)
	assert.JSONEq(t, `{"success":false,"error":"oops","reason":"exit code 3"}`, ErrorResult(err))
}

func TestWriteManifest_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteManifest(dir, Manifest{
		Name:        "greet",
		Description: "Say hello.",
		Command:     []string{"./greet"},
		Params:      []ManifestParam{{Name: "name", Type: "string"}},
		Timeout:     "10s",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "greet", ManifestName), path)

	d, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "greet", d.Name)
	assert.Equal(t, "Say hello.", d.Description)

	_, err = WriteManifest(dir, Manifest{Name: "nocmd"})
	assert.ErrorIs(t, err, ErrInvalidDescriptor)
}

func TestValidOutput(t *testing.T) {
	assert.True(t, ValidOutput(`{"error":"x"}`))
	assert.True(t, ValidOutput(" [1] \n"))
	assert.False(t, ValidOutput(""))
	assert.False(t, ValidOutput("plain text"))
}

func TestManifest_DirOverridesWorkingDirectory(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "where.sh"), `printf '{"dir":"%s"}' "$(pwd -P)"`)
	resolved, err := filepath.EvalSymlinks(src)
	require.NoError(t, err)

	path, err := WriteManifest(t.TempDir(), Manifest{
		Name:    "where",
		Command: []string{"sh", "where.sh"},
		Dir:     src,
	})
	require.NoError(t, err)

	m, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, src, m.Dir)

	d, err := LoadManifest(path)
	require.NoError(t, err)
	reg := NewRegistry(nil)
	reg.MustRegister(d)
	out, err := reg.Invoke(context.Background(), "where", nil, InvocationContext{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"dir":"`+resolved+`"}`, out)
}
