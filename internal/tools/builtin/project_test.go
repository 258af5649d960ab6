package builtin

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webwright/webwright/internal/tools"
)

func TestProjectFiles_SkipsNoise(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{"main.go", "pkg/a.go", ".env", "pkg/b.pyc", ".git/HEAD", "node_modules/x/index.js", "docs/.hidden"} {
		p := filepath.Join(dir, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, nil, 0o644))
	}

	files, err := ProjectFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go", "pkg/a.go"}, files)

	reg := newRegistry(t)
	m := invoke(t, reg, "get_project_files", nil, tools.InvocationContext{WorkDir: dir})
	assert.Equal(t, true, m["success"])
	assert.Equal(t, "Directory listing:\nmain.go\npkg/a.go", m["directory_listing"])

	m = invoke(t, reg, "get_project_files", map[string]any{"project_directory": "missing"}, tools.InvocationContext{WorkDir: dir})
	assert.Equal(t, false, m["success"])
}

func TestRunPythonFile(t *testing.T) {
	if _, err := exec.LookPath(pythonInterpreter()); err != nil {
		t.Skip("no python interpreter")
	}
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ok.py"), []byte("print('hi')\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.py"), []byte("import sys\nsys.exit(3)\n"), 0o644))
	reg := newRegistry(t)
	ic := tools.InvocationContext{WorkDir: dir}

	m := invoke(t, reg, "run_python_file", map[string]any{"file_path": "ok.py"}, ic)
	assert.Equal(t, true, m["success"])
	assert.Equal(t, "hi\n", m["stdout"])

	m = invoke(t, reg, "run_python_file", map[string]any{"file_path": "bad.py"}, ic)
	assert.Equal(t, false, m["success"])
	assert.EqualValues(t, 3, m["exit_code"])

	_, err := reg.Invoke(context.Background(), "run_python_file", map[string]any{"file_path": "nope.py"}, ic)
	assert.ErrorIs(t, err, tools.ErrToolExecution)
}
