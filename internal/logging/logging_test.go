package logging

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type record struct{ level, component, message string }

type memSink struct {
	mu      sync.Mutex
	records []record
	err     error
}

func (m *memSink) Log(level, component, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record{level, component, message})
	return m.err
}

func TestNew_WritesFileAndMirrorsWarnings(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	sink := &memSink{}
	logger, closeFn, err := New(Options{Dir: dir, Sink: sink})
	require.NoError(t, err)

	tools := logger.Named("tools")
	tools.Debug("hidden")
	tools.Info("registered", zap.Int("count", 3))
	tools.Warn("tool failed", zap.String("tool", "cat_file"))
	logger.Error("plain")
	require.NoError(t, closeFn())

	raw, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"msg":"registered"`)
	assert.NotContains(t, string(raw), "hidden")

	assert.Equal(t, []record{
		{"warn", "tools", `tool failed {"tool":"cat_file"}`},
		{"error", "webwright", "plain"},
	}, sink.records)
}

func TestNew_VerboseEnablesDebug(t *testing.T) {
	dir := t.TempDir()
	logger, closeFn, err := New(Options{Dir: dir, Verbose: true})
	require.NoError(t, err)
	logger.Debug("details")
	require.NoError(t, closeFn())

	raw, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "details")
}

func TestSinkCore_WithFieldsAndErrors(t *testing.T) {
	sink := &memSink{err: errors.New("disk full")}
	core := NewSinkCore(sink, zapcore.WarnLevel).With([]zapcore.Field{zap.String("run", "r1")})
	logger := zap.New(core).Named("pipeline")

	logger.Info("ignored")
	logger.Warn("slow node", zap.String("node", "a"))

	require.Len(t, sink.records, 1)
	assert.Equal(t, "pipeline", sink.records[0].component)
	assert.Equal(t, `slow node {"node":"a","run":"r1"}`, sink.records[0].message)
}
