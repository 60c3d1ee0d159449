package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewWritesJSONFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.File = filepath.Join(t.TempDir(), "presaled.log")

	l := New(cfg)
	l.Info("ledger started", zap.String("program", "abc"))
	_ = l.Sync()

	raw, err := os.ReadFile(cfg.File)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"msg":"ledger started"`)
	assert.Contains(t, string(raw), `"level":"INFO"`)
	assert.Contains(t, string(raw), `"program":"abc"`)
}

func TestDebugOnlyInDevelopment(t *testing.T) {
	cfg := Config{File: filepath.Join(t.TempDir(), "dev.log")}

	l := New(cfg)
	l.Debug("hidden")
	_ = l.Sync()
	raw, _ := os.ReadFile(cfg.File)
	assert.NotContains(t, string(raw), "hidden")

	cfg.Development = true
	l = New(cfg)
	l.Debug("shown")
	_ = l.Sync()
	raw, err := os.ReadFile(cfg.File)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "shown")
}

func TestFieldHelpers(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	base := zap.New(core)

	WithCaller(WithComponent(WithOperation(base, "contribute"), "service"), "alice").Info("done")
	WithOperation(base, "contribute").Info("again")

	entries := logs.All()
	require.Len(t, entries, 2)
	first := entries[0].ContextMap()
	assert.Equal(t, "contribute", first["operation"])
	assert.Equal(t, "service", first["component"])
	assert.Equal(t, "alice", first["caller"])
	assert.NotEqual(t, first["correlation_id"], entries[1].ContextMap()["correlation_id"])

	end := Track(base, "claim")
	end()
	assert.Equal(t, 4, logs.Len())
}
