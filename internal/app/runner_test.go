package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xthemadgenius/SolContracts/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	cfg := &config.Config{}
	cfg.Program.ID = solana.NewWallet().PublicKey().String()
	cfg.HTTP.Listen = "127.0.0.1:0"
	cfg.HTTP.CallerHeader = config.DefaultCallerHeader
	cfg.HTTP.ShutdownTimeout = 5 * time.Second
	cfg.Events.BufferSize = 16
	cfg.Log.Development = true
	cfg.Audit.File = filepath.Join(t.TempDir(), "audit", "events.csv")
	cfg.Audit.FlushInterval = time.Hour
	return cfg
}

func TestBuildServesAndJournals(t *testing.T) {
	cfg := testConfig(t)
	r := NewRunner(cfg, zap.NewNop())

	handler, err := r.Build(context.Background())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"buffer_size":16`)

	admin := solana.NewWallet().PublicKey()
	body := `{"stake_mint":"` + solana.NewWallet().PublicKey().String() +
		`","reward_mint":"` + solana.NewWallet().PublicKey().String() + `","reward_rate":5}`
	req := httptest.NewRequest(http.MethodPost, "/v1/pools", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(config.DefaultCallerHeader, admin.String())
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	r.Shutdown()

	data, err := os.ReadFile(cfg.Audit.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), "pool.initialized")
	assert.Contains(t, string(data), admin.String())
}

func TestRunStopsWithContext(t *testing.T) {
	cfg := testConfig(t)
	cfg.Audit.File = ""
	r := NewRunner(cfg, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop")
	}
}
