package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xthemadgenius/SolContracts/internal/metrics"
	"github.com/xthemadgenius/SolContracts/internal/service"
	"github.com/xthemadgenius/SolContracts/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type client struct {
	t      *testing.T
	router *gin.Engine
}

func newClient(t *testing.T, opts Options) *client {
	t.Helper()
	m := metrics.NewCollector()
	svc := service.New(service.Deps{
		ProgramID: solana.NewWallet().PublicKey(),
		Store:     storage.NewMemoryStore(),
		Metrics:   m,
		Logger:    zap.NewNop(),
		Now:       func() time.Time { return time.Unix(1_500, 0) },
	})
	return &client{t: t, router: NewHandler(svc, m, zap.NewNop(), opts).Router()}
}

func (c *client) do(method, path string, caller *solana.PublicKey, body interface{}) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if caller != nil {
		req.Header.Set("X-Caller-Identity", caller.String())
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func presaleBody(mint solana.PublicKey) map[string]interface{} {
	return map[string]interface{}{
		"mint":              mint.String(),
		"public_sale_price": 1_000_000,
		"max_tokens":        1_000,
		"max_sol":           1_000_000_000_000,
		"presale_start":     1_000,
		"presale_end":       2_000,
		"public_sale_start": 3_000,
		"cliff_period":      500,
		"vesting_period":    1_000,
		"vesting_interval":  100,
	}
}

func TestHealthAndMetrics(t *testing.T) {
	c := newClient(t, Options{})

	rec := c.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = c.do(http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestCallerHeaderRequired(t *testing.T) {
	c := newClient(t, Options{})
	mint := solana.NewWallet().PublicKey()

	rec := c.do(http.MethodPost, "/v1/presales", nil, presaleBody(mint))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/presales", nil)
	req.Header.Set("X-Caller-Identity", "not-a-key")
	rec = httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPresaleFlow(t *testing.T) {
	c := newClient(t, Options{Faucet: true})
	admin := solana.NewWallet().PublicKey()
	buyer := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	rec := c.do(http.MethodPost, "/v1/presales", &admin, presaleBody(mint))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	assert.Equal(t, float64(15), created["discount_percent"])
	addr := created["address"].(string)

	rec = c.do(http.MethodPost, "/v1/presales", &admin, presaleBody(mint))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = c.do(http.MethodPost, "/v1/faucet", nil, map[string]interface{}{
		"asset": solana.SolMint.String(), "account": buyer.String(), "amount": 10_000_000,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = c.do(http.MethodPost, "/v1/presales/"+addr+"/contributions", &buyer, map[string]interface{}{"amount": 8_500_000})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode(t, rec)
	assert.Equal(t, float64(10), res["tokens"])
	assert.Equal(t, float64(850_000), res["unit_price"])

	rec = c.do(http.MethodGet, "/v1/presales/"+addr+"/allocations/"+buyer.String(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	alloc := decode(t, rec)
	assert.Equal(t, float64(10), alloc["total"])
	assert.Equal(t, float64(0), alloc["claimable"])

	rec = c.do(http.MethodGet, "/v1/presales/"+addr, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode(t, rec)
	assert.Equal(t, float64(850_000), detail["unit_price"])
	assert.Equal(t, float64(1), detail["contributors"])

	rec = c.do(http.MethodGet, "/v1/presales/"+addr+"/allocations?format=csv", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], buyer.String()+","))

	rec = c.do(http.MethodGet, "/v1/presales/"+addr+"/allocations?claimable=true", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode(t, rec)
	assert.Equal(t, float64(0), report["summary"].(map[string]interface{})["allocations"])

	rec = c.do(http.MethodGet, "/v1/presales/"+addr+"/allocations?format=xml", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(http.MethodPost, "/v1/presales/"+addr+"/pause", &buyer, map[string]interface{}{"paused": true})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = c.do(http.MethodPost, "/v1/presales/"+addr+"/claims", &buyer, map[string]interface{}{})
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	rec = c.do(http.MethodGet, "/v1/balances/"+solana.SolMint.String()+"/"+buyer.String(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1_500_000), decode(t, rec)["amount"])
}

func TestInsufficientFunds(t *testing.T) {
	c := newClient(t, Options{})
	admin := solana.NewWallet().PublicKey()
	buyer := solana.NewWallet().PublicKey()

	rec := c.do(http.MethodPost, "/v1/presales", &admin, presaleBody(solana.NewWallet().PublicKey()))
	require.Equal(t, http.StatusCreated, rec.Code)
	addr := decode(t, rec)["address"].(string)

	rec = c.do(http.MethodPost, "/v1/presales/"+addr+"/contributions", &buyer, map[string]interface{}{"amount": 850_000})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestBadInput(t *testing.T) {
	c := newClient(t, Options{})
	admin := solana.NewWallet().PublicKey()

	rec := c.do(http.MethodGet, "/v1/presales/xyz", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(http.MethodGet, "/v1/presales/"+solana.NewWallet().PublicKey().String(), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	body := presaleBody(solana.NewWallet().PublicKey())
	body["vesting_interval"] = 0
	rec = c.do(http.MethodPost, "/v1/presales", &admin, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body = presaleBody(solana.NewWallet().PublicKey())
	body["airdrop_percentages"] = []int{300}
	rec = c.do(http.MethodPost, "/v1/presales", &admin, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body["default_tranches"] = true
	rec = c.do(http.MethodPost, "/v1/presales", &admin, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	delete(body, "airdrop_percentages")
	rec = c.do(http.MethodPost, "/v1/presales", &admin, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tranches := decode(t, rec)["airdrop_percentages"].([]interface{})
	assert.Len(t, tranches, 11)
	assert.Equal(t, float64(10), tranches[0])
	assert.Equal(t, float64(9), tranches[10])

	rec = c.do(http.MethodPost, "/v1/faucet", nil, map[string]interface{}{})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPoolFlow(t *testing.T) {
	c := newClient(t, Options{Faucet: true})
	admin := solana.NewWallet().PublicKey()
	staker := solana.NewWallet().PublicKey()
	stakeMint := solana.NewWallet().PublicKey()

	rec := c.do(http.MethodPost, "/v1/pools", &admin, map[string]interface{}{
		"stake_mint":  stakeMint.String(),
		"reward_mint": solana.NewWallet().PublicKey().String(),
		"reward_rate": 10,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	pool := decode(t, rec)
	addr := pool["address"].(string)
	assert.Equal(t, "0", pool["reward_per_share"])

	rec = c.do(http.MethodPost, "/v1/faucet", nil, map[string]interface{}{
		"asset": stakeMint.String(), "account": staker.String(), "amount": 500,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = c.do(http.MethodPost, "/v1/pools/"+addr+"/stake", &staker, map[string]interface{}{"amount": 500})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = c.do(http.MethodGet, "/v1/pools/"+addr+"/stakes/"+staker.String(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(500), decode(t, rec)["amount"])

	rec = c.do(http.MethodPost, "/v1/pools/"+addr+"/withdraw", &staker, map[string]interface{}{"amount": 600})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = c.do(http.MethodPost, "/v1/pools/"+addr+"/rate", &staker, map[string]interface{}{"reward_rate": 1})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = c.do(http.MethodGet, "/v1/pools", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var pools []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pools))
	require.Len(t, pools, 1)
	assert.Equal(t, float64(500), pools[0]["total_staked"])
}

func TestRateLimit(t *testing.T) {
	c := newClient(t, Options{RateLimit: 1, RateBurst: 1})

	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/health", nil, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, c.do(http.MethodGet, "/health", nil, nil).Code)
}
