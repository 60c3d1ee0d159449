package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseUSD(t *testing.T) {
	body := []byte(`{"solana":{"usd":142.1234567}}`)

	v, err := ParseUSD(body, "solana.usd")
	require.NoError(t, err)
	assert.Equal(t, uint64(142_123_456), v)

	_, err = ParseUSD(body, "bitcoin.usd")
	assert.Error(t, err)

	_, err = ParseUSD([]byte(`{"p":"-1"}`), "p")
	assert.Error(t, err)

	v, err = ParseUSD([]byte(`{"p":"0.5"}`), "p")
	require.NoError(t, err)
	assert.Equal(t, uint64(500_000), v)
}

func TestHTTPOracleRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		assert.Equal(t, "/price/SOL", r.URL.Path)
		fmt.Fprint(w, `{"data":{"SOL":{"price":"150.25"}}}`)
	}))
	defer srv.Close()

	o := NewHTTPOracle(HTTPConfig{URL: srv.URL + "/price/{feed}", Path: "data.{feed}.price", MaxTries: 3}, srv.Client(), zap.NewNop())

	p, err := o.Price(context.Background(), "SOL")
	require.NoError(t, err)
	assert.Equal(t, uint64(150_250_000), p.Value)
	assert.Equal(t, "SOL", p.Feed)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestHTTPOracleClientErrorIsPermanent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	o := NewHTTPOracle(HTTPConfig{URL: srv.URL, Path: "price", MaxTries: 5}, srv.Client(), zap.NewNop())

	_, err := o.Price(context.Background(), "SOL")
	assert.ErrorIs(t, err, ErrOracleUnavailable)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRefresherServesCache(t *testing.T) {
	src := NewManualOracle()
	now := time.Unix(1_700_000_000, 0)
	src.Set("SOL", 100*MicroUSD, now)

	r := NewRefresher(src, []string{"SOL"}, time.Minute, zap.NewNop())
	r.now = func() time.Time { return now }
	r.Refresh(context.Background())

	src.Fail(errors.New("down"))
	p, err := r.Price(context.Background(), "SOL")
	require.NoError(t, err)
	assert.Equal(t, 100*MicroUSD, p.Value)

	// once the cache is stale the source is consulted again
	r.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, err = r.Price(context.Background(), "SOL")
	assert.Error(t, err)
}

func TestRefresherStartRejectsBadSpec(t *testing.T) {
	r := NewRefresher(NewManualOracle(), nil, 0, zap.NewNop())
	assert.Error(t, r.Start("not a spec"))
	r.Stop()
}

func TestResolver(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	src := NewManualOracle()
	src.Set("SOL", 150*MicroUSD, now)

	r := NewResolver(src, time.Minute, zap.NewNop())
	r.now = func() time.Time { return now }

	v, err := r.Resolve(ctx, "SOL", 0, DefaultMaxManualPrice)
	require.NoError(t, err)
	assert.Equal(t, 150*MicroUSD, v)

	src.Fail(errors.New("down"))
	_, err = r.Resolve(ctx, "SOL", 0, DefaultMaxManualPrice)
	assert.ErrorIs(t, err, ErrOracleUnavailable)

	v, err = r.Resolve(ctx, "SOL", 120*MicroUSD, DefaultMaxManualPrice)
	require.NoError(t, err)
	assert.Equal(t, 120*MicroUSD, v)

	_, err = r.Resolve(ctx, "SOL", DefaultMaxManualPrice+1, DefaultMaxManualPrice)
	assert.ErrorIs(t, err, ErrOracleUnavailable)

	// stale quotes fall back as well
	src.Fail(nil)
	r.now = func() time.Time { return now.Add(time.Hour) }
	v, err = r.Resolve(ctx, "SOL", 99*MicroUSD, DefaultMaxManualPrice)
	require.NoError(t, err)
	assert.Equal(t, 99*MicroUSD, v)

	none := NewResolver(nil, 0, zap.NewNop())
	v, err = none.Resolve(ctx, "SOL", 1, DefaultMaxManualPrice)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)
}

func TestValidateOverride(t *testing.T) {
	assert.ErrorIs(t, ValidateOverride(0, 10), ErrOverrideOutOfRange)
	assert.ErrorIs(t, ValidateOverride(11, 10), ErrOverrideOutOfRange)
	assert.NoError(t, ValidateOverride(10, 10))
}

func TestHooks(t *testing.T) {
	ctx := context.Background()
	src := NewManualOracle()
	src.Set("SOL", 150*MicroUSD, time.Now())

	var (
		mu      sync.Mutex
		fetched []string
	)
	r := NewRefresher(src, []string{"SOL", "ETH"}, time.Minute, zap.NewNop())
	r.OnFetch(func(feed string, err error) {
		mu.Lock()
		defer mu.Unlock()
		fetched = append(fetched, fmt.Sprintf("%s:%t", feed, err == nil))
	})
	r.Refresh(ctx)
	assert.ElementsMatch(t, []string{"SOL:true", "ETH:false"}, fetched)

	var fallbacks []string
	res := NewResolver(r, time.Minute, zap.NewNop())
	res.OnFallback(func(feed string) { fallbacks = append(fallbacks, feed) })

	_, err := res.Resolve(ctx, "SOL", 0, DefaultMaxManualPrice)
	require.NoError(t, err)
	_, err = res.Resolve(ctx, "ETH", 2_000*MicroUSD, DefaultMaxManualPrice)
	require.NoError(t, err)
	assert.Equal(t, []string{"ETH"}, fallbacks)
}
