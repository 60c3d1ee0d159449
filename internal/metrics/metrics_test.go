package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordOperationStatuses(t *testing.T) {
	c := NewCollector()
	ctx := context.Background()

	c.RecordOperation(ctx, "contribute", time.Millisecond, nil, false)
	c.RecordOperation(ctx, "contribute", time.Millisecond, errors.New("cap"), true)
	c.RecordOperation(ctx, "contribute", time.Millisecond, errors.New("db"), false)
	c.RecordOperation(ctx, "contribute", time.Millisecond, context.Canceled, false)

	for _, status := range []string{StatusSuccess, StatusRejected, StatusFailed, StatusCancelled} {
		assert.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("contribute", status)), status)
	}
}

func TestGauges(t *testing.T) {
	c := NewCollector()
	c.ObservePresale("p1", 10, 8_500_000, 1)
	c.ObservePool("pool1", 300)
	c.RecordOracleFallback()

	assert.Equal(t, 10.0, testutil.ToFloat64(c.tokensAllocated.WithLabelValues("p1")))
	assert.Equal(t, 8_500_000.0, testutil.ToFloat64(c.paymentCollected.WithLabelValues("p1")))
	assert.Equal(t, 300.0, testutil.ToFloat64(c.totalStaked.WithLabelValues("pool1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.oracleFallbacks))

	c.Reset()
	assert.Equal(t, 0, testutil.CollectAndCount(c.tokensAllocated))
}

func TestHandlerExposesRegistry(t *testing.T) {
	c := NewCollector()
	c.RecordEvent("stake.deposited", nil)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `presaled_events_published_total{status="success",type="stake.deposited"} 1`)
}
