// internal/metrics/metrics.go
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "presaled"

// Operation outcomes.
const (
	StatusSuccess   = "success"
	StatusRejected  = "rejected"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Collector owns the service collectors on a private registry.
type Collector struct {
	registry *prometheus.Registry

	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	tokensAllocated   *prometheus.GaugeVec
	paymentCollected  *prometheus.GaugeVec
	contributors      *prometheus.GaugeVec
	totalStaked       *prometheus.GaugeVec
	oracleFetches     *prometheus.CounterVec
	oracleFallbacks   prometheus.Counter
	eventsPublished   *prometheus.CounterVec
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Ledger operations by outcome",
			},
			[]string{"operation", "status"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Ledger operation latency including storage",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"operation"},
		),
		tokensAllocated: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "presale_tokens_allocated",
				Help:      "Tokens allocated per presale",
			},
			[]string{"presale"},
		),
		paymentCollected: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "presale_payment_collected",
				Help:      "Payment units collected per presale",
			},
			[]string{"presale"},
		),
		contributors: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "presale_contributors",
				Help:      "Distinct contributors per presale",
			},
			[]string{"presale"},
		),
		totalStaked: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pool_total_staked",
				Help:      "Staked amount per pool",
			},
			[]string{"pool"},
		),
		oracleFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "oracle_fetches_total",
				Help:      "Price oracle fetches by outcome",
			},
			[]string{"feed", "status"},
		),
		oracleFallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "oracle_override_fallbacks_total",
				Help:      "Prices served from the manual override",
			},
		),
		eventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Events handed to the bus by outcome",
			},
			[]string{"type", "status"},
		),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.operations,
		c.operationDuration,
		c.tokensAllocated,
		c.paymentCollected,
		c.contributors,
		c.totalStaked,
		c.oracleFetches,
		c.oracleFallbacks,
		c.eventsPublished,
	)
	return c
}

// Registry exposes the registry for tests and extra collectors.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordOperation counts one operation. Domain rejections are told apart from
// infrastructure failures by the caller through rejected.
func (c *Collector) RecordOperation(ctx context.Context, operation string, duration time.Duration, err error, rejected bool) {
	status := StatusSuccess
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		status = StatusCancelled
	case rejected:
		status = StatusRejected
	default:
		status = StatusFailed
	}
	c.operations.WithLabelValues(operation, status).Inc()
	c.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObservePresale publishes the aggregate counters of one presale.
func (c *Collector) ObservePresale(address string, tokens, collected, contributors uint64) {
	c.tokensAllocated.WithLabelValues(address).Set(float64(tokens))
	c.paymentCollected.WithLabelValues(address).Set(float64(collected))
	c.contributors.WithLabelValues(address).Set(float64(contributors))
}

func (c *Collector) ObservePool(address string, staked uint64) {
	c.totalStaked.WithLabelValues(address).Set(float64(staked))
}

func (c *Collector) RecordOracleFetch(feed string, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusFailed
	}
	c.oracleFetches.WithLabelValues(feed, status).Inc()
}

func (c *Collector) RecordOracleFallback() {
	c.oracleFallbacks.Inc()
}

func (c *Collector) RecordEvent(eventType string, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusFailed
	}
	c.eventsPublished.WithLabelValues(eventType, status).Inc()
}

// Reset clears all vectors.
func (c *Collector) Reset() {
	c.operations.Reset()
	c.operationDuration.Reset()
	c.tokensAllocated.Reset()
	c.paymentCollected.Reset()
	c.contributors.Reset()
	c.totalStaked.Reset()
	c.oracleFetches.Reset()
	c.eventsPublished.Reset()
}
