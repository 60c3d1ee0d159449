// internal/oracle/oracle.go
package oracle

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MicroUSD is the number of price units per US dollar.
const MicroUSD uint64 = 1_000_000

// DefaultMaxManualPrice bounds the admin override: 10,000 USD.
const DefaultMaxManualPrice = 10_000 * MicroUSD

var (
	ErrOracleUnavailable  = errors.New("price oracle unavailable")
	ErrUnknownFeed        = errors.New("unknown price feed")
	ErrStalePrice         = errors.New("stale price")
	ErrOverrideOutOfRange = errors.New("manual price override out of range")
)

// Price is a quote in micro-USD.
type Price struct {
	Feed        string
	Value       uint64
	PublishedAt time.Time
	Source      string
}

// PriceOracle returns the latest price of a feed.
type PriceOracle interface {
	Price(ctx context.Context, feed string) (Price, error)
}

// ManualOracle serves prices set in process. Handy for tests and local runs.
type ManualOracle struct {
	mu     sync.RWMutex
	prices map[string]Price
	err    error
}

func NewManualOracle() *ManualOracle {
	return &ManualOracle{prices: make(map[string]Price)}
}

// Set stores a price for feed.
func (m *ManualOracle) Set(feed string, value uint64, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[feed] = Price{Feed: feed, Value: value, PublishedAt: at, Source: "manual"}
}

// Fail makes every following call return err until Fail(nil).
func (m *ManualOracle) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *ManualOracle) Price(_ context.Context, feed string) (Price, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return Price{}, m.err
	}
	p, ok := m.prices[feed]
	if !ok {
		return Price{}, ErrUnknownFeed
	}
	return p, nil
}

// ValidateOverride checks that a manual price lies in (0, max].
func ValidateOverride(price, max uint64) error {
	if price == 0 || price > max {
		return ErrOverrideOutOfRange
	}
	return nil
}
