// internal/oracle/resolver.go
package oracle

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Resolver picks the price used for a contribution: the oracle when it answers
// with a fresh quote, otherwise the admin override when it is in range.
type Resolver struct {
	oracle PriceOracle
	maxAge time.Duration
	logger *zap.Logger
	now    func() time.Time

	onFallback func(feed string)
}

// OnFallback registers a callback run whenever the override is served.
func (r *Resolver) OnFallback(fn func(feed string)) {
	r.onFallback = fn
}

// NewResolver accepts a nil oracle, in which case only overrides are used.
func NewResolver(oracle PriceOracle, maxAge time.Duration, logger *zap.Logger) *Resolver {
	return &Resolver{
		oracle: oracle,
		maxAge: maxAge,
		logger: logger.Named("price_resolver"),
		now:    time.Now,
	}
}

// Resolve returns the micro-USD price of feed.
func (r *Resolver) Resolve(ctx context.Context, feed string, override, maxOverride uint64) (uint64, error) {
	var cause error
	if r.oracle != nil {
		p, err := r.oracle.Price(ctx, feed)
		switch {
		case err != nil:
			cause = err
		case p.Value == 0:
			cause = fmt.Errorf("zero price")
		case r.maxAge > 0 && r.now().Sub(p.PublishedAt) > r.maxAge:
			cause = ErrStalePrice
		default:
			return p.Value, nil
		}
	} else {
		cause = fmt.Errorf("no oracle configured")
	}

	if err := ValidateOverride(override, maxOverride); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrOracleUnavailable, cause)
	}
	r.logger.Warn("Using manual price override",
		zap.String("feed", feed),
		zap.Uint64("override", override),
		zap.NamedError("cause", cause))
	if r.onFallback != nil {
		r.onFallback(feed)
	}
	return override, nil
}
