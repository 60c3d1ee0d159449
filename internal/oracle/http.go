// internal/oracle/http.go
package oracle

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// HTTPConfig describes a JSON price endpoint. "{feed}" in URL and Path is replaced
// by the feed name, Path is a gjson path to the USD price.
type HTTPConfig struct {
	URL      string
	Path     string
	Timeout  time.Duration
	MaxTries uint
}

// HTTPOracle reads prices from a JSON HTTP endpoint.
type HTTPOracle struct {
	cfg    HTTPConfig
	client *http.Client
	logger *zap.Logger
	now    func() time.Time
}

func NewHTTPOracle(cfg HTTPConfig, client *http.Client, logger *zap.Logger) *HTTPOracle {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxTries == 0 {
		cfg.MaxTries = 3
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &HTTPOracle{
		cfg:    cfg,
		client: client,
		logger: logger.Named("http_oracle"),
		now:    time.Now,
	}
}

func (o *HTTPOracle) Price(ctx context.Context, feed string) (Price, error) {
	notify := func(err error, d time.Duration) {
		o.logger.Debug("Retrying price fetch", zap.String("feed", feed), zap.Duration("backoff", d), zap.Error(err))
	}

	price, err := backoff.Retry(ctx, func() (Price, error) {
		return o.fetch(ctx, feed)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(o.cfg.MaxTries),
		backoff.WithNotify(notify),
	)
	if err != nil {
		return Price{}, fmt.Errorf("%w: %s: %v", ErrOracleUnavailable, feed, err)
	}
	return price, nil
}

func (o *HTTPOracle) fetch(ctx context.Context, feed string) (Price, error) {
	url := strings.ReplaceAll(o.cfg.URL, "{feed}", feed)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Price{}, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return Price{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Price{}, err
	}
	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return Price{}, fmt.Errorf("price endpoint returned %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return Price{}, backoff.Permanent(fmt.Errorf("price endpoint returned %d", resp.StatusCode))
	}

	value, err := ParseUSD(body, strings.ReplaceAll(o.cfg.Path, "{feed}", feed))
	if err != nil {
		return Price{}, backoff.Permanent(err)
	}
	return Price{Feed: feed, Value: value, PublishedAt: o.now(), Source: "http"}, nil
}

// ParseUSD extracts a decimal USD price at path and converts it to micro-USD,
// truncating extra precision.
func ParseUSD(body []byte, path string) (uint64, error) {
	res := gjson.GetBytes(body, path)
	if !res.Exists() {
		return 0, fmt.Errorf("price path %q not found", path)
	}
	d, err := decimal.NewFromString(res.String())
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", res.String(), err)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("non-positive price %s", d)
	}
	micro := d.Mul(decimal.NewFromInt(int64(MicroUSD))).Floor()
	if micro.IsZero() || !micro.BigInt().IsUint64() {
		return 0, fmt.Errorf("price %s out of range", d)
	}
	return micro.BigInt().Uint64(), nil
}
