// internal/oracle/refresher.go
package oracle

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Refresher caches prices of a fixed set of feeds and refreshes them on a cron
// schedule. Reads within maxAge are served from the cache.
type Refresher struct {
	source  PriceOracle
	feeds   []string
	maxAge  time.Duration
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time

	mu    sync.RWMutex
	cache map[string]Price

	cron    *cron.Cron
	onFetch func(feed string, err error)
}

// OnFetch registers a callback run after every upstream fetch.
func (r *Refresher) OnFetch(fn func(feed string, err error)) {
	r.onFetch = fn
}

func (r *Refresher) fetch(ctx context.Context, feed string) (Price, error) {
	p, err := r.source.Price(ctx, feed)
	if r.onFetch != nil {
		r.onFetch(feed, err)
	}
	return p, err
}

func NewRefresher(source PriceOracle, feeds []string, maxAge time.Duration, logger *zap.Logger) *Refresher {
	return &Refresher{
		source:  source,
		feeds:   feeds,
		maxAge:  maxAge,
		timeout: 10 * time.Second,
		logger:  logger.Named("oracle_refresher"),
		now:     time.Now,
		cache:   make(map[string]Price),
	}
}

// Start schedules Refresh with a six field (seconds first) cron spec.
func (r *Refresher) Start(spec string) error {
	c := cron.New(cron.WithSeconds())
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		r.Refresh(ctx)
	})
	if err != nil {
		return err
	}
	r.cron = c
	c.Start()
	r.logger.Info("Price refresh scheduled", zap.String("spec", spec), zap.Strings("feeds", r.feeds))
	return nil
}

// Stop halts the schedule and waits for a running refresh.
func (r *Refresher) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
}

// Refresh fetches every feed once, a few at a time. Failures keep the previous
// cached value.
func (r *Refresher) Refresh(ctx context.Context) {
	var g errgroup.Group
	g.SetLimit(4)
	for _, feed := range r.feeds {
		feed := feed
		g.Go(func() error {
			p, err := r.fetch(ctx, feed)
			if err != nil {
				r.logger.Warn("Price refresh failed", zap.String("feed", feed), zap.Error(err))
				return nil
			}
			r.store(p)
			return nil
		})
	}
	_ = g.Wait()
}

func (r *Refresher) Price(ctx context.Context, feed string) (Price, error) {
	r.mu.RLock()
	p, ok := r.cache[feed]
	r.mu.RUnlock()
	if ok && r.fresh(p) {
		return p, nil
	}

	p, err := r.fetch(ctx, feed)
	if err != nil {
		return Price{}, err
	}
	r.store(p)
	return p, nil
}

func (r *Refresher) fresh(p Price) bool {
	return r.maxAge <= 0 || r.now().Sub(p.PublishedAt) <= r.maxAge
}

func (r *Refresher) store(p Price) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[p.Feed] = p
}
