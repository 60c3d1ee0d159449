// internal/app/runner.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xthemadgenius/SolContracts/internal/api"
	"github.com/xthemadgenius/SolContracts/internal/audit"
	"github.com/xthemadgenius/SolContracts/internal/config"
	"github.com/xthemadgenius/SolContracts/internal/events"
	"github.com/xthemadgenius/SolContracts/internal/license"
	"github.com/xthemadgenius/SolContracts/internal/metrics"
	"github.com/xthemadgenius/SolContracts/internal/oracle"
	"github.com/xthemadgenius/SolContracts/internal/publisher"
	"github.com/xthemadgenius/SolContracts/internal/service"
	"github.com/xthemadgenius/SolContracts/internal/storage"
	"github.com/xthemadgenius/SolContracts/internal/storage/postgres"
)

// Runner assembles the daemon from its configuration and serves it until the
// context ends.
type Runner struct {
	cfg      *config.Config
	logger   *zap.Logger
	shutdown *ShutdownHandler

	metrics *metrics.Collector
	bus     *events.Bus
	service *service.Service
}

func NewRunner(cfg *config.Config, logger *zap.Logger) *Runner {
	return &Runner{
		cfg:      cfg,
		logger:   logger,
		shutdown: NewShutdownHandler(logger),
		metrics:  metrics.NewCollector(),
	}
}

// Build wires every component and returns the HTTP handler. Components are
// registered for shutdown as they come up, so a failed Build can still be
// unwound with Shutdown.
func (r *Runner) Build(ctx context.Context) (http.Handler, error) {
	if err := r.validateLicense(ctx); err != nil {
		return nil, fmt.Errorf("license validation failed: %w", err)
	}

	store, err := r.openStore(ctx)
	if err != nil {
		return nil, err
	}
	r.shutdown.Add("store", store)

	r.bus = events.NewBus(r.logger, r.cfg.Events.BufferSize)
	if err := r.attachSinks(ctx); err != nil {
		return nil, err
	}
	// registered after the sinks so it drains into them before they close
	r.shutdown.AddFunc("event_bus", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return r.bus.Shutdown(ctx)
	})

	prices, err := r.priceResolver(ctx)
	if err != nil {
		return nil, err
	}

	r.service = service.New(service.Deps{
		ProgramID: r.cfg.ProgramID(),
		Store:     store,
		Prices:    prices,
		Events:    r.bus,
		Metrics:   r.metrics,
		Logger:    r.logger,
	})

	if !r.cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := api.NewHandler(r.service, r.metrics, r.logger, api.Options{
		CallerHeader:   r.cfg.HTTP.CallerHeader,
		Faucet:         r.cfg.HTTP.Faucet,
		RateLimit:      r.cfg.HTTP.RateLimit,
		RateBurst:      r.cfg.HTTP.RateBurst,
		Events:         r.bus,
		MaxManualPrice: r.cfg.Oracle.MaxManualPrice,
	})
	if r.cfg.HTTP.Faucet {
		r.logger.Warn("Faucet endpoint enabled; balances can be minted over HTTP")
	}
	return handler.Router(), nil
}

// Run builds the daemon, serves HTTP and shuts everything down once ctx ends.
func (r *Runner) Run(ctx context.Context) error {
	handler, err := r.Build(ctx)
	if err != nil {
		r.Shutdown()
		return err
	}

	srv := &http.Server{
		Addr:              r.cfg.HTTP.Listen,
		Handler:           handler,
		ReadTimeout:       r.cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: r.cfg.HTTP.ReadTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r.logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(ctx)
	})

	err = g.Wait()
	r.Shutdown()
	return err
}

// Shutdown closes every component that was brought up.
func (r *Runner) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := r.shutdown.Shutdown(ctx); err != nil {
		r.logger.Error("Shutdown completed with errors", zap.Error(err))
	}
}

func (r *Runner) validateLicense(ctx context.Context) error {
	lc := license.Config{
		Account:   r.cfg.License.Account,
		Product:   r.cfg.License.Product,
		Token:     r.cfg.License.Token,
		Key:       r.cfg.License.Key,
		Heartbeat: r.cfg.License.Heartbeat,
	}
	if !lc.Enabled() {
		r.logger.Info("No license key configured, skipping validation")
		return nil
	}

	validator := license.NewValidator(lc, r.logger)
	if err := validator.Validate(ctx); err != nil {
		return err
	}
	if err := validator.StartHeartbeat(ctx); err != nil {
		return err
	}
	r.shutdown.AddFunc("license", func() error {
		validator.Stop()
		return nil
	})
	return nil
}

func (r *Runner) openStore(ctx context.Context) (storage.Store, error) {
	sc := r.cfg.Storage
	if sc.PostgresURL == "" {
		r.logger.Warn("No postgres_url configured, keeping state in memory")
		return storage.NewMemoryStore(), nil
	}

	store, err := postgres.NewStore(postgres.Config{
		DSN:             sc.PostgresURL,
		MaxIdleConns:    sc.MaxIdleConns,
		MaxOpenConns:    sc.MaxOpenConns,
		ConnMaxLifetime: sc.ConnMaxLifetime,
		SlowThreshold:   sc.SlowQuery,
	}, r.logger)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// attachSinks subscribes the audit journal and the AMQP publisher when configured.
func (r *Runner) attachSinks(ctx context.Context) error {
	if path := r.cfg.Audit.File; path != "" {
		journal, err := audit.Open(path, r.cfg.Audit.FlushInterval, r.logger)
		if err != nil {
			return fmt.Errorf("open audit journal: %w", err)
		}
		sub := journal.Attach(r.bus)
		r.shutdown.AddFunc("audit", func() error {
			sub.Unsubscribe()
			return journal.Close()
		})
	}

	if ac := r.cfg.AMQP; ac.URL != "" {
		pub, err := publisher.Dial(ctx, publisher.Config{
			URL:       ac.URL,
			Exchange:  ac.Exchange,
			Queue:     ac.Queue,
			DialTries: ac.DialTries,
		}, r.logger)
		if err != nil {
			return err
		}
		sub := pub.Attach(r.bus)
		r.shutdown.AddFunc("publisher", func() error {
			sub.Unsubscribe()
			return pub.Close()
		})
	}
	return nil
}

// priceResolver builds the SOL/USD source. Without an oracle URL presales priced
// through a feed rely on the manual override alone.
func (r *Runner) priceResolver(ctx context.Context) (*oracle.Resolver, error) {
	oc := r.cfg.Oracle
	var source oracle.PriceOracle
	if oc.URL != "" {
		upstream := oracle.NewHTTPOracle(oracle.HTTPConfig{
			URL:      oc.URL,
			Path:     oc.Path,
			Timeout:  oc.Timeout,
			MaxTries: oc.MaxTries,
		}, nil, r.logger)

		refresher := oracle.NewRefresher(upstream, oc.Feeds, oc.MaxAge, r.logger)
		refresher.OnFetch(r.metrics.RecordOracleFetch)
		refresher.Refresh(ctx)
		if err := refresher.Start(oc.Refresh); err != nil {
			return nil, fmt.Errorf("start price refresher: %w", err)
		}
		r.shutdown.AddFunc("oracle", func() error {
			refresher.Stop()
			return nil
		})
		source = refresher
	}

	resolver := oracle.NewResolver(source, oc.MaxAge, r.logger)
	resolver.OnFallback(func(string) { r.metrics.RecordOracleFallback() })
	return resolver, nil
}
