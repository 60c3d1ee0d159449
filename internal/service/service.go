// internal/service/service.go
package service

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/xthemadgenius/SolContracts/internal/events"
	"github.com/xthemadgenius/SolContracts/internal/logger"
	"github.com/xthemadgenius/SolContracts/internal/metrics"
	"github.com/xthemadgenius/SolContracts/internal/presale"
	"github.com/xthemadgenius/SolContracts/internal/storage"
	"github.com/xthemadgenius/SolContracts/internal/yield"
)

// Publisher receives events after their unit of work committed.
type Publisher interface {
	Publish(event events.Event) error
}

type Deps struct {
	ProgramID solana.PublicKey
	Store     storage.Store
	// Prices resolves feed based presales. Nil limits them to the manual override.
	Prices  presale.PriceResolver
	Events  Publisher
	Metrics *metrics.Collector
	Logger  *zap.Logger
	Now     func() time.Time
}

// Service runs every ledger operation as one storage unit of work: load records,
// apply the presale or staking rules, save, then publish events.
type Service struct {
	programID solana.PublicKey
	store     storage.Store
	prices    presale.PriceResolver
	events    Publisher
	metrics   *metrics.Collector
	logger    *zap.Logger
	now       func() time.Time
}

func New(d Deps) *Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Metrics == nil {
		d.Metrics = metrics.NewCollector()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Service{
		programID: d.ProgramID,
		store:     d.Store,
		prices:    d.Prices,
		events:    d.Events,
		metrics:   d.Metrics,
		logger:    d.Logger.Named("service"),
		now:       d.Now,
	}
}

func (s *Service) ProgramID() solana.PublicKey {
	return s.programID
}

// outcome is what a unit of work hands back for publishing and gauges.
type outcome struct {
	events  []events.Event
	presale *presale.Presale
	pool    *yield.Pool
}

type unit func(ctx context.Context, tx storage.Tx, now time.Time) (outcome, error)

func (s *Service) ledger(tx storage.Tx) *presale.Ledger {
	return presale.NewLedger(s.programID, tx, s.prices)
}

func (s *Service) engine(tx storage.Tx) *yield.Engine {
	return yield.NewEngine(s.programID, tx)
}

// run executes fn atomically, records metrics and publishes the events of a
// committed unit.
func (s *Service) run(ctx context.Context, op string, caller solana.PublicKey, fn unit) error {
	start := time.Now()
	log := logger.WithCaller(logger.WithOperation(s.logger, op), caller.String())
	now := s.now()

	var out outcome
	err := s.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		out, err = fn(ctx, tx, now)
		return err
	})
	rejected := Rejected(err)
	s.metrics.RecordOperation(ctx, op, time.Since(start), err, rejected)

	switch {
	case err == nil:
	case rejected:
		log.Info("Operation rejected", zap.Error(err))
		return err
	default:
		log.Error("Operation failed", zap.Error(err))
		return err
	}

	if p := out.presale; p != nil {
		s.metrics.ObservePresale(p.Address.String(), p.TotalTokensAllocated, p.TotalSolCollected, p.Contributors)
	}
	if p := out.pool; p != nil {
		s.metrics.ObservePool(p.Address.String(), p.TotalStaked)
	}
	for _, e := range out.events {
		perr := s.publish(e)
		s.metrics.RecordEvent(string(e.Type()), perr)
		if perr != nil {
			log.Warn("Event not published", zap.String("event_type", string(e.Type())), zap.Error(perr))
		}
	}

	log.Info("Operation completed", zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (s *Service) publish(e events.Event) error {
	if s.events == nil {
		return nil
	}
	return s.events.Publish(e)
}

// view runs a read only unit of work.
func (s *Service) view(ctx context.Context, fn func(ctx context.Context, tx storage.Tx, now time.Time) error) error {
	now := s.now()
	return s.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		return fn(ctx, tx, now)
	})
}

// Balance reads the holding of account in asset.
func (s *Service) Balance(ctx context.Context, asset, account solana.PublicKey) (uint64, error) {
	var out uint64
	err := s.view(ctx, func(ctx context.Context, tx storage.Tx, _ time.Time) error {
		var err error
		out, err = tx.Balance(ctx, asset, account)
		return err
	})
	return out, err
}

// Credit mints test funds. Only wired when the faucet is enabled.
func (s *Service) Credit(ctx context.Context, asset, account solana.PublicKey, amount uint64) error {
	if asset.IsZero() || account.IsZero() || amount == 0 {
		return ErrInvalidInput
	}
	return s.run(ctx, "credit", account, func(ctx context.Context, tx storage.Tx, _ time.Time) (outcome, error) {
		return outcome{}, tx.Credit(ctx, asset, account, amount)
	})
}
