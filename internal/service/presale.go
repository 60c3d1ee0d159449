// internal/service/presale.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/xthemadgenius/SolContracts/internal/events"
	"github.com/xthemadgenius/SolContracts/internal/presale"
	"github.com/xthemadgenius/SolContracts/internal/storage"
)

// AllocationView is an allocation with its schedule evaluated at a moment.
type AllocationView struct {
	*presale.Allocation
	Vested    uint64
	Claimable uint64
	// VestingEnd is when the whole allocation is unlocked.
	VestingEnd int64
	At         int64
}

func newAllocationView(p *presale.Presale, a *presale.Allocation, now int64) AllocationView {
	return AllocationView{
		Allocation: a,
		Vested:     a.Vested(p, now),
		Claimable:  a.Claimable(p, now),
		VestingEnd: p.Timetable().End(),
		At:         now,
	}
}

// PresaleView is a presale with its current prices. Prices are zero when the
// oracle cannot answer.
type PresaleView struct {
	*presale.Presale
	PublicPrice uint64
	UnitPrice   uint64
	At          int64
}

func presaleEvent(typ events.EventType, p *presale.Presale, at time.Time) events.PresaleEvent {
	return events.PresaleEvent{
		BaseEvent: events.NewBase(typ, at),
		Presale:   p.Address,
		Admin:     p.Admin,
		Mint:      p.Mint,
		Paused:    p.Paused,
		Closed:    p.IsClosed,
		Override:  p.ManualPriceOverride,
	}
}

// InitializePresale creates a presale owned by admin. One admin runs at most one
// presale per mint.
func (s *Service) InitializePresale(ctx context.Context, admin solana.PublicKey, params presale.Params) (*presale.Presale, error) {
	var created *presale.Presale
	err := s.run(ctx, "initialize_presale", admin, func(ctx context.Context, tx storage.Tx, now time.Time) (outcome, error) {
		p, err := s.ledger(tx).Initialize(admin, params)
		if err != nil {
			return outcome{}, err
		}
		if _, err := tx.GetPresale(ctx, p.Address); err == nil {
			return outcome{}, fmt.Errorf("%w: presale %s", ErrAlreadyExists, p.Address)
		} else if !errors.Is(err, storage.ErrNotFound) {
			return outcome{}, err
		}
		if err := tx.SavePresale(ctx, p); err != nil {
			return outcome{}, err
		}
		created = p
		return outcome{
			events:  []events.Event{presaleEvent(events.PresaleInitialized, p, now)},
			presale: p,
		}, nil
	})
	return created, err
}

// loadAllocation returns the allocation of contributor, or a fresh one when
// create is set.
func (s *Service) loadAllocation(ctx context.Context, tx storage.Tx, p *presale.Presale, contributor solana.PublicKey, create bool) (*presale.Allocation, error) {
	addr, _, err := presale.AllocationAddress(s.programID, contributor, p.Mint)
	if err != nil {
		return nil, err
	}
	a, err := tx.GetAllocation(ctx, addr)
	switch {
	case err == nil:
		return a, nil
	case errors.Is(err, storage.ErrNotFound) && create:
		return presale.NewAllocation(s.programID, p, contributor)
	case errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("%w: %s", presale.ErrAllocationNotFound, contributor)
	}
	return nil, err
}

// Contribute buys tokens for caller.
func (s *Service) Contribute(ctx context.Context, caller, presaleAddr solana.PublicKey, amount uint64) (presale.Contribution, error) {
	var res presale.Contribution
	err := s.run(ctx, "contribute", caller, func(ctx context.Context, tx storage.Tx, now time.Time) (outcome, error) {
		p, err := tx.GetPresale(ctx, presaleAddr)
		if err != nil {
			return outcome{}, err
		}
		a, err := s.loadAllocation(ctx, tx, p, caller, true)
		if err != nil {
			return outcome{}, err
		}
		if res, err = s.ledger(tx).Contribute(ctx, p, a, caller, amount, now.Unix()); err != nil {
			return outcome{}, err
		}
		if err := tx.SavePresale(ctx, p); err != nil {
			return outcome{}, err
		}
		if err := tx.SaveAllocation(ctx, a); err != nil {
			return outcome{}, err
		}
		return outcome{
			events: []events.Event{events.ContributionEvent{
				BaseEvent:   events.NewBase(events.ContributionAccepted, now),
				Presale:     p.Address,
				Contributor: caller,
				Requested:   res.Requested,
				Accepted:    res.Accepted,
				Tokens:      res.Tokens,
				UnitPrice:   res.UnitPrice,
				Clipped:     res.Clipped,
			}},
			presale: p,
		}, nil
	})
	return res, err
}

// Claim releases vested tokens of contributor. amount 0 claims everything claimable.
func (s *Service) Claim(ctx context.Context, caller, presaleAddr, contributor solana.PublicKey, amount uint64) (uint64, error) {
	var released uint64
	err := s.run(ctx, "claim", caller, func(ctx context.Context, tx storage.Tx, now time.Time) (outcome, error) {
		p, err := tx.GetPresale(ctx, presaleAddr)
		if err != nil {
			return outcome{}, err
		}
		a, err := s.loadAllocation(ctx, tx, p, contributor, false)
		if err != nil {
			return outcome{}, err
		}
		if released, err = s.ledger(tx).Claim(ctx, p, a, caller, amount, now.Unix()); err != nil {
			return outcome{}, err
		}
		if err := tx.SaveAllocation(ctx, a); err != nil {
			return outcome{}, err
		}
		return outcome{events: []events.Event{events.ClaimEvent{
			BaseEvent:   events.NewBase(events.TokensClaimed, now),
			Presale:     p.Address,
			Contributor: contributor,
			Amount:      released,
			Claimed:     a.Claimed,
		}}}, nil
	})
	return released, err
}

// Refund returns tokens of caller's allocation for their payment value.
func (s *Service) Refund(ctx context.Context, caller, presaleAddr solana.PublicKey, tokens uint64) (presale.RefundReceipt, error) {
	var receipt presale.RefundReceipt
	err := s.run(ctx, "refund", caller, func(ctx context.Context, tx storage.Tx, now time.Time) (outcome, error) {
		p, err := tx.GetPresale(ctx, presaleAddr)
		if err != nil {
			return outcome{}, err
		}
		a, err := s.loadAllocation(ctx, tx, p, caller, false)
		if err != nil {
			return outcome{}, err
		}
		if receipt, err = s.ledger(tx).Refund(ctx, p, a, caller, tokens, now.Unix()); err != nil {
			return outcome{}, err
		}
		if err := tx.SavePresale(ctx, p); err != nil {
			return outcome{}, err
		}
		if err := tx.SaveAllocation(ctx, a); err != nil {
			return outcome{}, err
		}
		return outcome{
			events: []events.Event{events.RefundEvent{
				BaseEvent:   events.NewBase(events.RefundProcessed, now),
				Presale:     p.Address,
				Contributor: caller,
				Tokens:      receipt.Tokens,
				Value:       receipt.Value,
			}},
			presale: p,
		}, nil
	})
	return receipt, err
}

// adminPresale runs an admin change on one presale and emits typ on success.
func (s *Service) adminPresale(ctx context.Context, op string, typ events.EventType, caller, presaleAddr solana.PublicKey, apply func(l *presale.Ledger, p *presale.Presale) error) (*presale.Presale, error) {
	var updated *presale.Presale
	err := s.run(ctx, op, caller, func(ctx context.Context, tx storage.Tx, now time.Time) (outcome, error) {
		p, err := tx.GetPresale(ctx, presaleAddr)
		if err != nil {
			return outcome{}, err
		}
		if err := apply(s.ledger(tx), p); err != nil {
			return outcome{}, err
		}
		if err := tx.SavePresale(ctx, p); err != nil {
			return outcome{}, err
		}
		updated = p
		return outcome{events: []events.Event{presaleEvent(typ, p, now)}, presale: p}, nil
	})
	return updated, err
}

func (s *Service) UpdateParams(ctx context.Context, caller, presaleAddr solana.PublicKey, u presale.ParamsUpdate) (*presale.Presale, error) {
	return s.adminPresale(ctx, "update_params", events.PresaleParamsUpdated, caller, presaleAddr, func(l *presale.Ledger, p *presale.Presale) error {
		return l.UpdateParams(p, caller, u)
	})
}

func (s *Service) SetPause(ctx context.Context, caller, presaleAddr solana.PublicKey, paused bool) (*presale.Presale, error) {
	return s.adminPresale(ctx, "set_pause", events.PresalePaused, caller, presaleAddr, func(l *presale.Ledger, p *presale.Presale) error {
		return l.SetPause(p, caller, paused)
	})
}

func (s *Service) SetPriceOverride(ctx context.Context, caller, presaleAddr solana.PublicKey, price uint64) (*presale.Presale, error) {
	return s.adminPresale(ctx, "set_price_override", events.PresaleOverrideUpdated, caller, presaleAddr, func(l *presale.Ledger, p *presale.Presale) error {
		return l.SetManualPriceOverride(p, caller, price)
	})
}

func (s *Service) ClosePresale(ctx context.Context, caller, presaleAddr solana.PublicKey) (*presale.Presale, error) {
	return s.adminPresale(ctx, "close_presale", events.PresaleClosed, caller, presaleAddr, func(l *presale.Ledger, p *presale.Presale) error {
		return l.Close(p, caller)
	})
}

// FundVault tops up the token vault that pays claims and airdrops.
func (s *Service) FundVault(ctx context.Context, funder, presaleAddr solana.PublicKey, amount uint64) error {
	return s.run(ctx, "fund_vault", funder, func(ctx context.Context, tx storage.Tx, _ time.Time) (outcome, error) {
		p, err := tx.GetPresale(ctx, presaleAddr)
		if err != nil {
			return outcome{}, err
		}
		return outcome{}, s.ledger(tx).FundVault(ctx, p, funder, amount)
	})
}

// DistributeAirdrops pushes a batch of tranches. The batch commits as a whole.
func (s *Service) DistributeAirdrops(ctx context.Context, caller, presaleAddr solana.PublicKey, batch []presale.AirdropInstruction) ([]presale.AirdropResult, error) {
	var results []presale.AirdropResult
	err := s.run(ctx, "distribute_airdrops", caller, func(ctx context.Context, tx storage.Tx, now time.Time) (outcome, error) {
		p, err := tx.GetPresale(ctx, presaleAddr)
		if err != nil {
			return outcome{}, err
		}
		if len(batch) > presale.MaxBatchSize {
			return outcome{}, fmt.Errorf("%w: %d > %d", presale.ErrBatchTooLarge, len(batch), presale.MaxBatchSize)
		}

		allocs := make(map[solana.PublicKey]*presale.Allocation, len(batch))
		for _, in := range batch {
			if _, ok := allocs[in.Recipient]; ok {
				continue
			}
			a, err := s.loadAllocation(ctx, tx, p, in.Recipient, false)
			if err != nil {
				return outcome{}, err
			}
			allocs[in.Recipient] = a
		}

		if results, err = s.ledger(tx).DistributeAirdrops(ctx, p, allocs, caller, batch, now.Unix()); err != nil {
			return outcome{}, err
		}
		var total uint64
		for _, r := range results {
			total += r.Amount
		}
		for _, a := range allocs {
			if err := tx.SaveAllocation(ctx, a); err != nil {
				return outcome{}, err
			}
		}
		return outcome{events: []events.Event{events.AirdropEvent{
			BaseEvent:  events.NewBase(events.AirdropDistributed, now),
			Presale:    p.Address,
			Recipients: len(allocs),
			Total:      total,
		}}}, nil
	})
	return results, err
}

// GetPresale returns the presale at address with its prices evaluated now.
func (s *Service) GetPresale(ctx context.Context, address solana.PublicKey) (PresaleView, error) {
	var view PresaleView
	err := s.view(ctx, func(ctx context.Context, tx storage.Tx, now time.Time) error {
		p, err := tx.GetPresale(ctx, address)
		if err != nil {
			return err
		}
		view = PresaleView{Presale: p, At: now.Unix()}
		l := s.ledger(tx)
		if price, err := l.PublicPrice(ctx, p); err == nil {
			view.PublicPrice = price
		}
		if unit, err := l.UnitPrice(ctx, p); err == nil {
			view.UnitPrice = unit
		}
		return nil
	})
	return view, err
}

func (s *Service) ListPresales(ctx context.Context) ([]*presale.Presale, error) {
	var out []*presale.Presale
	err := s.view(ctx, func(ctx context.Context, tx storage.Tx, _ time.Time) error {
		var err error
		out, err = tx.ListPresales(ctx)
		return err
	})
	return out, err
}

// GetAllocation returns the allocation of contributor with vested and
// claimable amounts at the current time.
func (s *Service) GetAllocation(ctx context.Context, presaleAddr, contributor solana.PublicKey) (AllocationView, error) {
	var view AllocationView
	err := s.view(ctx, func(ctx context.Context, tx storage.Tx, now time.Time) error {
		p, err := tx.GetPresale(ctx, presaleAddr)
		if err != nil {
			return err
		}
		a, err := s.loadAllocation(ctx, tx, p, contributor, false)
		if err != nil {
			return err
		}
		if !a.Presale.Equals(p.Address) {
			return fmt.Errorf("%w: %s", presale.ErrAllocationNotFound, contributor)
		}
		view = newAllocationView(p, a, now.Unix())
		return nil
	})
	return view, err
}

// ListAllocations returns every allocation of a presale evaluated at the current
// time, ordered by contributor.
func (s *Service) ListAllocations(ctx context.Context, presaleAddr solana.PublicKey) ([]AllocationView, error) {
	var out []AllocationView
	err := s.view(ctx, func(ctx context.Context, tx storage.Tx, now time.Time) error {
		p, err := tx.GetPresale(ctx, presaleAddr)
		if err != nil {
			return err
		}
		list, err := tx.ListAllocations(ctx, p.Address)
		if err != nil {
			return err
		}
		out = make([]AllocationView, 0, len(list))
		for _, a := range list {
			out = append(out, newAllocationView(p, a, now.Unix()))
		}
		return nil
	})
	return out, err
}
