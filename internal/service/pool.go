// internal/service/pool.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/xthemadgenius/SolContracts/internal/events"
	"github.com/xthemadgenius/SolContracts/internal/storage"
	"github.com/xthemadgenius/SolContracts/internal/yield"
)

// StakeView is a staker position with what it could claim now.
type StakeView struct {
	*yield.UserStake
	Owed uint64
	At   int64
}

func poolEvent(typ events.EventType, p *yield.Pool, funded uint64, at time.Time) events.PoolEvent {
	return events.PoolEvent{
		BaseEvent:  events.NewBase(typ, at),
		Pool:       p.Address,
		Admin:      p.Admin,
		StakeMint:  p.StakeMint,
		RewardMint: p.RewardMint,
		RewardRate: p.RewardRate,
		Funded:     funded,
	}
}

func stakeEvent(typ events.EventType, s *yield.UserStake, amount, rewards uint64, at time.Time) events.StakeEvent {
	return events.StakeEvent{
		BaseEvent: events.NewBase(typ, at),
		Pool:      s.Pool,
		Owner:     s.Owner,
		Amount:    amount,
		Rewards:   rewards,
		Staked:    s.Amount,
	}
}

func (s *Service) InitializePool(ctx context.Context, admin, stakeMint, rewardMint solana.PublicKey, rate uint64) (*yield.Pool, error) {
	var created *yield.Pool
	err := s.run(ctx, "initialize_pool", admin, func(ctx context.Context, tx storage.Tx, now time.Time) (outcome, error) {
		p, err := s.engine(tx).InitializePool(admin, stakeMint, rewardMint, rate, now.Unix())
		if err != nil {
			return outcome{}, err
		}
		if _, err := tx.GetPool(ctx, p.Address); err == nil {
			return outcome{}, fmt.Errorf("%w: pool %s", ErrAlreadyExists, p.Address)
		} else if !errors.Is(err, storage.ErrNotFound) {
			return outcome{}, err
		}
		if err := tx.SavePool(ctx, p); err != nil {
			return outcome{}, err
		}
		created = p
		return outcome{events: []events.Event{poolEvent(events.PoolInitialized, p, 0, now)}, pool: p}, nil
	})
	return created, err
}

func (s *Service) loadStake(ctx context.Context, tx storage.Tx, p *yield.Pool, owner solana.PublicKey, create bool) (*yield.UserStake, error) {
	addr, _, err := yield.UserStakeAddress(s.programID, p.Address, owner)
	if err != nil {
		return nil, err
	}
	st, err := tx.GetUserStake(ctx, addr)
	if errors.Is(err, storage.ErrNotFound) && create {
		return s.engine(tx).NewUserStake(p, owner)
	}
	return st, err
}

// stakeUnit loads pool and stake, runs apply and saves both.
func (s *Service) stakeUnit(ctx context.Context, op string, caller, poolAddr solana.PublicKey, create bool, apply func(ctx context.Context, e *yield.Engine, p *yield.Pool, st *yield.UserStake, now time.Time) (events.Event, error)) error {
	return s.run(ctx, op, caller, func(ctx context.Context, tx storage.Tx, now time.Time) (outcome, error) {
		p, err := tx.GetPool(ctx, poolAddr)
		if err != nil {
			return outcome{}, err
		}
		st, err := s.loadStake(ctx, tx, p, caller, create)
		if err != nil {
			return outcome{}, err
		}
		ev, err := apply(ctx, s.engine(tx), p, st, now)
		if err != nil {
			return outcome{}, err
		}
		if err := tx.SavePool(ctx, p); err != nil {
			return outcome{}, err
		}
		if err := tx.SaveUserStake(ctx, st); err != nil {
			return outcome{}, err
		}
		return outcome{events: []events.Event{ev}, pool: p}, nil
	})
}

// Stake deposits amount for caller, creating the position on first use.
func (s *Service) Stake(ctx context.Context, caller, poolAddr solana.PublicKey, amount uint64) (yield.StakeReceipt, error) {
	var r yield.StakeReceipt
	err := s.stakeUnit(ctx, "stake", caller, poolAddr, true, func(ctx context.Context, e *yield.Engine, p *yield.Pool, st *yield.UserStake, now time.Time) (events.Event, error) {
		var err error
		if r, err = e.Stake(ctx, p, st, caller, amount, now.Unix()); err != nil {
			return nil, err
		}
		return stakeEvent(events.StakeDeposited, st, r.Amount, r.Credited, now), nil
	})
	return r, err
}

// Withdraw pays owed rewards and returns amount of principal.
func (s *Service) Withdraw(ctx context.Context, caller, poolAddr solana.PublicKey, amount uint64) (yield.WithdrawReceipt, error) {
	var r yield.WithdrawReceipt
	err := s.stakeUnit(ctx, "withdraw", caller, poolAddr, false, func(ctx context.Context, e *yield.Engine, p *yield.Pool, st *yield.UserStake, now time.Time) (events.Event, error) {
		var err error
		if r, err = e.Withdraw(ctx, p, st, caller, amount, now.Unix()); err != nil {
			return nil, err
		}
		return stakeEvent(events.StakeWithdrawn, st, r.Amount, r.Rewards, now), nil
	})
	return r, err
}

// ClaimRewards pays everything owed to caller.
func (s *Service) ClaimRewards(ctx context.Context, caller, poolAddr solana.PublicKey) (uint64, error) {
	var paid uint64
	err := s.stakeUnit(ctx, "claim_rewards", caller, poolAddr, false, func(ctx context.Context, e *yield.Engine, p *yield.Pool, st *yield.UserStake, now time.Time) (events.Event, error) {
		var err error
		if paid, err = e.Claim(ctx, p, st, caller, now.Unix()); err != nil {
			return nil, err
		}
		return stakeEvent(events.RewardsClaimed, st, 0, paid, now), nil
	})
	return paid, err
}

func (s *Service) SetRewardRate(ctx context.Context, caller, poolAddr solana.PublicKey, rate uint64) (*yield.Pool, error) {
	var updated *yield.Pool
	err := s.run(ctx, "set_reward_rate", caller, func(ctx context.Context, tx storage.Tx, now time.Time) (outcome, error) {
		p, err := tx.GetPool(ctx, poolAddr)
		if err != nil {
			return outcome{}, err
		}
		if err := s.engine(tx).SetRewardRate(p, caller, rate, now.Unix()); err != nil {
			return outcome{}, err
		}
		if err := tx.SavePool(ctx, p); err != nil {
			return outcome{}, err
		}
		updated = p
		return outcome{events: []events.Event{poolEvent(events.RewardsRateUpdated, p, 0, now)}, pool: p}, nil
	})
	return updated, err
}

func (s *Service) FundRewards(ctx context.Context, funder, poolAddr solana.PublicKey, amount uint64) error {
	return s.run(ctx, "fund_rewards", funder, func(ctx context.Context, tx storage.Tx, now time.Time) (outcome, error) {
		p, err := tx.GetPool(ctx, poolAddr)
		if err != nil {
			return outcome{}, err
		}
		if err := s.engine(tx).FundRewards(ctx, p, funder, amount); err != nil {
			return outcome{}, err
		}
		return outcome{events: []events.Event{poolEvent(events.RewardsFunded, p, amount, now)}}, nil
	})
}

func (s *Service) GetPool(ctx context.Context, address solana.PublicKey) (*yield.Pool, error) {
	var out *yield.Pool
	err := s.view(ctx, func(ctx context.Context, tx storage.Tx, _ time.Time) error {
		var err error
		out, err = tx.GetPool(ctx, address)
		return err
	})
	return out, err
}

func (s *Service) ListPools(ctx context.Context) ([]*yield.Pool, error) {
	var out []*yield.Pool
	err := s.view(ctx, func(ctx context.Context, tx storage.Tx, _ time.Time) error {
		var err error
		out, err = tx.ListPools(ctx)
		return err
	})
	return out, err
}

// GetStake returns owner's position with rewards accrued up to now. The stored
// pool is not advanced.
func (s *Service) GetStake(ctx context.Context, poolAddr, owner solana.PublicKey) (StakeView, error) {
	var view StakeView
	err := s.view(ctx, func(ctx context.Context, tx storage.Tx, now time.Time) error {
		p, err := tx.GetPool(ctx, poolAddr)
		if err != nil {
			return err
		}
		st, err := s.loadStake(ctx, tx, p, owner, false)
		if err != nil {
			return err
		}
		if err := p.Update(now.Unix()); err != nil {
			return err
		}
		owed, err := st.Owed(p)
		if err != nil {
			return err
		}
		view = StakeView{UserStake: st, Owed: owed, At: now.Unix()}
		return nil
	})
	return view, err
}
