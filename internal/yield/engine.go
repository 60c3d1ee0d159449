// internal/yield/engine.go
package yield

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/xthemadgenius/SolContracts/internal/fixedpoint"
	"github.com/xthemadgenius/SolContracts/internal/transfer"
)

// Engine runs staking operations. Each one updates the pool first and works on
// copies, so a failed call leaves the pool and the stake as they were.
type Engine struct {
	programID solana.PublicKey
	mover     transfer.Mover
}

func NewEngine(programID solana.PublicKey, mover transfer.Mover) *Engine {
	return &Engine{programID: programID, mover: mover}
}

// StakeReceipt describes a deposit.
type StakeReceipt struct {
	Amount   uint64
	Credited uint64
}

// WithdrawReceipt describes a withdrawal.
type WithdrawReceipt struct {
	Amount  uint64
	Rewards uint64
}

// InitializePool creates a pool owned by admin.
func (e *Engine) InitializePool(admin, stakeMint, rewardMint solana.PublicKey, rate uint64, now int64) (*Pool, error) {
	if admin.IsZero() || stakeMint.IsZero() || rewardMint.IsZero() {
		return nil, ErrConfigInvalid
	}
	addr, _, err := PoolAddress(e.programID, admin, stakeMint)
	if err != nil {
		return nil, fmt.Errorf("derive pool address: %w", err)
	}
	stakeVault, err := vaultAddress(e.programID, SeedStakeVault, addr)
	if err != nil {
		return nil, err
	}
	rewardVault, err := vaultAddress(e.programID, SeedRewardVault, addr)
	if err != nil {
		return nil, err
	}
	return &Pool{
		Address:        addr,
		Admin:          admin,
		StakeMint:      stakeMint,
		RewardMint:     rewardMint,
		StakeVault:     stakeVault,
		RewardVault:    rewardVault,
		RewardRate:     rate,
		LastUpdate:     now,
		RewardPerShare: fixedpoint.ZeroU128(),
	}, nil
}

// NewUserStake returns the empty position of owner, created on first stake.
func (e *Engine) NewUserStake(p *Pool, owner solana.PublicKey) (*UserStake, error) {
	addr, _, err := UserStakeAddress(e.programID, p.Address, owner)
	if err != nil {
		return nil, err
	}
	return &UserStake{
		Address:    addr,
		Pool:       p.Address,
		Owner:      owner,
		RewardDebt: fixedpoint.ZeroU128(),
	}, nil
}

// Stake deposits amount. Rewards pending on the old balance are credited to
// Unclaimed before the debt is reset.
func (e *Engine) Stake(ctx context.Context, p *Pool, s *UserStake, caller solana.PublicKey, amount uint64, now int64) (StakeReceipt, error) {
	if err := checkOwner(p, s, caller); err != nil {
		return StakeReceipt{}, err
	}
	if amount == 0 {
		return StakeReceipt{}, ErrInvalidAmount
	}

	pool, stake := *p, *s
	if err := pool.Update(now); err != nil {
		return StakeReceipt{}, err
	}
	pending, err := stake.Pending(&pool)
	if err != nil {
		return StakeReceipt{}, err
	}
	if stake.Unclaimed, err = fixedpoint.Add(stake.Unclaimed, pending); err != nil {
		return StakeReceipt{}, err
	}
	if stake.Amount, err = fixedpoint.Add(stake.Amount, amount); err != nil {
		return StakeReceipt{}, err
	}
	if pool.TotalStaked, err = fixedpoint.Add(pool.TotalStaked, amount); err != nil {
		return StakeReceipt{}, err
	}
	if s.Amount == 0 {
		pool.Stakers++
	}
	if err := stake.resetDebt(&pool); err != nil {
		return StakeReceipt{}, err
	}

	if err := e.mover.Transfer(ctx, transfer.Move{
		Asset:  p.StakeMint,
		From:   caller,
		To:     p.StakeVault,
		Amount: amount,
	}); err != nil {
		return StakeReceipt{}, fmt.Errorf("deposit stake: %w", err)
	}

	*p, *s = pool, stake
	return StakeReceipt{Amount: amount, Credited: pending}, nil
}

// Withdraw pays out owed rewards, then returns amount of principal.
func (e *Engine) Withdraw(ctx context.Context, p *Pool, s *UserStake, caller solana.PublicKey, amount uint64, now int64) (WithdrawReceipt, error) {
	if err := checkOwner(p, s, caller); err != nil {
		return WithdrawReceipt{}, err
	}
	if amount == 0 {
		return WithdrawReceipt{}, ErrInvalidAmount
	}
	if amount > s.Amount {
		return WithdrawReceipt{}, ErrInsufficientStaked
	}

	pool, stake := *p, *s
	if err := pool.Update(now); err != nil {
		return WithdrawReceipt{}, err
	}
	owed, err := stake.Owed(&pool)
	if err != nil {
		return WithdrawReceipt{}, err
	}
	stake.Amount -= amount
	if pool.TotalStaked, err = fixedpoint.Sub(pool.TotalStaked, amount); err != nil {
		return WithdrawReceipt{}, err
	}
	if stake.Amount == 0 && pool.Stakers > 0 {
		pool.Stakers--
	}
	stake.Unclaimed = 0
	if err := stake.resetDebt(&pool); err != nil {
		return WithdrawReceipt{}, err
	}

	if err := e.mover.Transfer(ctx,
		transfer.Move{Asset: p.RewardMint, From: p.RewardVault, To: s.Owner, Amount: owed},
		transfer.Move{Asset: p.StakeMint, From: p.StakeVault, To: s.Owner, Amount: amount},
	); err != nil {
		return WithdrawReceipt{}, fmt.Errorf("withdraw stake: %w", err)
	}

	*p, *s = pool, stake
	return WithdrawReceipt{Amount: amount, Rewards: owed}, nil
}

// Claim pays out owed rewards and resets the debt.
func (e *Engine) Claim(ctx context.Context, p *Pool, s *UserStake, caller solana.PublicKey, now int64) (uint64, error) {
	if err := checkOwner(p, s, caller); err != nil {
		return 0, err
	}

	pool, stake := *p, *s
	if err := pool.Update(now); err != nil {
		return 0, err
	}
	owed, err := stake.Owed(&pool)
	if err != nil {
		return 0, err
	}
	stake.Unclaimed = 0
	if err := stake.resetDebt(&pool); err != nil {
		return 0, err
	}

	if err := e.mover.Transfer(ctx, transfer.Move{
		Asset:  p.RewardMint,
		From:   p.RewardVault,
		To:     s.Owner,
		Amount: owed,
	}); err != nil {
		return 0, fmt.Errorf("pay rewards: %w", err)
	}

	*p, *s = pool, stake
	return owed, nil
}

// SetRewardRate accrues everything earned at the old rate before switching.
func (e *Engine) SetRewardRate(p *Pool, caller solana.PublicKey, rate uint64, now int64) error {
	if !caller.Equals(p.Admin) {
		return ErrUnauthorized
	}
	pool := *p
	if err := pool.Update(now); err != nil {
		return err
	}
	pool.RewardRate = rate
	*p = pool
	return nil
}

// FundRewards moves reward tokens from funder into the reward vault.
func (e *Engine) FundRewards(ctx context.Context, p *Pool, funder solana.PublicKey, amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	return e.mover.Transfer(ctx, transfer.Move{
		Asset:  p.RewardMint,
		From:   funder,
		To:     p.RewardVault,
		Amount: amount,
	})
}

func checkOwner(p *Pool, s *UserStake, caller solana.PublicKey) error {
	if !s.Pool.Equals(p.Address) {
		return ErrInvalidPoolAccount
	}
	if !s.Owner.Equals(caller) {
		return ErrInvalidOwner
	}
	return nil
}
