// internal/yield/pool.go
package yield

import (
	"math/big"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/xthemadgenius/SolContracts/internal/fixedpoint"
)

// Seeds of the program derived addresses.
const (
	SeedPool        = "pool"
	SeedUserStake   = "user_stake"
	SeedStakeVault  = "stake_vault"
	SeedRewardVault = "reward_vault"
)

// Pool accrues RewardRate reward units per second across all stakers. RewardPerShare
// is scaled by fixedpoint.Scale and only grows.
type Pool struct {
	Address     solana.PublicKey
	Admin       solana.PublicKey
	StakeMint   solana.PublicKey
	RewardMint  solana.PublicKey
	StakeVault  solana.PublicKey
	RewardVault solana.PublicKey

	RewardRate     uint64
	LastUpdate     int64
	RewardPerShare bin.Uint128
	TotalStaked    uint64
	Stakers        uint64
}

// Update accrues rewards up to now. The timestamp moves forward even when nothing
// is staked or the rate is zero, so rewards of an empty period are never handed
// to the next staker. It never moves backwards.
func (p *Pool) Update(now int64) error {
	if now <= p.LastUpdate {
		return nil
	}
	elapsed := uint64(now - p.LastUpdate)

	if p.TotalStaked > 0 && p.RewardRate > 0 {
		emitted := new(big.Int).SetUint64(elapsed)
		emitted.Mul(emitted, new(big.Int).SetUint64(p.RewardRate))
		inc, err := fixedpoint.MulDivBig(emitted, fixedpoint.ScaleBig(), new(big.Int).SetUint64(p.TotalStaked), fixedpoint.RoundDown)
		if err != nil {
			return err
		}

		rps, err := fixedpoint.U128FromBig(inc.Add(inc, fixedpoint.U128ToBig(p.RewardPerShare)))
		if err != nil {
			return err
		}
		p.RewardPerShare = rps
	}

	p.LastUpdate = now
	return nil
}

// UserStake is one staker's position in a pool.
type UserStake struct {
	Address solana.PublicKey
	Pool    solana.PublicKey
	Owner   solana.PublicKey

	Amount     uint64
	RewardDebt bin.Uint128
	// Unclaimed holds rewards settled on a balance change but not yet paid out.
	Unclaimed uint64
}

// accumulated returns amount * rps / Scale.
func accumulated(amount uint64, rps bin.Uint128) *big.Int {
	// Scale is never zero
	out, _ := fixedpoint.MulDivBig(new(big.Int).SetUint64(amount), fixedpoint.U128ToBig(rps), fixedpoint.ScaleBig(), fixedpoint.RoundDown)
	return out
}

// Pending returns rewards accrued since the last snapshot, saturating at zero.
// It does not include Unclaimed and does not update the pool.
func (s *UserStake) Pending(p *Pool) (uint64, error) {
	acc := accumulated(s.Amount, p.RewardPerShare)
	acc.Sub(acc, fixedpoint.U128ToBig(s.RewardDebt))
	if acc.Sign() <= 0 {
		return 0, nil
	}
	return fixedpoint.BigToUint64(acc)
}

// Owed returns everything payable right now: Unclaimed plus Pending.
func (s *UserStake) Owed(p *Pool) (uint64, error) {
	pending, err := s.Pending(p)
	if err != nil {
		return 0, err
	}
	return fixedpoint.Add(s.Unclaimed, pending)
}

// resetDebt snapshots the accumulator for the current balance.
func (s *UserStake) resetDebt(p *Pool) error {
	debt, err := fixedpoint.U128FromBig(accumulated(s.Amount, p.RewardPerShare))
	if err != nil {
		return err
	}
	s.RewardDebt = debt
	return nil
}

// PoolAddress derives the pool record address.
func PoolAddress(programID, admin, stakeMint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte(SeedPool), admin.Bytes(), stakeMint.Bytes()}, programID)
}

// UserStakeAddress derives the stake record of owner in pool.
func UserStakeAddress(programID, pool, owner solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte(SeedUserStake), pool.Bytes(), owner.Bytes()}, programID)
}

func vaultAddress(programID solana.PublicKey, seed string, pool solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(seed), pool.Bytes()}, programID)
	return addr, err
}
