package yield

import (
	"context"
	"math"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xthemadgenius/SolContracts/internal/fixedpoint"
	"github.com/xthemadgenius/SolContracts/internal/transfer"
)

var programID = solana.NewWallet().PublicKey()

type fixture struct {
	ctx    context.Context
	engine *Engine
	bank   *transfer.Bank
	admin  solana.PublicKey
	pool   *Pool
}

func newFixture(t *testing.T, rate uint64, now int64) *fixture {
	t.Helper()
	bank := transfer.NewBank()
	engine := NewEngine(programID, bank)
	admin := solana.NewWallet().PublicKey()

	pool, err := engine.InitializePool(admin, solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), rate, now)
	require.NoError(t, err)
	require.NoError(t, bank.Credit(pool.RewardMint, pool.RewardVault, 1_000_000_000))

	return &fixture{ctx: context.Background(), engine: engine, bank: bank, admin: admin, pool: pool}
}

func (f *fixture) staker(t *testing.T, funds uint64) (solana.PublicKey, *UserStake) {
	t.Helper()
	owner := solana.NewWallet().PublicKey()
	require.NoError(t, f.bank.Credit(f.pool.StakeMint, owner, funds))
	s, err := f.engine.NewUserStake(f.pool, owner)
	require.NoError(t, err)
	return owner, s
}

func TestSingleStakerEarnsRateTimesElapsed(t *testing.T) {
	cases := []struct {
		stake, rate uint64
		elapsed     int64
	}{
		{1_000, 10, 100},
		{3, 7, 100},
		{1_000_000_007, 13, 86_400},
		{1, math.MaxUint32, 1_000},
	}

	for _, c := range cases {
		f := newFixture(t, c.rate, 0)
		owner, s := f.staker(t, c.stake)
		_, err := f.engine.Stake(f.ctx, f.pool, s, owner, c.stake, 0)
		require.NoError(t, err)

		if c.rate*uint64(c.elapsed) > 1_000_000_000 {
			require.NoError(t, f.bank.Credit(f.pool.RewardMint, f.pool.RewardVault, c.rate*uint64(c.elapsed)))
		}

		got, err := f.engine.Claim(f.ctx, f.pool, s, owner, c.elapsed)
		require.NoError(t, err)
		want := c.rate * uint64(c.elapsed)
		assert.InDelta(t, float64(want), float64(got), 1, "stake=%d rate=%d", c.stake, c.rate)
		assert.Equal(t, got, f.bank.Balance(f.pool.RewardMint, owner))
	}
}

func TestUpdateAdvancesTimestampWithoutStake(t *testing.T) {
	f := newFixture(t, 10, 0)

	require.NoError(t, f.pool.Update(100))
	assert.Equal(t, int64(100), f.pool.LastUpdate)
	assert.Zero(t, fixedpoint.U128Cmp(f.pool.RewardPerShare, fixedpoint.ZeroU128()))

	// never backwards
	require.NoError(t, f.pool.Update(50))
	assert.Equal(t, int64(100), f.pool.LastUpdate)

	// a late staker only earns from the moment it stakes
	owner, s := f.staker(t, 1_000)
	_, err := f.engine.Stake(f.ctx, f.pool, s, owner, 1_000, 500)
	require.NoError(t, err)
	got, err := f.engine.Claim(f.ctx, f.pool, s, owner, 600)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), got)
}

func TestZeroRatePeriodAccruesNothing(t *testing.T) {
	f := newFixture(t, 0, 0)
	owner, s := f.staker(t, 1_000)
	_, err := f.engine.Stake(f.ctx, f.pool, s, owner, 1_000, 0)
	require.NoError(t, err)

	require.NoError(t, f.engine.SetRewardRate(f.pool, f.admin, 5, 1_000))
	assert.Equal(t, int64(1_000), f.pool.LastUpdate)

	got, err := f.engine.Claim(f.ctx, f.pool, s, owner, 1_100)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), got)
}

func TestTopUpKeepsPendingRewards(t *testing.T) {
	f := newFixture(t, 10, 0)
	owner, s := f.staker(t, 200)

	_, err := f.engine.Stake(f.ctx, f.pool, s, owner, 100, 0)
	require.NoError(t, err)

	r, err := f.engine.Stake(f.ctx, f.pool, s, owner, 100, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), r.Credited)
	assert.Equal(t, uint64(1_000), s.Unclaimed)
	assert.Equal(t, uint64(200), s.Amount)
	assert.Equal(t, uint64(200), f.pool.TotalStaked)
	assert.Equal(t, uint64(1), f.pool.Stakers)

	got, err := f.engine.Claim(f.ctx, f.pool, s, owner, 200)
	require.NoError(t, err)
	assert.Equal(t, uint64(2_000), got)
	assert.Zero(t, s.Unclaimed)
}

func TestRewardsSplitByShare(t *testing.T) {
	f := newFixture(t, 100, 0)
	alice, as := f.staker(t, 300)
	bob, bs := f.staker(t, 100)

	_, err := f.engine.Stake(f.ctx, f.pool, as, alice, 300, 0)
	require.NoError(t, err)
	_, err = f.engine.Stake(f.ctx, f.pool, bs, bob, 100, 0)
	require.NoError(t, err)

	a, err := f.engine.Claim(f.ctx, f.pool, as, alice, 100)
	require.NoError(t, err)
	b, err := f.engine.Claim(f.ctx, f.pool, bs, bob, 100)
	require.NoError(t, err)

	assert.InDelta(t, 7_500, float64(a), 1)
	assert.InDelta(t, 2_500, float64(b), 1)
	assert.Equal(t, as.Amount+bs.Amount, f.pool.TotalStaked)
}

func TestWithdraw(t *testing.T) {
	f := newFixture(t, 10, 0)
	owner, s := f.staker(t, 1_000)
	_, err := f.engine.Stake(f.ctx, f.pool, s, owner, 1_000, 0)
	require.NoError(t, err)

	_, err = f.engine.Withdraw(f.ctx, f.pool, s, owner, 1_001, 50)
	assert.ErrorIs(t, err, ErrInsufficientStaked)
	assert.Equal(t, int64(0), f.pool.LastUpdate)

	_, err = f.engine.Withdraw(f.ctx, f.pool, s, solana.NewWallet().PublicKey(), 1, 50)
	assert.ErrorIs(t, err, ErrInvalidOwner)

	r, err := f.engine.Withdraw(f.ctx, f.pool, s, owner, 400, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), r.Rewards)
	assert.Equal(t, uint64(600), s.Amount)
	assert.Equal(t, uint64(600), f.pool.TotalStaked)
	assert.Equal(t, uint64(400), f.bank.Balance(f.pool.StakeMint, owner))
	assert.Equal(t, uint64(1_000), f.bank.Balance(f.pool.RewardMint, owner))

	pending, err := s.Pending(f.pool)
	require.NoError(t, err)
	assert.Zero(t, pending)

	r, err = f.engine.Withdraw(f.ctx, f.pool, s, owner, 600, 200)
	require.NoError(t, err)
	assert.InDelta(t, 1_000, float64(r.Rewards), 1)
	assert.Zero(t, f.pool.TotalStaked)
	assert.Zero(t, f.pool.Stakers)
	assert.Equal(t, uint64(1_000), f.bank.Balance(f.pool.StakeMint, owner))
}

func TestWithdrawFailsWhenRewardVaultIsShort(t *testing.T) {
	f := newFixture(t, 10, 0)
	owner, s := f.staker(t, 1_000)
	_, err := f.engine.Stake(f.ctx, f.pool, s, owner, 1_000, 0)
	require.NoError(t, err)

	drain := solana.NewWallet().PublicKey()
	require.NoError(t, f.bank.Transfer(f.ctx, transfer.Move{Asset: f.pool.RewardMint, From: f.pool.RewardVault, To: drain, Amount: 1_000_000_000}))

	before := *f.pool
	_, err = f.engine.Withdraw(f.ctx, f.pool, s, owner, 1_000, 100)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, before, *f.pool)
	assert.Equal(t, uint64(1_000), s.Amount)
}

func TestSetRewardRateAccruesOldRateFirst(t *testing.T) {
	f := newFixture(t, 10, 0)
	owner, s := f.staker(t, 1_000)
	_, err := f.engine.Stake(f.ctx, f.pool, s, owner, 1_000, 0)
	require.NoError(t, err)

	assert.ErrorIs(t, f.engine.SetRewardRate(f.pool, owner, 20, 100), ErrUnauthorized)
	require.NoError(t, f.engine.SetRewardRate(f.pool, f.admin, 20, 100))
	assert.Equal(t, uint64(20), f.pool.RewardRate)

	got, err := f.engine.Claim(f.ctx, f.pool, s, owner, 200)
	require.NoError(t, err)
	assert.Equal(t, uint64(3_000), got)
}

func TestAccumulatorOverflow(t *testing.T) {
	f := newFixture(t, math.MaxUint64, 0)
	owner, s := f.staker(t, 1)
	_, err := f.engine.Stake(f.ctx, f.pool, s, owner, 1, 0)
	require.NoError(t, err)

	before := *f.pool
	_, err = f.engine.Claim(f.ctx, f.pool, s, owner, math.MaxInt64)
	assert.ErrorIs(t, err, ErrMathOverflow)
	assert.Equal(t, before, *f.pool)
}

func TestFundRewardsAndValidation(t *testing.T) {
	f := newFixture(t, 10, 0)
	funder := solana.NewWallet().PublicKey()
	require.NoError(t, f.bank.Credit(f.pool.RewardMint, funder, 500))

	assert.ErrorIs(t, f.engine.FundRewards(f.ctx, f.pool, funder, 0), ErrInvalidAmount)
	require.NoError(t, f.engine.FundRewards(f.ctx, f.pool, funder, 500))
	assert.Equal(t, uint64(1_000_000_500), f.bank.Balance(f.pool.RewardMint, f.pool.RewardVault))

	owner, s := f.staker(t, 10)
	_, err := f.engine.Stake(f.ctx, f.pool, s, owner, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	other, err := f.engine.InitializePool(f.admin, solana.NewWallet().PublicKey(), f.pool.RewardMint, 1, 0)
	require.NoError(t, err)
	_, err = f.engine.Stake(f.ctx, other, s, owner, 1, 0)
	assert.ErrorIs(t, err, ErrInvalidPoolAccount)

	_, err = f.engine.InitializePool(solana.PublicKey{}, f.pool.StakeMint, f.pool.RewardMint, 1, 0)
	assert.ErrorIs(t, err, ErrConfigInvalid)
}
