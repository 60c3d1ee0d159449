package presale

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xthemadgenius/SolContracts/internal/vesting"
)

func trancheFixture(t *testing.T) (*fixture, map[solana.PublicKey]*Allocation, solana.PublicKey, solana.PublicKey) {
	t.Helper()
	params := baseParams()
	params.AirdropPercentages = vesting.DefaultTranches()
	f := newFixture(t, params)

	allocs := make(map[solana.PublicKey]*Allocation)
	var buyers []solana.PublicKey
	for i := 0; i < 2; i++ {
		who, a := f.buyer(t, 850_000_000)
		_, err := f.ledger.Contribute(f.ctx, f.p, a, who, 850_000_000, 1_500)
		require.NoError(t, err)
		require.Equal(t, uint64(1_000), a.Total)
		allocs[who] = a
		buyers = append(buyers, who)
	}
	return f, allocs, buyers[0], buyers[1]
}

func TestDistributeAirdrops(t *testing.T) {
	f, allocs, b1, b2 := trancheFixture(t)

	_, err := f.ledger.DistributeAirdrops(f.ctx, f.p, allocs, b1, []AirdropInstruction{{Recipient: b1}}, 2_500)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.ledger.DistributeAirdrops(f.ctx, f.p, allocs, f.admin, nil, 2_500)
	assert.ErrorIs(t, err, ErrEmptyBatch)

	_, err = f.ledger.DistributeAirdrops(f.ctx, f.p, allocs, f.admin, make([]AirdropInstruction, MaxBatchSize+1), 2_500)
	assert.ErrorIs(t, err, ErrBatchTooLarge)

	upfront := []AirdropInstruction{{Recipient: b1, TrancheIndex: 0}, {Recipient: b2, TrancheIndex: 0}}
	_, err = f.ledger.DistributeAirdrops(f.ctx, f.p, allocs, f.admin, upfront, 2_499)
	assert.ErrorIs(t, err, ErrAirdropNotDue)

	results, err := f.ledger.DistributeAirdrops(f.ctx, f.p, allocs, f.admin, upfront, 2_500)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, uint64(100), results[0].Amount)
	assert.Equal(t, uint64(100), f.bank.Balance(f.p.Mint, b1))
	assert.Equal(t, uint64(100), f.bank.Balance(f.p.Mint, b2))
	assert.Equal(t, 1, allocs[b1].AirdropsCompleted)

	_, err = f.ledger.DistributeAirdrops(f.ctx, f.p, allocs, f.admin, upfront, 2_600)
	assert.ErrorIs(t, err, ErrAirdropCompleted)
}

func TestDistributeAirdropsIsAtomic(t *testing.T) {
	f, allocs, b1, b2 := trancheFixture(t)

	_, err := f.ledger.DistributeAirdrops(f.ctx, f.p, allocs, f.admin, []AirdropInstruction{
		{Recipient: b1, TrancheIndex: 0},
		{Recipient: b2, TrancheIndex: 5},
	}, 3_000)
	assert.ErrorIs(t, err, ErrAirdropNotDue)
	assert.Zero(t, allocs[b1].AirdropsCompleted)
	assert.Zero(t, allocs[b1].Claimed)
	assert.Zero(t, f.bank.Balance(f.p.Mint, b1))

	_, err = f.ledger.DistributeAirdrops(f.ctx, f.p, allocs, f.admin, []AirdropInstruction{
		{Recipient: b1, TrancheIndex: 0},
		{Recipient: b1, TrancheIndex: 11},
	}, 3_000)
	assert.ErrorIs(t, err, ErrInvalidTrancheIndex)

	_, err = f.ledger.DistributeAirdrops(f.ctx, f.p, allocs, f.admin, []AirdropInstruction{
		{Recipient: solana.NewWallet().PublicKey(), TrancheIndex: 0},
	}, 3_000)
	assert.ErrorIs(t, err, ErrAllocationNotFound)

	// consecutive tranches of one recipient in one batch
	results, err := f.ledger.DistributeAirdrops(f.ctx, f.p, allocs, f.admin, []AirdropInstruction{
		{Recipient: b1, TrancheIndex: 0},
		{Recipient: b1, TrancheIndex: 1},
		{Recipient: b1, TrancheIndex: 2},
	}, 2_700)
	require.NoError(t, err)
	assert.Equal(t, []uint64{100, 90, 90}, []uint64{results[0].Amount, results[1].Amount, results[2].Amount})
	assert.Equal(t, uint64(280), allocs[b1].Claimed)
	assert.Equal(t, 3, allocs[b1].AirdropsCompleted)
	assert.Zero(t, allocs[b2].Claimed)
}

func TestAirdropsAndClaimsShareCounter(t *testing.T) {
	f, allocs, b1, _ := trancheFixture(t)

	amount, err := f.ledger.Claim(f.ctx, f.p, allocs[b1], b1, 0, 2_650)
	require.NoError(t, err)
	assert.Equal(t, uint64(190), amount)

	results, err := f.ledger.DistributeAirdrops(f.ctx, f.p, allocs, f.admin, []AirdropInstruction{
		{Recipient: b1, TrancheIndex: 0},
		{Recipient: b1, TrancheIndex: 1},
		{Recipient: b1, TrancheIndex: 2},
	}, 2_700)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), results[0].Amount)
	assert.Equal(t, uint64(0), results[1].Amount)
	assert.Equal(t, uint64(90), results[2].Amount)
	assert.Equal(t, uint64(280), f.bank.Balance(f.p.Mint, b1))
}

func TestDistributeAirdropsNeedsTranches(t *testing.T) {
	f := newFixture(t, baseParams())
	_, err := f.ledger.DistributeAirdrops(f.ctx, f.p, nil, f.admin, []AirdropInstruction{{}}, 5_000)
	assert.ErrorIs(t, err, ErrAirdropConfiguration)
}
