package presale

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xthemadgenius/SolContracts/internal/oracle"
	"github.com/xthemadgenius/SolContracts/internal/transfer"
)

func TestDiscountedPrice(t *testing.T) {
	p, err := DiscountedPrice(1_000_000, 15)
	require.NoError(t, err)
	assert.Equal(t, uint64(850_000), p)

	// truncates
	p, err = DiscountedPrice(999, 15)
	require.NoError(t, err)
	assert.Equal(t, uint64(849), p)

	_, err = DiscountedPrice(1, 101)
	assert.ErrorIs(t, err, ErrInvalidDiscount)

	tokens, err := TokensFor(4_000_000, 850_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), tokens)

	_, err = TokensFor(1, 0)
	assert.ErrorIs(t, err, ErrInvalidPrice)

	lamports, err := UsdToLamports(1_500_000, 150*oracle.MicroUSD)
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000_000), lamports)
}

func TestOraclePricedContribution(t *testing.T) {
	ctx := context.Background()
	feed := oracle.NewManualOracle()
	feed.Set("SOL", 150*oracle.MicroUSD, time.Now())

	bank := transfer.NewBank()
	ledger := NewLedger(programID, bank, oracle.NewResolver(feed, 0, zap.NewNop()))

	params := baseParams()
	params.PublicSalePrice = 0
	params.PriceFeed = "SOL"
	params.UsdPrice = 1_500_000
	admin := solana.NewWallet().PublicKey()
	p, err := ledger.Initialize(admin, params)
	require.NoError(t, err)

	who := solana.NewWallet().PublicKey()
	require.NoError(t, bank.Credit(p.PaymentMint, who, 1_000_000_000))
	a, err := NewAllocation(programID, p, who)
	require.NoError(t, err)

	c, err := ledger.Contribute(ctx, p, a, who, 85_000_000, 1_500)
	require.NoError(t, err)
	assert.Equal(t, uint64(8_500_000), c.UnitPrice)
	assert.Equal(t, uint64(10), c.Tokens)

	feed.Fail(errors.New("feed down"))
	_, err = ledger.Contribute(ctx, p, a, who, 85_000_000, 1_500)
	assert.ErrorIs(t, err, ErrOracleUnavailable)
	assert.Equal(t, uint64(10), a.Total)

	require.NoError(t, ledger.SetManualPriceOverride(p, admin, 100*oracle.MicroUSD))
	c, err = ledger.Contribute(ctx, p, a, who, 25_500_000, 1_500)
	require.NoError(t, err)
	assert.Equal(t, uint64(12_750_000), c.UnitPrice)
	assert.Equal(t, uint64(2), c.Tokens)

	// without any oracle the override alone prices the sale
	offline := NewLedger(programID, bank, nil)
	unit, err := offline.UnitPrice(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, uint64(12_750_000), unit)

	p.ManualPriceOverride = 0
	_, err = offline.UnitPrice(ctx, p)
	assert.ErrorIs(t, err, ErrOracleUnavailable)
}
