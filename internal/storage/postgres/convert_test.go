package postgres

import (
	"math"
	"math/big"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xthemadgenius/SolContracts/internal/fixedpoint"
	"github.com/xthemadgenius/SolContracts/internal/presale"
	"github.com/xthemadgenius/SolContracts/internal/storage/models"
	"github.com/xthemadgenius/SolContracts/internal/yield"
)

func TestPresaleMapping(t *testing.T) {
	p := &presale.Presale{
		Address:              solana.NewWallet().PublicKey(),
		Admin:                solana.NewWallet().PublicKey(),
		Mint:                 solana.NewWallet().PublicKey(),
		PaymentMint:          solana.SolMint,
		Treasury:             solana.NewWallet().PublicKey(),
		Vault:                solana.NewWallet().PublicKey(),
		PublicSalePrice:      math.MaxUint64,
		DiscountPercent:      15,
		MaxTokens:            1_000,
		CliffTimestamp:       -5,
		AirdropPercentages:   []uint8{10, 90},
		TotalTokensAllocated: 12,
		Paused:               true,
	}

	m := presaleToModel(p)
	assert.Equal(t, "18446744073709551615", m.PublicSalePrice.String())

	back, err := presaleFromModel(m)
	require.NoError(t, err)
	assert.Equal(t, p, back)
}

func TestPoolMappingKeepsWideAccumulator(t *testing.T) {
	wide, ok := new(big.Int).SetString("123456789012345678901234567890", 10)
	require.True(t, ok)
	rps, err := fixedpoint.U128FromBig(wide)
	require.NoError(t, err)

	p := &yield.Pool{
		Address:        solana.NewWallet().PublicKey(),
		Admin:          solana.NewWallet().PublicKey(),
		StakeMint:      solana.NewWallet().PublicKey(),
		RewardMint:     solana.NewWallet().PublicKey(),
		StakeVault:     solana.NewWallet().PublicKey(),
		RewardVault:    solana.NewWallet().PublicKey(),
		RewardRate:     7,
		RewardPerShare: rps,
		TotalStaked:    3,
	}
	m := poolToModel(p)
	assert.Equal(t, wide.String(), m.RewardPerShare.String())

	back, err := poolFromModel(m)
	require.NoError(t, err)
	assert.Zero(t, fixedpoint.U128Cmp(p.RewardPerShare, back.RewardPerShare))
	assert.Equal(t, p.TotalStaked, back.TotalStaked)
	assert.True(t, p.RewardVault.Equals(back.RewardVault))
}

func TestDecodeRejectsBadColumns(t *testing.T) {
	m := allocationToModel(&presale.Allocation{
		Address:     solana.NewWallet().PublicKey(),
		Presale:     solana.NewWallet().PublicKey(),
		Contributor: solana.NewWallet().PublicKey(),
	})

	m.TotalTokens = decimal.NewFromInt(-1)
	_, err := allocationFromModel(m)
	assert.Error(t, err)

	m.TotalTokens = decimal.NewFromInt(1)
	m.Contributor = "not-a-key"
	_, err = allocationFromModel(m)
	assert.Error(t, err)

	_, err = stakeFromModel(&models.UserStake{Address: "x"})
	assert.Error(t, err)

	pm := poolToModel(&yield.Pool{
		Address:        solana.NewWallet().PublicKey(),
		Admin:          solana.NewWallet().PublicKey(),
		StakeMint:      solana.NewWallet().PublicKey(),
		RewardMint:     solana.NewWallet().PublicKey(),
		StakeVault:     solana.NewWallet().PublicKey(),
		RewardVault:    solana.NewWallet().PublicKey(),
		RewardPerShare: fixedpoint.ZeroU128(),
	})
	_, err = poolFromModel(pm)
	require.NoError(t, err)
	pm.RewardPerShare = decimal.RequireFromString("1.5")
	_, err = poolFromModel(pm)
	assert.Error(t, err)
}

func TestAllocationMappingKeepsCost(t *testing.T) {
	a := &presale.Allocation{
		Address:        solana.NewWallet().PublicKey(),
		Presale:        solana.NewWallet().PublicKey(),
		Contributor:    solana.NewWallet().PublicKey(),
		Contributed:    4_000_000,
		Cost:           3_400_000,
		CliffTimestamp: 2_500,
		StartTime:      2_500,
	}
	a.Total = 4

	m := allocationToModel(a)
	assert.Equal(t, "3400000", m.Cost.String())

	back, err := allocationFromModel(m)
	require.NoError(t, err)
	assert.Equal(t, a, back)
}
