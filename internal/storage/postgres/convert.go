// internal/storage/postgres/convert.go
package postgres

import (
	"fmt"
	"math/big"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/xthemadgenius/SolContracts/internal/fixedpoint"
	"github.com/xthemadgenius/SolContracts/internal/presale"
	"github.com/xthemadgenius/SolContracts/internal/storage/models"
	"github.com/xthemadgenius/SolContracts/internal/vesting"
	"github.com/xthemadgenius/SolContracts/internal/yield"
)

func dec(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

func dec128(v bin.Uint128) decimal.Decimal {
	return decimal.NewFromBigInt(fixedpoint.U128ToBig(v), 0)
}

// decoder collects the first conversion failure so record mapping stays linear.
type decoder struct {
	err error
}

func (d *decoder) u64(v decimal.Decimal) uint64 {
	if d.err != nil {
		return 0
	}
	out, err := fixedpoint.BigToUint64(v.BigInt())
	if err != nil || !v.IsInteger() {
		d.err = fmt.Errorf("column value %s is not a u64", v)
	}
	return out
}

func (d *decoder) u128(v decimal.Decimal) bin.Uint128 {
	if d.err != nil {
		return fixedpoint.ZeroU128()
	}
	out, err := fixedpoint.U128FromString(v.String())
	if err != nil {
		d.err = fmt.Errorf("column value %s is not a u128", v)
	}
	return out
}

func (d *decoder) key(s string) solana.PublicKey {
	if d.err != nil {
		return solana.PublicKey{}
	}
	k, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		d.err = fmt.Errorf("column value %q: %w", s, err)
	}
	return k
}

func presaleToModel(p *presale.Presale) *models.Presale {
	return &models.Presale{
		Address:              p.Address.String(),
		Admin:                p.Admin.String(),
		Mint:                 p.Mint.String(),
		PaymentMint:          p.PaymentMint.String(),
		Treasury:             p.Treasury.String(),
		Vault:                p.Vault.String(),
		PublicSalePrice:      dec(p.PublicSalePrice),
		DiscountPercent:      dec(p.DiscountPercent),
		MaxTokens:            dec(p.MaxTokens),
		MaxSol:               dec(p.MaxSol),
		MinPurchase:          dec(p.MinPurchase),
		MaxPurchase:          dec(p.MaxPurchase),
		PriceFeed:            p.PriceFeed,
		UsdPrice:             dec(p.UsdPrice),
		ManualPriceOverride:  dec(p.ManualPriceOverride),
		MaxManualPrice:       dec(p.MaxManualPrice),
		PresaleStart:         p.PresaleStart,
		PresaleEnd:           p.PresaleEnd,
		PublicSaleStart:      p.PublicSaleStart,
		CliffPeriod:          p.CliffPeriod,
		CliffTimestamp:       p.CliffTimestamp,
		VestingPeriod:        p.VestingPeriod,
		VestingInterval:      p.VestingInterval,
		AirdropPercentages:   p.AirdropPercentages,
		TotalTokensAllocated: dec(p.TotalTokensAllocated),
		TotalSolCollected:    dec(p.TotalSolCollected),
		Contributors:         dec(p.Contributors),
		IsClosed:             p.IsClosed,
		Paused:               p.Paused,
	}
}

func presaleFromModel(m *models.Presale) (*presale.Presale, error) {
	var d decoder
	p := &presale.Presale{
		Address:              d.key(m.Address),
		Admin:                d.key(m.Admin),
		Mint:                 d.key(m.Mint),
		PaymentMint:          d.key(m.PaymentMint),
		Treasury:             d.key(m.Treasury),
		Vault:                d.key(m.Vault),
		PublicSalePrice:      d.u64(m.PublicSalePrice),
		DiscountPercent:      d.u64(m.DiscountPercent),
		MaxTokens:            d.u64(m.MaxTokens),
		MaxSol:               d.u64(m.MaxSol),
		MinPurchase:          d.u64(m.MinPurchase),
		MaxPurchase:          d.u64(m.MaxPurchase),
		PriceFeed:            m.PriceFeed,
		UsdPrice:             d.u64(m.UsdPrice),
		ManualPriceOverride:  d.u64(m.ManualPriceOverride),
		MaxManualPrice:       d.u64(m.MaxManualPrice),
		PresaleStart:         m.PresaleStart,
		PresaleEnd:           m.PresaleEnd,
		PublicSaleStart:      m.PublicSaleStart,
		CliffPeriod:          m.CliffPeriod,
		CliffTimestamp:       m.CliffTimestamp,
		VestingPeriod:        m.VestingPeriod,
		VestingInterval:      m.VestingInterval,
		AirdropPercentages:   m.AirdropPercentages,
		TotalTokensAllocated: d.u64(m.TotalTokensAllocated),
		TotalSolCollected:    d.u64(m.TotalSolCollected),
		Contributors:         d.u64(m.Contributors),
		IsClosed:             m.IsClosed,
		Paused:               m.Paused,
	}
	if d.err != nil {
		return nil, fmt.Errorf("presale %s: %w", m.Address, d.err)
	}
	return p, nil
}

func allocationToModel(a *presale.Allocation) *models.Allocation {
	return &models.Allocation{
		Address:           a.Address.String(),
		Presale:           a.Presale.String(),
		Contributor:       a.Contributor.String(),
		TotalTokens:       dec(a.Total),
		ClaimedTokens:     dec(a.Claimed),
		AirdropsCompleted: a.AirdropsCompleted,
		Contributed:       dec(a.Contributed),
		Cost:              dec(a.Cost),
		CliffTimestamp:    a.CliffTimestamp,
		StartTime:         a.StartTime,
	}
}

func allocationFromModel(m *models.Allocation) (*presale.Allocation, error) {
	var d decoder
	a := &presale.Allocation{
		Address:     d.key(m.Address),
		Presale:     d.key(m.Presale),
		Contributor: d.key(m.Contributor),
		Entitlement: vesting.Entitlement{
			Total:             d.u64(m.TotalTokens),
			Claimed:           d.u64(m.ClaimedTokens),
			AirdropsCompleted: m.AirdropsCompleted,
		},
		Contributed:    d.u64(m.Contributed),
		Cost:           d.u64(m.Cost),
		CliffTimestamp: m.CliffTimestamp,
		StartTime:      m.StartTime,
	}
	if d.err != nil {
		return nil, fmt.Errorf("allocation %s: %w", m.Address, d.err)
	}
	return a, nil
}

func poolToModel(p *yield.Pool) *models.Pool {
	return &models.Pool{
		Address:        p.Address.String(),
		Admin:          p.Admin.String(),
		StakeMint:      p.StakeMint.String(),
		RewardMint:     p.RewardMint.String(),
		StakeVault:     p.StakeVault.String(),
		RewardVault:    p.RewardVault.String(),
		RewardRate:     dec(p.RewardRate),
		LastUpdate:     p.LastUpdate,
		RewardPerShare: dec128(p.RewardPerShare),
		TotalStaked:    dec(p.TotalStaked),
		Stakers:        dec(p.Stakers),
	}
}

func poolFromModel(m *models.Pool) (*yield.Pool, error) {
	var d decoder
	p := &yield.Pool{
		Address:        d.key(m.Address),
		Admin:          d.key(m.Admin),
		StakeMint:      d.key(m.StakeMint),
		RewardMint:     d.key(m.RewardMint),
		StakeVault:     d.key(m.StakeVault),
		RewardVault:    d.key(m.RewardVault),
		RewardRate:     d.u64(m.RewardRate),
		LastUpdate:     m.LastUpdate,
		RewardPerShare: d.u128(m.RewardPerShare),
		TotalStaked:    d.u64(m.TotalStaked),
		Stakers:        d.u64(m.Stakers),
	}
	if d.err != nil {
		return nil, fmt.Errorf("pool %s: %w", m.Address, d.err)
	}
	return p, nil
}

func stakeToModel(s *yield.UserStake) *models.UserStake {
	return &models.UserStake{
		Address:    s.Address.String(),
		Pool:       s.Pool.String(),
		Owner:      s.Owner.String(),
		Amount:     dec(s.Amount),
		RewardDebt: dec128(s.RewardDebt),
		Unclaimed:  dec(s.Unclaimed),
	}
}

func stakeFromModel(m *models.UserStake) (*yield.UserStake, error) {
	var d decoder
	s := &yield.UserStake{
		Address:    d.key(m.Address),
		Pool:       d.key(m.Pool),
		Owner:      d.key(m.Owner),
		Amount:     d.u64(m.Amount),
		RewardDebt: d.u128(m.RewardDebt),
		Unclaimed:  d.u64(m.Unclaimed),
	}
	if d.err != nil {
		return nil, fmt.Errorf("user stake %s: %w", m.Address, d.err)
	}
	return s, nil
}
