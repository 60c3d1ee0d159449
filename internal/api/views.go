// internal/api/views.go
package api

import (
	"github.com/xthemadgenius/SolContracts/internal/fixedpoint"
	"github.com/xthemadgenius/SolContracts/internal/presale"
	"github.com/xthemadgenius/SolContracts/internal/service"
	"github.com/xthemadgenius/SolContracts/internal/yield"
)

type presaleResponse struct {
	Address     string `json:"address"`
	Admin       string `json:"admin"`
	Mint        string `json:"mint"`
	PaymentMint string `json:"payment_mint"`
	Treasury    string `json:"treasury"`
	Vault       string `json:"vault"`

	PublicSalePrice uint64 `json:"public_sale_price"`
	DiscountPercent uint64 `json:"discount_percent"`
	MaxTokens       uint64 `json:"max_tokens"`
	MaxSol          uint64 `json:"max_sol"`
	MinPurchase     uint64 `json:"min_purchase"`
	MaxPurchase     uint64 `json:"max_purchase"`

	PriceFeed           string `json:"price_feed,omitempty"`
	UsdPrice            uint64 `json:"usd_price,omitempty"`
	ManualPriceOverride uint64 `json:"manual_price_override"`
	MaxManualPrice      uint64 `json:"max_manual_price"`

	PresaleStart    int64 `json:"presale_start"`
	PresaleEnd      int64 `json:"presale_end"`
	PublicSaleStart int64 `json:"public_sale_start"`
	CliffPeriod     int64 `json:"cliff_period"`
	CliffTimestamp  int64 `json:"cliff_timestamp"`
	VestingPeriod   int64 `json:"vesting_period"`
	VestingInterval int64 `json:"vesting_interval"`

	AirdropPercentages []int `json:"airdrop_percentages,omitempty"`

	TotalTokensAllocated uint64 `json:"total_tokens_allocated"`
	TotalSolCollected    uint64 `json:"total_sol_collected"`
	Contributors         uint64 `json:"contributors"`
	IsClosed             bool   `json:"is_closed"`
	Paused               bool   `json:"paused"`

	PublicPrice uint64 `json:"public_price,omitempty"`
	UnitPrice   uint64 `json:"unit_price,omitempty"`
	At          int64  `json:"at,omitempty"`
}

func presaleView(p *presale.Presale) presaleResponse {
	out := presaleResponse{
		Address:              p.Address.String(),
		Admin:                p.Admin.String(),
		Mint:                 p.Mint.String(),
		PaymentMint:          p.PaymentMint.String(),
		Treasury:             p.Treasury.String(),
		Vault:                p.Vault.String(),
		PublicSalePrice:      p.PublicSalePrice,
		DiscountPercent:      p.DiscountPercent,
		MaxTokens:            p.MaxTokens,
		MaxSol:               p.MaxSol,
		MinPurchase:          p.MinPurchase,
		MaxPurchase:          p.MaxPurchase,
		PriceFeed:            p.PriceFeed,
		UsdPrice:             p.UsdPrice,
		ManualPriceOverride:  p.ManualPriceOverride,
		MaxManualPrice:       p.MaxManualPrice,
		PresaleStart:         p.PresaleStart,
		PresaleEnd:           p.PresaleEnd,
		PublicSaleStart:      p.PublicSaleStart,
		CliffPeriod:          p.CliffPeriod,
		CliffTimestamp:       p.CliffTimestamp,
		VestingPeriod:        p.VestingPeriod,
		VestingInterval:      p.VestingInterval,
		TotalTokensAllocated: p.TotalTokensAllocated,
		TotalSolCollected:    p.TotalSolCollected,
		Contributors:         p.Contributors,
		IsClosed:             p.IsClosed,
		Paused:               p.Paused,
	}
	// []uint8 would encode as base64
	for _, pct := range p.AirdropPercentages {
		out.AirdropPercentages = append(out.AirdropPercentages, int(pct))
	}
	return out
}

func presaleDetail(v service.PresaleView) presaleResponse {
	out := presaleView(v.Presale)
	out.PublicPrice = v.PublicPrice
	out.UnitPrice = v.UnitPrice
	out.At = v.At
	return out
}

type allocationResponse struct {
	Address           string `json:"address"`
	Presale           string `json:"presale"`
	Contributor       string `json:"contributor"`
	Total             uint64 `json:"total"`
	Claimed           uint64 `json:"claimed"`
	Contributed       uint64 `json:"contributed"`
	AirdropsCompleted int    `json:"airdrops_completed"`
	CliffTimestamp    int64  `json:"cliff_timestamp"`
	Vested            uint64 `json:"vested"`
	Claimable         uint64 `json:"claimable"`
	VestingEnd        int64  `json:"vesting_end"`
	At                int64  `json:"at"`
}

func allocationView(v service.AllocationView) allocationResponse {
	return allocationResponse{
		Address:           v.Address.String(),
		Presale:           v.Presale.String(),
		Contributor:       v.Contributor.String(),
		Total:             v.Total,
		Claimed:           v.Claimed,
		Contributed:       v.Contributed,
		AirdropsCompleted: v.AirdropsCompleted,
		CliffTimestamp:    v.CliffTimestamp,
		Vested:            v.Vested,
		Claimable:         v.Claimable,
		VestingEnd:        v.VestingEnd,
		At:                v.At,
	}
}

type poolResponse struct {
	Address     string `json:"address"`
	Admin       string `json:"admin"`
	StakeMint   string `json:"stake_mint"`
	RewardMint  string `json:"reward_mint"`
	StakeVault  string `json:"stake_vault"`
	RewardVault string `json:"reward_vault"`
	RewardRate  uint64 `json:"reward_rate"`
	LastUpdate  int64  `json:"last_update"`
	// RewardPerShare is decimal text; it does not fit a JSON number.
	RewardPerShare string `json:"reward_per_share"`
	TotalStaked    uint64 `json:"total_staked"`
	Stakers        uint64 `json:"stakers"`
}

func poolView(p *yield.Pool) poolResponse {
	return poolResponse{
		Address:        p.Address.String(),
		Admin:          p.Admin.String(),
		StakeMint:      p.StakeMint.String(),
		RewardMint:     p.RewardMint.String(),
		StakeVault:     p.StakeVault.String(),
		RewardVault:    p.RewardVault.String(),
		RewardRate:     p.RewardRate,
		LastUpdate:     p.LastUpdate,
		RewardPerShare: fixedpoint.U128String(p.RewardPerShare),
		TotalStaked:    p.TotalStaked,
		Stakers:        p.Stakers,
	}
}

type stakeResponse struct {
	Address   string `json:"address"`
	Pool      string `json:"pool"`
	Owner     string `json:"owner"`
	Amount    uint64 `json:"amount"`
	Unclaimed uint64 `json:"unclaimed"`
	Owed      uint64 `json:"owed"`
	At        int64  `json:"at"`
}

func stakeView(v service.StakeView) stakeResponse {
	return stakeResponse{
		Address:   v.Address.String(),
		Pool:      v.Pool.String(),
		Owner:     v.Owner.String(),
		Amount:    v.Amount,
		Unclaimed: v.Unclaimed,
		Owed:      v.Owed,
		At:        v.At,
	}
}
