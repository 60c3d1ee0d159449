// internal/presale/presale.go
package presale

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/xthemadgenius/SolContracts/internal/oracle"
	"github.com/xthemadgenius/SolContracts/internal/vesting"
)

const (
	// DefaultDiscountPercent is the presale discount off the public sale price.
	DefaultDiscountPercent uint64 = 15
	// MaxBatchSize bounds one airdrop distribution call.
	MaxBatchSize = 50
	// LamportsPerSol converts SOL to lamports.
	LamportsPerSol uint64 = 1_000_000_000
)

// Seeds of the program derived addresses.
const (
	SeedPresale    = "presale"
	SeedAllocation = "allocation"
	SeedTreasury   = "treasury"
	SeedVault      = "vault"
)

// Params are the admin supplied settings of a new presale.
type Params struct {
	Mint        solana.PublicKey
	PaymentMint solana.PublicKey

	PublicSalePrice uint64
	DiscountPercent uint64
	MaxTokens       uint64
	MaxSol          uint64
	MinPurchase     uint64
	MaxPurchase     uint64

	// PriceFeed switches pricing to UsdPrice (micro-USD per token) converted
	// through the feed's SOL/USD quote.
	PriceFeed      string
	UsdPrice       uint64
	MaxManualPrice uint64

	PresaleStart    int64
	PresaleEnd      int64
	PublicSaleStart int64
	CliffPeriod     int64
	VestingPeriod   int64
	VestingInterval int64

	AirdropPercentages []uint8
}

// Validate reports the first invalid field wrapped in ErrConfigInvalid.
func (p Params) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s", ErrConfigInvalid, fmt.Sprintf(format, args...))
	}

	switch {
	case p.Mint.IsZero():
		return invalid("mint is required")
	case p.PaymentMint.IsZero():
		return invalid("payment mint is required")
	case p.VestingPeriod <= 0:
		return invalid("vesting_period must be positive")
	case p.VestingInterval <= 0:
		return invalid("vesting_interval must be positive")
	case p.VestingInterval > p.VestingPeriod:
		return invalid("vesting_interval exceeds vesting_period")
	case p.CliffPeriod < 0 || p.CliffPeriod > p.VestingPeriod:
		return invalid("cliff exceeds vesting_period")
	case p.PresaleStart >= p.PresaleEnd:
		return invalid("presale_start must precede presale_end")
	case p.PublicSaleStart <= p.PresaleEnd:
		return invalid("public_sale_start must follow presale_end")
	case p.DiscountPercent >= 100:
		return fmt.Errorf("%w: %w", ErrConfigInvalid, ErrInvalidDiscount)
	case p.MaxTokens == 0 || p.MaxSol == 0:
		return invalid("caps must be positive")
	case p.MaxPurchase != 0 && p.MinPurchase > p.MaxPurchase:
		return invalid("min_purchase exceeds max_purchase")
	}

	if p.PriceFeed == "" && p.PublicSalePrice == 0 {
		return invalid("public_sale_price must be positive")
	}
	if p.PriceFeed != "" && p.UsdPrice == 0 {
		return invalid("usd_price must be positive for oracle pricing")
	}
	if p.AirdropPercentages != nil {
		if err := vesting.ValidateTranches(p.AirdropPercentages, vesting.MaxTranches); err != nil {
			return invalid("airdrop percentages: %v", err)
		}
	}
	return nil
}

// Presale is the global record of one sale: parameters, aggregate counters and
// lifecycle flags. Counters only shrink through refunds.
type Presale struct {
	Address     solana.PublicKey
	Admin       solana.PublicKey
	Mint        solana.PublicKey
	PaymentMint solana.PublicKey
	Treasury    solana.PublicKey
	Vault       solana.PublicKey

	PublicSalePrice uint64
	DiscountPercent uint64
	MaxTokens       uint64
	MaxSol          uint64
	MinPurchase     uint64
	MaxPurchase     uint64

	PriceFeed           string
	UsdPrice            uint64
	ManualPriceOverride uint64
	MaxManualPrice      uint64

	PresaleStart    int64
	PresaleEnd      int64
	PublicSaleStart int64
	CliffPeriod     int64
	CliffTimestamp  int64
	VestingPeriod   int64
	VestingInterval int64

	AirdropPercentages []uint8

	TotalTokensAllocated uint64
	TotalSolCollected    uint64
	Contributors         uint64

	IsClosed bool
	Paused   bool
}

// Timetable returns the release calendar. Vesting starts at the cliff.
func (p *Presale) Timetable() vesting.Timetable {
	return vesting.Timetable{
		Cliff:    p.CliffTimestamp,
		Start:    p.CliffTimestamp,
		Period:   p.VestingPeriod,
		Interval: p.VestingInterval,
		Tranches: p.AirdropPercentages,
	}
}

// Active reports whether now falls inside the contribution window.
func (p *Presale) Active(now int64) bool {
	return now >= p.PresaleStart && now <= p.PresaleEnd
}

// Clone returns a deep copy.
func (p *Presale) Clone() *Presale {
	out := *p
	if p.AirdropPercentages != nil {
		out.AirdropPercentages = append([]uint8(nil), p.AirdropPercentages...)
	}
	return &out
}

func newPresale(address, admin solana.PublicKey, params Params, treasury, vault solana.PublicKey) *Presale {
	maxManual := params.MaxManualPrice
	if maxManual == 0 {
		maxManual = oracle.DefaultMaxManualPrice
	}
	return &Presale{
		Address:            address,
		Admin:              admin,
		Mint:               params.Mint,
		PaymentMint:        params.PaymentMint,
		Treasury:           treasury,
		Vault:              vault,
		PublicSalePrice:    params.PublicSalePrice,
		DiscountPercent:    params.DiscountPercent,
		MaxTokens:          params.MaxTokens,
		MaxSol:             params.MaxSol,
		MinPurchase:        params.MinPurchase,
		MaxPurchase:        params.MaxPurchase,
		PriceFeed:          params.PriceFeed,
		UsdPrice:           params.UsdPrice,
		MaxManualPrice:     maxManual,
		PresaleStart:       params.PresaleStart,
		PresaleEnd:         params.PresaleEnd,
		PublicSaleStart:    params.PublicSaleStart,
		CliffPeriod:        params.CliffPeriod,
		CliffTimestamp:     params.PresaleEnd + params.CliffPeriod,
		VestingPeriod:      params.VestingPeriod,
		VestingInterval:    params.VestingInterval,
		AirdropPercentages: append([]uint8(nil), params.AirdropPercentages...),
	}
}

// Allocation is one contributor's entitlement in one presale.
type Allocation struct {
	Address     solana.PublicKey
	Presale     solana.PublicKey
	Contributor solana.PublicKey

	vesting.Entitlement

	// Contributed is the payment accepted so far, net of refunds.
	Contributed uint64
	// Cost is what the allocated tokens cost at their purchase prices. The
	// truncation dust between Contributed and Cost is never refunded.
	Cost           uint64
	CliffTimestamp int64
	StartTime      int64
}

// NewAllocation returns the empty allocation of contributor, created lazily on first purchase.
func NewAllocation(programID solana.PublicKey, p *Presale, contributor solana.PublicKey) (*Allocation, error) {
	addr, _, err := AllocationAddress(programID, contributor, p.Mint)
	if err != nil {
		return nil, err
	}
	return &Allocation{
		Address:        addr,
		Presale:        p.Address,
		Contributor:    contributor,
		CliffTimestamp: p.CliffTimestamp,
		StartTime:      p.CliffTimestamp,
	}, nil
}

// Vested returns the unlocked part of the allocation at now.
func (a *Allocation) Vested(p *Presale, now int64) uint64 {
	return a.Entitlement.Vested(p.Timetable(), now)
}

// Claimable returns the releasable amount at now, zero when none.
func (a *Allocation) Claimable(p *Presale, now int64) uint64 {
	c, err := a.Entitlement.Claimable(p.Timetable(), now)
	if err != nil {
		return 0
	}
	return c
}

// PresaleAddress derives the presale record address.
func PresaleAddress(programID, admin, mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte(SeedPresale), admin.Bytes(), mint.Bytes()}, programID)
}

// AllocationAddress derives the allocation address of contributor for mint.
func AllocationAddress(programID, contributor, mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte(SeedAllocation), contributor.Bytes(), mint.Bytes()}, programID)
}

func authorityAddress(programID solana.PublicKey, seed string, presale solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(seed), presale.Bytes()}, programID)
	return addr, err
}
