// internal/presale/ledger.go
package presale

import (
	"context"
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"

	"github.com/xthemadgenius/SolContracts/internal/fixedpoint"
	"github.com/xthemadgenius/SolContracts/internal/oracle"
	"github.com/xthemadgenius/SolContracts/internal/transfer"
)

// Ledger runs presale operations against records owned by the caller. Every
// operation validates first, then moves assets, then mutates the records it was
// given; a failure leaves them untouched.
type Ledger struct {
	programID solana.PublicKey
	mover     transfer.Mover
	prices    PriceResolver
}

// NewLedger builds a ledger. prices may be nil when no presale uses a price feed.
func NewLedger(programID solana.PublicKey, mover transfer.Mover, prices PriceResolver) *Ledger {
	return &Ledger{
		programID: programID,
		mover:     mover,
		prices:    prices,
	}
}

// ProgramID returns the program id used for address derivation.
func (l *Ledger) ProgramID() solana.PublicKey {
	return l.programID
}

// Contribution describes an accepted purchase.
type Contribution struct {
	Requested uint64
	Accepted  uint64
	Tokens    uint64
	UnitPrice uint64
	Clipped   bool
}

// RefundReceipt describes a processed refund.
type RefundReceipt struct {
	Tokens uint64
	Value  uint64
}

// Initialize creates a presale owned by admin.
func (l *Ledger) Initialize(admin solana.PublicKey, params Params) (*Presale, error) {
	if admin.IsZero() {
		return nil, ErrUnauthorized
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	addr, _, err := PresaleAddress(l.programID, admin, params.Mint)
	if err != nil {
		return nil, fmt.Errorf("derive presale address: %w", err)
	}
	treasury, err := authorityAddress(l.programID, SeedTreasury, addr)
	if err != nil {
		return nil, fmt.Errorf("derive treasury: %w", err)
	}
	vault, err := authorityAddress(l.programID, SeedVault, addr)
	if err != nil {
		return nil, fmt.Errorf("derive vault: %w", err)
	}
	return newPresale(addr, admin, params, treasury, vault), nil
}

// Contribute buys tokens for caller with amountPaid of the payment asset. A payment
// beyond the remaining cap headroom is clipped to the headroom.
func (l *Ledger) Contribute(ctx context.Context, p *Presale, a *Allocation, caller solana.PublicKey, amountPaid uint64, now int64) (Contribution, error) {
	switch {
	case p.IsClosed:
		return Contribution{}, ErrPresaleClosed
	case !p.Active(now):
		return Contribution{}, ErrNotActive
	case p.Paused:
		return Contribution{}, ErrPaused
	}
	if err := checkOwner(p, a, caller); err != nil {
		return Contribution{}, err
	}
	if amountPaid == 0 {
		return Contribution{}, ErrInvalidContribution
	}
	if p.MinPurchase > 0 && amountPaid < p.MinPurchase {
		return Contribution{}, ErrBelowMinimumPurchase
	}

	unit, err := l.UnitPrice(ctx, p)
	if err != nil {
		return Contribution{}, err
	}

	headroom := paymentHeadroom(p, unit)
	if headroom == 0 {
		return Contribution{}, ErrPresaleLimitReached
	}
	accepted := fixedpoint.Min(amountPaid, headroom)
	tokens, err := TokensFor(accepted, unit)
	if err != nil {
		return Contribution{}, err
	}
	if tokens == 0 {
		return Contribution{}, ErrInvalidContribution
	}

	contributed, err := fixedpoint.Add(a.Contributed, accepted)
	if err != nil {
		return Contribution{}, err
	}
	if p.MaxPurchase > 0 && contributed > p.MaxPurchase {
		return Contribution{}, ErrExceedsMaximumPurchase
	}
	collected, err := fixedpoint.Add(p.TotalSolCollected, accepted)
	if err != nil {
		return Contribution{}, err
	}
	allocated, err := fixedpoint.Add(p.TotalTokensAllocated, tokens)
	if err != nil {
		return Contribution{}, err
	}
	total, err := fixedpoint.Add(a.Total, tokens)
	if err != nil {
		return Contribution{}, err
	}
	price, err := fixedpoint.Mul(tokens, unit)
	if err != nil {
		return Contribution{}, err
	}
	cost, err := fixedpoint.Add(a.Cost, price)
	if err != nil {
		return Contribution{}, err
	}

	if err := l.mover.Transfer(ctx, transfer.Move{
		Asset:  p.PaymentMint,
		From:   caller,
		To:     p.Treasury,
		Amount: accepted,
	}); err != nil {
		return Contribution{}, fmt.Errorf("collect payment: %w", err)
	}

	if a.Total == 0 && a.Contributed == 0 {
		p.Contributors++
	}
	p.TotalSolCollected = collected
	p.TotalTokensAllocated = allocated
	a.Total = total
	a.Contributed = contributed
	a.Cost = cost
	a.CliffTimestamp = p.CliffTimestamp
	a.StartTime = p.CliffTimestamp

	return Contribution{
		Requested: amountPaid,
		Accepted:  accepted,
		Tokens:    tokens,
		UnitPrice: unit,
		Clipped:   accepted < amountPaid,
	}, nil
}

// paymentHeadroom is the largest payment both caps still admit.
func paymentHeadroom(p *Presale, unit uint64) uint64 {
	remainingSol := fixedpoint.SaturatingSub(p.MaxSol, p.TotalSolCollected)
	remainingTokens := fixedpoint.SaturatingSub(p.MaxTokens, p.TotalTokensAllocated)
	tokenBound, err := fixedpoint.Mul(remainingTokens, unit)
	if err != nil {
		tokenBound = math.MaxUint64
	}
	return fixedpoint.Min(remainingSol, tokenBound)
}

// Claim releases vested tokens of a to its contributor. requested 0 claims
// everything claimable; anything above the claimable amount is rejected. The
// contributor or the admin may trigger it; tokens always go to the contributor.
func (l *Ledger) Claim(ctx context.Context, p *Presale, a *Allocation, caller solana.PublicKey, requested uint64, now int64) (uint64, error) {
	if !caller.Equals(a.Contributor) && !caller.Equals(p.Admin) {
		return 0, ErrUnauthorized
	}
	if !a.Presale.Equals(p.Address) {
		return 0, ErrInvalidOwner
	}

	next := *a
	amount, err := next.Release(p.Timetable(), now, requested)
	if err != nil {
		return 0, err
	}

	if err := l.mover.Transfer(ctx, transfer.Move{
		Asset:  p.Mint,
		From:   p.Vault,
		To:     a.Contributor,
		Amount: amount,
	}); err != nil {
		return 0, fmt.Errorf("release tokens: %w", err)
	}

	*a = next
	return amount, nil
}

// Refund returns tokenAmount of caller's allocation at the discounted price it
// was bought at. Refunds are open only after close and before the cliff. The
// payment left over by floor pricing stays in the treasury.
func (l *Ledger) Refund(ctx context.Context, p *Presale, a *Allocation, caller solana.PublicKey, tokenAmount uint64, now int64) (RefundReceipt, error) {
	if err := checkOwner(p, a, caller); err != nil {
		return RefundReceipt{}, err
	}
	if !p.IsClosed {
		return RefundReceipt{}, ErrRefundNotAvailable
	}
	if now >= p.CliffTimestamp {
		return RefundReceipt{}, ErrVestingStarted
	}
	if tokenAmount == 0 {
		return RefundReceipt{}, ErrInvalidAmount
	}
	if a.Total < tokenAmount {
		return RefundReceipt{}, ErrInsufficientBalance
	}

	// Cost/Total is the unit price when every purchase used one price, and
	// the token-weighted price otherwise.
	value, err := fixedpoint.MulDiv(a.Cost, tokenAmount, a.Total, fixedpoint.RoundDown)
	if err != nil {
		return RefundReceipt{}, err
	}
	contributed, err := fixedpoint.Sub(a.Contributed, value)
	if err != nil {
		return RefundReceipt{}, err
	}
	collected, err := fixedpoint.Sub(p.TotalSolCollected, value)
	if err != nil {
		return RefundReceipt{}, err
	}
	allocated, err := fixedpoint.Sub(p.TotalTokensAllocated, tokenAmount)
	if err != nil {
		return RefundReceipt{}, err
	}

	if err := l.mover.Transfer(ctx, transfer.Move{
		Asset:  p.PaymentMint,
		From:   p.Treasury,
		To:     a.Contributor,
		Amount: value,
	}); err != nil {
		return RefundReceipt{}, fmt.Errorf("refund payment: %w", err)
	}

	p.TotalSolCollected = collected
	p.TotalTokensAllocated = allocated
	a.Total -= tokenAmount
	a.Contributed = contributed
	a.Cost -= value

	return RefundReceipt{Tokens: tokenAmount, Value: value}, nil
}

// ParamsUpdate carries optional admin changes; nil fields stay as they are.
type ParamsUpdate struct {
	PublicSalePrice *uint64
	MinPurchase     *uint64
	MaxPurchase     *uint64
	MaxSol          *uint64
	MaxTokens       *uint64
}

// UpdateParams applies u. Caps may not drop below what is already collected or allocated.
func (l *Ledger) UpdateParams(p *Presale, caller solana.PublicKey, u ParamsUpdate) error {
	if err := checkAdminOpen(p, caller); err != nil {
		return err
	}

	next := *p
	if u.PublicSalePrice != nil {
		if *u.PublicSalePrice == 0 {
			return ErrInvalidPrice
		}
		next.PublicSalePrice = *u.PublicSalePrice
	}
	if u.MinPurchase != nil {
		next.MinPurchase = *u.MinPurchase
	}
	if u.MaxPurchase != nil {
		next.MaxPurchase = *u.MaxPurchase
	}
	if u.MaxSol != nil {
		next.MaxSol = *u.MaxSol
	}
	if u.MaxTokens != nil {
		next.MaxTokens = *u.MaxTokens
	}

	switch {
	case next.MaxSol == 0 || next.MaxTokens == 0:
		return fmt.Errorf("%w: caps must be positive", ErrConfigInvalid)
	case next.MaxSol < next.TotalSolCollected:
		return fmt.Errorf("%w: max_sol below collected amount", ErrConfigInvalid)
	case next.MaxTokens < next.TotalTokensAllocated:
		return fmt.Errorf("%w: max_tokens below allocated amount", ErrConfigInvalid)
	case next.MaxPurchase != 0 && next.MinPurchase > next.MaxPurchase:
		return fmt.Errorf("%w: min_purchase exceeds max_purchase", ErrConfigInvalid)
	}

	*p = next
	return nil
}

// UpdatePrice changes the public sale price. Existing allocations keep their token counts.
func (l *Ledger) UpdatePrice(p *Presale, caller solana.PublicKey, price uint64) error {
	return l.UpdateParams(p, caller, ParamsUpdate{PublicSalePrice: &price})
}

// UpdateCap changes both caps.
func (l *Ledger) UpdateCap(p *Presale, caller solana.PublicKey, maxTokens, maxSol uint64) error {
	return l.UpdateParams(p, caller, ParamsUpdate{MaxTokens: &maxTokens, MaxSol: &maxSol})
}

// SetPause toggles the pause flag.
func (l *Ledger) SetPause(p *Presale, caller solana.PublicKey, paused bool) error {
	if err := checkAdminOpen(p, caller); err != nil {
		return err
	}
	p.Paused = paused
	return nil
}

// SetManualPriceOverride stores the SOL/USD fallback used when the oracle fails.
// Zero clears it.
func (l *Ledger) SetManualPriceOverride(p *Presale, caller solana.PublicKey, price uint64) error {
	if err := checkAdminOpen(p, caller); err != nil {
		return err
	}
	if price != 0 {
		if err := oracle.ValidateOverride(price, p.MaxManualPrice); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPrice, err)
		}
	}
	p.ManualPriceOverride = price
	return nil
}

// Close ends the presale for good. Closing twice fails with ErrPresaleClosed.
func (l *Ledger) Close(p *Presale, caller solana.PublicKey) error {
	if err := checkAdminOpen(p, caller); err != nil {
		return err
	}
	p.IsClosed = true
	p.Paused = false
	return nil
}

// FundVault moves sale tokens from funder into the vault that pays claims.
func (l *Ledger) FundVault(ctx context.Context, p *Presale, funder solana.PublicKey, amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	return l.mover.Transfer(ctx, transfer.Move{
		Asset:  p.Mint,
		From:   funder,
		To:     p.Vault,
		Amount: amount,
	})
}

func checkAdminOpen(p *Presale, caller solana.PublicKey) error {
	if !caller.Equals(p.Admin) {
		return ErrUnauthorized
	}
	if p.IsClosed {
		return ErrPresaleClosed
	}
	return nil
}

func checkOwner(p *Presale, a *Allocation, caller solana.PublicKey) error {
	if !a.Contributor.Equals(caller) || !a.Presale.Equals(p.Address) {
		return ErrInvalidOwner
	}
	return nil
}
