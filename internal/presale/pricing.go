// internal/presale/pricing.go
package presale

import (
	"context"
	"fmt"

	"github.com/xthemadgenius/SolContracts/internal/fixedpoint"
	"github.com/xthemadgenius/SolContracts/internal/oracle"
)

// PriceResolver turns a feed into a micro-USD SOL price, falling back to the admin
// override when the oracle cannot answer.
type PriceResolver interface {
	Resolve(ctx context.Context, feed string, override, maxOverride uint64) (uint64, error)
}

// DiscountedPrice returns price*(100-discount)/100, truncated.
func DiscountedPrice(price, discountPercent uint64) (uint64, error) {
	if discountPercent > 100 {
		return 0, ErrInvalidDiscount
	}
	return fixedpoint.MulDiv(price, 100-discountPercent, 100, fixedpoint.RoundDown)
}

// TokensFor returns how many whole tokens amountPaid buys at unitPrice. The
// remainder is not credited.
func TokensFor(amountPaid, unitPrice uint64) (uint64, error) {
	if unitPrice == 0 {
		return 0, ErrInvalidPrice
	}
	return amountPaid / unitPrice, nil
}

// UsdToLamports converts a micro-USD token price through a micro-USD SOL price.
func UsdToLamports(usdPrice, solUsd uint64) (uint64, error) {
	if solUsd == 0 {
		return 0, ErrInvalidPrice
	}
	return fixedpoint.MulDiv(usdPrice, LamportsPerSol, solUsd, fixedpoint.RoundDown)
}

// PublicPrice returns the undiscounted per-token price in payment units, computed
// fresh from the current configuration.
func (l *Ledger) PublicPrice(ctx context.Context, p *Presale) (uint64, error) {
	if p.PriceFeed == "" {
		return p.PublicSalePrice, nil
	}

	var (
		solUsd uint64
		err    error
	)
	if l.prices != nil {
		solUsd, err = l.prices.Resolve(ctx, p.PriceFeed, p.ManualPriceOverride, p.MaxManualPrice)
	} else if oracle.ValidateOverride(p.ManualPriceOverride, p.MaxManualPrice) == nil {
		solUsd = p.ManualPriceOverride
	} else {
		err = fmt.Errorf("%w: no oracle and no override", ErrOracleUnavailable)
	}
	if err != nil {
		return 0, err
	}
	return UsdToLamports(p.UsdPrice, solUsd)
}

// UnitPrice returns the discounted per-token price in payment units.
func (l *Ledger) UnitPrice(ctx context.Context, p *Presale) (uint64, error) {
	price, err := l.PublicPrice(ctx, p)
	if err != nil {
		return 0, err
	}
	discounted, err := DiscountedPrice(price, p.DiscountPercent)
	if err != nil {
		return 0, err
	}
	if discounted == 0 {
		return 0, ErrInvalidPrice
	}
	return discounted, nil
}
