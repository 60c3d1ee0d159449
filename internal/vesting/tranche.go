// internal/vesting/tranche.go
package vesting

import (
	"github.com/xthemadgenius/SolContracts/internal/fixedpoint"
)

const (
	// MaxTranches caps the length of an airdrop percentage list.
	MaxTranches = 24

	defaultUpfrontPercent = 10
	defaultMonthlyPercent = 9
	defaultMonths         = 10
)

// DefaultTranches returns the 10% upfront + 9% monthly schedule.
func DefaultTranches() []uint8 {
	out := make([]uint8, 0, defaultMonths+1)
	out = append(out, defaultUpfrontPercent)
	for i := 0; i < defaultMonths; i++ {
		out = append(out, defaultMonthlyPercent)
	}
	return out
}

// ValidateTranches checks an airdrop percentage list.
func ValidateTranches(pcts []uint8, maxCount int) error {
	if len(pcts) == 0 {
		return ErrAirdropConfiguration
	}
	if len(pcts) > maxCount {
		return ErrAirdropConfiguration
	}
	var sum int
	for _, p := range pcts {
		if p == 0 {
			return ErrAirdropConfiguration
		}
		sum += int(p)
	}
	if sum > 100 {
		return ErrAirdropConfiguration
	}
	return nil
}

// TranchesUnlocked counts the tranches whose unlock time is at or before now.
func TranchesUnlocked(start, interval, now int64, count int) int {
	if now < start || count == 0 {
		return 0
	}
	if interval <= 0 {
		return count
	}
	steps := (now - start) / interval
	if steps >= int64(count-1) {
		return count
	}
	return int(steps) + 1
}

// UnlockedThrough returns the cumulative amount released by tranches 0..index.
// Amounts come from the cumulative percentage so rounding dust never accumulates.
func UnlockedThrough(total uint64, pcts []uint8, index int) uint64 {
	if index < 0 || len(pcts) == 0 {
		return 0
	}
	if index >= len(pcts) {
		index = len(pcts) - 1
	}
	var cumulative uint64
	for _, p := range pcts[:index+1] {
		cumulative += uint64(p)
	}
	if cumulative >= 100 {
		return total
	}
	amount, err := fixedpoint.MulDiv(total, cumulative, 100, fixedpoint.RoundDown)
	if err != nil {
		return total
	}
	return amount
}
