// internal/vesting/schedule.go
package vesting

import (
	"math"

	"github.com/xthemadgenius/SolContracts/internal/fixedpoint"
)

// DefaultVestingInterval is the interval used by generated configs: a 30 day month.
const DefaultVestingInterval int64 = 30 * 24 * 60 * 60

// VestedAmount returns the part of total released by a stepwise linear schedule that
// starts at start and spans period seconds in interval sized steps. Results are
// floored, never exceed total and never decrease as now grows.
func VestedAmount(total uint64, start, period, interval, now int64) uint64 {
	if now < start {
		return 0
	}
	if period <= 0 || interval <= 0 {
		return 0
	}

	intervalsTotal := uint64(period / interval)
	if intervalsTotal == 0 {
		return 0
	}
	elapsed := uint64(now) - uint64(start)
	intervalsVested := elapsed / uint64(interval)
	if intervalsVested >= intervalsTotal {
		return total
	}

	// intervalsVested < intervalsTotal so the quotient is below total and cannot overflow
	vested, err := fixedpoint.MulDiv(total, intervalsVested, intervalsTotal, fixedpoint.RoundDown)
	if err != nil {
		return total
	}
	return vested
}

// Timetable is the release calendar shared by every allocation of one presale.
// A non-empty Tranches list switches from linear vesting to discrete tranches, where
// tranche i unlocks at Start + i*Interval.
type Timetable struct {
	Cliff    int64
	Start    int64
	Period   int64
	Interval int64
	Tranches []uint8
}

// TrancheMode reports whether the timetable releases discrete tranches.
func (t Timetable) TrancheMode() bool {
	return len(t.Tranches) > 0
}

// Vested returns the amount of total unlocked at now.
func (t Timetable) Vested(total uint64, now int64) uint64 {
	if now < t.Cliff {
		return 0
	}
	if !t.TrancheMode() {
		return VestedAmount(total, t.Start, t.Period, t.Interval, now)
	}
	n := TranchesUnlocked(t.Start, t.Interval, now, len(t.Tranches))
	if n == 0 {
		return 0
	}
	return UnlockedThrough(total, t.Tranches, n-1)
}

// TrancheDue returns the unix time at which tranche index unlocks.
func (t Timetable) TrancheDue(index int) (int64, error) {
	if index < 0 {
		return 0, ErrInvalidTrancheIndex
	}
	if t.Interval > 0 && int64(index) > (math.MaxInt64-t.Start)/t.Interval {
		return 0, fixedpoint.ErrMathOverflow
	}
	return t.Start + int64(index)*t.Interval, nil
}

// End returns the time at which everything is unlocked.
func (t Timetable) End() int64 {
	if t.TrancheMode() {
		due, err := t.TrancheDue(len(t.Tranches) - 1)
		if err != nil {
			return math.MaxInt64
		}
		return due
	}
	return t.Start + t.Period
}
