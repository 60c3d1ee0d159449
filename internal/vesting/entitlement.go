// internal/vesting/entitlement.go
package vesting

import (
	"github.com/xthemadgenius/SolContracts/internal/fixedpoint"
)

// Entitlement is the vesting half of an allocation: what was bought and what
// has already been released.
type Entitlement struct {
	Total             uint64
	Claimed           uint64
	AirdropsCompleted int
}

// Vested returns the unlocked part of the entitlement at now.
func (e Entitlement) Vested(t Timetable, now int64) uint64 {
	return t.Vested(e.Total, now)
}

// Claimable is vested minus claimed, saturating at zero.
func (e Entitlement) Claimable(t Timetable, now int64) (uint64, error) {
	if now < t.Cliff {
		return 0, ErrCliffNotReached
	}
	claimable := fixedpoint.SaturatingSub(e.Vested(t, now), e.Claimed)
	if claimable == 0 {
		return 0, ErrNothingToClaim
	}
	return claimable, nil
}

// Release moves up to requested tokens into the claimed counter. A zero request
// releases everything claimable; a request above the claimable amount is rejected.
func (e *Entitlement) Release(t Timetable, now int64, requested uint64) (uint64, error) {
	claimable, err := e.Claimable(t, now)
	if err != nil {
		return 0, err
	}
	amount := claimable
	if requested != 0 {
		if requested > claimable {
			return 0, ErrClaimExceedsVested
		}
		amount = requested
	}
	claimed, err := fixedpoint.Add(e.Claimed, amount)
	if err != nil {
		return 0, err
	}
	e.Claimed = claimed
	return amount, nil
}

// ReleaseTranche distributes tranche index. Tranches go out strictly in order and
// only once due; the released amount tops the claimed counter up to the cumulative
// unlock of the tranche, so self-claims made earlier are never paid twice.
func (e *Entitlement) ReleaseTranche(t Timetable, index int, now int64) (uint64, error) {
	if !t.TrancheMode() {
		return 0, ErrAirdropConfiguration
	}
	if index < 0 || index >= len(t.Tranches) {
		return 0, ErrInvalidTrancheIndex
	}
	if index < e.AirdropsCompleted {
		return 0, ErrAirdropCompleted
	}
	if index > e.AirdropsCompleted {
		return 0, ErrAirdropNotDue
	}
	due, err := t.TrancheDue(index)
	if err != nil {
		return 0, err
	}
	if now < due || now < t.Cliff {
		return 0, ErrAirdropNotDue
	}

	amount := fixedpoint.SaturatingSub(UnlockedThrough(e.Total, t.Tranches, index), e.Claimed)
	claimed, err := fixedpoint.Add(e.Claimed, amount)
	if err != nil {
		return 0, err
	}
	e.Claimed = claimed
	e.AirdropsCompleted = index + 1
	return amount, nil
}
