// internal/vesting/errors.go
package vesting

import "errors"

var (
	ErrCliffNotReached      = errors.New("cliff not reached")
	ErrNothingToClaim       = errors.New("nothing to claim")
	ErrClaimExceedsVested   = errors.New("requested amount exceeds claimable")
	ErrInvalidTrancheIndex  = errors.New("invalid tranche index")
	ErrAirdropNotDue        = errors.New("airdrop not due")
	ErrAirdropCompleted     = errors.New("airdrop already completed")
	ErrAirdropConfiguration = errors.New("airdrop configuration error")
)
