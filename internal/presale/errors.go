// internal/presale/errors.go
package presale

import (
	"errors"

	"github.com/xthemadgenius/SolContracts/internal/fixedpoint"
	"github.com/xthemadgenius/SolContracts/internal/oracle"
	"github.com/xthemadgenius/SolContracts/internal/transfer"
	"github.com/xthemadgenius/SolContracts/internal/vesting"
)

var (
	ErrConfigInvalid          = errors.New("invalid presale configuration")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrPresaleClosed          = errors.New("presale closed")
	ErrPaused                 = errors.New("presale paused")
	ErrNotActive              = errors.New("presale not active")
	ErrPresaleLimitReached    = errors.New("presale limit reached")
	ErrInvalidContribution    = errors.New("invalid contribution")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrBelowMinimumPurchase   = errors.New("below minimum purchase")
	ErrExceedsMaximumPurchase = errors.New("exceeds maximum purchase")
	ErrRefundNotAvailable     = errors.New("refund not available")
	ErrVestingStarted         = errors.New("vesting started")
	ErrInvalidPrice           = errors.New("invalid price")
	ErrInvalidDiscount        = errors.New("invalid discount")
	ErrInvalidOwner           = errors.New("allocation does not belong to caller")
	ErrBatchTooLarge          = errors.New("batch too large")
	ErrEmptyBatch             = errors.New("empty batch")
	ErrAllocationNotFound     = errors.New("allocation not found")

	ErrOracleUnavailable = oracle.ErrOracleUnavailable
	ErrMathOverflow      = fixedpoint.ErrMathOverflow
	ErrInsufficientFunds = transfer.ErrInsufficientFunds

	ErrCliffNotReached      = vesting.ErrCliffNotReached
	ErrNothingToClaim       = vesting.ErrNothingToClaim
	ErrClaimExceedsVested   = vesting.ErrClaimExceedsVested
	ErrInvalidTrancheIndex  = vesting.ErrInvalidTrancheIndex
	ErrAirdropNotDue        = vesting.ErrAirdropNotDue
	ErrAirdropCompleted     = vesting.ErrAirdropCompleted
	ErrAirdropConfiguration = vesting.ErrAirdropConfiguration
)
