// internal/service/errors.go
package service

import (
	"errors"

	"github.com/xthemadgenius/SolContracts/internal/presale"
	"github.com/xthemadgenius/SolContracts/internal/storage"
	"github.com/xthemadgenius/SolContracts/internal/yield"
)

var (
	ErrNotFound      = storage.ErrNotFound
	ErrAlreadyExists = errors.New("record already exists")
	ErrInvalidInput  = errors.New("invalid input")
)

// Kind groups errors by how a client should react to them.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalid
	KindUnauthorized
	KindNotFound
	KindConflict
	KindInsufficient
	KindUnavailable
)

var kinds = []struct {
	kind Kind
	errs []error
}{
	{KindNotFound, []error{ErrNotFound, presale.ErrAllocationNotFound}},
	{KindUnauthorized, []error{
		presale.ErrUnauthorized, presale.ErrInvalidOwner,
		yield.ErrUnauthorized, yield.ErrInvalidOwner,
	}},
	{KindInvalid, []error{
		ErrInvalidInput, presale.ErrConfigInvalid, presale.ErrInvalidContribution,
		presale.ErrInvalidAmount, presale.ErrInvalidPrice, presale.ErrInvalidDiscount,
		presale.ErrBelowMinimumPurchase, presale.ErrExceedsMaximumPurchase,
		presale.ErrBatchTooLarge, presale.ErrEmptyBatch, presale.ErrInvalidTrancheIndex,
		presale.ErrClaimExceedsVested, presale.ErrAirdropConfiguration,
		yield.ErrInvalidAmount, yield.ErrConfigInvalid, yield.ErrInvalidPoolAccount,
	}},
	{KindConflict, []error{
		ErrAlreadyExists, presale.ErrPresaleClosed, presale.ErrPaused, presale.ErrNotActive,
		presale.ErrPresaleLimitReached, presale.ErrRefundNotAvailable, presale.ErrVestingStarted,
		presale.ErrCliffNotReached, presale.ErrNothingToClaim, presale.ErrAirdropNotDue,
		presale.ErrAirdropCompleted,
	}},
	{KindInsufficient, []error{presale.ErrInsufficientBalance, presale.ErrInsufficientFunds, yield.ErrInsufficientStaked}},
	{KindUnavailable, []error{presale.ErrOracleUnavailable}},
}

// Classify maps err onto a Kind. Unknown errors, overflow included, are internal.
func Classify(err error) Kind {
	for _, group := range kinds {
		for _, target := range group.errs {
			if errors.Is(err, target) {
				return group.kind
			}
		}
	}
	return KindInternal
}

// Rejected reports whether err is a domain rule rejecting the request rather
// than a failure of the service.
func Rejected(err error) bool {
	k := Classify(err)
	return err != nil && k != KindInternal && k != KindUnavailable
}
