// internal/yield/errors.go
package yield

import (
	"errors"

	"github.com/xthemadgenius/SolContracts/internal/fixedpoint"
	"github.com/xthemadgenius/SolContracts/internal/transfer"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidOwner       = errors.New("stake does not belong to caller")
	ErrInvalidPoolAccount = errors.New("stake belongs to another pool")
	ErrInsufficientStaked = errors.New("insufficient staked amount")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrConfigInvalid      = errors.New("invalid pool configuration")

	ErrMathOverflow      = fixedpoint.ErrMathOverflow
	ErrInsufficientFunds = transfer.ErrInsufficientFunds
)
