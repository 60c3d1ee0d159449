// internal/transfer/transfer.go
package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidMove       = errors.New("invalid transfer")
)

// Move is a single "move Amount of Asset from From to To" instruction.
type Move struct {
	Asset  solana.PublicKey
	From   solana.PublicKey
	To     solana.PublicKey
	Amount uint64
}

func (m Move) String() string {
	return fmt.Sprintf("%d of %s: %s -> %s", m.Amount, m.Asset, m.From, m.To)
}

// Mover executes moves all-or-nothing: either every move applies or none does,
// and a shortfall is reported as ErrInsufficientFunds.
type Mover interface {
	Transfer(ctx context.Context, moves ...Move) error
}

// Compact drops zero amount and self moves.
func Compact(moves []Move) []Move {
	out := make([]Move, 0, len(moves))
	for _, m := range moves {
		if m.Amount == 0 || m.From.Equals(m.To) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Validate rejects moves that reference zero keys.
func Validate(moves []Move) error {
	for _, m := range moves {
		if m.Asset.IsZero() || m.From.IsZero() || m.To.IsZero() {
			return fmt.Errorf("%w: %s", ErrInvalidMove, m)
		}
	}
	return nil
}
