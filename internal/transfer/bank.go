// internal/transfer/bank.go
package transfer

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/xthemadgenius/SolContracts/internal/fixedpoint"
)

type balanceKey struct {
	asset   solana.PublicKey
	account solana.PublicKey
}

// Bank is an in-memory Mover that keeps balances per (asset, account).
type Bank struct {
	mu       sync.RWMutex
	balances map[balanceKey]uint64
}

// NewBank creates an empty bank.
func NewBank() *Bank {
	return &Bank{balances: make(map[balanceKey]uint64)}
}

// Transfer applies moves atomically.
func (b *Bank) Transfer(ctx context.Context, moves ...Move) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	moves = Compact(moves)
	if err := Validate(moves); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// stage touched balances so a failing move leaves the bank untouched
	staged := make(map[balanceKey]uint64, len(moves)*2)
	get := func(k balanceKey) uint64 {
		if v, ok := staged[k]; ok {
			return v
		}
		return b.balances[k]
	}
	for _, m := range moves {
		from := balanceKey{m.Asset, m.From}
		to := balanceKey{m.Asset, m.To}

		left, err := fixedpoint.Sub(get(from), m.Amount)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInsufficientFunds, m)
		}
		staged[from] = left

		right, err := fixedpoint.Add(get(to), m.Amount)
		if err != nil {
			return err
		}
		staged[to] = right
	}

	for k, v := range staged {
		if v == 0 {
			delete(b.balances, k)
			continue
		}
		b.balances[k] = v
	}
	return nil
}

// Credit mints amount into account. Used for funding in development and tests.
func (b *Bank) Credit(asset, account solana.PublicKey, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	k := balanceKey{asset, account}
	v, err := fixedpoint.Add(b.balances[k], amount)
	if err != nil {
		return err
	}
	b.balances[k] = v
	return nil
}

// Balance returns the balance of account in asset.
func (b *Bank) Balance(asset, account solana.PublicKey) uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.balances[balanceKey{asset, account}]
}

// Clone returns an independent copy.
func (b *Bank) Clone() *Bank {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := NewBank()
	for k, v := range b.balances {
		out.balances[k] = v
	}
	return out
}
