// internal/presale/airdrop.go
package presale

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/xthemadgenius/SolContracts/internal/transfer"
)

// AirdropInstruction asks for tranche TrancheIndex of Recipient's allocation.
type AirdropInstruction struct {
	Recipient    solana.PublicKey
	TrancheIndex int
}

// AirdropResult is the outcome of one instruction.
type AirdropResult struct {
	Recipient    solana.PublicKey
	TrancheIndex int
	Amount       uint64
}

// DistributeAirdrops pushes tranches to recipients. allocs holds the allocations
// of every recipient keyed by contributor. The whole batch is validated before any
// token moves, and all transfers go out in one atomic call.
func (l *Ledger) DistributeAirdrops(ctx context.Context, p *Presale, allocs map[solana.PublicKey]*Allocation, caller solana.PublicKey, batch []AirdropInstruction, now int64) ([]AirdropResult, error) {
	if !caller.Equals(p.Admin) {
		return nil, ErrUnauthorized
	}
	tt := p.Timetable()
	if !tt.TrancheMode() {
		return nil, ErrAirdropConfiguration
	}
	if len(batch) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(batch) > MaxBatchSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(batch), MaxBatchSize)
	}

	staged := make(map[solana.PublicKey]Allocation, len(batch))
	results := make([]AirdropResult, 0, len(batch))
	moves := make([]transfer.Move, 0, len(batch))

	for i, in := range batch {
		next, ok := staged[in.Recipient]
		if !ok {
			a, found := allocs[in.Recipient]
			if !found || a == nil || !a.Presale.Equals(p.Address) {
				return nil, fmt.Errorf("entry %d: %w: %s", i, ErrAllocationNotFound, in.Recipient)
			}
			next = *a
		}

		amount, err := next.ReleaseTranche(tt, in.TrancheIndex, now)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		staged[in.Recipient] = next

		results = append(results, AirdropResult{
			Recipient:    in.Recipient,
			TrancheIndex: in.TrancheIndex,
			Amount:       amount,
		})
		moves = append(moves, transfer.Move{
			Asset:  p.Mint,
			From:   p.Vault,
			To:     in.Recipient,
			Amount: amount,
		})
	}

	if err := l.mover.Transfer(ctx, moves...); err != nil {
		return nil, fmt.Errorf("distribute airdrops: %w", err)
	}

	for recipient, next := range staged {
		*allocs[recipient] = next
	}
	return results, nil
}
