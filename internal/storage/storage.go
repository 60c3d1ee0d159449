// internal/storage/storage.go
package storage

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"

	"github.com/xthemadgenius/SolContracts/internal/presale"
	"github.com/xthemadgenius/SolContracts/internal/transfer"
	"github.com/xthemadgenius/SolContracts/internal/yield"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Tx is one atomic unit of work. Records handed out are copies: changes are only
// visible to others after Save and a successful commit. The embedded Mover moves
// balances inside the same unit.
type Tx interface {
	transfer.Mover

	GetPresale(ctx context.Context, address solana.PublicKey) (*presale.Presale, error)
	SavePresale(ctx context.Context, p *presale.Presale) error
	ListPresales(ctx context.Context) ([]*presale.Presale, error)

	GetAllocation(ctx context.Context, address solana.PublicKey) (*presale.Allocation, error)
	SaveAllocation(ctx context.Context, a *presale.Allocation) error
	// ListAllocations returns the allocations of one presale ordered by contributor.
	ListAllocations(ctx context.Context, presaleAddr solana.PublicKey) ([]*presale.Allocation, error)

	GetPool(ctx context.Context, address solana.PublicKey) (*yield.Pool, error)
	SavePool(ctx context.Context, p *yield.Pool) error
	ListPools(ctx context.Context) ([]*yield.Pool, error)

	GetUserStake(ctx context.Context, address solana.PublicKey) (*yield.UserStake, error)
	SaveUserStake(ctx context.Context, s *yield.UserStake) error

	Balance(ctx context.Context, asset, account solana.PublicKey) (uint64, error)
	// Credit mints into account. Only the development faucet uses it.
	Credit(ctx context.Context, asset, account solana.PublicKey, amount uint64) error
}

// Store runs units of work. Atomic commits when fn returns nil and discards every
// change otherwise. Units on the same store are serialised per record.
type Store interface {
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Migrate(ctx context.Context) error
	Close() error
}
