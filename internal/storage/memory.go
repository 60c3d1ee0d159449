// internal/storage/memory.go
package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/xthemadgenius/SolContracts/internal/presale"
	"github.com/xthemadgenius/SolContracts/internal/transfer"
	"github.com/xthemadgenius/SolContracts/internal/yield"
)

// MemoryStore keeps everything in process. Units of work run one at a time on a
// staged copy that replaces the committed state on success.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
}

type memState struct {
	presales    map[solana.PublicKey]*presale.Presale
	allocations map[solana.PublicKey]presale.Allocation
	pools       map[solana.PublicKey]yield.Pool
	stakes      map[solana.PublicKey]yield.UserStake
	bank        *transfer.Bank
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memState{
		presales:    make(map[solana.PublicKey]*presale.Presale),
		allocations: make(map[solana.PublicKey]presale.Allocation),
		pools:       make(map[solana.PublicKey]yield.Pool),
		stakes:      make(map[solana.PublicKey]yield.UserStake),
		bank:        transfer.NewBank(),
	}}
}

func (m *MemoryStore) Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	staged := m.state.stage()
	if err := fn(ctx, &memTx{state: staged}); err != nil {
		return err
	}
	m.state = staged
	return nil
}

func (m *MemoryStore) Migrate(context.Context) error { return nil }
func (m *MemoryStore) Close() error                  { return nil }

// stage copies the maps; records are stored by value or cloned on write, so the
// copies never alias committed data.
func (s *memState) stage() *memState {
	out := &memState{
		presales:    make(map[solana.PublicKey]*presale.Presale, len(s.presales)),
		allocations: make(map[solana.PublicKey]presale.Allocation, len(s.allocations)),
		pools:       make(map[solana.PublicKey]yield.Pool, len(s.pools)),
		stakes:      make(map[solana.PublicKey]yield.UserStake, len(s.stakes)),
		bank:        s.bank.Clone(),
	}
	for k, v := range s.presales {
		out.presales[k] = v
	}
	for k, v := range s.allocations {
		out.allocations[k] = v
	}
	for k, v := range s.pools {
		out.pools[k] = v
	}
	for k, v := range s.stakes {
		out.stakes[k] = v
	}
	return out
}

type memTx struct {
	state *memState
}

func (t *memTx) Transfer(ctx context.Context, moves ...transfer.Move) error {
	return t.state.bank.Transfer(ctx, moves...)
}

func (t *memTx) GetPresale(_ context.Context, address solana.PublicKey) (*presale.Presale, error) {
	p, ok := t.state.presales[address]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (t *memTx) SavePresale(_ context.Context, p *presale.Presale) error {
	t.state.presales[p.Address] = p.Clone()
	return nil
}

func (t *memTx) ListPresales(context.Context) ([]*presale.Presale, error) {
	out := make([]*presale.Presale, 0, len(t.state.presales))
	for _, p := range t.state.presales {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address.String() < out[j].Address.String() })
	return out, nil
}

func (t *memTx) GetAllocation(_ context.Context, address solana.PublicKey) (*presale.Allocation, error) {
	a, ok := t.state.allocations[address]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (t *memTx) SaveAllocation(_ context.Context, a *presale.Allocation) error {
	t.state.allocations[a.Address] = *a
	return nil
}

func (t *memTx) ListAllocations(_ context.Context, presaleAddr solana.PublicKey) ([]*presale.Allocation, error) {
	var out []*presale.Allocation
	for _, a := range t.state.allocations {
		if a.Presale.Equals(presaleAddr) {
			a := a
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Contributor.String() < out[j].Contributor.String() })
	return out, nil
}

func (t *memTx) GetPool(_ context.Context, address solana.PublicKey) (*yield.Pool, error) {
	p, ok := t.state.pools[address]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (t *memTx) SavePool(_ context.Context, p *yield.Pool) error {
	t.state.pools[p.Address] = *p
	return nil
}

func (t *memTx) ListPools(context.Context) ([]*yield.Pool, error) {
	out := make([]*yield.Pool, 0, len(t.state.pools))
	for _, p := range t.state.pools {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address.String() < out[j].Address.String() })
	return out, nil
}

func (t *memTx) GetUserStake(_ context.Context, address solana.PublicKey) (*yield.UserStake, error) {
	s, ok := t.state.stakes[address]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (t *memTx) SaveUserStake(_ context.Context, s *yield.UserStake) error {
	t.state.stakes[s.Address] = *s
	return nil
}

func (t *memTx) Balance(_ context.Context, asset, account solana.PublicKey) (uint64, error) {
	return t.state.bank.Balance(asset, account), nil
}

func (t *memTx) Credit(_ context.Context, asset, account solana.PublicKey, amount uint64) error {
	return t.state.bank.Credit(asset, account, amount)
}
