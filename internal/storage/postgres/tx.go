// internal/storage/postgres/tx.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xthemadgenius/SolContracts/internal/fixedpoint"
	"github.com/xthemadgenius/SolContracts/internal/presale"
	"github.com/xthemadgenius/SolContracts/internal/storage"
	"github.com/xthemadgenius/SolContracts/internal/storage/models"
	"github.com/xthemadgenius/SolContracts/internal/transfer"
	"github.com/xthemadgenius/SolContracts/internal/yield"
)

type tx struct {
	db *gorm.DB
}

var _ storage.Tx = (*tx)(nil)

// first loads one row by primary key and locks it for the rest of the transaction.
func (t *tx) first(ctx context.Context, dst interface{}, address solana.PublicKey) error {
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("address = ?", address.String()).
		First(dst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.ErrNotFound
	}
	return err
}

func (t *tx) save(ctx context.Context, rec interface{}) error {
	return t.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(rec).Error
}

func (t *tx) GetPresale(ctx context.Context, address solana.PublicKey) (*presale.Presale, error) {
	var m models.Presale
	if err := t.first(ctx, &m, address); err != nil {
		return nil, err
	}
	return presaleFromModel(&m)
}

func (t *tx) SavePresale(ctx context.Context, p *presale.Presale) error {
	return t.save(ctx, presaleToModel(p))
}

func (t *tx) ListPresales(ctx context.Context) ([]*presale.Presale, error) {
	var rows []*models.Presale
	if err := t.db.WithContext(ctx).Order("address").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*presale.Presale, 0, len(rows))
	for _, m := range rows {
		p, err := presaleFromModel(m)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (t *tx) GetAllocation(ctx context.Context, address solana.PublicKey) (*presale.Allocation, error) {
	var m models.Allocation
	if err := t.first(ctx, &m, address); err != nil {
		return nil, err
	}
	return allocationFromModel(&m)
}

func (t *tx) SaveAllocation(ctx context.Context, a *presale.Allocation) error {
	return t.save(ctx, allocationToModel(a))
}

func (t *tx) ListAllocations(ctx context.Context, presaleAddr solana.PublicKey) ([]*presale.Allocation, error) {
	var rows []*models.Allocation
	err := t.db.WithContext(ctx).
		Where("presale = ?", presaleAddr.String()).
		Order("contributor").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*presale.Allocation, 0, len(rows))
	for _, m := range rows {
		a, err := allocationFromModel(m)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (t *tx) GetPool(ctx context.Context, address solana.PublicKey) (*yield.Pool, error) {
	var m models.Pool
	if err := t.first(ctx, &m, address); err != nil {
		return nil, err
	}
	return poolFromModel(&m)
}

func (t *tx) SavePool(ctx context.Context, p *yield.Pool) error {
	return t.save(ctx, poolToModel(p))
}

func (t *tx) ListPools(ctx context.Context) ([]*yield.Pool, error) {
	var rows []*models.Pool
	if err := t.db.WithContext(ctx).Order("address").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*yield.Pool, 0, len(rows))
	for _, m := range rows {
		p, err := poolFromModel(m)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (t *tx) GetUserStake(ctx context.Context, address solana.PublicKey) (*yield.UserStake, error) {
	var m models.UserStake
	if err := t.first(ctx, &m, address); err != nil {
		return nil, err
	}
	return stakeFromModel(&m)
}

func (t *tx) SaveUserStake(ctx context.Context, s *yield.UserStake) error {
	return t.save(ctx, stakeToModel(s))
}

// balance reads and locks a balance row. A missing row is a zero balance.
func (t *tx) balance(ctx context.Context, asset, account solana.PublicKey) (uint64, error) {
	var m models.Balance
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("asset = ? AND account = ?", asset.String(), account.String()).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var d decoder
	v := d.u64(m.Amount)
	return v, d.err
}

// lockBalance is balance for a row about to be written. It inserts a zero row
// first so concurrent writers to a new account serialize on the row lock
// instead of both reading a missing row.
func (t *tx) lockBalance(ctx context.Context, asset, account solana.PublicKey) (uint64, error) {
	err := t.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Balance{
			Asset:   asset.String(),
			Account: account.String(),
			Amount:  dec(0),
		}).Error
	if err != nil {
		return 0, err
	}
	return t.balance(ctx, asset, account)
}

func (t *tx) setBalance(ctx context.Context, asset, account solana.PublicKey, amount uint64) error {
	return t.save(ctx, &models.Balance{
		Asset:   asset.String(),
		Account: account.String(),
		Amount:  dec(amount),
	})
}

func (t *tx) Balance(ctx context.Context, asset, account solana.PublicKey) (uint64, error) {
	return t.balance(ctx, asset, account)
}

func (t *tx) Credit(ctx context.Context, asset, account solana.PublicKey, amount uint64) error {
	cur, err := t.lockBalance(ctx, asset, account)
	if err != nil {
		return err
	}
	next, err := fixedpoint.Add(cur, amount)
	if err != nil {
		return err
	}
	return t.setBalance(ctx, asset, account, next)
}

// Transfer applies the moves in order. Any failure aborts the surrounding
// database transaction, so partial moves never commit.
func (t *tx) Transfer(ctx context.Context, moves ...transfer.Move) error {
	moves = transfer.Compact(moves)
	if err := transfer.Validate(moves); err != nil {
		return err
	}
	for _, m := range moves {
		from, err := t.balance(ctx, m.Asset, m.From)
		if err != nil {
			return err
		}
		left, err := fixedpoint.Sub(from, m.Amount)
		if err != nil {
			return fmt.Errorf("%w: %s", transfer.ErrInsufficientFunds, m)
		}
		to, err := t.lockBalance(ctx, m.Asset, m.To)
		if err != nil {
			return err
		}
		right, err := fixedpoint.Add(to, m.Amount)
		if err != nil {
			return err
		}
		if err := t.setBalance(ctx, m.Asset, m.From, left); err != nil {
			return err
		}
		if err := t.setBalance(ctx, m.Asset, m.To, right); err != nil {
			return err
		}
	}
	return nil
}
