package transfer

import (
	"context"
	"math"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBankTransfer(t *testing.T) {
	ctx := context.Background()
	asset := solana.NewWallet().PublicKey()
	alice := solana.NewWallet().PublicKey()
	bob := solana.NewWallet().PublicKey()

	bank := NewBank()
	require.NoError(t, bank.Credit(asset, alice, 100))

	require.NoError(t, bank.Transfer(ctx, Move{Asset: asset, From: alice, To: bob, Amount: 40}))
	assert.Equal(t, uint64(60), bank.Balance(asset, alice))
	assert.Equal(t, uint64(40), bank.Balance(asset, bob))
}

func TestBankTransferIsAtomic(t *testing.T) {
	ctx := context.Background()
	asset := solana.NewWallet().PublicKey()
	alice := solana.NewWallet().PublicKey()
	bob := solana.NewWallet().PublicKey()
	carol := solana.NewWallet().PublicKey()

	bank := NewBank()
	require.NoError(t, bank.Credit(asset, alice, 100))

	err := bank.Transfer(ctx,
		Move{Asset: asset, From: alice, To: bob, Amount: 70},
		Move{Asset: asset, From: alice, To: carol, Amount: 70},
	)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, uint64(100), bank.Balance(asset, alice))
	assert.Zero(t, bank.Balance(asset, bob))
	assert.Zero(t, bank.Balance(asset, carol))

	// a later move may spend what an earlier move in the same call delivered
	require.NoError(t, bank.Transfer(ctx,
		Move{Asset: asset, From: alice, To: bob, Amount: 100},
		Move{Asset: asset, From: bob, To: carol, Amount: 30},
	))
	assert.Equal(t, uint64(70), bank.Balance(asset, bob))
	assert.Equal(t, uint64(30), bank.Balance(asset, carol))
}

func TestBankRejectsInvalidMoves(t *testing.T) {
	bank := NewBank()
	asset := solana.NewWallet().PublicKey()
	alice := solana.NewWallet().PublicKey()

	err := bank.Transfer(context.Background(), Move{Asset: asset, From: alice, Amount: 1})
	assert.ErrorIs(t, err, ErrInvalidMove)

	// zero and self moves are dropped
	assert.NoError(t, bank.Transfer(context.Background(), Move{Asset: asset, From: alice, To: alice, Amount: 5}))
}

func TestBankCreditOverflow(t *testing.T) {
	bank := NewBank()
	asset := solana.NewWallet().PublicKey()
	alice := solana.NewWallet().PublicKey()

	require.NoError(t, bank.Credit(asset, alice, math.MaxUint64))
	assert.Error(t, bank.Credit(asset, alice, 1))

	clone := bank.Clone()
	require.NoError(t, clone.Transfer(context.Background(), Move{Asset: asset, From: alice, To: solana.NewWallet().PublicKey(), Amount: 1}))
	assert.Equal(t, uint64(math.MaxUint64), bank.Balance(asset, alice))
}
