package audit

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xthemadgenius/SolContracts/internal/events"
)

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestJournalWritesEventRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "ledger.csv")
	j, err := Open(path, time.Hour, zap.NewNop())
	require.NoError(t, err)

	presaleAddr := solana.NewWallet().PublicKey()
	buyer := solana.NewWallet().PublicKey()
	ctx := context.Background()

	require.NoError(t, j.Handle(ctx, events.ContributionEvent{
		BaseEvent:   events.NewBase(events.ContributionAccepted, time.Unix(1_700_000_000, 0)),
		Presale:     presaleAddr,
		Contributor: buyer,
		Accepted:    8_500_000,
		Tokens:      10,
	}))
	require.NoError(t, j.Handle(ctx, events.AirdropEvent{
		BaseEvent: events.NewBase(events.AirdropDistributed, time.Unix(1_700_000_100, 0)),
		Presale:   presaleAddr,
		Total:     280,
	}))
	require.NoError(t, j.Close())

	rows := readRows(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, header, rows[0])
	assert.Equal(t, "contribution.accepted", rows[1][2])
	assert.Equal(t, presaleAddr.String(), rows[1][3])
	assert.Equal(t, buyer.String(), rows[1][4])
	assert.Equal(t, "8500000", rows[1][5])
	assert.Contains(t, rows[1][6], `"tokens":10`)
	assert.Equal(t, "280", rows[2][5])

	records, flushes := j.Stats()
	assert.Equal(t, uint64(2), records)
	assert.Equal(t, uint64(1), flushes)
}

func TestJournalAppendsWithoutSecondHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.csv")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		j, err := Open(path, time.Hour, zap.NewNop())
		require.NoError(t, err)
		require.NoError(t, j.Handle(ctx, events.StakeEvent{
			BaseEvent: events.NewBase(events.StakeDeposited, time.Now()),
			Amount:    uint64(i + 1),
		}))
		require.NoError(t, j.Close())
	}

	rows := readRows(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, "1", rows[1][5])
	assert.Equal(t, "2", rows[2][5])
}

func TestJournalAttachedToBus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.csv")
	j, err := Open(path, time.Hour, zap.NewNop())
	require.NoError(t, err)

	bus := events.NewBus(zap.NewNop(), 8)
	j.Attach(bus)
	require.NoError(t, bus.PublishSync(context.Background(), events.PresaleEvent{
		BaseEvent: events.NewBase(events.PresaleClosed, time.Now()),
		Closed:    true,
	}))
	require.NoError(t, bus.Shutdown(context.Background()))
	require.NoError(t, j.Close())

	rows := readRows(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, "presale.closed", rows[1][2])
}
