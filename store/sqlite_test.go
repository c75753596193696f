package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/beka-birhanu/vinom-treasure-maze/economy"
	"github.com/beka-birhanu/vinom-treasure-maze/maze"
	"github.com/beka-birhanu/vinom-treasure-maze/payment"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "cache.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	_, err := OpenSQLite("")
	assert.ErrorIs(t, err, ErrEmptyPath)
}

func TestGameStartEpoch_PersistsFirstValue(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	first := time.UnixMilli(1_700_000_000_123)
	got, err := s.EnsureGameStartEpoch(ctx, first)
	require.NoError(t, err)
	assert.True(t, got.Equal(first))

	got, err = s.EnsureGameStartEpoch(ctx, first.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, got.Equal(first), "later launches keep the original start")

	reset := first.Add(48 * time.Hour)
	require.NoError(t, s.ResetGameStartEpoch(ctx, reset))
	got, err = s.EnsureGameStartEpoch(ctx, time.Now())
	require.NoError(t, err)
	assert.True(t, got.Equal(reset))
}

func TestSessions(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	id := uuid.New()

	_, ok, err := s.LoadSession(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	snap := economy.Snapshot{
		PlayerID:       id,
		Nickname:       "ada",
		Round:          4,
		RoundStartedAt: time.UnixMilli(1_700_000_390_000).UTC(),
		Position:       &maze.Position{Col: 3, Row: 9},
		HasClaimedPlot: true,
		Gold:           8000,
		Profit:         120,
		Loss:           2120,
	}
	require.NoError(t, s.SaveSession(ctx, snap))

	got, ok, err := s.LoadSession(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, snap, got)

	snap.Round = 5
	snap.Position = nil
	snap.HasClaimedPlot = false
	require.NoError(t, s.SaveSession(ctx, snap))

	got, ok, err = s.LoadSession(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5, got.Round)
	assert.Nil(t, got.Position)
	assert.False(t, got.HasClaimedPlot)
}

func TestTransactions_UpsertAndOrder(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	player := uuid.New()
	owner := uuid.New()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	older := payment.Transaction{
		ID: uuid.New(), Player: player, Action: payment.ActionClaimPlot, Amount: 1000,
		Currency: "gold", Status: payment.StatusPending, CreatedAt: base, UpdatedAt: base,
	}
	require.NoError(t, s.Record(older))
	older.Status = payment.StatusConfirmed
	older.UpdatedAt = base.Add(time.Second)
	require.NoError(t, s.Record(older))

	newer := payment.Transaction{
		ID: uuid.New(), Player: player, Action: payment.ActionPayFee, Amount: 50,
		Currency: "gold", Recipient: &owner, Status: payment.StatusFailed, Error: "declined",
		CreatedAt: base.Add(time.Minute), UpdatedAt: base.Add(time.Minute),
	}
	require.NoError(t, s.Record(newer))
	require.NoError(t, s.Record(payment.Transaction{
		ID: uuid.New(), Player: uuid.New(), Action: payment.ActionBuyGold, Amount: 1,
		Currency: "sats", Status: payment.StatusConfirmed, CreatedAt: base, UpdatedAt: base,
	}))

	txs, err := s.Transactions(ctx, player)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	assert.Equal(t, newer.ID, txs[0].ID)
	require.NotNil(t, txs[0].Recipient)
	assert.Equal(t, owner, *txs[0].Recipient)
	assert.Equal(t, "declined", txs[0].Error)

	assert.Equal(t, older.ID, txs[1].ID)
	assert.Equal(t, payment.StatusConfirmed, txs[1].Status)
	assert.Nil(t, txs[1].Recipient)
	assert.True(t, txs[1].UpdatedAt.Equal(base.Add(time.Second)))
}
