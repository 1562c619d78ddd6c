package memledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/apperr"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/ledger"
)

func TestCreateMarket_RejectsDuplicateID(t *testing.T) {
	s := New()
	ctx := context.Background()
	m := &ledger.Market{ID: "m1"}
	require.NoError(t, s.CreateMarket(ctx, m))

	err := s.CreateMarket(ctx, m)
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.Conflict))
}

func TestLockWallet_LazilyCreatesZeroBalanceWallet(t *testing.T) {
	s := New()
	ctx := context.Background()
	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	w, err := tx.LockWallet(ctx, "new-user")
	require.NoError(t, err)
	require.Equal(t, int64(0), w.Balance)
}

func TestCommit_PersistsStagedWrites(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateMarket(ctx, &ledger.Market{ID: "m1"}))

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	w, err := tx.LockWallet(ctx, "u1")
	require.NoError(t, err)
	w.Balance = 500
	require.NoError(t, tx.SaveWallet(ctx, w))
	require.NoError(t, tx.Commit(ctx))

	tx2, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx2.Rollback(ctx)
	w2, err := tx2.LockWallet(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(500), w2.Balance)
}

func TestRollback_DiscardsStagedWrites(t *testing.T) {
	s := New()
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	w, err := tx.LockWallet(ctx, "u1")
	require.NoError(t, err)
	w.Balance = 999
	require.NoError(t, tx.SaveWallet(ctx, w))
	require.NoError(t, tx.Rollback(ctx))

	tx2, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx2.Rollback(ctx)
	w2, err := tx2.LockWallet(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(0), w2.Balance)
}

func TestTransaction_SeesItsOwnUncommittedWrites(t *testing.T) {
	s := New()
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	w, err := tx.LockWallet(ctx, "u1")
	require.NoError(t, err)
	w.Balance = 10
	require.NoError(t, tx.SaveWallet(ctx, w))

	w2, err := tx.LockWallet(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(10), w2.Balance)
}

func TestDeleteLpPosition_RemovesPositionWithinSameTxAndAfterCommit(t *testing.T) {
	s := New()
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	pos, err := tx.LockLpPosition(ctx, "u1", "m1")
	require.NoError(t, err)
	pos.Shares = 5
	require.NoError(t, tx.SaveLpPosition(ctx, pos))
	require.NoError(t, tx.Commit(ctx))

	tx2, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx2.DeleteLpPosition(ctx, "u1", "m1"))
	_, err = tx2.GetLpPosition(ctx, "u1", "m1")
	require.Error(t, err)
	require.NoError(t, tx2.Commit(ctx))

	tx3, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx3.Rollback(ctx)
	_, err = tx3.GetLpPosition(ctx, "u1", "m1")
	require.Error(t, err)
}

func TestListOptionsByMarket_ReturnsCommittedOptions(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateMarket(ctx, &ledger.Market{ID: "m1"}))
	require.NoError(t, s.CreateOption(ctx, &ledger.Option{ID: "o1", MarketID: "m1"}))

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	opts, err := tx.ListOptionsByMarket(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, opts, 1)
	require.Equal(t, "o1", opts[0].ID)
}

func TestListSnapshots_FiltersByTimeWindow(t *testing.T) {
	s := New()
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.InsertSnapshot(ctx, &ledger.PriceSnapshot{ID: "s1", OptionID: "o1", TS: 100}))
	require.NoError(t, tx.InsertSnapshot(ctx, &ledger.PriceSnapshot{ID: "s2", OptionID: "o1", TS: 200}))
	require.NoError(t, tx.InsertSnapshot(ctx, &ledger.PriceSnapshot{ID: "s3", OptionID: "o1", TS: 300}))
	require.NoError(t, tx.Commit(ctx))

	tx2, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx2.Rollback(ctx)
	snaps, err := tx2.ListSnapshots(ctx, "o1", 150, 250)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	require.Equal(t, "s2", snaps[0].ID)
}

func TestListUnclaimedPositionsByOption_ExcludesClaimedAndEmptyPositions(t *testing.T) {
	s := New()
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.SaveUserPosition(ctx, &ledger.UserPosition{UserID: "u1", OptionID: "o1", YesShares: 5}))
	require.NoError(t, tx.SaveUserPosition(ctx, &ledger.UserPosition{UserID: "u2", OptionID: "o1", YesShares: 3, IsClaimed: true}))
	require.NoError(t, tx.SaveUserPosition(ctx, &ledger.UserPosition{UserID: "u3", OptionID: "o1"}))
	require.NoError(t, tx.Commit(ctx))

	tx2, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx2.Rollback(ctx)
	positions, err := tx2.ListUnclaimedPositionsByOption(ctx, "o1")
	require.NoError(t, err)
	require.Len(t, positions, 1)
	require.Equal(t, "u1", positions[0].UserID)
}
