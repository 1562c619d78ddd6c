package liquidity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/apperr"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/bus"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/config"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/ledger"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/ledger/memledger"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/limits"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/queue"
)

const (
	lp1 = "lp-1"
	lp2 = "lp-2"
)

func newTestEngine(t *testing.T) (*Engine, ledger.Store) {
	t.Helper()
	store := memledger.New()
	e := New(store, queue.New(), limits.NewStore(config.DefaultLimits()), bus.New(), zap.NewNop())
	return e, store
}

func seedShellMarket(t *testing.T, store ledger.Store, marketID, optionID string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.CreateMarket(ctx, &ledger.Market{
		ID: marketID, CreatorID: "creator-1", Question: "will it happen?",
		BaseLiquidityParamB0: 10_000_000, ResolutionMode: ledger.ModeOracle, Status: ledger.MarketOpen,
	}))
	require.NoError(t, store.CreateOption(ctx, &ledger.Option{ID: optionID, MarketID: marketID, Label: "YES"}))
}

func fundWallet(t *testing.T, store ledger.Store, userID string, amount int64) {
	t.Helper()
	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	w, err := tx.LockWallet(ctx, userID)
	require.NoError(t, err)
	w.Balance += amount
	require.NoError(t, tx.SaveWallet(ctx, w))
	require.NoError(t, tx.Commit(ctx))
}

func TestInitializeMarket_SeedsPoolOneToOne(t *testing.T) {
	e, store := newTestEngine(t)
	seedShellMarket(t, store, "m1", "o1")
	fundWallet(t, store, lp1, 50_000_000)

	result, err := e.InitializeMarket(context.Background(), lp1, "m1", 10_000_000)
	require.NoError(t, err)
	require.Equal(t, int64(10_000_000), result.SharesMinted)
	require.Equal(t, int64(10_000_000), result.TotalShares)

	view, err := e.GetLpPosition(context.Background(), lp1, "m1")
	require.NoError(t, err)
	require.Equal(t, int64(10_000_000), view.Shares)
}

func TestInitializeMarket_RejectsDoubleInit(t *testing.T) {
	e, store := newTestEngine(t)
	seedShellMarket(t, store, "m1", "o1")
	fundWallet(t, store, lp1, 50_000_000)

	_, err := e.InitializeMarket(context.Background(), lp1, "m1", 10_000_000)
	require.NoError(t, err)

	_, err = e.InitializeMarket(context.Background(), lp1, "m1", 1_000_000)
	require.Error(t, err)
}

func TestAddLiquidity_RejectsBeforeInitialization(t *testing.T) {
	e, store := newTestEngine(t)
	seedShellMarket(t, store, "m1", "o1")
	fundWallet(t, store, lp1, 50_000_000)

	_, err := e.AddLiquidity(context.Background(), lp1, "m1", 1_000_000)
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.MarketNotOpen))
}

func TestAddLiquidity_MintsProportionalShares(t *testing.T) {
	e, store := newTestEngine(t)
	seedShellMarket(t, store, "m1", "o1")
	fundWallet(t, store, lp1, 50_000_000)
	fundWallet(t, store, lp2, 50_000_000)

	_, err := e.InitializeMarket(context.Background(), lp1, "m1", 10_000_000)
	require.NoError(t, err)

	result, err := e.AddLiquidity(context.Background(), lp2, "m1", 10_000_000)
	require.NoError(t, err)
	require.Equal(t, int64(10_000_000), result.SharesMinted)
	require.Equal(t, int64(20_000_000), result.TotalShares)
}

func TestRemoveLiquidity_AlwaysRejected(t *testing.T) {
	e, store := newTestEngine(t)
	seedShellMarket(t, store, "m1", "o1")
	fundWallet(t, store, lp1, 50_000_000)
	_, err := e.InitializeMarket(context.Background(), lp1, "m1", 10_000_000)
	require.NoError(t, err)

	err = e.RemoveLiquidity(context.Background(), lp1, "m1", 1_000_000)
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.LockedUntilResolution))
}

func TestClaimLPRewards_RequiresResolvedMarket(t *testing.T) {
	e, store := newTestEngine(t)
	seedShellMarket(t, store, "m1", "o1")
	fundWallet(t, store, lp1, 50_000_000)
	_, err := e.InitializeMarket(context.Background(), lp1, "m1", 10_000_000)
	require.NoError(t, err)

	_, err = e.ClaimLPRewards(context.Background(), lp1, "m1", nil)
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.MarketNotOpen))
}

func TestClaimLPRewards_PaysOutFullPoolWhenNoOutstandingClaims(t *testing.T) {
	e, store := newTestEngine(t)
	seedShellMarket(t, store, "m1", "o1")
	fundWallet(t, store, lp1, 50_000_000)
	_, err := e.InitializeMarket(context.Background(), lp1, "m1", 10_000_000)
	require.NoError(t, err)

	resolveMarket(t, store, "m1")

	result, err := e.ClaimLPRewards(context.Background(), lp1, "m1", nil)
	require.NoError(t, err)
	require.Equal(t, int64(10_000_000), result.Payout)
	require.Equal(t, int64(0), result.RemainingShares)
}

func TestClaimLPRewards_PartialSharesLeavesRemainder(t *testing.T) {
	e, store := newTestEngine(t)
	seedShellMarket(t, store, "m1", "o1")
	fundWallet(t, store, lp1, 50_000_000)
	_, err := e.InitializeMarket(context.Background(), lp1, "m1", 10_000_000)
	require.NoError(t, err)

	resolveMarket(t, store, "m1")

	half := int64(5_000_000)
	result, err := e.ClaimLPRewards(context.Background(), lp1, "m1", &half)
	require.NoError(t, err)
	require.Equal(t, int64(5_000_000), result.Payout)
	require.Equal(t, int64(5_000_000), result.RemainingShares)
}

func TestClaimLPRewards_ReservesAgainstPendingTraderClaims(t *testing.T) {
	e, store := newTestEngine(t)
	seedShellMarket(t, store, "m1", "o1")
	fundWallet(t, store, lp1, 50_000_000)
	_, err := e.InitializeMarket(context.Background(), lp1, "m1", 10_000_000)
	require.NoError(t, err)

	// A winning position still owed a payout the pool must reserve against.
	winner := ledger.SideYes
	seedResolvedOptionWithWinner(t, store, "o1", winner, "trader-1", 4_000_000)
	resolveMarket(t, store, "m1")

	pending, err := e.PendingClaims(context.Background(), "m1")
	require.NoError(t, err)
	require.Equal(t, int64(4_000_000), pending)

	result, err := e.ClaimLPRewards(context.Background(), lp1, "m1", nil)
	require.NoError(t, err)
	require.Equal(t, int64(10_000_000-4_000_000), result.Payout)
}

func resolveMarket(t *testing.T, store ledger.Store, marketID string) {
	t.Helper()
	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	m, err := tx.LockMarket(ctx, marketID)
	require.NoError(t, err)
	m.Status = ledger.MarketResolved
	require.NoError(t, tx.SaveMarket(ctx, m))
	require.NoError(t, tx.Commit(ctx))
}

func seedResolvedOptionWithWinner(t *testing.T, store ledger.Store, optionID string, winner ledger.Side, userID string, yesShares int64) {
	t.Helper()
	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	o, err := tx.LockOption(ctx, optionID)
	require.NoError(t, err)
	o.IsResolved = true
	o.WinningSide = &winner
	require.NoError(t, tx.SaveOption(ctx, o))

	pos, err := tx.LockUserPosition(ctx, userID, optionID)
	require.NoError(t, err)
	pos.YesShares = yesShares
	require.NoError(t, tx.SaveUserPosition(ctx, pos))
	require.NoError(t, tx.Commit(ctx))
}
