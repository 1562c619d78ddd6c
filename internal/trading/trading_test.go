package trading

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/apperr"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/bus"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/config"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/jobs"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/ledger"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/ledger/memledger"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/limits"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/queue"
)

const (
	creatorID = "creator-1"
	traderID  = "trader-1"
)

func newTestEngine(t *testing.T) (*Engine, ledger.Store) {
	t.Helper()
	store := memledger.New()
	e := New(store, queue.New(), config.DefaultFeeConfig(), limits.NewStore(config.DefaultLimits()), bus.New(), jobs.NewPool(2, zap.NewNop()), zap.NewNop())
	return e, store
}

func seedMarket(t *testing.T, store ledger.Store, marketID, optionID string) {
	t.Helper()
	ctx := context.Background()
	market := &ledger.Market{
		ID: marketID, CreatorID: creatorID, Question: "will it happen?",
		SharedPoolLiquidity: 10_000_000, TotalLPShares: 10_000_000,
		LiquidityParamB: 10_000_000_000, BaseLiquidityParamB0: 10_000_000,
		ResolutionMode: ledger.ModeOracle, Status: ledger.MarketOpen, IsInitialized: true,
	}
	require.NoError(t, store.CreateMarket(ctx, market))
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

func walletBalance(t *testing.T, store ledger.Store, userID string) int64 {
	t.Helper()
	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)
	w, err := tx.LockWallet(ctx, userID)
	require.NoError(t, err)
	return w.Balance
}

func TestBuyShares_DebitsWalletAndMintsShares(t *testing.T) {
	e, store := newTestEngine(t)
	seedMarket(t, store, "m1", "o1")
	fundWallet(t, store, traderID, 100_000_000)

	trade, err := e.BuyShares(context.Background(), BuyInput{
		UserID: traderID, MarketID: "m1", OptionID: "o1", BuyYes: 1_000_000,
	})
	require.NoError(t, err)
	require.Equal(t, ledger.TradeBuy, trade.Type)
	require.Greater(t, trade.TotalCost, int64(0))
	require.Equal(t, int64(100_000_000)-trade.TotalCost, walletBalance(t, store, traderID))
}

func TestBuyShares_RejectsMixedSides(t *testing.T) {
	e, store := newTestEngine(t)
	seedMarket(t, store, "m1", "o1")
	fundWallet(t, store, traderID, 100_000_000)

	_, err := e.BuyShares(context.Background(), BuyInput{
		UserID: traderID, MarketID: "m1", OptionID: "o1", BuyYes: 1, BuyNo: 1,
	})
	require.Error(t, err)
}

func TestBuyShares_InsufficientBalance(t *testing.T) {
	e, store := newTestEngine(t)
	seedMarket(t, store, "m1", "o1")
	fundWallet(t, store, traderID, 1)

	_, err := e.BuyShares(context.Background(), BuyInput{
		UserID: traderID, MarketID: "m1", OptionID: "o1", BuyYes: 10_000_000,
	})
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.InsufficientBalance))
}

func TestBuyShares_MaxCostSlippageRejected(t *testing.T) {
	e, store := newTestEngine(t)
	seedMarket(t, store, "m1", "o1")
	fundWallet(t, store, traderID, 100_000_000)

	tiny := int64(1)
	_, err := e.BuyShares(context.Background(), BuyInput{
		UserID: traderID, MarketID: "m1", OptionID: "o1", BuyYes: 1_000_000, MaxCost: &tiny,
	})
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.SlippageExceeded))
}

func TestFeeSplit_CreditsCreatorAndProtocolWallets(t *testing.T) {
	e, store := newTestEngine(t)
	seedMarket(t, store, "m1", "o1")
	fundWallet(t, store, traderID, 100_000_000)

	_, err := e.BuyShares(context.Background(), BuyInput{
		UserID: traderID, MarketID: "m1", OptionID: "o1", BuyYes: 5_000_000,
	})
	require.NoError(t, err)

	require.Greater(t, walletBalance(t, store, creatorID), int64(0))
	require.Greater(t, walletBalance(t, store, ProtocolTreasuryUserID), int64(0))
}

func TestBuyThenSell_NeverProfitsTraderBeyondFees(t *testing.T) {
	e, store := newTestEngine(t)
	seedMarket(t, store, "m1", "o1")
	fundWallet(t, store, traderID, 100_000_000)

	startBalance := walletBalance(t, store, traderID)
	_, err := e.BuyShares(context.Background(), BuyInput{
		UserID: traderID, MarketID: "m1", OptionID: "o1", BuyYes: 1_000_000,
	})
	require.NoError(t, err)

	_, err = e.SellShares(context.Background(), SellInput{
		UserID: traderID, MarketID: "m1", OptionID: "o1", SellYes: 1_000_000,
	})
	require.NoError(t, err)

	require.LessOrEqual(t, walletBalance(t, store, traderID), startBalance)
}

func TestSellShares_RejectsExceedingHeldShares(t *testing.T) {
	e, store := newTestEngine(t)
	seedMarket(t, store, "m1", "o1")
	fundWallet(t, store, traderID, 100_000_000)

	_, err := e.BuyShares(context.Background(), BuyInput{
		UserID: traderID, MarketID: "m1", OptionID: "o1", BuyYes: 1_000_000,
	})
	require.NoError(t, err)

	_, err = e.SellShares(context.Background(), SellInput{
		UserID: traderID, MarketID: "m1", OptionID: "o1", SellYes: 2_000_000,
	})
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.InsufficientShares))
}

func TestClaimWinnings_PaysOutAndIsIdempotent(t *testing.T) {
	e, store := newTestEngine(t)
	seedMarket(t, store, "m1", "o1")
	fundWallet(t, store, traderID, 100_000_000)

	_, err := e.BuyShares(context.Background(), BuyInput{
		UserID: traderID, MarketID: "m1", OptionID: "o1", BuyYes: 1_000_000,
	})
	require.NoError(t, err)

	resolveOption(t, store, "o1", ledger.SideYes)

	result, err := e.ClaimWinnings(context.Background(), traderID, "m1", "o1")
	require.NoError(t, err)
	require.False(t, result.AlreadyClaimed)
	require.Equal(t, int64(1_000_000), result.Payout)

	again, err := e.ClaimWinnings(context.Background(), traderID, "m1", "o1")
	require.NoError(t, err)
	require.True(t, again.AlreadyClaimed)
	require.Equal(t, int64(0), again.Payout)
}

func TestClaimWinnings_BeforeResolutionRejected(t *testing.T) {
	e, store := newTestEngine(t)
	seedMarket(t, store, "m1", "o1")
	fundWallet(t, store, traderID, 100_000_000)

	_, err := e.ClaimWinnings(context.Background(), traderID, "m1", "o1")
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.MarketNotOpen))
}

func TestAutoCreditOption_SweepsUnclaimedPositions(t *testing.T) {
	e, store := newTestEngine(t)
	seedMarket(t, store, "m1", "o1")
	fundWallet(t, store, traderID, 100_000_000)

	_, err := e.BuyShares(context.Background(), BuyInput{
		UserID: traderID, MarketID: "m1", OptionID: "o1", BuyYes: 1_000_000,
	})
	require.NoError(t, err)

	resolveOption(t, store, "o1", ledger.SideYes)

	startBalance := walletBalance(t, store, traderID)
	require.NoError(t, e.AutoCreditOption(context.Background(), "m1", "o1"))
	require.Equal(t, startBalance+1_000_000, walletBalance(t, store, traderID))

	// Idempotent: a second sweep after the position is already claimed is a no-op.
	require.NoError(t, e.AutoCreditOption(context.Background(), "m1", "o1"))
	require.Equal(t, startBalance+1_000_000, walletBalance(t, store, traderID))
}

func resolveOption(t *testing.T, store ledger.Store, optionID string, winner ledger.Side) {
	t.Helper()
	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	o, err := tx.LockOption(ctx, optionID)
	require.NoError(t, err)
	o.IsResolved = true
	o.WinningSide = &winner
	require.NoError(t, tx.SaveOption(ctx, o))
	require.NoError(t, tx.Commit(ctx))
}
