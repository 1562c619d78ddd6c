// Package liquidity implements the liquidity-provider operations of spec
// §4.F: add_liquidity, the pre-resolution lockout on withdrawal, and
// claim_lp_rewards with its reserve-before-credit protocol against
// concurrent claims.
package liquidity

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/apperr"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/bus"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/ledger"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/limits"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/lmsr"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/metrics"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/queue"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/txrunner"
)

// Engine executes add_liquidity / claim_lp_rewards against the shared
// ledger, serialized per market by the same queue the trade engine uses
// (an LP op and a trade on the same market must never race on the pool).
type Engine struct {
	store  ledger.Store
	queue  *queue.Queue
	txOpts txrunner.Options
	lims   *limits.Store
	bus    *bus.Bus
	log    *zap.Logger
}

// New builds a liquidity Engine from its dependencies.
func New(store ledger.Store, q *queue.Queue, lims *limits.Store, b *bus.Bus, log *zap.Logger) *Engine {
	return &Engine{store: store, queue: q, txOpts: txrunner.Default(), lims: lims, bus: b, log: log}
}

// AddResult is add_liquidity's canonical output.
type AddResult struct {
	SharesMinted int64
	TotalShares  int64
}

// AddLiquidity executes add_liquidity (spec §4.F).
func (e *Engine) AddLiquidity(ctx context.Context, userID, marketID string, amount int64) (*AddResult, error) {
	if err := e.lims.MinDeposit(amount); err != nil {
		return nil, err
	}

	var result *AddResult
	err := e.queue.Submit(ctx, queue.Key{MarketID: marketID}, queue.DefaultTimeout, func(ctx context.Context) error {
		return txrunner.WithTransaction(ctx, e.store, e.txOpts, func(ctx context.Context, tx ledger.Tx) error {
			r, err := e.addInTx(ctx, tx, userID, marketID, amount)
			if err != nil {
				return err
			}
			result = r
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.LiquidityOps.WithLabelValues("add").Inc()
	e.bus.Publish(bus.Message{Kind: bus.KindMarket, Market: &bus.MarketUpdate{
		Market: marketID, Event: bus.MarketEventUpdated, TS: time.Now().Unix(),
	}})
	return result, nil
}

func (e *Engine) addInTx(ctx context.Context, tx ledger.Tx, userID, marketID string, amount int64) (*AddResult, error) {
	market, err := tx.LockMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if !market.IsInitialized {
		return nil, apperr.New(apperr.MarketNotOpen, "market %s is not yet initialized", marketID)
	}
	if market.Status == ledger.MarketResolved || market.Status == ledger.MarketDisputed {
		return nil, apperr.New(apperr.MarketNotOpen, "market %s is no longer accepting liquidity", marketID)
	}

	wallet, err := tx.LockWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	if wallet.Balance < amount {
		return nil, apperr.New(apperr.InsufficientBalance, "wallet balance %d is less than deposit %d", wallet.Balance, amount)
	}

	var sharesToMint int64
	if market.SharedPoolLiquidity <= 0 || market.TotalLPShares <= 0 {
		sharesToMint = amount
	} else {
		sharesToMint = (amount*market.TotalLPShares + market.SharedPoolLiquidity/2) / market.SharedPoolLiquidity
		if sharesToMint <= 0 {
			sharesToMint = 1
		}
	}

	wallet.Balance -= amount
	market.SharedPoolLiquidity += amount
	market.TotalLPShares += sharesToMint
	market.LiquidityParamB = lmsr.RecomputeB(market.BaseLiquidityParamB0, market.SharedPoolLiquidity, market.TotalLPShares)

	pos, err := tx.LockLpPosition(ctx, userID, marketID)
	if err != nil {
		return nil, err
	}
	pos.Shares += sharesToMint
	pos.DepositedAmount += amount

	if err := tx.SaveWallet(ctx, wallet); err != nil {
		return nil, err
	}
	if err := tx.SaveMarket(ctx, market); err != nil {
		return nil, err
	}
	if err := tx.SaveLpPosition(ctx, pos); err != nil {
		return nil, err
	}

	metrics.ObservePoolLiquidity(market.ID, market.SharedPoolLiquidity)
	return &AddResult{SharesMinted: sharesToMint, TotalShares: market.TotalLPShares}, nil
}

// InitializeMarket seeds a freshly created market's pool, the step that
// turns a market from a bare question-and-options shell (created by the API
// layer's administrative market/option writes, which never move money) into
// one open for add_liquidity and trading. The first deposit always mints
// 1:1, matching add_liquidity's empty-pool branch; everything afterward is
// an ordinary AddLiquidity call.
func (e *Engine) InitializeMarket(ctx context.Context, userID, marketID string, amount int64) (*AddResult, error) {
	if err := e.lims.MinDeposit(amount); err != nil {
		return nil, err
	}

	var result *AddResult
	err := e.queue.Submit(ctx, queue.Key{MarketID: marketID}, queue.DefaultTimeout, func(ctx context.Context) error {
		return txrunner.WithTransaction(ctx, e.store, e.txOpts, func(ctx context.Context, tx ledger.Tx) error {
			r, err := e.initInTx(ctx, tx, userID, marketID, amount)
			if err != nil {
				return err
			}
			result = r
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.LiquidityOps.WithLabelValues("initialize").Inc()
	e.bus.Publish(bus.Message{Kind: bus.KindMarket, Market: &bus.MarketUpdate{
		Market: marketID, Event: bus.MarketEventInitialized, TS: time.Now().Unix(),
	}})
	return result, nil
}

func (e *Engine) initInTx(ctx context.Context, tx ledger.Tx, userID, marketID string, amount int64) (*AddResult, error) {
	market, err := tx.LockMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if market.IsInitialized {
		return nil, apperr.New(apperr.Validation, "market %s is already initialized", marketID)
	}

	wallet, err := tx.LockWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	if wallet.Balance < amount {
		return nil, apperr.New(apperr.InsufficientBalance, "wallet balance %d is less than deposit %d", wallet.Balance, amount)
	}

	wallet.Balance -= amount
	market.SharedPoolLiquidity = amount
	market.TotalLPShares = amount
	market.LiquidityParamB = lmsr.RecomputeB(market.BaseLiquidityParamB0, amount, amount)
	market.IsInitialized = true

	pos, err := tx.LockLpPosition(ctx, userID, marketID)
	if err != nil {
		return nil, err
	}
	pos.Shares += amount
	pos.DepositedAmount += amount

	if err := tx.SaveWallet(ctx, wallet); err != nil {
		return nil, err
	}
	if err := tx.SaveMarket(ctx, market); err != nil {
		return nil, err
	}
	if err := tx.SaveLpPosition(ctx, pos); err != nil {
		return nil, err
	}

	metrics.ObservePoolLiquidity(market.ID, market.SharedPoolLiquidity)
	return &AddResult{SharesMinted: amount, TotalShares: market.TotalLPShares}, nil
}

// RemoveLiquidity is permanently locked pre-resolution (spec §4.F): LPs
// cannot front-run a market they know is about to resolve against them.
// Post-resolution withdrawal happens exclusively through ClaimLPRewards.
func (e *Engine) RemoveLiquidity(ctx context.Context, userID, marketID string, shares int64) error {
	metrics.LiquidityOps.WithLabelValues("remove_rejected").Inc()
	return apperr.New(apperr.LockedUntilResolution, "liquidity cannot be removed before market %s resolves; use claim_lp_rewards", marketID)
}

// ClaimResult is claim_lp_rewards's canonical output.
type ClaimResult struct {
	LiquidityPortion int64
	FeesPortion      int64
	Payout           int64
	RemainingShares  int64
	NewBalance       int64
}

// ClaimLPRewards executes claim_lp_rewards (spec §4.F), with shares == nil
// meaning "claim everything this position still holds".
func (e *Engine) ClaimLPRewards(ctx context.Context, userID, marketID string, shares *int64) (*ClaimResult, error) {
	var result *ClaimResult
	err := e.queue.Submit(ctx, queue.Key{MarketID: marketID}, queue.DefaultTimeout, func(ctx context.Context) error {
		return txrunner.WithTransaction(ctx, e.store, e.txOpts, func(ctx context.Context, tx ledger.Tx) error {
			r, err := e.claimInTx(ctx, tx, userID, marketID, shares)
			if err != nil {
				return err
			}
			result = r
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.LiquidityOps.WithLabelValues("claim_lp").Inc()
	e.bus.Publish(bus.Message{Kind: bus.KindBalance, Balance: &bus.BalanceUpdate{
		User: userID, NewBalance: result.NewBalance, TS: time.Now().Unix(),
	}})
	return result, nil
}

func (e *Engine) claimInTx(ctx context.Context, tx ledger.Tx, userID, marketID string, shares *int64) (*ClaimResult, error) {
	market, err := tx.LockMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if market.Status != ledger.MarketResolved {
		return nil, apperr.New(apperr.MarketNotOpen, "market %s has not resolved yet", marketID)
	}

	wallet, err := tx.LockWallet(ctx, userID)
	if err != nil {
		return nil, err
	}

	pos, err := tx.LockLpPosition(ctx, userID, marketID)
	if err != nil {
		return nil, err
	}
	if pos.Shares <= 0 {
		return nil, apperr.New(apperr.Validation, "user %s holds no LP shares in market %s", userID, marketID)
	}

	sharesToClaim := pos.Shares
	if shares != nil {
		if *shares <= 0 || *shares > pos.Shares {
			return nil, apperr.New(apperr.Validation, "shares %d invalid for position of %d", *shares, pos.Shares)
		}
		sharesToClaim = *shares
	}

	pendingClaims, err := e.pendingClaims(ctx, tx, marketID)
	if err != nil {
		return nil, err
	}

	available := market.SharedPoolLiquidity - pendingClaims - market.ReservedLiquidity
	if available < 0 {
		available = 0
	}
	if market.TotalLPShares <= 0 {
		return nil, apperr.New(apperr.Conflict, "market %s has no outstanding LP shares", marketID)
	}

	liquidityPortion := (available * sharesToClaim) / market.TotalLPShares
	feesPortion := (market.AccumulatedLPFees * sharesToClaim) / market.TotalLPShares
	payout := liquidityPortion + feesPortion

	if payout == 0 {
		return nil, apperr.New(apperr.Conflict, "nothing available to claim right now; pool liquidity is fully reserved or owed to traders")
	}
	if market.ReservedLiquidity+liquidityPortion > market.SharedPoolLiquidity-pendingClaims {
		return nil, apperr.New(apperr.Conflict, "reservation would exceed pool liquidity net of pending trader claims")
	}

	// Reserve before crediting (spec §4.F): this write is what stops a
	// second concurrent claim from computing `available` against the same
	// unreserved pool and overdrawing it.
	market.ReservedLiquidity += liquidityPortion
	if err := tx.SaveMarket(ctx, market); err != nil {
		return nil, err
	}

	wallet.Balance += payout
	if err := tx.SaveWallet(ctx, wallet); err != nil {
		return nil, err
	}

	market.ReservedLiquidity -= liquidityPortion
	market.SharedPoolLiquidity -= liquidityPortion
	market.AccumulatedLPFees -= feesPortion
	market.TotalLPShares -= sharesToClaim
	if err := tx.SaveMarket(ctx, market); err != nil {
		return nil, err
	}

	pos.DepositedAmount = (pos.DepositedAmount * (pos.Shares - sharesToClaim)) / pos.Shares
	pos.Shares -= sharesToClaim
	if pos.Shares == 0 {
		if err := tx.DeleteLpPosition(ctx, userID, marketID); err != nil {
			return nil, err
		}
	} else {
		if err := tx.SaveLpPosition(ctx, pos); err != nil {
			return nil, err
		}
	}

	metrics.ObservePoolLiquidity(market.ID, market.SharedPoolLiquidity)
	return &ClaimResult{
		LiquidityPortion: liquidityPortion,
		FeesPortion:      feesPortion,
		Payout:           payout,
		RemainingShares:  pos.Shares,
		NewBalance:       wallet.Balance,
	}, nil
}

// pendingClaims sums the payout the pool still owes to unclaimed winning
// positions across every resolved option in marketID (spec §4.F
// "Pending-claims computation").
func (e *Engine) pendingClaims(ctx context.Context, tx ledger.Tx, marketID string) (int64, error) {
	options, err := tx.ListOptionsByMarket(ctx, marketID)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, opt := range options {
		if !opt.IsResolved || opt.WinningSide == nil {
			continue
		}
		positions, err := tx.ListUnclaimedPositionsByOption(ctx, opt.ID)
		if err != nil {
			return 0, err
		}
		for _, pos := range positions {
			if *opt.WinningSide == ledger.SideYes {
				total += pos.YesShares
			} else {
				total += pos.NoShares
			}
		}
	}
	return total, nil
}

// PendingClaims exposes the pending-claims computation as a read-only query
// (used by the API surface to show LPs what "available" currently is
// without requiring a write transaction).
func (e *Engine) PendingClaims(ctx context.Context, marketID string) (int64, error) {
	var total int64
	err := txrunner.WithTransaction(ctx, e.store, e.txOpts, func(ctx context.Context, tx ledger.Tx) error {
		t, err := e.pendingClaims(ctx, tx, marketID)
		if err != nil {
			return err
		}
		total = t
		// Read-only: roll back rather than commit a transaction that made
		// no writes.
		return rollbackSentinel{}
	})
	if _, ok := err.(rollbackSentinel); ok {
		return total, nil
	}
	return total, err
}

// rollbackSentinel lets PendingClaims force txrunner to roll back a
// read-only transaction without treating that as a real failure: it is
// never retryable, so txrunner returns it immediately as a permanent error.
type rollbackSentinel struct{}

func (rollbackSentinel) Error() string { return "read-only: rolled back intentionally" }

// LpPositionView is get_lp_position's canonical output.
type LpPositionView struct {
	Shares         int64
	Deposited      int64
	CurrentValue   int64
	ClaimableValue int64
	PnL            int64
}

// GetLpPosition reports a single LP's stake in a market: its theoretical
// share of the pool right now (current_value), what that share would
// actually pay out if claimed this instant net of pending trader claims and
// any concurrent reservation (claimable_value), and realized/unrealized
// gain against the amount deposited.
func (e *Engine) GetLpPosition(ctx context.Context, userID, marketID string) (*LpPositionView, error) {
	var view *LpPositionView
	err := txrunner.WithTransaction(ctx, e.store, e.txOpts, func(ctx context.Context, tx ledger.Tx) error {
		market, err := tx.GetMarket(ctx, marketID)
		if err != nil {
			return err
		}
		pos, err := tx.GetLpPosition(ctx, userID, marketID)
		if err != nil {
			return err
		}

		var currentValue, claimableValue int64
		if pos.Shares > 0 && market.TotalLPShares > 0 {
			currentValue = ((market.SharedPoolLiquidity + market.AccumulatedLPFees) * pos.Shares) / market.TotalLPShares

			pendingClaims, err := e.pendingClaims(ctx, tx, marketID)
			if err != nil {
				return err
			}
			available := market.SharedPoolLiquidity - pendingClaims - market.ReservedLiquidity
			if available < 0 {
				available = 0
			}
			liquidityPortion := (available * pos.Shares) / market.TotalLPShares
			feesPortion := (market.AccumulatedLPFees * pos.Shares) / market.TotalLPShares
			claimableValue = liquidityPortion + feesPortion
		}

		view = &LpPositionView{
			Shares:         pos.Shares,
			Deposited:      pos.DepositedAmount,
			CurrentValue:   currentValue,
			ClaimableValue: claimableValue,
			PnL:            claimableValue - pos.DepositedAmount,
		}
		return rollbackSentinel{}
	})
	if _, ok := err.(rollbackSentinel); ok {
		return view, nil
	}
	return nil, err
}
