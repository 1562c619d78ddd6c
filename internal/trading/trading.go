// Package trading implements the buy/sell/claim operations of spec §4.E:
// LMSR-priced trades against a market's shared pool, with fee split,
// slippage guards, position bookkeeping, and idempotent claim handling.
package trading

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/apperr"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/bus"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/config"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/jobs"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/ledger"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/limits"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/lmsr"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/metrics"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/queue"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/txrunner"
)

// ProtocolTreasuryUserID is the wallet that accumulates the protocol's
// share of trade and dispute fees. It is a plain Wallet row like any
// user's, locked and credited under the same global lock order.
const ProtocolTreasuryUserID = "protocol-treasury"

// Engine composes the ledger, the per-key queue, the retrying transaction
// runner and the ambient config/limits/bus dependencies into the trade
// operation surface.
type Engine struct {
	store  ledger.Store
	queue  *queue.Queue
	txOpts txrunner.Options
	fees   config.FeeConfig
	lims   *limits.Store
	daily  *limits.DailyVolumeTracker
	bus    *bus.Bus
	jobs   *jobs.Pool
	log    *zap.Logger
}

// New builds a trade Engine from its dependencies.
func New(store ledger.Store, q *queue.Queue, fees config.FeeConfig, lims *limits.Store, b *bus.Bus, pool *jobs.Pool, log *zap.Logger) *Engine {
	return &Engine{
		store:  store,
		queue:  q,
		txOpts: txrunner.Default(),
		fees:   fees,
		lims:   lims,
		daily:  limits.NewDailyVolumeTracker(),
		bus:    b,
		jobs:   pool,
		log:    log,
	}
}

// BuyInput is buy_shares's canonical input (spec §6), with an added
// ExpectedCost: the total charge (gross cost plus fees) quoted to the
// caller before submission,
// needed to evaluate slippage_bps meaningfully against a trade that only
// locks its rows once it is dequeued (see DESIGN.md).
type BuyInput struct {
	UserID       string
	MarketID     string
	OptionID     string
	BuyYes       int64
	BuyNo        int64
	MaxCost      *int64
	ExpectedCost *int64
	SlippageBps  *int64
}

// SellInput is sell_shares's canonical input (spec §6), with the symmetric
// ExpectedPayout addition.
type SellInput struct {
	UserID         string
	MarketID       string
	OptionID       string
	SellYes        int64
	SellNo         int64
	MinPayout      *int64
	ExpectedPayout *int64
	SlippageBps    *int64
}

// ClaimResult is claim_winnings's canonical output (spec §6). AlreadyClaimed
// is set (with every other field zero) on the idempotent no-op path.
type ClaimResult struct {
	Payout         int64
	WinningSide    ledger.Side
	RealizedPnL    int64
	AlreadyClaimed bool
	NewBalance     int64
}

// BuyShares executes buy_shares (spec §4.E). It enqueues the operation on
// the (market, option) serialization key before opening any transaction.
func (e *Engine) BuyShares(ctx context.Context, in BuyInput) (*ledger.Trade, error) {
	if err := limits.OneSideOnly(in.BuyYes, in.BuyNo); err != nil {
		return nil, err
	}
	qty := in.BuyYes + in.BuyNo
	if err := e.lims.MinTradeSize(qty); err != nil {
		return nil, err
	}

	var result *ledger.Trade
	err := e.queue.Submit(ctx, queue.Key{MarketID: in.MarketID, OptionID: in.OptionID}, queue.DefaultTimeout, func(ctx context.Context) error {
		return txrunner.WithTransaction(ctx, e.store, e.txOpts, func(ctx context.Context, tx ledger.Tx) error {
			trade, err := e.buyInTx(ctx, tx, in, qty)
			if err != nil {
				return err
			}
			result = trade
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.Trades.WithLabelValues("buy", sideLabel(in.BuyYes > 0)).Inc()
	e.bus.Publish(bus.Message{Kind: bus.KindTrade, Trade: &bus.TradeUpdate{
		Market: in.MarketID, Option: in.OptionID, Type: "buy",
		Side: int(sideOf(in.BuyYes > 0)), Quantity: qty,
		PricePerShare: result.PricePerShare, TS: result.TS,
	}})
	return result, nil
}

func (e *Engine) buyInTx(ctx context.Context, tx ledger.Tx, in BuyInput, qty int64) (*ledger.Trade, error) {
	market, err := tx.LockMarket(ctx, in.MarketID)
	if err != nil {
		return nil, err
	}
	option, err := tx.LockOption(ctx, in.OptionID)
	if err != nil {
		return nil, err
	}
	if option.MarketID != market.ID {
		return nil, apperr.New(apperr.Validation, "option %s does not belong to market %s", option.ID, market.ID)
	}
	if market.Status != ledger.MarketOpen || !market.IsInitialized {
		return nil, apperr.New(apperr.MarketNotOpen, "market %s is not open for trading", market.ID)
	}
	if option.IsResolved {
		return nil, apperr.New(apperr.OptionAlreadyResolved, "option %s is already resolved", option.ID)
	}

	gross := lmsr.BuyCost(option.YesQuantity, option.NoQuantity, market.LiquidityParamB, in.BuyYes, in.BuyNo)
	totalFee, creatorFee, protocolFee, lpFee := e.fees.Split(gross)
	totalCharge := gross + totalFee

	if err := e.lims.MinTradeCost(totalCharge); err != nil {
		return nil, err
	}
	if err := e.lims.MaxTradeCost(totalCharge); err != nil {
		return nil, err
	}
	if err := limits.Slippage(totalCharge, expectedOr(in.ExpectedCost, gross), in.SlippageBps); err != nil {
		return nil, err
	}
	if err := limits.MaxCost(totalCharge, in.MaxCost); err != nil {
		return nil, err
	}

	lim := e.lims.Current()
	if lim.MaxDailyUserVolume > 0 {
		if err := e.daily.CheckAndReserve(lim, in.UserID, totalCharge, time.Now()); err != nil {
			return nil, err
		}
	}

	wallet, creatorWallet, protocolWallet, err := e.lockFeeWallets(ctx, tx, market.CreatorID, in.UserID)
	if err != nil {
		return nil, err
	}
	if wallet.Balance < totalCharge {
		e.daily.Release(in.UserID, totalCharge)
		return nil, apperr.New(apperr.InsufficientBalance, "wallet balance %d is less than required %d", wallet.Balance, totalCharge)
	}
	wallet.Balance -= totalCharge
	if creatorWallet != nil {
		creatorWallet.Balance += creatorFee
	}
	if protocolWallet != nil {
		protocolWallet.Balance += protocolFee
	}

	pos, err := tx.LockUserPosition(ctx, in.UserID, in.OptionID)
	if err != nil {
		return nil, err
	}
	if pos.IsClaimed {
		return nil, apperr.New(apperr.LockedUntilResolution, "position for user %s on option %s already finalized", in.UserID, in.OptionID)
	}
	if err := e.lims.MaxMarketPosition(pos.YesShares+pos.NoShares, qty); err != nil {
		return nil, err
	}

	option.YesQuantity += in.BuyYes
	option.NoQuantity += in.BuyNo
	market.SharedPoolLiquidity += gross
	market.AccumulatedLPFees += lpFee
	market.TotalVolume += gross
	market.LiquidityParamB = lmsr.RecomputeB(market.BaseLiquidityParamB0, market.SharedPoolLiquidity, market.TotalLPShares)

	pos.YesShares += in.BuyYes
	pos.NoShares += in.BuyNo
	pos.TotalYesCost += func() int64 {
		if in.BuyYes > 0 {
			return gross
		}
		return 0
	}()
	pos.TotalNoCost += func() int64 {
		if in.BuyNo > 0 {
			return gross
		}
		return 0
	}()

	now := time.Now().Unix()
	trade := &ledger.Trade{
		ID: uuid.New().String(), UserID: in.UserID, MarketID: in.MarketID, OptionID: in.OptionID,
		Type: ledger.TradeBuy, Side: sideOf(in.BuyYes > 0), Quantity: qty,
		PricePerShare: lmsr.YesPrice(option.YesQuantity, option.NoQuantity, market.LiquidityParamB),
		TotalCost:     totalCharge, FeesPaid: totalFee, Status: ledger.TradeStatusSettled, TS: now,
	}

	if err := tx.SaveMarket(ctx, market); err != nil {
		return nil, err
	}
	if err := tx.SaveOption(ctx, option); err != nil {
		return nil, err
	}
	if err := tx.SaveWallet(ctx, wallet); err != nil {
		return nil, err
	}
	if creatorWallet != nil {
		if err := tx.SaveWallet(ctx, creatorWallet); err != nil {
			return nil, err
		}
	}
	if protocolWallet != nil {
		if err := tx.SaveWallet(ctx, protocolWallet); err != nil {
			return nil, err
		}
	}
	if err := tx.SaveUserPosition(ctx, pos); err != nil {
		return nil, err
	}
	if err := tx.InsertTrade(ctx, trade); err != nil {
		return nil, err
	}
	if err := tx.InsertSnapshot(ctx, tradeSnapshot(option, market, trade)); err != nil {
		return nil, err
	}

	metrics.ObservePoolLiquidity(market.ID, market.SharedPoolLiquidity)
	return trade, nil
}

// SellShares executes sell_shares (spec §4.E).
func (e *Engine) SellShares(ctx context.Context, in SellInput) (*ledger.Trade, error) {
	if err := limits.OneSideOnly(in.SellYes, in.SellNo); err != nil {
		return nil, err
	}
	qty := in.SellYes + in.SellNo
	if err := e.lims.MinTradeSize(qty); err != nil {
		return nil, err
	}

	var result *ledger.Trade
	err := e.queue.Submit(ctx, queue.Key{MarketID: in.MarketID, OptionID: in.OptionID}, queue.DefaultTimeout, func(ctx context.Context) error {
		return txrunner.WithTransaction(ctx, e.store, e.txOpts, func(ctx context.Context, tx ledger.Tx) error {
			trade, err := e.sellInTx(ctx, tx, in, qty)
			if err != nil {
				return err
			}
			result = trade
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.Trades.WithLabelValues("sell", sideLabel(in.SellYes > 0)).Inc()
	e.bus.Publish(bus.Message{Kind: bus.KindTrade, Trade: &bus.TradeUpdate{
		Market: in.MarketID, Option: in.OptionID, Type: "sell",
		Side: int(sideOf(in.SellYes > 0)), Quantity: qty,
		PricePerShare: result.PricePerShare, TS: result.TS,
	}})
	return result, nil
}

func (e *Engine) sellInTx(ctx context.Context, tx ledger.Tx, in SellInput, qty int64) (*ledger.Trade, error) {
	market, err := tx.LockMarket(ctx, in.MarketID)
	if err != nil {
		return nil, err
	}
	option, err := tx.LockOption(ctx, in.OptionID)
	if err != nil {
		return nil, err
	}
	if option.MarketID != market.ID {
		return nil, apperr.New(apperr.Validation, "option %s does not belong to market %s", option.ID, market.ID)
	}
	if market.Status != ledger.MarketOpen || !market.IsInitialized {
		return nil, apperr.New(apperr.MarketNotOpen, "market %s is not open for trading", market.ID)
	}
	if option.IsResolved {
		return nil, apperr.New(apperr.OptionAlreadyResolved, "option %s is already resolved", option.ID)
	}
	if in.SellYes > option.YesQuantity || in.SellNo > option.NoQuantity {
		return nil, apperr.New(apperr.InsufficientShares, "sell quantity exceeds outstanding option shares")
	}

	wallet, creatorWallet, protocolWallet, err := e.lockFeeWallets(ctx, tx, market.CreatorID, in.UserID)
	if err != nil {
		return nil, err
	}
	pos, err := tx.LockUserPosition(ctx, in.UserID, in.OptionID)
	if err != nil {
		return nil, err
	}
	if pos.IsClaimed {
		return nil, apperr.New(apperr.LockedUntilResolution, "position for user %s on option %s already finalized", in.UserID, in.OptionID)
	}
	if in.SellYes > pos.YesShares || in.SellNo > pos.NoShares {
		return nil, apperr.New(apperr.InsufficientShares, "position does not hold enough shares to sell")
	}

	payout := lmsr.SellPayout(option.YesQuantity, option.NoQuantity, market.LiquidityParamB, in.SellYes, in.SellNo)
	totalFee, creatorFee, protocolFee, lpFee := e.fees.Split(payout)
	net := payout - totalFee

	if err := e.lims.MinTradeCost(payout); err != nil {
		return nil, err
	}
	if in.SlippageBps != nil {
		// Slippage on a sell means the realized payout is worse (lower)
		// than expected by more than the bps tolerance.
		expected := expectedOr(in.ExpectedPayout, net)
		if net < expected-(expected*(*in.SlippageBps))/10_000 {
			return nil, apperr.New(apperr.SlippageExceeded, "payout %d slipped beyond tolerance of expected %d", net, expected)
		}
	}
	if err := limits.MinPayout(net, in.MinPayout); err != nil {
		return nil, err
	}

	if creatorWallet != nil {
		creatorWallet.Balance += creatorFee
	}
	if protocolWallet != nil {
		protocolWallet.Balance += protocolFee
	}

	basisYes, basisNo := int64(0), int64(0)
	if in.SellYes > 0 && pos.YesShares > 0 {
		basisYes = (pos.TotalYesCost * in.SellYes) / pos.YesShares
	}
	if in.SellNo > 0 && pos.NoShares > 0 {
		basisNo = (pos.TotalNoCost * in.SellNo) / pos.NoShares
	}
	basis := basisYes + basisNo

	pos.YesShares -= in.SellYes
	pos.NoShares -= in.SellNo
	pos.TotalYesCost -= basisYes
	pos.TotalNoCost -= basisNo
	pos.RealizedPnL += net - basis

	wallet.Balance += net

	option.YesQuantity -= in.SellYes
	option.NoQuantity -= in.SellNo
	market.SharedPoolLiquidity -= payout
	if market.SharedPoolLiquidity < 0 {
		return nil, apperr.New(apperr.Conflict, "sell would drive pool liquidity negative")
	}
	market.AccumulatedLPFees += lpFee
	market.TotalVolume += payout
	market.LiquidityParamB = lmsr.RecomputeB(market.BaseLiquidityParamB0, market.SharedPoolLiquidity, market.TotalLPShares)

	now := time.Now().Unix()
	trade := &ledger.Trade{
		ID: uuid.New().String(), UserID: in.UserID, MarketID: in.MarketID, OptionID: in.OptionID,
		Type: ledger.TradeSell, Side: sideOf(in.SellYes > 0), Quantity: qty,
		PricePerShare: lmsr.YesPrice(option.YesQuantity, option.NoQuantity, market.LiquidityParamB),
		TotalCost:     net, FeesPaid: totalFee, Status: ledger.TradeStatusSettled, TS: now,
	}

	if err := tx.SaveMarket(ctx, market); err != nil {
		return nil, err
	}
	if err := tx.SaveOption(ctx, option); err != nil {
		return nil, err
	}
	if err := tx.SaveWallet(ctx, wallet); err != nil {
		return nil, err
	}
	if creatorWallet != nil {
		if err := tx.SaveWallet(ctx, creatorWallet); err != nil {
			return nil, err
		}
	}
	if protocolWallet != nil {
		if err := tx.SaveWallet(ctx, protocolWallet); err != nil {
			return nil, err
		}
	}
	if err := tx.SaveUserPosition(ctx, pos); err != nil {
		return nil, err
	}
	if err := tx.InsertTrade(ctx, trade); err != nil {
		return nil, err
	}
	if err := tx.InsertSnapshot(ctx, tradeSnapshot(option, market, trade)); err != nil {
		return nil, err
	}

	metrics.ObservePoolLiquidity(market.ID, market.SharedPoolLiquidity)
	return trade, nil
}

// ClaimWinnings executes claim_winnings (spec §4.E), idempotently.
func (e *Engine) ClaimWinnings(ctx context.Context, userID, marketID, optionID string) (*ClaimResult, error) {
	var result *ClaimResult
	err := e.queue.Submit(ctx, queue.Key{MarketID: marketID, OptionID: optionID}, queue.DefaultTimeout, func(ctx context.Context) error {
		return txrunner.WithTransaction(ctx, e.store, e.txOpts, func(ctx context.Context, tx ledger.Tx) error {
			r, err := e.claimInTx(ctx, tx, userID, marketID, optionID)
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
	if !result.AlreadyClaimed && result.Payout > 0 {
		e.bus.Publish(bus.Message{Kind: bus.KindBalance, Balance: &bus.BalanceUpdate{
			User: userID, NewBalance: result.NewBalance, TS: time.Now().Unix(),
		}})
	}
	return result, nil
}

func (e *Engine) claimInTx(ctx context.Context, tx ledger.Tx, userID, marketID, optionID string) (*ClaimResult, error) {
	market, err := tx.LockMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	option, err := tx.LockOption(ctx, optionID)
	if err != nil {
		return nil, err
	}
	if !option.IsResolved || option.WinningSide == nil {
		return nil, apperr.New(apperr.MarketNotOpen, "option %s is not yet resolved", optionID)
	}

	wallet, err := tx.LockWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	pos, err := tx.LockUserPosition(ctx, userID, optionID)
	if err != nil {
		return nil, err
	}
	if pos.IsClaimed {
		return &ClaimResult{AlreadyClaimed: true}, nil
	}

	winningShares := pos.NoShares
	if *option.WinningSide == ledger.SideYes {
		winningShares = pos.YesShares
	}
	payout := winningShares
	realizedPnL := payout - (pos.TotalYesCost + pos.TotalNoCost)

	var newBalance int64
	if payout > 0 {
		if market.SharedPoolLiquidity < payout {
			return nil, apperr.New(apperr.Conflict, "pool liquidity insufficient to cover claim; try again shortly")
		}
		wallet.Balance += payout
		newBalance = wallet.Balance
		if err := tx.SaveWallet(ctx, wallet); err != nil {
			return nil, err
		}
		market.SharedPoolLiquidity -= payout
		if err := tx.SaveMarket(ctx, market); err != nil {
			return nil, err
		}
	}

	pos.YesShares = 0
	pos.NoShares = 0
	pos.TotalYesCost = 0
	pos.TotalNoCost = 0
	pos.RealizedPnL += realizedPnL
	pos.IsClaimed = true
	if err := tx.SaveUserPosition(ctx, pos); err != nil {
		return nil, err
	}

	metrics.ObservePoolLiquidity(market.ID, market.SharedPoolLiquidity)
	return &ClaimResult{Payout: payout, WinningSide: *option.WinningSide, RealizedPnL: realizedPnL, NewBalance: newBalance}, nil
}

// ScheduleAutoCredit submits the post-resolution auto-credit sweep for
// optionID to the job pool. It must be idempotent: is_claimed guards every
// position it touches, so a duplicate delivery is a no-op.
func (e *Engine) ScheduleAutoCredit(marketID, optionID string) {
	e.jobs.Submit(func(ctx context.Context) {
		if err := e.AutoCreditOption(ctx, marketID, optionID); err != nil {
			e.log.Error("auto-credit sweep failed", zap.String("option", optionID), zap.Error(err))
		}
	})
}

// AutoCreditOption sweeps every unclaimed position on optionID in its own
// transaction (spec §4.E "Auto-credit on resolution"), crediting winners
// and marking losers, skipping any individual payout that would drive the
// pool negative so it can be settled later by a manual claim.
func (e *Engine) AutoCreditOption(ctx context.Context, marketID, optionID string) error {
	return txrunner.WithTransaction(ctx, e.store, e.txOpts, func(ctx context.Context, tx ledger.Tx) error {
		option, err := tx.GetOption(ctx, optionID)
		if err != nil {
			return err
		}
		if !option.IsResolved || option.WinningSide == nil {
			return nil
		}
		market, err := tx.LockMarket(ctx, marketID)
		if err != nil {
			return err
		}

		positions, err := tx.ListUnclaimedPositionsByOption(ctx, optionID)
		if err != nil {
			return err
		}

		for _, pos := range positions {
			winningShares := pos.NoShares
			if *option.WinningSide == ledger.SideYes {
				winningShares = pos.YesShares
			}
			payout := winningShares
			realizedPnL := payout - (pos.TotalYesCost + pos.TotalNoCost)

			if payout > 0 {
				if market.SharedPoolLiquidity < payout {
					e.log.Warn("skipping auto-credit, pool insufficient",
						zap.String("user", pos.UserID), zap.String("option", optionID))
					continue
				}
				wallet, err := tx.LockWallet(ctx, pos.UserID)
				if err != nil {
					return err
				}
				wallet.Balance += payout
				if err := tx.SaveWallet(ctx, wallet); err != nil {
					return err
				}
				market.SharedPoolLiquidity -= payout
			}

			pos.YesShares = 0
			pos.NoShares = 0
			pos.TotalYesCost = 0
			pos.TotalNoCost = 0
			pos.RealizedPnL += realizedPnL
			pos.IsClaimed = true
			if err := tx.SaveUserPosition(ctx, pos); err != nil {
				return err
			}
		}

		return tx.SaveMarket(ctx, market)
	})
}

// lockFeeWallets locks the trader, creator and protocol treasury wallets
// together in one global id-sorted sequence (duplicate ids collapsed to a
// single lock) so a transaction never locks a wallet row outside the
// Market -> Option -> Wallet -> User/LpPosition order (spec §4.B;
// internal/ledger/store.go:6-9). Locking the trader separately before this
// call, or locking these wallets after LockUserPosition, both reintroduce
// the same AB-BA hazard internal/resolution.lockInOrder avoids for dispute
// settlement — so every wallet a transaction touches must go through here,
// before any position lock. creator/protocol come back nil when they
// coincide with the trader, matching the existing no-self-fee behavior.
func (e *Engine) lockFeeWallets(ctx context.Context, tx ledger.Tx, creatorID, traderID string) (trader, creator, protocol *ledger.Wallet, err error) {
	ids := map[string]bool{traderID: true, ProtocolTreasuryUserID: true}
	if creatorID != "" {
		ids[creatorID] = true
	}
	ordered := make([]string, 0, len(ids))
	for id := range ids {
		ordered = append(ordered, id)
	}
	sortStrings(ordered)

	locked := make(map[string]*ledger.Wallet, len(ordered))
	for _, id := range ordered {
		w, lockErr := tx.LockWallet(ctx, id)
		if lockErr != nil {
			return nil, nil, nil, lockErr
		}
		locked[id] = w
	}

	trader = locked[traderID]
	if creatorID != "" && creatorID != traderID {
		creator = locked[creatorID]
	}
	if ProtocolTreasuryUserID != traderID {
		protocol = locked[ProtocolTreasuryUserID]
	}
	return trader, creator, protocol, nil
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

func tradeSnapshot(option *ledger.Option, market *ledger.Market, trade *ledger.Trade) *ledger.PriceSnapshot {
	return &ledger.PriceSnapshot{
		ID:           uuid.New().String(),
		OptionID:     option.ID,
		TS:           trade.TS,
		YesPrice:     lmsr.YesPrice(option.YesQuantity, option.NoQuantity, market.LiquidityParamB),
		NoPrice:      lmsr.NoPrice(option.YesQuantity, option.NoQuantity, market.LiquidityParamB),
		YesQty:       option.YesQuantity,
		NoQty:        option.NoQuantity,
		Volume:       trade.Quantity,
		SnapshotType: ledger.SnapshotTrade,
		TradeID:      &trade.ID,
	}
}

func sideOf(yes bool) ledger.Side {
	if yes {
		return ledger.SideYes
	}
	return ledger.SideNo
}

func sideLabel(yes bool) string {
	if yes {
		return "yes"
	}
	return "no"
}

func expectedOr(v *int64, fallback int64) int64 {
	if v == nil {
		return fallback
	}
	return *v
}
