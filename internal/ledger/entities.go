// Package ledger defines the eight persisted entities and four append-only
// logs of the prediction-market core (spec §3), and the Store interface
// every engine (trading, liquidity, resolution) is written against. Two
// implementations satisfy Store: internal/ledger/postgres (pgx/v5, real
// row locking) and internal/ledger/memledger (mutex-guarded maps, used by
// unit tests and the no-DATABASE_URL default run mode).
package ledger

// ResolutionMode governs who may submit a resolution and how the final
// outcome is determined (spec §4.G).
type ResolutionMode string

const (
	ModeOracle    ResolutionMode = "ORACLE"
	ModeAuthority ResolutionMode = "AUTHORITY"
	ModeOpinion   ResolutionMode = "OPINION"
)

// MarketStatus is the lifecycle stage of a market (spec §3).
type MarketStatus string

const (
	MarketOpen      MarketStatus = "OPEN"
	MarketResolving MarketStatus = "RESOLVING"
	MarketResolved  MarketStatus = "RESOLVED"
	MarketDisputed  MarketStatus = "DISPUTED"
)

// Side identifies a binary option branch.
type Side int

const (
	SideYes Side = 1
	SideNo  Side = 2
)

// Wallet holds a single user's USDC balance, in micro-units. Mutated only
// under its row lock during the transaction that debits/credits it.
type Wallet struct {
	UserID  string
	Balance int64
}

// Market is a question plus its shared liquidity pool.
type Market struct {
	ID                   string
	CreatorID            string
	Question             string
	ExpirationTS         int64
	SharedPoolLiquidity  int64
	AccumulatedLPFees    int64
	TotalLPShares        int64
	ReservedLiquidity    int64
	LiquidityParamB      int64
	BaseLiquidityParamB0 int64
	ResolutionMode       ResolutionMode
	Status               MarketStatus
	IsInitialized        bool
	TotalVolume          int64
}

// Option is a binary (YES/NO) resolution unit within a market.
type Option struct {
	ID                string
	MarketID          string
	Label             string
	YesQuantity       int64
	NoQuantity        int64
	IsResolved        bool
	WinningSide       *Side
	ResolvedTS        *int64
	ResolvedBy        *string
	DisputeDeadlineTS *int64
}

// UserPosition is one row per (user, option).
type UserPosition struct {
	UserID       string
	OptionID     string
	YesShares    int64
	NoShares     int64
	TotalYesCost int64
	TotalNoCost  int64
	RealizedPnL  int64
	IsClaimed    bool
}

// LpPosition is one row per (user, market).
type LpPosition struct {
	UserID          string
	MarketID        string
	Shares          int64
	DepositedAmount int64
}

// TradeType distinguishes a buy from a sell.
type TradeType string

const (
	TradeBuy  TradeType = "buy"
	TradeSell TradeType = "sell"
)

// TradeStatus is the append-only lifecycle marker of a Trade row.
type TradeStatus string

const (
	TradeStatusSettled TradeStatus = "settled"
)

// Trade is an append-only record of a completed buy/sell.
type Trade struct {
	ID             string
	UserID         string
	MarketID       string
	OptionID       string
	Type           TradeType
	Side           Side
	Quantity       int64
	PricePerShare  int64
	TotalCost      int64
	FeesPaid       int64
	Status         TradeStatus
	TS             int64
}

// SnapshotType distinguishes why a PriceSnapshot was recorded.
type SnapshotType string

const (
	SnapshotTrade SnapshotType = "trade"
	SnapshotLP    SnapshotType = "liquidity"
)

// PriceSnapshot is an append-only (option, ts) price sample.
type PriceSnapshot struct {
	ID           string
	OptionID     string
	TS           int64
	YesPrice     int64
	NoPrice      int64
	YesQty       int64
	NoQty        int64
	Volume       int64
	SnapshotType SnapshotType
	TradeID      *string
}

// ResolutionSubmission is a per-submitter resolution record.
type ResolutionSubmission struct {
	ID          string
	MarketID    string
	OptionID    string
	UserID      string
	Outcome     string
	Evidence    string
	SubmittedTS int64
	Signature   *string
}

// Dispute is created when a resolved option is challenged within its
// dispute window.
type Dispute struct {
	ID                string
	MarketID          string
	OptionID          string
	UserID            string
	Reason            string
	Evidence          string
	ResolutionFeePaid int64
	TS                int64
}
