// Package bus is the post-commit update fan-out described in spec §4.H: a
// typed envelope is published after a successful transaction and handed to
// any subscriber (in-process or the websocket hub in internal/api). A
// publish never blocks the caller and never fails the triggering operation.
package bus

// Kind identifies which envelope a Message carries.
type Kind string

const (
	KindTrade   Kind = "trade"
	KindPrice   Kind = "price"
	KindBalance Kind = "balance"
	KindMarket  Kind = "market"
)

// TradeUpdate is emitted after a committed buy or sell.
type TradeUpdate struct {
	Market        string `json:"market"`
	Option        string `json:"option"`
	Type          string `json:"type"` // "buy" | "sell"
	Side          int    `json:"side"`
	Quantity      int64  `json:"quantity"`
	PricePerShare int64  `json:"price_per_share"`
	TS            int64  `json:"ts"`
}

// PriceUpdate is emitted whenever an option's quoted price changes.
type PriceUpdate struct {
	Option   string `json:"option"`
	YesPrice int64  `json:"yes_price"`
	NoPrice  int64  `json:"no_price"`
	YesQty   int64  `json:"yes_qty"`
	NoQty    int64  `json:"no_qty"`
	TS       int64  `json:"ts"`
}

// BalanceUpdate is emitted whenever a wallet balance changes.
type BalanceUpdate struct {
	User       string `json:"user"`
	NewBalance int64  `json:"new_balance"`
	TS         int64  `json:"ts"`
}

// MarketEvent names the lifecycle transition a MarketUpdate reports.
type MarketEvent string

const (
	MarketEventCreated     MarketEvent = "created"
	MarketEventResolved    MarketEvent = "resolved"
	MarketEventInitialized MarketEvent = "initialized"
	MarketEventUpdated     MarketEvent = "updated"
)

// MarketUpdate is emitted on market lifecycle transitions.
type MarketUpdate struct {
	Market  string      `json:"market"`
	Event   MarketEvent `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
	TS      int64       `json:"ts"`
}

// Message is the envelope carried on the bus: exactly one of the typed
// fields is populated, selected by Kind.
type Message struct {
	Kind    Kind           `json:"kind"`
	Trade   *TradeUpdate   `json:"trade,omitempty"`
	Price   *PriceUpdate   `json:"price,omitempty"`
	Balance *BalanceUpdate `json:"balance,omitempty"`
	Market  *MarketUpdate  `json:"market,omitempty"`
}
