// Package metrics exposes Prometheus counters/gauges for the engine,
// grounded on the pack's prometheus.NewCounterVec/NewGaugeVec registration
// pattern (chidi150c-coinbase/metrics.go), generalized from a trading-bot's
// order/decision counters to this engine's trades, liquidity ops,
// resolutions, disputes and retry/timeout counts.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Trades = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_trades_total",
			Help: "Completed buy/sell trades.",
		},
		[]string{"type", "side"}, // type: buy|sell, side: yes|no
	)

	LiquidityOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_liquidity_ops_total",
			Help: "Liquidity operations by kind.",
		},
		[]string{"op"}, // add|initialize|remove_rejected|claim_lp
	)

	Resolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_resolutions_total",
			Help: "Options resolved, by resolution mode.",
		},
		[]string{"mode"},
	)

	Disputes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "market_disputes_total",
			Help: "Disputes filed against resolved options.",
		},
	)

	TxRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "market_tx_retries_total",
			Help: "Transaction attempts retried after a serialization/deadlock error.",
		},
	)

	QueueTimeouts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "market_queue_timeouts_total",
			Help: "Operations that timed out waiting in the per-(market,option) queue.",
		},
	)

	PoolLiquidity = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "market_pool_liquidity",
			Help: "Current shared_pool_liquidity per market, in micro-USDC.",
		},
		[]string{"market"},
	)
)

func init() {
	prometheus.MustRegister(Trades, LiquidityOps, Resolutions, Disputes,
		TxRetries, QueueTimeouts, PoolLiquidity)
}

// Handler serves the registered collectors in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePoolLiquidity updates the per-market liquidity gauge after a commit.
func ObservePoolLiquidity(marketID string, liquidity int64) {
	PoolLiquidity.WithLabelValues(marketID).Set(float64(liquidity))
}
