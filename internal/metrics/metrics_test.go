package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObservePoolLiquidity_SetsGaugeValue(t *testing.T) {
	ObservePoolLiquidity("market-metrics-test", 42_000_000)
	require.Equal(t, float64(42_000_000), testutil.ToFloat64(PoolLiquidity.WithLabelValues("market-metrics-test")))
}

func TestCounters_Increment(t *testing.T) {
	before := testutil.ToFloat64(Trades.WithLabelValues("buy", "yes"))
	Trades.WithLabelValues("buy", "yes").Inc()
	require.Equal(t, before+1, testutil.ToFloat64(Trades.WithLabelValues("buy", "yes")))
}

func TestHandler_ServesPrometheusText(t *testing.T) {
	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)
	require.Contains(t, rec.Body.String(), "market_trades_total")
}
