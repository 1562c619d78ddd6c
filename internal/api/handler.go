// Package api is the JSON/HTTP transport over the trading, liquidity and
// resolution engines (spec §6 canonical operation surface), grounded on the
// teacher's internal/api.Server/RegisterRoutes pattern: one Server holding
// every dependency, one method-pattern mux, one websocket hub subscribing
// to a shared bus instead of broadcasting raw domain messages directly.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/bus"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/ledger"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/liquidity"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/resolution"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/trading"
)

// Server holds every dependency the HTTP surface needs.
type Server struct {
	store      ledger.Store
	trading    *trading.Engine
	liquidity  *liquidity.Engine
	resolution *resolution.Engine
	bus        *bus.Bus
	wsHub      *Hub
	log        *zap.Logger

	httpSrv *http.Server
}

// NewServer builds a Server from its engines.
func NewServer(store ledger.Store, tradingEngine *trading.Engine, liquidityEngine *liquidity.Engine, resolutionEngine *resolution.Engine, b *bus.Bus, log *zap.Logger) *Server {
	return &Server{
		store:      store,
		trading:    tradingEngine,
		liquidity:  liquidityEngine,
		resolution: resolutionEngine,
		bus:        b,
		wsHub:      NewHub(b, log),
		log:        log,
	}
}

// RegisterRoutes registers every HTTP route on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", s.handleHealth)

	// Market/option administration (non-transactional shell creation, then
	// the money-moving initialization step through the liquidity engine).
	mux.HandleFunc("POST /api/market", s.handleCreateMarket)
	mux.HandleFunc("POST /api/market/{id}/option", s.handleCreateOption)
	mux.HandleFunc("POST /api/market/{id}/initialize", s.handleInitializeMarket)

	// Trading.
	mux.HandleFunc("POST /api/trade/buy", s.handleBuyShares)
	mux.HandleFunc("POST /api/trade/sell", s.handleSellShares)
	mux.HandleFunc("POST /api/trade/claim", s.handleClaimWinnings)

	// Liquidity.
	mux.HandleFunc("POST /api/liquidity/add", s.handleAddLiquidity)
	mux.HandleFunc("POST /api/liquidity/remove", s.handleRemoveLiquidity)
	mux.HandleFunc("POST /api/liquidity/claim", s.handleClaimLPRewards)
	mux.HandleFunc("GET /api/liquidity/position", s.handleGetLPPosition)

	// Resolution.
	mux.HandleFunc("POST /api/resolution/submit", s.handleSubmitResolution)
	mux.HandleFunc("POST /api/resolution/dispute", s.handleDisputeResolution)
	mux.HandleFunc("GET /api/resolution/{id}", s.handleGetResolution)

	// Price history / OHLC.
	mux.HandleFunc("GET /api/price/history", s.handleGetPriceHistory)
	mux.HandleFunc("GET /api/price/ohlc", s.handleGetOHLC)

	// Live updates.
	mux.HandleFunc("GET /ws", s.handleWebSocket)
}

// Start wraps the route mux in CORS middleware and serves on addr.
func (s *Server) Start(addr string) error {
	go s.wsHub.Run()

	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(mux)

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpSrv = srv

	s.log.Info("server starting", zap.String("addr", addr))
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server started by Start, waiting for
// in-flight requests to finish or ctx to expire. It is a no-op if Start has
// not yet assigned the underlying *http.Server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
