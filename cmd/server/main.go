// Command server wires the ledger, queue, engines and HTTP transport
// together and serves the prediction-market core, grounded on the
// teacher's cmd/main.go wiring order (load env, load config, construct
// components bottom-up, start the server, wait on a signal to shut down).
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/api"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/bus"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/config"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/jobs"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/ledger"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/ledger/memledger"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/ledger/postgres"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/liquidity"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/limits"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/metrics"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/queue"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/resolution"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/trading"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found, using environment variables")
	}

	cfg := config.Load()

	store, closeStore := openStore(cfg, log)
	defer closeStore()

	q := queue.New()
	limitsStore := limits.NewStore(cfg.Limits)
	b := bus.New()
	jobPool := jobs.NewPool(4, log)

	tradingEngine := trading.New(store, q, cfg.Fees, limitsStore, b, jobPool, log)
	liquidityEngine := liquidity.New(store, q, limitsStore, b, log)
	resolutionEngine := resolution.New(store, q, cfg.AdminUserIDs, b, tradingEngine, log)

	server := api.NewServer(store, tradingEngine, liquidityEngine, resolutionEngine, b, log)

	metricsSrv := &http.Server{Addr: ":9090", Handler: metrics.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Info("metrics server starting", zap.String("addr", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(":" + cfg.ServerPort)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	case sig := <-sigCh:
		log.Info("shutting down", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Error("server shutdown error", zap.Error(err))
		}
		metricsSrv.Shutdown(ctx)
	}
}

// openStore picks the postgres backend when DATABASE_URL is configured,
// falling back to the in-memory ledger otherwise (local development and
// the test suite's default run mode).
func openStore(cfg *config.Config, log *zap.Logger) (ledger.Store, func()) {
	if cfg.DatabaseURL == "" {
		log.Info("no DATABASE_URL set, using in-memory ledger")
		return memledger.New(), func() {}
	}

	store, err := postgres.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	log.Info("connected to postgres ledger")
	return store, store.Close
}
