package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fleetpulse/fleetpulse/internal/config"
	"github.com/fleetpulse/fleetpulse/internal/httpapi"
	"github.com/fleetpulse/fleetpulse/internal/httpapi/middleware"
	"github.com/fleetpulse/fleetpulse/internal/logging"
	"github.com/fleetpulse/fleetpulse/internal/monitor"
	"github.com/fleetpulse/fleetpulse/internal/push"
	"github.com/fleetpulse/fleetpulse/internal/repo"
	"github.com/fleetpulse/fleetpulse/internal/repo/memory"
	"github.com/fleetpulse/fleetpulse/internal/repo/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New("fleetpulse", cfg.LogDir)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		units  repo.UnitStore
		ledger repo.LedgerStore
	)
	if cfg.DatabaseURL == "" {
		logger.Warn("no_database_url_using_memory_store")
		m := memory.New()
		units, ledger = m, m.Ledger()
	} else {
		store, err := postgres.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			log.Fatal(err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			log.Fatal(err)
		}
		units, ledger = store, store.Ledger()
	}

	var dispatcher push.Dispatcher
	if gw := push.NewGateway(cfg.GatewayURL, cfg.GatewayToken); gw != nil {
		dispatcher = &push.Retry{Inner: gw, Attempts: cfg.DispatchAttempts, Backoff: cfg.DispatchBackoff}
	} else {
		logger.Warn("no_gateway_url_dispatch_disabled")
		dispatcher = push.Nop{}
	}

	pass := monitor.NewPass(logger, units, ledger, dispatcher, monitor.Policy{
		OfflineThreshold:         cfg.Alerting.OfflineThreshold,
		OfflineCooldown:          cfg.Alerting.OfflineCooldown,
		BatteryLowThreshold:      cfg.Alerting.BatteryLowThreshold,
		BatteryRecoveryThreshold: cfg.Alerting.BatteryRecoveryThreshold,
		BatteryCooldown:          cfg.Alerting.BatteryCooldown,
		RecoveryWindow:           cfg.Alerting.RecoveryWindow,
	})

	runner := &monitor.Runner{Logger: logger, Pass: pass, Interval: cfg.EvaluateInterval}
	go runner.Run(ctx)

	keys := middleware.Keys{Operator: cfg.OperatorAPIKeys, Ingest: cfg.IngestAPIKeys}
	api := httpapi.NewServer(logger, units, pass, keys, cfg.HeartbeatRPM, cfg.HeartbeatBurst)

	srv := &http.Server{Addr: cfg.Addr, Handler: api.Router()}
	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
	}()

	logger.Info("api_listen", zap.String("addr", cfg.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	logger.Info("api_stopped")
}
