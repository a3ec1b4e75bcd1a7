// cmd/evaluate runs a single evaluation pass and prints the summary. Meant to
// be invoked by an external cron when the long-running runner is disabled.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fleetpulse/fleetpulse/internal/config"
	"github.com/fleetpulse/fleetpulse/internal/logging"
	"github.com/fleetpulse/fleetpulse/internal/monitor"
	"github.com/fleetpulse/fleetpulse/internal/push"
	"github.com/fleetpulse/fleetpulse/internal/repo/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required: a one-shot pass against an in-memory store decides nothing")
	}
	logger, err := logging.New("fleetpulse-evaluate", cfg.LogDir)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	store, err := postgres.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatal(err)
	}

	var dispatcher push.Dispatcher
	if gw := push.NewGateway(cfg.GatewayURL, cfg.GatewayToken); gw != nil {
		dispatcher = &push.Retry{Inner: gw, Attempts: cfg.DispatchAttempts, Backoff: cfg.DispatchBackoff}
	} else {
		logger.Warn("no_gateway_url_dispatch_disabled")
		dispatcher = push.Nop{}
	}

	pass := monitor.NewPass(logger, store, store.Ledger(), dispatcher, monitor.Policy{
		OfflineThreshold:         cfg.Alerting.OfflineThreshold,
		OfflineCooldown:          cfg.Alerting.OfflineCooldown,
		BatteryLowThreshold:      cfg.Alerting.BatteryLowThreshold,
		BatteryRecoveryThreshold: cfg.Alerting.BatteryRecoveryThreshold,
		BatteryCooldown:          cfg.Alerting.BatteryCooldown,
		RecoveryWindow:           cfg.Alerting.RecoveryWindow,
	})

	sum, err := pass.Run(ctx, time.Now().UTC())
	if err != nil {
		fmt.Fprintln(os.Stderr, "pass failed:", err)
		os.Exit(1)
	}
	out, _ := json.Marshal(sum)
	fmt.Println(string(out))
}
