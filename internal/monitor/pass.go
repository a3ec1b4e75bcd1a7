package monitor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fleetpulse/fleetpulse/internal/domain"
	"github.com/fleetpulse/fleetpulse/internal/push"
	"github.com/fleetpulse/fleetpulse/internal/repo"
)

// Policy holds the alerting cadence knobs. The defaults live in the config
// package; the core only ever sees resolved values.
type Policy struct {
	OfflineThreshold         time.Duration
	OfflineCooldown          time.Duration
	BatteryLowThreshold      int
	BatteryRecoveryThreshold int
	BatteryCooldown          time.Duration
	RecoveryWindow           time.Duration
}

// Pass runs one evaluation cycle: sweep staleness, then the offline, battery
// and recovery detectors, dispatching a notification per candidate and
// recording successful (or terminally skipped) dispatches in the ledger.
//
// Failures are isolated per stage: a detector read error empties that stage's
// candidate set for this pass and the remaining stages still run; a failed
// dispatch or ledger write leaves the unit a candidate for the next pass. The
// wall clock is never read here — now always arrives as a parameter.
type Pass struct {
	logger     *zap.Logger
	ledger     repo.LedgerStore
	dispatcher push.Dispatcher

	sweeper  Sweeper
	offline  OfflineDetector
	battery  BatteryDetector
	recovery RecoveryDetector
}

func NewPass(logger *zap.Logger, units repo.UnitStore, ledger repo.LedgerStore, dispatcher push.Dispatcher, pol Policy) *Pass {
	return &Pass{
		logger:     logger,
		ledger:     ledger,
		dispatcher: dispatcher,
		sweeper:    Sweeper{Units: units, Threshold: pol.OfflineThreshold},
		offline: OfflineDetector{
			Units: units, Ledger: ledger,
			Threshold: pol.OfflineThreshold, Cooldown: pol.OfflineCooldown,
		},
		battery: BatteryDetector{
			Units: units, Ledger: ledger,
			LowThreshold:      pol.BatteryLowThreshold,
			RecoveryThreshold: pol.BatteryRecoveryThreshold,
			Cooldown:          pol.BatteryCooldown,
		},
		recovery: RecoveryDetector{
			Units: units, Ledger: ledger,
			Window: pol.RecoveryWindow, OfflineCooldown: pol.OfflineCooldown,
		},
	}
}

func (p *Pass) Run(ctx context.Context, now time.Time) (domain.PassSummary, error) {
	var sum domain.PassSummary

	marked, err := p.sweeper.Sweep(ctx, now)
	if err != nil {
		p.logger.Warn("sweep_error", zap.Error(err))
	} else {
		sum.MarkedOffline = marked
	}

	stages := []struct {
		typ  domain.NotificationType
		out  *domain.StageSummary
		find func(context.Context, time.Time) ([]*domain.Unit, error)
	}{
		{domain.NotificationOffline, &sum.Offline, p.offline.FindCandidates},
		{domain.NotificationBatteryLow, &sum.BatteryLow, p.findBatteryCandidates},
		{domain.NotificationOnline, &sum.Online, p.recovery.FindCandidates},
	}

	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			return sum, fmt.Errorf("pass aborted: %w", err)
		}
		units, err := st.find(ctx, now)
		if err != nil {
			// Fails open: missed detection this cycle, corrected next cycle.
			p.logger.Warn("detector_error",
				zap.String("type", string(st.typ)),
				zap.Error(err),
			)
			continue
		}
		*st.out = p.notify(ctx, now, st.typ, units)
	}
	return sum, nil
}

// findBatteryCandidates runs the hysteresis bookkeeping before candidate
// selection so a recovery observed this very pass re-arms immediately.
func (p *Pass) findBatteryCandidates(ctx context.Context, now time.Time) ([]*domain.Unit, error) {
	if _, err := p.battery.Rearm(ctx, now); err != nil {
		p.logger.Warn("battery_rearm_error", zap.Error(err))
	}
	return p.battery.FindCandidates(ctx, now)
}

func (p *Pass) notify(ctx context.Context, now time.Time, typ domain.NotificationType, units []*domain.Unit) domain.StageSummary {
	st := domain.StageSummary{Checked: len(units)}
	for _, u := range units {
		if u.OwnerID == nil {
			continue // stores filter these; belt and suspenders
		}
		rcpt, err := p.dispatcher.Send(ctx, *u.OwnerID, buildMessage(typ, u, now), u.ID)
		if err != nil {
			// No ledger write: the unit stays a candidate and is retried by
			// recomputation on the next pass.
			p.logger.Warn("dispatch_error",
				zap.String("unit_id", string(u.ID)),
				zap.String("type", string(typ)),
				zap.Error(err),
			)
			continue
		}
		if rcpt.Sent == 0 && rcpt.Skipped != push.SkipNoTokens {
			p.logger.Warn("dispatch_unconfirmed",
				zap.String("unit_id", string(u.ID)),
				zap.String("type", string(typ)),
				zap.String("skipped", rcpt.Skipped),
			)
			continue
		}
		// Delivered to at least one receiver, or the user has none at all.
		// Either way the ledger is written so the unit stops recomputing.
		rec := &domain.NotificationRecord{
			UnitID:     u.ID,
			Type:       typ,
			UserID:     *u.OwnerID,
			LastSentAt: now,
			Context:    contextSnapshot(typ, u, now),
		}
		if err := p.ledger.Upsert(ctx, rec); err != nil {
			p.logger.Warn("ledger_upsert_error",
				zap.String("unit_id", string(u.ID)),
				zap.String("type", string(typ)),
				zap.Error(err),
			)
			continue
		}
		st.Notified++
		p.logger.Info("notified",
			zap.String("unit_id", string(u.ID)),
			zap.String("type", string(typ)),
			zap.Int("sent", rcpt.Sent),
			zap.String("skipped", rcpt.Skipped),
		)
	}
	return st
}

func buildMessage(typ domain.NotificationType, u *domain.Unit, now time.Time) push.Message {
	name := u.DisplayName
	if name == "" {
		name = string(u.ID)
	}
	msg := push.Message{
		Type:    typ,
		Channel: "device_alerts",
		Data: map[string]string{
			"unit_id": string(u.ID),
			"type":    string(typ),
		},
	}
	switch typ {
	case domain.NotificationOffline:
		msg.Title = "🔴 " + name + " is offline"
		msg.Body = "No heartbeat received"
		if u.LastSeenAt != nil {
			msg.Body = "Last heartbeat " + u.LastSeenAt.UTC().Format(time.RFC3339)
		}
	case domain.NotificationBatteryLow:
		msg.Title = "🪫 " + name + " battery low"
		if u.BatteryLevel != nil {
			msg.Body = fmt.Sprintf("Battery at %d%%", *u.BatteryLevel)
		}
	case domain.NotificationOnline:
		msg.Title = "🟢 " + name + " is back online"
		msg.Body = "Heartbeat resumed " + now.UTC().Format(time.RFC3339)
	}
	return msg
}

// contextSnapshot is the free-form state recorded next to the send time; the
// battery snapshot doubles as the hysteresis re-arm marker.
func contextSnapshot(typ domain.NotificationType, u *domain.Unit, now time.Time) map[string]any {
	switch typ {
	case domain.NotificationOffline:
		if u.LastSeenAt != nil {
			return map[string]any{"last_seen_at": u.LastSeenAt.UTC().Format(time.RFC3339)}
		}
	case domain.NotificationBatteryLow:
		if u.BatteryLevel != nil {
			return map[string]any{"battery_level": *u.BatteryLevel}
		}
	case domain.NotificationOnline:
		return map[string]any{"recovered_at": now.UTC().Format(time.RFC3339)}
	}
	return map[string]any{}
}
