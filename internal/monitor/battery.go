package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fleetpulse/fleetpulse/internal/domain"
	"github.com/fleetpulse/fleetpulse/internal/repo"
)

// BatteryDetector finds owned units below LowThreshold that are due for a
// low-battery alert. The hysteresis band (LowThreshold < RecoveryThreshold)
// prevents flapping for a battery oscillating near the low line: inside the
// cooldown a unit only becomes a candidate again if its ledger record shows it
// charged past RecoveryThreshold since the last alert.
//
// Rearm is the bookkeeping half: whenever a unit is sampled at or above
// RecoveryThreshold, the level snapshotted in its battery_low record is
// refreshed (send time untouched). A spike above the recovery line that falls
// between two evaluation passes is never sampled and therefore does not
// re-arm; that precision bound is inherent to the polling design.
type BatteryDetector struct {
	Units             repo.UnitStore
	Ledger            repo.LedgerStore
	LowThreshold      int
	RecoveryThreshold int
	Cooldown          time.Duration
}

func (d *BatteryDetector) FindCandidates(ctx context.Context, now time.Time) ([]*domain.Unit, error) {
	low, err := d.Units.ListLowBattery(ctx, d.LowThreshold)
	if err != nil {
		return nil, fmt.Errorf("list low-battery units: %w", err)
	}
	if len(low) == 0 {
		return nil, nil
	}

	sent, err := d.Ledger.GetMany(ctx, unitIDs(low), domain.NotificationBatteryLow)
	if err != nil {
		return nil, fmt.Errorf("battery ledger lookup: %w", err)
	}

	var out []*domain.Unit
	for _, u := range low {
		rec := sent[u.ID]
		switch {
		case rec == nil:
			out = append(out, u)
		case now.Sub(rec.LastSentAt) >= d.Cooldown:
			out = append(out, u)
		default:
			// Inside cooldown: only re-armed units qualify.
			if lvl, ok := contextLevel(rec.Context); ok && lvl >= d.RecoveryThreshold {
				out = append(out, u)
			}
		}
	}
	return out, nil
}

// Rearm refreshes the battery level snapshotted in existing battery_low
// records for units currently at or above RecoveryThreshold. Returns how many
// records were refreshed.
func (d *BatteryDetector) Rearm(ctx context.Context, now time.Time) (int, error) {
	charged, err := d.Units.ListBatteryAtLeast(ctx, d.RecoveryThreshold)
	if err != nil {
		return 0, fmt.Errorf("list recovered units: %w", err)
	}
	if len(charged) == 0 {
		return 0, nil
	}

	sent, err := d.Ledger.GetMany(ctx, unitIDs(charged), domain.NotificationBatteryLow)
	if err != nil {
		return 0, fmt.Errorf("battery ledger lookup: %w", err)
	}

	n := 0
	for _, u := range charged {
		rec := sent[u.ID]
		if rec == nil {
			continue
		}
		if lvl, ok := contextLevel(rec.Context); ok && lvl >= d.RecoveryThreshold {
			continue // already armed
		}
		if rec.Context == nil {
			rec.Context = map[string]any{}
		}
		rec.Context["battery_level"] = *u.BatteryLevel
		if err := d.Ledger.Upsert(ctx, rec); err != nil {
			return n, fmt.Errorf("refresh battery record: %w", err)
		}
		n++
	}
	return n, nil
}

// contextLevel reads the battery_level snapshot out of a ledger record.
// JSONB round-trips numbers as float64; in-memory stores keep the int.
func contextLevel(ctxData map[string]any) (int, bool) {
	v, ok := ctxData["battery_level"]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return int(f), true
	default:
		return 0, false
	}
}
