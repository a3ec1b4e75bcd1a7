package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetpulse/fleetpulse/internal/domain"
	"github.com/fleetpulse/fleetpulse/internal/repo"
)

// OfflineDetector finds owned units whose heartbeat is older than Threshold
// and that are due for an offline alert under the cooldown. Staleness is
// judged from last_seen_at, not from the is_online flag, so the result is
// correct even if the sweeper has not run yet this cycle.
//
// A persistently offline unit reappears exactly once per Cooldown window for
// as long as it stays offline — a deliberate nag, not a one-shot alert.
type OfflineDetector struct {
	Units     repo.UnitStore
	Ledger    repo.LedgerStore
	Threshold time.Duration
	Cooldown  time.Duration
}

func (d *OfflineDetector) FindCandidates(ctx context.Context, now time.Time) ([]*domain.Unit, error) {
	stale, err := d.Units.ListStale(ctx, now.Add(-d.Threshold))
	if err != nil {
		return nil, fmt.Errorf("list stale units: %w", err)
	}
	if len(stale) == 0 {
		return nil, nil
	}

	sent, err := d.Ledger.GetMany(ctx, unitIDs(stale), domain.NotificationOffline)
	if err != nil {
		return nil, fmt.Errorf("offline ledger lookup: %w", err)
	}

	var out []*domain.Unit
	for _, u := range stale {
		if rec := sent[u.ID]; rec != nil && now.Sub(rec.LastSentAt) < d.Cooldown {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func unitIDs(units []*domain.Unit) []domain.UnitID {
	ids := make([]domain.UnitID, len(units))
	for i, u := range units {
		ids[i] = u.ID
	}
	return ids
}
