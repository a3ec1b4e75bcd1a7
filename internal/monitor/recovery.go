package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetpulse/fleetpulse/internal/domain"
	"github.com/fleetpulse/fleetpulse/internal/repo"
)

// RecoveryDetector finds units that resumed heartbeating after an offline
// alert went out and have not yet been matched with a recovery alert. A unit
// qualifies when it was seen within Window of now, its offline record is still
// inside OfflineCooldown (an "open" offline episode worth closing), and no
// online record newer than that offline record exists.
type RecoveryDetector struct {
	Units           repo.UnitStore
	Ledger          repo.LedgerStore
	Window          time.Duration
	OfflineCooldown time.Duration
}

func (d *RecoveryDetector) FindCandidates(ctx context.Context, now time.Time) ([]*domain.Unit, error) {
	recent, err := d.Units.ListRecentlySeen(ctx, now.Add(-d.Window))
	if err != nil {
		return nil, fmt.Errorf("list recently seen units: %w", err)
	}
	if len(recent) == 0 {
		return nil, nil
	}

	ids := unitIDs(recent)
	offline, err := d.Ledger.GetMany(ctx, ids, domain.NotificationOffline)
	if err != nil {
		return nil, fmt.Errorf("offline ledger lookup: %w", err)
	}
	online, err := d.Ledger.GetMany(ctx, ids, domain.NotificationOnline)
	if err != nil {
		return nil, fmt.Errorf("online ledger lookup: %w", err)
	}

	var out []*domain.Unit
	for _, u := range recent {
		off := offline[u.ID]
		if off == nil || now.Sub(off.LastSentAt) >= d.OfflineCooldown {
			continue // no open offline episode
		}
		if on := online[u.ID]; on != nil && on.LastSentAt.After(off.LastSentAt) {
			continue // this episode already closed
		}
		out = append(out, u)
	}
	return out, nil
}
