package monitor

import (
	"context"
	"time"

	"github.com/fleetpulse/fleetpulse/internal/repo"
)

// Sweeper flips is_online to false for units whose heartbeat has gone stale.
// Pure state transition — no notification side effect; the offline detector
// re-derives staleness from timestamps on its own and does not depend on the
// sweep having run first.
type Sweeper struct {
	Units     repo.UnitStore
	Threshold time.Duration
}

func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	return s.Units.MarkStale(ctx, now.Add(-s.Threshold))
}
