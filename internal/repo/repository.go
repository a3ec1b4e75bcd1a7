package repo

import (
	"context"
	"errors"
	"time"

	"github.com/fleetpulse/fleetpulse/internal/domain"
)

// ErrUnitNotFound is returned by writes that target a unit that does not exist.
var ErrUnitNotFound = errors.New("unit not found")

// UnitStore is the port over the units table — swap in any DB adapter later.
//
// The List* methods back the detectors and only ever return owned units
// (owner_id set): unowned units are invisible to the evaluation pass. Reads
// that miss return nil, nil rather than an error.
type UnitStore interface {
	Create(ctx context.Context, u *domain.Unit) error
	Get(ctx context.Context, id domain.UnitID) (*domain.Unit, error)
	List(ctx context.Context) ([]*domain.Unit, error)

	// RecordHeartbeat is the ingestion writer's operation: it stamps
	// last_seen_at, stores the reported battery level (nil leaves the stored
	// level untouched) and sets is_online true.
	RecordHeartbeat(ctx context.Context, id domain.UnitID, battery *int, at time.Time) error

	// MarkStale flips is_online to false for every unit that is currently
	// online with a last heartbeat before cutoff, and reports how many rows
	// changed. Idempotent: a second call with no new heartbeats returns 0.
	MarkStale(ctx context.Context, cutoff time.Time) (int, error)

	// ListStale returns owned units with a known last_seen_at before cutoff,
	// regardless of the current is_online flag.
	ListStale(ctx context.Context, cutoff time.Time) ([]*domain.Unit, error)

	// ListLowBattery returns owned units with a known battery level below the
	// given threshold.
	ListLowBattery(ctx context.Context, below int) ([]*domain.Unit, error)

	// ListBatteryAtLeast returns owned units with a known battery level at or
	// above the given level.
	ListBatteryAtLeast(ctx context.Context, level int) ([]*domain.Unit, error)

	// ListRecentlySeen returns owned units with a last heartbeat at or after
	// since.
	ListRecentlySeen(ctx context.Context, since time.Time) ([]*domain.Unit, error)
}
