package repo

import (
	"context"

	"github.com/fleetpulse/fleetpulse/internal/domain"
)

// LedgerStore persists the notification ledger: the last notification sent per
// (unit, type) pair. It is the sole source of dedup and cooldown truth — none
// of that state lives in process memory, so it survives restarts and is shared
// across instances.
type LedgerStore interface {
	// Get returns nil, nil if there is no record for the pair yet.
	Get(ctx context.Context, unitID domain.UnitID, typ domain.NotificationType) (*domain.NotificationRecord, error)

	// GetMany is the batch form of Get, keyed by unit ID. Pairs with no record
	// are simply absent from the map. Detectors use it to stay at one ledger
	// query per pass instead of a point lookup per unit.
	GetMany(ctx context.Context, unitIDs []domain.UnitID, typ domain.NotificationType) (map[domain.UnitID]*domain.NotificationRecord, error)

	// Upsert writes the record keyed on (unit_id, notification_type); last
	// write wins. Records are never deleted by this core.
	Upsert(ctx context.Context, rec *domain.NotificationRecord) error
}
