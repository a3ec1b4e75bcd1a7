package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fleetpulse/fleetpulse/internal/domain"
	"github.com/fleetpulse/fleetpulse/internal/repo"
)

type ledgerKey struct {
	unit domain.UnitID
	typ  domain.NotificationType
}

// Store keeps units and the notification ledger in process memory. Used by
// tests and by DB-less local runs; the semantics mirror the postgres store.
type Store struct {
	mu     sync.RWMutex
	units  map[domain.UnitID]*domain.Unit
	ledger map[ledgerKey]*domain.NotificationRecord
}

func New() *Store {
	return &Store{
		units:  make(map[domain.UnitID]*domain.Unit),
		ledger: make(map[ledgerKey]*domain.NotificationRecord),
	}
}

// ---- UnitStore ----

func (m *Store) Create(ctx context.Context, u *domain.Unit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		u.ID = domain.UnitID(uuid.NewString())
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	cp := *u
	m.units[u.ID] = &cp
	return nil
}

func (m *Store) Get(ctx context.Context, id domain.UnitID) (*domain.Unit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.units[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *Store) List(ctx context.Context) ([]*domain.Unit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Unit, 0, len(m.units))
	for _, u := range m.units {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (m *Store) RecordHeartbeat(ctx context.Context, id domain.UnitID, battery *int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.units[id]
	if !ok {
		return repo.ErrUnitNotFound
	}
	seen := at
	u.LastSeenAt = &seen
	if battery != nil {
		lvl := *battery
		u.BatteryLevel = &lvl
	}
	u.IsOnline = true
	return nil
}

func (m *Store) MarkStale(ctx context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.units {
		if u.IsOnline && u.LastSeenAt != nil && u.LastSeenAt.Before(cutoff) {
			u.IsOnline = false
			n++
		}
	}
	return n, nil
}

func (m *Store) ListStale(ctx context.Context, cutoff time.Time) ([]*domain.Unit, error) {
	return m.selectUnits(func(u *domain.Unit) bool {
		return u.LastSeenAt != nil && u.LastSeenAt.Before(cutoff)
	})
}

func (m *Store) ListLowBattery(ctx context.Context, below int) ([]*domain.Unit, error) {
	return m.selectUnits(func(u *domain.Unit) bool {
		return u.BatteryLevel != nil && *u.BatteryLevel < below
	})
}

func (m *Store) ListBatteryAtLeast(ctx context.Context, level int) ([]*domain.Unit, error) {
	return m.selectUnits(func(u *domain.Unit) bool {
		return u.BatteryLevel != nil && *u.BatteryLevel >= level
	})
}

func (m *Store) ListRecentlySeen(ctx context.Context, since time.Time) ([]*domain.Unit, error) {
	return m.selectUnits(func(u *domain.Unit) bool {
		return u.LastSeenAt != nil && !u.LastSeenAt.Before(since)
	})
}

// selectUnits applies pred over owned units only; unowned units never reach
// the detectors.
func (m *Store) selectUnits(pred func(*domain.Unit) bool) ([]*domain.Unit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Unit
	for _, u := range m.units {
		if u.OwnerID == nil || !pred(u) {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

// ---- LedgerStore ----

// Ledger exposes the ledger half of the store. A separate view type keeps the
// ledger method set from clashing with the unit method set on Store.
type Ledger struct {
	s *Store
}

func (m *Store) Ledger() *Ledger { return &Ledger{s: m} }

func (l *Ledger) Get(ctx context.Context, unitID domain.UnitID, typ domain.NotificationType) (*domain.NotificationRecord, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()
	rec, ok := l.s.ledger[ledgerKey{unitID, typ}]
	if !ok {
		return nil, nil
	}
	return copyRecord(rec), nil
}

func (l *Ledger) GetMany(ctx context.Context, unitIDs []domain.UnitID, typ domain.NotificationType) (map[domain.UnitID]*domain.NotificationRecord, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()
	out := make(map[domain.UnitID]*domain.NotificationRecord, len(unitIDs))
	for _, id := range unitIDs {
		if rec, ok := l.s.ledger[ledgerKey{id, typ}]; ok {
			out[id] = copyRecord(rec)
		}
	}
	return out, nil
}

func (l *Ledger) Upsert(ctx context.Context, rec *domain.NotificationRecord) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	l.s.ledger[ledgerKey{rec.UnitID, rec.Type}] = copyRecord(rec)
	return nil
}

func copyRecord(rec *domain.NotificationRecord) *domain.NotificationRecord {
	cp := *rec
	if rec.Context != nil {
		cp.Context = maps.Clone(rec.Context)
	}
	return &cp
}
