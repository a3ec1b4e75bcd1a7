package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/fleetpulse/fleetpulse/internal/domain"
	"github.com/fleetpulse/fleetpulse/internal/push"
	"github.com/fleetpulse/fleetpulse/internal/repo/memory"
)

// ---- shared helpers ----

var t0 = time.Date(2026, 8, 18, 12, 0, 0, 0, time.UTC)

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }

func memoryStore(t *testing.T) *memory.Store {
	t.Helper()
	return memory.New()
}

func testPolicy() Policy {
	return Policy{
		OfflineThreshold:         10 * time.Minute,
		OfflineCooldown:          24 * time.Hour,
		BatteryLowThreshold:      20,
		BatteryRecoveryThreshold: 30,
		BatteryCooldown:          12 * time.Hour,
		RecoveryWindow:           2 * time.Minute,
	}
}

// seedUnit creates an owned unit and, if seenAgo >= 0, records a heartbeat
// seenAgo before t0 with the given battery level.
func seedUnit(t *testing.T, s *memory.Store, id string, seenAgo time.Duration, battery *int) {
	t.Helper()
	ctx := context.Background()
	if err := s.Create(ctx, &domain.Unit{
		ID: domain.UnitID(id), OwnerID: strp("user-" + id), DisplayName: id,
	}); err != nil {
		t.Fatalf("create %s: %v", id, err)
	}
	if seenAgo >= 0 {
		if err := s.RecordHeartbeat(ctx, domain.UnitID(id), battery, t0.Add(-seenAgo)); err != nil {
			t.Fatalf("heartbeat %s: %v", id, err)
		}
	}
}

type sendCall struct {
	userID string
	unitID domain.UnitID
	msg    push.Message
}

type fakeDispatcher struct {
	rcpt  push.Receipt
	err   error
	calls []sendCall
}

func (f *fakeDispatcher) Send(_ context.Context, userID string, msg push.Message, unitID domain.UnitID) (push.Receipt, error) {
	f.calls = append(f.calls, sendCall{userID: userID, unitID: unitID, msg: msg})
	if f.err != nil {
		return push.Receipt{}, f.err
	}
	return f.rcpt, nil
}

func candidateIDs(units []*domain.Unit) map[domain.UnitID]bool {
	out := make(map[domain.UnitID]bool, len(units))
	for _, u := range units {
		out[u.ID] = true
	}
	return out
}
