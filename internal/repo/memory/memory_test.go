package memory

import (
	"context"
	"testing"
	"time"

	"github.com/fleetpulse/fleetpulse/internal/domain"
	"github.com/fleetpulse/fleetpulse/internal/repo"
)

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }

func TestStore_CreateAssignsID(t *testing.T) {
	ctx := context.Background()
	s := New()

	u := &domain.Unit{OwnerID: strp("user-1"), DisplayName: "gate sensor"}
	if err := s.Create(ctx, u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.ID == "" {
		t.Fatalf("expected unit ID to be set")
	}

	got, err := s.Get(ctx, u.ID)
	if err != nil || got == nil {
		t.Fatalf("Get: %v %v", got, err)
	}
	if got.DisplayName != "gate sensor" {
		t.Fatalf("unexpected name: %s", got.DisplayName)
	}

	// unknown unit -> nil, nil
	if got, err := s.Get(ctx, "nope"); err != nil || got != nil {
		t.Fatalf("expected nil, nil, got %v %v", got, err)
	}
}

func TestStore_RecordHeartbeat(t *testing.T) {
	ctx := context.Background()
	s := New()

	u := &domain.Unit{ID: "U1", OwnerID: strp("user-1")}
	if err := s.Create(ctx, u); err != nil {
		t.Fatalf("Create: %v", err)
	}

	at := time.Date(2026, 8, 18, 12, 0, 0, 0, time.UTC)
	if err := s.RecordHeartbeat(ctx, "U1", intp(77), at); err != nil {
		t.Fatalf("RecordHeartbeat: %v", err)
	}
	got, _ := s.Get(ctx, "U1")
	if !got.IsOnline || got.LastSeenAt == nil || !got.LastSeenAt.Equal(at) {
		t.Fatalf("liveness not recorded: %+v", got)
	}
	if got.BatteryLevel == nil || *got.BatteryLevel != 77 {
		t.Fatalf("battery not recorded: %+v", got.BatteryLevel)
	}

	// nil battery keeps the stored level
	if err := s.RecordHeartbeat(ctx, "U1", nil, at.Add(time.Minute)); err != nil {
		t.Fatalf("RecordHeartbeat: %v", err)
	}
	got, _ = s.Get(ctx, "U1")
	if got.BatteryLevel == nil || *got.BatteryLevel != 77 {
		t.Fatalf("battery should be unchanged: %+v", got.BatteryLevel)
	}

	if err := s.RecordHeartbeat(ctx, "missing", nil, at); err != repo.ErrUnitNotFound {
		t.Fatalf("want ErrUnitNotFound, got %v", err)
	}
}

func TestStore_MarkStaleIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Date(2026, 8, 18, 12, 0, 0, 0, time.UTC)

	u := &domain.Unit{ID: "U1", OwnerID: strp("user-1")}
	_ = s.Create(ctx, u)
	_ = s.RecordHeartbeat(ctx, "U1", nil, now.Add(-15*time.Minute))

	n, err := s.MarkStale(ctx, now.Add(-10*time.Minute))
	if err != nil || n != 1 {
		t.Fatalf("first sweep: n=%d err=%v", n, err)
	}
	got, _ := s.Get(ctx, "U1")
	if got.IsOnline {
		t.Fatalf("unit should be offline")
	}

	n, err = s.MarkStale(ctx, now.Add(-10*time.Minute))
	if err != nil || n != 0 {
		t.Fatalf("second sweep should change nothing: n=%d err=%v", n, err)
	}
}

func TestStore_ListsExcludeUnowned(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Date(2026, 8, 18, 12, 0, 0, 0, time.UTC)

	owned := &domain.Unit{ID: "owned", OwnerID: strp("user-1")}
	orphan := &domain.Unit{ID: "orphan"}
	_ = s.Create(ctx, owned)
	_ = s.Create(ctx, orphan)
	_ = s.RecordHeartbeat(ctx, "owned", intp(10), now.Add(-time.Hour))
	_ = s.RecordHeartbeat(ctx, "orphan", intp(10), now.Add(-time.Hour))

	stale, err := s.ListStale(ctx, now.Add(-10*time.Minute))
	if err != nil || len(stale) != 1 || stale[0].ID != "owned" {
		t.Fatalf("stale: %+v err=%v", stale, err)
	}
	low, err := s.ListLowBattery(ctx, 20)
	if err != nil || len(low) != 1 || low[0].ID != "owned" {
		t.Fatalf("low battery: %+v err=%v", low, err)
	}
}

func TestLedger_UpsertOverwritesSameKey(t *testing.T) {
	ctx := context.Background()
	l := New().Ledger()

	if rec, err := l.Get(ctx, "U1", domain.NotificationOffline); err != nil || rec != nil {
		t.Fatalf("expected nil, nil, got %v %v", rec, err)
	}

	t1 := time.Date(2026, 8, 18, 12, 0, 0, 0, time.UTC)
	if err := l.Upsert(ctx, &domain.NotificationRecord{
		UnitID: "U1", Type: domain.NotificationOffline, UserID: "user-1",
		LastSentAt: t1, Context: map[string]any{"last_seen_at": "x"},
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := l.Upsert(ctx, &domain.NotificationRecord{
		UnitID: "U1", Type: domain.NotificationOffline, UserID: "user-1",
		LastSentAt: t1.Add(time.Hour),
	}); err != nil {
		t.Fatalf("upsert2: %v", err)
	}

	rec, err := l.Get(ctx, "U1", domain.NotificationOffline)
	if err != nil || rec == nil {
		t.Fatalf("get: %v %v", rec, err)
	}
	if !rec.LastSentAt.Equal(t1.Add(time.Hour)) {
		t.Fatalf("last write should win: %+v", rec)
	}

	// other type for the same unit is a distinct key
	if rec, _ := l.Get(ctx, "U1", domain.NotificationOnline); rec != nil {
		t.Fatalf("unexpected record for other type: %+v", rec)
	}

	got, err := l.GetMany(ctx, []domain.UnitID{"U1", "U2"}, domain.NotificationOffline)
	if err != nil {
		t.Fatalf("getMany: %v", err)
	}
	if len(got) != 1 || got["U1"] == nil {
		t.Fatalf("getMany result: %+v", got)
	}
}
