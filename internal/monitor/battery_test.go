package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/fleetpulse/fleetpulse/internal/domain"
	"github.com/fleetpulse/fleetpulse/internal/repo/memory"
)

func batteryDetector(store *memory.Store) BatteryDetector {
	return BatteryDetector{
		Units: store, Ledger: store.Ledger(),
		LowThreshold: 20, RecoveryThreshold: 30, Cooldown: 12 * time.Hour,
	}
}

func TestBatteryDetector_FirstAlert(t *testing.T) {
	ctx := context.Background()
	store := memoryStore(t)
	seedUnit(t, store, "low", time.Minute, intp(15))
	seedUnit(t, store, "ok", time.Minute, intp(80))
	seedUnit(t, store, "unknown", time.Minute, nil)

	d := batteryDetector(store)
	got, err := d.FindCandidates(ctx, t0)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	ids := candidateIDs(got)
	if len(ids) != 1 || !ids["low"] {
		t.Fatalf("want only the low unit, got %v", ids)
	}
}

func TestBatteryDetector_CooldownSuppresses(t *testing.T) {
	ctx := context.Background()
	store := memoryStore(t)
	seedUnit(t, store, "low", time.Minute, intp(18))
	d := batteryDetector(store)

	// alerted at t0 with a 15% snapshot
	_ = store.Ledger().Upsert(ctx, &domain.NotificationRecord{
		UnitID: "low", Type: domain.NotificationBatteryLow, UserID: "user-low",
		LastSentAt: t0, Context: map[string]any{"battery_level": 15},
	})

	got, err := d.FindCandidates(ctx, t0.Add(time.Hour))
	if err != nil || len(got) != 0 {
		t.Fatalf("want suppression inside cooldown, got %v err=%v", candidateIDs(got), err)
	}

	// cooldown elapsed: due again
	got, err = d.FindCandidates(ctx, t0.Add(13*time.Hour))
	if err != nil || len(got) != 1 {
		t.Fatalf("want candidate after cooldown, got %v err=%v", candidateIDs(got), err)
	}
}

// The hysteresis property: a unit that charged past the recovery threshold and
// dropped low again re-arms inside an otherwise-active cooldown; a unit that
// merely bounced within the band does not.
func TestBatteryDetector_HysteresisRearm(t *testing.T) {
	ctx := context.Background()
	store := memoryStore(t)
	seedUnit(t, store, "U", time.Minute, intp(15))
	d := batteryDetector(store)

	// alert at t0, snapshot 15
	_ = store.Ledger().Upsert(ctx, &domain.NotificationRecord{
		UnitID: "U", Type: domain.NotificationBatteryLow, UserID: "user-U",
		LastSentAt: t0, Context: map[string]any{"battery_level": 15},
	})

	// sampled at 35% an hour later: re-arms
	_ = store.RecordHeartbeat(ctx, "U", intp(35), t0.Add(time.Hour))
	n, err := d.Rearm(ctx, t0.Add(time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("rearm: n=%d err=%v", n, err)
	}
	rec, _ := store.Ledger().Get(ctx, "U", domain.NotificationBatteryLow)
	if lvl, ok := contextLevel(rec.Context); !ok || lvl != 35 {
		t.Fatalf("snapshot not refreshed: %+v", rec.Context)
	}
	if !rec.LastSentAt.Equal(t0) {
		t.Fatalf("rearm must not touch the send time: %v", rec.LastSentAt)
	}

	// drops low again two hours later, still inside the 12h cooldown
	_ = store.RecordHeartbeat(ctx, "U", intp(18), t0.Add(2*time.Hour))
	got, err := d.FindCandidates(ctx, t0.Add(2*time.Hour))
	if err != nil || len(got) != 1 {
		t.Fatalf("want re-armed candidate, got %v err=%v", candidateIDs(got), err)
	}
}

func TestBatteryDetector_NoRearmInsideBand(t *testing.T) {
	ctx := context.Background()
	store := memoryStore(t)
	seedUnit(t, store, "U", time.Minute, intp(15))
	d := batteryDetector(store)

	_ = store.Ledger().Upsert(ctx, &domain.NotificationRecord{
		UnitID: "U", Type: domain.NotificationBatteryLow, UserID: "user-U",
		LastSentAt: t0, Context: map[string]any{"battery_level": 15},
	})

	// bounces to 22% — inside the hysteresis band, below the recovery line
	_ = store.RecordHeartbeat(ctx, "U", intp(22), t0.Add(time.Hour))
	n, err := d.Rearm(ctx, t0.Add(time.Hour))
	if err != nil || n != 0 {
		t.Fatalf("rearm should be a no-op: n=%d err=%v", n, err)
	}

	// back to 18% inside the cooldown: still suppressed
	_ = store.RecordHeartbeat(ctx, "U", intp(18), t0.Add(2*time.Hour))
	got, err := d.FindCandidates(ctx, t0.Add(2*time.Hour))
	if err != nil || len(got) != 0 {
		t.Fatalf("want suppression, got %v err=%v", candidateIDs(got), err)
	}
}

func TestContextLevel_NumericShapes(t *testing.T) {
	// JSONB round-trips numbers as float64; memory stores keep the int.
	cases := []struct {
		in   any
		want int
		ok   bool
	}{
		{15, 15, true},
		{int64(30), 30, true},
		{35.0, 35, true},
		{"15", 0, false},
		{nil, 0, false},
	}
	for _, c := range cases {
		got, ok := contextLevel(map[string]any{"battery_level": c.in})
		if got != c.want || ok != c.ok {
			t.Fatalf("contextLevel(%v) = %d,%v want %d,%v", c.in, got, ok, c.want, c.ok)
		}
	}
	if _, ok := contextLevel(nil); ok {
		t.Fatalf("nil context should not resolve")
	}
}
