package domain

import "time"

type UnitID string

// Unit is a deployed hardware unit as seen by the alerting core. Liveness
// fields are written by telemetry ingestion (a heartbeat sets LastSeenAt,
// BatteryLevel and flips IsOnline true); the staleness sweeper is the only
// writer that flips IsOnline false. Units without an owner are never evaluated.
type Unit struct {
	ID           UnitID     `json:"id"`
	OwnerID      *string    `json:"owner_id"`
	DisplayName  string     `json:"display_name"`
	LastSeenAt   *time.Time `json:"last_seen_at"` // nil until the first heartbeat
	BatteryLevel *int       `json:"battery_level"`
	IsOnline     bool       `json:"is_online"`
	CreatedAt    time.Time  `json:"created_at"`
}

// NotificationType identifies the alert condition a ledger record refers to.
type NotificationType string

const (
	NotificationOffline    NotificationType = "offline"
	NotificationBatteryLow NotificationType = "battery_low"
	NotificationOnline     NotificationType = "online"
)

// NotificationRecord is the dedup ledger entry: the last notification sent for
// a (unit, type) pair. At most one live record exists per pair; every write is
// an upsert on that key. Context holds a free-form snapshot taken at send time
// (last_seen_at for offline, battery_level for battery, recovered_at for online).
type NotificationRecord struct {
	UnitID     UnitID           `json:"unit_id"`
	Type       NotificationType `json:"notification_type"`
	UserID     string           `json:"user_id"`
	LastSentAt time.Time        `json:"last_sent_at"`
	Context    map[string]any   `json:"context_data"`
}
