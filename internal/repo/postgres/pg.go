package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Store is the pgx-backed implementation of the unit store; Ledger (ledger.go)
// covers the notification ledger on the same pool.
type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the two tables this core persists to. Idempotent; meant
// to run at startup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS units (
	id            TEXT PRIMARY KEY,
	owner_id      TEXT,
	display_name  TEXT NOT NULL DEFAULT '',
	last_seen_at  TIMESTAMPTZ,
	battery_level INT,
	is_online     BOOLEAN NOT NULL DEFAULT FALSE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS notification_ledger (
	unit_id           TEXT NOT NULL,
	notification_type TEXT NOT NULL,
	user_id           TEXT NOT NULL,
	last_sent_at      TIMESTAMPTZ NOT NULL,
	context_data      JSONB NOT NULL DEFAULT '{}',
	UNIQUE (unit_id, notification_type)
);

CREATE INDEX IF NOT EXISTS idx_units_last_seen ON units (last_seen_at);
`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
