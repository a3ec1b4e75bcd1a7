package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fleetpulse/fleetpulse/internal/domain"
	"github.com/fleetpulse/fleetpulse/internal/repo"
)

var _ repo.UnitStore = (*Store)(nil)

const unitColumns = `id, owner_id, display_name, last_seen_at, battery_level, is_online, created_at`

func (s *Store) Create(ctx context.Context, u *domain.Unit) error {
	if u.ID == "" {
		u.ID = domain.UnitID(uuid.NewString())
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO units (id, owner_id, display_name, last_seen_at, battery_level, is_online, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(u.ID), u.OwnerID, u.DisplayName, u.LastSeenAt, u.BatteryLevel, u.IsOnline, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert unit: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id domain.UnitID) (*domain.Unit, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+unitColumns+` FROM units WHERE id = $1`, string(id))
	u, err := scanUnit(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get unit: %w", err)
	}
	return u, nil
}

func (s *Store) List(ctx context.Context) ([]*domain.Unit, error) {
	return s.queryUnits(ctx,
		`SELECT `+unitColumns+` FROM units ORDER BY created_at DESC, id DESC`)
}

func (s *Store) RecordHeartbeat(ctx context.Context, id domain.UnitID, battery *int, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE units
		    SET last_seen_at = $2,
		        battery_level = COALESCE($3, battery_level),
		        is_online = TRUE
		  WHERE id = $1`,
		string(id), at, battery,
	)
	if err != nil {
		return fmt.Errorf("record heartbeat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrUnitNotFound
	}
	return nil
}

func (s *Store) MarkStale(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE units
		    SET is_online = FALSE
		  WHERE is_online
		    AND last_seen_at IS NOT NULL
		    AND last_seen_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("mark stale: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) ListStale(ctx context.Context, cutoff time.Time) ([]*domain.Unit, error) {
	return s.queryUnits(ctx,
		`SELECT `+unitColumns+` FROM units
		  WHERE owner_id IS NOT NULL
		    AND last_seen_at IS NOT NULL
		    AND last_seen_at < $1`, cutoff)
}

func (s *Store) ListLowBattery(ctx context.Context, below int) ([]*domain.Unit, error) {
	return s.queryUnits(ctx,
		`SELECT `+unitColumns+` FROM units
		  WHERE owner_id IS NOT NULL
		    AND battery_level IS NOT NULL
		    AND battery_level < $1`, below)
}

func (s *Store) ListBatteryAtLeast(ctx context.Context, level int) ([]*domain.Unit, error) {
	return s.queryUnits(ctx,
		`SELECT `+unitColumns+` FROM units
		  WHERE owner_id IS NOT NULL
		    AND battery_level IS NOT NULL
		    AND battery_level >= $1`, level)
}

func (s *Store) ListRecentlySeen(ctx context.Context, since time.Time) ([]*domain.Unit, error) {
	return s.queryUnits(ctx,
		`SELECT `+unitColumns+` FROM units
		  WHERE owner_id IS NOT NULL
		    AND last_seen_at IS NOT NULL
		    AND last_seen_at >= $1`, since)
}

func (s *Store) queryUnits(ctx context.Context, q string, args ...any) ([]*domain.Unit, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query units: %w", err)
	}
	defer rows.Close()

	var out []*domain.Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func scanUnit(row pgx.Row) (*domain.Unit, error) {
	var (
		id string
		u  domain.Unit
	)
	if err := row.Scan(&id, &u.OwnerID, &u.DisplayName, &u.LastSeenAt, &u.BatteryLevel, &u.IsOnline, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.ID = domain.UnitID(id)
	return &u, nil
}
