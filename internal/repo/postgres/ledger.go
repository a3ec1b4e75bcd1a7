package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fleetpulse/fleetpulse/internal/domain"
	"github.com/fleetpulse/fleetpulse/internal/repo"
)

// Ledger is the pgx-backed notification ledger, sharing the Store's pool.
type Ledger struct {
	s *Store
}

var _ repo.LedgerStore = (*Ledger)(nil)

func (s *Store) Ledger() *Ledger { return &Ledger{s: s} }

func (l *Ledger) Get(ctx context.Context, unitID domain.UnitID, typ domain.NotificationType) (*domain.NotificationRecord, error) {
	row := l.s.pool.QueryRow(ctx,
		`SELECT user_id, last_sent_at, context_data
		   FROM notification_ledger
		  WHERE unit_id = $1 AND notification_type = $2`,
		string(unitID), string(typ))

	rec := domain.NotificationRecord{UnitID: unitID, Type: typ}
	if err := row.Scan(&rec.UserID, &rec.LastSentAt, &rec.Context); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get ledger record: %w", err)
	}
	return &rec, nil
}

func (l *Ledger) GetMany(ctx context.Context, unitIDs []domain.UnitID, typ domain.NotificationType) (map[domain.UnitID]*domain.NotificationRecord, error) {
	out := make(map[domain.UnitID]*domain.NotificationRecord, len(unitIDs))
	if len(unitIDs) == 0 {
		return out, nil
	}
	ids := make([]string, len(unitIDs))
	for i, id := range unitIDs {
		ids[i] = string(id)
	}

	rows, err := l.s.pool.Query(ctx,
		`SELECT unit_id, user_id, last_sent_at, context_data
		   FROM notification_ledger
		  WHERE unit_id = ANY($1) AND notification_type = $2`,
		ids, string(typ))
	if err != nil {
		return nil, fmt.Errorf("batch ledger lookup: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var unitID string
		rec := domain.NotificationRecord{Type: typ}
		if err := rows.Scan(&unitID, &rec.UserID, &rec.LastSentAt, &rec.Context); err != nil {
			return nil, fmt.Errorf("scan ledger record: %w", err)
		}
		rec.UnitID = domain.UnitID(unitID)
		out[rec.UnitID] = &rec
	}
	return out, rows.Err()
}

func (l *Ledger) Upsert(ctx context.Context, rec *domain.NotificationRecord) error {
	ctxData := rec.Context
	if ctxData == nil {
		ctxData = map[string]any{}
	}
	_, err := l.s.pool.Exec(ctx,
		`INSERT INTO notification_ledger (unit_id, notification_type, user_id, last_sent_at, context_data)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (unit_id, notification_type)
		 DO UPDATE SET user_id = EXCLUDED.user_id,
		               last_sent_at = EXCLUDED.last_sent_at,
		               context_data = EXCLUDED.context_data`,
		string(rec.UnitID), string(rec.Type), rec.UserID, rec.LastSentAt, ctxData,
	)
	if err != nil {
		return fmt.Errorf("upsert ledger record: %w", err)
	}
	return nil
}
