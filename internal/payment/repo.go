package payment

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGEventStore persists handled webhook event ids, the idempotency gate for
// at-least-once delivery. Ids are written only after an event's effect is
// applied, so a failed delivery stays retriable.
type PGEventStore struct{ db *pgxpool.Pool }

func NewPGEventStore(db *pgxpool.Pool) *PGEventStore { return &PGEventStore{db: db} }

func (s *PGEventStore) Processed(ctx context.Context, eventID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM webhook_events WHERE event_id=$1)`, eventID,
	).Scan(&exists)
	return exists, err
}

func (s *PGEventStore) MarkProcessed(ctx context.Context, eventID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.db.Exec(ctx, `
    INSERT INTO webhook_events (event_id, received_at)
    VALUES ($1, NOW())
    ON CONFLICT (event_id) DO NOTHING
  `, eventID)
	return err
}
