package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joebrashear31/RCM-Automation-Project/internal/domain/event"
)

// EventStore implements eventstore.Store on the claim_events table.
// Inserts only; the table has no update or delete path.
type EventStore struct {
	pool *pgxpool.Pool
}

// NewEventStore creates an EventStore backed by the given connection pool.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

func (s *EventStore) Append(ctx context.Context, ev *event.ClaimEvent) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO claim_events (id, claim_id, event_type, payload, description, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.ID, ev.ClaimID, string(ev.Type), nilIfEmpty(ev.Payload), ev.Description, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

func (s *EventStore) ListByClaim(ctx context.Context, claimID string) ([]event.ClaimEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, claim_id, event_type, payload, description, created_at
		 FROM claim_events WHERE claim_id = $1 ORDER BY created_at ASC`, claimID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []event.ClaimEvent
	for rows.Next() {
		var ev event.ClaimEvent
		if err := rows.Scan(&ev.ID, &ev.ClaimID, &ev.Type, &ev.Payload, &ev.Description, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func nilIfEmpty(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
