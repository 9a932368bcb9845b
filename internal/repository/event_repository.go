package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lovingyourskin/commerce-api/pkg/database"
)

// EventRepository records processed webhook event ids. The durable table is
// the idempotency backstop behind the Redis fast path: an event id that
// already exists means the delivery was handled before.
type EventRepository struct {
	pool PoolInterface
}

// NewEventRepository creates a new EventRepository with the given pool.
func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

// NewEventRepositoryWithPool creates an EventRepository with a custom pool
// interface. Primarily used for testing.
func NewEventRepositoryWithPool(pool PoolInterface) *EventRepository {
	return &EventRepository{pool: pool}
}

// MarkProcessed inserts the event id within the processing transaction.
// Returns false when the id was already recorded (redelivery).
func (r *EventRepository) MarkProcessed(ctx context.Context, tx database.TxQuerier, eventID, eventType string, now time.Time) (bool, error) {
	tag, err := tx.Exec(ctx,
		`INSERT INTO processed_events (event_id, event_type, processed_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (event_id) DO NOTHING`,
		eventID, eventType, now)
	if err != nil {
		return false, fmt.Errorf("mark event processed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
