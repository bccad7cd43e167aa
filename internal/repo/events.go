package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-erp/internal/events"
)

// EventRepo persists domain events.
type EventRepo struct {
	Pool *pgxpool.Pool
}

// InsertEvent appends one event and returns it with its generated id and
// timestamp.
func (r EventRepo) InsertEvent(ctx context.Context, topic string, aggregateID uuid.UUID, payload []byte) (events.Event, error) {
	const q = `
		INSERT INTO domain_events (topic, aggregate_id, payload)
		VALUES ($1, $2, $3)
		RETURNING id, occurred_at`
	ev := events.Event{Topic: topic, AggregateID: aggregateID, Payload: payload}
	err := r.Pool.QueryRow(ctx, q, topic, aggregateID, payload).Scan(&ev.ID, &ev.OccurredAt)
	if err != nil {
		return events.Event{}, fmt.Errorf("insert domain event: %w", err)
	}
	return ev, nil
}
