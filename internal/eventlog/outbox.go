package eventlog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OutboxEntry is one event awaiting broker publication. The outbox is written
// in the same transaction as the log append, so the broker stream never
// diverges from committed state.
type OutboxEntry struct {
	ID        uuid.UUID
	Key       string
	Payload   []byte
	CreatedAt time.Time
}

// OutboxStore is polled by the worker that drains entries to the broker.
type OutboxStore interface {
	FetchUnprocessed(ctx context.Context, limit int) ([]OutboxEntry, error)
	MarkProcessed(ctx context.Context, ids []uuid.UUID) error
}
