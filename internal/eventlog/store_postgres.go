package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "partnerd/pkg/domain"
	txcontext "partnerd/pkg/platform/tx"
)

// PostgresStore persists the event log and mirrors every append into the
// outbox table (transactional outbox, drained to Kafka by the worker).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	var pid sql.NullInt64
	if event.Partnership != nil {
		pid = sql.NullInt64{Int64: int64(*event.Partnership), Valid: true}
	}

	exec := s.execer(ctx)

	query := `
		INSERT INTO ledger_events (tx_ref, partnership_id, action, actor, counterparty, amount, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := exec.ExecContext(ctx, query,
		uuid.UUID(event.TxRef),
		pid,
		string(event.Action),
		event.Actor.String(),
		event.Counterparty.String(),
		event.Amount.String(),
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert ledger event: %w", err)
	}

	key, payloadBytes, err := encodeWire(event)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = exec.ExecContext(ctx, `
		INSERT INTO outbox (id, key, payload, created_at)
		VALUES ($1, $2, $3, $4)
	`, uuid.New(), key, payloadBytes, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByPartnership(ctx context.Context, pid id.PartnershipID) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tx_ref, partnership_id, action, actor, counterparty, amount, ts
		FROM ledger_events
		WHERE partnership_id = $1
		ORDER BY seq ASC
	`, int64(pid))
	if err != nil {
		return nil, fmt.Errorf("query ledger events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tx_ref, partnership_id, action, actor, counterparty, amount, ts
		FROM ledger_events
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query ledger events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var (
			txRef        uuid.UUID
			pid          sql.NullInt64
			action       string
			actor        string
			counterparty string
			amount       string
			ts           time.Time
		)
		if err := rows.Scan(&txRef, &pid, &action, &actor, &counterparty, &amount, &ts); err != nil {
			return nil, fmt.Errorf("scan ledger event: %w", err)
		}

		event := Event{
			TxRef:     id.TxRef(txRef),
			Action:    Action(action),
			Actor:     id.Address(actor),
			Timestamp: ts,
		}
		if pid.Valid {
			p := id.PartnershipID(pid.Int64)
			event.Partnership = &p
		}
		if counterparty != "" {
			event.Counterparty = id.Address(counterparty)
		}
		if amount != "" {
			amt, err := id.ParseAmount(amount)
			if err != nil {
				return nil, fmt.Errorf("scan ledger event amount: %w", err)
			}
			event.Amount = amt
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// FetchUnprocessed returns up to limit unpublished outbox entries in commit order.
func (s *PostgresStore) FetchUnprocessed(ctx context.Context, limit int) ([]OutboxEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, key, payload, created_at
		FROM outbox
		WHERE processed_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var entries []OutboxEntry
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.ID, &e.Key, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MarkProcessed stamps the given entries as published.
func (s *PostgresStore) MarkProcessed(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, time.Now().UTC())
	placeholders := ""
	for i, entryID := range ids {
		if i > 0 {
			placeholders += ", "
		}
		placeholders += fmt.Sprintf("$%d", i+2)
		args = append(args, entryID)
	}
	_, err := s.db.ExecContext(ctx,
		"UPDATE outbox SET processed_at = $1 WHERE id IN ("+placeholders+")",
		args...,
	)
	if err != nil {
		return fmt.Errorf("mark outbox processed: %w", err)
	}
	return nil
}
