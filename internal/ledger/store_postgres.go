package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	id "partnerd/pkg/domain"
	"partnerd/pkg/platform/sentinel"
	txcontext "partnerd/pkg/platform/tx"
)

// PostgresStore persists partnerships. Ids come from a dedicated sequence
// starting at 0; amounts are stored as NUMERIC to cover the full unsigned
// range.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func querier(ctx context.Context, db *sql.DB) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return db
}

func (s *PostgresStore) NextID(ctx context.Context) (id.PartnershipID, error) {
	var next int64
	err := querier(ctx, s.db).QueryRowContext(ctx, `SELECT nextval('partnership_ids')`).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("allocate partnership id: %w", err)
	}
	return id.PartnershipID(next), nil
}

func (s *PostgresStore) Save(ctx context.Context, p Partnership) error {
	_, err := querier(ctx, s.db).ExecContext(ctx, `
		INSERT INTO partnerships (
			id, initiator, counterparty, amount,
			initiator_confirmed, counterparty_confirmed, completed, cancelled, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			initiator_confirmed = EXCLUDED.initiator_confirmed,
			counterparty_confirmed = EXCLUDED.counterparty_confirmed,
			completed = EXCLUDED.completed,
			cancelled = EXCLUDED.cancelled
	`,
		int64(p.ID),
		p.Initiator.String(),
		p.Counterparty.String(),
		p.Amount.String(),
		p.InitiatorConfirmed,
		p.CounterpartyConfirmed,
		p.Completed,
		p.Cancelled,
		p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save partnership: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, pid id.PartnershipID) (Partnership, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, initiator, counterparty, amount,
		       initiator_confirmed, counterparty_confirmed, completed, cancelled, created_at
		FROM partnerships
		WHERE id = $1
	`, int64(pid))

	p, err := scanPartnership(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Partnership{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Partnership{}, fmt.Errorf("find partnership: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListByParticipant(ctx context.Context, addr id.Address) ([]id.PartnershipID, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM partnerships
		WHERE initiator = $1 OR counterparty = $1
		ORDER BY id ASC
	`, addr.String())
	if err != nil {
		return nil, fmt.Errorf("list partnerships by participant: %w", err)
	}
	defer rows.Close()

	var ids []id.PartnershipID
	for rows.Next() {
		var n int64
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan partnership id: %w", err)
		}
		ids = append(ids, id.PartnershipID(n))
	}
	return ids, rows.Err()
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]Partnership, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, initiator, counterparty, amount,
		       initiator_confirmed, counterparty_confirmed, completed, cancelled, created_at
		FROM partnerships
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list partnerships: %w", err)
	}
	defer rows.Close()

	var out []Partnership
	for rows.Next() {
		p, err := scanPartnership(rows)
		if err != nil {
			return nil, fmt.Errorf("list partnerships: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPartnership(row rowScanner) (Partnership, error) {
	var (
		p            Partnership
		pid          int64
		initiator    string
		counterparty string
		amount       string
	)
	err := row.Scan(&pid, &initiator, &counterparty, &amount,
		&p.InitiatorConfirmed, &p.CounterpartyConfirmed, &p.Completed, &p.Cancelled, &p.CreatedAt)
	if err != nil {
		return Partnership{}, err
	}
	p.ID = id.PartnershipID(pid)
	p.Initiator = id.Address(initiator)
	p.Counterparty = id.Address(counterparty)
	amt, err := id.ParseAmount(amount)
	if err != nil {
		return Partnership{}, err
	}
	p.Amount = amt
	return p, nil
}

// PostgresVault keeps the held balance in a single-row table and cumulative
// payouts per address. Arithmetic is done in Go so overflow fails closed the
// same way as the memory vault; mutations run inside the service transaction.
type PostgresVault struct {
	db *sql.DB
}

func NewPostgresVault(db *sql.DB) *PostgresVault {
	return &PostgresVault{db: db}
}

func (v *PostgresVault) Hold(ctx context.Context, amount id.Amount) error {
	q := querier(ctx, v.db)
	held, err := v.held(ctx, q)
	if err != nil {
		return err
	}
	next, err := held.Add(amount)
	if err != nil {
		return err
	}
	return v.setHeld(ctx, q, next)
}

func (v *PostgresVault) Release(ctx context.Context, to id.Address, amount id.Amount) error {
	return v.payOut(ctx, to, amount)
}

func (v *PostgresVault) Refund(ctx context.Context, to id.Address, amount id.Amount) error {
	return v.payOut(ctx, to, amount)
}

func (v *PostgresVault) payOut(ctx context.Context, to id.Address, amount id.Amount) error {
	q := querier(ctx, v.db)

	held, err := v.held(ctx, q)
	if err != nil {
		return err
	}
	nextHeld, err := held.Sub(amount)
	if err != nil {
		return err
	}

	var paid string
	err = q.QueryRowContext(ctx,
		`SELECT total FROM payouts WHERE address = $1`, to.String(),
	).Scan(&paid)
	current := id.Amount(0)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("read payout total: %w", err)
	default:
		current, err = id.ParseAmount(paid)
		if err != nil {
			return fmt.Errorf("read payout total: %w", err)
		}
	}
	credited, err := current.Add(amount)
	if err != nil {
		return err
	}

	if err := v.setHeld(ctx, q, nextHeld); err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO payouts (address, total) VALUES ($1, $2)
		ON CONFLICT (address) DO UPDATE SET total = EXCLUDED.total
	`, to.String(), credited.String())
	if err != nil {
		return fmt.Errorf("write payout total: %w", err)
	}
	return nil
}

func (v *PostgresVault) Held(ctx context.Context) (id.Amount, error) {
	return v.held(ctx, querier(ctx, v.db))
}

func (v *PostgresVault) held(ctx context.Context, q dbQuerier) (id.Amount, error) {
	var raw string
	err := q.QueryRowContext(ctx, `SELECT held FROM vault WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read held balance: %w", err)
	}
	return id.ParseAmount(raw)
}

func (v *PostgresVault) setHeld(ctx context.Context, q dbQuerier, held id.Amount) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO vault (id, held) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET held = EXCLUDED.held
	`, held.String())
	if err != nil {
		return fmt.Errorf("write held balance: %w", err)
	}
	return nil
}

func (v *PostgresVault) PaidTo(ctx context.Context, addr id.Address) (id.Amount, error) {
	var raw string
	err := v.db.QueryRowContext(ctx,
		`SELECT total FROM payouts WHERE address = $1`, addr.String(),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read payout total: %w", err)
	}
	return id.ParseAmount(raw)
}
