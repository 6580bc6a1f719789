package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	id "partnerd/pkg/domain"
	"partnerd/pkg/platform/sentinel"
	txcontext "partnerd/pkg/platform/tx"
)

// PostgresStore persists participants in the participants table. The serial
// position column preserves registration order for List.
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

func (s *PostgresStore) Create(ctx context.Context, participant Participant) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO participants (address, display_name, role, registered_at)
		VALUES ($1, $2, $3, $4)
	`,
		participant.Address.String(),
		participant.DisplayName,
		participant.Role.String(),
		participant.RegisteredAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, addr id.Address) (Participant, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT address, display_name, role, registered_at
		FROM participants
		WHERE address = $1
	`, addr.String())

	p, err := scanParticipant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Participant{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Participant{}, fmt.Errorf("find participant: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Participant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT address, display_name, role, registered_at
		FROM participants
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var out []Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("list participants: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParticipant(row rowScanner) (Participant, error) {
	var (
		p    Participant
		addr string
		role string
	)
	if err := row.Scan(&addr, &p.DisplayName, &role, &p.RegisteredAt); err != nil {
		return Participant{}, err
	}
	p.Address = id.Address(addr)
	parsed, err := id.ParseRole(role)
	if err != nil {
		return Participant{}, err
	}
	p.Role = parsed
	return p, nil
}
