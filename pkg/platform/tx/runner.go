package tx

import (
	"context"
	"database/sql"
	"fmt"
)

// Runner executes a mutation as a single all-or-nothing unit. The SQL runner
// opens a transaction and threads it through context so every store touched
// by the mutation commits together; the noop runner backs the memory stores,
// whose mutations are already applied serially by the execution model.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type noopRunner struct{}

// NewNoop returns a Runner that invokes fn directly.
func NewNoop() Runner { return noopRunner{} }

func (noopRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type sqlRunner struct {
	db *sql.DB
}

// NewSQL returns a Runner backed by database transactions.
func NewSQL(db *sql.DB) Runner { return &sqlRunner{db: db} }

func (r *sqlRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(WithTx(ctx, dbTx)); err != nil {
		if rbErr := dbTx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
