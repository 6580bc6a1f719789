//go:build integration

package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"partnerd/internal/ledger"
	id "partnerd/pkg/domain"
	"partnerd/pkg/platform/sentinel"
	txrunner "partnerd/pkg/platform/tx"
	"partnerd/pkg/testutil/containers"
)

type PostgresLedgerSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *ledger.PostgresStore
	vault    *ledger.PostgresVault
	runner   txrunner.Runner
}

func TestPostgresLedgerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresLedgerSuite))
}

func (s *PostgresLedgerSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = ledger.NewPostgres(s.postgres.DB)
	s.vault = ledger.NewPostgresVault(s.postgres.DB)
	s.runner = txrunner.NewSQL(s.postgres.DB)
}

func (s *PostgresLedgerSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background()))
}

const (
	initiator    = id.Address("0x1111111111111111111111111111111111111111")
	counterparty = id.Address("0x2222222222222222222222222222222222222222")
)

func (s *PostgresLedgerSuite) TestNextIDStartsAtZeroAndIsDense() {
	ctx := context.Background()
	for want := id.PartnershipID(0); want < 3; want++ {
		got, err := s.store.NextID(ctx)
		s.Require().NoError(err)
		s.Equal(want, got)
	}
}

func (s *PostgresLedgerSuite) TestSaveRoundTrip() {
	ctx := context.Background()
	pid, err := s.store.NextID(ctx)
	s.Require().NoError(err)

	want := ledger.Partnership{
		ID:           pid,
		Initiator:    initiator,
		Counterparty: counterparty,
		Amount:       id.MaxAmount, // full uint64 range survives NUMERIC
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
	s.Require().NoError(s.store.Save(ctx, want))

	got, err := s.store.Find(ctx, pid)
	s.Require().NoError(err)
	s.Equal(want.Amount, got.Amount)
	s.Equal(want.Initiator, got.Initiator)
	s.Equal(want.Counterparty, got.Counterparty)
	s.False(got.Completed)

	// Upsert only touches the lifecycle flags.
	want.InitiatorConfirmed = true
	want.Completed = true
	s.Require().NoError(s.store.Save(ctx, want))

	got, err = s.store.Find(ctx, pid)
	s.Require().NoError(err)
	s.True(got.InitiatorConfirmed)
	s.True(got.Completed)
}

func (s *PostgresLedgerSuite) TestFindMissing() {
	_, err := s.store.Find(context.Background(), 404)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresLedgerSuite) TestListByParticipant() {
	ctx := context.Background()
	other := id.Address("0x3333333333333333333333333333333333333333")

	for i, cp := range []id.Address{counterparty, other, counterparty} {
		pid, err := s.store.NextID(ctx)
		s.Require().NoError(err)
		s.Require().NoError(s.store.Save(ctx, ledger.Partnership{
			ID: pid, Initiator: initiator, Counterparty: cp, Amount: id.Amount(i + 1),
			CreatedAt: time.Now().UTC(),
		}))
	}

	ids, err := s.store.ListByParticipant(ctx, counterparty)
	s.Require().NoError(err)
	s.Equal([]id.PartnershipID{0, 2}, ids)

	ids, err = s.store.ListByParticipant(ctx, initiator)
	s.Require().NoError(err)
	s.Equal([]id.PartnershipID{0, 1, 2}, ids)
}

func (s *PostgresLedgerSuite) TestVaultAccounting() {
	ctx := context.Background()

	s.Require().NoError(s.vault.Hold(ctx, 300))
	s.Require().NoError(s.vault.Hold(ctx, 200))

	held, err := s.vault.Held(ctx)
	s.Require().NoError(err)
	s.Equal(id.Amount(500), held)

	s.Require().NoError(s.vault.Release(ctx, counterparty, 300))
	s.Require().NoError(s.vault.Refund(ctx, initiator, 200))

	held, err = s.vault.Held(ctx)
	s.Require().NoError(err)
	s.Equal(id.Amount(0), held)

	paid, err := s.vault.PaidTo(ctx, counterparty)
	s.Require().NoError(err)
	s.Equal(id.Amount(300), paid)

	paid, err = s.vault.PaidTo(ctx, initiator)
	s.Require().NoError(err)
	s.Equal(id.Amount(200), paid)
}

func (s *PostgresLedgerSuite) TestVaultUnderflowFailsClosed() {
	ctx := context.Background()
	s.Require().NoError(s.vault.Hold(ctx, 10))

	s.Error(s.vault.Release(ctx, counterparty, 11))

	held, err := s.vault.Held(ctx)
	s.Require().NoError(err)
	s.Equal(id.Amount(10), held)
}

// TestTransactionRollback verifies the runner makes store and vault writes
// all-or-nothing: a failure after both writes leaves neither applied.
func (s *PostgresLedgerSuite) TestTransactionRollback() {
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		pid, err := s.store.NextID(ctx)
		if err != nil {
			return err
		}
		if err := s.store.Save(ctx, ledger.Partnership{
			ID: pid, Initiator: initiator, Counterparty: counterparty, Amount: 100,
			CreatedAt: time.Now().UTC(),
		}); err != nil {
			return err
		}
		if err := s.vault.Hold(ctx, 100); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	_, err = s.store.Find(ctx, 0)
	s.ErrorIs(err, sentinel.ErrNotFound)

	held, err := s.vault.Held(ctx)
	s.Require().NoError(err)
	s.Equal(id.Amount(0), held)
}
