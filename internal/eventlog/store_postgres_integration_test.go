//go:build integration

package eventlog_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"partnerd/internal/eventlog"
	id "partnerd/pkg/domain"
	"partnerd/pkg/testutil/containers"
)

type PostgresEventLogSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *eventlog.PostgresStore
}

func TestPostgresEventLogSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresEventLogSuite))
}

func (s *PostgresEventLogSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = eventlog.NewPostgres(s.postgres.DB)
}

func (s *PostgresEventLogSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background()))
}

func (s *PostgresEventLogSuite) event(pid *id.PartnershipID, action eventlog.Action) eventlog.Event {
	return eventlog.Event{
		TxRef:       id.NewTxRef(),
		Partnership: pid,
		Action:      action,
		Actor:       id.Address("0x1111111111111111111111111111111111111111"),
		Timestamp:   time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresEventLogSuite) TestAppendAndList() {
	ctx := context.Background()
	a, b := id.PartnershipID(0), id.PartnershipID(1)

	created := s.event(&a, eventlog.ActionCreated)
	created.Counterparty = id.Address("0x2222222222222222222222222222222222222222")
	created.Amount = 500

	s.Require().NoError(s.store.Append(ctx, created))
	s.Require().NoError(s.store.Append(ctx, s.event(&b, eventlog.ActionCreated)))
	s.Require().NoError(s.store.Append(ctx, s.event(&a, eventlog.ActionConfirmed)))
	s.Require().NoError(s.store.Append(ctx, s.event(nil, eventlog.ActionRegistered)))

	history, err := s.store.ListByPartnership(ctx, a)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(created.TxRef, history[0].TxRef)
	s.Equal(id.Amount(500), history[0].Amount)
	s.Equal(eventlog.ActionConfirmed, history[1].Action)

	all, err := s.store.ListAll(ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 4)
	s.Nil(all[3].Partnership)
	s.Equal(eventlog.ActionRegistered, all[3].Action)
}

func (s *PostgresEventLogSuite) TestOutboxLifecycle() {
	ctx := context.Background()
	pid := id.PartnershipID(7)

	s.Require().NoError(s.store.Append(ctx, s.event(&pid, eventlog.ActionCreated)))
	s.Require().NoError(s.store.Append(ctx, s.event(nil, eventlog.ActionRegistered)))

	entries, err := s.store.FetchUnprocessed(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal("7", entries[0].Key)
	s.Equal("registry", entries[1].Key)

	var payload map[string]any
	s.Require().NoError(json.Unmarshal(entries[0].Payload, &payload))
	s.Equal("created", payload["action"])
	s.Equal(float64(7), payload["partnership_id"])

	s.Require().NoError(s.store.MarkProcessed(ctx, []uuid.UUID{entries[0].ID}))

	remaining, err := s.store.FetchUnprocessed(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(remaining, 1)
	s.Equal("registry", remaining[0].Key)
}
