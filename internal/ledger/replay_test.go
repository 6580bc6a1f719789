package ledger

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"partnerd/internal/eventlog"
	id "partnerd/pkg/domain"
)

// The replay suite drives the service to produce a real event trail, then
// verifies the fold reconstructs the exact store state. This is the
// rebuild-from-log guarantee: the log alone is sufficient.

type ReplaySuite struct {
	LedgerServiceSuite
}

func TestReplaySuite(t *testing.T) {
	suite.Run(t, new(ReplaySuite))
}

func (s *ReplaySuite) TestReplayMatchesStore() {
	a := s.mustCreate(100)
	s.NoError(s.service.Confirm(s.ctx, s.brand, a))
	s.NoError(s.service.Confirm(s.ctx, s.influencer, a))

	b := s.mustCreate(200)
	s.NoError(s.service.Confirm(s.ctx, s.influencer, b))
	s.NoError(s.service.Cancel(s.ctx, s.brand, b))

	c := s.mustCreate(300)
	s.NoError(s.service.Confirm(s.ctx, s.brand, c))

	all, err := s.events.All(s.ctx)
	s.Require().NoError(err)

	replayed, err := Replay(all)
	s.Require().NoError(err)
	s.Len(replayed, 3)

	stored, err := s.store.ListAll(s.ctx)
	s.Require().NoError(err)
	for _, want := range stored {
		got, ok := replayed[want.ID]
		s.Require().True(ok, "partnership %s missing from replay", want.ID)
		s.Equal(want.Initiator, got.Initiator)
		s.Equal(want.Counterparty, got.Counterparty)
		s.Equal(want.Amount, got.Amount)
		s.Equal(want.InitiatorConfirmed, got.InitiatorConfirmed)
		s.Equal(want.CounterpartyConfirmed, got.CounterpartyConfirmed)
		s.Equal(want.Completed, got.Completed)
		s.Equal(want.Cancelled, got.Cancelled)
	}
}

func (s *ReplaySuite) TestReplayValidation() {
	pid := id.PartnershipID(0)

	s.Run("registry events are skipped", func() {
		state, err := Replay([]eventlog.Event{
			{Action: eventlog.ActionRegistered, Actor: s.brand},
		})
		s.NoError(err)
		s.Empty(state)
	})

	s.Run("mutation before creation fails", func() {
		_, err := Replay([]eventlog.Event{
			{Partnership: &pid, Action: eventlog.ActionConfirmed, Actor: s.brand},
		})
		s.Error(err)
	})

	s.Run("duplicate creation fails", func() {
		created := eventlog.Event{
			Partnership:  &pid,
			Action:       eventlog.ActionCreated,
			Actor:        s.brand,
			Counterparty: s.influencer,
			Amount:       10,
		}
		_, err := Replay([]eventlog.Event{created, created})
		s.Error(err)
	})

	s.Run("confirmation by a non-party fails", func() {
		_, err := Replay([]eventlog.Event{
			{Partnership: &pid, Action: eventlog.ActionCreated, Actor: s.brand, Counterparty: s.influencer, Amount: 10},
			{Partnership: &pid, Action: eventlog.ActionConfirmed, Actor: s.outsider},
		})
		s.Error(err)
	})
}
