package eventlog

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "partnerd/pkg/domain"
)

func TestPublisherEmit(t *testing.T) {
	ctx := context.Background()
	actor := id.Address("0x1111111111111111111111111111111111111111")

	t.Run("assigns tx ref and timestamp", func(t *testing.T) {
		publisher := NewPublisher(NewInMemoryStore(nil))

		ref, err := publisher.Emit(ctx, Event{Action: ActionRegistered, Actor: actor})
		require.NoError(t, err)
		assert.False(t, ref.IsNil())

		all, err := publisher.All(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, ref, all[0].TxRef)
		assert.False(t, all[0].Timestamp.IsZero())
	})

	t.Run("preserves a caller supplied tx ref and timestamp", func(t *testing.T) {
		publisher := NewPublisher(NewInMemoryStore(nil))
		ref := id.NewTxRef()
		ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

		got, err := publisher.Emit(ctx, Event{TxRef: ref, Action: ActionRegistered, Actor: actor, Timestamp: ts})
		require.NoError(t, err)
		assert.Equal(t, ref, got)

		all, err := publisher.All(ctx)
		require.NoError(t, err)
		assert.Equal(t, ts, all[0].Timestamp)
	})

	t.Run("history filters by partnership in append order", func(t *testing.T) {
		publisher := NewPublisher(NewInMemoryStore(nil))
		a, b := id.PartnershipID(0), id.PartnershipID(1)

		_, err := publisher.Emit(ctx, Event{Partnership: &a, Action: ActionCreated, Actor: actor})
		require.NoError(t, err)
		_, err = publisher.Emit(ctx, Event{Partnership: &b, Action: ActionCreated, Actor: actor})
		require.NoError(t, err)
		_, err = publisher.Emit(ctx, Event{Partnership: &a, Action: ActionConfirmed, Actor: actor})
		require.NoError(t, err)

		history, err := publisher.History(ctx, a)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, ActionCreated, history[0].Action)
		assert.Equal(t, ActionConfirmed, history[1].Action)
	})
}

func TestAppendMirrorsIntoOutbox(t *testing.T) {
	ctx := context.Background()
	outbox := NewInMemoryOutbox()
	publisher := NewPublisher(NewInMemoryStore(outbox))
	pid := id.PartnershipID(3)

	_, err := publisher.Emit(ctx, Event{
		Partnership:  &pid,
		Action:       ActionCreated,
		Actor:        id.Address("0x1111111111111111111111111111111111111111"),
		Counterparty: id.Address("0x2222222222222222222222222222222222222222"),
		Amount:       500,
	})
	require.NoError(t, err)

	entries, err := outbox.FetchUnprocessed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "3", entries[0].Key)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(entries[0].Payload, &payload))
	assert.Equal(t, "created", payload["action"])
	assert.Equal(t, float64(3), payload["partnership_id"])
	assert.Equal(t, "500", payload["amount"])
}

func TestRegistryEventOutboxKey(t *testing.T) {
	ctx := context.Background()
	outbox := NewInMemoryOutbox()
	publisher := NewPublisher(NewInMemoryStore(outbox))

	_, err := publisher.Emit(ctx, Event{
		Action: ActionRegistered,
		Actor:  id.Address("0x1111111111111111111111111111111111111111"),
	})
	require.NoError(t, err)

	entries, err := outbox.FetchUnprocessed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "registry", entries[0].Key)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(entries[0].Payload, &payload))
	_, hasPID := payload["partnership_id"]
	assert.False(t, hasPID)
}

func TestActionValid(t *testing.T) {
	for _, action := range []Action{ActionRegistered, ActionCreated, ActionConfirmed, ActionCompleted, ActionCancelled} {
		assert.True(t, action.Valid(), "%s should be valid", action)
	}
	assert.False(t, Action("transferred").Valid())
}
