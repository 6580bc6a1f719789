package eventlog

import (
	"context"
	"time"

	id "partnerd/pkg/domain"
)

// Publisher is the single write path into the event log. It assigns the
// transaction reference and timestamp so emitters only describe the
// transition itself.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

// Emit appends one event. The returned reference permanently addresses the
// event for external lookup.
func (p *Publisher) Emit(ctx context.Context, event Event) (id.TxRef, error) {
	if event.TxRef.IsNil() {
		event.TxRef = id.NewTxRef()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := p.store.Append(ctx, event); err != nil {
		return id.TxRef{}, err
	}
	return event.TxRef, nil
}

// History returns the events for one partnership in append order.
func (p *Publisher) History(ctx context.Context, pid id.PartnershipID) ([]Event, error) {
	return p.store.ListByPartnership(ctx, pid)
}

// All returns the full log in append order.
func (p *Publisher) All(ctx context.Context) ([]Event, error) {
	return p.store.ListAll(ctx)
}
