package eventlog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	id "partnerd/pkg/domain"
)

// InMemoryStore keeps the log in a slice with a per-partnership index. The
// mutex guards the data structures only; mutation ordering is the caller's
// responsibility. With an outbox attached, every append is mirrored into it
// the same way the postgres store mirrors into the outbox table.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
	byPID  map[id.PartnershipID][]int
	outbox *InMemoryOutbox
}

func NewInMemoryStore(outbox *InMemoryOutbox) *InMemoryStore {
	return &InMemoryStore{byPID: make(map[id.PartnershipID][]int), outbox: outbox}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	if event.Partnership != nil {
		pid := *event.Partnership
		s.byPID[pid] = append(s.byPID[pid], len(s.events)-1)
	}

	if s.outbox != nil {
		key, payload, err := encodeWire(event)
		if err != nil {
			return err
		}
		s.outbox.Add(OutboxEntry{
			ID:        uuid.New(),
			Key:       key,
			Payload:   payload,
			CreatedAt: time.Now().UTC(),
		})
	}
	return nil
}

func (s *InMemoryStore) ListByPartnership(_ context.Context, pid id.PartnershipID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	indices := s.byPID[pid]
	out := make([]Event, 0, len(indices))
	for _, i := range indices {
		out = append(out, s.events[i])
	}
	return out, nil
}

func (s *InMemoryStore) ListAll(_ context.Context) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events...), nil
}
