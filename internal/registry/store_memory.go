package registry

import (
	"context"
	"sync"

	id "partnerd/pkg/domain"
	"partnerd/pkg/platform/sentinel"
)

// InMemoryStore keeps participants in a map plus an order slice so List
// preserves registration order.
type InMemoryStore struct {
	mu           sync.RWMutex
	participants map[id.Address]Participant
	order        []id.Address
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{participants: make(map[id.Address]Participant)}
}

func (s *InMemoryStore) Create(_ context.Context, participant Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.participants[participant.Address]; exists {
		return sentinel.ErrConflict
	}
	s.participants[participant.Address] = participant
	s.order = append(s.order, participant.Address)
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, addr id.Address) (Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.participants[addr]; ok {
		return p, nil
	}
	return Participant{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) List(_ context.Context) ([]Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Participant, 0, len(s.order))
	for _, addr := range s.order {
		out = append(out, s.participants[addr])
	}
	return out, nil
}
