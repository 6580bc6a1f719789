package eventlog

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// InMemoryOutbox backs the worker in tests and in the no-postgres wiring.
type InMemoryOutbox struct {
	mu        sync.Mutex
	entries   []OutboxEntry
	processed map[uuid.UUID]bool
}

func NewInMemoryOutbox() *InMemoryOutbox {
	return &InMemoryOutbox{processed: make(map[uuid.UUID]bool)}
}

// Add enqueues an entry for publication.
func (s *InMemoryOutbox) Add(entry OutboxEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

func (s *InMemoryOutbox) FetchUnprocessed(_ context.Context, limit int) ([]OutboxEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]OutboxEntry, 0, limit)
	for _, e := range s.entries {
		if s.processed[e.ID] {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryOutbox) MarkProcessed(_ context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.processed[id] = true
	}
	return nil
}

// Pending returns the count of unprocessed entries.
func (s *InMemoryOutbox) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if !s.processed[e.ID] {
			n++
		}
	}
	return n
}
