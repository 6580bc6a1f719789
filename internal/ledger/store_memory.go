package ledger

import (
	"context"
	"sync"

	id "partnerd/pkg/domain"
	"partnerd/pkg/platform/sentinel"
)

// InMemoryStore keeps partnerships in a map keyed by id with a per-address
// index preserving creation order. The mutex guards the data structures only;
// mutation ordering is the caller's responsibility.
type InMemoryStore struct {
	mu           sync.RWMutex
	nextID       id.PartnershipID
	partnerships map[id.PartnershipID]Partnership
	byParty      map[id.Address][]id.PartnershipID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		partnerships: make(map[id.PartnershipID]Partnership),
		byParty:      make(map[id.Address][]id.PartnershipID),
	}
}

func (s *InMemoryStore) NextID(_ context.Context) (id.PartnershipID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	allocated := s.nextID
	s.nextID++
	return allocated, nil
}

func (s *InMemoryStore) Save(_ context.Context, partnership Partnership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.partnerships[partnership.ID]; !exists {
		s.byParty[partnership.Initiator] = append(s.byParty[partnership.Initiator], partnership.ID)
		s.byParty[partnership.Counterparty] = append(s.byParty[partnership.Counterparty], partnership.ID)
	}
	s.partnerships[partnership.ID] = partnership
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, pid id.PartnershipID) (Partnership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.partnerships[pid]; ok {
		return p, nil
	}
	return Partnership{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) ListByParticipant(_ context.Context, addr id.Address) ([]id.PartnershipID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]id.PartnershipID{}, s.byParty[addr]...), nil
}

func (s *InMemoryStore) ListAll(_ context.Context) ([]Partnership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Partnership, 0, len(s.partnerships))
	// Ids are dense from 0, so iterate in allocation order.
	for pid := id.PartnershipID(0); pid < s.nextID; pid++ {
		if p, ok := s.partnerships[pid]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// InMemoryVault tracks the held balance and cumulative payouts with checked
// arithmetic.
type InMemoryVault struct {
	mu      sync.RWMutex
	held    id.Amount
	paidOut map[id.Address]id.Amount
}

func NewInMemoryVault() *InMemoryVault {
	return &InMemoryVault{paidOut: make(map[id.Address]id.Amount)}
}

func (v *InMemoryVault) Hold(_ context.Context, amount id.Amount) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	held, err := v.held.Add(amount)
	if err != nil {
		return err
	}
	v.held = held
	return nil
}

func (v *InMemoryVault) Release(ctx context.Context, to id.Address, amount id.Amount) error {
	return v.payOut(to, amount)
}

func (v *InMemoryVault) Refund(ctx context.Context, to id.Address, amount id.Amount) error {
	return v.payOut(to, amount)
}

func (v *InMemoryVault) payOut(to id.Address, amount id.Amount) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	held, err := v.held.Sub(amount)
	if err != nil {
		return err
	}
	credited, err := v.paidOut[to].Add(amount)
	if err != nil {
		return err
	}
	v.held = held
	v.paidOut[to] = credited
	return nil
}

func (v *InMemoryVault) Held(_ context.Context) (id.Amount, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.held, nil
}

func (v *InMemoryVault) PaidTo(_ context.Context, addr id.Address) (id.Amount, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.paidOut[addr], nil
}
