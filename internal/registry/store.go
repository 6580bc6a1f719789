package registry

import (
	"context"

	id "partnerd/pkg/domain"
)

// Store persists participants. Implementations return sentinel.ErrNotFound
// for missing addresses and sentinel.ErrConflict for duplicate registration;
// the service translates both into domain errors.
type Store interface {
	Create(ctx context.Context, participant Participant) error
	Find(ctx context.Context, addr id.Address) (Participant, error)
	List(ctx context.Context) ([]Participant, error)
}
