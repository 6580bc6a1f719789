package registry

import (
	"time"

	id "partnerd/pkg/domain"
)

// Participant is a registered address with an immutable display name and role.
// There is no update operation: the record is written once at registration.
type Participant struct {
	Address      id.Address
	DisplayName  string
	Role         id.Role
	RegisteredAt time.Time
}

// Registered reports whether the participant is a real registration rather
// than the sentinel empty profile.
func (p Participant) Registered() bool {
	return !p.Address.IsZero()
}

// EmptyProfile is the sentinel returned by profile lookups for unregistered
// addresses. Lookups are total functions over the address space; absence is a
// defined value, never an error.
func EmptyProfile() Participant {
	return Participant{}
}
