package eventlog

import (
	"context"

	id "partnerd/pkg/domain"
)

// Store persists the append-only event log. Implementations must preserve
// append order and return copies so readers observe consistent snapshots.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByPartnership(ctx context.Context, pid id.PartnershipID) ([]Event, error)
	ListAll(ctx context.Context) ([]Event, error)
}
