package ledger

import (
	"context"

	id "partnerd/pkg/domain"
)

// Store persists partnership records. NextID allocation is monotonic and ids
// are never reused, including after cancellation. Implementations return
// sentinel.ErrNotFound for unknown ids and copies for all reads.
type Store interface {
	NextID(ctx context.Context) (id.PartnershipID, error)
	Save(ctx context.Context, partnership Partnership) error
	Find(ctx context.Context, pid id.PartnershipID) (Partnership, error)
	ListByParticipant(ctx context.Context, addr id.Address) ([]id.PartnershipID, error)
	ListAll(ctx context.Context) ([]Partnership, error)
}

// Vault owns the escrowed balance. Only three paths move value: Hold on
// create, Release to the counterparty on completion, Refund to the initiator
// on cancellation. Held must always equal the sum of active partnership
// amounts; arithmetic is checked and fails closed.
type Vault interface {
	Hold(ctx context.Context, amount id.Amount) error
	Release(ctx context.Context, to id.Address, amount id.Amount) error
	Refund(ctx context.Context, to id.Address, amount id.Amount) error
	Held(ctx context.Context) (id.Amount, error)
	// PaidTo returns the cumulative value credited to addr by releases and
	// refunds. Total over the address space.
	PaidTo(ctx context.Context, addr id.Address) (id.Amount, error)
}
