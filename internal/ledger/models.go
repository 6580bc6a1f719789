package ledger

import (
	"time"

	id "partnerd/pkg/domain"
)

// Partnership is one two-party escrow agreement. Lifecycle:
//
//	Active (zero or one confirmation) -> Completed   (both parties confirmed)
//	Active                            -> Cancelled   (either party cancelled)
//
// Completed and Cancelled are terminal and mutually exclusive. The record
// persists after either terminal transition; only the escrow accounting
// treats terminal partnerships as inactive.
type Partnership struct {
	ID                    id.PartnershipID
	Initiator             id.Address
	Counterparty          id.Address
	Amount                id.Amount
	InitiatorConfirmed    bool
	CounterpartyConfirmed bool
	Completed             bool
	Cancelled             bool
	CreatedAt             time.Time
}

// Terminal reports whether no further mutation is possible.
func (p Partnership) Terminal() bool {
	return p.Completed || p.Cancelled
}

// Active reports whether the amount is still held in escrow.
func (p Partnership) Active() bool {
	return !p.Terminal()
}

// IsParty reports whether addr is one of the two parties.
func (p Partnership) IsParty(addr id.Address) bool {
	return addr == p.Initiator || addr == p.Counterparty
}

// ConfirmedBy reports whether the given party has already confirmed.
// Callers must pass one of the two parties.
func (p Partnership) ConfirmedBy(addr id.Address) bool {
	switch addr {
	case p.Initiator:
		return p.InitiatorConfirmed
	case p.Counterparty:
		return p.CounterpartyConfirmed
	default:
		return false
	}
}
