package eventlog

import (
	"time"

	id "partnerd/pkg/domain"
)

// Action classifies a ledger state transition. The set is closed; consumers
// replaying history switch over it exhaustively.
type Action string

const (
	ActionRegistered Action = "registered"
	ActionCreated    Action = "created"
	ActionConfirmed  Action = "confirmed"
	ActionCompleted  Action = "completed"
	ActionCancelled  Action = "cancelled"
)

// Valid reports whether the action is a member of the closed set.
func (a Action) Valid() bool {
	switch a {
	case ActionRegistered, ActionCreated, ActionConfirmed, ActionCompleted, ActionCancelled:
		return true
	}
	return false
}

// Event is one append-only record of a state transition. Events are never
// mutated or deleted; ordering is the order of transaction execution.
//
// Partnership is nil for registry events, which are not tied to any
// partnership (ids start at 0, so a zero value cannot stand in for "none").
// Counterparty and Amount are populated on created events so the full ledger
// state can be rebuilt from the log alone.
type Event struct {
	TxRef        id.TxRef
	Partnership  *id.PartnershipID
	Action       Action
	Actor        id.Address
	Counterparty id.Address
	Amount       id.Amount
	Timestamp    time.Time
}

// ForPartnership reports whether the event belongs to the given partnership.
func (e Event) ForPartnership(pid id.PartnershipID) bool {
	return e.Partnership != nil && *e.Partnership == pid
}
