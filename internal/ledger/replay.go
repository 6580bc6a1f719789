package ledger

import (
	"fmt"

	"partnerd/internal/eventlog"
	id "partnerd/pkg/domain"
)

// Replay folds an event trail back into partnership records. The log is the
// source of truth: created events carry the counterparty and amount, so the
// full state is reconstructible without the store. Events must be in emission
// order; registration events are skipped.
func Replay(events []eventlog.Event) (map[id.PartnershipID]Partnership, error) {
	state := make(map[id.PartnershipID]Partnership)
	for _, ev := range events {
		if ev.Partnership == nil {
			continue
		}
		pid := *ev.Partnership

		switch ev.Action {
		case eventlog.ActionCreated:
			if _, exists := state[pid]; exists {
				return nil, fmt.Errorf("replay: duplicate creation for partnership %s", pid)
			}
			state[pid] = Partnership{
				ID:           pid,
				Initiator:    ev.Actor,
				Counterparty: ev.Counterparty,
				Amount:       ev.Amount,
				CreatedAt:    ev.Timestamp,
			}

		case eventlog.ActionConfirmed:
			p, exists := state[pid]
			if !exists {
				return nil, fmt.Errorf("replay: confirmation before creation for partnership %s", pid)
			}
			switch ev.Actor {
			case p.Initiator:
				p.InitiatorConfirmed = true
			case p.Counterparty:
				p.CounterpartyConfirmed = true
			default:
				return nil, fmt.Errorf("replay: confirmation by non-party %s for partnership %s", ev.Actor, pid)
			}
			state[pid] = p

		case eventlog.ActionCompleted:
			p, exists := state[pid]
			if !exists {
				return nil, fmt.Errorf("replay: completion before creation for partnership %s", pid)
			}
			p.Completed = true
			state[pid] = p

		case eventlog.ActionCancelled:
			p, exists := state[pid]
			if !exists {
				return nil, fmt.Errorf("replay: cancellation before creation for partnership %s", pid)
			}
			p.Cancelled = true
			state[pid] = p

		case eventlog.ActionRegistered:

		default:
			return nil, fmt.Errorf("replay: unknown action %q", ev.Action)
		}
	}
	return state, nil
}
