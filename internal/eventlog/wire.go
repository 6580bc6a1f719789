package eventlog

import (
	"encoding/json"
	"time"
)

// wirePayload is the JSON structure published to the broker. Field names are
// part of the external consumer contract.
type wirePayload struct {
	TxRef        string `json:"tx_ref"`
	Partnership  *int64 `json:"partnership_id,omitempty"`
	Action       string `json:"action"`
	Actor        string `json:"actor"`
	Counterparty string `json:"counterparty,omitempty"`
	Amount       string `json:"amount,omitempty"`
	Timestamp    string `json:"timestamp"`
}

// encodeWire renders an event into its broker key and payload. Registry
// events share a single key; partnership events key on the partnership id so
// per-partnership ordering survives partitioning.
func encodeWire(event Event) (key string, payload []byte, err error) {
	wire := wirePayload{
		TxRef:     event.TxRef.String(),
		Action:    string(event.Action),
		Actor:     event.Actor.String(),
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
	}
	key = "registry"
	if event.Partnership != nil {
		n := int64(*event.Partnership)
		wire.Partnership = &n
		key = event.Partnership.String()
	}
	if !event.Counterparty.IsZero() {
		wire.Counterparty = event.Counterparty.String()
	}
	if !event.Amount.IsZero() {
		wire.Amount = event.Amount.String()
	}
	payload, err = json.Marshal(wire)
	return key, payload, err
}
