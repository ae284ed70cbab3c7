// Package projection rebuilds shipment read models by folding ordered events.
package projection

import (
	"time"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/shipment/event"
)

// Projection captures the derived current state of one shipment.
//
// New developers should read this as "shipment snapshot in-memory": it is
// never stored as independent truth and is recomputed from the event log on
// demand.
type Projection struct {
	// ShipmentID is the aggregate identifier.
	ShipmentID string
	// CurrentState is the lifecycle state after the last folded event.
	CurrentState event.State
	// CreatedAt is the timestamp of the first event.
	CreatedAt time.Time
	// LastUpdated is the timestamp of the last folded event.
	LastUpdated time.Time
	// EventCount is the number of events folded in.
	EventCount uint64
	// EventSequence lists folded event types in order.
	EventSequence []event.Type
	// CurrentPayload is the additive merge of all event payloads,
	// later keys winning on conflict.
	CurrentPayload map[string]string
}

// Exists reports whether any event has been folded into the projection.
func (p Projection) Exists() bool {
	return p.EventCount > 0
}

// IsClosed reports whether the shipment reached its terminal state.
func (p Projection) IsClosed() bool {
	return p.CurrentState.IsTerminal()
}
