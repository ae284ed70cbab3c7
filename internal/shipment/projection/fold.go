package projection

import (
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/shipment/event"
)

// Fold applies one event to the projection.
//
// Fold is a pure function of its inputs: it never consults the clock or any
// external state, so recomputing a projection from the same event sequence
// always yields the same result.
func Fold(p Projection, evt event.Event) Projection {
	if p.ShipmentID == "" {
		p.ShipmentID = evt.ShipmentID
	}
	if p.EventCount == 0 {
		p.CreatedAt = evt.Timestamp
	}
	p.CurrentState = evt.NewState
	p.LastUpdated = evt.Timestamp
	p.EventCount++

	// Copy on append so folds branched off one projection never share a
	// backing array.
	sequence := make([]event.Type, len(p.EventSequence), len(p.EventSequence)+1)
	copy(sequence, p.EventSequence)
	p.EventSequence = append(sequence, evt.Type)

	if len(evt.Payload) > 0 {
		merged := make(map[string]string, len(p.CurrentPayload)+len(evt.Payload))
		for k, v := range p.CurrentPayload {
			merged[k] = v
		}
		for k, v := range evt.Payload {
			merged[k] = v
		}
		p.CurrentPayload = merged
	}
	return p
}

// Project folds an ordered event sequence into a projection.
func Project(events []event.Event) Projection {
	var p Projection
	for _, evt := range events {
		p = Fold(p, evt)
	}
	return p
}
