// Package lifecycle defines the closed-world shipment state graph.
//
// The graph is an immutable lookup table built once at init: any
// (state, event type) pair not listed here is forbidden. Cancellation and
// escalation edges are deliberately absent until their owning role is
// settled.
package lifecycle

import (
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/shipment/event"
)

type edgeKey struct {
	From event.State
	Type event.Type
}

// edges lists every legal transition: linear progress plus the two
// controlled cycles (created/hold and delivery retry).
var edges = map[edgeKey]event.State{
	{event.StateInitial, event.TypeCreated}: event.StateCreated,

	{event.StateCreated, event.TypeManagerApproved}:                     event.StateManagerApproved,
	{event.StateCreated, event.TypeManagerOnHold}:                       event.StateManagerOnHold,
	{event.StateManagerOnHold, event.TypeHoldReleased}:                  event.StateCreated,
	{event.StateManagerApproved, event.TypeSupervisorApproved}:          event.StateSupervisorApproved,
	{event.StateSupervisorApproved, event.TypeDispatched}:               event.StateInTransit,
	{event.StateInTransit, event.TypeReceiverAcknowledged}:              event.StateReceiverAcknowledged,
	{event.StateReceiverAcknowledged, event.TypeWarehouseIntakeStarted}: event.StateWarehouseIntake,
	{event.StateWarehouseIntake, event.TypeOutForDelivery}:              event.StateOutForDelivery,
	{event.StateOutForDelivery, event.TypeDeliveryConfirmed}:            event.StateDelivered,
	{event.StateOutForDelivery, event.TypeDeliveryFailed}:               event.StateDeliveryFailed,
	{event.StateDeliveryFailed, event.TypeOutForDelivery}:               event.StateOutForDelivery,
	{event.StateDelivered, event.TypeLifecycleClosed}:                   event.StateLifecycleClosed,
}

// Allowed returns the state an event type leads to from the given state.
// The second return value is false when the transition is not a graph edge.
func Allowed(from event.State, eventType event.Type) (event.State, bool) {
	to, ok := edges[edgeKey{From: from, Type: eventType}]
	return to, ok
}

// EventTypesFrom returns the event types with an outgoing edge from the state,
// in catalog order.
func EventTypesFrom(from event.State) []event.Type {
	var out []event.Type
	for _, t := range event.Types() {
		if _, ok := edges[edgeKey{From: from, Type: t}]; ok {
			out = append(out, t)
		}
	}
	return out
}

// IsEdge reports whether (from, to) is connected by the given event type.
func IsEdge(from event.State, eventType event.Type, to event.State) bool {
	next, ok := Allowed(from, eventType)
	return ok && next == to
}
