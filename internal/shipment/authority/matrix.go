// Package authority defines which role may emit which event types from each
// lifecycle state.
//
// Authority is purely a function of current state. A role loses every future
// permission the instant its owned state is exited, and re-entering a prior
// state restores only the authority defined for that state.
package authority

import (
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/shipment/event"
)

type grantKey struct {
	State event.State
	Role  event.Role
}

// grants is the immutable authority table. Missing entries mean no authority.
var grants = map[grantKey][]event.Type{
	{event.StateInitial, event.RoleSender}: {event.TypeCreated},

	{event.StateCreated, event.RoleSenderManager}: {
		event.TypeManagerApproved,
		event.TypeManagerOnHold,
	},
	{event.StateManagerOnHold, event.RoleSenderManager}:           {event.TypeHoldReleased},
	{event.StateManagerApproved, event.RoleSenderSupervisor}:      {event.TypeSupervisorApproved},
	{event.StateSupervisorApproved, event.RoleSystem}:             {event.TypeDispatched},
	{event.StateInTransit, event.RoleReceiverManager}:             {event.TypeReceiverAcknowledged},
	{event.StateReceiverAcknowledged, event.RoleWarehouseManager}: {event.TypeWarehouseIntakeStarted},
	{event.StateWarehouseIntake, event.RoleWarehouseManager}:      {event.TypeOutForDelivery},
	{event.StateOutForDelivery, event.RoleCustomer}:               {event.TypeDeliveryConfirmed},
	{event.StateOutForDelivery, event.RoleSystem}:                 {event.TypeDeliveryFailed},
	{event.StateDeliveryFailed, event.RoleSystem}:                 {event.TypeOutForDelivery},
	{event.StateDelivered, event.RoleSystem}:                      {event.TypeLifecycleClosed},
}

// Permitted returns the event types the role may emit from the given state.
// The returned slice is a copy; callers may not mutate the table.
func Permitted(state event.State, role event.Role) []event.Type {
	types, ok := grants[grantKey{State: state, Role: role}]
	if !ok {
		return nil
	}
	out := make([]event.Type, len(types))
	copy(out, types)
	return out
}

// IsPermitted reports whether the role may emit the event type from the state.
func IsPermitted(state event.State, role event.Role, eventType event.Type) bool {
	for _, t := range grants[grantKey{State: state, Role: role}] {
		if t == eventType {
			return true
		}
	}
	return false
}
