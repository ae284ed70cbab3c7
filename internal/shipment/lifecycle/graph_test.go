package lifecycle

import (
	"testing"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/shipment/event"
)

func TestAllowedLinearProgress(t *testing.T) {
	steps := []struct {
		from event.State
		typ  event.Type
		to   event.State
	}{
		{event.StateInitial, event.TypeCreated, event.StateCreated},
		{event.StateCreated, event.TypeManagerApproved, event.StateManagerApproved},
		{event.StateManagerApproved, event.TypeSupervisorApproved, event.StateSupervisorApproved},
		{event.StateSupervisorApproved, event.TypeDispatched, event.StateInTransit},
		{event.StateInTransit, event.TypeReceiverAcknowledged, event.StateReceiverAcknowledged},
		{event.StateReceiverAcknowledged, event.TypeWarehouseIntakeStarted, event.StateWarehouseIntake},
		{event.StateWarehouseIntake, event.TypeOutForDelivery, event.StateOutForDelivery},
		{event.StateOutForDelivery, event.TypeDeliveryConfirmed, event.StateDelivered},
		{event.StateDelivered, event.TypeLifecycleClosed, event.StateLifecycleClosed},
	}
	for _, step := range steps {
		to, ok := Allowed(step.from, step.typ)
		if !ok {
			t.Fatalf("expected edge %s --%s-->", step.from, step.typ)
		}
		if to != step.to {
			t.Fatalf("%s --%s--> %s, want %s", step.from, step.typ, to, step.to)
		}
	}
}

func TestAllowedHoldCycle(t *testing.T) {
	to, ok := Allowed(event.StateCreated, event.TypeManagerOnHold)
	if !ok || to != event.StateManagerOnHold {
		t.Fatalf("expected hold edge, got %s %v", to, ok)
	}
	back, ok := Allowed(event.StateManagerOnHold, event.TypeHoldReleased)
	if !ok || back != event.StateCreated {
		t.Fatalf("expected release edge back to created, got %s %v", back, ok)
	}
}

func TestAllowedDeliveryRetryCycle(t *testing.T) {
	failed, ok := Allowed(event.StateOutForDelivery, event.TypeDeliveryFailed)
	if !ok || failed != event.StateDeliveryFailed {
		t.Fatalf("expected failure edge, got %s %v", failed, ok)
	}
	retried, ok := Allowed(event.StateDeliveryFailed, event.TypeOutForDelivery)
	if !ok || retried != event.StateOutForDelivery {
		t.Fatalf("expected retry edge, got %s %v", retried, ok)
	}
}

func TestTerminalStateHasNoOutgoingEdges(t *testing.T) {
	if types := EventTypesFrom(event.StateLifecycleClosed); len(types) != 0 {
		t.Fatalf("expected no outgoing edges from terminal state, got %v", types)
	}
}

func TestClosedWorldRejectsUnlistedPairs(t *testing.T) {
	rejected := []struct {
		from event.State
		typ  event.Type
	}{
		{event.StateCreated, event.TypeDispatched},
		{event.StateManagerApproved, event.TypeManagerApproved},
		{event.StateInTransit, event.TypeDeliveryConfirmed},
		{event.StateInitial, event.TypeManagerApproved},
		{event.StateDelivered, event.TypeDeliveryConfirmed},
	}
	for _, pair := range rejected {
		if to, ok := Allowed(pair.from, pair.typ); ok {
			t.Fatalf("unexpected edge %s --%s--> %s", pair.from, pair.typ, to)
		}
	}
}

func TestEveryEdgeTargetIsValidState(t *testing.T) {
	for _, from := range append([]event.State{event.StateInitial}, event.States()...) {
		for _, typ := range EventTypesFrom(from) {
			to, ok := Allowed(from, typ)
			if !ok {
				t.Fatalf("edge listed but not allowed: %s --%s-->", from, typ)
			}
			if !to.IsValid() {
				t.Fatalf("edge %s --%s--> %q targets unknown state", from, typ, to)
			}
		}
	}
}
