package event

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/platform/errors"
)

func validEvent() Event {
	return Event{
		EventID:       "evt-1",
		ShipmentID:    "SHP-0000000001",
		Type:          TypeCreated,
		PreviousState: StateInitial,
		NewState:      StateCreated,
		Role:          RoleSender,
		Timestamp:     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestNormalizeForAppendDefaultsPayloadAndVersion(t *testing.T) {
	normalized, err := NormalizeForAppend(validEvent())
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if normalized.Payload == nil {
		t.Fatal("expected payload map to be initialised")
	}
	if normalized.SchemaVersion != SchemaVersion {
		t.Fatalf("schema version = %d, want %d", normalized.SchemaVersion, SchemaVersion)
	}
}

func TestNormalizeForAppendTrimsFields(t *testing.T) {
	evt := validEvent()
	evt.ShipmentID = "  SHP-0000000001  "
	evt.Type = " CREATED "
	normalized, err := NormalizeForAppend(evt)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if normalized.ShipmentID != "SHP-0000000001" {
		t.Fatalf("shipment id = %q, want trimmed", normalized.ShipmentID)
	}
	if normalized.Type != TypeCreated {
		t.Fatalf("type = %q, want %q", normalized.Type, TypeCreated)
	}
}

func TestNormalizeForAppendRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Event)
		code   apperrors.Code
	}{
		{"missing event id", func(e *Event) { e.EventID = "" }, apperrors.CodeEventInvalid},
		{"missing shipment id", func(e *Event) { e.ShipmentID = "" }, apperrors.CodeShipmentIDRequired},
		{"preassigned seq", func(e *Event) { e.Seq = 3 }, apperrors.CodeEventInvalid},
		{"preassigned hash", func(e *Event) { e.Hash = "abc" }, apperrors.CodeEventInvalid},
		{"unknown type", func(e *Event) { e.Type = "TELEPORTED" }, apperrors.CodeEventTypeInvalid},
		{"unknown role", func(e *Event) { e.Role = "INTERN" }, apperrors.CodeEventRoleInvalid},
		{"missing new state", func(e *Event) { e.NewState = "" }, apperrors.CodeEventInvalid},
		{"unknown previous state", func(e *Event) { e.PreviousState = "LIMBO" }, apperrors.CodeEventInvalid},
		{"non-created from initial", func(e *Event) {
			e.Type = TypeDispatched
			e.NewState = StateInTransit
		}, apperrors.CodeEventInvalid},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			evt := validEvent()
			tc.mutate(&evt)
			_, err := NormalizeForAppend(evt)
			if err == nil {
				t.Fatal("expected rejection")
			}
			if !errors.Is(err, apperrors.New(tc.code, "")) {
				t.Fatalf("error = %v, want code %s", err, tc.code)
			}
		})
	}
}
