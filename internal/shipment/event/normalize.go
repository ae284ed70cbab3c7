package event

import (
	"fmt"
	"strings"

	apperrors "github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/platform/errors"
)

// NormalizeForAppend validates and normalizes an event before storage assigns
// sequencing and integrity fields.
func NormalizeForAppend(evt Event) (Event, error) {
	evt.EventID = strings.TrimSpace(evt.EventID)
	if evt.EventID == "" {
		return Event{}, apperrors.New(apperrors.CodeEventInvalid, "event id is required")
	}
	evt.ShipmentID = strings.TrimSpace(evt.ShipmentID)
	if evt.ShipmentID == "" {
		return Event{}, apperrors.New(apperrors.CodeShipmentIDRequired, "shipment id is required")
	}
	if evt.Seq != 0 {
		return Event{}, apperrors.New(apperrors.CodeEventInvalid, "event sequence must be assigned by storage")
	}
	if strings.TrimSpace(evt.Hash) != "" || strings.TrimSpace(evt.PrevHash) != "" || strings.TrimSpace(evt.ChainHash) != "" {
		return Event{}, apperrors.New(apperrors.CodeEventInvalid, "event integrity fields must be assigned by storage")
	}

	evt.Type = Type(strings.TrimSpace(string(evt.Type)))
	if !evt.Type.IsValid() {
		return Event{}, apperrors.New(apperrors.CodeEventTypeInvalid,
			fmt.Sprintf("event type %q is not in the canonical catalog", evt.Type))
	}

	evt.Role = Role(strings.TrimSpace(string(evt.Role)))
	if !evt.Role.IsValid() {
		return Event{}, apperrors.New(apperrors.CodeEventRoleInvalid,
			fmt.Sprintf("role %q is not a known role", evt.Role))
	}

	evt.PreviousState = State(strings.TrimSpace(string(evt.PreviousState)))
	evt.NewState = State(strings.TrimSpace(string(evt.NewState)))
	if !evt.NewState.IsValid() {
		return Event{}, apperrors.New(apperrors.CodeEventInvalid, "new state is required")
	}
	if evt.PreviousState != StateInitial && !evt.PreviousState.IsValid() {
		return Event{}, apperrors.New(apperrors.CodeEventInvalid, "previous state is not a known state")
	}
	if evt.PreviousState == StateInitial && evt.Type != TypeCreated {
		return Event{}, apperrors.New(apperrors.CodeEventInvalid, "only CREATED may enter from the initial state")
	}

	if evt.Payload == nil {
		evt.Payload = map[string]string{}
	}
	if evt.SchemaVersion == 0 {
		evt.SchemaVersion = SchemaVersion
	}
	if evt.SchemaVersion < 0 {
		return Event{}, apperrors.New(apperrors.CodeEventInvalid, "schema version must be positive")
	}

	return evt, nil
}
