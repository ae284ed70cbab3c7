package sqlite

import (
	"database/sql"
	"encoding/json"

	apperrors "github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/platform/errors"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/shipment/event"
)

const selectEventColumns = `
SELECT shipment_id, seq, event_id, event_type, previous_state, new_state,
       emitting_role, timestamp, payload_json, schema_version,
       event_hash, prev_event_hash, chain_hash
FROM shipment_events`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (event.Event, error) {
	var (
		evt           event.Event
		seq           int64
		eventType     string
		previousState string
		newState      string
		role          string
		timestamp     int64
		payloadJSON   string
	)
	err := row.Scan(
		&evt.ShipmentID, &seq, &evt.EventID, &eventType, &previousState, &newState,
		&role, &timestamp, &payloadJSON, &evt.SchemaVersion,
		&evt.Hash, &evt.PrevHash, &evt.ChainHash,
	)
	if err != nil {
		return event.Event{}, err
	}

	evt.Seq = uint64(seq)
	evt.Type = event.Type(eventType)
	evt.PreviousState = event.State(previousState)
	evt.NewState = event.State(newState)
	evt.Role = event.Role(role)
	evt.Timestamp = fromMillis(timestamp)
	payload, err := decodePayload(payloadJSON)
	if err != nil {
		return event.Event{}, err
	}
	evt.Payload = payload
	return evt, nil
}

func scanEvents(rows *sql.Rows) ([]event.Event, error) {
	var events []event.Event
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeStorageFailure, "scan event", err)
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageFailure, "read events", err)
	}
	return events, nil
}

func encodePayload(payload map[string]string) (string, error) {
	if payload == nil {
		payload = map[string]string{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeStorageFailure, "encode payload", err)
	}
	return string(raw), nil
}

func decodePayload(raw string) (map[string]string, error) {
	payload := map[string]string{}
	if raw == "" {
		return payload, nil
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageFailure, "decode payload", err)
	}
	return payload, nil
}
