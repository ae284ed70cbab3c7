package jsonl

import (
	"fmt"
	"time"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/shipment/event"
)

// eventRecord is the wire form of one event log line.
type eventRecord struct {
	EventID       string            `json:"event_id"`
	ShipmentID    string            `json:"shipment_id"`
	Seq           uint64            `json:"event_seq"`
	Type          string            `json:"event_type"`
	PreviousState string            `json:"previous_state"`
	NewState      string            `json:"new_state"`
	Role          string            `json:"emitting_role"`
	Timestamp     string            `json:"timestamp"`
	Payload       map[string]string `json:"payload,omitempty"`
	SchemaVersion int               `json:"schema_version"`
	Hash          string            `json:"event_hash"`
	PrevHash      string            `json:"prev_event_hash,omitempty"`
	ChainHash     string            `json:"chain_hash"`
}

// counterRecord is the wire form of one counter log line.
type counterRecord struct {
	Counter   uint64 `json:"counter"`
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"`
}

func fromEvent(evt event.Event) eventRecord {
	return eventRecord{
		EventID:       evt.EventID,
		ShipmentID:    evt.ShipmentID,
		Seq:           evt.Seq,
		Type:          string(evt.Type),
		PreviousState: string(evt.PreviousState),
		NewState:      string(evt.NewState),
		Role:          string(evt.Role),
		Timestamp:     evt.Timestamp.UTC().Format(time.RFC3339Nano),
		Payload:       evt.Payload,
		SchemaVersion: evt.SchemaVersion,
		Hash:          evt.Hash,
		PrevHash:      evt.PrevHash,
		ChainHash:     evt.ChainHash,
	}
}

func (r eventRecord) toEvent() (event.Event, error) {
	if r.EventID == "" {
		return event.Event{}, fmt.Errorf("record is missing event_id")
	}
	if r.ShipmentID == "" {
		return event.Event{}, fmt.Errorf("record is missing shipment_id")
	}
	if r.Seq == 0 {
		return event.Event{}, fmt.Errorf("record is missing event_seq")
	}
	ts, err := time.Parse(time.RFC3339Nano, r.Timestamp)
	if err != nil {
		return event.Event{}, fmt.Errorf("parse timestamp: %w", err)
	}
	payload := r.Payload
	if payload == nil {
		payload = map[string]string{}
	}
	return event.Event{
		EventID:       r.EventID,
		ShipmentID:    r.ShipmentID,
		Seq:           r.Seq,
		Type:          event.Type(r.Type),
		PreviousState: event.State(r.PreviousState),
		NewState:      event.State(r.NewState),
		Role:          event.Role(r.Role),
		Timestamp:     ts.UTC(),
		Payload:       payload,
		SchemaVersion: r.SchemaVersion,
		Hash:          r.Hash,
		PrevHash:      r.PrevHash,
		ChainHash:     r.ChainHash,
	}, nil
}
