package event

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gowebpki/jcs"
)

// hashEnvelope is the canonical field set covered by the content hash.
// Integrity fields are excluded; they are derived from this envelope.
type hashEnvelope struct {
	EventID       string            `json:"event_id"`
	ShipmentID    string            `json:"shipment_id"`
	Seq           uint64            `json:"event_seq"`
	Type          string            `json:"event_type"`
	PreviousState string            `json:"previous_state"`
	NewState      string            `json:"new_state"`
	Role          string            `json:"emitting_role"`
	Timestamp     string            `json:"timestamp"`
	Payload       map[string]string `json:"payload"`
	SchemaVersion int               `json:"schema_version"`
}

func canonicalEnvelope(evt Event) ([]byte, error) {
	env := hashEnvelope{
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
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal hash envelope: %w", err)
	}
	// RFC 8785 canonicalization keeps the hash stable across encoders.
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize hash envelope: %w", err)
	}
	return canonical, nil
}

// EventHash computes the content hash for a single event envelope
// (SHA-256 truncated to 128-bit, hex encoded).
func EventHash(evt Event) (string, error) {
	canonical, err := canonicalEnvelope(evt)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:16]), nil
}

// ChainHash computes the SHA-256 hash that links an event to its predecessor.
// The previous event's chain hash is mixed in so any rewrite of history
// invalidates every later link.
func ChainHash(evt Event, prevHash string) (string, error) {
	canonical, err := canonicalEnvelope(evt)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(prevHash))
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}
