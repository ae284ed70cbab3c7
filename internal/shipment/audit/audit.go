// Package audit replays the full event log and checks every structural
// invariant the write path promises: contiguous sequences, monotonic
// timestamps, legal transitions, authorized roles, and an intact hash chain.
//
// The verifier never stops at the first problem. It walks the whole log and
// reports everything it finds, so a single corrupt record does not mask
// later damage.
package audit

import (
	"context"
	"fmt"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/shipment/authority"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/shipment/event"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/shipment/lifecycle"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/storage"
)

// Check identifies the invariant a finding violated.
type Check string

const (
	CheckSequence   Check = "SEQUENCE_GAP"
	CheckTimestamp  Check = "TIMESTAMP_REGRESSION"
	CheckOrigin     Check = "INVALID_ORIGIN"
	CheckEdge       Check = "INVALID_TRANSITION"
	CheckContinuity Check = "STATE_DISCONTINUITY"
	CheckAuthority  Check = "UNAUTHORIZED_ROLE"
	CheckEventHash  Check = "EVENT_HASH_MISMATCH"
	CheckChainHash  Check = "CHAIN_HASH_MISMATCH"
	CheckRecord     Check = "CORRUPT_RECORD"
)

// Finding is a single invariant violation located in the log.
type Finding struct {
	ShipmentID string
	Seq        uint64
	EventID    string
	Check      Check
	Detail     string
}

// Report is the outcome of a full-log verification pass.
type Report struct {
	Shipments      int
	EventsChecked  int
	CorruptRecords int
	Findings       []Finding
}

// OK reports whether the log passed every check.
func (r Report) OK() bool {
	return len(r.Findings) == 0 && r.CorruptRecords == 0
}

// String renders a one-line result suitable for log output.
func (r Report) String() string {
	if r.OK() {
		return fmt.Sprintf("audit ok: %d shipments, %d events", r.Shipments, r.EventsChecked)
	}
	return fmt.Sprintf("audit failed: %d shipments, %d events, %d findings, %d corrupt records",
		r.Shipments, r.EventsChecked, len(r.Findings), r.CorruptRecords)
}

// Summary aggregates log totals with the integrity outcome, the shape
// reported by the audit tooling.
type Summary struct {
	Shipments      int
	Events         int
	ByState        map[event.State]int
	Closed         int
	IntegrityOK    bool
	Findings       int
	CorruptRecords int
}

// Verifier checks an event store against the lifecycle invariants.
type Verifier struct {
	store storage.EventStore
}

// NewVerifier returns a verifier over the provided event store.
func NewVerifier(store storage.EventStore) *Verifier {
	return &Verifier{store: store}
}

// Verify checks every shipment in the store and returns the findings.
func (v *Verifier) Verify(ctx context.Context) (Report, error) {
	var report Report

	corrupt, err := v.store.CorruptRecords(ctx)
	if err != nil {
		return Report{}, err
	}
	report.CorruptRecords = len(corrupt)
	for _, record := range corrupt {
		report.Findings = append(report.Findings, Finding{
			Check:  CheckRecord,
			Detail: fmt.Sprintf("%s line %d: %s", record.Source, record.Line, record.Detail),
		})
	}

	ids, err := v.store.ShipmentIDs(ctx)
	if err != nil {
		return Report{}, err
	}
	report.Shipments = len(ids)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}
		events, err := v.store.ListEvents(ctx, id)
		if err != nil {
			return Report{}, err
		}
		report.EventsChecked += len(events)
		report.Findings = append(report.Findings, verifyShipment(id, events)...)
	}
	return report, nil
}

// VerifyShipment checks a single shipment's event history.
func (v *Verifier) VerifyShipment(ctx context.Context, shipmentID string) (Report, error) {
	events, err := v.store.ListEvents(ctx, shipmentID)
	if err != nil {
		return Report{}, err
	}
	report := Report{Shipments: 1, EventsChecked: len(events)}
	report.Findings = verifyShipment(shipmentID, events)
	return report, nil
}

func verifyShipment(shipmentID string, events []event.Event) []Finding {
	var findings []Finding
	add := func(evt event.Event, check Check, format string, args ...any) {
		findings = append(findings, Finding{
			ShipmentID: shipmentID,
			Seq:        evt.Seq,
			EventID:    evt.EventID,
			Check:      check,
			Detail:     fmt.Sprintf(format, args...),
		})
	}

	prevHash := ""
	for i, evt := range events {
		wantSeq := uint64(i + 1)
		if evt.Seq != wantSeq {
			add(evt, CheckSequence, "seq = %d, want %d", evt.Seq, wantSeq)
		}

		if i == 0 {
			if evt.Type != event.TypeCreated || evt.PreviousState != event.StateInitial {
				add(evt, CheckOrigin, "history opens with %s from %q, want %s from the initial state",
					evt.Type, evt.PreviousState, event.TypeCreated)
			}
		} else {
			prev := events[i-1]
			if evt.Timestamp.Before(prev.Timestamp) {
				add(evt, CheckTimestamp, "timestamp %s precedes previous event at %s",
					evt.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
					prev.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"))
			}
			if evt.PreviousState != prev.NewState {
				add(evt, CheckContinuity, "previous_state = %s, want %s recorded by seq %d",
					evt.PreviousState, prev.NewState, prev.Seq)
			}
		}

		if target, ok := lifecycle.Allowed(evt.PreviousState, evt.Type); !ok {
			add(evt, CheckEdge, "%s is not a legal event from %s", evt.Type, stateLabel(evt.PreviousState))
		} else if target != evt.NewState {
			add(evt, CheckEdge, "%s from %s records new_state %s, want %s",
				evt.Type, stateLabel(evt.PreviousState), evt.NewState, target)
		}

		if !authority.IsPermitted(evt.PreviousState, evt.Role, evt.Type) {
			add(evt, CheckAuthority, "role %s may not emit %s from %s",
				evt.Role, evt.Type, stateLabel(evt.PreviousState))
		}

		if hash, err := event.EventHash(evt); err != nil {
			add(evt, CheckEventHash, "hash recompute failed: %v", err)
		} else if hash != evt.Hash {
			add(evt, CheckEventHash, "event hash = %s, recomputed %s", evt.Hash, hash)
		}
		if evt.PrevHash != prevHash {
			add(evt, CheckChainHash, "prev_event_hash = %s, want %s", evt.PrevHash, prevHash)
		}
		if chain, err := event.ChainHash(evt, prevHash); err != nil {
			add(evt, CheckChainHash, "chain recompute failed: %v", err)
		} else if chain != evt.ChainHash {
			add(evt, CheckChainHash, "chain hash = %s, recomputed %s", evt.ChainHash, chain)
		}
		prevHash = evt.ChainHash
	}
	return findings
}

func stateLabel(state event.State) string {
	if state == event.StateInitial {
		return "the initial state"
	}
	return string(state)
}
