// Package storage defines the persistence boundary for the shipment engine.
//
// The event store is the single source of truth: an append-only sequence of
// immutable records, one log per deployment. Implementations must be
// interchangeable (local durable append file, embedded SQLite log) so the
// validator and projector stay storage-agnostic.
package storage

import (
	"context"
	"time"

	apperrors "github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/platform/errors"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/shipment/event"
)

// ErrNotFound indicates a requested persistence record is missing.
// Callers use this to differentiate between legitimate "no such shipment"
// states and storage failures.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// ErrConcurrentConflict indicates an append lost a race: the log tail moved
// past the sequence the caller last observed. The caller should re-read the
// projection and retry.
var ErrConcurrentConflict = apperrors.New(apperrors.CodeConcurrentConflict, "event log tail advanced past expected sequence")

// CorruptRecord describes a malformed log entry skipped during a read.
type CorruptRecord struct {
	// Source identifies where the record came from (file path or table).
	Source string
	// Line is the 1-based position of the record in its source.
	Line int
	// Detail explains why the record could not be decoded.
	Detail string
}

// CounterEntry is one issuance record in the identifier counter log.
type CounterEntry struct {
	Counter   uint64
	Timestamp time.Time
	Action    string
}

// CounterActionIssued marks an identifier issuance record.
const CounterActionIssued = "ID_GENERATED"

// EventStore owns the append-only shipment event log.
//
// Append is the only mutation primitive; no update or delete operation
// exists anywhere on this interface.
type EventStore interface {
	// AppendEvent atomically appends an event and returns it with sequence,
	// timestamp, and hash chain set. expectedSeq is the highest sequence the
	// caller observed for the shipment (0 when it expects none); when the log
	// tail no longer matches, the append fails with ErrConcurrentConflict and
	// has no effect. Re-appending an event id already in the log is a no-op
	// that returns the stored record.
	AppendEvent(ctx context.Context, evt event.Event, expectedSeq uint64) (event.Event, error)
	// ListEvents returns the shipment's events ordered by sequence ascending.
	ListEvents(ctx context.Context, shipmentID string) ([]event.Event, error)
	// ListAllEvents returns every event in the log in append order.
	ListAllEvents(ctx context.Context) ([]event.Event, error)
	// LatestSeq returns the highest sequence for a shipment, 0 when none exist.
	LatestSeq(ctx context.Context, shipmentID string) (uint64, error)
	// ShipmentIDs returns the distinct shipment ids present in the log,
	// ordered by first appearance.
	ShipmentIDs(ctx context.Context) ([]string, error)
	// CorruptRecords reports malformed entries skipped during reads.
	CorruptRecords(ctx context.Context) ([]CorruptRecord, error)
	Close() error
}

// CounterLog owns the append-only identifier issuance log backing the
// shipment identifier generator.
type CounterLog interface {
	// LastCounter returns the most recently issued counter value, 0 when the
	// log is empty.
	LastCounter(ctx context.Context) (uint64, error)
	// AppendCounter durably records an issuance before the identifier is
	// handed out.
	AppendCounter(ctx context.Context, entry CounterEntry) error
	Close() error
}

// Store is the composite interface a deployment opens once and shares.
type Store interface {
	EventStore
	CounterLog
}
