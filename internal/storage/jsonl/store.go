// Package jsonl implements the storage interfaces on newline-delimited JSON
// append-only files, the local durable log format.
//
// One self-contained UTF-8 record per line; records are never edited,
// deleted, or reordered. An in-memory index is rebuilt from the log on open
// so reads never touch the file, and every append is fsynced before success
// is reported.
package jsonl

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	apperrors "github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/platform/errors"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/shipment/event"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/storage"
)

const (
	eventsFileName  = "shipments.jsonl"
	counterFileName = "shipment_counter.jsonl"
)

// Option configures store behavior.
type Option func(*Store)

// WithStrictReads makes the store fail on malformed log lines instead of
// skipping and reporting them.
func WithStrictReads(strict bool) Option {
	return func(s *Store) {
		s.strict = strict
	}
}

// Store is a JSONL-file-backed implementation of storage.Store.
type Store struct {
	dir    string
	strict bool

	mu          sync.RWMutex
	eventsFile  *os.File
	counterFile *os.File
	byShipment  map[string][]event.Event
	byEventID   map[string]event.Event
	order       []string
	all         []event.Event
	corrupt     []storage.CorruptRecord
	lastCounter uint64
}

// Open opens (creating if needed) the append logs under dir and rebuilds the
// in-memory index.
func Open(dir string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, apperrors.New(apperrors.CodeStorageFailure, "storage directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageFailure, "create storage directory", err)
	}

	s := &Store{
		dir:        dir,
		byShipment: map[string][]event.Event{},
		byEventID:  map[string]event.Event{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	if err := s.loadEvents(); err != nil {
		return nil, err
	}
	if err := s.loadCounter(); err != nil {
		return nil, err
	}

	eventsFile, err := os.OpenFile(filepath.Join(dir, eventsFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageFailure, "open event log for append", err)
	}
	counterFile, err := os.OpenFile(filepath.Join(dir, counterFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		_ = eventsFile.Close()
		return nil, apperrors.Wrap(apperrors.CodeStorageFailure, "open counter log for append", err)
	}
	s.eventsFile = eventsFile
	s.counterFile = counterFile
	return s, nil
}

func (s *Store) loadEvents() error {
	path := filepath.Join(s.dir, eventsFileName)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return apperrors.Wrap(apperrors.CodeStorageFailure, "open event log", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var rec eventRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			if recordErr := s.recordCorrupt(path, line, err.Error()); recordErr != nil {
				return recordErr
			}
			continue
		}
		evt, err := rec.toEvent()
		if err != nil {
			if recordErr := s.recordCorrupt(path, line, err.Error()); recordErr != nil {
				return recordErr
			}
			continue
		}
		s.indexEvent(evt)
	}
	if err := scanner.Err(); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageFailure, "scan event log", err)
	}
	return nil
}

func (s *Store) loadCounter() error {
	path := filepath.Join(s.dir, counterFileName)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return apperrors.Wrap(apperrors.CodeStorageFailure, "open counter log", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var rec counterRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			if recordErr := s.recordCorrupt(path, line, err.Error()); recordErr != nil {
				return recordErr
			}
			continue
		}
		if rec.Counter > s.lastCounter {
			s.lastCounter = rec.Counter
		}
	}
	if err := scanner.Err(); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageFailure, "scan counter log", err)
	}
	return nil
}

func (s *Store) recordCorrupt(source string, line int, detail string) error {
	if s.strict {
		return apperrors.WithMetadata(apperrors.CodeCorruptRecord,
			fmt.Sprintf("malformed record at %s:%d", source, line),
			map[string]string{"source": source, "detail": detail})
	}
	s.corrupt = append(s.corrupt, storage.CorruptRecord{Source: source, Line: line, Detail: detail})
	return nil
}

func (s *Store) indexEvent(evt event.Event) {
	if _, seen := s.byShipment[evt.ShipmentID]; !seen {
		s.order = append(s.order, evt.ShipmentID)
	}
	s.byShipment[evt.ShipmentID] = append(s.byShipment[evt.ShipmentID], evt)
	s.byEventID[evt.EventID] = evt
	s.all = append(s.all, evt)
}

// AppendEvent atomically appends an event and returns it with sequence,
// timestamp, and hash chain set.
func (s *Store) AppendEvent(ctx context.Context, evt event.Event, expectedSeq uint64) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if s == nil || s.eventsFile == nil {
		return event.Event{}, apperrors.New(apperrors.CodeStorageFailure, "storage is not configured")
	}

	normalized, err := event.NormalizeForAppend(evt)
	if err != nil {
		return event.Event{}, err
	}
	evt = normalized

	s.mu.Lock()
	defer s.mu.Unlock()

	if stored, ok := s.byEventID[evt.EventID]; ok {
		// Replaying the same event is a no-op; reusing its id for another
		// shipment is not.
		if stored.ShipmentID != evt.ShipmentID {
			return event.Event{}, apperrors.WithMetadata(apperrors.CodeDuplicateEvent,
				"event id already recorded for another shipment",
				map[string]string{
					"event_id":    evt.EventID,
					"shipment_id": stored.ShipmentID,
				})
		}
		return stored, nil
	}

	tail := s.byShipment[evt.ShipmentID]
	var tailSeq uint64
	if len(tail) > 0 {
		tailSeq = tail[len(tail)-1].Seq
	}
	if tailSeq != expectedSeq {
		return event.Event{}, apperrors.WrapWithMetadata(apperrors.CodeConcurrentConflict,
			"event log tail advanced past expected sequence",
			map[string]string{
				"shipment_id":  evt.ShipmentID,
				"expected_seq": fmt.Sprintf("%d", expectedSeq),
				"tail_seq":     fmt.Sprintf("%d", tailSeq),
			}, storage.ErrConcurrentConflict)
	}

	evt.Seq = tailSeq + 1
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	evt.Timestamp = evt.Timestamp.UTC().Truncate(time.Millisecond)
	// Timestamps never run backwards within one shipment; append order is
	// the time order of record.
	if len(tail) > 0 && evt.Timestamp.Before(tail[len(tail)-1].Timestamp) {
		evt.Timestamp = tail[len(tail)-1].Timestamp
	}

	hash, err := event.EventHash(evt)
	if err != nil {
		return event.Event{}, apperrors.Wrap(apperrors.CodeStorageFailure, "compute event hash", err)
	}
	prevHash := ""
	if len(tail) > 0 {
		prevHash = tail[len(tail)-1].ChainHash
	}
	chainHash, err := event.ChainHash(evt, prevHash)
	if err != nil {
		return event.Event{}, apperrors.Wrap(apperrors.CodeStorageFailure, "compute chain hash", err)
	}
	evt.Hash = hash
	evt.PrevHash = prevHash
	evt.ChainHash = chainHash

	raw, err := json.Marshal(fromEvent(evt))
	if err != nil {
		return event.Event{}, apperrors.Wrap(apperrors.CodeStorageFailure, "encode event record", err)
	}
	if _, err := s.eventsFile.Write(append(raw, '\n')); err != nil {
		return event.Event{}, apperrors.Wrap(apperrors.CodeStorageFailure, "append event record", err)
	}
	if err := s.eventsFile.Sync(); err != nil {
		return event.Event{}, apperrors.Wrap(apperrors.CodeStorageFailure, "sync event log", err)
	}

	s.indexEvent(evt)
	return evt, nil
}

// ListEvents returns the shipment's events ordered by sequence ascending.
func (s *Store) ListEvents(ctx context.Context, shipmentID string) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := s.byShipment[shipmentID]
	out := make([]event.Event, len(events))
	copy(out, events)
	return out, nil
}

// ListAllEvents returns every event in the log in append order.
func (s *Store) ListAllEvents(ctx context.Context) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]event.Event, len(s.all))
	copy(out, s.all)
	return out, nil
}

// LatestSeq returns the highest sequence for a shipment, 0 when none exist.
func (s *Store) LatestSeq(ctx context.Context, shipmentID string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := s.byShipment[shipmentID]
	if len(events) == 0 {
		return 0, nil
	}
	return events[len(events)-1].Seq, nil
}

// ShipmentIDs returns the distinct shipment ids ordered by first appearance.
func (s *Store) ShipmentIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out, nil
}

// CorruptRecords reports malformed lines skipped while loading the logs.
func (s *Store) CorruptRecords(ctx context.Context) ([]storage.CorruptRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]storage.CorruptRecord, len(s.corrupt))
	copy(out, s.corrupt)
	return out, nil
}

// LastCounter returns the most recently issued counter value.
func (s *Store) LastCounter(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastCounter, nil
}

// AppendCounter durably records an identifier issuance.
func (s *Store) AppendCounter(ctx context.Context, entry storage.CounterEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.counterFile == nil {
		return apperrors.New(apperrors.CodeStorageFailure, "storage is not configured")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := counterRecord{
		Counter:   entry.Counter,
		Timestamp: entry.Timestamp.UTC().Truncate(time.Millisecond).Format(time.RFC3339Nano),
		Action:    entry.Action,
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStorageFailure, "encode counter record", err)
	}
	if _, err := s.counterFile.Write(append(raw, '\n')); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageFailure, "append counter record", err)
	}
	if err := s.counterFile.Sync(); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageFailure, "sync counter log", err)
	}
	if entry.Counter > s.lastCounter {
		s.lastCounter = entry.Counter
	}
	return nil
}

// Close closes the underlying append handles.
//
// Close is intentionally nil-safe so callers can defer it in all startup paths.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	if s.eventsFile != nil {
		if err := s.eventsFile.Close(); err != nil {
			firstErr = err
		}
		s.eventsFile = nil
	}
	if s.counterFile != nil {
		if err := s.counterFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.counterFile = nil
	}
	return firstErr
}
