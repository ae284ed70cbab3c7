// Package sqlite implements the storage interfaces on an embedded SQLite
// database, the pluggable durable log backend.
//
// The event table is append-only by construction: the store issues INSERTs
// only, sequences come from a per-shipment counter row updated in the same
// transaction, and a UNIQUE constraint on event_id turns replays into
// no-op lookups.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	apperrors "github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/platform/errors"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/platform/storage/sqlitemigrate"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/shipment/event"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/storage"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower/internal/storage/sqlite/migrations"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis reverses toMillis for persisted millisecond timestamps.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store provides a SQLite-backed store implementing storage.Store.
type Store struct {
	sqlDB *sql.DB

	// appendMu serializes appends; SQLite WAL permits one writer at a time
	// and serializing up front avoids busy retries under contention.
	appendMu sync.Mutex
}

// Open opens a SQLite event log at the provided path and applies embedded
// migrations before the store is handed to higher layers.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, apperrors.New(apperrors.CodeStorageFailure, "storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageFailure, "open sqlite db", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, apperrors.Wrap(apperrors.CodeStorageFailure, "ping sqlite db", err)
	}

	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.EventsFS, "events"); err != nil {
		_ = sqlDB.Close()
		return nil, apperrors.Wrap(apperrors.CodeStorageFailure, "run migrations", err)
	}

	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the underlying SQLite database.
//
// Close is intentionally nil-safe so callers can defer it in all startup paths.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// AppendEvent atomically appends an event and returns it with sequence,
// timestamp, and hash chain set.
func (s *Store) AppendEvent(ctx context.Context, evt event.Event, expectedSeq uint64) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if s == nil || s.sqlDB == nil {
		return event.Event{}, apperrors.New(apperrors.CodeStorageFailure, "storage is not configured")
	}

	normalized, err := event.NormalizeForAppend(evt)
	if err != nil {
		return event.Event{}, err
	}
	evt = normalized

	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return event.Event{}, apperrors.Wrap(apperrors.CodeStorageFailure, "begin tx", err)
	}
	defer tx.Rollback()

	if stored, err := s.eventByID(ctx, tx, evt.EventID); err == nil {
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
	} else if !errors.Is(err, storage.ErrNotFound) {
		return event.Event{}, err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO shipment_event_seq (shipment_id, next_seq) VALUES (?, 1)`,
		evt.ShipmentID); err != nil {
		return event.Event{}, apperrors.Wrap(apperrors.CodeStorageFailure, "init event seq", err)
	}

	var nextSeq int64
	if err := tx.QueryRowContext(ctx,
		`SELECT next_seq FROM shipment_event_seq WHERE shipment_id = ?`,
		evt.ShipmentID).Scan(&nextSeq); err != nil {
		return event.Event{}, apperrors.Wrap(apperrors.CodeStorageFailure, "get event seq", err)
	}

	tailSeq := uint64(nextSeq - 1)
	if tailSeq != expectedSeq {
		return event.Event{}, apperrors.WrapWithMetadata(apperrors.CodeConcurrentConflict,
			"event log tail advanced past expected sequence",
			map[string]string{
				"shipment_id":  evt.ShipmentID,
				"expected_seq": fmt.Sprintf("%d", expectedSeq),
				"tail_seq":     fmt.Sprintf("%d", tailSeq),
			}, storage.ErrConcurrentConflict)
	}
	evt.Seq = uint64(nextSeq)

	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	evt.Timestamp = evt.Timestamp.UTC().Truncate(time.Millisecond)

	prevHash := ""
	if evt.Seq > 1 {
		var prevChainHash string
		var prevTimestamp int64
		if err := tx.QueryRowContext(ctx,
			`SELECT chain_hash, timestamp FROM shipment_events WHERE shipment_id = ? AND seq = ?`,
			evt.ShipmentID, int64(evt.Seq-1)).Scan(&prevChainHash, &prevTimestamp); err != nil {
			return event.Event{}, apperrors.Wrap(apperrors.CodeStorageFailure, "load previous event", err)
		}
		prevHash = prevChainHash
		// Timestamps never run backwards within one shipment.
		if prev := fromMillis(prevTimestamp); evt.Timestamp.Before(prev) {
			evt.Timestamp = prev
		}
	}

	hash, err := event.EventHash(evt)
	if err != nil {
		return event.Event{}, apperrors.Wrap(apperrors.CodeStorageFailure, "compute event hash", err)
	}
	chainHash, err := event.ChainHash(evt, prevHash)
	if err != nil {
		return event.Event{}, apperrors.Wrap(apperrors.CodeStorageFailure, "compute chain hash", err)
	}
	evt.Hash = hash
	evt.PrevHash = prevHash
	evt.ChainHash = chainHash

	payloadJSON, err := encodePayload(evt.Payload)
	if err != nil {
		return event.Event{}, err
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO shipment_events (
    shipment_id, seq, event_id, event_type, previous_state, new_state,
    emitting_role, timestamp, payload_json, schema_version,
    event_hash, prev_event_hash, chain_hash
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		evt.ShipmentID, int64(evt.Seq), evt.EventID, string(evt.Type),
		string(evt.PreviousState), string(evt.NewState), string(evt.Role),
		toMillis(evt.Timestamp), payloadJSON, evt.SchemaVersion,
		evt.Hash, evt.PrevHash, evt.ChainHash,
	); err != nil {
		if isConstraintError(err) {
			stored, lookupErr := s.eventByID(ctx, tx, evt.EventID)
			if lookupErr == nil {
				return stored, nil
			}
		}
		return event.Event{}, apperrors.Wrap(apperrors.CodeStorageFailure, "append event", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE shipment_event_seq SET next_seq = next_seq + 1 WHERE shipment_id = ?`,
		evt.ShipmentID); err != nil {
		return event.Event{}, apperrors.Wrap(apperrors.CodeStorageFailure, "increment event seq", err)
	}

	if err := tx.Commit(); err != nil {
		return event.Event{}, apperrors.Wrap(apperrors.CodeStorageFailure, "commit", err)
	}
	return evt, nil
}

// ListEvents returns the shipment's events ordered by sequence ascending.
func (s *Store) ListEvents(ctx context.Context, shipmentID string) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		selectEventColumns+` WHERE shipment_id = ? ORDER BY seq ASC`, shipmentID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageFailure, "list events", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListAllEvents returns every event in the log ordered by shipment first
// appearance, then sequence.
func (s *Store) ListAllEvents(ctx context.Context) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		selectEventColumns+` ORDER BY rowid ASC`)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageFailure, "list all events", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// LatestSeq returns the highest sequence for a shipment, 0 when none exist.
func (s *Store) LatestSeq(ctx context.Context, shipmentID string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var latest int64
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM shipment_events WHERE shipment_id = ?`,
		shipmentID).Scan(&latest)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeStorageFailure, "latest seq", err)
	}
	return uint64(latest), nil
}

// ShipmentIDs returns the distinct shipment ids ordered by first appearance.
func (s *Store) ShipmentIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT shipment_id FROM shipment_events GROUP BY shipment_id ORDER BY MIN(rowid) ASC`)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageFailure, "list shipment ids", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeStorageFailure, "scan shipment id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageFailure, "read shipment ids", err)
	}
	return ids, nil
}

// CorruptRecords reports malformed entries skipped during reads. The SQLite
// schema enforces record structure, so this is always empty.
func (s *Store) CorruptRecords(ctx context.Context) ([]storage.CorruptRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, nil
}

// LastCounter returns the most recently issued counter value.
func (s *Store) LastCounter(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var last int64
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(counter), 0) FROM shipment_counter_log`).Scan(&last)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeStorageFailure, "last counter", err)
	}
	return uint64(last), nil
}

// AppendCounter durably records an identifier issuance.
func (s *Store) AppendCounter(ctx context.Context, entry storage.CounterEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO shipment_counter_log (counter, timestamp, action) VALUES (?, ?, ?)`,
		int64(entry.Counter), toMillis(entry.Timestamp), entry.Action)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStorageFailure, "append counter record", err)
	}
	return nil
}

func (s *Store) eventByID(ctx context.Context, tx *sql.Tx, eventID string) (event.Event, error) {
	row := tx.QueryRowContext(ctx,
		selectEventColumns+` WHERE event_id = ?`, eventID)
	evt, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return event.Event{}, storage.ErrNotFound
		}
		return event.Event{}, apperrors.Wrap(apperrors.CodeStorageFailure, "load event by id", err)
	}
	return evt, nil
}

func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
