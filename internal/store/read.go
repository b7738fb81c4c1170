package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/graphscript/internal/ir"
)

type rowScanner interface {
	Scan(dest ...any) error
}

const classColumns = `c.guid, c.name, c.timestamp, c.fingerprint, c.ir_version, c.file, c.layout`

// ReadClass returns the most recent compile of the class guid.
// Returns ErrNotFound if the class was never recorded.
func (s *Store) ReadClass(ctx context.Context, guid ir.GUID) (ClassRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+classColumns+`
		FROM classes c
		WHERE c.guid = ?
		ORDER BY c.timestamp DESC
		LIMIT 1
	`, guid.String())
	rec, err := scanClass(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ClassRecord{}, fmt.Errorf("read class %s: %w", guid, ErrNotFound)
	}
	if err != nil {
		return ClassRecord{}, fmt.Errorf("read class %s: %w", guid, err)
	}
	return rec, nil
}

// ListClasses returns the most recent compile of every recorded class,
// ordered by name.
//
// Returns an empty slice (not nil) if nothing was recorded.
func (s *Store) ListClasses(ctx context.Context) ([]ClassRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+classColumns+`
		FROM classes c
		JOIN (SELECT guid, MAX(timestamp) AS ts FROM classes GROUP BY guid) latest
		  ON c.guid = latest.guid AND c.timestamp = latest.ts
		ORDER BY c.name COLLATE BINARY ASC, c.guid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	defer rows.Close()

	classes := []ClassRecord{}
	for rows.Next() {
		rec, err := scanClass(rows)
		if err != nil {
			return nil, fmt.Errorf("list classes: %w", err)
		}
		classes = append(classes, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate classes: %w", err)
	}
	return classes, nil
}

// LatestFingerprint returns the layout fingerprint of the most recent
// compile of guid. ok is false when the class was never recorded.
func (s *Store) LatestFingerprint(ctx context.Context, guid ir.GUID) (fingerprint string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT fingerprint FROM classes WHERE guid = ? ORDER BY timestamp DESC LIMIT 1
	`, guid.String()).Scan(&fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("latest fingerprint %s: %w", guid, err)
	}
	return fingerprint, true, nil
}

// LatestTimestamp returns the largest class timestamp recorded, or zero
// for an empty store. A new process resumes its class clock from it.
func (s *Store) LatestTimestamp(ctx context.Context) (int64, error) {
	var ts sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(timestamp) FROM classes`).Scan(&ts); err != nil {
		return 0, fmt.Errorf("latest timestamp: %w", err)
	}
	return ts.Int64, nil
}

func scanClass(row rowScanner) (ClassRecord, error) {
	var rec ClassRecord
	var guid string
	if err := row.Scan(&guid, &rec.Name, &rec.Timestamp, &rec.Fingerprint, &rec.IRVersion, &rec.File, &rec.Layout); err != nil {
		return ClassRecord{}, err
	}
	id, err := parseGUID("guid", guid)
	if err != nil {
		return ClassRecord{}, err
	}
	rec.GUID = id
	return rec, nil
}

// ReadRun returns the run with id. Returns ErrNotFound for unknown ids.
func (s *Store) ReadRun(ctx context.Context, id string) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, class_guid, class_name, frame_time_ns, frames, runtime_version
		FROM runs WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("read run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns every run ordered by id. UUIDv7 run ids sort by start
// time.
func (s *Store) ListRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, class_guid, class_name, frame_time_ns, frames, runtime_version
		FROM runs ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func scanRun(row rowScanner) (RunRecord, error) {
	var run RunRecord
	var guid string
	var frameTime, frames int64
	if err := row.Scan(&run.ID, &guid, &run.ClassName, &frameTime, &frames, &run.RuntimeVersion); err != nil {
		return RunRecord{}, err
	}
	id, err := parseGUID("class_guid", guid)
	if err != nil {
		return RunRecord{}, err
	}
	run.ClassGUID = id
	run.FrameTime = time.Duration(frameTime)
	run.Frames = uint64(frames)
	return run, nil
}

// ReadSignals returns the trace of a run ordered by seq.
//
// Returns an empty slice (not nil) if the run recorded no signals.
func (s *Store) ReadSignals(ctx context.Context, runID string) ([]SignalRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, frame, object_id, signal_guid, sender_guid, params, hash
		FROM signals
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	signals := []SignalRecord{}
	for rows.Next() {
		rec, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		signals = append(signals, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signals: %w", err)
	}
	return signals, nil
}

func scanSignal(row rowScanner) (SignalRecord, error) {
	var rec SignalRecord
	var frame int64
	var signal, sender, params string
	if err := row.Scan(&rec.RunID, &rec.Seq, &frame, &rec.ObjectID, &signal, &sender, &params, &rec.Hash); err != nil {
		return SignalRecord{}, fmt.Errorf("scan signal: %w", err)
	}
	rec.Frame = uint64(frame)

	var err error
	if rec.Signal, err = parseGUID("signal_guid", signal); err != nil {
		return SignalRecord{}, fmt.Errorf("scan signal %d: %w", rec.Seq, err)
	}
	if rec.Sender, err = parseGUID("sender_guid", sender); err != nil {
		return SignalRecord{}, fmt.Errorf("scan signal %d: %w", rec.Seq, err)
	}
	if rec.Params, err = unmarshalParams(params); err != nil {
		return SignalRecord{}, fmt.Errorf("scan signal %d: %w", rec.Seq, err)
	}
	return rec, nil
}
