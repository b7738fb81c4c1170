package store

import (
	"context"
	"fmt"
)

// WriteClass records a compile. Uses ON CONFLICT DO NOTHING for
// idempotency - writing the same (GUID, timestamp) twice keeps the first row.
func (s *Store) WriteClass(ctx context.Context, rec ClassRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO classes
		(guid, name, timestamp, fingerprint, ir_version, file, layout)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guid, timestamp) DO NOTHING
	`,
		rec.GUID.String(),
		rec.Name,
		rec.Timestamp,
		rec.Fingerprint,
		rec.IRVersion,
		rec.File,
		rec.Layout,
	)
	if err != nil {
		return fmt.Errorf("write class %s: %w", rec.Name, err)
	}
	return nil
}

// WriteRun records the start of a run. Frames is usually zero here and
// set by FinishRun.
func (s *Store) WriteRun(ctx context.Context, run RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, class_guid, class_name, frame_time_ns, frames, runtime_version)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.ClassGUID.String(),
		run.ClassName,
		run.FrameTime.Nanoseconds(),
		int64(run.Frames),
		run.RuntimeVersion,
	)
	if err != nil {
		return fmt.Errorf("write run %s: %w", run.ID, err)
	}
	return nil
}

// FinishRun stores the number of frames a run completed.
func (s *Store) FinishRun(ctx context.Context, runID string, frames uint64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE runs SET frames = ? WHERE id = ?`, int64(frames), runID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run %s: rows affected: %w", runID, err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrNotFound)
	}
	return nil
}

// WriteSignal appends one signal to its run's trace.
//
// Note: The run referenced by RunID must exist (foreign key constraint).
func (s *Store) WriteSignal(ctx context.Context, rec SignalRecord) error {
	return s.WriteSignals(ctx, []SignalRecord{rec})
}

// WriteSignals appends signals in one transaction. Either every record is
// written or none is.
func (s *Store) WriteSignals(ctx context.Context, recs []SignalRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write signals: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO signals
		(run_id, seq, frame, object_id, signal_guid, sender_guid, params, hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write signals: prepare: %w", err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		params, err := marshalParams(rec.Params)
		if err != nil {
			return fmt.Errorf("write signals: seq %d: %w", rec.Seq, err)
		}
		if _, err := stmt.ExecContext(ctx,
			rec.RunID,
			rec.Seq,
			int64(rec.Frame),
			rec.ObjectID,
			rec.Signal.String(),
			rec.Sender.String(),
			params,
			rec.Hash,
		); err != nil {
			return fmt.Errorf("write signals: seq %d: %w", rec.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write signals: commit: %w", err)
	}
	return nil
}
