package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/factorykiosk/attendance/pkg/db"
)

// RecordPunch appends a kiosk-originated punch. The only validation is that
// the worker row exists; debounce and next-type logic live with the caller.
func (s *Store) RecordPunch(ctx context.Context, workerID int64, typ db.PunchType, tsMillis int64) (int64, error) {
	var punchID int64
	err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
		id, err := insertPunch(ctx, tx, workerID, typ, tsMillis)
		if err != nil {
			return err
		}
		punchID = id
		return nil
	})
	if err != nil {
		return 0, err
	}
	return punchID, nil
}

// RecordManualPunch appends an administrative punch and its MANUAL_<TYPE>
// audit entry in one transaction. The reason is mandatory and persisted as
// the audit details.
func (s *Store) RecordManualPunch(ctx context.Context, workerID int64, typ db.PunchType, tsMillis int64, reason string) (int64, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return 0, fmt.Errorf("manual punch reason is required: %w", db.ErrValidation)
	}

	var punchID int64
	err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
		id, err := insertPunch(ctx, tx, workerID, typ, tsMillis)
		if err != nil {
			return err
		}
		punchID = id

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO audit_log (event_type, worker_id, details, timestamp)
			VALUES (?, ?, ?, ?)
		`, "MANUAL_"+string(typ), workerID, reason, tsMillis); err != nil {
			return fmt.Errorf("failed to insert audit entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return punchID, nil
}

// RecordAutoOuts persists synthetic OUT punches from the catch-up pass, each
// with an AUTO_OUT audit entry, all in a single transaction.
func (s *Store) RecordAutoOuts(ctx context.Context, outs []db.AutoOut) error {
	if len(outs) == 0 {
		return nil
	}

	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		for _, out := range outs {
			if _, err := insertPunch(ctx, tx, out.WorkerID, db.PunchOut, out.Timestamp); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO audit_log (event_type, worker_id, details, timestamp)
				VALUES (?, ?, ?, ?)
			`, "AUTO_OUT", out.WorkerID, out.Note, out.Timestamp); err != nil {
				return fmt.Errorf("failed to insert auto-out audit entry: %w", err)
			}
		}
		return nil
	})
}

func insertPunch(ctx context.Context, tx *sql.Tx, workerID int64, typ db.PunchType, tsMillis int64) (int64, error) {
	var exists int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM workers WHERE id = ?`, workerID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("worker %d: %w", workerID, db.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to check worker: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO punches (worker_id, type, timestamp) VALUES (?, ?, ?)
	`, workerID, string(typ), tsMillis)
	if err != nil {
		return 0, fmt.Errorf("failed to insert punch: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read punch id: %w", err)
	}
	return id, nil
}

// AttachPhoto sets the photo path on a punch after asynchronous capture
// completes. The path is written at most once: a punch that already has a
// photo keeps it. A missing punch reports ErrNotFound so the caller can
// treat it as non-fatal.
func (s *Store) AttachPhoto(ctx context.Context, punchID int64, path string) error {
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE punches SET photo_path = ? WHERE id = ? AND photo_path IS NULL
		`, path, punchID)
		if err != nil {
			return fmt.Errorf("failed to attach photo: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if affected > 0 {
			return nil
		}

		var exists int
		err = tx.QueryRowContext(ctx, `SELECT 1 FROM punches WHERE id = ?`, punchID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("punch %d: %w", punchID, db.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to check punch: %w", err)
		}
		// Photo already attached; first write wins.
		return nil
	})
}

// LastPunch returns the worker's most recent punch by timestamp (insertion
// id breaks ties), or nil when the worker has never punched.
func (s *Store) LastPunch(ctx context.Context, workerID int64) (*db.Punch, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, worker_id, type, timestamp, photo_path
		FROM punches
		WHERE worker_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`, workerID)

	p, err := scanPunch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last punch: %w", err)
	}
	return p, nil
}

// PunchesInRange returns all punches with start <= timestamp < end, ordered
// by timestamp then insertion id.
func (s *Store) PunchesInRange(ctx context.Context, startMillis, endMillis int64) ([]db.Punch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, worker_id, type, timestamp, photo_path
		FROM punches
		WHERE timestamp >= ? AND timestamp < ?
		ORDER BY timestamp, id
	`, startMillis, endMillis)
	if err != nil {
		return nil, fmt.Errorf("failed to query punches: %w", err)
	}
	defer rows.Close()

	var punches []db.Punch
	for rows.Next() {
		p, err := scanPunch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan punch: %w", err)
		}
		punches = append(punches, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating punches: %w", err)
	}

	return punches, nil
}

// RecentActivity returns the newest punches first with the display name from
// the worker row, for the admin panel feed.
func (s *Store) RecentActivity(ctx context.Context, limit int) ([]db.Activity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(w.display_name, 'Unknown'), p.type, p.timestamp
		FROM punches p
		LEFT JOIN workers w ON w.id = p.worker_id
		ORDER BY p.timestamp DESC, p.id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent activity: %w", err)
	}
	defer rows.Close()

	var feed []db.Activity
	for rows.Next() {
		var a db.Activity
		var typ string
		if err := rows.Scan(&a.DisplayName, &typ, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		a.Type = db.PunchType(typ)
		feed = append(feed, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity: %w", err)
	}

	return feed, nil
}

// AuditEntries returns the newest audit rows first
func (s *Store) AuditEntries(ctx context.Context, limit int) ([]db.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_type, worker_id, details, timestamp
		FROM audit_log
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []db.AuditEntry
	for rows.Next() {
		var e db.AuditEntry
		var workerID sql.NullInt64
		if err := rows.Scan(&e.ID, &e.EventType, &workerID, &e.Details, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if workerID.Valid {
			e.WorkerID = &workerID.Int64
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log: %w", err)
	}

	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPunch(row rowScanner) (*db.Punch, error) {
	var p db.Punch
	var typ string
	var photo sql.NullString
	if err := row.Scan(&p.ID, &p.WorkerID, &typ, &p.Timestamp, &photo); err != nil {
		return nil, err
	}
	p.Type = db.PunchType(typ)
	if photo.Valid {
		p.PhotoPath = &photo.String
	}
	return &p, nil
}
