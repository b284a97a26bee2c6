package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/factorykiosk/attendance/pkg/db"
)

// LookupByCardUID retrieves the worker registered with the given card UID.
// The raw scan is normalized to digits before comparison.
func (s *Store) LookupByCardUID(ctx context.Context, uid string) (*db.Worker, error) {
	normalized := db.NormalizeCardUID(uid)
	if normalized == "" {
		return nil, fmt.Errorf("card uid %q has no digits: %w", uid, db.ErrValidation)
	}

	var w db.Worker
	err := s.db.QueryRowContext(ctx, `
		SELECT id, code, display_name, card_uid
		FROM workers
		WHERE card_uid = ?
	`, normalized).Scan(&w.ID, &w.Code, &w.LegacyDisplayName, &w.CardUID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no worker for card %s: %w", normalized, db.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query worker by card uid: %w", err)
	}

	return &w, nil
}

// ActiveDisplayName returns the display name in effect for the worker at the
// given instant. Precedence is explicit: the most recently started assignment
// whose interval contains the instant wins; only when the worker has no
// assignment rows at all does the legacy name column on the worker apply.
func (s *Store) ActiveDisplayName(ctx context.Context, workerID, atMillis int64) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `
		SELECT display_name
		FROM assignments
		WHERE worker_id = ? AND start_ts <= ? AND (end_ts IS NULL OR end_ts > ?)
		ORDER BY start_ts DESC
		LIMIT 1
	`, workerID, atMillis, atMillis).Scan(&name)
	if err == nil {
		return name, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("failed to query assignments: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT display_name FROM workers WHERE id = ?
	`, workerID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("worker %d: %w", workerID, db.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to query worker name: %w", err)
	}
	return name, nil
}

// RegisterOrReassign upserts a worker and rolls its assignment chain forward
// in one transaction. Resolution precedence: a card UID match is updated in
// place; failing that, a code match gets the new card UID; failing both, a new
// worker row is inserted. The previous open assignment (if any) is closed at
// nowMillis and a new open assignment is created with the given display name.
func (s *Store) RegisterOrReassign(ctx context.Context, code, displayName, cardUID string, nowMillis int64) (int64, error) {
	code = strings.TrimSpace(code)
	displayName = strings.TrimSpace(displayName)
	normalized := db.NormalizeCardUID(cardUID)

	if code == "" || displayName == "" || normalized == "" {
		return 0, fmt.Errorf("code, display name and card uid are all required: %w", db.ErrValidation)
	}

	var workerID int64
	err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
		id, err := resolveWorker(ctx, tx, code, displayName, normalized)
		if err != nil {
			return err
		}
		workerID = id

		if _, err := tx.ExecContext(ctx, `
			UPDATE assignments SET end_ts = ? WHERE worker_id = ? AND end_ts IS NULL
		`, nowMillis, workerID); err != nil {
			return fmt.Errorf("failed to close open assignment: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO assignments (worker_id, display_name, start_ts, end_ts)
			VALUES (?, ?, ?, NULL)
		`, workerID, displayName, nowMillis); err != nil {
			return fmt.Errorf("failed to open new assignment: %w", err)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return workerID, nil
}

// resolveWorker finds or creates the worker row for a registration. This is
// the explicit resolution chain: UID match, then code match, then insert.
func resolveWorker(ctx context.Context, tx *sql.Tx, code, displayName, cardUID string) (int64, error) {
	byUID, err := workerIDWhere(ctx, tx, "card_uid = ?", cardUID)
	if err != nil {
		return 0, err
	}
	byCode, err := workerIDWhere(ctx, tx, "code = ?", code)
	if err != nil {
		return 0, err
	}

	switch {
	case byUID != 0:
		if byCode != 0 && byCode != byUID {
			return 0, fmt.Errorf("code %s already belongs to another worker: %w", code, db.ErrConflict)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE workers SET code = ?, display_name = ? WHERE id = ?
		`, code, displayName, byUID); err != nil {
			return 0, fmt.Errorf("failed to update worker by card uid: %w", err)
		}
		return byUID, nil

	case byCode != 0:
		if _, err := tx.ExecContext(ctx, `
			UPDATE workers SET card_uid = ?, display_name = ? WHERE id = ?
		`, cardUID, displayName, byCode); err != nil {
			return 0, fmt.Errorf("failed to update worker by code: %w", err)
		}
		return byCode, nil

	default:
		res, err := tx.ExecContext(ctx, `
			INSERT INTO workers (code, display_name, card_uid) VALUES (?, ?, ?)
		`, code, displayName, cardUID)
		if err != nil {
			return 0, fmt.Errorf("failed to insert worker: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil || id == 0 {
			return 0, fmt.Errorf("worker resolution produced no row: %w", db.ErrConflict)
		}
		return id, nil
	}
}

func workerIDWhere(ctx context.Context, tx *sql.Tx, cond string, arg any) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM workers WHERE `+cond, arg).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve worker: %w", err)
	}
	return id, nil
}

// SeedWorkers loads a roster of workers, skipping rows whose id already
// exists. Safe to run on every startup. Seeded workers carry their name in
// the legacy column only; an assignment chain starts on first reassignment.
func (s *Store) SeedWorkers(ctx context.Context, seeds []db.WorkerSeed) error {
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		for _, seed := range seeds {
			uid := db.NormalizeCardUID(seed.CardUID)
			if seed.Code == "" || seed.Name == "" || uid == "" {
				return fmt.Errorf("seed entry %q is incomplete: %w", seed.Code, db.ErrValidation)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO workers (id, code, display_name, card_uid)
				VALUES (?, ?, ?, ?)
			`, seed.ID, seed.Code, seed.Name, uid); err != nil {
				return fmt.Errorf("failed to seed worker %s: %w", seed.Code, err)
			}
		}
		return nil
	})
}

// ListWorkers returns all workers ordered by code
func (s *Store) ListWorkers(ctx context.Context) ([]db.Worker, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, code, display_name, card_uid FROM workers ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query workers: %w", err)
	}
	defer rows.Close()

	var workers []db.Worker
	for rows.Next() {
		var w db.Worker
		if err := rows.Scan(&w.ID, &w.Code, &w.LegacyDisplayName, &w.CardUID); err != nil {
			return nil, fmt.Errorf("failed to scan worker: %w", err)
		}
		workers = append(workers, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workers: %w", err)
	}

	return workers, nil
}

// AssignmentsFor returns the worker's assignment chain ordered by start time
func (s *Store) AssignmentsFor(ctx context.Context, workerID int64) ([]db.Assignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, worker_id, display_name, start_ts, end_ts
		FROM assignments
		WHERE worker_id = ?
		ORDER BY start_ts, id
	`, workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var assignments []db.Assignment
	for rows.Next() {
		var a db.Assignment
		var endTs sql.NullInt64
		if err := rows.Scan(&a.ID, &a.WorkerID, &a.DisplayName, &a.StartTs, &endTs); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		if endTs.Valid {
			a.EndTs = &endTs.Int64
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignments: %w", err)
	}

	return assignments, nil
}
