package db

import "context"

// IdentityStore defines the interface for worker and assignment operations
type IdentityStore interface {
	// LookupByCardUID normalizes uid to digits and returns the matching
	// worker, or ErrNotFound when no card matches.
	LookupByCardUID(ctx context.Context, uid string) (*Worker, error)

	// ActiveDisplayName returns the display name from the assignment whose
	// interval contains atMillis, falling back to the worker's legacy name
	// column when no assignment rows exist.
	ActiveDisplayName(ctx context.Context, workerID, atMillis int64) (string, error)

	// RegisterOrReassign upserts a worker by card UID (falling back to a
	// code match) and atomically rolls the assignment chain forward.
	RegisterOrReassign(ctx context.Context, code, displayName, cardUID string, nowMillis int64) (int64, error)

	// SeedWorkers inserts roster entries, skipping ids that already exist
	SeedWorkers(ctx context.Context, seeds []WorkerSeed) error

	// ListWorkers returns all workers ordered by code
	ListWorkers(ctx context.Context) ([]Worker, error)

	// AssignmentsFor returns a worker's assignment chain ordered by start
	AssignmentsFor(ctx context.Context, workerID int64) ([]Assignment, error)
}

// PunchLedger defines the interface for punch and audit operations
type PunchLedger interface {
	// RecordPunch appends a kiosk punch; no audit entry is written
	RecordPunch(ctx context.Context, workerID int64, typ PunchType, tsMillis int64) (int64, error)

	// RecordManualPunch appends an administrative punch together with a
	// MANUAL_<TYPE> audit entry in one transaction; reason is mandatory
	RecordManualPunch(ctx context.Context, workerID int64, typ PunchType, tsMillis int64, reason string) (int64, error)

	// RecordAutoOuts persists synthetic OUT punches plus AUTO_OUT audit
	// entries in a single transaction
	RecordAutoOuts(ctx context.Context, outs []AutoOut) error

	// AttachPhoto sets a punch's photo path at most once. A missing punch
	// reports ErrNotFound; an already-set path is left untouched.
	AttachPhoto(ctx context.Context, punchID int64, path string) error

	// LastPunch returns the worker's most recent punch, or nil when the
	// worker has never punched
	LastPunch(ctx context.Context, workerID int64) (*Punch, error)

	// PunchesInRange returns punches with start <= timestamp < end,
	// ordered by timestamp then insertion id
	PunchesInRange(ctx context.Context, startMillis, endMillis int64) ([]Punch, error)

	// RecentActivity returns the newest punches first, joined with names
	RecentActivity(ctx context.Context, limit int) ([]Activity, error)

	// AuditEntries returns the newest audit rows first
	AuditEntries(ctx context.Context, limit int) ([]AuditEntry, error)
}
