package db

import "strings"

// PunchType is the direction of a punch event
type PunchType string

const (
	PunchIn  PunchType = "IN"
	PunchOut PunchType = "OUT"
)

// Worker represents a registered worker identified by a stable card UID
type Worker struct {
	ID      int64
	Code    string
	CardUID string

	// LegacyDisplayName is the name column on the worker row itself.
	// It is only consulted when a worker has no assignment rows.
	LegacyDisplayName string
}

// Assignment binds a display name to a worker over a half-open time interval.
// EndTs is nil while the assignment is active.
type Assignment struct {
	ID          int64
	WorkerID    int64
	DisplayName string
	StartTs     int64
	EndTs       *int64
}

// Punch represents a single IN or OUT event
type Punch struct {
	ID        int64
	WorkerID  int64
	Type      PunchType
	Timestamp int64
	PhotoPath *string
}

// AuditEntry records a manual or administrative mutation alongside the ledger
type AuditEntry struct {
	ID        int64
	EventType string
	WorkerID  *int64
	Details   string
	Timestamp int64
}

// AutoOut describes a synthetic OUT punch to be persisted by the catch-up pass
type AutoOut struct {
	WorkerID  int64
	Timestamp int64
	Note      string
}

// WorkerSeed is a roster entry for idempotent bulk loading
type WorkerSeed struct {
	ID      int64
	Code    string
	Name    string
	CardUID string
}

// Activity is a punch joined with the display name shown on the admin feed
type Activity struct {
	DisplayName string
	Type        PunchType
	Timestamp   int64
}

// NormalizeCardUID strips every non-digit character from a raw card scan.
// Both registration and lookup normalize through this, so a card registered
// with noise characters still matches a clean scan and vice versa.
func NormalizeCardUID(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
