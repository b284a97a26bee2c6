package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/factorykiosk/attendance/pkg/db"
)

// mockIdentity implements a test double for db.IdentityStore
type mockIdentity struct {
	workers []db.Worker
	names   map[int64]string
}

func (m *mockIdentity) LookupByCardUID(ctx context.Context, uid string) (*db.Worker, error) {
	normalized := db.NormalizeCardUID(uid)
	for _, w := range m.workers {
		if w.CardUID == normalized {
			copy := w
			return &copy, nil
		}
	}
	return nil, fmt.Errorf("no worker for card %s: %w", normalized, db.ErrNotFound)
}

func (m *mockIdentity) ActiveDisplayName(ctx context.Context, workerID, atMillis int64) (string, error) {
	if name, ok := m.names[workerID]; ok {
		return name, nil
	}
	for _, w := range m.workers {
		if w.ID == workerID {
			return w.LegacyDisplayName, nil
		}
	}
	return "", fmt.Errorf("worker %d: %w", workerID, db.ErrNotFound)
}

func (m *mockIdentity) RegisterOrReassign(ctx context.Context, code, displayName, cardUID string, nowMillis int64) (int64, error) {
	if strings.TrimSpace(code) == "" || strings.TrimSpace(displayName) == "" || db.NormalizeCardUID(cardUID) == "" {
		return 0, db.ErrValidation
	}
	id := int64(len(m.workers) + 1)
	m.workers = append(m.workers, db.Worker{
		ID: id, Code: code, LegacyDisplayName: displayName, CardUID: db.NormalizeCardUID(cardUID),
	})
	return id, nil
}

func (m *mockIdentity) SeedWorkers(ctx context.Context, seeds []db.WorkerSeed) error {
	for _, s := range seeds {
		m.workers = append(m.workers, db.Worker{
			ID: s.ID, Code: s.Code, LegacyDisplayName: s.Name, CardUID: db.NormalizeCardUID(s.CardUID),
		})
	}
	return nil
}

func (m *mockIdentity) ListWorkers(ctx context.Context) ([]db.Worker, error) {
	workers := make([]db.Worker, len(m.workers))
	copy(workers, m.workers)
	sort.Slice(workers, func(i, j int) bool { return workers[i].Code < workers[j].Code })
	return workers, nil
}

func (m *mockIdentity) AssignmentsFor(ctx context.Context, workerID int64) ([]db.Assignment, error) {
	return nil, nil
}

// mockLedger implements a test double for db.PunchLedger
type mockLedger struct {
	punches       []db.Punch
	audits        []db.AuditEntry
	nextID        int64
	autoOutCalls  int
	recordErr     error
	rangeErr      error
	attachedPaths map[int64]string
}

func (m *mockLedger) RecordPunch(ctx context.Context, workerID int64, typ db.PunchType, tsMillis int64) (int64, error) {
	if m.recordErr != nil {
		return 0, m.recordErr
	}
	m.nextID++
	m.punches = append(m.punches, db.Punch{ID: m.nextID, WorkerID: workerID, Type: typ, Timestamp: tsMillis})
	return m.nextID, nil
}

func (m *mockLedger) RecordManualPunch(ctx context.Context, workerID int64, typ db.PunchType, tsMillis int64, reason string) (int64, error) {
	if strings.TrimSpace(reason) == "" {
		return 0, db.ErrValidation
	}
	id, err := m.RecordPunch(ctx, workerID, typ, tsMillis)
	if err != nil {
		return 0, err
	}
	m.audits = append(m.audits, db.AuditEntry{
		ID: id, EventType: "MANUAL_" + string(typ), WorkerID: &workerID, Details: reason, Timestamp: tsMillis,
	})
	return id, nil
}

func (m *mockLedger) RecordAutoOuts(ctx context.Context, outs []db.AutoOut) error {
	m.autoOutCalls++
	for _, out := range outs {
		m.nextID++
		m.punches = append(m.punches, db.Punch{ID: m.nextID, WorkerID: out.WorkerID, Type: db.PunchOut, Timestamp: out.Timestamp})
		workerID := out.WorkerID
		m.audits = append(m.audits, db.AuditEntry{
			ID: m.nextID, EventType: "AUTO_OUT", WorkerID: &workerID, Details: out.Note, Timestamp: out.Timestamp,
		})
	}
	return nil
}

func (m *mockLedger) AttachPhoto(ctx context.Context, punchID int64, path string) error {
	if m.attachedPaths == nil {
		m.attachedPaths = make(map[int64]string)
	}
	for _, p := range m.punches {
		if p.ID == punchID {
			if _, done := m.attachedPaths[punchID]; !done {
				m.attachedPaths[punchID] = path
			}
			return nil
		}
	}
	return db.ErrNotFound
}

func (m *mockLedger) LastPunch(ctx context.Context, workerID int64) (*db.Punch, error) {
	var last *db.Punch
	for i := range m.punches {
		p := &m.punches[i]
		if p.WorkerID != workerID {
			continue
		}
		if last == nil || p.Timestamp > last.Timestamp || (p.Timestamp == last.Timestamp && p.ID > last.ID) {
			last = p
		}
	}
	if last == nil {
		return nil, nil
	}
	copy := *last
	return &copy, nil
}

func (m *mockLedger) PunchesInRange(ctx context.Context, startMillis, endMillis int64) ([]db.Punch, error) {
	if m.rangeErr != nil {
		return nil, m.rangeErr
	}
	var out []db.Punch
	for _, p := range m.punches {
		if p.Timestamp >= startMillis && p.Timestamp < endMillis {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *mockLedger) RecentActivity(ctx context.Context, limit int) ([]db.Activity, error) {
	var feed []db.Activity
	for i := len(m.punches) - 1; i >= 0 && len(feed) < limit; i-- {
		feed = append(feed, db.Activity{DisplayName: "Worker", Type: m.punches[i].Type, Timestamp: m.punches[i].Timestamp})
	}
	return feed, nil
}

func (m *mockLedger) AuditEntries(ctx context.Context, limit int) ([]db.AuditEntry, error) {
	var out []db.AuditEntry
	for i := len(m.audits) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.audits[i])
	}
	return out, nil
}
