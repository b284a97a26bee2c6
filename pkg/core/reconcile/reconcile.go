// Package reconcile turns the raw IN/OUT punch stream into per-day records.
// The engine is pure: it owns no persistent state and never mutates the
// ledger. Persisting synthetic OUT punches is the catch-up service's job.
package reconcile

import (
	"sort"
	"time"

	"github.com/factorykiosk/attendance/pkg/db"
)

// Synthetic OUT punches land at 23:59:00 local on the affected day. An OUT
// at exactly that instant is also how a persisted auto-out is recognized on
// later runs.
const (
	autoOutHour   = 23
	autoOutMinute = 59
)

// DayRecord is the reconciled view of one worker on one local calendar day
type DayRecord struct {
	WorkerID int64

	// Date is local midnight of the calendar day
	Date time.Time

	InTs  *int64
	OutTs *int64

	// MissingOut marks a day whose OUT was synthesized, either by this run
	// or by an earlier persisted catch-up pass
	MissingOut bool

	// SyntheticOut is set only when this run invented the OUT; the day has
	// no real OUT punch yet and is a candidate for the catch-up pass
	SyntheticOut bool

	// OrphanOut marks a day with an OUT but no IN. Such days cannot be
	// attributed a duration and are excluded from reports, but they are
	// surfaced here rather than dropped so callers can flag them.
	OrphanOut bool

	DurationMinutes int64
	IsLate          bool
	IsEarly         bool
}

// Engine computes DayRecords for a punch window against a shift policy.
// Calendar days are derived in Location, never UTC.
type Engine struct {
	Policy   Policy
	Location *time.Location

	// Now is the clock used to decide which days are concluded; tests
	// substitute a fixed instant
	Now func() time.Time
}

// NewEngine creates an engine with the real clock
func NewEngine(policy Policy, loc *time.Location) *Engine {
	return &Engine{Policy: policy, Location: loc, Now: time.Now}
}

type dayKey struct {
	workerID int64
	date     string
}

// BuildDayRecords groups punches by worker and local calendar date and
// reduces each group to one record. Within a group the earliest IN and the
// latest OUT win, which absorbs duplicate and noisy scans.
func (e *Engine) BuildDayRecords(punches []db.Punch) []DayRecord {
	groups := make(map[dayKey]*DayRecord)
	var order []dayKey

	for _, p := range punches {
		local := time.UnixMilli(p.Timestamp).In(e.Location)
		key := dayKey{workerID: p.WorkerID, date: local.Format("2006-01-02")}

		rec, ok := groups[key]
		if !ok {
			rec = &DayRecord{
				WorkerID: p.WorkerID,
				Date:     time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, e.Location),
			}
			groups[key] = rec
			order = append(order, key)
		}

		ts := p.Timestamp
		switch p.Type {
		case db.PunchIn:
			if rec.InTs == nil || ts < *rec.InTs {
				v := ts
				rec.InTs = &v
			}
		case db.PunchOut:
			if rec.OutTs == nil || ts > *rec.OutTs {
				v := ts
				rec.OutTs = &v
			}
		}
	}

	today := e.localMidnight(e.Now())

	records := make([]DayRecord, 0, len(groups))
	for _, key := range order {
		rec := groups[key]
		e.finish(rec, today)
		records = append(records, *rec)
	}

	sort.Slice(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date) {
			return records[i].Date.Before(records[j].Date)
		}
		return records[i].WorkerID < records[j].WorkerID
	})

	return records
}

// finish derives the synthetic OUT and the classification flags for a record
func (e *Engine) finish(rec *DayRecord, today time.Time) {
	if rec.InTs == nil {
		rec.OrphanOut = rec.OutTs != nil
		return
	}

	if rec.OutTs == nil {
		// Only concluded days get a synthetic OUT; the worker may still be
		// on-site today.
		if rec.Date.Before(today) {
			synth := time.Date(rec.Date.Year(), rec.Date.Month(), rec.Date.Day(),
				autoOutHour, autoOutMinute, 0, 0, e.Location).UnixMilli()
			rec.OutTs = &synth
			rec.MissingOut = true
			rec.SyntheticOut = true
		}
	} else if e.isAutoOutInstant(*rec.OutTs) {
		// A persisted catch-up punch; keep counting the day as missed-out.
		rec.MissingOut = true
	}

	if rec.OutTs != nil && *rec.OutTs > *rec.InTs {
		rec.DurationMinutes = (*rec.OutTs - *rec.InTs) / 60000
	}

	rec.IsLate = e.secondsOfDay(*rec.InTs) > e.Policy.LateThresholdMinutes()*60
	if rec.OutTs != nil {
		rec.IsEarly = e.secondsOfDay(*rec.OutTs) < e.Policy.ShiftEndMinutes*60
	}
}

// PendingAutoOuts extracts the synthetic OUTs of this run as ledger inserts
// for the catch-up pass. Days that already carry a real OUT punch, auto or
// not, never reappear here, which makes the pass idempotent.
func (e *Engine) PendingAutoOuts(records []DayRecord) []db.AutoOut {
	var outs []db.AutoOut
	for _, rec := range records {
		if !rec.SyntheticOut || rec.OutTs == nil {
			continue
		}
		outs = append(outs, db.AutoOut{
			WorkerID:  rec.WorkerID,
			Timestamp: *rec.OutTs,
			Note:      "auto OUT 23:59 for " + rec.Date.Format("2006-01-02"),
		})
	}
	return outs
}

func (e *Engine) localMidnight(t time.Time) time.Time {
	local := t.In(e.Location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, e.Location)
}

func (e *Engine) secondsOfDay(tsMillis int64) int {
	local := time.UnixMilli(tsMillis).In(e.Location)
	return local.Hour()*3600 + local.Minute()*60 + local.Second()
}

func (e *Engine) isAutoOutInstant(tsMillis int64) bool {
	local := time.UnixMilli(tsMillis).In(e.Location)
	return local.Hour() == autoOutHour && local.Minute() == autoOutMinute &&
		local.Second() == 0 && local.Nanosecond() == 0
}
