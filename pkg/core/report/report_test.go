package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factorykiosk/attendance/pkg/core/reconcile"
)

func ms(day, hour, minute int) int64 {
	return time.Date(2025, 6, day, hour, minute, 0, 0, time.UTC).UnixMilli()
}

func ptr(v int64) *int64 { return &v }

func dayRecord(workerID int64, day int, mods ...func(*reconcile.DayRecord)) reconcile.DayRecord {
	rec := reconcile.DayRecord{
		WorkerID:        workerID,
		Date:            time.Date(2025, 6, day, 0, 0, 0, 0, time.UTC),
		InTs:            ptr(ms(day, 9, 0)),
		OutTs:           ptr(ms(day, 17, 0)),
		DurationMinutes: 480,
	}
	for _, mod := range mods {
		mod(&rec)
	}
	return rec
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00h 00m", FormatDuration(0))
	assert.Equal(t, "08h 00m", FormatDuration(480))
	assert.Equal(t, "15h 59m", FormatDuration(959))
	assert.Equal(t, "01h 05m", FormatDuration(65))
}

func TestBuildMonthlyPivot(t *testing.T) {
	records := []reconcile.DayRecord{
		dayRecord(1, 2),
		dayRecord(1, 3, func(r *reconcile.DayRecord) {
			r.IsLate = true
		}),
		dayRecord(2, 2, func(r *reconcile.DayRecord) {
			r.OutTs = nil
			r.DurationMinutes = 0
		}),
	}
	workers := []WorkerLabel{
		{ID: 2, Code: "EMP-002", Name: "Kiran"},
		{ID: 1, Code: "EMP-001", Name: "Pooja"},
	}

	pivot := BuildMonthlyPivot(records, workers, 2025, time.June, time.UTC)

	assert.Equal(t, 30, pivot.DaysInMonth)
	require.Len(t, pivot.Rows, 2)

	// Rows ordered by code regardless of input order
	assert.Equal(t, "EMP-001", pivot.Rows[0].Code)
	assert.Equal(t, "Pooja", pivot.Rows[0].Name)
	assert.Equal(t, "EMP-002", pivot.Rows[1].Code)

	assert.Equal(t, "09:00-17:00 (08h 00m)", pivot.Rows[0].Cells[1])
	assert.Equal(t, "09:00-17:00 (08h 00m) LATE", pivot.Rows[0].Cells[2])
	assert.Equal(t, "", pivot.Rows[0].Cells[0], "day without punches is empty")

	// OUT not yet recorded or synthesized displays as the -- convention
	assert.Equal(t, "09:00-- (00h 00m)", pivot.Rows[1].Cells[1])
}

func TestBuildMonthlyPivot_AutoOutCell(t *testing.T) {
	records := []reconcile.DayRecord{
		dayRecord(1, 5, func(r *reconcile.DayRecord) {
			r.OutTs = ptr(ms(5, 23, 59))
			r.MissingOut = true
			r.DurationMinutes = 899
			r.IsEarly = false
		}),
	}
	workers := []WorkerLabel{{ID: 1, Code: "EMP-001", Name: "Pooja"}}

	pivot := BuildMonthlyPivot(records, workers, 2025, time.June, time.UTC)
	assert.Equal(t, "09:00-23:59 (14h 59m) AUTO-OUT", pivot.Rows[0].Cells[4])
}

func TestBuildMonthlyTotals(t *testing.T) {
	records := []reconcile.DayRecord{
		dayRecord(1, 2),
		dayRecord(1, 3, func(r *reconcile.DayRecord) { r.IsLate = true }),
		dayRecord(1, 4, func(r *reconcile.DayRecord) {
			r.IsEarly = true
			r.DurationMinutes = 420
		}),
		dayRecord(1, 5, func(r *reconcile.DayRecord) {
			r.MissingOut = true
			r.DurationMinutes = 899
		}),
		// Orphan OUT days contribute nothing
		dayRecord(1, 6, func(r *reconcile.DayRecord) {
			r.InTs = nil
			r.OrphanOut = true
			r.DurationMinutes = 0
		}),
	}
	workers := []WorkerLabel{{ID: 1, Code: "EMP-001", Name: "Pooja"}}

	totals := BuildMonthlyTotals(records, workers, time.June)
	require.Len(t, totals, 1)

	row := totals[0]
	assert.Equal(t, "EMP-001", row.Code)
	assert.Equal(t, "June", row.MonthName)
	assert.Equal(t, int64(480+480+420+899), row.TotalMinutes)
	assert.Equal(t, 1, row.LateDays)
	assert.Equal(t, 1, row.EarlyDays)
	assert.Equal(t, 1, row.MissedOutDays)
}

func TestBuildFlatRows(t *testing.T) {
	records := []reconcile.DayRecord{
		dayRecord(2, 3),
		dayRecord(1, 2, func(r *reconcile.DayRecord) {
			r.OutTs = nil
			r.DurationMinutes = 0
		}),
		// Orphan skipped
		dayRecord(3, 2, func(r *reconcile.DayRecord) {
			r.InTs = nil
			r.OrphanOut = true
		}),
	}
	codes := map[int64]string{1: "EMP-001", 2: "EMP-002"}
	nameFor := func(workerID, atMillis int64) string {
		return map[int64]string{1: "Pooja", 2: "Kiran"}[workerID]
	}

	rows := BuildFlatRows(records, codes, nameFor, time.UTC)
	require.Len(t, rows, 2)

	// Ordered by date then name
	assert.Equal(t, "2025-06-02", rows[0].Date)
	assert.Equal(t, "Pooja", rows[0].Name)
	assert.Equal(t, "02/06/2025 09:00:00", rows[0].InTime)
	assert.Equal(t, "", rows[0].OutTime, "absent OUT is blank, never a placeholder")
	assert.Equal(t, "", rows[0].Duration)

	assert.Equal(t, "2025-06-03", rows[1].Date)
	assert.Equal(t, "Kiran", rows[1].Name)
	assert.Equal(t, "03/06/2025 17:00:00", rows[1].OutTime)
	assert.Equal(t, "08h 00m", rows[1].Duration)
}

func TestOrphanDays(t *testing.T) {
	records := []reconcile.DayRecord{
		dayRecord(1, 2),
		dayRecord(2, 2, func(r *reconcile.DayRecord) {
			r.InTs = nil
			r.OrphanOut = true
		}),
	}

	orphans := OrphanDays(records)
	require.Len(t, orphans, 1)
	assert.Equal(t, int64(2), orphans[0].WorkerID)
}
