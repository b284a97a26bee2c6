// Package report projects reconciled day records into the monthly pivot,
// the monthly totals summary and the flat per-day summary. Builders are
// pure; callers supply the worker labels and the records.
package report

import (
	"sort"
	"strings"
	"time"

	"github.com/factorykiosk/attendance/pkg/core/reconcile"
)

// WorkerLabel identifies a report row. Name is the display name the caller
// resolved for the report period (for the monthly shapes: the assignment
// active at the start of the month, a single label per row even if the
// worker was reassigned mid-month).
type WorkerLabel struct {
	ID   int64
	Code string
	Name string
}

// PivotRow is one worker's row in the monthly pivot
type PivotRow struct {
	Code string
	Name string

	// Cells holds one formatted cell per day of month, index 0 = day 1
	Cells []string
}

// Pivot is the monthly pivot: workers down, days across
type Pivot struct {
	Year        int
	Month       time.Month
	DaysInMonth int
	Rows        []PivotRow
}

// TotalsRow is one worker's monthly totals summary
type TotalsRow struct {
	Code          string
	Name          string
	MonthName     string
	TotalMinutes  int64
	LateDays      int
	EarlyDays     int
	MissedOutDays int
}

// FlatRow is one (worker, day) line of the flat summary. Absent values are
// empty strings, never zeros or dashes.
type FlatRow struct {
	Name     string
	Code     string
	Date     string
	InTime   string
	OutTime  string
	Duration string
}

// BuildMonthlyPivot lays out one row per worker ordered by code and one
// column per day of the month. A day without an IN renders as an empty cell.
func BuildMonthlyPivot(records []reconcile.DayRecord, workers []WorkerLabel, year int, month time.Month, loc *time.Location) Pivot {
	days := daysInMonth(year, month)
	byWorkerDay := indexRecords(records)

	sorted := sortedByCode(workers)
	rows := make([]PivotRow, 0, len(sorted))
	for _, w := range sorted {
		row := PivotRow{Code: w.Code, Name: w.Name, Cells: make([]string, days)}
		for day := 1; day <= days; day++ {
			if rec, ok := byWorkerDay[recKey{w.ID, day}]; ok {
				row.Cells[day-1] = pivotCell(rec, loc)
			}
		}
		rows = append(rows, row)
	}

	return Pivot{Year: year, Month: month, DaysInMonth: days, Rows: rows}
}

// pivotCell renders "{in}-{out} ({duration})" with flag suffixes. An OUT not
// yet recorded or synthesized displays as "--", a convention distinct from
// the flat summary's blank.
func pivotCell(rec reconcile.DayRecord, loc *time.Location) string {
	if rec.InTs == nil {
		return ""
	}

	out := "-"
	if rec.OutTs != nil {
		out = FormatClock(*rec.OutTs, loc)
	}

	var b strings.Builder
	b.WriteString(FormatClock(*rec.InTs, loc))
	b.WriteString("-")
	b.WriteString(out)
	b.WriteString(" (")
	b.WriteString(FormatDuration(rec.DurationMinutes))
	b.WriteString(")")
	if rec.IsLate {
		b.WriteString(" LATE")
	}
	if rec.IsEarly {
		b.WriteString(" EARLY")
	}
	if rec.MissingOut {
		b.WriteString(" AUTO-OUT")
	}
	return b.String()
}

// BuildMonthlyTotals sums each worker's month: worked minutes, late days,
// early days and missed-out days. Rows are ordered by code.
func BuildMonthlyTotals(records []reconcile.DayRecord, workers []WorkerLabel, month time.Month) []TotalsRow {
	perWorker := make(map[int64]*TotalsRow)

	sorted := sortedByCode(workers)
	rows := make([]*TotalsRow, 0, len(sorted))
	for _, w := range sorted {
		row := &TotalsRow{Code: w.Code, Name: w.Name, MonthName: month.String()}
		perWorker[w.ID] = row
		rows = append(rows, row)
	}

	for _, rec := range records {
		row, ok := perWorker[rec.WorkerID]
		if !ok || rec.OrphanOut {
			continue
		}
		row.TotalMinutes += rec.DurationMinutes
		if rec.IsLate {
			row.LateDays++
		}
		if rec.IsEarly {
			row.EarlyDays++
		}
		if rec.MissingOut {
			row.MissedOutDays++
		}
	}

	out := make([]TotalsRow, len(rows))
	for i, r := range rows {
		out[i] = *r
	}
	return out
}

// BuildFlatRows renders one line per (worker, day) for an ad hoc range.
// nameFor resolves the display name active at a given instant; orphan days
// are skipped here, the caller decides how loudly to flag them.
func BuildFlatRows(records []reconcile.DayRecord, codes map[int64]string, nameFor func(workerID, atMillis int64) string, loc *time.Location) []FlatRow {
	rows := make([]FlatRow, 0, len(records))
	for _, rec := range records {
		if rec.InTs == nil {
			continue
		}

		row := FlatRow{
			Code:   codes[rec.WorkerID],
			Name:   nameFor(rec.WorkerID, *rec.InTs),
			Date:   rec.Date.Format("2006-01-02"),
			InTime: FormatDateTime(*rec.InTs, loc),
		}
		if rec.OutTs != nil {
			row.OutTime = FormatDateTime(*rec.OutTs, loc)
			if rec.DurationMinutes > 0 || *rec.OutTs > *rec.InTs {
				row.Duration = FormatDuration(rec.DurationMinutes)
			}
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date < rows[j].Date
		}
		if rows[i].Name != rows[j].Name {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].Code < rows[j].Code
	})

	return rows
}

// OrphanDays returns the records carrying an OUT with no IN so callers can
// surface them instead of silently dropping them.
func OrphanDays(records []reconcile.DayRecord) []reconcile.DayRecord {
	var orphans []reconcile.DayRecord
	for _, rec := range records {
		if rec.OrphanOut {
			orphans = append(orphans, rec)
		}
	}
	return orphans
}

type recKey struct {
	workerID int64
	day      int
}

func indexRecords(records []reconcile.DayRecord) map[recKey]reconcile.DayRecord {
	idx := make(map[recKey]reconcile.DayRecord, len(records))
	for _, rec := range records {
		idx[recKey{rec.WorkerID, rec.Date.Day()}] = rec
	}
	return idx
}

func sortedByCode(workers []WorkerLabel) []WorkerLabel {
	sorted := make([]WorkerLabel, len(workers))
	copy(sorted, workers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Code < sorted[j].Code })
	return sorted
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
