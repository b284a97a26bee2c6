package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/factorykiosk/attendance/pkg/core/reconcile"
	"github.com/factorykiosk/attendance/pkg/core/report"
	"github.com/factorykiosk/attendance/pkg/db"
)

const (
	pivotSheet  = "Monthly Pivot"
	totalsSheet = "Monthly Totals"
)

// MonthlyReport bundles the two monthly shapes for rendering
type MonthlyReport struct {
	Pivot  report.Pivot
	Totals []report.TotalsRow
}

// BuildMonthlyReport reconciles one calendar month and aggregates it into
// the pivot and totals shapes. The row label is the assignment active at the
// start of the month, one label per row even if the worker was reassigned
// mid-month.
func BuildMonthlyReport(ctx context.Context, identity db.IdentityStore, ledger db.PunchLedger, engine *reconcile.Engine, logger *zap.Logger, year int, month time.Month) (*MonthlyReport, error) {
	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, engine.Location)
	monthEnd := monthStart.AddDate(0, 1, 0)

	punches, err := ledger.PunchesInRange(ctx, monthStart.UnixMilli(), monthEnd.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to load punches: %w", err)
	}

	records := engine.BuildDayRecords(punches)

	if orphans := report.OrphanDays(records); len(orphans) > 0 {
		logger.Warn("Month contains OUT-only days excluded from the report",
			zap.Int("count", len(orphans)))
	}

	workers, err := identity.ListWorkers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}

	labels := make([]report.WorkerLabel, 0, len(workers))
	for _, w := range workers {
		name, err := identity.ActiveDisplayName(ctx, w.ID, monthStart.UnixMilli())
		if err != nil {
			logger.Warn("Failed to resolve month-start name",
				zap.Int64("worker_id", w.ID), zap.Error(err))
			name = w.Code
		}
		labels = append(labels, report.WorkerLabel{ID: w.ID, Code: w.Code, Name: name})
	}

	return &MonthlyReport{
		Pivot:  report.BuildMonthlyPivot(records, labels, year, month, engine.Location),
		Totals: report.BuildMonthlyTotals(records, labels, month),
	}, nil
}

// ExportMonthlyWorkbook writes the monthly report as an XLSX workbook with
// the "Monthly Pivot" and "Monthly Totals" sheets. Returns the written path.
func ExportMonthlyWorkbook(ctx context.Context, identity db.IdentityStore, ledger db.PunchLedger, engine *reconcile.Engine, logger *zap.Logger, year int, month time.Month, exportDir string) (string, error) {
	rep, err := BuildMonthlyReport(ctx, identity, ledger, engine, logger, year, month)
	if err != nil {
		return "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := writePivotSheet(f, rep.Pivot); err != nil {
		return "", err
	}
	if err := writeTotalsSheet(f, rep.Totals); err != nil {
		return "", err
	}
	f.DeleteSheet("Sheet1")

	if idx, err := f.GetSheetIndex(pivotSheet); err == nil {
		f.SetActiveSheet(idx)
	}

	if err := os.MkdirAll(exportDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(exportDir, fmt.Sprintf("attendance_%04d-%02d.xlsx", year, int(month)))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}

	logger.Info("Monthly workbook exported",
		zap.String("path", path),
		zap.Int("workers", len(rep.Pivot.Rows)))
	return path, nil
}

func writePivotSheet(f *excelize.File, pivot report.Pivot) error {
	if _, err := f.NewSheet(pivotSheet); err != nil {
		return fmt.Errorf("failed to create pivot sheet: %w", err)
	}

	headerStyle, err := headerStyle(f)
	if err != nil {
		return err
	}

	f.SetCellValue(pivotSheet, "A1", "Code")
	f.SetCellValue(pivotSheet, "B1", "Name")
	for day := 1; day <= pivot.DaysInMonth; day++ {
		cell, _ := excelize.CoordinatesToCellName(2+day, 1)
		f.SetCellValue(pivotSheet, cell, day)
	}
	lastCol, _ := excelize.ColumnNumberToName(2 + pivot.DaysInMonth)
	f.SetCellStyle(pivotSheet, "A1", lastCol+"1", headerStyle)

	f.SetColWidth(pivotSheet, "A", "A", 10)
	f.SetColWidth(pivotSheet, "B", "B", 18)
	firstDayCol, _ := excelize.ColumnNumberToName(3)
	f.SetColWidth(pivotSheet, firstDayCol, lastCol, 26)

	for i, row := range pivot.Rows {
		r := i + 2
		f.SetCellValue(pivotSheet, fmt.Sprintf("A%d", r), row.Code)
		f.SetCellValue(pivotSheet, fmt.Sprintf("B%d", r), row.Name)
		for day, cellText := range row.Cells {
			if cellText == "" {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(3+day, r)
			f.SetCellValue(pivotSheet, cell, cellText)
		}
	}

	return nil
}

func writeTotalsSheet(f *excelize.File, totals []report.TotalsRow) error {
	if _, err := f.NewSheet(totalsSheet); err != nil {
		return fmt.Errorf("failed to create totals sheet: %w", err)
	}

	style, err := headerStyle(f)
	if err != nil {
		return err
	}

	headers := []string{"Code", "Name", "Month", "Total Worked", "Late Days", "Early Days", "Missed OUT Days"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(totalsSheet, cell, h)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	f.SetCellStyle(totalsSheet, "A1", lastCol+"1", style)
	f.SetColWidth(totalsSheet, "A", lastCol, 16)

	for i, row := range totals {
		r := i + 2
		f.SetCellValue(totalsSheet, fmt.Sprintf("A%d", r), row.Code)
		f.SetCellValue(totalsSheet, fmt.Sprintf("B%d", r), row.Name)
		f.SetCellValue(totalsSheet, fmt.Sprintf("C%d", r), row.MonthName)
		f.SetCellValue(totalsSheet, fmt.Sprintf("D%d", r), report.FormatDuration(row.TotalMinutes))
		f.SetCellValue(totalsSheet, fmt.Sprintf("E%d", r), row.LateDays)
		f.SetCellValue(totalsSheet, fmt.Sprintf("F%d", r), row.EarlyDays)
		f.SetCellValue(totalsSheet, fmt.Sprintf("G%d", r), row.MissedOutDays)
	}

	return nil
}

func headerStyle(f *excelize.File) (int, error) {
	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDDDDD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create header style: %w", err)
	}
	return style, nil
}
