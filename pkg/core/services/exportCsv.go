package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/factorykiosk/attendance/pkg/core/reconcile"
	"github.com/factorykiosk/attendance/pkg/core/report"
	"github.com/factorykiosk/attendance/pkg/db"
)

const flatCSVHeader = "Name,Code,Date,InTime,OutTime,WorkDuration"

// ExportFlatCSV reconciles the given window and writes the flat per-day
// summary as an always-quoted CSV under exportDir. Row content is a pure
// function of the ledger, so exporting an unchanged ledger twice produces
// byte-identical rows; only the filename embeds the clock.
//
// Returns the path of the written file.
func ExportFlatCSV(ctx context.Context, identity db.IdentityStore, ledger db.PunchLedger, engine *reconcile.Engine, logger *zap.Logger, fromMillis, toMillis int64, exportDir string, now time.Time) (string, error) {
	rows, err := buildFlatRows(ctx, identity, ledger, engine, logger, fromMillis, toMillis)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(flatCSVHeader)
	b.WriteString("\n")
	for _, row := range rows {
		writeQuotedRow(&b, row.Name, row.Code, row.Date, row.InTime, row.OutTime, row.Duration)
	}

	if err := os.MkdirAll(exportDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(exportDir, fmt.Sprintf("attendance_%d.csv", now.UnixMilli()))
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("failed to write csv file: %w", err)
	}

	logger.Info("Flat CSV exported", zap.String("path", path), zap.Int("rows", len(rows)))
	return path, nil
}

// buildFlatRows runs reconciliation over the window and projects flat rows.
// Orphan OUT-only days are logged, not silently dropped.
func buildFlatRows(ctx context.Context, identity db.IdentityStore, ledger db.PunchLedger, engine *reconcile.Engine, logger *zap.Logger, fromMillis, toMillis int64) ([]report.FlatRow, error) {
	punches, err := ledger.PunchesInRange(ctx, fromMillis, toMillis)
	if err != nil {
		return nil, fmt.Errorf("failed to load punches: %w", err)
	}

	records := engine.BuildDayRecords(punches)

	if orphans := report.OrphanDays(records); len(orphans) > 0 {
		for _, o := range orphans {
			logger.Warn("Day has OUT with no IN, excluded from report",
				zap.Int64("worker_id", o.WorkerID),
				zap.String("date", o.Date.Format("2006-01-02")))
		}
	}

	workers, err := identity.ListWorkers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}
	codes := make(map[int64]string, len(workers))
	for _, w := range workers {
		codes[w.ID] = w.Code
	}

	nameFor := func(workerID, atMillis int64) string {
		name, err := identity.ActiveDisplayName(ctx, workerID, atMillis)
		if err != nil {
			logger.Warn("Failed to resolve display name for report",
				zap.Int64("worker_id", workerID), zap.Error(err))
			return "Unknown"
		}
		return name
	}

	return report.BuildFlatRows(records, codes, nameFor, engine.Location), nil
}

// writeQuotedRow appends one CSV line with every value double-quoted, the
// exact byte format of the export contract.
func writeQuotedRow(b *strings.Builder, values ...string) {
	for i, v := range values {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("\"")
		b.WriteString(strings.ReplaceAll(v, "\"", "\"\""))
		b.WriteString("\"")
	}
	b.WriteString("\n")
}
