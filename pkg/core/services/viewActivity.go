package services

import (
	"context"
	"fmt"
	"time"

	"github.com/factorykiosk/attendance/pkg/core/report"
	"github.com/factorykiosk/attendance/pkg/db"
)

// RecentActivityLines renders the newest punches as admin-panel feed lines,
// "Name - TYPE @ DD/MM/YYYY HH:MM:SS", newest first.
func RecentActivityLines(ctx context.Context, ledger db.PunchLedger, loc *time.Location, limit int) ([]string, error) {
	feed, err := ledger.RecentActivity(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent activity: %w", err)
	}

	lines := make([]string, 0, len(feed))
	for _, a := range feed {
		lines = append(lines, fmt.Sprintf("%s - %s @ %s",
			a.DisplayName, a.Type, report.FormatDateTime(a.Timestamp, loc)))
	}
	return lines, nil
}

// AuditTrailLines renders the newest audit entries for the admin panel
func AuditTrailLines(ctx context.Context, ledger db.PunchLedger, loc *time.Location, limit int) ([]string, error) {
	entries, err := ledger.AuditEntries(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load audit trail: %w", err)
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		worker := "-"
		if e.WorkerID != nil {
			worker = fmt.Sprintf("worker %d", *e.WorkerID)
		}
		lines = append(lines, fmt.Sprintf("%s [%s] %s @ %s",
			e.EventType, worker, e.Details, report.FormatDateTime(e.Timestamp, loc)))
	}
	return lines, nil
}
