package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/factorykiosk/attendance/pkg/core/reconcile"
	"github.com/factorykiosk/attendance/pkg/db"
)

// CatchUpAutoOuts persists synthetic OUT punches for concluded days that
// have an IN and no OUT, so later reconciliations see concrete punches.
// The scan window ends at local midnight of the current day, so today is
// never touched. All inserts happen in one transaction, and a day that
// already carries an OUT is never a candidate again, which makes re-running
// the pass safe.
//
// Returns the number of synthetic punches inserted.
func CatchUpAutoOuts(ctx context.Context, ledger db.PunchLedger, engine *reconcile.Engine, logger *zap.Logger, lookBack time.Duration) (int, error) {
	now := engine.Now()
	local := now.In(engine.Location)
	todayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, engine.Location)

	from := todayStart.Add(-lookBack).UnixMilli()
	to := todayStart.UnixMilli()

	punches, err := ledger.PunchesInRange(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to load punches for catch-up: %w", err)
	}

	records := engine.BuildDayRecords(punches)
	outs := engine.PendingAutoOuts(records)
	if len(outs) == 0 {
		logger.Debug("No missing OUT punches to synthesize")
		return 0, nil
	}

	if err := ledger.RecordAutoOuts(ctx, outs); err != nil {
		return 0, fmt.Errorf("failed to persist auto-out punches: %w", err)
	}

	logger.Info("Synthetic OUT punches persisted", zap.Int("count", len(outs)))
	return len(outs), nil
}
