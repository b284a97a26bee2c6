package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/factorykiosk/attendance/pkg/db"
)

// ManualPunch inserts an administrative correction punch. When code is empty
// the first worker by code is used, matching the single-operator panel where
// corrections default to the active worker. With no workers registered at
// all the operation fails rather than no-ops.
func ManualPunch(ctx context.Context, identity db.IdentityStore, ledger db.PunchLedger, logger *zap.Logger, code string, typ db.PunchType, reason string, now time.Time) (int64, error) {
	workers, err := identity.ListWorkers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list workers: %w", err)
	}
	if len(workers) == 0 {
		return 0, fmt.Errorf("no workers registered: %w", db.ErrNotFound)
	}

	target := workers[0]
	if code != "" {
		found := false
		for _, w := range workers {
			if w.Code == code {
				target = w
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("no worker with code %s: %w", code, db.ErrNotFound)
		}
	}

	punchID, err := ledger.RecordManualPunch(ctx, target.ID, typ, now.UnixMilli(), reason)
	if err != nil {
		return 0, fmt.Errorf("failed to record manual punch: %w", err)
	}

	logger.Info("Manual punch recorded",
		zap.Int64("punch_id", punchID),
		zap.String("code", target.Code),
		zap.String("type", string(typ)),
		zap.String("reason", reason))

	return punchID, nil
}
