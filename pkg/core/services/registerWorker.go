package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/factorykiosk/attendance/pkg/db"
)

// RegisterWorker registers a new worker or reassigns an existing card/code,
// rolling the assignment chain forward in one atomic unit.
func RegisterWorker(ctx context.Context, identity db.IdentityStore, logger *zap.Logger, code, displayName, cardUID string, now time.Time) (int64, error) {
	logger.Info("Registering worker",
		zap.String("code", code),
		zap.String("card_uid", db.NormalizeCardUID(cardUID)))

	workerID, err := identity.RegisterOrReassign(ctx, code, displayName, cardUID, now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to register worker: %w", err)
	}

	logger.Info("Worker registered", zap.Int64("worker_id", workerID), zap.String("code", code))
	return workerID, nil
}

// SeedRoster loads the configured worker roster, skipping entries that are
// already present. Safe to run on every startup.
func SeedRoster(ctx context.Context, identity db.IdentityStore, logger *zap.Logger, seeds []db.WorkerSeed) error {
	if len(seeds) == 0 {
		logger.Debug("No roster entries configured")
		return nil
	}

	if err := identity.SeedWorkers(ctx, seeds); err != nil {
		return fmt.Errorf("failed to seed roster: %w", err)
	}

	logger.Info("Roster seeded", zap.Int("entries", len(seeds)))
	return nil
}
