package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/factorykiosk/attendance/pkg/db"
)

var (
	// ErrUnknownCard indicates the scanned card matches no registered worker
	ErrUnknownCard = errors.New("unknown card")

	// ErrCooldown indicates a repeat tap inside the debounce window
	ErrCooldown = errors.New("punch rejected by cooldown")
)

// PhotoCapturer is the camera collaborator: given a punch id it eventually
// attaches a photo path to the punch. Capture is fire-and-forget.
type PhotoCapturer interface {
	CaptureAsync(punchID int64)
}

// PunchResult describes an accepted card tap
type PunchResult struct {
	PunchID     int64
	WorkerID    int64
	Code        string
	DisplayName string
	Type        db.PunchType
}

// PunchCard runs the kiosk flow for one card scan: normalize and look up the
// card, debounce repeat taps, derive the next punch type from the last punch,
// append the punch and kick off photo capture.
//
// Debounce and the next-type rule are enforced here, on the caller side of
// the ledger: a rejected tap writes nothing.
func PunchCard(ctx context.Context, identity db.IdentityStore, ledger db.PunchLedger, camera PhotoCapturer, logger *zap.Logger, rawUID string, cooldown time.Duration, now time.Time) (*PunchResult, error) {
	uid := db.NormalizeCardUID(rawUID)
	logger.Debug("Card scanned", zap.String("uid", uid))

	worker, err := identity.LookupByCardUID(ctx, uid)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			logger.Warn("Unknown card", zap.String("uid", uid))
			return nil, fmt.Errorf("card %s: %w", uid, ErrUnknownCard)
		}
		return nil, fmt.Errorf("failed to look up card: %w", err)
	}

	last, err := ledger.LastPunch(ctx, worker.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch last punch: %w", err)
	}

	nowMillis := now.UnixMilli()
	if last != nil && nowMillis-last.Timestamp < cooldown.Milliseconds() {
		logger.Info("Repeat tap inside cooldown",
			zap.Int64("worker_id", worker.ID),
			zap.Int64("since_last_ms", nowMillis-last.Timestamp))
		return nil, ErrCooldown
	}

	nextType := db.PunchIn
	if last != nil && last.Type == db.PunchIn {
		nextType = db.PunchOut
	}

	punchID, err := ledger.RecordPunch(ctx, worker.ID, nextType, nowMillis)
	if err != nil {
		return nil, fmt.Errorf("failed to record punch: %w", err)
	}

	name, err := identity.ActiveDisplayName(ctx, worker.ID, nowMillis)
	if err != nil {
		// The punch is already committed; fall back to the code for display.
		logger.Warn("Failed to resolve display name", zap.Int64("worker_id", worker.ID), zap.Error(err))
		name = worker.Code
	}

	logger.Info("Punch recorded",
		zap.Int64("punch_id", punchID),
		zap.Int64("worker_id", worker.ID),
		zap.String("code", worker.Code),
		zap.String("type", string(nextType)))

	if camera != nil {
		camera.CaptureAsync(punchID)
	}

	return &PunchResult{
		PunchID:     punchID,
		WorkerID:    worker.ID,
		Code:        worker.Code,
		DisplayName: name,
		Type:        nextType,
	}, nil
}
