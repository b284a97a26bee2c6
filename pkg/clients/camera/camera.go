// Package camera is the capture collaborator: given a punch id it produces
// a verification photo path and attaches it to the punch asynchronously.
// On the target device the capture hardware writes the file; this
// implementation reserves the path and attaches it the same way.
package camera

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/factorykiosk/attendance/pkg/db"
)

// Capturer attaches photo paths to punches after the punch row exists.
// Capture never blocks the punch flow and never fails it: a punch that has
// vanished or already carries a photo is logged and skipped.
type Capturer struct {
	dir    string
	ledger db.PunchLedger
	logger *zap.Logger
	wg     sync.WaitGroup
}

// New creates a capturer storing photos under dir
func New(dir string, ledger db.PunchLedger, logger *zap.Logger) *Capturer {
	return &Capturer{dir: dir, ledger: ledger, logger: logger}
}

// CaptureAsync fires a capture for the punch and returns immediately
func (c *Capturer) CaptureAsync(punchID int64) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.capture(punchID)
	}()
}

// Wait blocks until all in-flight captures finish; used on shutdown and in
// tests
func (c *Capturer) Wait() {
	c.wg.Wait()
}

func (c *Capturer) capture(punchID int64) {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		c.logger.Error("Failed to create photo directory", zap.Error(err))
		return
	}

	path := filepath.Join(c.dir, uuid.New().String()+".jpg")
	if err := os.WriteFile(path, []byte{}, 0644); err != nil {
		c.logger.Error("Failed to write photo file", zap.Error(err))
		return
	}

	err := c.ledger.AttachPhoto(context.Background(), punchID, path)
	if errors.Is(err, db.ErrNotFound) {
		c.logger.Warn("Punch disappeared before photo attach", zap.Int64("punch_id", punchID))
		os.Remove(path)
		return
	}
	if err != nil {
		c.logger.Error("Failed to attach photo", zap.Int64("punch_id", punchID), zap.Error(err))
		return
	}

	c.logger.Debug("Photo attached", zap.Int64("punch_id", punchID), zap.String("path", path))
}
