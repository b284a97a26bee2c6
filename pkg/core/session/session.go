// Package session owns the administrative session state: the PIN gate with
// its lockout counter and the idle auto-lock. State lives in an explicit
// Gate value handed to whoever runs the interactive session, not in globals.
package session

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"
)

var (
	// ErrLockedOut indicates too many consecutive failures; attempts are
	// refused until the cooldown elapses
	ErrLockedOut = errors.New("admin unlock locked out")

	// ErrBadPIN indicates the PIN did not match
	ErrBadPIN = errors.New("invalid pin")
)

// Gate is the admin unlock gate. The PIN is compared by one-way SHA-256
// hash; after MaxAttempts consecutive failures further attempts are refused
// for the lockout window. An unlocked session expires after the idle window
// with no activity.
type Gate struct {
	pinHash     string
	maxAttempts int
	lockout     time.Duration
	idle        time.Duration
	now         func() time.Time

	mu           sync.Mutex
	failures     int
	lockedUntil  time.Time
	unlocked     bool
	lastActivity time.Time
}

// NewGate creates a gate for the given hex-encoded SHA-256 PIN hash
func NewGate(pinHash string, maxAttempts int, lockout, idle time.Duration) *Gate {
	return &Gate{
		pinHash:     pinHash,
		maxAttempts: maxAttempts,
		lockout:     lockout,
		idle:        idle,
		now:         time.Now,
	}
}

// Unlock attempts to open an admin session with the given PIN
func (g *Gate) Unlock(pin string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if now.Before(g.lockedUntil) {
		return ErrLockedOut
	}

	if HashPIN(pin) != g.pinHash {
		g.failures++
		if g.failures >= g.maxAttempts {
			g.lockedUntil = now.Add(g.lockout)
			g.failures = 0
		}
		return ErrBadPIN
	}

	g.failures = 0
	g.unlocked = true
	g.lastActivity = now
	return nil
}

// Active reports whether an admin session is open. A session past its idle
// window expires here.
func (g *Gate) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.unlocked {
		return false
	}
	if g.now().Sub(g.lastActivity) >= g.idle {
		g.unlocked = false
		return false
	}
	return true
}

// Touch refreshes the idle timer; call it on every admin interaction
func (g *Gate) Touch() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.unlocked {
		g.lastActivity = g.now()
	}
}

// Lock closes the admin session immediately
func (g *Gate) Lock() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.unlocked = false
}

// HashPIN returns the hex-encoded SHA-256 of a PIN, the format stored in
// configuration
func HashPIN(pin string) string {
	sum := sha256.Sum256([]byte(pin))
	return hex.EncodeToString(sum[:])
}
