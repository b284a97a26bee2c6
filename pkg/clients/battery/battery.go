// Package battery composes low-battery alerts for the kiosk device. The
// transport is injected; the kiosk wires a logger-backed sender since the
// device has no network of its own.
package battery

import (
	"fmt"
	"sync"
	"time"
)

// Alert is a composed low-battery message ready for whatever transport the
// caller injected
type Alert struct {
	Subject string
	Body    string
	Percent int
}

// SendFunc delivers a composed alert
type SendFunc func(Alert) error

// Notifier rate-limits low-battery alerts: repeats inside the cooldown
// window are suppressed unless explicitly forced (the admin's manual
// battery-status check always sends).
type Notifier struct {
	send     SendFunc
	cooldown time.Duration
	now      func() time.Time

	mu       sync.Mutex
	lastSent time.Time
}

// NewNotifier creates a notifier with the given transport and cooldown
func NewNotifier(send SendFunc, cooldown time.Duration) *Notifier {
	return &Notifier{send: send, cooldown: cooldown, now: time.Now}
}

// LowBattery composes and sends a low-battery alert. Returns false when the
// alert was suppressed by the cooldown.
func (n *Notifier) LowBattery(percent int, force bool) (bool, error) {
	n.mu.Lock()
	now := n.now()
	if !force && now.Sub(n.lastSent) < n.cooldown {
		n.mu.Unlock()
		return false, nil
	}
	n.lastSent = now
	n.mu.Unlock()

	alert := Alert{
		Subject: "FACTORY KIOSK LOW BATTERY ALERT",
		Body: fmt.Sprintf(
			"Factory attendance kiosk battery is low.\n\nBattery level: %d%%\nTime: %s\n\nConnect the charger to avoid data loss.",
			percent, now.Format("02/01/2006 15:04:05")),
		Percent: percent,
	}

	if err := n.send(alert); err != nil {
		return false, fmt.Errorf("failed to send battery alert: %w", err)
	}
	return true, nil
}
