// Package gpio drives the expander's hardware reset line.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

// ResetLine is an output line wired to the expander's active-low RESET pin.
type ResetLine interface {
	// SetValue drives the line: 0 = low (reset asserted), 1 = high.
	SetValue(v int) error

	// Close releases GPIO resources.
	Close() error
}

// Defaults for the reset line (BCM numbering).
const (
	DefaultChip  = "gpiochip0"
	PinReset     = 17
	ResetPulse   = time.Millisecond
	ResetRecover = time.Millisecond
)

// Pulse holds the line low for width, then releases it and waits settle
// before returning so the device is ready for the first transaction.
func Pulse(l ResetLine, clock clockwork.Clock, width, settle time.Duration) error {
	if err := l.SetValue(0); err != nil {
		return fmt.Errorf("assert reset: %w", err)
	}
	clock.Sleep(width)
	if err := l.SetValue(1); err != nil {
		return fmt.Errorf("release reset: %w", err)
	}
	clock.Sleep(settle)
	return nil
}
