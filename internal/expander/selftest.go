package expander

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

// Self-test timing.
const (
	SelfTestStepDelay  = 50 * time.Millisecond
	SelfTestSweepPause = 500 * time.Millisecond
)

// SelfTest is a wiring check for the LED bar. Pin 0 is an input; each sweep
// toggles pins 1..7 in turn, pausing SelfTestStepDelay between pins while
// pin 0 reads high, then pauses SelfTestSweepPause. It stops after sweeps
// sweeps or when ctx is done.
func SelfTest(ctx context.Context, d *Device, clock clockwork.Clock, sweeps int) error {
	if err := d.SetAllPinsAsOutput(); err != nil {
		return err
	}
	if err := d.SetPinAsInput(0); err != nil {
		return err
	}

	for n := 0; n < sweeps; n++ {
		slow, err := d.PinRead(0)
		if err != nil {
			return fmt.Errorf("sweep %d: %w", n, err)
		}
		var delay time.Duration
		if slow {
			delay = SelfTestStepDelay
		}

		for pin := 1; pin < Pins; pin++ {
			if err := d.PinToggle(pin); err != nil {
				return fmt.Errorf("sweep %d: %w", n, err)
			}
			if err := pause(ctx, clock, delay); err != nil {
				return err
			}
		}
		if err := pause(ctx, clock, SelfTestSweepPause); err != nil {
			return err
		}
	}
	return nil
}

func pause(ctx context.Context, clock clockwork.Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-clock.After(d):
		return nil
	}
}
