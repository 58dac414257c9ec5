//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealResetLine drives the reset pin through the Linux GPIO character device.
type RealResetLine struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealResetLine requests offset on chip as an output, initially high so
// the expander is not held in reset.
func NewRealResetLine(chip string, offset int) (*RealResetLine, error) {
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := c.RequestLine(offset, gpiocdev.AsOutput(1), gpiocdev.WithConsumer("tilt-balance"))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("request reset pin %d: %w", offset, err)
	}

	return &RealResetLine{chip: c, line: line}, nil
}

// SetValue drives the line.
func (r *RealResetLine) SetValue(v int) error {
	if err := r.line.SetValue(v); err != nil {
		return fmt.Errorf("set reset pin: %w", err)
	}
	return nil
}

// Close releases GPIO resources.
// The line is switched back to an input with pull-up first, so the expander's
// RESET is not left floating low while the daemon is down.
func (r *RealResetLine) Close() error {
	var errs []error

	if r.line != nil {
		if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure reset pin: %w", err))
		}
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close reset pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
