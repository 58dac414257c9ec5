//go:build !linux

package gpio

import "errors"

// RealResetLine is not available on non-Linux platforms.
type RealResetLine struct{}

// NewRealResetLine returns an error on non-Linux platforms.
func NewRealResetLine(chip string, offset int) (*RealResetLine, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// SetValue is not implemented on non-Linux platforms.
func (r *RealResetLine) SetValue(v int) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealResetLine) Close() error {
	return nil
}
