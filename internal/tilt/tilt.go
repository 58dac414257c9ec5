// Package tilt reads the accelerometer that steers the game.
// The real implementation uses an MMA8653 on the shared I2C bus.
// The fake implementation allows testing without hardware.
package tilt

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCalibration is returned when the sensor cannot be brought up.
var ErrCalibration = errors.New("tilt: calibration failed")

// Axes is one acceleration sample in micro-g.
type Axes struct {
	X, Y, Z int32
}

// Sensor is the accelerometer collaborator.
type Sensor interface {
	// Calibrate configures the device and zeroes it at rest.
	// Any error is fatal at startup.
	Calibrate() error

	// ReadAxes returns the latest calibrated sample.
	ReadAxes() (Axes, error)

	// DeviceID returns the WHO_AM_I byte.
	DeviceID() (byte, error)
}

// Axis selects which component of a sample steers the game.
type Axis int

const (
	AxisX Axis = iota
	AxisY
)

// ParseAxis accepts "x" or "y", optionally prefixed with "-" to invert.
func ParseAxis(s string) (Axis, bool, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	invert := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	switch s {
	case "x":
		return AxisX, invert, nil
	case "y":
		return AxisY, invert, nil
	}
	return 0, false, fmt.Errorf("tilt: unknown axis %q", s)
}

func (a Axis) String() string {
	if a == AxisY {
		return "y"
	}
	return "x"
}

// AxisReader reduces a Sensor to the single signed sample the physics needs.
type AxisReader struct {
	Sensor Sensor
	Axis   Axis
	Invert bool
}

// ReadAxis returns the selected axis.
func (r AxisReader) ReadAxis() (int32, error) {
	a, err := r.Sensor.ReadAxes()
	if err != nil {
		return 0, fmt.Errorf("read axes: %w", err)
	}
	v := a.X
	if r.Axis == AxisY {
		v = a.Y
	}
	if r.Invert {
		v = -v
	}
	return v, nil
}
