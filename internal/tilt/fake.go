package tilt

import "errors"

// FakeSensor is a test double that returns scripted samples.
type FakeSensor struct {
	// Samples contains scripted readings. Each ReadAxes consumes the next
	// one; once exhausted the last sample repeats.
	Samples []Axes

	// index tracks current position in Samples
	index int

	// ID is returned by DeviceID.
	ID byte

	// Calibrated tracks if Calibrate succeeded.
	Calibrated bool

	// CalibrateError, if set, will be returned by Calibrate.
	CalibrateError error

	// ReadError, if set, will be returned by ReadAxes.
	ReadError error

	// Reads counts ReadAxes calls.
	Reads int
}

// NewFakeSensor creates a FakeSensor with the given samples.
func NewFakeSensor(samples ...Axes) *FakeSensor {
	return &FakeSensor{Samples: samples, ID: DeviceIDMMA8653}
}

// Calibrate marks the sensor calibrated unless CalibrateError is set.
func (f *FakeSensor) Calibrate() error {
	if f.CalibrateError != nil {
		return f.CalibrateError
	}
	f.Calibrated = true
	return nil
}

// ReadAxes returns the next scripted sample.
func (f *FakeSensor) ReadAxes() (Axes, error) {
	f.Reads++
	if f.ReadError != nil {
		return Axes{}, f.ReadError
	}
	if len(f.Samples) == 0 {
		return Axes{}, errors.New("no samples configured")
	}

	s := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return s, nil
}

// DeviceID returns ID.
func (f *FakeSensor) DeviceID() (byte, error) {
	return f.ID, nil
}

// Reset rewinds the script.
func (f *FakeSensor) Reset() {
	f.index = 0
	f.Reads = 0
	f.Calibrated = false
}
