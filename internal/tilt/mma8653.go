package tilt

import (
	"fmt"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/mma8653"
)

// DeviceIDMMA8653 is the WHO_AM_I value of an MMA8653.
const DeviceIDMMA8653 = 0x5A

// CalibrationSamples is the number of rest samples averaged into offsets.
const CalibrationSamples = 16

// MMA8653 is a Sensor backed by the tinygo MMA8653 driver.
// bus should be the shared gate so sensor reads never interleave with
// expander writes.
type MMA8653 struct {
	bus     drivers.I2C
	dev     mma8653.Device
	offsets Axes
}

// NewMMA8653 creates the sensor. Nothing is sent until Calibrate.
func NewMMA8653(bus drivers.I2C, addr uint16) *MMA8653 {
	dev := mma8653.New(bus)
	if addr != 0 {
		dev.Address = addr
	}
	return &MMA8653{bus: bus, dev: dev}
}

// Calibrate checks the device id, configures +-2 g at 100 Hz and averages
// X and Y at rest into offsets. Z keeps gravity.
func (m *MMA8653) Calibrate() error {
	id, err := m.DeviceID()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCalibration, err)
	}
	if id != DeviceIDMMA8653 {
		return fmt.Errorf("%w: unexpected device id 0x%02x", ErrCalibration, id)
	}

	if err := m.dev.Configure(mma8653.DataRate100Hz, mma8653.Sensitivity2G); err != nil {
		return fmt.Errorf("%w: configure: %w", ErrCalibration, err)
	}

	var sx, sy int64
	for i := 0; i < CalibrationSamples; i++ {
		x, y, _, err := m.dev.ReadAcceleration()
		if err != nil {
			return fmt.Errorf("%w: sample %d: %w", ErrCalibration, i, err)
		}
		sx += int64(x)
		sy += int64(y)
	}
	m.offsets = Axes{
		X: int32(sx / CalibrationSamples),
		Y: int32(sy / CalibrationSamples),
	}
	return nil
}

// ReadAxes returns the current acceleration minus the rest offsets.
func (m *MMA8653) ReadAxes() (Axes, error) {
	x, y, z, err := m.dev.ReadAcceleration()
	if err != nil {
		return Axes{}, fmt.Errorf("mma8653: %w", err)
	}
	return Axes{X: x - m.offsets.X, Y: y - m.offsets.Y, Z: z}, nil
}

// DeviceID reads WHO_AM_I.
func (m *MMA8653) DeviceID() (byte, error) {
	var buf [1]byte
	if err := m.bus.Tx(m.dev.Address, []byte{mma8653.WHO_AM_I}, buf[:]); err != nil {
		return 0, fmt.Errorf("mma8653: read WHO_AM_I: %w", err)
	}
	return buf[0], nil
}

// Offsets returns the calibration offsets.
func (m *MMA8653) Offsets() Axes {
	return m.offsets
}
