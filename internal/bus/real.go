package bus

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// DefaultSpeed matches the expander's fast-mode rating.
const DefaultSpeed = 400 * physic.KiloHertz

// Open initialises the host drivers and opens the named I2C bus.
// An empty name selects the first bus the host registers.
// The returned bus satisfies drivers.I2C and can be passed to NewGate.
func Open(name string, speed physic.Frequency) (i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host drivers: %w", err)
	}

	b, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", name, err)
	}

	if speed > 0 {
		if err := b.SetSpeed(speed); err != nil {
			b.Close()
			return nil, fmt.Errorf("set i2c speed %s: %w", speed, err)
		}
	}
	return b, nil
}
