// Package expander drives an MCP23008 8-bit I/O expander.
//
// The driver keeps shadow copies of the direction (IODIR) and value (GPIO)
// registers. Every mutation updates the shadow and pushes the whole register
// to the device in the same gate acquisition, so the shadow always reflects
// the last requested state even when a transaction fails.
package expander

import (
	"errors"
	"fmt"

	"github.com/sweeney/tilt-balance/internal/bus"
)

// Address is the default 7-bit address with A2..A0 tied low.
const Address = 0x20

// Registers used by the driver.
const (
	RegIODIR = 0x00 // I/O direction, 1 = input
	RegGPIO  = 0x09 // port value
)

// Pins is the number of I/O pins on the device.
const Pins = 8

var (
	// ErrInvalidPin is returned for pin numbers outside [0,7].
	// No state is changed and the bus is not touched.
	ErrInvalidPin = errors.New("expander: pin out of range")

	// ErrTransaction wraps any bus failure.
	ErrTransaction = errors.New("expander: bus transaction failed")
)

// State is a copy of the shadow registers.
type State struct {
	Direction uint8 // bit set = input
	Value     uint8 // meaningful only for output pins
}

// Device is an MCP23008 behind a bus gate.
type Device struct {
	gate *bus.Gate
	addr uint16

	// guarded by gate
	direction uint8
	value     uint8
}

// New creates a driver for the device at addr. Both shadows start at zero
// (all outputs, all low). Nothing is written until the first mutation.
func New(gate *bus.Gate, addr uint16) *Device {
	if addr == 0 {
		addr = Address
	}
	return &Device{gate: gate, addr: addr}
}

// Addr returns the device's bus address.
func (d *Device) Addr() uint16 {
	return d.addr
}

// SetPinAsOutput configures a single pin as an output.
func (d *Device) SetPinAsOutput(pin int) error {
	if !isPin(pin) {
		return ErrInvalidPin
	}
	return d.updateDirection(func(dir uint8) uint8 { return dir &^ mask(pin) })
}

// SetPinAsInput configures a single pin as an input.
func (d *Device) SetPinAsInput(pin int) error {
	if !isPin(pin) {
		return ErrInvalidPin
	}
	return d.updateDirection(func(dir uint8) uint8 { return dir | mask(pin) })
}

// SetAllPinsAsOutput configures all eight pins as outputs.
func (d *Device) SetAllPinsAsOutput() error {
	return d.updateDirection(func(uint8) uint8 { return 0x00 })
}

// SetAllPinsAsInput configures all eight pins as inputs.
func (d *Device) SetAllPinsAsInput() error {
	return d.updateDirection(func(uint8) uint8 { return 0xFF })
}

// PinHigh drives an output pin high.
func (d *Device) PinHigh(pin int) error {
	if !isPin(pin) {
		return ErrInvalidPin
	}
	return d.updateValue(func(v uint8) uint8 { return v | mask(pin) })
}

// PinLow drives an output pin low.
func (d *Device) PinLow(pin int) error {
	if !isPin(pin) {
		return ErrInvalidPin
	}
	return d.updateValue(func(v uint8) uint8 { return v &^ mask(pin) })
}

// PinToggle inverts an output pin.
func (d *Device) PinToggle(pin int) error {
	if !isPin(pin) {
		return ErrInvalidPin
	}
	return d.updateValue(func(v uint8) uint8 { return v ^ mask(pin) })
}

// AllPinsHigh drives every output high.
func (d *Device) AllPinsHigh() error {
	return d.WriteRaw(0xFF)
}

// AllPinsLow drives every output low.
func (d *Device) AllPinsLow() error {
	return d.WriteRaw(0x00)
}

// WriteRaw replaces the whole value register, e.g. to show a bit pattern.
func (d *Device) WriteRaw(v uint8) error {
	return d.updateValue(func(uint8) uint8 { return v })
}

// PinRead reads the port and returns the level of pin, whatever its
// direction. An output pin reads back its driven level.
func (d *Device) PinRead(pin int) (bool, error) {
	if !isPin(pin) {
		return false, ErrInvalidPin
	}
	v, err := d.ReadValue()
	if err != nil {
		return false, err
	}
	return v&mask(pin) != 0, nil
}

// ReadValue reads the port register from the device.
func (d *Device) ReadValue() (uint8, error) {
	h := d.gate.Acquire()
	defer h.Release()

	var buf [1]byte
	if err := h.Read(d.addr, RegGPIO, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: read GPIO: %w", ErrTransaction, err)
	}
	return buf[0], nil
}

// State returns the shadow registers. It waits for any transaction in
// progress but does not touch the bus.
func (d *Device) State() State {
	h := d.gate.Acquire()
	defer h.Release()
	return State{Direction: d.direction, Value: d.value}
}

func (d *Device) updateDirection(f func(uint8) uint8) error {
	h := d.gate.Acquire()
	defer h.Release()

	d.direction = f(d.direction)
	if err := h.Write(d.addr, RegIODIR, d.direction); err != nil {
		return fmt.Errorf("%w: write IODIR: %w", ErrTransaction, err)
	}
	return nil
}

func (d *Device) updateValue(f func(uint8) uint8) error {
	h := d.gate.Acquire()
	defer h.Release()

	d.value = f(d.value)
	if err := h.Write(d.addr, RegGPIO, d.value); err != nil {
		return fmt.Errorf("%w: write GPIO: %w", ErrTransaction, err)
	}
	return nil
}

func isPin(pin int) bool {
	return pin >= 0 && pin < Pins
}

func mask(pin int) uint8 {
	return 1 << uint(pin)
}
