// Package bus serialises access to the shared I2C bus.
// The expander and the tilt sensor sit on the same wire and are driven from
// the tick dispatcher and the main goroutine, so every register transaction
// goes through a Gate.
package bus

import (
	"errors"
	"sync"

	"tinygo.org/x/drivers"
)

// ErrReleased is returned when a Handle is used after Release.
var ErrReleased = errors.New("bus: handle already released")

// Gate provides mutual exclusion over a drivers.I2C bus.
// A contending caller waits until the holder releases. There is no timeout:
// a stuck transaction is fatal to the caller holding it.
type Gate struct {
	mu  sync.Mutex
	bus drivers.I2C
}

// NewGate wraps bus. The bus must already be configured.
func NewGate(bus drivers.I2C) *Gate {
	return &Gate{bus: bus}
}

// Acquire blocks until the bus is free and returns a handle owning it.
// The caller must call Release exactly once, normally via defer.
func (g *Gate) Acquire() *Handle {
	g.mu.Lock()
	return &Handle{g: g}
}

// Tx performs a single transaction under one scoped acquisition.
// It lets third-party drivers written against drivers.I2C share the gate.
func (g *Gate) Tx(addr uint16, w, r []byte) error {
	h := g.Acquire()
	defer h.Release()
	return h.Tx(addr, w, r)
}

// Handle is exclusive ownership of the bus between Acquire and Release.
type Handle struct {
	g        *Gate
	released bool
}

// Tx issues a raw write-then-read transaction.
func (h *Handle) Tx(addr uint16, w, r []byte) error {
	if h.released {
		return ErrReleased
	}
	return h.g.bus.Tx(addr, w, r)
}

// Write sends data to the device at addr. For register devices data is
// {register, value...}.
func (h *Handle) Write(addr uint16, data ...byte) error {
	return h.Tx(addr, data, nil)
}

// Read fills buf from register reg of the device at addr.
func (h *Handle) Read(addr uint16, reg byte, buf []byte) error {
	return h.Tx(addr, []byte{reg}, buf)
}

// Release gives the bus back. Releasing twice is a no-op.
func (h *Handle) Release() {
	if h.released {
		return
	}
	h.released = true
	h.g.mu.Unlock()
}
