package bus

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// Txn is one recorded bus transaction.
type Txn struct {
	Addr uint16
	W    []byte
	R    []byte
}

// WireByte is a single byte as it appeared on the simulated wire.
// Seq identifies the transaction that put it there.
type WireByte struct {
	Seq  int
	Byte byte
}

// FakeBus is an instrumented drivers.I2C double.
// It simulates ideal register devices (a write of {reg, v...} stores v at
// reg, reg+1, ...; a read with w={reg} returns the stored bytes), records
// every transaction and its bytes on the wire, and detects transactions that
// overlap in time.
type FakeBus struct {
	// TxError, if set, is returned by every Tx without touching registers.
	TxError error

	// FailAfter, if > 0, makes Tx fail with ErrFakeFailure once that many
	// transactions have succeeded.
	FailAfter int

	mu       sync.Mutex
	regs     map[uint16]map[byte]byte
	txns     []Txn
	wire     []WireByte
	seq      int
	inFlight atomic.Int32
	overlap  atomic.Bool
}

// ErrFakeFailure is returned by FakeBus when FailAfter triggers.
var ErrFakeFailure = errors.New("bus: simulated transaction failure")

// NewFakeBus creates an empty FakeBus.
func NewFakeBus() *FakeBus {
	return &FakeBus{regs: make(map[uint16]map[byte]byte)}
}

// Tx implements drivers.I2C.
func (f *FakeBus) Tx(addr uint16, w, r []byte) error {
	if f.inFlight.Add(1) > 1 {
		f.overlap.Store(true)
	}
	defer f.inFlight.Add(-1)

	f.mu.Lock()
	if f.TxError != nil {
		err := f.TxError
		f.mu.Unlock()
		return err
	}
	if f.FailAfter > 0 && len(f.txns) >= f.FailAfter {
		f.mu.Unlock()
		return ErrFakeFailure
	}
	f.seq++
	seq := f.seq
	f.mu.Unlock()

	// Put bytes on the wire one at a time, yielding in between, so that an
	// ungated concurrent caller would interleave.
	for _, b := range w {
		f.mu.Lock()
		f.wire = append(f.wire, WireByte{Seq: seq, Byte: b})
		f.mu.Unlock()
		runtime.Gosched()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	dev := f.regs[addr]
	if dev == nil {
		dev = make(map[byte]byte)
		f.regs[addr] = dev
	}
	if len(w) > 0 {
		reg := w[0]
		for i, v := range w[1:] {
			dev[reg+byte(i)] = v
		}
		for i := range r {
			r[i] = dev[reg+byte(i)]
		}
	}

	f.txns = append(f.txns, Txn{
		Addr: addr,
		W:    append([]byte(nil), w...),
		R:    append([]byte(nil), r...),
	})
	return nil
}

// Transactions returns a copy of all successful transactions in order.
func (f *FakeBus) Transactions() []Txn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Txn(nil), f.txns...)
}

// Wire returns a copy of every byte written to the wire in order.
func (f *FakeBus) Wire() []WireByte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]WireByte(nil), f.wire...)
}

// Overlapped reports whether two transactions were ever in flight at once.
func (f *FakeBus) Overlapped() bool {
	return f.overlap.Load()
}

// Register returns the simulated value of reg on the device at addr.
func (f *FakeBus) Register(addr uint16, reg byte) byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.regs[addr][reg]
}

// SetRegister presets a simulated register, e.g. to emulate an input level.
func (f *FakeBus) SetRegister(addr uint16, reg, v byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	dev := f.regs[addr]
	if dev == nil {
		dev = make(map[byte]byte)
		f.regs[addr] = dev
	}
	dev[reg] = v
}

// Reset clears recorded transactions and the wire log. Registers are kept.
func (f *FakeBus) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txns = nil
	f.wire = nil
	f.overlap.Store(false)
}
