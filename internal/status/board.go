package status

import (
	"sync/atomic"
	"time"
)

// Frame is one published view of the game. Frames are immutable once
// published; readers always see a complete one.
type Frame struct {
	Version       uint64
	Phase         string
	Running       bool
	Round         uint32
	Score         uint32
	LastScore     uint32
	BestScore     uint32
	Position      float64
	Velocity      float64
	Pin           int
	FrequencyHz   float64
	ControlPeriod time.Duration
}

// Board hands frames from the single game writer to any number of readers.
// Publish never blocks and Load never observes a partially written frame.
type Board struct {
	cur     atomic.Pointer[Frame]
	version atomic.Uint64
}

// NewBoard creates a board holding an empty frame at version 0.
func NewBoard() *Board {
	b := &Board{}
	b.cur.Store(&Frame{})
	return b
}

// Publish stamps f with the next version and makes it current.
// Only one goroutine may publish.
func (b *Board) Publish(f Frame) uint64 {
	f.Version = b.version.Add(1)
	b.cur.Store(&f)
	return f.Version
}

// Load returns the current frame.
func (b *Board) Load() Frame {
	return *b.cur.Load()
}
