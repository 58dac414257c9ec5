// Package sched runs the two periodic tick sources of the game on one
// dispatcher goroutine.
//
// The control channel has a mutable rate, the scorer channel a fixed one.
// A one-shot hold timer paces the game-over sequence. Events are handed to a
// single Handler one at a time with static priority control > scorer > hold,
// so handlers never run concurrently. Tick channels hold at most one pending
// tick; ticks that arrive while one is pending are coalesced.
package sched

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// ScorerPeriod is the fixed scorer rate (1 Hz).
const ScorerPeriod = time.Second

// MinControlPeriod bounds the control rate at 100 Hz.
const MinControlPeriod = 10 * time.Millisecond

// Source identifies what produced an Event.
type Source int

const (
	SourceControl Source = iota
	SourceScorer
	SourceHold
)

func (s Source) String() string {
	switch s {
	case SourceControl:
		return "control"
	case SourceScorer:
		return "scorer"
	case SourceHold:
		return "hold"
	}
	return fmt.Sprintf("source(%d)", int(s))
}

// Event is one tick delivered to the Handler.
type Event struct {
	Source Source
	At     time.Time
}

// Handler consumes events. A returned error stops the loop.
type Handler interface {
	HandleEvent(Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(Event) error

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ev Event) error { return f(ev) }

// PeriodFor converts a frequency to a control period, clamped to
// MinControlPeriod. Non-positive frequencies fall back to 1 Hz.
func PeriodFor(hz float64) time.Duration {
	if hz <= 0 {
		return time.Second
	}
	d := time.Duration(float64(time.Second) / hz)
	if d < MinControlPeriod {
		d = MinControlPeriod
	}
	return d
}

// Loop owns the tickers. Arm, SetControlFrequency and Hold must be called
// either before Run or from inside the Handler; they are not safe to call
// from other goroutines. ControlPeriod may be read from anywhere.
//
// Reprogramming to a new period replaces the ticker rather than resetting it,
// so a tick still pending at the old rate is dropped and the new period
// starts now. Reprogramming to the current period leaves the ticker alone.
type Loop struct {
	clock   clockwork.Clock
	control clockwork.Ticker
	scorer  clockwork.Ticker
	hold    clockwork.Timer
	holdC   <-chan time.Time

	controlPeriod atomic.Int64
}

// NewLoop creates a disarmed loop on clock.
func NewLoop(clock clockwork.Clock) *Loop {
	return &Loop{clock: clock}
}

// Arm (re)starts both tick channels, the control channel at controlHz.
// Pending ticks from a previous round are discarded.
func (l *Loop) Arm(controlHz float64) time.Duration {
	stopTicker(l.scorer)
	stopTicker(l.control)
	l.control = nil
	l.scorer = l.clock.NewTicker(ScorerPeriod)
	return l.SetControlFrequency(controlHz)
}

// SetControlFrequency reprograms the control channel only. The new period
// applies from now on; the scorer channel is not touched.
func (l *Loop) SetControlFrequency(hz float64) time.Duration {
	d := PeriodFor(hz)
	if l.control != nil && int64(d) == l.controlPeriod.Load() {
		return d
	}
	stopTicker(l.control)
	l.control = l.clock.NewTicker(d)
	l.controlPeriod.Store(int64(d))
	return d
}

// Hold arms the one-shot hold timer, replacing any pending hold.
func (l *Loop) Hold(d time.Duration) {
	if l.hold != nil {
		l.hold.Stop()
	}
	l.hold = l.clock.NewTimer(d)
	l.holdC = l.hold.Chan()
}

// ControlPeriod returns the last programmed control period, or zero if the
// loop was never armed.
func (l *Loop) ControlPeriod() time.Duration {
	return time.Duration(l.controlPeriod.Load())
}

// Stop halts all tick sources.
func (l *Loop) Stop() {
	stopTicker(l.control)
	stopTicker(l.scorer)
	l.control, l.scorer = nil, nil
	if l.hold != nil {
		l.hold.Stop()
	}
	l.holdC = nil
}

// Run dispatches events to h until ctx is done or h returns an error.
// It returns nil on cancellation.
func (l *Loop) Run(ctx context.Context, h Handler) error {
	defer l.Stop()

	for {
		// Control ticks take precedence over anything else pending.
		select {
		case t := <-tickC(l.control):
			if err := dispatch(h, SourceControl, t); err != nil {
				return err
			}
			continue
		default:
		}

		select {
		case <-ctx.Done():
			return nil
		case t := <-tickC(l.control):
			if err := dispatch(h, SourceControl, t); err != nil {
				return err
			}
		case t := <-tickC(l.scorer):
			if err := dispatch(h, SourceScorer, t); err != nil {
				return err
			}
		case t := <-l.holdC:
			l.holdC = nil
			if err := dispatch(h, SourceHold, t); err != nil {
				return err
			}
		}
	}
}

func dispatch(h Handler, src Source, t time.Time) error {
	if err := h.HandleEvent(Event{Source: src, At: t}); err != nil {
		return fmt.Errorf("%s tick: %w", src, err)
	}
	return nil
}

// tickC returns t's channel, or nil (never ready) for a disarmed ticker.
func tickC(t clockwork.Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.Chan()
}

func stopTicker(t clockwork.Ticker) {
	if t != nil {
		t.Stop()
	}
}
