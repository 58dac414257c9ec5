package sched

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

// recorder forwards events to a channel so tests can wait on them.
type recorder struct {
	events chan Event
	on     func(Event) error
}

func newRecorder() *recorder {
	return &recorder{events: make(chan Event, 64)}
}

func (r *recorder) HandleEvent(ev Event) error {
	var err error
	if r.on != nil {
		err = r.on(ev)
	}
	r.events <- ev
	return err
}

func (r *recorder) next(t *testing.T) Event {
	t.Helper()
	select {
	case ev := <-r.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func (r *recorder) none(t *testing.T) {
	t.Helper()
	select {
	case ev := <-r.events:
		t.Fatalf("unexpected %s event", ev.Source)
	case <-time.After(30 * time.Millisecond):
	}
}

func startLoop(t *testing.T, l *Loop, h Handler) (cancel func(), done <-chan error) {
	t.Helper()
	ctx, cancelCtx := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx, h) }()
	t.Cleanup(cancelCtx)
	return cancelCtx, errc
}

func TestPeriodFor(t *testing.T) {
	tests := []struct {
		hz   float64
		want time.Duration
	}{
		{10, 100 * time.Millisecond},
		{11, 90909090 * time.Nanosecond},
		{100, 10 * time.Millisecond},
		{250, MinControlPeriod},
		{0, time.Second},
		{-3, time.Second},
	}
	for _, tt := range tests {
		if got := PeriodFor(tt.hz); got != tt.want {
			t.Errorf("PeriodFor(%v): got %v, want %v", tt.hz, got, tt.want)
		}
	}
}

func TestDisarmedLoopIsSilent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewLoop(clock)
	rec := newRecorder()
	startLoop(t, l, rec)

	clock.Advance(5 * time.Second)
	rec.none(t)

	if l.ControlPeriod() != 0 {
		t.Errorf("control period before arm: got %v", l.ControlPeriod())
	}
}

func TestControlHasPriorityOverScorer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewLoop(clock)
	l.Arm(10)

	// Both sources become pending before the dispatcher starts.
	clock.Advance(ScorerPeriod)

	rec := newRecorder()
	startLoop(t, l, rec)

	if ev := rec.next(t); ev.Source != SourceControl {
		t.Fatalf("first event: got %s, want control", ev.Source)
	}
	if ev := rec.next(t); ev.Source != SourceScorer {
		t.Fatalf("second event: got %s, want scorer", ev.Source)
	}
	rec.none(t)
}

func TestControlTicksAtProgrammedRate(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewLoop(clock)
	if d := l.Arm(10); d != 100*time.Millisecond {
		t.Fatalf("arm period: got %v", d)
	}
	rec := newRecorder()
	startLoop(t, l, rec)

	for i := 0; i < 5; i++ {
		clock.Advance(100 * time.Millisecond)
		if ev := rec.next(t); ev.Source != SourceControl {
			t.Fatalf("tick %d: got %s", i, ev.Source)
		}
	}
}

func TestScorerReconfiguresControl(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewLoop(clock)
	l.Arm(1.25) // control every 800 ms

	rec := newRecorder()
	rec.on = func(ev Event) error {
		if ev.Source == SourceScorer {
			l.SetControlFrequency(50)
		}
		return nil
	}
	startLoop(t, l, rec)

	clock.Advance(800 * time.Millisecond)
	if ev := rec.next(t); ev.Source != SourceControl {
		t.Fatalf("expected control tick, got %s", ev.Source)
	}
	clock.Advance(200 * time.Millisecond)
	if ev := rec.next(t); ev.Source != SourceScorer {
		t.Fatalf("expected scorer tick, got %s", ev.Source)
	}
	if got := l.ControlPeriod(); got != 20*time.Millisecond {
		t.Fatalf("control period: got %v, want 20ms", got)
	}

	clock.Advance(20 * time.Millisecond)
	if ev := rec.next(t); ev.Source != SourceControl {
		t.Fatalf("expected control tick at new rate, got %s", ev.Source)
	}
}

func TestSameFrequencyKeepsPendingTick(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewLoop(clock)
	l.Arm(10)

	clock.Advance(100 * time.Millisecond)
	if d := l.SetControlFrequency(10); d != 100*time.Millisecond {
		t.Fatalf("period: got %v", d)
	}

	rec := newRecorder()
	startLoop(t, l, rec)
	if ev := rec.next(t); ev.Source != SourceControl {
		t.Fatalf("expected the pending control tick, got %s", ev.Source)
	}
}

func TestNewFrequencyDropsPendingTick(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewLoop(clock)
	l.Arm(10)

	clock.Advance(100 * time.Millisecond)
	l.SetControlFrequency(20)

	rec := newRecorder()
	startLoop(t, l, rec)
	rec.none(t)

	clock.Advance(50 * time.Millisecond)
	if ev := rec.next(t); ev.Source != SourceControl {
		t.Fatalf("expected control tick at new rate, got %s", ev.Source)
	}
}

func TestHoldFiresOnce(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewLoop(clock)
	l.Hold(500 * time.Millisecond)

	rec := newRecorder()
	startLoop(t, l, rec)

	clock.Advance(499 * time.Millisecond)
	rec.none(t)

	clock.Advance(time.Millisecond)
	if ev := rec.next(t); ev.Source != SourceHold {
		t.Fatalf("got %s, want hold", ev.Source)
	}

	clock.Advance(time.Second)
	rec.none(t)
}

func TestHoldRearmedFromHandler(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewLoop(clock)
	l.Hold(100 * time.Millisecond)

	holds := 0
	rec := newRecorder()
	rec.on = func(ev Event) error {
		if ev.Source == SourceHold {
			holds++
			if holds == 1 {
				l.Hold(200 * time.Millisecond)
			}
		}
		return nil
	}
	startLoop(t, l, rec)

	clock.Advance(100 * time.Millisecond)
	rec.next(t)
	clock.Advance(200 * time.Millisecond)
	if ev := rec.next(t); ev.Source != SourceHold {
		t.Fatalf("got %s, want hold", ev.Source)
	}
}

func TestHandlerErrorStopsLoop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewLoop(clock)
	l.Arm(10)

	boom := errors.New("bus failure")
	rec := newRecorder()
	rec.on = func(Event) error { return boom }
	_, done := startLoop(t, l, rec)

	clock.Advance(100 * time.Millisecond)

	select {
	case err := <-done:
		if !errors.Is(err, boom) {
			t.Fatalf("got %v, want %v", err, boom)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestCancelStopsLoop(t *testing.T) {
	l := NewLoop(clockwork.NewFakeClock())
	cancel, done := startLoop(t, l, newRecorder())
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil on cancel, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestSourceString(t *testing.T) {
	if SourceControl.String() != "control" || SourceScorer.String() != "scorer" || SourceHold.String() != "hold" {
		t.Error("unexpected source names")
	}
	if Source(9).String() != "source(9)" {
		t.Errorf("got %q", Source(9).String())
	}
}
