// Package game contains the tilt-balance state machine.
//
// The Engine is driven entirely by sched events. It owns the simulated ball
// and the round counters, drives the LED bar through a Display and publishes
// an immutable frame after every change. It is not safe for concurrent use;
// the dispatcher guarantees one event at a time.
package game

import (
	"fmt"
	"time"

	"github.com/sweeney/tilt-balance/internal/physics"
	"github.com/sweeney/tilt-balance/internal/sched"
	"github.com/sweeney/tilt-balance/internal/status"
)

// Defaults for Config.
const (
	BaseFrequencyHz = 10.0
	FrequencyStepHz = 1.0
	MaxFrequencyHz  = 100.0
	FlashHold       = 500 * time.Millisecond
	ScoreHold       = 2 * time.Second
)

// Display is the LED bar.
type Display interface {
	SetAllPinsAsOutput() error
	AllPinsHigh() error
	WriteRaw(v uint8) error
}

// AxisReader yields one signed tilt sample per control tick.
type AxisReader interface {
	ReadAxis() (int32, error)
}

// Rates reprograms the tick sources. *sched.Loop implements it.
type Rates interface {
	Arm(controlHz float64) time.Duration
	SetControlFrequency(hz float64) time.Duration
	Hold(d time.Duration)
}

// Perturbation supplies the random offset added on each control tick.
type Perturbation interface {
	Next() int
}

// Config tunes the difficulty curve and the game-over sequence.
type Config struct {
	BaseFrequencyHz float64
	FrequencyStepHz float64
	MaxFrequencyHz  float64
	FlashHold       time.Duration
	ScoreHold       time.Duration
}

// DefaultConfig returns the standard game settings.
func DefaultConfig() Config {
	return Config{
		BaseFrequencyHz: BaseFrequencyHz,
		FrequencyStepHz: FrequencyStepHz,
		MaxFrequencyHz:  MaxFrequencyHz,
		FlashHold:       FlashHold,
		ScoreHold:       ScoreHold,
	}
}

// Phase is where the engine is in a round.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhaseEnding
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseRunning:
		return "RUNNING"
	case PhaseEnding:
		return "ENDING"
	}
	return fmt.Sprintf("PHASE(%d)", int(p))
}

type endStep int

const (
	endFlash endStep = iota
	endScore
)

// State is the engine's game state.
type State struct {
	Phase       Phase
	Running     bool
	Round       uint32
	Score       uint32
	LastScore   uint32
	BestScore   uint32
	Body        physics.Body
	Pin         int
	FrequencyHz float64
}

// Engine runs rounds of the game.
type Engine struct {
	cfg     Config
	display Display
	tilt    AxisReader
	rates   Rates
	perturb Perturbation
	board   *status.Board

	state  State
	ending endStep
	period time.Duration
}

// NewEngine creates an idle engine. Call Start to begin the first round.
func NewEngine(cfg Config, display Display, tilt AxisReader, rates Rates, perturb Perturbation, board *status.Board) *Engine {
	return &Engine{
		cfg:     cfg,
		display: display,
		tilt:    tilt,
		rates:   rates,
		perturb: perturb,
		board:   board,
		state: State{
			Body: physics.Body{Position: physics.StartPosition},
			Pin:  physics.Render(physics.StartPosition),
		},
	}
}

// State returns the current state. Only call it from the dispatcher
// goroutine or when the dispatcher is stopped.
func (e *Engine) State() State {
	return e.state
}

// Start resets the round, flashes every LED and arms the tick sources.
func (e *Engine) Start() error {
	e.state.Score = 0
	e.state.Body = physics.Body{Position: physics.StartPosition}
	e.state.Pin = physics.Render(physics.StartPosition)
	e.state.FrequencyHz = e.cfg.BaseFrequencyHz
	e.state.Round++

	if err := e.display.SetAllPinsAsOutput(); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	if err := e.display.AllPinsHigh(); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	e.period = e.rates.Arm(e.state.FrequencyHz)
	e.state.Phase = PhaseRunning
	e.state.Running = true
	e.publish()
	return nil
}

// HandleEvent implements sched.Handler.
func (e *Engine) HandleEvent(ev sched.Event) error {
	switch ev.Source {
	case sched.SourceControl:
		return e.ControlTick()
	case sched.SourceScorer:
		return e.ScorerTick()
	case sched.SourceHold:
		return e.HoldExpired()
	}
	return nil
}

// ScorerTick awards a point and speeds up the control rate.
func (e *Engine) ScorerTick() error {
	if !e.state.Running {
		return nil
	}
	e.state.Score++

	f := e.state.FrequencyHz + e.cfg.FrequencyStepHz
	if f > e.cfg.MaxFrequencyHz {
		f = e.cfg.MaxFrequencyHz
	}
	e.state.FrequencyHz = f
	e.period = e.rates.SetControlFrequency(f)
	e.publish()
	return nil
}

// ControlTick advances the ball by one step and redraws it, or ends the
// round if the ball left the bar.
func (e *Engine) ControlTick() error {
	if !e.state.Running {
		return nil
	}

	sample, err := e.tilt.ReadAxis()
	if err != nil {
		return fmt.Errorf("read tilt: %w", err)
	}

	r := physics.Step(e.state.Body, sample, e.perturb.Next())
	if r.Crossed {
		return e.endRound(r.Body)
	}

	e.state.Body = r.Body
	pin := physics.Render(r.Position)
	if err := e.display.WriteRaw(1 << uint(pin)); err != nil {
		return fmt.Errorf("render pin %d: %w", pin, err)
	}
	e.state.Pin = pin
	e.publish()
	return nil
}

// HoldExpired advances the game-over sequence: flash, then score, then a
// new round.
func (e *Engine) HoldExpired() error {
	if e.state.Phase != PhaseEnding {
		return nil
	}

	switch e.ending {
	case endFlash:
		if err := e.display.WriteRaw(uint8(e.state.LastScore)); err != nil {
			return fmt.Errorf("show score: %w", err)
		}
		e.ending = endScore
		e.rates.Hold(e.cfg.ScoreHold)
		return nil
	default:
		e.state.Phase = PhaseIdle
		return e.Start()
	}
}

func (e *Engine) endRound(b physics.Body) error {
	e.state.Body = b
	e.state.LastScore = e.state.Score
	if e.state.Score > e.state.BestScore {
		e.state.BestScore = e.state.Score
	}
	e.state.Phase = PhaseEnding
	e.state.Running = false
	e.ending = endFlash
	e.publish()

	if err := e.display.AllPinsHigh(); err != nil {
		return fmt.Errorf("game over: %w", err)
	}
	e.rates.Hold(e.cfg.FlashHold)
	return nil
}

func (e *Engine) publish() {
	if e.board == nil {
		return
	}
	e.board.Publish(status.Frame{
		Phase:         e.state.Phase.String(),
		Running:       e.state.Running,
		Round:         e.state.Round,
		Score:         e.state.Score,
		LastScore:     e.state.LastScore,
		BestScore:     e.state.BestScore,
		Position:      e.state.Body.Position,
		Velocity:      e.state.Body.Velocity,
		Pin:           e.state.Pin,
		FrequencyHz:   e.state.FrequencyHz,
		ControlPeriod: e.period,
	})
}
