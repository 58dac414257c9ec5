// Package physics integrates tilt into motion along the LED bar.
// This package has no hardware or timing dependencies: each Step is a pure
// function of the previous body, one tilt sample and one perturbation offset.
package physics

import "math"

// Bar geometry.
const (
	MinPosition   = 0.0
	MaxPosition   = 7.0
	StartPosition = 3.0
)

// Tilt sample range in micro-g. Samples are clamped to +-1 g.
const (
	TiltMin   = -1_000_000
	TiltMax   = 1_000_000
	TiltScale = 4_000_000.0
)

// Motion constants.
const (
	Drag        = 0.9
	MaxVelocity = 0.5
)

// Body is the simulated ball.
type Body struct {
	Position float64
	Velocity float64
}

// Result is the outcome of one control tick.
type Result struct {
	Body
	// Crossed is true when the new position left [MinPosition, MaxPosition].
	Crossed bool
}

// Acceleration converts a raw tilt sample into an acceleration.
// Tilting down (negative sample) pushes toward higher pin indices.
func Acceleration(sample int32) float64 {
	if sample < TiltMin {
		sample = TiltMin
	} else if sample > TiltMax {
		sample = TiltMax
	}
	return -float64(sample) / TiltScale
}

// Step advances b by one tick. The returned position is not clamped: a value
// outside the bar is what signals the end of a round.
func Step(b Body, sample int32, offset int) Result {
	v := (b.Velocity + Acceleration(sample)) * Drag
	v = math.Max(-MaxVelocity, math.Min(MaxVelocity, v))

	p := b.Position + v + float64(offset)/2

	return Result{
		Body:    Body{Position: p, Velocity: v},
		Crossed: p < MinPosition || p > MaxPosition,
	}
}

// Render returns the pin to light for position p, rounding half away from
// zero and keeping the result on the bar.
func Render(p float64) int {
	pin := int(math.Round(p))
	if pin < int(MinPosition) {
		return int(MinPosition)
	}
	if pin > int(MaxPosition) {
		return int(MaxPosition)
	}
	return pin
}
