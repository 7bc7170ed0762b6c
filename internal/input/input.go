// Package input turns the raw held controls sent by clients into per-tick
// intents with press and release edges.
package input

import (
	"github.com/go-gl/mathgl/mgl64"

	"kickshift/backend/internal/mathx"
	"kickshift/backend/internal/shared/types"
)

// Inputs is what a vehicle reads on one tick.
type Inputs struct {
	Move       mgl64.Vec2
	Look       mgl64.Vec2
	Accelerate float64
	Brake      float64

	JumpPress             bool
	JumpHold              bool
	Dive                  bool
	FastFall              bool
	Pivot                 bool
	BoostPress            bool
	BoostHold             bool
	RecoveryRoll          bool
	ChangeAirRotationAxis bool
	Pulse                 bool
	Crouch                bool
	Launch                bool
}

// Options carries the control preferences that change edge handling.
type Options struct {
	AutomaticAcceleration bool
	DiveOnRelease         bool
}

// Tracker derives edges by comparing each frame with the previous one.
type Tracker struct {
	opts Options
	prev types.CarInput
}

func NewTracker(opts Options) *Tracker {
	return &Tracker{opts: opts}
}

// Reset forgets the previous frame so held buttons register as new presses.
func (t *Tracker) Reset() {
	t.prev = types.CarInput{}
}

// Next consumes a frame and returns the tick intents.
func (t *Tracker) Next(frame types.CarInput) Inputs {
	frame = Clamp(frame)
	prev := t.prev
	t.prev = frame

	in := Inputs{
		Move:                  mgl64.Vec2{frame.Move.X, frame.Move.Y},
		Look:                  mgl64.Vec2{frame.Look.X, frame.Look.Y},
		Accelerate:            frame.Accelerate,
		Brake:                 frame.Brake,
		JumpPress:             frame.Jump && !prev.Jump,
		JumpHold:              frame.Jump,
		FastFall:              frame.FastFall,
		Pivot:                 frame.Pivot,
		BoostPress:            frame.Boost && !prev.Boost,
		BoostHold:             frame.Boost,
		RecoveryRoll:          frame.RecoveryRoll,
		ChangeAirRotationAxis: frame.ChangeAirRotationAxis,
		Pulse:                 frame.Pulse,
		Crouch:                frame.Crouch,
		Launch:                frame.Launch,
	}
	if t.opts.DiveOnRelease {
		in.Dive = !frame.Dive && prev.Dive
	} else {
		in.Dive = frame.Dive && !prev.Dive
	}
	if t.opts.AutomaticAcceleration && in.Brake == 0 {
		in.Accelerate = 1
	}
	return in
}

// Clamp limits stick axes to [-1, 1] and triggers to [0, 1].
func Clamp(in types.CarInput) types.CarInput {
	in.Move.X = mathx.Clamp(in.Move.X, -1, 1)
	in.Move.Y = mathx.Clamp(in.Move.Y, -1, 1)
	in.Look.X = mathx.Clamp(in.Look.X, -1, 1)
	in.Look.Y = mathx.Clamp(in.Look.Y, -1, 1)
	in.Accelerate = mathx.Clamp01(in.Accelerate)
	in.Brake = mathx.Clamp01(in.Brake)
	return in
}
