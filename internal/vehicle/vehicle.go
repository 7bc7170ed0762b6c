// Package vehicle implements the per-tick driving and ball-interaction model
// of a player car on top of the physics package.
package vehicle

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"

	"kickshift/backend/internal/config"
	"kickshift/backend/internal/input"
	"kickshift/backend/internal/physics"
	"kickshift/backend/internal/shared/types"
)

// WheelCount is the number of wheels on every vehicle.
const WheelCount = 4

// Collider tags on a vehicle body.
const (
	TagWheel = "wheel"
	TagBody  = "body"
	TagKick  = "kick"
	TagDome  = "dome"
)

// Wheel slots. Front wheels steer.
const (
	WheelFrontLeft = iota
	WheelFrontRight
	WheelRearLeft
	WheelRearRight
)

// Clock is the fixed simulation time of the current tick.
type Clock struct {
	Now       float64
	DeltaTime float64
}

// Environment is what a vehicle may query about the rest of the world.
type Environment interface {
	Gravity() mgl64.Vec3
	// Ball returns nil when no ball is in play.
	Ball() *physics.Body
	OverlapSphere(center mgl64.Vec3, radius float64, mask physics.Layer) []*physics.Body
}

// TickReport lists the discrete things that happened during FixedUpdate.
type TickReport struct {
	Boosting      bool
	JumpStarted   bool
	Jumped        bool
	Dived         bool
	BecameGassed  bool
	PulseReleased *PulseRelease
	Launched      *LaunchRelease
}

// PulseRelease describes a pulse fired this tick: the charge it was released
// with and how many cars it reached.
type PulseRelease struct {
	Charge  float64
	Targets int
}

// LaunchRelease describes a launch fired this tick. LockedOn is set when a
// fully charged launch turned the car to face a nearby ball first.
type LaunchRelease struct {
	Charge   float64
	Speed    float64
	LockedOn bool
}

// Vehicle is one player car. It is not safe for concurrent use; the
// simulation drives it from a single goroutine.
type Vehicle struct {
	ID string

	cfg       *config.CarConfig
	log       zerolog.Logger
	body      *physics.Body
	wheels    [WheelCount]mgl64.Vec3
	dome      int
	pulseMask physics.Layer
	airAxis   config.RotationAxis

	contacts     GroundContacts
	ground       GroundSample
	stamina      Stamina
	inputEnabled bool
	inputs       input.Inputs

	jumpSquatStart  float64
	prevInJumpSquat bool

	boostStart      float64
	lastBoostPress  float64
	boostPressValid bool
	boosting        bool

	pivoting            bool
	prevPivot           bool
	pivotStartDirection mgl64.Vec3
	pivotStartSpeed     float64
	steerDegrees        float64

	diveUsed bool

	pulseChargeStart float64
	pulseCharge      float64

	lastPlayerCollision float64
	slipStart           float64
	slipEnd             float64

	launchCharge        float64
	launchDomeRemaining float64
	launchCount         float64
}

// New builds a vehicle and its physics body. The body still has to be added
// to a physics world by the caller.
func New(id string, car *config.CarConfig, stamina *config.StaminaConfig, log zerolog.Logger) (*Vehicle, error) {
	mask, err := physics.LayerMask(car.PulseLayers...)
	if err != nil {
		return nil, fmt.Errorf("pulse layers: %w", err)
	}
	axis, err := config.ParseRotationAxis(car.DefaultAirRotationAxis)
	if err != nil {
		return nil, err
	}

	v := &Vehicle{
		ID:        id,
		cfg:       car,
		log:       log.With().Str("vehicle", id).Logger(),
		pulseMask: mask,
		airAxis:   axis,
		contacts:  NewGroundContacts(),
		stamina:   NewStamina(stamina),
	}
	v.buildBody()
	v.resetState()
	return v, nil
}

func (v *Vehicle) buildBody() {
	ch := v.cfg.Chassis
	b := physics.NewBody(v.ID, physics.LayerVehicle)
	b.Mass = ch.Mass
	b.SetInertiaBox(ch.HalfExtents.Vec())
	b.Restitution = ch.Restitution
	b.Friction = ch.Friction
	b.AngularDrag = v.cfg.RegularAngularDrag
	b.MaxAngularVelocity = v.cfg.MaxAngularVelocity
	b.UserData = v

	v.wheels = [WheelCount]mgl64.Vec3{
		WheelFrontLeft:  {-ch.WheelHalfTrack, ch.WheelHeight, ch.WheelHalfBase},
		WheelFrontRight: {ch.WheelHalfTrack, ch.WheelHeight, ch.WheelHalfBase},
		WheelRearLeft:   {-ch.WheelHalfTrack, ch.WheelHeight, -ch.WheelHalfBase},
		WheelRearRight:  {ch.WheelHalfTrack, ch.WheelHeight, -ch.WheelHalfBase},
	}
	for i, offset := range v.wheels {
		b.Colliders = append(b.Colliders, physics.Collider{Tag: TagWheel, Slot: i, Offset: offset, Radius: ch.WheelRadius})
	}
	bodyZ := ch.HalfExtents.Z - ch.BodyRadius
	b.Colliders = append(b.Colliders,
		physics.Collider{Tag: TagBody, Offset: mgl64.Vec3{0, 0, bodyZ}, Radius: ch.BodyRadius},
		physics.Collider{Tag: TagBody, Slot: 1, Offset: mgl64.Vec3{0, 0, -bodyZ}, Radius: ch.BodyRadius},
		physics.Collider{Tag: TagKick, Radius: ch.KickTriggerRadius, Trigger: true},
		physics.Collider{Tag: TagDome, Radius: ch.DomeRadius, Trigger: true, Disabled: true},
	)
	v.dome = len(b.Colliders) - 1
	v.body = b
}

func (v *Vehicle) resetState() {
	v.contacts.Reset()
	v.ground = GroundSample{}
	v.stamina.Reset()
	v.inputs = input.Inputs{}

	v.jumpSquatStart = math.Inf(-1)
	v.prevInJumpSquat = false
	v.boostStart = math.Inf(1)
	v.lastBoostPress = math.Inf(-1)
	v.boostPressValid = false
	v.boosting = false
	v.pivoting = false
	v.prevPivot = false
	v.pivotStartDirection = mgl64.Vec3{}
	v.pivotStartSpeed = 0
	v.steerDegrees = 0
	v.diveUsed = false
	v.pulseChargeStart = math.Inf(1)
	v.pulseCharge = 0
	v.lastPlayerCollision = math.Inf(-1)
	v.slipStart = -1
	v.slipEnd = 0
	v.launchCharge = 0
	v.launchDomeRemaining = 0
	v.body.Colliders[v.dome].Disabled = true
}

// Spawn places the vehicle and resets everything a round restart clears.
// The launch count keeps recharging across rounds.
func (v *Vehicle) Spawn(position mgl64.Vec3, rotation mgl64.Quat) {
	v.body.Stop()
	v.body.Position = position
	v.body.Rotation = rotation.Normalize()
	v.resetState()
}

// Body is the rigid body the physics world steps for this car.
func (v *Vehicle) Body() *physics.Body { return v.body }

// SetInputEnabled gates player control. A disabled car still simulates
// but every tick sees an empty input frame.
func (v *Vehicle) SetInputEnabled(b bool) { v.inputEnabled = b }

// InputEnabled reports whether player control is currently applied.
func (v *Vehicle) InputEnabled() bool { return v.inputEnabled }

// Stamina returns the car's live stamina meter.
func (v *Vehicle) Stamina() *Stamina { return &v.stamina }

// Ground returns the wheel and body contact sample of the last tick.
func (v *Vehicle) Ground() GroundSample { return v.ground }

// Inputs returns the input frame consumed by the last tick.
func (v *Vehicle) Inputs() input.Inputs { return v.inputs }

// LaunchCount is the number of launches available, fractional while one
// recharges.
func (v *Vehicle) LaunchCount() float64 { return v.launchCount }

// LaunchCharge is the 0..1 charge of a launch being held.
func (v *Vehicle) LaunchCharge() float64 { return v.launchCharge }

// PulseCharge is the 0..1 charge of a pulse being held.
func (v *Vehicle) PulseCharge() float64 { return v.pulseCharge }

// DomeActive reports whether the dome collider is currently enabled.
func (v *Vehicle) DomeActive() bool { return !v.body.Colliders[v.dome].Disabled }

// HandleContact feeds a physics contact on this vehicle's body into the
// ground aggregation.
func (v *Vehicle) HandleContact(c physics.Contact) {
	if c.Body != v.body || c.Collider < 0 || c.Collider >= len(v.body.Colliders) {
		return
	}
	col := v.body.Colliders[c.Collider]
	switch col.Tag {
	case TagWheel:
		v.contacts.RegisterWheel(col.Slot, c.Time, c.Normal, c.Impulse)
	case TagBody:
		v.contacts.RegisterBody(c.Time, c.Normal)
	}
}

// tick carries the values computed early in FixedUpdate that later steps
// read.
type tick struct {
	clock       Clock
	in          input.Inputs
	env         Environment
	ground      GroundSample
	targetSpeed float64
	pivot       bool
	speed       float64
	report      TickReport
}

// FixedUpdate advances the vehicle by one fixed tick. Forces are queued on
// the body and take effect in the following physics step.
func (v *Vehicle) FixedUpdate(clock Clock, in input.Inputs, env Environment) TickReport {
	if !v.inputEnabled {
		in = input.Inputs{}
	}
	v.inputs = in
	wasGassed := v.stamina.GassedOut()

	t := &tick{clock: clock, in: in, env: env}

	v.updateBoostGate(t)
	t.targetSpeed = math.Max(in.Accelerate-in.Brake, math.Min(in.Move.Y(), 0))

	v.updatePulse(t)
	v.updateBoost(t)

	v.body.MaxAngularVelocity = v.cfg.MaxAngularVelocity

	t.ground = v.contacts.Sample(clock)
	v.ground = t.ground
	if t.ground.WheelsGrounded {
		v.diveUsed = false
	}
	v.applyVelocityFriction(t)

	t.pivot = in.Pivot && t.ground.WheelsGrounded
	t.speed = v.body.Velocity().Dot(v.body.Forward())

	v.applyWallGravity(t)
	if t.pivot {
		v.body.AngularDrag = v.cfg.PivotAngularDrag
	} else {
		v.body.AngularDrag = v.cfg.RegularAngularDrag
	}
	v.updateSteering(t)
	v.applyWheelFriction(t)
	v.updatePivot(t)
	v.applyDriveAcceleration(t)

	v.applyUprightRoll(t)
	v.updateJump(t)
	v.applyFastFall(t)
	v.updateDive(t)

	v.updateLaunch(t)
	v.updateDome(t)

	v.applyAirControl(t)

	v.prevInJumpSquat = v.inJumpSquat(clock.Now)
	v.prevPivot = t.pivot
	v.pivoting = t.pivot

	v.stamina.EndTick(clock.DeltaTime)
	t.report.BecameGassed = !wasGassed && v.stamina.GassedOut()
	return t.report
}

// Snapshot is the read-only presentation view of the vehicle. Identity and
// team fields are left for the caller.
func (v *Vehicle) Snapshot() types.CarState {
	axis := v.airAxis
	if v.inputs.ChangeAirRotationAxis {
		axis = axis.Alternate()
	}
	return types.CarState{
		Position:        types.FromVec(v.body.Position),
		Rotation:        types.FromQuat(v.body.Rotation),
		Velocity:        types.FromVec(v.body.Velocity()),
		AngularVelocity: types.FromVec(v.body.AngularVelocity()),
		Stamina:         v.stamina.Value(),
		StaminaVisible:  v.stamina.VisibleFraction(),
		StaminaStatus:   v.stamina.Status(),
		GassedOut:       v.stamina.GassedOut(),
		GroundedWheels:  v.ground.GroundedCount,
		WheelsGrounded:  v.ground.WheelsGrounded,
		Boosting:        v.boosting,
		Pivoting:        v.pivoting,
		Crouching:       v.inputs.Crouch,
		InJumpSquat:     v.prevInJumpSquat,
		SteerDegrees:    v.steerDegrees,
		PulseCharge:     v.pulseCharge / v.cfg.MaxPulseCharge,
		LaunchCharge:    v.launchCharge,
		LaunchCount:     v.launchCount,
		DomeActive:      v.DomeActive(),
		AirAxis:         axis.String(),
		InputEnabled:    v.inputEnabled,
	}
}
