package vehicle

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"kickshift/backend/internal/config"
	"kickshift/backend/internal/mathx"
	"kickshift/backend/internal/physics"
)

// applyUprightRoll rolls a tipped car back onto its wheels while it touches
// the ground with fewer than three wheels, or with its body only.
func (v *Vehicle) applyUprightRoll(t *tick) {
	if !v.cfg.AutomaticRecoveryRoll && !t.in.RecoveryRoll {
		return
	}
	var normal mgl64.Vec3
	switch {
	case t.ground.GroundedCount > 0 && t.ground.GroundedCount < 3:
		normal = t.ground.Normal
	case t.ground.GroundedCount == 0 && t.ground.BodyGrounded:
		normal = t.ground.BodyNormal
	default:
		return
	}

	body := v.body
	forward := body.Forward()
	noseUpDown := math.Abs(forward.Dot(normal))
	angle := mathx.SignedAngle(body.Up(), normal, forward)
	upsideDown := mathx.Remap(math.Abs(angle), 0, 180, 0, 1)

	torque := v.cfg.UprightRollTorque
	if angle < 0 {
		torque = -torque
	}
	body.AddTorque(forward.Mul(upsideDown*torque*(1-noseUpDown)), physics.Acceleration)

	if upsideDown < v.cfg.UprightDownForceUpsideDownThreshold {
		point := body.Position.Sub(normal.Mul(v.cfg.UprightDownForceLoweredPointDist))
		body.AddForceAtPosition(normal.Mul(-v.cfg.UprightDownForce), point, physics.Acceleration)
	}
}

func (v *Vehicle) inJumpSquat(now float64) bool {
	return now < v.jumpSquatStart+v.cfg.JumpSquatDuration
}

// updateJump starts a squat on press and launches when the squat ends. The
// jump is big if jump is still held at that moment.
func (v *Vehicle) updateJump(t *tick) {
	now := t.clock.Now
	if t.ground.WheelsGrounded && t.in.JumpPress && !v.inJumpSquat(now) {
		v.jumpSquatStart = now
		t.report.JumpStarted = true
	}
	if v.prevInJumpSquat && !v.inJumpSquat(now) {
		speed := v.cfg.SmallJumpSpeed
		if t.in.JumpHold {
			speed = v.cfg.BigJumpSpeed
		}
		v.body.AddForce(t.ground.Normal.Mul(speed), physics.VelocityChange)
		t.report.Jumped = true
	}
}

// applyFastFall pulls an airborne car down until it reaches the fast-fall
// speed cap.
func (v *Vehicle) applyFastFall(t *tick) {
	if !t.ground.WheelsGrounded && t.in.FastFall && v.body.Velocity().Y() > -v.cfg.FastFallMaxSpeed {
		v.body.AddForce(mathx.Down.Mul(v.cfg.FastFallAcceleration), physics.Acceleration)
	}
}

// updateDive lunges forward once per airborne period, keeping existing
// forward speed and damping the rest.
func (v *Vehicle) updateDive(t *tick) {
	if t.ground.WheelsGrounded || !t.in.Dive || v.diveUsed {
		return
	}
	vel := v.body.Velocity()
	forward := v.body.Forward()
	along := math.Max(vel.Dot(forward), 0)
	orthogonal := mathx.ProjectOnPlane(vel, forward)
	v.body.SetVelocity(forward.Mul(along + v.cfg.DiveSpeed).Add(orthogonal.Mul(v.cfg.DiveOrthogonalVelocityRetention)))
	v.diveUsed = true
	t.report.Dived = true
}

func (v *Vehicle) applyAirControl(t *tick) {
	if t.ground.WheelsGrounded {
		return
	}
	body := v.body
	body.AddTorque(body.Right().Mul(t.in.Move.Y()*v.cfg.AirPitchAcceleration), physics.Acceleration)

	axisType := v.airAxis
	if t.in.ChangeAirRotationAxis {
		axisType = axisType.Alternate()
	}
	var axis mgl64.Vec3
	var accel float64
	switch axisType {
	case config.RotationYaw:
		axis, accel = body.Up(), v.cfg.AirYawAcceleration
	case config.RotationRoll:
		axis, accel = body.Forward().Mul(-1), v.cfg.AirRollAcceleration
	default:
		panic(fmt.Sprintf("unhandled rotation axis %d", int(axisType)))
	}
	body.AddTorque(axis.Mul(t.in.Move.X()*accel), physics.Acceleration)
}
