package vehicle

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"kickshift/backend/internal/mathx"
	"kickshift/backend/internal/physics"
)

const (
	// friction values are tuned as per-frame factors at this rate
	frictionFramerate = 60.0

	pivot180StickThreshold = -0.6
	pivot180SnapDegrees    = 3.0
	pivot180MinSpeedSqr    = 0.01
)

func (v *Vehicle) applyVelocityFriction(t *tick) {
	vel := v.body.Velocity()
	if t.ground.WheelsGrounded {
		v.body.SetVelocity(vel.Mul(math.Pow(v.cfg.GroundedFriction, t.clock.DeltaTime*frictionFramerate)))
		return
	}
	clamped := mathx.ClampMagnitude(vel, v.cfg.AirTerminalVelocity)
	retain := math.Pow(v.cfg.AirFrictionAtTerminal, t.clock.DeltaTime*frictionFramerate)
	v.body.SetVelocity(mathx.LerpVec(clamped, vel, retain))
}

// applyWallGravity re-aims gravity along the wheel ground normal so the car
// sticks to walls and ramps.
func (v *Vehicle) applyWallGravity(t *tick) {
	if t.ground.GroundedCount == 0 || t.env == nil {
		return
	}
	g := t.env.Gravity().Y()
	wall := t.ground.Normal.Mul(g)
	counter := mathx.Up.Mul(-g)
	v.body.AddForce(wall.Add(counter), physics.Acceleration)
}

func (v *Vehicle) updateSteering(t *tick) {
	factor := v.cfg.WheelTurnFactorBySpeed.Evaluate(math.Abs(t.speed) / v.cfg.DrivingSpeed)
	v.steerDegrees = t.in.Move.X() * factor * v.cfg.MaxWheelTurnDegrees
}

// wheelFrame returns the world position and rotation of a wheel. Front
// wheels carry the current steer angle.
func (v *Vehicle) wheelFrame(i int) (mgl64.Vec3, mgl64.Quat) {
	rot := v.body.Rotation
	if i == WheelFrontLeft || i == WheelFrontRight {
		rot = rot.Mul(mathx.YawRotation(v.steerDegrees))
	}
	return v.body.TransformPoint(v.wheels[i]), rot
}

// slipFactor scales wheel friction back in over the slip window that follows
// a player collision.
func (v *Vehicle) slipFactor(now float64) float64 {
	if now >= v.slipEnd {
		return 1
	}
	return mathx.InverseLerp(0, v.slipEnd-v.slipStart, now-v.slipStart)
}

// applyWheelFriction pulls each wheel's ground velocity toward its rolling
// direction. Friction drops as the wheel slides sideways.
func (v *Vehicle) applyWheelFriction(t *tick) {
	if !t.ground.WheelsGrounded || t.pivot {
		return
	}
	pos := v.body.Position
	up := v.body.Up()
	slip := v.slipFactor(t.clock.Now)

	for i := 0; i < WheelCount; i++ {
		normal := t.ground.Normal
		if t.ground.WheelGrounded[i] {
			normal = t.ground.WheelNormals[i]
		}
		wheelPos, wheelRot := v.wheelFrame(i)
		toLocal := wheelRot.Inverse()

		world := mathx.ProjectOnPlane(v.body.PointVelocity(wheelPos), normal)
		local := toLocal.Rotate(world)

		wheelForward := wheelRot.Rotate(mathx.Forward)
		rolling := wheelForward
		if world.Dot(wheelForward) <= 0 {
			rolling = wheelForward.Mul(-1)
		}
		rolling = mathx.SafeNormalize(mathx.ProjectOnPlane(rolling, normal))

		retained := local.Len() * mathx.InverseLerp(0, v.cfg.FullSpeedRetainDotProduct, rolling.Dot(mathx.SafeNormalize(world)))
		target := toLocal.Rotate(rolling).Mul(retained)
		diff := target.Sub(local)

		dir := mathx.SafeNormalize(local)
		sidewaysness := math.Acos(mathx.Clamp(math.Abs(dir.Z()), 0, 1)) / (math.Pi / 2)
		friction := v.cfg.SidewaysnessVsFriction.Evaluate(sidewaysness) * slip
		lerp := mathx.OldLerpCoefficientToBetterLerpCoefficient(friction, frictionFramerate, t.clock.DeltaTime)

		impulse := wheelRot.Rotate(diff.Mul(lerp / WheelCount))
		// push at the wheel, raised to the height of the centre of mass
		forcePoint := pos.Add(mathx.ProjectOnPlane(wheelPos.Sub(pos), up))
		v.body.AddForceAtPosition(impulse, forcePoint, physics.VelocityChange)
	}
}

// updatePivot handles the planted spin: it records the entry state, drags
// the car to a stop, turns it in place and redirects speed on exit.
func (v *Vehicle) updatePivot(t *tick) {
	body := v.body
	forward, up := body.Forward(), body.Up()

	if t.pivot && !v.prevPivot {
		v.pivotStartDirection = forward
		v.pivotStartSpeed = body.Velocity().Len()
	}

	if t.pivot {
		body.AddForce(body.Velocity().Mul(-v.cfg.PivotFriction), physics.Acceleration)

		if t.in.Move.Y() < pivot180StickThreshold {
			target := mathx.SafeNormalize(mathx.ProjectOnPlane(v.pivotStartDirection.Mul(-1), t.ground.Normal))
			if vel := body.Velocity(); vel.Dot(vel) > pivot180MinSpeedSqr {
				target = mathx.SafeNormalize(vel).Mul(-1)
			}
			angle := mathx.SignedAngle(forward, target, up)
			if math.Abs(angle) < pivot180SnapDegrees {
				body.SetAngularVelocity(mgl64.Vec3{})
			} else {
				body.AddTorque(up.Mul(mathx.Sign(angle)*v.cfg.Pivot180GroundYawAcceleration), physics.Acceleration)
			}
		} else {
			body.AddTorque(up.Mul(t.in.Move.X()*v.cfg.PivotGroundYawAcceleration), physics.Acceleration)
		}
	}

	if t.ground.WheelsGrounded && !t.pivot && v.prevPivot {
		if w := body.AngularVelocity(); w.Len() > v.cfg.EndPivotMaxAngularVelocity {
			body.SetAngularVelocity(mathx.SafeNormalize(w).Mul(v.cfg.EndPivotMaxAngularVelocity))
		}
		if t.targetSpeed > 0 {
			offAxis := math.Abs(mathx.SignedAngle(body.Velocity(), forward, up))
			forwardness := mathx.InverseLerp(180, 0, offAxis)
			redirect := mathx.Lerp(v.cfg.PivotBackwardsRedirectFactor, v.cfg.PivotForwardRedirectFactor, forwardness)
			body.SetVelocity(forward.Mul(v.pivotStartSpeed * redirect))
		}
	}
}

func (v *Vehicle) applyDriveAcceleration(t *tick) {
	if !t.ground.WheelsGrounded || t.pivot {
		return
	}
	target := v.cfg.DrivingSpeed * t.targetSpeed
	var accel float64
	if target != 0 {
		overspeed := t.speed / target
		accel = v.cfg.DrivingAccelerationCurve.Evaluate(overspeed) * v.cfg.MaxDrivingAcceleration * mathx.Sign(target)
	} else {
		accel = -(t.speed / v.cfg.DrivingSpeed) * v.cfg.MaxDrivingAcceleration
	}
	v.body.AddForce(v.body.Forward().Mul(accel), physics.Acceleration)
}
