package vehicle

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kickshift/backend/internal/input"
	"kickshift/backend/internal/mathx"
)

// groundedDecay is GroundedFriction applied over one 1/64 s tick.
func groundedDecay(friction float64) float64 {
	return math.Pow(friction, testDT*frictionFramerate)
}

func TestFastFallOnlyWhileAirborne(t *testing.T) {
	cfg := testConfig()
	env := &fakeEnv{}

	t.Run("grounded", func(t *testing.T) {
		v := newTestVehicle(t, cfg, "p1", mgl64.Vec3{}, 0)
		groundAllWheels(v, 0)
		v.FixedUpdate(clockAt(0), input.Inputs{FastFall: true}, env)
		assert.InDelta(t, 0, v.Body().PendingAcceleration().Y(), 1e-9)
	})

	t.Run("airborne", func(t *testing.T) {
		v := newTestVehicle(t, cfg, "p1", mgl64.Vec3{}, 0)
		v.Body().SetVelocity(mgl64.Vec3{0, -10, 0})
		v.FixedUpdate(clockAt(0), input.Inputs{FastFall: true}, env)
		assert.InDelta(t, -cfg.Car.FastFallAcceleration, v.Body().PendingAcceleration().Y(), 1e-9)
	})

	t.Run("at the speed cap", func(t *testing.T) {
		v := newTestVehicle(t, cfg, "p1", mgl64.Vec3{}, 0)
		v.Body().SetVelocity(mgl64.Vec3{0, -cfg.Car.FastFallMaxSpeed, 0})
		v.FixedUpdate(clockAt(0), input.Inputs{FastFall: true}, env)
		assert.InDelta(t, 0, v.Body().PendingAcceleration().Y(), 1e-9)
	})
}

func TestGroundedVelocityFriction(t *testing.T) {
	cfg := testConfig()
	v := newTestVehicle(t, cfg, "p1", mgl64.Vec3{}, 0)
	groundAllWheels(v, 0)
	v.Body().SetVelocity(mgl64.Vec3{0, 0, 10})

	v.FixedUpdate(clockAt(0), input.Inputs{}, &fakeEnv{})
	assert.InDelta(t, 10*groundedDecay(cfg.Car.GroundedFriction), v.Body().Velocity().Z(), 1e-9)
}

func TestAirFrictionPullsTowardTerminalVelocity(t *testing.T) {
	cfg := testConfig()
	v := newTestVehicle(t, cfg, "p1", mgl64.Vec3{}, 0)
	v.Body().SetVelocity(mgl64.Vec3{0, 0, 60})

	v.FixedUpdate(clockAt(0), input.Inputs{}, &fakeEnv{})
	retain := math.Pow(cfg.Car.AirFrictionAtTerminal, testDT*frictionFramerate)
	want := cfg.Car.AirTerminalVelocity + (60-cfg.Car.AirTerminalVelocity)*retain
	assert.InDelta(t, want, v.Body().Velocity().Z(), 1e-9)

	// below terminal velocity nothing is lost
	v.Body().SetVelocity(mgl64.Vec3{0, 0, 20})
	v.FixedUpdate(clockAt(1), input.Inputs{}, &fakeEnv{})
	assert.InDelta(t, 20, v.Body().Velocity().Z(), 1e-9)
}

func TestWallGravityFollowsWheelNormal(t *testing.T) {
	cfg := testConfig()
	env := &fakeEnv{gravity: mgl64.Vec3{0, -9.81, 0}}

	v := newTestVehicle(t, cfg, "p1", mgl64.Vec3{}, 0)
	for i := 0; i < WheelCount; i++ {
		v.contacts.RegisterWheel(i, 0, mathx.Right, 1)
	}
	v.FixedUpdate(clockAt(0), input.Inputs{}, env)
	acc := v.Body().PendingAcceleration()
	// world gravity is cancelled and re-aimed into the wall
	assert.InDelta(t, -9.81, acc.X(), 1e-9)
	assert.InDelta(t, 9.81, acc.Y(), 1e-9)
	assert.InDelta(t, 0, acc.Z(), 1e-9)

	flat := newTestVehicle(t, cfg, "p2", mgl64.Vec3{}, 0)
	groundAllWheels(flat, 0)
	flat.FixedUpdate(clockAt(0), input.Inputs{}, env)
	assert.InDelta(t, 0, flat.Body().PendingAcceleration().Len(), 1e-9)

	airborne := newTestVehicle(t, cfg, "p3", mgl64.Vec3{}, 0)
	airborne.FixedUpdate(clockAt(0), input.Inputs{}, env)
	assert.InDelta(t, 0, airborne.Body().PendingAcceleration().Len(), 1e-9)
}

func TestPivotEntryRecordsDirectionAndSpeed(t *testing.T) {
	cfg := testConfig()
	v := newTestVehicle(t, cfg, "p1", mgl64.Vec3{}, 0)
	v.Body().SetVelocity(mgl64.Vec3{0, 0, 5})

	groundAllWheels(v, clockAt(0).Now)
	v.FixedUpdate(clockAt(0), input.Inputs{Pivot: true}, &fakeEnv{})

	speed := 5 * groundedDecay(cfg.Car.GroundedFriction)
	assert.True(t, v.Snapshot().Pivoting)
	assert.InDelta(t, 1, v.pivotStartDirection.Z(), 1e-9)
	assert.InDelta(t, speed, v.pivotStartSpeed, 1e-9)
	assert.Equal(t, cfg.Car.PivotAngularDrag, v.Body().AngularDrag)
	// planted: drag only, no drive or wheel grip
	assert.InDelta(t, -speed*cfg.Car.PivotFriction, v.Body().PendingAcceleration().Z(), 1e-9)
	assert.InDelta(t, 0, v.Body().PendingVelocityChange().Len(), 1e-9)

	v.Body().ClearForces()
	groundAllWheels(v, clockAt(1).Now)
	v.FixedUpdate(clockAt(1), input.Inputs{Pivot: true}, &fakeEnv{})
	assert.InDelta(t, speed, v.pivotStartSpeed, 1e-9, "entry speed is kept while pivoting")
}

func TestPivotNeedsGroundedWheels(t *testing.T) {
	cfg := testConfig()
	v := newTestVehicle(t, cfg, "p1", mgl64.Vec3{}, 0)

	v.FixedUpdate(clockAt(0), input.Inputs{Pivot: true}, &fakeEnv{})
	assert.False(t, v.Snapshot().Pivoting)
	assert.Equal(t, cfg.Car.RegularAngularDrag, v.Body().AngularDrag)
}

func TestPivotTurnsAroundThenSnaps(t *testing.T) {
	cfg := testConfig()
	v := newTestVehicle(t, cfg, "p1", mgl64.Vec3{}, 0)
	turn := input.Inputs{Pivot: true, Move: mgl64.Vec2{0, -1}}

	groundAllWheels(v, clockAt(0).Now)
	v.FixedUpdate(clockAt(0), turn, &fakeEnv{})
	require.InDelta(t, 1, v.pivotStartDirection.Z(), 1e-9)

	// at right angles to the target the full turn acceleration applies
	v.Body().ClearForces()
	v.Body().Rotation = mathx.YawRotation(90)
	groundAllWheels(v, clockAt(1).Now)
	v.FixedUpdate(clockAt(1), turn, &fakeEnv{})
	yaw := v.Body().PendingAngularAcceleration()
	assert.InDelta(t, cfg.Car.Pivot180GroundYawAcceleration, yaw.Y(), 1e-9)

	// within three degrees the spin is stopped dead
	v.Body().ClearForces()
	v.Body().Rotation = mathx.YawRotation(178.5)
	v.Body().SetAngularVelocity(mgl64.Vec3{0, 4, 0})
	groundAllWheels(v, clockAt(2).Now)
	v.FixedUpdate(clockAt(2), turn, &fakeEnv{})
	assert.Equal(t, mgl64.Vec3{}, v.Body().AngularVelocity())
	assert.InDelta(t, 0, v.Body().PendingAngularAcceleration().Len(), 1e-9)
}

func TestPivotSteersWithStick(t *testing.T) {
	cfg := testConfig()
	v := newTestVehicle(t, cfg, "p1", mgl64.Vec3{}, 0)

	groundAllWheels(v, 0)
	v.FixedUpdate(clockAt(0), input.Inputs{Pivot: true, Move: mgl64.Vec2{-0.5, 0}}, &fakeEnv{})
	assert.InDelta(t, -0.5*cfg.Car.PivotGroundYawAcceleration, v.Body().PendingAngularAcceleration().Y(), 1e-9)
}

func TestPivotExitClampsSpinAndRedirects(t *testing.T) {
	cfg := testConfig()
	entry := 8 * groundedDecay(cfg.Car.GroundedFriction)

	cases := map[string]struct {
		velocity mgl64.Vec3
		redirect float64
	}{
		"forwards":  {mgl64.Vec3{0, 0, 3}, cfg.Car.PivotForwardRedirectFactor},
		"sideways":  {mgl64.Vec3{3, 0, 0}, (cfg.Car.PivotForwardRedirectFactor + cfg.Car.PivotBackwardsRedirectFactor) / 2},
		"backwards": {mgl64.Vec3{0, 0, -3}, cfg.Car.PivotBackwardsRedirectFactor},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			v := newTestVehicle(t, cfg, "p1", mgl64.Vec3{}, 0)
			v.Body().SetVelocity(mgl64.Vec3{0, 0, 8})
			groundAllWheels(v, clockAt(0).Now)
			v.FixedUpdate(clockAt(0), input.Inputs{Pivot: true}, &fakeEnv{})

			v.Body().ClearForces()
			v.Body().SetVelocity(tc.velocity)
			v.Body().SetAngularVelocity(mgl64.Vec3{0, 5, 0})
			groundAllWheels(v, clockAt(1).Now)
			v.FixedUpdate(clockAt(1), input.Inputs{Accelerate: 1}, &fakeEnv{})

			assert.False(t, v.Snapshot().Pivoting)
			w := v.Body().AngularVelocity()
			assert.InDelta(t, cfg.Car.EndPivotMaxAngularVelocity, w.Y(), 1e-9)

			vel := v.Body().Velocity()
			assert.InDelta(t, 0, vel.X(), 1e-9)
			assert.InDelta(t, entry*tc.redirect, vel.Z(), 1e-6)
		})
	}
}

func TestPivotExitWithoutThrottleKeepsVelocity(t *testing.T) {
	cfg := testConfig()
	v := newTestVehicle(t, cfg, "p1", mgl64.Vec3{}, 0)
	v.Body().SetVelocity(mgl64.Vec3{0, 0, 8})
	groundAllWheels(v, clockAt(0).Now)
	v.FixedUpdate(clockAt(0), input.Inputs{Pivot: true}, &fakeEnv{})

	v.Body().SetVelocity(mgl64.Vec3{3, 0, 0})
	groundAllWheels(v, clockAt(1).Now)
	v.FixedUpdate(clockAt(1), input.Inputs{}, &fakeEnv{})
	assert.InDelta(t, 3*groundedDecay(cfg.Car.GroundedFriction), v.Body().Velocity().X(), 1e-9)
}

func TestWheelFrictionResistsSliding(t *testing.T) {
	cfg := testConfig()
	slide := 3 * groundedDecay(cfg.Car.GroundedFriction)
	// fully sideways wheels sit at the end of the sidewaysness curve
	grip := cfg.Car.SidewaysnessVsFriction.Evaluate(1)

	lateral := func(v *Vehicle, i int) float64 {
		v.Body().SetVelocity(mgl64.Vec3{3, 0, 0})
		groundAllWheels(v, clockAt(i).Now)
		v.FixedUpdate(clockAt(i), input.Inputs{}, &fakeEnv{})
		return v.Body().PendingVelocityChange().X()
	}

	v := newTestVehicle(t, cfg, "p1", mgl64.Vec3{}, 0)
	full := lateral(v, 0)
	want := -slide * mathx.OldLerpCoefficientToBetterLerpCoefficient(grip, frictionFramerate, testDT)
	assert.InDelta(t, want, full, 1e-9)
	assert.InDelta(t, 0, v.Body().PendingVelocityChange().Z(), 1e-9)

	// halfway through a slip window the wheels have half their grip
	slipping := newTestVehicle(t, cfg, "p2", mgl64.Vec3{}, 0)
	slipping.slipStart, slipping.slipEnd = 0, 1
	half := lateral(slipping, 32)
	want = -slide * mathx.OldLerpCoefficientToBetterLerpCoefficient(grip/2, frictionFramerate, testDT)
	assert.InDelta(t, want, half, 1e-9)
	assert.Greater(t, half, full)
}

func TestWheelFrictionKeepsRollingSpeed(t *testing.T) {
	cfg := testConfig()
	v := newTestVehicle(t, cfg, "p1", mgl64.Vec3{}, 0)
	v.Body().SetVelocity(mgl64.Vec3{0, 0, 10})
	groundAllWheels(v, 0)

	v.FixedUpdate(clockAt(0), input.Inputs{}, &fakeEnv{})
	assert.InDelta(t, 0, v.Body().PendingVelocityChange().Len(), 1e-9)
}

func TestUprightRoll(t *testing.T) {
	cfg := testConfig()
	recovery := input.Inputs{RecoveryRoll: true}
	roll := func(degrees float64) mgl64.Quat {
		return mgl64.QuatRotate(mgl64.DegToRad(degrees), mathx.Forward)
	}

	t.Run("two wheels down", func(t *testing.T) {
		v := newTestVehicle(t, cfg, "p1", mgl64.Vec3{}, 0)
		v.Body().Rotation = roll(45)
		v.contacts.RegisterWheel(WheelFrontLeft, 0, mathx.Up, 1)
		v.contacts.RegisterWheel(WheelRearLeft, 0, mathx.Up, 1)

		v.FixedUpdate(clockAt(0), recovery, &fakeEnv{})
		// a quarter upside down rolls back at a quarter torque
		torque := v.Body().PendingAngularAcceleration()
		assert.InDelta(t, -0.25*cfg.Car.UprightRollTorque, torque.Z(), 1e-6)
		assert.InDelta(t, 0, torque.X(), 1e-6)
		// and is pinned down while it is nearly upright
		assert.InDelta(t, -cfg.Car.UprightDownForce, v.Body().PendingAcceleration().Y(), 1e-9)
	})

	t.Run("on its roof", func(t *testing.T) {
		v := newTestVehicle(t, cfg, "p1", mgl64.Vec3{}, 0)
		v.Body().Rotation = roll(135)
		v.contacts.RegisterBody(0, mathx.Up)

		v.FixedUpdate(clockAt(0), recovery, &fakeEnv{})
		torque := v.Body().PendingAngularAcceleration()
		assert.InDelta(t, -0.75*cfg.Car.UprightRollTorque, torque.Z(), 1e-6)
		assert.InDelta(t, 0, v.Body().PendingAcceleration().Len(), 1e-9)
	})

	t.Run("not requested", func(t *testing.T) {
		v := newTestVehicle(t, cfg, "p1", mgl64.Vec3{}, 0)
		v.Body().Rotation = roll(135)
		v.contacts.RegisterBody(0, mathx.Up)

		v.FixedUpdate(clockAt(0), input.Inputs{}, &fakeEnv{})
		assert.InDelta(t, 0, v.Body().PendingAngularAcceleration().Len(), 1e-9)
	})

	t.Run("all wheels down", func(t *testing.T) {
		v := newTestVehicle(t, cfg, "p1", mgl64.Vec3{}, 0)
		groundAllWheels(v, 0)

		v.FixedUpdate(clockAt(0), recovery, &fakeEnv{})
		assert.InDelta(t, 0, v.Body().PendingAngularAcceleration().Len(), 1e-9)
	})
}
