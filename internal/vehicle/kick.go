package vehicle

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"kickshift/backend/internal/mathx"
	"kickshift/backend/internal/physics"
)

// Kick describes one ball hit.
type Kick struct {
	Collider string
	Speed    float64
	Velocity mgl64.Vec3
}

// HandleBallCollision kicks the ball away from the car when one of the car's
// colliders touches it. Closing speed maps through the kick curve; a low,
// grounded ball is kicked flat unless the player crouches.
func (v *Vehicle) HandleBallCollision(collider string, ball *physics.Body, ballRadius float64) (Kick, bool) {
	if ball == nil {
		v.log.Error().Str("collider", collider).Msg("ball contact without a ball body")
		return Kick{}, false
	}

	dir := mathx.SafeNormalize(ball.Position.Sub(v.body.Position))
	speed := v.body.Velocity().Sub(ball.Velocity()).Dot(dir)

	if v.prevPivot {
		yaw := v.body.AngularVelocity().Y()
		speed += math.Abs(yaw) / 360 * v.cfg.PivotKickBallSpeed
		ball.AddTorque(mgl64.Vec3{0, -yaw * v.cfg.PivotKickBallSpinScale, 0}, physics.VelocityChange)
	}

	kickDir := dir
	if !v.inputs.Crouch && v.ground.WheelsGrounded && ball.Position.Y() < ballRadius*1.25 {
		length := kickDir.Len()
		kickDir[1] = 0
		kickDir = mathx.SafeNormalize(kickDir).Mul(length)
	}

	kick := kickDir.Mul(v.cfg.SpeedToBallHitSpeed.Evaluate(speed))
	ball.AddForce(kick, physics.VelocityChange)
	v.body.AddForce(kick.Mul(-v.cfg.NormalizedBallKickOppositeF), physics.VelocityChange)

	v.log.Debug().
		Float64("speed", speed).
		Float64("normalized", speed/v.cfg.SpeedToBallHitSpeed.MaxTime()).
		Msg("kick")
	return Kick{Collider: collider, Speed: speed, Velocity: kick}, true
}
