package vehicle

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"kickshift/backend/internal/mathx"
	"kickshift/backend/internal/physics"
)

// Collision describes a resolved car-on-car hit.
type Collision struct {
	Direction mgl64.Vec3 // from p1 to p2
	Speed     float64
	Strength1 float64
	Strength2 float64
}

// HandlePlayerCollision bounces two cars apart along the line between their
// centres. The car hit more side-on takes the larger share and both lose
// wheel grip for a time proportional to their share. A pair is resolved at
// most once per tick.
func HandlePlayerCollision(p1, p2 *Vehicle, now float64) (Collision, bool) {
	if p1.lastPlayerCollision == now && p2.lastPlayerCollision == now {
		return Collision{}, false
	}

	dir := mathx.SafeNormalize(p2.body.Position.Sub(p1.body.Position))
	speed := p1.body.Velocity().Sub(p2.body.Velocity()).Dot(dir)
	if speed <= 0 {
		return Collision{}, false
	}

	if p1.cfg.PlayerHitImpulseFactor != p2.cfg.PlayerHitImpulseFactor {
		p1.log.Warn().Str("other", p2.ID).Msg("colliding cars have different hit impulse factors, using the first")
	}
	hit := speed*p1.cfg.PlayerHitImpulseFactor + p1.cfg.PlayerHitAddedImpulse

	vuln1 := 1 - math.Abs(p1.body.Forward().Dot(dir)) + p1.cfg.PlayerHitVulnerabilityConstant
	vuln2 := 1 - math.Abs(p2.body.Forward().Dot(dir)) + p2.cfg.PlayerHitVulnerabilityConstant
	total := vuln1 + vuln2

	c := Collision{
		Direction: dir,
		Speed:     speed,
		Strength1: 2 * hit * vuln1 / total,
		Strength2: 2 * hit * vuln2 / total,
	}

	p1.body.AddForce(dir.Mul(-c.Strength1), physics.VelocityChange)
	p2.body.AddForce(dir.Mul(c.Strength2), physics.VelocityChange)

	p1.slipStart, p1.slipEnd = now, now+c.Strength1*p1.cfg.PlayerHitSlipTimeFactor
	p2.slipStart, p2.slipEnd = now, now+c.Strength2*p2.cfg.PlayerHitSlipTimeFactor

	p1.lastPlayerCollision = now
	p2.lastPlayerCollision = now
	return c, true
}

// SlipWindow returns the start and end time of the current grip loss.
func (v *Vehicle) SlipWindow() (float64, float64) {
	return v.slipStart, v.slipEnd
}
