package vehicle

import (
	"math"

	"kickshift/backend/internal/mathx"
	"kickshift/backend/internal/physics"
)

// lockOnCharge is the charge above which a launch turns to face the ball.
const lockOnCharge = 0.99

// updateLaunch recharges launch uses, builds charge while held and fires on
// release. Starting a charge pays the minimum cost up front.
func (v *Vehicle) updateLaunch(t *tick) {
	dt := t.clock.DeltaTime
	v.launchCount = mathx.Clamp(v.launchCount+dt*v.cfg.LaunchRechargeSpeed, 0, math.Max(v.cfg.LaunchMaxCount, 1))

	if t.in.Launch && v.launchCount >= 1 {
		delta := math.Min(dt/v.cfg.LaunchChargeDuration, 1-v.launchCharge)
		cost := delta * (v.cfg.LaunchMaxStaminaCost - v.cfg.LaunchMinStaminaCost)
		if v.launchCharge == 0 {
			cost = v.cfg.LaunchMinStaminaCost
		}
		if v.stamina.TryUse(cost) {
			v.launchCharge += delta
		}
	}

	if t.in.Launch || v.launchCharge <= 0 {
		return
	}

	v.launchCount = math.Max(v.launchCount-1, 0)
	release := &LaunchRelease{Charge: v.launchCharge}

	if v.launchCharge > lockOnCharge && t.env != nil {
		if ball := t.env.Ball(); ball != nil {
			toBall := ball.Position.Sub(v.body.Position)
			if toBall.Len() < v.cfg.LaunchBallLockDistance {
				v.body.Rotation = mathx.LookRotation(toBall, mathx.Up)
				release.LockedOn = true
			}
		}
	}

	release.Speed = mathx.Lerp(v.cfg.LaunchMinSpeed, v.cfg.LaunchMaxSpeed, v.launchCharge)
	v.body.AddForce(v.body.Forward().Mul(release.Speed), physics.Impulse)
	v.launchDomeRemaining = mathx.Lerp(v.cfg.LaunchDomeMinDuration, v.cfg.LaunchDomeMaxDuration, v.launchCharge)
	v.launchCharge = 0
	t.report.Launched = release
}

// updateDome keeps the dome collider enabled while the post-launch window
// lasts.
func (v *Vehicle) updateDome(t *tick) {
	v.body.Colliders[v.dome].Disabled = v.launchDomeRemaining <= 0
	v.launchDomeRemaining = math.Max(v.launchDomeRemaining-t.clock.DeltaTime, 0)
}
