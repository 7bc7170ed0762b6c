package vehicle

import (
	"math"

	"kickshift/backend/internal/physics"
)

// updateBoostGate validates boost presses. With double tap enabled a press
// only counts if it follows the previous press within the max delay.
func (v *Vehicle) updateBoostGate(t *tick) {
	if !v.cfg.DoubleTapToBoost {
		v.boostPressValid = true
		return
	}
	if t.in.BoostPress {
		now := t.clock.Now
		v.boostPressValid = now <= v.lastBoostPress+v.cfg.DoubleTapToBoostMaxDelay
		v.lastBoostPress = now
	}
}

// updateBoost pays stamina for this tick of boost and pushes the car forward
// along the warm-up ramp.
func (v *Vehicle) updateBoost(t *tick) {
	dt := t.clock.DeltaTime
	allowed := v.cfg.AllowBoostWhilePivoting || !t.in.Pivot
	v.boosting = allowed && t.in.BoostHold && v.boostPressValid &&
		v.stamina.TryUse(v.stamina.cfg.BoostStaminaRate*dt)

	if !v.boosting {
		v.boostStart = math.Inf(1)
		return
	}
	now := t.clock.Now
	if math.IsInf(v.boostStart, 1) {
		v.boostStart = now
	}
	ramp := v.cfg.BoostCurve.Evaluate((now - v.boostStart) / v.cfg.BoostWarmUpDuration)
	v.body.AddForce(v.body.Forward().Mul(ramp*v.cfg.BoostForce*dt), physics.Acceleration)
	t.report.Boosting = true
}

// Boosting reports whether boost fired on the last tick.
func (v *Vehicle) Boosting() bool { return v.boosting }
