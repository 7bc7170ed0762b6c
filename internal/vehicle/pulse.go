package vehicle

import (
	"math"

	"kickshift/backend/internal/mathx"
	"kickshift/backend/internal/physics"
)

func (v *Vehicle) chargingPulse(now float64) bool {
	return v.pulseChargeStart < now
}

// updatePulse charges while held, paying stamina per tick, and releases on
// the first tick it is no longer held. A failed payment stalls the charge
// but keeps what was already stored.
func (v *Vehicle) updatePulse(t *tick) {
	now := t.clock.Now
	if t.in.Pulse {
		if !v.chargingPulse(now) {
			v.pulseChargeStart = now
		}
		delta := mathx.Clamp(v.stamina.cfg.PulseStaminaRate*t.clock.DeltaTime, 0, v.cfg.MaxPulseCharge-v.pulseCharge)
		if v.stamina.TryUse(delta) {
			v.pulseCharge += delta
		}
		return
	}
	if v.chargingPulse(now) {
		v.releasePulse(t)
	}
}

// releasePulse pushes every body within the max radius away from the car.
// Strength falls off with distance past the min radius and grows with charge.
func (v *Vehicle) releasePulse(t *tick) {
	release := &PulseRelease{Charge: v.pulseCharge / v.cfg.MaxPulseCharge}

	if t.env != nil {
		center := v.body.Position
		chargeScale := v.cfg.PulseChargeCurve.Evaluate(release.Charge)
		for _, other := range t.env.OverlapSphere(center, v.cfg.MaxPulseRadius, v.pulseMask) {
			if other == v.body || other.Kinematic {
				continue
			}
			offset := other.Position.Sub(center)
			distanceT := mathx.InverseLerp(v.cfg.MinPulseRadius, v.cfg.MaxPulseRadius, offset.Len())
			speed := chargeScale * v.cfg.PulseDistanceCurve.Evaluate(distanceT) * v.cfg.MaxPulseBallSpeed
			other.AddForce(mathx.SafeNormalize(offset).Mul(speed), physics.VelocityChange)
			release.Targets++
		}
	} else {
		v.log.Error().Msg("pulse released without an environment")
	}

	v.log.Debug().Float64("charge", release.Charge).Int("targets", release.Targets).Msg("pulse released")
	v.pulseChargeStart = math.Inf(1)
	v.pulseCharge = 0
	t.report.PulseReleased = release
}
