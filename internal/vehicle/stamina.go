package vehicle

import (
	"math"

	"kickshift/backend/internal/config"
	"kickshift/backend/internal/mathx"
	"kickshift/backend/internal/shared/types"
)

// Stamina is the shared resource spent by boost, pulse and launch.
//
// Any attempt to spend during a tick, successful or not, suppresses that
// tick's recharge. Spending down to zero still succeeds and gasses the
// vehicle out; it stays gassed out until stamina refills to exactly max.
type Stamina struct {
	cfg       *config.StaminaConfig
	value     float64
	gassedOut bool
	used      bool
}

func NewStamina(cfg *config.StaminaConfig) Stamina {
	s := Stamina{cfg: cfg}
	s.Reset()
	return s
}

// Reset restores the spawn state.
func (s *Stamina) Reset() {
	s.value = s.cfg.InitialStamina
	s.gassedOut = false
	s.used = false
}

// TryUse spends amount and reports whether the action may proceed.
func (s *Stamina) TryUse(amount float64) bool {
	if amount < 0 {
		panic("vehicle: negative stamina amount")
	}
	s.used = true
	if s.gassedOut {
		return false
	}
	s.value = math.Max(s.value-amount, 0)
	if s.value > 0 {
		return true
	}
	s.gassedOut = true
	return true
}

// EndTick recharges when nothing tried to spend this tick and clears the
// per-tick usage flag.
func (s *Stamina) EndTick(dt float64) {
	if !s.used {
		rate := s.cfg.NormalStaminaRechargeRate
		if s.value < s.cfg.LowStaminaLevel {
			rate = s.cfg.LowStaminaRechargeRate
		}
		s.value = math.Min(s.value+rate*dt, s.cfg.MaxStamina)
		if s.gassedOut && s.value == s.cfg.MaxStamina {
			s.gassedOut = false
		}
	}
	s.used = false
}

func (s *Stamina) Value() float64     { return s.value }
func (s *Stamina) GassedOut() bool    { return s.gassedOut }
func (s *Stamina) UsedThisTick() bool { return s.used }

// Status is the HUD bar state.
func (s *Stamina) Status() types.StaminaStatus {
	switch {
	case s.gassedOut:
		return types.StaminaGassedOut
	case s.value < s.cfg.MinVisibleStamina:
		return types.StaminaWarning
	case s.value < s.cfg.LowStaminaLevel:
		return types.StaminaLow
	default:
		return types.StaminaNormal
	}
}

// VisibleFraction is the fill of the HUD bar, whose empty end sits at
// MinVisibleStamina.
func (s *Stamina) VisibleFraction() float64 {
	return mathx.InverseLerp(s.cfg.MinVisibleStamina, s.cfg.MaxStamina, s.value)
}
