package vehicle

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"kickshift/backend/internal/mathx"
)

// Contacts land after the tick that reads them, so a sample from the
// previous tick (and only that one) still counts.
const groundedWindowTicks = 1.5

// WheelContact is the most relevant ground sample seen for one wheel.
type WheelContact struct {
	LastGroundedTime float64
	GroundNormal     mgl64.Vec3
	Impulse          float64
}

// Grounded reports whether the sample is recent enough to count this tick.
func (c WheelContact) Grounded(clock Clock) bool {
	return clock.Now-c.LastGroundedTime < clock.DeltaTime*groundedWindowTicks
}

// GroundContacts aggregates contact notifications between ticks.
type GroundContacts struct {
	wheels          [WheelCount]WheelContact
	lastBodyContact float64
	bodyNormal      mgl64.Vec3
}

// NewGroundContacts returns contacts with no wheel ever grounded.
func NewGroundContacts() GroundContacts {
	var g GroundContacts
	g.Reset()
	return g
}

func (g *GroundContacts) Reset() {
	for i := range g.wheels {
		g.wheels[i] = WheelContact{LastGroundedTime: math.Inf(-1)}
	}
	g.lastBodyContact = math.Inf(-1)
	g.bodyNormal = mgl64.Vec3{}
}

// RegisterWheel records a contact for a wheel. A newer sample replaces the
// stored one; at the same time the larger impulse wins, since the physics
// step can report one contact with impulse and one without.
func (g *GroundContacts) RegisterWheel(wheel int, at float64, normal mgl64.Vec3, impulse float64) {
	if wheel < 0 || wheel >= WheelCount {
		return
	}
	prev := g.wheels[wheel]
	if at > prev.LastGroundedTime || (at == prev.LastGroundedTime && impulse > prev.Impulse) {
		g.wheels[wheel] = WheelContact{LastGroundedTime: at, GroundNormal: normal, Impulse: impulse}
	}
}

// RegisterBody records a contact on any non-wheel collider.
func (g *GroundContacts) RegisterBody(at float64, normal mgl64.Vec3) {
	g.lastBodyContact = at
	g.bodyNormal = normal
}

func (g *GroundContacts) Wheel(i int) WheelContact {
	return g.wheels[i]
}

// GroundSample is the aggregated ground state read at the start of a tick.
type GroundSample struct {
	WheelGrounded  [WheelCount]bool
	WheelNormals   [WheelCount]mgl64.Vec3
	GroundedCount  int
	WheelsGrounded bool
	// Normal is the normalized sum of grounded wheel normals, zero when no
	// wheel is grounded.
	Normal       mgl64.Vec3
	BodyGrounded bool
	BodyNormal   mgl64.Vec3
}

// Sample evaluates every wheel against clock.
func (g *GroundContacts) Sample(clock Clock) GroundSample {
	var s GroundSample
	var sum mgl64.Vec3
	for i, w := range g.wheels {
		if !w.Grounded(clock) {
			continue
		}
		s.WheelGrounded[i] = true
		s.WheelNormals[i] = w.GroundNormal
		sum = sum.Add(w.GroundNormal)
		s.GroundedCount++
	}
	s.Normal = mathx.SafeNormalize(sum)
	s.WheelsGrounded = s.GroundedCount >= 3
	s.BodyGrounded = clock.Now-g.lastBodyContact < clock.DeltaTime*groundedWindowTicks
	s.BodyNormal = g.bodyNormal
	return s
}
