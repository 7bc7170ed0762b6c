// Package ball is the match ball: a single sphere with its own gravity and a
// magnus pull from spin.
package ball

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"kickshift/backend/internal/config"
	"kickshift/backend/internal/physics"
)

// TagBall is the tag of the ball's only collider.
const TagBall = "ball"

// Environment contacts land after the tick that reads them, so a contact
// from the previous tick still counts as grounded.
const groundedWindowTicks = 1.5

type Ball struct {
	cfg        *config.BallConfig
	body       *physics.Body
	lastGround float64
}

// New builds the ball body. World gravity is ignored; the ball applies
// its configured gravity itself.
func New(cfg *config.BallConfig) *Ball {
	b := physics.NewBody(TagBall, physics.LayerBall)
	b.Mass = cfg.Mass
	b.GravityScale = 0
	b.Restitution = cfg.Restitution
	b.Friction = cfg.Friction
	b.AngularDrag = cfg.AngularDrag
	radius := cfg.Radius * cfg.Scale
	b.SetInertiaSphere(radius)
	b.Colliders = []physics.Collider{{Tag: TagBall, Radius: radius}}

	ball := &Ball{cfg: cfg, body: b, lastGround: math.Inf(-1)}
	b.UserData = ball
	return ball
}

func (b *Ball) Body() *physics.Body { return b.body }

// Radius is the world radius after scale.
func (b *Ball) Radius() float64 { return b.cfg.Radius * b.cfg.Scale }

// Grounded reports whether the ball touched the arena on the previous step.
func (b *Ball) Grounded(now, dt float64) bool {
	return now-b.lastGround < dt*groundedWindowTicks
}

// Bounds returns the axis-aligned box around the ball.
func (b *Ball) Bounds() (min, max mgl64.Vec3) {
	r := b.Radius()
	ext := mgl64.Vec3{r, r, r}
	return b.body.Position.Sub(ext), b.body.Position.Add(ext)
}

// HandleContact tracks arena contacts for the grounded flag. Contacts with
// other bodies are ignored.
func (b *Ball) HandleContact(c physics.Contact) {
	if c.Body != b.body || c.Other != nil {
		return
	}
	b.lastGround = c.Time
}

// FixedUpdate queues gravity and the magnus acceleration for the next step.
func (b *Ball) FixedUpdate(now, dt float64) {
	spinScale := b.cfg.AirSpinScale
	if b.Grounded(now, dt) {
		spinScale = b.cfg.GroundSpinScale
	}
	// angular velocity is counter-clockwise, the magnus term wants clockwise
	magnus := b.body.Velocity().Cross(b.body.AngularVelocity().Mul(-1)).Mul(spinScale)
	b.body.AddForce(magnus.Mul(dt), physics.Acceleration)
	b.body.AddForce(mgl64.Vec3{0, -b.cfg.Gravity, 0}, physics.Acceleration)
}

// Stop zeroes the ball's velocities.
func (b *Ball) Stop() {
	b.body.Stop()
}

// Reset moves the ball to position at rest.
func (b *Ball) Reset(position mgl64.Vec3) {
	b.body.Position = position
	b.body.Rotation = mgl64.QuatIdent()
	b.Stop()
	b.lastGround = math.Inf(-1)
}
