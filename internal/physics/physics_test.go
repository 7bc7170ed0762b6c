package physics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dt = 1.0 / 64

func newSphere(name string, layer Layer, pos mgl64.Vec3, radius float64) *Body {
	b := NewBody(name, layer)
	b.Position = pos
	b.Colliders = []Collider{{Tag: "shape", Radius: radius}}
	b.SetInertiaSphere(radius)
	return b
}

func TestForceModes(t *testing.T) {
	w := NewWorld(mgl64.Vec3{})
	b := w.AddBody(NewBody("b", LayerDefault))
	b.Mass = 2

	b.AddForce(mgl64.Vec3{2, 0, 0}, Force)
	b.AddForce(mgl64.Vec3{0, 1, 0}, Acceleration)
	b.AddForce(mgl64.Vec3{0, 0, 4}, Impulse)
	b.AddForce(mgl64.Vec3{0, 0, 1}, VelocityChange)
	w.Step(0, dt)

	v := b.Velocity()
	assert.InDelta(t, 1*dt, v.X(), 1e-12)
	assert.InDelta(t, 1*dt, v.Y(), 1e-12)
	assert.InDelta(t, 3, v.Z(), 1e-12)
}

func TestSetVelocityKeepsPendingForces(t *testing.T) {
	w := NewWorld(mgl64.Vec3{})
	b := w.AddBody(NewBody("b", LayerDefault))

	b.AddForce(mgl64.Vec3{0, 0, 5}, VelocityChange)
	b.SetVelocity(mgl64.Vec3{1, 0, 0})
	assert.Equal(t, mgl64.Vec3{0, 0, 5}, b.PendingVelocityChange())

	w.Step(0, dt)
	assert.Equal(t, mgl64.Vec3{1, 0, 5}, b.Velocity())
	assert.Equal(t, mgl64.Vec3{}, b.PendingVelocityChange())
}

func TestForceAtPositionSpins(t *testing.T) {
	b := NewBody("b", LayerDefault)
	b.SetInertiaBox(mgl64.Vec3{1, 1, 1})
	b.AddForceAtPosition(mgl64.Vec3{0, 0, 1}, mgl64.Vec3{1, 0, 0}, VelocityChange)

	assert.Equal(t, mgl64.Vec3{0, 0, 1}, b.PendingVelocityChange())
	// force along +Z at +X yaws the nose toward -X
	assert.Less(t, b.PendingAngularVelocityChange().Y(), 0.0)
}

func TestMaxAngularVelocityClamp(t *testing.T) {
	w := NewWorld(mgl64.Vec3{})
	b := w.AddBody(NewBody("b", LayerDefault))
	b.MaxAngularVelocity = 2
	b.AddTorque(mgl64.Vec3{0, 10, 0}, VelocityChange)
	w.Step(0, dt)
	assert.InDelta(t, 2, b.AngularVelocity().Len(), 1e-12)
}

func TestGravityAndFloorContact(t *testing.T) {
	w := NewWorld(mgl64.Vec3{0, -10, 0})
	w.AddPlane(PlaneThrough("floor", mgl64.Vec3{}, mgl64.Vec3{0, 1, 0}, 0, 0.5))

	b := w.AddBody(newSphere("ball", LayerBall, mgl64.Vec3{0, 0.5, 0}, 0.5))

	var contacts []Contact
	w.SetContactListener(func(c Contact) { contacts = append(contacts, c) })

	for i := 0; i < 10; i++ {
		w.Step(float64(i)*dt, dt)
	}
	require.NotEmpty(t, contacts)
	last := contacts[len(contacts)-1]
	assert.Equal(t, "floor", last.Plane)
	assert.Equal(t, b, last.Body)
	assert.InDelta(t, 1, last.Normal.Y(), 1e-12)
	assert.InDelta(t, 0.5, b.Position.Y(), 0.05)
	assert.GreaterOrEqual(t, b.Velocity().Y(), 0.0)
}

func TestBouncingSpheres(t *testing.T) {
	w := NewWorld(mgl64.Vec3{})
	a := w.AddBody(newSphere("a", LayerDefault, mgl64.Vec3{-0.45, 0, 0}, 0.5))
	b := w.AddBody(newSphere("b", LayerDefault, mgl64.Vec3{0.45, 0, 0}, 0.5))
	a.Restitution, b.Restitution = 1, 1
	a.SetVelocity(mgl64.Vec3{1, 0, 0})
	b.SetVelocity(mgl64.Vec3{-1, 0, 0})

	w.Step(0, dt)
	assert.InDelta(t, -1, a.Velocity().X(), 1e-9)
	assert.InDelta(t, 1, b.Velocity().X(), 1e-9)
}

func TestTriggerEnterReportedOnce(t *testing.T) {
	w := NewWorld(mgl64.Vec3{})
	car := NewBody("car", LayerVehicle)
	car.Colliders = []Collider{{Tag: "kick", Radius: 1, Trigger: true}}
	w.AddBody(car)
	ball := w.AddBody(newSphere("ball", LayerBall, mgl64.Vec3{0, 0, 1.2}, 0.5))

	var events []TriggerEvent
	w.SetTriggerListener(func(e TriggerEvent) { events = append(events, e) })

	w.Step(0, dt)
	w.Step(dt, dt)
	require.Len(t, events, 2)
	assert.True(t, events[0].Enter)
	assert.False(t, events[1].Enter)
	assert.Equal(t, ball, events[0].Other)

	ball.Position = mgl64.Vec3{0, 0, 10}
	w.Step(2*dt, dt)
	ball.Position = mgl64.Vec3{0, 0, 1.2}
	w.Step(3*dt, dt)
	require.Len(t, events, 3)
	assert.True(t, events[2].Enter)
}

func TestOverlapSphere(t *testing.T) {
	w := NewWorld(mgl64.Vec3{})
	near := w.AddBody(newSphere("near", LayerBall, mgl64.Vec3{0, 0, 3}, 0.5))
	w.AddBody(newSphere("far", LayerBall, mgl64.Vec3{0, 0, 10}, 0.5))
	car := w.AddBody(newSphere("car", LayerVehicle, mgl64.Vec3{2, 0, 0}, 0.5))

	got := w.OverlapSphere(mgl64.Vec3{}, 5, AllLayers)
	assert.Equal(t, []*Body{near, car}, got)

	got = w.OverlapSphere(mgl64.Vec3{}, 5, LayerBall)
	assert.Equal(t, []*Body{near}, got)

	near.Position = mgl64.Vec3{0, 0, 20}
	w.Step(0, dt)
	got = w.OverlapSphere(mgl64.Vec3{}, 5, LayerBall)
	assert.Empty(t, got)
}

func TestExplosionForce(t *testing.T) {
	b := NewBody("b", LayerDefault)
	b.Position = mgl64.Vec3{0, 0, 5}
	b.AddExplosionForce(10, mgl64.Vec3{}, 10, 0, VelocityChange)
	assert.InDelta(t, 5, b.PendingVelocityChange().Z(), 1e-12)

	c := NewBody("c", LayerDefault)
	c.Position = mgl64.Vec3{0, 0, 20}
	c.AddExplosionForce(10, mgl64.Vec3{}, 10, 0, VelocityChange)
	assert.Equal(t, mgl64.Vec3{}, c.PendingVelocityChange())
}

func TestLayerMask(t *testing.T) {
	m, err := LayerMask("ball", "vehicle")
	require.NoError(t, err)
	assert.Equal(t, LayerBall|LayerVehicle, m)

	_, err = LayerMask("water")
	assert.Error(t, err)
}
