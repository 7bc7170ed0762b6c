// Package physics is the rigid-body substrate the simulation runs on.
// Conventions: Y up, +Z forward, +X right.
package physics

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ForceMode selects how AddForce and AddTorque interpret their argument.
type ForceMode int

const (
	// Force is a continuous force scaled by mass and dt.
	Force ForceMode = iota
	// Acceleration is a continuous acceleration scaled by dt, ignoring mass.
	Acceleration
	// Impulse is an instantaneous momentum change scaled by mass.
	Impulse
	// VelocityChange is an instantaneous velocity change ignoring mass.
	VelocityChange
)

func (m ForceMode) String() string {
	switch m {
	case Force:
		return "force"
	case Acceleration:
		return "acceleration"
	case Impulse:
		return "impulse"
	case VelocityChange:
		return "velocity_change"
	default:
		panic(fmt.Sprintf("unhandled force mode %d", int(m)))
	}
}

// Layer is a collision layer bit mask.
type Layer uint32

const (
	LayerDefault Layer = 1 << iota
	LayerEnvironment
	LayerVehicle
	LayerBall

	AllLayers Layer = ^Layer(0)
)

var layerNames = map[string]Layer{
	"default":     LayerDefault,
	"environment": LayerEnvironment,
	"vehicle":     LayerVehicle,
	"ball":        LayerBall,
}

// LayerMask combines named layers into a mask.
func LayerMask(names ...string) (Layer, error) {
	var mask Layer
	for _, n := range names {
		l, ok := layerNames[n]
		if !ok {
			return 0, fmt.Errorf("unknown layer %q", n)
		}
		mask |= l
	}
	return mask, nil
}

// Collider is a sphere attached to a body at a local offset.
type Collider struct {
	Tag      string
	Slot     int
	Offset   mgl64.Vec3
	Radius   float64
	Trigger  bool
	Disabled bool
}

// Body is a rigid body. Forces added through the Add* methods are collected
// and only change the velocity at the next integration, so writing Velocity
// directly in between keeps them.
type Body struct {
	ID       int
	Name     string
	Layer    Layer
	Collides Layer

	Position mgl64.Vec3
	Rotation mgl64.Quat

	Mass               float64
	LinearDrag         float64
	AngularDrag        float64
	MaxAngularVelocity float64
	GravityScale       float64
	Restitution        float64
	Friction           float64
	Kinematic          bool

	Colliders []Collider
	UserData  any

	inertia         mgl64.Vec3
	velocity        mgl64.Vec3
	angularVelocity mgl64.Vec3

	accel      mgl64.Vec3
	deltaV     mgl64.Vec3
	angAccel   mgl64.Vec3
	deltaOmega mgl64.Vec3
}

// NewBody returns a unit-mass body at the origin that collides with everything.
func NewBody(name string, layer Layer) *Body {
	return &Body{
		Name:         name,
		Layer:        layer,
		Collides:     AllLayers,
		Rotation:     mgl64.QuatIdent(),
		Mass:         1,
		GravityScale: 1,
		inertia:      mgl64.Vec3{1, 1, 1},
	}
}

// SetInertiaBox sets the inertia of a solid box with the given half extents.
func (b *Body) SetInertiaBox(halfExtents mgl64.Vec3) {
	x2, y2, z2 := halfExtents.X()*halfExtents.X(), halfExtents.Y()*halfExtents.Y(), halfExtents.Z()*halfExtents.Z()
	k := b.Mass / 3
	b.inertia = mgl64.Vec3{k * (y2 + z2), k * (x2 + z2), k * (x2 + y2)}
}

// SetInertiaSphere sets the inertia of a solid sphere.
func (b *Body) SetInertiaSphere(radius float64) {
	i := 0.4 * b.Mass * radius * radius
	b.inertia = mgl64.Vec3{i, i, i}
}

func (b *Body) Velocity() mgl64.Vec3        { return b.velocity }
func (b *Body) AngularVelocity() mgl64.Vec3 { return b.angularVelocity }

// SetVelocity overwrites the current velocity. Pending forces still apply.
func (b *Body) SetVelocity(v mgl64.Vec3) { b.velocity = v }

// SetAngularVelocity overwrites the current angular velocity (rad/s).
func (b *Body) SetAngularVelocity(w mgl64.Vec3) { b.angularVelocity = w }

// PendingVelocityChange is the instantaneous velocity change queued for the
// next integration by Impulse and VelocityChange forces.
func (b *Body) PendingVelocityChange() mgl64.Vec3 { return b.deltaV }

// PendingAngularVelocityChange is the instantaneous angular counterpart.
func (b *Body) PendingAngularVelocityChange() mgl64.Vec3 { return b.deltaOmega }

// PendingAcceleration is the continuous acceleration queued for the next
// integration by Force and Acceleration forces.
func (b *Body) PendingAcceleration() mgl64.Vec3 { return b.accel }

// PendingAngularAcceleration is the angular counterpart of
// PendingAcceleration, in rad/s².
func (b *Body) PendingAngularAcceleration() mgl64.Vec3 { return b.angAccel }

func (b *Body) Forward() mgl64.Vec3 { return b.Rotation.Rotate(mgl64.Vec3{0, 0, 1}) }
func (b *Body) Right() mgl64.Vec3   { return b.Rotation.Rotate(mgl64.Vec3{1, 0, 0}) }
func (b *Body) Up() mgl64.Vec3      { return b.Rotation.Rotate(mgl64.Vec3{0, 1, 0}) }

// TransformPoint converts a body-local point to world space.
func (b *Body) TransformPoint(local mgl64.Vec3) mgl64.Vec3 {
	return b.Position.Add(b.Rotation.Rotate(local))
}

// InverseTransformDirection converts a world direction to body space.
func (b *Body) InverseTransformDirection(dir mgl64.Vec3) mgl64.Vec3 {
	return b.Rotation.Inverse().Rotate(dir)
}

// PointVelocity is the world velocity of a world-space point on the body.
func (b *Body) PointVelocity(point mgl64.Vec3) mgl64.Vec3 {
	return b.velocity.Add(b.angularVelocity.Cross(point.Sub(b.Position)))
}

// ColliderCenter is the world position of collider i.
func (b *Body) ColliderCenter(i int) mgl64.Vec3 {
	return b.TransformPoint(b.Colliders[i].Offset)
}

func (b *Body) inverseMass() float64 {
	if b.Kinematic || b.Mass <= 0 {
		return 0
	}
	return 1 / b.Mass
}

// applyInverseInertia multiplies a world-space vector by the world inverse
// inertia tensor.
func (b *Body) applyInverseInertia(v mgl64.Vec3) mgl64.Vec3 {
	if b.Kinematic {
		return mgl64.Vec3{}
	}
	local := b.Rotation.Inverse().Rotate(v)
	for i := 0; i < 3; i++ {
		if b.inertia[i] > 0 {
			local[i] /= b.inertia[i]
		} else {
			local[i] = 0
		}
	}
	return b.Rotation.Rotate(local)
}

// AddForce queues a force through the centre of mass.
func (b *Body) AddForce(f mgl64.Vec3, mode ForceMode) {
	switch mode {
	case Force:
		b.accel = b.accel.Add(f.Mul(b.inverseMass()))
	case Acceleration:
		b.accel = b.accel.Add(f)
	case Impulse:
		b.deltaV = b.deltaV.Add(f.Mul(b.inverseMass()))
	case VelocityChange:
		b.deltaV = b.deltaV.Add(f)
	default:
		panic(fmt.Sprintf("unhandled force mode %d", int(mode)))
	}
}

// AddTorque queues a torque. Acceleration and VelocityChange ignore inertia.
func (b *Body) AddTorque(t mgl64.Vec3, mode ForceMode) {
	switch mode {
	case Force:
		b.angAccel = b.angAccel.Add(b.applyInverseInertia(t))
	case Acceleration:
		b.angAccel = b.angAccel.Add(t)
	case Impulse:
		b.deltaOmega = b.deltaOmega.Add(b.applyInverseInertia(t))
	case VelocityChange:
		b.deltaOmega = b.deltaOmega.Add(t)
	default:
		panic(fmt.Sprintf("unhandled force mode %d", int(mode)))
	}
}

// AddForceAtPosition queues a force applied at a world point, producing
// torque about the centre of mass. Mass-independent modes are scaled back to
// a force before computing the torque.
func (b *Body) AddForceAtPosition(f, point mgl64.Vec3, mode ForceMode) {
	b.AddForce(f, mode)

	arm := point.Sub(b.Position)
	switch mode {
	case Force:
		b.angAccel = b.angAccel.Add(b.applyInverseInertia(arm.Cross(f)))
	case Acceleration:
		b.angAccel = b.angAccel.Add(b.applyInverseInertia(arm.Cross(f.Mul(b.Mass))))
	case Impulse:
		b.deltaOmega = b.deltaOmega.Add(b.applyInverseInertia(arm.Cross(f)))
	case VelocityChange:
		b.deltaOmega = b.deltaOmega.Add(b.applyInverseInertia(arm.Cross(f.Mul(b.Mass))))
	}
}

// AddExplosionForce pushes the body away from center with a linear falloff
// to zero at radius. upwardsModifier lowers the apparent centre so the push
// gains lift.
func (b *Body) AddExplosionForce(force float64, center mgl64.Vec3, radius, upwardsModifier float64, mode ForceMode) {
	offset := b.Position.Sub(center)
	dist := offset.Len()
	if radius > 0 && dist > radius {
		return
	}
	falloff := 1.0
	if radius > 0 {
		falloff = 1 - dist/radius
	}
	dir := b.Position.Sub(center.Sub(mgl64.Vec3{0, upwardsModifier, 0}))
	if l := dir.Len(); l > 0 {
		dir = dir.Mul(1 / l)
	} else {
		dir = mgl64.Vec3{0, 1, 0}
	}
	b.AddForce(dir.Mul(force*falloff), mode)
}

// ClearForces drops everything queued since the last integration.
func (b *Body) ClearForces() {
	b.accel = mgl64.Vec3{}
	b.deltaV = mgl64.Vec3{}
	b.angAccel = mgl64.Vec3{}
	b.deltaOmega = mgl64.Vec3{}
}

// Stop zeroes velocities and queued forces.
func (b *Body) Stop() {
	b.velocity = mgl64.Vec3{}
	b.angularVelocity = mgl64.Vec3{}
	b.ClearForces()
}

func (b *Body) integrate(dt float64, gravity mgl64.Vec3) {
	if b.Kinematic {
		b.ClearForces()
		return
	}

	v := b.velocity.Add(gravity.Mul(b.GravityScale * dt)).Add(b.accel.Mul(dt)).Add(b.deltaV)
	v = v.Mul(math.Max(0, 1-b.LinearDrag*dt))

	w := b.angularVelocity.Add(b.angAccel.Mul(dt)).Add(b.deltaOmega)
	w = w.Mul(math.Max(0, 1-b.AngularDrag*dt))
	if b.MaxAngularVelocity > 0 {
		if l := w.Len(); l > b.MaxAngularVelocity {
			w = w.Mul(b.MaxAngularVelocity / l)
		}
	}

	b.velocity = v
	b.angularVelocity = w
	b.ClearForces()

	b.Position = b.Position.Add(v.Mul(dt))
	spin := mgl64.Quat{W: 0, V: w}.Mul(b.Rotation).Scale(0.5 * dt)
	b.Rotation = b.Rotation.Add(spin).Normalize()
}

// applyImpulseNow changes velocities immediately; used by contact resolution
// after integration.
func (b *Body) applyImpulseNow(impulse, point mgl64.Vec3) {
	if b.Kinematic {
		return
	}
	b.velocity = b.velocity.Add(impulse.Mul(b.inverseMass()))
	arm := point.Sub(b.Position)
	b.angularVelocity = b.angularVelocity.Add(b.applyInverseInertia(arm.Cross(impulse)))
}
