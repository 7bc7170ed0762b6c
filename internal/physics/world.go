package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	// contactSkin keeps resting contacts reported while a collider sits
	// exactly on a surface.
	contactSkin        = 0.01
	positionCorrection = 0.8
)

// Plane is a static half-space boundary. Points with Normal·p >= Distance
// are inside the play volume.
type Plane struct {
	Name        string
	Normal      mgl64.Vec3
	Distance    float64
	Restitution float64
	Friction    float64
}

// PlaneThrough builds a plane through point facing along normal.
func PlaneThrough(name string, point, normal mgl64.Vec3, restitution, friction float64) Plane {
	n := normal.Normalize()
	return Plane{Name: name, Normal: n, Distance: n.Dot(point), Restitution: restitution, Friction: friction}
}

// Contact describes one collider touching something during a step.
// Normal points away from the other surface, toward Body.
type Contact struct {
	Body     *Body
	Collider int
	Other    *Body // nil for static planes
	Plane    string
	Normal   mgl64.Vec3
	Point    mgl64.Vec3
	Impulse  float64
	Time     float64
}

// TriggerEvent reports a trigger collider of Body overlapping a collider of
// Other. Enter is true on the first step of the overlap.
type TriggerEvent struct {
	Body          *Body
	Collider      int
	Other         *Body
	OtherCollider int
	Enter         bool
	Time          float64
}

type ContactListener func(Contact)
type TriggerListener func(TriggerEvent)

type triggerKey struct {
	body, collider, other, otherCollider int
}

// World owns bodies and static planes and advances them at a fixed step.
type World struct {
	Gravity mgl64.Vec3

	bodies  []*Body
	planes  []Plane
	nextID  int
	onHit   ContactListener
	onEnter TriggerListener

	overlaps map[triggerKey]bool
	index    *spatialIndex
}

// NewWorld creates an empty world.
func NewWorld(gravity mgl64.Vec3) *World {
	return &World{
		Gravity:  gravity,
		overlaps: make(map[triggerKey]bool),
	}
}

// AddBody registers b and assigns its ID.
func (w *World) AddBody(b *Body) *Body {
	w.nextID++
	b.ID = w.nextID
	w.bodies = append(w.bodies, b)
	w.index = nil
	return b
}

// RemoveBody unregisters b. Removing an unknown body is a no-op.
func (w *World) RemoveBody(b *Body) {
	for i, x := range w.bodies {
		if x == b {
			w.bodies = append(w.bodies[:i], w.bodies[i+1:]...)
			break
		}
	}
	for k := range w.overlaps {
		if k.body == b.ID || k.other == b.ID {
			delete(w.overlaps, k)
		}
	}
	w.index = nil
}

// Bodies returns the registered bodies in insertion order.
func (w *World) Bodies() []*Body {
	return w.bodies
}

func (w *World) AddPlane(p Plane) {
	w.planes = append(w.planes, p)
}

func (w *World) SetContactListener(l ContactListener) { w.onHit = l }
func (w *World) SetTriggerListener(l TriggerListener) { w.onEnter = l }

// Step integrates every body by dt, resolves contacts and reports contacts
// and trigger overlaps stamped with now.
func (w *World) Step(now, dt float64) {
	for _, b := range w.bodies {
		b.integrate(dt, w.Gravity)
	}
	for _, b := range w.bodies {
		w.resolvePlanes(b, now)
	}
	for i := 0; i < len(w.bodies); i++ {
		for j := i + 1; j < len(w.bodies); j++ {
			w.resolvePair(w.bodies[i], w.bodies[j], now)
		}
	}
	w.index = nil
	w.detectTriggers(now)
}

func (w *World) resolvePlanes(b *Body, now float64) {
	if b.Kinematic || b.Collides&LayerEnvironment == 0 {
		return
	}
	for _, p := range w.planes {
		deepest := 0.0
		for ci, c := range b.Colliders {
			if c.Trigger || c.Disabled {
				continue
			}
			center := b.ColliderCenter(ci)
			dist := p.Normal.Dot(center) - p.Distance
			if dist >= c.Radius+contactSkin {
				continue
			}
			point := center.Sub(p.Normal.Mul(c.Radius))
			impulse := resolveAgainstStatic(b, point, p.Normal, combine(b.Restitution, p.Restitution), math.Sqrt(b.Friction*p.Friction))
			deepest = math.Max(deepest, c.Radius-dist)
			w.report(Contact{Body: b, Collider: ci, Plane: p.Name, Normal: p.Normal, Point: point, Impulse: impulse, Time: now})
		}
		if deepest > 0 {
			b.Position = b.Position.Add(p.Normal.Mul(deepest * positionCorrection))
		}
	}
}

func (w *World) resolvePair(a, b *Body, now float64) {
	if a.Kinematic && b.Kinematic {
		return
	}
	if a.Layer&b.Collides == 0 || b.Layer&a.Collides == 0 {
		return
	}
	for ai, ac := range a.Colliders {
		if ac.Trigger || ac.Disabled {
			continue
		}
		for bi, bc := range b.Colliders {
			if bc.Trigger || bc.Disabled {
				continue
			}
			ca, cb := a.ColliderCenter(ai), b.ColliderCenter(bi)
			delta := cb.Sub(ca)
			dist := delta.Len()
			reach := ac.Radius + bc.Radius
			if dist >= reach+contactSkin || dist == 0 {
				continue
			}
			n := delta.Mul(1 / dist) // from a to b
			point := ca.Add(n.Mul(ac.Radius))
			impulse := resolveDynamic(a, b, point, n, combine(a.Restitution, b.Restitution), math.Sqrt(a.Friction*b.Friction))

			if pen := reach - dist; pen > 0 {
				ima, imb := a.inverseMass(), b.inverseMass()
				if total := ima + imb; total > 0 {
					shift := n.Mul(pen * positionCorrection / total)
					a.Position = a.Position.Sub(shift.Mul(ima))
					b.Position = b.Position.Add(shift.Mul(imb))
				}
			}

			w.report(Contact{Body: a, Collider: ai, Other: b, Normal: n.Mul(-1), Point: point, Impulse: impulse, Time: now})
			w.report(Contact{Body: b, Collider: bi, Other: a, Normal: n, Point: point, Impulse: impulse, Time: now})
		}
	}
}

func (w *World) report(c Contact) {
	if w.onHit != nil {
		w.onHit(c)
	}
}

func (w *World) detectTriggers(now float64) {
	seen := make(map[triggerKey]bool, len(w.overlaps))
	for _, a := range w.bodies {
		for ai, ac := range a.Colliders {
			if !ac.Trigger || ac.Disabled {
				continue
			}
			ca := a.ColliderCenter(ai)
			for _, b := range w.bodies {
				if b == a {
					continue
				}
				for bi, bc := range b.Colliders {
					if bc.Disabled {
						continue
					}
					if b.ColliderCenter(bi).Sub(ca).Len() > ac.Radius+bc.Radius {
						continue
					}
					key := triggerKey{a.ID, ai, b.ID, bi}
					seen[key] = true
					if w.onEnter != nil {
						w.onEnter(TriggerEvent{Body: a, Collider: ai, Other: b, OtherCollider: bi, Enter: !w.overlaps[key], Time: now})
					}
				}
			}
		}
	}
	w.overlaps = seen
}

func combine(a, b float64) float64 {
	return math.Max(a, b)
}

// resolveAgainstStatic applies a restitution and Coulomb friction impulse to
// b at point against an immovable surface with the given normal and returns
// the normal impulse magnitude.
func resolveAgainstStatic(b *Body, point, normal mgl64.Vec3, restitution, friction float64) float64 {
	vRel := b.PointVelocity(point)
	vn := vRel.Dot(normal)
	if vn >= 0 {
		return 0
	}
	arm := point.Sub(b.Position)
	k := b.inverseMass() + normal.Dot(b.applyInverseInertia(arm.Cross(normal)).Cross(arm))
	if k <= 0 {
		return 0
	}
	j := -(1 + restitution) * vn / k
	b.applyImpulseNow(normal.Mul(j), point)

	tangent := vRel.Sub(normal.Mul(vn))
	if tl := tangent.Len(); tl > 1e-9 && friction > 0 {
		t := tangent.Mul(1 / tl)
		kt := b.inverseMass() + t.Dot(b.applyInverseInertia(arm.Cross(t)).Cross(arm))
		if kt > 0 {
			jt := math.Min(tl/kt, friction*j)
			b.applyImpulseNow(t.Mul(-jt), point)
		}
	}
	return j
}

// resolveDynamic is the two-body form of resolveAgainstStatic; n points from
// a to b.
func resolveDynamic(a, b *Body, point, n mgl64.Vec3, restitution, friction float64) float64 {
	vRel := b.PointVelocity(point).Sub(a.PointVelocity(point))
	vn := vRel.Dot(n)
	if vn >= 0 {
		return 0
	}
	armA, armB := point.Sub(a.Position), point.Sub(b.Position)
	k := a.inverseMass() + b.inverseMass() +
		n.Dot(a.applyInverseInertia(armA.Cross(n)).Cross(armA)) +
		n.Dot(b.applyInverseInertia(armB.Cross(n)).Cross(armB))
	if k <= 0 {
		return 0
	}
	j := -(1 + restitution) * vn / k
	a.applyImpulseNow(n.Mul(-j), point)
	b.applyImpulseNow(n.Mul(j), point)

	tangent := vRel.Sub(n.Mul(vn))
	if tl := tangent.Len(); tl > 1e-9 && friction > 0 {
		t := tangent.Mul(1 / tl)
		jt := math.Min(tl/k, friction*j)
		a.applyImpulseNow(t.Mul(jt), point)
		b.applyImpulseNow(t.Mul(-jt), point)
	}
	return j
}
