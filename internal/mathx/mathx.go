// Package mathx holds the scalar and vector helpers the simulation uses on
// top of mgl64. Angles are in degrees unless a name says otherwise.
package mathx

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const epsilon = 1e-9

var (
	Up      = mgl64.Vec3{0, 1, 0}
	Down    = mgl64.Vec3{0, -1, 0}
	Forward = mgl64.Vec3{0, 0, 1}
	Right   = mgl64.Vec3{1, 0, 0}
)

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 limits v to [0, 1].
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

// Lerp interpolates from a to b with t clamped to [0, 1].
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*Clamp01(t)
}

// InverseLerp returns where v sits between a and b, clamped to [0, 1].
// It returns 0 when a == b.
func InverseLerp(a, b, v float64) float64 {
	if a == b {
		return 0
	}
	return Clamp01((v - a) / (b - a))
}

// Remap maps v from [min1, max1] to [min2, max2], clamping to the output
// range. A zero-width input range maps everything to 0.
func Remap(v, min1, max1, min2, max2 float64) float64 {
	if max1-min1 == 0 {
		return 0
	}
	out := min2 + (v-min1)*(max2-min2)/(max1-min1)
	lo, hi := min2, max2
	if lo > hi {
		lo, hi = hi, lo
	}
	return Clamp(out, lo, hi)
}

// Sign returns -1 for negative values and +1 otherwise, zero included.
func Sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

// BetterLerpCoefficient turns an exponential decay rate into a per-step
// lerp factor for a step of dt seconds.
func BetterLerpCoefficient(rate, dt float64) float64 {
	return 1 - math.Exp(-rate*dt)
}

// OldLerpCoefficientToBetterLerpCoefficient converts a per-frame lerp factor
// tuned at oldFramerate into a framerate-independent factor for dt.
func OldLerpCoefficientToBetterLerpCoefficient(old, oldFramerate, dt float64) float64 {
	old = math.Min(old, 0.999)
	rate := -oldFramerate * math.Log(1-old)
	return BetterLerpCoefficient(rate, dt)
}

// SafeNormalize returns the unit vector of v, or the zero vector when v is
// too short to normalize.
func SafeNormalize(v mgl64.Vec3) mgl64.Vec3 {
	l := v.Len()
	if l < epsilon {
		return mgl64.Vec3{}
	}
	return v.Mul(1 / l)
}

// ProjectOnPlane removes the component of v along normal.
func ProjectOnPlane(v, normal mgl64.Vec3) mgl64.Vec3 {
	sqr := normal.Dot(normal)
	if sqr < epsilon {
		return v
	}
	return v.Sub(normal.Mul(v.Dot(normal) / sqr))
}

// ClampMagnitude shortens v to at most maxLength.
func ClampMagnitude(v mgl64.Vec3, maxLength float64) mgl64.Vec3 {
	l := v.Len()
	if l > maxLength && l > 0 {
		return v.Mul(maxLength / l)
	}
	return v
}

// LerpVec interpolates component-wise with t clamped to [0, 1].
func LerpVec(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	t = Clamp01(t)
	return a.Add(b.Sub(a).Mul(t))
}

// Angle returns the unsigned angle between two vectors in degrees.
func Angle(from, to mgl64.Vec3) float64 {
	denom := math.Sqrt(from.Dot(from) * to.Dot(to))
	if denom < epsilon {
		return 0
	}
	dot := Clamp(from.Dot(to)/denom, -1, 1)
	return mgl64.RadToDeg(math.Acos(dot))
}

// SignedAngle returns the angle from one vector to another in degrees, signed
// by the side of axis the rotation falls on.
func SignedAngle(from, to, axis mgl64.Vec3) float64 {
	angle := Angle(from, to)
	if axis.Dot(from.Cross(to)) < 0 {
		return -angle
	}
	return angle
}

// LookRotation builds the rotation whose forward axis is forward and whose up
// axis is as close to up as possible. A zero forward yields identity.
func LookRotation(forward, up mgl64.Vec3) mgl64.Quat {
	f := SafeNormalize(forward)
	if f == (mgl64.Vec3{}) {
		return mgl64.QuatIdent()
	}
	r := SafeNormalize(up.Cross(f))
	if r == (mgl64.Vec3{}) {
		// forward is parallel to up, any perpendicular right axis will do
		r = SafeNormalize(Forward.Cross(f))
		if r == (mgl64.Vec3{}) {
			r = Right
		}
	}
	u := f.Cross(r)
	m := mgl64.Mat3FromCols(r, u, f)
	return mgl64.Mat4ToQuat(m.Mat4()).Normalize()
}

// YawRotation is a rotation of degrees about the world up axis.
func YawRotation(degrees float64) mgl64.Quat {
	return mgl64.QuatRotate(mgl64.DegToRad(degrees), Up)
}
