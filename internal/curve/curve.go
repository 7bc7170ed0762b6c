// Package curve evaluates keyframed response curves used for tuning.
package curve

import "sort"

// Keyframe is a single point on a curve with Hermite tangents.
type Keyframe struct {
	Time       float64 `mapstructure:"time" json:"time"`
	Value      float64 `mapstructure:"value" json:"value"`
	InTangent  float64 `mapstructure:"inTangent" json:"inTangent"`
	OutTangent float64 `mapstructure:"outTangent" json:"outTangent"`
}

// Curve maps an input to an output through its keyframes. Keys must be sorted
// by time; Sorted returns a copy that is.
type Curve struct {
	Keys []Keyframe `mapstructure:"keys" json:"keys"`
}

// Linear01 rises from 0 at t=0 to 1 at t=1.
func Linear01() Curve {
	return Curve{Keys: []Keyframe{
		{Time: 0, Value: 0, InTangent: 1, OutTangent: 1},
		{Time: 1, Value: 1, InTangent: 1, OutTangent: 1},
	}}
}

// ReverseLinear01 falls from 1 at t=0 to 0 at t=1.
func ReverseLinear01() Curve {
	return Curve{Keys: []Keyframe{
		{Time: 0, Value: 1, InTangent: -1, OutTangent: -1},
		{Time: 1, Value: 0, InTangent: -1, OutTangent: -1},
	}}
}

// Constant returns v everywhere.
func Constant(v float64) Curve {
	return Curve{Keys: []Keyframe{{Time: 0, Value: v}}}
}

// Linear builds a piecewise-linear curve through the given (time, value)
// pairs, deriving each tangent from the neighbouring segment slopes.
func Linear(points ...[2]float64) Curve {
	keys := make([]Keyframe, len(points))
	for i, p := range points {
		keys[i] = Keyframe{Time: p[0], Value: p[1]}
	}
	for i := range keys {
		if i > 0 {
			keys[i].InTangent = slope(keys[i-1], keys[i])
		}
		if i < len(keys)-1 {
			keys[i].OutTangent = slope(keys[i], keys[i+1])
		}
	}
	if len(keys) > 1 {
		keys[0].InTangent = keys[0].OutTangent
		keys[len(keys)-1].OutTangent = keys[len(keys)-1].InTangent
	}
	return Curve{Keys: keys}
}

func slope(a, b Keyframe) float64 {
	if b.Time == a.Time {
		return 0
	}
	return (b.Value - a.Value) / (b.Time - a.Time)
}

// Sorted returns a copy of the curve with keys ordered by time.
func (c Curve) Sorted() Curve {
	keys := append([]Keyframe(nil), c.Keys...)
	sort.SliceStable(keys, func(i, j int) bool { return keys[i].Time < keys[j].Time })
	return Curve{Keys: keys}
}

// MaxTime is the time of the last key, or 0 for an empty curve.
func (c Curve) MaxTime() float64 {
	if len(c.Keys) == 0 {
		return 0
	}
	return c.Keys[len(c.Keys)-1].Time
}

// Evaluate samples the curve at t. Outside the key range the nearest end
// value is held.
func (c Curve) Evaluate(t float64) float64 {
	n := len(c.Keys)
	switch {
	case n == 0:
		return 0
	case n == 1 || t <= c.Keys[0].Time:
		return c.Keys[0].Value
	case t >= c.Keys[n-1].Time:
		return c.Keys[n-1].Value
	}

	i := sort.Search(n, func(i int) bool { return c.Keys[i].Time > t })
	a, b := c.Keys[i-1], c.Keys[i]
	span := b.Time - a.Time
	if span <= 0 {
		return b.Value
	}
	s := (t - a.Time) / span
	s2 := s * s
	s3 := s2 * s

	h00 := 2*s3 - 3*s2 + 1
	h10 := s3 - 2*s2 + s
	h01 := -2*s3 + 3*s2
	h11 := s3 - s2
	return h00*a.Value + h10*span*a.OutTangent + h01*b.Value + h11*span*b.InTangent
}
