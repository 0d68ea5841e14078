package geom

import "math"

const twoPi = 2 * math.Pi

// Range is a closed numeric interval.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// NewRange returns [min, max].
func NewRange(min, max float64) Range {
	return Range{Min: min, Max: max}
}

// Clamp returns v limited to the range.
func (r Range) Clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Includes reports whether v lies within the range.
func (r Range) Includes(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// AngleRange is an arc running clockwise from Min to Max. Bounds may wrap
// through zero, e.g. {11π/6, π/6} is the sixty degrees around 12 o'clock.
type AngleRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Full reports whether the arc covers the whole circle.
func (a AngleRange) Full() bool {
	return a.Max-a.Min >= twoPi-1e-9
}

func (a AngleRange) span() float64 {
	return NormalizeAngle(a.Max - a.Min)
}

// Includes compares circularly, so a wrapped arc contains angles on both sides of zero.
func (a AngleRange) Includes(angle float64) bool {
	if a.Full() {
		return true
	}
	const eps = 1e-9
	offset := NormalizeAngle(angle - a.Min)
	return offset <= a.span()+eps || offset >= twoPi-eps
}

// Clamp returns the angle if it is on the arc, otherwise the nearer bound.
func (a AngleRange) Clamp(angle float64) float64 {
	if a.Includes(angle) {
		return NormalizeAngle(angle)
	}
	if RadianDiff(angle, a.Min) <= RadianDiff(angle, a.Max) {
		return NormalizeAngle(a.Min)
	}
	return NormalizeAngle(a.Max)
}

// VectorRange constrains a handle in polar form relative to the shape origin.
type VectorRange struct {
	Length Range      `json:"length"`
	Angle  AngleRange `json:"angle"`
}

// Constrain clamps p's length and direction into the range.
func (v VectorRange) Constrain(p Point) Point {
	length := v.Length.Clamp(p.Length())
	direction := v.Angle.Clamp(p.Direction())
	return FromPolar(length, direction)
}

// Contains reports whether p already satisfies the range.
func (v VectorRange) Contains(p Point) bool {
	const eps = 1e-6
	l := p.Length()
	if l < v.Length.Min-eps || l > v.Length.Max+eps {
		return false
	}
	if l < eps {
		return true
	}
	return v.Angle.Includes(p.Direction())
}

// NormalizeAngle maps an angle into [0, 2π).
func NormalizeAngle(angle float64) float64 {
	a := math.Mod(angle, twoPi)
	if a < 0 {
		a += twoPi
	}
	if a >= twoPi {
		a = 0
	}
	return a
}

// RadianDiff returns the smallest absolute difference between two angles.
func RadianDiff(a, b float64) float64 {
	d := math.Abs(math.Mod(a-b, twoPi))
	return math.Min(d, math.Abs(d-twoPi))
}

// BetweenAngles reports whether angle lies on the shorter arc between lo and hi.
func BetweenAngles(angle, lo, hi float64) bool {
	return RadianDiff(angle, lo)+RadianDiff(angle, hi)-RadianDiff(lo, hi) < 0.001
}
