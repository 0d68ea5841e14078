package geom

import "math"

// Point represents a 2D point or vector in drawing space (y grows downward).
type Point struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// Pt is a convenience function to create a Point.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// FromPolar returns the point at the given length and direction. Direction is
// measured clockwise from 12 o'clock.
func FromPolar(length, direction float64) Point {
	return Point{X: length * math.Sin(direction), Y: -length * math.Cos(direction)}
}

// Add returns the sum of two points (vector addition).
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns the difference of two points (vector subtraction).
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Mul returns the point scaled by a scalar.
func (p Point) Mul(s float64) Point {
	return Point{X: p.X * s, Y: p.Y * s}
}

// Length returns the length of the vector.
func (p Point) Length() float64 {
	return math.Hypot(p.X, p.Y)
}

// Direction returns the clockwise angle from 12 o'clock in [0, 2π).
func (p Point) Direction() float64 {
	return NormalizeAngle(math.Atan2(p.X, -p.Y))
}

// WithPolars returns a point with the given length and direction.
func (p Point) WithPolars(length, direction float64) Point {
	return FromPolar(length, direction)
}

// WithLength keeps the direction and replaces the length.
func (p Point) WithLength(length float64) Point {
	return FromPolar(length, p.Direction())
}

// Distance returns the distance between two points.
func (p Point) Distance(q Point) float64 {
	return p.Sub(q).Length()
}

// Rotate returns the point rotated by angle radians around the origin.
func (p Point) Rotate(angle float64) Point {
	cos := math.Cos(angle)
	sin := math.Sin(angle)
	return Point{
		X: p.X*cos - p.Y*sin,
		Y: p.X*sin + p.Y*cos,
	}
}

// Lerp performs linear interpolation between two points.
func (p Point) Lerp(q Point, t float64) Point {
	return Point{
		X: p.X + (q.X-p.X)*t,
		Y: p.Y + (q.Y-p.Y)*t,
	}
}

// CubicBezier evaluates a cubic bezier at t in [0, 1].
func CubicBezier(t float64, start, c1, c2, end Point) Point {
	mt := 1 - t
	b0 := mt * mt * mt
	b1 := 3 * t * mt * mt
	b2 := 3 * t * t * mt
	b3 := t * t * t
	return Point{
		X: b0*start.X + b1*c1.X + b2*c2.X + b3*end.X,
		Y: b0*start.Y + b1*c1.Y + b2*c2.Y + b3*end.Y,
	}
}

// PerpendicularOffset returns the point dist away from at, along the normal of
// the line from a to b.
func PerpendicularOffset(a, b, at Point, dist float64) Point {
	nx := a.Y - b.Y
	ny := b.X - a.X
	norm := math.Hypot(nx, ny)
	if norm == 0 {
		return at
	}
	return Point{X: at.X + nx/norm*dist, Y: at.Y + ny/norm*dist}
}

// LinearAt evaluates the line through a and b at x.
func LinearAt(a, b Point, x float64) float64 {
	slope := (b.Y - a.Y) / (b.X - a.X)
	return slope*(x-b.X) + b.Y
}
