package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func assertPoint(t *testing.T, want, got Point) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-9)
	assert.InDelta(t, want.Y, got.Y, 1e-9)
}

func TestPolarConvention(t *testing.T) {
	assertPoint(t, Pt(0, -100), FromPolar(100, 0))
	assertPoint(t, Pt(100, 0), FromPolar(100, math.Pi/2))
	assertPoint(t, Pt(0, 100), FromPolar(100, math.Pi))
	assert.InDelta(t, 3*math.Pi/2, Pt(-5, 0).Direction(), 1e-9)
	assert.InDelta(t, 0, Pt(0, -5).Direction(), 1e-9)
}

func TestPlacementRotatesClockwise(t *testing.T) {
	m := FromPlacement(10, 20, math.Pi/2, 2, 2)
	assertPoint(t, Pt(30, 20), m.TransformPoint(Pt(0, -10)))
	assertPoint(t, Pt(0, -10), m.Invert().TransformPoint(Pt(30, 20)))
	assert.True(t, m.Multiply(m.Invert()).IsIdentity())
}

func TestViewMatrix(t *testing.T) {
	v := DefaultView()
	assertPoint(t, Pt(150, 150), v.Matrix().TransformPoint(Pt(0, 0)))
	assertPoint(t, Pt(180, 150), v.Matrix().TransformPoint(Pt(100, 0)))
	v.Flipped = true
	assertPoint(t, Pt(120, 150), v.Matrix().TransformPoint(Pt(100, 0)))
}

func TestAngleRangeWraps(t *testing.T) {
	r := AngleRange{Min: 11 * math.Pi / 6, Max: math.Pi / 6}
	assert.True(t, r.Includes(0))
	assert.True(t, r.Includes(-0.1))
	assert.False(t, r.Includes(math.Pi))
	assert.InDelta(t, math.Pi/6, r.Clamp(math.Pi/3), 1e-9)
	assert.InDelta(t, 11*math.Pi/6, r.Clamp(3*math.Pi/2), 1e-9)
	assert.True(t, AngleRange{Min: 0, Max: 2 * math.Pi}.Full())
}

func TestVectorRangeConstrain(t *testing.T) {
	v := VectorRange{
		Length: NewRange(50, 200),
		Angle:  AngleRange{Min: math.Pi / 4, Max: 3 * math.Pi / 4},
	}
	got := v.Constrain(Pt(0, -400))
	assert.InDelta(t, 200, got.Length(), 1e-9)
	assert.InDelta(t, math.Pi/4, got.Direction(), 1e-9)
	assert.True(t, v.Contains(got))
	assert.False(t, v.Contains(Pt(10, 0)))
}

func TestRangeClamp(t *testing.T) {
	r := NewRange(-1, 1)
	assert.Equal(t, 1.0, r.Clamp(5))
	assert.Equal(t, -1.0, r.Clamp(-5))
	assert.True(t, r.Includes(0.5))
}

func TestRadianDiff(t *testing.T) {
	assert.InDelta(t, math.Pi/6, RadianDiff(11*math.Pi/6, 0), 1e-9)
	assert.InDelta(t, math.Pi/6, RadianDiff(-math.Pi/6, math.Pi*2), 1e-9)
	assert.True(t, BetweenAngles(0, -0.2, 0.2))
	assert.Equal(t, 0.0, NormalizeAngle(2*math.Pi))
}

func TestTurtle(t *testing.T) {
	tt := NewTurtle(Pt(0, 0), Pt(0, -1))
	tt.Move(10).TurnRight().Move(5)
	assertPoint(t, Pt(5, -10), tt.Point())
	tt.TurnRight().TurnRight().Move(-5)
	assertPoint(t, Pt(10, -10), tt.Point())
}

func TestCurves(t *testing.T) {
	a, b := Pt(0, 0), Pt(10, 10)
	assertPoint(t, Pt(5, 5), a.Lerp(b, 0.5))
	assertPoint(t, a, CubicBezier(0, a, Pt(1, 1), Pt(2, 2), b))
	assertPoint(t, b, CubicBezier(1, a, Pt(1, 1), Pt(2, 2), b))
	assert.InDelta(t, 7, LinearAt(a, b, 7), 1e-9)
	off := PerpendicularOffset(Pt(0, 0), Pt(10, 0), Pt(5, 0), 2)
	assertPoint(t, Pt(5, 2), off)
}
