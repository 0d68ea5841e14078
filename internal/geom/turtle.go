package geom

import "math"

// Turtle is a relative-motion cursor: a position plus a heading vector.
type Turtle struct {
	Pos     Point
	Heading Point
}

// NewTurtle starts at pos facing along heading.
func NewTurtle(pos, heading Point) *Turtle {
	return &Turtle{Pos: pos, Heading: heading}
}

// Turn rotates the heading by angle radians.
func (t *Turtle) Turn(angle float64) *Turtle {
	t.Heading = t.Heading.Rotate(angle)
	return t
}

// TurnLeft rotates the heading a quarter turn anticlockwise.
func (t *Turtle) TurnLeft() *Turtle {
	return t.Turn(-math.Pi / 2)
}

// TurnRight rotates the heading a quarter turn clockwise.
func (t *Turtle) TurnRight() *Turtle {
	return t.Turn(math.Pi / 2)
}

// Move advances along the heading by length; negative lengths move backwards.
func (t *Turtle) Move(length float64) *Turtle {
	l := t.Heading.Length()
	if l == 0 {
		return t
	}
	t.Heading = t.Heading.Mul(math.Abs(length) / l)
	if length > 0 {
		t.Pos = t.Pos.Add(t.Heading)
	} else {
		t.Pos = t.Pos.Sub(t.Heading)
	}
	return t
}

// Point returns the current position.
func (t *Turtle) Point() Point {
	return t.Pos
}
